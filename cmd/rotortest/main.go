package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/tigerbot-team/tigerbot/heli-controller/pkg/config"
	"github.com/tigerbot-team/tigerbot/heli-controller/pkg/pca9685"
)

var (
	configPath = flag.String("config", config.DefaultPath, "YAML config file")
	dummy      = flag.Bool("dummy", false, "Accept commands without touching the bus")
)

func main() {
	flag.Parse()
	cfg, err := config.Load(*configPath, zap.NewNop())
	if err != nil {
		fmt.Println("Failed to load config", err)
		return
	}
	hc := cfg.Hardware

	var pwmController pca9685.Interface
	if *dummy {
		pwmController = pca9685.Dummy()
	} else {
		pwmController, err = pca9685.New(hc.I2CDevice, hc.PWMAddr)
		if err != nil {
			fmt.Println("Failed to open PCA9685", err)
			return
		}
	}
	defer pwmController.Close()

	err = pwmController.Configure(cfg.Control.PWMFrequencyHz)
	if err != nil {
		fmt.Println("Failed to configure PCA9685", err)
		return
	}
	defer func() {
		fmt.Println("Stopping rotors")
		_ = pwmController.SetFullOff(hc.MainPort)
		_ = pwmController.SetFullOff(hc.TailPort)
	}()

	fmt.Println(
		`Commands:
    d <rotor> <percent>   # Set duty cycle
    o <rotor>             # Rotor fully off
    f <hz>                # Change PWM frequency
    q                     # Stop both rotors and quit

<rotor>    main or tail
<percent>  Duty cycle 0-100`)

	ports := map[string]int{"main": hc.MainPort, "tail": hc.TailPort}
	reader := bufio.NewReader(os.Stdin)
	for {
		fmt.Print("> ")
		line, err := reader.ReadString('\n')
		if err != nil {
			fmt.Println("\nFailed to read stdin: ", err)
			return
		}

		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		switch parts[0] {
		case "q":
			return
		case "f":
			if len(parts) < 2 {
				fmt.Println("Not enough parameters")
				continue
			}
			hz, err := strconv.Atoi(parts[1])
			if err != nil {
				fmt.Println("Expected int, not ", parts[1])
				continue
			}
			if err := pwmController.Configure(hz); err != nil {
				fmt.Println("Failed to configure PCA9685: ", err)
			}
		case "d", "o":
			if len(parts) < 2 || (parts[0] == "d" && len(parts) < 3) {
				fmt.Println("Not enough parameters")
				continue
			}
			port, ok := ports[parts[1]]
			if !ok {
				fmt.Println("Expected main or tail, not ", parts[1])
				continue
			}
			if parts[0] == "o" {
				err = pwmController.SetFullOff(port)
			} else {
				v, perr := strconv.ParseFloat(parts[2], 64)
				if perr != nil || v < 0 || v > 100 {
					fmt.Println("Expected percentage, not ", parts[2])
					continue
				}
				fmt.Printf("Setting %s rotor to %.1f%%\n", parts[1], v)
				err = pwmController.SetDuty(port, v)
			}
			if err != nil {
				fmt.Println("Failed to write to PCA9685: ", err)
				return
			}
		default:
			fmt.Println("Unknown command", parts[0])
		}
	}
}
