package main

import (
	"flag"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/tigerbot-team/tigerbot/heli-controller/pkg/config"
	"github.com/tigerbot-team/tigerbot/heli-controller/pkg/ina219"
)

var configPath = flag.String("config", config.DefaultPath, "YAML config file")

func main() {
	flag.Parse()
	cfg, err := config.Load(*configPath, zap.NewNop())
	if err != nil {
		fmt.Println("Failed to load config", err)
		return
	}
	hc := cfg.Hardware
	addr := hc.SupplyAddr
	if addr == 0 {
		addr = ina219.DefaultAddr
	}

	monitor, err := ina219.NewI2C(hc.I2CDevice, addr)
	if err != nil {
		fmt.Println("Failed to open ina219", err)
		return
	}
	defer monitor.Close()

	err = monitor.Configure(hc.ShuntOhms, hc.MaxCurrent)
	if err != nil {
		fmt.Println("Failed to configure ina219", err)
		return
	}

	for range time.NewTicker(500 * time.Millisecond).C {
		voltage, err := monitor.ReadBusVoltage()
		fmt.Printf("%.2fV %v ", voltage, err)
		current, err := monitor.ReadCurrent()
		fmt.Printf("%.3fA %v\n", current, err)
	}
}
