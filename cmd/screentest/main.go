package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/tigerbot-team/tigerbot/heli-controller/pkg/config"
	"github.com/tigerbot-team/tigerbot/heli-controller/pkg/flightmode"
	"github.com/tigerbot-team/tigerbot/heli-controller/pkg/screen"
)

var configPath = flag.String("config", config.DefaultPath, "YAML config file")

// Each line typed replaces the mode line; "page" cycles the sample pages.
func main() {
	flag.Parse()
	log, _ := zap.NewDevelopment()
	cfg, err := config.Load(*configPath, log)
	if err != nil {
		fmt.Println("Failed to load config", err)
		return
	}

	ctx := context.Background()
	s := screen.New(cfg.Display.Framebuffer, log)
	go s.LoopUpdatingScreen(ctx, cfg.Display.Interval)

	status := screen.Status{
		Mode:            flightmode.Flying,
		Setpoint:        flightmode.Setpoint{Altitude: 50, Yaw: 15},
		Altitude:        47,
		Yaw:             12,
		MainDuty:        31.5,
		TailDuty:        27.2,
		MeanADC:         1876,
		Samples:         4242,
		GroundReference: 1500,
		GroundLatched:   true,
		SupplyVolts:     11.9,
		SupplyOK:        true,
	}
	page := screen.PageFlight
	show := func() {
		for i, l := range screen.Format(page, status) {
			s.DrawLine(i, l)
		}
	}
	show()

	reader := bufio.NewReader(os.Stdin)
	for {
		fmt.Print("> ")
		line, err := reader.ReadString('\n')
		if err != nil {
			fmt.Println("\nFailed to read stdin: ", err)
			return
		}
		line = strings.TrimSpace(line)
		if line == "page" {
			page = page.Next()
			show()
			continue
		}
		s.DrawLine(3, line)
	}
}
