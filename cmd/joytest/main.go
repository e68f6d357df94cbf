package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/tigerbot-team/tigerbot/heli-controller/pkg/hardware"
	"github.com/tigerbot-team/tigerbot/heli-controller/pkg/joystick"
)

// Prints raw joystick events and what the flight controller would make of
// them.
func main() {
	// Our global context, we cancel it to trigger shutdown.
	ctx, cancel := context.WithCancel(context.Background())

	// Hook Ctrl-C etc.
	registerSignalHandlers(cancel)

	j := openJoystick(ctx)
	pad := joystick.NewPad(zap.NewNop())
	lastSwitch := pad.PollSwitch()
	for ctx.Err() == nil {
		event, err := j.ReadEvent()
		if err != nil {
			fmt.Printf("Failed to read from joystick: %v.\n", err)
			return
		}
		fmt.Printf("Event from joystick: %s\n", event)

		pad.HandleEvent(event)
		for b := hardware.Button(0); b < hardware.NumButtons; b++ {
			if pad.PollButton(b) == hardware.Pressed {
				fmt.Printf("  -> %v pressed\n", b)
			}
		}
		if sw := pad.PollSwitch(); sw != lastSwitch {
			fmt.Printf("  -> switch %v\n", sw)
			lastSwitch = sw
		}
	}
}

func openJoystick(ctx context.Context) *joystick.Joystick {
	firstLog := true
	for {
		jDev := os.Getenv("JOYSTICK_DEVICE")
		if jDev == "" {
			jDev = "/dev/input/js0"
		}
		j, err := joystick.NewJoystick(jDev)
		if err == nil {
			fmt.Printf("Opened joystick\n")
			go func() {
				<-ctx.Done()
				j.Close()
			}()
			return j
		}
		if firstLog {
			fmt.Printf("Waiting for joystick: %v.\n", err)
			firstLog = false
		}
		time.Sleep(1 * time.Second)
	}
}

func registerSignalHandlers(cancelFunc context.CancelFunc) {
	// Hook Ctrl-C to cause shut down.
	signals := make(chan os.Signal, 2)
	signal.Notify(signals, syscall.SIGTERM, syscall.SIGINT)
	go func() {
		s := <-signals
		log.Println("Signal: ", s)
		cancelFunc()
		time.Sleep(2 * time.Second)
		os.Exit(0)
	}()
}
