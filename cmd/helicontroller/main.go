package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/tigerbot-team/tigerbot/heli-controller/pkg/ads1115"
	"github.com/tigerbot-team/tigerbot/heli-controller/pkg/altitude"
	"github.com/tigerbot-team/tigerbot/heli-controller/pkg/buttons"
	"github.com/tigerbot-team/tigerbot/heli-controller/pkg/config"
	"github.com/tigerbot-team/tigerbot/heli-controller/pkg/flightcontrol"
	"github.com/tigerbot-team/tigerbot/heli-controller/pkg/hardware"
	"github.com/tigerbot-team/tigerbot/heli-controller/pkg/joystick"
	"github.com/tigerbot-team/tigerbot/heli-controller/pkg/quadrature"
	"github.com/tigerbot-team/tigerbot/heli-controller/pkg/screen"
	"github.com/tigerbot-team/tigerbot/heli-controller/pkg/sound"
	"github.com/tigerbot-team/tigerbot/heli-controller/pkg/telemetry"
)

var (
	configPath = flag.String("config", config.DefaultPath, "YAML config file")
	debug      = flag.Bool("debug", false, "enable debug logging")
	dummy      = flag.Bool("dummy", false, "log actuator calls instead of driving hardware")
	simulate   = flag.Bool("sim", false, "fly a simulated rig in real time")
)

func main() {
	flag.Parse()

	log, err := newLogger(*debug)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to create logger:", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("---- Heli controller ----", zap.Int("GOMAXPROCS", runtime.GOMAXPROCS(0)))

	cfg, err := config.Load(*configPath, log)
	if err != nil {
		log.Fatal("failed to load config", zap.Error(err))
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal("invalid config", zap.Error(err))
	}
	if err := config.WriteInUse(*configPath+".in-use", cfg); err != nil {
		log.Warn("failed to record in-use config", zap.Error(err))
	}

	// Our global context, we cancel it to trigger shutdown.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Hook Ctrl-C etc.
	registerSignalHandlers(cancel, log)

	var rig hardware.Rig
	switch {
	case *simulate:
		rig = startSim(ctx, cfg, log)
	case *dummy:
		rig = hardware.NewDummy(log).Rig()
	default:
		var shutdown func()
		rig, shutdown, err = startHardware(ctx, cfg, log)
		if err != nil {
			log.Fatal("failed to initialise hardware", zap.Error(err))
		}
		defer shutdown()
	}

	sampler, err := altitude.NewSampler(rig.Analog, cfg.Sampling.BufferSize, cfg.Sampling.RateHz, log)
	if err != nil {
		log.Fatal("failed to create sampler", zap.Error(err))
	}
	go sampler.Run(ctx)

	loop, err := flightcontrol.New(cfg, rig, sampler, log)
	if err != nil {
		log.Fatal("failed to create flight loop", zap.Error(err))
	}

	player := sound.New(cfg.Sounds, log)
	go player.Run(ctx)
	loop.Sounds = player

	if cfg.Telemetry.Port != "" {
		port, err := telemetry.OpenSerial(cfg.Telemetry.Port, cfg.Telemetry.BaudRate)
		if err != nil {
			log.Warn("telemetry disabled", zap.Error(err))
		} else {
			pub := telemetry.New(port, log)
			go pub.Run(ctx, cfg.Telemetry.Interval)
			loop.Telemetry = pub
		}
	}

	loop.Run(ctx)
	log.Info("Flight loop stopped, shutting down")
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func startHardware(ctx context.Context, cfg config.Config, log *zap.Logger) (hardware.Rig, func(), error) {
	hc := cfg.Hardware
	hw := hardware.New(hardware.I2CConfig{
		DeviceFile:     hc.I2CDevice,
		PWMAddr:        hc.PWMAddr,
		PWMPorts:       [hardware.NumChannels]int{hc.MainPort, hc.TailPort},
		SupplyAddr:     hc.SupplyAddr,
		ShuntOhms:      hc.ShuntOhms,
		MaxCurrent:     hc.MaxCurrent,
		UpdateInterval: cfg.Control.Period,
		SupplyInterval: time.Second,
	}, log)
	hw.Start(ctx)

	rig := hardware.Rig{Actuators: hw}
	if hc.SupplyAddr != 0 {
		rig.Supply = hw
	}

	adc, err := ads1115.New(hc.I2CDevice, hc.ADCAddr, log)
	if err != nil {
		hw.Shutdown()
		return rig, nil, err
	}
	go adc.Run(ctx)
	rig.Analog = adc

	rig.Input, err = startInput(ctx, cfg, log)
	if err != nil {
		hw.Shutdown()
		return rig, nil, err
	}

	yaw, err := quadrature.Open(hc.YawPinA, hc.YawPinB, hc.YawRefPin, hc.YawCountsPerRev, log)
	if err != nil {
		hw.Shutdown()
		return rig, nil, err
	}
	go yaw.Run(ctx)
	rig.Yaw = yaw

	scr := screen.New(cfg.Display.Framebuffer, log)
	go scr.LoopUpdatingScreen(ctx, cfg.Display.Interval)
	rig.Display = scr

	return rig, hw.Shutdown, nil
}

func startInput(ctx context.Context, cfg config.Config, log *zap.Logger) (hardware.Input, error) {
	if cfg.Hardware.Joystick == "" {
		bp := cfg.Hardware.ButtonPins
		panel, err := buttons.Open([hardware.NumButtons]string{
			hardware.ButtonUp:    bp.Up,
			hardware.ButtonDown:  bp.Down,
			hardware.ButtonLeft:  bp.Left,
			hardware.ButtonRight: bp.Right,
		}, cfg.Hardware.SwitchPin, log)
		if err != nil {
			return nil, err
		}
		go panel.Run(ctx, cfg.Control.Period)
		return panel, nil
	}

	j, err := joystick.NewJoystick(cfg.Hardware.Joystick)
	if err != nil {
		return nil, err
	}
	log.Info("Opened joystick", zap.String("device", cfg.Hardware.Joystick))
	pad := joystick.NewPad(log)
	go func() {
		if err := pad.Run(ctx, j); err != nil {
			log.Error("Joystick failed", zap.Error(err))
		}
	}()
	return pad, nil
}

// startSim runs a simulated rig against the wall clock. A gamepad, if
// configured, flies it.
func startSim(ctx context.Context, cfg config.Config, log *zap.Logger) hardware.Rig {
	sim := hardware.NewSimRig(hardware.DefaultSimConfig())
	go func() {
		ticker := time.NewTicker(cfg.Control.Period)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				sim.Advance(cfg.Control.Period)
			}
		}
	}()

	rig := sim.Rig()
	if cfg.Hardware.Joystick != "" {
		input, err := startInput(ctx, cfg, log)
		if err != nil {
			log.Warn("no joystick; simulated rig has no controls", zap.Error(err))
		} else {
			rig.Input = input
		}
	}
	return rig
}

func registerSignalHandlers(cancel context.CancelFunc, log *zap.Logger) {
	// Hook Ctrl-C to cause shut down.
	signals := make(chan os.Signal, 2)
	signal.Notify(signals, syscall.SIGTERM, syscall.SIGINT)
	go func() {
		s := <-signals
		log.Info("Signal received, shutting down", zap.Stringer("signal", s))
		cancel()
		time.Sleep(2 * time.Second)
		os.Exit(0)
	}()
}
