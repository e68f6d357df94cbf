// helisim flies the controller against a simulated rig, as fast as it can,
// and reports how well each axis tracked its setpoint.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/tigerbot-team/tigerbot/heli-controller/pkg/altitude"
	"github.com/tigerbot-team/tigerbot/heli-controller/pkg/config"
	"github.com/tigerbot-team/tigerbot/heli-controller/pkg/flightcontrol"
	"github.com/tigerbot-team/tigerbot/heli-controller/pkg/flightmode"
	"github.com/tigerbot-team/tigerbot/heli-controller/pkg/hardware"
	"github.com/tigerbot-team/tigerbot/heli-controller/pkg/reffinder"
)

var (
	configPath = flag.String("config", "", "YAML config file (defaults if empty)")
	altSteps   = flag.Int("up", 5, "altitude presses after take-off")
	yawSteps   = flag.Int("yaw", 2, "clockwise yaw presses after take-off")
	hold       = flag.Float64("hold", 30, "seconds to hold the setpoint")
	settle     = flag.Float64("settle", 10, "seconds ignored before measuring")
	plotPath   = flag.String("plot", "", "write a PNG of the run here")
	debug      = flag.Bool("debug", false, "log every mode change")
)

func main() {
	flag.Parse()

	log := zap.NewNop()
	if *debug {
		log, _ = zap.NewDevelopment()
	}

	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath, log); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}

	trace, err := fly(cfg, log)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	alt, yaw := trace.errors(*settle)
	fmt.Printf("reference found after %.2fs\n", trace.flyingAt)
	fmt.Printf("altitude error: %s\n", alt)
	fmt.Printf("yaw error:      %s\n", yaw)
	if trace.landedAt > 0 {
		fmt.Printf("landed %.2fs after the switch went down\n", trace.landedAt-trace.landAt)
	} else {
		fmt.Println("did not land")
	}

	if *plotPath != "" {
		if err := trace.plot(*plotPath); err != nil {
			fmt.Fprintln(os.Stderr, "plot failed:", err)
			os.Exit(1)
		}
		fmt.Println("wrote", *plotPath)
	}
}

func fly(cfg config.Config, log *zap.Logger) (*trace, error) {
	sim := hardware.NewSimRig(hardware.DefaultSimConfig())
	sampler, err := altitude.NewSampler(sim, cfg.Sampling.BufferSize, cfg.Sampling.RateHz, log)
	if err != nil {
		return nil, err
	}
	loop, err := flightcontrol.New(cfg, sim.Rig(), sampler, log)
	if err != nil {
		return nil, err
	}

	period := cfg.Control.Period
	secs := period.Seconds()
	// Conversions at the configured sample rate, counted in control ticks.
	sampleEvery := reffinder.Ticks(time.Second/time.Duration(cfg.Sampling.RateHz), period)
	if sampleEvery < 1 {
		sampleEvery = 1
	}

	tr := &trace{}
	tick := 0
	step := func() {
		if tick%sampleEvery == 0 {
			sampler.Trigger()
		}
		loop.Step()
		sim.Advance(period)
		tick++

		s := loop.Status()
		tr.record(float64(tick)*secs, s.Setpoint, sim.Altitude(), sim.ReadYawDegrees(), s.Mode)
	}
	runFor := func(seconds float64, until func() bool) bool {
		for n := int(seconds / secs); n > 0; n-- {
			step()
			if until != nil && until() {
				return true
			}
		}
		return false
	}
	mode := func(m flightmode.Mode) func() bool {
		return func() bool { return loop.Machine().Mode() == m }
	}

	runFor(1, nil)
	sim.SetSwitch(hardware.SwitchUp)
	if !runFor(60, mode(flightmode.Flying)) {
		return nil, fmt.Errorf("reference not found after 60s")
	}
	tr.flyingAt = float64(tick) * secs

	for i := 0; i < *altSteps; i++ {
		sim.PressButton(hardware.ButtonUp)
	}
	for i := 0; i < *yawSteps; i++ {
		sim.PressButton(hardware.ButtonRight)
	}
	runFor(*hold, nil)

	tr.landAt = float64(tick) * secs
	sim.SetSwitch(hardware.SwitchDown)
	if runFor(60, mode(flightmode.Landed)) {
		tr.landedAt = float64(tick) * secs
	}
	return tr, nil
}
