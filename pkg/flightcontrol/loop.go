// Package flightcontrol is the background loop: it polls the controls, runs
// the start-up reference search, steps the mode machine and drives both rotors
// from their PI controllers.
package flightcontrol

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/tigerbot-team/tigerbot/heli-controller/pkg/altitude"
	"github.com/tigerbot-team/tigerbot/heli-controller/pkg/config"
	"github.com/tigerbot-team/tigerbot/heli-controller/pkg/flightmode"
	"github.com/tigerbot-team/tigerbot/heli-controller/pkg/hardware"
	"github.com/tigerbot-team/tigerbot/heli-controller/pkg/pi"
	"github.com/tigerbot-team/tigerbot/heli-controller/pkg/reffinder"
	"github.com/tigerbot-team/tigerbot/heli-controller/pkg/screen"
	"github.com/tigerbot-team/tigerbot/heli-controller/pkg/sound"
)

// Samples is the loop's view of the sampling context.
type Samples interface {
	Mean() int
	SampleCount() uint64
}

type Publisher interface {
	Publish(s screen.Status)
}

type Sounds interface {
	Play(event string)
}

type Loop struct {
	log *zap.Logger
	cfg config.Config
	rig hardware.Rig

	samples   Samples
	estimator *altitude.Estimator
	finder    *reffinder.Finder
	machine   *flightmode.Machine
	altPI     *pi.Controller
	yawPI     *pi.Controller

	// Telemetry and Sounds are optional.
	Telemetry Publisher
	Sounds    Sounds

	ticks        int64
	displayTicks int64
	page         screen.Page
	lastSwitch   hardware.SwitchState
	switchSeen   bool

	reading  altitude.Reading
	yaw      int
	mainDuty float64
	tailDuty float64

	actuatorErrs int
}

func New(cfg config.Config, rig hardware.Rig, samples Samples, log *zap.Logger) (*Loop, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	period := cfg.Control.Period

	finder, err := reffinder.New(cfg.Reference, period, cfg.Control.PWMFrequencyHz, rig.Actuators)
	if err != nil {
		return nil, err
	}
	machine, err := flightmode.New(cfg.Setpoints, period)
	if err != nil {
		return nil, err
	}
	altPI, err := pi.New(cfg.AltitudePI())
	if err != nil {
		return nil, err
	}
	yawPI, err := pi.New(cfg.YawPI())
	if err != nil {
		return nil, err
	}

	displayTicks := int64(reffinder.Ticks(cfg.Display.Interval, period))
	if displayTicks < 1 {
		displayTicks = 1
	}

	l := &Loop{
		log:          log,
		cfg:          cfg,
		rig:          rig,
		samples:      samples,
		finder:       finder,
		machine:      machine,
		altPI:        altPI,
		yawPI:        yawPI,
		displayTicks: displayTicks,
	}
	l.estimator = altitude.NewEstimator(cfg.Altitude.RangeScale, cfg.Sampling.GroundSettle, l.now())
	machine.OnTransition(l.onTransition)
	return l, nil
}

func (l *Loop) Machine() *flightmode.Machine {
	return l.machine
}

// now is loop time: control ticks since start. Everything the loop times is
// measured in ticks so a stalled loop can't skip part of a sequence.
func (l *Loop) now() time.Time {
	return time.Unix(0, 0).Add(time.Duration(l.ticks) * l.cfg.Control.Period)
}

// Run calls Step once per control period until ctx is done, then stops both
// rotors.
func (l *Loop) Run(ctx context.Context) {
	ticker := time.NewTicker(l.cfg.Control.Period)
	defer ticker.Stop()
	l.log.Info("[flight] loop started", zap.Duration("period", l.cfg.Control.Period))
	for {
		select {
		case <-ctx.Done():
			l.log.Info("[flight] received shutdown signal")
			l.machine.Fault()
			l.stopRotors()
			return
		case <-ticker.C:
			l.Step()
		}
	}
}

// Step runs one control tick.
func (l *Loop) Step() {
	l.ticks++

	l.pollInput()

	if l.machine.Mode() == flightmode.Initialising {
		if err := l.finder.Tick(); err != nil {
			if errors.Is(err, reffinder.ErrReferenceNotFound) {
				l.log.Error("[flight] giving up on yaw reference", zap.Error(err))
				l.play(sound.EventFault)
				l.machine.Fault()
			} else {
				l.actuatorFailed(err)
			}
		}
	}

	l.reading = l.estimator.Update(l.samples.Mean(), l.now())
	l.yaw = l.rig.Yaw.ReadYawDegrees()

	mode := l.machine.Evaluate(flightmode.Observation{
		ReferenceFound: l.rig.Yaw.ReferenceFound(),
		Altitude:       l.reading.Percent,
		Yaw:            l.yaw,
	})

	switch mode {
	case flightmode.Flying, flightmode.Landing:
		sp := l.machine.Setpoint()
		if mode == flightmode.Flying && sp.Altitude < l.cfg.Setpoints.AltitudeStep {
			// Armed but not asked to climb yet: both rotors idle and the
			// integrators stay where they are.
			l.mainDuty = 0
			l.tailDuty = 0
		} else {
			l.mainDuty = l.altPI.Update(float64(sp.Altitude), float64(l.reading.Percent))
			l.tailDuty = l.yawPI.Update(float64(sp.Yaw), float64(l.yaw))
		}
		l.setDuty(hardware.MainRotor, l.mainDuty)
		l.setDuty(hardware.TailRotor, l.tailDuty)
	case flightmode.Initialising:
		l.mainDuty = 0
		l.tailDuty = 0
		if l.finder.Active() {
			l.tailDuty = l.cfg.Reference.DutyPercent
		}
	default:
		l.mainDuty = 0
		l.tailDuty = 0
	}

	if l.ticks%l.displayTicks == 0 {
		l.refreshDisplay()
	}
}

func (l *Loop) pollInput() {
	in := l.rig.Input

	sw := in.PollSwitch()
	if !l.switchSeen {
		// A switch that is already up at power-on is not a take-off; it has
		// to be moved.
		l.switchSeen = true
		l.lastSwitch = sw
	} else if sw != l.lastSwitch {
		l.lastSwitch = sw
		if sw == hardware.SwitchUp {
			l.command(flightmode.TakeOff)
		} else {
			l.command(flightmode.Land)
		}
	}

	if in.PollButton(hardware.ButtonUp) == hardware.Pressed {
		l.command(flightmode.AltitudeUp)
	}
	if in.PollButton(hardware.ButtonDown) == hardware.Pressed {
		l.command(flightmode.AltitudeDown)
	}
	if in.PollButton(hardware.ButtonRight) == hardware.Pressed {
		l.command(flightmode.YawClockwise)
	}
	if in.PollButton(hardware.ButtonLeft) == hardware.Pressed {
		if l.machine.Mode() == flightmode.Landed {
			l.page = l.page.Next()
		} else {
			l.command(flightmode.YawAnticlockwise)
		}
	}
}

func (l *Loop) command(cmd flightmode.Command) {
	if !l.machine.Handle(cmd) {
		l.log.Debug("[flight] command ignored", zap.Stringer("command", cmd), zap.Stringer("mode", l.machine.Mode()))
	}
}

func (l *Loop) onTransition(from, to flightmode.Mode) {
	l.log.Info("[flight] mode change", zap.Stringer("from", from), zap.Stringer("to", to))

	switch to {
	case flightmode.Initialising:
		l.deactivate(hardware.MainRotor)
		if err := l.finder.Reset(); err != nil {
			l.actuatorFailed(err)
		}
		l.estimator.Relatch()
	case flightmode.Flying:
		if err := l.finder.Reset(); err != nil {
			l.actuatorFailed(err)
		}
		if l.cfg.Control.IntegratorPolicy == config.ResetOnEntry {
			l.altPI.Reset()
			l.yawPI.Reset()
		}
		l.activate(hardware.MainRotor)
		l.activate(hardware.TailRotor)
	case flightmode.Landed:
		if err := l.finder.Reset(); err != nil {
			l.actuatorFailed(err)
		}
		l.stopRotors()
	}

	l.play(to.String())
}

func (l *Loop) play(event string) {
	if l.Sounds != nil {
		l.Sounds.Play(event)
	}
}

func (l *Loop) stopRotors() {
	l.deactivate(hardware.MainRotor)
	l.deactivate(hardware.TailRotor)
	l.mainDuty = 0
	l.tailDuty = 0
}

func (l *Loop) setDuty(ch hardware.Channel, percent float64) {
	if err := l.rig.Actuators.SetDutyCycle(ch, l.cfg.Control.PWMFrequencyHz, percent); err != nil {
		l.actuatorFailed(err)
	}
}

func (l *Loop) activate(ch hardware.Channel) {
	if err := l.rig.Actuators.Activate(ch); err != nil {
		l.actuatorFailed(err)
	}
}

func (l *Loop) deactivate(ch hardware.Channel) {
	if err := l.rig.Actuators.Deactivate(ch); err != nil {
		l.actuatorFailed(err)
	}
}

// actuatorFailed logs the first failure and every thousandth after it; the
// loop carries on regardless.
func (l *Loop) actuatorFailed(err error) {
	l.actuatorErrs++
	if l.actuatorErrs == 1 || l.actuatorErrs%1000 == 0 {
		l.log.Warn("[flight] actuator failure", zap.Error(err), zap.Int("failures", l.actuatorErrs))
	}
}

// Status is a snapshot of the loop. Only call it from the loop's goroutine.
func (l *Loop) Status() screen.Status {
	s := screen.Status{
		Mode:     l.machine.Mode(),
		Setpoint: l.machine.Setpoint(),
		Altitude: l.reading.Percent,
		Yaw:      l.yaw,
		MainDuty: l.mainDuty,
		TailDuty: l.tailDuty,
		MeanADC:  l.reading.Mean,
		Samples:  l.samples.SampleCount(),
	}
	s.GroundReference, s.GroundLatched = l.estimator.GroundReference()
	if l.rig.Supply != nil {
		r := l.rig.Supply.CurrentSupply()
		if r.Error == nil && !r.CaptureTime.IsZero() {
			s.SupplyOK = true
			s.SupplyVolts = r.BusVoltage
		}
	}
	return s
}

func (l *Loop) Page() screen.Page {
	return l.page
}

func (l *Loop) refreshDisplay() {
	s := l.Status()
	for i, line := range screen.Format(l.page, s) {
		l.rig.Display.DrawLine(i, line)
	}
	if l.Telemetry != nil {
		l.Telemetry.Publish(s)
	}
}
