// Package reffinder pulses the tail rotor at start-up so the yaw sensor can
// find its mechanical reference. It has no idea when the reference is found;
// the flight mode machine watches the sensor and stops it.
package reffinder

import (
	"errors"
	"fmt"
	"time"

	"github.com/tigerbot-team/tigerbot/heli-controller/pkg/hardware"
)

var ErrReferenceNotFound = errors.New("yaw reference not found")

type Config struct {
	PulseOn     time.Duration `yaml:"pulseOn"`
	Period      time.Duration `yaml:"period"`
	DutyPercent float64       `yaml:"dutyPercent"`
	// MaxPulses of 0 retries forever.
	MaxPulses int `yaml:"maxPulses"`
}

// Ticks converts a duration into a whole number of control ticks.
func Ticks(d, tick time.Duration) int {
	return int((d + tick/2) / tick)
}

type Finder struct {
	tail        hardware.Actuators
	frequencyHz int
	duty        float64
	onTicks     int
	periodTicks int
	maxPulses   int

	count  int
	pulses int
	active bool
}

func New(cfg Config, controlPeriod time.Duration, frequencyHz int, tail hardware.Actuators) (*Finder, error) {
	if controlPeriod <= 0 {
		return nil, fmt.Errorf("reffinder: control period must be positive")
	}
	f := &Finder{
		tail:        tail,
		frequencyHz: frequencyHz,
		duty:        cfg.DutyPercent,
		onTicks:     Ticks(cfg.PulseOn, controlPeriod),
		periodTicks: Ticks(cfg.Period, controlPeriod),
		maxPulses:   cfg.MaxPulses,
	}
	if f.onTicks < 1 || f.periodTicks <= f.onTicks {
		return nil, fmt.Errorf("reffinder: pulse of %v in a %v period is not representable at %v ticks",
			cfg.PulseOn, cfg.Period, controlPeriod)
	}
	if cfg.MaxPulses < 0 {
		return nil, fmt.Errorf("reffinder: max pulses must not be negative")
	}
	return f, nil
}

// Tick advances the pulse sequence by one control tick: tail on at 0, off at
// the pulse length, counter back to 0 at the period.
func (f *Finder) Tick() error {
	switch f.count {
	case 0:
		if err := f.tail.SetDutyCycle(hardware.TailRotor, f.frequencyHz, f.duty); err != nil {
			return fmt.Errorf("setting tail duty: %w", err)
		}
		if err := f.tail.Activate(hardware.TailRotor); err != nil {
			return fmt.Errorf("activating tail: %w", err)
		}
		f.active = true
		f.count++
	case f.onTicks:
		if err := f.tail.Deactivate(hardware.TailRotor); err != nil {
			return fmt.Errorf("releasing tail: %w", err)
		}
		f.active = false
		f.count++
	case f.periodTicks:
		f.count = 0
		f.pulses++
		if f.maxPulses > 0 && f.pulses >= f.maxPulses {
			return fmt.Errorf("%w after %d pulses", ErrReferenceNotFound, f.pulses)
		}
	default:
		f.count++
	}
	return nil
}

// Reset stops the sequence and releases the tail.
func (f *Finder) Reset() error {
	f.count = 0
	f.pulses = 0
	f.active = false
	return f.tail.Deactivate(hardware.TailRotor)
}

func (f *Finder) Count() int {
	return f.count
}

func (f *Finder) Pulses() int {
	return f.pulses
}

// Active reports whether the finder currently has the tail switched on.
func (f *Finder) Active() bool {
	return f.active
}
