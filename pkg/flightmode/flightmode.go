// Package flightmode holds the rig's flight mode and setpoints. Only the
// Machine changes the mode; everything else reads it.
package flightmode

import (
	"fmt"
	"sync"
	"time"
)

type Mode int

const (
	// Landed is the power-up mode.
	Landed Mode = iota
	Initialising
	Flying
	Landing
)

func (m Mode) String() string {
	switch m {
	case Landed:
		return "landed"
	case Initialising:
		return "initialising"
	case Flying:
		return "flying"
	case Landing:
		return "landing"
	default:
		return fmt.Sprintf("unknown(%d)", int(m))
	}
}

type Command int

const (
	AltitudeUp Command = iota
	AltitudeDown
	YawClockwise
	YawAnticlockwise
	TakeOff
	Land
)

func (c Command) String() string {
	switch c {
	case AltitudeUp:
		return "altitude-up"
	case AltitudeDown:
		return "altitude-down"
	case YawClockwise:
		return "yaw-cw"
	case YawAnticlockwise:
		return "yaw-acw"
	case TakeOff:
		return "take-off"
	case Land:
		return "land"
	default:
		return fmt.Sprintf("unknown(%d)", int(c))
	}
}

// Setpoint is the altitude target in percent and the yaw target in degrees.
type Setpoint struct {
	Altitude int
	Yaw      int
}

type Config struct {
	AltitudeStep int `yaml:"altitudeStep"`
	AltitudeMax  int `yaml:"altitudeMax"`
	YawStep      int `yaml:"yawStep"`

	Landing LandingConfig `yaml:"landing"`
}

type LandingConfig struct {
	AltitudeTolerance int `yaml:"altitudeTolerance"`
	YawTolerance      int `yaml:"yawTolerance"`
	// Dwell is how many consecutive evaluations both readings must stay in
	// tolerance before the rig counts as landed.
	Dwell int `yaml:"dwell"`
	// StepInterval is how often the altitude setpoint steps down while
	// landing.
	StepInterval time.Duration `yaml:"stepInterval"`
}

// Observation is what the machine needs to know about the rig each tick.
type Observation struct {
	ReferenceFound bool
	Altitude       int
	Yaw            int
}

type TransitionFunc func(from, to Mode)

type Machine struct {
	cfg              Config
	landingStepTicks int

	lock         sync.Mutex
	mode         Mode
	setpoint     Setpoint
	landingTicks int
	dwell        int

	listeners []TransitionFunc
}

func New(cfg Config, controlPeriod time.Duration) (*Machine, error) {
	if cfg.AltitudeStep <= 0 || cfg.YawStep <= 0 || cfg.AltitudeMax <= 0 {
		return nil, fmt.Errorf("flightmode: setpoint steps and altitude max must be positive")
	}
	if cfg.Landing.AltitudeTolerance < 0 || cfg.Landing.YawTolerance < 0 {
		return nil, fmt.Errorf("flightmode: landing tolerances must not be negative")
	}
	if controlPeriod <= 0 || cfg.Landing.StepInterval < controlPeriod {
		return nil, fmt.Errorf("flightmode: landing step interval %v shorter than control period %v",
			cfg.Landing.StepInterval, controlPeriod)
	}
	if cfg.Landing.Dwell < 1 {
		cfg.Landing.Dwell = 1
	}
	return &Machine{
		cfg:              cfg,
		landingStepTicks: int(cfg.Landing.StepInterval / controlPeriod),
		mode:             Landed,
	}, nil
}

// OnTransition registers fn to be called after every mode change. Listeners
// run on the goroutine that caused the change, outside the machine's lock.
func (m *Machine) OnTransition(fn TransitionFunc) {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.listeners = append(m.listeners, fn)
}

func (m *Machine) Mode() Mode {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.mode
}

func (m *Machine) Setpoint() Setpoint {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.setpoint
}

// Handle applies a user command. Commands that make no sense in the current
// mode are dropped without effect; the return value says whether it was
// accepted.
func (m *Machine) Handle(cmd Command) bool {
	m.lock.Lock()
	from := m.mode
	accepted := m.handleLocked(cmd)
	to := m.mode
	m.lock.Unlock()

	if from != to {
		m.notify(from, to)
	}
	return accepted
}

func (m *Machine) handleLocked(cmd Command) bool {
	switch cmd {
	case TakeOff:
		if m.mode != Landed {
			return false
		}
		m.setpoint = Setpoint{}
		m.mode = Initialising
		return true
	case Land:
		if m.mode != Flying {
			return false
		}
		m.enterLandingLocked()
		return true
	}

	if m.mode != Flying && m.mode != Landing {
		return false
	}
	switch cmd {
	case AltitudeUp:
		if m.setpoint.Altitude+m.cfg.AltitudeStep > m.cfg.AltitudeMax {
			return false
		}
		m.setpoint.Altitude += m.cfg.AltitudeStep
	case AltitudeDown:
		if m.setpoint.Altitude-m.cfg.AltitudeStep < 0 {
			return false
		}
		m.setpoint.Altitude -= m.cfg.AltitudeStep
	case YawClockwise:
		if !YawInRange(m.setpoint.Yaw + m.cfg.YawStep) {
			return false
		}
		m.setpoint.Yaw += m.cfg.YawStep
	case YawAnticlockwise:
		if !YawInRange(m.setpoint.Yaw - m.cfg.YawStep) {
			return false
		}
		m.setpoint.Yaw -= m.cfg.YawStep
	default:
		return false
	}
	return true
}

func (m *Machine) enterLandingLocked() {
	m.mode = Landing
	m.setpoint.Yaw = 0
	m.landingTicks = 0
	m.dwell = 0
}

// Evaluate runs once per control tick and fires any transition the
// observation calls for.
func (m *Machine) Evaluate(obs Observation) Mode {
	m.lock.Lock()
	from := m.mode
	switch m.mode {
	case Initialising:
		if obs.ReferenceFound {
			m.mode = Flying
		}
	case Landing:
		m.landingTicks++
		if m.landingTicks >= m.landingStepTicks {
			m.landingTicks = 0
			m.setpoint.Altitude -= m.cfg.AltitudeStep
			if m.setpoint.Altitude < 0 {
				m.setpoint.Altitude = 0
			}
		}
		if m.setpoint.Altitude == 0 &&
			abs(obs.Altitude) <= m.cfg.Landing.AltitudeTolerance &&
			abs(obs.Yaw) <= m.cfg.Landing.YawTolerance {
			m.dwell++
		} else {
			m.dwell = 0
		}
		if m.dwell >= m.cfg.Landing.Dwell {
			m.mode = Landed
		}
	}
	to := m.mode
	m.lock.Unlock()

	if from != to {
		m.notify(from, to)
	}
	return to
}

// Fault drops the machine straight to Landed from any mode.
func (m *Machine) Fault() {
	m.lock.Lock()
	from := m.mode
	m.mode = Landed
	m.setpoint = Setpoint{}
	m.lock.Unlock()

	if from != Landed {
		m.notify(from, Landed)
	}
}

func (m *Machine) notify(from, to Mode) {
	m.lock.Lock()
	listeners := m.listeners
	m.lock.Unlock()
	for _, fn := range listeners {
		fn(from, to)
	}
}

// YawInRange reports whether deg lies in (-360, 360]. The setpoint never
// wraps; the yaw reading it is compared with is a running count.
func YawInRange(deg int) bool {
	return deg > -360 && deg <= 360
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
