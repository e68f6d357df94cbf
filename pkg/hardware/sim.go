package hardware

import (
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"
)

// SimConfig describes the simulated plant. Altitude is in percent of the
// rig's travel, yaw in degrees.
type SimConfig struct {
	GroundADC     int
	ADCPerPercent float64
	NoiseADC      int

	HoverDuty    float64
	ThrustGain   float64
	AltitudeDrag float64

	TailGain   float64
	MainTorque float64
	YawDrag    float64

	// ReferenceAngle is where the reference slot sits, measured from the
	// power-on heading.
	ReferenceAngle float64

	Seed int64
}

func DefaultSimConfig() SimConfig {
	return SimConfig{
		GroundADC:      1500,
		ADCPerPercent:  8,
		NoiseADC:       6,
		HoverDuty:      30,
		ThrustGain:     4,
		AltitudeDrag:   2,
		TailGain:       10,
		MainTorque:     12,
		YawDrag:        3,
		ReferenceAngle: 37,
		Seed:           1,
	}
}

// SimRig is a crude rotorcraft-on-a-stand model implementing every
// collaborator interface. Time only moves when Advance is called.
type SimRig struct {
	lock sync.Mutex
	cfg  SimConfig
	rng  *rand.Rand

	active [NumChannels]bool
	duty   [NumChannels]float64

	altitude, climbRate float64
	yaw, yawRate        float64
	refFound            bool

	handler func(uint16)

	pendingPresses [NumButtons]int
	switchState    SwitchState
	lines          [4]string
}

func NewSimRig(cfg SimConfig) *SimRig {
	return &SimRig{
		cfg: cfg,
		rng: rand.New(rand.NewSource(cfg.Seed)),
	}
}

func (s *SimRig) Rig() Rig {
	return Rig{
		Analog:    s,
		Actuators: s,
		Input:     s,
		Yaw:       s,
		Display:   s,
	}
}

// Advance integrates the plant forward by dt.
func (s *SimRig) Advance(dt time.Duration) {
	s.lock.Lock()
	defer s.lock.Unlock()

	secs := dt.Seconds()
	main := s.effectiveDuty(MainRotor)
	tail := s.effectiveDuty(TailRotor)

	accel := s.cfg.ThrustGain*(main-s.cfg.HoverDuty) - s.cfg.AltitudeDrag*s.climbRate
	s.climbRate += accel * secs
	s.altitude += s.climbRate * secs
	if s.altitude < 0 {
		s.altitude = 0
		if s.climbRate < 0 {
			s.climbRate = 0
		}
	}

	yawAccel := s.cfg.TailGain*tail - s.cfg.MainTorque*main - s.cfg.YawDrag*s.yawRate
	s.yawRate += yawAccel * secs
	lastYaw := s.yaw
	s.yaw += s.yawRate * secs

	ref := s.cfg.ReferenceAngle
	if !s.refFound && (lastYaw < ref && s.yaw >= ref || lastYaw > ref && s.yaw <= ref) {
		s.refFound = true
	}
}

func (s *SimRig) effectiveDuty(ch Channel) float64 {
	if !s.active[ch] {
		return 0
	}
	return s.duty[ch]
}

func (s *SimRig) Altitude() float64 {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.altitude
}

func (s *SimRig) Duty(ch Channel) (percent float64, active bool) {
	if ch < 0 || ch >= NumChannels {
		return 0, false
	}
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.duty[ch], s.active[ch]
}

// PressButton queues a press for the next poll. Unknown buttons are ignored.
func (s *SimRig) PressButton(b Button) {
	if b < 0 || b >= NumButtons {
		return
	}
	s.lock.Lock()
	defer s.lock.Unlock()
	s.pendingPresses[b]++
}

func (s *SimRig) SetSwitch(state SwitchState) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.switchState = state
}

func (s *SimRig) Line(n int) string {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.lines[n]
}

func (s *SimRig) TriggerConversion() error {
	s.lock.Lock()
	v := float64(s.cfg.GroundADC) + s.altitude*s.cfg.ADCPerPercent
	if s.cfg.NoiseADC > 0 {
		v += float64(s.rng.Intn(2*s.cfg.NoiseADC+1) - s.cfg.NoiseADC)
	}
	h := s.handler
	s.lock.Unlock()

	v = math.Max(0, math.Min(v, math.MaxUint16))
	if h != nil {
		h(uint16(v))
	}
	return nil
}

func (s *SimRig) SetSampleHandler(h func(uint16)) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.handler = h
}

func (s *SimRig) SetDutyCycle(ch Channel, frequencyHz int, percent float64) error {
	if ch < 0 || ch >= NumChannels {
		return fmt.Errorf("no such channel %v", ch)
	}
	s.lock.Lock()
	defer s.lock.Unlock()
	s.duty[ch] = percent
	return nil
}

func (s *SimRig) Activate(ch Channel) error {
	if ch < 0 || ch >= NumChannels {
		return fmt.Errorf("no such channel %v", ch)
	}
	s.lock.Lock()
	defer s.lock.Unlock()
	s.active[ch] = true
	return nil
}

func (s *SimRig) Deactivate(ch Channel) error {
	if ch < 0 || ch >= NumChannels {
		return fmt.Errorf("no such channel %v", ch)
	}
	s.lock.Lock()
	defer s.lock.Unlock()
	s.active[ch] = false
	return nil
}

func (s *SimRig) PollButton(b Button) ButtonState {
	if b < 0 || b >= NumButtons {
		return Idle
	}
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.pendingPresses[b] > 0 {
		s.pendingPresses[b]--
		return Pressed
	}
	return Idle
}

func (s *SimRig) PollSwitch() SwitchState {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.switchState
}

func (s *SimRig) ReadYawDegrees() int {
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.refFound {
		return int(math.Round(s.yaw - s.cfg.ReferenceAngle))
	}
	return int(math.Round(s.yaw))
}

func (s *SimRig) ReferenceFound() bool {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.refFound
}

func (s *SimRig) DrawLine(line int, text string) {
	s.lock.Lock()
	defer s.lock.Unlock()
	if line >= 0 && line < len(s.lines) {
		s.lines[line] = text
	}
}
