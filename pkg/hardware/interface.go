package hardware

import (
	"fmt"
	"time"
)

// Channel identifies one PWM output of the rig.
type Channel int

const (
	MainRotor Channel = iota
	TailRotor

	NumChannels = 2
)

func (c Channel) String() string {
	switch c {
	case MainRotor:
		return "main"
	case TailRotor:
		return "tail"
	default:
		return fmt.Sprintf("unknown(%d)", int(c))
	}
}

type Button int

const (
	ButtonUp Button = iota
	ButtonDown
	ButtonLeft
	ButtonRight

	NumButtons = 4
)

func (b Button) String() string {
	switch b {
	case ButtonUp:
		return "up"
	case ButtonDown:
		return "down"
	case ButtonLeft:
		return "left"
	case ButtonRight:
		return "right"
	default:
		return fmt.Sprintf("unknown(%d)", int(b))
	}
}

// ButtonState is the result of a poll. Pressed is reported once per push.
type ButtonState int

const (
	Idle ButtonState = iota
	Pressed
)

type SwitchState int

const (
	SwitchDown SwitchState = iota
	SwitchUp
)

func (s SwitchState) String() string {
	if s == SwitchUp {
		return "up"
	}
	return "down"
}

// AnalogSource starts conversions without blocking and delivers each result
// to the registered handler, which plays the part of the conversion-complete
// interrupt.
type AnalogSource interface {
	TriggerConversion() error
	SetSampleHandler(func(sample uint16))
}

type Actuators interface {
	SetDutyCycle(ch Channel, frequencyHz int, percent float64) error
	Activate(ch Channel) error
	Deactivate(ch Channel) error
}

type Input interface {
	PollButton(b Button) ButtonState
	PollSwitch() SwitchState
}

type YawSensor interface {
	// ReadYawDegrees is relative to the mechanical reference once it has
	// been found.
	ReadYawDegrees() int
	ReferenceFound() bool
}

// Display accepts preformatted lines; there is no feedback.
type Display interface {
	DrawLine(line int, text string)
}

type SupplyMonitor interface {
	CurrentSupply() SupplyReading
}

type SupplyReading struct {
	CaptureTime time.Time
	BusVoltage  float64
	Current     float64
	Error       error
}

// Rig bundles the collaborators the flight loop drives.
type Rig struct {
	Analog    AnalogSource
	Actuators Actuators
	Input     Input
	Yaw       YawSensor
	Display   Display
	// Supply is optional.
	Supply SupplyMonitor
}
