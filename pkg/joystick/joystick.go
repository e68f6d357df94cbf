// Package joystick reads Linux joystick events and can stand in for the
// rig's buttons and flight switch.
package joystick

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"time"
)

// The rig only listens to a handful of controls on a DualShock-style pad:
//
//	Cross     button 0   switch down (land)
//	Triangle  button 2   switch up (take off)
//	D-pad     axis 6     left = -32767, right = +32767
//	          axis 7     up = -32767, down = +32767
const (
	ButtonCross    = 0
	ButtonTriangle = 2

	AxisDPadX = 6
	AxisDPadY = 7
)

type EventType uint8

const (
	EventTypeButton EventType = 0x01
	EventTypeAxis   EventType = 0x02

	// The driver replays the current state of every control when the device
	// is opened, with this bit set on the type.
	flagInitial = 0x80
)

func (e EventType) String() string {
	switch e {
	case EventTypeAxis:
		return "axis"
	case EventTypeButton:
		return "button"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(e))
	}
}

// eventSize is the size of struct js_event: u32 time, s16 value, u8 type,
// u8 number.
const eventSize = 8

type Event struct {
	// Elapsed is the driver's timestamp relative to the first event read.
	Elapsed time.Duration
	Value   int16
	Type    EventType
	Number  uint8
	// Initial marks the state replay sent on open; it is not a user action.
	Initial bool
}

func (e *Event) String() string {
	s := fmt.Sprintf("%v(%v)=%v @%v", e.Type, e.Number, e.Value, e.Elapsed)
	if e.Initial {
		s += " (initial)"
	}
	return s
}

type Joystick struct {
	device io.ReadCloser
	buf    [eventSize]byte

	started bool
	epoch   uint32
}

func NewJoystick(device string) (*Joystick, error) {
	f, err := os.Open(device)
	if err != nil {
		return nil, fmt.Errorf("opening joystick %s: %w", device, err)
	}
	return newJoystick(f), nil
}

func newJoystick(r io.ReadCloser) *Joystick {
	return &Joystick{device: r}
}

// ReadEvent blocks for the next event. A short read at the end of the stream
// is reported as io.ErrUnexpectedEOF.
func (j *Joystick) ReadEvent() (*Event, error) {
	if _, err := io.ReadFull(j.device, j.buf[:]); err != nil {
		return nil, err
	}
	stamp := binary.LittleEndian.Uint32(j.buf[0:4])
	if !j.started {
		j.started = true
		j.epoch = stamp
	}
	return &Event{
		Elapsed: time.Duration(stamp-j.epoch) * time.Millisecond,
		Value:   int16(binary.LittleEndian.Uint16(j.buf[4:6])),
		Type:    EventType(j.buf[6] &^ flagInitial),
		Number:  j.buf[7],
		Initial: j.buf[6]&flagInitial != 0,
	}, nil
}

func (j *Joystick) Close() error {
	return j.device.Close()
}
