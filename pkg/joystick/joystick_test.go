package joystick

import (
	"bytes"
	"context"
	"encoding/binary"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/tigerbot-team/tigerbot/heli-controller/pkg/hardware"
)

type record struct {
	stamp  uint32
	value  int16
	typ    byte
	number uint8
}

func encode(records ...record) *Joystick {
	var buf bytes.Buffer
	for _, r := range records {
		var b [eventSize]byte
		binary.LittleEndian.PutUint32(b[0:4], r.stamp)
		binary.LittleEndian.PutUint16(b[4:6], uint16(r.value))
		b[6] = r.typ
		b[7] = r.number
		buf.Write(b[:])
	}
	return newJoystick(io.NopCloser(&buf))
}

func TestReadEvent(t *testing.T) {
	j := encode(
		record{stamp: 1000, value: 1, typ: byte(EventTypeButton) | flagInitial, number: ButtonCross},
		record{stamp: 1250, value: -32767, typ: byte(EventTypeAxis), number: AxisDPadY},
	)
	e, err := j.ReadEvent()
	require.NoError(t, err)
	assert.Equal(t, EventTypeButton, e.Type, "init flag should be masked")
	assert.True(t, e.Initial)
	assert.Equal(t, uint8(ButtonCross), e.Number)
	assert.Equal(t, time.Duration(0), e.Elapsed)

	e, err = j.ReadEvent()
	require.NoError(t, err)
	assert.False(t, e.Initial)
	assert.Equal(t, EventTypeAxis, e.Type)
	assert.Equal(t, int16(-32767), e.Value)
	assert.Equal(t, 250*time.Millisecond, e.Elapsed)

	_, err = j.ReadEvent()
	assert.ErrorIs(t, err, io.EOF)
}

func TestReadEventShortRecord(t *testing.T) {
	j := newJoystick(io.NopCloser(bytes.NewReader([]byte{1, 2, 3})))
	_, err := j.ReadEvent()
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestPadIgnoresInitialState(t *testing.T) {
	p := NewPad(zaptest.NewLogger(t))
	p.HandleEvent(&Event{Type: EventTypeAxis, Number: AxisDPadY, Value: -32767, Initial: true})
	p.HandleEvent(&Event{Type: EventTypeButton, Number: ButtonTriangle, Value: 1, Initial: true})
	assert.Equal(t, hardware.Idle, p.PollButton(hardware.ButtonUp))
	assert.Equal(t, hardware.SwitchDown, p.PollSwitch())

	// Still held from before, so no press until it is let go.
	p.HandleEvent(&Event{Type: EventTypeAxis, Number: AxisDPadY, Value: -32767})
	assert.Equal(t, hardware.Idle, p.PollButton(hardware.ButtonUp))
	p.HandleEvent(&Event{Type: EventTypeAxis, Number: AxisDPadY, Value: 0})
	p.HandleEvent(&Event{Type: EventTypeAxis, Number: AxisDPadY, Value: -32767})
	assert.Equal(t, hardware.Pressed, p.PollButton(hardware.ButtonUp))
}

func TestPadDPadPressesOnce(t *testing.T) {
	p := NewPad(zaptest.NewLogger(t))
	p.HandleEvent(&Event{Type: EventTypeAxis, Number: AxisDPadY, Value: -32767})
	p.HandleEvent(&Event{Type: EventTypeAxis, Number: AxisDPadY, Value: -32000})

	assert.Equal(t, hardware.Pressed, p.PollButton(hardware.ButtonUp))
	assert.Equal(t, hardware.Idle, p.PollButton(hardware.ButtonUp), "held pad should not repeat")
	assert.Equal(t, hardware.Idle, p.PollButton(hardware.ButtonDown))

	p.HandleEvent(&Event{Type: EventTypeAxis, Number: AxisDPadY, Value: 0})
	p.HandleEvent(&Event{Type: EventTypeAxis, Number: AxisDPadY, Value: -32767})
	assert.Equal(t, hardware.Pressed, p.PollButton(hardware.ButtonUp))

	p.HandleEvent(&Event{Type: EventTypeAxis, Number: AxisDPadX, Value: 32767})
	assert.Equal(t, hardware.Pressed, p.PollButton(hardware.ButtonRight))
	assert.Equal(t, hardware.Idle, p.PollButton(hardware.ButtonLeft))
}

func TestPadSwitch(t *testing.T) {
	p := NewPad(zaptest.NewLogger(t))
	assert.Equal(t, hardware.SwitchDown, p.PollSwitch())

	p.HandleEvent(&Event{Type: EventTypeButton, Number: ButtonTriangle, Value: 1})
	p.HandleEvent(&Event{Type: EventTypeButton, Number: ButtonTriangle, Value: 0})
	assert.Equal(t, hardware.SwitchUp, p.PollSwitch())

	p.HandleEvent(&Event{Type: EventTypeButton, Number: ButtonCross, Value: 1})
	assert.Equal(t, hardware.SwitchDown, p.PollSwitch())
}

func TestPadRunStopsAtEOF(t *testing.T) {
	p := NewPad(zaptest.NewLogger(t))
	j := encode(record{value: 1, typ: byte(EventTypeButton), number: ButtonTriangle})
	err := p.Run(context.Background(), j)
	assert.ErrorIs(t, err, io.EOF)
	assert.Equal(t, hardware.SwitchUp, p.PollSwitch())
}
