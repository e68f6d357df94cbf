package hardware

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimRigClimbsAboveHover(t *testing.T) {
	cfg := DefaultSimConfig()
	cfg.NoiseADC = 0
	s := NewSimRig(cfg)

	require.NoError(t, s.SetDutyCycle(MainRotor, 200, cfg.HoverDuty+10))
	require.NoError(t, s.Activate(MainRotor))
	for i := 0; i < 200; i++ {
		s.Advance(5 * time.Millisecond)
	}
	assert.Greater(t, s.Altitude(), 0.0)

	var got uint16
	s.SetSampleHandler(func(v uint16) { got = v })
	require.NoError(t, s.TriggerConversion())
	assert.Greater(t, int(got), cfg.GroundADC)
}

func TestSimRigStaysOnGroundWhenUnpowered(t *testing.T) {
	s := NewSimRig(DefaultSimConfig())
	for i := 0; i < 100; i++ {
		s.Advance(5 * time.Millisecond)
	}
	assert.Equal(t, 0.0, s.Altitude())
	assert.False(t, s.ReferenceFound())
}

func TestSimRigFindsReferenceWhenTailSpins(t *testing.T) {
	s := NewSimRig(DefaultSimConfig())
	require.NoError(t, s.SetDutyCycle(TailRotor, 200, 30))
	require.NoError(t, s.Activate(TailRotor))
	for i := 0; i < 1000 && !s.ReferenceFound(); i++ {
		s.Advance(5 * time.Millisecond)
	}
	require.True(t, s.ReferenceFound())
	assert.InDelta(t, 0, s.ReadYawDegrees(), 3)
}

func TestSimRigButtonPressesAreConsumed(t *testing.T) {
	s := NewSimRig(DefaultSimConfig())
	s.PressButton(ButtonUp)
	assert.Equal(t, Pressed, s.PollButton(ButtonUp))
	assert.Equal(t, Idle, s.PollButton(ButtonUp))
	assert.Equal(t, Idle, s.PollButton(ButtonDown))
}

func TestSimRigRejectsUnknownChannelsAndButtons(t *testing.T) {
	s := NewSimRig(DefaultSimConfig())
	assert.Error(t, s.SetDutyCycle(Channel(2), 200, 50))
	assert.Error(t, s.Activate(Channel(-1)))
	assert.Error(t, s.Deactivate(NumChannels))

	assert.NotPanics(t, func() { s.PressButton(Button(9)) })
	assert.Equal(t, Idle, s.PollButton(Button(9)))
	assert.Equal(t, Idle, s.PollButton(Button(-1)))
}
