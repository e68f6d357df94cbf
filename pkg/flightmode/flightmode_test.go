package flightmode

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tick = 5 * time.Millisecond

func testConfig() Config {
	return Config{
		AltitudeStep: 10,
		AltitudeMax:  100,
		YawStep:      15,
		Landing: LandingConfig{
			AltitudeTolerance: 2,
			YawTolerance:      5,
			Dwell:             1,
			StepInterval:      4 * tick,
		},
	}
}

func newMachine(t *testing.T) *Machine {
	m, err := New(testConfig(), tick)
	require.NoError(t, err)
	return m
}

func flying(t *testing.T) *Machine {
	m := newMachine(t)
	require.True(t, m.Handle(TakeOff))
	require.Equal(t, Flying, m.Evaluate(Observation{ReferenceFound: true}))
	return m
}

func TestPowerUpIsLanded(t *testing.T) {
	m := newMachine(t)
	assert.Equal(t, Landed, m.Mode())
	assert.Equal(t, Setpoint{}, m.Setpoint())
}

func TestSetpointCommandsIgnoredUntilFlying(t *testing.T) {
	m := newMachine(t)
	require.True(t, m.Handle(TakeOff))
	require.Equal(t, Initialising, m.Mode())

	for _, cmd := range []Command{AltitudeUp, AltitudeDown, YawClockwise, YawAnticlockwise, Land, TakeOff} {
		assert.False(t, m.Handle(cmd), "%v", cmd)
		assert.Equal(t, Setpoint{}, m.Setpoint(), "%v", cmd)
		assert.Equal(t, Initialising, m.Mode(), "%v", cmd)
	}

	// Landed ignores them too.
	m.Fault()
	assert.False(t, m.Handle(AltitudeUp))
	assert.Equal(t, Setpoint{}, m.Setpoint())
}

func TestInitialisingWaitsForReference(t *testing.T) {
	m := newMachine(t)
	var transitions [][2]Mode
	m.OnTransition(func(from, to Mode) {
		transitions = append(transitions, [2]Mode{from, to})
	})
	m.Handle(TakeOff)

	for i := 0; i < 1000; i++ {
		require.Equal(t, Initialising, m.Evaluate(Observation{}))
	}
	assert.Equal(t, Flying, m.Evaluate(Observation{ReferenceFound: true}))
	// Fires exactly once.
	assert.Equal(t, Flying, m.Evaluate(Observation{ReferenceFound: true}))
	assert.Equal(t, [][2]Mode{{Landed, Initialising}, {Initialising, Flying}}, transitions)
}

func TestAltitudeSetpointLimits(t *testing.T) {
	m := flying(t)
	assert.False(t, m.Handle(AltitudeDown))
	for i := 0; i < 10; i++ {
		require.True(t, m.Handle(AltitudeUp))
	}
	assert.Equal(t, 100, m.Setpoint().Altitude)
	assert.False(t, m.Handle(AltitudeUp))
	assert.Equal(t, 100, m.Setpoint().Altitude)
}

func TestYawSetpointClampsAtFullTurn(t *testing.T) {
	m := flying(t)
	for i := 0; i < 24; i++ {
		require.True(t, m.Handle(YawClockwise))
	}
	assert.Equal(t, 360, m.Setpoint().Yaw)
	assert.False(t, m.Handle(YawClockwise))
	assert.Equal(t, 360, m.Setpoint().Yaw, "one more step must not swing back to 15")

	require.True(t, m.Handle(YawAnticlockwise))
	assert.Equal(t, 345, m.Setpoint().Yaw)

	m = flying(t)
	for i := 0; i < 23; i++ {
		require.True(t, m.Handle(YawAnticlockwise))
	}
	assert.Equal(t, -345, m.Setpoint().Yaw)
	assert.False(t, m.Handle(YawAnticlockwise))
	assert.Equal(t, -345, m.Setpoint().Yaw)
}

func TestYawInRange(t *testing.T) {
	for in, expected := range map[int]bool{
		0: true, 360: true, 361: false, -345: true, -359: true, -360: false, -375: false,
	} {
		assert.Equal(t, expected, YawInRange(in), "YawInRange(%d)", in)
	}
}

func TestLandingStepsAltitudeDown(t *testing.T) {
	m := flying(t)
	m.Handle(AltitudeUp)
	m.Handle(AltitudeUp)
	m.Handle(YawClockwise)
	require.True(t, m.Handle(Land))
	assert.Equal(t, Landing, m.Mode())
	assert.Equal(t, Setpoint{Altitude: 20, Yaw: 0}, m.Setpoint())

	// Still high: stays in Landing while the setpoint walks down a step
	// every four ticks.
	obs := Observation{Altitude: 20}
	for i := 0; i < 4; i++ {
		m.Evaluate(obs)
	}
	assert.Equal(t, 10, m.Setpoint().Altitude)
	for i := 0; i < 40; i++ {
		require.Equal(t, Landing, m.Evaluate(obs))
	}
	assert.Equal(t, 0, m.Setpoint().Altitude)

	// Commands are still accepted while landing.
	assert.True(t, m.Handle(YawClockwise))
	assert.Equal(t, 15, m.Setpoint().Yaw)
}

func TestLandedNeedsAltitudeAndYaw(t *testing.T) {
	m := flying(t)
	m.Handle(AltitudeUp)
	require.True(t, m.Handle(Land))
	for i := 0; i < 4; i++ {
		m.Evaluate(Observation{Altitude: 10, Yaw: 40})
	}
	require.Equal(t, 0, m.Setpoint().Altitude)

	// Altitude passes through zero while yaw is still far off.
	for _, alt := range []int{3, 1, 0, -1, 0, 2} {
		require.Equal(t, Landing, m.Evaluate(Observation{Altitude: alt, Yaw: 30}))
	}
	// Yaw in tolerance but altitude bounced.
	require.Equal(t, Landing, m.Evaluate(Observation{Altitude: 6, Yaw: 2}))

	assert.Equal(t, Landed, m.Evaluate(Observation{Altitude: 1, Yaw: -4}))
}

func TestLandedDwell(t *testing.T) {
	cfg := testConfig()
	cfg.Landing.Dwell = 3
	m, err := New(cfg, tick)
	require.NoError(t, err)
	m.Handle(TakeOff)
	m.Evaluate(Observation{ReferenceFound: true})
	m.Handle(Land)

	ok := Observation{Altitude: 0, Yaw: 0}
	assert.Equal(t, Landing, m.Evaluate(ok))
	assert.Equal(t, Landing, m.Evaluate(ok))
	assert.Equal(t, Landing, m.Evaluate(Observation{Altitude: 0, Yaw: 9}))
	assert.Equal(t, Landing, m.Evaluate(ok))
	assert.Equal(t, Landing, m.Evaluate(ok))
	assert.Equal(t, Landed, m.Evaluate(ok))
}

func TestRearmAfterLanding(t *testing.T) {
	m := flying(t)
	m.Handle(Land)
	require.Equal(t, Landed, m.Evaluate(Observation{}))
	assert.False(t, m.Handle(Land))
	assert.True(t, m.Handle(TakeOff))
	assert.Equal(t, Initialising, m.Mode())
}

func TestFault(t *testing.T) {
	m := flying(t)
	m.Handle(AltitudeUp)
	var got []Mode
	m.OnTransition(func(from, to Mode) { got = append(got, from, to) })
	m.Fault()
	assert.Equal(t, Landed, m.Mode())
	assert.Equal(t, Setpoint{}, m.Setpoint())
	assert.Equal(t, []Mode{Flying, Landed}, got)

	// Already landed: no transition.
	m.Fault()
	assert.Len(t, got, 2)
}

func TestConfigValidation(t *testing.T) {
	cfg := testConfig()
	cfg.Landing.StepInterval = time.Millisecond
	_, err := New(cfg, tick)
	assert.Error(t, err)

	cfg = testConfig()
	cfg.YawStep = 0
	_, err = New(cfg, tick)
	assert.Error(t, err)
}

func TestModeStrings(t *testing.T) {
	assert.Equal(t, "flying", Flying.String())
	assert.Equal(t, "unknown(9)", Mode(9).String())
	assert.Equal(t, "land", Land.String())
}
