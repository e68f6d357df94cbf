package pi

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func altitudeConfig() Config {
	return Config{
		Kp:        1,
		Ki:        0.1,
		Period:    5 * time.Millisecond,
		OutputMin: 5,
		OutputMax: 95,
	}
}

func TestValidate(t *testing.T) {
	cfg := altitudeConfig()
	cfg.Period = 0
	_, err := New(cfg)
	assert.Error(t, err)

	cfg = altitudeConfig()
	cfg.OutputMin = 95
	_, err = New(cfg)
	assert.Error(t, err)
}

func TestAltitudeTick(t *testing.T) {
	c, err := New(altitudeConfig())
	require.NoError(t, err)

	// error=10, P=10, dI=0.1*10*0.005=0.005.
	cmd := c.Update(50, 40)
	assert.InDelta(t, 10.005, cmd, 1e-12)
	assert.InDelta(t, 0.005, c.Integrator(), 1e-12)

	iPrev := c.Integrator()
	cmd = c.Update(50, 40)
	assert.InDelta(t, 10+iPrev+0.005, cmd, 1e-12)
}

func TestZeroErrorDoesNotDrift(t *testing.T) {
	c, err := New(altitudeConfig())
	require.NoError(t, err)
	// 2000 ticks of 0.005 each.
	for i := 0; i < 2000; i++ {
		c.Update(60, 50)
	}
	held := c.Integrator()
	require.Greater(t, held, 5.0)

	for i := 0; i < 1000; i++ {
		cmd := c.Update(50, 50)
		require.Equal(t, held, cmd)
		require.Equal(t, held, c.Integrator())
	}
}

func TestIntegratorFrozenWhileSaturated(t *testing.T) {
	for _, tc := range []struct {
		name        string
		measurement float64
		expected    float64
	}{
		{"high", -1000, 95},
		{"low", 1000, 5},
	} {
		t.Run(tc.name, func(t *testing.T) {
			c, err := New(altitudeConfig())
			require.NoError(t, err)
			for i := 0; i < 50; i++ {
				c.Update(50, 40)
			}
			before := c.Integrator()

			for k := 0; k < 500; k++ {
				require.Equal(t, tc.expected, c.Update(50, tc.measurement))
				require.Equal(t, before, c.Integrator())
				require.True(t, c.Last().Saturated)
			}
		})
	}
}

func TestMinimumOutputWithNegativeError(t *testing.T) {
	c, err := New(Config{Kp: 0.1, Ki: 0.05, Period: 5 * time.Millisecond, OutputMin: 5, OutputMax: 95})
	require.NoError(t, err)
	assert.Equal(t, 5.0, c.Update(0, 30))
	assert.Equal(t, 0.0, c.Integrator())
}

func TestReset(t *testing.T) {
	c, err := New(altitudeConfig())
	require.NoError(t, err)
	c.Update(50, 40)
	c.Reset()
	assert.Equal(t, 0.0, c.Integrator())
	assert.Equal(t, Output{}, c.Last())
}
