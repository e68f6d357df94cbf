// Package pi is a discrete proportional-integral controller with a clamped
// output. The integrator is only updated on ticks where the unclamped output
// lies inside the limits, so it cannot wind up while the actuator saturates.
package pi

import (
	"fmt"
	"time"
)

type Config struct {
	Kp float64 `yaml:"kp"`
	Ki float64 `yaml:"ki"`

	Period time.Duration `yaml:"-"`

	OutputMin float64 `yaml:"-"`
	OutputMax float64 `yaml:"-"`
}

func (c Config) Validate() error {
	if c.Period <= 0 {
		return fmt.Errorf("pi: period must be positive, got %v", c.Period)
	}
	if c.OutputMin >= c.OutputMax {
		return fmt.Errorf("pi: output min %v must be below max %v", c.OutputMin, c.OutputMax)
	}
	return nil
}

type Controller struct {
	cfg        Config
	periodSecs float64

	integrator float64
	last       Output
}

// Output is what one tick produced, kept for display and telemetry.
type Output struct {
	Error     float64
	P         float64
	Command   float64
	Saturated bool
}

func New(cfg Config) (*Controller, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Controller{
		cfg:        cfg,
		periodSecs: cfg.Period.Seconds(),
	}, nil
}

// Update runs one control tick and returns the clamped command.
func (c *Controller) Update(setpoint, measurement float64) float64 {
	err := setpoint - measurement
	p := c.cfg.Kp * err
	dI := c.cfg.Ki * err * c.periodSecs
	candidate := p + (c.integrator + dI)

	out := Output{Error: err, P: p}
	switch {
	case candidate > c.cfg.OutputMax:
		out.Command = c.cfg.OutputMax
		out.Saturated = true
	case candidate < c.cfg.OutputMin:
		out.Command = c.cfg.OutputMin
		out.Saturated = true
	default:
		out.Command = candidate
		c.integrator += dI
	}
	c.last = out
	return out.Command
}

func (c *Controller) Integrator() float64 {
	return c.integrator
}

func (c *Controller) Last() Output {
	return c.last
}

func (c *Controller) Reset() {
	c.integrator = 0
	c.last = Output{}
}
