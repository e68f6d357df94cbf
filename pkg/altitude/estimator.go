package altitude

import (
	"time"
)

// Percent converts a mean reading into altitude percent. Integer division
// truncates toward zero; the result is not clamped.
func Percent(mean, groundReference, rangeScale int) int {
	return (mean - groundReference) / rangeScale
}

type Reading struct {
	Mean    int
	Percent int
	// Latched is false until the ground reference has been taken; Percent is
	// 0 until then.
	Latched bool
}

// Estimator latches the ground reference once the window has had time to
// settle after start, then reports altitude against it.
type Estimator struct {
	rangeScale int
	settle     time.Duration

	start           time.Time
	latched         bool
	relatch         bool
	groundReference int
}

func NewEstimator(rangeScale int, settle time.Duration, now time.Time) *Estimator {
	return &Estimator{
		rangeScale: rangeScale,
		settle:     settle,
		start:      now,
	}
}

func (e *Estimator) Update(mean int, now time.Time) Reading {
	if !e.latched && (e.relatch || now.Sub(e.start) >= e.settle) {
		e.groundReference = mean
		e.latched = true
		e.relatch = false
	}
	r := Reading{Mean: mean, Latched: e.latched}
	if e.latched {
		r.Percent = Percent(mean, e.groundReference, e.rangeScale)
	}
	return r
}

// Relatch discards the ground reference; the next Update takes a new one
// without waiting. The rig is sitting on the ground when this is called, so
// the window already holds ground readings.
func (e *Estimator) Relatch() {
	e.latched = false
	e.relatch = true
}

func (e *Estimator) GroundReference() (int, bool) {
	return e.groundReference, e.latched
}
