package main

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/tigerbot-team/tigerbot/heli-controller/pkg/flightmode"
)

type sample struct {
	t        float64
	setpoint flightmode.Setpoint
	altitude float64
	yaw      int
	mode     flightmode.Mode
}

type trace struct {
	samples []sample

	flyingAt, landAt, landedAt float64
}

func (tr *trace) record(t float64, sp flightmode.Setpoint, alt float64, yaw int, mode flightmode.Mode) {
	tr.samples = append(tr.samples, sample{t: t, setpoint: sp, altitude: alt, yaw: yaw, mode: mode})
}

type summary struct {
	n                 int
	mean, std, maxAbs float64
}

func (s summary) String() string {
	if s.n == 0 {
		return "no samples"
	}
	return fmt.Sprintf("mean %+.2f  std %.2f  max |e| %.2f  (n=%d)", s.mean, s.std, s.maxAbs, s.n)
}

func summarise(errs []float64) summary {
	s := summary{n: len(errs)}
	if s.n == 0 {
		return s
	}
	s.mean, s.std = stat.MeanStdDev(errs, nil)
	for _, e := range errs {
		s.maxAbs = math.Max(s.maxAbs, math.Abs(e))
	}
	return s
}

// errors summarises the tracking error while flying, skipping the first
// settle seconds after take-off.
func (tr *trace) errors(settle float64) (alt, yaw summary) {
	var altErrs, yawErrs []float64
	for _, s := range tr.samples {
		if s.mode != flightmode.Flying || s.t < tr.flyingAt+settle {
			continue
		}
		altErrs = append(altErrs, float64(s.setpoint.Altitude)-s.altitude)
		yawErrs = append(yawErrs, float64(s.setpoint.Yaw-s.yaw))
	}
	return summarise(altErrs), summarise(yawErrs)
}

func (tr *trace) plot(path string) error {
	p := plot.New()
	p.Title.Text = "Simulated flight"
	p.X.Label.Text = "time (s)"
	p.Y.Label.Text = "altitude (%) / yaw (deg)"

	alt := make(plotter.XYs, 0, len(tr.samples))
	altSet := make(plotter.XYs, 0, len(tr.samples))
	yaw := make(plotter.XYs, 0, len(tr.samples))
	for _, s := range tr.samples {
		alt = append(alt, plotter.XY{X: s.t, Y: s.altitude})
		altSet = append(altSet, plotter.XY{X: s.t, Y: float64(s.setpoint.Altitude)})
		yaw = append(yaw, plotter.XY{X: s.t, Y: float64(s.yaw)})
	}

	for _, series := range []struct {
		name string
		pts  plotter.XYs
		dash bool
	}{
		{"altitude", alt, false},
		{"altitude setpoint", altSet, true},
		{"yaw", yaw, false},
	} {
		line, err := plotter.NewLine(series.pts)
		if err != nil {
			return err
		}
		line.Width = vg.Points(1)
		if series.dash {
			line.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}
		}
		p.Add(line)
		p.Legend.Add(series.name, line)
	}

	return p.Save(10*vg.Inch, 5*vg.Inch, path)
}
