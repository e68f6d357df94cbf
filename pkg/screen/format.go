// Package screen formats rig status into fixed-width lines and draws them on
// the panel.
package screen

import (
	"fmt"

	"github.com/tigerbot-team/tigerbot/heli-controller/pkg/flightmode"
)

type Page int

const (
	PageFlight Page = iota
	PageRaw
	PageBlank

	numPages = 3
)

// Next cycles Flight -> Raw -> Blank -> Flight.
func (p Page) Next() Page {
	return (p + 1) % numPages
}

// Status is everything the pages can show.
type Status struct {
	Mode     flightmode.Mode
	Setpoint flightmode.Setpoint
	Altitude int
	Yaw      int
	MainDuty float64
	TailDuty float64

	MeanADC         int
	Samples         uint64
	GroundReference int
	GroundLatched   bool

	SupplyVolts float64
	SupplyOK    bool
}

func ModeText(m flightmode.Mode) string {
	switch m {
	case flightmode.Landed:
		return "Landed"
	case flightmode.Initialising:
		return "Initialising"
	case flightmode.Flying:
		return "Flying"
	case flightmode.Landing:
		return "Landing"
	default:
		return "?"
	}
}

// Format returns the NumLines lines for page, each padded or cut to
// LineWidth.
func Format(page Page, s Status) [NumLines]string {
	var lines [NumLines]string
	switch page {
	case PageFlight:
		lines[0] = fmt.Sprintf("Alt %4d%% [%3d]", s.Altitude, s.Setpoint.Altitude)
		lines[1] = fmt.Sprintf("Yaw %4d [%4d]", s.Yaw, s.Setpoint.Yaw)
		lines[2] = fmt.Sprintf("M %3.0f%%  T %3.0f%%", s.MainDuty, s.TailDuty)
		lines[3] = ModeText(s.Mode)
	case PageRaw:
		lines[0] = fmt.Sprintf("MEAN ADC = %4d", s.MeanADC)
		lines[1] = fmt.Sprintf("SAMPLE NO. %5d", s.Samples%100000)
		if s.GroundLatched {
			lines[2] = fmt.Sprintf("GROUND   = %4d", s.GroundReference)
		} else {
			lines[2] = "GROUND   = ----"
		}
		if s.SupplyOK {
			lines[3] = fmt.Sprintf("SUPPLY %6.2fV", s.SupplyVolts)
		}
	}
	for i := range lines {
		lines[i] = fit(lines[i])
	}
	return lines
}

func fit(s string) string {
	if len(s) > LineWidth {
		return s[:LineWidth]
	}
	return fmt.Sprintf("%-*s", LineWidth, s)
}
