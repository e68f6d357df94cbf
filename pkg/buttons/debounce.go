package buttons

import "github.com/tigerbot-team/tigerbot/heli-controller/pkg/hardware"

// DebouncePolls is how many consecutive identical reads it takes for a pin
// to change state.
const DebouncePolls = 3

// Debouncer turns raw pin reads into a stable level and a one-shot press.
type Debouncer struct {
	state   bool
	count   int
	pressed bool
}

// Update feeds one raw read (true = active).
func (d *Debouncer) Update(active bool) {
	if active == d.state {
		d.count = 0
		return
	}
	d.count++
	if d.count < DebouncePolls {
		return
	}
	d.count = 0
	d.state = active
	if active {
		d.pressed = true
	}
}

func (d *Debouncer) Active() bool {
	return d.state
}

// Check reports Pressed once for each debounced press, then Idle until the
// next one.
func (d *Debouncer) Check() hardware.ButtonState {
	if d.pressed {
		d.pressed = false
		return hardware.Pressed
	}
	return hardware.Idle
}
