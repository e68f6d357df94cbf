package flightcontrol

import (
	"fmt"

	"github.com/tigerbot-team/tigerbot/heli-controller/pkg/hardware"
	"github.com/tigerbot-team/tigerbot/heli-controller/pkg/screen"
)

type fakeRig struct {
	active [hardware.NumChannels]bool
	duty   [hardware.NumChannels]float64
	events []string

	presses [hardware.NumButtons]int
	sw      hardware.SwitchState

	yaw   int
	found bool

	lines [screen.NumLines]string
}

func (f *fakeRig) rig() hardware.Rig {
	return hardware.Rig{
		Actuators: f,
		Input:     f,
		Yaw:       f,
		Display:   f,
	}
}

func (f *fakeRig) SetDutyCycle(ch hardware.Channel, frequencyHz int, percent float64) error {
	f.duty[ch] = percent
	return nil
}

func (f *fakeRig) Activate(ch hardware.Channel) error {
	f.active[ch] = true
	f.events = append(f.events, fmt.Sprintf("%v on", ch))
	return nil
}

func (f *fakeRig) Deactivate(ch hardware.Channel) error {
	f.active[ch] = false
	f.events = append(f.events, fmt.Sprintf("%v off", ch))
	return nil
}

func (f *fakeRig) PollButton(b hardware.Button) hardware.ButtonState {
	if f.presses[b] > 0 {
		f.presses[b]--
		return hardware.Pressed
	}
	return hardware.Idle
}

func (f *fakeRig) PollSwitch() hardware.SwitchState {
	return f.sw
}

func (f *fakeRig) ReadYawDegrees() int {
	return f.yaw
}

func (f *fakeRig) ReferenceFound() bool {
	return f.found
}

func (f *fakeRig) DrawLine(line int, text string) {
	f.lines[line] = text
}

type fakeSamples struct {
	mean  int
	count uint64
}

func (f *fakeSamples) Mean() int {
	return f.mean
}

func (f *fakeSamples) SampleCount() uint64 {
	return f.count
}

type fakePublisher struct {
	published []screen.Status
}

func (f *fakePublisher) Publish(s screen.Status) {
	f.published = append(f.published, s)
}

type fakeSounds struct {
	played []string
}

func (f *fakeSounds) Play(event string) {
	f.played = append(f.played, event)
}

type fakeSupply struct {
	reading hardware.SupplyReading
}

func (f *fakeSupply) CurrentSupply() hardware.SupplyReading {
	return f.reading
}
