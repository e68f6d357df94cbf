package joystick

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/tigerbot-team/tigerbot/heli-controller/pkg/hardware"
)

// axisThreshold is how far the D-pad has to travel before it counts as a
// press.
const axisThreshold = 16384

// Pad maps a game pad onto hardware.Input. The D-pad gives the four buttons,
// Triangle flips the flight switch up and Cross flips it down.
type Pad struct {
	log *zap.Logger

	lock    sync.Mutex
	pending [hardware.NumButtons]bool
	held    [hardware.NumButtons]bool
	sw      hardware.SwitchState
}

func NewPad(log *zap.Logger) *Pad {
	return &Pad{log: log, sw: hardware.SwitchDown}
}

// Run reads events from j until it fails or ctx is done. j is closed on
// return.
func (p *Pad) Run(ctx context.Context, j *Joystick) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		<-ctx.Done()
		j.Close()
	}()
	for {
		e, err := j.ReadEvent()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			p.log.Error("[joystick] read failed", zap.Error(err))
			return err
		}
		p.HandleEvent(e)
	}
}

func (p *Pad) HandleEvent(e *Event) {
	p.lock.Lock()
	defer p.lock.Unlock()

	// An initial event records where the D-pad already sits without counting
	// it as a press.
	press := !e.Initial
	switch e.Type {
	case EventTypeAxis:
		switch e.Number {
		case AxisDPadY:
			p.setHeld(hardware.ButtonUp, e.Value < -axisThreshold, press)
			p.setHeld(hardware.ButtonDown, e.Value > axisThreshold, press)
		case AxisDPadX:
			p.setHeld(hardware.ButtonLeft, e.Value < -axisThreshold, press)
			p.setHeld(hardware.ButtonRight, e.Value > axisThreshold, press)
		}
	case EventTypeButton:
		if e.Value != 1 || e.Initial {
			return
		}
		switch e.Number {
		case ButtonTriangle:
			p.sw = hardware.SwitchUp
		case ButtonCross:
			p.sw = hardware.SwitchDown
		}
	}
}

func (p *Pad) setHeld(b hardware.Button, held, press bool) {
	if held && !p.held[b] && press {
		p.pending[b] = true
		p.log.Debug("[joystick] press", zap.Stringer("button", b))
	}
	p.held[b] = held
}

// PollButton reports each press once.
func (p *Pad) PollButton(b hardware.Button) hardware.ButtonState {
	if b < 0 || b >= hardware.NumButtons {
		return hardware.Idle
	}
	p.lock.Lock()
	defer p.lock.Unlock()
	if p.pending[b] {
		p.pending[b] = false
		return hardware.Pressed
	}
	return hardware.Idle
}

func (p *Pad) PollSwitch() hardware.SwitchState {
	p.lock.Lock()
	defer p.lock.Unlock()
	return p.sw
}
