// Package buttons reads the four push buttons and the flight switch from
// GPIO pins.
package buttons

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"periph.io/x/periph/conn/gpio"
	"periph.io/x/periph/conn/gpio/gpioreg"
	"periph.io/x/periph/host"

	"github.com/tigerbot-team/tigerbot/heli-controller/pkg/hardware"
)

// Panel is the GPIO button board. Buttons pull up and read low when pushed.
// The switch pulls down and reads high when up.
type Panel struct {
	log *zap.Logger

	buttonPins [hardware.NumButtons]gpio.PinIn
	switchPin  gpio.PinIn

	lock    sync.Mutex
	buttons [hardware.NumButtons]Debouncer
	sw      Debouncer
}

// Open claims the named pins. pins is indexed by hardware.Button.
func Open(pins [hardware.NumButtons]string, switchPin string, log *zap.Logger) (*Panel, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("initialising periph: %w", err)
	}
	p := &Panel{log: log}
	for b, name := range pins {
		pin := gpioreg.ByName(name)
		if pin == nil {
			return nil, fmt.Errorf("no GPIO pin %q for %v", name, hardware.Button(b))
		}
		if err := pin.In(gpio.PullUp, gpio.NoEdge); err != nil {
			return nil, fmt.Errorf("configuring %s: %w", name, err)
		}
		p.buttonPins[b] = pin
	}
	pin := gpioreg.ByName(switchPin)
	if pin == nil {
		return nil, fmt.Errorf("no GPIO pin %q for switch", switchPin)
	}
	if err := pin.In(gpio.PullDown, gpio.NoEdge); err != nil {
		return nil, fmt.Errorf("configuring %s: %w", switchPin, err)
	}
	p.switchPin = pin
	return p, nil
}

// Run polls the pins every interval until ctx is done.
func (p *Panel) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		var raw [hardware.NumButtons]bool
		for b, pin := range p.buttonPins {
			raw[b] = pin.Read() == gpio.Low
		}
		p.update(raw, p.switchPin.Read() == gpio.High)
	}
}

func (p *Panel) update(buttons [hardware.NumButtons]bool, switchUp bool) {
	p.lock.Lock()
	defer p.lock.Unlock()
	for b, active := range buttons {
		p.buttons[b].Update(active)
	}
	before := p.sw.Active()
	p.sw.Update(switchUp)
	if p.sw.Active() != before {
		p.log.Info("[buttons] switch moved", zap.Bool("up", p.sw.Active()))
	}
}

func (p *Panel) PollButton(b hardware.Button) hardware.ButtonState {
	if b < 0 || b >= hardware.NumButtons {
		return hardware.Idle
	}
	p.lock.Lock()
	defer p.lock.Unlock()
	return p.buttons[b].Check()
}

func (p *Panel) PollSwitch() hardware.SwitchState {
	p.lock.Lock()
	defer p.lock.Unlock()
	if p.sw.Active() {
		return hardware.SwitchUp
	}
	return hardware.SwitchDown
}
