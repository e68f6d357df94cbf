// Package quadrature reads rig yaw from a slotted disc with two quadrature
// channels and a single reference slot.
package quadrature

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"periph.io/x/periph/conn/gpio"
	"periph.io/x/periph/conn/gpio/gpioreg"
	"periph.io/x/periph/host"
)

// edgeTimeout bounds each WaitForEdge so cancellation is noticed.
const edgeTimeout = 100 * time.Millisecond

type Sensor struct {
	log          *zap.Logger
	countsPerRev int

	a, b, ref gpio.PinIn

	lock    sync.Mutex
	decoder *Decoder
}

// Open claims the pins. countsPerRev is in quadrature counts (four per slot).
func Open(pinA, pinB, pinRef string, countsPerRev int, log *zap.Logger) (*Sensor, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("initialising periph: %w", err)
	}
	s := &Sensor{log: log, countsPerRev: countsPerRev}
	var err error
	if s.a, err = openPin(pinA, gpio.BothEdges); err != nil {
		return nil, err
	}
	if s.b, err = openPin(pinB, gpio.BothEdges); err != nil {
		return nil, err
	}
	if s.ref, err = openPin(pinRef, gpio.FallingEdge); err != nil {
		return nil, err
	}
	s.decoder = NewDecoder(s.a.Read() == gpio.High, s.b.Read() == gpio.High)
	return s, nil
}

func openPin(name string, edge gpio.Edge) (gpio.PinIn, error) {
	pin := gpioreg.ByName(name)
	if pin == nil {
		return nil, fmt.Errorf("no GPIO pin %q", name)
	}
	if err := pin.In(gpio.PullUp, edge); err != nil {
		return nil, fmt.Errorf("configuring %s: %w", name, err)
	}
	return pin, nil
}

// Run watches the pins until ctx is done.
func (s *Sensor) Run(ctx context.Context) {
	var wg sync.WaitGroup
	watch := func(pin gpio.PinIn, onEdge func()) {
		defer wg.Done()
		for ctx.Err() == nil {
			if pin.WaitForEdge(edgeTimeout) {
				onEdge()
			}
		}
	}
	sample := func() {
		a, b := s.a.Read() == gpio.High, s.b.Read() == gpio.High
		s.lock.Lock()
		s.decoder.Update(a, b)
		s.lock.Unlock()
	}
	wg.Add(3)
	go watch(s.a, sample)
	go watch(s.b, sample)
	go watch(s.ref, func() {
		s.lock.Lock()
		first := !s.decoder.ReferenceFound()
		s.decoder.Mark()
		s.lock.Unlock()
		if first {
			s.log.Info("[quadrature] reference slot found")
		}
	})
	wg.Wait()
}

func (s *Sensor) ReadYawDegrees() int {
	s.lock.Lock()
	defer s.lock.Unlock()
	return Degrees(s.decoder.Count(), s.countsPerRev)
}

func (s *Sensor) ReferenceFound() bool {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.decoder.ReferenceFound()
}
