// Package telemetry streams a one-line status over a serial port.
package telemetry

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"go.bug.st/serial"
	"go.uber.org/zap"

	"github.com/tigerbot-team/tigerbot/heli-controller/pkg/screen"
)

func OpenSerial(path string, baudRate int) (serial.Port, error) {
	mode := &serial.Mode{
		BaudRate: baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(path, mode)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	return port, nil
}

func Format(s screen.Status) string {
	return fmt.Sprintf("mode=%s alt=%d set_alt=%d yaw=%d set_yaw=%d main=%.1f tail=%.1f samples=%d\r\n",
		s.Mode, s.Altitude, s.Setpoint.Altitude, s.Yaw, s.Setpoint.Yaw, s.MainDuty, s.TailDuty, s.Samples)
}

// Publisher keeps the latest status and writes it out on its own schedule so
// a slow port never holds up the caller.
type Publisher struct {
	log *zap.Logger
	out io.WriteCloser

	lock   sync.Mutex
	latest screen.Status
	fresh  bool
}

func New(out io.WriteCloser, log *zap.Logger) *Publisher {
	return &Publisher{log: log, out: out}
}

func (p *Publisher) Publish(s screen.Status) {
	p.lock.Lock()
	p.latest = s
	p.fresh = true
	p.lock.Unlock()
}

// Run writes the latest status every interval, skipping intervals with
// nothing new, until ctx is done. The port is closed on return.
func (p *Publisher) Run(ctx context.Context, interval time.Duration) {
	defer p.out.Close()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	failures := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		if err := p.flush(); err != nil {
			failures++
			if failures == 1 || failures%100 == 0 {
				p.log.Warn("[telemetry] write failed", zap.Error(err), zap.Int("failures", failures))
			}
		}
	}
}

func (p *Publisher) flush() error {
	p.lock.Lock()
	s, fresh := p.latest, p.fresh
	p.fresh = false
	p.lock.Unlock()
	if !fresh {
		return nil
	}
	_, err := io.WriteString(p.out, Format(s))
	return err
}
