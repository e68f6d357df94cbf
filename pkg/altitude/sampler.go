// Package altitude turns the raw height sensor into a percentage: a sampler
// that fills a ring buffer from conversion callbacks, and an estimator that
// reduces the buffer and relates it to a latched ground reference.
package altitude

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/tigerbot-team/tigerbot/heli-controller/pkg/circbuf"
	"github.com/tigerbot-team/tigerbot/heli-controller/pkg/hardware"
)

// Sampler is the sampling context. OnSample holds the lock for exactly one
// slot write; Mean holds it only while copying the window out, so the
// conversion callback never waits for more than an N-slot copy.
type Sampler struct {
	log    *zap.Logger
	source hardware.AnalogSource
	period time.Duration

	lock    sync.Mutex
	buf     *circbuf.Buffer
	scratch []uint16

	samples     atomic.Uint64
	triggerErrs atomic.Uint64
}

func NewSampler(source hardware.AnalogSource, capacity int, rateHz int, log *zap.Logger) (*Sampler, error) {
	if rateHz <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %d", rateHz)
	}
	buf, err := circbuf.New(capacity)
	if err != nil {
		return nil, err
	}
	s := &Sampler{
		log:     log,
		source:  source,
		period:  time.Second / time.Duration(rateHz),
		buf:     buf,
		scratch: make([]uint16, capacity),
	}
	source.SetSampleHandler(s.OnSample)
	return s, nil
}

// OnSample is the conversion-complete callback.
func (s *Sampler) OnSample(v uint16) {
	s.lock.Lock()
	s.buf.Write(v)
	s.lock.Unlock()
	s.samples.Add(1)
}

// Trigger starts one conversion. It never blocks on the background loop.
func (s *Sampler) Trigger() {
	if err := s.source.TriggerConversion(); err != nil {
		// First failure, then every thousandth.
		if n := s.triggerErrs.Add(1); n == 1 || n%1000 == 0 {
			s.log.Warn("[sampler] conversion trigger failed", zap.Error(err), zap.Uint64("failures", n))
		}
	}
}

// Run triggers conversions at the sample rate until ctx is done.
func (s *Sampler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.period)
	defer ticker.Stop()
	s.log.Info("[sampler] started", zap.Duration("period", s.period), zap.Int("window", s.buf.Cap()))
	for {
		select {
		case <-ctx.Done():
			s.log.Info("[sampler] received shutdown signal", zap.Uint64("samples", s.SampleCount()))
			return
		case <-ticker.C:
			s.Trigger()
		}
	}
}

// Mean is the rounded mean of the current window. It reuses a scratch
// buffer, so only the flight loop may call it.
func (s *Sampler) Mean() int {
	s.lock.Lock()
	n := s.buf.Snapshot(s.scratch)
	s.lock.Unlock()
	return circbuf.MeanOf(s.scratch[:n])
}

// SampleCount is the number of samples delivered since start.
func (s *Sampler) SampleCount() uint64 {
	return s.samples.Load()
}
