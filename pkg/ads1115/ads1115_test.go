package ads1115

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type fakePort struct {
	lock       sync.Mutex
	writes     [][]byte
	busyPolls  int
	conversion [2]byte
	closed     bool
}

func (f *fakePort) WriteReg(reg byte, buf []byte) error {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.writes = append(f.writes, append([]byte{reg}, buf...))
	return nil
}

func (f *fakePort) ReadReg(reg byte, buf []byte) error {
	f.lock.Lock()
	defer f.lock.Unlock()
	switch reg {
	case RegConfig:
		if f.busyPolls > 0 {
			f.busyPolls--
			buf[0] = 0x43
		} else {
			buf[0] = 0xc3
		}
		buf[1] = 0xe3
	case RegConversion:
		copy(buf, f.conversion[:])
	}
	return nil
}

func (f *fakePort) Close() error {
	f.lock.Lock()
	f.closed = true
	f.lock.Unlock()
	return nil
}

func TestScale(t *testing.T) {
	assert.Equal(t, uint16(0), Scale(-100))
	assert.Equal(t, uint16(0), Scale(0))
	assert.Equal(t, uint16(MaxSample), Scale(32767))
	assert.Equal(t, uint16(1500), Scale(12000))
}

func TestConvertWaitsForIdle(t *testing.T) {
	f := &fakePort{busyPolls: 3, conversion: [2]byte{0x2e, 0xe0}} // 12000
	a := newADC(f, zaptest.NewLogger(t))

	v, err := a.convert()
	require.NoError(t, err)
	assert.Equal(t, uint16(1500), v)
	assert.Equal(t, [][]byte{{RegConfig, 0xc3, 0xe3}}, f.writes)
	assert.Equal(t, 0, f.busyPolls)
}

func TestTriggerDeliversToHandler(t *testing.T) {
	f := &fakePort{conversion: [2]byte{0x2e, 0xe0}}
	a := newADC(f, zaptest.NewLogger(t))

	got := make(chan uint16, 1)
	a.SetSampleHandler(func(v uint16) { got <- v })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		a.Run(ctx)
		close(done)
	}()

	require.NoError(t, a.TriggerConversion())
	assert.Equal(t, uint16(1500), <-got)

	cancel()
	<-done
	assert.True(t, f.closed)
}

func TestTriggerWhileQueuedIsBusy(t *testing.T) {
	a := newADC(&fakePort{}, zaptest.NewLogger(t))
	require.NoError(t, a.TriggerConversion())
	assert.ErrorIs(t, a.TriggerConversion(), ErrBusy)
}
