package telemetry

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/tigerbot-team/tigerbot/heli-controller/pkg/flightmode"
	"github.com/tigerbot-team/tigerbot/heli-controller/pkg/screen"
)

type mockPort struct {
	lock   sync.Mutex
	buf    bytes.Buffer
	closed bool
}

func (m *mockPort) Write(p []byte) (int, error) {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.buf.Write(p)
}

func (m *mockPort) Close() error {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.closed = true
	return nil
}

func (m *mockPort) String() string {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.buf.String()
}

var status = screen.Status{
	Mode:     flightmode.Flying,
	Setpoint: flightmode.Setpoint{Altitude: 60, Yaw: -30},
	Altitude: 48,
	Yaw:      -27,
	MainDuty: 41.6,
	TailDuty: 33.25,
	Samples:  1234,
}

func TestFormat(t *testing.T) {
	assert.Equal(t,
		"mode=flying alt=48 set_alt=60 yaw=-27 set_yaw=-30 main=41.6 tail=33.2 samples=1234\r\n",
		Format(status))
}

func TestFlushWritesOnlyFreshStatus(t *testing.T) {
	port := &mockPort{}
	p := New(port, zaptest.NewLogger(t))

	require.NoError(t, p.flush())
	assert.Empty(t, port.String())

	p.Publish(status)
	require.NoError(t, p.flush())
	require.NoError(t, p.flush())
	assert.Equal(t, Format(status), port.String())
}

func TestRunClosesPort(t *testing.T) {
	port := &mockPort{}
	p := New(port, zaptest.NewLogger(t))
	p.Publish(status)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx, time.Millisecond)
		close(done)
	}()
	require.Eventually(t, func() bool { return port.String() != "" }, time.Second, time.Millisecond)
	cancel()
	<-done
	assert.True(t, port.closed)
}
