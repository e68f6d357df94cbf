package sound

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zaptest"
)

func TestPlayIgnoresUnmappedEvents(t *testing.T) {
	p := New(map[string]string{"flying": "/sounds/flying.wav"}, zaptest.NewLogger(t))
	p.Play("landed")
	assert.Len(t, p.queue, 0)

	p.Play("flying")
	assert.Equal(t, "/sounds/flying.wav", <-p.queue)
}

func TestPlayNeverBlocks(t *testing.T) {
	p := New(map[string]string{"initialising": "a.wav", EventFault: "b.wav"}, zaptest.NewLogger(t))
	p.Play("initialising")
	p.Play(EventFault)
	p.Play(EventFault)
	assert.Len(t, p.queue, 1)
	assert.Equal(t, "a.wav", <-p.queue)
}
