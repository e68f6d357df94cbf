// Package sound plays short WAV cues on mode changes.
package sound

import (
	"context"
	"os"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/speaker"
	"github.com/faiface/beep/wav"
	"go.uber.org/zap"
)

// Cues are keyed by the name of the mode being entered ("flying",
// "landed", ...) plus EventFault when the reference search gives up.
const EventFault = "fault"

type Player struct {
	log    *zap.Logger
	sounds map[string]string
	queue  chan string
}

func New(sounds map[string]string, log *zap.Logger) *Player {
	return &Player{
		log:    log,
		sounds: sounds,
		queue:  make(chan string, 1),
	}
}

// Play queues the sound for event, if one is configured. It never blocks; a
// cue raised while another is still queued is dropped.
func (p *Player) Play(event string) {
	path, ok := p.sounds[event]
	if !ok || path == "" {
		return
	}
	select {
	case p.queue <- path:
	default:
		p.log.Debug("[sound] busy, dropping", zap.String("event", event))
	}
}

// Run owns the speaker until ctx is cancelled. If the speaker can't be opened
// queued sounds are logged and discarded.
func (p *Player) Run(ctx context.Context) {
	sampleRate := beep.SampleRate(44100)
	if err := speaker.Init(sampleRate, sampleRate.N(time.Second/5)); err != nil {
		p.log.Warn("[sound] failed to open speaker", zap.Error(err))
		for {
			select {
			case <-ctx.Done():
				return
			case s := <-p.queue:
				p.log.Info("[sound] unable to play", zap.String("path", s))
			}
		}
	}

	var ctrl *beep.Ctrl
	var s beep.StreamSeekCloser
	stop := func() {
		if ctrl != nil {
			speaker.Lock()
			ctrl.Paused = true
			ctrl.Streamer = nil
			speaker.Unlock()
			ctrl = nil
		}
		if s != nil {
			s.Close()
			s = nil
		}
	}
	defer stop()

	for {
		var path string
		select {
		case <-ctx.Done():
			return
		case path = <-p.queue:
		}
		stop()

		f, err := os.Open(path)
		if err != nil {
			p.log.Warn("[sound] failed to open sound", zap.Error(err))
			continue
		}
		s, _, err = wav.Decode(f)
		if err != nil {
			p.log.Warn("[sound] failed to decode sound", zap.Error(err))
			f.Close()
			s = nil
			continue
		}
		ctrl = &beep.Ctrl{Streamer: s}
		speaker.Play(ctrl)
	}
}
