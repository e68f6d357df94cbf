package screen

import (
	"context"
	"image"
	"os"
	"sync"
	"time"

	"github.com/fogleman/gg"
	"go.uber.org/zap"
)

const (
	// NumLines and LineWidth match the 16x4 character OLED the rig was
	// built around; the framebuffer panel just draws them bigger.
	NumLines  = 4
	LineWidth = 16

	size = 128
)

// Screen keeps the last text for each line and pushes it to a 128x128 RGB565
// framebuffer in the background.
type Screen struct {
	log  *zap.Logger
	path string

	lock  sync.Mutex
	lines [NumLines]string
}

func New(framebuffer string, log *zap.Logger) *Screen {
	return &Screen{
		log:  log,
		path: framebuffer,
	}
}

// DrawLine replaces one line of text. Out of range lines are ignored.
func (s *Screen) DrawLine(line int, text string) {
	if line < 0 || line >= NumLines {
		return
	}
	s.lock.Lock()
	s.lines[line] = text
	s.lock.Unlock()
}

func (s *Screen) Lines() [NumLines]string {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.lines
}

// Render draws the current lines.
func (s *Screen) Render() image.Image {
	lines := s.Lines()

	dc := gg.NewContext(size, size)
	dc.SetRGB(0, 0, 0)
	dc.Clear()
	dc.SetRGBA(1, 0.9, 0, 1)
	for i, l := range lines {
		dc.DrawString(l, 4, float64(24+i*28))
	}
	return dc.Image()
}

func (s *Screen) LoopUpdatingScreen(ctx context.Context, interval time.Duration) {
	f, err := os.OpenFile(s.path, os.O_RDWR, 0666)
	if err != nil {
		s.log.Warn("[screen] failed to open framebuffer, ignoring", zap.String("path", s.path), zap.Error(err))
		return
	}
	defer f.Close()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var buf [size * size * 2]byte
	for {
		select {
		case <-ctx.Done():
			clear(buf[:])
			_, _ = f.Seek(0, 0)
			_, _ = f.Write(buf[:])
			return
		case <-ticker.C:
		}

		toRGB565(s.Render(), buf[:])
		if _, err = f.Seek(0, 0); err != nil {
			s.log.Error("[screen] failure", zap.Error(err))
			return
		}
		for i := 0; i < size; i++ {
			if _, err = f.Write(buf[i*size*2 : (i+1)*size*2]); err != nil {
				s.log.Error("[screen] failure", zap.Error(err))
				return
			}
			time.Sleep(10 * time.Microsecond)
		}
	}
}

// toRGB565 packs img for the panel, which is mounted rotated a quarter turn.
func toRGB565(img image.Image, buf []byte) {
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			r, g, b, _ := img.At(x, y).RGBA() // 16-bit pre-multiplied

			rb := byte(r >> (16 - 5))
			gb := byte(g >> (16 - 6)) // Green has 6 bits
			bb := byte(b >> (16 - 5))

			buf[(size-1-y)*2+x*size*2+1] = (rb << 3) | (gb >> 3)
			buf[(size-1-y)*2+x*size*2] = bb | (gb << 5)
		}
	}
}
