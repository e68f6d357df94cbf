package hardware

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// Hardware is the I2C half of the real rig: rotor PWM and the supply
// monitor. The flight loop talks to it through Actuators and SupplyMonitor.
type Hardware struct {
	*I2CController

	log    *zap.Logger
	cancel context.CancelFunc
	done   sync.WaitGroup
}

func New(cfg I2CConfig, log *zap.Logger) *Hardware {
	return &Hardware{
		I2CController: NewI2CController(cfg, log),
		log:           log,
	}
}

var (
	_ Actuators     = (*Hardware)(nil)
	_ SupplyMonitor = (*Hardware)(nil)
)

// Start runs the I2C loop and returns once the chips have been opened (or
// the first attempt has failed).
func (h *Hardware) Start(ctx context.Context) {
	var initDone sync.WaitGroup
	ctx, h.cancel = context.WithCancel(ctx)
	initDone.Add(1)
	h.done.Add(1)
	go func() {
		defer h.done.Done()
		h.I2CController.Loop(ctx, &initDone)
	}()
	initDone.Wait()
}

// Shutdown de-energises both rotors and waits for the loop to exit.
func (h *Hardware) Shutdown() {
	h.log.Info("HW: zeroing rotors for shut down")
	for ch := Channel(0); ch < NumChannels; ch++ {
		_ = h.Deactivate(ch)
	}
	if h.cancel != nil {
		h.cancel()
		h.done.Wait()
		h.cancel = nil
	}
}
