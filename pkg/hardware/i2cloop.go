package hardware

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/tigerbot-team/tigerbot/heli-controller/pkg/ina219"
	"github.com/tigerbot-team/tigerbot/heli-controller/pkg/pca9685"
)

type I2CConfig struct {
	DeviceFile string
	PWMAddr    int
	// PWMPorts maps each Channel to a PCA9685 output.
	PWMPorts [NumChannels]int

	// SupplyAddr of 0 means no supply monitor is fitted.
	SupplyAddr int
	ShuntOhms  float64
	MaxCurrent float64

	UpdateInterval time.Duration
	SupplyInterval time.Duration
}

// I2CController owns the PWM chip and the supply monitor. Callers record the
// outputs they want and the loop pushes changes to the chips, so a slow or
// failing bus never blocks the flight loop.
type I2CController struct {
	log *zap.Logger
	cfg I2CConfig

	lock sync.Mutex

	// Desired values.  Stored off in case we need to re-initialise the hardware.
	desired     [NumChannels]channelState
	frequencyHz int
	supply      SupplyReading

	openPWM    func() (pca9685.Interface, error)
	openSupply func() (ina219.Interface, error)
}

type channelState struct {
	active bool
	duty   float64
}

type appliedState struct {
	valid       bool
	frequencyHz int
	channels    [NumChannels]channelState
}

func NewI2CController(cfg I2CConfig, log *zap.Logger) *I2CController {
	c := &I2CController{
		log:         log,
		cfg:         cfg,
		frequencyHz: 200,
	}
	c.openPWM = func() (pca9685.Interface, error) {
		return pca9685.New(cfg.DeviceFile, cfg.PWMAddr)
	}
	c.openSupply = func() (ina219.Interface, error) {
		return ina219.NewI2C(cfg.DeviceFile, cfg.SupplyAddr)
	}
	return c
}

func (c *I2CController) SetDutyCycle(ch Channel, frequencyHz int, percent float64) error {
	if ch < 0 || ch >= NumChannels {
		return fmt.Errorf("no such channel %v", ch)
	}
	c.lock.Lock()
	defer c.lock.Unlock()
	c.desired[ch].duty = percent
	c.frequencyHz = frequencyHz
	return nil
}

func (c *I2CController) Activate(ch Channel) error {
	return c.setActive(ch, true)
}

func (c *I2CController) Deactivate(ch Channel) error {
	return c.setActive(ch, false)
}

func (c *I2CController) setActive(ch Channel, active bool) error {
	if ch < 0 || ch >= NumChannels {
		return fmt.Errorf("no such channel %v", ch)
	}
	c.lock.Lock()
	defer c.lock.Unlock()
	c.desired[ch].active = active
	return nil
}

func (c *I2CController) CurrentSupply() SupplyReading {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.supply
}

func (c *I2CController) Loop(ctx context.Context, initDone *sync.WaitGroup) {
	c.log.Info("[i2c] loop started")
	for {
		c.loopUntilSomethingBadHappens(ctx, initDone)
		if ctx.Err() != nil {
			return
		}
		c.log.Warn("[i2c] bus failure; trying to recover")
		initDone = nil
		time.Sleep(100 * time.Millisecond)
	}
}

func (c *I2CController) loopUntilSomethingBadHappens(ctx context.Context, initDone *sync.WaitGroup) {
	defer func() {
		if initDone != nil {
			initDone.Done()
		}
	}()

	pwm, err := c.openPWM()
	if err != nil {
		c.log.Error("[i2c] failed to open PWM chip", zap.Error(err))
		return
	}
	defer pwm.Close()
	defer c.allOff(pwm)

	var supply ina219.Interface
	if c.cfg.SupplyAddr != 0 {
		supply, err = c.openSupply()
		if err == nil {
			err = supply.Configure(c.cfg.ShuntOhms, c.cfg.MaxCurrent)
		}
		if err != nil {
			c.log.Warn("[i2c] failed to open supply monitor; ignoring", zap.Error(err))
			supply = nil
		} else {
			defer supply.Close()
		}
	}

	ticker := time.NewTicker(c.cfg.UpdateInterval)
	defer ticker.Stop()

	var applied appliedState
	var lastSupplyReading time.Time

	if initDone != nil {
		initDone.Done()
		initDone = nil
	}

	for ctx.Err() == nil {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		if err := c.apply(pwm, &applied); err != nil {
			c.log.Error("[i2c] failed to update PWM outputs", zap.Error(err))
			return
		}

		if supply != nil && time.Since(lastSupplyReading) > c.cfg.SupplyInterval {
			c.readSupply(supply)
			lastSupplyReading = time.Now()
		}
	}
}

// apply writes whatever differs between the desired state and what the chip
// was last given.
func (c *I2CController) apply(pwm pca9685.Interface, applied *appliedState) error {
	c.lock.Lock()
	desired := c.desired
	frequencyHz := c.frequencyHz
	c.lock.Unlock()

	if !applied.valid || applied.frequencyHz != frequencyHz {
		if err := pwm.Configure(frequencyHz); err != nil {
			return fmt.Errorf("configuring PWM frequency: %w", err)
		}
		*applied = appliedState{valid: true, frequencyHz: frequencyHz}
		for ch := range applied.channels {
			if err := pwm.SetFullOff(c.cfg.PWMPorts[ch]); err != nil {
				return err
			}
		}
	}

	for ch, want := range desired {
		if applied.channels[ch] == want {
			continue
		}
		port := c.cfg.PWMPorts[ch]
		var err error
		if want.active {
			err = pwm.SetDuty(port, want.duty)
		} else {
			err = pwm.SetFullOff(port)
		}
		if err != nil {
			return fmt.Errorf("updating %v rotor: %w", Channel(ch), err)
		}
		applied.channels[ch] = want
	}
	return nil
}

func (c *I2CController) allOff(pwm pca9685.Interface) {
	for ch := Channel(0); ch < NumChannels; ch++ {
		if err := pwm.SetFullOff(c.cfg.PWMPorts[ch]); err != nil {
			c.log.Error("[i2c] failed to stop rotor", zap.Stringer("channel", ch), zap.Error(err))
		}
	}
}

func (c *I2CController) readSupply(supply ina219.Interface) {
	reading := SupplyReading{CaptureTime: time.Now()}
	reading.BusVoltage, reading.Error = supply.ReadBusVoltage()
	if reading.Error == nil {
		reading.Current, reading.Error = supply.ReadCurrent()
	}
	if reading.Error != nil {
		c.log.Warn("[i2c] supply read failed", zap.Error(reading.Error))
	} else {
		c.log.Debug("[i2c] supply", zap.Float64("volts", reading.BusVoltage), zap.Float64("amps", reading.Current))
	}
	c.lock.Lock()
	c.supply = reading
	c.lock.Unlock()
}
