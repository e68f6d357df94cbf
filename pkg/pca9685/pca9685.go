// Package pca9685 drives the rotor ESC/PWM lines from a PCA9685 16-channel
// PWM chip.
package pca9685

import (
	"fmt"
	"math"
	"time"

	"golang.org/x/exp/io/i2c"
)

const (
	DefaultAddr = 0x40

	RegMode1 = 0x00
	RegMode2 = 0x01

	// Each PWM output has two 16-bit (low byte first) registers.
	// First register is the on time, second is the off time.
	RegLEDBase = 0x06

	RegPreScale = 0xfe // Pre-scaler for PWM frequency.

	OscillatorHz = 25000000
	PWMMax       = 4095

	// Bit 4 of LEDn_OFF_H forces the output fully off.
	fullOffBit = 0x10

	MinFrequencyHz = 24
	MaxFrequencyHz = 1526

	NumPorts = 16
)

type Interface interface {
	Configure(frequencyHz int) error
	SetDuty(port int, percent float64) error
	SetFullOff(port int) error
	Close() error
}

type port interface {
	WriteReg(reg byte, buf []byte) (err error)
	Close() error
}

type PCA9685 struct {
	dev port
}

func New(deviceFile string, addr int) (Interface, error) {
	dev, err := i2c.Open(&i2c.Devfs{Dev: deviceFile}, addr)
	if err != nil {
		return nil, fmt.Errorf("opening pca9685 at 0x%x: %w", addr, err)
	}
	return &PCA9685{
		dev: dev,
	}, nil
}

// PreScale returns the prescaler register value for the given output
// frequency, per the datasheet: round(osc / (4096 * f)) - 1.
func PreScale(frequencyHz int) byte {
	return byte(math.Round(OscillatorHz/(4096*float64(frequencyHz))) - 1)
}

func (p *PCA9685) Configure(frequencyHz int) (err error) {
	if frequencyHz < MinFrequencyHz || frequencyHz > MaxFrequencyHz {
		return fmt.Errorf("pca9685: frequency %dHz out of range", frequencyHz)
	}
	// Put device to sleep; the prescaler can only be written while asleep.
	err = p.dev.WriteReg(RegMode1, []byte{0x11})
	if err != nil {
		return
	}
	err = p.dev.WriteReg(RegPreScale, []byte{PreScale(frequencyHz)})
	if err != nil {
		return
	}
	// Trigger a reset
	err = p.dev.WriteReg(RegMode1, []byte{0x01})
	if err != nil {
		return
	}
	// Required delay after reset.
	time.Sleep(1 * time.Millisecond)
	// Enable with auto-increment.
	err = p.dev.WriteReg(RegMode1, []byte{0xa1})
	return
}

func (p *PCA9685) SetDuty(port int, percent float64) error {
	if port < 0 || port >= NumPorts {
		return fmt.Errorf("pca9685: port %d out of range", port)
	}
	if percent < 0 {
		percent = 0
	} else if percent > 100 {
		percent = 100
	}

	pwmValue := uint16(math.Round(PWMMax * percent / 100))
	addr := RegLEDBase + port*4

	return p.dev.WriteReg(byte(addr), []byte{0, 0, byte(pwmValue & 0xff), byte(pwmValue >> 8)})
}

func (p *PCA9685) SetFullOff(port int) error {
	if port < 0 || port >= NumPorts {
		return fmt.Errorf("pca9685: port %d out of range", port)
	}
	addr := RegLEDBase + port*4
	return p.dev.WriteReg(byte(addr), []byte{0, 0, 0, fullOffBit})
}

func (p *PCA9685) Close() error {
	return p.dev.Close()
}

func Dummy() Interface {
	return &dummyPWM{}
}

type dummyPWM struct {
}

func (*dummyPWM) Configure(frequencyHz int) error {
	return nil
}

func (*dummyPWM) SetDuty(port int, percent float64) error {
	return nil
}

func (*dummyPWM) SetFullOff(port int) error {
	return nil
}

func (*dummyPWM) Close() error {
	return nil
}
