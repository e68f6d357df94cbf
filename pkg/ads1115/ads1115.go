// Package ads1115 reads the altitude sensor through an ADS1115 16-bit ADC,
// one single-shot conversion per trigger.
package ads1115

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/exp/io/i2c"
)

const (
	DefaultAddr = 0x48

	RegConversion = 0x00
	RegConfig     = 0x01

	// Config bits.
	osStart       = 1 << 15 // Write: start a conversion. Read: 1 when idle.
	muxAIN0GND    = 0b100 << 12
	pga4V096      = 0b001 << 9
	modeSingle    = 1 << 8
	rate860SPS    = 0b111 << 5
	comparatorOff = 0b11

	singleShotAIN0 = osStart | muxAIN0GND | pga4V096 | modeSingle | rate860SPS | comparatorOff

	// Samples are reported on a 12-bit scale, 0..4095.
	MaxSample = 4095

	pollInterval   = 200 * time.Microsecond
	convertTimeout = 10 * time.Millisecond
)

var ErrBusy = errors.New("ads1115: conversion already in progress")

type port interface {
	WriteReg(reg byte, buf []byte) (err error)
	ReadReg(reg byte, buf []byte) (err error)
	Close() error
}

// ADC implements hardware.AnalogSource. Conversions run on the goroutine
// started by Run; TriggerConversion only queues one.
type ADC struct {
	log *zap.Logger
	dev port

	trigger chan struct{}

	lock    sync.Mutex
	handler func(uint16)
}

func New(deviceFile string, addr int, log *zap.Logger) (*ADC, error) {
	dev, err := i2c.Open(&i2c.Devfs{Dev: deviceFile}, addr)
	if err != nil {
		return nil, fmt.Errorf("opening ads1115 at 0x%x: %w", addr, err)
	}
	return newADC(dev, log), nil
}

func newADC(dev port, log *zap.Logger) *ADC {
	return &ADC{
		log:     log,
		dev:     dev,
		trigger: make(chan struct{}, 1),
	}
}

func (a *ADC) SetSampleHandler(h func(uint16)) {
	a.lock.Lock()
	a.handler = h
	a.lock.Unlock()
}

func (a *ADC) TriggerConversion() error {
	select {
	case a.trigger <- struct{}{}:
		return nil
	default:
		return ErrBusy
	}
}

// Run services triggers until ctx is done, then closes the device.
func (a *ADC) Run(ctx context.Context) {
	defer a.dev.Close()
	for {
		select {
		case <-ctx.Done():
			return
		case <-a.trigger:
		}
		v, err := a.convert()
		if err != nil {
			a.log.Warn("[ads1115] conversion failed", zap.Error(err))
			continue
		}
		a.lock.Lock()
		h := a.handler
		a.lock.Unlock()
		if h != nil {
			h(v)
		}
	}
}

func (a *ADC) convert() (uint16, error) {
	cfg := uint16(singleShotAIN0)
	if err := a.dev.WriteReg(RegConfig, []byte{byte(cfg >> 8), byte(cfg)}); err != nil {
		return 0, err
	}

	buf := make([]byte, 2)
	deadline := time.Now().Add(convertTimeout)
	for {
		if err := a.dev.ReadReg(RegConfig, buf); err != nil {
			return 0, err
		}
		if buf[0]&(osStart>>8) != 0 {
			break
		}
		if time.Now().After(deadline) {
			return 0, errors.New("ads1115: conversion timed out")
		}
		time.Sleep(pollInterval)
	}

	if err := a.dev.ReadReg(RegConversion, buf); err != nil {
		return 0, err
	}
	return Scale(int16(uint16(buf[0])<<8 | uint16(buf[1]))), nil
}

// Scale maps a signed conversion result onto 0..MaxSample. Negative readings
// (input below ground) clamp to zero.
func Scale(raw int16) uint16 {
	if raw < 0 {
		return 0
	}
	return uint16(raw) >> 3
}
