package ina219

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePort struct {
	regs   map[byte][2]byte
	writes map[byte][]byte
}

func (f *fakePort) ReadReg(reg byte, buf []byte) error {
	v := f.regs[reg]
	copy(buf, v[:])
	return nil
}

func (f *fakePort) WriteReg(reg byte, buf []byte) error {
	f.writes[reg] = append([]byte(nil), buf...)
	return nil
}

func (f *fakePort) Close() error {
	return nil
}

func TestBusVoltage(t *testing.T) {
	// 12V = 3000 LSBs, shifted left by 3 in the register.
	raw := uint16(3000) << 3
	f := &fakePort{regs: map[byte][2]byte{RegBusV: {byte(raw >> 8), byte(raw)}}}
	m := &INA219{dev: f}

	v, err := m.ReadBusVoltage()
	require.NoError(t, err)
	assert.InDelta(t, 12.0, v, 1e-9)
}

func TestConfigureAndCurrent(t *testing.T) {
	f := &fakePort{
		regs:   map[byte][2]byte{RegCurrent: {0xff, 0xff}},
		writes: map[byte][]byte{},
	}
	m := &INA219{dev: f}
	require.NoError(t, m.Configure(0.1, 3.2))

	cval := CalculateCalibrationValue(3.2/(1<<15), 0.1)
	assert.Equal(t, []byte{byte(cval >> 8), byte(cval)}, f.writes[RegCalibration])

	i, err := m.ReadCurrent()
	require.NoError(t, err)
	assert.InDelta(t, -3.2/(1<<15), i, 1e-12)

	assert.Error(t, m.Configure(0, 1))
}
