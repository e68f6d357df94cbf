package hardware

import (
	"go.uber.org/zap"
)

// Dummy satisfies every collaborator interface and logs what it is asked to do.
type Dummy struct {
	log     *zap.Logger
	handler func(uint16)
}

func NewDummy(log *zap.Logger) *Dummy {
	return &Dummy{log: log}
}

func (d *Dummy) Rig() Rig {
	return Rig{
		Analog:    d,
		Actuators: d,
		Input:     d,
		Yaw:       d,
		Display:   d,
		Supply:    d,
	}
}

func (d *Dummy) TriggerConversion() error {
	if d.handler != nil {
		d.handler(0)
	}
	return nil
}

func (d *Dummy) SetSampleHandler(h func(uint16)) {
	d.handler = h
}

func (d *Dummy) SetDutyCycle(ch Channel, frequencyHz int, percent float64) error {
	d.log.Debug("DHW: SetDutyCycle", zap.Stringer("channel", ch), zap.Int("frequencyHz", frequencyHz), zap.Float64("percent", percent))
	return nil
}

func (d *Dummy) Activate(ch Channel) error {
	d.log.Info("DHW: Activate", zap.Stringer("channel", ch))
	return nil
}

func (d *Dummy) Deactivate(ch Channel) error {
	d.log.Info("DHW: Deactivate", zap.Stringer("channel", ch))
	return nil
}

func (d *Dummy) PollButton(b Button) ButtonState {
	return Idle
}

func (d *Dummy) PollSwitch() SwitchState {
	return SwitchDown
}

func (d *Dummy) ReadYawDegrees() int {
	return 0
}

func (d *Dummy) ReferenceFound() bool {
	return false
}

func (d *Dummy) DrawLine(line int, text string) {
	d.log.Debug("DHW: DrawLine", zap.Int("line", line), zap.String("text", text))
}

func (d *Dummy) CurrentSupply() SupplyReading {
	return SupplyReading{}
}

var (
	_ AnalogSource  = (*Dummy)(nil)
	_ Actuators     = (*Dummy)(nil)
	_ Input         = (*Dummy)(nil)
	_ YawSensor     = (*Dummy)(nil)
	_ Display       = (*Dummy)(nil)
	_ SupplyMonitor = (*Dummy)(nil)
)
