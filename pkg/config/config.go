// Package config loads the rig configuration from YAML over built-in
// defaults.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"go.uber.org/zap"
	yaml "gopkg.in/yaml.v2"

	"github.com/tigerbot-team/tigerbot/heli-controller/pkg/flightmode"
	"github.com/tigerbot-team/tigerbot/heli-controller/pkg/pi"
	"github.com/tigerbot-team/tigerbot/heli-controller/pkg/reffinder"
)

const DefaultPath = "/cfg/heli.yaml"

type IntegratorPolicy string

const (
	// ResetOnEntry zeroes both integrators every time the rig enters Flying.
	ResetOnEntry IntegratorPolicy = "reset-on-entry"
	// CarryOver keeps whatever the integrators held when the rig last left
	// Flying.
	CarryOver IntegratorPolicy = "carry-over"
)

type Config struct {
	Sampling  SamplingConfig    `yaml:"sampling"`
	Altitude  AltitudeConfig    `yaml:"altitude"`
	Control   ControlConfig     `yaml:"control"`
	Reference reffinder.Config  `yaml:"reference"`
	Setpoints flightmode.Config `yaml:"setpoints"`
	Display   DisplayConfig     `yaml:"display"`
	Telemetry TelemetryConfig   `yaml:"telemetry"`
	Hardware  HardwareConfig    `yaml:"hardware"`
	// Sounds maps a mode name to the wav played on entering it.
	Sounds map[string]string `yaml:"sounds"`
}

type SamplingConfig struct {
	BufferSize int `yaml:"bufferSize"`
	RateHz     int `yaml:"rateHz"`
	// GroundSettle is how long after start the ground reference is taken.
	GroundSettle time.Duration `yaml:"groundSettle"`
}

type AltitudeConfig struct {
	// RangeScale is ADC counts per percent of travel.
	RangeScale int `yaml:"rangeScale"`
}

type ControlConfig struct {
	Period           time.Duration    `yaml:"period"`
	PWMFrequencyHz   int              `yaml:"pwmFrequencyHz"`
	OutputMin        float64          `yaml:"outputMin"`
	OutputMax        float64          `yaml:"outputMax"`
	IntegratorPolicy IntegratorPolicy `yaml:"integratorPolicy"`
	Altitude         pi.Config        `yaml:"altitude"`
	Yaw              pi.Config        `yaml:"yaw"`
}

type DisplayConfig struct {
	Interval    time.Duration `yaml:"interval"`
	Framebuffer string        `yaml:"framebuffer"`
}

type TelemetryConfig struct {
	// Port of "" disables telemetry.
	Port     string        `yaml:"port"`
	BaudRate int           `yaml:"baudRate"`
	Interval time.Duration `yaml:"interval"`
}

type HardwareConfig struct {
	I2CDevice  string  `yaml:"i2cDevice"`
	PWMAddr    int     `yaml:"pwmAddr"`
	MainPort   int     `yaml:"mainPort"`
	TailPort   int     `yaml:"tailPort"`
	ADCAddr    int     `yaml:"adcAddr"`
	SupplyAddr int     `yaml:"supplyAddr"`
	ShuntOhms  float64 `yaml:"shuntOhms"`
	MaxCurrent float64 `yaml:"maxCurrent"`

	// GPIO names as understood by periph's gpioreg.
	ButtonPins ButtonPins `yaml:"buttonPins"`
	SwitchPin  string     `yaml:"switchPin"`
	YawPinA    string     `yaml:"yawPinA"`
	YawPinB    string     `yaml:"yawPinB"`
	YawRefPin  string     `yaml:"yawRefPin"`
	// YawCountsPerRev is quadrature counts per turn: four per disc slot.
	YawCountsPerRev int `yaml:"yawCountsPerRev"`

	// Joystick, if set, replaces the GPIO buttons with a gamepad.
	Joystick string `yaml:"joystick"`
}

type ButtonPins struct {
	Up    string `yaml:"up"`
	Down  string `yaml:"down"`
	Left  string `yaml:"left"`
	Right string `yaml:"right"`
}

func Default() Config {
	return Config{
		Sampling: SamplingConfig{
			BufferSize:   10,
			RateHz:       40,
			GroundSettle: 500 * time.Millisecond,
		},
		Altitude: AltitudeConfig{
			RangeScale: 8,
		},
		Control: ControlConfig{
			Period:           5 * time.Millisecond,
			PWMFrequencyHz:   200,
			OutputMin:        5,
			OutputMax:        95,
			IntegratorPolicy: ResetOnEntry,
			Altitude:         pi.Config{Kp: 1, Ki: 0.1},
			Yaw:              pi.Config{Kp: 0.1, Ki: 0.05},
		},
		Reference: reffinder.Config{
			PulseOn:     400 * time.Millisecond,
			Period:      1750 * time.Millisecond,
			DutyPercent: 25,
		},
		Setpoints: flightmode.Config{
			AltitudeStep: 10,
			AltitudeMax:  100,
			YawStep:      15,
			Landing: flightmode.LandingConfig{
				AltitudeTolerance: 2,
				YawTolerance:      5,
				Dwell:             1,
				StepInterval:      250 * time.Millisecond,
			},
		},
		Display: DisplayConfig{
			Interval:    100 * time.Millisecond,
			Framebuffer: "/dev/fb1",
		},
		Telemetry: TelemetryConfig{
			BaudRate: 9600,
			Interval: 250 * time.Millisecond,
		},
		Hardware: HardwareConfig{
			I2CDevice:  "/dev/i2c-1",
			PWMAddr:    0x40,
			MainPort:   0,
			TailPort:   1,
			ADCAddr:    0x48,
			ShuntOhms:  0.1,
			MaxCurrent: 3.2,
			ButtonPins: ButtonPins{
				Up:    "GPIO5",
				Down:  "GPIO6",
				Left:  "GPIO13",
				Right: "GPIO19",
			},
			SwitchPin:       "GPIO26",
			YawPinA:         "GPIO17",
			YawPinB:         "GPIO27",
			YawRefPin:       "GPIO22",
			YawCountsPerRev: 448,
		},
		Sounds: map[string]string{},
	}
}

// Load reads path over the defaults. A missing file is not an error: the
// defaults are used and a warning logged.
func Load(path string, log *zap.Logger) (Config, error) {
	cfg := Default()
	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		log.Warn("[config] no config file; using defaults", zap.String("path", path))
		return cfg, nil
	} else if err != nil {
		return cfg, fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.UnmarshalStrict(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return cfg, nil
}

// WriteInUse records the effective config next to the input so a tuning run
// can be reproduced.
func WriteInUse(path string, cfg Config) error {
	out, err := yaml.Marshal(&cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, out, 0666)
}

// AltitudePI and YawPI fill in the shared loop parameters.
func (c Config) AltitudePI() pi.Config {
	return c.loopPI(c.Control.Altitude)
}

func (c Config) YawPI() pi.Config {
	return c.loopPI(c.Control.Yaw)
}

func (c Config) loopPI(gains pi.Config) pi.Config {
	gains.Period = c.Control.Period
	gains.OutputMin = c.Control.OutputMin
	gains.OutputMax = c.Control.OutputMax
	return gains
}

func (c Config) Validate() error {
	if c.Sampling.BufferSize < 1 {
		return fmt.Errorf("sampling.bufferSize must be at least 1, got %d", c.Sampling.BufferSize)
	}
	if c.Sampling.RateHz <= 0 {
		return fmt.Errorf("sampling.rateHz must be positive, got %d", c.Sampling.RateHz)
	}
	if c.Sampling.GroundSettle < 0 {
		return fmt.Errorf("sampling.groundSettle must not be negative")
	}
	if c.Altitude.RangeScale == 0 {
		return errors.New("altitude.rangeScale must not be zero")
	}
	if c.Control.Period <= 0 {
		return fmt.Errorf("control.period must be positive, got %v", c.Control.Period)
	}
	if c.Control.PWMFrequencyHz <= 0 {
		return fmt.Errorf("control.pwmFrequencyHz must be positive, got %d", c.Control.PWMFrequencyHz)
	}
	if c.Control.OutputMin >= c.Control.OutputMax {
		return fmt.Errorf("control.outputMin %v must be below outputMax %v", c.Control.OutputMin, c.Control.OutputMax)
	}
	if c.Control.OutputMin < 0 || c.Control.OutputMax > 100 {
		return fmt.Errorf("control output limits must lie within 0..100 percent")
	}
	switch c.Control.IntegratorPolicy {
	case ResetOnEntry, CarryOver:
	default:
		return fmt.Errorf("control.integratorPolicy %q is not %q or %q", c.Control.IntegratorPolicy, ResetOnEntry, CarryOver)
	}
	if c.Display.Interval < c.Control.Period {
		return fmt.Errorf("display.interval %v is shorter than the control period", c.Display.Interval)
	}
	if c.Telemetry.Port != "" && (c.Telemetry.BaudRate <= 0 || c.Telemetry.Interval < c.Control.Period) {
		return errors.New("telemetry needs a positive baud rate and an interval of at least one control period")
	}
	return nil
}
