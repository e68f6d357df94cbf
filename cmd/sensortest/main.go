package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/tigerbot-team/tigerbot/heli-controller/pkg/ads1115"
	"github.com/tigerbot-team/tigerbot/heli-controller/pkg/altitude"
	"github.com/tigerbot-team/tigerbot/heli-controller/pkg/config"
	"github.com/tigerbot-team/tigerbot/heli-controller/pkg/quadrature"
)

var configPath = flag.String("config", config.DefaultPath, "YAML config file")

// Prints the altitude window mean and yaw a few times a second so the sensors
// can be checked by hand with the rotors off.
func main() {
	flag.Parse()
	log, _ := zap.NewDevelopment()
	cfg, err := config.Load(*configPath, log)
	if err != nil {
		fmt.Println("Failed to load config", err)
		os.Exit(1)
	}
	hc := cfg.Hardware
	ctx := context.Background()

	adc, err := ads1115.New(hc.I2CDevice, hc.ADCAddr, log)
	if err != nil {
		fmt.Println("Failed to open ADC ", err)
		os.Exit(1)
	}
	go adc.Run(ctx)

	sampler, err := altitude.NewSampler(adc, cfg.Sampling.BufferSize, cfg.Sampling.RateHz, log)
	if err != nil {
		fmt.Println("Failed to create sampler ", err)
		os.Exit(1)
	}
	go sampler.Run(ctx)

	yaw, err := quadrature.Open(hc.YawPinA, hc.YawPinB, hc.YawRefPin, hc.YawCountsPerRev, log)
	if err != nil {
		fmt.Println("Failed to open yaw sensor ", err)
		os.Exit(1)
	}
	go yaw.Run(ctx)

	start := time.Now()
	estimator := altitude.NewEstimator(cfg.Altitude.RangeScale, cfg.Sampling.GroundSettle, start)
	for range time.NewTicker(250 * time.Millisecond).C {
		r := estimator.Update(sampler.Mean(), time.Now())
		fmt.Printf("mean=%4d alt=%3d%% latched=%v samples=%d yaw=%4d ref=%v\n",
			r.Mean, r.Percent, r.Latched, sampler.SampleCount(), yaw.ReadYawDegrees(), yaw.ReferenceFound())
	}
}
