//go:build !linux

package main

import (
	"fmt"
	"log/slog"
)

// gpioSource is unavailable off linux; Open fails and the encoder runs
// disabled.
type gpioSource struct{}

func newGPIOSource(cfg GPIOConfig, logger *slog.Logger) *gpioSource {
	return &gpioSource{}
}

func (s *gpioSource) Open() (PinSample, error) {
	return PinSample{}, fmt.Errorf("gpio pin source requires linux")
}

func (s *gpioSource) Events() <-chan PinSample {
	return nil
}

func (s *gpioSource) Close() error {
	return nil
}
