// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"errors"
	"fmt"

	"periph.io/x/conn/v3/physic"

	"github.com/relabs-tech/bme280_exporter/internal/bme280"
	"github.com/relabs-tech/bme280_exporter/internal/bus"
	"github.com/relabs-tech/bme280_exporter/internal/env"
)

// ErrBusFault marks a measurement aborted by a failed bus transaction.
var ErrBusFault = errors.New("bus fault")

// EnvReader produces one fresh sample per call. Implementations are not
// reentrant; callers serialize Measure.
type EnvReader interface {
	Measure() (env.Sample, error)
	// Close puts the sensor to sleep and releases the bus.
	Close() error
}

// Session owns one BME280 and runs forced measurement cycles on it.
type Session struct {
	addr    uint16
	opts    bme280.Opts
	settle  uint32 // ms, derived from opts once
	d       bus.Driver
	dev     *bme280.Dev
	closeFn func() error
}

// NewSession performs the startup handshake and derives the settle delay.
func NewSession(d bus.Driver, addr uint16, opts bme280.Opts) (*Session, error) {
	dev, err := bme280.New(d, &opts)
	if err != nil {
		return nil, err
	}
	return &Session{
		addr:   addr,
		opts:   opts,
		settle: bme280.SettleDelayMS(&opts),
		d:      d,
		dev:    dev,
	}, nil
}

// Addr returns the sensor bus address.
func (s *Session) Addr() uint16 {
	return s.addr
}

// SettleDelayMS returns the wait between trigger and read.
func (s *Session) SettleDelayMS() uint32 {
	return s.settle
}

// Measure runs one cycle: trigger a forced conversion, wait the settle delay,
// then read all three channels in one burst. Any bus error aborts the cycle
// and is reported as ErrBusFault.
func (s *Session) Measure() (env.Sample, error) {
	if err := s.dev.StartForced(); err != nil {
		return env.Sample{}, fmt.Errorf("%w: %w", ErrBusFault, err)
	}

	s.d.Delay(s.settle)

	var e physic.Env
	if err := s.dev.ReadCompensated(&e); err != nil {
		return env.Sample{}, fmt.Errorf("%w: %w", ErrBusFault, err)
	}
	return env.FromPhysic(&e), nil
}

// Close halts the sensor and then closes the bus, reporting the first error.
func (s *Session) Close() error {
	err := s.dev.Halt()
	if s.closeFn != nil {
		if cerr := s.closeFn(); err == nil {
			err = cerr
		}
	}
	return err
}

func (s *Session) String() string {
	return fmt.Sprintf("%v osr_t=%v osr_p=%v osr_h=%v filter=%v settle=%dms",
		s.dev, s.opts.Temperature, s.opts.Pressure, s.opts.Humidity, s.opts.Filter, s.settle)
}
