// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package bme280 drives a Bosch BME280 humidity/pressure/temperature sensor
// through a register-level bus.Driver.
//
// The package exposes the individual steps of a forced measurement
// (StartForced, then ReadCompensated after MeasurementTime) so that the
// caller owns the sequencing and the wait.
package bme280

import (
	"errors"
	"fmt"

	"periph.io/x/conn/v3/physic"

	"github.com/relabs-tech/bme280_exporter/internal/bus"
)

// ErrChipID is returned by New when the device does not identify as a BME280.
var ErrChipID = errors.New("bme280: unexpected chip id")

const (
	resetDelayMS   = 2
	nvmCopyRetries = 5
)

// Dev is an initialized BME280. It is not safe for concurrent use.
type Dev struct {
	d    bus.Driver
	opts Opts
	cal  calibration
}

// New resets the sensor, loads its calibration and programs opts, leaving it
// in sleep mode.
func New(d bus.Driver, opts *Opts) (*Dev, error) {
	if opts == nil {
		opts = &DefaultOpts
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	id, err := d.ReadReg(regChipID, 1)
	if err != nil {
		return nil, fmt.Errorf("bme280: read chip id: %w", err)
	}
	if len(id) != 1 || id[0] != ChipID {
		return nil, fmt.Errorf("%w: got %x, want 0x%02X", ErrChipID, id, ChipID)
	}

	if err := d.WriteReg(regReset, softResetCmd); err != nil {
		return nil, fmt.Errorf("bme280: soft reset: %w", err)
	}
	if err := waitNVMCopy(d); err != nil {
		return nil, err
	}

	c00, err := d.ReadReg(regCalib00, calib00Len)
	if err != nil {
		return nil, fmt.Errorf("bme280: read calibration 0x88: %w", err)
	}
	c26, err := d.ReadReg(regCalib26, calib26Len)
	if err != nil {
		return nil, fmt.Errorf("bme280: read calibration 0xE1: %w", err)
	}
	cal, err := parseCalibration(c00, c26)
	if err != nil {
		return nil, err
	}

	dev := &Dev{d: d, opts: *opts, cal: cal}

	// ctrl_hum only takes effect after the following ctrl_meas write.
	if err := d.WriteReg(regCtrlHum, opts.ctrlHum()); err != nil {
		return nil, fmt.Errorf("bme280: write ctrl_hum: %w", err)
	}
	if err := d.WriteReg(regConfig, opts.config()); err != nil {
		return nil, fmt.Errorf("bme280: write config: %w", err)
	}
	if err := d.WriteReg(regCtrlMeas, opts.ctrlMeas(Sleep)); err != nil {
		return nil, fmt.Errorf("bme280: write ctrl_meas: %w", err)
	}
	return dev, nil
}

// waitNVMCopy waits for the calibration copy that follows a reset.
func waitNVMCopy(d bus.Driver) error {
	for i := 0; i < nvmCopyRetries; i++ {
		d.Delay(resetDelayMS)
		st, err := d.ReadReg(regStatus, 1)
		if err != nil {
			return fmt.Errorf("bme280: read status: %w", err)
		}
		if len(st) == 1 && st[0]&statusIMUpdate == 0 {
			return nil
		}
	}
	return fmt.Errorf("bme280: NVM copy still running after %d ms", nvmCopyRetries*resetDelayMS)
}

// Opts returns the settings programmed by New.
func (dev *Dev) Opts() Opts {
	return dev.opts
}

// StartForced triggers one conversion with a single ctrl_meas write. The
// result is valid after MeasurementTime.
func (dev *Dev) StartForced() error {
	if err := dev.d.WriteReg(regCtrlMeas, dev.opts.ctrlMeas(Forced)); err != nil {
		return fmt.Errorf("bme280: trigger forced mode: %w", err)
	}
	return nil
}

// ReadCompensated reads pressure, temperature and humidity in a single burst
// so that all three come from the same conversion, and compensates them.
func (dev *Dev) ReadCompensated(e *physic.Env) error {
	b, err := dev.d.ReadReg(regPressMSB, dataLen)
	if err != nil {
		return fmt.Errorf("bme280: read data: %w", err)
	}
	raw, err := parseData(b)
	if err != nil {
		return err
	}

	t, tFine := dev.cal.compensateTemperature(raw.temp)
	p := dev.cal.compensatePressure(raw.press, tFine)
	h := dev.cal.compensateHumidity(raw.hum, tFine)

	e.Temperature = physic.ZeroCelsius + physic.Temperature(t*float64(physic.Kelvin))
	e.Pressure = physic.Pressure(p * float64(physic.Pascal))
	e.Humidity = physic.RelativeHumidity(h * float64(physic.PercentRH))
	return nil
}

// Halt puts the sensor back into sleep mode.
func (dev *Dev) Halt() error {
	if err := dev.d.WriteReg(regCtrlMeas, dev.opts.ctrlMeas(Sleep)); err != nil {
		return fmt.Errorf("bme280: halt: %w", err)
	}
	return nil
}

func (dev *Dev) String() string {
	return fmt.Sprintf("BME280{%v}", dev.d)
}
