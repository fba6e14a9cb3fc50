// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package bme280test provides a register image of a BME280 with known
// calibration and one captured conversion.
package bme280test

import (
	"encoding/hex"

	"github.com/relabs-tech/bme280_exporter/internal/bus/bustest"
)

// Register image. The temperature and pressure trimming values are the
// worked example from the Bosch BMP280 datasheet.
const (
	calib00Hex = "706b436718fc7d8e43d6d00b270b8c00f9ff8c3cf8c67017004b"
	calib26Hex = "6a01001329031e"
	// adc_P=415148, adc_T=519888, adc_H=30000
	dataHex = "655ac07eed007530"
)

// Compensated values of the captured conversion.
const (
	WantTemperatureC = 25.08247793081682
	WantPressurePa   = 100653.26677582515
	WantHumidityRH   = 55.00071477602678
)

// NewRegisters returns a register file that passes the startup handshake and
// holds the captured conversion in its data registers.
func NewRegisters() *bustest.Registers {
	return bustest.New(map[byte][]byte{
		0xD0: {0x60},
		0x88: mustHex(calib00Hex),
		0xE1: mustHex(calib26Hex),
		0xF7: mustHex(dataHex),
	})
}

func mustHex(s string) []byte {
	b, err := hex.DecodeString(s)
	if err != nil {
		panic(err)
	}
	return b
}
