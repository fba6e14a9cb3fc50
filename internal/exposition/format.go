// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package exposition renders a BME280 sample in the Prometheus text format.
package exposition

import (
	"errors"
	"strconv"

	"github.com/relabs-tech/bme280_exporter/internal/env"
)

// ErrTruncated is returned when the output does not fit the buffer.
var ErrTruncated = errors.New("exposition: output exceeds buffer capacity")

// ContentType is the media type of Format's output.
const ContentType = "text/plain; version=0.0.4; charset=utf-8"

// Descriptor describes one exported gauge.
type Descriptor struct {
	Name string
	Help string
	Type string
	Unit string

	// Value extracts the rendered value from a sample.
	Value func(env.Sample) float64
}

// Descriptors lists the exported gauges in output order.
var Descriptors = [...]Descriptor{
	{
		Name:  "bme280_temperature",
		Help:  "Temperature in degrees Celsius.",
		Type:  "gauge",
		Unit:  "celsius",
		Value: func(s env.Sample) float64 { return s.Temperature },
	},
	{
		Name:  "bme280_pressure",
		Help:  "Barometric pressure in hectopascals.",
		Type:  "gauge",
		Unit:  "hectopascals",
		Value: env.Sample.PressureHPa,
	},
	{
		Name:  "bme280_humidity",
		Help:  "Relative humidity in percent.",
		Type:  "gauge",
		Unit:  "percent",
		Value: func(s env.Sample) float64 { return s.Humidity },
	},
}

// scratchSize covers the three metrics with room to spare, so Format does
// not allocate for realistic values.
const scratchSize = 512

// Format writes the exposition text for s into buf and returns the number of
// bytes written. If the text would not fit in len(buf), it returns 0 and
// ErrTruncated and buf is left unmodified.
func Format(buf []byte, deviceAddr uint16, s env.Sample) (int, error) {
	var scratch [scratchSize]byte
	out := Append(scratch[:0], deviceAddr, s)
	if len(out) > len(buf) {
		return 0, ErrTruncated
	}
	return copy(buf, out), nil
}

// Append appends the exposition text for s to b.
func Append(b []byte, deviceAddr uint16, s env.Sample) []byte {
	for i := range Descriptors {
		b = appendMetric(b, &Descriptors[i], deviceAddr, s)
	}
	return b
}

// appendMetric writes the HELP, TYPE and sample lines of one gauge.
func appendMetric(b []byte, d *Descriptor, deviceAddr uint16, s env.Sample) []byte {
	b = append(b, "# HELP "...)
	b = append(b, d.Name...)
	b = append(b, ' ')
	b = append(b, d.Help...)
	b = append(b, '\n')

	b = append(b, "# TYPE "...)
	b = append(b, d.Name...)
	b = append(b, ' ')
	b = append(b, d.Type...)
	b = append(b, '\n')

	b = append(b, d.Name...)
	b = append(b, `{device_address="0x`...)
	b = appendHex2(b, deviceAddr)
	b = append(b, `"} `...)
	b = strconv.AppendFloat(b, d.Value(s), 'f', 2, 64)
	b = append(b, '\n')
	return b
}

// appendHex2 renders v in lowercase hex, zero padded to at least 2 digits.
func appendHex2(b []byte, v uint16) []byte {
	if v < 0x10 {
		b = append(b, '0')
	}
	return strconv.AppendUint(b, uint64(v), 16)
}
