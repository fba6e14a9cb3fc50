// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package bme280

import "time"

// Datasheet appendix B, maximum measurement time, in microseconds.
const (
	measOffsetUS        = 1250
	measPerSampleUS     = 2300
	measPresHumOffsetUS = 575
)

// MeasurementTime is the worst case conversion time of one forced
// measurement with the given settings. A skipped channel adds nothing. The
// IIR filter is applied after conversion and does not lengthen it.
func MeasurementTime(o *Opts) time.Duration {
	us := measOffsetUS + measPerSampleUS*o.Temperature.Factor()
	if o.Pressure != Skipped {
		us += measPerSampleUS*o.Pressure.Factor() + measPresHumOffsetUS
	}
	if o.Humidity != Skipped {
		us += measPerSampleUS*o.Humidity.Factor() + measPresHumOffsetUS
	}
	return time.Duration(us) * time.Microsecond
}

// SettleDelayMS rounds MeasurementTime up to whole milliseconds so the
// result is never read before the conversion completes.
func SettleDelayMS(o *Opts) uint32 {
	d := MeasurementTime(o)
	return uint32((d + time.Millisecond - 1) / time.Millisecond)
}
