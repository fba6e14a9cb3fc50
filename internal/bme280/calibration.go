// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package bme280

import (
	"encoding/binary"
	"fmt"
)

// calibration holds the factory trimming coefficients.
type calibration struct {
	t1 uint16
	t2 int16
	t3 int16

	p1 uint16
	p2 int16
	p3 int16
	p4 int16
	p5 int16
	p6 int16
	p7 int16
	p8 int16
	p9 int16

	h1 uint8
	h2 int16
	h3 uint8
	h4 int16
	h5 int16
	h6 int8
}

// parseCalibration decodes the 0x88..0xA1 and 0xE1..0xE7 blocks.
func parseCalibration(c00, c26 []byte) (calibration, error) {
	if len(c00) != calib00Len || len(c26) != calib26Len {
		return calibration{}, fmt.Errorf("bme280: calibration blocks are %d+%d bytes, want %d+%d",
			len(c00), len(c26), calib00Len, calib26Len)
	}
	le := binary.LittleEndian
	s16 := func(b []byte) int16 { return int16(le.Uint16(b)) }

	c := calibration{
		t1: le.Uint16(c00[0:]),
		t2: s16(c00[2:]),
		t3: s16(c00[4:]),
		p1: le.Uint16(c00[6:]),
		p2: s16(c00[8:]),
		p3: s16(c00[10:]),
		p4: s16(c00[12:]),
		p5: s16(c00[14:]),
		p6: s16(c00[16:]),
		p7: s16(c00[18:]),
		p8: s16(c00[20:]),
		p9: s16(c00[22:]),
		// c00[24] is reserved.
		h1: c00[25],
		h2: s16(c26[0:]),
		h3: c26[2],
		// dig_H4 and dig_H5 are 12 bit values sharing 0xE5.
		h4: int16(int8(c26[3]))<<4 | int16(c26[4]&0x0F),
		h5: int16(int8(c26[5]))<<4 | int16(c26[4]>>4),
		h6: int8(c26[6]),
	}
	if c.t1 == 0 || c.p1 == 0 {
		return calibration{}, fmt.Errorf("bme280: calibration data is blank (dig_T1=%d dig_P1=%d)", c.t1, c.p1)
	}
	return c, nil
}

// compensateTemperature returns °C and t_fine, which the other two
// channels depend on.
func (c *calibration) compensateTemperature(adc int32) (float64, float64) {
	x := float64(adc)
	var1 := (x/16384.0 - float64(c.t1)/1024.0) * float64(c.t2)
	d := x/131072.0 - float64(c.t1)/8192.0
	var2 := d * d * float64(c.t3)
	tFine := var1 + var2
	return tFine / 5120.0, tFine
}

// compensatePressure returns pascals.
func (c *calibration) compensatePressure(adc int32, tFine float64) float64 {
	var1 := tFine/2.0 - 64000.0
	var2 := var1 * var1 * float64(c.p6) / 32768.0
	var2 += var1 * float64(c.p5) * 2.0
	var2 = var2/4.0 + float64(c.p4)*65536.0
	var1 = (float64(c.p3)*var1*var1/524288.0 + float64(c.p2)*var1) / 524288.0
	var1 = (1.0 + var1/32768.0) * float64(c.p1)
	if var1 == 0 {
		// Avoid division by zero.
		return 0
	}
	p := 1048576.0 - float64(adc)
	p = (p - var2/4096.0) * 6250.0 / var1
	var1 = float64(c.p9) * p * p / 2147483648.0
	var2 = p * float64(c.p8) / 32768.0
	return p + (var1+var2+float64(c.p7))/16.0
}

// compensateHumidity returns %RH clamped to [0, 100].
func (c *calibration) compensateHumidity(adc int32, tFine float64) float64 {
	h := tFine - 76800.0
	h = (float64(adc) - (float64(c.h4)*64.0 + float64(c.h5)/16384.0*h)) *
		(float64(c.h2) / 65536.0 * (1.0 + float64(c.h6)/67108864.0*h*(1.0+float64(c.h3)/67108864.0*h)))
	h *= 1.0 - float64(c.h1)*h/524288.0
	switch {
	case h > 100:
		return 100
	case h < 0:
		return 0
	}
	return h
}

// rawSample holds the unsigned ADC outputs of one conversion.
type rawSample struct {
	press, temp, hum int32
}

// parseData decodes the 8 byte burst starting at press_msb.
func parseData(b []byte) (rawSample, error) {
	if len(b) != dataLen {
		return rawSample{}, fmt.Errorf("bme280: data block is %d bytes, want %d", len(b), dataLen)
	}
	u20 := func(b []byte) int32 {
		return int32(b[0])<<12 | int32(b[1])<<4 | int32(b[2])>>4
	}
	return rawSample{
		press: u20(b[0:3]),
		temp:  u20(b[3:6]),
		hum:   int32(b[6])<<8 | int32(b[7]),
	}, nil
}
