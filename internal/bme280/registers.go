// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package bme280

import "fmt"

// I2C addresses, selected by the SDO pin.
const (
	AddrPrimary   uint16 = 0x76
	AddrSecondary uint16 = 0x77
)

// ChipID is the content of regChipID on a BME280.
const ChipID byte = 0x60

const (
	regCalib00  byte = 0x88 // dig_T1 .. dig_H1
	regChipID   byte = 0xD0
	regReset    byte = 0xE0
	regCalib26  byte = 0xE1 // dig_H2 .. dig_H6
	regCtrlHum  byte = 0xF2
	regStatus   byte = 0xF3
	regCtrlMeas byte = 0xF4
	regConfig   byte = 0xF5
	regPressMSB byte = 0xF7 // press, temp, hum burst

	softResetCmd   byte = 0xB6
	statusIMUpdate byte = 0x01
)

const (
	calib00Len = 26
	calib26Len = 7
	dataLen    = 8
)

// Mode is the power mode in ctrl_meas[1:0].
type Mode byte

const (
	Sleep  Mode = 0x00
	Forced Mode = 0x01
	Normal Mode = 0x03
)

// Oversampling is the osrs_x register encoding.
type Oversampling byte

const (
	Skipped Oversampling = iota
	O1x
	O2x
	O4x
	O8x
	O16x
)

// Factor returns the number of samples taken per conversion.
func (o Oversampling) Factor() int {
	switch o {
	case O1x:
		return 1
	case O2x:
		return 2
	case O4x:
		return 4
	case O8x:
		return 8
	case O16x:
		return 16
	}
	return 0
}

func (o Oversampling) String() string {
	if o == Skipped {
		return "skipped"
	}
	if o > O16x {
		return fmt.Sprintf("Oversampling(%d)", byte(o))
	}
	return fmt.Sprintf("%dx", o.Factor())
}

// Filter is the IIR filter coefficient encoding in config[4:2].
type Filter byte

const (
	FilterOff Filter = iota
	Filter2
	Filter4
	Filter8
	Filter16
)

// Coefficient returns the filter coefficient, 1 meaning no filtering.
func (f Filter) Coefficient() int {
	if f > Filter16 {
		return 0
	}
	return 1 << f
}

func (f Filter) String() string {
	if f == FilterOff {
		return "off"
	}
	return fmt.Sprintf("%d", f.Coefficient())
}

// Opts are the measurement settings applied at startup.
type Opts struct {
	Temperature Oversampling
	Pressure    Oversampling
	Humidity    Oversampling
	Filter      Filter
}

// DefaultOpts is 1x on every channel with the filter off, the datasheet's
// "weather monitoring" profile.
var DefaultOpts = Opts{
	Temperature: O1x,
	Pressure:    O1x,
	Humidity:    O1x,
	Filter:      FilterOff,
}

// Validate rejects encodings the chip does not define, and skipped
// channels since every channel is read back.
func (o *Opts) Validate() error {
	for _, c := range []struct {
		name string
		v    Oversampling
	}{{"temperature", o.Temperature}, {"pressure", o.Pressure}, {"humidity", o.Humidity}} {
		if c.v == Skipped || c.v > O16x {
			return fmt.Errorf("bme280: %s oversampling %d out of range 1-5", c.name, byte(c.v))
		}
	}
	if o.Filter > Filter16 {
		return fmt.Errorf("bme280: filter %d out of range 0-4", byte(o.Filter))
	}
	return nil
}

func (o *Opts) ctrlHum() byte {
	return byte(o.Humidity) & 0x07
}

func (o *Opts) ctrlMeas(m Mode) byte {
	return byte(o.Temperature)<<5 | byte(o.Pressure)<<2 | byte(m)
}

// config leaves standby at 0.5ms; it only matters in normal mode.
func (o *Opts) config() byte {
	return byte(o.Filter) << 2
}
