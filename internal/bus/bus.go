// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package bus provides register-addressed access to a single sensor on a
// serial bus. Drivers above this layer only see ReadReg, WriteReg and Delay.
package bus

import (
	"fmt"
	"time"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
)

// Driver is the bus capability consumed by sensor drivers. The device
// address is bound when the Driver is opened.
type Driver interface {
	// ReadReg reads n consecutive registers starting at reg.
	ReadReg(reg byte, n int) ([]byte, error)
	// WriteReg writes data to consecutive registers starting at reg.
	WriteReg(reg byte, data ...byte) error
	// Delay blocks the caller for ms milliseconds.
	Delay(ms uint32)
}

// I2C is a Driver for one device on an I2C bus.
type I2C struct {
	dev    *i2c.Dev
	closer func() error
}

// NewI2C wraps an already opened bus. The bus is not closed by Close.
func NewI2C(b i2c.Bus, addr uint16) *I2C {
	return &I2C{dev: &i2c.Dev{Bus: b, Addr: addr}}
}

// OpenI2C opens the named bus (e.g. "/dev/i2c-1" or "1") and selects addr.
// host.Init must have been called.
func OpenI2C(name string, addr uint16) (*I2C, error) {
	b, err := i2creg.Open(name)
	if err != nil {
		return nil, fmt.Errorf("i2c open %q: %w", name, err)
	}
	d := NewI2C(b, addr)
	d.closer = b.Close
	return d, nil
}

// ReadReg writes the start register then reads n bytes in one transaction.
func (d *I2C) ReadReg(reg byte, n int) ([]byte, error) {
	r := make([]byte, n)
	if err := d.dev.Tx([]byte{reg}, r); err != nil {
		return nil, fmt.Errorf("i2c read 0x%02X (%d bytes) at 0x%02X: %w", reg, n, d.dev.Addr, err)
	}
	return r, nil
}

// WriteReg sends (register, value) pairs; Bosch sensors do not auto-increment
// on write.
func (d *I2C) WriteReg(reg byte, data ...byte) error {
	w := pairs(reg, data, 0xFF)
	n, err := d.dev.Write(w)
	if err != nil {
		return fmt.Errorf("i2c write 0x%02X at 0x%02X: %w", reg, d.dev.Addr, err)
	}
	if n != len(w) {
		return fmt.Errorf("i2c write 0x%02X at 0x%02X: short write %d/%d", reg, d.dev.Addr, n, len(w))
	}
	return nil
}

// Delay sleeps for ms milliseconds.
func (d *I2C) Delay(ms uint32) {
	time.Sleep(time.Duration(ms) * time.Millisecond)
}

// Close releases the bus if it was opened by OpenI2C.
func (d *I2C) Close() error {
	if d.closer == nil {
		return nil
	}
	return d.closer()
}

func (d *I2C) String() string {
	return fmt.Sprintf("i2c(%s, 0x%02x)", d.dev.Bus, d.dev.Addr)
}

// SPI is a Driver for a device on a 4-wire SPI port. Bit 7 of the register
// byte selects read (1) or write (0).
type SPI struct {
	conn spi.Conn
	port spi.PortCloser
}

// OpenSPI opens the named SPI port (e.g. "/dev/spidev0.0") in mode 3.
// host.Init must have been called.
func OpenSPI(name string, speed physic.Frequency) (*SPI, error) {
	p, err := spireg.Open(name)
	if err != nil {
		return nil, fmt.Errorf("spi open %q: %w", name, err)
	}
	c, err := p.Connect(speed, spi.Mode3, 8)
	if err != nil {
		p.Close()
		return nil, fmt.Errorf("spi connect %q: %w", name, err)
	}
	return &SPI{conn: c, port: p}, nil
}

// ReadReg clocks out the register with the read bit set followed by n dummy
// bytes.
func (s *SPI) ReadReg(reg byte, n int) ([]byte, error) {
	w := make([]byte, n+1)
	r := make([]byte, n+1)
	w[0] = reg | 0x80
	if err := s.conn.Tx(w, r); err != nil {
		return nil, fmt.Errorf("spi read 0x%02X (%d bytes): %w", reg, n, err)
	}
	return r[1:], nil
}

// WriteReg sends (register, value) pairs with the read bit cleared.
func (s *SPI) WriteReg(reg byte, data ...byte) error {
	w := pairs(reg, data, 0x7F)
	if err := s.conn.Tx(w, nil); err != nil {
		return fmt.Errorf("spi write 0x%02X: %w", reg, err)
	}
	return nil
}

// Delay sleeps for ms milliseconds.
func (s *SPI) Delay(ms uint32) {
	time.Sleep(time.Duration(ms) * time.Millisecond)
}

// Close releases the SPI port.
func (s *SPI) Close() error {
	return s.port.Close()
}

func (s *SPI) String() string {
	return fmt.Sprintf("spi(%s)", s.port)
}

// pairs interleaves consecutive register addresses with data bytes.
func pairs(reg byte, data []byte, mask byte) []byte {
	w := make([]byte, 0, 2*len(data))
	for i, b := range data {
		w = append(w, (reg+byte(i))&mask, b)
	}
	return w
}
