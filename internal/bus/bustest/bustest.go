// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package bustest provides an in-memory register file implementing
// bus.Driver, for exercising sensor drivers without hardware.
package bustest

import (
	"errors"
	"fmt"
	"sync"
)

// ErrInjected is returned by hooks that simulate a bus failure.
var ErrInjected = errors.New("bustest: injected bus fault")

// OpKind identifies a recorded bus operation.
type OpKind int

const (
	OpRead OpKind = iota
	OpWrite
	OpDelay
)

func (k OpKind) String() string {
	switch k {
	case OpRead:
		return "read"
	case OpWrite:
		return "write"
	case OpDelay:
		return "delay"
	}
	return "unknown"
}

// Op is one recorded operation.
type Op struct {
	Kind OpKind
	Reg  byte
	Data []byte // written bytes for OpWrite
	N    int    // length for OpRead
	MS   uint32 // duration for OpDelay
}

// Registers is a 256-byte register file. Reads return consecutive bytes,
// writes store them. Hooks may fail or alter individual operations.
type Registers struct {
	mu  sync.Mutex
	Mem [256]byte
	ops []Op

	// WriteHook runs before a write is stored; a non-nil error aborts it.
	WriteHook func(reg byte, data []byte) error
	// ReadHook runs before a read; a non-nil error aborts it. It may also
	// shorten the returned slice by returning n < requested.
	ReadHook func(reg byte, n int) (int, error)
}

// New returns a register file preloaded with the given blocks.
func New(blocks map[byte][]byte) *Registers {
	r := &Registers{}
	for reg, b := range blocks {
		r.Load(reg, b)
	}
	return r
}

// Load copies b into the register file at reg.
func (r *Registers) Load(reg byte, b []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	copy(r.Mem[reg:], b)
}

// ReadReg implements bus.Driver.
func (r *Registers) ReadReg(reg byte, n int) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ops = append(r.ops, Op{Kind: OpRead, Reg: reg, N: n})
	if int(reg)+n > len(r.Mem) {
		return nil, fmt.Errorf("bustest: read 0x%02X+%d out of range", reg, n)
	}
	got := n
	if r.ReadHook != nil {
		var err error
		if got, err = r.ReadHook(reg, n); err != nil {
			return nil, err
		}
	}
	out := make([]byte, got)
	copy(out, r.Mem[reg:int(reg)+got])
	return out, nil
}

// WriteReg implements bus.Driver.
func (r *Registers) WriteReg(reg byte, data ...byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ops = append(r.ops, Op{Kind: OpWrite, Reg: reg, Data: append([]byte(nil), data...)})
	if r.WriteHook != nil {
		if err := r.WriteHook(reg, data); err != nil {
			return err
		}
	}
	copy(r.Mem[reg:], data)
	return nil
}

// Delay records the requested delay without sleeping.
func (r *Registers) Delay(ms uint32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ops = append(r.ops, Op{Kind: OpDelay, MS: ms})
}

// Ops returns a copy of the operation log.
func (r *Registers) Ops() []Op {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Op(nil), r.ops...)
}

// Reset clears the operation log.
func (r *Registers) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ops = nil
}
