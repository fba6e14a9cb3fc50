package sensors

import (
	"errors"
	"math"
	"testing"

	"periph.io/x/devices/v3/bmxx80"

	"github.com/relabs-tech/bme280_exporter/internal/bme280"
	"github.com/relabs-tech/bme280_exporter/internal/bme280/bme280test"
	"github.com/relabs-tech/bme280_exporter/internal/bus/bustest"
	"github.com/relabs-tech/bme280_exporter/internal/config"
	"github.com/relabs-tech/bme280_exporter/internal/env"
)

const regCtrlMeas = 0xF4

func newTestSession(t *testing.T, opts bme280.Opts) (*Session, *bustest.Registers) {
	t.Helper()
	regs := bme280test.NewRegisters()
	s, err := NewSession(regs, bme280.AddrPrimary, opts)
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	regs.Reset()
	return s, regs
}

func TestSession_MeasureSequence(t *testing.T) {
	opts := bme280.Opts{Temperature: bme280.O2x, Pressure: bme280.O16x, Humidity: bme280.O1x, Filter: bme280.Filter16}
	s, regs := newTestSession(t, opts)

	if s.Addr() != bme280.AddrPrimary {
		t.Fatalf("Addr()=0x%02x, want 0x%02x", s.Addr(), bme280.AddrPrimary)
	}

	sample, err := s.Measure()
	if err != nil {
		t.Fatalf("Measure: %v", err)
	}

	ops := regs.Ops()
	if len(ops) != 3 {
		t.Fatalf("ops=%+v, want write, delay, read", ops)
	}
	if ops[0].Kind != bustest.OpWrite || ops[0].Reg != regCtrlMeas || ops[0].Data[0]&0x03 != byte(bme280.Forced) {
		t.Fatalf("ops[0]=%+v, want forced mode trigger", ops[0])
	}
	if ops[1].Kind != bustest.OpDelay || ops[1].MS != bme280.SettleDelayMS(&opts) {
		t.Fatalf("ops[1]=%+v, want delay of %dms", ops[1], bme280.SettleDelayMS(&opts))
	}
	if ops[2].Kind != bustest.OpRead || ops[2].Reg != 0xF7 || ops[2].N != 8 {
		t.Fatalf("ops[2]=%+v, want single 8 byte burst", ops[2])
	}

	if math.Abs(sample.Temperature-bme280test.WantTemperatureC) > 1e-3 {
		t.Fatalf("Temperature=%v, want %v", sample.Temperature, bme280test.WantTemperatureC)
	}
	if math.Abs(sample.Pressure-bme280test.WantPressurePa) > 1e-3 {
		t.Fatalf("Pressure=%v, want %v", sample.Pressure, bme280test.WantPressurePa)
	}
	if math.Abs(sample.Humidity-bme280test.WantHumidityRH) > 1e-3 {
		t.Fatalf("Humidity=%v, want %v", sample.Humidity, bme280test.WantHumidityRH)
	}
}

func TestSession_SettleDelayComputedOnce(t *testing.T) {
	opts := bme280.Opts{Temperature: bme280.O16x, Pressure: bme280.O16x, Humidity: bme280.O16x}
	s, regs := newTestSession(t, opts)

	for i := 0; i < 3; i++ {
		if _, err := s.Measure(); err != nil {
			t.Fatalf("Measure %d: %v", i, err)
		}
	}
	for _, op := range regs.Ops() {
		if op.Kind == bustest.OpDelay && op.MS != 113 {
			t.Fatalf("delay=%dms, want 113ms", op.MS)
		}
	}
	if s.SettleDelayMS() != 113 {
		t.Fatalf("SettleDelayMS()=%d, want 113", s.SettleDelayMS())
	}
}

func TestSession_WriteFaultStopsCycle(t *testing.T) {
	s, regs := newTestSession(t, bme280.DefaultOpts)
	regs.WriteHook = func(reg byte, data []byte) error { return bustest.ErrInjected }

	_, err := s.Measure()
	if !errors.Is(err, ErrBusFault) {
		t.Fatalf("err=%v, want ErrBusFault", err)
	}
	if !errors.Is(err, bustest.ErrInjected) {
		t.Fatalf("err=%v, want wrapped cause", err)
	}

	for _, op := range regs.Ops() {
		if op.Kind != bustest.OpWrite {
			t.Fatalf("cycle continued after failed trigger: %+v", regs.Ops())
		}
	}
}

func TestSession_ReadFaults(t *testing.T) {
	tests := []struct {
		name string
		hook func(reg byte, n int) (int, error)
	}{
		{"io error", func(reg byte, n int) (int, error) { return 0, bustest.ErrInjected }},
		{"short read", func(reg byte, n int) (int, error) { return n / 2, nil }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, regs := newTestSession(t, bme280.DefaultOpts)
			regs.ReadHook = tt.hook

			sample, err := s.Measure()
			if !errors.Is(err, ErrBusFault) {
				t.Fatalf("err=%v, want ErrBusFault", err)
			}
			if sample != (env.Sample{}) {
				t.Fatalf("partial sample returned: %+v", sample)
			}
		})
	}
}

func TestSession_Close(t *testing.T) {
	s, regs := newTestSession(t, bme280.DefaultOpts)
	closed := false
	s.closeFn = func() error { closed = true; return nil }

	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !closed {
		t.Fatal("bus was not closed")
	}
	if regs.Mem[regCtrlMeas]&0x03 != byte(bme280.Sleep) {
		t.Fatalf("ctrl_meas=0x%02X, want sleep mode", regs.Mem[regCtrlMeas])
	}
}

func TestOpts(t *testing.T) {
	cfg := config.Defaults()
	cfg.TempOSR, cfg.PressureOSR, cfg.HumidityOSR, cfg.IIRFilter = 2, 5, 3, 4

	got := Opts(cfg)
	want := bme280.Opts{Temperature: bme280.O2x, Pressure: bme280.O16x, Humidity: bme280.O4x, Filter: bme280.Filter16}
	if got != want {
		t.Fatalf("Opts()=%+v, want %+v", got, want)
	}
}

func TestPeriphOpts(t *testing.T) {
	got := periphOpts(bme280.Opts{Temperature: bme280.O1x, Pressure: bme280.O8x, Humidity: bme280.O16x, Filter: bme280.Filter4})
	want := bmxx80.Opts{Temperature: bmxx80.O1x, Pressure: bmxx80.O8x, Humidity: bmxx80.O16x, Filter: bmxx80.F4}
	if got != want {
		t.Fatalf("periphOpts()=%+v, want %+v", got, want)
	}
}
