package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseDefaults(t *testing.T) {
	cfg, err := Parse(strings.NewReader("# only comments\n\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.ListenAddr != ":8888" {
		t.Fatalf("ListenAddr=%q, want :8888", cfg.ListenAddr)
	}
	if cfg.I2CAddr != 0x76 {
		t.Fatalf("I2CAddr=0x%02X, want 0x76", cfg.I2CAddr)
	}
	if cfg.BufferSize != 2048 {
		t.Fatalf("BufferSize=%d, want 2048", cfg.BufferSize)
	}
	if cfg.TempOSR != 1 || cfg.PressureOSR != 1 || cfg.HumidityOSR != 1 || cfg.IIRFilter != 0 {
		t.Fatalf("unexpected sensor defaults: %+v", cfg)
	}
}

func TestParseOverrides(t *testing.T) {
	in := `
EXPORTER_LISTEN_ADDR = 127.0.0.1:9100
EXPORTER_BUFFER_SIZE=4096
LOG_LEVEL=DEBUG
LOG_FORMAT=json
BME280_DRIVER=periph
BME280_BUS=spi
BME280_BUS_DEVICE=/dev/spidev0.0
BME280_I2C_ADDR=0x77
BME280_SPI_SPEED_HZ=1000000
BME280_TEMP_OSR=2
BME280_PRESSURE_OSR=5
BME280_HUMIDITY_OSR=1
BME280_IIR_FILTER=4
`
	cfg, err := Parse(strings.NewReader(in))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	want := Config{
		ListenAddr:  "127.0.0.1:9100",
		BufferSize:  4096,
		LogLevel:    "debug",
		LogFormat:   "json",
		Driver:      DriverPeriph,
		Bus:         BusSPI,
		BusDevice:   "/dev/spidev0.0",
		I2CAddr:     0x77,
		SPISpeedHz:  1_000_000,
		TempOSR:     2,
		PressureOSR: 5,
		HumidityOSR: 1,
		IIRFilter:   4,
	}
	if *cfg != want {
		t.Fatalf("cfg=%+v, want %+v", *cfg, want)
	}
}

func TestParseRejects(t *testing.T) {
	tests := []struct {
		name string
		line string
	}{
		{"missing equals", "BME280_BUS"},
		{"unknown key", "BME280_MODE=1"},
		{"skipped oversampling", "BME280_TEMP_OSR=0"},
		{"oversampling too high", "BME280_HUMIDITY_OSR=6"},
		{"filter too high", "BME280_IIR_FILTER=5"},
		{"bad address", "BME280_I2C_ADDR=0x40"},
		{"address not a number", "BME280_I2C_ADDR=left"},
		{"tiny buffer", "EXPORTER_BUFFER_SIZE=8"},
		{"bad driver", "BME280_DRIVER=kernel"},
		{"bad bus", "BME280_BUS=uart"},
		{"bad log level", "LOG_LEVEL=loud"},
		{"bad log format", "LOG_FORMAT=xml"},
		{"empty device", "BME280_BUS_DEVICE="},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse(strings.NewReader(tt.line)); err == nil {
				t.Fatalf("Parse(%q) succeeded, want error", tt.line)
			}
		})
	}
}

func TestParseReportsLineNumber(t *testing.T) {
	_, err := Parse(strings.NewReader("# header\nBME280_BUS=i2c\nNOPE=1\n"))
	if err == nil || !strings.Contains(err.Error(), "line 3") {
		t.Fatalf("err=%v, want mention of line 3", err)
	}
}

func TestLoadAndInitGlobal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bme280_config.txt")
	if err := os.WriteFile(path, []byte("BME280_I2C_ADDR=0x77\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.I2CAddr != 0x77 {
		t.Fatalf("I2CAddr=0x%02X, want 0x77", cfg.I2CAddr)
	}

	if err := InitGlobal(path); err != nil {
		t.Fatalf("InitGlobal: %v", err)
	}
	if Get() == nil || Get().I2CAddr != 0x77 {
		t.Fatalf("Get()=%+v", Get())
	}
	// A second call is a no-op.
	if err := InitGlobal(filepath.Join(t.TempDir(), "missing.txt")); err != nil {
		t.Fatalf("second InitGlobal: %v", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.txt")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
