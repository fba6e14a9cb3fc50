package config

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/relabs-tech/bme280_exporter/internal/bme280"
)

// Config holds all application configuration values.
type Config struct {
	// Exporter
	ListenAddr string
	BufferSize int // bytes reserved for one formatted response

	// Logging
	LogLevel  string
	LogFormat string // "console" or "json"

	// BME280 Hardware
	Driver     string // "registers" or "periph"
	Bus        string // "i2c" or "spi"
	BusDevice  string // i2creg/spireg name, e.g. /dev/i2c-1 or /dev/spidev0.0
	I2CAddr    uint16
	SPISpeedHz int64

	// BME280 Configuration
	// Oversampling: 1=1x, 2=2x, 3=4x, 4=8x, 5=16x
	TempOSR     byte
	PressureOSR byte
	HumidityOSR byte

	// IIR filter: 0=off, 1=2, 2=4, 3=8, 4=16
	IIRFilter byte
}

const (
	DriverRegisters = "registers"
	DriverPeriph    = "periph"

	BusI2C = "i2c"
	BusSPI = "spi"
)

// Defaults returns the configuration used for keys absent from the file.
func Defaults() *Config {
	return &Config{
		ListenAddr:  ":8888",
		BufferSize:  2048,
		LogLevel:    "info",
		LogFormat:   "console",
		Driver:      DriverRegisters,
		Bus:         BusI2C,
		BusDevice:   "/dev/i2c-1",
		I2CAddr:     bme280.AddrPrimary,
		SPISpeedHz:  5_000_000,
		TempOSR:     1,
		PressureOSR: 1,
		HumidityOSR: 1,
		IIRFilter:   0,
	}
}

// globalConfig is set once by InitGlobal and read through Get.
var (
	globalConfig *Config
	configOnce   sync.Once
	configMu     sync.RWMutex
)

// Load reads the configuration file and returns a Config struct.
func Load(configPath string) (*Config, error) {
	file, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	return Parse(file)
}

// Parse reads KEY=VALUE lines on top of Defaults. Blank lines and lines
// starting with # are ignored.
func Parse(r io.Reader) (*Config, error) {
	cfg := Defaults()
	scanner := bufio.NewScanner(r)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Parse KEY=VALUE
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid config line %d: %q", lineNum, line)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		if err := cfg.setValue(key, value); err != nil {
			return nil, fmt.Errorf("config line %d: %w", lineNum, err)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// setValue sets a config value based on the key.
func (c *Config) setValue(key, value string) error {
	switch key {
	// Exporter
	case "EXPORTER_LISTEN_ADDR":
		c.ListenAddr = value
	case "EXPORTER_BUFFER_SIZE":
		size, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid EXPORTER_BUFFER_SIZE %q: %w", value, err)
		}
		if size < 64 || size > 65536 {
			return fmt.Errorf("EXPORTER_BUFFER_SIZE must be 64-65536, got %d", size)
		}
		c.BufferSize = size

	// Logging
	case "LOG_LEVEL":
		level := strings.ToLower(value)
		if _, err := zerolog.ParseLevel(level); err != nil {
			return fmt.Errorf("invalid LOG_LEVEL %q: %w", value, err)
		}
		c.LogLevel = level
	case "LOG_FORMAT":
		switch value {
		case "console", "json":
			c.LogFormat = value
		default:
			return fmt.Errorf("LOG_FORMAT must be console or json, got %q", value)
		}

	// BME280 Hardware
	case "BME280_DRIVER":
		switch value {
		case DriverRegisters, DriverPeriph:
			c.Driver = value
		default:
			return fmt.Errorf("BME280_DRIVER must be %s or %s, got %q", DriverRegisters, DriverPeriph, value)
		}
	case "BME280_BUS":
		switch value {
		case BusI2C, BusSPI:
			c.Bus = value
		default:
			return fmt.Errorf("BME280_BUS must be %s or %s, got %q", BusI2C, BusSPI, value)
		}
	case "BME280_BUS_DEVICE":
		c.BusDevice = value
	case "BME280_I2C_ADDR":
		addr, err := strconv.ParseUint(value, 0, 16)
		if err != nil {
			return fmt.Errorf("invalid BME280_I2C_ADDR %q: %w", value, err)
		}
		if addr != uint64(bme280.AddrPrimary) && addr != uint64(bme280.AddrSecondary) {
			return fmt.Errorf("BME280_I2C_ADDR must be 0x%02x or 0x%02x, got 0x%02X", bme280.AddrPrimary, bme280.AddrSecondary, addr)
		}
		c.I2CAddr = uint16(addr)
	case "BME280_SPI_SPEED_HZ":
		hz, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid BME280_SPI_SPEED_HZ %q: %w", value, err)
		}
		if hz <= 0 || hz > 10_000_000 {
			return fmt.Errorf("BME280_SPI_SPEED_HZ must be 1-10000000, got %d", hz)
		}
		c.SPISpeedHz = hz

	// BME280 Configuration
	case "BME280_TEMP_OSR":
		return setOSR(&c.TempOSR, key, value)
	case "BME280_PRESSURE_OSR":
		return setOSR(&c.PressureOSR, key, value)
	case "BME280_HUMIDITY_OSR":
		return setOSR(&c.HumidityOSR, key, value)
	case "BME280_IIR_FILTER":
		val, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid BME280_IIR_FILTER %q: %w", value, err)
		}
		if val < 0 || val > 4 {
			return fmt.Errorf("BME280_IIR_FILTER must be 0-4 (0=off, 1=2, 2=4, 3=8, 4=16), got %d", val)
		}
		c.IIRFilter = byte(val)

	default:
		return fmt.Errorf("unknown config key: %q", key)
	}

	return nil
}

// setOSR parses an oversampling code. Skipping a channel (0) is not allowed
// since every channel is exported.
func setOSR(dst *byte, key, value string) error {
	val, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	if val < 1 || val > 5 {
		return fmt.Errorf("%s must be 1-5 (1=1x, 2=2x, 3=4x, 4=8x, 5=16x), got %d", key, val)
	}
	*dst = byte(val)
	return nil
}

// validate checks that all required fields are set.
func (c *Config) validate() error {
	if c.ListenAddr == "" {
		return fmt.Errorf("EXPORTER_LISTEN_ADDR is required")
	}
	if c.BusDevice == "" {
		return fmt.Errorf("BME280_BUS_DEVICE is required")
	}
	return nil
}

// InitGlobal initializes the global configuration from file.
// Uses sync.Once to ensure this only runs once, even if called multiple times.
func InitGlobal(configPath string) error {
	var err error
	configOnce.Do(func() {
		configMu.Lock()
		defer configMu.Unlock()
		globalConfig, err = Load(configPath)
	})
	return err
}

// Get returns the global configuration instance.
// InitGlobal must be called first, or this will return nil.
func Get() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return globalConfig
}
