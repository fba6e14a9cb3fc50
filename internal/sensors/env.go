package sensors

import (
	"fmt"
	"io"

	"github.com/rs/zerolog"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/devices/v3/bmxx80"
	"periph.io/x/host/v3"

	"github.com/relabs-tech/bme280_exporter/internal/bme280"
	"github.com/relabs-tech/bme280_exporter/internal/bus"
	"github.com/relabs-tech/bme280_exporter/internal/config"
	"github.com/relabs-tech/bme280_exporter/internal/env"
)

// Opts maps the configured register codes onto driver settings.
func Opts(cfg *config.Config) bme280.Opts {
	return bme280.Opts{
		Temperature: bme280.Oversampling(cfg.TempOSR),
		Pressure:    bme280.Oversampling(cfg.PressureOSR),
		Humidity:    bme280.Oversampling(cfg.HumidityOSR),
		Filter:      bme280.Filter(cfg.IIRFilter),
	}
}

// Open initializes the periph host, opens the configured bus and brings up
// the sensor. Any failure here is fatal to the exporter.
func Open(cfg *config.Config, log zerolog.Logger) (EnvReader, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("periph host init: %w", err)
	}

	opts := Opts(cfg)
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	if cfg.Driver == config.DriverPeriph {
		return openPeriph(cfg, opts, log)
	}

	var (
		d   bus.Driver
		c   io.Closer
		err error
	)
	switch cfg.Bus {
	case config.BusSPI:
		var s *bus.SPI
		s, err = bus.OpenSPI(cfg.BusDevice, physic.Frequency(cfg.SPISpeedHz)*physic.Hertz)
		d, c = s, s
	default:
		var i *bus.I2C
		i, err = bus.OpenI2C(cfg.BusDevice, cfg.I2CAddr)
		d, c = i, i
	}
	if err != nil {
		return nil, err
	}

	s, err := NewSession(d, cfg.I2CAddr, opts)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("BME280 init on %s: %w", cfg.BusDevice, err)
	}
	s.closeFn = c.Close

	log.Info().
		Str("bus", cfg.Bus).
		Str("device", cfg.BusDevice).
		Str("address", fmt.Sprintf("0x%02x", s.Addr())).
		Str("chip_id", fmt.Sprintf("0x%02x", bme280.ChipID)).
		Uint32("settle_ms", s.SettleDelayMS()).
		Msgf("BME280 initialized: %s", s)
	return s, nil
}

// periphSensor reads through the periph bmxx80 driver, whose Sense runs
// trigger, wait and burst read as one call.
type periphSensor struct {
	dev    *bmxx80.Dev
	closer io.Closer
}

func openPeriph(cfg *config.Config, opts bme280.Opts, log zerolog.Logger) (EnvReader, error) {
	popts := periphOpts(opts)

	var (
		dev    *bmxx80.Dev
		closer io.Closer
	)
	switch cfg.Bus {
	case config.BusSPI:
		p, err := spireg.Open(cfg.BusDevice)
		if err != nil {
			return nil, fmt.Errorf("BME280 SPI open: %w", err)
		}
		if dev, err = bmxx80.NewSPI(p, &popts); err != nil {
			p.Close()
			return nil, fmt.Errorf("BME280 init: %w", err)
		}
		closer = p
	default:
		b, err := i2creg.Open(cfg.BusDevice)
		if err != nil {
			return nil, fmt.Errorf("BME280 I2C open: %w", err)
		}
		if dev, err = bmxx80.NewI2C(b, cfg.I2CAddr, &popts); err != nil {
			b.Close()
			return nil, fmt.Errorf("BME280 init: %w", err)
		}
		closer = b
	}

	log.Info().
		Str("bus", cfg.Bus).
		Str("device", cfg.BusDevice).
		Str("address", fmt.Sprintf("0x%02x", cfg.I2CAddr)).
		Msgf("BME280 initialized via periph: %s", dev)
	return &periphSensor{dev: dev, closer: closer}, nil
}

// periphOpts translates register codes into bmxx80 settings.
func periphOpts(o bme280.Opts) bmxx80.Opts {
	osr := map[bme280.Oversampling]bmxx80.Oversampling{
		bme280.Skipped: bmxx80.Off,
		bme280.O1x:     bmxx80.O1x,
		bme280.O2x:     bmxx80.O2x,
		bme280.O4x:     bmxx80.O4x,
		bme280.O8x:     bmxx80.O8x,
		bme280.O16x:    bmxx80.O16x,
	}
	filter := map[bme280.Filter]bmxx80.Filter{
		bme280.FilterOff: bmxx80.NoFilter,
		bme280.Filter2:   bmxx80.F2,
		bme280.Filter4:   bmxx80.F4,
		bme280.Filter8:   bmxx80.F8,
		bme280.Filter16:  bmxx80.F16,
	}
	return bmxx80.Opts{
		Temperature: osr[o.Temperature],
		Pressure:    osr[o.Pressure],
		Humidity:    osr[o.Humidity],
		Filter:      filter[o.Filter],
	}
}

// Measure runs one forced conversion through bmxx80.
func (p *periphSensor) Measure() (env.Sample, error) {
	var e physic.Env
	if err := p.dev.Sense(&e); err != nil {
		return env.Sample{}, fmt.Errorf("%w: BME280 sense: %w", ErrBusFault, err)
	}
	return env.FromPhysic(&e), nil
}

// Close halts the device and releases the bus.
func (p *periphSensor) Close() error {
	err := p.dev.Halt()
	if cerr := p.closer.Close(); err == nil {
		err = cerr
	}
	return err
}

var (
	_ EnvReader = (*Session)(nil)
	_ EnvReader = (*periphSensor)(nil)
)
