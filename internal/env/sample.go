package env

import "periph.io/x/conn/v3/physic"

// Sample is one compensated BME280 reading, produced fresh per scrape.
type Sample struct {
	Temperature float64 `json:"temp_c"`      // °C
	Pressure    float64 `json:"pressure_pa"` // Pa
	Humidity    float64 `json:"humidity_rh"` // %RH
}

// FromPhysic converts periph units into a Sample.
func FromPhysic(e *physic.Env) Sample {
	return Sample{
		Temperature: e.Temperature.Celsius(),
		Pressure:    float64(e.Pressure) / float64(physic.Pascal),
		Humidity:    float64(e.Humidity) / float64(physic.PercentRH),
	}
}

// PressureHPa returns the pressure in hectopascals (1 hPa = 100 Pa).
func (s Sample) PressureHPa() float64 {
	return s.Pressure / 100.0
}
