package env

import (
	"math"
	"testing"

	"periph.io/x/conn/v3/physic"
)

func TestFromPhysic(t *testing.T) {
	e := physic.Env{
		Temperature: physic.ZeroCelsius + 25*physic.Kelvin,
		Pressure:    101325 * physic.Pascal,
		Humidity:    45 * physic.PercentRH,
	}
	s := FromPhysic(&e)

	if math.Abs(s.Temperature-25) > 1e-9 {
		t.Fatalf("Temperature=%v, want 25", s.Temperature)
	}
	if s.Pressure != 101325 {
		t.Fatalf("Pressure=%v, want 101325", s.Pressure)
	}
	if s.Humidity != 45 {
		t.Fatalf("Humidity=%v, want 45", s.Humidity)
	}
	if s.PressureHPa() != 1013.25 {
		t.Fatalf("PressureHPa()=%v, want 1013.25", s.PressureHPa())
	}
}
