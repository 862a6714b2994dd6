package application

import (
	"math"

	"alexa-climate-bridge/internal/domain"
)

// IsOff reports whether the thermostat is switched off.
func IsOff(s *domain.EntityState) bool {
	return s.Off
}

// InRange checks v against inclusive bounds.
func InRange(v, min, max float64) bool {
	return min <= v && v <= max
}

// RoundTenth rounds to one decimal place, the precision used for every
// setpoint and delta.
func RoundTenth(v float64) float64 {
	return math.Round(v*10) / 10
}
