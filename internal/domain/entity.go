package domain

import (
	"slices"
	"strings"
	"time"
)

// EntityState is a snapshot of one Home Assistant entity as the bridge sees it.
type EntityState struct {
	ID                 string
	State              string
	Off                bool
	Binary             BinaryState
	Temperature        float64
	CurrentTemperature float64
	MinTemp            float64
	MaxTemp            float64
	OperationList      []string
	FriendlyName       string
	LastUpdated        time.Time
	Attributes         map[string]any

	// Set when Home Assistant reports no value, as it does for the
	// setpoint of a climate entity that is off.
	TemperatureUnknown        bool
	CurrentTemperatureUnknown bool
}

// Domain returns the entity domain, "climate" for "climate.bedroom".
func (s *EntityState) Domain() string {
	d, _, _ := strings.Cut(s.ID, ".")
	return d
}

// Name returns the friendly name, falling back to the entity id.
func (s *EntityState) Name() string {
	if s.FriendlyName != "" {
		return s.FriendlyName
	}
	return s.ID
}

// ApplyMode mirrors a mode change onto the snapshot without re-reading it.
func (s *EntityState) ApplyMode(mode string) {
	s.State = mode
	s.Off = IsOffState(mode)
	s.Binary = ParseBinary(mode)
}

// ApplyTargetTemperature mirrors a setpoint change onto the snapshot.
func (s *EntityState) ApplyTargetTemperature(t float64) {
	s.Temperature = t
	s.TemperatureUnknown = false
}

// SupportsMode reports whether mode is in the operation list. An empty list
// means the entity did not advertise its modes and anything is accepted.
func (s *EntityState) SupportsMode(mode string) bool {
	if len(s.OperationList) == 0 {
		return true
	}
	return slices.ContainsFunc(s.OperationList, func(m string) bool {
		return strings.EqualFold(m, mode)
	})
}

// IsOffState reports whether a raw state string means the entity is off.
func IsOffState(state string) bool {
	return strings.EqualFold(strings.TrimSpace(state), "off")
}
