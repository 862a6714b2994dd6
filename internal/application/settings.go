package application

import (
	"slices"

	"alexa-climate-bridge/internal/domain"
)

const (
	ScaleCelsius    = "CELSIUS"
	ScaleFahrenheit = "FAHRENHEIT"
)

// ClimateSettings controls how directives are translated into service calls.
type ClimateSettings struct {
	Entities         []string
	DefaultModeForOn string
	Scale            string

	// RefetchAfterCommand reads the entity back after a thermostat command
	// instead of mirroring the change onto the snapshot.
	RefetchAfterCommand bool

	SetTemperatureService string
	SetModeService        string
	ModeField             string
}

func (s ClimateSettings) configured(entityID string) bool {
	return slices.Contains(s.Entities, entityID)
}

func (s ClimateSettings) setModeCall(entityID, mode string) domain.ServiceCall {
	return domain.ServiceCall{
		Service: s.SetModeService,
		Data: map[string]any{
			"entity_id": entityID,
			s.ModeField: mode,
		},
	}
}

func (s ClimateSettings) setTemperatureCall(entityID string, target float64) domain.ServiceCall {
	return domain.ServiceCall{
		Service: s.SetTemperatureService,
		Data: map[string]any{
			"entity_id":   entityID,
			"temperature": target,
		},
	}
}
