package homeassistant

import (
	"strconv"

	"alexa-climate-bridge/internal/domain"
)

func toEntityState(e entity) domain.EntityState {
	target, targetOK := reading(e.Attributes["temperature"])
	current, currentOK := reading(e.Attributes["current_temperature"])

	s := domain.EntityState{
		ID:                        e.EntityID,
		State:                     e.State,
		Off:                       domain.IsOffState(e.State),
		Binary:                    domain.ParseBinary(e.State),
		Temperature:               target,
		CurrentTemperature:        current,
		MinTemp:                   number(e.Attributes["min_temp"]),
		MaxTemp:                   number(e.Attributes["max_temp"]),
		LastUpdated:               e.LastUpdated,
		Attributes:                e.Attributes,
		TemperatureUnknown:        !targetOK,
		CurrentTemperatureUnknown: !currentOK,
	}

	if name, ok := e.Attributes["friendly_name"].(string); ok {
		s.FriendlyName = name
	}

	// Newer releases call the mode list hvac_modes.
	modes := stringList(e.Attributes["hvac_modes"])
	if len(modes) == 0 {
		modes = stringList(e.Attributes["operation_list"])
	}
	s.OperationList = modes

	return s
}

func number(v any) float64 {
	n, _ := reading(v)
	return n
}

// reading reports false for null, missing and unparseable values.
func reading(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

func stringList(v any) []string {
	list, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(list))
	for _, item := range list {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
