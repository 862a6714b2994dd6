package domain

import (
	"fmt"
	"strings"
)

// ServiceCall is a Home Assistant service invocation, "climate.set_temperature"
// with its data.
type ServiceCall struct {
	Service string
	Data    map[string]any
}

// Split returns the service domain and name.
func (c ServiceCall) Split() (string, string, error) {
	d, name, ok := strings.Cut(c.Service, ".")
	if !ok || d == "" || name == "" {
		return "", "", fmt.Errorf("invalid service format: %s", c.Service)
	}
	return d, name, nil
}
