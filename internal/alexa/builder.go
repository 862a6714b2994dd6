package alexa

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"alexa-climate-bridge/internal/domain"
)

const timeOfSampleLayout = "2006-01-02T15:04:05.000Z07:00"

// DeviceInfo is advertised for every discovered endpoint.
type DeviceInfo struct {
	Manufacturer string
	Description  string
}

// Builder constructs response envelopes. It is safe for concurrent use.
type Builder struct {
	device DeviceInfo
	now    func() time.Time
	newID  func() string
}

type BuilderOption func(*Builder)

// WithClock replaces the clock used for timeOfSample and uncertainty.
func WithClock(now func() time.Time) BuilderOption {
	return func(b *Builder) { b.now = now }
}

// WithIDGenerator replaces the message id generator.
func WithIDGenerator(newID func() string) BuilderOption {
	return func(b *Builder) { b.newID = newID }
}

func NewBuilder(device DeviceInfo, opts ...BuilderOption) *Builder {
	b := &Builder{
		device: device,
		now:    time.Now,
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *Builder) header(namespace, name, correlationToken string) ResponseHeader {
	return ResponseHeader{
		Namespace:        namespace,
		Name:             name,
		MessageID:        b.newID(),
		PayloadVersion:   PayloadVersion,
		CorrelationToken: correlationToken,
	}
}

// Discovery lists one endpoint per entity.
func (b *Builder) Discovery(entities []domain.EntityState) *Response {
	endpoints := make([]DiscoveryEndpoint, 0, len(entities))
	for i := range entities {
		endpoints = append(endpoints, b.discoveryEndpoint(&entities[i]))
	}

	return &Response{
		Event: Event{
			Header:  b.header(NamespaceDiscovery, "Discover.Response", ""),
			Payload: DiscoveryPayload{Endpoints: endpoints},
		},
	}
}

func (b *Builder) discoveryEndpoint(s *domain.EntityState) DiscoveryEndpoint {
	modes := make([]string, 0, len(s.OperationList))
	for _, m := range s.OperationList {
		modes = append(modes, strings.ToUpper(m))
	}

	return DiscoveryEndpoint{
		EndpointID:        EndpointID(s.ID),
		FriendlyName:      s.Name(),
		Description:       b.device.Description,
		ManufacturerName:  b.device.Manufacturer,
		DisplayCategories: []string{"THERMOSTAT", "TEMPERATURE_SENSOR"},
		Cookie:            map[string]any{},
		Capabilities: []Capability{
			{
				Type:       "AlexaInterface",
				Interface:  NamespaceThermostat,
				Version:    PayloadVersion,
				Properties: capabilityProperties("targetSetpoint", "thermostatMode"),
				Configuration: &ThermostatConfiguration{
					SupportsScheduling: false,
					SupportedModes:     modes,
				},
			},
			{
				Type:       "AlexaInterface",
				Interface:  NamespaceSensor,
				Version:    PayloadVersion,
				Properties: capabilityProperties("temperature"),
			},
			{
				Type:       "AlexaInterface",
				Interface:  NamespacePower,
				Version:    PayloadVersion,
				Properties: capabilityProperties("powerState"),
			},
		},
	}
}

func capabilityProperties(names ...string) CapabilityProperties {
	supported := make([]SupportedProperty, 0, len(names))
	for _, n := range names {
		supported = append(supported, SupportedProperty{Name: n})
	}
	return CapabilityProperties{
		Supported:           supported,
		ProactivelyReported: true,
		Retrievable:         true,
	}
}

// StateReport answers ReportState with setpoint, mode, temperature and power.
func (b *Builder) StateReport(d EndpointDirective, s *domain.EntityState, scale string) *Response {
	sample := b.sampler(s)
	return &Response{
		Context: &Context{Properties: []Property{
			sample(NamespaceThermostat, "targetSetpoint", reading(s.Temperature, s.TemperatureUnknown, scale)),
			sample(NamespaceThermostat, "thermostatMode", strings.ToUpper(s.State)),
			sample(NamespaceSensor, "temperature", reading(s.CurrentTemperature, s.CurrentTemperatureUnknown, scale)),
			sample(NamespacePower, "powerState", powerState(s)),
		}},
		Event: Event{
			Header:   b.header(NamespaceAlexa, "StateReport", d.CorrelationToken),
			Endpoint: &ResponseEndpoint{EndpointID: EndpointID(s.ID)},
			Payload:  struct{}{},
		},
	}
}

// PowerControl answers TurnOn and TurnOff.
func (b *Builder) PowerControl(d EndpointDirective, s *domain.EntityState) *Response {
	sample := b.sampler(s)
	scope := d.Scope
	return &Response{
		Context: &Context{Properties: []Property{
			sample(NamespacePower, "powerState", powerState(s)),
		}},
		Event: Event{
			Header: b.header(NamespaceAlexa, "Response", d.CorrelationToken),
			Endpoint: &ResponseEndpoint{
				Scope:      &scope,
				EndpointID: EndpointID(s.ID),
			},
			Payload: struct{}{},
		},
	}
}

// ThermostatControl answers the setpoint and mode directives.
func (b *Builder) ThermostatControl(d EndpointDirective, s *domain.EntityState, scale string) *Response {
	sample := b.sampler(s)
	return &Response{
		Context: &Context{Properties: []Property{
			sample(NamespaceThermostat, "targetSetpoint", reading(s.Temperature, s.TemperatureUnknown, scale)),
			sample(NamespaceThermostat, "thermostatMode", strings.ToUpper(s.State)),
		}},
		Event: Event{
			Header:   b.header(NamespaceAlexa, "Response", d.CorrelationToken),
			Endpoint: &ResponseEndpoint{EndpointID: EndpointID(s.ID)},
			Payload:  struct{}{},
		},
	}
}

// Error builds an ErrorResponse. Directives addressing an endpoint get their
// correlation token and endpoint id copied; anything else, nil included,
// gets empty placeholders.
func (b *Builder) Error(d Directive, e *Error) *Response {
	var token, endpointID string
	if eb, ok := d.(EndpointBearer); ok {
		ep := eb.Endpoint()
		token, endpointID = ep.CorrelationToken, ep.EndpointID
	}

	namespace := e.Namespace
	if namespace == "" {
		namespace = NamespaceAlexa
	}

	return &Response{
		Event: Event{
			Header:   b.header(namespace, "ErrorResponse", token),
			Endpoint: &ResponseEndpoint{EndpointID: endpointID},
			Payload: ErrorPayload{
				Type:       e.Type,
				Message:    e.Message,
				ValidRange: e.ValidRange,
			},
		},
	}
}

// sampler stamps every property of one response with the same sample time.
func (b *Builder) sampler(s *domain.EntityState) func(namespace, name string, value any) Property {
	now := b.now().UTC()
	var uncertainty int64
	if !s.LastUpdated.IsZero() {
		uncertainty = max(now.Sub(s.LastUpdated).Milliseconds(), 0)
	}
	stamp := now.Format(timeOfSampleLayout)

	return func(namespace, name string, value any) Property {
		return Property{
			Namespace:                 namespace,
			Name:                      name,
			Value:                     value,
			TimeOfSample:              stamp,
			UncertaintyInMilliseconds: uncertainty,
		}
	}
}

func reading(v float64, unknown bool, scale string) Reading {
	if unknown {
		return Reading{Scale: scale}
	}
	return Reading{Value: &v, Scale: scale}
}

func powerState(s *domain.EntityState) string {
	if s.Off {
		return "OFF"
	}
	return "ON"
}
