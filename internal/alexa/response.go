package alexa

// Response is the outbound envelope for both success and error replies.
type Response struct {
	Context *Context `json:"context,omitempty"`
	Event   Event    `json:"event"`
}

type Context struct {
	Properties []Property `json:"properties"`
}

type Property struct {
	Namespace                 string `json:"namespace"`
	Name                      string `json:"name"`
	Value                     any    `json:"value"`
	TimeOfSample              string `json:"timeOfSample"`
	UncertaintyInMilliseconds int64  `json:"uncertaintyInMilliseconds"`
}

type Temperature struct {
	Value float64 `json:"value"`
	Scale string  `json:"scale"`
}

// Reading is a reported temperature. Value is null when unknown.
type Reading struct {
	Value *float64 `json:"value"`
	Scale string   `json:"scale"`
}

type Event struct {
	Header   ResponseHeader    `json:"header"`
	Endpoint *ResponseEndpoint `json:"endpoint,omitempty"`
	Payload  any               `json:"payload"`
}

// ResponseHeader always carries correlationToken, empty when the directive
// had none.
type ResponseHeader struct {
	Namespace        string `json:"namespace"`
	Name             string `json:"name"`
	MessageID        string `json:"messageId"`
	PayloadVersion   string `json:"payloadVersion"`
	CorrelationToken string `json:"correlationToken"`
}

type ResponseEndpoint struct {
	Scope      *Scope `json:"scope,omitempty"`
	EndpointID string `json:"endpointId"`
}

type ErrorPayload struct {
	Type       ErrorType   `json:"type"`
	Message    string      `json:"message"`
	ValidRange *ValidRange `json:"validRange,omitempty"`
}

type ValidRange struct {
	MinimumValue Temperature `json:"minimumValue"`
	MaximumValue Temperature `json:"maximumValue"`
}

type DiscoveryPayload struct {
	Endpoints []DiscoveryEndpoint `json:"endpoints"`
}

type DiscoveryEndpoint struct {
	EndpointID        string         `json:"endpointId"`
	FriendlyName      string         `json:"friendlyName"`
	Description       string         `json:"description"`
	ManufacturerName  string         `json:"manufacturerName"`
	DisplayCategories []string       `json:"displayCategories"`
	Cookie            map[string]any `json:"cookie"`
	Capabilities      []Capability   `json:"capabilities"`
}

type Capability struct {
	Type          string                   `json:"type"`
	Interface     string                   `json:"interface"`
	Version       string                   `json:"version"`
	Properties    CapabilityProperties     `json:"properties"`
	Configuration *ThermostatConfiguration `json:"configuration,omitempty"`
}

type CapabilityProperties struct {
	Supported           []SupportedProperty `json:"supported"`
	ProactivelyReported bool                `json:"proactivelyReported"`
	Retrievable         bool                `json:"retrievable"`
}

type SupportedProperty struct {
	Name string `json:"name"`
}

type ThermostatConfiguration struct {
	SupportsScheduling bool     `json:"supportsScheduling"`
	SupportedModes     []string `json:"supportedModes"`
}
