package alexa

// Namespaces handled by the bridge.
const (
	NamespaceAlexa      = "Alexa"
	NamespaceDiscovery  = "Alexa.Discovery"
	NamespacePower      = "Alexa.PowerController"
	NamespaceThermostat = "Alexa.ThermostatController"
	NamespaceSensor     = "Alexa.TemperatureSensor"
)

// Directive names.
const (
	NameReportState       = "ReportState"
	NameDiscover          = "Discover"
	NameTurnOn            = "TurnOn"
	NameTurnOff           = "TurnOff"
	NameSetTargetTemp     = "SetTargetTemperature"
	NameAdjustTargetTemp  = "AdjustTargetTemperature"
	NameSetThermostatMode = "SetThermostatMode"
)

const PayloadVersion = "3"

// Header is shared by every directive variant.
type Header struct {
	Namespace      string
	Name           string
	PayloadVersion string
	MessageID      string
}

// DirectiveHeader makes every struct embedding Header a Directive.
func (h Header) DirectiveHeader() Header { return h }

// Directive is one parsed inbound directive. The concrete type tells which
// fields were extracted.
type Directive interface {
	DirectiveHeader() Header
}

// Scope is the bearer token the assistant attaches to a directive.
type Scope struct {
	Type  string `json:"type"`
	Token string `json:"token"`
}

// GenericDirective carries only the header. Used for routing errors.
type GenericDirective struct {
	Header
}

// EndpointDirective addresses one endpoint and expects a correlated reply.
type EndpointDirective struct {
	Header
	CorrelationToken string
	EndpointID       string
	Scope            Scope
}

// Endpoint returns the endpoint part of the directive. Variants embedding
// EndpointDirective inherit it, which is how error envelopes find the
// correlation token.
func (d EndpointDirective) Endpoint() EndpointDirective { return d }

type DiscoveryDirective struct {
	Header
	Scope Scope
}

type SetTemperatureDirective struct {
	EndpointDirective
	Value float64
	Scale string
}

type AdjustTemperatureDirective struct {
	EndpointDirective
	Delta float64
	Scale string
}

type SetModeDirective struct {
	EndpointDirective
	Mode string
}

type PowerDirective struct {
	EndpointDirective
	TurnOn bool
}

// EndpointBearer is implemented by every directive addressing an endpoint.
type EndpointBearer interface {
	Endpoint() EndpointDirective
}
