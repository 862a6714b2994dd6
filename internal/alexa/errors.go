package alexa

import "fmt"

type ErrorType string

const (
	ErrorInvalidDirective  ErrorType = "INVALID_DIRECTIVE"
	ErrorInvalidValue      ErrorType = "INVALID_VALUE"
	ErrorTemperatureRange  ErrorType = "TEMPERATURE_VALUE_OUT_OF_RANGE"
	ErrorThermostatIsOff   ErrorType = "THERMOSTAT_IS_OFF"
	ErrorBridgeUnreachable ErrorType = "BRIDGE_UNREACHABLE"
	ErrorNoSuchEndpoint    ErrorType = "NO_SUCH_ENDPOINT"
	ErrorInternal          ErrorType = "INTERNAL_ERROR"
)

// Error is a failure that maps one to one onto an ErrorResponse envelope.
// Handlers return it for domain rule violations.
type Error struct {
	Type       ErrorType
	Message    string
	Namespace  string
	ValidRange *ValidRange
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func newError(t ErrorType, msg string) *Error {
	return &Error{Type: t, Message: msg, Namespace: NamespaceAlexa}
}

func InvalidDirective(msg string) *Error  { return newError(ErrorInvalidDirective, msg) }
func InvalidValue(msg string) *Error      { return newError(ErrorInvalidValue, msg) }
func BridgeUnreachable(msg string) *Error { return newError(ErrorBridgeUnreachable, msg) }
func NoSuchEndpoint(msg string) *Error    { return newError(ErrorNoSuchEndpoint, msg) }
func InternalError(msg string) *Error     { return newError(ErrorInternal, msg) }

// ThermostatIsOff is reported under the thermostat namespace, unlike the
// generic errors.
func ThermostatIsOff(msg string) *Error {
	return &Error{Type: ErrorThermostatIsOff, Message: msg, Namespace: NamespaceThermostat}
}

func TemperatureOutOfRange(msg string, min, max float64, scale string) *Error {
	e := newError(ErrorTemperatureRange, msg)
	e.ValidRange = &ValidRange{
		MinimumValue: Temperature{Value: min, Scale: scale},
		MaximumValue: Temperature{Value: max, Scale: scale},
	}
	return e
}
