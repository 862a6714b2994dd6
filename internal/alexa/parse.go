package alexa

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrMalformedEnvelope is returned by Decode when the body is not a
// directive envelope at all.
var ErrMalformedEnvelope = errors.New("malformed directive envelope")

type ParseErrorKind int

const (
	MissingField ParseErrorKind = iota + 1
	WrongType
)

func (k ParseErrorKind) String() string {
	switch k {
	case MissingField:
		return "missing field"
	case WrongType:
		return "wrong type"
	default:
		return "unknown"
	}
}

// ParseError reports the first field of a directive that could not be read.
type ParseError struct {
	Kind ParseErrorKind
	Path string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Path)
}

// Kind selects the directive variant Parse extracts.
type Kind int

const (
	KindGeneric Kind = iota
	KindEndpoint
	KindDiscovery
	KindSetTemperature
	KindAdjustTemperature
	KindSetMode
	KindPower
)

// Request is a decoded directive whose envelope passed validation.
type Request struct {
	Header Header
	doc    map[string]any
}

// Decode unmarshals and validates the directive envelope. The returned
// request always has a usable header.
func Decode(data []byte) (*Request, error) {
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedEnvelope, err)
	}

	schema, err := envelopeSchema()
	if err != nil {
		return nil, err
	}
	if err := schema.Validate(doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedEnvelope, err)
	}

	r := &Request{doc: doc}
	h, err := r.header()
	if err != nil {
		return nil, err
	}
	r.Header = h
	return r, nil
}

// Parse decodes data and extracts the variant selected by kind.
func Parse(data []byte, kind Kind) (Directive, error) {
	r, err := Decode(data)
	if err != nil {
		return nil, err
	}
	return r.Parse(kind)
}

// Parse extracts the variant selected by kind. Numbers must be JSON numbers
// and strings JSON strings; nothing is coerced.
func (r *Request) Parse(kind Kind) (Directive, error) {
	switch kind {
	case KindGeneric:
		return GenericDirective{Header: r.Header}, nil
	case KindDiscovery:
		scope, err := r.scope("directive.payload.scope")
		if err != nil {
			return nil, err
		}
		return DiscoveryDirective{Header: r.Header, Scope: scope}, nil
	}

	ep, err := r.endpoint()
	if err != nil {
		return nil, err
	}

	switch kind {
	case KindEndpoint:
		return ep, nil
	case KindPower:
		return PowerDirective{EndpointDirective: ep, TurnOn: r.Header.Name == NameTurnOn}, nil
	case KindSetTemperature:
		v, scale, err := r.temperature("directive.payload.targetSetpoint")
		if err != nil {
			return nil, err
		}
		return SetTemperatureDirective{EndpointDirective: ep, Value: v, Scale: scale}, nil
	case KindAdjustTemperature:
		v, scale, err := r.temperature("directive.payload.targetSetpointDelta")
		if err != nil {
			return nil, err
		}
		return AdjustTemperatureDirective{EndpointDirective: ep, Delta: v, Scale: scale}, nil
	case KindSetMode:
		mode, err := r.str("directive.payload.thermostatMode.value")
		if err != nil {
			return nil, err
		}
		return SetModeDirective{EndpointDirective: ep, Mode: mode}, nil
	default:
		return nil, fmt.Errorf("unknown directive kind %d", kind)
	}
}

func (r *Request) header() (Header, error) {
	var (
		h   Header
		err error
	)
	if h.Namespace, err = r.str("directive.header.namespace"); err != nil {
		return h, err
	}
	if h.Name, err = r.str("directive.header.name"); err != nil {
		return h, err
	}
	if h.PayloadVersion, err = r.str("directive.header.payloadVersion"); err != nil {
		return h, err
	}
	if h.MessageID, err = r.str("directive.header.messageId"); err != nil {
		return h, err
	}
	return h, nil
}

func (r *Request) endpoint() (EndpointDirective, error) {
	ep := EndpointDirective{Header: r.Header}

	var err error
	if ep.CorrelationToken, err = r.str("directive.header.correlationToken"); err != nil {
		return ep, err
	}
	if ep.EndpointID, err = r.str("directive.endpoint.endpointId"); err != nil {
		return ep, err
	}
	if ep.Scope, err = r.scope("directive.endpoint.scope"); err != nil {
		return ep, err
	}
	return ep, nil
}

func (r *Request) scope(path string) (Scope, error) {
	var (
		s   Scope
		err error
	)
	if s.Type, err = r.str(path + ".type"); err != nil {
		return s, err
	}
	if s.Token, err = r.str(path + ".token"); err != nil {
		return s, err
	}
	return s, nil
}

func (r *Request) temperature(path string) (float64, string, error) {
	v, err := r.num(path + ".value")
	if err != nil {
		return 0, "", err
	}
	scale, err := r.str(path + ".scale")
	if err != nil {
		return 0, "", err
	}
	return v, scale, nil
}

func (r *Request) str(path string) (string, error) {
	v, err := r.lookup(path)
	if err != nil {
		return "", err
	}
	s, ok := v.(string)
	if !ok {
		return "", &ParseError{Kind: WrongType, Path: path}
	}
	return s, nil
}

func (r *Request) num(path string) (float64, error) {
	v, err := r.lookup(path)
	if err != nil {
		return 0, err
	}
	f, ok := v.(float64)
	if !ok {
		return 0, &ParseError{Kind: WrongType, Path: path}
	}
	return f, nil
}

func (r *Request) lookup(path string) (any, error) {
	keys := strings.Split(path, ".")

	var cur any = r.doc
	for i, key := range keys {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil, &ParseError{Kind: WrongType, Path: strings.Join(keys[:i], ".")}
		}
		v, ok := obj[key]
		if !ok {
			return nil, &ParseError{Kind: MissingField, Path: path}
		}
		cur = v
	}
	return cur, nil
}
