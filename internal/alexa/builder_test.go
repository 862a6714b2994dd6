package alexa_test

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"alexa-climate-bridge/internal/alexa"
	"alexa-climate-bridge/internal/domain"
)

var fixedNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestBuilder() *alexa.Builder {
	n := 0
	return alexa.NewBuilder(
		alexa.DeviceInfo{Manufacturer: "acme", Description: "test thermostat"},
		alexa.WithClock(func() time.Time { return fixedNow }),
		alexa.WithIDGenerator(func() string {
			n++
			return fmt.Sprintf("id-%d", n)
		}),
	)
}

func nursery() *domain.EntityState {
	return &domain.EntityState{
		ID:                 "climate.nursery",
		State:              "heat",
		Temperature:        22,
		CurrentTemperature: 20.5,
		MinTemp:            16,
		MaxTemp:            26,
		OperationList:      []string{"off", "heat", "cool"},
		FriendlyName:       "Nursery AC",
		LastUpdated:        fixedNow.Add(-1500 * time.Millisecond),
	}
}

func endpointDirective() alexa.EndpointDirective {
	return alexa.EndpointDirective{
		Header:           alexa.Header{Namespace: alexa.NamespaceAlexa, Name: alexa.NameReportState, PayloadVersion: "3", MessageID: "in"},
		CorrelationToken: "corr-9",
		EndpointID:       "climate_nursery",
		Scope:            alexa.Scope{Type: "BearerToken", Token: "tok"},
	}
}

// toMap round-trips through JSON so assertions see the wire shape.
func toMap(t *testing.T, r *alexa.Response) map[string]any {
	t.Helper()
	data, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	return m
}

func dig(m map[string]any, keys ...string) any {
	var cur any = m
	for _, k := range keys {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		cur = obj[k]
	}
	return cur
}

func TestBuilderMessageIDsAreFresh(t *testing.T) {
	b := newTestBuilder()
	first := b.StateReport(endpointDirective(), nursery(), "CELSIUS")
	second := b.StateReport(endpointDirective(), nursery(), "CELSIUS")

	if first.Event.Header.MessageID == "" {
		t.Fatal("expected message id")
	}
	if first.Event.Header.MessageID == second.Event.Header.MessageID {
		t.Errorf("message ids repeat: %q", first.Event.Header.MessageID)
	}
}

func TestBuilderDefaultIDsAreUUIDs(t *testing.T) {
	b := alexa.NewBuilder(alexa.DeviceInfo{})
	a := b.Discovery(nil).Event.Header.MessageID
	c := b.Discovery(nil).Event.Header.MessageID
	if len(a) != 36 || a == c {
		t.Errorf("unexpected message ids %q %q", a, c)
	}
}

func TestStateReport(t *testing.T) {
	b := newTestBuilder()
	m := toMap(t, b.StateReport(endpointDirective(), nursery(), "CELSIUS"))

	if got := dig(m, "event", "header", "name"); got != "StateReport" {
		t.Errorf("expected StateReport, got %v", got)
	}
	if got := dig(m, "event", "header", "correlationToken"); got != "corr-9" {
		t.Errorf("expected correlation token echoed, got %v", got)
	}
	if got := dig(m, "event", "header", "payloadVersion"); got != "3" {
		t.Errorf("expected payloadVersion 3, got %v", got)
	}
	if got := dig(m, "event", "endpoint", "endpointId"); got != "climate_nursery" {
		t.Errorf("unexpected endpoint %v", got)
	}

	props := dig(m, "context", "properties").([]any)
	if len(props) != 4 {
		t.Fatalf("expected 4 properties, got %d", len(props))
	}

	want := []struct {
		namespace, name string
	}{
		{alexa.NamespaceThermostat, "targetSetpoint"},
		{alexa.NamespaceThermostat, "thermostatMode"},
		{alexa.NamespaceSensor, "temperature"},
		{alexa.NamespacePower, "powerState"},
	}
	for i, w := range want {
		p := props[i].(map[string]any)
		if p["namespace"] != w.namespace || p["name"] != w.name {
			t.Errorf("property %d = %v/%v, want %s/%s", i, p["namespace"], p["name"], w.namespace, w.name)
		}
		if p["timeOfSample"] != "2024-03-01T12:00:00.000Z" {
			t.Errorf("unexpected timeOfSample %v", p["timeOfSample"])
		}
		if p["uncertaintyInMilliseconds"] != float64(1500) {
			t.Errorf("unexpected uncertainty %v", p["uncertaintyInMilliseconds"])
		}
	}

	setpoint := props[0].(map[string]any)["value"].(map[string]any)
	if setpoint["value"] != 22.0 || setpoint["scale"] != "CELSIUS" {
		t.Errorf("unexpected setpoint %v", setpoint)
	}
	if mode := props[1].(map[string]any)["value"]; mode != "HEAT" {
		t.Errorf("expected HEAT, got %v", mode)
	}
	if power := props[3].(map[string]any)["value"]; power != "ON" {
		t.Errorf("expected ON, got %v", power)
	}
}

func TestPowerControlReportsOff(t *testing.T) {
	b := newTestBuilder()
	s := nursery()
	s.ApplyMode("off")

	m := toMap(t, b.PowerControl(endpointDirective(), s))

	if got := dig(m, "event", "endpoint", "scope", "token"); got != "tok" {
		t.Errorf("expected scope echoed, got %v", got)
	}
	props := dig(m, "context", "properties").([]any)
	if len(props) != 1 {
		t.Fatalf("expected 1 property, got %d", len(props))
	}
	if v := props[0].(map[string]any)["value"]; v != "OFF" {
		t.Errorf("expected OFF, got %v", v)
	}
}

func TestThermostatControl(t *testing.T) {
	b := newTestBuilder()
	s := nursery()
	s.ApplyTargetTemperature(23.3)

	m := toMap(t, b.ThermostatControl(endpointDirective(), s, "CELSIUS"))

	if got := dig(m, "event", "header", "name"); got != "Response" {
		t.Errorf("expected Response, got %v", got)
	}
	props := dig(m, "context", "properties").([]any)
	if len(props) != 2 {
		t.Fatalf("expected 2 properties, got %d", len(props))
	}
	v := props[0].(map[string]any)["value"].(map[string]any)["value"]
	if v != 23.3 {
		t.Errorf("expected 23.3, got %v", v)
	}
}

func TestDiscovery(t *testing.T) {
	b := newTestBuilder()
	m := toMap(t, b.Discovery([]domain.EntityState{*nursery()}))

	if got := dig(m, "event", "header", "namespace"); got != alexa.NamespaceDiscovery {
		t.Errorf("unexpected namespace %v", got)
	}
	if got := dig(m, "event", "header", "name"); got != "Discover.Response" {
		t.Errorf("unexpected name %v", got)
	}
	if got := dig(m, "event", "header", "correlationToken"); got != "" {
		t.Errorf("expected empty correlation token, got %v", got)
	}
	if _, ok := m["context"]; ok {
		t.Error("discovery must not carry a context")
	}

	endpoints := dig(m, "event", "payload", "endpoints").([]any)
	if len(endpoints) != 1 {
		t.Fatalf("expected 1 endpoint, got %d", len(endpoints))
	}
	ep := endpoints[0].(map[string]any)
	if ep["endpointId"] != "climate_nursery" || ep["friendlyName"] != "Nursery AC" {
		t.Errorf("unexpected endpoint %v", ep)
	}
	if ep["manufacturerName"] != "acme" {
		t.Errorf("unexpected manufacturer %v", ep["manufacturerName"])
	}

	caps := ep["capabilities"].([]any)
	if len(caps) != 3 {
		t.Fatalf("expected 3 capabilities, got %d", len(caps))
	}
	modes := dig(caps[0].(map[string]any), "configuration", "supportedModes").([]any)
	want := []string{"OFF", "HEAT", "COOL"}
	for i, w := range want {
		if modes[i] != w {
			t.Errorf("supportedModes[%d] = %v, want %s", i, modes[i], w)
		}
	}
	if _, ok := caps[1].(map[string]any)["configuration"]; ok {
		t.Error("temperature sensor must not carry configuration")
	}
}

func TestErrorResponses(t *testing.T) {
	b := newTestBuilder()

	t.Run("endpoint directive copies correlation", func(t *testing.T) {
		d := alexa.SetTemperatureDirective{EndpointDirective: endpointDirective(), Value: 30, Scale: "CELSIUS"}
		m := toMap(t, b.Error(d, alexa.TemperatureOutOfRange("out of range", 16, 26, "CELSIUS")))

		if got := dig(m, "event", "header", "name"); got != "ErrorResponse" {
			t.Errorf("expected ErrorResponse, got %v", got)
		}
		if got := dig(m, "event", "header", "correlationToken"); got != "corr-9" {
			t.Errorf("expected correlation token, got %v", got)
		}
		if got := dig(m, "event", "endpoint", "endpointId"); got != "climate_nursery" {
			t.Errorf("expected endpoint id, got %v", got)
		}
		if got := dig(m, "event", "payload", "type"); got != "TEMPERATURE_VALUE_OUT_OF_RANGE" {
			t.Errorf("unexpected type %v", got)
		}
		if got := dig(m, "event", "payload", "validRange", "maximumValue", "value"); got != 26.0 {
			t.Errorf("expected maximum 26, got %v", got)
		}
		if got := dig(m, "event", "payload", "validRange", "minimumValue", "scale"); got != "CELSIUS" {
			t.Errorf("expected scale CELSIUS, got %v", got)
		}
	})

	t.Run("thermostat off uses thermostat namespace", func(t *testing.T) {
		m := toMap(t, b.Error(endpointDirective(), alexa.ThermostatIsOff("endpoint is off")))
		if got := dig(m, "event", "header", "namespace"); got != alexa.NamespaceThermostat {
			t.Errorf("unexpected namespace %v", got)
		}
	})

	t.Run("generic directive gets placeholders", func(t *testing.T) {
		d := alexa.GenericDirective{Header: alexa.Header{Namespace: "Alexa.Foo", Name: "Bar"}}
		m := toMap(t, b.Error(d, alexa.InvalidDirective("namespace Alexa.Foo is unknown.")))

		if got := dig(m, "event", "header", "correlationToken"); got != "" {
			t.Errorf("expected empty correlation token, got %v", got)
		}
		if got := dig(m, "event", "endpoint", "endpointId"); got != "" {
			t.Errorf("expected empty endpoint id, got %v", got)
		}
		if got := dig(m, "event", "payload", "type"); got != "INVALID_DIRECTIVE" {
			t.Errorf("unexpected type %v", got)
		}
		if _, ok := dig(m, "event", "payload").(map[string]any)["validRange"]; ok {
			t.Error("unexpected validRange")
		}
	})

	t.Run("nil directive", func(t *testing.T) {
		m := toMap(t, b.Error(nil, alexa.InternalError("boom")))
		if got := dig(m, "event", "header", "namespace"); got != alexa.NamespaceAlexa {
			t.Errorf("unexpected namespace %v", got)
		}
	})
}

func TestStateReportUnknownTemperaturesAreNull(t *testing.T) {
	b := newTestBuilder()
	s := nursery()
	s.ApplyMode("off")
	s.Temperature = 0
	s.TemperatureUnknown = true
	s.CurrentTemperatureUnknown = true

	m := toMap(t, b.StateReport(endpointDirective(), s, "CELSIUS"))
	props := dig(m, "context", "properties").([]any)

	for _, i := range []int{0, 2} {
		value := props[i].(map[string]any)["value"].(map[string]any)
		if v, ok := value["value"]; !ok || v != nil {
			t.Errorf("property %d: expected null value, got %v", i, value)
		}
		if value["scale"] != "CELSIUS" {
			t.Errorf("property %d: expected scale kept, got %v", i, value["scale"])
		}
	}

	s.ApplyTargetTemperature(21)
	m = toMap(t, b.ThermostatControl(endpointDirective(), s, "CELSIUS"))
	props = dig(m, "context", "properties").([]any)
	if got := props[0].(map[string]any)["value"].(map[string]any)["value"]; got != 21.0 {
		t.Errorf("expected setpoint 21 after a command, got %v", got)
	}
}
