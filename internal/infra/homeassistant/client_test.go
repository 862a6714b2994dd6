package homeassistant_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"alexa-climate-bridge/internal/domain"
	"alexa-climate-bridge/internal/infra"
	"alexa-climate-bridge/internal/infra/homeassistant"
)

func newTestClient(url string) *homeassistant.Client {
	c := homeassistant.NewClient(url+"/", "secret", time.Second)
	c.SetRetryConfig(infra.RetryConfig{
		MaxAttempts:  3,
		InitialDelay: time.Millisecond,
		MaxDelay:     time.Millisecond,
		Multiplier:   1,
	})
	return c
}

func TestClient_GetState(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer secret" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		switch r.URL.Path {
		case "/api/states/climate.nursery":
			json.NewEncoder(w).Encode(map[string]any{
				"entity_id": "climate.nursery",
				"state":     "Off",
				"attributes": map[string]any{
					"temperature":         22.5,
					"current_temperature": 23,
					"min_temp":            16,
					"max_temp":            30,
					"hvac_modes":          []string{"off", "cool", "heat"},
					"friendly_name":       "Nursery AC",
				},
				"last_updated": "2024-03-01T11:59:58.5+00:00",
			})
		case "/api/states/climate.legacy":
			json.NewEncoder(w).Encode(map[string]any{
				"entity_id": "climate.legacy",
				"state":     "cool",
				"attributes": map[string]any{
					"operation_list": []string{"cool", "dry"},
					"temperature":    nil,
				},
				"last_updated": "2024-03-01T11:59:58+00:00",
			})
		default:
			http.Error(w, "not found", http.StatusNotFound)
		}
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	s, err := client.GetState(context.Background(), "climate.nursery")
	if err != nil {
		t.Fatalf("GetState error: %v", err)
	}

	if !s.Off {
		t.Error("expected Off to be normalised from \"Off\"")
	}
	if s.Binary != domain.BinaryFalse {
		t.Errorf("binary: got %v, want false", s.Binary)
	}
	if s.Temperature != 22.5 || s.CurrentTemperature != 23 {
		t.Errorf("temperatures: got %v/%v", s.Temperature, s.CurrentTemperature)
	}
	if s.MinTemp != 16 || s.MaxTemp != 30 {
		t.Errorf("range: got %v-%v", s.MinTemp, s.MaxTemp)
	}
	if len(s.OperationList) != 3 || s.OperationList[1] != "cool" {
		t.Errorf("operation list: got %v", s.OperationList)
	}
	if s.FriendlyName != "Nursery AC" {
		t.Errorf("friendly name: got %s", s.FriendlyName)
	}
	want := time.Date(2024, 3, 1, 11, 59, 58, 500_000_000, time.UTC)
	if !s.LastUpdated.Equal(want) {
		t.Errorf("last updated: got %v, want %v", s.LastUpdated, want)
	}

	legacy, err := client.GetState(context.Background(), "climate.legacy")
	if err != nil {
		t.Fatalf("GetState error: %v", err)
	}
	if len(legacy.OperationList) != 2 || legacy.OperationList[0] != "cool" {
		t.Errorf("legacy operation list: got %v", legacy.OperationList)
	}
	if s.TemperatureUnknown || s.CurrentTemperatureUnknown {
		t.Error("nursery reports both temperatures")
	}
	if !legacy.TemperatureUnknown || !legacy.CurrentTemperatureUnknown {
		t.Errorf("null or missing temperatures must be unknown, got %+v", legacy)
	}

	_, err = client.GetState(context.Background(), "climate.missing")
	if !errors.Is(err, domain.ErrEntityNotFound) {
		t.Errorf("expected ErrEntityNotFound, got %v", err)
	}

	states, err := client.GetStates(context.Background(), []string{"climate.legacy", "climate.nursery"})
	if err != nil {
		t.Fatalf("GetStates error: %v", err)
	}
	if len(states) != 2 || states[0].ID != "climate.legacy" || states[1].ID != "climate.nursery" {
		t.Errorf("GetStates order: got %+v", states)
	}
}

func TestClient_CallService(t *testing.T) {
	var gotPath string
	var gotBody map[string]any

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		data, _ := io.ReadAll(r.Body)
		json.Unmarshal(data, &gotBody)
		w.Write([]byte("[]"))
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	err := client.CallService(context.Background(), domain.ServiceCall{
		Service: "climate.set_temperature",
		Data:    map[string]any{"entity_id": "climate.nursery", "temperature": 23.3},
	})
	if err != nil {
		t.Fatalf("CallService error: %v", err)
	}

	if gotPath != "/api/services/climate/set_temperature" {
		t.Errorf("path: got %s", gotPath)
	}
	if gotBody["entity_id"] != "climate.nursery" || gotBody["temperature"] != 23.3 {
		t.Errorf("body: got %v", gotBody)
	}

	if err := client.CallService(context.Background(), domain.ServiceCall{Service: "broken"}); err == nil {
		t.Error("expected error for malformed service name")
	}
}

func TestClient_SetState(t *testing.T) {
	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/states/sensor.panel_battery" {
			http.Error(w, "unexpected", http.StatusBadRequest)
			return
		}
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	err := client.SetState(context.Background(), "sensor.panel_battery", "47", map[string]any{"charging": true})
	if err != nil {
		t.Fatalf("SetState error: %v", err)
	}
	if gotBody["state"] != "47" {
		t.Errorf("state: got %v", gotBody["state"])
	}
	if attrs, _ := gotBody["attributes"].(map[string]any); attrs["charging"] != true {
		t.Errorf("attributes: got %v", gotBody["attributes"])
	}
}

func TestClient_ErrorMapping(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		wantErr   error
		wantCalls int32
	}{
		{"server error is retried then unreachable", http.StatusBadGateway, domain.ErrBackendUnreachable, 3},
		{"not found is not retried", http.StatusNotFound, domain.ErrEntityNotFound, 1},
		{"bad request is not retried", http.StatusBadRequest, nil, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				http.Error(w, "nope", tt.status)
			}))
			defer server.Close()

			_, err := newTestClient(server.URL).GetState(context.Background(), "climate.nursery")
			if err == nil {
				t.Fatal("expected error")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
			if tt.wantErr == nil && (errors.Is(err, domain.ErrBackendUnreachable) || errors.Is(err, domain.ErrEntityNotFound)) {
				t.Errorf("unexpected classification: %v", err)
			}
			if got := calls.Load(); got != tt.wantCalls {
				t.Errorf("calls: got %d, want %d", got, tt.wantCalls)
			}
		})
	}
}

func TestClient_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	_, err := newTestClient(url).GetState(context.Background(), "climate.nursery")
	if !errors.Is(err, domain.ErrBackendUnreachable) {
		t.Errorf("expected ErrBackendUnreachable, got %v", err)
	}
}

func TestNotifier(t *testing.T) {
	var gotPath string
	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		json.NewDecoder(r.Body).Decode(&gotBody)
	}))
	defer server.Close()

	n := homeassistant.NewNotifier(newTestClient(server.URL), "notify.telegram")
	if err := n.Notify(context.Background(), "Battery Low", "charge me"); err != nil {
		t.Fatalf("Notify error: %v", err)
	}
	if gotPath != "/api/services/notify/telegram" {
		t.Errorf("path: got %s", gotPath)
	}
	if gotBody["title"] != "Battery Low" || gotBody["message"] != "charge me" {
		t.Errorf("body: got %v", gotBody)
	}
}

func TestClient_HealthCheck(t *testing.T) {
	var unhealthy atomic.Bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/" || unhealthy.Load() {
			http.Error(w, "bad gateway", http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{"message":"API running."}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	if err := client.HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck() = %v", err)
	}

	unhealthy.Store(true)
	if err := client.HealthCheck(context.Background()); !errors.Is(err, domain.ErrBackendUnreachable) {
		t.Errorf("HealthCheck() = %v, want ErrBackendUnreachable", err)
	}
}

func TestClient_ServiceNotFoundIsNotAMissingEntity(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "404: Not Found", http.StatusNotFound)
	}))
	defer server.Close()

	err := newTestClient(server.URL).CallService(context.Background(), domain.ServiceCall{
		Service: "climate.set_operation_mode",
		Data:    map[string]any{"entity_id": "climate.nursery"},
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if errors.Is(err, domain.ErrEntityNotFound) || errors.Is(err, domain.ErrBackendUnreachable) {
		t.Errorf("unexpected classification: %v", err)
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("calls: got %d, want 1", got)
	}
}
