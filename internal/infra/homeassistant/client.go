package homeassistant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"alexa-climate-bridge/internal/domain"
	"alexa-climate-bridge/internal/infra"
)

// Only a 404 under statesPath means the entity is missing.
const statesPath = "/api/states/"

// Client talks to the Home Assistant REST API and implements
// application.Backend.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	retry      infra.RetryConfig
}

func NewClient(baseURL, token string, timeout time.Duration) *Client {
	// Remove trailing slash if present
	baseURL = strings.TrimSuffix(baseURL, "/")

	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	return &Client{
		baseURL:    baseURL,
		token:      token,
		httpClient: &http.Client{Timeout: timeout},
		retry:      infra.DefaultRetryConfig(),
	}
}

// SetRetryConfig replaces the backoff policy used for every request.
func (c *Client) SetRetryConfig(cfg infra.RetryConfig) {
	c.retry = cfg
}

// entity is the wire form of /api/states/<entity_id>
type entity struct {
	EntityID    string         `json:"entity_id"`
	State       string         `json:"state"`
	Attributes  map[string]any `json:"attributes"`
	LastChanged time.Time      `json:"last_changed"`
	LastUpdated time.Time      `json:"last_updated"`
}

func (c *Client) GetState(ctx context.Context, entityID string) (*domain.EntityState, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, statesPath+url.PathEscape(entityID), nil)
	if err != nil {
		return nil, fmt.Errorf("fetching state of %s: %w", entityID, err)
	}

	var e entity
	if err := json.Unmarshal(resp, &e); err != nil {
		return nil, fmt.Errorf("parsing state of %s: %w", entityID, err)
	}

	s := toEntityState(e)
	return &s, nil
}

// GetStates fetches the entities one by one, preserving the order of ids.
func (c *Client) GetStates(ctx context.Context, entityIDs []string) ([]domain.EntityState, error) {
	states := make([]domain.EntityState, 0, len(entityIDs))
	for _, id := range entityIDs {
		s, err := c.GetState(ctx, id)
		if err != nil {
			return nil, err
		}
		states = append(states, *s)
	}
	return states, nil
}

func (c *Client) CallService(ctx context.Context, call domain.ServiceCall) error {
	serviceDomain, service, err := call.Split()
	if err != nil {
		return err
	}

	data := call.Data
	if data == nil {
		data = map[string]any{}
	}

	body, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshaling request: %w", err)
	}

	path := fmt.Sprintf("/api/services/%s/%s", serviceDomain, service)
	if _, err := c.doRequest(ctx, http.MethodPost, path, body); err != nil {
		return fmt.Errorf("calling %s: %w", call.Service, err)
	}

	return nil
}

// SetState writes an entity state directly, creating the entity if needed.
func (c *Client) SetState(ctx context.Context, entityID, state string, attributes map[string]any) error {
	body, err := json.Marshal(map[string]any{
		"state":      state,
		"attributes": attributes,
	})
	if err != nil {
		return fmt.Errorf("marshaling request: %w", err)
	}

	if _, err := c.doRequest(ctx, http.MethodPost, statesPath+url.PathEscape(entityID), body); err != nil {
		return fmt.Errorf("setting state of %s: %w", entityID, err)
	}

	return nil
}

// HealthCheck asks the API root whether Home Assistant is answering.
func (c *Client) HealthCheck(ctx context.Context) error {
	if _, err := c.doRequest(ctx, http.MethodGet, "/api/", nil); err != nil {
		return fmt.Errorf("home assistant health check: %w", err)
	}
	return nil
}

func (c *Client) doRequest(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	var respBody []byte

	retryErr := infra.WithRetry(ctx, c.retry, func() error {
		var bodyReader io.Reader
		if body != nil {
			bodyReader = bytes.NewReader(body)
		}

		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
		if err != nil {
			return infra.Permanent(fmt.Errorf("creating request: %w", err))
		}

		req.Header.Set("Authorization", "Bearer "+c.token)
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("%w: %w", domain.ErrBackendUnreachable, err)
		}
		defer resp.Body.Close()

		respBody, err = io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("%w: reading response: %w", domain.ErrBackendUnreachable, err)
		}

		switch {
		case resp.StatusCode == http.StatusUnauthorized:
			return infra.Permanent(fmt.Errorf("unauthorized: check your Home Assistant token"))
		case resp.StatusCode == http.StatusNotFound && strings.HasPrefix(path, statesPath):
			return infra.Permanent(fmt.Errorf("%w: %s", domain.ErrEntityNotFound, path))
		case infra.IsRetryableHTTPStatus(resp.StatusCode):
			return fmt.Errorf("%w: home assistant API error %d: %s", domain.ErrBackendUnreachable, resp.StatusCode, string(respBody))
		case resp.StatusCode >= 400:
			return infra.Permanent(fmt.Errorf("home assistant API error %d: %s", resp.StatusCode, string(respBody)))
		}

		return nil
	})

	if retryErr != nil {
		return nil, retryErr
	}

	return respBody, nil
}
