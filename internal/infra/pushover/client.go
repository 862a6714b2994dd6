package pushover

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"alexa-climate-bridge/internal/infra"
)

const (
	defaultBaseURL = "https://api.pushover.net"
	defaultTitle   = "Alexa Climate Bridge"
)

type Client struct {
	baseURL    string
	token      string
	userKey    string
	httpClient *http.Client
	retry      infra.RetryConfig
}

func NewClient(token, userKey string) *Client {
	return NewClientWithURL(token, userKey, defaultBaseURL)
}

func NewClientWithURL(token, userKey, baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		token:      token,
		userKey:    userKey,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		retry:      infra.DefaultRetryConfig(),
	}
}

func (c *Client) SetRetryConfig(cfg infra.RetryConfig) {
	c.retry = cfg
}

type apiResponse struct {
	Status int      `json:"status"`
	Errors []string `json:"errors"`
}

// Notify is a no-op when credentials are missing.
func (c *Client) Notify(ctx context.Context, title, message string) error {
	if c.token == "" || c.userKey == "" {
		return nil
	}
	if title == "" {
		title = defaultTitle
	}

	form := url.Values{
		"token":   {c.token},
		"user":    {c.userKey},
		"title":   {title},
		"message": {message},
	}.Encode()

	return infra.WithRetry(ctx, c.retry, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/1/messages.json", strings.NewReader(form))
		if err != nil {
			return infra.Permanent(fmt.Errorf("creating request: %w", err))
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("sending notification: %w", err)
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("reading response: %w", err)
		}

		if infra.IsRetryableHTTPStatus(resp.StatusCode) {
			return fmt.Errorf("pushover error: %s", resp.Status)
		}

		var parsed apiResponse
		if err := json.Unmarshal(body, &parsed); err != nil {
			return infra.Permanent(fmt.Errorf("decoding response (%s): %w", resp.Status, err))
		}

		switch {
		case resp.StatusCode != http.StatusOK:
			if len(parsed.Errors) > 0 {
				return infra.Permanent(fmt.Errorf("pushover rejected notification: %s", strings.Join(parsed.Errors, "; ")))
			}
			return infra.Permanent(fmt.Errorf("pushover error: %s", resp.Status))
		case parsed.Status != 1:
			return infra.Permanent(fmt.Errorf("pushover returned status %d", parsed.Status))
		}
		return nil
	})
}
