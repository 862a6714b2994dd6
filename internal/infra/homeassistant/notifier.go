package homeassistant

import (
	"context"

	"alexa-climate-bridge/internal/domain"
)

// Notifier sends notifications through a Home Assistant notify service such
// as notify.mobile_app_phone.
type Notifier struct {
	client  *Client
	service string
}

func NewNotifier(client *Client, service string) *Notifier {
	return &Notifier{client: client, service: service}
}

func (n *Notifier) Notify(ctx context.Context, title, message string) error {
	return n.client.CallService(ctx, domain.ServiceCall{
		Service: n.service,
		Data: map[string]any{
			"title":   title,
			"message": message,
		},
	})
}
