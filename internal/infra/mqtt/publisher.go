package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"alexa-climate-bridge/internal/alexa"
	"alexa-climate-bridge/internal/domain"
)

// Publisher is the part of Client the state publisher needs.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload []byte, retained bool) error
}

// StatePublisher mirrors thermostat snapshots to <prefix>/state/<entity_id>
// as retained JSON.
type StatePublisher struct {
	pub    Publisher
	prefix string
	now    func() time.Time
}

func NewStatePublisher(pub Publisher, prefix string) *StatePublisher {
	return &StatePublisher{pub: pub, prefix: prefix, now: time.Now}
}

type statePayload struct {
	EntityID           string    `json:"entity_id"`
	EndpointID         string    `json:"endpoint_id"`
	State              string    `json:"state"`
	Power              string    `json:"power"`
	TargetTemperature  float64   `json:"target_temperature"`
	CurrentTemperature float64   `json:"current_temperature"`
	Timestamp          time.Time `json:"timestamp"`
}

// StateTopic returns the retained topic for an entity.
func (p *StatePublisher) StateTopic(entityID string) string {
	return joinTopic(p.prefix, "state", entityID)
}

func (p *StatePublisher) PublishState(ctx context.Context, s *domain.EntityState) error {
	power := "ON"
	if s.Off {
		power = "OFF"
	}

	payload, err := json.Marshal(statePayload{
		EntityID:           s.ID,
		EndpointID:         alexa.EndpointID(s.ID),
		State:              s.State,
		Power:              power,
		TargetTemperature:  s.Temperature,
		CurrentTemperature: s.CurrentTemperature,
		Timestamp:          p.now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("encoding state for %s: %w", s.ID, err)
	}

	if err := p.pub.Publish(ctx, p.StateTopic(s.ID), payload, true); err != nil {
		return fmt.Errorf("publishing state for %s: %w", s.ID, err)
	}
	return nil
}
