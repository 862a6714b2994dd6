package application

import (
	"context"

	"alexa-climate-bridge/internal/domain"
)

// Backend is the home automation system the bridge drives. Implementations
// must be safe for concurrent use and report missing entities with
// domain.ErrEntityNotFound and connectivity failures with
// domain.ErrBackendUnreachable.
type Backend interface {
	GetState(ctx context.Context, entityID string) (*domain.EntityState, error)
	GetStates(ctx context.Context, entityIDs []string) ([]domain.EntityState, error)
	CallService(ctx context.Context, call domain.ServiceCall) error
	SetState(ctx context.Context, entityID, state string, attributes map[string]any) error
}
