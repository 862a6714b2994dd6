package application

import (
	"context"
	"time"

	"alexa-climate-bridge/internal/domain"
)

// StatePublisher announces post-command snapshots to other consumers.
type StatePublisher interface {
	PublishState(ctx context.Context, s *domain.EntityState) error
}

type NoopPublisher struct{}

func (p *NoopPublisher) PublishState(_ context.Context, _ *domain.EntityState) error {
	return nil
}

// DirectiveObserver records what the dispatcher did. Calls must not block.
type DirectiveObserver interface {
	ObserveDirective(namespace, name, outcome string, elapsed time.Duration)
	ObserveThermostat(s *domain.EntityState)
}

type NoopObserver struct{}

func (o *NoopObserver) ObserveDirective(_, _, _ string, _ time.Duration) {}
func (o *NoopObserver) ObserveThermostat(_ *domain.EntityState)          {}
