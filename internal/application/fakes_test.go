package application_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"sync"
	"time"

	"alexa-climate-bridge/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeBackend struct {
	mu        sync.Mutex
	states    map[string]domain.EntityState
	calls     []domain.ServiceCall
	setStates map[string]map[string]any
	getErr    error
	callErr   error
	panicOn   string
}

func newFakeBackend(states ...domain.EntityState) *fakeBackend {
	b := &fakeBackend{
		states:    make(map[string]domain.EntityState),
		setStates: make(map[string]map[string]any),
	}
	for _, s := range states {
		b.put(s)
	}
	return b
}

func (b *fakeBackend) put(s domain.EntityState) {
	b.mu.Lock()
	defer b.mu.Unlock()
	s.Off = domain.IsOffState(s.State)
	s.Binary = domain.ParseBinary(s.State)
	b.states[s.ID] = s
}

func (b *fakeBackend) GetState(_ context.Context, id string) (*domain.EntityState, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if id == b.panicOn {
		panic("backend exploded")
	}
	if b.getErr != nil {
		return nil, b.getErr
	}
	s, ok := b.states[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrEntityNotFound, id)
	}
	s.OperationList = append([]string(nil), s.OperationList...)
	s.Attributes = maps.Clone(s.Attributes)
	return &s, nil
}

func (b *fakeBackend) GetStates(ctx context.Context, ids []string) ([]domain.EntityState, error) {
	out := make([]domain.EntityState, 0, len(ids))
	for _, id := range ids {
		s, err := b.GetState(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	return out, nil
}

func (b *fakeBackend) CallService(_ context.Context, call domain.ServiceCall) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.callErr != nil {
		return b.callErr
	}
	b.calls = append(b.calls, call)
	return nil
}

func (b *fakeBackend) SetState(_ context.Context, id, state string, attributes map[string]any) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	s := b.states[id]
	s.ID = id
	s.State = state
	s.Off = domain.IsOffState(state)
	s.Binary = domain.ParseBinary(state)
	s.Attributes = attributes
	b.states[id] = s
	b.setStates[id] = attributes
	return nil
}

func (b *fakeBackend) serviceCalls() []domain.ServiceCall {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]domain.ServiceCall(nil), b.calls...)
}

type fakePublisher struct {
	mu        sync.Mutex
	published []domain.EntityState
}

func (p *fakePublisher) PublishState(_ context.Context, s *domain.EntityState) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.published = append(p.published, *s)
	return nil
}

type observation struct {
	namespace, name, outcome string
}

type fakeObserver struct {
	mu         sync.Mutex
	directives []observation
	snapshots  int
}

func (o *fakeObserver) ObserveDirective(namespace, name, outcome string, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.directives = append(o.directives, observation{namespace, name, outcome})
}

func (o *fakeObserver) ObserveThermostat(_ *domain.EntityState) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.snapshots++
}

type fakeNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (n *fakeNotifier) Notify(_ context.Context, title, message string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, title+": "+message)
	return nil
}

func (n *fakeNotifier) sent() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.messages...)
}
