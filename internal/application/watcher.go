package application

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"alexa-climate-bridge/internal/domain"
)

// StateChange is emitted when a polled entity changed its state string.
type StateChange struct {
	EntityID string
	Old      domain.EntityState
	New      domain.EntityState
}

// ChangeHandler reacts to state changes of the entities it lists.
type ChangeHandler interface {
	Entities() []string
	HandleChange(ctx context.Context, change StateChange) error
}

// StateWatcher polls the backend and fans state changes out to handlers.
type StateWatcher struct {
	backend  Backend
	logger   *slog.Logger
	mu       sync.Mutex
	handlers []ChangeHandler
	last     map[string]domain.EntityState
}

func NewStateWatcher(backend Backend, logger *slog.Logger) *StateWatcher {
	return &StateWatcher{
		backend: backend,
		logger:  logger,
		last:    make(map[string]domain.EntityState),
	}
}

func (w *StateWatcher) Subscribe(h ChangeHandler) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.handlers = append(w.handlers, h)
}

func (w *StateWatcher) entities() []string {
	w.mu.Lock()
	defer w.mu.Unlock()

	var ids []string
	for _, h := range w.handlers {
		for _, id := range h.Entities() {
			if !slices.Contains(ids, id) {
				ids = append(ids, id)
			}
		}
	}
	return ids
}

// Poll reads every watched entity once. The first reading of an entity only
// primes the watcher.
func (w *StateWatcher) Poll(ctx context.Context) error {
	ids := w.entities()
	if len(ids) == 0 {
		return nil
	}

	var changes []StateChange
	var firstErr error

	for _, id := range ids {
		s, err := w.backend.GetState(ctx, id)
		if err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("polling %s: %w", id, err)
			}
			continue
		}

		w.mu.Lock()
		prev, seen := w.last[id]
		w.last[id] = *s
		w.mu.Unlock()

		if seen && prev.State != s.State {
			changes = append(changes, StateChange{EntityID: id, Old: prev, New: *s})
		}
	}

	for _, c := range changes {
		w.dispatch(ctx, c)
	}

	return firstErr
}

func (w *StateWatcher) dispatch(ctx context.Context, c StateChange) {
	w.mu.Lock()
	handlers := slices.Clone(w.handlers)
	w.mu.Unlock()

	for _, h := range handlers {
		if !slices.Contains(h.Entities(), c.EntityID) {
			continue
		}
		if err := h.HandleChange(ctx, c); err != nil {
			w.logger.Error("automation failed",
				"entity_id", c.EntityID,
				"old", c.Old.State,
				"new", c.New.State,
				"error", err,
			)
		}
	}
}

// Start polls in the background until ctx is cancelled.
func (w *StateWatcher) Start(ctx context.Context, interval time.Duration) {
	go func() {
		if err := w.Poll(ctx); err != nil {
			w.logger.Warn("initial poll failed", "error", err)
		}

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := w.Poll(ctx); err != nil {
					w.logger.Warn("poll failed", "error", err)
				}
			}
		}
	}()
}
