package usecase_watched

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/CarciofiVolanti/movie-tally-time/internal/model"
)

// Feed hands out a per-session stream of change events. Unsubscribing closes
// the channel.
type Feed interface {
	Subscribe(sessionID uuid.UUID) (<-chan model.ChangeEvent, func())
}

// Registry hands out one live watched store per session id, lifecycled
// independently of the pre-watch store. One feed subscription per id.
type Registry struct {
	repos  Repositories
	lookup MetadataLookup
	feed   Feed
	logger *slog.Logger

	mu      sync.Mutex
	entries map[uuid.UUID]*entry
}

type entry struct {
	store *Store
	refs  int
	stop  func()
}

func NewRegistry(repos Repositories, lookup MetadataLookup, feed Feed) *Registry {
	return &Registry{
		repos:   repos,
		lookup:  lookup,
		feed:    feed,
		logger:  slog.Default(),
		entries: make(map[uuid.UUID]*entry),
	}
}

func (r *Registry) Acquire(ctx context.Context, sessionID uuid.UUID) (*Store, error) {
	r.mu.Lock()
	if e, ok := r.entries[sessionID]; ok {
		e.refs++
		r.mu.Unlock()
		return e.store, nil
	}
	r.mu.Unlock()

	store := New(sessionID, r.repos, r.lookup)
	if err := store.Load(ctx); err != nil {
		return nil, err
	}

	events, unsubscribe := r.feed.Subscribe(sessionID)
	go func() {
		for ev := range events {
			store.Apply(ev)
		}
	}()

	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.entries[sessionID]; ok {
		unsubscribe()
		e.refs++
		return e.store, nil
	}
	r.entries[sessionID] = &entry{store: store, refs: 1, stop: unsubscribe}
	return store, nil
}

func (r *Registry) Release(sessionID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[sessionID]
	if !ok {
		return
	}
	e.refs--
	if e.refs > 0 {
		return
	}
	e.stop()
	delete(r.entries, sessionID)
	r.logger.Debug("watched store released", "session_id", sessionID)
}
