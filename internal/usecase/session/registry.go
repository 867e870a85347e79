package usecase_session

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/CarciofiVolanti/movie-tally-time/internal/model"
)

//go:generate mockery --name=SessionRepository --output=./mocks/session --filename=repository.go
type SessionRepository interface {
	Create(ctx context.Context, name string) (model.Session, error)
	ByID(ctx context.Context, id uuid.UUID) (model.Session, error)
	Rename(ctx context.Context, id uuid.UUID, name string) error
}

// Feed hands out a per-session stream of change events. Unsubscribing closes
// the channel.
type Feed interface {
	Subscribe(sessionID uuid.UUID) (<-chan model.ChangeEvent, func())
}

// Registry hands out one live Store per session id. The feed subscription is
// established exactly once when the first viewer acquires the store and torn
// down when the last one releases it; there are never two subscriptions for
// the same id.
type Registry struct {
	sessions SessionRepository
	repos    Repositories
	lookup   MetadataLookup
	feed     Feed
	logger   *slog.Logger

	mu      sync.Mutex
	entries map[uuid.UUID]*entry
}

type entry struct {
	store *Store
	refs  int
	stop  func()
}

func NewRegistry(sessions SessionRepository, repos Repositories, lookup MetadataLookup, feed Feed) *Registry {
	return &Registry{
		sessions: sessions,
		repos:    repos,
		lookup:   lookup,
		feed:     feed,
		logger:   slog.Default(),
		entries:  make(map[uuid.UUID]*entry),
	}
}

func (r *Registry) CreateSession(ctx context.Context, name string) (model.Session, error) {
	session, err := r.sessions.Create(ctx, name)
	if err != nil {
		return model.Session{}, errors.Join(ErrInternal, err)
	}
	return session, nil
}

func (r *Registry) Session(ctx context.Context, id uuid.UUID) (model.Session, error) {
	session, err := r.sessions.ByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrResourceNotFound) {
			return model.Session{}, ErrResourceNotFound
		}
		return model.Session{}, errors.Join(ErrInternal, err)
	}
	return session, nil
}

func (r *Registry) RenameSession(ctx context.Context, id uuid.UUID, name string) error {
	if err := r.sessions.Rename(ctx, id, name); err != nil {
		if errors.Is(err, ErrResourceNotFound) {
			return ErrResourceNotFound
		}
		return errors.Join(ErrInternal, err)
	}
	return nil
}

// Acquire returns the live store for a session, loading it and subscribing
// to the change feed on first use. Pair every Acquire with a Release.
func (r *Registry) Acquire(ctx context.Context, sessionID uuid.UUID) (*Store, error) {
	r.mu.Lock()
	if e, ok := r.entries[sessionID]; ok {
		e.refs++
		r.mu.Unlock()
		return e.store, nil
	}
	r.mu.Unlock()

	if _, err := r.Session(ctx, sessionID); err != nil {
		return nil, err
	}

	store := New(sessionID, r.repos, r.lookup)
	if err := store.Load(ctx); err != nil {
		return nil, err
	}

	// Subscribe after Load: every row already carries its identifier, so
	// there is no window where events cannot be matched.
	events, unsubscribe := r.feed.Subscribe(sessionID)
	go func() {
		for ev := range events {
			store.Apply(ev)
		}
	}()

	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.entries[sessionID]; ok {
		// Lost the race to another acquirer; fold into its entry.
		unsubscribe()
		e.refs++
		return e.store, nil
	}
	r.entries[sessionID] = &entry{store: store, refs: 1, stop: unsubscribe}
	return store, nil
}

// Release drops one reference. The last release tears the subscription down
// and forgets the store.
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
	r.logger.Debug("session store released", "session_id", sessionID)
}
