package infra_redis_viewer

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	usecase_session "github.com/CarciofiVolanti/movie-tally-time/internal/usecase/session"
)

const selectionTTL = 30 * 24 * time.Hour

// Store remembers which person a browser tab picked for a session, keyed by
// an opaque per-browser token. Entries expire on their own; Clear just gets
// there sooner.
type Store struct {
	client *redis.Client
}

func New(client *redis.Client) *Store {
	return &Store{client: client}
}

func key(sessionID uuid.UUID, token string) string {
	return fmt.Sprintf("viewer:%s:%s", sessionID, token)
}

func (s *Store) Set(ctx context.Context, sessionID uuid.UUID, token string, personID uuid.UUID) error {
	return s.client.Set(ctx, key(sessionID, token), personID.String(), selectionTTL).Err()
}

func (s *Store) Get(ctx context.Context, sessionID uuid.UUID, token string) (uuid.UUID, error) {
	val, err := s.client.Get(ctx, key(sessionID, token)).Result()
	if err == redis.Nil {
		return uuid.Nil, usecase_session.ErrNoPersonSelected
	}
	if err != nil {
		return uuid.Nil, err
	}

	personID, err := uuid.Parse(val)
	if err != nil {
		return uuid.Nil, fmt.Errorf("corrupt viewer selection: %w", err)
	}
	return personID, nil
}

func (s *Store) Clear(ctx context.Context, sessionID uuid.UUID, token string) error {
	return s.client.Del(ctx, key(sessionID, token)).Err()
}
