// Package usecase_watched owns the post-watch phase of a session: the
// watched-movie history and its half-point detailed ratings. It lives and
// dies independently of the pre-watch store; the only cross-over is the
// one-time promotion that creates a watched movie out of a proposal.
package usecase_watched

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/CarciofiVolanti/movie-tally-time/internal/model"
)

var (
	ErrInvalidInput     = errors.New("invalid input")
	ErrResourceNotFound = errors.New("no such resource")
	ErrInternal         = errors.New("internal error")
)

//go:generate mockery --name=PersonRepository --output=./mocks/person --filename=repository.go
type PersonRepository interface {
	ListBySession(ctx context.Context, sessionID uuid.UUID) ([]model.PersonRecord, error)
}

//go:generate mockery --name=MovieRepository --output=./mocks/movie --filename=repository.go
type MovieRepository interface {
	// ListBySession returns the session's watched movies newest-first.
	ListBySession(ctx context.Context, sessionID uuid.UUID) ([]model.WatchedMovieRecord, error)
	Create(ctx context.Context, movie model.WatchedMovie) (model.WatchedMovieRecord, error)
}

//go:generate mockery --name=DetailedRatingRepository --output=./mocks/rating --filename=repository.go
type DetailedRatingRepository interface {
	ListByMovies(ctx context.Context, movieIDs []uuid.UUID) ([]model.DetailedRatingRecord, error)

	// Upsert writes on the (movie, person) unique key. A nil score must not
	// wipe a stored one; presence toggles leave rating history alone.
	Upsert(ctx context.Context, movieID, personID uuid.UUID, score *float64, present bool) (model.DetailedRatingRecord, error)
}

//go:generate mockery --name=MetadataLookup --output=./mocks/lookup --filename=lookup.go
type MetadataLookup interface {
	Lookup(ctx context.Context, title string) (model.MovieMeta, error)
}

type Repositories struct {
	People  PersonRepository
	Movies  MovieRepository
	Ratings DetailedRatingRepository
}

type Store struct {
	sessionID uuid.UUID
	repos     Repositories
	lookup    MetadataLookup
	logger    *slog.Logger
	now       func() time.Time

	mu      sync.RWMutex
	loaded  bool
	people  []model.Person
	movies  []*model.WatchedMovie
	ratings []*model.DetailedRating

	watchMu  sync.Mutex
	watchers []func()
}

func New(sessionID uuid.UUID, repos Repositories, lookup MetadataLookup) *Store {
	return &Store{
		sessionID: sessionID,
		repos:     repos,
		lookup:    lookup,
		logger:    slog.Default(),
		now:       time.Now,
	}
}

func (s *Store) SessionID() uuid.UUID {
	return s.sessionID
}

func (s *Store) Watch(fn func()) {
	s.watchMu.Lock()
	defer s.watchMu.Unlock()
	s.watchers = append(s.watchers, fn)
}

func (s *Store) changed() {
	s.watchMu.Lock()
	fns := make([]func(), len(s.watchers))
	copy(fns, s.watchers)
	s.watchMu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

// Load fetches in dependency order: roster, then movies newest-first, then
// the detailed ratings for exactly that movie id set.
func (s *Store) Load(ctx context.Context) error {
	peopleRecs, err := s.repos.People.ListBySession(ctx, s.sessionID)
	if err != nil {
		return errors.Join(ErrInternal, err)
	}

	movieRecs, err := s.repos.Movies.ListBySession(ctx, s.sessionID)
	if err != nil {
		return errors.Join(ErrInternal, err)
	}

	movieIDs := make([]uuid.UUID, len(movieRecs))
	for i, rec := range movieRecs {
		movieIDs[i] = rec.ID
	}

	var ratingRecs []model.DetailedRatingRecord
	if len(movieIDs) > 0 {
		ratingRecs, err = s.repos.Ratings.ListByMovies(ctx, movieIDs)
		if err != nil {
			return errors.Join(ErrInternal, err)
		}
	}

	people := make([]model.Person, 0, len(peopleRecs))
	for _, rec := range peopleRecs {
		people = append(people, rec.Person())
	}
	movies := make([]*model.WatchedMovie, 0, len(movieRecs))
	for _, rec := range movieRecs {
		movies = append(movies, rec.WatchedMovie())
	}
	ratings := make([]*model.DetailedRating, 0, len(ratingRecs))
	for _, rec := range ratingRecs {
		ratings = append(ratings, rec.DetailedRating())
	}

	s.mu.Lock()
	s.people = people
	s.movies = movies
	s.ratings = ratings
	s.loaded = true
	s.mu.Unlock()

	s.changed()
	return nil
}

func validScore(score *float64) bool {
	if score == nil {
		return true
	}
	v := *score
	return v >= 0 && v <= 10 && math.Mod(v*2, 1) == 0
}

// UpdateDetailedRating upserts one person's post-watch entry. A nil score
// with present=false and no existing row persists nothing at all. Score 0 is
// a real score, distinct from nil. The optimistic row carries a placeholder
// identifier until the persisted one arrives, which is why reconciliation
// matches by (movie, person) and not by row id during that window.
func (s *Store) UpdateDetailedRating(ctx context.Context, movieID, personID uuid.UUID, score *float64, present bool) error {
	if !validScore(score) {
		return fmt.Errorf("%w: score must be 0..10 in half points", ErrInvalidInput)
	}

	s.mu.Lock()
	if s.movieIndex(movieID) < 0 {
		s.mu.Unlock()
		return ErrResourceNotFound
	}
	idx := s.ratingIndex(movieID, personID)

	if idx < 0 && score == nil && !present {
		// Nothing to persist.
		s.mu.Unlock()
		return nil
	}

	var snapshot *model.DetailedRating
	if idx >= 0 {
		cp := *s.ratings[idx]
		snapshot = &cp
		if score != nil {
			s.ratings[idx].Score = score
		}
		s.ratings[idx].Present = present
	} else {
		s.ratings = append(s.ratings, &model.DetailedRating{
			WatchedMovieID: movieID,
			PersonID:       personID,
			Score:          score,
			Present:        present,
		})
	}
	s.mu.Unlock()
	s.changed()

	rec, err := s.repos.Ratings.Upsert(ctx, movieID, personID, score, present)
	if err != nil {
		s.mu.Lock()
		if i := s.ratingIndex(movieID, personID); i >= 0 {
			if snapshot != nil {
				s.ratings[i] = snapshot
			} else {
				s.ratings = append(s.ratings[:i], s.ratings[i+1:]...)
			}
		}
		s.mu.Unlock()
		s.changed()
		return errors.Join(ErrInternal, err)
	}

	s.mu.Lock()
	if i := s.ratingIndex(movieID, personID); i >= 0 {
		s.ratings[i] = rec.DetailedRating()
	}
	s.mu.Unlock()
	return nil
}

// AddMovie inserts a watched movie directly, outside the promotion path:
// free-text proposer, chosen watch date, optional metadata lookup. A failed
// lookup leaves the metadata empty and is not an error.
func (s *Store) AddMovie(ctx context.Context, title, proposer string, watchedAt time.Time, withLookup bool) (model.WatchedMovie, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return model.WatchedMovie{}, fmt.Errorf("%w: empty title", ErrInvalidInput)
	}
	if watchedAt.IsZero() {
		watchedAt = s.now()
	}

	movie := model.WatchedMovie{
		SessionID: s.sessionID,
		Title:     title,
		Proposer:  strings.TrimSpace(proposer),
		WatchedAt: watchedAt,
	}
	if withLookup {
		if meta, err := s.lookup.Lookup(ctx, title); err != nil {
			s.logger.Warn("lookup for manual entry failed", "title", title, "error", err)
		} else {
			movie.Meta = meta
		}
	}

	rec, err := s.repos.Movies.Create(ctx, movie)
	if err != nil {
		return model.WatchedMovie{}, errors.Join(ErrInternal, err)
	}

	created := rec.WatchedMovie()
	s.mu.Lock()
	s.movies = append(s.movies, created)
	sort.SliceStable(s.movies, func(i, j int) bool {
		return s.movies[i].WatchedAt.After(s.movies[j].WatchedAt)
	})
	s.mu.Unlock()

	s.changed()
	return *created, nil
}

// index helpers; callers hold s.mu.

func (s *Store) movieIndex(movieID uuid.UUID) int {
	for i, m := range s.movies {
		if m.ID == movieID {
			return i
		}
	}
	return -1
}

func (s *Store) ratingIndex(movieID, personID uuid.UUID) int {
	for i, r := range s.ratings {
		if r.WatchedMovieID == movieID && r.PersonID == personID {
			return i
		}
	}
	return -1
}

func (s *Store) ratingIndexByID(id uuid.UUID) int {
	for i, r := range s.ratings {
		if r.ID == id {
			return i
		}
	}
	return -1
}
