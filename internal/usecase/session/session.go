// Package usecase_session owns the live state of one voting session: the
// roster, the proposals with their ratings and comments, and the favourites.
// Mutations are applied optimistically, persisted, and rolled back on
// failure; remote changes arrive through Apply and always win for display.
package usecase_session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/CarciofiVolanti/movie-tally-time/internal/model"
)

var (
	ErrInvalidInput         = errors.New("invalid input")
	ErrResourceNotFound     = errors.New("no such resource")
	ErrConfirmationRequired = errors.New("confirmation required")
	ErrNoPersonSelected     = errors.New("no person selected")
	ErrOwnProposal          = errors.New("cannot favourite own proposal")
	ErrInternal             = errors.New("internal error")
)

//go:generate mockery --name=PersonRepository --output=./mocks/person --filename=repository.go
type PersonRepository interface {
	ListBySession(ctx context.Context, sessionID uuid.UUID) ([]model.PersonRecord, error)
	Create(ctx context.Context, sessionID uuid.UUID, name string) (model.PersonRecord, error)
	SetPresence(ctx context.Context, personID uuid.UUID, present bool) error
	Delete(ctx context.Context, personID uuid.UUID) error
}

//go:generate mockery --name=ProposalRepository --output=./mocks/proposal --filename=repository.go
type ProposalRepository interface {
	// LoadJoined returns the load-time shape: proposal rows together with
	// every rating and comment row of the session, identifiers included.
	LoadJoined(ctx context.Context, sessionID uuid.UUID) (model.JoinedProposals, error)

	// CreateOrGet resolves a duplicate (person, title) pair to the existing
	// row. On a genuine create it also writes the proposer's default
	// self-rating of 5 and returns that row.
	CreateOrGet(ctx context.Context, sessionID, personID uuid.UUID, title string) (model.ProposalRecord, *model.RatingRecord, error)

	DeleteByTitle(ctx context.Context, sessionID, personID uuid.UUID, title string) error
	UpdateMeta(ctx context.Context, proposalID uuid.UUID, meta model.MovieMeta) error
	SaveComment(ctx context.Context, proposalID uuid.UUID, author, text string) (model.CommentRecord, error)
	DeleteComment(ctx context.Context, proposalID uuid.UUID) error
	Delete(ctx context.Context, proposalID uuid.UUID) error
}

//go:generate mockery --name=RatingRepository --output=./mocks/rating --filename=repository.go
type RatingRepository interface {
	Upsert(ctx context.Context, proposalID, personID uuid.UUID, score int) (model.RatingRecord, error)
	Delete(ctx context.Context, proposalID, personID uuid.UUID) error
	Repoint(ctx context.Context, proposalID, watchedMovieID uuid.UUID) error
}

//go:generate mockery --name=FavouriteRepository --output=./mocks/favourite --filename=repository.go
type FavouriteRepository interface {
	Replace(ctx context.Context, sessionID, personID, proposalID uuid.UUID) (model.FavouriteRecord, error)
}

//go:generate mockery --name=WatchedMovieRepository --output=./mocks/watched --filename=repository.go
type WatchedMovieRepository interface {
	Create(ctx context.Context, movie model.WatchedMovie) (model.WatchedMovieRecord, error)
}

//go:generate mockery --name=MetadataLookup --output=./mocks/lookup --filename=lookup.go
type MetadataLookup interface {
	Lookup(ctx context.Context, title string) (model.MovieMeta, error)
}

type Repositories struct {
	People     PersonRepository
	Proposals  ProposalRepository
	Ratings    RatingRepository
	Favourites FavouriteRepository
	Watched    WatchedMovieRepository
}

type Store struct {
	sessionID uuid.UUID
	repos     Repositories
	lookup    MetadataLookup
	logger    *slog.Logger
	now       func() time.Time

	mu         sync.RWMutex
	loaded     bool
	people     []model.Person
	proposals  []*model.Proposal
	favourites map[uuid.UUID]model.Favourite

	watchMu  sync.Mutex
	watchers []func()
}

func New(sessionID uuid.UUID, repos Repositories, lookup MetadataLookup) *Store {
	return &Store{
		sessionID:  sessionID,
		repos:      repos,
		lookup:     lookup,
		logger:     slog.Default(),
		now:        time.Now,
		favourites: make(map[uuid.UUID]model.Favourite),
	}
}

// Watch registers a callback invoked after every state change, local or
// remote. Used by the fan-out layer to push fresh snapshots to viewers.
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

// Load fetches the roster and the joined proposals in two parallel round
// trips. Every rating row carries its persistent identifier before the state
// is published, so change events arriving right after Load always have
// something to match against.
func (s *Store) Load(ctx context.Context) error {
	var (
		wg        sync.WaitGroup
		records   []model.PersonRecord
		joined    model.JoinedProposals
		errPeople error
		errJoined error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		records, errPeople = s.repos.People.ListBySession(ctx, s.sessionID)
	}()
	go func() {
		defer wg.Done()
		joined, errJoined = s.repos.Proposals.LoadJoined(ctx, s.sessionID)
	}()
	wg.Wait()

	if errPeople != nil || errJoined != nil {
		return errors.Join(ErrInternal, errPeople, errJoined)
	}

	people := make([]model.Person, 0, len(records))
	names := make(map[uuid.UUID]string, len(records))
	for _, rec := range records {
		people = append(people, rec.Person())
		names[rec.ID] = rec.Name
	}

	proposals := joined.Assemble(func(personID uuid.UUID) string {
		return names[personID]
	})

	s.mu.Lock()
	s.people = people
	s.proposals = proposals
	s.loaded = true
	s.mu.Unlock()

	s.changed()
	return nil
}

// AddPerson creates a roster entry. The append happens only after the server
// assigns the identifier, so the new row is immediately matchable.
func (s *Store) AddPerson(ctx context.Context, name string) (model.Person, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return model.Person{}, fmt.Errorf("%w: empty name", ErrInvalidInput)
	}

	rec, err := s.repos.People.Create(ctx, s.sessionID, name)
	if err != nil {
		return model.Person{}, errors.Join(ErrInternal, err)
	}

	p := rec.Person()
	s.mu.Lock()
	s.people = append(s.people, p)
	s.mu.Unlock()

	s.changed()
	return p, nil
}

// UpdatePerson applies a presence change and reconciles the person's desired
// movie list against their persisted proposals. A failed presence write rolls
// the person back; a failed proposal creation is simply not added, never left
// dangling. Proposal deletions cascade their ratings at the persistence
// layer.
func (s *Store) UpdatePerson(ctx context.Context, personID uuid.UUID, present bool, movies []string) error {
	s.mu.Lock()
	idx := s.personIndex(personID)
	if idx < 0 {
		s.mu.Unlock()
		return ErrResourceNotFound
	}
	snapshot := s.people[idx]
	s.people[idx].IsPresent = present
	current := make(map[string]bool)
	for _, p := range s.proposals {
		if p.PersonID == personID {
			current[p.Title] = true
		}
	}
	s.mu.Unlock()
	s.changed()

	if snapshot.IsPresent != present {
		if err := s.repos.People.SetPresence(ctx, personID, present); err != nil {
			s.mu.Lock()
			if i := s.personIndex(personID); i >= 0 {
				s.people[i] = snapshot
			}
			s.mu.Unlock()
			s.changed()
			return errors.Join(ErrInternal, err)
		}
	}

	desired := make(map[string]bool, len(movies))
	for _, title := range movies {
		title = strings.TrimSpace(title)
		if title != "" {
			desired[title] = true
		}
	}

	var errs []error
	for title := range current {
		if desired[title] {
			continue
		}
		if err := s.repos.Proposals.DeleteByTitle(ctx, s.sessionID, personID, title); err != nil {
			errs = append(errs, fmt.Errorf("remove %q: %w", title, err))
			continue
		}
		s.mu.Lock()
		s.removeProposalByTitle(personID, title)
		s.mu.Unlock()
		s.changed()
	}

	for title := range desired {
		if current[title] {
			continue
		}
		if err := s.addProposal(ctx, personID, snapshot.Name, title); err != nil {
			errs = append(errs, fmt.Errorf("propose %q: %w", title, err))
		}
	}

	if len(errs) > 0 {
		return errors.Join(append([]error{ErrInternal}, errs...)...)
	}
	return nil
}

func (s *Store) addProposal(ctx context.Context, personID uuid.UUID, proposer, title string) error {
	rec, selfRating, err := s.repos.Proposals.CreateOrGet(ctx, s.sessionID, personID, title)
	if err != nil {
		return err
	}

	s.mu.Lock()
	if s.proposalIndexByID(rec.ID) < 0 {
		p := rec.Proposal(proposer)
		if selfRating != nil {
			p.Ratings[selfRating.PersonID] = selfRating.Rating()
		}
		s.proposals = append(s.proposals, p)
	}
	s.mu.Unlock()
	s.changed()

	// Enrichment is asynchronous and allowed to fail forever; the proposal
	// stays partially filled in that case.
	go s.enrichProposal(rec.ID, title)
	return nil
}

func (s *Store) enrichProposal(proposalID uuid.UUID, title string) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	meta, err := s.lookup.Lookup(ctx, title)
	if err != nil {
		s.logger.Warn("metadata lookup failed", "title", title, "error", err)
		return
	}
	if err := s.repos.Proposals.UpdateMeta(ctx, proposalID, meta); err != nil {
		s.logger.Warn("metadata persist failed", "title", title, "error", err)
		return
	}

	s.mu.Lock()
	if i := s.proposalIndexByID(proposalID); i >= 0 {
		s.proposals[i].Meta = meta
	}
	s.mu.Unlock()
	s.changed()
}

// DeletePerson is irreversible: the persistence layer cascades the person's
// proposals and ratings. The caller must have confirmed interactively. Local
// state drops the person and their proposals at once instead of waiting for
// the cascade's change-feed echo.
func (s *Store) DeletePerson(ctx context.Context, personID uuid.UUID, confirmed bool) error {
	if !confirmed {
		return ErrConfirmationRequired
	}

	s.mu.RLock()
	idx := s.personIndex(personID)
	s.mu.RUnlock()
	if idx < 0 {
		return ErrResourceNotFound
	}

	if err := s.repos.People.Delete(ctx, personID); err != nil {
		return errors.Join(ErrInternal, err)
	}

	s.mu.Lock()
	if i := s.personIndex(personID); i >= 0 {
		s.people = append(s.people[:i], s.people[i+1:]...)
	}
	kept := s.proposals[:0]
	for _, p := range s.proposals {
		if p.PersonID != personID {
			kept = append(kept, p)
		}
	}
	s.proposals = kept
	delete(s.favourites, personID)
	s.mu.Unlock()

	s.changed()
	return nil
}

// UpdateRating resolves the proposal by title (titles are unique within a
// session) and upserts or, for score 0, deletes the rating row. Score 0 means
// "no opinion" and is represented by row absence. Callers rendering the rate
// tab should hold their ordering after a successful save.
func (s *Store) UpdateRating(ctx context.Context, title string, personID uuid.UUID, score int) error {
	if score < 0 || score > 5 {
		return fmt.Errorf("%w: score %d out of range", ErrInvalidInput, score)
	}

	s.mu.Lock()
	idx := s.proposalIndexByTitle(title)
	if idx < 0 {
		s.mu.Unlock()
		return ErrResourceNotFound
	}
	prop := s.proposals[idx]
	proposalID := prop.ID
	prev, hadPrev := prop.Ratings[personID]

	if score == 0 {
		delete(prop.Ratings, personID)
	} else {
		next := model.Rating{ProposalID: proposalID, PersonID: personID, Score: score}
		if hadPrev {
			next.ID = prev.ID
		}
		prop.Ratings[personID] = next
	}
	s.mu.Unlock()
	s.changed()

	rollback := func() {
		s.mu.Lock()
		if i := s.proposalIndexByID(proposalID); i >= 0 {
			if hadPrev {
				s.proposals[i].Ratings[personID] = prev
			} else {
				delete(s.proposals[i].Ratings, personID)
			}
		}
		s.mu.Unlock()
		s.changed()
	}

	if score == 0 {
		if err := s.repos.Ratings.Delete(ctx, proposalID, personID); err != nil {
			rollback()
			return errors.Join(ErrInternal, err)
		}
		return nil
	}

	rec, err := s.repos.Ratings.Upsert(ctx, proposalID, personID, score)
	if err != nil {
		rollback()
		return errors.Join(ErrInternal, err)
	}

	s.mu.Lock()
	if i := s.proposalIndexByID(proposalID); i >= 0 {
		s.proposals[i].Ratings[personID] = rec.Rating()
	}
	s.mu.Unlock()
	return nil
}

// MarkWatched promotes a proposal into a watched movie. The steps run in a
// fixed order with the proposal delete last, so a failure partway leaves the
// proposal intact: insert the watched copy, repoint the ratings, delete the
// comment, delete the proposal.
func (s *Store) MarkWatched(ctx context.Context, title string, confirmed bool) (model.WatchedMovie, error) {
	if !confirmed {
		return model.WatchedMovie{}, ErrConfirmationRequired
	}

	s.mu.RLock()
	idx := s.proposalIndexByTitle(title)
	if idx < 0 {
		s.mu.RUnlock()
		return model.WatchedMovie{}, ErrResourceNotFound
	}
	prop := s.proposals[idx]
	proposalID := prop.ID
	promoted := model.WatchedMovie{
		SessionID: s.sessionID,
		Title:     prop.Title,
		Proposer:  prop.Proposer,
		WatchedAt: s.now(),
		Meta:      prop.Meta,
	}
	s.mu.RUnlock()

	wrec, err := s.repos.Watched.Create(ctx, promoted)
	if err != nil {
		return model.WatchedMovie{}, errors.Join(ErrInternal, err)
	}
	if err := s.repos.Ratings.Repoint(ctx, proposalID, wrec.ID); err != nil {
		return model.WatchedMovie{}, errors.Join(ErrInternal, err)
	}
	if err := s.repos.Proposals.DeleteComment(ctx, proposalID); err != nil {
		return model.WatchedMovie{}, errors.Join(ErrInternal, err)
	}
	if err := s.repos.Proposals.Delete(ctx, proposalID); err != nil {
		return model.WatchedMovie{}, errors.Join(ErrInternal, err)
	}

	s.mu.Lock()
	if i := s.proposalIndexByID(proposalID); i >= 0 {
		s.proposals = append(s.proposals[:i], s.proposals[i+1:]...)
	}
	s.mu.Unlock()
	s.changed()

	return *wrec.WatchedMovie(), nil
}

// ToggleFavourite sets the person's single favourite, replacing any previous
// one. Selecting nobody or the person's own proposal is a client-side no-op
// with an error the UI can surface.
func (s *Store) ToggleFavourite(ctx context.Context, personID, proposalID uuid.UUID) error {
	if personID == uuid.Nil {
		return ErrNoPersonSelected
	}

	s.mu.Lock()
	idx := s.proposalIndexByID(proposalID)
	if idx < 0 {
		s.mu.Unlock()
		return ErrResourceNotFound
	}
	if s.proposals[idx].PersonID == personID {
		s.mu.Unlock()
		return ErrOwnProposal
	}
	prev, hadPrev := s.favourites[personID]
	s.favourites[personID] = model.Favourite{
		SessionID:  s.sessionID,
		PersonID:   personID,
		ProposalID: proposalID,
	}
	s.mu.Unlock()
	s.changed()

	rec, err := s.repos.Favourites.Replace(ctx, s.sessionID, personID, proposalID)
	if err != nil {
		s.mu.Lock()
		if hadPrev {
			s.favourites[personID] = prev
		} else {
			delete(s.favourites, personID)
		}
		s.mu.Unlock()
		s.changed()
		return errors.Join(ErrInternal, err)
	}

	s.mu.Lock()
	s.favourites[personID] = rec.Favourite()
	s.mu.Unlock()
	return nil
}

// SaveComment overwrites the proposal's single comment. No history is kept.
func (s *Store) SaveComment(ctx context.Context, proposalID uuid.UUID, author, text string) error {
	s.mu.RLock()
	idx := s.proposalIndexByID(proposalID)
	s.mu.RUnlock()
	if idx < 0 {
		return ErrResourceNotFound
	}

	rec, err := s.repos.Proposals.SaveComment(ctx, proposalID, author, text)
	if err != nil {
		return errors.Join(ErrInternal, err)
	}

	s.mu.Lock()
	if i := s.proposalIndexByID(proposalID); i >= 0 {
		s.proposals[i].Comment = rec.Comment()
	}
	s.mu.Unlock()
	s.changed()
	return nil
}

// ResearchMeta re-runs the metadata lookup for one proposal. Unlike batch
// enrichment, failures here are surfaced to the caller.
func (s *Store) ResearchMeta(ctx context.Context, proposalID uuid.UUID) (model.MovieMeta, error) {
	s.mu.RLock()
	idx := s.proposalIndexByID(proposalID)
	var title string
	if idx >= 0 {
		title = s.proposals[idx].Title
	}
	s.mu.RUnlock()
	if idx < 0 {
		return model.MovieMeta{}, ErrResourceNotFound
	}

	meta, err := s.lookup.Lookup(ctx, title)
	if err != nil {
		return model.MovieMeta{}, err
	}
	if err := s.repos.Proposals.UpdateMeta(ctx, proposalID, meta); err != nil {
		return model.MovieMeta{}, errors.Join(ErrInternal, err)
	}

	s.mu.Lock()
	if i := s.proposalIndexByID(proposalID); i >= 0 {
		s.proposals[i].Meta = meta
	}
	s.mu.Unlock()
	s.changed()
	return meta, nil
}

// EnrichMissing looks up metadata for every proposal still lacking it, one
// call per movie. Individual failures leave that movie empty and never abort
// the rest. Returns how many proposals were enriched.
func (s *Store) EnrichMissing(ctx context.Context) int {
	type target struct {
		id    uuid.UUID
		title string
	}
	s.mu.RLock()
	targets := make([]target, 0)
	for _, p := range s.proposals {
		if p.Meta.IsZero() {
			targets = append(targets, target{id: p.ID, title: p.Title})
		}
	}
	s.mu.RUnlock()

	enriched := 0
	for _, t := range targets {
		meta, err := s.lookup.Lookup(ctx, t.title)
		if err != nil {
			s.logger.Warn("batch enrichment skipped title", "title", t.title, "error", err)
			continue
		}
		if err := s.repos.Proposals.UpdateMeta(ctx, t.id, meta); err != nil {
			s.logger.Warn("batch enrichment persist failed", "title", t.title, "error", err)
			continue
		}
		s.mu.Lock()
		if i := s.proposalIndexByID(t.id); i >= 0 {
			s.proposals[i].Meta = meta
		}
		s.mu.Unlock()
		enriched++
	}
	if enriched > 0 {
		s.changed()
	}
	return enriched
}

// index helpers; callers hold s.mu.

func (s *Store) personIndex(personID uuid.UUID) int {
	for i, p := range s.people {
		if p.ID == personID {
			return i
		}
	}
	return -1
}

func (s *Store) proposalIndexByID(proposalID uuid.UUID) int {
	for i, p := range s.proposals {
		if p.ID == proposalID {
			return i
		}
	}
	return -1
}

func (s *Store) proposalIndexByTitle(title string) int {
	for i, p := range s.proposals {
		if p.Title == title {
			return i
		}
	}
	return -1
}

func (s *Store) removeProposalByTitle(personID uuid.UUID, title string) {
	for i, p := range s.proposals {
		if p.PersonID == personID && p.Title == title {
			s.proposals = append(s.proposals[:i], s.proposals[i+1:]...)
			return
		}
	}
}
