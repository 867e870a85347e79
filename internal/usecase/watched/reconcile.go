package usecase_watched

import (
	"context"
	"time"

	"github.com/CarciofiVolanti/movie-tally-time/internal/model"
)

// Apply reconciles one change-feed event. Watched-movie changes are rare and
// metadata-heavy, so any event on that table triggers a full reload instead
// of granular patching. Detailed-rating changes are granular: creates adopt
// the optimistic placeholder row by (movie, person) compound key — its row id
// is not trustworthy until then — updates match by row id, and deletes apply
// by row id alone because the payload carries nothing else.
func (s *Store) Apply(ev model.ChangeEvent) {
	switch ev.Table {
	case model.TableWatchedMovies:
		if s.movieEventConcernsUs(ev) {
			go s.reload()
		}
	case model.TableDetailedRatings:
		if s.applyDetailedRating(ev) {
			s.changed()
		}
	case model.TablePeople:
		if s.applyPerson(ev) {
			s.changed()
		}
	}
}

func (s *Store) movieEventConcernsUs(ev model.ChangeEvent) bool {
	if sessionID, ok := ev.SessionID(); ok {
		return sessionID == s.sessionID
	}
	// Delete payloads have no session; reload only if we know the row.
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.movieIndex(ev.Key) >= 0
}

func (s *Store) reload() {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := s.Load(ctx); err != nil {
		s.logger.Error("watched reload failed", "session_id", s.sessionID, "error", err)
	}
}

func (s *Store) applyDetailedRating(ev model.ChangeEvent) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch ev.Op {
	case model.OpCreate:
		rec, err := ev.DetailedRatingAfter()
		if err != nil {
			s.logger.Warn("bad detailed rating event payload", "error", err)
			return false
		}
		if s.movieIndex(rec.WatchedMovieID) < 0 {
			return false
		}
		if i := s.ratingIndex(rec.WatchedMovieID, rec.PersonID); i >= 0 {
			s.ratings[i] = rec.DetailedRating()
			return true
		}
		s.ratings = append(s.ratings, rec.DetailedRating())
		return true

	case model.OpUpdate:
		rec, err := ev.DetailedRatingAfter()
		if err != nil {
			s.logger.Warn("bad detailed rating event payload", "error", err)
			return false
		}
		if i := s.ratingIndexByID(rec.ID); i >= 0 {
			s.ratings[i] = rec.DetailedRating()
			return true
		}
		return false

	case model.OpDelete:
		if i := s.ratingIndexByID(ev.Key); i >= 0 {
			s.ratings = append(s.ratings[:i], s.ratings[i+1:]...)
			return true
		}
	}
	return false
}

func (s *Store) applyPerson(ev model.ChangeEvent) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch ev.Op {
	case model.OpCreate, model.OpUpdate:
		rec, err := ev.PersonAfter()
		if err != nil {
			return false
		}
		if rec.SessionID != s.sessionID {
			return false
		}
		for i, p := range s.people {
			if p.ID == rec.ID {
				s.people[i] = rec.Person()
				return true
			}
		}
		if ev.Op == model.OpCreate {
			s.people = append(s.people, rec.Person())
			return true
		}
		return false

	case model.OpDelete:
		for i, p := range s.people {
			if p.ID == ev.Key {
				s.people = append(s.people[:i], s.people[i+1:]...)
				return true
			}
		}
	}
	return false
}
