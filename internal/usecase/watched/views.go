package usecase_watched

import (
	"sort"

	"github.com/google/uuid"

	"github.com/CarciofiVolanti/movie-tally-time/internal/model"
)

// ViewMode selects how the watched list is filtered and ordered.
type ViewMode string

const (
	ModeDateDesc      ViewMode = "date_desc"
	ModeDateAsc       ViewMode = "date_asc"
	ModeVoted         ViewMode = "voted"
	ModeNotVoted      ViewMode = "not_voted"
	ModeAbsent        ViewMode = "absent"
	ModeNotFullyRated ViewMode = "not_fully_rated"
)

func (s *Store) People() []model.Person {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Person, len(s.people))
	copy(out, s.people)
	return out
}

func (s *Store) Movies() []*model.WatchedMovie {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.copyMovies()
}

func (s *Store) Ratings(movieID uuid.UUID) []*model.DetailedRating {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*model.DetailedRating, 0)
	for _, r := range s.ratings {
		if r.WatchedMovieID == movieID {
			cp := *r
			out = append(out, &cp)
		}
	}
	return out
}

// RatingForPerson returns the person's score for a movie. A stored zero comes
// back as a non-nil 0, which is not the same thing as no rating at all.
func (s *Store) RatingForPerson(movieID, personID uuid.UUID) (score *float64, found bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if i := s.ratingIndex(movieID, personID); i >= 0 {
		return s.ratings[i].Score, true
	}
	return nil, false
}

// HasVoted reports whether the person has an actual score for the movie.
// An attendance-only row does not count.
func (s *Store) HasVoted(movieID, personID uuid.UUID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.hasVoted(movieID, personID)
}

func (s *Store) hasVoted(movieID, personID uuid.UUID) bool {
	if i := s.ratingIndex(movieID, personID); i >= 0 {
		return s.ratings[i].Score != nil
	}
	return false
}

// CountedPresent resolves attendance with the three-tier fallback: an
// uncommitted local toggle (override) wins over the persisted present flag,
// which wins over the default of absent.
func (s *Store) CountedPresent(movieID, personID uuid.UUID, override *bool) bool {
	if override != nil {
		return *override
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.countedPresent(movieID, personID)
}

func (s *Store) countedPresent(movieID, personID uuid.UUID) bool {
	if i := s.ratingIndex(movieID, personID); i >= 0 {
		return s.ratings[i].Present
	}
	return false
}

// FullyRated reports whether every person counted present for the movie has
// a non-nil score. Ratings from absent people do not enter this check, and a
// movie nobody attended is not considered fully rated.
func (s *Store) FullyRated(movieID uuid.UUID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.fullyRated(movieID)
}

func (s *Store) fullyRated(movieID uuid.UUID) bool {
	anyPresent := false
	for _, r := range s.ratings {
		if r.WatchedMovieID != movieID || !r.Present {
			continue
		}
		anyPresent = true
		if r.Score == nil {
			return false
		}
	}
	return anyPresent
}

// MissingRaters lists the people counted present for the movie who have no
// score yet.
func (s *Store) MissingRaters(movieID uuid.UUID) []model.Person {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Person, 0)
	for _, p := range s.people {
		if s.countedPresent(movieID, p.ID) && !s.hasVoted(movieID, p.ID) {
			out = append(out, p)
		}
	}
	return out
}

// Average is the mean of every non-nil score for the movie, attendance
// notwithstanding: a score from someone marked absent still counts.
func (s *Store) Average(movieID uuid.UUID) (avg float64, votes int) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var sum float64
	for _, r := range s.ratings {
		if r.WatchedMovieID == movieID && r.Score != nil {
			sum += *r.Score
			votes++
		}
	}
	if votes == 0 {
		return 0, 0
	}
	return sum / float64(votes), votes
}

// View returns the watched list for one filter mode. The date modes sort the
// whole list; the person and completeness modes filter first and fall back
// to a newest-first date sort underneath.
func (s *Store) View(mode ViewMode, personID uuid.UUID) []*model.WatchedMovie {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*model.WatchedMovie
	switch mode {
	case ModeDateAsc:
		out = s.copyMovies()
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].WatchedAt.Before(out[j].WatchedAt)
		})
		return out

	case ModeVoted:
		out = s.filterMovies(func(m *model.WatchedMovie) bool {
			return s.hasVoted(m.ID, personID)
		})
	case ModeNotVoted:
		out = s.filterMovies(func(m *model.WatchedMovie) bool {
			return s.countedPresent(m.ID, personID) && !s.hasVoted(m.ID, personID)
		})
	case ModeAbsent:
		out = s.filterMovies(func(m *model.WatchedMovie) bool {
			return !s.countedPresent(m.ID, personID)
		})
	case ModeNotFullyRated:
		out = s.filterMovies(func(m *model.WatchedMovie) bool {
			return !s.fullyRated(m.ID)
		})
	default:
		out = s.copyMovies()
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].WatchedAt.After(out[j].WatchedAt)
	})
	return out
}

func (s *Store) copyMovies() []*model.WatchedMovie {
	out := make([]*model.WatchedMovie, len(s.movies))
	for i, m := range s.movies {
		cp := *m
		out[i] = &cp
	}
	return out
}

func (s *Store) filterMovies(keep func(*model.WatchedMovie) bool) []*model.WatchedMovie {
	out := make([]*model.WatchedMovie, 0)
	for _, m := range s.movies {
		if keep(m) {
			cp := *m
			out = append(out, &cp)
		}
	}
	return out
}
