package usecase_session

import (
	"github.com/google/uuid"

	"github.com/CarciofiVolanti/movie-tally-time/internal/model"
	"github.com/CarciofiVolanti/movie-tally-time/internal/ranking"
)

// Computed views. Everything returned here is a copy; callers can hold the
// results across further mutations without tearing.

func (s *Store) SessionID() uuid.UUID {
	return s.sessionID
}

// People returns the roster with each person's derived movie list filled in.
func (s *Store) People() []model.Person {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Person, len(s.people))
	copy(out, s.people)
	for i := range out {
		out[i].Movies = nil
		for _, p := range s.proposals {
			if p.PersonID == out[i].ID {
				out[i].Movies = append(out[i].Movies, p.Title)
			}
		}
	}
	return out
}

func (s *Store) PresentPeople() []model.Person {
	return ranking.PresentPeople(s.People())
}

func (s *Store) Proposals() []*model.Proposal {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*model.Proposal, len(s.proposals))
	for i, p := range s.proposals {
		out[i] = p.Clone()
	}
	return out
}

// RankedMovies is the results view: present-voters-only averages with the
// proposer-exclusion gate applied.
func (s *Store) RankedMovies() []model.RankedMovie {
	return ranking.RankMovies(s.Proposals(), s.People())
}

// Favourites maps person id to their single favourite proposal id.
func (s *Store) Favourites() map[uuid.UUID]uuid.UUID {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[uuid.UUID]uuid.UUID, len(s.favourites))
	for personID, f := range s.favourites {
		out[personID] = f.ProposalID
	}
	return out
}
