package usecase_session

import (
	"github.com/google/uuid"

	"github.com/CarciofiVolanti/movie-tally-time/internal/model"
)

// Apply reconciles one change-feed event into local state. Matching is
// always by persistent identifier, never by position. Creates that echo a
// locally applied write are dropped as duplicates; updates and deletes for
// rows this store never saw are ignored (foreign session or not loaded yet).
// Remote values win over optimistic ones: they are the durable state.
func (s *Store) Apply(ev model.ChangeEvent) {
	applied := false

	switch ev.Table {
	case model.TablePeople:
		applied = s.applyPerson(ev)
	case model.TableProposals:
		applied = s.applyProposal(ev)
	case model.TableRatings:
		applied = s.applyRating(ev)
	case model.TableComments:
		applied = s.applyComment(ev)
	case model.TableFavourites:
		applied = s.applyFavourite(ev)
	default:
		// watched_movies and detailed_ratings belong to the watched store.
	}

	if applied {
		s.changed()
	}
}

func (s *Store) applyPerson(ev model.ChangeEvent) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch ev.Op {
	case model.OpCreate, model.OpUpdate:
		rec, err := ev.PersonAfter()
		if err != nil {
			s.logger.Warn("bad person event payload", "error", err)
			return false
		}
		if rec.SessionID != s.sessionID {
			return false
		}
		if i := s.personIndex(rec.ID); i >= 0 {
			s.people[i] = rec.Person()
			return true
		}
		if ev.Op == model.OpCreate {
			s.people = append(s.people, rec.Person())
			return true
		}
		return false

	case model.OpDelete:
		if i := s.personIndex(ev.Key); i >= 0 {
			personID := s.people[i].ID
			s.people = append(s.people[:i], s.people[i+1:]...)
			kept := s.proposals[:0]
			for _, p := range s.proposals {
				if p.PersonID != personID {
					kept = append(kept, p)
				}
			}
			s.proposals = kept
			delete(s.favourites, personID)
			return true
		}
	}
	return false
}

func (s *Store) applyProposal(ev model.ChangeEvent) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch ev.Op {
	case model.OpCreate, model.OpUpdate:
		rec, err := ev.ProposalAfter()
		if err != nil {
			s.logger.Warn("bad proposal event payload", "error", err)
			return false
		}
		if rec.SessionID != s.sessionID {
			return false
		}
		if i := s.proposalIndexByID(rec.ID); i >= 0 {
			p := s.proposals[i]
			p.Title = rec.Title
			p.Meta = rec.Meta()
			return true
		}
		if ev.Op == model.OpCreate {
			var proposer string
			if i := s.personIndex(rec.PersonID); i >= 0 {
				proposer = s.people[i].Name
			}
			s.proposals = append(s.proposals, rec.Proposal(proposer))
			return true
		}
		return false

	case model.OpDelete:
		if i := s.proposalIndexByID(ev.Key); i >= 0 {
			s.proposals = append(s.proposals[:i], s.proposals[i+1:]...)
			return true
		}
	}
	return false
}

func (s *Store) applyRating(ev model.ChangeEvent) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch ev.Op {
	case model.OpCreate, model.OpUpdate:
		rec, err := ev.RatingAfter()
		if err != nil {
			s.logger.Warn("bad rating event payload", "error", err)
			return false
		}
		if rec.ProposalID == nil {
			// Repointed to a watched movie; no longer this store's concern.
			return s.dropRatingByID(ev.Key)
		}
		i := s.proposalIndexByID(*rec.ProposalID)
		if i < 0 {
			return false
		}
		// Keyed by person, so an echo of a local optimistic write lands on
		// the same entry and just confirms its identifier.
		s.proposals[i].Ratings[rec.PersonID] = rec.Rating()
		return true

	case model.OpDelete:
		// Delete payloads carry the primary key only.
		return s.dropRatingByID(ev.Key)
	}
	return false
}

func (s *Store) dropRatingByID(ratingID uuid.UUID) bool {
	for _, p := range s.proposals {
		for personID, r := range p.Ratings {
			if r.ID == ratingID {
				delete(p.Ratings, personID)
				return true
			}
		}
	}
	return false
}

func (s *Store) applyComment(ev model.ChangeEvent) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch ev.Op {
	case model.OpCreate, model.OpUpdate:
		rec, err := ev.CommentAfter()
		if err != nil {
			s.logger.Warn("bad comment event payload", "error", err)
			return false
		}
		if i := s.proposalIndexByID(rec.ProposalID); i >= 0 {
			s.proposals[i].Comment = rec.Comment()
			return true
		}
		return false

	case model.OpDelete:
		for _, p := range s.proposals {
			if p.Comment != nil && p.Comment.ID == ev.Key {
				p.Comment = nil
				return true
			}
		}
	}
	return false
}

func (s *Store) applyFavourite(ev model.ChangeEvent) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch ev.Op {
	case model.OpCreate, model.OpUpdate:
		rec, err := ev.FavouriteAfter()
		if err != nil {
			s.logger.Warn("bad favourite event payload", "error", err)
			return false
		}
		if rec.SessionID != s.sessionID {
			return false
		}
		s.favourites[rec.PersonID] = rec.Favourite()
		return true

	case model.OpDelete:
		for personID, f := range s.favourites {
			if f.ID == ev.Key {
				delete(s.favourites, personID)
				return true
			}
		}
	}
	return false
}
