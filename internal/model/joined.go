package model

import "github.com/google/uuid"

// JoinedProposals is the load-time shape of one session's proposal data:
// the proposal rows plus every rating and comment row, fetched together so
// identifiers are in hand before anything is published to a store.
type JoinedProposals struct {
	Proposals []ProposalRecord
	Ratings   []RatingRecord
	Comments  []CommentRecord
}

// Assemble maps the joined rows into the in-memory shape. Ratings and
// comments are attached by proposal identifier in this single pass; rows
// whose parent proposal is absent (repointed ratings, foreign sessions) are
// dropped. proposerName resolves a person id to a display name.
func (j JoinedProposals) Assemble(proposerName func(uuid.UUID) string) []*Proposal {
	byID := make(map[uuid.UUID]*Proposal, len(j.Proposals))
	out := make([]*Proposal, 0, len(j.Proposals))
	for _, rec := range j.Proposals {
		p := rec.Proposal(proposerName(rec.PersonID))
		byID[rec.ID] = p
		out = append(out, p)
	}

	for _, rec := range j.Ratings {
		if rec.ProposalID == nil {
			continue
		}
		if p, ok := byID[*rec.ProposalID]; ok {
			p.Ratings[rec.PersonID] = rec.Rating()
		}
	}

	for _, rec := range j.Comments {
		if p, ok := byID[rec.ProposalID]; ok {
			p.Comment = rec.Comment()
		}
	}

	return out
}
