package model

import (
	"time"

	"github.com/google/uuid"
)

// Session is the shareable voting group. Its id is the URL token and the
// sole access-control mechanism.
type Session struct {
	ID        uuid.UUID
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Person struct {
	ID        uuid.UUID
	SessionID uuid.UUID
	Name      string
	IsPresent bool

	// Movies holds the titles this person has proposed. Derived from the
	// proposal set, never stored on the person row.
	Movies []string
}

// MovieMeta is enrichment data from the external lookup service. Any field
// may stay empty forever; a failed lookup is not an error state.
type MovieMeta struct {
	Poster         string
	Year           string
	Genre          string
	Runtime        string
	Director       string
	Plot           string
	ExternalRating string
	ExternalID     string
}

func (m MovieMeta) IsZero() bool {
	return m == MovieMeta{}
}

// Comment is the single freeform note on a proposal. Saving overwrites,
// there is no history.
type Comment struct {
	ID     uuid.UUID
	Author string
	Text   string
}

// Rating is a pre-watch "desire to watch" score, 1..5. "No opinion" is the
// absence of a row, never a zero-valued one.
type Rating struct {
	ID         uuid.UUID
	ProposalID uuid.UUID
	PersonID   uuid.UUID
	Score      int
}

type Proposal struct {
	ID        uuid.UUID
	SessionID uuid.UUID
	PersonID  uuid.UUID
	Proposer  string
	Title     string
	Meta      MovieMeta

	// Ratings is keyed by the rater's person id; each value carries its own
	// persistent row id so change events can be matched against it.
	Ratings map[uuid.UUID]Rating
	Comment *Comment
}

// Clone returns a deep copy safe to hand out of a store.
func (p *Proposal) Clone() *Proposal {
	cp := *p
	cp.Ratings = make(map[uuid.UUID]Rating, len(p.Ratings))
	for k, v := range p.Ratings {
		cp.Ratings[k] = v
	}
	if p.Comment != nil {
		c := *p.Comment
		cp.Comment = &c
	}
	return &cp
}

// WatchedMovie is a promoted (or manually entered) historical record. The
// proposer survives as plain text, not a person reference.
type WatchedMovie struct {
	ID        uuid.UUID
	SessionID uuid.UUID
	Title     string
	Proposer  string
	WatchedAt time.Time
	Meta      MovieMeta
}

// DetailedRating is a post-watch score in half points, 0..10. A nil Score is
// "no rating yet"; a zero Score is a real, deliberate zero. Present tracks
// attendance independently of the score.
type DetailedRating struct {
	ID             uuid.UUID
	WatchedMovieID uuid.UUID
	PersonID       uuid.UUID
	Score          *float64
	Present        bool
}

type Favourite struct {
	ID         uuid.UUID
	SessionID  uuid.UUID
	PersonID   uuid.UUID
	ProposalID uuid.UUID
}

// RankedMovie is one results-tab row: a proposal plus its present-voters-only
// average and the number of qualifying votes.
type RankedMovie struct {
	Proposal *Proposal
	Average  float64
	Total    int
}
