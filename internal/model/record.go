package model

import (
	"time"

	"github.com/google/uuid"
)

// Wire/row shapes, one per table. The db tags serve the sqlx drivers, the
// json tags serve the change-feed payloads emitted by the NOTIFY triggers.

type PersonRecord struct {
	ID        uuid.UUID `db:"id" json:"id"`
	SessionID uuid.UUID `db:"session_id" json:"session_id"`
	Name      string    `db:"name" json:"name"`
	IsPresent bool      `db:"is_present" json:"is_present"`
}

func (r PersonRecord) Person() Person {
	return Person{
		ID:        r.ID,
		SessionID: r.SessionID,
		Name:      r.Name,
		IsPresent: r.IsPresent,
	}
}

type ProposalRecord struct {
	ID             uuid.UUID `db:"id" json:"id"`
	SessionID      uuid.UUID `db:"session_id" json:"session_id"`
	PersonID       uuid.UUID `db:"person_id" json:"person_id"`
	Title          string    `db:"title" json:"title"`
	Poster         string    `db:"poster" json:"poster"`
	Year           string    `db:"year" json:"year"`
	Genre          string    `db:"genre" json:"genre"`
	Runtime        string    `db:"runtime" json:"runtime"`
	Director       string    `db:"director" json:"director"`
	Plot           string    `db:"plot" json:"plot"`
	ExternalRating string    `db:"external_rating" json:"external_rating"`
	ExternalID     string    `db:"external_id" json:"external_id"`
}

func (r ProposalRecord) Meta() MovieMeta {
	return MovieMeta{
		Poster:         r.Poster,
		Year:           r.Year,
		Genre:          r.Genre,
		Runtime:        r.Runtime,
		Director:       r.Director,
		Plot:           r.Plot,
		ExternalRating: r.ExternalRating,
		ExternalID:     r.ExternalID,
	}
}

// Proposal maps the row into the in-memory shape with an empty rating map.
// The proposer name is resolved by the caller, which knows the roster.
func (r ProposalRecord) Proposal(proposer string) *Proposal {
	return &Proposal{
		ID:        r.ID,
		SessionID: r.SessionID,
		PersonID:  r.PersonID,
		Proposer:  proposer,
		Title:     r.Title,
		Meta:      r.Meta(),
		Ratings:   make(map[uuid.UUID]Rating),
	}
}

type CommentRecord struct {
	ID         uuid.UUID `db:"id" json:"id"`
	ProposalID uuid.UUID `db:"proposal_id" json:"proposal_id"`
	Author     string    `db:"author" json:"author"`
	Body       string    `db:"body" json:"body"`
}

func (r CommentRecord) Comment() *Comment {
	return &Comment{ID: r.ID, Author: r.Author, Text: r.Body}
}

type RatingRecord struct {
	ID             uuid.UUID  `db:"id" json:"id"`
	ProposalID     *uuid.UUID `db:"proposal_id" json:"proposal_id"`
	WatchedMovieID *uuid.UUID `db:"watched_movie_id" json:"watched_movie_id"`
	PersonID       uuid.UUID  `db:"person_id" json:"person_id"`
	Score          int        `db:"score" json:"score"`
}

func (r RatingRecord) Rating() Rating {
	rt := Rating{ID: r.ID, PersonID: r.PersonID, Score: r.Score}
	if r.ProposalID != nil {
		rt.ProposalID = *r.ProposalID
	}
	return rt
}

type WatchedMovieRecord struct {
	ID             uuid.UUID `db:"id" json:"id"`
	SessionID      uuid.UUID `db:"session_id" json:"session_id"`
	Title          string    `db:"title" json:"title"`
	Proposer       string    `db:"proposer" json:"proposer"`
	WatchedAt      time.Time `db:"watched_at" json:"watched_at"`
	Poster         string    `db:"poster" json:"poster"`
	Year           string    `db:"year" json:"year"`
	Genre          string    `db:"genre" json:"genre"`
	Runtime        string    `db:"runtime" json:"runtime"`
	Director       string    `db:"director" json:"director"`
	Plot           string    `db:"plot" json:"plot"`
	ExternalRating string    `db:"external_rating" json:"external_rating"`
	ExternalID     string    `db:"external_id" json:"external_id"`
}

func (r WatchedMovieRecord) WatchedMovie() *WatchedMovie {
	return &WatchedMovie{
		ID:        r.ID,
		SessionID: r.SessionID,
		Title:     r.Title,
		Proposer:  r.Proposer,
		WatchedAt: r.WatchedAt,
		Meta: MovieMeta{
			Poster:         r.Poster,
			Year:           r.Year,
			Genre:          r.Genre,
			Runtime:        r.Runtime,
			Director:       r.Director,
			Plot:           r.Plot,
			ExternalRating: r.ExternalRating,
			ExternalID:     r.ExternalID,
		},
	}
}

type DetailedRatingRecord struct {
	ID             uuid.UUID `db:"id" json:"id"`
	WatchedMovieID uuid.UUID `db:"watched_movie_id" json:"watched_movie_id"`
	PersonID       uuid.UUID `db:"person_id" json:"person_id"`
	Score          *float64  `db:"score" json:"score"`
	Present        bool      `db:"present" json:"present"`
}

func (r DetailedRatingRecord) DetailedRating() *DetailedRating {
	return &DetailedRating{
		ID:             r.ID,
		WatchedMovieID: r.WatchedMovieID,
		PersonID:       r.PersonID,
		Score:          r.Score,
		Present:        r.Present,
	}
}

type FavouriteRecord struct {
	ID         uuid.UUID `db:"id" json:"id"`
	SessionID  uuid.UUID `db:"session_id" json:"session_id"`
	PersonID   uuid.UUID `db:"person_id" json:"person_id"`
	ProposalID uuid.UUID `db:"proposal_id" json:"proposal_id"`
}

func (r FavouriteRecord) Favourite() Favourite {
	return Favourite{ID: r.ID, SessionID: r.SessionID, PersonID: r.PersonID, ProposalID: r.ProposalID}
}
