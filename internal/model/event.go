package model

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

type Table string

const (
	TablePeople          Table = "people"
	TableProposals       Table = "proposals"
	TableComments        Table = "comments"
	TableRatings         Table = "ratings"
	TableWatchedMovies   Table = "watched_movies"
	TableDetailedRatings Table = "detailed_ratings"
	TableFavourites      Table = "favourites"
)

type Operation string

const (
	OpCreate Operation = "create"
	OpUpdate Operation = "update"
	OpDelete Operation = "delete"
)

// ChangeEvent is one change-feed notification. Key is always set. After is
// set for creates and updates, Before only for updates. Deletes carry the
// primary key and nothing else, so reconciliation must never rely on parent
// references being present in a delete payload.
type ChangeEvent struct {
	Table  Table           `json:"table"`
	Op     Operation       `json:"op"`
	Key    uuid.UUID       `json:"key"`
	Before json.RawMessage `json:"before,omitempty"`
	After  json.RawMessage `json:"after,omitempty"`
}

// SessionID extracts the owning session from the payload when the row carries
// one. Child-table deletes have no payload at all; those events return false
// and have to be offered to every live session.
func (e ChangeEvent) SessionID() (uuid.UUID, bool) {
	var probe struct {
		SessionID *uuid.UUID `json:"session_id"`
	}
	if len(e.After) > 0 {
		if err := json.Unmarshal(e.After, &probe); err == nil && probe.SessionID != nil {
			return *probe.SessionID, true
		}
	}
	if len(e.Before) > 0 {
		if err := json.Unmarshal(e.Before, &probe); err == nil && probe.SessionID != nil {
			return *probe.SessionID, true
		}
	}
	return uuid.Nil, false
}

func decodeInto[T any](raw json.RawMessage) (T, error) {
	var rec T
	if len(raw) == 0 {
		return rec, fmt.Errorf("event payload missing")
	}
	if err := json.Unmarshal(raw, &rec); err != nil {
		return rec, fmt.Errorf("decode event payload: %w", err)
	}
	return rec, nil
}

func (e ChangeEvent) PersonAfter() (PersonRecord, error) {
	return decodeInto[PersonRecord](e.After)
}

func (e ChangeEvent) ProposalAfter() (ProposalRecord, error) {
	return decodeInto[ProposalRecord](e.After)
}

func (e ChangeEvent) CommentAfter() (CommentRecord, error) {
	return decodeInto[CommentRecord](e.After)
}

func (e ChangeEvent) RatingAfter() (RatingRecord, error) {
	return decodeInto[RatingRecord](e.After)
}

func (e ChangeEvent) WatchedMovieAfter() (WatchedMovieRecord, error) {
	return decodeInto[WatchedMovieRecord](e.After)
}

func (e ChangeEvent) DetailedRatingAfter() (DetailedRatingRecord, error) {
	return decodeInto[DetailedRatingRecord](e.After)
}

func (e ChangeEvent) FavouriteAfter() (FavouriteRecord, error) {
	return decodeInto[FavouriteRecord](e.After)
}
