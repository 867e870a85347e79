package infra_postgres_rating

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/CarciofiVolanti/movie-tally-time/internal/model"
)

type Driver struct {
	db *sqlx.DB
}

func New(db *sqlx.DB) *Driver {
	return &Driver{db: db}
}

// Upsert writes on the (proposal, person) unique key. Safe to retry; the
// constraint is the backstop against two tabs racing on the same row.
func (d *Driver) Upsert(ctx context.Context, proposalID, personID uuid.UUID, score int) (model.RatingRecord, error) {
	var rec model.RatingRecord

	query := `
		INSERT INTO ratings (proposal_id, person_id, score)
		VALUES ($1, $2, $3)
		ON CONFLICT (proposal_id, person_id) DO UPDATE SET score = EXCLUDED.score
		RETURNING id, proposal_id, watched_movie_id, person_id, score
	`

	if err := d.db.GetContext(ctx, &rec, query, proposalID, personID, score); err != nil {
		return model.RatingRecord{}, err
	}
	return rec, nil
}

// Delete clears a rating. Deleting a row that was never there succeeds: a
// score of zero and an absent row mean the same thing.
func (d *Driver) Delete(ctx context.Context, proposalID, personID uuid.UUID) error {
	query := `
		DELETE FROM ratings
		WHERE proposal_id = $1 AND person_id = $2
	`

	_, err := d.db.ExecContext(ctx, query, proposalID, personID)
	return err
}

// Repoint detaches every rating of a promoted proposal and attaches it to
// the watched movie, so rating history survives the promotion.
func (d *Driver) Repoint(ctx context.Context, proposalID, watchedMovieID uuid.UUID) error {
	query := `
		UPDATE ratings
		SET proposal_id = NULL, watched_movie_id = $1
		WHERE proposal_id = $2
	`

	_, err := d.db.ExecContext(ctx, query, watchedMovieID, proposalID)
	return err
}
