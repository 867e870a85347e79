package infra_postgres_detailedrating

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/CarciofiVolanti/movie-tally-time/internal/model"
)

type Driver struct {
	db *sqlx.DB
}

func New(db *sqlx.DB) *Driver {
	return &Driver{db: db}
}

func (d *Driver) ListByMovies(ctx context.Context, movieIDs []uuid.UUID) ([]model.DetailedRatingRecord, error) {
	var records []model.DetailedRatingRecord

	ids := make([]string, len(movieIDs))
	for i, id := range movieIDs {
		ids[i] = id.String()
	}

	query := `
		SELECT id, watched_movie_id, person_id, score, present
		FROM detailed_ratings
		WHERE watched_movie_id = ANY($1)
	`

	if err := d.db.SelectContext(ctx, &records, query, pq.Array(ids)); err != nil {
		return nil, err
	}
	return records, nil
}

// Upsert writes on the (movie, person) unique key. A nil score never wipes a
// stored one, so a presence toggle leaves rating history alone; a stored
// zero stays a real zero.
func (d *Driver) Upsert(ctx context.Context, movieID, personID uuid.UUID, score *float64, present bool) (model.DetailedRatingRecord, error) {
	var rec model.DetailedRatingRecord

	query := `
		INSERT INTO detailed_ratings (watched_movie_id, person_id, score, present)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (watched_movie_id, person_id) DO UPDATE
			SET score = COALESCE(EXCLUDED.score, detailed_ratings.score),
			    present = EXCLUDED.present
		RETURNING id, watched_movie_id, person_id, score, present
	`

	if err := d.db.GetContext(ctx, &rec, query, movieID, personID, score, present); err != nil {
		return model.DetailedRatingRecord{}, err
	}
	return rec, nil
}
