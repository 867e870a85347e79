package infra_postgres_watchedmovie

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

const movieColumns = `id, session_id, title, proposer, watched_at, poster, year,
	genre, runtime, director, plot, external_rating, external_id`

func (d *Driver) ListBySession(ctx context.Context, sessionID uuid.UUID) ([]model.WatchedMovieRecord, error) {
	var records []model.WatchedMovieRecord

	query := `
		SELECT ` + movieColumns + `
		FROM watched_movies
		WHERE session_id = $1
		ORDER BY watched_at DESC
	`

	if err := d.db.SelectContext(ctx, &records, query, sessionID); err != nil {
		return nil, err
	}
	return records, nil
}

func (d *Driver) Create(ctx context.Context, movie model.WatchedMovie) (model.WatchedMovieRecord, error) {
	var rec model.WatchedMovieRecord

	query := `
		INSERT INTO watched_movies
			(session_id, title, proposer, watched_at, poster, year, genre,
			 runtime, director, plot, external_rating, external_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING ` + movieColumns + `
	`

	err := d.db.GetContext(ctx, &rec, query,
		movie.SessionID, movie.Title, movie.Proposer, movie.WatchedAt,
		movie.Meta.Poster, movie.Meta.Year, movie.Meta.Genre, movie.Meta.Runtime,
		movie.Meta.Director, movie.Meta.Plot, movie.Meta.ExternalRating, movie.Meta.ExternalID,
	)
	if err != nil {
		return model.WatchedMovieRecord{}, err
	}
	return rec, nil
}
