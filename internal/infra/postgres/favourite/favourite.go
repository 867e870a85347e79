package infra_postgres_favourite

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

// Replace upserts on the per-person unique key: selecting a new favourite
// atomically displaces the previous one, leaving exactly one row.
func (d *Driver) Replace(ctx context.Context, sessionID, personID, proposalID uuid.UUID) (model.FavouriteRecord, error) {
	var rec model.FavouriteRecord

	query := `
		INSERT INTO favourites (session_id, person_id, proposal_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (session_id, person_id) DO UPDATE SET proposal_id = EXCLUDED.proposal_id
		RETURNING id, session_id, person_id, proposal_id
	`

	if err := d.db.GetContext(ctx, &rec, query, sessionID, personID, proposalID); err != nil {
		return model.FavouriteRecord{}, err
	}
	return rec, nil
}
