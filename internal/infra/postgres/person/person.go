package infra_postgres_person

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/CarciofiVolanti/movie-tally-time/internal/model"
	usecase_session "github.com/CarciofiVolanti/movie-tally-time/internal/usecase/session"
)

type Driver struct {
	db *sqlx.DB
}

func New(db *sqlx.DB) *Driver {
	return &Driver{db: db}
}

func (d *Driver) ListBySession(ctx context.Context, sessionID uuid.UUID) ([]model.PersonRecord, error) {
	var records []model.PersonRecord

	query := `
		SELECT id, session_id, name, is_present
		FROM people
		WHERE session_id = $1
		ORDER BY name
	`

	if err := d.db.SelectContext(ctx, &records, query, sessionID); err != nil {
		return nil, err
	}
	return records, nil
}

func (d *Driver) Create(ctx context.Context, sessionID uuid.UUID, name string) (model.PersonRecord, error) {
	var rec model.PersonRecord

	query := `
		INSERT INTO people (session_id, name)
		VALUES ($1, $2)
		RETURNING id, session_id, name, is_present
	`

	if err := d.db.GetContext(ctx, &rec, query, sessionID, name); err != nil {
		return model.PersonRecord{}, err
	}
	return rec, nil
}

func (d *Driver) SetPresence(ctx context.Context, personID uuid.UUID, present bool) error {
	query := `
		UPDATE people
		SET is_present = $1
		WHERE id = $2
	`

	result, err := d.db.ExecContext(ctx, query, present, personID)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return usecase_session.ErrResourceNotFound
	}
	return nil
}

// Delete removes the person; proposals and ratings go with them through the
// schema's ON DELETE CASCADE, not through client logic.
func (d *Driver) Delete(ctx context.Context, personID uuid.UUID) error {
	query := `
		DELETE FROM people
		WHERE id = $1
	`

	result, err := d.db.ExecContext(ctx, query, personID)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return usecase_session.ErrResourceNotFound
	}
	return nil
}
