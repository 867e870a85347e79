package infra_postgres_session

import (
	"context"
	"database/sql"
	"time"

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

type sessionDTO struct {
	ID        uuid.UUID `db:"id"`
	Name      string    `db:"name"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (d sessionDTO) session() model.Session {
	return model.Session{
		ID:        d.ID,
		Name:      d.Name,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}

func (d *Driver) Create(ctx context.Context, name string) (model.Session, error) {
	var dto sessionDTO

	query := `
		INSERT INTO sessions (name)
		VALUES ($1)
		RETURNING id, name, created_at, updated_at
	`

	if err := d.db.GetContext(ctx, &dto, query, name); err != nil {
		return model.Session{}, err
	}
	return dto.session(), nil
}

func (d *Driver) ByID(ctx context.Context, id uuid.UUID) (model.Session, error) {
	var dto sessionDTO

	query := `
		SELECT id, name, created_at, updated_at
		FROM sessions
		WHERE id = $1
	`

	if err := d.db.GetContext(ctx, &dto, query, id); err != nil {
		if err == sql.ErrNoRows {
			return model.Session{}, usecase_session.ErrResourceNotFound
		}
		return model.Session{}, err
	}
	return dto.session(), nil
}

func (d *Driver) Rename(ctx context.Context, id uuid.UUID, name string) error {
	query := `
		UPDATE sessions
		SET name = $1, updated_at = now()
		WHERE id = $2
	`

	result, err := d.db.ExecContext(ctx, query, name, id)
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
