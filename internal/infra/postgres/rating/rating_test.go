package infra_postgres_rating

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type resources struct {
	db     *sqlx.DB
	mock   sqlmock.Sqlmock
	driver *Driver
	ctx    context.Context
}

func initResources(t *testing.T) *resources {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	sqlxDB := sqlx.NewDb(db, "sqlmock")
	return &resources{
		db:     sqlxDB,
		mock:   mock,
		driver: New(sqlxDB),
		ctx:    context.Background(),
	}
}

func TestUpsert(t *testing.T) {
	r := initResources(t)

	ratingID := uuid.New()
	proposalID := uuid.New()
	personID := uuid.New()

	rows := sqlmock.NewRows([]string{"id", "proposal_id", "watched_movie_id", "person_id", "score"}).
		AddRow(ratingID.String(), proposalID.String(), nil, personID.String(), 4)
	r.mock.ExpectQuery("INSERT INTO ratings").
		WithArgs(proposalID, personID, 4).
		WillReturnRows(rows)

	rec, err := r.driver.Upsert(r.ctx, proposalID, personID, 4)

	require.NoError(t, err)
	assert.Equal(t, ratingID, rec.ID)
	require.NotNil(t, rec.ProposalID)
	assert.Equal(t, proposalID, *rec.ProposalID)
	assert.Nil(t, rec.WatchedMovieID)
	assert.Equal(t, 4, rec.Score)
	assert.NoError(t, r.mock.ExpectationsWereMet())
}

func TestUpsertPropagatesError(t *testing.T) {
	r := initResources(t)

	proposalID := uuid.New()
	personID := uuid.New()
	r.mock.ExpectQuery("INSERT INTO ratings").
		WithArgs(proposalID, personID, 2).
		WillReturnError(errors.New("connection refused"))

	_, err := r.driver.Upsert(r.ctx, proposalID, personID, 2)

	assert.Error(t, err)
	assert.NoError(t, r.mock.ExpectationsWereMet())
}

func TestDeleteMissingRowSucceeds(t *testing.T) {
	r := initResources(t)

	proposalID := uuid.New()
	personID := uuid.New()
	r.mock.ExpectExec("DELETE FROM ratings").
		WithArgs(proposalID, personID).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := r.driver.Delete(r.ctx, proposalID, personID)

	assert.NoError(t, err, "deleting an absent rating is the same as setting zero twice")
	assert.NoError(t, r.mock.ExpectationsWereMet())
}

func TestRepoint(t *testing.T) {
	r := initResources(t)

	proposalID := uuid.New()
	watchedMovieID := uuid.New()
	r.mock.ExpectExec("UPDATE ratings").
		WithArgs(watchedMovieID, proposalID).
		WillReturnResult(sqlmock.NewResult(0, 3))

	err := r.driver.Repoint(r.ctx, proposalID, watchedMovieID)

	assert.NoError(t, err)
	assert.NoError(t, r.mock.ExpectationsWereMet())
}
