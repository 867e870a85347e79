package infra_postgres_proposal

import (
	"context"
	"database/sql"

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

const proposalColumns = `id, session_id, person_id, title, poster, year, genre,
	runtime, director, plot, external_rating, external_id`

// LoadJoined fetches the session's proposals together with every rating and
// comment row, so the caller has all identifiers in hand before publishing
// anything.
func (d *Driver) LoadJoined(ctx context.Context, sessionID uuid.UUID) (model.JoinedProposals, error) {
	var joined model.JoinedProposals

	proposalsQuery := `
		SELECT ` + proposalColumns + `
		FROM proposals
		WHERE session_id = $1
		ORDER BY created_at
	`
	if err := d.db.SelectContext(ctx, &joined.Proposals, proposalsQuery, sessionID); err != nil {
		return model.JoinedProposals{}, err
	}

	ratingsQuery := `
		SELECT r.id, r.proposal_id, r.watched_movie_id, r.person_id, r.score
		FROM ratings r
		JOIN proposals p ON r.proposal_id = p.id
		WHERE p.session_id = $1
	`
	if err := d.db.SelectContext(ctx, &joined.Ratings, ratingsQuery, sessionID); err != nil {
		return model.JoinedProposals{}, err
	}

	commentsQuery := `
		SELECT c.id, c.proposal_id, c.author, c.body
		FROM comments c
		JOIN proposals p ON c.proposal_id = p.id
		WHERE p.session_id = $1
	`
	if err := d.db.SelectContext(ctx, &joined.Comments, commentsQuery, sessionID); err != nil {
		return model.JoinedProposals{}, err
	}

	return joined, nil
}

// CreateOrGet inserts the proposal or, when the (session, person, title)
// unique key already holds, returns the existing row untouched. A genuine
// create also writes the proposer's default self-rating of 5.
func (d *Driver) CreateOrGet(ctx context.Context, sessionID, personID uuid.UUID, title string) (model.ProposalRecord, *model.RatingRecord, error) {
	tx, err := d.db.BeginTxx(ctx, nil)
	if err != nil {
		return model.ProposalRecord{}, nil, err
	}
	defer func() { _ = tx.Rollback() }()

	var rec model.ProposalRecord
	insertQuery := `
		INSERT INTO proposals (session_id, person_id, title)
		VALUES ($1, $2, $3)
		ON CONFLICT (session_id, person_id, title) DO NOTHING
		RETURNING ` + proposalColumns + `
	`
	err = tx.GetContext(ctx, &rec, insertQuery, sessionID, personID, title)
	if err == sql.ErrNoRows {
		// Duplicate: hand back the existing proposal, no new self-rating.
		selectQuery := `
			SELECT ` + proposalColumns + `
			FROM proposals
			WHERE session_id = $1 AND person_id = $2 AND title = $3
		`
		if err := tx.GetContext(ctx, &rec, selectQuery, sessionID, personID, title); err != nil {
			return model.ProposalRecord{}, nil, err
		}
		return rec, nil, tx.Commit()
	}
	if err != nil {
		return model.ProposalRecord{}, nil, err
	}

	var selfRating model.RatingRecord
	ratingQuery := `
		INSERT INTO ratings (proposal_id, person_id, score)
		VALUES ($1, $2, 5)
		ON CONFLICT (proposal_id, person_id) DO UPDATE SET score = EXCLUDED.score
		RETURNING id, proposal_id, watched_movie_id, person_id, score
	`
	if err := tx.GetContext(ctx, &selfRating, ratingQuery, rec.ID, personID); err != nil {
		return model.ProposalRecord{}, nil, err
	}

	if err := tx.Commit(); err != nil {
		return model.ProposalRecord{}, nil, err
	}
	return rec, &selfRating, nil
}

func (d *Driver) DeleteByTitle(ctx context.Context, sessionID, personID uuid.UUID, title string) error {
	query := `
		DELETE FROM proposals
		WHERE session_id = $1 AND person_id = $2 AND title = $3
	`

	result, err := d.db.ExecContext(ctx, query, sessionID, personID, title)
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

func (d *Driver) UpdateMeta(ctx context.Context, proposalID uuid.UUID, meta model.MovieMeta) error {
	query := `
		UPDATE proposals
		SET poster = $1, year = $2, genre = $3, runtime = $4,
			director = $5, plot = $6, external_rating = $7, external_id = $8
		WHERE id = $9
	`

	result, err := d.db.ExecContext(ctx, query,
		meta.Poster, meta.Year, meta.Genre, meta.Runtime,
		meta.Director, meta.Plot, meta.ExternalRating, meta.ExternalID,
		proposalID,
	)
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

// SaveComment overwrites the proposal's single comment in place.
func (d *Driver) SaveComment(ctx context.Context, proposalID uuid.UUID, author, text string) (model.CommentRecord, error) {
	var rec model.CommentRecord

	query := `
		INSERT INTO comments (proposal_id, author, body)
		VALUES ($1, $2, $3)
		ON CONFLICT (proposal_id) DO UPDATE SET author = EXCLUDED.author, body = EXCLUDED.body
		RETURNING id, proposal_id, author, body
	`

	if err := d.db.GetContext(ctx, &rec, query, proposalID, author, text); err != nil {
		return model.CommentRecord{}, err
	}
	return rec, nil
}

func (d *Driver) DeleteComment(ctx context.Context, proposalID uuid.UUID) error {
	query := `
		DELETE FROM comments
		WHERE proposal_id = $1
	`

	// Zero rows is fine: most proposals never get a comment.
	_, err := d.db.ExecContext(ctx, query, proposalID)
	return err
}

func (d *Driver) Delete(ctx context.Context, proposalID uuid.UUID) error {
	query := `
		DELETE FROM proposals
		WHERE id = $1
	`

	result, err := d.db.ExecContext(ctx, query, proposalID)
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
