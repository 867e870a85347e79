package usecase_watched

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/CarciofiVolanti/movie-tally-time/internal/model"
)

type personRepoMock struct{ mock.Mock }

func (m *personRepoMock) ListBySession(ctx context.Context, sessionID uuid.UUID) ([]model.PersonRecord, error) {
	args := m.Called(ctx, sessionID)
	if recs := args.Get(0); recs != nil {
		return recs.([]model.PersonRecord), args.Error(1)
	}
	return nil, args.Error(1)
}

type movieRepoMock struct{ mock.Mock }

func (m *movieRepoMock) ListBySession(ctx context.Context, sessionID uuid.UUID) ([]model.WatchedMovieRecord, error) {
	args := m.Called(ctx, sessionID)
	if recs := args.Get(0); recs != nil {
		return recs.([]model.WatchedMovieRecord), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *movieRepoMock) Create(ctx context.Context, movie model.WatchedMovie) (model.WatchedMovieRecord, error) {
	args := m.Called(ctx, movie)
	return args.Get(0).(model.WatchedMovieRecord), args.Error(1)
}

type detailedRatingRepoMock struct{ mock.Mock }

func (m *detailedRatingRepoMock) ListByMovies(ctx context.Context, movieIDs []uuid.UUID) ([]model.DetailedRatingRecord, error) {
	args := m.Called(ctx, movieIDs)
	if recs := args.Get(0); recs != nil {
		return recs.([]model.DetailedRatingRecord), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *detailedRatingRepoMock) Upsert(ctx context.Context, movieID, personID uuid.UUID, score *float64, present bool) (model.DetailedRatingRecord, error) {
	args := m.Called(ctx, movieID, personID, score, present)
	return args.Get(0).(model.DetailedRatingRecord), args.Error(1)
}

type lookupMock struct{ mock.Mock }

func (m *lookupMock) Lookup(ctx context.Context, title string) (model.MovieMeta, error) {
	args := m.Called(ctx, title)
	return args.Get(0).(model.MovieMeta), args.Error(1)
}

type fixture struct {
	sessionID uuid.UUID
	people    *personRepoMock
	movies    *movieRepoMock
	ratings   *detailedRatingRepoMock
	lookup    *lookupMock
	store     *Store
	ctx       context.Context
}

func newFixture(t *testing.T, peopleRecs []model.PersonRecord, movieRecs []model.WatchedMovieRecord, ratingRecs []model.DetailedRatingRecord) *fixture {
	t.Helper()

	f := &fixture{
		sessionID: uuid.New(),
		people:    &personRepoMock{},
		movies:    &movieRepoMock{},
		ratings:   &detailedRatingRepoMock{},
		lookup:    &lookupMock{},
		ctx:       context.Background(),
	}
	f.store = New(f.sessionID, Repositories{
		People:  f.people,
		Movies:  f.movies,
		Ratings: f.ratings,
	}, f.lookup)

	for i := range peopleRecs {
		peopleRecs[i].SessionID = f.sessionID
	}
	for i := range movieRecs {
		movieRecs[i].SessionID = f.sessionID
	}

	f.people.On("ListBySession", mock.Anything, f.sessionID).Return(peopleRecs, nil).Once()
	f.movies.On("ListBySession", mock.Anything, f.sessionID).Return(movieRecs, nil).Once()
	if len(movieRecs) > 0 {
		f.ratings.On("ListByMovies", mock.Anything, mock.Anything).Return(ratingRecs, nil).Once()
	}
	require.NoError(t, f.store.Load(f.ctx))
	return f
}

func score(v float64) *float64 { return &v }

func movieRec(title string, watchedAt time.Time) model.WatchedMovieRecord {
	return model.WatchedMovieRecord{ID: uuid.New(), Title: title, Proposer: "Dana", WatchedAt: watchedAt}
}

func ratingRec(movieID, personID uuid.UUID, s *float64, present bool) model.DetailedRatingRecord {
	return model.DetailedRatingRecord{ID: uuid.New(), WatchedMovieID: movieID, PersonID: personID, Score: s, Present: present}
}

func eventFor(t *testing.T, table model.Table, op model.Operation, key uuid.UUID, payload any) model.ChangeEvent {
	t.Helper()
	ev := model.ChangeEvent{Table: table, Op: op, Key: key}
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		ev.After = raw
	}
	return ev
}

func TestUpdateDetailedRating(t *testing.T) {
	person := model.PersonRecord{ID: uuid.New(), Name: "Eli", IsPresent: true}
	movie := movieRec("Alpha", time.Now())

	t.Run("rejects scores off the half-point grid", func(t *testing.T) {
		f := newFixture(t, []model.PersonRecord{person}, []model.WatchedMovieRecord{movie}, nil)
		err := f.store.UpdateDetailedRating(f.ctx, movie.ID, person.ID, score(7.3), true)
		assert.ErrorIs(t, err, ErrInvalidInput)

		err = f.store.UpdateDetailedRating(f.ctx, movie.ID, person.ID, score(10.5), true)
		assert.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("half points are valid", func(t *testing.T) {
		f := newFixture(t, []model.PersonRecord{person}, []model.WatchedMovieRecord{movie}, nil)
		persisted := ratingRec(movie.ID, person.ID, score(7.5), true)
		f.ratings.On("Upsert", mock.Anything, movie.ID, person.ID, score(7.5), true).
			Return(persisted, nil).Once()

		require.NoError(t, f.store.UpdateDetailedRating(f.ctx, movie.ID, person.ID, score(7.5), true))

		got, found := f.store.RatingForPerson(movie.ID, person.ID)
		require.True(t, found)
		assert.Equal(t, 7.5, *got)
		f.ratings.AssertExpectations(t)
	})

	t.Run("unknown movie", func(t *testing.T) {
		f := newFixture(t, []model.PersonRecord{person}, []model.WatchedMovieRecord{movie}, nil)
		err := f.store.UpdateDetailedRating(f.ctx, uuid.New(), person.ID, score(5), true)
		assert.ErrorIs(t, err, ErrResourceNotFound)
	})

	t.Run("nothing to persist is a no-op", func(t *testing.T) {
		f := newFixture(t, []model.PersonRecord{person}, []model.WatchedMovieRecord{movie}, nil)

		require.NoError(t, f.store.UpdateDetailedRating(f.ctx, movie.ID, person.ID, nil, false))

		_, found := f.store.RatingForPerson(movie.ID, person.ID)
		assert.False(t, found)
		f.ratings.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("zero is a real score", func(t *testing.T) {
		f := newFixture(t, []model.PersonRecord{person}, []model.WatchedMovieRecord{movie}, nil)
		persisted := ratingRec(movie.ID, person.ID, score(0), true)
		f.ratings.On("Upsert", mock.Anything, movie.ID, person.ID, score(0), true).
			Return(persisted, nil).Once()

		require.NoError(t, f.store.UpdateDetailedRating(f.ctx, movie.ID, person.ID, score(0), true))

		got, found := f.store.RatingForPerson(movie.ID, person.ID)
		require.True(t, found)
		require.NotNil(t, got)
		assert.Zero(t, *got)
		assert.True(t, f.store.HasVoted(movie.ID, person.ID))
	})

	t.Run("attendance only row does not count as voted", func(t *testing.T) {
		f := newFixture(t, []model.PersonRecord{person}, []model.WatchedMovieRecord{movie}, nil)
		persisted := ratingRec(movie.ID, person.ID, nil, true)
		f.ratings.On("Upsert", mock.Anything, movie.ID, person.ID, (*float64)(nil), true).
			Return(persisted, nil).Once()

		require.NoError(t, f.store.UpdateDetailedRating(f.ctx, movie.ID, person.ID, nil, true))

		assert.False(t, f.store.HasVoted(movie.ID, person.ID))
		assert.True(t, f.store.CountedPresent(movie.ID, person.ID, nil))
	})

	t.Run("placeholder adopts persisted identifier", func(t *testing.T) {
		f := newFixture(t, []model.PersonRecord{person}, []model.WatchedMovieRecord{movie}, nil)
		persisted := ratingRec(movie.ID, person.ID, score(8), true)
		f.ratings.On("Upsert", mock.Anything, movie.ID, person.ID, score(8), true).
			Return(persisted, nil).Once()

		require.NoError(t, f.store.UpdateDetailedRating(f.ctx, movie.ID, person.ID, score(8), true))

		ratings := f.store.Ratings(movie.ID)
		require.Len(t, ratings, 1)

		// A later update event can now match by row id.
		updated := persisted
		updated.Score = score(6)
		f.store.Apply(eventFor(t, model.TableDetailedRatings, model.OpUpdate, persisted.ID, updated))
		got, _ := f.store.RatingForPerson(movie.ID, person.ID)
		assert.Equal(t, 6.0, *got)
	})

	t.Run("failed write rolls a fresh row back out", func(t *testing.T) {
		f := newFixture(t, []model.PersonRecord{person}, []model.WatchedMovieRecord{movie}, nil)
		f.ratings.On("Upsert", mock.Anything, movie.ID, person.ID, score(8), true).
			Return(model.DetailedRatingRecord{}, errors.New("db down")).Once()

		err := f.store.UpdateDetailedRating(f.ctx, movie.ID, person.ID, score(8), true)

		assert.ErrorIs(t, err, ErrInternal)
		_, found := f.store.RatingForPerson(movie.ID, person.ID)
		assert.False(t, found)
	})

	t.Run("failed write restores the previous row", func(t *testing.T) {
		existing := ratingRec(movie.ID, person.ID, score(4), true)
		f := newFixture(t, []model.PersonRecord{person}, []model.WatchedMovieRecord{movie},
			[]model.DetailedRatingRecord{existing})
		f.ratings.On("Upsert", mock.Anything, movie.ID, person.ID, score(9), true).
			Return(model.DetailedRatingRecord{}, errors.New("db down")).Once()

		err := f.store.UpdateDetailedRating(f.ctx, movie.ID, person.ID, score(9), true)

		assert.ErrorIs(t, err, ErrInternal)
		got, found := f.store.RatingForPerson(movie.ID, person.ID)
		require.True(t, found)
		assert.Equal(t, 4.0, *got)
	})

	t.Run("presence toggle keeps the stored score", func(t *testing.T) {
		existing := ratingRec(movie.ID, person.ID, score(4), true)
		f := newFixture(t, []model.PersonRecord{person}, []model.WatchedMovieRecord{movie},
			[]model.DetailedRatingRecord{existing})
		persisted := existing
		persisted.Present = false
		f.ratings.On("Upsert", mock.Anything, movie.ID, person.ID, (*float64)(nil), false).
			Return(persisted, nil).Once()

		require.NoError(t, f.store.UpdateDetailedRating(f.ctx, movie.ID, person.ID, nil, false))

		got, found := f.store.RatingForPerson(movie.ID, person.ID)
		require.True(t, found)
		assert.Equal(t, 4.0, *got)
		assert.False(t, f.store.CountedPresent(movie.ID, person.ID, nil))
	})
}

func TestAttendanceAndCompleteness(t *testing.T) {
	dana := model.PersonRecord{ID: uuid.New(), Name: "Dana", IsPresent: true}
	eli := model.PersonRecord{ID: uuid.New(), Name: "Eli", IsPresent: true}
	movie := movieRec("Alpha", time.Now())

	t.Run("override wins over stored presence", func(t *testing.T) {
		existing := ratingRec(movie.ID, dana.ID, score(5), true)
		f := newFixture(t, []model.PersonRecord{dana, eli}, []model.WatchedMovieRecord{movie},
			[]model.DetailedRatingRecord{existing})

		no := false
		assert.False(t, f.store.CountedPresent(movie.ID, dana.ID, &no))
		assert.True(t, f.store.CountedPresent(movie.ID, dana.ID, nil))
		// No row at all defaults to absent.
		assert.False(t, f.store.CountedPresent(movie.ID, eli.ID, nil))
	})

	t.Run("fully rated needs every present person scored", func(t *testing.T) {
		f := newFixture(t, []model.PersonRecord{dana, eli}, []model.WatchedMovieRecord{movie},
			[]model.DetailedRatingRecord{
				ratingRec(movie.ID, dana.ID, score(5), true),
				ratingRec(movie.ID, eli.ID, nil, true),
			})

		assert.False(t, f.store.FullyRated(movie.ID))
		missing := f.store.MissingRaters(movie.ID)
		require.Len(t, missing, 1)
		assert.Equal(t, "Eli", missing[0].Name)
	})

	t.Run("nobody present means not fully rated", func(t *testing.T) {
		f := newFixture(t, []model.PersonRecord{dana, eli}, []model.WatchedMovieRecord{movie}, nil)
		assert.False(t, f.store.FullyRated(movie.ID))
	})

	t.Run("absent raters are excluded from completeness but not from the average", func(t *testing.T) {
		f := newFixture(t, []model.PersonRecord{dana, eli}, []model.WatchedMovieRecord{movie},
			[]model.DetailedRatingRecord{
				ratingRec(movie.ID, dana.ID, score(8), true),
				ratingRec(movie.ID, eli.ID, score(4), false),
			})

		assert.True(t, f.store.FullyRated(movie.ID))
		avg, votes := f.store.Average(movie.ID)
		assert.Equal(t, 6.0, avg)
		assert.Equal(t, 2, votes)
	})
}

func TestViewModes(t *testing.T) {
	dana := model.PersonRecord{ID: uuid.New(), Name: "Dana", IsPresent: true}
	older := movieRec("Older", time.Date(2026, 1, 10, 20, 0, 0, 0, time.UTC))
	newer := movieRec("Newer", time.Date(2026, 2, 14, 20, 0, 0, 0, time.UTC))

	ratings := []model.DetailedRatingRecord{
		ratingRec(older.ID, dana.ID, score(7), true),
		// Newer: dana attended but has not scored yet.
		ratingRec(newer.ID, dana.ID, nil, true),
	}
	f := newFixture(t, []model.PersonRecord{dana}, []model.WatchedMovieRecord{newer, older}, ratings)

	titles := func(movies []*model.WatchedMovie) []string {
		out := make([]string, len(movies))
		for i, m := range movies {
			out[i] = m.Title
		}
		return out
	}

	assert.Equal(t, []string{"Newer", "Older"}, titles(f.store.View(ModeDateDesc, uuid.Nil)))
	assert.Equal(t, []string{"Older", "Newer"}, titles(f.store.View(ModeDateAsc, uuid.Nil)))
	assert.Equal(t, []string{"Older"}, titles(f.store.View(ModeVoted, dana.ID)))
	assert.Equal(t, []string{"Newer"}, titles(f.store.View(ModeNotVoted, dana.ID)))
	assert.Empty(t, f.store.View(ModeAbsent, dana.ID))
	assert.Equal(t, []string{"Newer"}, titles(f.store.View(ModeNotFullyRated, uuid.Nil)))
}

func TestAddMovie(t *testing.T) {
	t.Run("rejects empty title", func(t *testing.T) {
		f := newFixture(t, nil, nil, nil)
		_, err := f.store.AddMovie(f.ctx, "  ", "Dana", time.Time{}, false)
		assert.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("tolerates a failed lookup", func(t *testing.T) {
		f := newFixture(t, nil, nil, nil)
		f.lookup.On("Lookup", mock.Anything, "Alpha").
			Return(model.MovieMeta{}, errors.New("offline")).Once()
		f.movies.On("Create", mock.Anything, mock.MatchedBy(func(m model.WatchedMovie) bool {
			return m.Title == "Alpha" && m.Meta.IsZero()
		})).Return(model.WatchedMovieRecord{ID: uuid.New(), Title: "Alpha"}, nil).Once()

		movie, err := f.store.AddMovie(f.ctx, "Alpha", "Dana", time.Time{}, true)

		require.NoError(t, err)
		assert.Equal(t, "Alpha", movie.Title)
		f.lookup.AssertExpectations(t)
		f.movies.AssertExpectations(t)
	})

	t.Run("keeps the list newest first", func(t *testing.T) {
		older := movieRec("Older", time.Date(2026, 1, 10, 20, 0, 0, 0, time.UTC))
		f := newFixture(t, nil, []model.WatchedMovieRecord{older}, nil)

		inserted := time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC)
		f.movies.On("Create", mock.Anything, mock.Anything).
			Return(model.WatchedMovieRecord{ID: uuid.New(), Title: "Fresh", WatchedAt: inserted}, nil).Once()

		_, err := f.store.AddMovie(f.ctx, "Fresh", "", inserted, false)

		require.NoError(t, err)
		movies := f.store.Movies()
		require.Len(t, movies, 2)
		assert.Equal(t, "Fresh", movies[0].Title)
	})
}

func TestApplyDetailedRatingEvents(t *testing.T) {
	dana := model.PersonRecord{ID: uuid.New(), Name: "Dana", IsPresent: true}
	movie := movieRec("Alpha", time.Now())

	t.Run("create adopts the optimistic placeholder by compound key", func(t *testing.T) {
		f := newFixture(t, []model.PersonRecord{dana}, []model.WatchedMovieRecord{movie}, nil)

		// Optimistic local row without a trustworthy id yet.
		persisted := ratingRec(movie.ID, dana.ID, score(8), true)
		f.ratings.On("Upsert", mock.Anything, movie.ID, dana.ID, score(8), true).
			Return(persisted, nil).Once()
		require.NoError(t, f.store.UpdateDetailedRating(f.ctx, movie.ID, dana.ID, score(8), true))

		// The echo lands on the same (movie, person) entry instead of doubling.
		f.store.Apply(eventFor(t, model.TableDetailedRatings, model.OpCreate, persisted.ID, persisted))

		assert.Len(t, f.store.Ratings(movie.ID), 1)
	})

	t.Run("create for an unknown movie is ignored", func(t *testing.T) {
		f := newFixture(t, []model.PersonRecord{dana}, []model.WatchedMovieRecord{movie}, nil)
		foreign := ratingRec(uuid.New(), dana.ID, score(8), true)

		f.store.Apply(eventFor(t, model.TableDetailedRatings, model.OpCreate, foreign.ID, foreign))

		assert.Empty(t, f.store.Ratings(movie.ID))
	})

	t.Run("key-only delete drops by row id", func(t *testing.T) {
		existing := ratingRec(movie.ID, dana.ID, score(8), true)
		f := newFixture(t, []model.PersonRecord{dana}, []model.WatchedMovieRecord{movie},
			[]model.DetailedRatingRecord{existing})

		f.store.Apply(eventFor(t, model.TableDetailedRatings, model.OpDelete, existing.ID, nil))

		assert.Empty(t, f.store.Ratings(movie.ID))
	})

	t.Run("remote person create appends to the roster", func(t *testing.T) {
		f := newFixture(t, []model.PersonRecord{dana}, []model.WatchedMovieRecord{movie}, nil)
		rec := model.PersonRecord{ID: uuid.New(), SessionID: f.sessionID, Name: "Eli", IsPresent: true}

		f.store.Apply(eventFor(t, model.TablePeople, model.OpCreate, rec.ID, rec))

		assert.Len(t, f.store.People(), 2)
	})
}
