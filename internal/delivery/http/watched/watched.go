package http_watched

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	http_common "github.com/CarciofiVolanti/movie-tally-time/internal/delivery/http/common"
	ws_session "github.com/CarciofiVolanti/movie-tally-time/internal/delivery/ws/session"
	"github.com/CarciofiVolanti/movie-tally-time/internal/model"
	usecase_watched "github.com/CarciofiVolanti/movie-tally-time/internal/usecase/watched"
)

type Controller struct {
	registry *usecase_watched.Registry
	logger   *slog.Logger
}

func New(registry *usecase_watched.Registry) *Controller {
	return &Controller{
		registry: registry,
		logger:   slog.Default(),
	}
}

func (c *Controller) RegisterRoutes(router *gin.RouterGroup) {
	watched := router.Group("/sessions/:session_id/watched-movies")
	{
		watched.GET("", c.list)
		watched.POST("", c.add)
		watched.PUT("/:movie_id/ratings", c.rate)
	}
}

type DetailedRatingDTO struct {
	PersonID uuid.UUID `json:"person_id"`
	Score    *float64  `json:"score"`
	Present  bool      `json:"present"`
}

type WatchedMovieDTO struct {
	ID            uuid.UUID           `json:"id"`
	Title         string              `json:"title"`
	Proposer      string              `json:"proposer"`
	WatchedAt     time.Time           `json:"watched_at"`
	Meta          ws_session.MetaDTO  `json:"meta"`
	Ratings       []DetailedRatingDTO `json:"ratings"`
	Average       float64             `json:"average"`
	Votes         int                 `json:"votes"`
	FullyRated    bool                `json:"fully_rated"`
	MissingRaters []string            `json:"missing_raters,omitempty"`
}

type WatchedListResponse struct {
	Movies []WatchedMovieDTO `json:"movies"`
	Total  int               `json:"total"`
}

func convertMovie(store *usecase_watched.Store, m *model.WatchedMovie) WatchedMovieDTO {
	dto := WatchedMovieDTO{
		ID:         m.ID,
		Title:      m.Title,
		Proposer:   m.Proposer,
		WatchedAt:  m.WatchedAt,
		Meta:       ws_session.ConvertMeta(m.Meta),
		Ratings:    make([]DetailedRatingDTO, 0),
		FullyRated: store.FullyRated(m.ID),
	}
	for _, r := range store.Ratings(m.ID) {
		dto.Ratings = append(dto.Ratings, DetailedRatingDTO{
			PersonID: r.PersonID,
			Score:    r.Score,
			Present:  r.Present,
		})
	}
	dto.Average, dto.Votes = store.Average(m.ID)
	for _, p := range store.MissingRaters(m.ID) {
		dto.MissingRaters = append(dto.MissingRaters, p.Name)
	}
	return dto
}

// list returns the watched history for one view mode. The person-relative
// modes (voted, not_voted, absent) need a person_id to filter against.
func (c *Controller) list(ctx *gin.Context) {
	sessionID, ok := parseSessionID(ctx)
	if !ok {
		return
	}

	mode := usecase_watched.ViewMode(ctx.DefaultQuery("mode", string(usecase_watched.ModeDateDesc)))

	var personID uuid.UUID
	if raw := ctx.Query("person_id"); raw != "" {
		var err error
		if personID, err = uuid.Parse(raw); err != nil {
			ctx.JSON(http.StatusBadRequest, http_common.ErrorResponse{
				Message: "invalid person id",
			})
			return
		}
	}

	store, err := c.registry.Acquire(ctx.Request.Context(), sessionID)
	if err != nil {
		c.respondAcquireError(ctx, err)
		return
	}
	defer c.registry.Release(sessionID)

	movies := store.View(mode, personID)
	response := WatchedListResponse{
		Movies: make([]WatchedMovieDTO, len(movies)),
		Total:  len(movies),
	}
	for i, m := range movies {
		response.Movies[i] = convertMovie(store, m)
	}

	ctx.JSON(http.StatusOK, response)
}

type AddMovieRequest struct {
	Title     string    `json:"title" binding:"required"`
	Proposer  string    `json:"proposer"`
	WatchedAt time.Time `json:"watched_at"`
	Lookup    bool      `json:"lookup"`
}

// add inserts a watched movie directly, outside the promotion path. Used for
// backfilling nights that predate the session.
func (c *Controller) add(ctx *gin.Context) {
	sessionID, ok := parseSessionID(ctx)
	if !ok {
		return
	}

	var req AddMovieRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, http_common.ErrorResponse{
			Message: "invalid request format",
		})
		return
	}

	store, err := c.registry.Acquire(ctx.Request.Context(), sessionID)
	if err != nil {
		c.respondAcquireError(ctx, err)
		return
	}
	defer c.registry.Release(sessionID)

	movie, err := store.AddMovie(ctx.Request.Context(), req.Title, req.Proposer, req.WatchedAt, req.Lookup)
	if err != nil {
		if errors.Is(err, usecase_watched.ErrInvalidInput) {
			ctx.JSON(http.StatusBadRequest, http_common.ErrorResponse{
				Message: "invalid title",
			})
			return
		}
		c.logger.Error("failed to add watched movie", slog.String("error", err.Error()))
		ctx.JSON(http.StatusInternalServerError, http_common.ErrorResponse{
			Message: "internal error",
		})
		return
	}

	ctx.JSON(http.StatusCreated, convertMovie(store, &movie))
}

type RateRequest struct {
	PersonID uuid.UUID `json:"person_id" binding:"required"`
	Score    *float64  `json:"score"`
	Present  bool      `json:"present"`
}

// rate upserts one person's post-watch entry. A null score with present set
// records attendance without an opinion; score 0 is a deliberate zero.
func (c *Controller) rate(ctx *gin.Context) {
	sessionID, ok := parseSessionID(ctx)
	if !ok {
		return
	}
	movieID, err := uuid.Parse(ctx.Param("movie_id"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, http_common.ErrorResponse{
			Message: "invalid movie id",
		})
		return
	}

	var req RateRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, http_common.ErrorResponse{
			Message: "invalid request format",
		})
		return
	}

	store, err := c.registry.Acquire(ctx.Request.Context(), sessionID)
	if err != nil {
		c.respondAcquireError(ctx, err)
		return
	}
	defer c.registry.Release(sessionID)

	if err := store.UpdateDetailedRating(ctx.Request.Context(), movieID, req.PersonID, req.Score, req.Present); err != nil {
		switch {
		case errors.Is(err, usecase_watched.ErrInvalidInput):
			ctx.JSON(http.StatusBadRequest, http_common.ErrorResponse{
				Message: "score must be 0..10 in half points",
			})
		case errors.Is(err, usecase_watched.ErrResourceNotFound):
			ctx.JSON(http.StatusNotFound, http_common.ErrorResponse{
				Message: "not found",
			})
		default:
			c.logger.Error("failed to save detailed rating", slog.String("error", err.Error()))
			ctx.JSON(http.StatusInternalServerError, http_common.ErrorResponse{
				Message: "internal error",
			})
		}
		return
	}

	ctx.Status(http.StatusNoContent)
}

func (c *Controller) respondAcquireError(ctx *gin.Context, err error) {
	if errors.Is(err, usecase_watched.ErrResourceNotFound) {
		ctx.JSON(http.StatusNotFound, http_common.ErrorResponse{
			Message: "not found",
		})
		return
	}
	c.logger.Error("failed to acquire watched store", slog.String("error", err.Error()))
	ctx.JSON(http.StatusInternalServerError, http_common.ErrorResponse{
		Message: "internal error",
	})
}

func parseSessionID(ctx *gin.Context) (uuid.UUID, bool) {
	sessionID, err := uuid.Parse(ctx.Param("session_id"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, http_common.ErrorResponse{
			Message: "invalid session id",
		})
		return uuid.Nil, false
	}
	return sessionID, true
}
