package http_proposal

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	http_common "github.com/CarciofiVolanti/movie-tally-time/internal/delivery/http/common"
	ws_session "github.com/CarciofiVolanti/movie-tally-time/internal/delivery/ws/session"
	"github.com/CarciofiVolanti/movie-tally-time/internal/metadata"
	usecase_session "github.com/CarciofiVolanti/movie-tally-time/internal/usecase/session"
)

type Controller struct {
	registry *usecase_session.Registry
	hub      *ws_session.Hub
	logger   *slog.Logger
}

func New(registry *usecase_session.Registry, hub *ws_session.Hub) *Controller {
	return &Controller{
		registry: registry,
		hub:      hub,
		logger:   slog.Default(),
	}
}

func (c *Controller) RegisterRoutes(router *gin.RouterGroup) {
	session := router.Group("/sessions/:session_id")
	{
		session.PUT("/ratings", c.rate)
		session.PUT("/favourite", c.favourite)
		session.POST("/watched", c.markWatched)
		session.POST("/enrich", c.enrich)
		session.PUT("/proposals/:proposal_id/comment", c.comment)
		session.POST("/proposals/:proposal_id/research", c.research)
	}
}

type RateRequest struct {
	Title    string    `json:"title" binding:"required"`
	PersonID uuid.UUID `json:"person_id" binding:"required"`
	Score    int       `json:"score"`
}

// rate upserts one desire-to-watch score. Score 0 withdraws the rating. On
// success the rater's rate-tab ordering is held so the row stays put.
func (c *Controller) rate(ctx *gin.Context) {
	sessionID, ok := parseSessionID(ctx)
	if !ok {
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

	if err := store.UpdateRating(ctx.Request.Context(), req.Title, req.PersonID, req.Score); err != nil {
		switch {
		case errors.Is(err, usecase_session.ErrInvalidInput):
			ctx.JSON(http.StatusBadRequest, http_common.ErrorResponse{
				Message: "score out of range",
			})
		case errors.Is(err, usecase_session.ErrResourceNotFound):
			ctx.JSON(http.StatusNotFound, http_common.ErrorResponse{
				Message: "not found",
			})
		default:
			c.logger.Error("failed to save rating", slog.String("error", err.Error()))
			ctx.JSON(http.StatusInternalServerError, http_common.ErrorResponse{
				Message: "internal error",
			})
		}
		return
	}

	c.hub.HoldFor(sessionID, req.PersonID)
	ctx.Status(http.StatusNoContent)
}

type FavouriteRequest struct {
	PersonID   uuid.UUID `json:"person_id"`
	ProposalID uuid.UUID `json:"proposal_id" binding:"required"`
}

func (c *Controller) favourite(ctx *gin.Context) {
	sessionID, ok := parseSessionID(ctx)
	if !ok {
		return
	}

	var req FavouriteRequest
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

	if err := store.ToggleFavourite(ctx.Request.Context(), req.PersonID, req.ProposalID); err != nil {
		switch {
		case errors.Is(err, usecase_session.ErrNoPersonSelected):
			ctx.JSON(http.StatusBadRequest, http_common.ErrorResponse{
				Message: "select a person first",
			})
		case errors.Is(err, usecase_session.ErrOwnProposal):
			ctx.JSON(http.StatusConflict, http_common.ErrorResponse{
				Message: "cannot favourite own proposal",
			})
		case errors.Is(err, usecase_session.ErrResourceNotFound):
			ctx.JSON(http.StatusNotFound, http_common.ErrorResponse{
				Message: "not found",
			})
		default:
			c.logger.Error("failed to set favourite", slog.String("error", err.Error()))
			ctx.JSON(http.StatusInternalServerError, http_common.ErrorResponse{
				Message: "internal error",
			})
		}
		return
	}

	ctx.Status(http.StatusNoContent)
}

type MarkWatchedRequest struct {
	Title   string `json:"title" binding:"required"`
	Confirm bool   `json:"confirm"`
}

type WatchedMovieResponse struct {
	ID        uuid.UUID `json:"id"`
	Title     string    `json:"title"`
	Proposer  string    `json:"proposer"`
	WatchedAt time.Time `json:"watched_at"`
}

func (c *Controller) markWatched(ctx *gin.Context) {
	sessionID, ok := parseSessionID(ctx)
	if !ok {
		return
	}

	var req MarkWatchedRequest
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

	movie, err := store.MarkWatched(ctx.Request.Context(), req.Title, req.Confirm)
	if err != nil {
		switch {
		case errors.Is(err, usecase_session.ErrConfirmationRequired):
			ctx.JSON(http.StatusConflict, http_common.ErrorResponse{
				Message: "confirmation required",
			})
		case errors.Is(err, usecase_session.ErrResourceNotFound):
			ctx.JSON(http.StatusNotFound, http_common.ErrorResponse{
				Message: "not found",
			})
		default:
			c.logger.Error("failed to mark watched", slog.String("error", err.Error()))
			ctx.JSON(http.StatusInternalServerError, http_common.ErrorResponse{
				Message: "internal error",
			})
		}
		return
	}

	ctx.JSON(http.StatusCreated, WatchedMovieResponse{
		ID:        movie.ID,
		Title:     movie.Title,
		Proposer:  movie.Proposer,
		WatchedAt: movie.WatchedAt,
	})
}

type CommentRequest struct {
	Author string `json:"author"`
	Text   string `json:"text" binding:"required"`
}

func (c *Controller) comment(ctx *gin.Context) {
	sessionID, ok := parseSessionID(ctx)
	if !ok {
		return
	}
	proposalID, ok := parseProposalID(ctx)
	if !ok {
		return
	}

	var req CommentRequest
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

	if err := store.SaveComment(ctx.Request.Context(), proposalID, req.Author, req.Text); err != nil {
		if errors.Is(err, usecase_session.ErrResourceNotFound) {
			ctx.JSON(http.StatusNotFound, http_common.ErrorResponse{
				Message: "not found",
			})
			return
		}
		c.logger.Error("failed to save comment", slog.String("error", err.Error()))
		ctx.JSON(http.StatusInternalServerError, http_common.ErrorResponse{
			Message: "internal error",
		})
		return
	}

	ctx.Status(http.StatusNoContent)
}

func (c *Controller) research(ctx *gin.Context) {
	sessionID, ok := parseSessionID(ctx)
	if !ok {
		return
	}
	proposalID, ok := parseProposalID(ctx)
	if !ok {
		return
	}

	store, err := c.registry.Acquire(ctx.Request.Context(), sessionID)
	if err != nil {
		c.respondAcquireError(ctx, err)
		return
	}
	defer c.registry.Release(sessionID)

	meta, err := store.ResearchMeta(ctx.Request.Context(), proposalID)
	if err != nil {
		switch {
		case errors.Is(err, usecase_session.ErrResourceNotFound):
			ctx.JSON(http.StatusNotFound, http_common.ErrorResponse{
				Message: "not found",
			})
		case errors.Is(err, metadata.ErrNotFound):
			ctx.JSON(http.StatusNotFound, http_common.ErrorResponse{
				Message: "title unknown to lookup service",
			})
		default:
			c.logger.Error("failed to re-run lookup", slog.String("error", err.Error()))
			ctx.JSON(http.StatusBadGateway, http_common.ErrorResponse{
				Message: "lookup service unavailable",
			})
		}
		return
	}

	ctx.JSON(http.StatusOK, ws_session.ConvertMeta(meta))
}

type EnrichResponse struct {
	Enriched int `json:"enriched"`
}

func (c *Controller) enrich(ctx *gin.Context) {
	sessionID, ok := parseSessionID(ctx)
	if !ok {
		return
	}

	store, err := c.registry.Acquire(ctx.Request.Context(), sessionID)
	if err != nil {
		c.respondAcquireError(ctx, err)
		return
	}
	defer c.registry.Release(sessionID)

	ctx.JSON(http.StatusOK, EnrichResponse{
		Enriched: store.EnrichMissing(ctx.Request.Context()),
	})
}

func (c *Controller) respondAcquireError(ctx *gin.Context, err error) {
	if errors.Is(err, usecase_session.ErrResourceNotFound) {
		ctx.JSON(http.StatusNotFound, http_common.ErrorResponse{
			Message: "not found",
		})
		return
	}
	c.logger.Error("failed to acquire session store", slog.String("error", err.Error()))
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

func parseProposalID(ctx *gin.Context) (uuid.UUID, bool) {
	proposalID, err := uuid.Parse(ctx.Param("proposal_id"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, http_common.ErrorResponse{
			Message: "invalid proposal id",
		})
		return uuid.Nil, false
	}
	return proposalID, true
}
