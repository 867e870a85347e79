package http_session

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	http_common "github.com/CarciofiVolanti/movie-tally-time/internal/delivery/http/common"
	ws_session "github.com/CarciofiVolanti/movie-tally-time/internal/delivery/ws/session"
	usecase_session "github.com/CarciofiVolanti/movie-tally-time/internal/usecase/session"
)

const viewerTokenHeader = "X-viewer-token"

// ViewerStore remembers which person a browser tab selected, keyed by an
// opaque token the client carries in a header.
//
//go:generate mockery --name=ViewerStore --output=./mocks/viewer --filename=store.go
type ViewerStore interface {
	Set(ctx context.Context, sessionID uuid.UUID, token string, personID uuid.UUID) error
	Get(ctx context.Context, sessionID uuid.UUID, token string) (uuid.UUID, error)
	Clear(ctx context.Context, sessionID uuid.UUID, token string) error
}

type Controller struct {
	registry *usecase_session.Registry
	viewers  ViewerStore
	logger   *slog.Logger
}

func New(registry *usecase_session.Registry, viewers ViewerStore) *Controller {
	return &Controller{
		registry: registry,
		viewers:  viewers,
		logger:   slog.Default(),
	}
}

func (c *Controller) RegisterRoutes(router *gin.RouterGroup) {
	sessions := router.Group("/sessions")
	{
		sessions.POST("", c.create)
		sessions.GET("/:session_id", c.get)
		sessions.PUT("/:session_id", c.rename)
		sessions.GET("/:session_id/snapshot", c.snapshot)
		sessions.GET("/:session_id/results", c.results)
		sessions.GET("/:session_id/viewer", c.viewer)
		sessions.PUT("/:session_id/viewer", c.selectPerson)
	}
}

type CreateSessionRequest struct {
	Name string `json:"name" binding:"required"`
}

type SessionResponse struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

func (c *Controller) create(ctx *gin.Context) {
	var req CreateSessionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, http_common.ErrorResponse{
			Message: "invalid request format",
		})
		return
	}

	session, err := c.registry.CreateSession(ctx.Request.Context(), req.Name)
	if err != nil {
		c.logger.Error("failed to create session", slog.String("error", err.Error()))
		ctx.JSON(http.StatusInternalServerError, http_common.ErrorResponse{
			Message: "internal error",
		})
		return
	}

	ctx.JSON(http.StatusCreated, SessionResponse{
		ID:        session.ID,
		Name:      session.Name,
		CreatedAt: session.CreatedAt,
	})
}

func (c *Controller) get(ctx *gin.Context) {
	sessionID, ok := parseSessionID(ctx)
	if !ok {
		return
	}

	session, err := c.registry.Session(ctx.Request.Context(), sessionID)
	if err != nil {
		if errors.Is(err, usecase_session.ErrResourceNotFound) {
			ctx.JSON(http.StatusNotFound, http_common.ErrorResponse{
				Message: "not found",
			})
			return
		}
		c.logger.Error("failed to get session", slog.String("error", err.Error()))
		ctx.JSON(http.StatusInternalServerError, http_common.ErrorResponse{
			Message: "internal error",
		})
		return
	}

	ctx.JSON(http.StatusOK, SessionResponse{
		ID:        session.ID,
		Name:      session.Name,
		CreatedAt: session.CreatedAt,
	})
}

type RenameSessionRequest struct {
	Name string `json:"name" binding:"required"`
}

func (c *Controller) rename(ctx *gin.Context) {
	sessionID, ok := parseSessionID(ctx)
	if !ok {
		return
	}

	var req RenameSessionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, http_common.ErrorResponse{
			Message: "invalid request format",
		})
		return
	}

	if err := c.registry.RenameSession(ctx.Request.Context(), sessionID, req.Name); err != nil {
		if errors.Is(err, usecase_session.ErrResourceNotFound) {
			ctx.JSON(http.StatusNotFound, http_common.ErrorResponse{
				Message: "not found",
			})
			return
		}
		c.logger.Error("failed to rename session", slog.String("error", err.Error()))
		ctx.JSON(http.StatusInternalServerError, http_common.ErrorResponse{
			Message: "internal error",
		})
		return
	}

	ctx.Status(http.StatusNoContent)
}

// snapshot returns the full pre-watch state in one read. The rate order is
// computed for the viewer resolved from the token header, fresh each call;
// hold semantics only exist on the websocket path.
func (c *Controller) snapshot(ctx *gin.Context) {
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

	personID := c.resolveViewer(ctx, sessionID)
	ctx.JSON(http.StatusOK, ws_session.BuildSnapshot(store, nil, personID))
}

type ResultsResponse struct {
	Movies []ws_session.RankedDTO `json:"movies"`
}

func (c *Controller) results(ctx *gin.Context) {
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

	ctx.JSON(http.StatusOK, ResultsResponse{
		Movies: ws_session.ConvertRanked(store.RankedMovies()),
	})
}

type ViewerResponse struct {
	Token    string     `json:"token"`
	PersonID *uuid.UUID `json:"person_id"`
}

func (c *Controller) viewer(ctx *gin.Context) {
	sessionID, ok := parseSessionID(ctx)
	if !ok {
		return
	}

	token := ctx.GetHeader(viewerTokenHeader)
	if token == "" {
		ctx.JSON(http.StatusOK, ViewerResponse{})
		return
	}

	personID, err := c.viewers.Get(ctx.Request.Context(), sessionID, token)
	if err != nil {
		if errors.Is(err, usecase_session.ErrNoPersonSelected) {
			ctx.JSON(http.StatusOK, ViewerResponse{Token: token})
			return
		}
		c.logger.Error("failed to resolve viewer", slog.String("error", err.Error()))
		ctx.JSON(http.StatusInternalServerError, http_common.ErrorResponse{
			Message: "internal error",
		})
		return
	}

	ctx.JSON(http.StatusOK, ViewerResponse{Token: token, PersonID: &personID})
}

type SelectPersonRequest struct {
	PersonID *uuid.UUID `json:"person_id"`
}

// selectPerson remembers (or, with a null person, forgets) the viewer's
// identity. A viewer without a token gets a fresh one in the response header.
func (c *Controller) selectPerson(ctx *gin.Context) {
	sessionID, ok := parseSessionID(ctx)
	if !ok {
		return
	}

	var req SelectPersonRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, http_common.ErrorResponse{
			Message: "invalid request format",
		})
		return
	}

	token := ctx.GetHeader(viewerTokenHeader)
	if token == "" {
		token = uuid.NewString()
	}

	var err error
	if req.PersonID == nil || *req.PersonID == uuid.Nil {
		err = c.viewers.Clear(ctx.Request.Context(), sessionID, token)
	} else {
		err = c.viewers.Set(ctx.Request.Context(), sessionID, token, *req.PersonID)
	}
	if err != nil {
		c.logger.Error("failed to store viewer selection", slog.String("error", err.Error()))
		ctx.JSON(http.StatusInternalServerError, http_common.ErrorResponse{
			Message: "internal error",
		})
		return
	}

	ctx.Header(viewerTokenHeader, token)
	ctx.JSON(http.StatusOK, ViewerResponse{Token: token, PersonID: req.PersonID})
}

// resolveViewer is best-effort: no token or no stored selection simply means
// an anonymous viewer.
func (c *Controller) resolveViewer(ctx *gin.Context, sessionID uuid.UUID) uuid.UUID {
	token := ctx.GetHeader(viewerTokenHeader)
	if token == "" {
		return uuid.Nil
	}
	personID, err := c.viewers.Get(ctx.Request.Context(), sessionID, token)
	if err != nil {
		return uuid.Nil
	}
	return personID
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
