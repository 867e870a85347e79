package http_people

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	http_common "github.com/CarciofiVolanti/movie-tally-time/internal/delivery/http/common"
	usecase_session "github.com/CarciofiVolanti/movie-tally-time/internal/usecase/session"
)

type Controller struct {
	registry *usecase_session.Registry
	logger   *slog.Logger
}

func New(registry *usecase_session.Registry) *Controller {
	return &Controller{
		registry: registry,
		logger:   slog.Default(),
	}
}

func (c *Controller) RegisterRoutes(router *gin.RouterGroup) {
	people := router.Group("/sessions/:session_id/people")
	{
		people.POST("", c.add)
		people.PUT("/:person_id", c.update)
		people.DELETE("/:person_id", c.remove)
	}
}

type AddPersonRequest struct {
	Name string `json:"name" binding:"required"`
}

type PersonResponse struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	IsPresent bool      `json:"is_present"`
}

func (c *Controller) add(ctx *gin.Context) {
	sessionID, ok := parseSessionID(ctx)
	if !ok {
		return
	}

	var req AddPersonRequest
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

	person, err := store.AddPerson(ctx.Request.Context(), req.Name)
	if err != nil {
		c.logger.Error("failed to add person", slog.String("error", err.Error()))
		if errors.Is(err, usecase_session.ErrInvalidInput) {
			ctx.JSON(http.StatusBadRequest, http_common.ErrorResponse{
				Message: "invalid name",
			})
			return
		}
		ctx.JSON(http.StatusInternalServerError, http_common.ErrorResponse{
			Message: "internal error",
		})
		return
	}

	ctx.JSON(http.StatusCreated, PersonResponse{
		ID:        person.ID,
		Name:      person.Name,
		IsPresent: person.IsPresent,
	})
}

type UpdatePersonRequest struct {
	IsPresent bool     `json:"is_present"`
	Movies    []string `json:"movies"`
}

// update applies presence and reconciles the person's proposal list against
// the submitted titles in one call, mirroring how the edit form submits.
func (c *Controller) update(ctx *gin.Context) {
	sessionID, ok := parseSessionID(ctx)
	if !ok {
		return
	}
	personID, ok := parsePersonID(ctx)
	if !ok {
		return
	}

	var req UpdatePersonRequest
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

	if err := store.UpdatePerson(ctx.Request.Context(), personID, req.IsPresent, req.Movies); err != nil {
		c.logger.Error("failed to update person", slog.String("error", err.Error()))
		if errors.Is(err, usecase_session.ErrResourceNotFound) {
			ctx.JSON(http.StatusNotFound, http_common.ErrorResponse{
				Message: "not found",
			})
			return
		}
		ctx.JSON(http.StatusInternalServerError, http_common.ErrorResponse{
			Message: "internal error",
		})
		return
	}

	ctx.Status(http.StatusNoContent)
}

func (c *Controller) remove(ctx *gin.Context) {
	sessionID, ok := parseSessionID(ctx)
	if !ok {
		return
	}
	personID, ok := parsePersonID(ctx)
	if !ok {
		return
	}

	confirmed := ctx.Query("confirm") == "true"

	store, err := c.registry.Acquire(ctx.Request.Context(), sessionID)
	if err != nil {
		c.respondAcquireError(ctx, err)
		return
	}
	defer c.registry.Release(sessionID)

	if err := store.DeletePerson(ctx.Request.Context(), personID, confirmed); err != nil {
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
			c.logger.Error("failed to delete person", slog.String("error", err.Error()))
			ctx.JSON(http.StatusInternalServerError, http_common.ErrorResponse{
				Message: "internal error",
			})
		}
		return
	}

	ctx.Status(http.StatusNoContent)
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

func parsePersonID(ctx *gin.Context) (uuid.UUID, bool) {
	personID, err := uuid.Parse(ctx.Param("person_id"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, http_common.ErrorResponse{
			Message: "invalid person id",
		})
		return uuid.Nil, false
	}
	return personID, true
}
