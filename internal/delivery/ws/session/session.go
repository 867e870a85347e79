package ws_session

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	http_common "github.com/CarciofiVolanti/movie-tally-time/internal/delivery/http/common"
	usecase_session "github.com/CarciofiVolanti/movie-tally-time/internal/usecase/session"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type Controller struct {
	hub    *Hub
	logger *slog.Logger
}

func NewController(hub *Hub) *Controller {
	return &Controller{
		hub:    hub,
		logger: slog.Default(),
	}
}

func (c *Controller) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/sessions/:session_id/ws", c.sessionWS)
}

func (c *Controller) sessionWS(ctx *gin.Context) {
	sessionID, err := uuid.Parse(ctx.Param("session_id"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, http_common.ErrorResponse{
			Message: "invalid session id",
		})
		return
	}

	var personID uuid.UUID
	if raw := ctx.Query("person_id"); raw != "" {
		if personID, err = uuid.Parse(raw); err != nil {
			ctx.JSON(http.StatusBadRequest, http_common.ErrorResponse{
				Message: "invalid person id",
			})
			return
		}
	}

	conn, err := upgrader.Upgrade(ctx.Writer, ctx.Request, nil)
	if err != nil {
		c.logger.Error("failed to upgrade to websocket",
			slog.String("error", err.Error()),
		)
		return
	}

	client := &Client{
		Hub:       c.hub,
		Conn:      conn,
		Send:      make(chan []byte, 256),
		SessionID: sessionID,
		personID:  personID,
	}

	if err := c.hub.RegisterClient(ctx.Request.Context(), client); err != nil {
		c.logger.Error("failed to register viewer",
			slog.String("error", err.Error()),
			slog.String("session_id", sessionID.String()),
		)
		message := "internal error"
		if errors.Is(err, usecase_session.ErrResourceNotFound) {
			message = "session not found"
		}
		_ = conn.WriteJSON(Event{Type: EventError, Payload: message})
		conn.Close()
		return
	}

	go c.hub.StartClientReading(client)
	go c.hub.StartClientWriting(client)
}
