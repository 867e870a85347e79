package ws_session

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/CarciofiVolanti/movie-tally-time/internal/ranking"
	usecase_session "github.com/CarciofiVolanti/movie-tally-time/internal/usecase/session"
)

const (
	EventSnapshot = "SNAPSHOT"
	EventError    = "ERROR"
)

type Event struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

type inbound struct {
	Type     string    `json:"type"`
	PersonID uuid.UUID `json:"person_id,omitempty"`
}

const (
	inboundSelectPerson = "SELECT_PERSON"
	inboundReorder      = "REORDER"
	inboundHold         = "HOLD"
)

// Client is one connected browser tab. Each client carries its own rate-tab
// ordering, so two tabs of the same session can hold different orders.
type Client struct {
	Hub       *Hub
	Conn      *websocket.Conn
	Send      chan []byte
	SessionID uuid.UUID

	mu       sync.Mutex
	personID uuid.UUID
	tab      ranking.RateTab
}

// SelectPerson switches whose rate tab this client renders. A switch is an
// explicit reorder trigger.
func (c *Client) SelectPerson(personID uuid.UUID) {
	c.mu.Lock()
	c.personID = personID
	c.tab = ranking.RateTab{}
	c.mu.Unlock()
}

// Hold freezes this client's rate-tab ordering until the next explicit
// reorder. Called after the viewer saves a rating.
func (c *Client) Hold() {
	c.mu.Lock()
	c.tab.Hold()
	c.mu.Unlock()
}

func (c *Client) snapshot(store *usecase_session.Store) SnapshotDTO {
	c.mu.Lock()
	defer c.mu.Unlock()
	return BuildSnapshot(store, &c.tab, c.personID)
}

// Hub keeps the per-session client sets and drives the acquire/release
// lifecycle of the underlying stores: the first client of a session acquires
// its store, the last one out releases it.
type Hub struct {
	registry *usecase_session.Registry
	logger   *slog.Logger

	mu      sync.Mutex
	entries map[uuid.UUID]*sessionEntry
}

type sessionEntry struct {
	store   *usecase_session.Store
	clients map[*Client]bool
}

func NewHub(registry *usecase_session.Registry) *Hub {
	return &Hub{
		registry: registry,
		logger:   slog.Default(),
		entries:  make(map[uuid.UUID]*sessionEntry),
	}
}

// RegisterClient attaches a client to its session, acquiring the store on
// first use. The client gets an initial snapshot immediately.
func (h *Hub) RegisterClient(ctx context.Context, client *Client) error {
	h.mu.Lock()
	if entry, ok := h.entries[client.SessionID]; ok {
		entry.clients[client] = true
		store := entry.store
		h.mu.Unlock()
		h.sendSnapshot(client, store)
		return nil
	}
	h.mu.Unlock()

	store, err := h.registry.Acquire(ctx, client.SessionID)
	if err != nil {
		return err
	}

	h.mu.Lock()
	if entry, ok := h.entries[client.SessionID]; ok {
		// Another client got here first; fold into its entry.
		h.registry.Release(client.SessionID)
		entry.clients[client] = true
		store = entry.store
	} else {
		h.entries[client.SessionID] = &sessionEntry{
			store:   store,
			clients: map[*Client]bool{client: true},
		}
		sessionID := client.SessionID
		store.Watch(func() { h.Broadcast(sessionID) })
	}
	h.mu.Unlock()

	h.logger.Info("viewer connected", "session_id", client.SessionID)
	h.sendSnapshot(client, store)
	return nil
}

func (h *Hub) RemoveClient(client *Client) {
	h.mu.Lock()
	entry, ok := h.entries[client.SessionID]
	if !ok {
		h.mu.Unlock()
		return
	}
	if _, ok := entry.clients[client]; !ok {
		h.mu.Unlock()
		return
	}
	delete(entry.clients, client)
	close(client.Send)
	last := len(entry.clients) == 0
	if last {
		delete(h.entries, client.SessionID)
	}
	h.mu.Unlock()

	if last {
		h.registry.Release(client.SessionID)
	}
	h.logger.Info("viewer disconnected", "session_id", client.SessionID)
}

// Broadcast pushes a fresh snapshot to every client of the session. Each
// client gets its own payload since rate-tab order is per viewer.
func (h *Hub) Broadcast(sessionID uuid.UUID) {
	h.mu.Lock()
	defer h.mu.Unlock()

	entry, ok := h.entries[sessionID]
	if !ok {
		return
	}

	for client := range entry.clients {
		payload, err := json.Marshal(Event{Type: EventSnapshot, Payload: client.snapshot(entry.store)})
		if err != nil {
			h.logger.Error("failed to marshal snapshot", "error", err)
			return
		}
		select {
		case client.Send <- payload:
		default:
			// Slow consumer misses this snapshot; the next change resends
			// the full state anyway.
			h.logger.Warn("snapshot dropped for slow viewer", "session_id", sessionID)
		}
	}
}

func (h *Hub) sendSnapshot(client *Client, store *usecase_session.Store) {
	payload, err := json.Marshal(Event{Type: EventSnapshot, Payload: client.snapshot(store)})
	if err != nil {
		h.logger.Error("failed to marshal snapshot", "error", err)
		return
	}
	select {
	case client.Send <- payload:
	default:
	}
}

// HoldFor freezes the rate-tab order of every client of the session that is
// rendering the given person. The HTTP rating endpoint calls this right after
// a save so the just-touched row does not jump away.
func (h *Hub) HoldFor(sessionID, personID uuid.UUID) {
	h.mu.Lock()
	defer h.mu.Unlock()

	entry, ok := h.entries[sessionID]
	if !ok {
		return
	}
	for client := range entry.clients {
		client.mu.Lock()
		if client.personID == personID {
			client.tab.Hold()
		}
		client.mu.Unlock()
	}
}

func (h *Hub) StartClientReading(client *Client) {
	defer func() {
		h.RemoveClient(client)
		client.Conn.Close()
	}()

	for {
		_, raw, err := client.Conn.ReadMessage()
		if err != nil {
			break
		}

		var msg inbound
		if err := json.Unmarshal(raw, &msg); err != nil {
			continue
		}

		h.mu.Lock()
		entry, ok := h.entries[client.SessionID]
		h.mu.Unlock()
		if !ok {
			continue
		}

		switch msg.Type {
		case inboundSelectPerson:
			client.SelectPerson(msg.PersonID)
			h.sendSnapshot(client, entry.store)
		case inboundReorder:
			client.mu.Lock()
			client.tab.Reorder(entry.store.Proposals(), client.personID)
			client.mu.Unlock()
			h.sendSnapshot(client, entry.store)
		case inboundHold:
			client.Hold()
		}
	}
}

func (h *Hub) StartClientWriting(client *Client) {
	defer client.Conn.Close()

	for message := range client.Send {
		if err := client.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
			break
		}
	}
}
