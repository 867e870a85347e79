package infra_feed

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/CarciofiVolanti/movie-tally-time/internal/model"
)

const (
	notifyChannel = "movie_tally_changes"

	minReconnectInterval = 2 * time.Second
	maxReconnectInterval = 30 * time.Second

	// Per-subscriber buffer. A full buffer drops the event rather than stall
	// the listener loop; the store catches up on its next full load.
	subscriberBuffer = 64
)

// Feed bridges Postgres NOTIFY into per-session Go channels. One database
// connection serves every subscriber; events whose payload names a session
// go only to that session's subscribers, the rest fan out to everyone.
type Feed struct {
	listener *pq.Listener
	logger   *slog.Logger

	mu     sync.Mutex
	subs   map[uuid.UUID]map[int]chan model.ChangeEvent
	nextID int
}

func New(dsn string, logger *slog.Logger) *Feed {
	f := &Feed{
		logger: logger,
		subs:   make(map[uuid.UUID]map[int]chan model.ChangeEvent),
	}
	f.listener = pq.NewListener(dsn, minReconnectInterval, maxReconnectInterval, f.onListenerEvent)
	return f
}

func (f *Feed) onListenerEvent(event pq.ListenerEventType, err error) {
	switch event {
	case pq.ListenerEventConnectionAttemptFailed:
		f.logger.Error("change feed connection attempt failed", "error", err)
	case pq.ListenerEventDisconnected:
		f.logger.Warn("change feed disconnected", "error", err)
	case pq.ListenerEventReconnected:
		// Notifications sent while disconnected are gone for good.
		f.logger.Warn("change feed reconnected, events may have been missed")
	}
}

// Run blocks until the context is cancelled, pumping notifications to
// subscribers. Call it from its own goroutine at startup.
func (f *Feed) Run(ctx context.Context) error {
	if err := f.listener.Listen(notifyChannel); err != nil {
		return err
	}
	defer func() { _ = f.listener.Close() }()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case notification := <-f.listener.Notify:
			if notification == nil {
				// Reconnect marker from pq.
				continue
			}
			f.dispatch([]byte(notification.Extra))
		case <-time.After(90 * time.Second):
			go func() { _ = f.listener.Ping() }()
		}
	}
}

func (f *Feed) dispatch(payload []byte) {
	var event model.ChangeEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		f.logger.Error("undecodable change feed payload", "error", err)
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if sessionID, ok := event.SessionID(); ok {
		f.deliverLocked(f.subs[sessionID], event)
		return
	}

	// No session in the payload (child-table deletes). Offer it to every
	// live session; stores ignore keys they do not know.
	for _, channels := range f.subs {
		f.deliverLocked(channels, event)
	}
}

func (f *Feed) deliverLocked(channels map[int]chan model.ChangeEvent, event model.ChangeEvent) {
	for _, ch := range channels {
		select {
		case ch <- event:
		default:
			f.logger.Warn("change feed subscriber buffer full, event dropped",
				"table", event.Table, "op", event.Op, "key", event.Key)
		}
	}
}

// Subscribe registers interest in one session's events. The returned cancel
// func closes the channel; call it exactly once.
func (f *Feed) Subscribe(sessionID uuid.UUID) (<-chan model.ChangeEvent, func()) {
	f.mu.Lock()
	defer f.mu.Unlock()

	ch := make(chan model.ChangeEvent, subscriberBuffer)
	id := f.nextID
	f.nextID++

	if f.subs[sessionID] == nil {
		f.subs[sessionID] = make(map[int]chan model.ChangeEvent)
	}
	f.subs[sessionID][id] = ch

	cancel := func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		if channels, ok := f.subs[sessionID]; ok {
			if _, ok := channels[id]; ok {
				delete(channels, id)
				close(ch)
				if len(channels) == 0 {
					delete(f.subs, sessionID)
				}
			}
		}
	}
	return ch, cancel
}
