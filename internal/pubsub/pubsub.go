package pubsub

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/lib/pq"
)

const channel = "entity_changes"

// OperationReload is delivered after the listener reconnects, notifications
// sent while it was disconnected are lost and subscribers must refetch.
const OperationReload = "RELOAD"

// ChangeEvent is one row level change: the table, INSERT/UPDATE/DELETE and the row id.
type ChangeEvent struct {
	Table     string `json:"table"`
	Operation string `json:"operation"`
	ID        string `json:"id,omitempty"`
}

// privateTables hold rows that only admins may learn about, matching the
// read policy of their services.
var privateTables = map[string]bool{
	"activity_logs": true,
}

// VisibleTo reports whether a subscriber may receive ev. Reload events and
// changes to shared tables go to everyone.
func (ev ChangeEvent) VisibleTo(privileged bool) bool {
	return privileged || !privateTables[ev.Table]
}

// ChangeHandler must not block, it runs on the notification loop.
type ChangeHandler func(event ChangeEvent)

// PubSub fans postgres LISTEN/NOTIFY entity changes out to subscribers.
type PubSub struct {
	connStr  string
	listener *pq.Listener
	handlers map[int]ChangeHandler
	nextID   int
	mu       sync.RWMutex
	ctx      context.Context
	cancel   context.CancelFunc
}

// NewPubSub creates a new PubSub instance for the database at connStr.
func NewPubSub(connStr string) *PubSub {
	ctx, cancel := context.WithCancel(context.Background())

	return &PubSub{
		connStr:  connStr,
		handlers: make(map[int]ChangeHandler),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Subscribe registers handler and returns a func that removes it.
func (ps *PubSub) Subscribe(handler ChangeHandler) func() {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	id := ps.nextID
	ps.nextID++
	ps.handlers[id] = handler

	return func() {
		ps.mu.Lock()
		defer ps.mu.Unlock()
		delete(ps.handlers, id)
	}
}

// Start begins listening for notifications
func (ps *PubSub) Start() error {
	reportProblem := func(ev pq.ListenerEventType, err error) {
		if err != nil {
			slog.Error("PubSub listener error", slog.Any("error", err))
		}
		switch ev {
		case pq.ListenerEventConnectionAttemptFailed:
			slog.Warn("PubSub connection attempt failed, will retry")
		case pq.ListenerEventDisconnected:
			slog.Warn("PubSub disconnected, will attempt reconnect")
		case pq.ListenerEventReconnected:
			slog.Info("PubSub reconnected, asking subscribers to reload")
			ps.publish(ChangeEvent{Operation: OperationReload})
		}
	}

	ps.listener = pq.NewListener(ps.connStr, 10*time.Second, time.Minute, reportProblem)

	if err := ps.listener.Listen(channel); err != nil {
		return fmt.Errorf("failed to listen on %s channel: %w", channel, err)
	}

	slog.Info("PubSub started listening for entity changes")

	go ps.processNotifications()

	return nil
}

// Stop closes the listener
func (ps *PubSub) Stop() {
	ps.cancel()
	if ps.listener != nil {
		ps.listener.Close()
	}
	slog.Info("PubSub stopped")
}

func (ps *PubSub) processNotifications() {
	for {
		select {
		case <-ps.ctx.Done():
			return
		case notification := <-ps.listener.Notify:
			if notification == nil {
				// Connection lost, handled by reportProblem
				continue
			}

			event, ok := parsePayload(notification.Extra)
			if !ok {
				slog.Warn("Invalid notification payload", slog.String("payload", notification.Extra))
				continue
			}

			slog.Debug("Received entity change notification",
				slog.String("table", event.Table),
				slog.String("operation", event.Operation),
				slog.String("id", event.ID))

			ps.publish(event)
		}
	}
}

// parsePayload reads "table:operation:id". The id part is optional.
func parsePayload(payload string) (ChangeEvent, bool) {
	parts := strings.SplitN(payload, ":", 3)
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return ChangeEvent{}, false
	}

	event := ChangeEvent{Table: parts[0], Operation: parts[1]}
	if len(parts) == 3 {
		event.ID = parts[2]
	}
	return event, true
}

func (ps *PubSub) publish(event ChangeEvent) {
	ps.mu.RLock()
	handlers := make([]ChangeHandler, 0, len(ps.handlers))
	for _, h := range ps.handlers {
		handlers = append(handlers, h)
	}
	ps.mu.RUnlock()

	for _, handler := range handlers {
		handler(event)
	}
}
