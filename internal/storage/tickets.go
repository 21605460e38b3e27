package storage

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

var ErrTicketNotFound = errors.New("upload ticket not found or already used")

// TicketStore holds write-once upload tickets. Consume returns the storage id
// of a ticket exactly once.
type TicketStore interface {
	Issue(ctx context.Context, ticket, storageID string, ttl time.Duration) error
	Consume(ctx context.Context, ticket string) (string, error)
}

const ticketPrefix = "workboard:upload:"

type RedisTickets struct {
	client *redis.Client
}

func NewRedisTickets(client *redis.Client) *RedisTickets {
	return &RedisTickets{client: client}
}

func (t *RedisTickets) Issue(ctx context.Context, ticket, storageID string, ttl time.Duration) error {
	ok, err := t.client.SetNX(ctx, ticketPrefix+ticket, storageID, ttl).Result()
	if err != nil {
		return fmt.Errorf("failed to store upload ticket: %w", err)
	}
	if !ok {
		return errors.New("upload ticket collision")
	}
	return nil
}

func (t *RedisTickets) Consume(ctx context.Context, ticket string) (string, error) {
	storageID, err := t.client.GetDel(ctx, ticketPrefix+ticket).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrTicketNotFound
		}
		return "", fmt.Errorf("failed to consume upload ticket: %w", err)
	}
	return storageID, nil
}

type ticketEntry struct {
	storageID string
	expiresAt time.Time
}

// MemoryTickets is a process local TicketStore.
type MemoryTickets struct {
	mu      sync.Mutex
	tickets map[string]ticketEntry
	now     func() time.Time
}

func NewMemoryTickets() *MemoryTickets {
	return &MemoryTickets{tickets: make(map[string]ticketEntry), now: time.Now}
}

func (t *MemoryTickets) Issue(_ context.Context, ticket, storageID string, ttl time.Duration) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	for k, e := range t.tickets {
		if now.After(e.expiresAt) {
			delete(t.tickets, k)
		}
	}

	if _, ok := t.tickets[ticket]; ok {
		return errors.New("upload ticket collision")
	}
	t.tickets[ticket] = ticketEntry{storageID: storageID, expiresAt: now.Add(ttl)}
	return nil
}

func (t *MemoryTickets) Consume(_ context.Context, ticket string) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.tickets[ticket]
	if !ok {
		return "", ErrTicketNotFound
	}
	delete(t.tickets, ticket)

	if t.now().After(e.expiresAt) {
		return "", ErrTicketNotFound
	}
	return e.storageID, nil
}
