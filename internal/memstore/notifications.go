package memstore

import (
	"context"
	"sort"
	"time"

	"github.com/curaious/workboard/internal/services/notification"
	"github.com/google/uuid"
)

type NotificationRepo struct{ s *Store }

var _ notification.Repository = (*NotificationRepo)(nil)

func cloneNotification(n *notification.Notification) *notification.Notification {
	c := *n
	c.Link = ptrCopy(n.Link)
	c.EntityID = ptrCopy(n.EntityID)
	c.EntityType = ptrCopy(n.EntityType)
	return &c
}

// Create keeps a caller supplied CreatedAt, like the explicit column in postgres.
func (r *NotificationRepo) Create(_ context.Context, n *notification.Notification) (*notification.Notification, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.users[n.UserID]; !ok {
		return nil, errForeignKey("notifications.user_id")
	}

	created := cloneNotification(n)
	created.ID = uuid.New()
	created.Read = false
	if created.CreatedAt.IsZero() {
		created.CreatedAt = r.s.tick()
	}
	r.s.notifications[created.ID] = created
	return cloneNotification(created), nil
}

func (r *NotificationRepo) GetByID(_ context.Context, id uuid.UUID) (*notification.Notification, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	n, ok := r.s.notifications[id]
	if !ok {
		return nil, notification.ErrNotificationNotFound
	}
	return cloneNotification(n), nil
}

func (r *NotificationRepo) ListByUser(_ context.Context, userID uuid.UUID, unreadOnly bool, limit int) ([]*notification.Notification, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var result []*notification.Notification
	for _, n := range r.s.notifications {
		if n.UserID != userID || (unreadOnly && n.Read) {
			continue
		}
		result = append(result, cloneNotification(n))
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID.String() > result[j].ID.String()
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (r *NotificationRepo) CountUnread(_ context.Context, userID uuid.UUID) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	count := 0
	for _, n := range r.s.notifications {
		if n.UserID == userID && !n.Read {
			count++
		}
	}
	return count, nil
}

func (r *NotificationRepo) MarkRead(_ context.Context, id uuid.UUID) (*notification.Notification, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	n, ok := r.s.notifications[id]
	if !ok {
		return nil, notification.ErrNotificationNotFound
	}
	n.Read = true
	return cloneNotification(n), nil
}

func (r *NotificationRepo) MarkAllRead(_ context.Context, userID uuid.UUID) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	marked := 0
	for _, n := range r.s.notifications {
		if n.UserID == userID && !n.Read {
			n.Read = true
			marked++
		}
	}
	return marked, nil
}

func (r *NotificationRepo) DeleteOlderThan(_ context.Context, userID uuid.UUID, cutoff time.Time) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	deleted := 0
	for id, n := range r.s.notifications {
		if userID != uuid.Nil && n.UserID != userID {
			continue
		}
		if n.CreatedAt.Before(cutoff) {
			delete(r.s.notifications, id)
			deleted++
		}
	}
	return deleted, nil
}
