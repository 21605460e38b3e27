package notification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/curaious/workboard/internal/identity"
	"github.com/curaious/workboard/internal/perrors"
	"github.com/google/uuid"
)

const (
	DefaultListLimit     = 50
	MaxListLimit         = 200
	DefaultRetentionDays = 30
)

// Notifier is how other services leave a message for a user. Delivery is best
// effort and never fails the calling operation.
type Notifier interface {
	Notify(ctx context.Context, n *Notification)
}

type NotificationService struct {
	repo     Repository
	identity *identity.Resolver
	now      func() time.Time
}

func NewNotificationService(repo Repository, resolver *identity.Resolver) *NotificationService {
	return &NotificationService{
		repo:     repo,
		identity: resolver,
		now:      time.Now,
	}
}

func (s *NotificationService) Notify(ctx context.Context, n *Notification) {
	if n.UserID == uuid.Nil || strings.TrimSpace(n.Title) == "" {
		slog.WarnContext(ctx, "Dropping notification without recipient or title", slog.String("type", string(n.Type)))
		return
	}

	n.Read = false
	n.CreatedAt = s.now()
	if _, err := s.repo.Create(ctx, n); err != nil {
		slog.WarnContext(ctx, "Failed to store notification",
			slog.String("type", string(n.Type)),
			slog.String("user_id", n.UserID.String()),
			slog.Any("error", err))
	}
}

// Get returns one of the caller's notifications. Notifications of other users
// are reported as not found.
func (s *NotificationService) Get(ctx context.Context, id uuid.UUID) (*Notification, error) {
	actor, err := s.identity.Current(ctx)
	if err != nil {
		return nil, err
	}

	n, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotificationNotFound) {
			return nil, perrors.NewErrNotFound("Notification not found", err)
		}
		return nil, perrors.NewErrInternalServerError("Failed to get notification", err)
	}
	if n.UserID != actor.ID {
		return nil, perrors.NewErrNotFound("Notification not found", fmt.Errorf("notification %s belongs to another user", id))
	}
	return n, nil
}

// List returns the caller's notifications, newest first.
func (s *NotificationService) List(ctx context.Context, req *ListRequest) ([]*Notification, error) {
	actor, err := s.identity.Current(ctx)
	if err != nil {
		return nil, err
	}

	limit := req.Limit
	if limit < 0 {
		return nil, perrors.NewErrInvalidRequest("Limit must not be negative", fmt.Errorf("invalid limit %d", limit))
	}
	if limit == 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}

	notifications, err := s.repo.ListByUser(ctx, actor.ID, req.UnreadOnly, limit)
	if err != nil {
		return nil, perrors.NewErrInternalServerError("Failed to list notifications", err)
	}
	if notifications == nil {
		notifications = []*Notification{}
	}
	return notifications, nil
}

func (s *NotificationService) UnreadCount(ctx context.Context) (*UnreadCount, error) {
	actor, err := s.identity.Current(ctx)
	if err != nil {
		return nil, err
	}

	count, err := s.repo.CountUnread(ctx, actor.ID)
	if err != nil {
		return nil, perrors.NewErrInternalServerError("Failed to count notifications", err)
	}
	return &UnreadCount{Count: count}, nil
}

func (s *NotificationService) MarkAsRead(ctx context.Context, id uuid.UUID) (*Notification, error) {
	n, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if n.Read {
		return n, nil
	}

	marked, err := s.repo.MarkRead(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotificationNotFound) {
			return nil, perrors.NewErrNotFound("Notification not found", err)
		}
		return nil, perrors.NewErrInternalServerError("Failed to mark notification read", err)
	}
	return marked, nil
}

func (s *NotificationService) MarkAllAsRead(ctx context.Context) (*MarkAllResult, error) {
	actor, err := s.identity.Current(ctx)
	if err != nil {
		return nil, err
	}

	n, err := s.repo.MarkAllRead(ctx, actor.ID)
	if err != nil {
		return nil, perrors.NewErrInternalServerError("Failed to mark notifications read", err)
	}
	return &MarkAllResult{Marked: n}, nil
}

// DeleteOld removes the caller's notifications older than olderThanDays,
// DefaultRetentionDays when zero.
func (s *NotificationService) DeleteOld(ctx context.Context, olderThanDays int) (*DeleteOldResult, error) {
	actor, err := s.identity.Current(ctx)
	if err != nil {
		return nil, err
	}

	if olderThanDays < 0 {
		return nil, perrors.NewErrInvalidRequest("Days must not be negative", fmt.Errorf("invalid retention %d days", olderThanDays))
	}
	if olderThanDays == 0 {
		olderThanDays = DefaultRetentionDays
	}

	cutoff := s.now().AddDate(0, 0, -olderThanDays)
	n, err := s.repo.DeleteOlderThan(ctx, actor.ID, cutoff)
	if err != nil {
		return nil, perrors.NewErrInternalServerError("Failed to delete notifications", err)
	}
	return &DeleteOldResult{Deleted: n}, nil
}

// Purge removes every user's notifications older than retention.
func (s *NotificationService) Purge(ctx context.Context, retention time.Duration) (int, error) {
	n, err := s.repo.DeleteOlderThan(ctx, uuid.Nil, s.now().Add(-retention))
	if err != nil {
		return 0, fmt.Errorf("failed to purge notifications: %w", err)
	}
	return n, nil
}
