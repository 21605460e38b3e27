package notification_test

import (
	"context"
	"testing"
	"time"

	"github.com/curaious/workboard/internal/identity"
	"github.com/curaious/workboard/internal/memstore"
	"github.com/curaious/workboard/internal/perrors"
	"github.com/curaious/workboard/internal/services/notification"
	"github.com/curaious/workboard/internal/services/user"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) (*memstore.Store, *notification.NotificationService) {
	t.Helper()

	store := memstore.New()
	resolver := identity.NewResolver(store.Users())
	return store, notification.NewNotificationService(store.Notifications(), resolver)
}

// seed stores a notification with an explicit age, bypassing Notify's clock.
func seed(t *testing.T, store *memstore.Store, userID uuid.UUID, title string, age time.Duration) *notification.Notification {
	t.Helper()

	n, err := store.Notifications().Create(context.Background(), &notification.Notification{
		UserID:    userID,
		Type:      notification.TypeTaskAssigned,
		Title:     title,
		CreatedAt: time.Now().Add(-age),
	})
	require.NoError(t, err)
	return n
}

func TestNotifyAndList(t *testing.T) {
	store, svc := setup(t)
	olive, oliveCtx := store.AddUser(user.User{Name: "Olive", Email: "olive@example.com"})
	_, maxCtx := store.AddUser(user.User{Name: "Max", Email: "max@example.com"})

	svc.Notify(context.Background(), &notification.Notification{UserID: olive.ID, Type: notification.TypeTaskAssigned, Title: "older"})
	time.Sleep(time.Millisecond)
	svc.Notify(context.Background(), &notification.Notification{UserID: olive.ID, Type: notification.TypeTaskComment, Title: "newer"})

	// Dropped: no recipient, no title, unknown recipient.
	svc.Notify(context.Background(), &notification.Notification{Title: "nobody"})
	svc.Notify(context.Background(), &notification.Notification{UserID: olive.ID})
	svc.Notify(context.Background(), &notification.Notification{UserID: uuid.New(), Title: "ghost"})

	list, err := svc.List(oliveCtx, &notification.ListRequest{})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "newer", list[0].Title)
	assert.False(t, list[0].Read)

	limited, err := svc.List(oliveCtx, &notification.ListRequest{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	_, err = svc.List(oliveCtx, &notification.ListRequest{Limit: -1})
	assert.True(t, perrors.HasCode(err, perrors.ErrCodeInvalidRequest))

	others, err := svc.List(maxCtx, &notification.ListRequest{})
	require.NoError(t, err)
	assert.NotNil(t, others)
	assert.Empty(t, others)

	_, err = svc.List(context.Background(), &notification.ListRequest{})
	assert.True(t, perrors.HasCode(err, perrors.ErrCodeUnauthorized))
}

func TestMarkAsRead(t *testing.T) {
	store, svc := setup(t)
	olive, oliveCtx := store.AddUser(user.User{Name: "Olive", Email: "olive@example.com"})
	_, maxCtx := store.AddUser(user.User{Name: "Max", Email: "max@example.com"})

	first := seed(t, store, olive.ID, "first", time.Minute)
	seed(t, store, olive.ID, "second", time.Second)

	count, err := svc.UnreadCount(oliveCtx)
	require.NoError(t, err)
	assert.Equal(t, 2, count.Count)

	_, err = svc.MarkAsRead(maxCtx, first.ID)
	assert.True(t, perrors.HasCode(err, perrors.ErrCodeNotFound), "other users' notifications are invisible")

	marked, err := svc.MarkAsRead(oliveCtx, first.ID)
	require.NoError(t, err)
	assert.True(t, marked.Read)

	again, err := svc.MarkAsRead(oliveCtx, first.ID)
	require.NoError(t, err)
	assert.True(t, again.Read)

	unread, err := svc.List(oliveCtx, &notification.ListRequest{UnreadOnly: true})
	require.NoError(t, err)
	require.Len(t, unread, 1)
	assert.Equal(t, "second", unread[0].Title)

	all, err := svc.MarkAllAsRead(oliveCtx)
	require.NoError(t, err)
	assert.Equal(t, 1, all.Marked)

	count, err = svc.UnreadCount(oliveCtx)
	require.NoError(t, err)
	assert.Zero(t, count.Count)

	_, err = svc.MarkAsRead(oliveCtx, uuid.New())
	assert.True(t, perrors.HasCode(err, perrors.ErrCodeNotFound))
}

func TestDeleteOld(t *testing.T) {
	store, svc := setup(t)
	olive, oliveCtx := store.AddUser(user.User{Name: "Olive", Email: "olive@example.com"})
	maxUser, maxCtx := store.AddUser(user.User{Name: "Max", Email: "max@example.com"})

	seed(t, store, olive.ID, "ancient", 40*24*time.Hour)
	seed(t, store, olive.ID, "week old", 7*24*time.Hour)
	seed(t, store, olive.ID, "fresh", time.Hour)
	seed(t, store, maxUser.ID, "max ancient", 40*24*time.Hour)

	_, err := svc.DeleteOld(oliveCtx, -1)
	assert.True(t, perrors.HasCode(err, perrors.ErrCodeInvalidRequest))

	res, err := svc.DeleteOld(oliveCtx, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Deleted, "default retention keeps the last thirty days")

	res, err = svc.DeleteOld(oliveCtx, 3)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Deleted)

	left, err := svc.List(oliveCtx, &notification.ListRequest{})
	require.NoError(t, err)
	require.Len(t, left, 1)
	assert.Equal(t, "fresh", left[0].Title)

	maxLeft, err := svc.List(maxCtx, &notification.ListRequest{})
	require.NoError(t, err)
	assert.Len(t, maxLeft, 1, "only the caller's notifications are deleted")
}

func TestPurge(t *testing.T) {
	store, svc := setup(t)
	olive, oliveCtx := store.AddUser(user.User{Name: "Olive", Email: "olive@example.com"})
	maxUser, maxCtx := store.AddUser(user.User{Name: "Max", Email: "max@example.com"})

	seed(t, store, olive.ID, "old", 10*24*time.Hour)
	seed(t, store, maxUser.ID, "old", 10*24*time.Hour)
	seed(t, store, maxUser.ID, "new", time.Hour)

	n, err := svc.Purge(context.Background(), 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	left, err := svc.List(oliveCtx, &notification.ListRequest{})
	require.NoError(t, err)
	assert.Empty(t, left)
	left, err = svc.List(maxCtx, &notification.ListRequest{})
	require.NoError(t, err)
	assert.Len(t, left, 1)
}
