package notification_test

import (
	"context"
	"testing"
	"time"

	"github.com/curaious/workboard/internal/dbtest"
	"github.com/curaious/workboard/internal/services/notification"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotificationRepo(t *testing.T) {
	conn := dbtest.Open(t)
	repo := notification.NewNotificationRepo(conn)
	ctx := context.Background()

	olive := dbtest.User(t, conn, "olive")
	max := dbtest.User(t, conn, "max")
	now := time.Now()

	old, err := repo.Create(ctx, &notification.Notification{UserID: olive.ID, Type: notification.TypeTaskAssigned, Title: "Old", CreatedAt: now.AddDate(0, 0, -40)})
	require.NoError(t, err)
	recent, err := repo.Create(ctx, &notification.Notification{UserID: olive.ID, Type: notification.TypeTaskComment, Title: "Recent", CreatedAt: now})
	require.NoError(t, err)
	_, err = repo.Create(ctx, &notification.Notification{UserID: max.ID, Type: notification.TypeTaskComment, Title: "Other", CreatedAt: now})
	require.NoError(t, err)

	listed, err := repo.ListByUser(ctx, olive.ID, false, 10)
	require.NoError(t, err)
	require.Len(t, listed, 2)
	assert.Equal(t, recent.ID, listed[0].ID)

	marked, err := repo.MarkRead(ctx, recent.ID)
	require.NoError(t, err)
	assert.True(t, marked.Read)

	unread, err := repo.CountUnread(ctx, olive.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, unread)

	listed, err = repo.ListByUser(ctx, olive.ID, true, 10)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, old.ID, listed[0].ID)

	n, err := repo.MarkAllRead(ctx, olive.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	deleted, err := repo.DeleteOlderThan(ctx, olive.ID, now.AddDate(0, 0, -30))
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)

	_, err = repo.GetByID(ctx, old.ID)
	assert.ErrorIs(t, err, notification.ErrNotificationNotFound)

	unread, err = repo.CountUnread(ctx, max.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, unread)
}
