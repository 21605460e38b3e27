package storage

import (
	"context"
	"io"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ticketFrom(t *testing.T, uploadURL string) string {
	t.Helper()
	i := strings.LastIndex(uploadURL, "/")
	require.True(t, i >= 0)
	return uploadURL[i+1:]
}

func readParams(t *testing.T, readURL string) (int64, string) {
	t.Helper()
	u, err := url.Parse(readURL)
	require.NoError(t, err)
	expires, err := strconv.ParseInt(u.Query().Get("expires"), 10, 64)
	require.NoError(t, err)
	return expires, u.Query().Get("signature")
}

func TestDiskStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	store, err := NewDiskStore(DiskConfig{
		Dir:           t.TempDir(),
		BaseURL:       "http://localhost:6060",
		SigningSecret: "secret",
		UploadTTL:     time.Minute,
		URLTTL:        time.Minute,
	}, NewMemoryTickets())
	require.NoError(t, err)

	target, err := store.UploadURL(ctx)
	require.NoError(t, err)
	assert.Equal(t, "PUT", target.Method)
	assert.True(t, strings.HasPrefix(target.URL, "http://localhost:6060/api/storage/upload/"))

	ticket := ticketFrom(t, target.URL)
	storageID, err := store.Upload(ctx, ticket, strings.NewReader("hello"))
	require.NoError(t, err)
	assert.Equal(t, target.StorageID, storageID)

	// write-once
	_, err = store.Upload(ctx, ticket, strings.NewReader("again"))
	assert.ErrorIs(t, err, ErrTicketNotFound)

	exists, err := store.Exists(ctx, storageID)
	require.NoError(t, err)
	assert.True(t, exists)

	readURL, err := store.URL(ctx, storageID)
	require.NoError(t, err)
	expires, signature := readParams(t, readURL)

	rc, err := store.Open(ctx, storageID, expires, signature)
	require.NoError(t, err)
	body, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, "hello", string(body))

	_, err = store.Open(ctx, storageID, expires, "forged")
	assert.ErrorIs(t, err, ErrInvalidURL)

	require.NoError(t, store.Delete(ctx, storageID))
	assert.ErrorIs(t, store.Delete(ctx, storageID), ErrObjectNotFound)

	exists, err = store.Exists(ctx, storageID)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestDiskStoreRejectsForeignIDs(t *testing.T) {
	store, err := NewDiskStore(DiskConfig{Dir: t.TempDir(), UploadTTL: time.Minute, URLTTL: time.Minute}, NewMemoryTickets())
	require.NoError(t, err)

	_, err = store.URL(context.Background(), "../../etc/passwd")
	assert.ErrorIs(t, err, ErrObjectNotFound)
	assert.ErrorIs(t, store.Delete(context.Background(), "../secret"), ErrObjectNotFound)
}

func TestSignedURLExpires(t *testing.T) {
	s, err := newSigner("secret", "http://x", time.Minute)
	require.NoError(t, err)

	now := time.Unix(1_700_000_000, 0)
	s.now = func() time.Time { return now }

	expires := now.Add(time.Minute).Unix()
	sig := s.signature("id", expires)
	require.NoError(t, s.verify("id", expires, sig))

	now = now.Add(2 * time.Minute)
	assert.ErrorIs(t, s.verify("id", expires, sig), ErrInvalidURL)
}

func TestMemoryTicketsExpire(t *testing.T) {
	tickets := NewMemoryTickets()
	now := time.Unix(1_700_000_000, 0)
	tickets.now = func() time.Time { return now }

	ctx := context.Background()
	require.NoError(t, tickets.Issue(ctx, "t1", "s1", time.Minute))
	require.NoError(t, tickets.Issue(ctx, "t2", "s2", time.Minute))
	assert.Error(t, tickets.Issue(ctx, "t1", "other", time.Minute))

	id, err := tickets.Consume(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, "s1", id)

	now = now.Add(2 * time.Minute)
	_, err = tickets.Consume(ctx, "t2")
	assert.ErrorIs(t, err, ErrTicketNotFound)
}

func TestMemoryStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore("http://localhost", time.Minute, time.Minute)

	target, err := store.UploadURL(ctx)
	require.NoError(t, err)

	storageID, err := store.Upload(ctx, ticketFrom(t, target.URL), strings.NewReader("data"))
	require.NoError(t, err)

	readURL, err := store.URL(ctx, storageID)
	require.NoError(t, err)
	expires, signature := readParams(t, readURL)

	rc, err := store.Open(ctx, storageID, expires, signature)
	require.NoError(t, err)
	body, _ := io.ReadAll(rc)
	assert.Equal(t, "data", string(body))

	require.NoError(t, store.Delete(ctx, storageID))
	assert.NoError(t, IgnoreNotFound(store.Delete(ctx, storageID)))
}
