// Package storage issues upload and read URLs for file objects and deletes them.
package storage

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"io"
	"time"

	"github.com/google/uuid"
)

var (
	ErrObjectNotFound = errors.New("object not found")
	ErrInvalidURL     = errors.New("invalid or expired url")
)

// UploadTarget is where a client PUTs the bytes of a new object.
type UploadTarget struct {
	StorageID string    `json:"storageId"`
	URL       string    `json:"uploadUrl"`
	Method    string    `json:"method"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Store is an object store.
type Store interface {
	// UploadURL reserves a storage id and returns a time bounded upload URL for it.
	UploadURL(ctx context.Context) (*UploadTarget, error)
	// URL returns a fresh, time bounded read URL.
	URL(ctx context.Context, storageID string) (string, error)
	// Delete removes the object, failing with ErrObjectNotFound when it is absent.
	Delete(ctx context.Context, storageID string) error
	Exists(ctx context.Context, storageID string) (bool, error)
}

// TicketUploader is implemented by stores that receive uploads through this service
// rather than directly from the client.
type TicketUploader interface {
	Upload(ctx context.Context, ticket string, r io.Reader) (string, error)
}

// ObjectReader is implemented by stores that serve reads through this service.
type ObjectReader interface {
	Open(ctx context.Context, storageID string, expires int64, signature string) (io.ReadCloser, error)
}

func newTicket() (string, error) {
	b := make([]byte, 24)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// validID rejects anything that is not a storage id issued by this package.
func validID(storageID string) bool {
	_, err := uuid.Parse(storageID)
	return err == nil
}

// IgnoreNotFound maps ErrObjectNotFound to nil.
func IgnoreNotFound(err error) error {
	if errors.Is(err, ErrObjectNotFound) {
		return nil
	}
	return err
}
