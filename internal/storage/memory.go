package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore keeps objects in process memory. It follows the DiskStore URL
// contract and is meant for tests and single process demos.
type MemoryStore struct {
	mu        sync.RWMutex
	objects   map[string][]byte
	tickets   TicketStore
	signer    *signer
	uploadTTL time.Duration
}

func NewMemoryStore(baseURL string, uploadTTL, urlTTL time.Duration) *MemoryStore {
	s, err := newSigner("", baseURL, urlTTL)
	if err != nil {
		panic(err)
	}
	return &MemoryStore{
		objects:   make(map[string][]byte),
		tickets:   NewMemoryTickets(),
		signer:    s,
		uploadTTL: uploadTTL,
	}
}

func (m *MemoryStore) UploadURL(ctx context.Context) (*UploadTarget, error) {
	ticket, err := newTicket()
	if err != nil {
		return nil, fmt.Errorf("failed to generate upload ticket: %w", err)
	}

	storageID := uuid.NewString()
	if err := m.tickets.Issue(ctx, ticket, storageID, m.uploadTTL); err != nil {
		return nil, err
	}

	return &UploadTarget{
		StorageID: storageID,
		URL:       m.signer.uploadURL(ticket),
		Method:    http.MethodPut,
		ExpiresAt: m.signer.now().Add(m.uploadTTL),
	}, nil
}

func (m *MemoryStore) Upload(ctx context.Context, ticket string, r io.Reader) (string, error) {
	storageID, err := m.tickets.Consume(ctx, ticket)
	if err != nil {
		return "", err
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("failed to read upload: %w", err)
	}

	m.mu.Lock()
	m.objects[storageID] = data
	m.mu.Unlock()

	return storageID, nil
}

func (m *MemoryStore) URL(_ context.Context, storageID string) (string, error) {
	if !validID(storageID) {
		return "", ErrObjectNotFound
	}
	return m.signer.readURL(storageID), nil
}

func (m *MemoryStore) Open(_ context.Context, storageID string, expires int64, signature string) (io.ReadCloser, error) {
	if err := m.signer.verify(storageID, expires, signature); err != nil {
		return nil, err
	}

	m.mu.RLock()
	data, ok := m.objects[storageID]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrObjectNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *MemoryStore) Delete(_ context.Context, storageID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.objects[storageID]; !ok {
		return ErrObjectNotFound
	}
	delete(m.objects, storageID)
	return nil
}

func (m *MemoryStore) Exists(_ context.Context, storageID string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, ok := m.objects[storageID]
	return ok, nil
}
