package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

type DiskConfig struct {
	Dir           string
	BaseURL       string
	SigningSecret string
	UploadTTL     time.Duration
	URLTTL        time.Duration
}

// DiskStore keeps objects as files under one directory. Uploads go through
// write-once tickets and reads through signed URLs, both served by the API.
type DiskStore struct {
	dir       string
	tickets   TicketStore
	signer    *signer
	uploadTTL time.Duration
}

func NewDiskStore(cfg DiskConfig, tickets TicketStore) (*DiskStore, error) {
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}

	s, err := newSigner(cfg.SigningSecret, cfg.BaseURL, cfg.URLTTL)
	if err != nil {
		return nil, err
	}

	return &DiskStore{dir: cfg.Dir, tickets: tickets, signer: s, uploadTTL: cfg.UploadTTL}, nil
}

func (d *DiskStore) path(storageID string) string {
	return filepath.Join(d.dir, storageID)
}

func (d *DiskStore) UploadURL(ctx context.Context) (*UploadTarget, error) {
	ticket, err := newTicket()
	if err != nil {
		return nil, fmt.Errorf("failed to generate upload ticket: %w", err)
	}

	storageID := uuid.NewString()
	if err := d.tickets.Issue(ctx, ticket, storageID, d.uploadTTL); err != nil {
		return nil, err
	}

	return &UploadTarget{
		StorageID: storageID,
		URL:       d.signer.uploadURL(ticket),
		Method:    http.MethodPut,
		ExpiresAt: d.signer.now().Add(d.uploadTTL),
	}, nil
}

// Upload consumes ticket and writes r as the object it reserved.
func (d *DiskStore) Upload(ctx context.Context, ticket string, r io.Reader) (string, error) {
	storageID, err := d.tickets.Consume(ctx, ticket)
	if err != nil {
		return "", err
	}

	tmp, err := os.CreateTemp(d.dir, ".upload-*")
	if err != nil {
		return "", fmt.Errorf("failed to create upload file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return "", fmt.Errorf("failed to write upload: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to write upload: %w", err)
	}

	if err := os.Rename(tmp.Name(), d.path(storageID)); err != nil {
		return "", fmt.Errorf("failed to store upload: %w", err)
	}

	return storageID, nil
}

func (d *DiskStore) URL(_ context.Context, storageID string) (string, error) {
	if !validID(storageID) {
		return "", ErrObjectNotFound
	}
	return d.signer.readURL(storageID), nil
}

func (d *DiskStore) Open(_ context.Context, storageID string, expires int64, signature string) (io.ReadCloser, error) {
	if !validID(storageID) {
		return nil, ErrObjectNotFound
	}
	if err := d.signer.verify(storageID, expires, signature); err != nil {
		return nil, err
	}

	f, err := os.Open(d.path(storageID))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrObjectNotFound
		}
		return nil, fmt.Errorf("failed to open object: %w", err)
	}
	return f, nil
}

func (d *DiskStore) Delete(_ context.Context, storageID string) error {
	if !validID(storageID) {
		return ErrObjectNotFound
	}
	if err := os.Remove(d.path(storageID)); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return ErrObjectNotFound
		}
		return fmt.Errorf("failed to delete object: %w", err)
	}
	return nil
}

func (d *DiskStore) Exists(_ context.Context, storageID string) (bool, error) {
	if !validID(storageID) {
		return false, nil
	}
	_, err := os.Stat(d.path(storageID))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, fmt.Errorf("failed to stat object: %w", err)
}
