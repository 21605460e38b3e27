package memstore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/curaious/workboard/internal/services/activity"
	"github.com/curaious/workboard/internal/services/file"
	"github.com/google/uuid"
)

type FileRepo struct{ s *Store }

var _ file.Repository = (*FileRepo)(nil)

func cloneFile(f *file.File) *file.File {
	c := *f
	c.ProjectID = ptrCopy(f.ProjectID)
	c.TaskID = ptrCopy(f.TaskID)
	c.DeletedAt = ptrCopy(f.DeletedAt)
	return &c
}

// Reservations expire on the wall clock, like the NOW() comparison in postgres.
func (r *FileRepo) Reserve(_ context.Context, storageID string, userID uuid.UUID, expiresAt time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.users[userID]; !ok {
		return errForeignKey("upload_reservations.user_id")
	}
	if _, ok := r.s.uploads[storageID]; ok {
		return fmt.Errorf("storage id %s is already reserved", storageID)
	}
	r.s.uploads[storageID] = &reservation{userID: userID, expiresAt: expiresAt}
	return nil
}

// Save mirrors the savepoint: a failing outbox write is dropped and the file
// row is kept.
func (r *FileRepo) Save(_ context.Context, f *file.File, entry *activity.Log) (*file.File, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	res, ok := r.s.uploads[f.StorageID]
	if !ok || res.userID != f.UploadedBy || !res.expiresAt.After(time.Now()) {
		return nil, file.ErrReservationNotFound
	}
	for _, existing := range r.s.files {
		if existing.StorageID == f.StorageID {
			return nil, file.ErrStorageIDInUse
		}
	}

	if f.ProjectID != nil {
		if _, ok := r.s.projects[*f.ProjectID]; !ok {
			return nil, errForeignKey("files.project_id")
		}
	}
	if f.TaskID != nil {
		if _, ok := r.s.tasks[*f.TaskID]; !ok {
			return nil, errForeignKey("files.task_id")
		}
	}

	delete(r.s.uploads, f.StorageID)
	saved := cloneFile(f)
	saved.ID = uuid.New()
	saved.CreatedAt = r.s.tick()
	saved.DeletedAt = nil
	r.s.files[saved.ID] = saved

	if entry != nil && !r.s.FailOutbox {
		l := cloneLog(entry)
		id := saved.ID.String()
		l.EntityID = &id
		r.s.outbox = append(r.s.outbox, l)
	}

	return cloneFile(saved), nil
}

func (r *FileRepo) GetByID(_ context.Context, id uuid.UUID) (*file.File, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	f, ok := r.s.files[id]
	if !ok || f.DeletedAt != nil {
		return nil, file.ErrFileNotFound
	}
	return cloneFile(f), nil
}

func (r *FileRepo) ListByTask(_ context.Context, taskID uuid.UUID) ([]*file.File, error) {
	return r.list(func(f *file.File) bool { return f.TaskID != nil && *f.TaskID == taskID }), nil
}

func (r *FileRepo) ListByProject(_ context.Context, projectID uuid.UUID) ([]*file.File, error) {
	return r.list(func(f *file.File) bool { return f.ProjectID != nil && *f.ProjectID == projectID }), nil
}

func (r *FileRepo) list(match func(f *file.File) bool) []*file.File {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var result []*file.File
	for _, f := range r.s.files {
		if f.DeletedAt == nil && match(f) {
			result = append(result, cloneFile(f))
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID.String() > result[j].ID.String()
	})
	return result
}

func (r *FileRepo) MarkDeleted(_ context.Context, id uuid.UUID) (*file.File, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	f, ok := r.s.files[id]
	if !ok || f.DeletedAt != nil {
		return nil, file.ErrFileNotFound
	}
	now := r.s.tick()
	f.DeletedAt = &now
	return cloneFile(f), nil
}

func (r *FileRepo) Purge(_ context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if f, ok := r.s.files[id]; ok && f.DeletedAt != nil {
		delete(r.s.files, id)
	}
	return nil
}

func (r *FileRepo) ListTombstoned(_ context.Context, limit int) ([]*file.File, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var result []*file.File
	for _, f := range r.s.files {
		if f.DeletedAt != nil {
			result = append(result, cloneFile(f))
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].DeletedAt.Before(*result[j].DeletedAt)
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (r *FileRepo) ListExpiredReservations(_ context.Context, limit int) ([]string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	now := time.Now()
	var ids []string
	for id, res := range r.s.uploads {
		if !res.expiresAt.After(now) {
			ids = append(ids, id)
		}
	}

	sort.Slice(ids, func(i, j int) bool {
		return r.s.uploads[ids[i]].expiresAt.Before(r.s.uploads[ids[j]].expiresAt)
	})
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}

func (r *FileRepo) DeleteReservation(_ context.Context, storageID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	delete(r.s.uploads, storageID)
	return nil
}

var errOutboxUnavailable = errors.New("activity outbox unavailable")
