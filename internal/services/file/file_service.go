package file

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/curaious/workboard/internal/identity"
	"github.com/curaious/workboard/internal/perrors"
	"github.com/curaious/workboard/internal/services/activity"
	"github.com/curaious/workboard/internal/services/project"
	"github.com/curaious/workboard/internal/services/task"
	"github.com/curaious/workboard/internal/services/user"
	"github.com/curaious/workboard/internal/storage"
	"github.com/google/uuid"
)

const reconcileBatch = 100

// reservationGrace keeps a storage id reserved past the upload URL expiry, so
// an upload that finished just in time can still be saved.
const reservationGrace = time.Hour

type ProjectLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (*project.Project, error)
	AuthorizeEdit(ctx context.Context, actor *user.User, id uuid.UUID) (*project.Project, error)
}

type TaskLookup interface {
	GetTask(ctx context.Context, id uuid.UUID) (*task.Task, error)
}

type FileService struct {
	repo     Repository
	store    storage.Store
	projects ProjectLookup
	tasks    TaskLookup
	identity *identity.Resolver
}

func NewFileService(repo Repository, store storage.Store, projects ProjectLookup, tasks TaskLookup, resolver *identity.Resolver) *FileService {
	return &FileService{
		repo:     repo,
		store:    store,
		projects: projects,
		tasks:    tasks,
		identity: resolver,
	}
}

// CanRemove is the file removal policy: the uploader or a team admin.
func CanRemove(actor *user.User, f *File) bool {
	if actor == nil {
		return false
	}
	return actor.IsAdmin() || f.UploadedBy == actor.ID
}

// GenerateUploadURL reserves a storage id for the caller to upload to. Only
// the same caller can later save a file for it.
func (s *FileService) GenerateUploadURL(ctx context.Context) (*storage.UploadTarget, error) {
	actor, err := s.identity.Current(ctx)
	if err != nil {
		return nil, err
	}

	target, err := s.store.UploadURL(ctx)
	if err != nil {
		return nil, perrors.NewErrExternalService("Failed to generate upload url", err)
	}

	if err := s.repo.Reserve(ctx, target.StorageID, actor.ID, target.ExpiresAt.Add(reservationGrace)); err != nil {
		return nil, perrors.NewErrInternalServerError("Failed to reserve upload", err)
	}
	return target, nil
}

// SaveFile records metadata for an uploaded object. The caller must hold the
// reservation for the storage id and be allowed to edit the project. The
// activity entry is queued with the row and never fails the save.
func (s *FileService) SaveFile(ctx context.Context, req *SaveFileRequest) (*File, error) {
	actor, err := s.identity.Current(ctx)
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(req.StorageID) == "" {
		return nil, perrors.NewErrInvalidRequest("Storage id is required", errors.New("storage id is required"))
	}
	name := strings.TrimSpace(req.FileName)
	if name == "" {
		return nil, perrors.NewErrInvalidRequest("File name is required", errors.New("file name is required"))
	}
	if req.FileSize < 0 {
		return nil, perrors.NewErrInvalidRequest("File size must not be negative", fmt.Errorf("invalid file size %d", req.FileSize))
	}
	if req.ProjectID == nil && req.TaskID == nil {
		return nil, perrors.NewErrInvalidRequest("Project id or task id is required", errors.New("file must be attached to a project or task"))
	}

	f := &File{
		StorageID:  req.StorageID,
		FileName:   name,
		FileType:   req.FileType,
		FileSize:   req.FileSize,
		ProjectID:  req.ProjectID,
		TaskID:     req.TaskID,
		UploadedBy: actor.ID,
	}

	if req.TaskID != nil {
		t, err := s.tasks.GetTask(ctx, *req.TaskID)
		if err != nil {
			return nil, err
		}
		if req.ProjectID != nil && *req.ProjectID != t.ProjectID {
			return nil, perrors.NewErrInvalidRequest("Task does not belong to project", fmt.Errorf("task %s is not in project %s", t.ID, *req.ProjectID))
		}
		projectID := t.ProjectID
		f.ProjectID = &projectID
	}

	if _, err := s.projects.AuthorizeEdit(ctx, actor, *f.ProjectID); err != nil {
		return nil, err
	}

	exists, err := s.store.Exists(ctx, req.StorageID)
	if err != nil {
		return nil, perrors.NewErrExternalService("Failed to check stored object", err)
	}
	if !exists {
		return nil, perrors.NewErrInvalidRequest("Uploaded object not found", fmt.Errorf("no object for storage id %s", req.StorageID))
	}

	details := activity.FileDetails{FileName: f.FileName, FileType: f.FileType, FileSize: f.FileSize}
	if f.ProjectID != nil {
		details.ProjectID = f.ProjectID.String()
	}
	if f.TaskID != nil {
		details.TaskID = f.TaskID.String()
	}
	entry := activity.Entry{
		UserID:     actor.ID,
		Action:     "uploaded_file",
		EntityType: activity.EntityFile,
		Details:    details,
	}.ToLog()

	saved, err := s.repo.Save(ctx, f, entry)
	if err != nil {
		switch {
		case errors.Is(err, ErrReservationNotFound):
			return nil, perrors.NewErrForbidden("No upload was reserved for this storage id", err)
		case errors.Is(err, ErrStorageIDInUse):
			return nil, perrors.NewErrConflict("Storage id is already in use", err)
		}
		return nil, perrors.NewErrInternalServerError("Failed to save file", err)
	}
	return saved, nil
}

func (s *FileService) ListByTask(ctx context.Context, taskID uuid.UUID) ([]*FileWithURL, error) {
	if _, err := s.tasks.GetTask(ctx, taskID); err != nil {
		return nil, err
	}

	files, err := s.repo.ListByTask(ctx, taskID)
	if err != nil {
		return nil, perrors.NewErrInternalServerError("Failed to list files", err)
	}
	return s.withURLs(ctx, files), nil
}

func (s *FileService) ListByProject(ctx context.Context, projectID uuid.UUID) ([]*FileWithURL, error) {
	if _, err := s.projects.GetByID(ctx, projectID); err != nil {
		if errors.Is(err, project.ErrProjectNotFound) {
			return nil, perrors.NewErrNotFound("Project not found", err)
		}
		return nil, perrors.NewErrInternalServerError("Failed to get project", err)
	}

	files, err := s.repo.ListByProject(ctx, projectID)
	if err != nil {
		return nil, perrors.NewErrInternalServerError("Failed to list files", err)
	}
	return s.withURLs(ctx, files), nil
}

// withURLs resolves a fresh read URL per file. A file whose URL cannot be
// resolved is still listed, with an empty URL.
func (s *FileService) withURLs(ctx context.Context, files []*File) []*FileWithURL {
	result := make([]*FileWithURL, 0, len(files))
	for _, f := range files {
		url, err := s.store.URL(ctx, f.StorageID)
		if err != nil {
			slog.WarnContext(ctx, "Failed to resolve file url",
				slog.String("file_id", f.ID.String()),
				slog.String("storage_id", f.StorageID),
				slog.Any("error", err))
		}
		result = append(result, &FileWithURL{File: *f, URL: url})
	}
	return result
}

// Remove hides the file, deletes its stored object and then purges the row.
// If either of the last two steps fails the tombstone stays for Reconcile.
func (s *FileService) Remove(ctx context.Context, id uuid.UUID) error {
	actor, err := s.identity.Current(ctx)
	if err != nil {
		return err
	}

	f, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrFileNotFound) {
			return perrors.NewErrNotFound("File not found", err)
		}
		return perrors.NewErrInternalServerError("Failed to get file", err)
	}

	if !CanRemove(actor, f) {
		return perrors.NewErrForbidden("Only the uploader or an admin can remove this file", fmt.Errorf("user %s cannot remove file %s", actor.ID, id))
	}

	f, err = s.repo.MarkDeleted(ctx, id)
	if err != nil {
		if errors.Is(err, ErrFileNotFound) {
			return perrors.NewErrNotFound("File not found", err)
		}
		return perrors.NewErrInternalServerError("Failed to remove file", err)
	}

	if err := storage.IgnoreNotFound(s.store.Delete(ctx, f.StorageID)); err != nil {
		return perrors.NewErrExternalService("Failed to delete stored object, removal will be retried", err)
	}

	// The row is already hidden, a failed purge is left to Reconcile.
	if err := s.repo.Purge(ctx, f.ID); err != nil {
		slog.WarnContext(ctx, "Failed to purge file row", slog.String("file_id", f.ID.String()), slog.Any("error", err))
	}
	return nil
}

// Reconcile finishes removals left behind by failed storage deletes, drops
// objects uploaded for reservations that were never saved, and returns how
// many of either were completed.
func (s *FileService) Reconcile(ctx context.Context) (int, error) {
	files, err := s.repo.ListTombstoned(ctx, reconcileBatch)
	if err != nil {
		return 0, fmt.Errorf("failed to list deleted files: %w", err)
	}

	done, err := s.dropAbandonedUploads(ctx)
	if err != nil {
		return 0, err
	}

	for _, f := range files {
		if err := storage.IgnoreNotFound(s.store.Delete(ctx, f.StorageID)); err != nil {
			slog.WarnContext(ctx, "Failed to reconcile file", slog.String("file_id", f.ID.String()), slog.Any("error", err))
			continue
		}
		if err := s.repo.Purge(ctx, f.ID); err != nil {
			slog.WarnContext(ctx, "Failed to purge file row", slog.String("file_id", f.ID.String()), slog.Any("error", err))
			continue
		}
		done++
	}
	return done, nil
}

func (s *FileService) dropAbandonedUploads(ctx context.Context) (int, error) {
	storageIDs, err := s.repo.ListExpiredReservations(ctx, reconcileBatch)
	if err != nil {
		return 0, fmt.Errorf("failed to list expired reservations: %w", err)
	}

	done := 0
	for _, storageID := range storageIDs {
		if err := storage.IgnoreNotFound(s.store.Delete(ctx, storageID)); err != nil {
			slog.WarnContext(ctx, "Failed to delete abandoned upload", slog.String("storage_id", storageID), slog.Any("error", err))
			continue
		}
		if err := s.repo.DeleteReservation(ctx, storageID); err != nil {
			slog.WarnContext(ctx, "Failed to drop upload reservation", slog.String("storage_id", storageID), slog.Any("error", err))
			continue
		}
		done++
	}
	return done, nil
}

// RunReconciler calls Reconcile every interval until ctx is done.
func (s *FileService) RunReconciler(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.Reconcile(ctx)
			if err != nil {
				slog.ErrorContext(ctx, "File reconciliation failed", slog.Any("error", err))
				continue
			}
			if n > 0 {
				slog.InfoContext(ctx, "Reconciled removed files", slog.Int("count", n))
			}
		}
	}
}
