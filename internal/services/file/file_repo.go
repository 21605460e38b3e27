package file

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/curaious/workboard/internal/db"
	"github.com/curaious/workboard/internal/services/activity"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

var (
	ErrFileNotFound        = errors.New("file not found")
	ErrReservationNotFound = errors.New("no live upload reservation for storage id")
	ErrStorageIDInUse      = errors.New("storage id already backs a file")
)

const storageIDIndex = "uq_files_storage_id"

// Repository is the persistence contract of the file service. Tombstoned
// rows (deleted_at set) are invisible to GetByID and the list methods.
type Repository interface {
	// Reserve issues storageID to userID until expiresAt.
	Reserve(ctx context.Context, storageID string, userID uuid.UUID, expiresAt time.Time) error
	// Save consumes the uploader's reservation of f.StorageID, inserts f and,
	// when entry is not nil, queues it on the activity outbox in the same
	// transaction. It fails with ErrReservationNotFound when f.UploadedBy holds
	// no live reservation and ErrStorageIDInUse when a row already uses the
	// object. A failed outbox write does not fail the save.
	Save(ctx context.Context, f *File, entry *activity.Log) (*File, error)
	GetByID(ctx context.Context, id uuid.UUID) (*File, error)
	ListByTask(ctx context.Context, taskID uuid.UUID) ([]*File, error)
	ListByProject(ctx context.Context, projectID uuid.UUID) ([]*File, error)
	MarkDeleted(ctx context.Context, id uuid.UUID) (*File, error)
	Purge(ctx context.Context, id uuid.UUID) error
	ListTombstoned(ctx context.Context, limit int) ([]*File, error)
	// ListExpiredReservations returns storage ids whose reservation lapsed
	// without a save, oldest first.
	ListExpiredReservations(ctx context.Context, limit int) ([]string, error)
	DeleteReservation(ctx context.Context, storageID string) error
}

const fileColumns = `id, storage_id, file_name, file_type, file_size, project_id, task_id, uploaded_by, created_at, deleted_at`

type FileRepo struct {
	db *sqlx.DB
}

func NewFileRepo(db *sqlx.DB) *FileRepo {
	return &FileRepo{db: db}
}

func (r *FileRepo) Reserve(ctx context.Context, storageID string, userID uuid.UUID, expiresAt time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO upload_reservations (storage_id, user_id, expires_at)
		VALUES ($1, $2, $3)
	`, storageID, userID, expiresAt)
	if err != nil {
		return fmt.Errorf("failed to reserve storage id: %w", err)
	}
	return nil
}

func (r *FileRepo) Save(ctx context.Context, f *File, entry *activity.Log) (*File, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		DELETE FROM upload_reservations
		WHERE storage_id = $1 AND user_id = $2 AND expires_at > NOW()
	`, f.StorageID, f.UploadedBy)
	if err != nil {
		return nil, fmt.Errorf("failed to claim upload reservation: %w", err)
	}
	claimed, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to claim upload reservation: %w", err)
	}
	if claimed == 0 {
		return nil, ErrReservationNotFound
	}

	var saved File
	err = tx.GetContext(ctx, &saved, `
		INSERT INTO files (storage_id, file_name, file_type, file_size, project_id, task_id, uploaded_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+fileColumns,
		f.StorageID, f.FileName, f.FileType, f.FileSize, f.ProjectID, f.TaskID, f.UploadedBy)
	if err != nil {
		if db.IsUniqueViolation(err, storageIDIndex) {
			return nil, ErrStorageIDInUse
		}
		return nil, fmt.Errorf("failed to save file: %w", err)
	}

	if entry != nil {
		entry.EntityID = ptr(saved.ID.String())
		if err := enqueueGuarded(ctx, tx, entry); err != nil {
			slog.WarnContext(ctx, "Activity log for saved file dropped", slog.String("file_id", saved.ID.String()), slog.Any("error", err))
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit file: %w", err)
	}

	return &saved, nil
}

// enqueueGuarded writes the outbox row under a savepoint so a failure only
// rolls back the outbox write.
func enqueueGuarded(ctx context.Context, tx *sqlx.Tx, entry *activity.Log) error {
	if _, err := tx.ExecContext(ctx, `SAVEPOINT activity_outbox`); err != nil {
		return err
	}

	if err := activity.EnqueueTx(ctx, tx, entry); err != nil {
		if _, rbErr := tx.ExecContext(ctx, `ROLLBACK TO SAVEPOINT activity_outbox`); rbErr != nil {
			return fmt.Errorf("%w (rollback to savepoint: %v)", err, rbErr)
		}
		return err
	}

	_, err := tx.ExecContext(ctx, `RELEASE SAVEPOINT activity_outbox`)
	return err
}

func ptr(s string) *string {
	return &s
}

func (r *FileRepo) GetByID(ctx context.Context, id uuid.UUID) (*File, error) {
	var f File
	err := r.db.GetContext(ctx, &f, `SELECT `+fileColumns+` FROM files WHERE id = $1 AND deleted_at IS NULL`, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrFileNotFound
		}
		return nil, fmt.Errorf("failed to get file: %w", err)
	}
	return &f, nil
}

func (r *FileRepo) ListByTask(ctx context.Context, taskID uuid.UUID) ([]*File, error) {
	var files []*File
	err := r.db.SelectContext(ctx, &files, `
		SELECT `+fileColumns+` FROM files
		WHERE task_id = $1 AND deleted_at IS NULL
		ORDER BY created_at DESC, id DESC
	`, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to list task files: %w", err)
	}
	return files, nil
}

func (r *FileRepo) ListByProject(ctx context.Context, projectID uuid.UUID) ([]*File, error) {
	var files []*File
	err := r.db.SelectContext(ctx, &files, `
		SELECT `+fileColumns+` FROM files
		WHERE project_id = $1 AND deleted_at IS NULL
		ORDER BY created_at DESC, id DESC
	`, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list project files: %w", err)
	}
	return files, nil
}

func (r *FileRepo) MarkDeleted(ctx context.Context, id uuid.UUID) (*File, error) {
	var f File
	err := r.db.GetContext(ctx, &f, `
		UPDATE files SET deleted_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
		RETURNING `+fileColumns, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrFileNotFound
		}
		return nil, fmt.Errorf("failed to mark file deleted: %w", err)
	}
	return &f, nil
}

func (r *FileRepo) Purge(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM files WHERE id = $1 AND deleted_at IS NOT NULL`, id)
	if err != nil {
		return fmt.Errorf("failed to purge file: %w", err)
	}
	return nil
}

func (r *FileRepo) ListTombstoned(ctx context.Context, limit int) ([]*File, error) {
	var files []*File
	err := r.db.SelectContext(ctx, &files, `
		SELECT `+fileColumns+` FROM files
		WHERE deleted_at IS NOT NULL
		ORDER BY deleted_at
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list deleted files: %w", err)
	}
	return files, nil
}

func (r *FileRepo) ListExpiredReservations(ctx context.Context, limit int) ([]string, error) {
	var ids []string
	err := r.db.SelectContext(ctx, &ids, `
		SELECT storage_id FROM upload_reservations
		WHERE expires_at <= NOW()
		ORDER BY expires_at
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list expired reservations: %w", err)
	}
	return ids, nil
}

func (r *FileRepo) DeleteReservation(ctx context.Context, storageID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM upload_reservations WHERE storage_id = $1`, storageID)
	if err != nil {
		return fmt.Errorf("failed to delete reservation: %w", err)
	}
	return nil
}
