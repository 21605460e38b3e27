package activity

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// Repository is the persistence contract of the activity service.
type Repository interface {
	Insert(ctx context.Context, l *Log) error
	Enqueue(ctx context.Context, l *Log) error
	// PublishOutbox moves up to limit outbox rows into the log, oldest first,
	// and returns the rows it moved. Publishing the same id twice is a no-op.
	PublishOutbox(ctx context.Context, limit int) ([]*Log, error)
	Recent(ctx context.Context, limit int) ([]*Log, error)
	Counts(ctx context.Context, now time.Time) (*Counts, error)
}

const logColumns = `id, user_id, action, entity_type, entity_id, details, created_at`

type ActivityRepo struct {
	db *sqlx.DB
}

func NewActivityRepo(db *sqlx.DB) *ActivityRepo {
	return &ActivityRepo{db: db}
}

func (r *ActivityRepo) Insert(ctx context.Context, l *Log) error {
	query := `INSERT INTO activity_logs (` + logColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.db.ExecContext(ctx, query, l.ID, l.UserID, l.Action, l.EntityType, l.EntityID, l.Details, l.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert activity log: %w", err)
	}
	return nil
}

func (r *ActivityRepo) Enqueue(ctx context.Context, l *Log) error {
	return EnqueueTx(ctx, r.db, l)
}

// EnqueueTx writes l to the outbox using ext, so it can join a caller's transaction.
func EnqueueTx(ctx context.Context, ext sqlx.ExecerContext, l *Log) error {
	query := `INSERT INTO activity_outbox (` + logColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := ext.ExecContext(ctx, query, l.ID, l.UserID, l.Action, l.EntityType, l.EntityID, l.Details, l.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to enqueue activity log: %w", err)
	}
	return nil
}

func (r *ActivityRepo) PublishOutbox(ctx context.Context, limit int) ([]*Log, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var pending []*Log
	err = tx.SelectContext(ctx, &pending, `
		SELECT `+logColumns+`
		FROM activity_outbox
		ORDER BY created_at, id
		LIMIT $1
		FOR UPDATE SKIP LOCKED
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to read activity outbox: %w", err)
	}

	for _, l := range pending {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO activity_logs (`+logColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (id) DO NOTHING
		`, l.ID, l.UserID, l.Action, l.EntityType, l.EntityID, l.Details, l.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to publish activity log: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM activity_outbox WHERE id = $1`, l.ID); err != nil {
			return nil, fmt.Errorf("failed to clear activity outbox: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit activity outbox: %w", err)
	}

	return pending, nil
}

func (r *ActivityRepo) Recent(ctx context.Context, limit int) ([]*Log, error) {
	var logs []*Log
	err := r.db.SelectContext(ctx, &logs, `
		SELECT `+logColumns+`
		FROM activity_logs
		ORDER BY created_at DESC, id DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list activity logs: %w", err)
	}
	return logs, nil
}

func (r *ActivityRepo) Counts(ctx context.Context, now time.Time) (*Counts, error) {
	query := `
		SELECT
			(SELECT COUNT(*) FROM projects) AS total_projects,
			(SELECT COUNT(*) FROM projects WHERE status = 'active') AS active_projects,
			(SELECT COUNT(*) FROM projects WHERE status = 'completed') AS completed_projects,
			(SELECT COUNT(*) FROM projects WHERE status = 'draft') AS draft_projects,
			(SELECT COUNT(*) FROM tasks) AS total_tasks,
			(SELECT COUNT(*) FROM tasks WHERE status = 'done') AS completed_tasks,
			(SELECT COUNT(*) FROM tasks WHERE status = 'in_progress') AS in_progress_tasks,
			(SELECT COUNT(*) FROM tasks WHERE status = 'todo') AS todo_tasks,
			(SELECT COUNT(*) FROM tasks WHERE status <> 'done' AND due_date IS NOT NULL AND due_date < $1) AS overdue_tasks,
			(SELECT COUNT(*) FROM users) AS total_users,
			(SELECT COUNT(*) FROM approvals) AS total_approvals,
			(SELECT COUNT(*) FROM approvals WHERE status = 'pending') AS pending_approvals,
			(SELECT COUNT(*) FROM approvals WHERE status = 'approved') AS approved_approvals,
			(SELECT COUNT(*) FROM approvals WHERE status = 'rejected') AS rejected_approvals
	`

	var counts Counts
	if err := r.db.GetContext(ctx, &counts, query, now); err != nil {
		return nil, fmt.Errorf("failed to compute stats: %w", err)
	}
	return &counts, nil
}
