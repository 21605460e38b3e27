package comment

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

var ErrTaskCommentNotFound = errors.New("task comment not found")

type TaskCommentRepository interface {
	Create(ctx context.Context, c *TaskComment) (*TaskComment, error)
	GetByID(ctx context.Context, id uuid.UUID) (*TaskComment, error)
	// ListByTask returns the comments of a task, oldest first.
	ListByTask(ctx context.Context, taskID uuid.UUID) ([]*TaskComment, error)
	UpdateContent(ctx context.Context, id uuid.UUID, content string) (*TaskComment, error)
	// Delete removes the comment. Its replies stay, with no parent.
	Delete(ctx context.Context, id uuid.UUID) error
}

const taskCommentColumns = `id, task_id, user_id, content, parent_comment_id, files, created_at, updated_at`

type TaskCommentRepo struct {
	db *sqlx.DB
}

func NewTaskCommentRepo(db *sqlx.DB) *TaskCommentRepo {
	return &TaskCommentRepo{db: db}
}

func (r *TaskCommentRepo) Create(ctx context.Context, c *TaskComment) (*TaskComment, error) {
	query := `
		INSERT INTO task_comments (task_id, user_id, content, parent_comment_id, files)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + taskCommentColumns

	var created TaskComment
	err := r.db.GetContext(ctx, &created, query, c.TaskID, c.UserID, c.Content, c.ParentCommentID, c.Files)
	if err != nil {
		return nil, fmt.Errorf("failed to create task comment: %w", err)
	}
	return &created, nil
}

func (r *TaskCommentRepo) GetByID(ctx context.Context, id uuid.UUID) (*TaskComment, error) {
	var c TaskComment
	err := r.db.GetContext(ctx, &c, `SELECT `+taskCommentColumns+` FROM task_comments WHERE id = $1`, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrTaskCommentNotFound
		}
		return nil, fmt.Errorf("failed to get task comment: %w", err)
	}
	return &c, nil
}

func (r *TaskCommentRepo) ListByTask(ctx context.Context, taskID uuid.UUID) ([]*TaskComment, error) {
	var comments []*TaskComment
	err := r.db.SelectContext(ctx, &comments, `
		SELECT `+taskCommentColumns+`
		FROM task_comments
		WHERE task_id = $1
		ORDER BY created_at ASC, id ASC
	`, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to list task comments: %w", err)
	}
	return comments, nil
}

func (r *TaskCommentRepo) UpdateContent(ctx context.Context, id uuid.UUID, content string) (*TaskComment, error) {
	var c TaskComment
	err := r.db.GetContext(ctx, &c, `
		UPDATE task_comments SET content = $1, updated_at = NOW()
		WHERE id = $2
		RETURNING `+taskCommentColumns, content, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrTaskCommentNotFound
		}
		return nil, fmt.Errorf("failed to update task comment: %w", err)
	}
	return &c, nil
}

func (r *TaskCommentRepo) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM task_comments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete task comment: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrTaskCommentNotFound
	}
	return nil
}
