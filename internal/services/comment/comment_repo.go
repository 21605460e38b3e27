package comment

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

var ErrCommentNotFound = errors.New("comment not found")

// Repository is the persistence contract of the comment service.
type Repository interface {
	Create(ctx context.Context, c *Comment) (*Comment, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Comment, error)
	// ListByProject returns the comments of a project, newest first.
	ListByProject(ctx context.Context, projectID uuid.UUID) ([]*Comment, error)
	UpdateContent(ctx context.Context, id uuid.UUID, content string) (*Comment, error)
	// Delete removes the comment. Its replies stay, with no parent.
	Delete(ctx context.Context, id uuid.UUID) error
}

const commentColumns = `id, project_id, user_id, content, parent_comment_id, files, created_at, updated_at`

type CommentRepo struct {
	db *sqlx.DB
}

func NewCommentRepo(db *sqlx.DB) *CommentRepo {
	return &CommentRepo{db: db}
}

func (r *CommentRepo) Create(ctx context.Context, c *Comment) (*Comment, error) {
	query := `
		INSERT INTO project_comments (project_id, user_id, content, parent_comment_id, files)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + commentColumns

	var created Comment
	err := r.db.GetContext(ctx, &created, query, c.ProjectID, c.UserID, c.Content, c.ParentCommentID, c.Files)
	if err != nil {
		return nil, fmt.Errorf("failed to create comment: %w", err)
	}
	return &created, nil
}

func (r *CommentRepo) GetByID(ctx context.Context, id uuid.UUID) (*Comment, error) {
	var c Comment
	err := r.db.GetContext(ctx, &c, `SELECT `+commentColumns+` FROM project_comments WHERE id = $1`, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrCommentNotFound
		}
		return nil, fmt.Errorf("failed to get comment: %w", err)
	}
	return &c, nil
}

func (r *CommentRepo) ListByProject(ctx context.Context, projectID uuid.UUID) ([]*Comment, error) {
	var comments []*Comment
	err := r.db.SelectContext(ctx, &comments, `
		SELECT `+commentColumns+`
		FROM project_comments
		WHERE project_id = $1
		ORDER BY created_at DESC, id DESC
	`, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}
	return comments, nil
}

func (r *CommentRepo) UpdateContent(ctx context.Context, id uuid.UUID, content string) (*Comment, error) {
	var c Comment
	err := r.db.GetContext(ctx, &c, `
		UPDATE project_comments SET content = $1, updated_at = NOW()
		WHERE id = $2
		RETURNING `+commentColumns, content, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrCommentNotFound
		}
		return nil, fmt.Errorf("failed to update comment: %w", err)
	}
	return &c, nil
}

func (r *CommentRepo) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM project_comments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete comment: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrCommentNotFound
	}
	return nil
}
