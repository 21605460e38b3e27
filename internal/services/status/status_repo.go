package status

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

var ErrStatusNotFound = errors.New("status not found")

type Repository interface {
	Create(ctx context.Context, s *CustomStatus) (*CustomStatus, error)
	GetByID(ctx context.Context, id uuid.UUID) (*CustomStatus, error)
	// ListByType returns every status of type t regardless of team.
	ListByType(ctx context.Context, t Type) ([]*CustomStatus, error)
	Update(ctx context.Context, id uuid.UUID, req *UpdateStatusRequest) (*CustomStatus, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

const statusColumns = `id, type, slug, label, color, is_default, "order", team_id, created_at, updated_at`

type StatusRepo struct {
	db *sqlx.DB
}

func NewStatusRepo(db *sqlx.DB) *StatusRepo {
	return &StatusRepo{db: db}
}

func (r *StatusRepo) Create(ctx context.Context, s *CustomStatus) (*CustomStatus, error) {
	var created CustomStatus
	err := r.db.GetContext(ctx, &created, `
		INSERT INTO custom_statuses (type, slug, label, color, is_default, "order", team_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+statusColumns,
		s.Type, s.Slug, s.Label, s.Color, s.IsDefault, s.Order, s.TeamID)
	if err != nil {
		return nil, fmt.Errorf("failed to create status: %w", err)
	}
	return &created, nil
}

func (r *StatusRepo) GetByID(ctx context.Context, id uuid.UUID) (*CustomStatus, error) {
	var s CustomStatus
	err := r.db.GetContext(ctx, &s, `SELECT `+statusColumns+` FROM custom_statuses WHERE id = $1`, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrStatusNotFound
		}
		return nil, fmt.Errorf("failed to get status: %w", err)
	}
	return &s, nil
}

func (r *StatusRepo) ListByType(ctx context.Context, t Type) ([]*CustomStatus, error) {
	var statuses []*CustomStatus
	err := r.db.SelectContext(ctx, &statuses, `SELECT `+statusColumns+` FROM custom_statuses WHERE type = $1`, t)
	if err != nil {
		return nil, fmt.Errorf("failed to list statuses: %w", err)
	}
	return statuses, nil
}

func (r *StatusRepo) Update(ctx context.Context, id uuid.UUID, req *UpdateStatusRequest) (*CustomStatus, error) {
	setParts := []string{}
	args := []interface{}{}
	argIndex := 1

	if req.Label != nil {
		setParts = append(setParts, fmt.Sprintf("label = $%d", argIndex))
		args = append(args, *req.Label)
		argIndex++
	}
	if req.Color != nil {
		setParts = append(setParts, fmt.Sprintf("color = $%d", argIndex))
		args = append(args, *req.Color)
		argIndex++
	}
	if req.IsDefault != nil {
		setParts = append(setParts, fmt.Sprintf("is_default = $%d", argIndex))
		args = append(args, *req.IsDefault)
		argIndex++
	}
	if req.Order != nil {
		setParts = append(setParts, fmt.Sprintf(`"order" = $%d`, argIndex))
		args = append(args, *req.Order)
		argIndex++
	}

	if len(setParts) == 0 {
		return r.GetByID(ctx, id)
	}

	setParts = append(setParts, "updated_at = NOW()")
	args = append(args, id)

	query := fmt.Sprintf(`UPDATE custom_statuses SET %s WHERE id = $%d RETURNING %s`,
		strings.Join(setParts, ", "), argIndex, statusColumns)

	var s CustomStatus
	if err := r.db.GetContext(ctx, &s, query, args...); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrStatusNotFound
		}
		return nil, fmt.Errorf("failed to update status: %w", err)
	}
	return &s, nil
}

func (r *StatusRepo) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM custom_statuses WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete status: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrStatusNotFound
	}
	return nil
}
