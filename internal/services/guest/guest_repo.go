package guest

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/curaious/workboard/internal/db"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

var (
	ErrGuestNotFound      = errors.New("guest not found")
	ErrGuestAlreadyExists = errors.New("guest already invited to this project")
)

// Repository is the persistence contract of the guest service.
type Repository interface {
	// Create fails with ErrGuestAlreadyExists when (project, email) is taken.
	Create(ctx context.Context, g *Guest) (*Guest, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Guest, error)
	GetByProjectAndEmail(ctx context.Context, projectID uuid.UUID, email string) (*Guest, error)
	ListByProject(ctx context.Context, projectID uuid.UUID) ([]*Guest, error)
	UpdatePermissions(ctx context.Context, id uuid.UUID, permissions []string) (*Guest, error)
	Activate(ctx context.Context, id uuid.UUID, userID uuid.UUID) (*Guest, error)
	// Revoke keeps the row so the invitation can no longer be accepted.
	Revoke(ctx context.Context, id uuid.UUID) (*Guest, error)
	// ActiveGrants returns the permissions of the active guest with email on
	// the project, nil when there is none.
	ActiveGrants(ctx context.Context, projectID uuid.UUID, email string) ([]string, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

const guestColumns = `id, project_id, email, user_id, permissions, status, invited_by, created_at, updated_at`

const projectEmailIndex = "uq_project_guests_project_email"

type GuestRepo struct {
	db *sqlx.DB
}

func NewGuestRepo(db *sqlx.DB) *GuestRepo {
	return &GuestRepo{db: db}
}

func (r *GuestRepo) Create(ctx context.Context, g *Guest) (*Guest, error) {
	query := `
		INSERT INTO project_guests (project_id, email, user_id, permissions, status, invited_by)
		VALUES ($1, lower($2), $3, $4, $5, $6)
		RETURNING ` + guestColumns

	var created Guest
	err := r.db.GetContext(ctx, &created, query, g.ProjectID, g.Email, g.UserID, g.Permissions, g.Status, g.InvitedBy)
	if err != nil {
		if db.IsUniqueViolation(err, projectEmailIndex) {
			return nil, ErrGuestAlreadyExists
		}
		return nil, fmt.Errorf("failed to create guest: %w", err)
	}
	return &created, nil
}

func (r *GuestRepo) GetByID(ctx context.Context, id uuid.UUID) (*Guest, error) {
	var g Guest
	err := r.db.GetContext(ctx, &g, `SELECT `+guestColumns+` FROM project_guests WHERE id = $1`, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrGuestNotFound
		}
		return nil, fmt.Errorf("failed to get guest: %w", err)
	}
	return &g, nil
}

func (r *GuestRepo) GetByProjectAndEmail(ctx context.Context, projectID uuid.UUID, email string) (*Guest, error) {
	var g Guest
	err := r.db.GetContext(ctx, &g,
		`SELECT `+guestColumns+` FROM project_guests WHERE project_id = $1 AND lower(email) = lower($2)`, projectID, email)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrGuestNotFound
		}
		return nil, fmt.Errorf("failed to get guest: %w", err)
	}
	return &g, nil
}

func (r *GuestRepo) ListByProject(ctx context.Context, projectID uuid.UUID) ([]*Guest, error) {
	var guests []*Guest
	err := r.db.SelectContext(ctx, &guests,
		`SELECT `+guestColumns+` FROM project_guests WHERE project_id = $1 ORDER BY created_at, id`, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list guests: %w", err)
	}
	return guests, nil
}

func (r *GuestRepo) UpdatePermissions(ctx context.Context, id uuid.UUID, permissions []string) (*Guest, error) {
	var g Guest
	err := r.db.GetContext(ctx, &g, `
		UPDATE project_guests SET permissions = $1, updated_at = NOW()
		WHERE id = $2
		RETURNING `+guestColumns, pq.StringArray(permissions), id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrGuestNotFound
		}
		return nil, fmt.Errorf("failed to update guest permissions: %w", err)
	}
	return &g, nil
}

func (r *GuestRepo) Activate(ctx context.Context, id uuid.UUID, userID uuid.UUID) (*Guest, error) {
	var g Guest
	err := r.db.GetContext(ctx, &g, `
		UPDATE project_guests SET status = 'active', user_id = $1, updated_at = NOW()
		WHERE id = $2
		RETURNING `+guestColumns, userID, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrGuestNotFound
		}
		return nil, fmt.Errorf("failed to activate guest: %w", err)
	}
	return &g, nil
}

func (r *GuestRepo) Revoke(ctx context.Context, id uuid.UUID) (*Guest, error) {
	var g Guest
	err := r.db.GetContext(ctx, &g, `
		UPDATE project_guests SET status = 'revoked', updated_at = NOW()
		WHERE id = $1
		RETURNING `+guestColumns, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrGuestNotFound
		}
		return nil, fmt.Errorf("failed to revoke guest: %w", err)
	}
	return &g, nil
}

func (r *GuestRepo) ActiveGrants(ctx context.Context, projectID uuid.UUID, email string) ([]string, error) {
	var permissions pq.StringArray
	err := r.db.GetContext(ctx, &permissions, `
		SELECT permissions FROM project_guests
		WHERE project_id = $1 AND lower(email) = lower($2) AND status = 'active'
	`, projectID, email)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get guest grants: %w", err)
	}
	return permissions, nil
}

func (r *GuestRepo) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM project_guests WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete guest: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrGuestNotFound
	}
	return nil
}
