package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/curaious/workboard/internal/db"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

var (
	ErrUserNotFound      = errors.New("user not found")
	ErrUserAlreadyExists = errors.New("user already exists")
)

// Repository is the persistence contract of the user service.
type Repository interface {
	Create(ctx context.Context, u *User) (*User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByTokenIdentifier(ctx context.Context, tokenIdentifier string) (*User, error)
	GetByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*User, error)
	UpdateRole(ctx context.Context, id uuid.UUID, role Role) (*User, error)
	SetTokenIdentifier(ctx context.Context, id uuid.UUID, tokenIdentifier string) error
}

const userColumns = `id, name, email, password_hash, role, system_role, token_identifier, current_team_id, avatar, created_at, updated_at`

type UserRepo struct {
	db *sqlx.DB
}

func NewUserRepo(db *sqlx.DB) *UserRepo {
	return &UserRepo{db: db}
}

func (r *UserRepo) Create(ctx context.Context, u *User) (*User, error) {
	query := `
		INSERT INTO users (id, name, email, password_hash, role, system_role, token_identifier, current_team_id, avatar)
		VALUES ($1, $2, lower($3), $4, $5, $6, $7, $8, $9)
		RETURNING ` + userColumns

	var created User
	err := r.db.GetContext(ctx, &created, query,
		u.ID, u.Name, u.Email, u.PasswordHash, u.Role, u.SystemRole, u.TokenIdentifier, u.CurrentTeamID, u.Avatar)
	if err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, ErrUserAlreadyExists
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return &created, nil
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE lower(email) = lower($1)`, email)
}

func (r *UserRepo) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

func (r *UserRepo) GetByTokenIdentifier(ctx context.Context, tokenIdentifier string) (*User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE token_identifier = $1`, tokenIdentifier)
}

func (r *UserRepo) getOne(ctx context.Context, query string, arg any) (*User, error) {
	var user User
	err := r.db.GetContext(ctx, &user, query, arg)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

// GetByIDs loads users in bulk, ids without a matching row are absent from the map.
func (r *UserRepo) GetByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*User, error) {
	result := make(map[uuid.UUID]*User, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	query, args, err := sqlx.In(`SELECT `+userColumns+` FROM users WHERE id IN (?)`, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to build user lookup: %w", err)
	}

	var users []*User
	if err := r.db.SelectContext(ctx, &users, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to get users: %w", err)
	}

	for _, u := range users {
		result[u.ID] = u
	}
	return result, nil
}

func (r *UserRepo) UpdateRole(ctx context.Context, id uuid.UUID, role Role) (*User, error) {
	query := `
		UPDATE users SET role = $1, updated_at = NOW()
		WHERE id = $2
		RETURNING ` + userColumns

	var user User
	err := r.db.GetContext(ctx, &user, query, role, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to update user role: %w", err)
	}
	return &user, nil
}

func (r *UserRepo) SetTokenIdentifier(ctx context.Context, id uuid.UUID, tokenIdentifier string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE users SET token_identifier = $1, updated_at = NOW() WHERE id = $2`, tokenIdentifier, id)
	if err != nil {
		if db.IsUniqueViolation(err, "") {
			return ErrUserAlreadyExists
		}
		return fmt.Errorf("failed to link identity: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}
