package user

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/curaious/workboard/internal/perrors"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 8

type UserService struct {
	repo   Repository
	issuer string
}

// NewUserService builds the service. Locally registered users get a token
// identifier bound to issuer.
func NewUserService(repo Repository, issuer string) *UserService {
	return &UserService{repo: repo, issuer: issuer}
}

// NormalizeEmail lowercases and trims an address, returning an error when it does not parse.
func NormalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", errors.New("email is required")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", fmt.Errorf("invalid email address: %s", email)
	}
	return email, nil
}

func (s *UserService) Register(ctx context.Context, req *RegisterRequest) (*User, error) {
	email, err := NormalizeEmail(req.Email)
	if err != nil {
		return nil, perrors.NewErrInvalidRequest("Invalid email", err)
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, perrors.NewErrInvalidRequest("Name is required", errors.New("name is required"))
	}

	if len(req.Password) < minPasswordLength {
		return nil, perrors.NewErrInvalidRequest("Password too short", fmt.Errorf("password must be at least %d characters", minPasswordLength))
	}

	if _, err := s.repo.GetByEmail(ctx, email); err == nil {
		return nil, perrors.NewErrConflict("User with this email already exists", ErrUserAlreadyExists)
	} else if !errors.Is(err, ErrUserNotFound) {
		return nil, perrors.NewErrInternalServerError("Failed to validate email", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, perrors.NewErrInternalServerError("Failed to hash password", err)
	}
	hashStr := string(hash)

	id := uuid.New()
	tokenIdentifier := TokenIdentifierFor(s.issuer, id.String())
	created, err := s.repo.Create(ctx, &User{
		ID:              id,
		Name:            name,
		Email:           email,
		PasswordHash:    &hashStr,
		Role:            RoleMember,
		SystemRole:      SystemRoleUser,
		TokenIdentifier: &tokenIdentifier,
	})
	if err != nil {
		if errors.Is(err, ErrUserAlreadyExists) {
			return nil, perrors.NewErrConflict("User with this email already exists", err)
		}
		return nil, perrors.NewErrInternalServerError("Failed to create user", err)
	}

	return created, nil
}

func (s *UserService) Authenticate(ctx context.Context, email, password string) (*User, error) {
	user, err := s.repo.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, perrors.NewErrUnauthorized("Invalid credentials", err)
		}
		return nil, perrors.NewErrInternalServerError("Failed to get user", err)
	}

	if user.PasswordHash == nil {
		return nil, perrors.NewErrUnauthorized("Invalid credentials", errors.New("password authentication is disabled for this user"))
	}

	err = bcrypt.CompareHashAndPassword([]byte(*user.PasswordHash), []byte(password))
	if err != nil {
		return nil, perrors.NewErrUnauthorized("Invalid credentials", errors.New("invalid password"))
	}

	// Seeded or imported users may predate local token identifiers.
	if user.TokenIdentifier == nil {
		tokenIdentifier := TokenIdentifierFor(s.issuer, user.ID.String())
		if err := s.repo.SetTokenIdentifier(ctx, user.ID, tokenIdentifier); err != nil {
			return nil, perrors.NewErrInternalServerError("Failed to link identity", err)
		}
		user.TokenIdentifier = &tokenIdentifier
	}

	return user, nil
}

func (s *UserService) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, perrors.NewErrNotFound("User not found", err)
		}
		return nil, perrors.NewErrInternalServerError("Failed to get user", err)
	}
	return user, nil
}

// LinkIdentity returns the user bound to tokenIdentifier, binding it to the user
// with a matching email or creating a new member when neither exists.
func (s *UserService) LinkIdentity(ctx context.Context, tokenIdentifier, email, name string) (*User, error) {
	user, err := s.repo.GetByTokenIdentifier(ctx, tokenIdentifier)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, ErrUserNotFound) {
		return nil, perrors.NewErrInternalServerError("Failed to resolve identity", err)
	}

	normalized, err := NormalizeEmail(email)
	if err != nil {
		return nil, perrors.NewErrInvalidRequest("Identity has no usable email", err)
	}

	user, err = s.repo.GetByEmail(ctx, normalized)
	switch {
	case err == nil:
		if err := s.repo.SetTokenIdentifier(ctx, user.ID, tokenIdentifier); err != nil {
			return nil, perrors.NewErrInternalServerError("Failed to link identity", err)
		}
		user.TokenIdentifier = &tokenIdentifier
		return user, nil
	case !errors.Is(err, ErrUserNotFound):
		return nil, perrors.NewErrInternalServerError("Failed to get user", err)
	}

	if strings.TrimSpace(name) == "" {
		name = normalized
	}

	created, err := s.repo.Create(ctx, &User{
		ID:              uuid.New(),
		Name:            name,
		Email:           normalized,
		Role:            RoleMember,
		SystemRole:      SystemRoleUser,
		TokenIdentifier: &tokenIdentifier,
	})
	if err != nil {
		return nil, perrors.NewErrInternalServerError("Failed to create user", err)
	}
	return created, nil
}

// UpdateRole changes the team role of a user. Only admins and superadmins may do so.
func (s *UserService) UpdateRole(ctx context.Context, actor *User, id uuid.UUID, role Role) (*User, error) {
	if actor == nil {
		return nil, perrors.NewErrUnauthorized("Not authenticated", errors.New("no identity"))
	}
	if !actor.IsAdmin() && !actor.IsSuperAdmin() {
		return nil, perrors.NewErrForbidden("Only admins can change roles", errors.New("insufficient role"))
	}
	if !role.Valid() {
		return nil, perrors.NewErrInvalidRequest("Invalid role", fmt.Errorf("unknown role %q", role))
	}

	user, err := s.repo.UpdateRole(ctx, id, role)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, perrors.NewErrNotFound("User not found", err)
		}
		return nil, perrors.NewErrInternalServerError("Failed to update role", err)
	}
	return user, nil
}
