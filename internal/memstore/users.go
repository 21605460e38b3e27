package memstore

import (
	"context"
	"strings"

	"github.com/curaious/workboard/internal/services/user"
	"github.com/google/uuid"
)

type UserRepo struct{ s *Store }

var _ user.Repository = (*UserRepo)(nil)

func cloneUser(u *user.User) *user.User {
	c := *u
	c.PasswordHash = ptrCopy(u.PasswordHash)
	c.TokenIdentifier = ptrCopy(u.TokenIdentifier)
	c.CurrentTeamID = ptrCopy(u.CurrentTeamID)
	c.Avatar = ptrCopy(u.Avatar)
	return &c
}

func (r *UserRepo) Create(_ context.Context, u *user.User) (*user.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	email := strings.ToLower(u.Email)
	for _, existing := range r.s.users {
		if existing.Email == email {
			return nil, user.ErrUserAlreadyExists
		}
		if u.TokenIdentifier != nil && existing.TokenIdentifier != nil && *existing.TokenIdentifier == *u.TokenIdentifier {
			return nil, user.ErrUserAlreadyExists
		}
	}

	created := cloneUser(u)
	if created.ID == uuid.Nil {
		created.ID = uuid.New()
	}
	created.Email = email
	created.CreatedAt = r.s.tick()
	created.UpdatedAt = created.CreatedAt
	r.s.users[created.ID] = created
	return cloneUser(created), nil
}

func (r *UserRepo) GetByID(_ context.Context, id uuid.UUID) (*user.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.users[id]
	if !ok {
		return nil, user.ErrUserNotFound
	}
	return cloneUser(u), nil
}

func (r *UserRepo) GetByEmail(_ context.Context, email string) (*user.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, u := range r.s.users {
		if strings.EqualFold(u.Email, email) {
			return cloneUser(u), nil
		}
	}
	return nil, user.ErrUserNotFound
}

func (r *UserRepo) GetByTokenIdentifier(_ context.Context, tokenIdentifier string) (*user.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, u := range r.s.users {
		if u.TokenIdentifier != nil && *u.TokenIdentifier == tokenIdentifier {
			return cloneUser(u), nil
		}
	}
	return nil, user.ErrUserNotFound
}

func (r *UserRepo) GetByIDs(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]*user.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	result := make(map[uuid.UUID]*user.User, len(ids))
	for _, id := range ids {
		if u, ok := r.s.users[id]; ok {
			result[id] = cloneUser(u)
		}
	}
	return result, nil
}

func (r *UserRepo) UpdateRole(_ context.Context, id uuid.UUID, role user.Role) (*user.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.users[id]
	if !ok {
		return nil, user.ErrUserNotFound
	}
	u.Role = role
	u.UpdatedAt = r.s.tick()
	return cloneUser(u), nil
}

func (r *UserRepo) SetTokenIdentifier(_ context.Context, id uuid.UUID, tokenIdentifier string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.users[id]
	if !ok {
		return user.ErrUserNotFound
	}
	for otherID, other := range r.s.users {
		if otherID != id && other.TokenIdentifier != nil && *other.TokenIdentifier == tokenIdentifier {
			return user.ErrUserAlreadyExists
		}
	}
	u.TokenIdentifier = &tokenIdentifier
	u.UpdatedAt = r.s.tick()
	return nil
}
