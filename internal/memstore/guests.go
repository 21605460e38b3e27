package memstore

import (
	"context"
	"sort"
	"strings"

	"github.com/curaious/workboard/internal/services/guest"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

type GuestRepo struct{ s *Store }

var _ guest.Repository = (*GuestRepo)(nil)

func cloneGuest(g *guest.Guest) *guest.Guest {
	c := *g
	c.UserID = ptrCopy(g.UserID)
	c.Permissions = append(pq.StringArray{}, g.Permissions...)
	return &c
}

func (r *GuestRepo) Create(_ context.Context, g *guest.Guest) (*guest.Guest, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.projects[g.ProjectID]; !ok {
		return nil, errForeignKey("project_guests.project_id")
	}

	email := strings.ToLower(g.Email)
	for _, existing := range r.s.guests {
		if existing.ProjectID == g.ProjectID && existing.Email == email {
			return nil, guest.ErrGuestAlreadyExists
		}
	}

	created := cloneGuest(g)
	created.ID = uuid.New()
	created.Email = email
	created.CreatedAt = r.s.tick()
	created.UpdatedAt = created.CreatedAt
	r.s.guests[created.ID] = created
	return cloneGuest(created), nil
}

func (r *GuestRepo) GetByID(_ context.Context, id uuid.UUID) (*guest.Guest, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	g, ok := r.s.guests[id]
	if !ok {
		return nil, guest.ErrGuestNotFound
	}
	return cloneGuest(g), nil
}

func (r *GuestRepo) GetByProjectAndEmail(_ context.Context, projectID uuid.UUID, email string) (*guest.Guest, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, g := range r.s.guests {
		if g.ProjectID == projectID && strings.EqualFold(g.Email, email) {
			return cloneGuest(g), nil
		}
	}
	return nil, guest.ErrGuestNotFound
}

func (r *GuestRepo) ListByProject(_ context.Context, projectID uuid.UUID) ([]*guest.Guest, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var result []*guest.Guest
	for _, g := range r.s.guests {
		if g.ProjectID == projectID {
			result = append(result, cloneGuest(g))
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.Before(result[j].CreatedAt)
		}
		return result[i].ID.String() < result[j].ID.String()
	})
	return result, nil
}

func (r *GuestRepo) UpdatePermissions(_ context.Context, id uuid.UUID, permissions []string) (*guest.Guest, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	g, ok := r.s.guests[id]
	if !ok {
		return nil, guest.ErrGuestNotFound
	}
	g.Permissions = append(pq.StringArray{}, permissions...)
	g.UpdatedAt = r.s.tick()
	return cloneGuest(g), nil
}

func (r *GuestRepo) Activate(_ context.Context, id uuid.UUID, userID uuid.UUID) (*guest.Guest, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	g, ok := r.s.guests[id]
	if !ok {
		return nil, guest.ErrGuestNotFound
	}
	g.Status = guest.StatusActive
	g.UserID = &userID
	g.UpdatedAt = r.s.tick()
	return cloneGuest(g), nil
}

func (r *GuestRepo) Revoke(_ context.Context, id uuid.UUID) (*guest.Guest, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	g, ok := r.s.guests[id]
	if !ok {
		return nil, guest.ErrGuestNotFound
	}
	g.Status = guest.StatusRevoked
	g.UpdatedAt = r.s.tick()
	return cloneGuest(g), nil
}

func (r *GuestRepo) ActiveGrants(_ context.Context, projectID uuid.UUID, email string) ([]string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, g := range r.s.guests {
		if g.ProjectID == projectID && strings.EqualFold(g.Email, email) && g.Status == guest.StatusActive {
			return append([]string{}, g.Permissions...), nil
		}
	}
	return nil, nil
}

func (r *GuestRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.guests[id]; !ok {
		return guest.ErrGuestNotFound
	}
	delete(r.s.guests, id)
	return nil
}
