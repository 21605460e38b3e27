package memstore

import (
	"context"

	"github.com/curaious/workboard/internal/services/status"
	"github.com/google/uuid"
)

type StatusRepo struct{ s *Store }

var _ status.Repository = (*StatusRepo)(nil)

func cloneStatus(cs *status.CustomStatus) *status.CustomStatus {
	c := *cs
	c.TeamID = ptrCopy(cs.TeamID)
	return &c
}

func (r *StatusRepo) Create(_ context.Context, cs *status.CustomStatus) (*status.CustomStatus, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	created := cloneStatus(cs)
	if created.ID == uuid.Nil {
		created.ID = uuid.New()
	}
	created.CreatedAt = r.s.tick()
	created.UpdatedAt = created.CreatedAt
	r.s.statuses[created.ID] = created
	return cloneStatus(created), nil
}

func (r *StatusRepo) GetByID(_ context.Context, id uuid.UUID) (*status.CustomStatus, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	cs, ok := r.s.statuses[id]
	if !ok {
		return nil, status.ErrStatusNotFound
	}
	return cloneStatus(cs), nil
}

// ListByType returns rows in no particular order, like the SQL query.
func (r *StatusRepo) ListByType(_ context.Context, t status.Type) ([]*status.CustomStatus, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var result []*status.CustomStatus
	for _, cs := range r.s.statuses {
		if cs.Type == t {
			result = append(result, cloneStatus(cs))
		}
	}
	return result, nil
}

func (r *StatusRepo) Update(_ context.Context, id uuid.UUID, req *status.UpdateStatusRequest) (*status.CustomStatus, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	cs, ok := r.s.statuses[id]
	if !ok {
		return nil, status.ErrStatusNotFound
	}

	changed := false
	if req.Label != nil {
		cs.Label, changed = *req.Label, true
	}
	if req.Color != nil {
		cs.Color, changed = *req.Color, true
	}
	if req.IsDefault != nil {
		cs.IsDefault, changed = *req.IsDefault, true
	}
	if req.Order != nil {
		cs.Order, changed = *req.Order, true
	}
	if changed {
		cs.UpdatedAt = r.s.tick()
	}
	return cloneStatus(cs), nil
}

func (r *StatusRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.statuses[id]; !ok {
		return status.ErrStatusNotFound
	}
	delete(r.s.statuses, id)
	return nil
}
