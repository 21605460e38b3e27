package status

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/curaious/workboard/internal/identity"
	"github.com/curaious/workboard/internal/perrors"
	"github.com/curaious/workboard/internal/services/activity"
	"github.com/curaious/workboard/internal/services/user"
	"github.com/google/uuid"
)

type StatusService struct {
	repo     Repository
	identity *identity.Resolver
	activity activity.Recorder
}

func NewStatusService(repo Repository, resolver *identity.Resolver, recorder activity.Recorder) *StatusService {
	return &StatusService{
		repo:     repo,
		identity: resolver,
		activity: recorder,
	}
}

// CanManage allows team admins and superadmins to change the status catalogue.
func CanManage(actor *user.User) bool {
	return actor.IsAdmin() || actor.IsSuperAdmin()
}

// FilterAndSort keeps the statuses of teamID plus the global ones and orders
// them by Order, then by id.
func FilterAndSort(rows []*CustomStatus, teamID *string) []*CustomStatus {
	result := make([]*CustomStatus, 0, len(rows))
	for _, s := range rows {
		if s.TeamID == nil || (teamID != nil && *s.TeamID == *teamID) {
			result = append(result, s)
		}
	}

	sort.SliceStable(result, func(i, j int) bool {
		if result[i].Order != result[j].Order {
			return result[i].Order < result[j].Order
		}
		return result[i].ID.String() < result[j].ID.String()
	})
	return result
}

func (s *StatusService) List(ctx context.Context, t Type, teamID *string) ([]*CustomStatus, error) {
	if !t.Valid() {
		return nil, perrors.NewErrInvalidRequest("Invalid status type", fmt.Errorf("unknown status type %q", t))
	}

	rows, err := s.repo.ListByType(ctx, t)
	if err != nil {
		return nil, perrors.NewErrInternalServerError("Failed to list statuses", err)
	}
	return FilterAndSort(rows, teamID), nil
}

func (s *StatusService) Create(ctx context.Context, req *CreateStatusRequest) (*CustomStatus, error) {
	actor, err := s.authorize(ctx)
	if err != nil {
		return nil, err
	}

	if !req.Type.Valid() {
		return nil, perrors.NewErrInvalidRequest("Invalid status type", fmt.Errorf("unknown status type %q", req.Type))
	}
	slug := strings.TrimSpace(req.Slug)
	label := strings.TrimSpace(req.Label)
	if slug == "" || label == "" {
		return nil, perrors.NewErrInvalidRequest("Slug and label are required", errors.New("slug and label are required"))
	}

	created, err := s.repo.Create(ctx, &CustomStatus{
		Type:      req.Type,
		Slug:      slug,
		Label:     label,
		Color:     req.Color,
		IsDefault: req.IsDefault,
		Order:     req.Order,
		TeamID:    req.TeamID,
	})
	if err != nil {
		return nil, perrors.NewErrInternalServerError("Failed to create status", err)
	}

	s.record(ctx, actor, "created_status", created)
	return created, nil
}

func (s *StatusService) Update(ctx context.Context, id uuid.UUID, req *UpdateStatusRequest) (*CustomStatus, error) {
	actor, err := s.authorize(ctx)
	if err != nil {
		return nil, err
	}

	if req.Label != nil {
		label := strings.TrimSpace(*req.Label)
		if label == "" {
			return nil, perrors.NewErrInvalidRequest("Label must not be empty", errors.New("label must not be empty"))
		}
		req.Label = &label
	}

	updated, err := s.repo.Update(ctx, id, req)
	if err != nil {
		if errors.Is(err, ErrStatusNotFound) {
			return nil, perrors.NewErrNotFound("Status not found", err)
		}
		return nil, perrors.NewErrInternalServerError("Failed to update status", err)
	}

	s.record(ctx, actor, "updated_status", updated)
	return updated, nil
}

func (s *StatusService) Delete(ctx context.Context, id uuid.UUID) error {
	actor, err := s.authorize(ctx)
	if err != nil {
		return err
	}

	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrStatusNotFound) {
			return perrors.NewErrNotFound("Status not found", err)
		}
		return perrors.NewErrInternalServerError("Failed to get status", err)
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, ErrStatusNotFound) {
			return perrors.NewErrNotFound("Status not found", err)
		}
		return perrors.NewErrInternalServerError("Failed to delete status", err)
	}

	s.record(ctx, actor, "deleted_status", existing)
	return nil
}

func (s *StatusService) authorize(ctx context.Context) (*user.User, error) {
	actor, err := s.identity.Current(ctx)
	if err != nil {
		return nil, err
	}
	if !CanManage(actor) {
		return nil, perrors.NewErrForbidden("Only admins can manage statuses", fmt.Errorf("user %s is not an admin", actor.ID))
	}
	return actor, nil
}

func (s *StatusService) record(ctx context.Context, actor *user.User, action string, cs *CustomStatus) {
	s.activity.Record(ctx, activity.Entry{
		UserID:     actor.ID,
		Action:     action,
		EntityType: activity.EntityStatus,
		EntityID:   cs.ID.String(),
		Details:    activity.StatusDetails{Type: string(cs.Type), Slug: cs.Slug, Label: cs.Label},
	})
}
