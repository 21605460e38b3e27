package project

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/curaious/workboard/internal/identity"
	"github.com/curaious/workboard/internal/perrors"
	"github.com/curaious/workboard/internal/services/activity"
	"github.com/curaious/workboard/internal/services/user"
	"github.com/google/uuid"
)

// ObjectDeleter removes stored file objects.
type ObjectDeleter interface {
	Delete(ctx context.Context, storageID string) error
}

// GrantLookup reports the capabilities an active guest holds on a project,
// nil when the email has no active invitation there.
type GrantLookup interface {
	ActiveGrants(ctx context.Context, projectID uuid.UUID, email string) ([]string, error)
}

// Guest capabilities that allow changes to a project and its tasks.
const (
	grantEdit  = "edit"
	grantAdmin = "admin"
)

// ProjectService contains business logic for projects
type ProjectService struct {
	repo     Repository
	grants   GrantLookup
	identity *identity.Resolver
	objects  ObjectDeleter
	activity activity.Recorder
	now      func() time.Time
}

// NewProjectService constructs a new ProjectService
func NewProjectService(repo Repository, grants GrantLookup, resolver *identity.Resolver, objects ObjectDeleter, recorder activity.Recorder) *ProjectService {
	return &ProjectService{
		repo:     repo,
		grants:   grants,
		identity: resolver,
		objects:  objects,
		activity: recorder,
		now:      time.Now,
	}
}

// CanDelete is the project removal policy: the owner, team admins and superadmins.
func CanDelete(actor *user.User, p *Project) bool {
	if actor == nil {
		return false
	}
	if actor.IsAdmin() || actor.IsSuperAdmin() {
		return true
	}
	return p.OwnerID != nil && *p.OwnerID == actor.ID
}

// CanEdit is the mutation policy for a project and everything inside it:
// whoever may delete it, plus active guests granted edit or admin. grants are
// the actor's active guest capabilities on p.
func CanEdit(actor *user.User, p *Project, grants []string) bool {
	if CanDelete(actor, p) {
		return true
	}
	if actor == nil {
		return false
	}
	for _, g := range grants {
		if g == grantEdit || g == grantAdmin {
			return true
		}
	}
	return false
}

// AuthorizeEdit loads the project and applies CanEdit for actor.
func (s *ProjectService) AuthorizeEdit(ctx context.Context, actor *user.User, id uuid.UUID) (*Project, error) {
	p, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	var grants []string
	if !CanDelete(actor, p) && actor != nil {
		grants, err = s.grants.ActiveGrants(ctx, p.ID, actor.Email)
		if err != nil {
			return nil, perrors.NewErrInternalServerError("Failed to check project access", err)
		}
	}

	if !CanEdit(actor, p, grants) {
		return nil, perrors.NewErrForbidden("Not allowed to edit this project", errors.New("no edit access to project"))
	}
	return p, nil
}

// Create stores a new project. Anonymous callers may create projects, the owner
// is then left unset. Status defaults to active.
func (s *ProjectService) Create(ctx context.Context, req *CreateProjectRequest) (*Project, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, perrors.NewErrInvalidRequest("Name is required", errors.New("project name is required"))
	}

	if req.TeamID == "" {
		return nil, perrors.NewErrInvalidRequest("Team is required", errors.New("team id is required"))
	}

	if !req.Priority.Valid() {
		return nil, perrors.NewErrInvalidRequest("Invalid priority", fmt.Errorf("unknown priority %q", req.Priority))
	}

	status := StatusActive
	if req.Status != nil {
		if !req.Status.Valid() {
			return nil, perrors.NewErrInvalidRequest("Invalid status", fmt.Errorf("unknown status %q", *req.Status))
		}
		status = *req.Status
	}

	if err := validateDates(req.StartDate, req.EndDate); err != nil {
		return nil, err
	}

	actor, err := s.identity.Optional(ctx)
	if err != nil {
		return nil, err
	}

	p := &Project{
		Name:        name,
		Description: req.Description,
		Priority:    req.Priority,
		Status:      status,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
		TeamID:      req.TeamID,
		Color:       req.Color,
	}
	if actor != nil {
		p.OwnerID = &actor.ID
	}

	created, err := s.repo.Create(ctx, p)
	if err != nil {
		return nil, perrors.NewErrInternalServerError("Failed to create project", err)
	}

	if actor != nil {
		s.activity.Record(ctx, activity.Entry{
			UserID:     actor.ID,
			Action:     "created_project",
			EntityType: activity.EntityProject,
			EntityID:   created.ID.String(),
			Details:    activity.ProjectDetails{Name: created.Name, Status: string(created.Status)},
		})
	}

	return created, nil
}

func validateDates(start, end *time.Time) error {
	if start != nil && end != nil && end.Before(*start) {
		return perrors.NewErrInvalidRequest("End date must not precede start date", errors.New("end date before start date"))
	}
	return nil
}

// GetByID fetches a project by its identifier
func (s *ProjectService) GetByID(ctx context.Context, id uuid.UUID) (*Project, error) {
	project, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrProjectNotFound) {
			return nil, perrors.NewErrNotFound("Project not found", err)
		}
		return nil, perrors.NewErrInternalServerError("Failed to get project", err)
	}

	return project, nil
}

// List returns one page of projects ordered by (createdAt, id) descending
func (s *ProjectService) List(ctx context.Context, req *ListProjectsRequest) (*ProjectPage, error) {
	limit := req.Limit
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}

	filter := ListFilter{TeamID: req.TeamID, Limit: limit + 1}
	if req.Cursor != "" {
		cursor, err := DecodeCursor(req.Cursor)
		if err != nil {
			return nil, perrors.NewErrInvalidRequest("Invalid cursor", err)
		}
		filter.After = cursor
	}

	projects, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, perrors.NewErrInternalServerError("Failed to list projects", err)
	}

	page := &ProjectPage{Items: projects}
	if len(projects) > limit {
		page.Items = projects[:limit]
		last := page.Items[limit-1]
		page.NextCursor = Cursor{CreatedAt: last.CreatedAt, ID: last.ID}.Encode()
	}
	if page.Items == nil {
		page.Items = []*Project{}
	}

	return page, nil
}

// Update applies a partial patch; only supplied fields change
func (s *ProjectService) Update(ctx context.Context, id uuid.UUID, req *UpdateProjectRequest) (*Project, error) {
	actor, err := s.identity.Current(ctx)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		trimmed := strings.TrimSpace(*req.Name)
		if trimmed == "" {
			return nil, perrors.NewErrInvalidRequest("Name cannot be empty", errors.New("name cannot be empty"))
		}
		req.Name = &trimmed
	}
	if req.Priority != nil && !req.Priority.Valid() {
		return nil, perrors.NewErrInvalidRequest("Invalid priority", fmt.Errorf("unknown priority %q", *req.Priority))
	}
	if req.Status != nil && !req.Status.Valid() {
		return nil, perrors.NewErrInvalidRequest("Invalid status", fmt.Errorf("unknown status %q", *req.Status))
	}

	existing, err := s.AuthorizeEdit(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	start, end := existing.StartDate, existing.EndDate
	if req.StartDate != nil {
		start = req.StartDate
	}
	if req.EndDate != nil {
		end = req.EndDate
	}
	if err := validateDates(start, end); err != nil {
		return nil, err
	}

	project, err := s.repo.Update(ctx, id, req)
	if err != nil {
		if errors.Is(err, ErrProjectNotFound) {
			return nil, perrors.NewErrNotFound("Project not found", err)
		}
		return nil, perrors.NewErrInternalServerError("Failed to update project", err)
	}

	s.activity.Record(ctx, activity.Entry{
		UserID:     actor.ID,
		Action:     "updated_project",
		EntityType: activity.EntityProject,
		EntityID:   project.ID.String(),
		Details:    activity.ProjectDetails{Name: project.Name, Status: string(project.Status)},
	})

	return project, nil
}

// Delete removes a project with all of its tasks, subtasks, comments, guests
// and files. Stored objects of removed files are deleted afterwards; failures
// there are logged and do not undo the delete.
func (s *ProjectService) Delete(ctx context.Context, id uuid.UUID) error {
	actor, err := s.identity.Current(ctx)
	if err != nil {
		return err
	}

	existing, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if !CanDelete(actor, existing) {
		return perrors.NewErrForbidden("Only the owner or an admin can delete this project", errors.New("not allowed to delete project"))
	}

	storageIDs, err := s.repo.DeleteCascade(ctx, id)
	if err != nil {
		if errors.Is(err, ErrProjectNotFound) {
			return perrors.NewErrNotFound("Project not found", err)
		}
		return perrors.NewErrInternalServerError("Failed to delete project", err)
	}

	for _, storageID := range storageIDs {
		if err := s.objects.Delete(ctx, storageID); err != nil {
			slog.WarnContext(ctx, "Failed to delete stored object of removed project",
				slog.String("project_id", id.String()),
				slog.String("storage_id", storageID),
				slog.Any("error", err))
		}
	}

	s.activity.Record(ctx, activity.Entry{
		UserID:     actor.ID,
		Action:     "deleted_project",
		EntityType: activity.EntityProject,
		EntityID:   id.String(),
		Details:    activity.ProjectDetails{Name: existing.Name},
	})

	return nil
}

// Stats summarizes the tasks of a project
func (s *ProjectService) Stats(ctx context.Context, id uuid.UUID) (*ProjectStats, error) {
	if _, err := s.GetByID(ctx, id); err != nil {
		return nil, err
	}

	stats, err := s.repo.Stats(ctx, id, s.now())
	if err != nil {
		return nil, perrors.NewErrInternalServerError("Failed to get project stats", err)
	}
	return stats, nil
}
