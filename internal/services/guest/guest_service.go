package guest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/curaious/workboard/internal/identity"
	"github.com/curaious/workboard/internal/mailer"
	"github.com/curaious/workboard/internal/perrors"
	"github.com/curaious/workboard/internal/services/activity"
	"github.com/curaious/workboard/internal/services/notification"
	"github.com/curaious/workboard/internal/services/project"
	"github.com/curaious/workboard/internal/services/user"
	"github.com/google/uuid"
)

type ProjectLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (*project.Project, error)
}

type UserLookup interface {
	GetByEmail(ctx context.Context, email string) (*user.User, error)
	GetByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*user.User, error)
}

type Mailer interface {
	Send(ctx context.Context, msg mailer.Message) (*mailer.Result, error)
}

type GuestService struct {
	repo       Repository
	projects   ProjectLookup
	users      UserLookup
	identity   *identity.Resolver
	mailer     Mailer
	activity   activity.Recorder
	notifier   notification.Notifier
	appBaseURL string
}

func NewGuestService(repo Repository, projects ProjectLookup, users UserLookup, resolver *identity.Resolver, m Mailer, recorder activity.Recorder, notifier notification.Notifier, appBaseURL string) *GuestService {
	return &GuestService{
		repo:       repo,
		projects:   projects,
		users:      users,
		identity:   resolver,
		mailer:     m,
		activity:   recorder,
		notifier:   notifier,
		appBaseURL: appBaseURL,
	}
}

// CanManageGuests is the guest management policy. The project owner, team
// admins and superadmins qualify, as does an active guest of the project
// holding the invite or admin capability. actorGuest is the actor's own guest
// row on the project, or nil.
func CanManageGuests(actor *user.User, p *project.Project, actorGuest *Guest) bool {
	if actor == nil {
		return false
	}
	if actor.IsAdmin() || actor.IsSuperAdmin() {
		return true
	}
	if p.OwnerID != nil && *p.OwnerID == actor.ID {
		return true
	}
	if actorGuest == nil || actorGuest.ProjectID != p.ID || actorGuest.Status != StatusActive {
		return false
	}
	return actorGuest.Has(CapabilityInvite) || actorGuest.Has(CapabilityAdmin)
}

// NormalizePermissions validates every capability and returns a sorted, de-duplicated set.
func NormalizePermissions(perms []Capability) ([]string, error) {
	if len(perms) == 0 {
		return nil, perrors.NewErrInvalidRequest("At least one permission is required", errors.New("permissions are empty"))
	}

	seen := make(map[Capability]bool, len(perms))
	out := make([]string, 0, len(perms))
	for _, p := range perms {
		if !p.Valid() {
			return nil, perrors.NewErrInvalidRequest("Invalid permission", fmt.Errorf("unknown capability %q", p))
		}
		if !seen[p] {
			seen[p] = true
			out = append(out, string(p))
		}
	}
	sort.Strings(out)
	return out, nil
}

// authorize resolves the actor and project and applies CanManageGuests.
func (s *GuestService) authorize(ctx context.Context, projectID uuid.UUID) (*user.User, *project.Project, error) {
	actor, err := s.identity.Current(ctx)
	if err != nil {
		return nil, nil, err
	}

	p, err := s.projects.GetByID(ctx, projectID)
	if err != nil {
		if errors.Is(err, project.ErrProjectNotFound) {
			return nil, nil, perrors.NewErrNotFound("Project not found", err)
		}
		return nil, nil, perrors.NewErrInternalServerError("Failed to get project", err)
	}

	actorGuest, err := s.repo.GetByProjectAndEmail(ctx, p.ID, actor.Email)
	if err != nil && !errors.Is(err, ErrGuestNotFound) {
		return nil, nil, perrors.NewErrInternalServerError("Failed to check guest access", err)
	}

	if !CanManageGuests(actor, p, actorGuest) {
		return nil, nil, perrors.NewErrForbidden("Not allowed to manage guests of this project", errors.New("guest management denied"))
	}

	return actor, p, nil
}

// Invite adds email as a pending guest of the project. A second invite for the
// same (project, email) pair fails with Conflict. The invitation email is best effort.
func (s *GuestService) Invite(ctx context.Context, req *InviteRequest) (*Guest, error) {
	email, err := user.NormalizeEmail(req.Email)
	if err != nil {
		return nil, perrors.NewErrInvalidRequest("Invalid email", err)
	}

	permissions, err := NormalizePermissions(req.Permissions)
	if err != nil {
		return nil, err
	}

	actor, p, err := s.authorize(ctx, req.ProjectID)
	if err != nil {
		return nil, err
	}

	if _, err := s.repo.GetByProjectAndEmail(ctx, p.ID, email); err == nil {
		return nil, perrors.NewErrConflict("Guest already invited to this project", ErrGuestAlreadyExists)
	} else if !errors.Is(err, ErrGuestNotFound) {
		return nil, perrors.NewErrInternalServerError("Failed to check existing guest", err)
	}

	g := &Guest{
		ProjectID:   p.ID,
		Email:       email,
		Permissions: permissions,
		Status:      StatusPending,
		InvitedBy:   actor.ID,
	}

	existing, err := s.users.GetByEmail(ctx, email)
	switch {
	case err == nil:
		g.UserID = &existing.ID
	case !errors.Is(err, user.ErrUserNotFound):
		return nil, perrors.NewErrInternalServerError("Failed to look up invited user", err)
	}

	created, err := s.repo.Create(ctx, g)
	if err != nil {
		if errors.Is(err, ErrGuestAlreadyExists) {
			return nil, perrors.NewErrConflict("Guest already invited to this project", err)
		}
		return nil, perrors.NewErrInternalServerError("Failed to invite guest", err)
	}

	s.sendInvitation(ctx, actor, p, created)
	if created.UserID != nil {
		s.notifyInvited(ctx, actor, p, created)
	}

	s.activity.Record(ctx, activity.Entry{
		UserID:     actor.ID,
		Action:     "invited_guest",
		EntityType: activity.EntityGuest,
		EntityID:   created.ID.String(),
		Details:    activity.GuestDetails{ProjectID: p.ID.String(), Email: created.Email, Permissions: created.Permissions},
	})

	return created, nil
}

func (s *GuestService) sendInvitation(ctx context.Context, inviter *user.User, p *project.Project, g *Guest) {
	msg := mailer.InvitationMessage(mailer.Invitation{
		To:          g.Email,
		ProjectName: p.Name,
		InviterName: inviter.DisplayName(),
		Permissions: g.Permissions,
		AcceptURL:   fmt.Sprintf("%s/invitations/%s", s.appBaseURL, g.ID),
	})

	result, err := s.mailer.Send(ctx, msg)
	if err != nil {
		slog.WarnContext(ctx, "Failed to send guest invitation", slog.String("guest_id", g.ID.String()), slog.Any("error", err))
		return
	}
	if !result.Success {
		slog.WarnContext(ctx, "Guest invitation not sent", slog.String("guest_id", g.ID.String()), slog.String("reason", result.Error))
	}
}

// notifyInvited leaves an in-app notice for invitees who already have an account.
func (s *GuestService) notifyInvited(ctx context.Context, inviter *user.User, p *project.Project, g *Guest) {
	link := fmt.Sprintf("/invitations/%s", g.ID)
	entityID := p.ID.String()
	entityType := string(activity.EntityProject)
	s.notifier.Notify(ctx, &notification.Notification{
		UserID:     *g.UserID,
		Type:       notification.TypeGuestInvited,
		Title:      fmt.Sprintf("Invitation to %s", p.Name),
		Message:    fmt.Sprintf("%s invited you to collaborate on %s", inviter.DisplayName(), p.Name),
		Link:       &link,
		EntityID:   &entityID,
		EntityType: &entityType,
	})
}

func (s *GuestService) getGuest(ctx context.Context, id uuid.UUID) (*Guest, error) {
	g, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrGuestNotFound) {
			return nil, perrors.NewErrNotFound("Guest not found", err)
		}
		return nil, perrors.NewErrInternalServerError("Failed to get guest", err)
	}
	return g, nil
}

func (s *GuestService) UpdatePermissions(ctx context.Context, id uuid.UUID, req *UpdatePermissionsRequest) (*Guest, error) {
	permissions, err := NormalizePermissions(req.Permissions)
	if err != nil {
		return nil, err
	}

	g, err := s.getGuest(ctx, id)
	if err != nil {
		return nil, err
	}

	actor, _, err := s.authorize(ctx, g.ProjectID)
	if err != nil {
		return nil, err
	}

	updated, err := s.repo.UpdatePermissions(ctx, id, permissions)
	if err != nil {
		if errors.Is(err, ErrGuestNotFound) {
			return nil, perrors.NewErrNotFound("Guest not found", err)
		}
		return nil, perrors.NewErrInternalServerError("Failed to update guest permissions", err)
	}

	s.activity.Record(ctx, activity.Entry{
		UserID:     actor.ID,
		Action:     "updated_guest_permissions",
		EntityType: activity.EntityGuest,
		EntityID:   updated.ID.String(),
		Details:    activity.GuestDetails{ProjectID: updated.ProjectID.String(), Email: updated.Email, Permissions: updated.Permissions},
	})

	return updated, nil
}

func (s *GuestService) Remove(ctx context.Context, id uuid.UUID) error {
	g, err := s.getGuest(ctx, id)
	if err != nil {
		return err
	}

	actor, _, err := s.authorize(ctx, g.ProjectID)
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, ErrGuestNotFound) {
			return perrors.NewErrNotFound("Guest not found", err)
		}
		return perrors.NewErrInternalServerError("Failed to remove guest", err)
	}

	s.activity.Record(ctx, activity.Entry{
		UserID:     actor.ID,
		Action:     "removed_guest",
		EntityType: activity.EntityGuest,
		EntityID:   g.ID.String(),
		Details:    activity.GuestDetails{ProjectID: g.ProjectID.String(), Email: g.Email},
	})

	return nil
}

// Revoke withdraws a guest's access. The row stays, so a pending invitation
// can no longer be accepted and an active guest loses its capabilities.
func (s *GuestService) Revoke(ctx context.Context, id uuid.UUID) (*Guest, error) {
	g, err := s.getGuest(ctx, id)
	if err != nil {
		return nil, err
	}

	actor, _, err := s.authorize(ctx, g.ProjectID)
	if err != nil {
		return nil, err
	}

	if g.Status == StatusRevoked {
		return g, nil
	}

	revoked, err := s.repo.Revoke(ctx, id)
	if err != nil {
		if errors.Is(err, ErrGuestNotFound) {
			return nil, perrors.NewErrNotFound("Guest not found", err)
		}
		return nil, perrors.NewErrInternalServerError("Failed to revoke guest", err)
	}

	s.activity.Record(ctx, activity.Entry{
		UserID:     actor.ID,
		Action:     "revoked_guest",
		EntityType: activity.EntityGuest,
		EntityID:   revoked.ID.String(),
		Details:    activity.GuestDetails{ProjectID: revoked.ProjectID.String(), Email: revoked.Email},
	})

	return revoked, nil
}

// Accept lets the invited user take a pending invitation.
func (s *GuestService) Accept(ctx context.Context, id uuid.UUID) (*Guest, error) {
	actor, err := s.identity.Current(ctx)
	if err != nil {
		return nil, err
	}

	g, err := s.getGuest(ctx, id)
	if err != nil {
		return nil, err
	}

	if email, _ := user.NormalizeEmail(actor.Email); email != g.Email {
		return nil, perrors.NewErrForbidden("This invitation belongs to another email", errors.New("invitation email mismatch"))
	}

	switch g.Status {
	case StatusActive:
		return g, nil
	case StatusRevoked:
		return nil, perrors.NewErrForbidden("This invitation was revoked", errors.New("invitation revoked"))
	}

	accepted, err := s.repo.Activate(ctx, id, actor.ID)
	if err != nil {
		if errors.Is(err, ErrGuestNotFound) {
			return nil, perrors.NewErrNotFound("Guest not found", err)
		}
		return nil, perrors.NewErrInternalServerError("Failed to accept invitation", err)
	}

	s.activity.Record(ctx, activity.Entry{
		UserID:     actor.ID,
		Action:     "accepted_invitation",
		EntityType: activity.EntityGuest,
		EntityID:   accepted.ID.String(),
		Details:    activity.GuestDetails{ProjectID: accepted.ProjectID.String(), Email: accepted.Email},
	})

	return accepted, nil
}

// List returns the guests of a project with their linked user, if any.
func (s *GuestService) List(ctx context.Context, projectID uuid.UUID) ([]*GuestWithUser, error) {
	if _, err := s.identity.Current(ctx); err != nil {
		return nil, err
	}

	guests, err := s.repo.ListByProject(ctx, projectID)
	if err != nil {
		return nil, perrors.NewErrInternalServerError("Failed to list guests", err)
	}

	ids := make([]uuid.UUID, 0, len(guests))
	for _, g := range guests {
		if g.UserID != nil {
			ids = append(ids, *g.UserID)
		}
	}

	users, err := s.users.GetByIDs(ctx, ids)
	if err != nil {
		return nil, perrors.NewErrInternalServerError("Failed to load users", err)
	}

	result := make([]*GuestWithUser, 0, len(guests))
	for _, g := range guests {
		item := &GuestWithUser{Guest: *g}
		if g.UserID != nil {
			item.User = users[*g.UserID]
		}
		result = append(result, item)
	}
	return result, nil
}
