package activity

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/curaious/workboard/internal/identity"
	"github.com/curaious/workboard/internal/perrors"
	"github.com/curaious/workboard/internal/services/user"
	"github.com/google/uuid"
)

const (
	DefaultLogLimit    = 50
	MaxLogLimit        = 500
	PrivilegedLogLimit = 100
	unknownUserName    = "Unknown User"
)

type UserLookup interface {
	GetByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*user.User, error)
}

// Recorder is the side channel other services write activity through.
type Recorder interface {
	Record(ctx context.Context, entry Entry)
}

type ActivityService struct {
	repo     Repository
	users    UserLookup
	identity *identity.Resolver
	now      func() time.Time
}

func NewActivityService(repo Repository, users UserLookup, resolver *identity.Resolver) *ActivityService {
	return &ActivityService{
		repo:     repo,
		users:    users,
		identity: resolver,
		now:      time.Now,
	}
}

// Record queues entry on the outbox. Failures are logged and never surface to
// the caller; the relay delivers queued rows at least once.
func (s *ActivityService) Record(ctx context.Context, entry Entry) {
	if err := s.repo.Enqueue(ctx, entry.ToLog()); err != nil {
		slog.WarnContext(ctx, "Failed to record activity",
			slog.String("action", entry.Action),
			slog.String("entity_type", string(entry.EntityType)),
			slog.Any("error", err))
	}
}

// LogActivity writes a log row directly for the acting user.
func (s *ActivityService) LogActivity(ctx context.Context, req *LogActivityRequest) (*Log, error) {
	actor, err := s.identity.Current(ctx)
	if err != nil {
		return nil, err
	}

	action := strings.TrimSpace(req.Action)
	if action == "" {
		return nil, perrors.NewErrInvalidRequest("Action is required", errors.New("action is required"))
	}
	if strings.TrimSpace(string(req.EntityType)) == "" {
		return nil, perrors.NewErrInvalidRequest("Entity type is required", errors.New("entity type is required"))
	}

	entry := Entry{UserID: actor.ID, Action: action, EntityType: req.EntityType}
	if req.EntityID != nil {
		entry.EntityID = *req.EntityID
	}
	if len(req.Details) > 0 {
		entry.Details = CustomDetails(req.Details)
	}

	l := entry.ToLog()
	if err := s.repo.Insert(ctx, l); err != nil {
		return nil, perrors.NewErrInternalServerError("Failed to log activity", err)
	}
	return l, nil
}

// GetStats aggregates counts across the workspace. Anonymous callers get nil.
func (s *ActivityService) GetStats(ctx context.Context) (*Stats, error) {
	actor, err := s.identity.Optional(ctx)
	if err != nil {
		return nil, err
	}
	if actor == nil {
		return nil, nil
	}

	counts, err := s.repo.Counts(ctx, s.now())
	if err != nil {
		return nil, perrors.NewErrInternalServerError("Failed to compute stats", err)
	}

	return &Stats{
		Counts:         *counts,
		CompletionRate: CompletionRate(counts.CompletedTasks, counts.TotalTasks),
	}, nil
}

// GetLogs returns the latest limit rows for admins and superadmins, everyone
// else receives an empty list.
func (s *ActivityService) GetLogs(ctx context.Context, limit int) ([]*LogWithUser, error) {
	actor, err := s.identity.Optional(ctx)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && !actor.IsSuperAdmin() {
		return []*LogWithUser{}, nil
	}

	if limit <= 0 {
		limit = DefaultLogLimit
	}
	if limit > MaxLogLimit {
		limit = MaxLogLimit
	}

	return s.recent(ctx, limit)
}

// List is the privileged bulk listing, superadmins only. Other callers get an
// empty list rather than an error.
func (s *ActivityService) List(ctx context.Context) ([]*LogWithUser, error) {
	actor, err := s.identity.Optional(ctx)
	if err != nil {
		return nil, err
	}
	if !actor.IsSuperAdmin() {
		return []*LogWithUser{}, nil
	}

	return s.recent(ctx, PrivilegedLogLimit)
}

func (s *ActivityService) recent(ctx context.Context, limit int) ([]*LogWithUser, error) {
	logs, err := s.repo.Recent(ctx, limit)
	if err != nil {
		return nil, perrors.NewErrInternalServerError("Failed to list activity logs", err)
	}

	ids := make([]uuid.UUID, 0, len(logs))
	seen := make(map[uuid.UUID]bool, len(logs))
	for _, l := range logs {
		if !seen[l.UserID] {
			seen[l.UserID] = true
			ids = append(ids, l.UserID)
		}
	}

	users, err := s.users.GetByIDs(ctx, ids)
	if err != nil {
		return nil, perrors.NewErrInternalServerError("Failed to load users", err)
	}

	result := make([]*LogWithUser, 0, len(logs))
	for _, l := range logs {
		item := &LogWithUser{Log: *l, UserName: unknownUserName}
		if u, ok := users[l.UserID]; ok {
			item.UserName = u.DisplayName()
			item.UserAvatar = u.Avatar
		}
		result = append(result, item)
	}
	return result, nil
}
