package comment

import (
	"context"
	"errors"
	"strings"

	"github.com/curaious/workboard/internal/identity"
	"github.com/curaious/workboard/internal/perrors"
	"github.com/curaious/workboard/internal/services/activity"
	"github.com/curaious/workboard/internal/services/project"
	"github.com/curaious/workboard/internal/services/user"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

type ProjectLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (*project.Project, error)
}

type UserLookup interface {
	GetByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*user.User, error)
}

type CommentService struct {
	repo     Repository
	projects ProjectLookup
	users    UserLookup
	identity *identity.Resolver
	activity activity.Recorder
}

func NewCommentService(repo Repository, projects ProjectLookup, users UserLookup, resolver *identity.Resolver, recorder activity.Recorder) *CommentService {
	return &CommentService{
		repo:     repo,
		projects: projects,
		users:    users,
		identity: resolver,
		activity: recorder,
	}
}

// CanDelete is the comment deletion policy: the author or a team admin.
// Project level permissions are not consulted.
func CanDelete(actor *user.User, c *Comment) bool {
	return isAuthorOrAdmin(actor, c.UserID)
}

// CanEdit allows only the author to change the content of a comment.
func CanEdit(actor *user.User, c *Comment) bool {
	return isAuthor(actor, c.UserID)
}

func isAuthor(actor *user.User, authorID uuid.UUID) bool {
	return actor != nil && authorID == actor.ID
}

func isAuthorOrAdmin(actor *user.User, authorID uuid.UUID) bool {
	return isAuthor(actor, authorID) || (actor != nil && actor.IsAdmin())
}

// List returns the flat comment list of a project, newest first, each with its author.
func (s *CommentService) List(ctx context.Context, projectID uuid.UUID) ([]*CommentWithUser, error) {
	comments, err := s.repo.ListByProject(ctx, projectID)
	if err != nil {
		return nil, perrors.NewErrInternalServerError("Failed to list comments", err)
	}

	ids := make([]uuid.UUID, 0, len(comments))
	seen := make(map[uuid.UUID]bool, len(comments))
	for _, c := range comments {
		if !seen[c.UserID] {
			seen[c.UserID] = true
			ids = append(ids, c.UserID)
		}
	}

	users, err := s.users.GetByIDs(ctx, ids)
	if err != nil {
		return nil, perrors.NewErrInternalServerError("Failed to load comment authors", err)
	}

	result := make([]*CommentWithUser, 0, len(comments))
	for _, c := range comments {
		result = append(result, &CommentWithUser{Comment: *c, User: users[c.UserID]})
	}
	return result, nil
}

func (s *CommentService) Create(ctx context.Context, req *CreateCommentRequest) (*Comment, error) {
	actor, err := s.identity.Current(ctx)
	if err != nil {
		return nil, err
	}

	content := strings.TrimSpace(req.Content)
	if content == "" {
		return nil, perrors.NewErrInvalidRequest("Content is required", errors.New("comment content is required"))
	}

	if _, err := s.projects.GetByID(ctx, req.ProjectID); err != nil {
		if errors.Is(err, project.ErrProjectNotFound) {
			return nil, perrors.NewErrNotFound("Project not found", err)
		}
		return nil, perrors.NewErrInternalServerError("Failed to get project", err)
	}

	if req.ParentCommentID != nil {
		parent, err := s.get(ctx, *req.ParentCommentID)
		if err != nil {
			return nil, err
		}
		if parent.ProjectID != req.ProjectID {
			return nil, perrors.NewErrInvalidRequest("Parent comment belongs to another project", errors.New("parent comment project mismatch"))
		}
	}

	files := req.Files
	if files == nil {
		files = []string{}
	}

	created, err := s.repo.Create(ctx, &Comment{
		ProjectID:       req.ProjectID,
		UserID:          actor.ID,
		Content:         content,
		ParentCommentID: req.ParentCommentID,
		Files:           pq.StringArray(files),
	})
	if err != nil {
		return nil, perrors.NewErrInternalServerError("Failed to create comment", err)
	}

	s.record(ctx, actor.ID, "created_comment", created)
	return created, nil
}

func (s *CommentService) Update(ctx context.Context, id uuid.UUID, req *UpdateCommentRequest) (*Comment, error) {
	actor, err := s.identity.Current(ctx)
	if err != nil {
		return nil, err
	}

	content := strings.TrimSpace(req.Content)
	if content == "" {
		return nil, perrors.NewErrInvalidRequest("Content is required", errors.New("comment content is required"))
	}

	existing, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}

	if !CanEdit(actor, existing) {
		return nil, perrors.NewErrForbidden("Only the author can edit this comment", errors.New("not the comment author"))
	}

	updated, err := s.repo.UpdateContent(ctx, id, content)
	if err != nil {
		if errors.Is(err, ErrCommentNotFound) {
			return nil, perrors.NewErrNotFound("Comment not found", err)
		}
		return nil, perrors.NewErrInternalServerError("Failed to update comment", err)
	}

	s.record(ctx, actor.ID, "updated_comment", updated)
	return updated, nil
}

// Delete removes a comment when CanDelete allows it. Replies by anyone stay
// in the list without a parent.
func (s *CommentService) Delete(ctx context.Context, id uuid.UUID) error {
	actor, err := s.identity.Current(ctx)
	if err != nil {
		return err
	}

	existing, err := s.get(ctx, id)
	if err != nil {
		return err
	}

	if !CanDelete(actor, existing) {
		return perrors.NewErrForbidden("Not authorized to delete this comment", errors.New("not the author or an admin"))
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, ErrCommentNotFound) {
			return perrors.NewErrNotFound("Comment not found", err)
		}
		return perrors.NewErrInternalServerError("Failed to delete comment", err)
	}

	s.record(ctx, actor.ID, "deleted_comment", existing)
	return nil
}

func (s *CommentService) get(ctx context.Context, id uuid.UUID) (*Comment, error) {
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrCommentNotFound) {
			return nil, perrors.NewErrNotFound("Comment not found", err)
		}
		return nil, perrors.NewErrInternalServerError("Failed to get comment", err)
	}
	return c, nil
}

func (s *CommentService) record(ctx context.Context, userID uuid.UUID, action string, c *Comment) {
	details := activity.CommentDetails{ProjectID: c.ProjectID.String()}
	if c.ParentCommentID != nil {
		details.ParentCommentID = c.ParentCommentID.String()
	}
	s.activity.Record(ctx, activity.Entry{
		UserID:     userID,
		Action:     action,
		EntityType: activity.EntityComment,
		EntityID:   c.ID.String(),
		Details:    details,
	})
}
