package comment

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/curaious/workboard/internal/identity"
	"github.com/curaious/workboard/internal/perrors"
	"github.com/curaious/workboard/internal/services/activity"
	"github.com/curaious/workboard/internal/services/notification"
	"github.com/curaious/workboard/internal/services/task"
	"github.com/curaious/workboard/internal/services/user"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

// TaskLookup resolves a task, reporting a missing one as NotFound.
type TaskLookup interface {
	GetTask(ctx context.Context, id uuid.UUID) (*task.Task, error)
}

// TaskCommentService runs task discussions under the same author and admin
// rules as project comments.
type TaskCommentService struct {
	repo     TaskCommentRepository
	tasks    TaskLookup
	users    UserLookup
	identity *identity.Resolver
	activity activity.Recorder
	notifier notification.Notifier
}

func NewTaskCommentService(repo TaskCommentRepository, tasks TaskLookup, users UserLookup, resolver *identity.Resolver, recorder activity.Recorder, notifier notification.Notifier) *TaskCommentService {
	return &TaskCommentService{
		repo:     repo,
		tasks:    tasks,
		users:    users,
		identity: resolver,
		activity: recorder,
		notifier: notifier,
	}
}

// List returns the comments of a task, oldest first, each with its author.
func (s *TaskCommentService) List(ctx context.Context, taskID uuid.UUID) ([]*TaskCommentWithUser, error) {
	if _, err := s.tasks.GetTask(ctx, taskID); err != nil {
		return nil, err
	}

	comments, err := s.repo.ListByTask(ctx, taskID)
	if err != nil {
		return nil, perrors.NewErrInternalServerError("Failed to list task comments", err)
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

	result := make([]*TaskCommentWithUser, 0, len(comments))
	for _, c := range comments {
		result = append(result, &TaskCommentWithUser{TaskComment: *c, User: users[c.UserID]})
	}
	return result, nil
}

func (s *TaskCommentService) Create(ctx context.Context, req *CreateTaskCommentRequest) (*TaskComment, error) {
	actor, err := s.identity.Current(ctx)
	if err != nil {
		return nil, err
	}

	content := strings.TrimSpace(req.Content)
	if content == "" {
		return nil, perrors.NewErrInvalidRequest("Content is required", errors.New("comment content is required"))
	}

	t, err := s.tasks.GetTask(ctx, req.TaskID)
	if err != nil {
		return nil, err
	}

	var parent *TaskComment
	if req.ParentCommentID != nil {
		parent, err = s.get(ctx, *req.ParentCommentID)
		if err != nil {
			return nil, err
		}
		if parent.TaskID != req.TaskID {
			return nil, perrors.NewErrInvalidRequest("Parent comment belongs to another task", errors.New("parent comment task mismatch"))
		}
	}

	files := req.Files
	if files == nil {
		files = []string{}
	}

	created, err := s.repo.Create(ctx, &TaskComment{
		TaskID:          req.TaskID,
		UserID:          actor.ID,
		Content:         content,
		ParentCommentID: req.ParentCommentID,
		Files:           pq.StringArray(files),
	})
	if err != nil {
		return nil, perrors.NewErrInternalServerError("Failed to create comment", err)
	}

	s.record(ctx, actor.ID, "created_task_comment", t, created)
	s.notifyParticipants(ctx, actor, t, parent, created)
	return created, nil
}

func (s *TaskCommentService) Update(ctx context.Context, id uuid.UUID, req *UpdateCommentRequest) (*TaskComment, error) {
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
	if !isAuthor(actor, existing.UserID) {
		return nil, perrors.NewErrForbidden("Only the author can edit this comment", errors.New("not the comment author"))
	}

	updated, err := s.repo.UpdateContent(ctx, id, content)
	if err != nil {
		if errors.Is(err, ErrTaskCommentNotFound) {
			return nil, perrors.NewErrNotFound("Comment not found", err)
		}
		return nil, perrors.NewErrInternalServerError("Failed to update comment", err)
	}

	s.record(ctx, actor.ID, "updated_task_comment", nil, updated)
	return updated, nil
}

// Delete removes a task comment for its author or a team admin. Replies stay.
func (s *TaskCommentService) Delete(ctx context.Context, id uuid.UUID) error {
	actor, err := s.identity.Current(ctx)
	if err != nil {
		return err
	}

	existing, err := s.get(ctx, id)
	if err != nil {
		return err
	}
	if !isAuthorOrAdmin(actor, existing.UserID) {
		return perrors.NewErrForbidden("Not authorized to delete this comment", errors.New("not the author or an admin"))
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, ErrTaskCommentNotFound) {
			return perrors.NewErrNotFound("Comment not found", err)
		}
		return perrors.NewErrInternalServerError("Failed to delete comment", err)
	}

	s.record(ctx, actor.ID, "deleted_task_comment", nil, existing)
	return nil
}

func (s *TaskCommentService) get(ctx context.Context, id uuid.UUID) (*TaskComment, error) {
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrTaskCommentNotFound) {
			return nil, perrors.NewErrNotFound("Comment not found", err)
		}
		return nil, perrors.NewErrInternalServerError("Failed to get comment", err)
	}
	return c, nil
}

// notifyParticipants tells the task assignee, or its creator when unassigned,
// about a new comment, and the parent author about a reply. The actor is never
// notified and nobody is notified twice.
func (s *TaskCommentService) notifyParticipants(ctx context.Context, actor *user.User, t *task.Task, parent *TaskComment, c *TaskComment) {
	notified := map[uuid.UUID]bool{actor.ID: true}
	link := fmt.Sprintf("/projects/%s/tasks/%s", t.ProjectID, t.ID)
	entityID := c.ID.String()
	entityType := "task_comment"

	send := func(to uuid.UUID, typ notification.Type, title string) {
		if notified[to] {
			return
		}
		notified[to] = true
		s.notifier.Notify(ctx, &notification.Notification{
			UserID:     to,
			Type:       typ,
			Title:      title,
			Message:    fmt.Sprintf("%s on %q: %s", actor.DisplayName(), t.Title, excerpt(c.Content)),
			Link:       &link,
			EntityID:   &entityID,
			EntityType: &entityType,
		})
	}

	if parent != nil {
		send(parent.UserID, notification.TypeCommentReply, "New reply to your comment")
	}
	switch {
	case t.AssigneeID != nil:
		send(*t.AssigneeID, notification.TypeTaskComment, "New comment on your task")
	case t.CreatorID != nil:
		send(*t.CreatorID, notification.TypeTaskComment, "New comment on your task")
	}
}

const excerptLength = 120

func excerpt(content string) string {
	runes := []rune(content)
	if len(runes) <= excerptLength {
		return content
	}
	return string(runes[:excerptLength]) + "..."
}

func (s *TaskCommentService) record(ctx context.Context, userID uuid.UUID, action string, t *task.Task, c *TaskComment) {
	details := activity.CommentDetails{TaskID: c.TaskID.String()}
	if t != nil {
		details.ProjectID = t.ProjectID.String()
	}
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
