package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/curaious/workboard/internal/identity"
	"github.com/curaious/workboard/internal/perrors"
	"github.com/curaious/workboard/internal/services/activity"
	"github.com/curaious/workboard/internal/services/notification"
	"github.com/curaious/workboard/internal/services/project"
	"github.com/curaious/workboard/internal/services/user"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

// checklistAttempts bounds the read-modify-write loop of checklist item edits.
const checklistAttempts = 3

// ProjectLookup applies the project edit policy, which also governs the
// tasks of a project.
type ProjectLookup interface {
	AuthorizeEdit(ctx context.Context, actor *user.User, id uuid.UUID) (*project.Project, error)
}

type ObjectDeleter interface {
	Delete(ctx context.Context, storageID string) error
}

type TaskService struct {
	repo     Repository
	projects ProjectLookup
	identity *identity.Resolver
	objects  ObjectDeleter
	activity activity.Recorder
	notifier notification.Notifier
}

func NewTaskService(repo Repository, projects ProjectLookup, resolver *identity.Resolver, objects ObjectDeleter, recorder activity.Recorder, notifier notification.Notifier) *TaskService {
	return &TaskService{
		repo:     repo,
		projects: projects,
		identity: resolver,
		objects:  objects,
		activity: recorder,
		notifier: notifier,
	}
}

// authorizeTask loads task id and checks that actor may edit its project.
func (s *TaskService) authorizeTask(ctx context.Context, actor *user.User, id uuid.UUID) (*Task, error) {
	t, err := s.GetTask(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := s.projects.AuthorizeEdit(ctx, actor, t.ProjectID); err != nil {
		return nil, err
	}
	return t, nil
}

// Create adds a task to a project the caller may edit.
func (s *TaskService) Create(ctx context.Context, req *CreateTaskRequest) (*Task, error) {
	actor, err := s.identity.Current(ctx)
	if err != nil {
		return nil, err
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, perrors.NewErrInvalidRequest("Title is required", errors.New("task title is required"))
	}

	status := StatusTodo
	if req.Status != nil {
		if !req.Status.Valid() {
			return nil, perrors.NewErrInvalidRequest("Invalid status", fmt.Errorf("unknown status %q", *req.Status))
		}
		status = *req.Status
	}

	priority := PriorityMedium
	if req.Priority != nil {
		if !req.Priority.Valid() {
			return nil, perrors.NewErrInvalidRequest("Invalid priority", fmt.Errorf("unknown priority %q", *req.Priority))
		}
		priority = *req.Priority
	}

	if _, err := s.projects.AuthorizeEdit(ctx, actor, req.ProjectID); err != nil {
		return nil, err
	}

	if req.ParentTaskID != nil {
		parent, err := s.GetTask(ctx, *req.ParentTaskID)
		if err != nil {
			return nil, err
		}
		if parent.ProjectID != req.ProjectID {
			return nil, perrors.NewErrInvalidRequest("Parent task belongs to another project", errors.New("parent task project mismatch"))
		}
		if parent.ParentTaskID != nil {
			return nil, perrors.NewErrInvalidRequest("Tasks can only be nested one level deep", errors.New("parent task is itself a child"))
		}
	}

	tags := req.Tags
	if tags == nil {
		tags = []string{}
	}

	t := &Task{
		ProjectID:      req.ProjectID,
		ParentTaskID:   req.ParentTaskID,
		Title:          title,
		Description:    req.Description,
		Status:         status,
		Priority:       priority,
		AssigneeID:     req.AssigneeID,
		DueDate:        req.DueDate,
		EstimatedHours: req.EstimatedHours,
		Tags:           pq.StringArray(tags),
		CreatorID:      &actor.ID,
	}

	created, err := s.repo.CreateTask(ctx, t)
	if err != nil {
		return nil, perrors.NewErrInternalServerError("Failed to create task", err)
	}

	s.activity.Record(ctx, activity.Entry{
		UserID:     actor.ID,
		Action:     "created_task",
		EntityType: activity.EntityTask,
		EntityID:   created.ID.String(),
		Details:    activity.TaskDetails{ProjectID: created.ProjectID.String(), Title: created.Title, Status: string(created.Status)},
	})
	s.notifyAssignee(ctx, actor, created)

	return created, nil
}

func (s *TaskService) GetTask(ctx context.Context, id uuid.UUID) (*Task, error) {
	t, err := s.repo.GetTask(ctx, id)
	if err != nil {
		if errors.Is(err, ErrTaskNotFound) {
			return nil, perrors.NewErrNotFound("Task not found", err)
		}
		return nil, perrors.NewErrInternalServerError("Failed to get task", err)
	}
	return t, nil
}

// List returns the top level tasks of a project, newest first.
func (s *TaskService) List(ctx context.Context, projectID uuid.UUID, status *Status) ([]*Task, error) {
	if status != nil && !status.Valid() {
		return nil, perrors.NewErrInvalidRequest("Invalid status", fmt.Errorf("unknown status %q", *status))
	}

	tasks, err := s.repo.ListTasks(ctx, projectID, status)
	if err != nil {
		return nil, perrors.NewErrInternalServerError("Failed to list tasks", err)
	}
	if tasks == nil {
		tasks = []*Task{}
	}
	return tasks, nil
}

func (s *TaskService) Update(ctx context.Context, id uuid.UUID, req *UpdateTaskRequest) (*Task, error) {
	actor, err := s.identity.Current(ctx)
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		trimmed := strings.TrimSpace(*req.Title)
		if trimmed == "" {
			return nil, perrors.NewErrInvalidRequest("Title cannot be empty", errors.New("title cannot be empty"))
		}
		req.Title = &trimmed
	}
	if req.Status != nil && !req.Status.Valid() {
		return nil, perrors.NewErrInvalidRequest("Invalid status", fmt.Errorf("unknown status %q", *req.Status))
	}
	if req.Priority != nil && !req.Priority.Valid() {
		return nil, perrors.NewErrInvalidRequest("Invalid priority", fmt.Errorf("unknown priority %q", *req.Priority))
	}

	existing, err := s.authorizeTask(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	t, err := s.repo.UpdateTask(ctx, id, req)
	if err != nil {
		if errors.Is(err, ErrTaskNotFound) {
			return nil, perrors.NewErrNotFound("Task not found", err)
		}
		return nil, perrors.NewErrInternalServerError("Failed to update task", err)
	}

	s.activity.Record(ctx, activity.Entry{
		UserID:     actor.ID,
		Action:     "updated_task",
		EntityType: activity.EntityTask,
		EntityID:   t.ID.String(),
		Details:    activity.TaskDetails{ProjectID: t.ProjectID.String(), Title: t.Title, Status: string(t.Status)},
	})
	if t.AssigneeID != nil && (existing.AssigneeID == nil || *existing.AssigneeID != *t.AssigneeID) {
		s.notifyAssignee(ctx, actor, t)
	}

	return t, nil
}

// Delete removes a task with its subtasks, child tasks and attached files.
// Anyone who may edit the project may delete its tasks, including files
// uploaded by others.
func (s *TaskService) Delete(ctx context.Context, id uuid.UUID) error {
	actor, err := s.identity.Current(ctx)
	if err != nil {
		return err
	}

	existing, err := s.authorizeTask(ctx, actor, id)
	if err != nil {
		return err
	}

	storageIDs, err := s.repo.DeleteTask(ctx, id)
	if err != nil {
		if errors.Is(err, ErrTaskNotFound) {
			return perrors.NewErrNotFound("Task not found", err)
		}
		return perrors.NewErrInternalServerError("Failed to delete task", err)
	}

	for _, storageID := range storageIDs {
		if err := s.objects.Delete(ctx, storageID); err != nil {
			slog.WarnContext(ctx, "Failed to delete stored object of removed task",
				slog.String("task_id", id.String()),
				slog.String("storage_id", storageID),
				slog.Any("error", err))
		}
	}

	s.activity.Record(ctx, activity.Entry{
		UserID:     actor.ID,
		Action:     "deleted_task",
		EntityType: activity.EntityTask,
		EntityID:   id.String(),
		Details:    activity.TaskDetails{ProjectID: existing.ProjectID.String(), Title: existing.Title},
	})

	return nil
}

// notifyAssignee tells the assignee of t about the assignment, unless they
// assigned the task to themselves.
func (s *TaskService) notifyAssignee(ctx context.Context, actor *user.User, t *Task) {
	if t.AssigneeID == nil || *t.AssigneeID == actor.ID {
		return
	}
	link := fmt.Sprintf("/projects/%s/tasks/%s", t.ProjectID, t.ID)
	entityID := t.ID.String()
	entityType := string(activity.EntityTask)
	s.notifier.Notify(ctx, &notification.Notification{
		UserID:     *t.AssigneeID,
		Type:       notification.TypeTaskAssigned,
		Title:      "Task assigned to you",
		Message:    fmt.Sprintf("%s assigned you %q", actor.DisplayName(), t.Title),
		Link:       &link,
		EntityID:   &entityID,
		EntityType: &entityType,
	})
}
