package task

import (
	"context"
	"errors"
	"fmt"

	"github.com/curaious/workboard/internal/perrors"
	"github.com/curaious/workboard/internal/services/activity"
	"github.com/google/uuid"
)

// ListDependencies returns what a task waits on, each with the prerequisite task.
func (s *TaskService) ListDependencies(ctx context.Context, taskID uuid.UUID) ([]*DependencyWithTask, error) {
	if _, err := s.GetTask(ctx, taskID); err != nil {
		return nil, err
	}

	deps, err := s.repo.ListDependencies(ctx, taskID)
	if err != nil {
		return nil, perrors.NewErrInternalServerError("Failed to list dependencies", err)
	}
	return s.withTasks(ctx, deps, func(d *Dependency) uuid.UUID { return d.DependsOnTaskID })
}

// ListDependents returns the dependencies waiting on a task, each with the
// dependent task.
func (s *TaskService) ListDependents(ctx context.Context, taskID uuid.UUID) ([]*DependencyWithTask, error) {
	if _, err := s.GetTask(ctx, taskID); err != nil {
		return nil, err
	}

	deps, err := s.repo.ListDependents(ctx, taskID)
	if err != nil {
		return nil, perrors.NewErrInternalServerError("Failed to list dependents", err)
	}
	return s.withTasks(ctx, deps, func(d *Dependency) uuid.UUID { return d.TaskID })
}

func (s *TaskService) withTasks(ctx context.Context, deps []*Dependency, other func(*Dependency) uuid.UUID) ([]*DependencyWithTask, error) {
	ids := make([]uuid.UUID, 0, len(deps))
	for _, d := range deps {
		ids = append(ids, other(d))
	}

	tasks, err := s.repo.GetTasks(ctx, ids)
	if err != nil {
		return nil, perrors.NewErrInternalServerError("Failed to load tasks", err)
	}

	result := make([]*DependencyWithTask, 0, len(deps))
	for _, d := range deps {
		result = append(result, &DependencyWithTask{Dependency: *d, Task: tasks[other(d)]})
	}
	return result, nil
}

// AddDependency makes a task wait on another task of the same project. Type
// defaults to finish-to-start. Self references, duplicates and cycles are rejected.
func (s *TaskService) AddDependency(ctx context.Context, req *AddDependencyRequest) (*Dependency, error) {
	actor, err := s.identity.Current(ctx)
	if err != nil {
		return nil, err
	}

	depType := FinishToStart
	if req.Type != nil {
		if !req.Type.Valid() {
			return nil, perrors.NewErrInvalidRequest("Invalid dependency type", fmt.Errorf("unknown dependency type %q", *req.Type))
		}
		depType = *req.Type
	}

	if req.TaskID == req.DependsOnTaskID {
		return nil, perrors.NewErrInvalidRequest("A task cannot depend on itself", errors.New("self dependency"))
	}

	t, err := s.authorizeTask(ctx, actor, req.TaskID)
	if err != nil {
		return nil, err
	}

	prerequisite, err := s.GetTask(ctx, req.DependsOnTaskID)
	if err != nil {
		return nil, err
	}
	if prerequisite.ProjectID != t.ProjectID {
		return nil, perrors.NewErrInvalidRequest("Dependent tasks must share a project", errors.New("dependency across projects"))
	}

	cycle, err := s.repo.DependsOn(ctx, prerequisite.ID, t.ID)
	if err != nil {
		return nil, perrors.NewErrInternalServerError("Failed to check dependencies", err)
	}
	if cycle {
		return nil, perrors.NewErrInvalidRequest("Dependency would create a cycle", fmt.Errorf("task %s already depends on %s", prerequisite.ID, t.ID))
	}

	created, err := s.repo.CreateDependency(ctx, &Dependency{TaskID: t.ID, DependsOnTaskID: prerequisite.ID, Type: depType})
	if err != nil {
		if errors.Is(err, ErrDependencyExists) {
			return nil, perrors.NewErrConflict("This dependency already exists", err)
		}
		return nil, perrors.NewErrInternalServerError("Failed to add dependency", err)
	}

	s.recordDependency(ctx, actor.ID, "added_dependency", created)
	return created, nil
}

func (s *TaskService) UpdateDependency(ctx context.Context, id uuid.UUID, req *UpdateDependencyRequest) (*Dependency, error) {
	actor, err := s.identity.Current(ctx)
	if err != nil {
		return nil, err
	}

	if !req.Type.Valid() {
		return nil, perrors.NewErrInvalidRequest("Invalid dependency type", fmt.Errorf("unknown dependency type %q", req.Type))
	}

	d, err := s.getDependency(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := s.authorizeTask(ctx, actor, d.TaskID); err != nil {
		return nil, err
	}

	updated, err := s.repo.UpdateDependencyType(ctx, id, req.Type)
	if err != nil {
		if errors.Is(err, ErrDependencyNotFound) {
			return nil, perrors.NewErrNotFound("Dependency not found", err)
		}
		return nil, perrors.NewErrInternalServerError("Failed to update dependency", err)
	}

	s.recordDependency(ctx, actor.ID, "updated_dependency", updated)
	return updated, nil
}

func (s *TaskService) RemoveDependency(ctx context.Context, id uuid.UUID) error {
	actor, err := s.identity.Current(ctx)
	if err != nil {
		return err
	}

	d, err := s.getDependency(ctx, id)
	if err != nil {
		return err
	}
	if _, err := s.authorizeTask(ctx, actor, d.TaskID); err != nil {
		return err
	}

	if err := s.repo.DeleteDependency(ctx, id); err != nil {
		if errors.Is(err, ErrDependencyNotFound) {
			return perrors.NewErrNotFound("Dependency not found", err)
		}
		return perrors.NewErrInternalServerError("Failed to remove dependency", err)
	}

	s.recordDependency(ctx, actor.ID, "removed_dependency", d)
	return nil
}

func (s *TaskService) getDependency(ctx context.Context, id uuid.UUID) (*Dependency, error) {
	d, err := s.repo.GetDependency(ctx, id)
	if err != nil {
		if errors.Is(err, ErrDependencyNotFound) {
			return nil, perrors.NewErrNotFound("Dependency not found", err)
		}
		return nil, perrors.NewErrInternalServerError("Failed to get dependency", err)
	}
	return d, nil
}

func (s *TaskService) recordDependency(ctx context.Context, userID uuid.UUID, action string, d *Dependency) {
	s.activity.Record(ctx, activity.Entry{
		UserID:     userID,
		Action:     action,
		EntityType: activity.EntityDependency,
		EntityID:   d.ID.String(),
		Details: activity.DependencyDetails{
			TaskID:          d.TaskID.String(),
			DependsOnTaskID: d.DependsOnTaskID.String(),
			Type:            string(d.Type),
		},
	})
}
