package memstore

import (
	"context"
	"fmt"
	"sort"

	"github.com/curaious/workboard/internal/services/task"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

type TaskRepo struct{ s *Store }

var _ task.Repository = (*TaskRepo)(nil)

func cloneTask(t *task.Task) *task.Task {
	c := *t
	c.ParentTaskID = ptrCopy(t.ParentTaskID)
	c.Description = ptrCopy(t.Description)
	c.AssigneeID = ptrCopy(t.AssigneeID)
	c.CreatorID = ptrCopy(t.CreatorID)
	c.DueDate = ptrCopy(t.DueDate)
	c.EstimatedHours = ptrCopy(t.EstimatedHours)
	c.ActualHours = ptrCopy(t.ActualHours)
	c.Tags = append(pq.StringArray{}, t.Tags...)
	return &c
}

func cloneSubtask(st *task.Subtask) *task.Subtask {
	c := *st
	c.Description = ptrCopy(st.Description)
	c.AssigneeID = ptrCopy(st.AssigneeID)
	c.Checklist = st.Checklist.Clone()
	return &c
}

func (r *TaskRepo) CreateTask(_ context.Context, t *task.Task) (*task.Task, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.projects[t.ProjectID]; !ok {
		return nil, errForeignKey("tasks.project_id")
	}

	created := cloneTask(t)
	created.ID = uuid.New()
	created.CreatedAt = r.s.tick()
	created.UpdatedAt = created.CreatedAt
	r.s.tasks[created.ID] = created
	return cloneTask(created), nil
}

func (r *TaskRepo) GetTask(_ context.Context, id uuid.UUID) (*task.Task, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	t, ok := r.s.tasks[id]
	if !ok {
		return nil, task.ErrTaskNotFound
	}
	return cloneTask(t), nil
}

func (r *TaskRepo) ListTasks(_ context.Context, projectID uuid.UUID, status *task.Status) ([]*task.Task, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var result []*task.Task
	for _, t := range r.s.tasks {
		if t.ProjectID != projectID || t.ParentTaskID != nil {
			continue
		}
		if status != nil && t.Status != *status {
			continue
		}
		result = append(result, cloneTask(t))
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID.String() > result[j].ID.String()
	})
	return result, nil
}

func (r *TaskRepo) UpdateTask(_ context.Context, id uuid.UUID, req *task.UpdateTaskRequest) (*task.Task, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	t, ok := r.s.tasks[id]
	if !ok {
		return nil, task.ErrTaskNotFound
	}

	changed := false
	if req.Title != nil {
		t.Title, changed = *req.Title, true
	}
	if req.Description != nil {
		t.Description, changed = ptrCopy(req.Description), true
	}
	if req.Status != nil {
		t.Status, changed = *req.Status, true
	}
	if req.Priority != nil {
		t.Priority, changed = *req.Priority, true
	}
	if req.AssigneeID != nil {
		t.AssigneeID, changed = ptrCopy(req.AssigneeID), true
	}
	if req.DueDate != nil {
		t.DueDate, changed = ptrCopy(req.DueDate), true
	}
	if req.EstimatedHours != nil {
		t.EstimatedHours, changed = ptrCopy(req.EstimatedHours), true
	}
	if req.ActualHours != nil {
		t.ActualHours, changed = ptrCopy(req.ActualHours), true
	}
	if req.Tags != nil {
		t.Tags, changed = append(pq.StringArray{}, (*req.Tags)...), true
	}
	if changed {
		t.UpdatedAt = r.s.tick()
	}
	return cloneTask(t), nil
}

func (r *TaskRepo) DeleteTask(_ context.Context, id uuid.UUID) ([]string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.tasks[id]; !ok {
		return nil, task.ErrTaskNotFound
	}
	return r.s.deleteTaskLocked(id), nil
}

func (r *TaskRepo) CreateSubtask(_ context.Context, st *task.Subtask) (*task.Subtask, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.tasks[st.TaskID]; !ok {
		return nil, errForeignKey("subtasks.task_id")
	}

	created := cloneSubtask(st)
	created.ID = uuid.New()
	if created.Checklist == nil {
		created.Checklist = task.Checklist{}
	}
	created.Version = 1
	created.CreatedAt = r.s.tick()
	created.UpdatedAt = created.CreatedAt
	r.s.subtasks[created.ID] = created
	return cloneSubtask(created), nil
}

func (r *TaskRepo) GetSubtask(_ context.Context, id uuid.UUID) (*task.Subtask, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	st, ok := r.s.subtasks[id]
	if !ok {
		return nil, task.ErrSubtaskNotFound
	}
	return cloneSubtask(st), nil
}

func (r *TaskRepo) ListSubtasks(_ context.Context, taskID uuid.UUID) ([]*task.Subtask, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var result []*task.Subtask
	for _, st := range r.s.subtasks {
		if st.TaskID == taskID {
			result = append(result, cloneSubtask(st))
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

func (r *TaskRepo) SaveSubtask(_ context.Context, st *task.Subtask) (*task.Subtask, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	stored, ok := r.s.subtasks[st.ID]
	if !ok {
		return nil, task.ErrSubtaskNotFound
	}
	if stored.Version != st.Version {
		return nil, task.ErrSubtaskVersionConflict
	}

	saved := cloneSubtask(st)
	saved.TaskID = stored.TaskID
	saved.CreatedAt = stored.CreatedAt
	saved.Version = stored.Version + 1
	saved.UpdatedAt = r.s.tick()
	r.s.subtasks[st.ID] = saved
	return cloneSubtask(saved), nil
}

func (r *TaskRepo) DeleteSubtask(_ context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.subtasks[id]; !ok {
		return task.ErrSubtaskNotFound
	}
	delete(r.s.subtasks, id)
	return nil
}

func (r *TaskRepo) GetTasks(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]*task.Task, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	result := make(map[uuid.UUID]*task.Task, len(ids))
	for _, id := range ids {
		if t, ok := r.s.tasks[id]; ok {
			result[id] = cloneTask(t)
		}
	}
	return result, nil
}

func cloneDependency(d *task.Dependency) *task.Dependency {
	c := *d
	return &c
}

func (r *TaskRepo) CreateDependency(_ context.Context, d *task.Dependency) (*task.Dependency, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.tasks[d.TaskID]; !ok {
		return nil, errForeignKey("task_dependencies.task_id")
	}
	if _, ok := r.s.tasks[d.DependsOnTaskID]; !ok {
		return nil, errForeignKey("task_dependencies.depends_on_task_id")
	}
	if d.TaskID == d.DependsOnTaskID {
		return nil, fmt.Errorf("check violation on task_dependencies: task depends on itself")
	}
	for _, existing := range r.s.deps {
		if existing.TaskID == d.TaskID && existing.DependsOnTaskID == d.DependsOnTaskID {
			return nil, task.ErrDependencyExists
		}
	}

	created := cloneDependency(d)
	created.ID = uuid.New()
	created.CreatedAt = r.s.tick()
	r.s.deps[created.ID] = created
	return cloneDependency(created), nil
}

func (r *TaskRepo) GetDependency(_ context.Context, id uuid.UUID) (*task.Dependency, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	d, ok := r.s.deps[id]
	if !ok {
		return nil, task.ErrDependencyNotFound
	}
	return cloneDependency(d), nil
}

func (r *TaskRepo) ListDependencies(_ context.Context, taskID uuid.UUID) ([]*task.Dependency, error) {
	return r.listDependencies(func(d *task.Dependency) bool { return d.TaskID == taskID }), nil
}

func (r *TaskRepo) ListDependents(_ context.Context, taskID uuid.UUID) ([]*task.Dependency, error) {
	return r.listDependencies(func(d *task.Dependency) bool { return d.DependsOnTaskID == taskID }), nil
}

func (r *TaskRepo) listDependencies(match func(*task.Dependency) bool) []*task.Dependency {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var result []*task.Dependency
	for _, d := range r.s.deps {
		if match(d) {
			result = append(result, cloneDependency(d))
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.Before(result[j].CreatedAt)
		}
		return result[i].ID.String() < result[j].ID.String()
	})
	return result
}

func (r *TaskRepo) DependsOn(_ context.Context, from, to uuid.UUID) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	seen := map[uuid.UUID]bool{from: true}
	queue := []uuid.UUID{from}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, d := range r.s.deps {
			if d.TaskID != current || seen[d.DependsOnTaskID] {
				continue
			}
			if d.DependsOnTaskID == to {
				return true, nil
			}
			seen[d.DependsOnTaskID] = true
			queue = append(queue, d.DependsOnTaskID)
		}
	}
	return false, nil
}

func (r *TaskRepo) UpdateDependencyType(_ context.Context, id uuid.UUID, t task.DependencyType) (*task.Dependency, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	d, ok := r.s.deps[id]
	if !ok {
		return nil, task.ErrDependencyNotFound
	}
	d.Type = t
	return cloneDependency(d), nil
}

func (r *TaskRepo) DeleteDependency(_ context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.deps[id]; !ok {
		return task.ErrDependencyNotFound
	}
	delete(r.s.deps, id)
	return nil
}
