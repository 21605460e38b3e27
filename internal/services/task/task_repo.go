package task

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/curaious/workboard/internal/db"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

var (
	ErrTaskNotFound           = errors.New("task not found")
	ErrSubtaskNotFound        = errors.New("subtask not found")
	ErrSubtaskVersionConflict = errors.New("subtask was modified concurrently")
	ErrDependencyNotFound     = errors.New("task dependency not found")
	ErrDependencyExists       = errors.New("task dependency already exists")
)

// Repository is the persistence contract of the task service.
type Repository interface {
	CreateTask(ctx context.Context, t *Task) (*Task, error)
	GetTask(ctx context.Context, id uuid.UUID) (*Task, error)
	// ListTasks returns the top level tasks of a project, optionally filtered by status.
	ListTasks(ctx context.Context, projectID uuid.UUID, status *Status) ([]*Task, error)
	UpdateTask(ctx context.Context, id uuid.UUID, req *UpdateTaskRequest) (*Task, error)
	// DeleteTask removes the task with its subtasks, child tasks and file rows,
	// returning the storage ids of the removed files.
	DeleteTask(ctx context.Context, id uuid.UUID) ([]string, error)

	CreateSubtask(ctx context.Context, s *Subtask) (*Subtask, error)
	GetSubtask(ctx context.Context, id uuid.UUID) (*Subtask, error)
	ListSubtasks(ctx context.Context, taskID uuid.UUID) ([]*Subtask, error)
	// SaveSubtask writes s if the stored version equals s.Version and bumps the
	// version, failing with ErrSubtaskVersionConflict otherwise.
	SaveSubtask(ctx context.Context, s *Subtask) (*Subtask, error)
	DeleteSubtask(ctx context.Context, id uuid.UUID) error

	GetTasks(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*Task, error)
	// CreateDependency fails with ErrDependencyExists when the pair is taken.
	CreateDependency(ctx context.Context, d *Dependency) (*Dependency, error)
	GetDependency(ctx context.Context, id uuid.UUID) (*Dependency, error)
	// ListDependencies returns what taskID waits on, oldest first.
	ListDependencies(ctx context.Context, taskID uuid.UUID) ([]*Dependency, error)
	// ListDependents returns the dependencies that wait on taskID, oldest first.
	ListDependents(ctx context.Context, taskID uuid.UUID) ([]*Dependency, error)
	// DependsOn reports whether from reaches to through one or more dependencies.
	DependsOn(ctx context.Context, from, to uuid.UUID) (bool, error)
	UpdateDependencyType(ctx context.Context, id uuid.UUID, t DependencyType) (*Dependency, error)
	DeleteDependency(ctx context.Context, id uuid.UUID) error
}

const dependencyPairIndex = "uq_task_dependencies_pair"

const (
	dependencyColumns = `id, task_id, depends_on_task_id, type, created_at`
	taskColumns       = `id, project_id, parent_task_id, title, description, status, priority, assignee_id, creator_id, due_date, estimated_hours, actual_hours, tags, created_at, updated_at`
	subtaskColumns    = `id, task_id, title, description, assignee_id, completed, checklist, version, created_at, updated_at`
)

type TaskRepo struct {
	db *sqlx.DB
}

func NewTaskRepo(db *sqlx.DB) *TaskRepo {
	return &TaskRepo{db: db}
}

func (r *TaskRepo) CreateTask(ctx context.Context, t *Task) (*Task, error) {
	query := `
		INSERT INTO tasks (project_id, parent_task_id, title, description, status, priority, assignee_id, creator_id, due_date, estimated_hours, tags)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING ` + taskColumns

	var created Task
	err := r.db.GetContext(ctx, &created, query,
		t.ProjectID, t.ParentTaskID, t.Title, t.Description, t.Status, t.Priority,
		t.AssigneeID, t.CreatorID, t.DueDate, t.EstimatedHours, t.Tags)
	if err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}
	return &created, nil
}

func (r *TaskRepo) GetTask(ctx context.Context, id uuid.UUID) (*Task, error) {
	var t Task
	err := r.db.GetContext(ctx, &t, `SELECT `+taskColumns+` FROM tasks WHERE id = $1`, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	return &t, nil
}

func (r *TaskRepo) ListTasks(ctx context.Context, projectID uuid.UUID, status *Status) ([]*Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE project_id = $1 AND parent_task_id IS NULL`
	args := []interface{}{projectID}
	if status != nil {
		query += ` AND status = $2`
		args = append(args, *status)
	}
	query += ` ORDER BY created_at DESC, id DESC`

	var tasks []*Task
	if err := r.db.SelectContext(ctx, &tasks, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	return tasks, nil
}

func (r *TaskRepo) UpdateTask(ctx context.Context, id uuid.UUID, req *UpdateTaskRequest) (*Task, error) {
	setParts := []string{}
	args := []interface{}{}

	set := func(column string, value any) {
		args = append(args, value)
		setParts = append(setParts, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if req.Title != nil {
		set("title", *req.Title)
	}
	if req.Description != nil {
		set("description", *req.Description)
	}
	if req.Status != nil {
		set("status", *req.Status)
	}
	if req.Priority != nil {
		set("priority", *req.Priority)
	}
	if req.AssigneeID != nil {
		set("assignee_id", *req.AssigneeID)
	}
	if req.DueDate != nil {
		set("due_date", *req.DueDate)
	}
	if req.EstimatedHours != nil {
		set("estimated_hours", *req.EstimatedHours)
	}
	if req.ActualHours != nil {
		set("actual_hours", *req.ActualHours)
	}
	if req.Tags != nil {
		set("tags", pq.StringArray(*req.Tags))
	}

	if len(setParts) == 0 {
		return r.GetTask(ctx, id)
	}

	setParts = append(setParts, "updated_at = NOW()")
	args = append(args, id)

	query := fmt.Sprintf(`UPDATE tasks SET %s WHERE id = $%d RETURNING %s`,
		strings.Join(setParts, ", "), len(args), taskColumns)

	var t Task
	if err := r.db.GetContext(ctx, &t, query, args...); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to update task: %w", err)
	}
	return &t, nil
}

func (r *TaskRepo) DeleteTask(ctx context.Context, id uuid.UUID) ([]string, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var storageIDs []string
	err = tx.SelectContext(ctx, &storageIDs, `
		SELECT storage_id FROM files
		WHERE task_id = $1 OR task_id IN (SELECT id FROM tasks WHERE parent_task_id = $1)
	`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to collect task files: %w", err)
	}

	// Child rows go through ON DELETE CASCADE.
	result, err := tx.ExecContext(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to delete task: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return nil, ErrTaskNotFound
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit task delete: %w", err)
	}
	return storageIDs, nil
}

func (r *TaskRepo) CreateSubtask(ctx context.Context, s *Subtask) (*Subtask, error) {
	query := `
		INSERT INTO subtasks (task_id, title, description, assignee_id, completed, checklist)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + subtaskColumns

	var created Subtask
	err := r.db.GetContext(ctx, &created, query, s.TaskID, s.Title, s.Description, s.AssigneeID, s.Completed, s.Checklist)
	if err != nil {
		return nil, fmt.Errorf("failed to create subtask: %w", err)
	}
	return &created, nil
}

func (r *TaskRepo) GetSubtask(ctx context.Context, id uuid.UUID) (*Subtask, error) {
	var s Subtask
	err := r.db.GetContext(ctx, &s, `SELECT `+subtaskColumns+` FROM subtasks WHERE id = $1`, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrSubtaskNotFound
		}
		return nil, fmt.Errorf("failed to get subtask: %w", err)
	}
	return &s, nil
}

func (r *TaskRepo) ListSubtasks(ctx context.Context, taskID uuid.UUID) ([]*Subtask, error) {
	var subtasks []*Subtask
	err := r.db.SelectContext(ctx, &subtasks,
		`SELECT `+subtaskColumns+` FROM subtasks WHERE task_id = $1 ORDER BY created_at, id`, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to list subtasks: %w", err)
	}
	return subtasks, nil
}

func (r *TaskRepo) SaveSubtask(ctx context.Context, s *Subtask) (*Subtask, error) {
	query := `
		UPDATE subtasks
		SET title = $1, description = $2, assignee_id = $3, completed = $4, checklist = $5,
		    version = version + 1, updated_at = NOW()
		WHERE id = $6 AND version = $7
		RETURNING ` + subtaskColumns

	var saved Subtask
	err := r.db.GetContext(ctx, &saved, query, s.Title, s.Description, s.AssigneeID, s.Completed, s.Checklist, s.ID, s.Version)
	if err == nil {
		return &saved, nil
	}
	if err != sql.ErrNoRows {
		return nil, fmt.Errorf("failed to save subtask: %w", err)
	}

	if _, err := r.GetSubtask(ctx, s.ID); err != nil {
		return nil, err
	}
	return nil, ErrSubtaskVersionConflict
}

func (r *TaskRepo) DeleteSubtask(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM subtasks WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete subtask: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrSubtaskNotFound
	}
	return nil
}

func (r *TaskRepo) GetTasks(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*Task, error) {
	result := make(map[uuid.UUID]*Task, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	query, args, err := sqlx.In(`SELECT `+taskColumns+` FROM tasks WHERE id IN (?)`, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to build task query: %w", err)
	}

	var tasks []*Task
	if err := r.db.SelectContext(ctx, &tasks, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to get tasks: %w", err)
	}
	for _, t := range tasks {
		result[t.ID] = t
	}
	return result, nil
}

func (r *TaskRepo) CreateDependency(ctx context.Context, d *Dependency) (*Dependency, error) {
	var created Dependency
	err := r.db.GetContext(ctx, &created, `
		INSERT INTO task_dependencies (task_id, depends_on_task_id, type)
		VALUES ($1, $2, $3)
		RETURNING `+dependencyColumns, d.TaskID, d.DependsOnTaskID, d.Type)
	if err != nil {
		if db.IsUniqueViolation(err, dependencyPairIndex) {
			return nil, ErrDependencyExists
		}
		return nil, fmt.Errorf("failed to create task dependency: %w", err)
	}
	return &created, nil
}

func (r *TaskRepo) GetDependency(ctx context.Context, id uuid.UUID) (*Dependency, error) {
	var d Dependency
	err := r.db.GetContext(ctx, &d, `SELECT `+dependencyColumns+` FROM task_dependencies WHERE id = $1`, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrDependencyNotFound
		}
		return nil, fmt.Errorf("failed to get task dependency: %w", err)
	}
	return &d, nil
}

func (r *TaskRepo) ListDependencies(ctx context.Context, taskID uuid.UUID) ([]*Dependency, error) {
	var deps []*Dependency
	err := r.db.SelectContext(ctx, &deps,
		`SELECT `+dependencyColumns+` FROM task_dependencies WHERE task_id = $1 ORDER BY created_at, id`, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to list task dependencies: %w", err)
	}
	return deps, nil
}

func (r *TaskRepo) ListDependents(ctx context.Context, taskID uuid.UUID) ([]*Dependency, error) {
	var deps []*Dependency
	err := r.db.SelectContext(ctx, &deps,
		`SELECT `+dependencyColumns+` FROM task_dependencies WHERE depends_on_task_id = $1 ORDER BY created_at, id`, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to list task dependents: %w", err)
	}
	return deps, nil
}

func (r *TaskRepo) DependsOn(ctx context.Context, from, to uuid.UUID) (bool, error) {
	var found bool
	err := r.db.GetContext(ctx, &found, `
		WITH RECURSIVE reachable(id) AS (
			SELECT depends_on_task_id FROM task_dependencies WHERE task_id = $1
			UNION
			SELECT d.depends_on_task_id FROM task_dependencies d JOIN reachable r ON d.task_id = r.id
		)
		SELECT EXISTS (SELECT 1 FROM reachable WHERE id = $2)
	`, from, to)
	if err != nil {
		return false, fmt.Errorf("failed to walk task dependencies: %w", err)
	}
	return found, nil
}

func (r *TaskRepo) UpdateDependencyType(ctx context.Context, id uuid.UUID, t DependencyType) (*Dependency, error) {
	var d Dependency
	err := r.db.GetContext(ctx, &d,
		`UPDATE task_dependencies SET type = $1 WHERE id = $2 RETURNING `+dependencyColumns, t, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrDependencyNotFound
		}
		return nil, fmt.Errorf("failed to update task dependency: %w", err)
	}
	return &d, nil
}

func (r *TaskRepo) DeleteDependency(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM task_dependencies WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete task dependency: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrDependencyNotFound
	}
	return nil
}
