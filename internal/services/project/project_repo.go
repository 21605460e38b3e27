package project

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

var ErrProjectNotFound = errors.New("project not found")

// Repository is the persistence contract of the project service.
type Repository interface {
	Create(ctx context.Context, p *Project) (*Project, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Project, error)
	List(ctx context.Context, filter ListFilter) ([]*Project, error)
	Update(ctx context.Context, id uuid.UUID, req *UpdateProjectRequest) (*Project, error)
	// DeleteCascade removes the project and every child row, returning the
	// storage ids of the files that were attached to it.
	DeleteCascade(ctx context.Context, id uuid.UUID) ([]string, error)
	Stats(ctx context.Context, id uuid.UUID, now time.Time) (*ProjectStats, error)
}

const projectColumns = `id, name, description, priority, status, start_date, end_date, team_id, owner_id, color, created_at, updated_at`

// ProjectRepo handles database operations for projects
type ProjectRepo struct {
	db *sqlx.DB
}

// NewProjectRepo creates a new project repository
func NewProjectRepo(db *sqlx.DB) *ProjectRepo {
	return &ProjectRepo{db: db}
}

// Create creates a new project
func (r *ProjectRepo) Create(ctx context.Context, p *Project) (*Project, error) {
	query := `
        INSERT INTO projects (name, description, priority, status, start_date, end_date, team_id, owner_id, color)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
        RETURNING ` + projectColumns

	var project Project
	err := r.db.GetContext(ctx, &project, query,
		p.Name, p.Description, p.Priority, p.Status, p.StartDate, p.EndDate, p.TeamID, p.OwnerID, p.Color)
	if err != nil {
		return nil, fmt.Errorf("failed to create project: %w", err)
	}

	return &project, nil
}

// GetByID retrieves a project by ID
func (r *ProjectRepo) GetByID(ctx context.Context, id uuid.UUID) (*Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects WHERE id = $1`

	var project Project
	err := r.db.GetContext(ctx, &project, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrProjectNotFound
		}
		return nil, fmt.Errorf("failed to get project: %w", err)
	}

	return &project, nil
}

// List returns one page of projects, newest first, with progress computed over their tasks
func (r *ProjectRepo) List(ctx context.Context, filter ListFilter) ([]*Project, error) {
	where := []string{}
	args := []interface{}{}

	if filter.TeamID != "" {
		args = append(args, filter.TeamID)
		where = append(where, fmt.Sprintf("p.team_id = $%d", len(args)))
	}

	if filter.After != nil {
		args = append(args, filter.After.CreatedAt, filter.After.ID)
		where = append(where, fmt.Sprintf("(p.created_at, p.id) < ($%d, $%d)", len(args)-1, len(args)))
	}

	whereClause := ""
	if len(where) > 0 {
		whereClause = "WHERE " + strings.Join(where, " AND ")
	}

	args = append(args, filter.Limit)
	query := fmt.Sprintf(`
        SELECT p.id, p.name, p.description, p.priority, p.status, p.start_date, p.end_date,
               p.team_id, p.owner_id, p.color, p.created_at, p.updated_at,
               COALESCE(ROUND(100.0 * t.done / NULLIF(t.total, 0)), 0)::int AS progress
        FROM projects p
        LEFT JOIN LATERAL (
            SELECT COUNT(*) AS total, COUNT(*) FILTER (WHERE status = 'done') AS done
            FROM tasks WHERE project_id = p.id
        ) t ON TRUE
        %s
        ORDER BY p.created_at DESC, p.id DESC
        LIMIT $%d
    `, whereClause, len(args))

	var projects []*Project
	err := r.db.SelectContext(ctx, &projects, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}

	return projects, nil
}

// Update updates project fields
func (r *ProjectRepo) Update(ctx context.Context, id uuid.UUID, req *UpdateProjectRequest) (*Project, error) {
	setParts := []string{}
	args := []interface{}{}

	set := func(column string, value any) {
		args = append(args, value)
		setParts = append(setParts, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if req.Name != nil {
		set("name", *req.Name)
	}
	if req.Description != nil {
		set("description", *req.Description)
	}
	if req.Priority != nil {
		set("priority", *req.Priority)
	}
	if req.Status != nil {
		set("status", *req.Status)
	}
	if req.StartDate != nil {
		set("start_date", *req.StartDate)
	}
	if req.EndDate != nil {
		set("end_date", *req.EndDate)
	}
	if req.Color != nil {
		set("color", *req.Color)
	}

	if len(setParts) == 0 {
		return r.GetByID(ctx, id)
	}

	setParts = append(setParts, "updated_at = NOW()")
	args = append(args, id)

	query := fmt.Sprintf(`
        UPDATE projects
        SET %s
        WHERE id = $%d
        RETURNING %s
    `, strings.Join(setParts, ", "), len(args), projectColumns)

	var project Project
	err := r.db.GetContext(ctx, &project, query, args...)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrProjectNotFound
		}
		return nil, fmt.Errorf("failed to update project: %w", err)
	}

	return &project, nil
}

// DeleteCascade removes a project and its children in one transaction
func (r *ProjectRepo) DeleteCascade(ctx context.Context, id uuid.UUID) ([]string, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var storageIDs []string
	err = tx.SelectContext(ctx, &storageIDs, `
        SELECT f.storage_id FROM files f
        WHERE f.project_id = $1
           OR f.task_id IN (SELECT id FROM tasks WHERE project_id = $1)
    `, id)
	if err != nil {
		return nil, fmt.Errorf("failed to collect project files: %w", err)
	}

	statements := []string{
		`DELETE FROM files WHERE project_id = $1 OR task_id IN (SELECT id FROM tasks WHERE project_id = $1)`,
		`DELETE FROM project_comments WHERE project_id = $1`,
		`DELETE FROM project_guests WHERE project_id = $1`,
		`DELETE FROM approvals WHERE project_id = $1 OR task_id IN (SELECT id FROM tasks WHERE project_id = $1)`,
		`DELETE FROM subtasks WHERE task_id IN (SELECT id FROM tasks WHERE project_id = $1)`,
		`DELETE FROM tasks WHERE project_id = $1`,
	}
	for _, stmt := range statements {
		if _, err := tx.ExecContext(ctx, stmt, id); err != nil {
			return nil, fmt.Errorf("failed to delete project children: %w", err)
		}
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM projects WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to delete project: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return nil, ErrProjectNotFound
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit project delete: %w", err)
	}

	return storageIDs, nil
}

// Stats summarizes the tasks of one project
func (r *ProjectRepo) Stats(ctx context.Context, id uuid.UUID, now time.Time) (*ProjectStats, error) {
	query := `
        SELECT
            COUNT(*) AS total_tasks,
            COUNT(*) FILTER (WHERE status = 'in_progress') AS in_progress,
            COUNT(*) FILTER (WHERE status = 'done') AS done,
            COUNT(*) FILTER (WHERE status <> 'done' AND due_date IS NOT NULL AND due_date < $2) AS overdue
        FROM tasks
        WHERE project_id = $1
    `

	var stats ProjectStats
	if err := r.db.GetContext(ctx, &stats, query, id, now); err != nil {
		return nil, fmt.Errorf("failed to get project stats: %w", err)
	}

	return &stats, nil
}
