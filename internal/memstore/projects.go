package memstore

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/curaious/workboard/internal/services/project"
	"github.com/curaious/workboard/internal/services/task"
	"github.com/google/uuid"
)

type ProjectRepo struct{ s *Store }

var _ project.Repository = (*ProjectRepo)(nil)

func cloneProject(p *project.Project) *project.Project {
	c := *p
	c.Description = ptrCopy(p.Description)
	c.StartDate = ptrCopy(p.StartDate)
	c.EndDate = ptrCopy(p.EndDate)
	c.OwnerID = ptrCopy(p.OwnerID)
	c.Color = ptrCopy(p.Color)
	return &c
}

func (r *ProjectRepo) Create(_ context.Context, p *project.Project) (*project.Project, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	created := cloneProject(p)
	created.ID = uuid.New()
	created.CreatedAt = r.s.tick()
	created.UpdatedAt = created.CreatedAt
	created.Progress = 0
	r.s.projects[created.ID] = created
	return cloneProject(created), nil
}

func (r *ProjectRepo) GetByID(_ context.Context, id uuid.UUID) (*project.Project, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	p, ok := r.s.projects[id]
	if !ok {
		return nil, project.ErrProjectNotFound
	}
	return cloneProject(p), nil
}

func (r *ProjectRepo) List(_ context.Context, filter project.ListFilter) ([]*project.Project, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var rows []*project.Project
	for _, p := range r.s.projects {
		if filter.TeamID != "" && p.TeamID != filter.TeamID {
			continue
		}
		if filter.After != nil && !filter.After.Before(p) {
			continue
		}
		rows = append(rows, p)
	}

	sort.Slice(rows, func(i, j int) bool {
		if !rows[i].CreatedAt.Equal(rows[j].CreatedAt) {
			return rows[i].CreatedAt.After(rows[j].CreatedAt)
		}
		return rows[i].ID.String() > rows[j].ID.String()
	})
	if filter.Limit > 0 && len(rows) > filter.Limit {
		rows = rows[:filter.Limit]
	}

	result := make([]*project.Project, 0, len(rows))
	for _, p := range rows {
		c := cloneProject(p)
		c.Progress = r.progressLocked(p.ID)
		result = append(result, c)
	}
	return result, nil
}

func (r *ProjectRepo) progressLocked(projectID uuid.UUID) int {
	total, done := 0, 0
	for _, t := range r.s.tasks {
		if t.ProjectID != projectID {
			continue
		}
		total++
		if t.Status == task.StatusDone {
			done++
		}
	}
	if total == 0 {
		return 0
	}
	return int(math.Round(100 * float64(done) / float64(total)))
}

func (r *ProjectRepo) Update(_ context.Context, id uuid.UUID, req *project.UpdateProjectRequest) (*project.Project, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	p, ok := r.s.projects[id]
	if !ok {
		return nil, project.ErrProjectNotFound
	}

	changed := false
	if req.Name != nil {
		p.Name, changed = *req.Name, true
	}
	if req.Description != nil {
		p.Description, changed = ptrCopy(req.Description), true
	}
	if req.Priority != nil {
		p.Priority, changed = *req.Priority, true
	}
	if req.Status != nil {
		p.Status, changed = *req.Status, true
	}
	if req.StartDate != nil {
		p.StartDate, changed = ptrCopy(req.StartDate), true
	}
	if req.EndDate != nil {
		p.EndDate, changed = ptrCopy(req.EndDate), true
	}
	if req.Color != nil {
		p.Color, changed = ptrCopy(req.Color), true
	}
	if changed {
		p.UpdatedAt = r.s.tick()
	}
	return cloneProject(p), nil
}

func (r *ProjectRepo) DeleteCascade(_ context.Context, id uuid.UUID) ([]string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.projects[id]; !ok {
		return nil, project.ErrProjectNotFound
	}

	var storageIDs []string
	for tid, t := range r.s.tasks {
		if t.ProjectID == id && t.ParentTaskID == nil {
			storageIDs = append(storageIDs, r.s.deleteTaskLocked(tid)...)
		}
	}
	for tid, t := range r.s.tasks {
		if t.ProjectID == id {
			storageIDs = append(storageIDs, r.s.deleteTaskLocked(tid)...)
		}
	}
	for fid, f := range r.s.files {
		if f.ProjectID != nil && *f.ProjectID == id {
			storageIDs = append(storageIDs, f.StorageID)
			delete(r.s.files, fid)
		}
	}
	for cid, c := range r.s.comments {
		if c.ProjectID == id {
			delete(r.s.comments, cid)
		}
	}
	for gid, g := range r.s.guests {
		if g.ProjectID == id {
			delete(r.s.guests, gid)
		}
	}
	for aid, a := range r.s.approvals {
		if a.projectID != nil && *a.projectID == id {
			delete(r.s.approvals, aid)
		}
	}
	delete(r.s.projects, id)

	return storageIDs, nil
}

func (r *ProjectRepo) Stats(_ context.Context, id uuid.UUID, now time.Time) (*project.ProjectStats, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var stats project.ProjectStats
	for _, t := range r.s.tasks {
		if t.ProjectID != id {
			continue
		}
		stats.TotalTasks++
		switch t.Status {
		case task.StatusInProgress:
			stats.InProgress++
		case task.StatusDone:
			stats.Done++
		}
		if t.Status != task.StatusDone && t.DueDate != nil && t.DueDate.Before(now) {
			stats.Overdue++
		}
	}
	return &stats, nil
}
