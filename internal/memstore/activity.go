package memstore

import (
	"context"
	"sort"
	"time"

	"github.com/curaious/workboard/internal/services/activity"
	"github.com/curaious/workboard/internal/services/project"
	"github.com/curaious/workboard/internal/services/task"
)

type ActivityRepo struct{ s *Store }

var _ activity.Repository = (*ActivityRepo)(nil)

func cloneLog(l *activity.Log) *activity.Log {
	c := *l
	c.EntityID = ptrCopy(l.EntityID)
	return &c
}

func (r *ActivityRepo) Insert(_ context.Context, l *activity.Log) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.logs[l.ID]; ok {
		return nil
	}
	r.s.logs[l.ID] = cloneLog(l)
	return nil
}

func (r *ActivityRepo) Enqueue(_ context.Context, l *activity.Log) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if r.s.FailOutbox {
		return errOutboxUnavailable
	}
	r.s.outbox = append(r.s.outbox, cloneLog(l))
	return nil
}

func (r *ActivityRepo) PublishOutbox(_ context.Context, limit int) ([]*activity.Log, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	sort.SliceStable(r.s.outbox, func(i, j int) bool {
		return r.s.outbox[i].CreatedAt.Before(r.s.outbox[j].CreatedAt)
	})

	n := len(r.s.outbox)
	if limit > 0 && n > limit {
		n = limit
	}

	published := make([]*activity.Log, 0, n)
	for _, l := range r.s.outbox[:n] {
		if _, ok := r.s.logs[l.ID]; !ok {
			r.s.logs[l.ID] = cloneLog(l)
		}
		published = append(published, cloneLog(l))
	}
	r.s.outbox = append([]*activity.Log{}, r.s.outbox[n:]...)
	return published, nil
}

// Pending returns the number of rows waiting on the outbox.
func (r *ActivityRepo) Pending() int {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return len(r.s.outbox)
}

func (r *ActivityRepo) Recent(_ context.Context, limit int) ([]*activity.Log, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	result := make([]*activity.Log, 0, len(r.s.logs))
	for _, l := range r.s.logs {
		result = append(result, cloneLog(l))
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID.String() > result[j].ID.String()
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (r *ActivityRepo) Counts(_ context.Context, now time.Time) (*activity.Counts, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var c activity.Counts
	for _, p := range r.s.projects {
		c.TotalProjects++
		switch p.Status {
		case project.StatusActive:
			c.ActiveProjects++
		case project.StatusCompleted:
			c.CompletedProjects++
		case project.StatusDraft:
			c.DraftProjects++
		}
	}

	for _, t := range r.s.tasks {
		c.TotalTasks++
		switch t.Status {
		case task.StatusDone:
			c.CompletedTasks++
		case task.StatusInProgress:
			c.InProgressTasks++
		case task.StatusTodo:
			c.TodoTasks++
		}
		if t.Status != task.StatusDone && t.DueDate != nil && t.DueDate.Before(now) {
			c.OverdueTasks++
		}
	}

	c.TotalUsers = len(r.s.users)

	for _, a := range r.s.approvals {
		c.TotalApprovals++
		switch a.status {
		case "pending":
			c.PendingApprovals++
		case "approved":
			c.ApprovedApprovals++
		case "rejected":
			c.RejectedApprovals++
		}
	}
	return &c, nil
}
