package activity

import (
	"time"

	"github.com/google/uuid"
)

type EntityType string

const (
	EntityProject EntityType = "project"
	EntityTask    EntityType = "task"
	EntitySubtask EntityType = "subtask"
	EntityComment EntityType = "comment"
	EntityGuest   EntityType = "guest"
	EntityFile    EntityType = "file"
	EntityStatus  EntityType = "status"
	EntityUser    EntityType = "user"

	EntityDependency EntityType = "task_dependency"
)

// Log is one immutable activity row.
type Log struct {
	ID         uuid.UUID  `db:"id" json:"id"`
	UserID     uuid.UUID  `db:"user_id" json:"userId"`
	Action     string     `db:"action" json:"action"`
	EntityType EntityType `db:"entity_type" json:"entityType"`
	EntityID   *string    `db:"entity_id" json:"entityId,omitempty"`
	Details    Details    `db:"details" json:"details"`
	CreatedAt  time.Time  `db:"created_at" json:"createdAt"`
}

// Entry is what callers hand to Record; id and timestamp are assigned on enqueue.
type Entry struct {
	UserID     uuid.UUID
	Action     string
	EntityType EntityType
	EntityID   string
	Details    Payload
}

// ToLog assigns an id and timestamp to the entry.
func (e Entry) ToLog() *Log {
	l := &Log{
		ID:         uuid.New(),
		UserID:     e.UserID,
		Action:     e.Action,
		EntityType: e.EntityType,
		Details:    Details{Payload: e.Details},
		CreatedAt:  time.Now().UTC(),
	}
	if e.EntityID != "" {
		id := e.EntityID
		l.EntityID = &id
	}
	return l
}

// LogWithUser is a log row with the actor's display fields denormalized.
type LogWithUser struct {
	Log
	UserName   string  `json:"userName"`
	UserAvatar *string `json:"userAvatar,omitempty"`
}

type LogActivityRequest struct {
	Action     string         `json:"action"`
	EntityType EntityType     `json:"entityType"`
	EntityID   *string        `json:"entityId,omitempty"`
	Details    map[string]any `json:"details,omitempty"`
}

// Counts are the raw aggregates the repository computes.
type Counts struct {
	TotalProjects     int `db:"total_projects" json:"totalProjects"`
	ActiveProjects    int `db:"active_projects" json:"activeProjects"`
	CompletedProjects int `db:"completed_projects" json:"completedProjects"`
	DraftProjects     int `db:"draft_projects" json:"draftProjects"`

	TotalTasks      int `db:"total_tasks" json:"totalTasks"`
	CompletedTasks  int `db:"completed_tasks" json:"completedTasks"`
	InProgressTasks int `db:"in_progress_tasks" json:"inProgressTasks"`
	TodoTasks       int `db:"todo_tasks" json:"todoTasks"`
	OverdueTasks    int `db:"overdue_tasks" json:"overdueTasks"`

	TotalUsers int `db:"total_users" json:"totalUsers"`

	TotalApprovals    int `db:"total_approvals" json:"totalApprovals"`
	PendingApprovals  int `db:"pending_approvals" json:"pendingApprovals"`
	ApprovedApprovals int `db:"approved_approvals" json:"approvedApprovals"`
	RejectedApprovals int `db:"rejected_approvals" json:"rejectedApprovals"`
}

type Stats struct {
	Counts
	CompletionRate float64 `json:"completionRate"`
}

// CompletionRate is completed/total*100, or 0 when there is nothing to complete.
func CompletionRate(completed, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(completed) / float64(total) * 100
}
