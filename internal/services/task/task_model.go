package task

import (
	"database/sql/driver"
	"fmt"
	"time"

	json "github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

type Status string

const (
	StatusTodo       Status = "todo"
	StatusInProgress Status = "in_progress"
	StatusInReview   Status = "in_review"
	StatusDone       Status = "done"
	StatusBlocked    Status = "blocked"
)

func (s Status) Valid() bool {
	switch s {
	case StatusTodo, StatusInProgress, StatusInReview, StatusDone, StatusBlocked:
		return true
	}
	return false
}

type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return true
	}
	return false
}

type Task struct {
	ID             uuid.UUID      `json:"id" db:"id"`
	ProjectID      uuid.UUID      `json:"projectId" db:"project_id"`
	ParentTaskID   *uuid.UUID     `json:"parentTaskId,omitempty" db:"parent_task_id"`
	Title          string         `json:"title" db:"title"`
	Description    *string        `json:"description,omitempty" db:"description"`
	Status         Status         `json:"status" db:"status"`
	Priority       Priority       `json:"priority" db:"priority"`
	AssigneeID     *uuid.UUID     `json:"assigneeId,omitempty" db:"assignee_id"`
	CreatorID      *uuid.UUID     `json:"creatorId,omitempty" db:"creator_id"`
	DueDate        *time.Time     `json:"dueDate,omitempty" db:"due_date"`
	EstimatedHours *float64       `json:"estimatedHours,omitempty" db:"estimated_hours"`
	ActualHours    *float64       `json:"actualHours,omitempty" db:"actual_hours"`
	Tags           pq.StringArray `json:"tags" db:"tags"`
	CreatedAt      time.Time      `json:"createdAt" db:"created_at"`
	UpdatedAt      time.Time      `json:"updatedAt" db:"updated_at"`
}

type CreateTaskRequest struct {
	ProjectID      uuid.UUID  `json:"-"`
	ParentTaskID   *uuid.UUID `json:"parentTaskId,omitempty"`
	Title          string     `json:"title"`
	Description    *string    `json:"description,omitempty"`
	Status         *Status    `json:"status,omitempty"`
	Priority       *Priority  `json:"priority,omitempty"`
	AssigneeID     *uuid.UUID `json:"assigneeId,omitempty"`
	DueDate        *time.Time `json:"dueDate,omitempty"`
	EstimatedHours *float64   `json:"estimatedHours,omitempty"`
	Tags           []string   `json:"tags,omitempty"`
}

type UpdateTaskRequest struct {
	Title          *string    `json:"title,omitempty"`
	Description    *string    `json:"description,omitempty"`
	Status         *Status    `json:"status,omitempty"`
	Priority       *Priority  `json:"priority,omitempty"`
	AssigneeID     *uuid.UUID `json:"assigneeId,omitempty"`
	DueDate        *time.Time `json:"dueDate,omitempty"`
	EstimatedHours *float64   `json:"estimatedHours,omitempty"`
	ActualHours    *float64   `json:"actualHours,omitempty"`
	Tags           *[]string  `json:"tags,omitempty"`
}

// ChecklistItem is one line of a subtask checklist. Ids are unique within the subtask.
type ChecklistItem struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	Completed bool   `json:"completed"`
}

// Checklist is stored as a jsonb array.
type Checklist []ChecklistItem

// Scan implements the sql.Scanner interface for database/sql
func (c *Checklist) Scan(value interface{}) error {
	if value == nil {
		*c = Checklist{}
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into Checklist", value)
	}

	var items []ChecklistItem
	if err := json.Unmarshal(bytes, &items); err != nil {
		return err
	}
	*c = items
	return nil
}

// Value implements the driver.Valuer interface for database/sql
func (c Checklist) Value() (driver.Value, error) {
	if c == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]ChecklistItem(c))
}

// Index returns the position of the item with id, or -1.
func (c Checklist) Index(id string) int {
	for i, item := range c {
		if item.ID == id {
			return i
		}
	}
	return -1
}

// Clone returns a copy that can be modified without touching c.
func (c Checklist) Clone() Checklist {
	out := make(Checklist, len(c))
	copy(out, c)
	return out
}

type Subtask struct {
	ID          uuid.UUID  `json:"id" db:"id"`
	TaskID      uuid.UUID  `json:"taskId" db:"task_id"`
	Title       string     `json:"title" db:"title"`
	Description *string    `json:"description,omitempty" db:"description"`
	AssigneeID  *uuid.UUID `json:"assigneeId,omitempty" db:"assignee_id"`
	Completed   bool       `json:"completed" db:"completed"`
	Checklist   Checklist  `json:"checklist" db:"checklist"`
	Version     int        `json:"version" db:"version"`
	CreatedAt   time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time  `json:"updatedAt" db:"updated_at"`
}

type CreateSubtaskRequest struct {
	TaskID      uuid.UUID  `json:"-"`
	Title       string     `json:"title"`
	Description *string    `json:"description,omitempty"`
	AssigneeID  *uuid.UUID `json:"assigneeId,omitempty"`
}

// UpdateSubtaskRequest patches a subtask. When Version is set the write only
// applies if the stored version still matches.
type UpdateSubtaskRequest struct {
	Title       *string    `json:"title,omitempty"`
	Description *string    `json:"description,omitempty"`
	AssigneeID  *uuid.UUID `json:"assigneeId,omitempty"`
	Completed   *bool      `json:"completed,omitempty"`
	Checklist   *Checklist `json:"checklist,omitempty"`
	Version     *int       `json:"version,omitempty"`
}

type AddChecklistItemRequest struct {
	Text string `json:"text"`
}

type UpdateChecklistItemRequest struct {
	Text      *string `json:"text,omitempty"`
	Completed *bool   `json:"completed,omitempty"`
}

// DependencyType relates the start (S) or finish (F) of the prerequisite to
// the start or finish of the dependent task.
type DependencyType string

const (
	FinishToStart  DependencyType = "FS"
	StartToStart   DependencyType = "SS"
	FinishToFinish DependencyType = "FF"
	StartToFinish  DependencyType = "SF"
)

func (d DependencyType) Valid() bool {
	switch d {
	case FinishToStart, StartToStart, FinishToFinish, StartToFinish:
		return true
	}
	return false
}

// Dependency records that TaskID waits on DependsOnTaskID.
type Dependency struct {
	ID              uuid.UUID      `json:"id" db:"id"`
	TaskID          uuid.UUID      `json:"taskId" db:"task_id"`
	DependsOnTaskID uuid.UUID      `json:"dependsOnTaskId" db:"depends_on_task_id"`
	Type            DependencyType `json:"type" db:"type"`
	CreatedAt       time.Time      `json:"createdAt" db:"created_at"`
}

// DependencyWithTask is a dependency joined with the task on its other end:
// the prerequisite when listing a task's dependencies, the dependent task
// when listing its dependents.
type DependencyWithTask struct {
	Dependency
	Task *Task `json:"task,omitempty"`
}

type AddDependencyRequest struct {
	TaskID          uuid.UUID       `json:"-"`
	DependsOnTaskID uuid.UUID       `json:"dependsOnTaskId"`
	Type            *DependencyType `json:"type,omitempty"`
}

type UpdateDependencyRequest struct {
	Type DependencyType `json:"type"`
}
