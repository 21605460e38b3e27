package project

import (
	"encoding/base64"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusDraft     Status = "draft"
	StatusActive    Status = "active"
	StatusOnHold    Status = "on_hold"
	StatusCompleted Status = "completed"
	StatusArchived  Status = "archived"
)

func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusActive, StatusOnHold, StatusCompleted, StatusArchived:
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

// Project is the top level container for tasks, comments, guests and files.
type Project struct {
	ID          uuid.UUID  `json:"id" db:"id"`
	Name        string     `json:"name" db:"name"`
	Description *string    `json:"description,omitempty" db:"description"`
	Priority    Priority   `json:"priority" db:"priority"`
	Status      Status     `json:"status" db:"status"`
	StartDate   *time.Time `json:"startDate,omitempty" db:"start_date"`
	EndDate     *time.Time `json:"endDate,omitempty" db:"end_date"`
	TeamID      string     `json:"teamId" db:"team_id"`
	OwnerID     *uuid.UUID `json:"ownerId,omitempty" db:"owner_id"`
	Color       *string    `json:"color,omitempty" db:"color"`
	CreatedAt   time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time  `json:"updatedAt" db:"updated_at"`

	// Progress is the share of done tasks, only filled by List.
	Progress int `json:"progress" db:"progress"`
}

// CreateProjectRequest captures payload for creating a project
type CreateProjectRequest struct {
	Name        string     `json:"name"`
	Description *string    `json:"description,omitempty"`
	Priority    Priority   `json:"priority"`
	Status      *Status    `json:"status,omitempty"`
	StartDate   *time.Time `json:"startDate,omitempty"`
	EndDate     *time.Time `json:"endDate,omitempty"`
	TeamID      string     `json:"teamId"`
	Color       *string    `json:"color,omitempty"`
}

// UpdateProjectRequest captures payload for updating a project. Nil fields are left unchanged.
type UpdateProjectRequest struct {
	Name        *string    `json:"name,omitempty"`
	Description *string    `json:"description,omitempty"`
	Priority    *Priority  `json:"priority,omitempty"`
	Status      *Status    `json:"status,omitempty"`
	StartDate   *time.Time `json:"startDate,omitempty"`
	EndDate     *time.Time `json:"endDate,omitempty"`
	Color       *string    `json:"color,omitempty"`
}

const (
	DefaultPageSize = 50
	MaxPageSize     = 200
)

type ListProjectsRequest struct {
	TeamID string
	Cursor string
	Limit  int
}

// ListFilter is the repository form of a list request.
type ListFilter struct {
	TeamID string
	After  *Cursor
	Limit  int
}

type ProjectPage struct {
	Items      []*Project `json:"items"`
	NextCursor string     `json:"nextCursor,omitempty"`
}

// Cursor is a position in the (created_at DESC, id DESC) ordering.
type Cursor struct {
	CreatedAt time.Time
	ID        uuid.UUID
}

var ErrInvalidCursor = errors.New("invalid cursor")

func (c Cursor) Encode() string {
	raw := c.CreatedAt.UTC().Format(time.RFC3339Nano) + "|" + c.ID.String()
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

func DecodeCursor(s string) (*Cursor, error) {
	raw, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return nil, ErrInvalidCursor
	}

	createdAt, id, ok := strings.Cut(string(raw), "|")
	if !ok {
		return nil, ErrInvalidCursor
	}

	ts, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return nil, ErrInvalidCursor
	}

	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, ErrInvalidCursor
	}

	return &Cursor{CreatedAt: ts, ID: uid}, nil
}

// Before reports whether p sorts after the cursor position, i.e. belongs to the next page.
func (c Cursor) Before(p *Project) bool {
	if p.CreatedAt.Equal(c.CreatedAt) {
		return strings.Compare(p.ID.String(), c.ID.String()) < 0
	}
	return p.CreatedAt.Before(c.CreatedAt)
}

type ProjectStats struct {
	TotalTasks int `json:"totalTasks" db:"total_tasks"`
	InProgress int `json:"inProgress" db:"in_progress"`
	Done       int `json:"done" db:"done"`
	Overdue    int `json:"overdue" db:"overdue"`
}
