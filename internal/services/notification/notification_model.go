package notification

import (
	"time"

	"github.com/google/uuid"
)

type Type string

const (
	TypeTaskAssigned Type = "task_assigned"
	TypeTaskComment  Type = "task_comment"
	TypeCommentReply Type = "comment_reply"
	TypeGuestInvited Type = "guest_invited"
)

// Notification is a message for a single user. Only its recipient can read,
// mark or delete it.
type Notification struct {
	ID         uuid.UUID `json:"id" db:"id"`
	UserID     uuid.UUID `json:"userId" db:"user_id"`
	Type       Type      `json:"type" db:"type"`
	Title      string    `json:"title" db:"title"`
	Message    string    `json:"message" db:"message"`
	Link       *string   `json:"link,omitempty" db:"link"`
	EntityID   *string   `json:"entityId,omitempty" db:"entity_id"`
	EntityType *string   `json:"entityType,omitempty" db:"entity_type"`
	Read       bool      `json:"read" db:"read"`
	CreatedAt  time.Time `json:"createdAt" db:"created_at"`
}

type ListRequest struct {
	UnreadOnly bool
	Limit      int
}

type UnreadCount struct {
	Count int `json:"count"`
}

type MarkAllResult struct {
	Marked int `json:"marked"`
}

type DeleteOldResult struct {
	Deleted int `json:"deleted"`
}
