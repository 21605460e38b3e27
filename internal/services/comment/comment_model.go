package comment

import (
	"time"

	"github.com/curaious/workboard/internal/services/user"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

type Comment struct {
	ID              uuid.UUID      `json:"id" db:"id"`
	ProjectID       uuid.UUID      `json:"projectId" db:"project_id"`
	UserID          uuid.UUID      `json:"userId" db:"user_id"`
	Content         string         `json:"content" db:"content"`
	ParentCommentID *uuid.UUID     `json:"parentCommentId,omitempty" db:"parent_comment_id"`
	Files           pq.StringArray `json:"files" db:"files"`
	CreatedAt       time.Time      `json:"createdAt" db:"created_at"`
	UpdatedAt       time.Time      `json:"updatedAt" db:"updated_at"`
}

// CommentWithUser is a comment joined with its author. Threads are rebuilt
// client side from ParentCommentID.
type CommentWithUser struct {
	Comment
	User *user.User `json:"user,omitempty"`
}

type CreateCommentRequest struct {
	ProjectID       uuid.UUID  `json:"-"`
	Content         string     `json:"content"`
	ParentCommentID *uuid.UUID `json:"parentCommentId,omitempty"`
	Files           []string   `json:"files,omitempty"`
}

type UpdateCommentRequest struct {
	Content string `json:"content"`
}

// TaskComment is a discussion entry on a task. Replies point at a comment of
// the same task and outlive their parent.
type TaskComment struct {
	ID              uuid.UUID      `json:"id" db:"id"`
	TaskID          uuid.UUID      `json:"taskId" db:"task_id"`
	UserID          uuid.UUID      `json:"userId" db:"user_id"`
	Content         string         `json:"content" db:"content"`
	ParentCommentID *uuid.UUID     `json:"parentCommentId,omitempty" db:"parent_comment_id"`
	Files           pq.StringArray `json:"files" db:"files"`
	CreatedAt       time.Time      `json:"createdAt" db:"created_at"`
	UpdatedAt       time.Time      `json:"updatedAt" db:"updated_at"`
}

type TaskCommentWithUser struct {
	TaskComment
	User *user.User `json:"user,omitempty"`
}

type CreateTaskCommentRequest struct {
	TaskID          uuid.UUID  `json:"-"`
	Content         string     `json:"content"`
	ParentCommentID *uuid.UUID `json:"parentCommentId,omitempty"`
	Files           []string   `json:"files,omitempty"`
}
