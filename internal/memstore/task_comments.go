package memstore

import (
	"context"
	"sort"

	"github.com/curaious/workboard/internal/services/comment"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

type TaskCommentRepo struct{ s *Store }

var _ comment.TaskCommentRepository = (*TaskCommentRepo)(nil)

func (s *Store) TaskComments() *TaskCommentRepo { return &TaskCommentRepo{s} }

func cloneTaskComment(c *comment.TaskComment) *comment.TaskComment {
	out := *c
	out.ParentCommentID = ptrCopy(c.ParentCommentID)
	out.Files = append(pq.StringArray{}, c.Files...)
	return &out
}

func (r *TaskCommentRepo) Create(_ context.Context, c *comment.TaskComment) (*comment.TaskComment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.tasks[c.TaskID]; !ok {
		return nil, errForeignKey("task_comments.task_id")
	}
	if _, ok := r.s.users[c.UserID]; !ok {
		return nil, errForeignKey("task_comments.user_id")
	}
	if c.ParentCommentID != nil {
		if _, ok := r.s.taskComments[*c.ParentCommentID]; !ok {
			return nil, errForeignKey("task_comments.parent_comment_id")
		}
	}

	created := cloneTaskComment(c)
	created.ID = uuid.New()
	created.CreatedAt = r.s.tick()
	created.UpdatedAt = created.CreatedAt
	r.s.taskComments[created.ID] = created
	return cloneTaskComment(created), nil
}

func (r *TaskCommentRepo) GetByID(_ context.Context, id uuid.UUID) (*comment.TaskComment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	c, ok := r.s.taskComments[id]
	if !ok {
		return nil, comment.ErrTaskCommentNotFound
	}
	return cloneTaskComment(c), nil
}

func (r *TaskCommentRepo) ListByTask(_ context.Context, taskID uuid.UUID) ([]*comment.TaskComment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var result []*comment.TaskComment
	for _, c := range r.s.taskComments {
		if c.TaskID == taskID {
			result = append(result, cloneTaskComment(c))
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

func (r *TaskCommentRepo) UpdateContent(_ context.Context, id uuid.UUID, content string) (*comment.TaskComment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	c, ok := r.s.taskComments[id]
	if !ok {
		return nil, comment.ErrTaskCommentNotFound
	}
	c.Content = content
	c.UpdatedAt = r.s.tick()
	return cloneTaskComment(c), nil
}

func (r *TaskCommentRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.taskComments[id]; !ok {
		return comment.ErrTaskCommentNotFound
	}
	r.s.deleteTaskCommentLocked(id)
	return nil
}

// deleteTaskCommentLocked removes one task comment and orphans its replies.
func (s *Store) deleteTaskCommentLocked(id uuid.UUID) {
	for _, c := range s.taskComments {
		if c.ParentCommentID != nil && *c.ParentCommentID == id {
			c.ParentCommentID = nil
		}
	}
	delete(s.taskComments, id)
}
