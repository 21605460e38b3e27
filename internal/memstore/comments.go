package memstore

import (
	"context"
	"sort"

	"github.com/curaious/workboard/internal/services/comment"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

type CommentRepo struct{ s *Store }

var _ comment.Repository = (*CommentRepo)(nil)

func cloneComment(c *comment.Comment) *comment.Comment {
	out := *c
	out.ParentCommentID = ptrCopy(c.ParentCommentID)
	out.Files = append(pq.StringArray{}, c.Files...)
	return &out
}

func (r *CommentRepo) Create(_ context.Context, c *comment.Comment) (*comment.Comment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.projects[c.ProjectID]; !ok {
		return nil, errForeignKey("project_comments.project_id")
	}
	if c.ParentCommentID != nil {
		if _, ok := r.s.comments[*c.ParentCommentID]; !ok {
			return nil, errForeignKey("project_comments.parent_comment_id")
		}
	}

	created := cloneComment(c)
	created.ID = uuid.New()
	created.CreatedAt = r.s.tick()
	created.UpdatedAt = created.CreatedAt
	r.s.comments[created.ID] = created
	return cloneComment(created), nil
}

func (r *CommentRepo) GetByID(_ context.Context, id uuid.UUID) (*comment.Comment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	c, ok := r.s.comments[id]
	if !ok {
		return nil, comment.ErrCommentNotFound
	}
	return cloneComment(c), nil
}

func (r *CommentRepo) ListByProject(_ context.Context, projectID uuid.UUID) ([]*comment.Comment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var result []*comment.Comment
	for _, c := range r.s.comments {
		if c.ProjectID == projectID {
			result = append(result, cloneComment(c))
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID.String() > result[j].ID.String()
	})
	return result, nil
}

func (r *CommentRepo) UpdateContent(_ context.Context, id uuid.UUID, content string) (*comment.Comment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	c, ok := r.s.comments[id]
	if !ok {
		return nil, comment.ErrCommentNotFound
	}
	c.Content = content
	c.UpdatedAt = r.s.tick()
	return cloneComment(c), nil
}

func (r *CommentRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.comments[id]; !ok {
		return comment.ErrCommentNotFound
	}
	r.deleteLocked(id)
	return nil
}

// deleteLocked orphans the replies of id, matching ON DELETE SET NULL.
func (r *CommentRepo) deleteLocked(id uuid.UUID) {
	for _, c := range r.s.comments {
		if c.ParentCommentID != nil && *c.ParentCommentID == id {
			c.ParentCommentID = nil
		}
	}
	delete(r.s.comments, id)
}
