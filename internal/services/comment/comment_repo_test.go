package comment_test

import (
	"context"
	"testing"

	"github.com/curaious/workboard/internal/dbtest"
	"github.com/curaious/workboard/internal/services/comment"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommentRepoDeleteKeepsReplies(t *testing.T) {
	conn := dbtest.Open(t)
	repo := comment.NewCommentRepo(conn)
	ctx := context.Background()

	olive := dbtest.User(t, conn, "olive")
	max := dbtest.User(t, conn, "max")
	p := dbtest.Project(t, conn, olive)

	parent, err := repo.Create(ctx, &comment.Comment{ProjectID: p.ID, UserID: olive.ID, Content: "Kickoff moved", Files: []string{}})
	require.NoError(t, err)
	reply, err := repo.Create(ctx, &comment.Comment{ProjectID: p.ID, UserID: max.ID, Content: "Noted", ParentCommentID: &parent.ID, Files: []string{}})
	require.NoError(t, err)

	require.NoError(t, repo.Delete(ctx, parent.ID))
	assert.ErrorIs(t, repo.Delete(ctx, parent.ID), comment.ErrCommentNotFound)

	kept, err := repo.GetByID(ctx, reply.ID)
	require.NoError(t, err)
	assert.Nil(t, kept.ParentCommentID)
	assert.Equal(t, "Noted", kept.Content)
}

func TestTaskCommentRepo(t *testing.T) {
	conn := dbtest.Open(t)
	repo := comment.NewTaskCommentRepo(conn)
	ctx := context.Background()

	olive := dbtest.User(t, conn, "olive")
	max := dbtest.User(t, conn, "max")
	p := dbtest.Project(t, conn, olive)
	tk := dbtest.Task(t, conn, p, "Draft agenda")

	first, err := repo.Create(ctx, &comment.TaskComment{TaskID: tk.ID, UserID: olive.ID, Content: "First pass done", Files: []string{}})
	require.NoError(t, err)
	reply, err := repo.Create(ctx, &comment.TaskComment{TaskID: tk.ID, UserID: max.ID, Content: "Looks good", ParentCommentID: &first.ID, Files: []string{}})
	require.NoError(t, err)

	listed, err := repo.ListByTask(ctx, tk.ID)
	require.NoError(t, err)
	require.Len(t, listed, 2)
	assert.Equal(t, first.ID, listed[0].ID)
	assert.Equal(t, reply.ID, listed[1].ID)

	edited, err := repo.UpdateContent(ctx, first.ID, "Second pass done")
	require.NoError(t, err)
	assert.Equal(t, "Second pass done", edited.Content)

	require.NoError(t, repo.Delete(ctx, first.ID))
	kept, err := repo.GetByID(ctx, reply.ID)
	require.NoError(t, err)
	assert.Nil(t, kept.ParentCommentID)

	_, err = repo.GetByID(ctx, first.ID)
	assert.ErrorIs(t, err, comment.ErrTaskCommentNotFound)
}
