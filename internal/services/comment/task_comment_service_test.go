package comment_test

import (
	"context"
	"strings"
	"testing"

	"github.com/curaious/workboard/internal/identity"
	"github.com/curaious/workboard/internal/memstore"
	"github.com/curaious/workboard/internal/perrors"
	"github.com/curaious/workboard/internal/services/activity"
	"github.com/curaious/workboard/internal/services/comment"
	"github.com/curaious/workboard/internal/services/notification"
	"github.com/curaious/workboard/internal/services/project"
	"github.com/curaious/workboard/internal/services/task"
	"github.com/curaious/workboard/internal/services/user"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type taskFixture struct {
	store    *memstore.Store
	svc      *comment.TaskCommentService
	tasks    *task.TaskService
	notices  *notification.NotificationService
	owner    *user.User
	ownerCtx context.Context
	task     *task.Task
}

func newTaskFixture(t *testing.T) *taskFixture {
	t.Helper()

	store := memstore.New()
	resolver := identity.NewResolver(store.Users())
	recorder := activity.NewActivityService(store.Activity(), store.Users(), resolver)
	notices := notification.NewNotificationService(store.Notifications(), resolver)
	projects := project.NewProjectService(store.Projects(), store.Guests(), resolver, noopObjects{}, recorder)
	tasks := task.NewTaskService(store.Tasks(), projects, resolver, noopObjects{}, recorder, notices)
	svc := comment.NewTaskCommentService(store.TaskComments(), tasks, store.Users(), resolver, recorder, notices)

	owner, ctx := store.AddUser(user.User{Name: "Olive", Email: "olive@example.com"})
	p, err := projects.Create(ctx, &project.CreateProjectRequest{Name: "Roadmap", Priority: project.PriorityHigh, TeamID: "T1"})
	require.NoError(t, err)
	tk, err := tasks.Create(ctx, &task.CreateTaskRequest{ProjectID: p.ID, Title: "Write docs"})
	require.NoError(t, err)

	return &taskFixture{store: store, svc: svc, tasks: tasks, notices: notices, owner: owner, ownerCtx: ctx, task: tk}
}

func TestTaskComments(t *testing.T) {
	f := newTaskFixture(t)
	_, maxCtx := f.store.AddUser(user.User{Name: "Max", Email: "max@example.com"})

	first, err := f.svc.Create(f.ownerCtx, &comment.CreateTaskCommentRequest{TaskID: f.task.ID, Content: " first "})
	require.NoError(t, err)
	assert.Equal(t, "first", first.Content)
	assert.Empty(t, first.Files)

	second, err := f.svc.Create(maxCtx, &comment.CreateTaskCommentRequest{TaskID: f.task.ID, Content: "second", ParentCommentID: &first.ID})
	require.NoError(t, err)

	list, err := f.svc.List(f.ownerCtx, f.task.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, first.ID, list[0].ID, "oldest first")
	assert.Equal(t, second.ID, list[1].ID)
	require.NotNil(t, list[1].User)
	assert.Equal(t, "Max", list[1].User.Name)

	_, err = f.svc.Create(context.Background(), &comment.CreateTaskCommentRequest{TaskID: f.task.ID, Content: "anon"})
	assert.True(t, perrors.HasCode(err, perrors.ErrCodeUnauthorized))

	_, err = f.svc.Create(f.ownerCtx, &comment.CreateTaskCommentRequest{TaskID: f.task.ID, Content: "  "})
	assert.True(t, perrors.HasCode(err, perrors.ErrCodeInvalidRequest))

	_, err = f.svc.Create(f.ownerCtx, &comment.CreateTaskCommentRequest{TaskID: uuid.New(), Content: "x"})
	assert.True(t, perrors.HasCode(err, perrors.ErrCodeNotFound))

	_, err = f.svc.List(f.ownerCtx, uuid.New())
	assert.True(t, perrors.HasCode(err, perrors.ErrCodeNotFound))
}

func TestTaskCommentReplyMustShareTask(t *testing.T) {
	f := newTaskFixture(t)

	other, err := f.tasks.Create(f.ownerCtx, &task.CreateTaskRequest{ProjectID: f.task.ProjectID, Title: "Other"})
	require.NoError(t, err)
	c, err := f.svc.Create(f.ownerCtx, &comment.CreateTaskCommentRequest{TaskID: other.ID, Content: "elsewhere"})
	require.NoError(t, err)

	_, err = f.svc.Create(f.ownerCtx, &comment.CreateTaskCommentRequest{TaskID: f.task.ID, Content: "reply", ParentCommentID: &c.ID})
	assert.True(t, perrors.HasCode(err, perrors.ErrCodeInvalidRequest))
}

func TestTaskCommentPolicies(t *testing.T) {
	f := newTaskFixture(t)
	_, maxCtx := f.store.AddUser(user.User{Name: "Max", Email: "max@example.com"})
	_, adminCtx := f.store.AddUser(user.User{Name: "Ada", Email: "ada@example.com", Role: user.RoleAdmin})

	c, err := f.svc.Create(f.ownerCtx, &comment.CreateTaskCommentRequest{TaskID: f.task.ID, Content: "hello"})
	require.NoError(t, err)

	_, err = f.svc.Update(maxCtx, c.ID, &comment.UpdateCommentRequest{Content: "mine now"})
	assert.True(t, perrors.HasCode(err, perrors.ErrCodeForbidden))
	_, err = f.svc.Update(adminCtx, c.ID, &comment.UpdateCommentRequest{Content: "mine now"})
	assert.True(t, perrors.HasCode(err, perrors.ErrCodeForbidden))

	edited, err := f.svc.Update(f.ownerCtx, c.ID, &comment.UpdateCommentRequest{Content: "edited"})
	require.NoError(t, err)
	assert.Equal(t, "edited", edited.Content)

	err = f.svc.Delete(maxCtx, c.ID)
	assert.True(t, perrors.HasCode(err, perrors.ErrCodeForbidden))

	require.NoError(t, f.svc.Delete(adminCtx, c.ID))
	err = f.svc.Delete(f.ownerCtx, c.ID)
	assert.True(t, perrors.HasCode(err, perrors.ErrCodeNotFound))
}

func TestDeleteTaskCommentKeepsReplies(t *testing.T) {
	f := newTaskFixture(t)
	_, maxCtx := f.store.AddUser(user.User{Name: "Max", Email: "max@example.com"})

	parent, err := f.svc.Create(f.ownerCtx, &comment.CreateTaskCommentRequest{TaskID: f.task.ID, Content: "parent"})
	require.NoError(t, err)
	reply, err := f.svc.Create(maxCtx, &comment.CreateTaskCommentRequest{TaskID: f.task.ID, Content: "reply", ParentCommentID: &parent.ID})
	require.NoError(t, err)

	require.NoError(t, f.svc.Delete(f.ownerCtx, parent.ID))

	list, err := f.svc.List(f.ownerCtx, f.task.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, reply.ID, list[0].ID)
	assert.Nil(t, list[0].ParentCommentID)
}

func TestTaskCommentNotifications(t *testing.T) {
	f := newTaskFixture(t)
	_, maxCtx := f.store.AddUser(user.User{Name: "Max", Email: "max@example.com"})
	_, adaCtx := f.store.AddUser(user.User{Name: "Ada", Email: "ada@example.com"})

	// Unassigned task: the creator hears about comments from others.
	root, err := f.svc.Create(maxCtx, &comment.CreateTaskCommentRequest{TaskID: f.task.ID, Content: strings.Repeat("x", 200)})
	require.NoError(t, err)

	ownerList, err := f.notices.List(f.ownerCtx, &notification.ListRequest{})
	require.NoError(t, err)
	require.Len(t, ownerList, 1)
	assert.Equal(t, notification.TypeTaskComment, ownerList[0].Type)
	assert.Less(t, len(ownerList[0].Message), 200)

	// Ada replies to Max: Max gets a reply notice, Olive a comment notice.
	_, err = f.svc.Create(adaCtx, &comment.CreateTaskCommentRequest{TaskID: f.task.ID, Content: "agreed", ParentCommentID: &root.ID})
	require.NoError(t, err)

	maxList, err := f.notices.List(maxCtx, &notification.ListRequest{})
	require.NoError(t, err)
	require.Len(t, maxList, 1)
	assert.Equal(t, notification.TypeCommentReply, maxList[0].Type)

	count, err := f.notices.UnreadCount(f.ownerCtx)
	require.NoError(t, err)
	assert.Equal(t, 2, count.Count)

	// Commenting on your own task is silent.
	_, err = f.svc.Create(f.ownerCtx, &comment.CreateTaskCommentRequest{TaskID: f.task.ID, Content: "note to self"})
	require.NoError(t, err)
	count, err = f.notices.UnreadCount(f.ownerCtx)
	require.NoError(t, err)
	assert.Equal(t, 2, count.Count)

	adaList, err := f.notices.List(adaCtx, &notification.ListRequest{})
	require.NoError(t, err)
	assert.Empty(t, adaList)
}

func TestDeleteTaskRemovesItsComments(t *testing.T) {
	f := newTaskFixture(t)

	_, err := f.svc.Create(f.ownerCtx, &comment.CreateTaskCommentRequest{TaskID: f.task.ID, Content: "bye"})
	require.NoError(t, err)
	require.NoError(t, f.tasks.Delete(f.ownerCtx, f.task.ID))

	left, err := f.store.TaskComments().ListByTask(context.Background(), f.task.ID)
	require.NoError(t, err)
	assert.Empty(t, left)
}
