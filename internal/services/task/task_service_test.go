package task_test

import (
	"context"
	"strings"
	"testing"

	"github.com/curaious/workboard/internal/identity"
	"github.com/curaious/workboard/internal/memstore"
	"github.com/curaious/workboard/internal/perrors"
	"github.com/curaious/workboard/internal/services/activity"
	"github.com/curaious/workboard/internal/services/guest"
	"github.com/curaious/workboard/internal/services/notification"
	"github.com/curaious/workboard/internal/services/project"
	"github.com/curaious/workboard/internal/services/task"
	"github.com/curaious/workboard/internal/services/user"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type noopObjects struct{}

func (noopObjects) Delete(context.Context, string) error { return nil }

type fixture struct {
	store   *memstore.Store
	svc     *task.TaskService
	notices *notification.NotificationService
	ctx     context.Context
	project *project.Project
}

// addGuest gives a new user an active guest row on the fixture project.
func (f *fixture) addGuest(t *testing.T, name string, perms ...string) context.Context {
	t.Helper()

	u, ctx := f.store.AddUser(user.User{Name: name, Email: strings.ToLower(name) + "@example.com"})
	_, err := f.store.Guests().Create(context.Background(), &guest.Guest{
		ProjectID:   f.project.ID,
		Email:       u.Email,
		UserID:      &u.ID,
		Permissions: perms,
		Status:      guest.StatusActive,
	})
	require.NoError(t, err)
	return ctx
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := memstore.New()
	resolver := identity.NewResolver(store.Users())
	recorder := activity.NewActivityService(store.Activity(), store.Users(), resolver)
	projects := project.NewProjectService(store.Projects(), store.Guests(), resolver, noopObjects{}, recorder)
	notices := notification.NewNotificationService(store.Notifications(), resolver)
	svc := task.NewTaskService(store.Tasks(), projects, resolver, noopObjects{}, recorder, notices)

	_, ctx := store.AddUser(user.User{Name: "Olive", Email: "olive@example.com"})
	p, err := projects.Create(ctx, &project.CreateProjectRequest{Name: "Roadmap", Priority: project.PriorityHigh, TeamID: "T1"})
	require.NoError(t, err)

	return &fixture{store: store, svc: svc, notices: notices, ctx: ctx, project: p}
}

func TestCreateTask(t *testing.T) {
	f := newFixture(t)

	created, err := f.svc.Create(f.ctx, &task.CreateTaskRequest{ProjectID: f.project.ID, Title: " Write docs "})
	require.NoError(t, err)
	assert.Equal(t, "Write docs", created.Title)
	assert.Equal(t, task.StatusTodo, created.Status)
	assert.Equal(t, task.PriorityMedium, created.Priority)
	assert.NotNil(t, created.CreatorID)
	assert.Empty(t, created.Tags)

	_, err = f.svc.Create(f.ctx, &task.CreateTaskRequest{ProjectID: uuid.New(), Title: "x"})
	assert.True(t, perrors.HasCode(err, perrors.ErrCodeNotFound))

	_, err = f.svc.Create(f.ctx, &task.CreateTaskRequest{ProjectID: f.project.ID, Title: ""})
	assert.True(t, perrors.HasCode(err, perrors.ErrCodeInvalidRequest))

	child, err := f.svc.Create(f.ctx, &task.CreateTaskRequest{ProjectID: f.project.ID, ParentTaskID: &created.ID, Title: "child"})
	require.NoError(t, err)

	_, err = f.svc.Create(f.ctx, &task.CreateTaskRequest{ProjectID: f.project.ID, ParentTaskID: &child.ID, Title: "grandchild"})
	assert.True(t, perrors.HasCode(err, perrors.ErrCodeInvalidRequest))

	top, err := f.svc.List(f.ctx, f.project.ID, nil)
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, created.ID, top[0].ID)
}

func TestListTasksByStatus(t *testing.T) {
	f := newFixture(t)

	done := task.StatusDone
	_, err := f.svc.Create(f.ctx, &task.CreateTaskRequest{ProjectID: f.project.ID, Title: "a"})
	require.NoError(t, err)
	_, err = f.svc.Create(f.ctx, &task.CreateTaskRequest{ProjectID: f.project.ID, Title: "b", Status: &done})
	require.NoError(t, err)

	got, err := f.svc.List(f.ctx, f.project.ID, &done)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "b", got[0].Title)

	bogus := task.Status("blocked")
	_, err = f.svc.List(f.ctx, f.project.ID, &bogus)
	assert.True(t, perrors.HasCode(err, perrors.ErrCodeInvalidRequest))
}

func TestUpdateAndDeleteTaskRequireIdentity(t *testing.T) {
	f := newFixture(t)

	created, err := f.svc.Create(f.ctx, &task.CreateTaskRequest{ProjectID: f.project.ID, Title: "a"})
	require.NoError(t, err)

	_, err = f.svc.Create(context.Background(), &task.CreateTaskRequest{ProjectID: f.project.ID, Title: "anon"})
	assert.True(t, perrors.HasCode(err, perrors.ErrCodeUnauthorized))

	title := "b"
	_, err = f.svc.Update(context.Background(), created.ID, &task.UpdateTaskRequest{Title: &title})
	assert.True(t, perrors.HasCode(err, perrors.ErrCodeUnauthorized))

	updated, err := f.svc.Update(f.ctx, created.ID, &task.UpdateTaskRequest{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, "b", updated.Title)

	st, err := f.svc.CreateSubtask(f.ctx, &task.CreateSubtaskRequest{TaskID: created.ID, Title: "sub"})
	require.NoError(t, err)

	require.NoError(t, f.svc.Delete(f.ctx, created.ID))
	_, err = f.svc.GetTask(f.ctx, created.ID)
	assert.True(t, perrors.HasCode(err, perrors.ErrCodeNotFound))
	_, err = f.svc.GetSubtask(f.ctx, st.ID)
	assert.True(t, perrors.HasCode(err, perrors.ErrCodeNotFound))
}

func TestTaskMutationsRequireEditAccess(t *testing.T) {
	f := newFixture(t)

	created, err := f.svc.Create(f.ctx, &task.CreateTaskRequest{ProjectID: f.project.ID, Title: "a"})
	require.NoError(t, err)
	st, err := f.svc.CreateSubtask(f.ctx, &task.CreateSubtaskRequest{TaskID: created.ID, Title: "sub"})
	require.NoError(t, err)
	st, err = f.svc.AddChecklistItem(f.ctx, st.ID, &task.AddChecklistItemRequest{Text: "one"})
	require.NoError(t, err)
	item := st.Checklist[0].ID

	_, outsiderCtx := f.store.AddUser(user.User{Name: "Max", Email: "max@example.com"})
	viewerCtx := f.addGuest(t, "Vic", "view", "comment")

	title := "b"
	done := true
	mutations := map[string]func(ctx context.Context) error{
		"create task": func(ctx context.Context) error {
			_, err := f.svc.Create(ctx, &task.CreateTaskRequest{ProjectID: f.project.ID, Title: "x"})
			return err
		},
		"update task": func(ctx context.Context) error {
			_, err := f.svc.Update(ctx, created.ID, &task.UpdateTaskRequest{Title: &title})
			return err
		},
		"delete task": func(ctx context.Context) error {
			return f.svc.Delete(ctx, created.ID)
		},
		"create subtask": func(ctx context.Context) error {
			_, err := f.svc.CreateSubtask(ctx, &task.CreateSubtaskRequest{TaskID: created.ID, Title: "x"})
			return err
		},
		"update subtask": func(ctx context.Context) error {
			_, err := f.svc.UpdateSubtask(ctx, st.ID, &task.UpdateSubtaskRequest{Completed: &done})
			return err
		},
		"delete subtask": func(ctx context.Context) error {
			return f.svc.DeleteSubtask(ctx, st.ID)
		},
		"add checklist item": func(ctx context.Context) error {
			_, err := f.svc.AddChecklistItem(ctx, st.ID, &task.AddChecklistItemRequest{Text: "x"})
			return err
		},
		"update checklist item": func(ctx context.Context) error {
			_, err := f.svc.UpdateChecklistItem(ctx, st.ID, item, &task.UpdateChecklistItemRequest{Completed: &done})
			return err
		},
		"remove checklist item": func(ctx context.Context) error {
			_, err := f.svc.RemoveChecklistItem(ctx, st.ID, item)
			return err
		},
	}

	for name, mutate := range mutations {
		t.Run(name, func(t *testing.T) {
			assert.True(t, perrors.HasCode(mutate(outsiderCtx), perrors.ErrCodeForbidden), "outsider")
			assert.True(t, perrors.HasCode(mutate(viewerCtx), perrors.ErrCodeForbidden), "view-only guest")
		})
	}

	// nothing changed
	got, err := f.svc.GetTask(f.ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "a", got.Title)
	sub, err := f.svc.GetSubtask(f.ctx, st.ID)
	require.NoError(t, err)
	assert.Equal(t, st.Version, sub.Version)
	require.Len(t, sub.Checklist, 1)
	assert.False(t, sub.Checklist[0].Completed)
}

func TestGuestEditorCanChangeTasks(t *testing.T) {
	f := newFixture(t)
	editorCtx := f.addGuest(t, "Ed", "edit")

	created, err := f.svc.Create(editorCtx, &task.CreateTaskRequest{ProjectID: f.project.ID, Title: "from guest"})
	require.NoError(t, err)

	title := "renamed"
	updated, err := f.svc.Update(editorCtx, created.ID, &task.UpdateTaskRequest{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, "renamed", updated.Title)

	st, err := f.svc.CreateSubtask(editorCtx, &task.CreateSubtaskRequest{TaskID: created.ID, Title: "sub"})
	require.NoError(t, err)
	_, err = f.svc.AddChecklistItem(editorCtx, st.ID, &task.AddChecklistItemRequest{Text: "one"})
	require.NoError(t, err)

	require.NoError(t, f.svc.Delete(editorCtx, created.ID))
}

func TestChecklist(t *testing.T) {
	f := newFixture(t)

	parent, err := f.svc.Create(f.ctx, &task.CreateTaskRequest{ProjectID: f.project.ID, Title: "a"})
	require.NoError(t, err)
	st, err := f.svc.CreateSubtask(f.ctx, &task.CreateSubtaskRequest{TaskID: parent.ID, Title: "sub"})
	require.NoError(t, err)
	assert.Equal(t, 1, st.Version)
	assert.Empty(t, st.Checklist)

	for _, text := range []string{"one", "two", "three"} {
		st, err = f.svc.AddChecklistItem(f.ctx, st.ID, &task.AddChecklistItemRequest{Text: text})
		require.NoError(t, err)
	}
	require.Len(t, st.Checklist, 3)
	assert.Equal(t, 4, st.Version)

	ids := map[string]bool{}
	for _, item := range st.Checklist {
		ids[item.ID] = true
	}
	assert.Len(t, ids, 3)

	completed := true
	second := st.Checklist[1].ID
	st, err = f.svc.UpdateChecklistItem(f.ctx, st.ID, second, &task.UpdateChecklistItemRequest{Completed: &completed})
	require.NoError(t, err)
	assert.True(t, st.Checklist[1].Completed)
	assert.Equal(t, "two", st.Checklist[1].Text)

	st, err = f.svc.RemoveChecklistItem(f.ctx, st.ID, second)
	require.NoError(t, err)
	require.Len(t, st.Checklist, 2)
	assert.Equal(t, -1, st.Checklist.Index(second))

	_, err = f.svc.RemoveChecklistItem(f.ctx, st.ID, "missing")
	assert.True(t, perrors.HasCode(err, perrors.ErrCodeNotFound))

	_, err = f.svc.AddChecklistItem(f.ctx, st.ID, &task.AddChecklistItemRequest{Text: " "})
	assert.True(t, perrors.HasCode(err, perrors.ErrCodeInvalidRequest))
}

func TestUpdateSubtaskVersionConflict(t *testing.T) {
	f := newFixture(t)

	parent, err := f.svc.Create(f.ctx, &task.CreateTaskRequest{ProjectID: f.project.ID, Title: "a"})
	require.NoError(t, err)
	st, err := f.svc.CreateSubtask(f.ctx, &task.CreateSubtaskRequest{TaskID: parent.ID, Title: "sub"})
	require.NoError(t, err)

	completed := true
	version := st.Version
	updated, err := f.svc.UpdateSubtask(f.ctx, st.ID, &task.UpdateSubtaskRequest{Completed: &completed, Version: &version})
	require.NoError(t, err)
	assert.True(t, updated.Completed)
	assert.Equal(t, version+1, updated.Version)

	// the stale version is rejected
	_, err = f.svc.UpdateSubtask(f.ctx, st.ID, &task.UpdateSubtaskRequest{Completed: &completed, Version: &version})
	require.Error(t, err)
	assert.True(t, perrors.HasCode(err, perrors.ErrCodeConflict))
	assert.ErrorIs(t, err, task.ErrSubtaskVersionConflict)
}

func TestUpdateSubtaskRejectsDuplicateChecklistIDs(t *testing.T) {
	f := newFixture(t)

	parent, err := f.svc.Create(f.ctx, &task.CreateTaskRequest{ProjectID: f.project.ID, Title: "a"})
	require.NoError(t, err)
	st, err := f.svc.CreateSubtask(f.ctx, &task.CreateSubtaskRequest{TaskID: parent.ID, Title: "sub"})
	require.NoError(t, err)

	dup := task.Checklist{{ID: "x", Text: "a"}, {ID: "x", Text: "b"}}
	_, err = f.svc.UpdateSubtask(f.ctx, st.ID, &task.UpdateSubtaskRequest{Checklist: &dup})
	assert.True(t, perrors.HasCode(err, perrors.ErrCodeInvalidRequest))

	fresh := task.Checklist{{Text: "a"}, {Text: "b"}}
	saved, err := f.svc.UpdateSubtask(f.ctx, st.ID, &task.UpdateSubtaskRequest{Checklist: &fresh})
	require.NoError(t, err)
	require.Len(t, saved.Checklist, 2)
	assert.NotEmpty(t, saved.Checklist[0].ID)
	assert.NotEqual(t, saved.Checklist[0].ID, saved.Checklist[1].ID)
}

func TestAssignmentNotifiesAssignee(t *testing.T) {
	f := newFixture(t)
	maxUser, maxCtx := f.store.AddUser(user.User{Name: "Max", Email: "max@example.com"})
	ada, adaCtx := f.store.AddUser(user.User{Name: "Ada", Email: "ada@example.com"})

	created, err := f.svc.Create(f.ctx, &task.CreateTaskRequest{ProjectID: f.project.ID, Title: "Ship", AssigneeID: &maxUser.ID})
	require.NoError(t, err)

	list, err := f.notices.List(maxCtx, &notification.ListRequest{})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, notification.TypeTaskAssigned, list[0].Type)
	require.NotNil(t, list[0].EntityID)
	assert.Equal(t, created.ID.String(), *list[0].EntityID)

	// Unrelated edits do not notify again.
	title := "Ship it"
	_, err = f.svc.Update(f.ctx, created.ID, &task.UpdateTaskRequest{Title: &title})
	require.NoError(t, err)
	count, err := f.notices.UnreadCount(maxCtx)
	require.NoError(t, err)
	assert.Equal(t, 1, count.Count)

	_, err = f.svc.Update(f.ctx, created.ID, &task.UpdateTaskRequest{AssigneeID: &ada.ID})
	require.NoError(t, err)
	adaList, err := f.notices.List(adaCtx, &notification.ListRequest{})
	require.NoError(t, err)
	assert.Len(t, adaList, 1)

	owner, err := f.store.Users().GetByEmail(context.Background(), "olive@example.com")
	require.NoError(t, err)
	_, err = f.svc.Create(f.ctx, &task.CreateTaskRequest{ProjectID: f.project.ID, Title: "Mine", AssigneeID: &owner.ID})
	require.NoError(t, err)
	ownList, err := f.notices.List(f.ctx, &notification.ListRequest{})
	require.NoError(t, err)
	assert.Empty(t, ownList, "self assignment is silent")
}
