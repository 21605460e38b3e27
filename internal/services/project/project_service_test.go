package project_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/curaious/workboard/internal/identity"
	"github.com/curaious/workboard/internal/memstore"
	"github.com/curaious/workboard/internal/perrors"
	"github.com/curaious/workboard/internal/services/activity"
	"github.com/curaious/workboard/internal/services/file"
	"github.com/curaious/workboard/internal/services/guest"
	"github.com/curaious/workboard/internal/services/project"
	"github.com/curaious/workboard/internal/services/task"
	"github.com/curaious/workboard/internal/services/user"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type deletedObjects struct {
	mu  sync.Mutex
	ids []string
}

func (d *deletedObjects) Delete(_ context.Context, storageID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.ids = append(d.ids, storageID)
	return nil
}

func newProjectService(store *memstore.Store) (*project.ProjectService, *deletedObjects) {
	resolver := identity.NewResolver(store.Users())
	recorder := activity.NewActivityService(store.Activity(), store.Users(), resolver)
	objects := &deletedObjects{}
	return project.NewProjectService(store.Projects(), store.Guests(), resolver, objects, recorder), objects
}

func TestCreateProject(t *testing.T) {
	store := memstore.New()
	svc, _ := newProjectService(store)
	owner, ctx := store.AddUser(user.User{Name: "Olive", Email: "olive@example.com"})

	t.Run("defaults to active and records the owner", func(t *testing.T) {
		p, err := svc.Create(ctx, &project.CreateProjectRequest{Name: "  Roadmap ", Priority: project.PriorityHigh, TeamID: "T1"})
		require.NoError(t, err)
		assert.Equal(t, "Roadmap", p.Name)
		assert.Equal(t, project.StatusActive, p.Status)
		require.NotNil(t, p.OwnerID)
		assert.Equal(t, owner.ID, *p.OwnerID)
		assert.Equal(t, 1, store.Activity().Pending())
	})

	t.Run("anonymous callers create unowned projects", func(t *testing.T) {
		p, err := svc.Create(context.Background(), &project.CreateProjectRequest{Name: "Open", Priority: project.PriorityLow, TeamID: "T1"})
		require.NoError(t, err)
		assert.Nil(t, p.OwnerID)
	})

	t.Run("validation", func(t *testing.T) {
		start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
		end := start.Add(-24 * time.Hour)

		cases := map[string]*project.CreateProjectRequest{
			"blank name":       {Name: "  ", Priority: project.PriorityLow, TeamID: "T1"},
			"missing team":     {Name: "X", Priority: project.PriorityLow},
			"unknown priority": {Name: "X", Priority: "urgent", TeamID: "T1"},
			"end before start": {Name: "X", Priority: project.PriorityLow, TeamID: "T1", StartDate: &start, EndDate: &end},
		}
		for name, req := range cases {
			t.Run(name, func(t *testing.T) {
				_, err := svc.Create(ctx, req)
				require.Error(t, err)
				assert.True(t, perrors.HasCode(err, perrors.ErrCodeInvalidRequest))
			})
		}
	})
}

func TestListProjectsPaging(t *testing.T) {
	store := memstore.New()
	svc, _ := newProjectService(store)
	_, ctx := store.AddUser(user.User{Name: "Olive", Email: "olive@example.com"})

	var created []uuid.UUID
	for _, name := range []string{"a", "b", "c", "d", "e"} {
		p, err := svc.Create(ctx, &project.CreateProjectRequest{Name: name, Priority: project.PriorityMedium, TeamID: "T1"})
		require.NoError(t, err)
		created = append(created, p.ID)
	}
	_, err := svc.Create(ctx, &project.CreateProjectRequest{Name: "other team", Priority: project.PriorityMedium, TeamID: "T2"})
	require.NoError(t, err)

	var seen []uuid.UUID
	cursor := ""
	pages := 0
	for {
		page, err := svc.List(ctx, &project.ListProjectsRequest{TeamID: "T1", Cursor: cursor, Limit: 2})
		require.NoError(t, err)
		pages++
		for _, p := range page.Items {
			seen = append(seen, p.ID)
		}
		if page.NextCursor == "" {
			break
		}
		cursor = page.NextCursor
	}

	assert.Equal(t, 3, pages)
	// newest first
	assert.Equal(t, []uuid.UUID{created[4], created[3], created[2], created[1], created[0]}, seen)

	_, err = svc.List(ctx, &project.ListProjectsRequest{Cursor: "not-a-cursor"})
	assert.True(t, perrors.HasCode(err, perrors.ErrCodeInvalidRequest))
}

func TestCursorRoundTrip(t *testing.T) {
	c := project.Cursor{CreatedAt: time.Date(2026, 1, 1, 12, 0, 0, 1234, time.UTC), ID: uuid.New()}
	got, err := project.DecodeCursor(c.Encode())
	require.NoError(t, err)
	assert.True(t, c.CreatedAt.Equal(got.CreatedAt))
	assert.Equal(t, c.ID, got.ID)
}

func TestUpdateProject(t *testing.T) {
	store := memstore.New()
	svc, _ := newProjectService(store)
	_, ctx := store.AddUser(user.User{Name: "Olive", Email: "olive@example.com"})

	p, err := svc.Create(ctx, &project.CreateProjectRequest{Name: "Roadmap", Priority: project.PriorityHigh, TeamID: "T1"})
	require.NoError(t, err)

	status := project.StatusOnHold
	updated, err := svc.Update(ctx, p.ID, &project.UpdateProjectRequest{Status: &status})
	require.NoError(t, err)
	assert.Equal(t, project.StatusOnHold, updated.Status)
	assert.Equal(t, "Roadmap", updated.Name)
	assert.Equal(t, project.PriorityHigh, updated.Priority)

	_, err = svc.Update(context.Background(), p.ID, &project.UpdateProjectRequest{Status: &status})
	assert.True(t, perrors.HasCode(err, perrors.ErrCodeUnauthorized))

	_, err = svc.Update(ctx, uuid.New(), &project.UpdateProjectRequest{Status: &status})
	assert.True(t, perrors.HasCode(err, perrors.ErrCodeNotFound))
}

func TestUpdateProjectPolicy(t *testing.T) {
	store := memstore.New()
	svc, _ := newProjectService(store)
	_, ownerCtx := store.AddUser(user.User{Name: "Olive", Email: "olive@example.com"})
	_, outsiderCtx := store.AddUser(user.User{Name: "Max", Email: "max@example.com"})
	_, viewerCtx := store.AddUser(user.User{Name: "Vic", Email: "vic@example.com"})
	_, editorCtx := store.AddUser(user.User{Name: "Ed", Email: "ed@example.com"})
	_, adminCtx := store.AddUser(user.User{Name: "Ada", Email: "ada@example.com", Role: user.RoleAdmin})

	p, err := svc.Create(ownerCtx, &project.CreateProjectRequest{Name: "Roadmap", Priority: project.PriorityHigh, TeamID: "T1"})
	require.NoError(t, err)

	for email, perms := range map[string][]string{"vic@example.com": {"view", "comment"}, "ed@example.com": {"edit"}} {
		_, err := store.Guests().Create(context.Background(), &guest.Guest{ProjectID: p.ID, Email: email, Permissions: perms, Status: guest.StatusActive})
		require.NoError(t, err)
	}

	name := "Renamed"
	tests := map[string]struct {
		ctx     context.Context
		allowed bool
	}{
		"owner":            {ownerCtx, true},
		"team admin":       {adminCtx, true},
		"guest with edit":  {editorCtx, true},
		"guest view only":  {viewerCtx, false},
		"unrelated member": {outsiderCtx, false},
	}
	for desc, tc := range tests {
		t.Run(desc, func(t *testing.T) {
			_, err := svc.Update(tc.ctx, p.ID, &project.UpdateProjectRequest{Name: &name})
			if tc.allowed {
				assert.NoError(t, err)
			} else {
				assert.True(t, perrors.HasCode(err, perrors.ErrCodeForbidden))
			}
		})
	}
}

func TestCanEdit(t *testing.T) {
	ownerID := uuid.New()
	p := &project.Project{OwnerID: &ownerID}
	member := &user.User{ID: uuid.New(), Role: user.RoleMember}

	assert.False(t, project.CanEdit(nil, p, []string{"edit"}))
	assert.True(t, project.CanEdit(&user.User{ID: ownerID}, p, nil))
	assert.True(t, project.CanEdit(member, p, []string{"view", "edit"}))
	assert.True(t, project.CanEdit(member, p, []string{"admin"}))
	assert.False(t, project.CanEdit(member, p, []string{"view", "comment", "invite"}))
	assert.False(t, project.CanEdit(member, &project.Project{}, nil))
}

func TestDeleteProject(t *testing.T) {
	store := memstore.New()
	svc, objects := newProjectService(store)
	owner, ownerCtx := store.AddUser(user.User{Name: "Olive", Email: "olive@example.com"})
	_, memberCtx := store.AddUser(user.User{Name: "Max", Email: "max@example.com"})
	_, adminCtx := store.AddUser(user.User{Name: "Ada", Email: "ada@example.com", Role: user.RoleAdmin})

	p, err := svc.Create(ownerCtx, &project.CreateProjectRequest{Name: "Roadmap", Priority: project.PriorityHigh, TeamID: "T1"})
	require.NoError(t, err)

	tk, err := store.Tasks().CreateTask(context.Background(), &task.Task{ProjectID: p.ID, Title: "T", Status: task.StatusTodo, Priority: task.PriorityLow})
	require.NoError(t, err)
	expires := time.Now().Add(time.Hour)
	require.NoError(t, store.Files().Reserve(context.Background(), "obj-1", owner.ID, expires))
	require.NoError(t, store.Files().Reserve(context.Background(), "obj-2", owner.ID, expires))
	_, err = store.Files().Save(context.Background(), &file.File{StorageID: "obj-1", FileName: "a.png", ProjectID: &p.ID, TaskID: &tk.ID, UploadedBy: owner.ID}, nil)
	require.NoError(t, err)
	_, err = store.Files().Save(context.Background(), &file.File{StorageID: "obj-2", FileName: "b.png", ProjectID: &p.ID, UploadedBy: owner.ID}, nil)
	require.NoError(t, err)

	err = svc.Delete(memberCtx, p.ID)
	require.Error(t, err)
	assert.True(t, perrors.HasCode(err, perrors.ErrCodeForbidden))

	require.NoError(t, svc.Delete(adminCtx, p.ID))

	_, err = svc.GetByID(ownerCtx, p.ID)
	assert.True(t, perrors.HasCode(err, perrors.ErrCodeNotFound))
	_, err = store.Tasks().GetTask(context.Background(), tk.ID)
	assert.ErrorIs(t, err, task.ErrTaskNotFound)
	assert.ElementsMatch(t, []string{"obj-1", "obj-2"}, objects.ids)
}

func TestCanDelete(t *testing.T) {
	ownerID := uuid.New()
	p := &project.Project{OwnerID: &ownerID}

	assert.False(t, project.CanDelete(nil, p))
	assert.True(t, project.CanDelete(&user.User{ID: ownerID, Role: user.RoleMember}, p))
	assert.False(t, project.CanDelete(&user.User{ID: uuid.New(), Role: user.RoleMember}, p))
	assert.True(t, project.CanDelete(&user.User{ID: uuid.New(), Role: user.RoleAdmin}, p))
	assert.True(t, project.CanDelete(&user.User{ID: uuid.New(), SystemRole: user.SystemRoleSuperAdmin}, p))
}

func TestProjectStats(t *testing.T) {
	store := memstore.New()
	svc, _ := newProjectService(store)
	_, ctx := store.AddUser(user.User{Name: "Olive", Email: "olive@example.com"})

	p, err := svc.Create(ctx, &project.CreateProjectRequest{Name: "Roadmap", Priority: project.PriorityHigh, TeamID: "T1"})
	require.NoError(t, err)

	past := time.Now().Add(-48 * time.Hour)
	for _, st := range []task.Status{task.StatusTodo, task.StatusInProgress, task.StatusDone} {
		_, err := store.Tasks().CreateTask(context.Background(), &task.Task{ProjectID: p.ID, Title: string(st), Status: st, Priority: task.PriorityLow, DueDate: &past})
		require.NoError(t, err)
	}

	stats, err := svc.Stats(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.TotalTasks)
	assert.Equal(t, 1, stats.InProgress)
	assert.Equal(t, 1, stats.Done)
	assert.Equal(t, 2, stats.Overdue)
}
