package task_test

import (
	"context"
	"testing"

	"github.com/curaious/workboard/internal/perrors"
	"github.com/curaious/workboard/internal/services/project"
	"github.com/curaious/workboard/internal/services/task"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (f *fixture) newTask(t *testing.T, title string) *task.Task {
	t.Helper()

	created, err := f.svc.Create(f.ctx, &task.CreateTaskRequest{ProjectID: f.project.ID, Title: title})
	require.NoError(t, err)
	return created
}

func TestAddDependency(t *testing.T) {
	f := newFixture(t)
	design := f.newTask(t, "design")
	build := f.newTask(t, "build")

	dep, err := f.svc.AddDependency(f.ctx, &task.AddDependencyRequest{TaskID: build.ID, DependsOnTaskID: design.ID})
	require.NoError(t, err)
	assert.Equal(t, task.FinishToStart, dep.Type)

	deps, err := f.svc.ListDependencies(f.ctx, build.ID)
	require.NoError(t, err)
	require.Len(t, deps, 1)
	require.NotNil(t, deps[0].Task)
	assert.Equal(t, design.ID, deps[0].Task.ID)

	dependents, err := f.svc.ListDependents(f.ctx, design.ID)
	require.NoError(t, err)
	require.Len(t, dependents, 1)
	assert.Equal(t, build.ID, dependents[0].Task.ID)

	_, err = f.svc.AddDependency(f.ctx, &task.AddDependencyRequest{TaskID: build.ID, DependsOnTaskID: design.ID})
	assert.True(t, perrors.HasCode(err, perrors.ErrCodeConflict))

	empty, err := f.svc.ListDependencies(f.ctx, design.ID)
	require.NoError(t, err)
	assert.Empty(t, empty)

	_, err = f.svc.ListDependencies(f.ctx, uuid.New())
	assert.True(t, perrors.HasCode(err, perrors.ErrCodeNotFound))
}

func TestAddDependencyRejectsInvalidEdges(t *testing.T) {
	f := newFixture(t)
	a := f.newTask(t, "a")
	b := f.newTask(t, "b")
	c := f.newTask(t, "c")

	_, err := f.svc.AddDependency(f.ctx, &task.AddDependencyRequest{TaskID: a.ID, DependsOnTaskID: a.ID})
	assert.True(t, perrors.HasCode(err, perrors.ErrCodeInvalidRequest))

	bogus := task.DependencyType("XX")
	_, err = f.svc.AddDependency(f.ctx, &task.AddDependencyRequest{TaskID: a.ID, DependsOnTaskID: b.ID, Type: &bogus})
	assert.True(t, perrors.HasCode(err, perrors.ErrCodeInvalidRequest))

	_, err = f.svc.AddDependency(f.ctx, &task.AddDependencyRequest{TaskID: b.ID, DependsOnTaskID: a.ID})
	require.NoError(t, err)
	_, err = f.svc.AddDependency(f.ctx, &task.AddDependencyRequest{TaskID: c.ID, DependsOnTaskID: b.ID})
	require.NoError(t, err)

	// a <- b <- c, so a waiting on c closes a loop.
	_, err = f.svc.AddDependency(f.ctx, &task.AddDependencyRequest{TaskID: a.ID, DependsOnTaskID: c.ID})
	assert.True(t, perrors.HasCode(err, perrors.ErrCodeInvalidRequest))

	other, err := f.store.Projects().Create(context.Background(), &project.Project{Name: "Other", Priority: project.PriorityLow, Status: project.StatusActive, TeamID: "T1"})
	require.NoError(t, err)
	foreign, err := f.store.Tasks().CreateTask(context.Background(), &task.Task{ProjectID: other.ID, Title: "foreign", Status: task.StatusTodo, Priority: task.PriorityLow})
	require.NoError(t, err)
	_, err = f.svc.AddDependency(f.ctx, &task.AddDependencyRequest{TaskID: a.ID, DependsOnTaskID: foreign.ID})
	assert.True(t, perrors.HasCode(err, perrors.ErrCodeInvalidRequest))

	_, err = f.svc.AddDependency(context.Background(), &task.AddDependencyRequest{TaskID: a.ID, DependsOnTaskID: c.ID})
	assert.True(t, perrors.HasCode(err, perrors.ErrCodeUnauthorized))
}

func TestUpdateAndRemoveDependency(t *testing.T) {
	f := newFixture(t)
	a := f.newTask(t, "a")
	b := f.newTask(t, "b")
	viewerCtx := f.addGuest(t, "Vic", "view")

	dep, err := f.svc.AddDependency(f.ctx, &task.AddDependencyRequest{TaskID: b.ID, DependsOnTaskID: a.ID})
	require.NoError(t, err)

	_, err = f.svc.UpdateDependency(f.ctx, dep.ID, &task.UpdateDependencyRequest{Type: "ZZ"})
	assert.True(t, perrors.HasCode(err, perrors.ErrCodeInvalidRequest))

	_, err = f.svc.UpdateDependency(viewerCtx, dep.ID, &task.UpdateDependencyRequest{Type: task.StartToStart})
	assert.True(t, perrors.HasCode(err, perrors.ErrCodeForbidden))

	updated, err := f.svc.UpdateDependency(f.ctx, dep.ID, &task.UpdateDependencyRequest{Type: task.StartToStart})
	require.NoError(t, err)
	assert.Equal(t, task.StartToStart, updated.Type)

	err = f.svc.RemoveDependency(viewerCtx, dep.ID)
	assert.True(t, perrors.HasCode(err, perrors.ErrCodeForbidden))

	require.NoError(t, f.svc.RemoveDependency(f.ctx, dep.ID))
	err = f.svc.RemoveDependency(f.ctx, dep.ID)
	assert.True(t, perrors.HasCode(err, perrors.ErrCodeNotFound))
}

func TestDeleteTaskDropsDependencies(t *testing.T) {
	f := newFixture(t)
	a := f.newTask(t, "a")
	b := f.newTask(t, "b")

	_, err := f.svc.AddDependency(f.ctx, &task.AddDependencyRequest{TaskID: b.ID, DependsOnTaskID: a.ID})
	require.NoError(t, err)

	require.NoError(t, f.svc.Delete(f.ctx, a.ID))

	deps, err := f.svc.ListDependencies(f.ctx, b.ID)
	require.NoError(t, err)
	assert.Empty(t, deps)
}
