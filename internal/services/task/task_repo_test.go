package task_test

import (
	"context"
	"testing"

	"github.com/curaious/workboard/internal/dbtest"
	"github.com/curaious/workboard/internal/services/task"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTaskRepoDependencies(t *testing.T) {
	conn := dbtest.Open(t)
	repo := task.NewTaskRepo(conn)
	ctx := context.Background()

	olive := dbtest.User(t, conn, "olive")
	p := dbtest.Project(t, conn, olive)
	design := dbtest.Task(t, conn, p, "Design")
	build := dbtest.Task(t, conn, p, "Build")
	ship := dbtest.Task(t, conn, p, "Ship")

	first, err := repo.CreateDependency(ctx, &task.Dependency{TaskID: build.ID, DependsOnTaskID: design.ID, Type: task.FinishToStart})
	require.NoError(t, err)
	_, err = repo.CreateDependency(ctx, &task.Dependency{TaskID: ship.ID, DependsOnTaskID: build.ID, Type: task.FinishToStart})
	require.NoError(t, err)

	t.Run("pair is unique", func(t *testing.T) {
		_, err := repo.CreateDependency(ctx, &task.Dependency{TaskID: build.ID, DependsOnTaskID: design.ID, Type: task.StartToStart})
		assert.ErrorIs(t, err, task.ErrDependencyExists)
	})

	t.Run("reachability follows the chain", func(t *testing.T) {
		found, err := repo.DependsOn(ctx, ship.ID, design.ID)
		require.NoError(t, err)
		assert.True(t, found)

		found, err = repo.DependsOn(ctx, design.ID, ship.ID)
		require.NoError(t, err)
		assert.False(t, found)
	})

	t.Run("both directions list", func(t *testing.T) {
		deps, err := repo.ListDependencies(ctx, build.ID)
		require.NoError(t, err)
		require.Len(t, deps, 1)
		assert.Equal(t, design.ID, deps[0].DependsOnTaskID)

		dependents, err := repo.ListDependents(ctx, build.ID)
		require.NoError(t, err)
		require.Len(t, dependents, 1)
		assert.Equal(t, ship.ID, dependents[0].TaskID)
	})

	t.Run("type changes", func(t *testing.T) {
		updated, err := repo.UpdateDependencyType(ctx, first.ID, task.FinishToFinish)
		require.NoError(t, err)
		assert.Equal(t, task.FinishToFinish, updated.Type)
	})

	t.Run("deleting a task drops its edges", func(t *testing.T) {
		_, err := repo.DeleteTask(ctx, build.ID)
		require.NoError(t, err)

		_, err = repo.GetDependency(ctx, first.ID)
		assert.ErrorIs(t, err, task.ErrDependencyNotFound)

		deps, err := repo.ListDependencies(ctx, ship.ID)
		require.NoError(t, err)
		assert.Empty(t, deps)
	})
}
