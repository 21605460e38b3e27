// Package dbtest opens a migrated postgres database for repository tests.
// Tests are skipped unless WORKBOARD_TEST_DSN is set.
package dbtest

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"

	"github.com/curaious/workboard/internal/migrations"
	"github.com/curaious/workboard/internal/services/project"
	"github.com/curaious/workboard/internal/services/task"
	"github.com/curaious/workboard/internal/services/user"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/require"
)

const EnvDSN = "WORKBOARD_TEST_DSN"

var (
	migrateOnce sync.Once
	migrateErr  error
)

// Open connects to the test database and applies every pending migration
// once per test binary.
func Open(t testing.TB) *sqlx.DB {
	t.Helper()

	dsn := os.Getenv(EnvDSN)
	if dsn == "" {
		t.Skipf("%s not set", EnvDSN)
	}

	conn, err := sqlx.Open("postgres", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.NoError(t, conn.Ping())

	migrateOnce.Do(func() {
		ctx := context.Background()
		m, err := migrations.New(ctx, conn)
		if err != nil {
			migrateErr = err
			return
		}
		_, migrateErr = m.Up(ctx, 0)
	})
	require.NoError(t, migrateErr)
	return conn
}

// User inserts a member with a unique email.
func User(t testing.TB, conn *sqlx.DB, name string) *user.User {
	t.Helper()

	u, err := user.NewUserRepo(conn).Create(context.Background(), &user.User{
		ID:         uuid.New(),
		Name:       name,
		Email:      fmt.Sprintf("%s-%s@example.com", name, uuid.NewString()[:8]),
		Role:       user.RoleMember,
		SystemRole: user.SystemRoleUser,
	})
	require.NoError(t, err)
	return u
}

func Project(t testing.TB, conn *sqlx.DB, owner *user.User) *project.Project {
	t.Helper()

	p, err := project.NewProjectRepo(conn).Create(context.Background(), &project.Project{
		Name:     "Project " + uuid.NewString()[:8],
		Priority: project.PriorityMedium,
		Status:   project.StatusActive,
		TeamID:   "team-" + uuid.NewString()[:8],
		OwnerID:  &owner.ID,
	})
	require.NoError(t, err)
	return p
}

func Task(t testing.TB, conn *sqlx.DB, p *project.Project, title string) *task.Task {
	t.Helper()

	created, err := task.NewTaskRepo(conn).CreateTask(context.Background(), &task.Task{
		ProjectID: p.ID,
		Title:     title,
		Status:    task.StatusTodo,
		Priority:  task.PriorityMedium,
		CreatorID: p.OwnerID,
		Tags:      []string{},
	})
	require.NoError(t, err)
	return created
}
