package migrations

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"text/template"
	"time"

	"github.com/curaious/workboard/internal/config"
	"github.com/curaious/workboard/internal/db"
	"github.com/jmoiron/sqlx"
)

// lockKey serializes migrators running against the same database.
const lockKey = 7_241_530_011

const versionLayout = "20060102150405"

type step func(*sqlx.Tx) error

type migration struct {
	version string
	name    string
	up      step
	down    step
}

var registry = map[string]*migration{}

// register is called from the init func of every migration file.
func register(version, name string, up, down step) {
	if _, dup := registry[version]; dup {
		panic(fmt.Sprintf("migration %s registered twice", version))
	}
	registry[version] = &migration{version: version, name: name, up: up, down: down}
}

// sorted returns the registered migrations, oldest first.
func sorted() []*migration {
	all := make([]*migration, 0, len(registry))
	for _, mg := range registry {
		all = append(all, mg)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].version < all[j].version })
	return all
}

type Direction int

const (
	Up Direction = iota
	Down
)

// plan picks the migrations a run in dir would execute, in execution order.
// A limit of 0 means no limit.
func plan(all []*migration, applied map[string]time.Time, dir Direction, limit int) []*migration {
	var out []*migration
	if dir == Up {
		for _, mg := range all {
			if _, ok := applied[mg.version]; !ok {
				out = append(out, mg)
			}
		}
	} else {
		for i := len(all) - 1; i >= 0; i-- {
			if _, ok := applied[all[i].version]; ok {
				out = append(out, all[i])
			}
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Status is one row of the migration status report.
type Status struct {
	Version   string
	Name      string
	AppliedAt *time.Time
}

// Migrator runs the registered migrations and tracks them in
// metadata.schema_migrations.
type Migrator struct {
	db      *sqlx.DB
	applied map[string]time.Time
}

func NewMigrator(conf *config.Config) (*Migrator, error) {
	return New(context.Background(), db.NewConn(conf))
}

// New builds a Migrator on an open connection.
func New(ctx context.Context, conn *sqlx.DB) (*Migrator, error) {
	mg := &Migrator{db: conn}
	if err := mg.prepare(ctx); err != nil {
		return nil, err
	}
	return mg, nil
}

func (m *Migrator) prepare(ctx context.Context) error {
	if _, err := m.db.ExecContext(ctx, `
		CREATE SCHEMA IF NOT EXISTS metadata;
		CREATE TABLE IF NOT EXISTS metadata.schema_migrations (version VARCHAR(255) NOT NULL);
		ALTER TABLE metadata.schema_migrations ADD COLUMN IF NOT EXISTS applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW();
	`); err != nil {
		return fmt.Errorf("failed to prepare migration table: %w", err)
	}

	var rows []struct {
		Version   string    `db:"version"`
		AppliedAt time.Time `db:"applied_at"`
	}
	if err := m.db.SelectContext(ctx, &rows, `SELECT version, applied_at FROM metadata.schema_migrations`); err != nil {
		return fmt.Errorf("failed to read applied migrations: %w", err)
	}

	m.applied = make(map[string]time.Time, len(rows))
	for _, r := range rows {
		m.applied[r.Version] = r.AppliedAt
	}
	return nil
}

func (m *Migrator) Status() []Status {
	all := sorted()
	out := make([]Status, 0, len(all))
	for _, mg := range all {
		st := Status{Version: mg.version, Name: mg.name}
		if at, ok := m.applied[mg.version]; ok {
			st.AppliedAt = &at
		}
		out = append(out, st)
	}
	return out
}

// Up applies pending migrations, at most limit of them when limit > 0.
func (m *Migrator) Up(ctx context.Context, limit int) (int, error) {
	return m.run(ctx, Up, limit)
}

// Down reverts applied migrations newest first, at most limit when limit > 0.
func (m *Migrator) Down(ctx context.Context, limit int) (int, error) {
	return m.run(ctx, Down, limit)
}

// run executes a plan in one transaction, so a failing step leaves the
// schema as it was.
func (m *Migrator) run(ctx context.Context, dir Direction, limit int) (int, error) {
	tx, err := m.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin migration transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, lockKey); err != nil {
		return 0, fmt.Errorf("failed to take migration lock: %w", err)
	}

	todo := plan(sorted(), m.applied, dir, limit)
	for _, mg := range todo {
		l := slog.With(slog.String("version", mg.version), slog.String("name", mg.name))

		if dir == Up {
			l.InfoContext(ctx, "Applying migration")
			if err := mg.up(tx); err != nil {
				return 0, fmt.Errorf("migration %s_%s failed: %w", mg.version, mg.name, err)
			}
			if _, err := tx.ExecContext(ctx, `INSERT INTO metadata.schema_migrations (version) VALUES ($1)`, mg.version); err != nil {
				return 0, fmt.Errorf("failed to record migration %s: %w", mg.version, err)
			}
		} else {
			l.InfoContext(ctx, "Reverting migration")
			if err := mg.down(tx); err != nil {
				return 0, fmt.Errorf("revert of %s_%s failed: %w", mg.version, mg.name, err)
			}
			if _, err := tx.ExecContext(ctx, `DELETE FROM metadata.schema_migrations WHERE version = $1`, mg.version); err != nil {
				return 0, fmt.Errorf("failed to unrecord migration %s: %w", mg.version, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit migrations: %w", err)
	}

	now := time.Now()
	for _, mg := range todo {
		if dir == Up {
			m.applied[mg.version] = now
		} else {
			delete(m.applied, mg.version)
		}
	}
	return len(todo), nil
}

//go:embed template.txt
var fileTemplate string

var titlePattern = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// Create writes an empty migration named title into dir and returns its path.
func Create(dir, title string, now time.Time) (string, error) {
	if !titlePattern.MatchString(title) {
		return "", fmt.Errorf("migration name %q must be snake_case", title)
	}

	words := strings.Split(title, "_")
	for i := 1; i < len(words); i++ {
		if words[i] != "" {
			words[i] = strings.ToUpper(words[i][:1]) + words[i][1:]
		}
	}

	version := now.UTC().Format(versionLayout)
	var out bytes.Buffer
	err := template.Must(template.New("migration").Parse(fileTemplate)).Execute(&out, map[string]string{
		"Version": version,
		"Title":   title,
		"Func":    strings.Join(words, ""),
	})
	if err != nil {
		return "", fmt.Errorf("failed to render migration: %w", err)
	}

	path := filepath.Join(dir, version+"_"+title+".go")
	if err := os.WriteFile(path, out.Bytes(), 0o644); err != nil {
		return "", fmt.Errorf("failed to write migration: %w", err)
	}
	return path, nil
}
