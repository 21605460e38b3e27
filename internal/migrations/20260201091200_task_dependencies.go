package migrations

import "github.com/jmoiron/sqlx"

func init() {
	register("20260201091200", "task_dependencies", taskDependenciesUp, taskDependenciesDown)
}

func taskDependenciesUp(tx *sqlx.Tx) error {
	_, err := tx.Exec(`
        CREATE TABLE IF NOT EXISTS task_dependencies (
            id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
            task_id UUID NOT NULL REFERENCES tasks(id) ON DELETE CASCADE,
            depends_on_task_id UUID NOT NULL REFERENCES tasks(id) ON DELETE CASCADE,
            type VARCHAR(2) NOT NULL DEFAULT 'FS',
            created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
            CONSTRAINT chk_task_dependencies_not_self CHECK (task_id <> depends_on_task_id)
        );

        CREATE UNIQUE INDEX IF NOT EXISTS uq_task_dependencies_pair ON task_dependencies(task_id, depends_on_task_id);
        CREATE INDEX IF NOT EXISTS idx_task_dependencies_depends_on ON task_dependencies(depends_on_task_id);
    `)
	return err
}

func taskDependenciesDown(tx *sqlx.Tx) error {
	_, err := tx.Exec(`DROP TABLE IF EXISTS task_dependencies;`)
	return err
}
