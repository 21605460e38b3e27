package migrations

import "github.com/jmoiron/sqlx"

func init() {
	register("20260201090800", "custom_statuses", customStatusesUp, customStatusesDown)
}

func customStatusesUp(tx *sqlx.Tx) error {
	_, err := tx.Exec(`
        CREATE TABLE IF NOT EXISTS custom_statuses (
            id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
            type VARCHAR(20) NOT NULL CHECK (type IN ('task', 'project')),
            slug VARCHAR(100) NOT NULL,
            label VARCHAR(255) NOT NULL,
            color VARCHAR(50) NOT NULL,
            is_default BOOLEAN NOT NULL DEFAULT FALSE,
            "order" INTEGER NOT NULL DEFAULT 0,
            team_id TEXT,
            created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
            updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
        );

        CREATE INDEX IF NOT EXISTS idx_custom_statuses_type ON custom_statuses(type);
        CREATE INDEX IF NOT EXISTS idx_custom_statuses_team ON custom_statuses(team_id);
    `)
	if err != nil {
		return err
	}

	// Global task workflow
	_, err = tx.Exec(`
        INSERT INTO custom_statuses (type, slug, label, color, is_default, "order") VALUES
            ('task', 'todo', 'To Do', '#94a3b8', TRUE, 0),
            ('task', 'in_progress', 'In Progress', '#3b82f6', FALSE, 1),
            ('task', 'in_review', 'In Review', '#a855f7', FALSE, 2),
            ('task', 'done', 'Done', '#22c55e', FALSE, 3),
            ('task', 'blocked', 'Blocked', '#ef4444', FALSE, 4);
    `)
	return err
}

func customStatusesDown(tx *sqlx.Tx) error {
	_, err := tx.Exec(`DROP TABLE IF EXISTS custom_statuses;`)
	return err
}
