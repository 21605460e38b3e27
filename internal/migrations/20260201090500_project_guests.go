package migrations

import "github.com/jmoiron/sqlx"

func init() {
	register("20260201090500", "project_guests", projectGuestsUp, projectGuestsDown)
}

func projectGuestsUp(tx *sqlx.Tx) error {
	_, err := tx.Exec(`
        CREATE TABLE IF NOT EXISTS project_guests (
            id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
            project_id UUID NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
            email VARCHAR(255) NOT NULL,
            user_id UUID REFERENCES users(id) ON DELETE SET NULL,
            permissions TEXT[] NOT NULL DEFAULT '{}',
            status VARCHAR(50) NOT NULL DEFAULT 'pending' CHECK (status IN ('pending', 'active', 'revoked')),
            invited_by UUID NOT NULL REFERENCES users(id),
            created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
            updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
        );

        CREATE UNIQUE INDEX IF NOT EXISTS uq_project_guests_project_email ON project_guests(project_id, lower(email));
        CREATE INDEX IF NOT EXISTS idx_project_guests_email ON project_guests(lower(email));
        CREATE INDEX IF NOT EXISTS idx_project_guests_user ON project_guests(user_id);
    `)
	return err
}

func projectGuestsDown(tx *sqlx.Tx) error {
	_, err := tx.Exec(`DROP TABLE IF EXISTS project_guests;`)
	return err
}
