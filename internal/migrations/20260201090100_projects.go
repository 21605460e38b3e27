package migrations

import "github.com/jmoiron/sqlx"

func init() {
	register("20260201090100", "projects", projectsUp, projectsDown)
}

func projectsUp(tx *sqlx.Tx) error {
	_, err := tx.Exec(`
        CREATE TABLE IF NOT EXISTS projects (
            id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
            name VARCHAR(255) NOT NULL,
            description TEXT,
            priority VARCHAR(50) NOT NULL,
            status VARCHAR(50) NOT NULL DEFAULT 'active',
            start_date TIMESTAMP WITH TIME ZONE,
            end_date TIMESTAMP WITH TIME ZONE,
            team_id TEXT NOT NULL,
            owner_id UUID REFERENCES users(id) ON DELETE SET NULL,
            color VARCHAR(32),
            created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
            updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
        );
    `)
	if err != nil {
		return err
	}

	_, err = tx.Exec(`
        CREATE INDEX IF NOT EXISTS idx_projects_created ON projects(created_at DESC, id DESC);
        CREATE INDEX IF NOT EXISTS idx_projects_team ON projects(team_id, created_at DESC, id DESC);
        CREATE INDEX IF NOT EXISTS idx_projects_status ON projects(status);
    `)
	return err
}

func projectsDown(tx *sqlx.Tx) error {
	_, err := tx.Exec(`DROP TABLE IF EXISTS projects;`)
	return err
}
