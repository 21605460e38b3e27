package migrations

import "github.com/jmoiron/sqlx"

func init() {
	register("20260201090400", "project_comments", projectCommentsUp, projectCommentsDown)
}

func projectCommentsUp(tx *sqlx.Tx) error {
	_, err := tx.Exec(`
        CREATE TABLE IF NOT EXISTS project_comments (
            id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
            project_id UUID NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
            user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
            content TEXT NOT NULL,
            parent_comment_id UUID REFERENCES project_comments(id) ON DELETE CASCADE,
            files TEXT[] NOT NULL DEFAULT '{}',
            created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
            updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
        );

        CREATE INDEX IF NOT EXISTS idx_project_comments_project ON project_comments(project_id, created_at DESC);
        CREATE INDEX IF NOT EXISTS idx_project_comments_parent ON project_comments(parent_comment_id);
    `)
	return err
}

func projectCommentsDown(tx *sqlx.Tx) error {
	_, err := tx.Exec(`DROP TABLE IF EXISTS project_comments;`)
	return err
}
