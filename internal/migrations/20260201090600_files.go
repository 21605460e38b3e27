package migrations

import "github.com/jmoiron/sqlx"

func init() {
	register("20260201090600", "files", filesUp, filesDown)
}

func filesUp(tx *sqlx.Tx) error {
	_, err := tx.Exec(`
        CREATE TABLE IF NOT EXISTS files (
            id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
            storage_id TEXT NOT NULL,
            file_name VARCHAR(1024) NOT NULL,
            file_type VARCHAR(255) NOT NULL,
            file_size BIGINT NOT NULL CHECK (file_size >= 0),
            project_id UUID REFERENCES projects(id) ON DELETE CASCADE,
            task_id UUID REFERENCES tasks(id) ON DELETE CASCADE,
            uploaded_by UUID NOT NULL REFERENCES users(id),
            created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
            deleted_at TIMESTAMP WITH TIME ZONE,
            CHECK (project_id IS NOT NULL OR task_id IS NOT NULL)
        );

        CREATE INDEX IF NOT EXISTS idx_files_task ON files(task_id) WHERE deleted_at IS NULL;
        CREATE INDEX IF NOT EXISTS idx_files_project ON files(project_id) WHERE deleted_at IS NULL;
        CREATE INDEX IF NOT EXISTS idx_files_deleted ON files(deleted_at) WHERE deleted_at IS NOT NULL;
    `)
	return err
}

func filesDown(tx *sqlx.Tx) error {
	_, err := tx.Exec(`DROP TABLE IF EXISTS files;`)
	return err
}
