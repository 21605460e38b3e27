package migrations

import "github.com/jmoiron/sqlx"

func init() {
	register("20260201090300", "approvals", approvalsUp, approvalsDown)
}

// Approvals are only counted by the stats endpoint for now.
func approvalsUp(tx *sqlx.Tx) error {
	_, err := tx.Exec(`
        CREATE TABLE IF NOT EXISTS approvals (
            id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
            title VARCHAR(500) NOT NULL,
            project_id UUID REFERENCES projects(id) ON DELETE CASCADE,
            task_id UUID REFERENCES tasks(id) ON DELETE CASCADE,
            requester_id UUID NOT NULL REFERENCES users(id),
            status VARCHAR(50) NOT NULL DEFAULT 'pending',
            created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
            updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
        );

        CREATE INDEX IF NOT EXISTS idx_approvals_status ON approvals(status);
    `)
	return err
}

func approvalsDown(tx *sqlx.Tx) error {
	_, err := tx.Exec(`DROP TABLE IF EXISTS approvals;`)
	return err
}
