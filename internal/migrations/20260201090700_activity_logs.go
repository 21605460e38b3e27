package migrations

import "github.com/jmoiron/sqlx"

func init() {
	register("20260201090700", "activity_logs", activityLogsUp, activityLogsDown)
}

func activityLogsUp(tx *sqlx.Tx) error {
	_, err := tx.Exec(`
        CREATE TABLE IF NOT EXISTS activity_logs (
            id UUID PRIMARY KEY,
            user_id UUID NOT NULL,
            action VARCHAR(100) NOT NULL,
            entity_type VARCHAR(50) NOT NULL,
            entity_id TEXT,
            details JSONB,
            created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
        );

        CREATE INDEX IF NOT EXISTS idx_activity_logs_created ON activity_logs(created_at DESC);
        CREATE INDEX IF NOT EXISTS idx_activity_logs_user ON activity_logs(user_id);
        CREATE INDEX IF NOT EXISTS idx_activity_logs_entity ON activity_logs(entity_type, entity_id);
    `)
	if err != nil {
		return err
	}

	_, err = tx.Exec(`
        CREATE TABLE IF NOT EXISTS activity_outbox (
            id UUID PRIMARY KEY,
            user_id UUID NOT NULL,
            action VARCHAR(100) NOT NULL,
            entity_type VARCHAR(50) NOT NULL,
            entity_id TEXT,
            details JSONB,
            created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
        );

        CREATE INDEX IF NOT EXISTS idx_activity_outbox_created ON activity_outbox(created_at);
    `)
	if err != nil {
		return err
	}

	// activity_logs is append-only
	_, err = tx.Exec(`
        CREATE OR REPLACE FUNCTION activity_logs_immutable() RETURNS trigger AS $$
        BEGIN
            RAISE EXCEPTION 'activity_logs rows are immutable';
        END;
        $$ LANGUAGE plpgsql;

        DROP TRIGGER IF EXISTS trg_activity_logs_immutable ON activity_logs;
        CREATE TRIGGER trg_activity_logs_immutable
            BEFORE UPDATE ON activity_logs
            FOR EACH ROW EXECUTE FUNCTION activity_logs_immutable();
    `)
	return err
}

func activityLogsDown(tx *sqlx.Tx) error {
	_, err := tx.Exec(`
        DROP TABLE IF EXISTS activity_outbox;
        DROP TABLE IF EXISTS activity_logs;
        DROP FUNCTION IF EXISTS activity_logs_immutable();
    `)
	return err
}
