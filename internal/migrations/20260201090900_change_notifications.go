package migrations

import (
	"fmt"

	"github.com/jmoiron/sqlx"
)

func init() {
	register("20260201090900", "change_notifications", changeNotificationsUp, changeNotificationsDown)
}

var notifiedTables = []string{
	"projects", "tasks", "subtasks", "project_comments", "project_guests",
	"files", "activity_logs", "custom_statuses",
}

// Payload format is "table:operation:id", consumed by internal/pubsub.
func changeNotificationsUp(tx *sqlx.Tx) error {
	_, err := tx.Exec(`
        CREATE OR REPLACE FUNCTION notify_entity_change() RETURNS trigger AS $$
        DECLARE
            row_id TEXT;
        BEGIN
            IF TG_OP = 'DELETE' THEN
                row_id := OLD.id::text;
            ELSE
                row_id := NEW.id::text;
            END IF;
            PERFORM pg_notify('entity_changes', TG_TABLE_NAME || ':' || TG_OP || ':' || row_id);
            RETURN NULL;
        END;
        $$ LANGUAGE plpgsql;
    `)
	if err != nil {
		return err
	}

	for _, table := range notifiedTables {
		_, err = tx.Exec(fmt.Sprintf(`
            DROP TRIGGER IF EXISTS trg_%[1]s_notify ON %[1]s;
            CREATE TRIGGER trg_%[1]s_notify
                AFTER INSERT OR UPDATE OR DELETE ON %[1]s
                FOR EACH ROW EXECUTE FUNCTION notify_entity_change();
        `, table))
		if err != nil {
			return err
		}
	}

	return nil
}

func changeNotificationsDown(tx *sqlx.Tx) error {
	for _, table := range notifiedTables {
		if _, err := tx.Exec(fmt.Sprintf(`DROP TRIGGER IF EXISTS trg_%[1]s_notify ON %[1]s;`, table)); err != nil {
			return err
		}
	}

	_, err := tx.Exec(`DROP FUNCTION IF EXISTS notify_entity_change();`)
	return err
}
