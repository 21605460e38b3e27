package migrations

import (
	"fmt"

	"github.com/jmoiron/sqlx"
)

func init() {
	register("20260201091500", "notify_task_tables", notifyTaskTablesUp, notifyTaskTablesDown)
}

// notifications stay off the shared channel, their rows are private to one user.
var notifiedTaskTables = []string{"task_comments", "task_dependencies"}

func notifyTaskTablesUp(tx *sqlx.Tx) error {
	for _, table := range notifiedTaskTables {
		_, err := tx.Exec(fmt.Sprintf(`
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

func notifyTaskTablesDown(tx *sqlx.Tx) error {
	for _, table := range notifiedTaskTables {
		if _, err := tx.Exec(fmt.Sprintf(`DROP TRIGGER IF EXISTS trg_%[1]s_notify ON %[1]s;`, table)); err != nil {
			return err
		}
	}
	return nil
}
