package migrations

import "github.com/jmoiron/sqlx"

func init() {
	register("20260201091000", "upload_reservations", uploadReservationsUp, uploadReservationsDown)
}

// A storage id is issued to one user and may back at most one file row.
func uploadReservationsUp(tx *sqlx.Tx) error {
	_, err := tx.Exec(`
        CREATE UNIQUE INDEX IF NOT EXISTS uq_files_storage_id ON files(storage_id);

        CREATE TABLE IF NOT EXISTS upload_reservations (
            storage_id TEXT PRIMARY KEY,
            user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
            expires_at TIMESTAMP WITH TIME ZONE NOT NULL,
            created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
        );

        CREATE INDEX IF NOT EXISTS idx_upload_reservations_expires ON upload_reservations(expires_at);
    `)
	return err
}

func uploadReservationsDown(tx *sqlx.Tx) error {
	_, err := tx.Exec(`
        DROP TABLE IF EXISTS upload_reservations;
        DROP INDEX IF EXISTS uq_files_storage_id;
    `)
	return err
}
