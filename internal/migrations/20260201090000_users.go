package migrations

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"
)

func init() {
	register("20260201090000", "users", usersUp, usersDown)
}

func usersUp(tx *sqlx.Tx) error {
	_, err := tx.Exec(`
        CREATE TABLE IF NOT EXISTS users (
            id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
            name VARCHAR(255) NOT NULL,
            email VARCHAR(255) NOT NULL,
            password_hash TEXT,
            role VARCHAR(50) NOT NULL DEFAULT 'member' CHECK (role IN ('admin', 'member')),
            system_role VARCHAR(50) NOT NULL DEFAULT 'user' CHECK (system_role IN ('superadmin', 'user')),
            token_identifier TEXT,
            current_team_id TEXT,
            avatar TEXT,
            created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
            updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
        );
    `)
	if err != nil {
		return err
	}

	_, err = tx.Exec(`
        CREATE UNIQUE INDEX IF NOT EXISTS idx_users_email ON users(lower(email));
        CREATE UNIQUE INDEX IF NOT EXISTS idx_users_token_identifier ON users(token_identifier) WHERE token_identifier IS NOT NULL;
    `)
	if err != nil {
		return err
	}

	// Seed with default super-admin
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte("admin"), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash default password: %w", err)
	}

	_, err = tx.Exec(`
        INSERT INTO users (id, name, email, password_hash, role, system_role, token_identifier)
        VALUES ('00000000-0000-0000-0000-000000000001', $1, $2, $3, 'admin', 'superadmin', $4)
        ON CONFLICT DO NOTHING;
    `, "Super Admin", "admin@admin.com", string(hashedPassword), "workboard|00000000-0000-0000-0000-000000000001")

	return err
}

func usersDown(tx *sqlx.Tx) error {
	_, err := tx.Exec(`DROP TABLE IF EXISTS users;`)
	return err
}
