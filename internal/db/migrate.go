package db

import (
	"context"
	"database/sql"
)

const sessionMigration = `
CREATE TABLE IF NOT EXISTS sessions (
    id text PRIMARY KEY,
    data jsonb NOT NULL,
    expires_at timestamptz NOT NULL,
    created_at timestamptz NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS sessions_expires_at_idx
ON sessions (expires_at);
`

// RunSessionMigration creates the sessions table used by the Postgres
// session backend. It is idempotent.
func RunSessionMigration(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, sessionMigration)
	return err
}
