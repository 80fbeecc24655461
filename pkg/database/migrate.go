package database

import (
	"database/sql"
	"fmt"
)

// schema is applied on every start; every statement must be idempotent.
const schema = `
CREATE TABLE IF NOT EXISTS ranking_snapshots (
	id           INTEGER PRIMARY KEY CHECK (id = 1),
	build_id     TEXT    NOT NULL,
	mode         TEXT    NOT NULL,
	generated_at TEXT    NOT NULL,
	payload      TEXT    NOT NULL
);

CREATE TABLE IF NOT EXISTS ranking_builds (
	build_id     TEXT    PRIMARY KEY,
	mode         TEXT    NOT NULL,
	generated_at TEXT    NOT NULL,
	books        INTEGER NOT NULL
);
`

func Migrate(db *sql.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
