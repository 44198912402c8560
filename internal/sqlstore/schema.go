package sqlstore

import (
	"database/sql"

	"github.com/pkg/errors"
)

// CreateSchema creates the journal tables. Safe to call multiple times.
func CreateSchema(db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			return errors.Wrap(err, "failed to create schema")
		}
	}

	return nil
}

// Statements run one at a time; lib/pq and sqlite both accept them as written.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS election (
    id TEXT PRIMARY KEY,
    admin TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS election_event (
    election_id TEXT NOT NULL REFERENCES election(id) ON DELETE CASCADE,
    seq BIGINT NOT NULL,
    event_id TEXT NOT NULL,
    type TEXT NOT NULL,
    actor TEXT NOT NULL,
    payload TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL,
    PRIMARY KEY (election_id, seq)
)`,
	`CREATE INDEX IF NOT EXISTS idx_election_event_type ON election_event(election_id, type)`,
}
