package sqlstore

import (
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	_ "github.com/lib/pq"
	"github.com/pkg/errors"
	_ "modernc.org/sqlite"

	"github.com/saxenaaman628/redis-election/internal/election"
	"github.com/saxenaaman628/redis-election/internal/models"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Journal stores events in the election_event table, one row per event.
// The (election_id, seq) key rejects a second writer racing for the same slot.
type Journal struct {
	db *sql.DB
	id string
}

var _ election.Journal = (*Journal)(nil)

// Connect opens the database, checks it and creates the schema.
func Connect(driver, dsn string) (*sql.DB, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open %s database", driver)
	}
	if driver == DriverSQLite {
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, errors.Wrapf(err, "failed to ping %s database", driver)
	}
	if err := CreateSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}

func NewJournal(db *sql.DB) *Journal {
	return &Journal{db: db}
}

func (j *Journal) Bind(id string, admin common.Address) error {
	j.id = id

	var stored string
	err := j.db.QueryRow(`SELECT admin FROM election WHERE id = $1`, id).Scan(&stored)
	switch {
	case err == sql.ErrNoRows:
		_, err = j.db.Exec(`
			INSERT INTO election (id, admin, created_at)
			VALUES ($1, $2, $3)
		`, id, admin.Hex(), time.Now().UTC())
		return errors.Wrap(err, "failed to insert election")
	case err != nil:
		return errors.Wrap(err, "failed to query election")
	case !strings.EqualFold(stored, admin.Hex()):
		return election.ErrJournalMismatch
	default:
		return nil
	}
}

func (j *Journal) Append(ev models.Event) error {
	b, err := json.Marshal(ev)
	if err != nil {
		return errors.Wrap(err, "failed to encode event")
	}

	_, err = j.db.Exec(`
		INSERT INTO election_event (election_id, seq, event_id, type, actor, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, j.id, int64(ev.Seq), ev.ID, string(ev.Type), ev.Actor, string(b), ev.Timestamp)

	return errors.Wrapf(err, "failed to insert event %d", ev.Seq)
}

func (j *Journal) Load() ([]models.Event, error) {
	rows, err := j.db.Query(`
		SELECT payload FROM election_event
		WHERE election_id = $1
		ORDER BY seq
	`, j.id)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query events")
	}
	defer rows.Close()

	var evs []models.Event
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, errors.Wrap(err, "failed to scan event")
		}

		var ev models.Event
		if err := json.Unmarshal([]byte(payload), &ev); err != nil {
			return nil, errors.Wrap(err, "failed to decode event")
		}
		evs = append(evs, ev)
	}

	return evs, errors.Wrap(rows.Err(), "failed to read events")
}
