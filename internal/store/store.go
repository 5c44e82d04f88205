// Package store is the sqlite persistence layer for tenants, brokers,
// deals and sales goals. The WhatsApp session manager itself keeps no
// durable state here; it only reads broker and goal rows when a deal
// triggers notifications.
package store

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS tenants (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	slug       TEXT NOT NULL UNIQUE,
	name       TEXT NOT NULL,
	created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS brokers (
	id             TEXT PRIMARY KEY,
	tenant_id      INTEGER NOT NULL REFERENCES tenants(id),
	name           TEXT NOT NULL,
	phone          TEXT NOT NULL,
	commission_pct REAL NOT NULL DEFAULT 0,
	active         INTEGER NOT NULL DEFAULT 1
);

CREATE TABLE IF NOT EXISTS deals (
	id               TEXT PRIMARY KEY,
	tenant_id        INTEGER NOT NULL REFERENCES tenants(id),
	property_title   TEXT NOT NULL,
	property_address TEXT NOT NULL DEFAULT '',
	value            REAL NOT NULL,
	sale_date        TEXT NOT NULL,
	created_at       TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS deal_participants (
	deal_id          TEXT NOT NULL REFERENCES deals(id),
	broker_id        TEXT NOT NULL REFERENCES brokers(id),
	commission_value REAL NOT NULL,
	PRIMARY KEY (deal_id, broker_id)
);

CREATE TABLE IF NOT EXISTS goals (
	tenant_id  INTEGER NOT NULL REFERENCES tenants(id),
	broker_id  TEXT NOT NULL REFERENCES brokers(id),
	year       INTEGER NOT NULL,
	month      INTEGER NOT NULL,
	goal_value REAL NOT NULL,
	PRIMARY KEY (tenant_id, broker_id, year, month)
);
`

// Store wraps the sqlite database.
type Store struct {
	db *sqlx.DB
}

// Open opens (creating if needed) the database at path and applies the
// schema. Use ":memory:" for tests.
func Open(path string) (*Store, error) {
	dsn := "file:" + path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(10000)"
	db, err := sqlx.Connect("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// modernc sqlite serializes writes; a single connection avoids
	// SQLITE_BUSY under concurrent handlers.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// NewID generates a time-ordered UUIDv7 for new rows.
func NewID() string {
	return uuid.Must(uuid.NewV7()).String()
}

func nowText() string {
	return time.Now().UTC().Format(time.RFC3339)
}
