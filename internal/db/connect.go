package db

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib" // driver: pgx
	_ "modernc.org/sqlite"             // driver: sqlite
)

type Driver string

const (
	DriverSQLite   Driver = "sqlite"
	DriverPostgres Driver = "postgres"
)

// Open opens a DB and ensures schema exists.
func Open(ctx context.Context, driver Driver, dsn string) (*sql.DB, error) {
	var drvName string
	switch driver {
	case DriverSQLite:
		drvName = "sqlite" // modernc driver
		if dsn == "" {
			dsn = "file:mocktest.db?cache=shared&mode=rwc&_pragma=busy_timeout(5000)"
		}
	case DriverPostgres:
		drvName = "pgx" // pgx stdlib driver
		if dsn == "" {
			dsn = "postgres://localhost:5432/mocktest?sslmode=disable"
		}
	default:
		return nil, fmt.Errorf("unsupported driver: %s", driver)
	}

	db, err := sql.Open(drvName, dsn)
	if err != nil {
		return nil, err
	}
	if driver == DriverSQLite {
		// one writer; shared-cache in-memory databases vanish with their last connection
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}

	if err := ensureSchema(ctx, db, driver); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func ensureSchema(ctx context.Context, db *sql.DB, driver Driver) error {
	var schema string
	switch driver {
	case DriverSQLite:
		schema = schemaSQLite
	case DriverPostgres:
		schema = schemaPostgres
	}
	_, err := db.ExecContext(ctx, schema)
	return err
}

const schemaSQLite = `
PRAGMA foreign_keys=ON;

CREATE TABLE IF NOT EXISTS papers (
  id TEXT PRIMARY KEY,
  title TEXT NOT NULL,
  category TEXT NOT NULL,
  duration_min INTEGER NOT NULL,
  total_questions INTEGER NOT NULL DEFAULT 0,
  version INTEGER NOT NULL DEFAULT 1,
  questions_json TEXT NOT NULL,
  created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS results (
  id TEXT PRIMARY KEY,
  user_phone TEXT NOT NULL,
  paper_id TEXT NOT NULL,
  paper_title TEXT NOT NULL,
  paper_version INTEGER NOT NULL,
  total INTEGER NOT NULL,
  answered_count INTEGER NOT NULL,
  unanswered_count INTEGER NOT NULL,
  correct_count INTEGER NOT NULL,
  wrong_count INTEGER NOT NULL,
  percent INTEGER NOT NULL,
  per_question_json TEXT NOT NULL,
  subject_breakdown_json TEXT NOT NULL,
  created_at INTEGER NOT NULL -- unix millis
);
CREATE INDEX IF NOT EXISTS idx_results_paper ON results(paper_id, created_at);
CREATE INDEX IF NOT EXISTS idx_results_user ON results(user_phone, created_at);

CREATE TABLE IF NOT EXISTS rank_entries (
  paper_id TEXT NOT NULL,
  user_phone TEXT NOT NULL,
  rank INTEGER NOT NULL,
  total_participants INTEGER NOT NULL,
  score INTEGER NOT NULL DEFAULT 0,
  computed_at INTEGER NOT NULL,
  PRIMARY KEY (paper_id, user_phone)
);

CREATE TABLE IF NOT EXISTS users (
  phone TEXT PRIMARY KEY,
  role TEXT NOT NULL,
  created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS otp_codes (
  phone TEXT PRIMARY KEY,
  code_hash TEXT NOT NULL,
  expires_at INTEGER NOT NULL,
  created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS event_log (
  "offset" INTEGER PRIMARY KEY AUTOINCREMENT,
  site_id TEXT NOT NULL DEFAULT 'local',
  typ TEXT NOT NULL,                         -- e.g., ResultSubmitted
  key TEXT NOT NULL,                         -- natural key: resultID
  data TEXT NOT NULL,                        -- JSON payload
  created_at INTEGER NOT NULL
);
`

const schemaPostgres = `
CREATE TABLE IF NOT EXISTS papers (
  id TEXT PRIMARY KEY,
  title TEXT NOT NULL,
  category TEXT NOT NULL,
  duration_min INTEGER NOT NULL,
  total_questions INTEGER NOT NULL DEFAULT 0,
  version INTEGER NOT NULL DEFAULT 1,
  questions_json TEXT NOT NULL,
  created_at BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS results (
  id TEXT PRIMARY KEY,
  user_phone TEXT NOT NULL,
  paper_id TEXT NOT NULL,
  paper_title TEXT NOT NULL,
  paper_version INTEGER NOT NULL,
  total INTEGER NOT NULL,
  answered_count INTEGER NOT NULL,
  unanswered_count INTEGER NOT NULL,
  correct_count INTEGER NOT NULL,
  wrong_count INTEGER NOT NULL,
  percent INTEGER NOT NULL,
  per_question_json TEXT NOT NULL,
  subject_breakdown_json TEXT NOT NULL,
  created_at BIGINT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_results_paper ON results(paper_id, created_at);
CREATE INDEX IF NOT EXISTS idx_results_user ON results(user_phone, created_at);

CREATE TABLE IF NOT EXISTS rank_entries (
  paper_id TEXT NOT NULL,
  user_phone TEXT NOT NULL,
  rank INTEGER NOT NULL,
  total_participants INTEGER NOT NULL,
  score INTEGER NOT NULL DEFAULT 0,
  computed_at BIGINT NOT NULL,
  PRIMARY KEY (paper_id, user_phone)
);

CREATE TABLE IF NOT EXISTS users (
  phone TEXT PRIMARY KEY,
  role TEXT NOT NULL,
  created_at BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS otp_codes (
  phone TEXT PRIMARY KEY,
  code_hash TEXT NOT NULL,
  expires_at BIGINT NOT NULL,
  created_at BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS event_log (
  "offset" BIGSERIAL PRIMARY KEY,
  site_id TEXT NOT NULL DEFAULT 'local',
  typ TEXT NOT NULL,
  key TEXT NOT NULL,
  data TEXT NOT NULL,
  created_at BIGINT NOT NULL
);
`
