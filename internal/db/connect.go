package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // driver: pgx
	_ "modernc.org/sqlite"             // driver: sqlite
)

type Driver string

const (
	DriverSQLite   Driver = "sqlite"
	DriverPostgres Driver = "postgres"
)

// Normalize maps common aliases to canonical names.
func Normalize(d string) Driver {
	switch strings.ToLower(strings.TrimSpace(d)) {
	case "pg", "pgsql", "pgx", "postgres", "postgresql":
		return DriverPostgres
	case "sqlite", "sqlite3":
		return DriverSQLite
	default:
		return Driver(d)
	}
}

// Open opens a DB, tunes the pool and ensures schema exists.
func Open(ctx context.Context, driver Driver, dsn string) (*sql.DB, error) {
	var drvName string
	switch driver {
	case DriverSQLite:
		drvName = "sqlite" // modernc driver
		if dsn == "" {
			dsn = "file:mindengage-quiz.db?cache=shared&mode=rwc&_pragma=busy_timeout(5000)"
		}
	case DriverPostgres:
		drvName = "pgx" // pgx stdlib driver
		if dsn == "" {
			dsn = "postgres://localhost:5432/mindengage_quiz?sslmode=disable"
		}
	default:
		return nil, fmt.Errorf("unsupported driver: %s", driver)
	}

	db, err := sql.Open(drvName, dsn)
	if err != nil {
		return nil, fmt.Errorf("db: open: %w", err)
	}
	tunePool(driver, db)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db: ping: %w", err)
	}
	if driver == DriverSQLite {
		if err := applySQLitePragmas(ctx, db); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	if err := ensureSchema(ctx, db, driver); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func tunePool(driver Driver, db *sql.DB) {
	maxOpen := 20
	maxIdle := 10
	connLife := 45 * time.Minute
	idleLife := 15 * time.Minute

	if driver == DriverSQLite {
		// single writer; also keeps in-memory databases alive
		maxOpen = 1
		maxIdle = 1
		connLife = 0
		idleLife = 0
	}

	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxIdle)
	db.SetConnMaxLifetime(connLife)
	db.SetConnMaxIdleTime(idleLife)
}

func applySQLitePragmas(ctx context.Context, db *sql.DB) error {
	pragmas := []string{
		"PRAGMA foreign_keys = ON;",
		"PRAGMA journal_mode = WAL;",
		"PRAGMA synchronous = NORMAL;",
		"PRAGMA busy_timeout = 5000;",
		"PRAGMA temp_store = MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			return fmt.Errorf("db: sqlite pragma %q: %w", p, err)
		}
	}
	return nil
}

// ensureSchema runs the DDL as one script, falling back to statement-by-
// statement execution for drivers that reject multi-statement Exec.
func ensureSchema(ctx context.Context, db *sql.DB, driver Driver) error {
	schema := schemaSQLite
	if driver == DriverPostgres {
		schema = schemaPostgres
	}
	if _, err := db.ExecContext(ctx, schema); err == nil {
		return nil
	}
	for _, stmt := range strings.Split(schema, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("db: schema: %w", err)
		}
	}
	return nil
}

const schemaSQLite = `
CREATE TABLE IF NOT EXISTS banks (
  id TEXT PRIMARY KEY,
  title TEXT NOT NULL,
  status TEXT NOT NULL,
  time_limit_minutes INTEGER NOT NULL DEFAULT 0,
  random_questions INTEGER NOT NULL DEFAULT 0,
  random_answers INTEGER NOT NULL DEFAULT 0,
  passing_score_percent REAL NOT NULL DEFAULT 0,
  feedback_timing TEXT NOT NULL DEFAULT 'END',
  question_count INTEGER NOT NULL DEFAULT 0,
  max_attempts INTEGER NOT NULL DEFAULT 0,
  created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS questions (
  id TEXT PRIMARY KEY,
  bank_id TEXT NOT NULL REFERENCES banks(id) ON DELETE CASCADE,
  position INTEGER NOT NULL,
  type TEXT NOT NULL,
  prompt TEXT NOT NULL,
  media_url TEXT NOT NULL DEFAULT '',
  options_json TEXT NOT NULL DEFAULT '',
  correct_answer_json TEXT NOT NULL DEFAULT '',
  feedback TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS questions_bank ON questions(bank_id, position);

CREATE TABLE IF NOT EXISTS attempts (
  id TEXT PRIMARY KEY,
  bank_id TEXT NOT NULL REFERENCES banks(id) ON DELETE CASCADE,
  user_id TEXT NOT NULL,
  status TEXT NOT NULL,
  question_order_json TEXT NOT NULL,
  option_order_json TEXT NOT NULL,
  responses_json TEXT NOT NULL,
  score REAL NOT NULL DEFAULT 0,
  max_score INTEGER NOT NULL DEFAULT 0,
  percentage REAL NOT NULL DEFAULT 0,
  passed INTEGER NOT NULL DEFAULT 0,
  started_at INTEGER NOT NULL, -- unix millis
  completed_at INTEGER,
  time_spent_seconds INTEGER NOT NULL DEFAULT 0,
  last_elapsed_seconds INTEGER NOT NULL DEFAULT 0,
  version INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS attempts_user_bank ON attempts(user_id, bank_id, status);
CREATE UNIQUE INDEX IF NOT EXISTS attempts_one_live ON attempts(user_id, bank_id) WHERE status = 'IN_PROGRESS';

CREATE TABLE IF NOT EXISTS users (
  id TEXT PRIMARY KEY,
  username TEXT NOT NULL UNIQUE,
  display_name TEXT NOT NULL DEFAULT '',
  role TEXT NOT NULL DEFAULT 'student',
  password_hash TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS event_log (
  seq INTEGER PRIMARY KEY AUTOINCREMENT,
  site_id TEXT NOT NULL DEFAULT 'local',
  typ TEXT NOT NULL,
  key TEXT NOT NULL,
  data TEXT NOT NULL,
  created_at INTEGER NOT NULL
);
`

const schemaPostgres = `
CREATE TABLE IF NOT EXISTS banks (
  id TEXT PRIMARY KEY,
  title TEXT NOT NULL,
  status TEXT NOT NULL,
  time_limit_minutes INTEGER NOT NULL DEFAULT 0,
  random_questions BOOLEAN NOT NULL DEFAULT FALSE,
  random_answers BOOLEAN NOT NULL DEFAULT FALSE,
  passing_score_percent DOUBLE PRECISION NOT NULL DEFAULT 0,
  feedback_timing TEXT NOT NULL DEFAULT 'END',
  question_count INTEGER NOT NULL DEFAULT 0,
  max_attempts INTEGER NOT NULL DEFAULT 0,
  created_at BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS questions (
  id TEXT PRIMARY KEY,
  bank_id TEXT NOT NULL REFERENCES banks(id) ON DELETE CASCADE,
  position INTEGER NOT NULL,
  type TEXT NOT NULL,
  prompt TEXT NOT NULL,
  media_url TEXT NOT NULL DEFAULT '',
  options_json TEXT NOT NULL DEFAULT '',
  correct_answer_json TEXT NOT NULL DEFAULT '',
  feedback TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS questions_bank ON questions(bank_id, position);

CREATE TABLE IF NOT EXISTS attempts (
  id TEXT PRIMARY KEY,
  bank_id TEXT NOT NULL REFERENCES banks(id) ON DELETE CASCADE,
  user_id TEXT NOT NULL,
  status TEXT NOT NULL,
  question_order_json TEXT NOT NULL,
  option_order_json TEXT NOT NULL,
  responses_json TEXT NOT NULL,
  score DOUBLE PRECISION NOT NULL DEFAULT 0,
  max_score INTEGER NOT NULL DEFAULT 0,
  percentage DOUBLE PRECISION NOT NULL DEFAULT 0,
  passed BOOLEAN NOT NULL DEFAULT FALSE,
  started_at BIGINT NOT NULL, -- unix millis
  completed_at BIGINT,
  time_spent_seconds INTEGER NOT NULL DEFAULT 0,
  last_elapsed_seconds INTEGER NOT NULL DEFAULT 0,
  version INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS attempts_user_bank ON attempts(user_id, bank_id, status);
CREATE UNIQUE INDEX IF NOT EXISTS attempts_one_live ON attempts(user_id, bank_id) WHERE status = 'IN_PROGRESS';

CREATE TABLE IF NOT EXISTS users (
  id TEXT PRIMARY KEY,
  username TEXT NOT NULL UNIQUE,
  display_name TEXT NOT NULL DEFAULT '',
  role TEXT NOT NULL DEFAULT 'student',
  password_hash TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS event_log (
  seq BIGSERIAL PRIMARY KEY,
  site_id TEXT NOT NULL DEFAULT 'local',
  typ TEXT NOT NULL,
  key TEXT NOT NULL,
  data TEXT NOT NULL,
  created_at BIGINT NOT NULL
);
`
