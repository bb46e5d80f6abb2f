package recorder

import (
	"database/sql"
	"fmt"
	"log"

	_ "modernc.org/sqlite"
)

// SQLiteRecorder persists runs to a SQLite database file.
type SQLiteRecorder struct {
	sqlRecorder
}

// NewSQLiteRecorder opens (or creates) the database and runs migrations.
func NewSQLiteRecorder(path string) (*SQLiteRecorder, error) {
	if path == "" {
		path = "g2cal.db"
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{sqlRecorder{db: db}}
	if err := r.migrate(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	log.Printf("[INFO] sqlite recorder opened: %s", path)
	return r, nil
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS runs (
		id              INTEGER PRIMARY KEY AUTOINCREMENT,
		started_at      INTEGER NOT NULL,
		evaluation_date TEXT NOT NULL,
		method          TEXT,
		end_criteria    TEXT,
		iterations      INTEGER,
		cost            REAL,
		a               REAL,
		sigma           REAL,
		b               REAL,
		eta             REAL,
		rho             REAL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at)`,

	`CREATE TABLE IF NOT EXISTS residuals (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id     INTEGER NOT NULL REFERENCES runs(id),
		helper     TEXT NOT NULL,
		model_vol  REAL,
		market_vol REAL,
		diff       REAL,
		error      TEXT
	)`,
	`CREATE INDEX IF NOT EXISTS idx_residuals_run ON residuals(run_id)`,

	`CREATE TABLE IF NOT EXISTS prices (
		id     INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id INTEGER NOT NULL REFERENCES runs(id),
		engine TEXT NOT NULL,
		npv    REAL,
		error  TEXT
	)`,
	`CREATE INDEX IF NOT EXISTS idx_prices_run ON prices(run_id)`,
}
