package recorder

import (
	"database/sql"
	"fmt"
	"log"

	_ "github.com/lib/pq"
)

// PostgresRecorder persists runs to PostgreSQL.
type PostgresRecorder struct {
	sqlRecorder
}

// NewPostgresRecorder connects with dsn and runs migrations.
func NewPostgresRecorder(dsn string) (*PostgresRecorder, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres recorder: empty dsn")
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	r := &PostgresRecorder{sqlRecorder{db: db, numbered: true}}
	if err := r.migrate(postgresSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	log.Printf("[INFO] postgres recorder connected")
	return r, nil
}

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS runs (
		id              BIGSERIAL PRIMARY KEY,
		started_at      BIGINT NOT NULL,
		evaluation_date DATE NOT NULL,
		method          TEXT,
		end_criteria    TEXT,
		iterations      INTEGER,
		cost            DOUBLE PRECISION,
		a               DOUBLE PRECISION,
		sigma           DOUBLE PRECISION,
		b               DOUBLE PRECISION,
		eta             DOUBLE PRECISION,
		rho             DOUBLE PRECISION
	)`,
	`CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at)`,

	`CREATE TABLE IF NOT EXISTS residuals (
		id         BIGSERIAL PRIMARY KEY,
		run_id     BIGINT NOT NULL REFERENCES runs(id),
		helper     TEXT NOT NULL,
		model_vol  DOUBLE PRECISION,
		market_vol DOUBLE PRECISION,
		diff       DOUBLE PRECISION,
		error      TEXT
	)`,
	`CREATE INDEX IF NOT EXISTS idx_residuals_run ON residuals(run_id)`,

	`CREATE TABLE IF NOT EXISTS prices (
		id     BIGSERIAL PRIMARY KEY,
		run_id BIGINT NOT NULL REFERENCES runs(id),
		engine TEXT NOT NULL,
		npv    DOUBLE PRECISION,
		error  TEXT
	)`,
	`CREATE INDEX IF NOT EXISTS idx_prices_run ON prices(run_id)`,
}
