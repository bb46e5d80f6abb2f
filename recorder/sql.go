package recorder

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
)

// sqlRecorder writes runs through database/sql. Statements are written with
// ? placeholders and rebound for drivers that number them.
type sqlRecorder struct {
	db       *sql.DB
	mu       sync.Mutex
	numbered bool
}

func (r *sqlRecorder) bind(q string) string {
	if !r.numbered {
		return q
	}
	var b strings.Builder
	n := 0
	for _, c := range q {
		if c == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
			continue
		}
		b.WriteRune(c)
	}
	return b.String()
}

func (r *sqlRecorder) migrate(stmts []string) error {
	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:min(len(s), 40)], err)
		}
	}
	return nil
}

func (r *sqlRecorder) RecordRun(ctx context.Context, run *Run) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	var id int64
	err = tx.QueryRowContext(ctx, r.bind(`INSERT INTO runs
		(started_at, evaluation_date, method, end_criteria, iterations, cost,
		 a, sigma, b, eta, rho)
		VALUES (?,?,?,?,?,?,?,?,?,?,?) RETURNING id`),
		run.StartedAt.Unix(), run.EvaluationDate.Format("2006-01-02"), run.Method, run.EndCriteria,
		run.Iterations, run.Cost,
		run.Params[0], run.Params[1], run.Params[2], run.Params[3], run.Params[4],
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert run: %w", err)
	}

	for _, res := range run.Residuals {
		if _, err := tx.ExecContext(ctx, r.bind(`INSERT INTO residuals
			(run_id, helper, model_vol, market_vol, diff, error)
			VALUES (?,?,?,?,?,?)`),
			id, res.Helper, res.ModelVol, res.MarketVol, res.Diff, res.Error,
		); err != nil {
			return 0, fmt.Errorf("insert residual %s: %w", res.Helper, err)
		}
	}
	for _, p := range run.Prices {
		if _, err := tx.ExecContext(ctx, r.bind(`INSERT INTO prices
			(run_id, engine, npv, error)
			VALUES (?,?,?,?)`),
			id, p.Engine, p.NPV, p.Error,
		); err != nil {
			return 0, fmt.Errorf("insert price %s: %w", p.Engine, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return id, nil
}

func (r *sqlRecorder) Close() error {
	return r.db.Close()
}
