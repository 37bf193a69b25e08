package returner

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"regexp"

	_ "github.com/lib/pq"

	"github.com/reeveops/reeve/internal/history"
)

const defaultPostgresTable = "reeve_returns"

var safeTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Postgres posts job envelopes to a PostgreSQL table. The table must
// exist before the first return:
//
//	CREATE TABLE reeve_returns (
//	    jid          text PRIMARY KEY,
//	    plan         text NOT NULL,
//	    dry_run      boolean NOT NULL,
//	    started_at   timestamptz NOT NULL,
//	    duration_ms  bigint NOT NULL,
//	    satisfied    integer NOT NULL,
//	    changed      integer NOT NULL,
//	    would_change integer NOT NULL,
//	    failed       integer NOT NULL,
//	    skipped      integer NOT NULL,
//	    results      jsonb NOT NULL
//	);
//
// Config namespace "returner.postgres": dsn (required), table.
type Postgres struct {
	db    *sql.DB
	table string
}

// NewPostgres wraps an open database handle. An empty table selects
// the default.
func NewPostgres(db *sql.DB, table string) *Postgres {
	if table == "" {
		table = defaultPostgresTable
	}
	return &Postgres{db: db, table: table}
}

// PostgresFromConfig opens a connection from a secure-config namespace.
func PostgresFromConfig(ns map[string]any) (*Postgres, error) {
	dsn := stringSetting(ns, "dsn", "")
	if dsn == "" {
		return nil, fmt.Errorf("returner.postgres: 'dsn' is required")
	}
	table := stringSetting(ns, "table", defaultPostgresTable)
	if !safeTableName.MatchString(table) {
		return nil, fmt.Errorf("returner.postgres: invalid table name %q", table)
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres returner: %w", err)
	}
	return NewPostgres(db, table), nil
}

func (p *Postgres) Name() string {
	return "postgres"
}

// Return upserts the envelope keyed by jid, so a re-run of the same
// job replaces its row instead of failing on the primary key.
func (p *Postgres) Return(ctx context.Context, rec *history.Record) error {
	results, err := json.Marshal(rec.Results)
	if err != nil {
		return fmt.Errorf("marshal job results: %w", err)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (jid, plan, dry_run, started_at, duration_ms, satisfied, changed, would_change, failed, skipped, results)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (jid) DO UPDATE SET
			plan = EXCLUDED.plan,
			dry_run = EXCLUDED.dry_run,
			duration_ms = EXCLUDED.duration_ms,
			satisfied = EXCLUDED.satisfied,
			changed = EXCLUDED.changed,
			would_change = EXCLUDED.would_change,
			failed = EXCLUDED.failed,
			skipped = EXCLUDED.skipped,
			results = EXCLUDED.results
	`, p.table)

	_, err = p.db.ExecContext(ctx, query,
		rec.JID, rec.Plan, rec.DryRun, rec.StartedAt, rec.Duration.Milliseconds(),
		rec.Satisfied, rec.Changed, rec.WouldChange, rec.Failed, rec.Skipped, results)
	if err != nil {
		return fmt.Errorf("post job %s to postgres: %w", rec.JID, err)
	}
	return nil
}

func (p *Postgres) Close() error {
	return p.db.Close()
}
