package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/fundwatch/internal/db"
	"github.com/sells-group/fundwatch/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	pgxCfg.MaxConns = 10
	pgxCfg.MinConns = 2
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS scan_runs (
	id          TEXT PRIMARY KEY,
	kind        TEXT NOT NULL,
	status      TEXT NOT NULL DEFAULT 'running',
	tickers     INTEGER NOT NULL DEFAULT 0,
	succeeded   INTEGER NOT NULL DEFAULT 0,
	failed      INTEGER NOT NULL DEFAULT 0,
	error       TEXT NOT NULL DEFAULT '',
	started_at  TIMESTAMPTZ NOT NULL,
	finished_at TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS fund_records (
	id     TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	seq    BIGSERIAL,
	run_id TEXT NOT NULL REFERENCES scan_runs(id),
	ticker TEXT NOT NULL,
	record JSONB NOT NULL
);

CREATE TABLE IF NOT EXISTS filing_records (
	id        TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	seq       BIGSERIAL,
	run_id    TEXT NOT NULL REFERENCES scan_runs(id),
	ticker    TEXT NOT NULL,
	accession TEXT NOT NULL DEFAULT '',
	record    JSONB NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_scan_runs_kind ON scan_runs(kind);
CREATE INDEX IF NOT EXISTS idx_scan_runs_status ON scan_runs(status);
CREATE INDEX IF NOT EXISTS idx_fund_records_run_id ON fund_records(run_id);
CREATE INDEX IF NOT EXISTS idx_filing_records_run_id ON filing_records(run_id);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) CreateRun(ctx context.Context, kind model.ScanKind, tickers int) (*model.ScanRun, error) {
	run := model.NewScanRun(kind, tickers)

	_, err := s.pool.Exec(ctx,
		`INSERT INTO scan_runs (id, kind, status, tickers, started_at) VALUES ($1, $2, $3, $4, $5)`,
		run.ID, string(run.Kind), string(run.Status), run.Tickers, run.StartedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert run")
	}
	return run, nil
}

func (s *PostgresStore) CompleteRun(ctx context.Context, runID string, succeeded, failed int) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE scan_runs SET status = $1, succeeded = $2, failed = $3, finished_at = $4 WHERE id = $5`,
		string(model.ScanStatusComplete), succeeded, failed, time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: complete run %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("run not found: %s", runID)
	}
	return nil
}

func (s *PostgresStore) FailRun(ctx context.Context, runID string, errMsg string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE scan_runs SET status = $1, error = $2, finished_at = $3 WHERE id = $4`,
		string(model.ScanStatusFailed), errMsg, time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: fail run %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("run not found: %s", runID)
	}
	return nil
}

func (s *PostgresStore) GetRun(ctx context.Context, runID string) (*model.ScanRun, error) {
	var r model.ScanRun
	var finishedAt *time.Time

	err := s.pool.QueryRow(ctx,
		`SELECT id, kind, status, tickers, succeeded, failed, error, started_at, finished_at
		 FROM scan_runs WHERE id = $1`,
		runID,
	).Scan(&r.ID, &r.Kind, &r.Status, &r.Tickers, &r.Succeeded, &r.Failed, &r.Error, &r.StartedAt, &finishedAt)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get run %s", runID)
	}

	r.FinishedAt = finishedAt
	return &r, nil
}

func (s *PostgresStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.ScanRun, error) {
	query := `SELECT id, kind, status, tickers, succeeded, failed, error, started_at, finished_at
	          FROM scan_runs WHERE true`
	args := []any{}
	argIdx := 1

	if filter.Kind != "" {
		query += fmt.Sprintf(` AND kind = $%d`, argIdx)
		args = append(args, string(filter.Kind))
		argIdx++
	}
	if filter.Status != "" {
		query += fmt.Sprintf(` AND status = $%d`, argIdx)
		args = append(args, string(filter.Status))
		argIdx++
	}
	query += ` ORDER BY started_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit)
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var runs []model.ScanRun
	for rows.Next() {
		var r model.ScanRun
		var finishedAt *time.Time
		err := rows.Scan(&r.ID, &r.Kind, &r.Status, &r.Tickers, &r.Succeeded, &r.Failed, &r.Error, &r.StartedAt, &finishedAt)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan run")
		}
		r.FinishedAt = finishedAt
		runs = append(runs, r)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: list runs iterate")
}

func (s *PostgresStore) SaveFundRecords(ctx context.Context, runID string, records []model.FundRecord) error {
	rows := make([][]any, 0, len(records))
	for _, r := range records {
		payload, err := json.Marshal(r)
		if err != nil {
			return eris.Wrapf(err, "postgres: marshal fund record %s", r.Ticker)
		}
		rows = append(rows, []any{runID, r.Ticker, payload})
	}

	_, err := db.CopyFrom(ctx, s.pool, pgx.Identifier{"fund_records"}, []string{"run_id", "ticker", "record"}, rows)
	return err
}

func (s *PostgresStore) SaveFilingRecords(ctx context.Context, runID string, records []model.FilingRecord) error {
	rows := make([][]any, 0, len(records))
	for _, r := range records {
		payload, err := json.Marshal(r)
		if err != nil {
			return eris.Wrapf(err, "postgres: marshal filing record %s", r.Accession)
		}
		rows = append(rows, []any{runID, r.Ticker, r.Accession, payload})
	}

	_, err := db.CopyFrom(ctx, s.pool, pgx.Identifier{"filing_records"}, []string{"run_id", "ticker", "accession", "record"}, rows)
	return err
}

func (s *PostgresStore) FundRecords(ctx context.Context, runID string) ([]model.FundRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT record FROM fund_records WHERE run_id = $1 ORDER BY seq`,
		runID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: fund records for run %s", runID)
	}
	defer rows.Close()

	var records []model.FundRecord
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, eris.Wrap(err, "postgres: scan fund record")
		}
		var r model.FundRecord
		if err := json.Unmarshal(payload, &r); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal fund record")
		}
		records = append(records, r)
	}
	return records, eris.Wrap(rows.Err(), "postgres: fund records iterate")
}

func (s *PostgresStore) FilingRecords(ctx context.Context, runID string) ([]model.FilingRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT record FROM filing_records WHERE run_id = $1 ORDER BY seq`,
		runID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: filing records for run %s", runID)
	}
	defer rows.Close()

	var records []model.FilingRecord
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, eris.Wrap(err, "postgres: scan filing record")
		}
		var r model.FilingRecord
		if err := json.Unmarshal(payload, &r); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal filing record")
		}
		records = append(records, r)
	}
	return records, eris.Wrap(rows.Err(), "postgres: filing records iterate")
}
