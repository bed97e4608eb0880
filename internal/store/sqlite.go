package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/fundwatch/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS scan_runs (
	id          TEXT PRIMARY KEY,
	kind        TEXT NOT NULL,
	status      TEXT NOT NULL DEFAULT 'running',
	tickers     INTEGER NOT NULL DEFAULT 0,
	succeeded   INTEGER NOT NULL DEFAULT 0,
	failed      INTEGER NOT NULL DEFAULT 0,
	error       TEXT NOT NULL DEFAULT '',
	started_at  DATETIME NOT NULL,
	finished_at DATETIME
);

CREATE TABLE IF NOT EXISTS fund_records (
	id     TEXT PRIMARY KEY,
	run_id TEXT NOT NULL REFERENCES scan_runs(id),
	ticker TEXT NOT NULL,
	record TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS filing_records (
	id        TEXT PRIMARY KEY,
	run_id    TEXT NOT NULL REFERENCES scan_runs(id),
	ticker    TEXT NOT NULL,
	accession TEXT NOT NULL DEFAULT '',
	record    TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_scan_runs_kind ON scan_runs(kind);
CREATE INDEX IF NOT EXISTS idx_scan_runs_status ON scan_runs(status);
CREATE INDEX IF NOT EXISTS idx_fund_records_run_id ON fund_records(run_id);
CREATE INDEX IF NOT EXISTS idx_filing_records_run_id ON filing_records(run_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.db.PingContext(ctx), "sqlite: ping")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateRun(ctx context.Context, kind model.ScanKind, tickers int) (*model.ScanRun, error) {
	run := model.NewScanRun(kind, tickers)

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO scan_runs (id, kind, status, tickers, started_at) VALUES (?, ?, ?, ?, ?)`,
		run.ID, string(run.Kind), string(run.Status), run.Tickers, run.StartedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert run")
	}
	return run, nil
}

func (s *SQLiteStore) CompleteRun(ctx context.Context, runID string, succeeded, failed int) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE scan_runs SET status = ?, succeeded = ?, failed = ?, finished_at = ? WHERE id = ?`,
		string(model.ScanStatusComplete), succeeded, failed, time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: complete run %s", runID)
	}
	return checkRowsAffected(res, "run", runID)
}

func (s *SQLiteStore) FailRun(ctx context.Context, runID string, errMsg string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE scan_runs SET status = ?, error = ?, finished_at = ? WHERE id = ?`,
		string(model.ScanStatusFailed), errMsg, time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: fail run %s", runID)
	}
	return checkRowsAffected(res, "run", runID)
}

func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*model.ScanRun, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, kind, status, tickers, succeeded, failed, error, started_at, finished_at
		 FROM scan_runs WHERE id = ?`,
		runID,
	)
	return scanRun(row)
}

func (s *SQLiteStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.ScanRun, error) {
	query := `SELECT id, kind, status, tickers, succeeded, failed, error, started_at, finished_at
	          FROM scan_runs WHERE 1=1`
	var args []any

	if filter.Kind != "" {
		query += ` AND kind = ?`
		args = append(args, string(filter.Kind))
	}
	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	query += ` ORDER BY started_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close()

	var runs []model.ScanRun
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: list runs iterate")
}

func (s *SQLiteStore) SaveFundRecords(ctx context.Context, runID string, records []model.FundRecord) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin save fund records")
	}
	defer tx.Rollback()

	for _, r := range records {
		payload, err := json.Marshal(r)
		if err != nil {
			return eris.Wrapf(err, "sqlite: marshal fund record %s", r.Ticker)
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO fund_records (id, run_id, ticker, record) VALUES (?, ?, ?, ?)`,
			uuid.New().String(), runID, r.Ticker, string(payload),
		)
		if err != nil {
			return eris.Wrapf(err, "sqlite: insert fund record %s", r.Ticker)
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit fund records")
}

func (s *SQLiteStore) SaveFilingRecords(ctx context.Context, runID string, records []model.FilingRecord) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin save filing records")
	}
	defer tx.Rollback()

	for _, r := range records {
		payload, err := json.Marshal(r)
		if err != nil {
			return eris.Wrapf(err, "sqlite: marshal filing record %s", r.Accession)
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO filing_records (id, run_id, ticker, accession, record) VALUES (?, ?, ?, ?, ?)`,
			uuid.New().String(), runID, r.Ticker, r.Accession, string(payload),
		)
		if err != nil {
			return eris.Wrapf(err, "sqlite: insert filing record %s", r.Accession)
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit filing records")
}

func (s *SQLiteStore) FundRecords(ctx context.Context, runID string) ([]model.FundRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT record FROM fund_records WHERE run_id = ? ORDER BY rowid`,
		runID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: fund records for run %s", runID)
	}
	defer rows.Close()

	var records []model.FundRecord
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan fund record")
		}
		var r model.FundRecord
		if err := json.Unmarshal([]byte(payload), &r); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal fund record")
		}
		records = append(records, r)
	}
	return records, eris.Wrap(rows.Err(), "sqlite: fund records iterate")
}

func (s *SQLiteStore) FilingRecords(ctx context.Context, runID string) ([]model.FilingRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT record FROM filing_records WHERE run_id = ? ORDER BY rowid`,
		runID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: filing records for run %s", runID)
	}
	defer rows.Close()

	var records []model.FilingRecord
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan filing record")
		}
		var r model.FilingRecord
		if err := json.Unmarshal([]byte(payload), &r); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal filing record")
		}
		records = append(records, r)
	}
	return records, eris.Wrap(rows.Err(), "sqlite: filing records iterate")
}

// helpers

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Errorf("%s not found: %s", entity, id)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanRun(row scannable) (*model.ScanRun, error) {
	var r model.ScanRun
	var finishedAt sql.NullTime

	err := row.Scan(&r.ID, &r.Kind, &r.Status, &r.Tickers, &r.Succeeded, &r.Failed, &r.Error, &r.StartedAt, &finishedAt)
	if err == sql.ErrNoRows {
		return nil, eris.New("run not found")
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan run")
	}

	if finishedAt.Valid {
		t := finishedAt.Time
		r.FinishedAt = &t
	}
	return &r, nil
}
