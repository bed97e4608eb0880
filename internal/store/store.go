// Package store persists scan runs and their records.
package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/fundwatch/internal/model"
)

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Kind   model.ScanKind   `json:"kind,omitempty"`
	Status model.ScanStatus `json:"status,omitempty"`
	Limit  int              `json:"limit,omitempty"`
	Offset int              `json:"offset,omitempty"`
}

// Store is the persistence interface shared by both scan pipelines.
type Store interface {
	// Runs
	CreateRun(ctx context.Context, kind model.ScanKind, tickers int) (*model.ScanRun, error)
	CompleteRun(ctx context.Context, runID string, succeeded, failed int) error
	FailRun(ctx context.Context, runID string, errMsg string) error
	GetRun(ctx context.Context, runID string) (*model.ScanRun, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]model.ScanRun, error)

	// Records
	SaveFundRecords(ctx context.Context, runID string, records []model.FundRecord) error
	SaveFilingRecords(ctx context.Context, runID string, records []model.FilingRecord) error
	FundRecords(ctx context.Context, runID string) ([]model.FundRecord, error)
	FilingRecords(ctx context.Context, runID string) ([]model.FilingRecord, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}

// Open constructs the backend named by driver: "sqlite" with a file
// path DSN, or "postgres" with a connection string.
func Open(ctx context.Context, driver, dsn string) (Store, error) {
	switch driver {
	case "sqlite":
		return NewSQLite(dsn)
	case "postgres":
		return NewPostgres(ctx, dsn)
	default:
		return nil, eris.Errorf("store: unknown driver %q", driver)
	}
}
