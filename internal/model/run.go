package model

import (
	"time"

	"github.com/google/uuid"
)

// ScanKind identifies which pipeline a run executed.
type ScanKind string

const (
	ScanKindFunds   ScanKind = "funds"
	ScanKindFilings ScanKind = "filings"
)

// ScanStatus represents the current state of a scan run.
type ScanStatus string

const (
	ScanStatusRunning  ScanStatus = "running"
	ScanStatusComplete ScanStatus = "complete"
	ScanStatusFailed   ScanStatus = "failed"
)

// ScanRun records one execution of a scan pipeline: which pipeline ran,
// over how many tickers, and how it ended. Succeeded plus Failed equals
// Tickers once the run is terminal.
type ScanRun struct {
	ID         string     `json:"id"`
	Kind       ScanKind   `json:"kind"`
	Status     ScanStatus `json:"status"`
	Tickers    int        `json:"tickers"`
	Succeeded  int        `json:"succeeded"`
	Failed     int        `json:"failed"`
	Error      string     `json:"error,omitempty"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// NewScanRun creates a running ScanRun for kind covering n tickers.
func NewScanRun(kind ScanKind, n int) *ScanRun {
	return &ScanRun{
		ID:        uuid.New().String(),
		Kind:      kind,
		Status:    ScanStatusRunning,
		Tickers:   n,
		StartedAt: time.Now().UTC(),
	}
}

// Finish marks the run terminal. A non-empty errMsg flips the status to
// failed; the counts are recorded as-is.
func (r *ScanRun) Finish(succeeded, failed int, errMsg string) {
	now := time.Now().UTC()
	r.Succeeded = succeeded
	r.Failed = failed
	r.FinishedAt = &now
	if errMsg != "" {
		r.Status = ScanStatusFailed
		r.Error = errMsg
		return
	}
	r.Status = ScanStatusComplete
}
