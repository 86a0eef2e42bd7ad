package core

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/JonMunkholm/transactions/internal/database"
)

// Row is one report result tuple.
type Row = database.Row

// StagedTransaction is one parsed input record.
type StagedTransaction struct {
	ID           string
	Date         time.Time // civil date at UTC midnight
	ProductName  string
	Price        decimal.Decimal
	StoreName    string
	SalesRepName string
	ClientName   string
}

// FailedRow describes an input row that was not staged.
type FailedRow struct {
	Source     string
	LineNumber int
	Reason     string
	Data       []string
}

// BatchSummary is the outcome of one staging load.
type BatchSummary struct {
	RunID      string
	Source     string
	Read       int // data rows seen, malformed ones included
	Staged     int
	Skipped    int // rows that failed to parse
	Failed     int // rows that parsed but failed to insert
	FailedRows []FailedRow
	Committed  bool
	Duration   time.Duration
}

// StepResult is the outcome of one registry statement.
type StepResult struct {
	Key          string
	RowsAffected int64
	Err          error
}

// Failed returns the results that carry an error.
func Failed(results []StepResult) []StepResult {
	var out []StepResult
	for _, r := range results {
		if r.Err != nil {
			out = append(out, r)
		}
	}
	return out
}

// UploadResult is the outcome of the full upload pipeline.
type UploadResult struct {
	RunID      string
	Staging    BatchSummary
	Corrected  int64
	CorrectErr error
	Steps      []StepResult
	Duration   time.Duration
}
