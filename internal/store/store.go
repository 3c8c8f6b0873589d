package store

import (
	"context"
	"errors"
	"time"

	"github.com/hogehogetakumi/edinet-value-screener/internal/model"
)

// ErrNotFound reports that no row matched the query. It is a normal terminal
// outcome for prior-period lookups, not a storage failure.
var ErrNotFound = errors.New("store: not found")

// Store is the durable home of canonical records and screening signals.
// Every write keyed by (company_code, period) replaces the existing row
// entirely; the latest timestamp wins, never a partial field merge.
type Store interface {
	// UpsertRecord writes a canonical financial record, replacing any
	// existing row for the same (company_code, period).
	UpsertRecord(ctx context.Context, rec *model.FinancialRecord) error

	// Record returns the stored record for exactly (company_code, period),
	// or ErrNotFound.
	Record(ctx context.Context, companyCode string, periodEnd time.Time) (*model.FinancialRecord, error)

	// PriorRecord returns the record with the largest period strictly less
	// than before for the company, or ErrNotFound.
	PriorRecord(ctx context.Context, companyCode string, before time.Time) (*model.FinancialRecord, error)

	// UpsertClassified writes a screening result. The write is all-or-nothing
	// and applies only when the new row's UpdatedAt is not older than the
	// stored one.
	UpsertClassified(ctx context.Context, rec *model.ClassifiedRecord) error

	// LatestSignals returns the latest classified record per company,
	// sorted by period descending.
	LatestSignals(ctx context.Context) ([]model.ClassifiedRecord, error)

	Close() error
}
