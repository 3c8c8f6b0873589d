package model

import "time"

// Signal is the traffic-light classification for one risk category.
type Signal string

const (
	SignalGreen  Signal = "GREEN"
	SignalYellow Signal = "YELLOW"
	SignalRed    Signal = "RED"
)

// Risk categories evaluated per filing.
const (
	CategoryInventory = "inventory"
	CategoryAccruals  = "cf"
)

// CategoryResult is the outcome for a single risk category. Pending means the
// category could not be evaluated (missing field, zero denominator, no prior
// period); it is a normal outcome, not an error, and carries no signal.
type CategoryResult struct {
	Pending bool
	Signal  Signal
	Comment string
}

// ClassifiedRecord is the displayable screening result for one filing.
// It exists only for filings with a resolvable prior period; when a single
// category is Pending the other may still carry a signal.
type ClassifiedRecord struct {
	CompanyCode string
	CompanyName string
	PeriodEnd   time.Time
	Inventory   CategoryResult
	Accruals    CategoryResult
	UpdatedAt   time.Time
}

// AllPending reports whether no category produced a signal.
func (c *ClassifiedRecord) AllPending() bool {
	return c.Inventory.Pending && c.Accruals.Pending
}

// RunSummary aggregates per-filing outcomes of one batch run.
type RunSummary struct {
	RunID          string
	StartedAt      time.Time
	FinishedAt     time.Time
	Companies      int
	Classified     int
	Pending        int
	SkippedInvalid int
	FailedWrites   int
	FailedReads    int
}
