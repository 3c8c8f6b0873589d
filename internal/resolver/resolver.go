// Package resolver finds the immediately preceding comparable period for a
// filing, looking at the current batch first and the durable store second.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hogehogetakumi/edinet-value-screener/internal/model"
	"github.com/hogehogetakumi/edinet-value-screener/internal/store"
)

// ErrNoPrior reports that the company has no earlier record anywhere. A
// company's first disclosed period lands here; it is not a failure.
var ErrNoPrior = errors.New("resolver: no prior period")

// Resolver resolves prior periods for one company's filings within a run.
// Not safe for concurrent use; the pipeline creates one per company worker,
// which also keeps cross-company state unshared.
type Resolver struct {
	store store.Store
	seen  []model.FinancialRecord
}

func New(st store.Store) *Resolver {
	return &Resolver{store: st}
}

// Observe registers a record processed earlier in this run so later periods
// of the same company can compare against it before the store write settles.
func (r *Resolver) Observe(rec *model.FinancialRecord) {
	r.seen = append(r.seen, *rec)
}

// Prior returns the record with the largest period strictly less than
// periodEnd. Candidates sharing a period are tie-broken by the latest
// ingestion timestamp (amended filings supersede the original).
func (r *Resolver) Prior(ctx context.Context, companyCode string, periodEnd time.Time) (*model.FinancialRecord, error) {
	var best *model.FinancialRecord
	for i := range r.seen {
		cand := &r.seen[i]
		if cand.CompanyCode != companyCode || !cand.PeriodEnd.Before(periodEnd) {
			continue
		}
		if better(cand, best) {
			best = cand
		}
	}

	stored, err := r.store.PriorRecord(ctx, companyCode, periodEnd)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("resolve prior: %w", err)
	}
	if stored != nil && better(stored, best) {
		best = stored
	}

	if best == nil {
		return nil, ErrNoPrior
	}
	out := *best
	return &out, nil
}

// better reports whether a should replace b as the prior candidate:
// larger period wins, equal periods fall back to the later ingestion.
func better(a, b *model.FinancialRecord) bool {
	if b == nil {
		return true
	}
	if !a.PeriodEnd.Equal(b.PeriodEnd) {
		return a.PeriodEnd.After(b.PeriodEnd)
	}
	return a.IngestedAt.After(b.IngestedAt)
}
