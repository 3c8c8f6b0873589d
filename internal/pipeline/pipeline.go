// Package pipeline runs one bounded batch: fetch raw filings, normalize,
// resolve prior periods, classify, and upsert. Companies are independent
// units of work; within a company, filings are folded in period order.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/hogehogetakumi/edinet-value-screener/internal/classifier"
	"github.com/hogehogetakumi/edinet-value-screener/internal/model"
	"github.com/hogehogetakumi/edinet-value-screener/internal/normalizer"
	"github.com/hogehogetakumi/edinet-value-screener/internal/pending"
	"github.com/hogehogetakumi/edinet-value-screener/internal/resolver"
	"github.com/hogehogetakumi/edinet-value-screener/internal/source"
	"github.com/hogehogetakumi/edinet-value-screener/internal/store"
)

// Pipeline wires the batch collaborators together.
type Pipeline struct {
	Source      source.Source
	Store       store.Store
	Tracker     *pending.Tracker
	Thresholds  classifier.Thresholds
	Concurrency int

	// Now allows tests to pin the clock; defaults to time.Now.
	Now func() time.Time
}

func New(src source.Source, st store.Store, tracker *pending.Tracker, th classifier.Thresholds, concurrency int) *Pipeline {
	return &Pipeline{
		Source:      src,
		Store:       st,
		Tracker:     tracker,
		Thresholds:  th,
		Concurrency: concurrency,
		Now:         time.Now,
	}
}

type companyCounts struct {
	classified  int
	pending     int
	skipped     int
	failedWrite int
	failedRead  int
}

// Run executes one batch pass and returns its summary. Per-filing failures
// are counted, not propagated; only a broken source or a cancelled context
// aborts the run.
func (p *Pipeline) Run(ctx context.Context) (*model.RunSummary, error) {
	summary := &model.RunSummary{
		RunID:     uuid.NewString(),
		StartedAt: p.Now(),
	}
	log.Printf("[INFO] run %s: fetching filings from %s", summary.RunID, p.Source.Name())

	filings, err := p.Source.FetchFilings(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch filings: %w", err)
	}

	byCompany := make(map[string][]model.RawFiling)
	for _, f := range filings {
		byCompany[f.CompanyCode] = append(byCompany[f.CompanyCode], f)
	}

	// Backlog entries from earlier runs are replayed from their stored
	// records, so a filing held pending is re-evaluated once its prior
	// period arrives, without the source redelivering it.
	retries := p.loadRetries(ctx, summary)
	companies := make(map[string]bool, len(byCompany)+len(retries))
	for code := range byCompany {
		companies[code] = true
	}
	for code := range retries {
		companies[code] = true
	}
	summary.Companies = len(companies)
	log.Printf("[INFO] run %s: %d filings across %d companies, %d backlog records",
		summary.RunID, len(filings), len(companies), len(retries))

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.Concurrency)
	for code := range companies {
		g.Go(func() error {
			// Abort takes effect between per-company units of work.
			if err := gctx.Err(); err != nil {
				return err
			}
			counts := p.processCompany(gctx, code, byCompany[code], retries[code])
			mu.Lock()
			summary.Classified += counts.classified
			summary.Pending += counts.pending
			summary.SkippedInvalid += counts.skipped
			summary.FailedWrites += counts.failedWrite
			summary.FailedReads += counts.failedRead
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		summary.FinishedAt = p.Now()
		return summary, err
	}

	if c, ok := p.Source.(source.Completer); ok {
		// A failed record write means the filing exists nowhere but in the
		// source; keep the batch unacknowledged so it is redelivered.
		if summary.FailedWrites > 0 {
			log.Printf("[WARN] run %s: %d failed writes, leaving source batch unacknowledged", summary.RunID, summary.FailedWrites)
		} else if err := c.Complete(); err != nil {
			log.Printf("[ERROR] acknowledge source batch: %v", err)
		}
	}

	summary.FinishedAt = p.Now()
	return summary, nil
}

// loadRetries resolves the tracker backlog into stored records, grouped by
// company. Entries whose record never reached the store (a failed record
// write) have nothing to replay and stay in the backlog until the source
// redelivers the filing.
func (p *Pipeline) loadRetries(ctx context.Context, summary *model.RunSummary) map[string][]*model.FinancialRecord {
	if p.Tracker == nil {
		return nil
	}
	var out map[string][]*model.FinancialRecord
	for _, e := range p.Tracker.Entries() {
		period, err := time.Parse("2006-01-02", e.PeriodEnd)
		if err != nil {
			log.Printf("[WARN] skip unparseable backlog entry %s %s", e.CompanyCode, e.PeriodEnd)
			continue
		}
		rec, err := p.Store.Record(ctx, e.CompanyCode, period)
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			log.Printf("[ERROR] load backlog record %s %s: %v", e.CompanyCode, e.PeriodEnd, err)
			summary.FailedReads++
			continue
		}
		if out == nil {
			out = make(map[string][]*model.FinancialRecord)
		}
		out[e.CompanyCode] = append(out[e.CompanyCode], rec)
	}
	return out
}

// processCompany folds one company's filings in non-decreasing period order.
// The ordering is a hard invariant: the resolver depends on earlier periods
// of the same run having been observed already.
func (p *Pipeline) processCompany(ctx context.Context, code string, batch []model.RawFiling, retries []*model.FinancialRecord) companyCounts {
	var counts companyCounts

	recs := make([]*model.FinancialRecord, 0, len(batch)+len(retries))
	seen := make(map[string]bool, len(batch))
	for i := range batch {
		rec, err := normalizer.Normalize(&batch[i], p.Now())
		if err != nil {
			log.Printf("[WARN] skip filing: %v", err)
			counts.skipped++
			continue
		}
		recs = append(recs, rec)
		seen[rec.Key()] = true
	}
	// Backlog records join the fold unless this batch redelivered the key;
	// the fresh filing supersedes the stored copy.
	for _, rec := range retries {
		if seen[rec.Key()] {
			continue
		}
		recs = append(recs, rec)
	}

	sort.SliceStable(recs, func(i, j int) bool {
		if !recs[i].PeriodEnd.Equal(recs[j].PeriodEnd) {
			return recs[i].PeriodEnd.Before(recs[j].PeriodEnd)
		}
		return recs[i].SubmittedAt.Before(recs[j].SubmittedAt)
	})

	res := resolver.New(p.Store)
	for _, rec := range recs {
		if err := p.Store.UpsertRecord(ctx, rec); err != nil {
			log.Printf("[ERROR] %s: %v", code, err)
			counts.failedWrite++
			p.mark(rec, pending.ReasonWriteFailed)
			res.Observe(rec)
			continue
		}

		prior, err := res.Prior(ctx, rec.CompanyCode, rec.PeriodEnd)
		if err != nil && !errors.Is(err, resolver.ErrNoPrior) {
			log.Printf("[ERROR] %s: %v", code, err)
			counts.failedRead++
			p.mark(rec, pending.ReasonResolveFailed)
			res.Observe(rec)
			continue
		}
		res.Observe(rec)

		classified := classifier.Classify(rec, prior, p.Thresholds)
		if classified.AllPending() {
			counts.pending++
			p.mark(rec, pending.ReasonNoPrior)
			continue
		}

		classified.UpdatedAt = p.Now()
		if err := p.Store.UpsertClassified(ctx, classified); err != nil {
			log.Printf("[ERROR] %s: %v", code, err)
			counts.failedWrite++
			p.mark(rec, pending.ReasonWriteFailed)
			continue
		}
		counts.classified++
		if p.Tracker != nil {
			p.Tracker.Clear(rec.CompanyCode, rec.PeriodEnd)
		}
	}
	return counts
}

func (p *Pipeline) mark(rec *model.FinancialRecord, reason string) {
	if p.Tracker != nil {
		p.Tracker.Mark(rec.CompanyCode, rec.PeriodEnd, rec.DocID, reason)
	}
}
