package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/hogehogetakumi/edinet-value-screener/internal/model"
)

// MemoryStore is an in-memory Store used when SQLite is not configured and in
// tests. Same replace-whole-row, latest-timestamp-wins semantics as SQLite.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]model.FinancialRecord
	signals map[string]model.ClassifiedRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]model.FinancialRecord),
		signals: make(map[string]model.ClassifiedRecord),
	}
}

func (m *MemoryStore) UpsertRecord(_ context.Context, rec *model.FinancialRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := rec.Key()
	if old, ok := m.records[key]; ok && old.IngestedAt.After(rec.IngestedAt) {
		return nil
	}
	m.records[key] = *rec
	return nil
}

func (m *MemoryStore) Record(_ context.Context, companyCode string, periodEnd time.Time) (*model.FinancialRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.records[companyCode+"|"+periodEnd.Format(periodLayout)]
	if !ok {
		return nil, ErrNotFound
	}
	r := rec
	return &r, nil
}

func (m *MemoryStore) PriorRecord(_ context.Context, companyCode string, before time.Time) (*model.FinancialRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var best *model.FinancialRecord
	for _, rec := range m.records {
		if rec.CompanyCode != companyCode || !rec.PeriodEnd.Before(before) {
			continue
		}
		if best == nil || rec.PeriodEnd.After(best.PeriodEnd) {
			r := rec
			best = &r
		}
	}
	if best == nil {
		return nil, ErrNotFound
	}
	return best, nil
}

func (m *MemoryStore) UpsertClassified(_ context.Context, rec *model.ClassifiedRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := rec.CompanyCode + "|" + rec.PeriodEnd.Format(periodLayout)
	if old, ok := m.signals[key]; ok && old.UpdatedAt.After(rec.UpdatedAt) {
		return nil
	}
	m.signals[key] = *rec
	return nil
}

func (m *MemoryStore) LatestSignals(_ context.Context) ([]model.ClassifiedRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	latest := make(map[string]model.ClassifiedRecord)
	for _, rec := range m.signals {
		if cur, ok := latest[rec.CompanyCode]; !ok || rec.PeriodEnd.After(cur.PeriodEnd) {
			latest[rec.CompanyCode] = rec
		}
	}
	out := make([]model.ClassifiedRecord, 0, len(latest))
	for _, rec := range latest {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].PeriodEnd.Equal(out[j].PeriodEnd) {
			return out[i].PeriodEnd.After(out[j].PeriodEnd)
		}
		return out[i].CompanyCode < out[j].CompanyCode
	})
	return out, nil
}

func (m *MemoryStore) Close() error { return nil }
