// Package pending keeps filings that produced no displayable result —
// insufficient history or a failed store write — so the next run retries them
// instead of silently dropping them.
package pending

import (
	"log"
	"sort"
	"sync"
	"time"
)

// Retry reasons.
const (
	ReasonNoPrior       = "insufficient-history"
	ReasonWriteFailed   = "write-failed"
	ReasonResolveFailed = "resolve-failed"
)

// Tracker handles retry bookkeeping with concurrency safety.
type Tracker struct {
	mu       sync.Mutex
	state    *State
	filePath string
}

// NewTracker creates a Tracker, loading or initializing state from disk.
func NewTracker(filePath string) (*Tracker, error) {
	state, err := LoadState(filePath)
	if err != nil {
		return nil, err
	}
	return &Tracker{state: state, filePath: filePath}, nil
}

// Mark records (or re-records) a filing for retry.
func (t *Tracker) Mark(companyCode string, periodEnd time.Time, docID, reason string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	key := companyCode + "|" + periodEnd.Format("2006-01-02")
	now := time.Now()
	entry, ok := t.state.Entries[key]
	if !ok {
		entry = Entry{
			CompanyCode: companyCode,
			PeriodEnd:   periodEnd.Format("2006-01-02"),
			FirstSeen:   now,
		}
	}
	entry.DocID = docID
	entry.Reason = reason
	entry.LastSeen = now
	entry.Attempts++
	t.state.Entries[key] = entry

	if err := t.save(); err != nil {
		log.Printf("[ERROR] failed to save pending state: %v", err)
	}
}

// Clear drops the retry entry for a filing that produced a stored result.
func (t *Tracker) Clear(companyCode string, periodEnd time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	key := companyCode + "|" + periodEnd.Format("2006-01-02")
	if _, ok := t.state.Entries[key]; !ok {
		return
	}
	delete(t.state.Entries, key)

	if err := t.save(); err != nil {
		log.Printf("[ERROR] failed to save pending state: %v", err)
	}
}

// Entries returns a sorted snapshot of everything awaiting retry.
func (t *Tracker) Entries() []Entry {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]Entry, 0, len(t.state.Entries))
	for _, e := range t.state.Entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CompanyCode != out[j].CompanyCode {
			return out[i].CompanyCode < out[j].CompanyCode
		}
		return out[i].PeriodEnd < out[j].PeriodEnd
	})
	return out
}

func (t *Tracker) save() error {
	return SaveState(t.filePath, t.state)
}
