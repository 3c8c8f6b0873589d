package pending

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func mustDate(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		t.Fatal(err)
	}
	return d
}

func TestTracker_MarkAccumulatesAttempts(t *testing.T) {
	tr, err := NewTracker(filepath.Join(t.TempDir(), "pending.json"))
	if err != nil {
		t.Fatal(err)
	}
	period := mustDate(t, "2024-03-31")

	tr.Mark("7203", period, "S100AAAA", ReasonNoPrior)
	tr.Mark("7203", period, "S100AAAA", ReasonWriteFailed)

	entries := tr.Entries()
	if len(entries) != 1 {
		t.Fatalf("same key should update in place, got %d entries", len(entries))
	}
	e := entries[0]
	if e.Attempts != 2 {
		t.Errorf("attempts: expected 2, got %d", e.Attempts)
	}
	if e.Reason != ReasonWriteFailed {
		t.Errorf("reason should track the latest mark, got %q", e.Reason)
	}
	if e.FirstSeen.After(e.LastSeen) {
		t.Errorf("first seen %v after last seen %v", e.FirstSeen, e.LastSeen)
	}
}

func TestTracker_ClearRemovesEntry(t *testing.T) {
	tr, err := NewTracker(filepath.Join(t.TempDir(), "pending.json"))
	if err != nil {
		t.Fatal(err)
	}
	period := mustDate(t, "2024-03-31")

	tr.Mark("7203", period, "S100AAAA", ReasonNoPrior)
	tr.Clear("7203", period)
	if got := tr.Entries(); len(got) != 0 {
		t.Errorf("expected no entries after clear, got %d", len(got))
	}

	// Clearing an unknown key is a no-op.
	tr.Clear("9984", period)
}

func TestTracker_EntriesSorted(t *testing.T) {
	tr, err := NewTracker(filepath.Join(t.TempDir(), "pending.json"))
	if err != nil {
		t.Fatal(err)
	}

	tr.Mark("9984", mustDate(t, "2023-12-31"), "S100CCCC", ReasonNoPrior)
	tr.Mark("7203", mustDate(t, "2024-03-31"), "S100BBBB", ReasonNoPrior)
	tr.Mark("7203", mustDate(t, "2023-03-31"), "S100AAAA", ReasonNoPrior)

	entries := tr.Entries()
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	want := []string{"7203|2023-03-31", "7203|2024-03-31", "9984|2023-12-31"}
	for i, e := range entries {
		got := e.CompanyCode + "|" + e.PeriodEnd
		if got != want[i] {
			t.Errorf("entries[%d]: expected %s, got %s", i, want[i], got)
		}
	}
}

func TestTracker_CreatesStateDirectory(t *testing.T) {
	// A default like data/pending_state.json must work on a fresh checkout
	// where data/ does not exist yet.
	path := filepath.Join(t.TempDir(), "data", "state", "pending.json")

	tr, err := NewTracker(path)
	if err != nil {
		t.Fatal(err)
	}
	tr.Mark("7203", mustDate(t, "2024-03-31"), "S100AAAA", ReasonNoPrior)

	if _, err := os.Stat(path); err != nil {
		t.Fatalf("state file was not written: %v", err)
	}
	reloaded, err := NewTracker(path)
	if err != nil {
		t.Fatal(err)
	}
	if got := reloaded.Entries(); len(got) != 1 {
		t.Errorf("expected the entry to persist under a created directory, got %d", len(got))
	}
}

func TestTracker_StateSurvivesReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pending.json")
	period := mustDate(t, "2024-03-31")

	tr, err := NewTracker(path)
	if err != nil {
		t.Fatal(err)
	}
	tr.Mark("7203", period, "S100AAAA", ReasonNoPrior)

	reloaded, err := NewTracker(path)
	if err != nil {
		t.Fatal(err)
	}
	entries := reloaded.Entries()
	if len(entries) != 1 {
		t.Fatalf("expected the marked entry to survive reload, got %d", len(entries))
	}
	if entries[0].DocID != "S100AAAA" || entries[0].Reason != ReasonNoPrior {
		t.Errorf("unexpected entry after reload: %+v", entries[0])
	}
}
