package report

import (
	"fmt"
	"strings"

	"github.com/hogehogetakumi/edinet-value-screener/internal/model"
	"github.com/hogehogetakumi/edinet-value-screener/internal/pending"
)

// FormatRunSummary renders one run's outcome counts for the log.
func FormatRunSummary(s *model.RunSummary) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("run %s finished in %s\n", s.RunID, s.FinishedAt.Sub(s.StartedAt).Round(1e6)))
	b.WriteString(fmt.Sprintf("  companies:       %d\n", s.Companies))
	b.WriteString(fmt.Sprintf("  classified:      %d\n", s.Classified))
	b.WriteString(fmt.Sprintf("  pending:         %d\n", s.Pending))
	b.WriteString(fmt.Sprintf("  skipped-invalid: %d\n", s.SkippedInvalid))
	b.WriteString(fmt.Sprintf("  failed-write:    %d\n", s.FailedWrites))
	b.WriteString(fmt.Sprintf("  failed-read:     %d", s.FailedReads))
	return b.String()
}

// FormatPendingEntries renders the retry backlog, if any.
func FormatPendingEntries(entries []pending.Entry) string {
	if len(entries) == 0 {
		return "retry backlog empty"
	}
	var b strings.Builder
	b.WriteString(fmt.Sprintf("retry backlog: %d filings\n", len(entries)))
	for _, e := range entries {
		b.WriteString(fmt.Sprintf("  %s %s (%s, attempts=%d)\n", e.CompanyCode, e.PeriodEnd, e.Reason, e.Attempts))
	}
	return strings.TrimRight(b.String(), "\n")
}
