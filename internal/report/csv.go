package report

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/hogehogetakumi/edinet-value-screener/internal/model"
	"github.com/hogehogetakumi/edinet-value-screener/internal/store"
)

// WriteLatestCSV exports the latest classified record per company, sorted by
// period descending, for the read-only presentation consumer. Pending
// categories export as empty cells.
func WriteLatestCSV(ctx context.Context, st store.Store, path string) error {
	records, err := st.LatestSignals(ctx)
	if err != nil {
		return fmt.Errorf("load latest signals: %w", err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create export dir: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create csv: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	header := []string{"company_code", "company_name", "period_end",
		"signal_inventory", "comment_inventory", "signal_cf", "comment_cf", "updated_at"}
	if err := w.Write(header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, rec := range records {
		row := []string{
			rec.CompanyCode,
			rec.CompanyName,
			rec.PeriodEnd.Format("2006-01-02"),
			signalCell(rec.Inventory),
			commentCell(rec.Inventory),
			signalCell(rec.Accruals),
			commentCell(rec.Accruals),
			rec.UpdatedAt.UTC().Format(time.RFC3339),
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	w.Flush()
	return w.Error()
}

func signalCell(c model.CategoryResult) string {
	if c.Pending {
		return ""
	}
	return string(c.Signal)
}

func commentCell(c model.CategoryResult) string {
	if c.Pending {
		return ""
	}
	return c.Comment
}
