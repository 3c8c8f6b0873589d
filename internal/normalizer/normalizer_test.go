package normalizer

import (
	"errors"
	"testing"
	"time"

	"github.com/hogehogetakumi/edinet-value-screener/internal/model"
)

var ingestedAt = time.Date(2024, 6, 26, 9, 0, 0, 0, time.UTC)

func rawFiling(facts map[string]string) *model.RawFiling {
	return &model.RawFiling{
		DocID:       "S100TEST",
		CompanyCode: "E02144",
		CompanyName: "テスト株式会社",
		PeriodEnd:   "2024-03-31",
		SubmittedAt: ingestedAt,
		Facts:       facts,
	}
}

func TestNormalize_FullFiling(t *testing.T) {
	raw := rawFiling(map[string]string{
		model.FactNetSales:    "45,095,325",
		model.FactInventories: "4,255,614",
		model.FactNetIncome:   "(1,234)",
		model.FactOperatingCF: "3872940",
	})

	rec, err := Normalize(raw, ingestedAt)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.CompanyCode != "E02144" {
		t.Errorf("company code: got %q", rec.CompanyCode)
	}
	if got := rec.PeriodEnd.Format("2006-01-02"); got != "2024-03-31" {
		t.Errorf("period end: got %s", got)
	}
	if !rec.Revenue.Valid || rec.Revenue.Decimal.String() != "45095325" {
		t.Errorf("revenue: got %+v", rec.Revenue)
	}
	if !rec.NetIncome.Valid || rec.NetIncome.Decimal.String() != "-1234" {
		t.Errorf("parenthesised negative: got %+v", rec.NetIncome)
	}
}

func TestNormalize_AbsentIsNotZero(t *testing.T) {
	raw := rawFiling(map[string]string{
		model.FactNetSales:    "100",
		model.FactInventories: "0",
	})

	rec, err := Normalize(raw, ingestedAt)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !rec.Inventory.Valid || !rec.Inventory.Decimal.IsZero() {
		t.Errorf("disclosed zero must stay a valid zero, got %+v", rec.Inventory)
	}
	if rec.NetIncome.Valid {
		t.Errorf("undisclosed net income must stay absent, got %+v", rec.NetIncome)
	}
	if rec.OperatingCF.Valid {
		t.Errorf("undisclosed operating CF must stay absent, got %+v", rec.OperatingCF)
	}
}

func TestNormalize_PeriodFormats(t *testing.T) {
	for _, period := range []string{"2024-03-31", "2024/03/31", "20240331"} {
		raw := rawFiling(nil)
		raw.PeriodEnd = period
		rec, err := Normalize(raw, ingestedAt)
		if err != nil {
			t.Errorf("period %q: unexpected error: %v", period, err)
			continue
		}
		if got := rec.PeriodEnd.Format("2006-01-02"); got != "2024-03-31" {
			t.Errorf("period %q: parsed as %s", period, got)
		}
	}
}

func TestNormalize_ErrorKinds(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*model.RawFiling)
		want   ErrorKind
	}{
		{"blank company code", func(r *model.RawFiling) { r.CompanyCode = "  " }, MissingIdentifier},
		{"garbled period", func(r *model.RawFiling) { r.PeriodEnd = "FY2024" }, UnknownPeriodFormat},
		{"empty period", func(r *model.RawFiling) { r.PeriodEnd = "" }, UnknownPeriodFormat},
		{"malformed numeric", func(r *model.RawFiling) { r.Facts = map[string]string{model.FactNetSales: "N/A"} }, UnparseableNumeric},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := rawFiling(nil)
			tt.mutate(raw)
			_, err := Normalize(raw, ingestedAt)
			var nerr *Error
			if !errors.As(err, &nerr) {
				t.Fatalf("expected *Error, got %v", err)
			}
			if nerr.Kind != tt.want {
				t.Errorf("expected kind %s, got %s", tt.want, nerr.Kind)
			}
		})
	}
}
