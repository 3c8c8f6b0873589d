// Package normalizer converts raw filing payloads into canonical
// FinancialRecords. A missing numeric fact is preserved as "not disclosed";
// only present-but-unparseable input is an error.
package normalizer

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/hogehogetakumi/edinet-value-screener/internal/model"
)

// ErrorKind classifies why a filing could not be normalized.
type ErrorKind string

const (
	MissingIdentifier   ErrorKind = "MISSING_IDENTIFIER"
	UnparseableNumeric  ErrorKind = "UNPARSEABLE_NUMERIC"
	UnknownPeriodFormat ErrorKind = "UNKNOWN_PERIOD_FORMAT"
)

// Error is a per-filing normalization failure. The filing is skipped and
// logged; the batch continues.
type Error struct {
	Kind  ErrorKind
	DocID string
	Field string
	Value string
}

func (e *Error) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("normalize %s: %s field %q (value %q)", e.DocID, e.Kind, e.Field, e.Value)
	}
	return fmt.Sprintf("normalize %s: %s", e.DocID, e.Kind)
}

// Accepted period end formats, tried in order.
var periodLayouts = []string{"2006-01-02", "2006/01/02", "20060102"}

// Normalize converts one raw filing into a canonical FinancialRecord.
// It is a pure transform apart from the ingestion timestamp, which is
// supplied by the caller so re-runs can be made reproducible.
func Normalize(raw *model.RawFiling, ingestedAt time.Time) (*model.FinancialRecord, error) {
	code := strings.TrimSpace(raw.CompanyCode)
	if code == "" {
		return nil, &Error{Kind: MissingIdentifier, DocID: raw.DocID, Field: "edinet_code"}
	}

	periodEnd, err := parsePeriod(raw.PeriodEnd)
	if err != nil {
		return nil, &Error{Kind: UnknownPeriodFormat, DocID: raw.DocID, Field: "period_end", Value: raw.PeriodEnd}
	}

	rec := &model.FinancialRecord{
		CompanyCode: code,
		CompanyName: strings.TrimSpace(raw.CompanyName),
		PeriodEnd:   periodEnd,
		DocID:       raw.DocID,
		SubmittedAt: raw.SubmittedAt,
		IngestedAt:  ingestedAt,
	}

	fields := []struct {
		key string
		dst *decimal.NullDecimal
	}{
		{model.FactNetSales, &rec.Revenue},
		{model.FactInventories, &rec.Inventory},
		{model.FactNetIncome, &rec.NetIncome},
		{model.FactOperatingCF, &rec.OperatingCF},
	}
	for _, f := range fields {
		text, ok := raw.Facts[f.key]
		if !ok || strings.TrimSpace(text) == "" {
			// Genuinely absent: not an error, and never coerced to zero.
			continue
		}
		d, err := parseAmount(text)
		if err != nil {
			return nil, &Error{Kind: UnparseableNumeric, DocID: raw.DocID, Field: f.key, Value: text}
		}
		*f.dst = decimal.NullDecimal{Decimal: d, Valid: true}
	}

	return rec, nil
}

func parsePeriod(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty period")
	}
	for _, layout := range periodLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized period %q", s)
}

// parseAmount accepts comma-grouped digits and accounting-style negatives:
// "45,095,325" and "(1,234)" both parse.
func parseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, ",", "")
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		s = "-" + s[1:len(s)-1]
	}
	return decimal.NewFromString(s)
}
