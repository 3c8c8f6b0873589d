package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Well-known fact keys in a raw filing payload. The crawler extracts these
// from XBRL instances; keys absent from the payload mean "not disclosed".
const (
	FactNetSales    = "net_sales"
	FactInventories = "inventories"
	FactNetIncome   = "net_income"
	FactOperatingCF = "operating_cf"
)

// RawFiling is one disclosure payload as delivered by the crawler.
// Numeric facts arrive as raw text and may be missing or malformed.
type RawFiling struct {
	DocID       string            `json:"doc_id"`
	CompanyCode string            `json:"edinet_code"`
	CompanyName string            `json:"company_name"`
	PeriodEnd   string            `json:"period_end"`
	SubmittedAt time.Time         `json:"submitted_at"`
	Facts       map[string]string `json:"facts"`
}

// FinancialRecord is the canonical per-company-per-period record.
// Financial fields use NullDecimal: an invalid value means the filing did not
// disclose the item, which is different from a disclosed zero.
type FinancialRecord struct {
	CompanyCode string
	CompanyName string
	PeriodEnd   time.Time
	Revenue     decimal.NullDecimal
	Inventory   decimal.NullDecimal
	NetIncome   decimal.NullDecimal
	OperatingCF decimal.NullDecimal
	DocID       string
	SubmittedAt time.Time
	IngestedAt  time.Time
}

// Key returns the (company_code, period) identity of the record.
func (r *FinancialRecord) Key() string {
	return r.CompanyCode + "|" + r.PeriodEnd.Format("2006-01-02")
}
