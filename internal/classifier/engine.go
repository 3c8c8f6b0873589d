// Package classifier maps a filing and its prior period to traffic-light
// signals per risk category. Classification is pure: identical inputs and
// thresholds always produce identical signals and comments.
package classifier

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/hogehogetakumi/edinet-value-screener/internal/model"
)

// Thresholds are the classification constants, validated at startup
// (red margin > yellow margin > 0).
type Thresholds struct {
	RedMargin       decimal.Decimal
	YellowMargin    decimal.Decimal
	AccrualFraction decimal.Decimal
}

// NewThresholds builds Thresholds from the configuration floats.
func NewThresholds(redMargin, yellowMargin, accrualFraction float64) Thresholds {
	return Thresholds{
		RedMargin:       decimal.NewFromFloat(redMargin),
		YellowMargin:    decimal.NewFromFloat(yellowMargin),
		AccrualFraction: decimal.NewFromFloat(accrualFraction),
	}
}

// Classify evaluates both risk categories for the current record against its
// prior period. A nil prior means insufficient history: both categories come
// back pending. Categories are independent; one may classify while the other
// stays pending. UpdatedAt is left for the caller to stamp.
func Classify(current, prior *model.FinancialRecord, th Thresholds) *model.ClassifiedRecord {
	rec := &model.ClassifiedRecord{
		CompanyCode: current.CompanyCode,
		CompanyName: current.CompanyName,
		PeriodEnd:   current.PeriodEnd,
	}
	if prior == nil {
		rec.Inventory = pending("insufficient history: no prior period")
		rec.Accruals = pending("insufficient history: no prior period")
		return rec
	}
	rec.Inventory = classifyInventory(current, prior, th)
	rec.Accruals = classifyAccruals(current, th)
	return rec
}

// classifyInventory flags inventory growing materially faster than sales.
func classifyInventory(current, prior *model.FinancialRecord, th Thresholds) model.CategoryResult {
	revGrowth, ok := growthRate(current.Revenue, prior.Revenue)
	if !ok {
		return pending("revenue growth undefined: revenue undisclosed or prior revenue zero")
	}
	invGrowth, ok := growthRate(current.Inventory, prior.Inventory)
	if !ok {
		return pending("inventory growth undefined: inventory undisclosed or prior inventory zero")
	}

	gap := invGrowth.Sub(revGrowth)
	switch {
	case gap.GreaterThan(th.RedMargin):
		return model.CategoryResult{
			Signal: model.SignalRed,
			Comment: fmt.Sprintf("inventory %s outpaces revenue %s; gap %s exceeds red margin %s",
				pct(invGrowth), pct(revGrowth), pts(gap), pts(th.RedMargin)),
		}
	case gap.GreaterThan(th.YellowMargin):
		return model.CategoryResult{
			Signal: model.SignalYellow,
			Comment: fmt.Sprintf("inventory %s outpaces revenue %s; gap %s exceeds yellow margin %s",
				pct(invGrowth), pct(revGrowth), pts(gap), pts(th.YellowMargin)),
		}
	default:
		return model.CategoryResult{
			Signal: model.SignalGreen,
			Comment: fmt.Sprintf("inventory %s vs revenue %s within margins",
				pct(invGrowth), pct(revGrowth)),
		}
	}
}

// classifyAccruals flags profit/cash divergence. RED is the black-ink
// bankruptcy pattern: positive reported income with negative operating cash
// flow. A loss-making but cash-stable company is deliberately not flagged.
func classifyAccruals(current *model.FinancialRecord, th Thresholds) model.CategoryResult {
	if !current.NetIncome.Valid {
		return pending("net income undisclosed")
	}
	if !current.OperatingCF.Valid {
		return pending("operating cash flow undisclosed")
	}

	ni := current.NetIncome.Decimal
	ocf := current.OperatingCF.Decimal

	if ni.IsPositive() && ocf.IsNegative() {
		return model.CategoryResult{
			Signal: model.SignalRed,
			Comment: fmt.Sprintf("net income %s positive while operating cash flow %s negative",
				ni.String(), ocf.String()),
		}
	}
	if ni.IsPositive() {
		floor := ni.Mul(th.AccrualFraction)
		if ocf.LessThan(floor) {
			return model.CategoryResult{
				Signal: model.SignalYellow,
				Comment: fmt.Sprintf("operating cash flow %s below %s of net income %s (floor %s)",
					ocf.String(), pct2(th.AccrualFraction), ni.String(), floor.String()),
			}
		}
		return model.CategoryResult{
			Signal: model.SignalGreen,
			Comment: fmt.Sprintf("operating cash flow %s supports net income %s", ocf.String(), ni.String()),
		}
	}
	return model.CategoryResult{
		Signal:  model.SignalGreen,
		Comment: fmt.Sprintf("net income %s not positive; accrual divergence not applicable", ni.String()),
	}
}

func pending(comment string) model.CategoryResult {
	return model.CategoryResult{Pending: true, Comment: comment}
}

// pct2 renders an unsigned fraction as a percentage, e.g. 50%.
func pct2(d decimal.Decimal) string {
	return d.Mul(hundred).String() + "%"
}
