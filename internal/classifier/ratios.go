package classifier

import (
	"strings"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// growthRate returns (current - prior) / prior. ok is false when either side
// is undisclosed or the prior value is zero; division by a zero base is
// undefined, which is different from zero growth.
func growthRate(current, prior decimal.NullDecimal) (decimal.Decimal, bool) {
	if !current.Valid || !prior.Valid || prior.Decimal.IsZero() {
		return decimal.Decimal{}, false
	}
	return current.Decimal.Sub(prior.Decimal).Div(prior.Decimal), true
}

// pct renders a ratio as a signed percentage, e.g. +12.5% or -3.0%.
func pct(d decimal.Decimal) string {
	s := d.Mul(hundred).StringFixed(1)
	if !strings.HasPrefix(s, "-") {
		s = "+" + s
	}
	return s + "%"
}

// pts renders a ratio difference in percentage points, e.g. 40.0pt.
func pts(d decimal.Decimal) string {
	return d.Mul(hundred).StringFixed(1) + "pt"
}
