package usecase

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var nonAmountChars = regexp.MustCompile(`[^0-9.]`)

// NormalizeAmount reduces raw input to digits and at most one decimal point,
// keeping the first point entered, and drops leading zeros unless the zero
// is followed by the point. It never fails and is idempotent.
func NormalizeAmount(raw string) string {
	v := nonAmountChars.ReplaceAllString(raw, "")

	if i := strings.IndexByte(v, '.'); i >= 0 {
		v = v[:i+1] + strings.ReplaceAll(v[i+1:], ".", "")
	}

	for len(v) > 1 && v[0] == '0' && v[1] != '.' {
		v = v[1:]
	}
	return v
}

// ParseAmount reports the positive value of a normalized amount. Empty,
// non-numeric and non-positive amounts are not valid.
func ParseAmount(s string) (decimal.Decimal, bool) {
	s = strings.TrimSuffix(strings.TrimSpace(s), ".")
	if strings.HasPrefix(s, ".") {
		s = "0" + s
	}
	if s == "" {
		return decimal.Zero, false
	}

	amount, err := decimal.NewFromString(s)
	if err != nil || !amount.IsPositive() {
		return decimal.Zero, false
	}
	return amount, true
}
