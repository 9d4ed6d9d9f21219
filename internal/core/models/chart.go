package models

import "github.com/shopspring/decimal"

// MajorCurrencies is the basket the chart compares the source currency against.
var MajorCurrencies = []string{"USD", "EUR", "GBP", "JPY", "CAD", "AUD", "BRL", "CNH"}

type ChartPoint struct {
	Currency string          `json:"name"`
	Value    decimal.Decimal `json:"value"`
}

type ChartSnapshot struct {
	Loading bool         `json:"loading"`
	Points  []ChartPoint `json:"points"`
	Err     error        `json:"-"`
}

// BasketFor returns the basket members other than from, in basket order.
func BasketFor(from string) []string {
	out := make([]string, 0, len(MajorCurrencies))
	for _, c := range MajorCurrencies {
		if c != from {
			out = append(out, c)
		}
	}
	return out
}
