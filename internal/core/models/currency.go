package models

import (
	"fmt"
	"strings"
)

// CurrencyOption is one entry of the currency dropdowns.
type CurrencyOption struct {
	Code    string `json:"code"`              // ISO 4217, e.g. "USD"
	Label   string `json:"label"`             // shown in the dropdown
	FlagURL string `json:"flag_url,omitempty"` // empty when no country is mapped
	Icon    string `json:"icon,omitempty"`     // fallback glyph when FlagURL is empty
}

const (
	flagURLTemplate = "https://flagcdn.com/16x12/%s.png"
	globeIcon       = "🌐"
)

// currencyCountries maps a currency code to the country whose flag is shown
// next to it.
var currencyCountries = map[string]string{
	"AUD": "AU", "BGN": "BG", "BRL": "BR", "CAD": "CA", "CHF": "CH",
	"CNY": "CN", "CNH": "CN", "CZK": "CZ", "DKK": "DK", "EUR": "EU",
	"GBP": "GB", "HKD": "HK", "HUF": "HU", "IDR": "ID", "ILS": "IL",
	"INR": "IN", "ISK": "IS", "JPY": "JP", "KRW": "KR", "MXN": "MX",
	"MYR": "MY", "NOK": "NO", "NZD": "NZ", "PHP": "PH", "PLN": "PL",
	"RON": "RO", "SEK": "SE", "SGD": "SG", "THB": "TH", "TRY": "TR",
	"USD": "US", "ZAR": "ZA",
}

func NewCurrencyOption(code string) CurrencyOption {
	opt := CurrencyOption{Code: code, Label: code}
	if country, ok := currencyCountries[code]; ok {
		opt.FlagURL = fmt.Sprintf(flagURLTemplate, strings.ToLower(country))
	} else {
		opt.Icon = globeIcon
	}
	return opt
}
