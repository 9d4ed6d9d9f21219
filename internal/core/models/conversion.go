package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ConversionResult is always expressed as 1 From = ExchangeRate To.
type ConversionResult struct {
	ConvertedAmount decimal.Decimal `json:"converted_amount"`
	ExchangeRate    decimal.Decimal `json:"exchange_rate"`
}

func ZeroResult() ConversionResult {
	return ConversionResult{ConvertedAmount: decimal.Zero, ExchangeRate: decimal.Zero}
}

// ConversionState is the phase of the debounced conversion pipeline.
type ConversionState string

const (
	// ConversionIdle - no valid amount
	ConversionIdle ConversionState = "IDLE"
	// ConversionPending - debounce timer armed or fetch in flight
	ConversionPending ConversionState = "PENDING"
	// ConversionSettled - result available
	ConversionSettled ConversionState = "SETTLED"
)

// ConversionSnapshot is a read-only copy of the conversion pipeline state.
type ConversionSnapshot struct {
	State       ConversionState  `json:"state"`
	Loading     bool             `json:"loading"`
	Result      ConversionResult `json:"result"`
	AnimateFrom decimal.Decimal  `json:"animate_from"`
	Err         error            `json:"-"`
}

// ConversionRecord is one settled oracle-backed conversion kept in history.
type ConversionRecord struct {
	ID              uuid.UUID       `json:"id" db:"id"`
	FromCode        string          `json:"from" db:"from_code"`
	ToCode          string          `json:"to" db:"to_code"`
	Amount          decimal.Decimal `json:"amount" db:"amount"`
	ExchangeRate    decimal.Decimal `json:"exchange_rate" db:"exchange_rate"`
	ConvertedAmount decimal.Decimal `json:"converted_amount" db:"converted_amount"`
	CreatedAt       time.Time       `json:"created_at" db:"created_at"`
}
