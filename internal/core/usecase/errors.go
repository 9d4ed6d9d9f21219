package usecase

import "errors"

var (
	ErrWidgetNotFound     = errors.New("widget not found")
	ErrUnknownCurrency    = errors.New("unknown currency")
	ErrCatalogUnavailable = errors.New("currency catalog unavailable")
)
