package usecase

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/Nzyazin/fxwidget/internal/core/logger"
	"github.com/Nzyazin/fxwidget/internal/core/models"
	"github.com/Nzyazin/fxwidget/internal/core/oracle"
)

// Catalog is the list of currency codes known to the oracle. It is loaded
// once and never changes afterwards; a failed load leaves it empty.
type Catalog struct {
	oracle oracle.RateOracle
	log    logger.Logger

	once    sync.Once
	mu      sync.RWMutex
	options []models.CurrencyOption
	codes   map[string]struct{}
	err     error
}

func NewCatalog(o oracle.RateOracle, log logger.Logger) *Catalog {
	return &Catalog{oracle: o, log: log, codes: map[string]struct{}{}}
}

// Load fetches the catalog on the first call only. Later calls return the
// outcome of the first one.
func (c *Catalog) Load(ctx context.Context) error {
	c.once.Do(func() {
		latest, err := c.oracle.Latest(ctx)
		if err != nil {
			c.log.Error("Failed to load currency catalog", logger.ErrorField("error", err))
			c.mu.Lock()
			c.err = err
			c.mu.Unlock()
			return
		}

		codes := make([]string, 0, len(latest.Rates))
		for code := range latest.Rates {
			if code != latest.Base {
				codes = append(codes, code)
			}
		}
		sort.Strings(codes)

		options := make([]models.CurrencyOption, 0, len(codes)+1)
		options = append(options, models.NewCurrencyOption(latest.Base))
		for _, code := range codes {
			options = append(options, models.NewCurrencyOption(code))
		}

		c.mu.Lock()
		c.options = options
		for _, opt := range options {
			c.codes[opt.Code] = struct{}{}
		}
		c.mu.Unlock()

		c.log.Info("Currency catalog loaded",
			logger.StringField("base", latest.Base),
			logger.IntField("currencies", len(options)))
	})

	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.err
}

func (c *Catalog) Options() []models.CurrencyOption {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]models.CurrencyOption, len(c.options))
	copy(out, c.options)
	return out
}

// Search returns the options whose code or label contains query, ignoring
// case. An empty query returns everything.
func (c *Catalog) Search(query string) []models.CurrencyOption {
	query = strings.ToUpper(strings.TrimSpace(query))
	if query == "" {
		return c.Options()
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]models.CurrencyOption, 0)
	for _, opt := range c.options {
		if strings.Contains(opt.Code, query) || strings.Contains(strings.ToUpper(opt.Label), query) {
			out = append(out, opt)
		}
	}
	return out
}

func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.options)
}

// Option returns the option for code, or ErrCatalogUnavailable when nothing
// was loaded and ErrUnknownCurrency when code is not listed.
func (c *Catalog) Option(code string) (models.CurrencyOption, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if len(c.options) == 0 {
		return models.CurrencyOption{}, ErrCatalogUnavailable
	}
	if _, ok := c.codes[code]; !ok {
		return models.CurrencyOption{}, ErrUnknownCurrency
	}
	return models.NewCurrencyOption(code), nil
}
