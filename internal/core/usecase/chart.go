package usecase

import (
	"context"
	"sync"

	"github.com/Nzyazin/fxwidget/internal/core/logger"
	"github.com/Nzyazin/fxwidget/internal/core/metrics"
	"github.com/Nzyazin/fxwidget/internal/core/models"
	"github.com/Nzyazin/fxwidget/internal/core/oracle"
	"github.com/shopspring/decimal"
)

// ChartPipeline refreshes the basket comparison without debounce. A failed
// refresh keeps the previous points.
//
// With suppressStale off, whichever basket response completes last wins,
// even if it belongs to an older refresh.
type ChartPipeline struct {
	ctx           context.Context
	oracle        oracle.RateOracle
	log           logger.Logger
	metrics       *metrics.Metrics
	notify        func()
	suppressStale bool

	wg      sync.WaitGroup
	mu      sync.Mutex
	seq     uint64
	loading bool
	points  []models.ChartPoint
	lastErr error
}

type ChartDeps struct {
	Oracle        oracle.RateOracle
	Log           logger.Logger
	Metrics       *metrics.Metrics
	Notify        func()
	SuppressStale bool
}

func NewChartPipeline(ctx context.Context, deps ChartDeps) *ChartPipeline {
	if deps.Notify == nil {
		deps.Notify = func() {}
	}
	return &ChartPipeline{
		ctx:           ctx,
		oracle:        deps.Oracle,
		log:           deps.Log,
		metrics:       deps.Metrics,
		notify:        deps.Notify,
		suppressStale: deps.SuppressStale,
		points:        []models.ChartPoint{},
	}
}

// Refresh converts amount (or 1 when amount is not a positive number) from
// the source currency into the rest of the basket.
func (c *ChartPipeline) Refresh(amount, from string) {
	value, ok := ParseAmount(amount)
	if !ok {
		value = decimal.NewFromInt(1)
	}

	c.mu.Lock()
	c.seq++
	seq := c.seq
	c.loading = true
	c.mu.Unlock()
	c.notify()

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.fetch(seq, value, from)
	}()
}

func (c *ChartPipeline) fetch(seq uint64, amount decimal.Decimal, from string) {
	basket := models.BasketFor(from)
	rates, err := c.oracle.Basket(c.ctx, amount, from, basket)

	c.mu.Lock()
	if c.suppressStale && seq != c.seq {
		c.mu.Unlock()
		c.metrics.StaleDiscarded("chart")
		c.log.Debug("Discarded stale chart response",
			logger.StringField("from", from),
			logger.Uint64Field("sequence", seq))
		return
	}
	c.loading = false

	if err != nil {
		c.lastErr = err
		c.mu.Unlock()
		c.log.Warn("Chart refresh failed",
			logger.StringField("from", from),
			logger.ErrorField("error", err))
		c.notify()
		return
	}

	points := make([]models.ChartPoint, 0, len(basket))
	for _, code := range basket {
		if v, ok := rates[code]; ok {
			points = append(points, models.ChartPoint{Currency: code, Value: v})
		}
	}
	c.points = points
	c.lastErr = nil
	c.mu.Unlock()
	c.notify()
}

func (c *ChartPipeline) Snapshot() models.ChartSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	points := make([]models.ChartPoint, len(c.points))
	copy(points, c.points)
	return models.ChartSnapshot{Loading: c.loading, Points: points, Err: c.lastErr}
}

// Wait blocks until every refresh started so far has completed.
func (c *ChartPipeline) Wait() {
	c.wg.Wait()
}
