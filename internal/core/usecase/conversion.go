package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/Nzyazin/fxwidget/internal/core/logger"
	"github.com/Nzyazin/fxwidget/internal/core/metrics"
	"github.com/Nzyazin/fxwidget/internal/core/models"
	"github.com/Nzyazin/fxwidget/internal/core/oracle"
	"github.com/Nzyazin/fxwidget/internal/core/repository"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const DefaultDebounce = 500 * time.Millisecond

type ConversionInput struct {
	Amount string
	From   string
	To     string
}

// ConversionPipeline turns amount/from/to changes into a converted result.
// Every Update bumps a generation counter; a timer or a fetch completion
// belonging to an older generation is dropped, so only the freshest input
// ever reaches the result.
type ConversionPipeline struct {
	ctx      context.Context
	oracle   oracle.RateOracle
	history  repository.HistoryRepository
	sched    Scheduler
	debounce time.Duration
	log      logger.Logger
	metrics  *metrics.Metrics
	notify   func()

	mu          sync.Mutex
	gen         uint64
	timer       Timer
	state       models.ConversionState
	loading     bool
	result      models.ConversionResult
	animateFrom decimal.Decimal
	lastErr     error
}

type ConversionDeps struct {
	Oracle   oracle.RateOracle
	History  repository.HistoryRepository
	Sched    Scheduler
	Debounce time.Duration
	Log      logger.Logger
	Metrics  *metrics.Metrics
	Notify   func()
}

func NewConversionPipeline(ctx context.Context, deps ConversionDeps) *ConversionPipeline {
	if deps.Sched == nil {
		deps.Sched = WallClock
	}
	if deps.Debounce <= 0 {
		deps.Debounce = DefaultDebounce
	}
	if deps.Notify == nil {
		deps.Notify = func() {}
	}
	return &ConversionPipeline{
		ctx:         ctx,
		oracle:      deps.Oracle,
		history:     deps.History,
		sched:       deps.Sched,
		debounce:    deps.Debounce,
		log:         deps.Log,
		metrics:     deps.Metrics,
		notify:      deps.Notify,
		state:       models.ConversionIdle,
		result:      models.ZeroResult(),
		animateFrom: decimal.Zero,
	}
}

func (p *ConversionPipeline) Update(in ConversionInput) {
	amount, valid := ParseAmount(in.Amount)

	p.mu.Lock()
	p.gen++
	gen := p.gen
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
	// a fetch still in flight now belongs to an older generation
	p.loading = false

	if !valid || in.From == "" || in.To == "" {
		p.state = models.ConversionIdle
		p.result = models.ZeroResult()
		p.lastErr = nil
		p.mu.Unlock()
		p.notify()
		return
	}

	p.state = models.ConversionPending
	p.timer = p.sched.AfterFunc(p.debounce, func() {
		p.fire(gen, amount, in.From, in.To)
	})
	p.mu.Unlock()
	p.notify()
}

func (p *ConversionPipeline) fire(gen uint64, amount decimal.Decimal, from, to string) {
	p.mu.Lock()
	if gen != p.gen {
		p.mu.Unlock()
		return
	}
	p.timer = nil

	if from == to {
		p.settle(models.ConversionResult{ConvertedAmount: amount, ExchangeRate: decimal.NewFromInt(1)})
		p.mu.Unlock()
		p.notify()
		return
	}

	p.loading = true
	p.mu.Unlock()
	p.notify()

	rate, err := p.oracle.PairRate(p.ctx, from, to)

	p.mu.Lock()
	if gen != p.gen {
		p.mu.Unlock()
		p.metrics.StaleDiscarded("conversion")
		p.log.Debug("Discarded stale conversion response",
			logger.StringField("from", from),
			logger.StringField("to", to),
			logger.Uint64Field("generation", gen))
		return
	}
	p.loading = false

	if err != nil {
		p.state = models.ConversionSettled
		p.result = models.ZeroResult()
		p.lastErr = err
		p.mu.Unlock()
		p.log.Warn("Conversion failed",
			logger.StringField("from", from),
			logger.StringField("to", to),
			logger.ErrorField("error", err))
		p.notify()
		return
	}

	result := models.ConversionResult{ConvertedAmount: amount.Mul(rate), ExchangeRate: rate}
	p.settle(result)
	p.mu.Unlock()
	p.notify()

	p.record(models.ConversionRecord{
		ID:              uuid.New(),
		FromCode:        from,
		ToCode:          to,
		Amount:          amount,
		ExchangeRate:    rate,
		ConvertedAmount: result.ConvertedAmount,
		CreatedAt:       time.Now().UTC(),
	})
}

// settle must be called with p.mu held.
func (p *ConversionPipeline) settle(result models.ConversionResult) {
	p.animateFrom = p.result.ConvertedAmount
	p.result = result
	p.state = models.ConversionSettled
	p.lastErr = nil
}

func (p *ConversionPipeline) record(rec models.ConversionRecord) {
	if p.history == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := p.history.Save(ctx, rec); err != nil {
		p.log.Error("Failed to record conversion",
			logger.StringField("id", rec.ID.String()),
			logger.ErrorField("error", err))
	}
}

func (p *ConversionPipeline) Snapshot() models.ConversionSnapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return models.ConversionSnapshot{
		State:       p.state,
		Loading:     p.loading,
		Result:      p.result,
		AnimateFrom: p.animateFrom,
		Err:         p.lastErr,
	}
}

// Stop cancels the pending timer and orphans any fetch in flight.
func (p *ConversionPipeline) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.gen++
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
	p.loading = false
}
