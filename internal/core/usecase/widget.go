package usecase

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/Nzyazin/fxwidget/internal/core/logger"
	"github.com/Nzyazin/fxwidget/internal/core/metrics"
	"github.com/Nzyazin/fxwidget/internal/core/models"
	"github.com/Nzyazin/fxwidget/internal/core/oracle"
	"github.com/Nzyazin/fxwidget/internal/core/repository"
	"github.com/google/uuid"
)

type WidgetOptions struct {
	Oracle             oracle.RateOracle
	Catalog            *Catalog
	History            repository.HistoryRepository
	Log                logger.Logger
	Metrics            *metrics.Metrics
	Sched              Scheduler
	Debounce           time.Duration
	SuppressChartStale bool
	DefaultFrom        string
	DefaultTo          string
}

// WidgetSnapshot is everything the presentation layer needs, copied out
// under the owning locks.
type WidgetSnapshot struct {
	ID          uuid.UUID
	Amount      string
	From        string
	To          string
	InitialLoad bool
	Conversion  models.ConversionSnapshot
	Chart       models.ChartSnapshot
}

// Widget owns the user inputs and hands value copies of them to the
// conversion and chart pipelines.
type Widget struct {
	id         uuid.UUID
	catalog    *Catalog
	conversion *ConversionPipeline
	chart      *ChartPipeline
	cancel     context.CancelFunc

	mu          sync.Mutex
	amount      string
	from        string
	to          string
	initialLoad bool
	lastSeen    time.Time

	subsMu sync.Mutex
	subs   map[chan struct{}]struct{}
	closed bool
}

func NewWidget(id uuid.UUID, opts WidgetOptions) *Widget {
	ctx, cancel := context.WithCancel(context.Background())

	w := &Widget{
		id:          id,
		catalog:     opts.Catalog,
		cancel:      cancel,
		from:        opts.DefaultFrom,
		to:          opts.DefaultTo,
		initialLoad: true,
		lastSeen:    time.Now(),
		subs:        map[chan struct{}]struct{}{},
	}

	w.conversion = NewConversionPipeline(ctx, ConversionDeps{
		Oracle:   opts.Oracle,
		History:  opts.History,
		Sched:    opts.Sched,
		Debounce: opts.Debounce,
		Log:      opts.Log,
		Metrics:  opts.Metrics,
		Notify:   w.broadcast,
	})
	w.chart = NewChartPipeline(ctx, ChartDeps{
		Oracle:        opts.Oracle,
		Log:           opts.Log,
		Metrics:       opts.Metrics,
		Notify:        w.broadcast,
		SuppressStale: opts.SuppressChartStale,
	})
	return w
}

func (w *Widget) ID() uuid.UUID {
	return w.id
}

// SetAmount normalizes raw and, when the amount changed, feeds both
// pipelines. The first non-empty amount ends the initial load for good.
func (w *Widget) SetAmount(raw string) WidgetSnapshot {
	amount := NormalizeAmount(raw)

	w.mu.Lock()
	w.lastSeen = time.Now()
	if amount != w.amount {
		w.amount = amount
		if w.initialLoad && amount != "" {
			w.initialLoad = false
		}
		w.triggerLocked(true)
	}
	w.mu.Unlock()

	return w.Snapshot()
}

func (w *Widget) SetFrom(code string) (WidgetSnapshot, error) {
	opt, err := w.catalog.Option(normalizeCode(code))
	if err != nil {
		return WidgetSnapshot{}, err
	}

	w.mu.Lock()
	w.lastSeen = time.Now()
	if opt.Code != w.from {
		w.from = opt.Code
		w.triggerLocked(true)
	}
	w.mu.Unlock()

	return w.Snapshot(), nil
}

func (w *Widget) SetTo(code string) (WidgetSnapshot, error) {
	opt, err := w.catalog.Option(normalizeCode(code))
	if err != nil {
		return WidgetSnapshot{}, err
	}

	w.mu.Lock()
	w.lastSeen = time.Now()
	if opt.Code != w.to {
		w.to = opt.Code
		w.triggerLocked(false)
	}
	w.mu.Unlock()

	return w.Snapshot(), nil
}

// Swap exchanges from and to in one step under the widget lock.
func (w *Widget) Swap() WidgetSnapshot {
	w.mu.Lock()
	w.lastSeen = time.Now()
	from, to := w.from, w.to
	if from != to {
		w.from, w.to = to, from
		w.triggerLocked(true)
	}
	w.mu.Unlock()

	return w.Snapshot()
}

// triggerLocked runs with w.mu held so pipelines see inputs in the order
// they were written.
func (w *Widget) triggerLocked(fromOrAmountChanged bool) {
	w.conversion.Update(ConversionInput{Amount: w.amount, From: w.from, To: w.to})
	if fromOrAmountChanged && !w.initialLoad {
		w.chart.Refresh(w.amount, w.from)
	}
}

func (w *Widget) Snapshot() WidgetSnapshot {
	w.mu.Lock()
	snap := WidgetSnapshot{
		ID:          w.id,
		Amount:      w.amount,
		From:        w.from,
		To:          w.to,
		InitialLoad: w.initialLoad,
	}
	w.mu.Unlock()

	snap.Conversion = w.conversion.Snapshot()
	snap.Chart = w.chart.Snapshot()
	return snap
}

func (w *Widget) Touch() {
	w.mu.Lock()
	w.lastSeen = time.Now()
	w.mu.Unlock()
}

func (w *Widget) LastSeen() time.Time {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastSeen
}

// Subscribe returns a channel that receives a signal whenever the widget
// state changes. Signals coalesce; read Snapshot after each one. The
// channel is closed when the widget closes, or already closed if it has.
func (w *Widget) Subscribe() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)

	w.subsMu.Lock()
	if w.closed {
		w.subsMu.Unlock()
		close(ch)
		return ch, func() {}
	}
	w.subs[ch] = struct{}{}
	w.subsMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			w.subsMu.Lock()
			if _, ok := w.subs[ch]; ok {
				delete(w.subs, ch)
				close(ch)
			}
			w.subsMu.Unlock()
		})
	}
}

func (w *Widget) broadcast() {
	w.subsMu.Lock()
	defer w.subsMu.Unlock()
	for ch := range w.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// Wait blocks until chart refreshes started so far have completed.
func (w *Widget) Wait() {
	w.chart.Wait()
}

// Close stops the debounce timer, cancels requests in flight and closes
// every subscription.
func (w *Widget) Close() {
	w.conversion.Stop()
	w.cancel()

	w.subsMu.Lock()
	w.closed = true
	for ch := range w.subs {
		delete(w.subs, ch)
		close(ch)
	}
	w.subsMu.Unlock()
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
