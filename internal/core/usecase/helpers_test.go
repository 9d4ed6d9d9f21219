package usecase_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Nzyazin/fxwidget/internal/core/models"
	"github.com/Nzyazin/fxwidget/internal/core/oracle"
	"github.com/Nzyazin/fxwidget/internal/core/usecase"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// --- manual scheduler ---

type manualTimer struct {
	s       *manualScheduler
	delay   time.Duration
	f       func()
	stopped bool
	fired   bool
}

func (t *manualTimer) Stop() bool {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	active := !t.stopped && !t.fired
	t.stopped = true
	return active
}

type manualScheduler struct {
	mu     sync.Mutex
	timers []*manualTimer
}

func (s *manualScheduler) AfterFunc(d time.Duration, f func()) usecase.Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &manualTimer{s: s, delay: d, f: f}
	s.timers = append(s.timers, t)
	return t
}

func (s *manualScheduler) take(includeStopped bool) []*manualTimer {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*manualTimer
	for _, t := range s.timers {
		if t.fired || (t.stopped && !includeStopped) {
			continue
		}
		t.fired = true
		out = append(out, t)
	}
	return out
}

// FirePending runs every armed timer that was not stopped.
func (s *manualScheduler) FirePending() {
	for _, t := range s.take(false) {
		t.f()
	}
}

// FireAll also runs stopped timers, as if Stop lost the race with the
// timer goroutine.
func (s *manualScheduler) FireAll() {
	for _, t := range s.take(true) {
		t.f()
	}
}

func (s *manualScheduler) Armed() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, t := range s.timers {
		if !t.fired && !t.stopped {
			n++
		}
	}
	return n
}

// --- stub oracle ---

type pairCall struct {
	From, To string
}

type basketCall struct {
	Amount decimal.Decimal
	From   string
	To     []string
}

type stubOracle struct {
	mu          sync.Mutex
	pairCalls   []pairCall
	basketCalls []basketCall

	latest func(ctx context.Context) (*oracle.LatestRates, error)
	pair   func(ctx context.Context, from, to string) (decimal.Decimal, error)
	basket func(ctx context.Context, amount decimal.Decimal, from string, to []string) (map[string]decimal.Decimal, error)
}

func (o *stubOracle) Latest(ctx context.Context) (*oracle.LatestRates, error) {
	return o.latest(ctx)
}

func (o *stubOracle) PairRate(ctx context.Context, from, to string) (decimal.Decimal, error) {
	o.mu.Lock()
	o.pairCalls = append(o.pairCalls, pairCall{From: from, To: to})
	fn := o.pair
	o.mu.Unlock()
	return fn(ctx, from, to)
}

func (o *stubOracle) Basket(ctx context.Context, amount decimal.Decimal, from string, to []string) (map[string]decimal.Decimal, error) {
	o.mu.Lock()
	o.basketCalls = append(o.basketCalls, basketCall{Amount: amount, From: from, To: to})
	fn := o.basket
	o.mu.Unlock()
	return fn(ctx, amount, from, to)
}

func (o *stubOracle) PairCalls() []pairCall {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]pairCall(nil), o.pairCalls...)
}

func (o *stubOracle) BasketCalls() []basketCall {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]basketCall(nil), o.basketCalls...)
}

func (o *stubOracle) SetPair(fn func(ctx context.Context, from, to string) (decimal.Decimal, error)) {
	o.mu.Lock()
	o.pair = fn
	o.mu.Unlock()
}

func (o *stubOracle) SetBasket(fn func(ctx context.Context, amount decimal.Decimal, from string, to []string) (map[string]decimal.Decimal, error)) {
	o.mu.Lock()
	o.basket = fn
	o.mu.Unlock()
}

func fixedRate(rate string) func(context.Context, string, string) (decimal.Decimal, error) {
	r := decimal.RequireFromString(rate)
	return func(context.Context, string, string) (decimal.Decimal, error) {
		return r, nil
	}
}

func failingPair(context.Context, string, string) (decimal.Decimal, error) {
	return decimal.Zero, oracle.ErrNetworkFailure
}

// basketTimes answers every basket member with amount * factor.
func basketTimes(factor string) func(context.Context, decimal.Decimal, string, []string) (map[string]decimal.Decimal, error) {
	f := decimal.RequireFromString(factor)
	return func(_ context.Context, amount decimal.Decimal, _ string, to []string) (map[string]decimal.Decimal, error) {
		out := make(map[string]decimal.Decimal, len(to))
		for _, c := range to {
			out[c] = amount.Mul(f)
		}
		return out, nil
	}
}

func failingBasket(context.Context, decimal.Decimal, string, []string) (map[string]decimal.Decimal, error) {
	return nil, oracle.ErrMalformedResponse
}

func newStubOracle(codes ...string) *stubOracle {
	return &stubOracle{
		latest: func(context.Context) (*oracle.LatestRates, error) {
			rates := map[string]decimal.Decimal{}
			for _, c := range codes[1:] {
				rates[c] = decimal.NewFromInt(1)
			}
			return &oracle.LatestRates{Base: codes[0], Rates: rates}, nil
		},
		pair:   fixedRate("5.0"),
		basket: basketTimes("2"),
	}
}

// --- history mock ---

type MockHistoryRepository struct {
	mock.Mock
}

func (m *MockHistoryRepository) Save(ctx context.Context, rec models.ConversionRecord) error {
	args := m.Called(ctx, rec)
	return args.Error(0)
}

func (m *MockHistoryRepository) List(ctx context.Context, limit int) ([]models.ConversionRecord, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.ConversionRecord), args.Error(1)
}

// --- widget fixture ---

var testCodes = []string{"EUR", "USD", "BRL", "GBP", "JPY", "CAD", "AUD", "CNH", "CHF"}

func newLoadedCatalog(t *testing.T, o oracle.RateOracle) *usecase.Catalog {
	t.Helper()
	c := usecase.NewCatalog(o, zap.NewNop())
	require.NoError(t, c.Load(context.Background()))
	return c
}

type widgetFixture struct {
	oracle *stubOracle
	sched  *manualScheduler
	widget *usecase.Widget
}

func newWidgetFixture(t *testing.T) *widgetFixture {
	t.Helper()
	o := newStubOracle(testCodes...)
	sched := &manualScheduler{}
	w := usecase.NewWidget(uuid.New(), usecase.WidgetOptions{
		Oracle:             o,
		Catalog:            newLoadedCatalog(t, o),
		Log:                zap.NewNop(),
		Sched:              sched,
		Debounce:           usecase.DefaultDebounce,
		SuppressChartStale: true,
		DefaultFrom:        "USD",
		DefaultTo:          "BRL",
	})
	t.Cleanup(w.Close)
	return &widgetFixture{oracle: o, sched: sched, widget: w}
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

const (
	timeout = 2 * time.Second
	tick    = 5 * time.Millisecond
)
