package usecase_test

import (
	"context"
	"testing"

	"github.com/Nzyazin/fxwidget/internal/core/models"
	"github.com/Nzyazin/fxwidget/internal/core/oracle"
	"github.com/Nzyazin/fxwidget/internal/core/usecase"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newChart(o oracle.RateOracle, suppressStale bool) *usecase.ChartPipeline {
	return usecase.NewChartPipeline(context.Background(), usecase.ChartDeps{
		Oracle:        o,
		Log:           zap.NewNop(),
		SuppressStale: suppressStale,
	})
}

func currencies(points []models.ChartPoint) []string {
	out := make([]string, len(points))
	for i, p := range points {
		out[i] = p.Currency
	}
	return out
}

func TestChartRefreshUsesBasketWithoutSource(t *testing.T) {
	o := newStubOracle(testCodes...)
	c := newChart(o, true)

	c.Refresh("100", "USD")
	c.Wait()

	calls := o.BasketCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, "USD", calls[0].From)
	assert.True(t, dec("100").Equal(calls[0].Amount))
	assert.Equal(t, []string{"EUR", "GBP", "JPY", "CAD", "AUD", "BRL", "CNH"}, calls[0].To)

	snap := c.Snapshot()
	assert.False(t, snap.Loading)
	assert.Equal(t, []string{"EUR", "GBP", "JPY", "CAD", "AUD", "BRL", "CNH"}, currencies(snap.Points))
	assert.True(t, dec("200").Equal(snap.Points[0].Value))
}

func TestChartRefreshWithSourceOutsideBasket(t *testing.T) {
	o := newStubOracle(testCodes...)
	c := newChart(o, true)

	c.Refresh("1", "CHF")
	c.Wait()

	assert.Equal(t, models.MajorCurrencies, o.BasketCalls()[0].To)
	assert.Len(t, c.Snapshot().Points, 8)
}

func TestChartRefreshDefaultsToOneUnit(t *testing.T) {
	for _, amount := range []string{"", "0", "."} {
		o := newStubOracle(testCodes...)
		c := newChart(o, true)

		c.Refresh(amount, "EUR")
		c.Wait()

		assert.True(t, decimal.NewFromInt(1).Equal(o.BasketCalls()[0].Amount), "amount %q", amount)
	}
}

func TestChartFailureKeepsPreviousPoints(t *testing.T) {
	o := newStubOracle(testCodes...)
	c := newChart(o, true)

	c.Refresh("10", "USD")
	c.Wait()
	before := c.Snapshot().Points
	require.NotEmpty(t, before)

	o.SetBasket(failingBasket)
	c.Refresh("20", "USD")
	c.Wait()

	snap := c.Snapshot()
	assert.False(t, snap.Loading)
	assert.Equal(t, before, snap.Points)
	assert.ErrorIs(t, snap.Err, oracle.ErrMalformedResponse)
}

func TestChartPointsReplacedWholesale(t *testing.T) {
	o := newStubOracle(testCodes...)
	c := newChart(o, true)

	c.Refresh("10", "USD")
	c.Wait()

	o.SetBasket(func(_ context.Context, amount decimal.Decimal, _ string, _ []string) (map[string]decimal.Decimal, error) {
		return map[string]decimal.Decimal{"GBP": amount}, nil
	})
	c.Refresh("10", "USD")
	c.Wait()

	assert.Equal(t, []string{"GBP"}, currencies(c.Snapshot().Points))
}

// slowThenFast makes the first basket request block until release is closed
// and answers later requests immediately.
func slowThenFast(o *stubOracle, slow, fast string) (started, release chan struct{}) {
	started = make(chan struct{})
	release = make(chan struct{})
	first := true
	o.SetBasket(func(_ context.Context, amount decimal.Decimal, _ string, to []string) (map[string]decimal.Decimal, error) {
		o.mu.Lock()
		isFirst := first
		first = false
		o.mu.Unlock()

		value := dec(fast)
		if isFirst {
			close(started)
			<-release
			value = dec(slow)
		}
		out := map[string]decimal.Decimal{}
		for _, c := range to {
			out[c] = value
		}
		return out, nil
	})
	return started, release
}

func TestChartSuppressesStaleResponse(t *testing.T) {
	o := newStubOracle(testCodes...)
	c := newChart(o, true)
	started, release := slowThenFast(o, "1", "2")

	c.Refresh("1", "USD")
	<-started
	c.Refresh("2", "USD")

	assert.Eventually(t, func() bool {
		p := c.Snapshot().Points
		return len(p) > 0 && p[0].Value.Equal(dec("2"))
	}, timeout, tick)

	close(release)
	c.Wait()

	assert.True(t, dec("2").Equal(c.Snapshot().Points[0].Value))
	assert.False(t, c.Snapshot().Loading)
}

func TestChartWithoutGuardLastCompletionWins(t *testing.T) {
	o := newStubOracle(testCodes...)
	c := newChart(o, false)
	started, release := slowThenFast(o, "1", "2")

	c.Refresh("1", "USD")
	<-started
	c.Refresh("2", "USD")

	assert.Eventually(t, func() bool {
		p := c.Snapshot().Points
		return len(p) > 0 && p[0].Value.Equal(dec("2"))
	}, timeout, tick)

	close(release)
	c.Wait()

	assert.True(t, dec("1").Equal(c.Snapshot().Points[0].Value))
}
