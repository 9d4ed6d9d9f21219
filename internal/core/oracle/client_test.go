package oracle_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Nzyazin/fxwidget/internal/core/metrics"
	"github.com/Nzyazin/fxwidget/internal/core/oracle"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestClient(t *testing.T, h http.HandlerFunc) (*oracle.Client, *prometheus.Registry) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	reg := prometheus.NewRegistry()
	return oracle.NewClient(srv.URL, 5*time.Second, zap.NewNop(), metrics.New(reg)), reg
}

func TestLatest(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/latest", r.URL.Path)
		assert.Empty(t, r.URL.RawQuery)
		w.Write([]byte(`{"amount":1.0,"base":"EUR","date":"2026-10-15","rates":{"USD":1.0876,"BRL":5.4312}}`))
	})

	latest, err := client.Latest(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "EUR", latest.Base)
	assert.True(t, decimal.RequireFromString("1.0876").Equal(latest.Rates["USD"]))
	assert.Len(t, latest.Rates, 2)
}

func TestLatestMissingRatesIsMalformed(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"base":"EUR"}`))
	})

	_, err := client.Latest(context.Background())
	assert.ErrorIs(t, err, oracle.ErrMalformedResponse)
}

func TestPairRate(t *testing.T) {
	client, reg := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "USD", r.URL.Query().Get("from"))
		assert.Equal(t, "BRL", r.URL.Query().Get("to"))
		w.Write([]byte(`{"amount":1.0,"base":"USD","rates":{"BRL":5.0}}`))
	})

	rate, err := client.PairRate(context.Background(), "USD", "BRL")
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(5).Equal(rate))

	count, err := testutil.GatherAndCount(reg, "fxwidget_oracle_requests_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestPairRateErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{name: "server error", status: http.StatusInternalServerError, body: `oops`, wantErr: oracle.ErrNetworkFailure},
		{name: "not found", status: http.StatusNotFound, body: `{"message":"not found"}`, wantErr: oracle.ErrNetworkFailure},
		{name: "invalid json", status: http.StatusOK, body: `{"rates":`, wantErr: oracle.ErrMalformedResponse},
		{name: "missing target", status: http.StatusOK, body: `{"rates":{"EUR":0.9}}`, wantErr: oracle.ErrMalformedResponse},
		{name: "zero rate", status: http.StatusOK, body: `{"rates":{"BRL":0}}`, wantErr: oracle.ErrMalformedResponse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			})

			_, err := client.PairRate(context.Background(), "USD", "BRL")
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestPairRateUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	client := oracle.NewClient(url, time.Second, zap.NewNop(), nil)
	_, err := client.PairRate(context.Background(), "USD", "BRL")
	assert.ErrorIs(t, err, oracle.ErrNetworkFailure)
}

func TestBasket(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "amount=100&from=USD&to=EUR,GBP,BRL", r.URL.RawQuery)
		w.Write([]byte(`{"amount":100.0,"base":"USD","rates":{"EUR":92.1,"GBP":79.3,"BRL":500.5}}`))
	})

	rates, err := client.Basket(context.Background(), decimal.NewFromInt(100), "USD", []string{"EUR", "GBP", "BRL"})
	require.NoError(t, err)
	assert.Len(t, rates, 3)
	assert.True(t, decimal.RequireFromString("500.5").Equal(rates["BRL"]))
}
