package market

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/irfndi/celebrum-ips/internal/config"
	"github.com/irfndi/celebrum-ips/internal/logging"
	"github.com/irfndi/celebrum-ips/pkg/ccxt"
)

// rising builds n one-minute candles starting at start, each opening at base+i
// and closing one higher, with a constant true range of 3.
func rising(start time.Time, n int, base, volume int64) []ccxt.OHLCV {
	candles := make([]ccxt.OHLCV, n)
	for i := 0; i < n; i++ {
		open := decimal.NewFromInt(base + int64(i))
		candles[i] = ccxt.OHLCV{
			Timestamp: start.Add(time.Duration(i) * time.Minute),
			Open:      open,
			High:      open.Add(decimal.NewFromInt(2)),
			Low:       open.Sub(decimal.NewFromInt(1)),
			Close:     open.Add(decimal.NewFromInt(1)),
			Volume:    decimal.NewFromInt(volume),
		}
	}
	return candles
}

func TestTimeframeFor(t *testing.T) {
	tests := []struct {
		span      time.Duration
		timeframe string
		step      time.Duration
	}{
		{time.Hour, "1m", time.Minute},
		{30 * time.Minute, "1m", time.Minute},
		{4 * time.Hour, "5m", 5 * time.Minute},
		{24 * time.Hour, "15m", 15 * time.Minute},
	}
	for _, tt := range tests {
		tf, step := TimeframeFor(tt.span)
		assert.Equal(t, tt.timeframe, tf)
		assert.Equal(t, tt.step, step)
	}
}

func TestSnapshotFromCandles(t *testing.T) {
	start := time.UnixMilli(1_700_000_000_000)
	window := rising(start, 30, 100, 10)
	baseline := rising(start.Add(-30*time.Minute), 30, 70, 5)

	s, err := SnapshotFromCandles(window, baseline)
	require.NoError(t, err)

	// (130 - 100) / 100
	assert.Equal(t, 30.0, s.PriceDelta)
	// 300 / 150
	assert.Equal(t, 2.0, s.VolumeDelta)
	// ATR 3 over last close 130
	assert.InDelta(t, 2.31, s.Volatility, 0.001)
	assert.Nil(t, s.OnchainFlow)
}

func TestSnapshotFromCandles_NoBaseline(t *testing.T) {
	s, err := SnapshotFromCandles(rising(time.UnixMilli(0), 20, 50, 1), nil)
	require.NoError(t, err)
	assert.Equal(t, 0.0, s.VolumeDelta)
}

func TestSnapshotFromCandles_Insufficient(t *testing.T) {
	_, err := SnapshotFromCandles(rising(time.UnixMilli(0), minCandles-1, 50, 1), nil)
	assert.ErrorIs(t, err, ErrInsufficientCandles)

	_, err = SnapshotFromCandles(nil, nil)
	assert.ErrorIs(t, err, ErrInsufficientCandles)
}

func TestSnapshotFromCandles_ZeroOpen(t *testing.T) {
	window := rising(time.UnixMilli(0), 20, 50, 1)
	window[0].Open = decimal.Zero

	_, err := SnapshotFromCandles(window, nil)
	assert.ErrorIs(t, err, ErrUnusableSnapshot)
}

func TestOHLCVProvider_Snapshot(t *testing.T) {
	from := time.UnixMilli(1_700_000_000_000)
	to := from.Add(30 * time.Minute)

	candles := append(rising(from.Add(-30*time.Minute), 30, 70, 5), rising(from, 30, 100, 10)...)
	// a candle past the window is ignored
	candles = append(candles, rising(to, 1, 500, 1000)...)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/ohlcv/kraken/BTC/USD", r.URL.Path)
		assert.Equal(t, "1m", r.URL.Query().Get("timeframe"))
		assert.Equal(t, strconv.FormatInt(from.Add(-30*time.Minute).UnixMilli(), 10), r.URL.Query().Get("since"))
		assert.Equal(t, "62", r.URL.Query().Get("limit"))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(ccxt.OHLCVResponse{OHLCV: candles, Count: len(candles)})
	}))
	defer server.Close()

	cfg := config.CCXTConfig{ServiceURL: server.URL, Timeout: 5, Exchange: "kraken", Quote: "USD"}
	client := ccxt.NewClient(&cfg, logging.Discard())
	p := NewOHLCVProvider(client, cfg, logging.Discard())

	s, err := p.Snapshot(context.Background(), "BTC", from, to)
	require.NoError(t, err)
	assert.Equal(t, 30.0, s.PriceDelta)
	assert.Equal(t, 2.0, s.VolumeDelta)
}

func TestOHLCVProvider_Errors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(w).Encode(ccxt.ErrorResponse{Error: "exchange unavailable"})
	}))
	defer server.Close()

	cfg := config.CCXTConfig{ServiceURL: server.URL, Exchange: "binance"}
	p := NewOHLCVProvider(ccxt.NewClient(&cfg, logging.Discard()), cfg, logging.Discard())

	from := time.UnixMilli(1_700_000_000_000)
	_, err := p.Snapshot(context.Background(), "ETH", from, from.Add(time.Hour))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exchange unavailable")

	_, err = p.Snapshot(context.Background(), "ETH", from, from)
	assert.Error(t, err)
}
