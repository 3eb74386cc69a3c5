package market

import (
	"context"
	"fmt"
	"time"

	"github.com/cinar/indicator/v2/helper"
	"github.com/cinar/indicator/v2/volatility"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/irfndi/celebrum-ips/internal/config"
	"github.com/irfndi/celebrum-ips/internal/models"
	"github.com/irfndi/celebrum-ips/pkg/ccxt"
)

// ATR uses its default 14 period lookback; a window needs one more candle than that.
const (
	atrPeriod  = 14
	minCandles = atrPeriod + 1
)

var hundred = decimal.NewFromInt(100)

// OHLCVProvider derives snapshots from exchange candles served by the CCXT service.
// The interval [from, to] is compared against the equally long interval before it.
type OHLCVProvider struct {
	client ccxt.CCXTClient
	cfg    config.CCXTConfig
	logger *logrus.Logger
}

func NewOHLCVProvider(client ccxt.CCXTClient, cfg config.CCXTConfig, logger *logrus.Logger) *OHLCVProvider {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &OHLCVProvider{client: client, cfg: cfg, logger: logger}
}

// TimeframeFor picks the candle size for an interval length.
func TimeframeFor(span time.Duration) (string, time.Duration) {
	switch {
	case span <= time.Hour:
		return "1m", time.Minute
	case span <= 4*time.Hour:
		return "5m", 5 * time.Minute
	default:
		return "15m", 15 * time.Minute
	}
}

func (p *OHLCVProvider) Snapshot(ctx context.Context, asset string, from, to time.Time) (*models.MarketSnapshot, error) {
	span := to.Sub(from)
	if span <= 0 {
		return nil, fmt.Errorf("invalid interval for %s: %s to %s", asset, from, to)
	}

	timeframe, step := TimeframeFor(span)
	baselineStart := from.Add(-span)
	limit := int(2*span/step) + 2

	resp, err := p.client.GetOHLCV(ctx, ccxt.OHLCVRequest{
		Exchange:  p.cfg.Exchange,
		Symbol:    p.cfg.Symbol(asset),
		Timeframe: timeframe,
		Since:     baselineStart,
		Limit:     limit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch candles for %s: %w", asset, err)
	}

	var window, baseline []ccxt.OHLCV
	for _, c := range resp.OHLCV {
		switch {
		case !c.Timestamp.Before(from) && c.Timestamp.Before(to):
			window = append(window, c)
		case !c.Timestamp.Before(baselineStart) && c.Timestamp.Before(from):
			baseline = append(baseline, c)
		}
	}

	p.logger.WithFields(logrus.Fields{
		"asset":     asset,
		"timeframe": timeframe,
		"window":    len(window),
		"baseline":  len(baseline),
	}).Debug("Fetched candles for snapshot")

	return SnapshotFromCandles(window, baseline)
}

// SnapshotFromCandles computes price delta, volume ratio and ATR volatility.
// Candles must be in ascending time order.
func SnapshotFromCandles(window, baseline []ccxt.OHLCV) (*models.MarketSnapshot, error) {
	if len(window) < minCandles {
		return nil, fmt.Errorf("%w: have %d, need %d", ErrInsufficientCandles, len(window), minCandles)
	}

	firstOpen := window[0].Open
	lastClose := window[len(window)-1].Close
	if firstOpen.IsZero() || lastClose.IsZero() {
		return nil, fmt.Errorf("%w: zero price in candles", ErrUnusableSnapshot)
	}

	priceDelta := lastClose.Sub(firstOpen).Div(firstOpen).Mul(hundred)

	volumeDelta := decimal.Zero
	if baselineVolume := sumVolume(baseline); baselineVolume.IsPositive() {
		volumeDelta = sumVolume(window).Div(baselineVolume)
	}

	highs := make([]float64, len(window))
	lows := make([]float64, len(window))
	closes := make([]float64, len(window))
	for i, c := range window {
		highs[i] = c.High.InexactFloat64()
		lows[i] = c.Low.InexactFloat64()
		closes[i] = c.Close.InexactFloat64()
	}

	atr := volatility.NewAtr[float64]()
	values := helper.ChanToSlice(atr.Compute(
		helper.SliceToChan(highs),
		helper.SliceToChan(lows),
		helper.SliceToChan(closes),
	))
	if len(values) == 0 {
		return nil, fmt.Errorf("%w: no ATR values", ErrInsufficientCandles)
	}
	volatilityPct := decimal.NewFromFloat(values[len(values)-1]).Div(lastClose).Mul(hundred)

	snapshot := &models.MarketSnapshot{
		PriceDelta:  priceDelta.Round(2).InexactFloat64(),
		VolumeDelta: volumeDelta.Round(2).InexactFloat64(),
		Volatility:  volatilityPct.Round(2).InexactFloat64(),
	}
	if !snapshot.Usable() {
		return nil, ErrUnusableSnapshot
	}
	return snapshot, nil
}

func sumVolume(candles []ccxt.OHLCV) decimal.Decimal {
	total := decimal.Zero
	for _, c := range candles {
		total = total.Add(c.Volume)
	}
	return total
}
