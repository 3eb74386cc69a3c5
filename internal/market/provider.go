// Package market resolves how an asset behaved over a time interval.
package market

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/irfndi/celebrum-ips/internal/models"
)

var (
	// ErrUnusableSnapshot is returned when a snapshot has non-finite price delta or volatility.
	ErrUnusableSnapshot = errors.New("market snapshot unusable")
	// ErrInsufficientCandles is returned when too few candles cover the interval.
	ErrInsufficientCandles = errors.New("insufficient candles")
	// ErrNoData is returned when a provider knows nothing about the asset.
	ErrNoData = errors.New("no market data")
)

// Provider resolves a market snapshot for asset over [from, to].
// Implementations must be safe for concurrent use.
type Provider interface {
	Snapshot(ctx context.Context, asset string, from, to time.Time) (*models.MarketSnapshot, error)
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func(ctx context.Context, asset string, from, to time.Time) (*models.MarketSnapshot, error)

func (f ProviderFunc) Snapshot(ctx context.Context, asset string, from, to time.Time) (*models.MarketSnapshot, error) {
	return f(ctx, asset, from, to)
}

// StaticProvider serves fixed snapshots, optionally per window length.
type StaticProvider struct {
	mu       sync.RWMutex
	byAsset  map[string]models.MarketSnapshot
	byWindow map[string]map[time.Duration]models.MarketSnapshot
	fallback *models.MarketSnapshot
}

func NewStaticProvider() *StaticProvider {
	return &StaticProvider{
		byAsset:  make(map[string]models.MarketSnapshot),
		byWindow: make(map[string]map[time.Duration]models.MarketSnapshot),
	}
}

// Set registers the snapshot returned for asset regardless of interval.
func (p *StaticProvider) Set(asset string, s models.MarketSnapshot) *StaticProvider {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.byAsset[asset] = s
	return p
}

// SetWindow registers the snapshot returned for asset when to-from equals span.
func (p *StaticProvider) SetWindow(asset string, span time.Duration, s models.MarketSnapshot) *StaticProvider {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.byWindow[asset] == nil {
		p.byWindow[asset] = make(map[time.Duration]models.MarketSnapshot)
	}
	p.byWindow[asset][span] = s
	return p
}

// SetFallback registers the snapshot returned for unknown assets.
func (p *StaticProvider) SetFallback(s models.MarketSnapshot) *StaticProvider {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.fallback = &s
	return p
}

func (p *StaticProvider) Snapshot(ctx context.Context, asset string, from, to time.Time) (*models.MarketSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	if spans, ok := p.byWindow[asset]; ok {
		if s, ok := spans[to.Sub(from)]; ok {
			return &s, nil
		}
	}
	if s, ok := p.byAsset[asset]; ok {
		return &s, nil
	}
	if p.fallback != nil {
		s := *p.fallback
		return &s, nil
	}
	return nil, fmt.Errorf("%w for %s", ErrNoData, asset)
}
