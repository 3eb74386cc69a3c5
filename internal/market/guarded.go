package market

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/irfndi/celebrum-ips/internal/config"
	"github.com/irfndi/celebrum-ips/internal/models"
)

// GuardedProvider bounds every call with a timeout, a token bucket and a circuit breaker.
type GuardedProvider struct {
	next    Provider
	timeout time.Duration
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
	logger  *logrus.Logger
}

func NewGuardedProvider(name string, next Provider, cfg config.MarketDataConfig, logger *logrus.Logger) *GuardedProvider {
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	failures := cfg.BreakerFailures
	if failures == 0 {
		failures = 5
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}

	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.BreakerMaxRequests,
		Interval:    cfg.BreakerIntervalDuration(),
		Timeout:     cfg.BreakerTimeoutDuration(),
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		// Thin or degenerate data is an answer, not an outage.
		IsSuccessful: func(err error) bool {
			return err == nil ||
				errors.Is(err, ErrInsufficientCandles) ||
				errors.Is(err, ErrUnusableSnapshot) ||
				errors.Is(err, ErrNoData)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.WithFields(logrus.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("Market data circuit breaker state changed")
		},
	}

	return &GuardedProvider{
		next:    next,
		timeout: cfg.TimeoutDuration(),
		limiter: rate.NewLimiter(rate.Limit(cfg.RateLimit), burst),
		breaker: gobreaker.NewCircuitBreaker(settings),
		logger:  logger,
	}
}

func (p *GuardedProvider) Snapshot(ctx context.Context, asset string, from, to time.Time) (*models.MarketSnapshot, error) {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	if err := p.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait for %s: %w", asset, err)
	}

	result, err := p.breaker.Execute(func() (interface{}, error) {
		return p.next.Snapshot(ctx, asset, from, to)
	})
	if err != nil {
		return nil, fmt.Errorf("snapshot for %s: %w", asset, err)
	}
	return result.(*models.MarketSnapshot), nil
}

// State reports the circuit breaker state.
func (p *GuardedProvider) State() gobreaker.State {
	return p.breaker.State()
}
