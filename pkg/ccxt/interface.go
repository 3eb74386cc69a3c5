package ccxt

import "context"

// CCXTClient defines the low-level CCXT HTTP operations used for market snapshots
type CCXTClient interface {
	HealthCheck(ctx context.Context) (*HealthResponse, error)
	GetOHLCV(ctx context.Context, req OHLCVRequest) (*OHLCVResponse, error)
	Close() error
}

var _ CCXTClient = (*Client)(nil)
