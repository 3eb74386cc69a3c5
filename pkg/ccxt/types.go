package ccxt

import (
	"time"

	"github.com/shopspring/decimal"
)

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Uptime    string    `json:"uptime,omitempty"`
	Version   string    `json:"version,omitempty"`
}

// ErrorResponse represents an error response from the CCXT service
type ErrorResponse struct {
	Error     string    `json:"error"`
	Timestamp time.Time `json:"timestamp"`
}

// OHLCV represents one candle
type OHLCV struct {
	Timestamp time.Time       `json:"timestamp"`
	Open      decimal.Decimal `json:"open"`
	High      decimal.Decimal `json:"high"`
	Low       decimal.Decimal `json:"low"`
	Close     decimal.Decimal `json:"close"`
	Volume    decimal.Decimal `json:"volume"`
}

// OHLCVResponse represents the response from /api/ohlcv/{exchange}/{symbol}
type OHLCVResponse struct {
	Exchange  string    `json:"exchange"`
	Symbol    string    `json:"symbol"`
	Timeframe string    `json:"timeframe"`
	OHLCV     []OHLCV   `json:"ohlcv"`
	Count     int       `json:"count"`
	Timestamp time.Time `json:"timestamp"`
}

// OHLCVRequest selects candles for one symbol.
type OHLCVRequest struct {
	Exchange  string
	Symbol    string
	Timeframe string
	Since     time.Time // zero means the service default
	Limit     int
}
