package ccxt

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/irfndi/celebrum-ips/internal/config"
)

// Client represents the CCXT HTTP client
type Client struct {
	HTTPClient *http.Client
	BaseURL    string
	logger     *logrus.Logger
}

// NewClient creates a new CCXT client instance
func NewClient(cfg *config.CCXTConfig, logger *logrus.Logger) *Client {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Client{
		HTTPClient: &http.Client{
			Timeout: cfg.GetTimeout(),
		},
		BaseURL: strings.TrimSuffix(cfg.ServiceURL, "/"),
		logger:  logger,
	}
}

// HealthCheck checks if the CCXT service is healthy
func (c *Client) HealthCheck(ctx context.Context) (*HealthResponse, error) {
	var response HealthResponse
	if err := c.makeRequest(ctx, http.MethodGet, "/health", &response); err != nil {
		return nil, err
	}
	return &response, nil
}

// GetOHLCV retrieves candles for a specific exchange and symbol
func (c *Client) GetOHLCV(ctx context.Context, req OHLCVRequest) (*OHLCVResponse, error) {
	path := fmt.Sprintf("/api/ohlcv/%s/%s", url.PathEscape(req.Exchange), url.PathEscape(req.Symbol))
	params := url.Values{}
	if req.Timeframe != "" {
		params.Set("timeframe", req.Timeframe)
	}
	if !req.Since.IsZero() {
		params.Set("since", strconv.FormatInt(req.Since.UnixMilli(), 10))
	}
	if req.Limit > 0 {
		params.Set("limit", strconv.Itoa(req.Limit))
	}
	if len(params) > 0 {
		path += "?" + params.Encode()
	}

	var response OHLCVResponse
	if err := c.makeRequest(ctx, http.MethodGet, path, &response); err != nil {
		return nil, err
	}
	return &response, nil
}

func (c *Client) makeRequest(ctx context.Context, method, path string, result interface{}) error {
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "Celebrum-IPS/1.0")

	start := time.Now()
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.logger.WithError(err).Warn("Error closing CCXT response body")
		}
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	c.logger.WithFields(logrus.Fields{
		"path":     path,
		"status":   resp.StatusCode,
		"duration": time.Since(start),
	}).Debug("CCXT request completed")

	if resp.StatusCode >= 400 {
		var errorResp ErrorResponse
		if err := json.Unmarshal(respBody, &errorResp); err == nil && errorResp.Error != "" {
			return fmt.Errorf("CCXT service error (%d): %s", resp.StatusCode, errorResp.Error)
		}
		return fmt.Errorf("CCXT service error (%d): %s", resp.StatusCode, string(respBody))
	}

	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("failed to unmarshal response: %w", err)
		}
	}
	return nil
}

// Close is a no-op; the HTTP client holds no resources that need releasing.
func (c *Client) Close() error {
	return nil
}
