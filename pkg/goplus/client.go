package goplus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/wanel/kyxgate/internal/metrics"
	"github.com/wanel/kyxgate/internal/risk"
	"github.com/wanel/kyxgate/internal/traces"
)

// Config holds the client settings.
type Config struct {
	// BaseURL is the service root, without a trailing slash.
	BaseURL string
	// ChainID scopes lookups to one network. Optional; the provider falls
	// back to a cross-chain report when zero.
	ChainID    int64
	HTTPClient *http.Client
}

// Client checks addresses against the security-indicator service.
type Client struct {
	baseURL string
	chainID int64
	http    *http.Client
}

// New creates a Client. BaseURL is required.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("goplus: base URL required")
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{
		baseURL: cfg.BaseURL,
		chainID: cfg.ChainID,
		http:    httpClient,
	}, nil
}

// CheckAddress fetches the indicator report for one address and classifies
// it. A single flagged indicator is enough for a high-risk verdict.
func (c *Client) CheckAddress(ctx context.Context, address string) (risk.Verdict, error) {
	ctx, span := traces.StartSpan(ctx, "goplus.CheckAddress", traces.Subject(address))
	defer span.End()

	u := fmt.Sprintf("%s/address/%s", c.baseURL, url.PathEscape(address))
	if c.chainID != 0 {
		u += "?chain_id=" + strconv.FormatInt(c.chainID, 10)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return risk.Verdict{}, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		metrics.VerificationsTotal.WithLabelValues("goplus", "error").Inc()
		return risk.Verdict{}, fmt.Errorf("goplus: check address: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		metrics.VerificationsTotal.WithLabelValues("goplus", "error").Inc()
		return risk.Verdict{}, err
	}
	if resp.StatusCode != http.StatusOK {
		metrics.VerificationsTotal.WithLabelValues("goplus", "error").Inc()
		return risk.Verdict{}, fmt.Errorf("goplus: address check returned %d", resp.StatusCode)
	}

	var body Response
	if err := json.Unmarshal(data, &body); err != nil {
		metrics.VerificationsTotal.WithLabelValues("goplus", "error").Inc()
		return risk.Verdict{}, fmt.Errorf("goplus: decode response: %w", err)
	}
	if body.Code != 1 {
		metrics.VerificationsTotal.WithLabelValues("goplus", "error").Inc()
		return risk.Verdict{}, fmt.Errorf("goplus: service error %d: %s", body.Code, body.Message)
	}

	verdict := risk.ClassifyIndicators(body.Result.Indicators())
	outcome := "no_risk"
	if verdict.InRisk {
		outcome = "high_risk"
	}
	metrics.VerificationsTotal.WithLabelValues("goplus", outcome).Inc()
	return verdict, nil
}
