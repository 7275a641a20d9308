package chainalysis

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/wanel/kyxgate/internal/backoff"
	"github.com/wanel/kyxgate/internal/logging"
	"github.com/wanel/kyxgate/internal/metrics"
	"github.com/wanel/kyxgate/internal/risk"
	"github.com/wanel/kyxgate/internal/traces"
)

// ErrNotReady is returned when the analysis did not complete within the
// configured polling budget. The registration stays billable; callers must
// not re-register the same attempt.
var ErrNotReady = errors.New("chainalysis: verification not ready")

const defaultMaxAttempts = 3

// Config holds the client settings.
type Config struct {
	// BaseURL is the service root, without a trailing slash.
	BaseURL string
	// Token is sent in the Token header on every request.
	Token string
	// UserID namespaces registrations on the service side.
	UserID string

	// AddressPolicy and TransferPolicy drive the poll delays. Zero values
	// fall back to the standard schedules.
	AddressPolicy  backoff.Policy
	TransferPolicy backoff.Policy

	// MaxAttempts bounds the number of status polls per verification.
	// Defaults to 3.
	MaxAttempts int

	HTTPClient *http.Client
}

// Client verifies addresses and transfers against the analysis service.
type Client struct {
	baseURL        string
	token          string
	userID         string
	addressPolicy  backoff.Policy
	transferPolicy backoff.Policy
	maxAttempts    int
	http           *http.Client
}

// New creates a Client. BaseURL and UserID are required.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("chainalysis: base URL required")
	}
	if cfg.UserID == "" {
		return nil, errors.New("chainalysis: user ID required")
	}

	addressPolicy := cfg.AddressPolicy
	if addressPolicy.Len() == 0 {
		addressPolicy = backoff.DefaultAddress()
	}
	transferPolicy := cfg.TransferPolicy
	if transferPolicy.Len() == 0 {
		transferPolicy = backoff.DefaultTransfer()
	}
	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	return &Client{
		baseURL:        cfg.BaseURL,
		token:          cfg.Token,
		userID:         cfg.UserID,
		addressPolicy:  addressPolicy,
		transferPolicy: transferPolicy,
		maxAttempts:    maxAttempts,
		http:           httpClient,
	}, nil
}

// VerifyAddress runs the full KYA flow for one address: register, poll until
// the analysis is ready, fetch alerts, classify.
func (c *Client) VerifyAddress(ctx context.Context, check AddressCheck) (risk.Verdict, error) {
	ctx, span := traces.StartSpan(ctx, "chainalysis.VerifyAddress",
		traces.Subject(check.Address),
		traces.Network(check.Network),
	)
	defer span.End()

	identifier := check.Identifier
	if identifier == "" {
		identifier = uuid.NewString()
	}

	req := AddressRegisterRequest{
		Address:           check.Address,
		Network:           check.Network,
		Asset:             check.Asset,
		AssetAmount:       check.Amount,
		AttemptTimestamp:  time.Now().UTC().Format(time.RFC3339),
		AttemptIdentifier: identifier,
	}

	var reg AddressRegisterResponse
	err := c.post(ctx, fmt.Sprintf("/api/kyt/v2/users/%s/withdrawal-attempts", c.userID), req, &reg)
	if err != nil {
		metrics.VerificationsTotal.WithLabelValues("chainalysis", "error").Inc()
		return risk.Verdict{}, fmt.Errorf("register address: %w", err)
	}
	if reg.ExternalID == "" {
		metrics.VerificationsTotal.WithLabelValues("chainalysis", "error").Inc()
		return risk.Verdict{}, errors.New("chainalysis: registration returned no externalId")
	}
	span.SetAttributes(traces.ExternalID(reg.ExternalID))

	return c.finish(ctx, reg.ExternalID, reg.UpdatedAt, c.addressPolicy,
		"/api/kyt/v2/withdrawal-attempts/%s",
		"/api/kyt/v2/withdrawal-attempts/%s/alerts")
}

// VerifyTransfer runs the full KYT flow for one transfer.
func (c *Client) VerifyTransfer(ctx context.Context, check TransferCheck) (risk.Verdict, error) {
	ctx, span := traces.StartSpan(ctx, "chainalysis.VerifyTransfer",
		traces.Subject(check.ToAddress),
		traces.Network(check.Network),
	)
	defer span.End()

	identifier := check.Identifier
	if identifier == "" {
		identifier = uuid.NewString()
	}

	req := TransferRegisterRequest{
		FromAddress:       check.FromAddress,
		ToAddress:         check.ToAddress,
		Network:           check.Network,
		Asset:             check.Asset,
		AssetAmount:       check.Amount,
		TxHash:            check.TxHash,
		AttemptTimestamp:  time.Now().UTC().Format(time.RFC3339),
		AttemptIdentifier: identifier,
	}

	var reg TransferRegisterResponse
	err := c.post(ctx, fmt.Sprintf("/api/kyt/v2/users/%s/transfers", c.userID), req, &reg)
	if err != nil {
		metrics.VerificationsTotal.WithLabelValues("chainalysis", "error").Inc()
		return risk.Verdict{}, fmt.Errorf("register transfer: %w", err)
	}
	if reg.ExternalID == "" {
		metrics.VerificationsTotal.WithLabelValues("chainalysis", "error").Inc()
		return risk.Verdict{}, errors.New("chainalysis: registration returned no externalId")
	}
	span.SetAttributes(traces.ExternalID(reg.ExternalID))

	return c.finish(ctx, reg.ExternalID, reg.UpdatedAt, c.transferPolicy,
		"/api/kyt/v2/transfers/%s",
		"/api/kyt/v2/transfers/%s/alerts")
}

// finish completes phases two and three once a registration handle exists.
// updatedAt from the registration response short-circuits polling entirely.
func (c *Client) finish(ctx context.Context, externalID, updatedAt string, policy backoff.Policy, statusPath, alertsPath string) (risk.Verdict, error) {
	if updatedAt == "" {
		if err := c.awaitReady(ctx, externalID, policy, statusPath); err != nil {
			if errors.Is(err, ErrNotReady) {
				metrics.VerificationsTotal.WithLabelValues("chainalysis", "not_ready").Inc()
			} else {
				metrics.VerificationsTotal.WithLabelValues("chainalysis", "error").Inc()
			}
			return risk.Verdict{}, err
		}
	}

	var alerts AlertsResponse
	if err := c.get(ctx, fmt.Sprintf(alertsPath, externalID), &alerts); err != nil {
		metrics.VerificationsTotal.WithLabelValues("chainalysis", "error").Inc()
		return risk.Verdict{}, fmt.Errorf("fetch alerts: %w", err)
	}

	verdict := risk.ClassifyAlerts(alerts.Alerts)
	outcome := "no_risk"
	if verdict.InRisk {
		outcome = "high_risk"
	}
	metrics.VerificationsTotal.WithLabelValues("chainalysis", outcome).Inc()
	return verdict, nil
}

// awaitReady polls the status endpoint until updatedAt appears. Each attempt
// waits the policy delay first; the registration itself counts as attempt
// zero's trigger. Transient poll errors consume attempts rather than aborting,
// since the session remains valid on the service side.
func (c *Client) awaitReady(ctx context.Context, externalID string, policy backoff.Policy, statusPath string) error {
	log := logging.L(ctx)
	path := fmt.Sprintf(statusPath, externalID)

	for attempt := 0; attempt < c.maxAttempts; attempt++ {
		delay := policy.Delay(attempt)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}

		var status StatusResponse
		if err := c.get(ctx, path, &status); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			metrics.StatusChecksTotal.WithLabelValues("error").Inc()
			log.Warn("status poll failed",
				"external_id", externalID,
				"attempt", attempt,
				"error", err,
			)
			continue
		}

		if status.UpdatedAt != "" {
			metrics.StatusChecksTotal.WithLabelValues("ready").Inc()
			return nil
		}
		metrics.StatusChecksTotal.WithLabelValues("pending").Inc()
		log.Debug("verification still pending",
			"external_id", externalID,
			"attempt", attempt,
			"next_delay", policy.Delay(attempt+1).String(),
		)
	}

	return fmt.Errorf("%w: %s after %d attempts", ErrNotReady, externalID, c.maxAttempts)
}

// MonitorAlerts fetches the cross-session alert feed for the given window.
// Zero time bounds are omitted from the query.
func (c *Client) MonitorAlerts(ctx context.Context, since, until time.Time, limit, offset int) (MonitorResponse, error) {
	q := url.Values{}
	if !since.IsZero() {
		q.Set("createdAt_gte", since.UTC().Format(time.RFC3339))
	}
	if !until.IsZero() {
		q.Set("createdAt_lte", until.UTC().Format(time.RFC3339))
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if offset > 0 {
		q.Set("offset", strconv.Itoa(offset))
	}

	path := "/api/kyt/v1/alerts"
	if encoded := q.Encode(); encoded != "" {
		path += "?" + encoded
	}

	var out MonitorResponse
	if err := c.get(ctx, path, &out); err != nil {
		return MonitorResponse{}, fmt.Errorf("monitor alerts: %w", err)
	}
	return out, nil
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	if c.token != "" {
		req.Header.Set(TokenHeader, c.token)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("chainalysis: %s %s returned %d: %s",
			req.Method, req.URL.Path, resp.StatusCode, truncate(data, 256))
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("chainalysis: decode %s response: %w", req.URL.Path, err)
	}
	return nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
