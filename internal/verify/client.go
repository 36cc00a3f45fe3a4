// Package verify implements the client for the remote access-verification
// service. Every credential triggers a fresh round-trip: decisions are
// deliberately never cached on the device, so a revoked credential stops
// working as soon as the remote database says so.
package verify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/KurtDue/iono-pi-access-control/internal/api/metrics"
	"github.com/KurtDue/iono-pi-access-control/internal/core/domain"
)

const (
	defaultTimeout = 5 * time.Second
	retryBackoff   = 250 * time.Millisecond
	maxBodyBytes   = 1 << 20
)

// Config captures the remote endpoint settings.
type Config struct {
	BaseURL   string
	Endpoint  string // e.g. "/api/access/verify"
	AuthToken string // sent as the Authorization header when non-empty
	Timeout   time.Duration
	DeviceID  string
}

// Client is the HTTP verification client. It owns the timeout and the
// single-retry policy; callers treat any returned error as a deny.
type Client struct {
	cfg  Config
	http *http.Client
	log  zerolog.Logger
}

func NewClient(cfg Config, log zerolog.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = "/api/access/verify"
	}
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
		log:  log,
	}
}

type verifyRequest struct {
	Barcode   string `json:"barcode"`
	Timestamp string `json:"timestamp"`
	DeviceID  string `json:"device_id"`
}

// verifyResponse mirrors the remote wire contract. AccessGranted is a
// pointer so a response missing the grant flag is detectable as malformed
// rather than silently read as deny.
type verifyResponse struct {
	AccessGranted *bool    `json:"access_granted"`
	UserID        string   `json:"user_id"`
	UserName      string   `json:"user_name"`
	Permissions   []string `json:"permissions"`
	ExpiresAt     string   `json:"expires_at"`
	Reason        string   `json:"reason"`
}

// Verify sends the credential to the remote service and returns its
// decision. Transport failures and timeouts are retried once with a short
// backoff, then surfaced wrapping domain.ErrVerificationUnavailable.
// Responses failing schema validation wrap domain.ErrVerificationMalformed.
// A remote 404 is a denial, not a failure.
func (c *Client) Verify(ctx context.Context, cred domain.Credential) (domain.AccessDecision, error) {
	start := time.Now()

	body, err := json.Marshal(verifyRequest{
		Barcode:   cred.Barcode,
		Timestamp: cred.CapturedAt.UTC().Format(time.RFC3339),
		DeviceID:  c.cfg.DeviceID,
	})
	if err != nil {
		return domain.AccessDecision{}, fmt.Errorf("encode verify request: %w", err)
	}

	resp, err := c.post(ctx, body)
	if err != nil {
		metrics.VerificationFailuresTotal.WithLabelValues("unavailable").Inc()
		return domain.AccessDecision{}, fmt.Errorf("%w: %v", domain.ErrVerificationUnavailable, err)
	}
	defer resp.Body.Close()

	metrics.VerificationDuration.Observe(time.Since(start).Seconds())

	switch {
	case resp.StatusCode == http.StatusOK:
		return c.parse(resp.Body)
	case resp.StatusCode == http.StatusNotFound:
		return domain.Deny("barcode not found"), nil
	default:
		metrics.VerificationFailuresTotal.WithLabelValues("unavailable").Inc()
		return domain.AccessDecision{}, fmt.Errorf("%w: remote returned %d",
			domain.ErrVerificationUnavailable, resp.StatusCode)
	}
}

// post performs the request with one bounded retry. The retry covers
// transport errors and 5xx responses; a request already answered 2xx/4xx is
// never re-sent.
func (c *Client) post(ctx context.Context, body []byte) (*http.Response, error) {
	var lastErr error

	for attempt := 0; attempt < 2; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(retryBackoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			c.log.Debug().Msg("retrying verification request")
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost,
			c.cfg.BaseURL+c.cfg.Endpoint, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		if c.cfg.AuthToken != "" {
			req.Header.Set("Authorization", c.cfg.AuthToken)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			lastErr = err
			continue
		}
		if resp.StatusCode >= 500 {
			lastErr = fmt.Errorf("remote returned %d", resp.StatusCode)
			_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
			_ = resp.Body.Close()
			continue
		}
		return resp, nil
	}

	return nil, lastErr
}

func (c *Client) parse(r io.Reader) (domain.AccessDecision, error) {
	var vr verifyResponse
	if err := json.NewDecoder(io.LimitReader(r, maxBodyBytes)).Decode(&vr); err != nil {
		metrics.VerificationFailuresTotal.WithLabelValues("malformed").Inc()
		return domain.AccessDecision{}, fmt.Errorf("%w: %v", domain.ErrVerificationMalformed, err)
	}
	if vr.AccessGranted == nil {
		metrics.VerificationFailuresTotal.WithLabelValues("malformed").Inc()
		return domain.AccessDecision{}, fmt.Errorf("%w: missing access_granted", domain.ErrVerificationMalformed)
	}

	dec := domain.AccessDecision{
		Granted:     *vr.AccessGranted,
		UserID:      vr.UserID,
		UserName:    vr.UserName,
		Permissions: vr.Permissions,
		Reason:      vr.Reason,
	}
	if dec.Reason == "" {
		if dec.Granted {
			dec.Reason = "access granted"
		} else {
			dec.Reason = "access denied"
		}
	}

	// expires_at is advisory metadata for the audit record; a bad value is
	// ignored rather than failing the decision.
	if vr.ExpiresAt != "" {
		if t, err := time.Parse(time.RFC3339, vr.ExpiresAt); err == nil {
			u := t.UTC()
			dec.ExpiresAt = &u
		}
	}

	return dec, nil
}
