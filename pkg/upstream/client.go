package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/training-crm-console/pkg/config"
	appErrors "github.com/noah-isme/training-crm-console/pkg/errors"
)

const maxErrorBody = 4 << 10

type tokenKey struct{}

// WithToken returns a context carrying the bearer token forwarded upstream.
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey{}, token)
}

// TokenFrom extracts the bearer token set by WithToken.
func TokenFrom(ctx context.Context) string {
	if v, ok := ctx.Value(tokenKey{}).(string); ok {
		return v
	}
	return ""
}

// Observer receives timing for every upstream call.
type Observer interface {
	ObserveUpstreamCall(endpoint, outcome string, duration time.Duration)
}

// envelope is the {success, data, message} contract of the remote API.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

// Client talks to the remote REST API. Every call is attempted exactly once.
type Client struct {
	baseURL  string
	http     *http.Client
	logger   *zap.Logger
	observer Observer
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient swaps the transport, mostly for tests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithObserver attaches call metrics.
func WithObserver(o Observer) Option {
	return func(c *Client) { c.observer = o }
}

// NewClient builds a client for the configured base URL.
func NewClient(cfg config.UpstreamConfig, logger *zap.Logger, opts ...Option) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Client{
		baseURL: cfg.BaseURL,
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) do(ctx context.Context, endpoint, method, path string, query url.Values, body, out interface{}) error {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode upstream request")
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to build upstream request")
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := TokenFrom(ctx); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.observe(endpoint, "transport_error", start)
		c.logger.Warn("upstream call failed", zap.String("endpoint", endpoint), zap.String("method", method), zap.Error(err))
		return appErrors.Wrap(err, appErrors.ErrUpstream.Code, appErrors.ErrUpstream.Status, appErrors.ErrUpstream.Message)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		c.observe(endpoint, "read_error", start)
		return appErrors.Wrap(err, appErrors.ErrUpstream.Code, appErrors.ErrUpstream.Status, appErrors.ErrUpstream.Message)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		c.observe(endpoint, "unauthorized", start)
		return appErrors.Clone(appErrors.ErrSessionExpired, "")
	}

	var env envelope
	decodeErr := json.Unmarshal(raw, &env)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.observe(endpoint, fmt.Sprintf("http_%d", resp.StatusCode), start)
		c.logger.Warn("upstream rejected call",
			zap.String("endpoint", endpoint),
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", truncate(raw)),
		)
		return statusError(resp.StatusCode, env.Message)
	}
	if decodeErr != nil {
		c.observe(endpoint, "decode_error", start)
		return appErrors.Wrap(decodeErr, appErrors.ErrUpstream.Code, appErrors.ErrUpstream.Status, "unexpected upstream response")
	}
	if !env.Success {
		c.observe(endpoint, "rejected", start)
		return statusError(http.StatusUnprocessableEntity, env.Message)
	}
	c.observe(endpoint, "ok", start)

	if out == nil || len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return appErrors.Wrap(err, appErrors.ErrUpstream.Code, appErrors.ErrUpstream.Status, "unexpected upstream response")
	}
	return nil
}

func (c *Client) observe(endpoint, outcome string, start time.Time) {
	if c.observer != nil {
		c.observer.ObserveUpstreamCall(endpoint, outcome, time.Since(start))
	}
}

func statusError(status int, message string) error {
	switch status {
	case http.StatusNotFound:
		return appErrors.Clone(appErrors.ErrNotFound, message)
	case http.StatusForbidden:
		return appErrors.Clone(appErrors.ErrForbidden, message)
	}
	err := appErrors.Clone(appErrors.ErrUpstream, message)
	if status == http.StatusBadRequest || status == http.StatusConflict || status == http.StatusUnprocessableEntity {
		err.Status = status
	}
	return err
}

func truncate(raw []byte) []byte {
	if len(raw) > maxErrorBody {
		return raw[:maxErrorBody]
	}
	return raw
}
