// Package api is the REST client for the storefront backend endpoints the
// checkout orchestrator consumes.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/khoakhoakhoa23/TMDT-sub000/internal/apperr"
	"github.com/khoakhoakhoa23/TMDT-sub000/internal/auth"
	"github.com/khoakhoakhoa23/TMDT-sub000/internal/models"
)

const (
	DefaultBaseURL = "http://127.0.0.1:8000/api/"
	DefaultTimeout = 15 * time.Second

	maxBodyBytes = 1 << 20
)

// Client calls the backend over HTTP with bearer auth.
type Client struct {
	baseURL string
	client  *http.Client
	tokens  auth.TokenSource
	logger  *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.client = hc }
}

// WithTokenSource sets where bearer tokens come from.
func WithTokenSource(ts auth.TokenSource) Option {
	return func(c *Client) { c.tokens = ts }
}

// WithLogger sets the client's logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// NewClient creates a Client rooted at baseURL.
func NewClient(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/") + "/",
		client:  &http.Client{Timeout: DefaultTimeout},
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Locations returns the rental locations. Any failure falls back to
// models.FallbackLocations so checkout is never blocked on this call.
func (c *Client) Locations(ctx context.Context) []models.Location {
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodPost, "locations/", struct{}{}, &raw, nil); err != nil {
		c.logger.Warn("Falling back to default locations", "error", err)
		return fallbackLocations()
	}

	var list []locationDTO
	if err := json.Unmarshal(raw, &list); err != nil {
		var page struct {
			Results []locationDTO `json:"results"`
		}
		if err := json.Unmarshal(raw, &page); err != nil {
			c.logger.Warn("Falling back to default locations", "error", err)
			return fallbackLocations()
		}
		list = page.Results
	}

	locations := make([]models.Location, 0, len(list))
	for _, l := range list {
		if l.Name == "" {
			continue
		}
		locations = append(locations, models.Location{ID: string(l.ID), Name: l.Name})
	}
	if len(locations) == 0 {
		return fallbackLocations()
	}
	return locations
}

// CreateOrder calls POST /order/. idempotencyKey is sent as the
// Idempotency-Key header when non-empty.
func (c *Client) CreateOrder(ctx context.Context, req OrderRequest, idempotencyKey string) (*OrderResponse, error) {
	hdr := http.Header{}
	if idempotencyKey != "" {
		hdr.Set("Idempotency-Key", idempotencyKey)
	}
	var resp OrderResponse
	if err := c.do(ctx, http.MethodPost, "order/", req, &resp, hdr); err != nil {
		return nil, err
	}
	return &resp, nil
}

// CreatePayment calls POST /payment/create/.
func (c *Client) CreatePayment(ctx context.Context, req PaymentRequest) (*PaymentResponse, error) {
	var resp PaymentResponse
	if err := c.do(ctx, http.MethodPost, "payment/create/", req, &resp, nil); err != nil {
		return nil, err
	}
	return &resp, nil
}

// PaymentStatus calls GET /payment/{id}/status/ and returns the raw status.
func (c *Client) PaymentStatus(ctx context.Context, paymentID string) (string, error) {
	var resp StatusResponse
	if err := c.do(ctx, http.MethodGet, "payment/"+url.PathEscape(paymentID)+"/status/", nil, &resp, nil); err != nil {
		return "", err
	}
	return resp.Status, nil
}

// SimulatePayment calls the development-only POST /payment/{id}/simulate/.
func (c *Client) SimulatePayment(ctx context.Context, paymentID string) error {
	return c.do(ctx, http.MethodPost, "payment/"+url.PathEscape(paymentID)+"/simulate/", struct{}{}, nil, nil)
}

// Checkout calls POST /checkout/ for non-gateway payment methods.
func (c *Client) Checkout(ctx context.Context, req CheckoutRequest) error {
	return c.do(ctx, http.MethodPost, "checkout/", req, nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any, hdr http.Header) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s %s: %w: %w", method, path, apperr.ErrEncodeRequest, err)
		}
		reader = bytes.NewReader(data)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, c.baseURL+strings.TrimLeft(path, "/"), reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	for k, v := range hdr {
		httpReq.Header[k] = v
	}

	if c.tokens != nil {
		tok, err := c.tokens.Token(ctx)
		if err != nil {
			return err
		}
		if tok != "" {
			httpReq.Header.Set("Authorization", "Bearer "+tok)
		}
	}

	start := time.Now()
	resp, err := c.client.Do(httpReq)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("%s %s: %w", method, path, ctxErr)
		}
		return fmt.Errorf("%s %s: %w: %w", method, path, apperr.ErrNetwork, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("%s %s: read body: %w: %w", method, path, apperr.ErrNetwork, err)
	}

	c.logger.Debug("API call", "method", method, "path", path, "status", resp.StatusCode, "duration", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%s %s: %w", method, path, parseError(resp.StatusCode, respBody))
	}

	if out == nil || len(bytes.TrimSpace(respBody)) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("%s %s: %w: %w", method, path, apperr.ErrInvalidServerResponse, err)
	}
	return nil
}

// IsNetwork reports whether err is a transport failure rather than a response.
func IsNetwork(err error) bool {
	return errors.Is(err, apperr.ErrNetwork)
}

func fallbackLocations() []models.Location {
	out := make([]models.Location, len(models.FallbackLocations))
	copy(out, models.FallbackLocations)
	return out
}
