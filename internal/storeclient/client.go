// Package storeclient is the HTTP client of the order store API.
package storeclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/xenking/storefront/internal/domain/order"
	"github.com/xenking/storefront/internal/domain/product"
)

// APIKeyHeader carries the admin API key.
const APIKeyHeader = "api_key"

// ErrNotFound is returned when the store answers 404.
var ErrNotFound = errors.New("not found")

// TransportError is a failed exchange with the store: the request never got
// an answer, or the answer was not 2xx. Local state must stay untouched so the
// caller can retry.
type TransportError struct {
	// StatusCode is zero when no response was received.
	StatusCode int
	Message    string
	Err        error
}

func (e *TransportError) Error() string {
	switch {
	case e.StatusCode == 0 && e.Err != nil:
		return fmt.Sprintf("order store unreachable: %v", e.Err)
	case e.Message != "":
		return fmt.Sprintf("order store: %d: %s", e.StatusCode, e.Message)
	default:
		return fmt.Sprintf("order store: %d %s", e.StatusCode, http.StatusText(e.StatusCode))
	}
}

func (e *TransportError) Unwrap() error { return e.Err }

// IsRetryable reports whether repeating the request may succeed.
func IsRetryable(err error) bool {
	var te *TransportError
	if !errors.As(err, &te) {
		return false
	}
	switch {
	case te.StatusCode == 0:
		return true
	case te.StatusCode == http.StatusRequestTimeout, te.StatusCode == http.StatusTooManyRequests:
		return true
	default:
		return te.StatusCode >= 500
	}
}

// errorBody is the store's error response.
type errorBody struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Option configures a Client.
type Option func(*options)

type options struct {
	apiKey         string
	timeout        time.Duration
	base           http.RoundTripper
	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider
}

// WithAPIKey sets the key sent on admin calls.
func WithAPIKey(key string) Option {
	return func(o *options) { o.apiKey = key }
}

// WithTimeout bounds every request. Default 10s.
func WithTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}

// WithTransport replaces the underlying round tripper.
func WithTransport(rt http.RoundTripper) Option {
	return func(o *options) { o.base = rt }
}

// WithTracerProvider sets the provider used to trace requests.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) { o.tracerProvider = tp }
}

// WithMeterProvider sets the provider used for client metrics.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(o *options) { o.meterProvider = mp }
}

// Client talks to the order store.
type Client struct {
	base   *url.URL
	apiKey string
	http   *http.Client
}

// New creates a client for the store at baseURL (e.g. http://localhost:8080).
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, errors.Wrap(err, "parse base url")
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, errors.Errorf("base url %q must be absolute", baseURL)
	}

	o := options{timeout: 10 * time.Second, base: http.DefaultTransport}
	for _, opt := range opts {
		opt(&o)
	}
	var otelOpts []otelhttp.Option
	if o.tracerProvider != nil {
		otelOpts = append(otelOpts, otelhttp.WithTracerProvider(o.tracerProvider))
	}
	if o.meterProvider != nil {
		otelOpts = append(otelOpts, otelhttp.WithMeterProvider(o.meterProvider))
	}

	return &Client{
		base:   u,
		apiKey: o.apiKey,
		http: &http.Client{
			Timeout:   o.timeout,
			Transport: otelhttp.NewTransport(o.base, otelOpts...),
		},
	}, nil
}

// CreateOrder submits p and returns the store-issued tracking identifier.
func (c *Client) CreateOrder(ctx context.Context, p *order.Payload) (string, error) {
	var resp struct {
		TrackingID string `json:"trackingId"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/orders", nil, p, false, &resp); err != nil {
		return "", err
	}
	if resp.TrackingID == "" {
		return "", &TransportError{StatusCode: http.StatusOK, Message: "response has no tracking id"}
	}
	return resp.TrackingID, nil
}

// TrackOrder returns the raw order document for trackingID. Fields may be
// JSON-encoded text; see package tracking for normalization.
func (c *Client) TrackOrder(ctx context.Context, trackingID string) ([]byte, error) {
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodGet, "/api/orders/track/"+url.PathEscape(trackingID), nil, nil, false, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// GetOrder returns the full order for staff review.
func (c *Client) GetOrder(ctx context.Context, id string) (*order.Order, error) {
	var o order.Order
	if err := c.do(ctx, http.MethodGet, "/api/orders/"+url.PathEscape(id), nil, nil, true, &o); err != nil {
		return nil, err
	}
	return &o, nil
}

// ListOrders returns recent orders, optionally only those in status.
func (c *Client) ListOrders(ctx context.Context, status order.Status) ([]order.Order, error) {
	q := url.Values{}
	if status != "" {
		q.Set("status", string(status))
	}
	var orders []order.Order
	if err := c.do(ctx, http.MethodGet, "/api/orders", q, nil, true, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// UpdateStatus requests a status change and returns the store's echo.
func (c *Client) UpdateStatus(ctx context.Context, id string, status order.Status) (*order.Order, error) {
	body := struct {
		Status order.Status `json:"status"`
	}{status}
	var o order.Order
	if err := c.do(ctx, http.MethodPatch, "/api/orders/"+url.PathEscape(id)+"/status", nil, body, true, &o); err != nil {
		return nil, err
	}
	return &o, nil
}

// AppendNote adds admin free text to an order.
func (c *Client) AppendNote(ctx context.Context, id, text string) (*order.Order, error) {
	body := struct {
		Text string `json:"text"`
	}{text}
	var o order.Order
	if err := c.do(ctx, http.MethodPost, "/api/orders/"+url.PathEscape(id)+"/notes", nil, body, true, &o); err != nil {
		return nil, err
	}
	return &o, nil
}

// ListProducts returns the catalog.
func (c *Client) ListProducts(ctx context.Context) ([]product.Product, error) {
	var ps []product.Product
	if err := c.do(ctx, http.MethodGet, "/api/products", nil, nil, false, &ps); err != nil {
		return nil, err
	}
	return ps, nil
}

// GetProduct returns one catalog product.
func (c *Client) GetProduct(ctx context.Context, id string) (*product.Product, error) {
	var p product.Product
	if err := c.do(ctx, http.MethodGet, "/api/products/"+url.PathEscape(id), nil, nil, false, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, in any, admin bool, out any) error {
	u := *c.base
	u.Path += path
	u.RawQuery = query.Encode()

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return errors.Wrap(err, "encode request")
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return errors.Wrap(err, "create request")
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if admin && c.apiKey != "" {
		req.Header.Set(APIKeyHeader, c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return &TransportError{StatusCode: http.StatusRequestTimeout, Message: "request timed out", Err: err}
		}
		return &TransportError{Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return &TransportError{StatusCode: resp.StatusCode, Err: errors.Wrap(err, "read body")}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var eb errorBody
		_ = json.Unmarshal(data, &eb)
		if resp.StatusCode == http.StatusNotFound {
			if eb.Message != "" {
				return errors.Wrap(ErrNotFound, eb.Message)
			}
			return ErrNotFound
		}
		return &TransportError{StatusCode: resp.StatusCode, Message: eb.Message}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &TransportError{StatusCode: resp.StatusCode, Message: "malformed response", Err: err}
	}
	return nil
}
