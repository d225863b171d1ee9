package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/kbukum/netguard/breaker"
)

const tracerName = "github.com/kbukum/netguard/httpclient"

// Client is an HTTP client gated by a circuit breaker.
type Client struct {
	httpClient *http.Client
	config     Config
	gate       *Gate
}

// New creates a client for the given configuration. A nil breaker produces
// an ungated client that dispatches every request.
func New(cfg Config, b *breaker.Breaker) (*Client, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := &Client{
		httpClient: &http.Client{
			Transport: http.DefaultTransport.(*http.Transport).Clone(),
			Timeout:   cfg.Timeout,
		},
		config: cfg,
	}
	if b != nil {
		c.gate = NewGate(b)
	}
	return c, nil
}

// Do executes an HTTP request through the gate and returns the complete
// response. When the circuit rejects the request, the error satisfies
// apperrors.IsCircuitOpen and nothing was sent on the wire. Every dispatched
// request settles with exactly one success or failure report to the breaker.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "guard.request",
		trace.WithAttributes(
			attribute.String("http.method", req.Method),
			attribute.String("http.path", req.Path),
		))
	defer span.End()

	if err := c.gate.Allow(ctx); err != nil {
		span.SetAttributes(attribute.Bool("guard.rejected", true))
		span.RecordError(err)
		return nil, err
	}

	resp, err := c.executeRequest(ctx, req)
	c.gate.Report(ctx, err)

	if resp != nil {
		span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	}
	if err != nil {
		span.RecordError(err)
	}
	return resp, err
}

// Get is shorthand for Do with a GET request.
func (c *Client) Get(ctx context.Context, path string) (*Response, error) {
	return c.Do(ctx, Request{Method: http.MethodGet, Path: path})
}

// ProbeFunc returns the liveness probe used by the breaker's recovery
// prober. It issues a HEAD request to the configured health path, bypassing
// the gate so it can run while the circuit is open. Any answered status
// counts as success, the probe only establishes that the dependency is
// reachable again.
func (c *Client) ProbeFunc() breaker.ProbeFunc {
	return func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, c.config.ProbeTimeout)
		defer cancel()

		_, err := c.executeRequest(ctx, Request{
			Method: http.MethodHead,
			Path:   c.config.HealthPath,
		})
		var e *Error
		if errors.As(err, &e) && e.StatusCode > 0 {
			return nil
		}
		return err
	}
}

// Unwrap returns the underlying *http.Client for advanced use cases.
func (c *Client) Unwrap() *http.Client {
	return c.httpClient
}

// Breaker returns the breaker gating this client, nil if ungated.
func (c *Client) Breaker() *breaker.Breaker {
	return c.gate.Breaker()
}

// SetRecorder attaches a metrics recorder to the gate.
func (c *Client) SetRecorder(rec OutcomeRecorder) {
	c.gate.SetRecorder(rec)
}

// executeRequest builds and sends the HTTP request.
func (c *Client) executeRequest(ctx context.Context, req Request) (*Response, error) {
	httpReq, err := c.buildRequest(ctx, req)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if errors.Is(ctx.Err(), context.Canceled) {
			return nil, NewCanceledError(err)
		}
		if ctx.Err() != nil {
			return nil, NewTimeoutError(err)
		}
		return nil, NewConnectionError(err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, NewConnectionError(fmt.Errorf("read response body: %w", err))
	}

	result := &Response{
		StatusCode: resp.StatusCode,
		Headers:    flattenHeaders(resp.Header),
		Body:       body,
	}

	if classErr := ClassifyStatusCode(resp.StatusCode, body); classErr != nil {
		return result, classErr
	}

	return result, nil
}

// buildRequest constructs an *http.Request from the client config and request.
func (c *Client) buildRequest(ctx context.Context, req Request) (*http.Request, error) {
	url := req.Path
	if c.config.BaseURL != "" && !strings.HasPrefix(req.Path, "http://") && !strings.HasPrefix(req.Path, "https://") {
		url = strings.TrimRight(c.config.BaseURL, "/") + "/" + strings.TrimLeft(req.Path, "/")
	}

	body, contentType, err := encodeBody(req.Body)
	if err != nil {
		return nil, NewValidationError(fmt.Sprintf("encode body: %v", err))
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, url, body)
	if err != nil {
		return nil, NewValidationError(fmt.Sprintf("create request: %v", err))
	}

	if len(req.Query) > 0 {
		q := httpReq.URL.Query()
		for k, v := range req.Query {
			q.Set(k, v)
		}
		httpReq.URL.RawQuery = q.Encode()
	}

	// Request-specific headers override client defaults.
	for k, v := range c.config.Headers {
		httpReq.Header.Set(k, v)
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}

	if body != nil && httpReq.Header.Get("Content-Type") == "" && contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}

	return httpReq, nil
}

// encodeBody converts a body value into an io.Reader and content type.
func encodeBody(body any) (io.Reader, string, error) {
	if body == nil {
		return nil, "", nil
	}
	switch v := body.(type) {
	case io.Reader:
		return v, "", nil
	case []byte:
		return bytes.NewReader(v), "", nil
	case string:
		return strings.NewReader(v), "text/plain", nil
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return nil, "", err
		}
		return bytes.NewReader(data), "application/json", nil
	}
}

// flattenHeaders converts multi-value headers to single-value.
func flattenHeaders(h http.Header) map[string]string {
	result := make(map[string]string, len(h))
	for k, v := range h {
		if len(v) > 0 {
			result[k] = v[0]
		}
	}
	return result
}
