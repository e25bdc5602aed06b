// Package http executes single authenticated calls against embedded network
// devices. Every attempt produces a tagged ExecutionResult; no failure mode
// escapes the executor as an error value.
package http

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	nethttp "net/http"
	"net/url"
	"time"
)

const (
	// DefaultMaxIdleConns is the maximum number of idle connections in the pool.
	DefaultMaxIdleConns = 10
	// DefaultIdleConnTimeout is how long idle connections stay in the pool.
	DefaultIdleConnTimeout = 90 * time.Second
)

// Executor performs one authenticated HTTP call at a time against a device.
// Lab devices present self-signed certificates, so the transport never
// validates certificate chains. Do not reuse this client outside the lab.
type Executor struct {
	client  *nethttp.Client
	timeout time.Duration
}

// Option configures an Executor.
type Option func(*Executor)

// WithTimeout sets the default per-call timeout for descriptors that do not
// carry their own.
func WithTimeout(d time.Duration) Option {
	return func(e *Executor) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// NewExecutor builds an executor with an insecure-TLS transport.
func NewExecutor(opts ...Option) *Executor {
	e := &Executor{timeout: DefaultTimeout}
	for _, opt := range opts {
		opt(e)
	}

	transport := &nethttp.Transport{
		MaxIdleConns:    DefaultMaxIdleConns,
		IdleConnTimeout: DefaultIdleConnTimeout,
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: true,
		},
	}

	e.client = &nethttp.Client{Transport: transport}
	return e
}

// Execute issues one call described by d. The outcome, success or failure,
// is always a tagged ExecutionResult: ok, http_error, network_error,
// timeout or cancelled.
func (e *Executor) Execute(ctx context.Context, d *Descriptor) *ExecutionResult {
	start := time.Now()
	result := e.execute(ctx, d)
	result.Elapsed = time.Since(start)
	result.Timestamp = start
	return result
}

func (e *Executor) execute(ctx context.Context, d *Descriptor) *ExecutionResult {
	if err := d.Validate(); err != nil {
		return &ExecutionResult{Tag: TagHTTPError, Detail: err.Error()}
	}

	timeout := d.Timeout
	if timeout <= 0 {
		timeout = e.timeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resp, body, err := e.roundTrip(ctx, d, "")
	if err != nil {
		return failure(ctx, err)
	}

	// Digest auth needs the 401 challenge before the real request can be
	// signed. A second 401 after answering the challenge is a plain
	// http_error; the device is not retried indefinitely.
	if resp.StatusCode == nethttp.StatusUnauthorized && d.Auth.Username != "" {
		ch, ok := parseChallenge(resp.Header.Get("WWW-Authenticate"))
		if ok {
			uri := requestURI(d.URL)
			header, err := authorize(d.Auth, d.Method, uri, ch)
			if err != nil {
				return &ExecutionResult{Tag: TagHTTPError, Detail: fmt.Sprintf("digest auth: %v", err)}
			}
			resp, body, err = e.roundTrip(ctx, d, header)
			if err != nil {
				return failure(ctx, err)
			}
		}
	}

	result := &ExecutionResult{
		StatusCode: resp.StatusCode,
		Body:       body,
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		result.Tag = TagOK
	} else {
		result.Tag = TagHTTPError
		result.Detail = fmt.Sprintf("HTTP %d", resp.StatusCode)
	}
	return result
}

// roundTrip performs a single request/response exchange with the body fully
// read, so the digest retry can reuse the descriptor.
func (e *Executor) roundTrip(ctx context.Context, d *Descriptor, authHeader string) (*nethttp.Response, []byte, error) {
	var body io.Reader
	if len(d.Body) > 0 {
		body = bytes.NewReader(d.Body)
	}

	req, err := nethttp.NewRequestWithContext(ctx, d.Method, d.URL, body)
	if err != nil {
		return nil, nil, fmt.Errorf("building request: %w", err)
	}

	if len(d.Body) > 0 {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range d.Headers {
		req.Header.Set(k, v)
	}
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, err
	}

	return resp, respBody, nil
}

// failure maps a transport-level error onto the result taxonomy.
func failure(ctx context.Context, err error) *ExecutionResult {
	tag := TagNetworkError
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		tag = TagTimeout
	case errors.Is(err, context.Canceled):
		tag = TagCancelled
	default:
		var nerr net.Error
		if errors.As(err, &nerr) && nerr.Timeout() {
			tag = TagTimeout
		} else if ctx.Err() != nil {
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				tag = TagTimeout
			} else {
				tag = TagCancelled
			}
		}
	}
	return &ExecutionResult{Tag: tag, Detail: err.Error()}
}

// requestURI extracts the path and query used in the digest hash.
func requestURI(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	return u.RequestURI()
}
