package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/oauth2"
)

const (
	defaultTimeout       = 30 * time.Second
	defaultGatewayPrefix = "/payments/razorpay"
)

// Error is a non-2xx backend response, decoded from the standard error body
// {timestamp, status, error, message, path}.
type Error struct {
	Status  int
	Code    string
	Message string
	Path    string
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Code
	}
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	return fmt.Sprintf("api %d %s: %s", e.Status, e.Path, msg)
}

// IsStatus reports whether err is an *Error with the given status.
func IsStatus(err error, status int) bool {
	var ae *Error
	return errors.As(err, &ae) && ae.Status == status
}

// Client calls the QuickCart REST backend. A Client without a token source
// sends unauthenticated requests; WithTokenSource derives an authenticated
// copy sharing the same base transport.
type Client struct {
	baseURL       string
	gatewayPrefix string
	timeout       time.Duration
	base          http.RoundTripper
	httpClient    *http.Client
}

type Option func(*Client)

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithTransport replaces the base round tripper (before instrumentation).
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) { c.base = rt }
}

// WithGatewayPrefix sets the path prefix of the payment gateway endpoints.
func WithGatewayPrefix(p string) Option {
	return func(c *Client) {
		if p = strings.TrimRight(p, "/"); p != "" {
			c.gatewayPrefix = p
		}
	}
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:       strings.TrimRight(baseURL, "/"),
		gatewayPrefix: defaultGatewayPrefix,
		timeout:       defaultTimeout,
		base:          http.DefaultTransport,
	}
	for _, o := range opts {
		o(c)
	}
	c.base = otelhttp.NewTransport(c.base)
	c.httpClient = &http.Client{Timeout: c.timeout, Transport: c.base}
	return c
}

// WithTokenSource returns a copy whose requests carry the bearer token from
// ts. A source with no token fails the request before it is sent.
func (c *Client) WithTokenSource(ts oauth2.TokenSource) *Client {
	cp := *c
	cp.httpClient = &http.Client{
		Timeout:   c.timeout,
		Transport: &oauth2.Transport{Source: ts, Base: c.base},
	}
	return &cp
}

type errorBody struct {
	Status  int    `json:"status"`
	Error   string `json:"error"`
	Message string `json:"message"`
	Path    string `json:"path"`
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	res, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer res.Body.Close()

	if res.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(res.Body, 64<<10))
		apiErr := &Error{Status: res.StatusCode, Path: path}
		var eb errorBody
		if json.Unmarshal(raw, &eb) == nil {
			apiErr.Code = eb.Error
			apiErr.Message = eb.Message
			if eb.Path != "" {
				apiErr.Path = eb.Path
			}
		} else if s := strings.TrimSpace(string(raw)); s != "" {
			apiErr.Message = s
		}
		return apiErr
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, res.Body)
		return nil
	}
	dec := json.NewDecoder(res.Body)
	dec.UseNumber()
	if err := dec.Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
