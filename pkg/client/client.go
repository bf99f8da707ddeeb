// Package client talks to the custom-field HTTP API. Responses are unwrapped
// from the shared envelope; rejections surface as *APIError and network or
// protocol failures as *TransportError.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/goliatone/go-customfields/pkg/envelope"
	"github.com/goliatone/go-customfields/pkg/registry"
)

// Header names carrying the caller identity.
const (
	HeaderCompanyID  = "X-Company-ID"
	HeaderPrivileged = "X-Privileged"
	HeaderRequestID  = "X-Request-ID"
)

const defaultTimeout = 15 * time.Second

// Client is a typed wrapper around the REST contract.
type Client struct {
	http   *resty.Client
	logger *zap.Logger
	caller registry.Caller
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient swaps the underlying *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = resty.NewWithClient(hc).SetBaseURL(c.http.BaseURL).SetTimeout(defaultTimeout)
		}
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.http.SetTimeout(timeout)
	}
}

// WithRetry enables transport level retries for retryable failures.
func WithRetry(count int, wait, maxWait time.Duration) Option {
	return func(c *Client) {
		c.http.SetRetryCount(count).
			SetRetryWaitTime(wait).
			SetRetryMaxWaitTime(maxWait).
			AddRetryCondition(func(resp *resty.Response, err error) bool {
				if err != nil {
					return true
				}
				code := resp.StatusCode()
				return code == http.StatusTooManyRequests || code >= 500 && code != http.StatusNotImplemented
			})
	}
}

// WithLogger sets the client logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithCaller sends caller identity headers on every request.
func WithCaller(caller registry.Caller) Option {
	return func(c *Client) {
		c.caller = caller
	}
}

// New builds a Client for baseURL, e.g. "http://localhost:8080/api".
func New(baseURL string, options ...Option) *Client {
	c := &Client{
		http: resty.New().
			SetBaseURL(strings.TrimRight(baseURL, "/")).
			SetTimeout(defaultTimeout).
			SetHeader("Accept", "application/json"),
		logger: zap.NewNop(),
	}
	for _, opt := range options {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// As returns a copy of c acting on behalf of caller.
func (c *Client) As(caller registry.Caller) *Client {
	clone := *c
	clone.caller = caller
	return &clone
}

type call struct {
	op     string
	method string
	path   string
	query  url.Values
	body   any
}

// request prepares a resty request carrying the caller identity.
func (c *Client) request(ctx context.Context) *resty.Request {
	r := c.http.R().
		SetContext(ctx).
		SetHeader(HeaderRequestID, uuid.NewString())
	if c.caller.CompanyID != nil {
		r.SetHeader(HeaderCompanyID, strconv.FormatInt(*c.caller.CompanyID, 10))
	}
	if c.caller.Privileged {
		r.SetHeader(HeaderPrivileged, "true")
	}
	return r
}

func (c *Client) do(ctx context.Context, req call, out any) error {
	r := c.request(ctx)
	if len(req.query) > 0 {
		r.SetQueryParamsFromValues(req.query)
	}
	if req.body != nil {
		r.SetHeader("Content-Type", "application/json").SetBody(req.body)
	}

	resp, err := r.Execute(req.method, req.path)
	if err != nil {
		c.logger.Warn("custom field api unreachable", zap.String("op", req.op), zap.Error(err))
		return &TransportError{Op: req.op, Err: err}
	}
	return decode(req.op, resp, out)
}

// decode unwraps the envelope of resp into out.
func decode(op string, resp *resty.Response, out any) error {
	var env envelope.Raw
	if err := json.Unmarshal(resp.Body(), &env); err != nil || env.Context.Status == 0 {
		if err == nil {
			err = errors.New("missing envelope context")
		}
		return &TransportError{Op: op, StatusCode: resp.StatusCode(), Err: fmt.Errorf("malformed envelope: %w", err)}
	}

	if !resp.IsSuccess() || !env.Context.OK() {
		status := env.Context.Status
		if !resp.IsSuccess() {
			status = resp.StatusCode()
		}
		if status >= 500 {
			return &TransportError{Op: op, StatusCode: status, Code: env.Context.Code, Err: errors.New(env.Context.Message)}
		}
		return &APIError{
			Op:         op,
			StatusCode: status,
			Code:       env.Context.Code,
			Message:    env.Context.Message,
			Fields:     env.Context.Fields,
		}
	}

	if out == nil || len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return &TransportError{Op: op, StatusCode: resp.StatusCode(), Err: fmt.Errorf("decode data: %w", err)}
	}
	return nil
}

func escape(segment string) string {
	return url.PathEscape(segment)
}
