// Package postgrest wraps supabase-community/postgrest-go for the table
// endpoints this service writes to. It adds per-call deadlines and keeps the
// status and body of failed answers so callers get a typed *Error.
package postgrest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	rest "github.com/supabase-community/postgrest-go"
)

const (
	// DefaultTimeout is the default timeout for HTTP requests
	DefaultTimeout = 10 * time.Second

	// MaxResponseSize caps how much of a response body is read (1MB)
	MaxResponseSize = 1 << 20

	UserAgent = "waitlist-foundry/1.0"

	restPath = "/rest/v1"

	returnMinimal        = "minimal"
	returnRepresentation = "representation"
)

type Client struct {
	restURL   string
	headers   map[string]string
	timeout   time.Duration
	transport http.RoundTripper
}

// NewClient builds a client for the project at endpoint. If timeout is 0,
// DefaultTimeout is used.
func NewClient(endpoint, apiKey string, timeout time.Duration) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(strings.TrimSpace(endpoint), "/"))
	if err != nil {
		return nil, fmt.Errorf("postgrest: invalid endpoint %q: %w", endpoint, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("postgrest: unsupported endpoint scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("postgrest: endpoint %q has no host", endpoint)
	}

	if timeout == 0 {
		timeout = DefaultTimeout
	}

	u.Path = strings.TrimRight(u.Path, "/") + restPath

	return &Client{
		restURL: u.String(),
		headers: map[string]string{
			"apikey":        apiKey,
			"Authorization": "Bearer " + apiKey,
			"User-Agent":    UserAgent,
		},
		timeout:   timeout,
		transport: http.DefaultTransport,
	}, nil
}

// Upsert inserts rows into table, merging into existing rows that collide on
// the onConflict columns. The stored rows are decoded into out when it is
// not nil.
func (c *Client) Upsert(ctx context.Context, table, onConflict string, rows any, out any) error {
	body, err := json.Marshal(rows)
	if err != nil {
		return fmt.Errorf("postgrest: encode rows: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	api, ex := c.session(ctx)
	query := api.From(table)

	if out == nil {
		_, _, err = query.Upsert(json.RawMessage(body), onConflict, returnMinimal, "").Execute()
		return ex.result(err)
	}

	_, err = query.Upsert(json.RawMessage(body), onConflict, returnRepresentation, "").ExecuteTo(out)
	return ex.result(err)
}

// Ping checks that the REST root answers with the configured key.
func (c *Client) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	api, ex := c.session(ctx)
	if api.Ping() {
		return nil
	}
	return ex.result(api.ClientError)
}

// session returns a postgrest-go client whose requests run under ctx. The
// library client keeps sticky errors, so one is built per call.
func (c *Client) session(ctx context.Context) (*rest.Client, *exchange) {
	ex := &exchange{ctx: ctx, base: c.transport}
	api := rest.NewClient(c.restURL, "", c.headers)
	api.Transport.Parent = ex
	return api, ex
}

// exchange records the last answer so a failed call can be reported with
// its status and PostgREST error body.
type exchange struct {
	ctx    context.Context
	base   http.RoundTripper
	status int
	body   []byte
}

func (x *exchange) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := x.base.RoundTrip(req.WithContext(x.ctx))
	if err != nil {
		return nil, err
	}
	raw := resp.Body
	defer func() {
		_ = raw.Close()
	}()

	body, err := io.ReadAll(io.LimitReader(raw, MaxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	x.status = resp.StatusCode
	x.body = body
	resp.Body = io.NopCloser(bytes.NewReader(body))
	return resp, nil
}

func (x *exchange) result(err error) error {
	if x.status >= http.StatusBadRequest {
		return newError(x.status, x.body)
	}
	if err != nil {
		return fmt.Errorf("postgrest: %w", err)
	}
	return nil
}
