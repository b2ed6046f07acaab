// Package api is the client for the FAP Agri plantation REST API.
package api

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

	"go.uber.org/zap"
)

// Credentials supplies the bearer token for each outbound request. An empty
// token means the request is sent without an Authorization header.
type Credentials interface {
	Token() string
}

// Invalidator is implemented by credentials that want to hear about a 401
// answered to a request that carried their token.
type Invalidator interface {
	CredentialRejected()
}

// StaticToken is a fixed credential.
type StaticToken string

func (t StaticToken) Token() string { return string(t) }

type Client struct {
	base  *url.URL
	hc    *http.Client
	log   *zap.Logger
	creds Credentials
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.hc = hc }
}

func WithLogger(log *zap.Logger) Option {
	return func(c *Client) { c.log = log }
}

// WithTimeout bounds every request. Zero leaves requests unbounded.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		hc := *c.hc
		hc.Timeout = d
		c.hc = &hc
	}
}

func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("base url %q: unsupported scheme", baseURL)
	}
	c := &Client{
		base: u,
		hc:   &http.Client{},
		log:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// WithCredentials returns a copy of c that authenticates with creds.
func (c *Client) WithCredentials(creds Credentials) *Client {
	cp := *c
	cp.creds = creds
	return &cp
}

func (c *Client) BaseURL() string { return c.base.String() }

func (c *Client) Get(ctx context.Context, path string, out any) error {
	return c.doJSON(ctx, http.MethodGet, path, nil, out)
}

func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.doJSON(ctx, http.MethodPost, path, body, out)
}

func (c *Client) Put(ctx context.Context, path string, body, out any) error {
	return c.doJSON(ctx, http.MethodPut, path, body, out)
}

func (c *Client) Delete(ctx context.Context, path string, out any) error {
	return c.doJSON(ctx, http.MethodDelete, path, nil, out)
}

// PostForm sends form as application/x-www-form-urlencoded.
func (c *Client) PostForm(ctx context.Context, path string, form url.Values, out any) error {
	return c.do(ctx, http.MethodPost, path, "application/x-www-form-urlencoded",
		strings.NewReader(form.Encode()), out)
}

func (c *Client) doJSON(ctx context.Context, method, path string, body, out any) error {
	if body == nil {
		return c.do(ctx, method, path, "", nil, out)
	}
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	return c.do(ctx, method, path, "application/json", bytes.NewReader(jsonBody), out)
}

func (c *Client) endpoint(path string) string {
	return c.base.String() + "/" + strings.TrimLeft(path, "/")
}

func (c *Client) do(ctx context.Context, method, path, contentType string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path), body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	var token string
	if c.creds != nil {
		token = c.creds.Token()
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.hc.Do(req)
	if err != nil {
		c.log.Debug("api request failed",
			zap.String("method", method), zap.String("path", path), zap.Error(err))
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	c.log.Debug("api request",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("took", time.Since(start)))

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s %s: read body: %w", method, path, err)
	}

	if resp.StatusCode >= 400 {
		apiErr := &Error{Method: method, Path: path, Status: resp.StatusCode, Payload: payload}
		if resp.StatusCode == http.StatusUnauthorized && token != "" {
			if inv, ok := c.creds.(Invalidator); ok {
				inv.CredentialRejected()
			}
		}
		return apiErr
	}

	if out == nil || len(payload) == 0 {
		return nil
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("%s %s: decode response: %w", method, path, err)
	}
	return nil
}
