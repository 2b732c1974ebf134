// Package keyvalue provides the REST client for the remote namespaced
// key-value datastore that backs every store in this application.
//
// The client is pure request/response: no caching, no local state. Every
// read hits the remote store. Writes use create semantics when the key is
// absent and replace semantics when present, chosen by a preceding existence
// check. Two sessions writing the same previously-absent key can both observe
// "absent" and both issue creates; the outcome is whatever the remote store
// does with the second create. There is no cross-session coordination
// channel, so this is accepted as last-write-wins.
package keyvalue

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
)

// Defaults applied by New when the corresponding Config field is zero.
const (
	DefaultTimeout       = 30 * time.Second
	DefaultSetRetries    = 3
	DefaultSetRetryDelay = 1 * time.Second
	DefaultVerifyDelay   = 500 * time.Millisecond
)

// Config holds the connection settings for the datastore client.
type Config struct {
	// BaseURL is the platform API root, e.g. "https://play.example.org/api".
	BaseURL string
	// Username/Password form the statically configured credential pair sent
	// as a basic-auth header on every request.
	Username string
	Password string

	// Timeout bounds each individual HTTP request.
	Timeout time.Duration
	// SetRetries is how many additional attempts SetValue makes after a
	// failed write, so the total attempt budget is SetRetries+1.
	SetRetries int
	// SetRetryDelay is the base of the linear backoff (delay × attempt).
	SetRetryDelay time.Duration
	// VerifyDelay is how long SetValue waits before its read-back check.
	VerifyDelay time.Duration
}

// Client talks to the remote key-value store.
type Client struct {
	base       string
	username   string
	password   string
	http       *http.Client
	retries    int
	retryDelay time.Duration
	verifyWait time.Duration
	logger     *zap.Logger
}

// StatusError is a transport failure carrying the HTTP status and response
// body of the failed call.
type StatusError struct {
	Op     string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: datastore returned %d: %s", e.Op, e.Status, e.Body)
}

// New creates a datastore client. BaseURL, Username and Password are
// required; zero-valued tuning fields get defaults.
func New(cfg Config, logger *zap.Logger) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("keyvalue: base URL is required")
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("keyvalue: invalid base URL: %w", err)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.SetRetries <= 0 {
		cfg.SetRetries = DefaultSetRetries
	}
	if cfg.SetRetryDelay <= 0 {
		cfg.SetRetryDelay = DefaultSetRetryDelay
	}

	return &Client{
		base:       cfg.BaseURL,
		username:   cfg.Username,
		password:   cfg.Password,
		http:       &http.Client{Timeout: cfg.Timeout},
		retries:    cfg.SetRetries,
		retryDelay: cfg.SetRetryDelay,
		verifyWait: cfg.VerifyDelay,
		logger:     logger,
	}, nil
}

func (c *Client) keyURL(namespace, key string) string {
	return c.base + "/dataStore/" + url.PathEscape(namespace) + "/" + url.PathEscape(key)
}

func (c *Client) namespaceURL(namespace string) string {
	return c.base + "/dataStore/" + url.PathEscape(namespace)
}

// do issues one request with basic auth and decodes a 2xx JSON body into out
// (out may be nil). Non-2xx responses become a *StatusError.
func (c *Client) do(ctx context.Context, op, method, u string, body []byte, out any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", op, err)
	}
	req.SetBasicAuth(c.username, c.password)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &StatusError{Op: op, Status: resp.StatusCode, Body: string(b)}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("%s: decode response: %w", op, err)
		}
	}
	return nil
}

// notFound reports whether err is a 404 transport error.
func notFound(err error) bool {
	se, ok := err.(*StatusError)
	return ok && se.Status == http.StatusNotFound
}

// ListNamespaces returns the namespaces visible to the configured credential.
func (c *Client) ListNamespaces(ctx context.Context) ([]string, error) {
	var namespaces []string
	if err := c.do(ctx, "list namespaces", http.MethodGet, c.base+"/dataStore", nil, &namespaces); err != nil {
		return nil, err
	}
	return namespaces, nil
}

// ListKeys returns every key in the namespace. A missing namespace is an
// empty namespace, not an error.
func (c *Client) ListKeys(ctx context.Context, namespace string) ([]string, error) {
	var keys []string
	err := c.do(ctx, "list keys", http.MethodGet, c.namespaceURL(namespace), nil, &keys)
	if notFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return keys, nil
}

// GetValue fetches one key's JSON value into v. It returns false with a nil
// error when the key does not exist.
func (c *Client) GetValue(ctx context.Context, namespace, key string, v any) (bool, error) {
	err := c.do(ctx, "get value", http.MethodGet, c.keyURL(namespace, key), nil, v)
	if notFound(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Exists reports whether the key is present in the namespace.
func (c *Client) Exists(ctx context.Context, namespace, key string) (bool, error) {
	var raw json.RawMessage
	return c.GetValue(ctx, namespace, key, &raw)
}

// SetValue stores v under the key, creating or replacing as needed.
//
// A failed write is retried up to SetRetries more times with linear backoff
// (delay × retry number). Callers must not assume delivery beyond that
// bound. After a successful write the client performs a best-effort
// verification read: the stored record must round-trip, and when the written
// body is an object carrying an "id" field the stored id must match it. A
// verification mismatch is reported as failure even though the underlying
// write may in fact have succeeded (conservative false-negative bias).
func (c *Client) SetValue(ctx context.Context, namespace, key string, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("set value: marshal: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= c.retries; attempt++ {
		if attempt > 0 {
			if err := sleepCtx(ctx, c.retryDelay*time.Duration(attempt)); err != nil {
				return err
			}
		}
		lastErr = c.writeOnce(ctx, namespace, key, body)
		if lastErr == nil {
			break
		}
		c.logger.Warn("datastore write failed",
			zap.String("namespace", namespace),
			zap.String("key", key),
			zap.Int("attempt", attempt+1),
			zap.Error(lastErr),
		)
	}
	if lastErr != nil {
		return fmt.Errorf("set value %q: retries exhausted: %w", key, lastErr)
	}

	return c.verify(ctx, namespace, key, body)
}

// writeOnce picks create vs replace by checking existence first. This is a
// read-then-write race window; see the package comment.
func (c *Client) writeOnce(ctx context.Context, namespace, key string, body []byte) error {
	exists, err := c.Exists(ctx, namespace, key)
	if err != nil {
		return err
	}
	method := http.MethodPost
	if exists {
		method = http.MethodPut
	}
	return c.do(ctx, "set value", method, c.keyURL(namespace, key), body, nil)
}

// verify reads the key back after a fixed delay and compares ids. The raw
// read tolerates any JSON shape: list singletons (the grants array) and
// id-less records only need the read to succeed.
func (c *Client) verify(ctx context.Context, namespace, key string, written []byte) error {
	if c.verifyWait > 0 {
		if err := sleepCtx(ctx, c.verifyWait); err != nil {
			return err
		}
	}

	var raw json.RawMessage
	found, err := c.GetValue(ctx, namespace, key, &raw)
	if err != nil {
		return fmt.Errorf("set value %q: verification read: %w", key, err)
	}
	if !found {
		return fmt.Errorf("set value %q: verification read found no record", key)
	}

	var sent struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(written, &sent); err != nil || sent.ID == "" {
		return nil
	}

	var stored struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(raw, &stored); err != nil || stored.ID != sent.ID {
		return fmt.Errorf("set value %q: verification mismatch: stored id %q, wrote id %q", key, stored.ID, sent.ID)
	}
	return nil
}

// DeleteValue removes one key. Deleting an absent key is not an error.
func (c *Client) DeleteValue(ctx context.Context, namespace, key string) error {
	err := c.do(ctx, "delete value", http.MethodDelete, c.keyURL(namespace, key), nil, nil)
	if notFound(err) {
		return nil
	}
	return err
}

// DeleteNamespace removes the namespace and everything in it.
func (c *Client) DeleteNamespace(ctx context.Context, namespace string) error {
	return c.do(ctx, "delete namespace", http.MethodDelete, c.namespaceURL(namespace), nil, nil)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
