package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"trainingops/internal/config"
)

const restPrefix = "/rest/v1/"

// Client talks to the backend's PostgREST and RPC endpoints
type Client struct {
	baseURL    string
	apiKey     string
	schema     string
	httpClient *http.Client
	logger     *logrus.Logger
}

// Option customizes a Client
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets the per-request timeout of the default HTTP client
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithLogger sets the request logger
func WithLogger(l *logrus.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithSchema targets a non-default Postgres schema via Accept-Profile/Content-Profile
func WithSchema(schema string) Option {
	return func(c *Client) { c.schema = schema }
}

// New creates a client for the given project URL and API key
func New(baseURL, apiKey string, opts ...Option) *Client {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetLevel(logrus.InfoLevel)

	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewFromConfig builds the one client a process uses, for the given key role.
// Missing credentials are reported before any request is made.
func NewFromConfig(cfg *config.Config, role config.KeyRole, opts ...Option) (*Client, error) {
	creds, err := cfg.Backend(role)
	if err != nil {
		return nil, err
	}

	all := []Option{WithTimeout(cfg.RequestTimeout)}
	all = append(all, opts...)
	c := New(creds.URL, creds.Key, all...)
	if strings.EqualFold(cfg.LogLevel, "debug") {
		c.logger.SetLevel(logrus.DebugLevel)
	}
	return c, nil
}

// BaseURL returns the project URL the client was built with
func (c *Client) BaseURL() string {
	return c.baseURL
}

// From starts a table-scoped request
func (c *Client) From(table string) *Query {
	return &Query{
		client: c,
		table:  table,
		params: url.Values{},
	}
}

// RPC invokes a stored procedure by name
func (c *Client) RPC(ctx context.Context, fn string, params interface{}) (*Result, error) {
	if params == nil {
		params = map[string]interface{}{}
	}
	return c.do(ctx, http.MethodPost, "rpc/"+fn, nil, params, nil)
}

// Ping checks that the REST endpoint answers and accepts the key
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodGet, "", nil, nil, nil)
	return err
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body interface{}, headers map[string]string) (*Result, error) {
	endpoint := c.baseURL + restPrefix + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.schema != "" {
		req.Header.Set("Accept-Profile", c.schema)
		req.Header.Set("Content-Profile", c.schema)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	started := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.WithFields(logrus.Fields{
			"method": method,
			"path":   path,
		}).WithError(err).Warn("backend request failed")
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	c.logger.WithFields(logrus.Fields{
		"method":      method,
		"path":        path,
		"status":      resp.StatusCode,
		"duration_ms": time.Since(started).Milliseconds(),
	}).Debug("backend request")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, newAPIError(resp.StatusCode, data)
	}

	result := &Result{
		Status: resp.StatusCode,
		Data:   json.RawMessage(data),
	}
	if count, ok := parseContentRange(resp.Header.Get("Content-Range")); ok {
		result.Count = &count
	}
	return result, nil
}

// parseContentRange extracts the total from "0-24/3573" or "*/0"
func parseContentRange(header string) (int64, bool) {
	idx := strings.LastIndex(header, "/")
	if idx < 0 || idx == len(header)-1 {
		return 0, false
	}
	total := header[idx+1:]
	if total == "*" {
		return 0, false
	}
	n, err := strconv.ParseInt(total, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}
