package dataservice

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

	"github.com/okian/speciesdex/internal/domain/species"
	"github.com/okian/speciesdex/pkg/logger"
	"github.com/okian/speciesdex/pkg/metrics"
	"golang.org/x/time/rate"
)

const (
	speciesPath     = "rest/v1/species"
	maxResponseSize = 4 << 20
)

var selectColumns = strings.ReplaceAll(species.Columns, " ", "")

// RESTClient is a Store backed by a PostgREST-style HTTP API. Row-level
// policies on the service decide which rows a caller may update.
type RESTClient struct {
	base    *url.URL
	anonKey string
	http    *http.Client
	timeout time.Duration
	limiter *rate.Limiter
	logger  logger.Logger
}

var _ Store = (*RESTClient)(nil)

// NewRESTClient creates a client for the service at baseURL.
func NewRESTClient(baseURL, anonKey string, opts ...Option) (*RESTClient, error) {
	base, err := parseBaseURL(baseURL)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(anonKey) == "" {
		return nil, fmt.Errorf("%w: anon key is required", ErrRequest)
	}
	c := &RESTClient{
		base:    base,
		anonKey: strings.TrimSpace(anonKey),
		http:    &http.Client{Timeout: 30 * time.Second},
		logger:  logger.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func parseBaseURL(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("%w: base URL is required", ErrRequest)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: parse base URL: %w", ErrRequest, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%w: base URL must include a scheme and host (got %q)", ErrRequest, raw)
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/"
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}

// List returns every species visible to the caller.
func (c *RESTClient) List(ctx context.Context, caller Caller) ([]species.Species, error) {
	q := url.Values{}
	q.Set("select", selectColumns)
	q.Set("order", "id.asc")
	return c.do(ctx, "list", http.MethodGet, q, caller, nil)
}

// Get returns one species by id.
func (c *RESTClient) Get(ctx context.Context, caller Caller, id species.ID) (*species.Species, error) {
	q := url.Values{}
	q.Set("select", selectColumns)
	q.Set("id", "eq."+id.String())
	rows, err := c.do(ctx, "get", http.MethodGet, q, caller, nil)
	if err != nil {
		return nil, err
	}
	switch len(rows) {
	case 0:
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	case 1:
		return &rows[0], nil
	default:
		return nil, ErrMultipleRows
	}
}

// Update issues one PATCH scoped to id and asks for the row back.
func (c *RESTClient) Update(ctx context.Context, caller Caller, id species.ID, patch species.Patch) (*species.Species, error) {
	body, err := json.Marshal(patch)
	if err != nil {
		return nil, fmt.Errorf("%w: encode patch: %w", ErrRequest, err)
	}
	q := url.Values{}
	q.Set("id", "eq."+id.String())
	q.Set("select", selectColumns)
	rows, err := c.do(ctx, "update", http.MethodPatch, q, caller, body)
	if err != nil {
		return nil, err
	}
	switch len(rows) {
	case 0:
		return nil, nil
	case 1:
		return &rows[0], nil
	default:
		return nil, ErrMultipleRows
	}
}

func (c *RESTClient) do(ctx context.Context, op, method string, q url.Values, caller Caller, body []byte) ([]species.Species, error) {
	start := time.Now()
	defer func() {
		metrics.RecordDataServiceLatency(op, float64(time.Since(start).Milliseconds()))
	}()

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrRequest, op, err)
		}
	}
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	u := c.base.ResolveReference(&url.URL{Path: speciesPath, RawQuery: q.Encode()})
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), rd)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrRequest, op, err)
	}
	token := caller.AccessToken
	if token == "" {
		token = c.anonKey
	}
	req.Header.Set("apikey", c.anonKey)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Prefer", "return=representation")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %s", ErrRequest, op, redactSecrets(err.Error()))
	}
	defer func() { _ = resp.Body.Close() }()

	b, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: read body: %w", ErrRequest, op, err)
	}
	if resp.StatusCode/100 != 2 {
		herr := newHTTPError(op, resp, b)
		c.logger.Warn(ctx, "data service rejected request",
			logger.String("op", op),
			logger.Int("status", resp.StatusCode),
			logger.Error(herr),
		)
		return nil, herr
	}
	if len(bytes.TrimSpace(b)) == 0 {
		return nil, nil
	}
	if err := validateRows(b); err != nil {
		return nil, err
	}
	var rows []species.Species
	if err := json.Unmarshal(b, &rows); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRow, err)
	}
	return rows, nil
}
