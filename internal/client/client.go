// Package client talks to the expenses HTTP API and keeps a durable queue of
// submissions that have not been acknowledged yet.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pranit27-debug/Expense-Tracker/internal/api"
	"github.com/pranit27-debug/Expense-Tracker/internal/core"
	applog "github.com/pranit27-debug/Expense-Tracker/internal/log"
)

const (
	defaultTimeout = 10 * time.Second
	maxErrorBody   = 4 << 10
)

// ErrTransient marks failures worth retrying: network errors, timeouts and 5xx responses.
var ErrTransient = errors.New("transient failure")

// APIError is a non-2xx response from the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned %d", e.StatusCode)
	}
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Message)
}

// Unwrap maps the status onto the domain sentinels so callers can use errors.Is.
func (e *APIError) Unwrap() error {
	switch {
	case e.StatusCode == http.StatusBadRequest:
		return core.ErrValidation
	case e.StatusCode == http.StatusNotFound:
		return core.ErrNotFound
	case e.StatusCode == http.StatusTooManyRequests, e.StatusCode >= 500:
		return ErrTransient
	default:
		return nil
	}
}

// IsPermanent reports whether err is a validation rejection that will not
// change on retry. Any other status, 404 and 403 included, may come from a
// misrouted request or a proxy, so queued entries survive it.
func IsPermanent(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusBadRequest
}

// Client is a typed wrapper over the JSON API.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	logger     *applog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger sets the logger.
func WithLogger(l *applog.Logger) Option {
	return func(c *Client) { c.logger = l.WithComponent(applog.ComponentClient) }
}

// New creates a client for the API rooted at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid API URL %q: %w", baseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid API URL %q: scheme must be http or https", baseURL)
	}
	c := &Client{
		baseURL:    u,
		httpClient: &http.Client{Timeout: defaultTimeout},
		logger:     applog.Discard(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Create posts a new expense. created is false when the server already had
// a record for the request's client_id.
func (c *Client) Create(ctx context.Context, req api.ExpenseRequest) (core.Expense, bool, error) {
	var out api.Expense
	status, err := c.do(ctx, http.MethodPost, "/expenses", nil, req, &out)
	if err != nil {
		return core.Expense{}, false, err
	}
	e, err := out.ToExpense()
	if err != nil {
		return core.Expense{}, false, err
	}
	return e, status == http.StatusCreated, nil
}

// Get fetches the live record.
func (c *Client) Get(ctx context.Context, id string) (core.Expense, error) {
	var out api.Expense
	if _, err := c.do(ctx, http.MethodGet, "/expenses/"+url.PathEscape(id), nil, nil, &out); err != nil {
		return core.Expense{}, err
	}
	return out.ToExpense()
}

// Update replaces the fields of an existing record.
func (c *Client) Update(ctx context.Context, id string, in core.ExpenseInput) (core.Expense, error) {
	req := api.ExpenseRequest{
		Amount:      json.RawMessage(strconv.Quote(in.Amount)),
		Category:    in.Category,
		Description: in.Description,
		Date:        in.Date,
	}
	var out api.Expense
	if _, err := c.do(ctx, http.MethodPut, "/expenses/"+url.PathEscape(id), nil, req, &out); err != nil {
		return core.Expense{}, err
	}
	return out.ToExpense()
}

// Delete removes a record.
func (c *Client) Delete(ctx context.Context, id string) error {
	_, err := c.do(ctx, http.MethodDelete, "/expenses/"+url.PathEscape(id), nil, nil, nil)
	return err
}

// List fetches expenses. A paginated query gets the envelope, otherwise the bare array.
func (c *Client) List(ctx context.Context, q core.ListQuery) (core.ListResult, error) {
	q = q.Normalize()
	params := url.Values{}
	if q.Category != "" {
		params.Set("category", q.Category)
	}
	params.Set("sort", string(q.Sort))

	if !q.Paginate {
		var items []api.Expense
		if _, err := c.do(ctx, http.MethodGet, "/expenses", params, nil, &items); err != nil {
			return core.ListResult{}, err
		}
		expenses, err := api.ToExpenses(items)
		if err != nil {
			return core.ListResult{}, err
		}
		return core.ListResult{Items: expenses}, nil
	}

	params.Set("page", strconv.Itoa(q.Page))
	params.Set("per_page", strconv.Itoa(q.PerPage))
	var page api.Page
	if _, err := c.do(ctx, http.MethodGet, "/expenses", params, nil, &page); err != nil {
		return core.ListResult{}, err
	}
	return page.ToListResult()
}

// Summary fetches per-category totals, optionally restricted to one category.
func (c *Client) Summary(ctx context.Context, category string) (core.Summary, error) {
	params := url.Values{}
	if category != "" {
		params.Set("category", category)
	}
	var out api.Summary
	if _, err := c.do(ctx, http.MethodGet, "/expenses/summary", params, nil, &out); err != nil {
		return core.Summary{}, err
	}
	return out.ToSummary(), nil
}

func (c *Client) do(ctx context.Context, method, path string, params url.Values, body, out any) (int, error) {
	u := *c.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + path
	u.RawQuery = params.Encode()

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return 0, ctxErr
		}
		c.logger.WarnContext(ctx, "API request failed", applog.FieldMethod, method, applog.FieldPath, path, applog.FieldError, err)
		return 0, fmt.Errorf("%w: %s %s: %v", ErrTransient, method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var payload api.Error
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		if json.Unmarshal(raw, &payload) == nil && payload.Error != "" {
			apiErr.Message = payload.Error
		} else {
			apiErr.Message = strings.TrimSpace(string(raw))
		}
		return resp.StatusCode, apiErr
	}

	if out != nil && resp.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, fmt.Errorf("decode %s %s response: %w", method, path, err)
		}
	}
	return resp.StatusCode, nil
}
