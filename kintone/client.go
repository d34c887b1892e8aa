package kintone

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	backoff "github.com/cenkalti/backoff/v4"
)

const (
	tokenHeader = "X-Cybozu-API-Token"
	pageSize    = 100
	// kintone refuses offsets beyond this value.
	maxOffset = 10000
	// Error bodies are only read for their message.
	maxErrorBody = 64 * 1024
)

// App identifies a kintone app and the API token scoped to it.
type App struct {
	ID    string
	Token string
}

type Client struct {
	baseURL      string
	httpClient   *http.Client
	buildBackoff func() backoff.BackOff
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithBaseURL overrides the https://<domain> endpoint.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithBackoff sets the retry policy used for lookups.
func WithBackoff(factory func() backoff.BackOff) Option {
	return func(c *Client) {
		c.buildBackoff = factory
	}
}

func NewClient(domain string, opts ...Option) *Client {
	c := &Client{
		baseURL:    "https://" + domain,
		httpClient: http.DefaultClient,
		buildBackoff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 100 * time.Millisecond
			b.MaxElapsedTime = 3 * time.Second
			return b
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type createRequest struct {
	App    string `json:"app"`
	Record Fields `json:"record"`
}

type createResponse struct {
	ID       string `json:"id"`
	Revision string `json:"revision"`
}

// Create adds one record to app and returns its record id. It is never retried:
// a retry after an ambiguous failure could create the record twice.
func (c *Client) Create(ctx context.Context, app App, fields Fields) (string, error) {
	const op = "kintone.Create"
	if app.Token == "" {
		return "", recordStoreError(op, ErrAuth, "missing API token")
	}
	if app.ID == "" {
		return "", recordStoreError(op, ErrInvalidRequest, "missing app id")
	}
	if err := fields.Validate(); err != nil {
		return "", err
	}

	payload, err := json.Marshal(createRequest{App: app.ID, Record: fields})
	if err != nil {
		return "", recordStoreError(op, ErrInvalidRequest, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/k/v1/record.json", bytes.NewReader(payload))
	if err != nil {
		return "", recordStoreError(op, ErrInvalidRequest, err)
	}
	req.Header.Set(tokenHeader, app.Token)
	req.Header.Set("Content-Type", "application/json")

	var out createResponse
	if err := c.do(op, req, &out); err != nil {
		slog.Error("failed to create kintone record", "app", app.ID, "error", err)
		return "", err
	}

	slog.Info("kintone record created", "app", app.ID, "record_id", out.ID)
	return out.ID, nil
}

type recordsResponse struct {
	Records []Record `json:"records"`
}

// Lookup streams the records of app matching query, fetching one page at a
// time as the caller iterates. An empty sequence means no match. Iteration
// stops after the first error, which is yielded with a nil record.
//
// Offset paging cannot reach past maxOffset. A query whose last reachable page
// is still full ends with ErrInvalidRequest rather than a silently truncated
// result.
func (c *Client) Lookup(ctx context.Context, app App, query string, fields []string) iter.Seq2[Record, error] {
	return func(yield func(Record, error) bool) {
		for offset := 0; ; offset += pageSize {
			if offset > maxOffset {
				yield(nil, recordStoreError("kintone.Lookup", ErrInvalidRequest,
					fmt.Sprintf("more than %d records match %q, narrow the query", maxOffset+pageSize, query)))
				return
			}
			page, err := c.fetchPage(ctx, app, query, fields, offset)
			if err != nil {
				yield(nil, err)
				return
			}
			for _, rec := range page {
				if !yield(rec, nil) {
					return
				}
			}
			if len(page) < pageSize {
				return
			}
		}
	}
}

// First returns the first record matching query, or ok=false when none does.
func (c *Client) First(ctx context.Context, app App, query string, fields []string) (Record, bool, error) {
	for rec, err := range c.Lookup(ctx, app, query, fields) {
		if err != nil {
			return nil, false, err
		}
		return rec, true, nil
	}
	return nil, false, nil
}

func (c *Client) fetchPage(ctx context.Context, app App, query string, fields []string, offset int) ([]Record, error) {
	const op = "kintone.Lookup"
	if app.Token == "" {
		return nil, recordStoreError(op, ErrAuth, "missing API token")
	}

	params := url.Values{}
	params.Set("app", app.ID)
	params.Set("query", strings.TrimSpace(fmt.Sprintf("%s limit %d offset %d", query, pageSize, offset)))
	for i, f := range fields {
		params.Set("fields["+strconv.Itoa(i)+"]", f)
	}
	endpoint := c.baseURL + "/k/v1/records.json?" + params.Encode()

	var out recordsResponse
	err := backoff.Retry(func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return backoff.Permanent(recordStoreError(op, ErrInvalidRequest, err))
		}
		req.Header.Set(tokenHeader, app.Token)

		err = c.do(op, req, &out)
		if err != nil && !errors.Is(err, ErrService) {
			return backoff.Permanent(err)
		}
		return err
	}, backoff.WithContext(c.buildBackoff(), ctx))
	if err != nil {
		slog.Error("kintone lookup failed", "app", app.ID, "query", query, "error", err)
		if !errors.Is(err, ErrService) && !errors.Is(err, ErrAuth) && !errors.Is(err, ErrInvalidRequest) {
			return nil, recordStoreError(op, ErrService, err)
		}
		return nil, err
	}
	return out.Records, nil
}

func (c *Client) do(op string, req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return recordStoreError(op, ErrService, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return statusError(op, resp.StatusCode, body)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return recordStoreError(op, ErrService, fmt.Errorf("decode response: %w", err))
	}
	return nil
}
