// internal/store/airtable/airtable.go
//
// HTTP record store for the hosted content base.
//
// Context
// -------
// The hosted base exposes one REST endpoint per table:
//
//	GET {base_url}/v0/{base_id}/{table}?view=&filterByFormula=&sort[0][field]=&maxRecords=&pageSize=&offset=
//
// Responses hold at most one page of records plus an `offset` cursor when
// more remain.  Query follows the cursor until it is exhausted or
// MaxRecords is reached.
//
// The API allows a handful of requests per second per base.  Every page
// request waits on a shared token bucket (x/time/rate) first, and
// transient failures (429, 5xx, transport errors) are retried with
// backoff by go-retryablehttp.
//
// Errors
// ------
//   - 401 / 403            → *record.PermissionError (table not readable).
//   - any other non-2xx    → *record.QueryError with the status.
//   - transport / decode   → *record.QueryError with Status 0.
package airtable

import (
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

	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/yanizio/tenantcms/internal/metrics"
	"github.com/yanizio/tenantcms/internal/record"
)

// Defaults for Config.
const (
	DefaultBaseURL    = "https://api.airtable.com"
	DefaultRatePerSec = 5
	DefaultRetries    = 3
	PageSize          = 100
)

// Config configures a Store.
type Config struct {
	BaseURL    string
	BaseID     string
	APIKey     string
	RatePerSec float64
	Burst      int
	Retries    int
	Timeout    time.Duration // per HTTP attempt
	RetryWait  time.Duration // minimum backoff; zero keeps the library default
}

// Store implements record.Store over HTTP.  Safe for concurrent use.
type Store struct {
	cfg     Config
	client  *retryablehttp.Client
	limiter *rate.Limiter
}

// New returns a Store.  BaseID and APIKey are required.
func New(cfg Config) (*Store, error) {
	if cfg.BaseID == "" || cfg.APIKey == "" {
		return nil, errors.New("airtable: base id and api key are required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.RatePerSec <= 0 {
		cfg.RatePerSec = DefaultRatePerSec
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}
	if cfg.Retries < 0 {
		cfg.Retries = 0
	}

	client := retryablehttp.NewClient()
	client.RetryMax = cfg.Retries
	client.Logger = leveled{zap.S().Named("airtable")}
	// Hand the final response back instead of a generic "giving up" error
	// so the status can be classified.
	client.ErrorHandler = retryablehttp.PassthroughErrorHandler
	if cfg.RetryWait > 0 {
		client.RetryWaitMin = cfg.RetryWait
		client.RetryWaitMax = 8 * cfg.RetryWait
	}
	if cfg.Timeout > 0 {
		client.HTTPClient.Timeout = cfg.Timeout
	}

	return &Store{
		cfg:     cfg,
		client:  client,
		limiter: rate.NewLimiter(rate.Limit(cfg.RatePerSec), cfg.Burst),
	}, nil
}

// page is the wire shape of one response.
type page struct {
	Records []struct {
		ID     string         `json:"id"`
		Fields map[string]any `json:"fields"`
	} `json:"records"`
	Offset string `json:"offset"`
}

// Query implements record.Store.
func (s *Store) Query(ctx context.Context, table record.Table, q record.Query) ([]record.Record, error) {
	var (
		out    []record.Record
		offset string
	)
	for {
		p, err := s.fetchPage(ctx, table, q, offset)
		if err != nil {
			return nil, err
		}
		for _, r := range p.Records {
			out = append(out, record.Record{ID: r.ID, Fields: r.Fields})
		}
		if q.MaxRecords > 0 && len(out) >= q.MaxRecords {
			return out[:q.MaxRecords], nil
		}
		if p.Offset == "" {
			break
		}
		offset = p.Offset
	}
	if out == nil {
		out = []record.Record{}
	}
	return out, nil
}

func (s *Store) fetchPage(ctx context.Context, table record.Table, q record.Query, offset string) (*page, error) {
	qerr := func(status int, err error) error {
		return &record.QueryError{Table: table, View: q.View, Status: status, Err: err}
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return nil, qerr(0, fmt.Errorf("rate limit wait: %w", err))
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, s.url(table, q, offset), nil)
	if err != nil {
		return nil, qerr(0, err)
	}
	req.Header.Set("Authorization", "Bearer "+s.cfg.APIKey)
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		metrics.StoreRequests.WithLabelValues(string(table), "error").Inc()
		return nil, qerr(0, err)
	}
	defer resp.Body.Close()
	metrics.StoreRequests.WithLabelValues(string(table), statusClass(resp.StatusCode)).Inc()

	switch {
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		return nil, &record.PermissionError{Table: table}
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, qerr(resp.StatusCode, fmt.Errorf("%s", strings.TrimSpace(string(body))))
	}

	var p page
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		return nil, qerr(resp.StatusCode, fmt.Errorf("decode: %w", err))
	}
	return &p, nil
}

// url encodes q for one page request.
func (s *Store) url(table record.Table, q record.Query, offset string) string {
	v := url.Values{}
	if q.View != "" {
		v.Set("view", q.View)
	}
	if q.Filter != nil {
		v.Set("filterByFormula", q.Filter.Formula())
	}
	for i, srt := range q.Sort {
		v.Set(fmt.Sprintf("sort[%d][field]", i), srt.Field)
		dir := "asc"
		if srt.Direction == record.Desc {
			dir = "desc"
		}
		v.Set(fmt.Sprintf("sort[%d][direction]", i), dir)
	}
	size := PageSize
	if q.MaxRecords > 0 {
		v.Set("maxRecords", strconv.Itoa(q.MaxRecords))
		size = min(size, q.MaxRecords)
	}
	v.Set("pageSize", strconv.Itoa(size))
	if offset != "" {
		v.Set("offset", offset)
	}
	return fmt.Sprintf("%s/v0/%s/%s?%s",
		s.cfg.BaseURL, url.PathEscape(s.cfg.BaseID), url.PathEscape(string(table)), v.Encode())
}

func statusClass(code int) string {
	return strconv.Itoa(code/100) + "xx"
}

// leveled adapts zap to retryablehttp.LeveledLogger.
type leveled struct{ s *zap.SugaredLogger }

func (l leveled) Error(msg string, kv ...any) { l.s.Errorw(msg, kv...) }
func (l leveled) Warn(msg string, kv ...any)  { l.s.Warnw(msg, kv...) }
func (l leveled) Info(msg string, kv ...any)  { l.s.Debugw(msg, kv...) }
func (l leveled) Debug(msg string, kv ...any) { l.s.Debugw(msg, kv...) }
