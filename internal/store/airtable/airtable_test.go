package airtable

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yanizio/tenantcms/internal/record"
)

func newStore(t *testing.T, h http.HandlerFunc) *Store {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	s, err := New(Config{
		BaseURL:    srv.URL,
		BaseID:     "appTest",
		APIKey:     "key123",
		RatePerSec: 1000,
		Burst:      10,
		Retries:    2,
		RetryWait:  time.Millisecond,
	})
	require.NoError(t, err)
	return s
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func TestQuery_PaginatesAndEncodes(t *testing.T) {
	var calls atomic.Int32
	s := newStore(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "Bearer key123", r.Header.Get("Authorization"))
		assert.Equal(t, "/v0/appTest/Articles", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "T1 Articles", q.Get("view"))
		assert.Equal(t, "{Published}=TRUE()", q.Get("filterByFormula"))
		assert.Equal(t, "Publish Date", q.Get("sort[0][field]"))
		assert.Equal(t, "desc", q.Get("sort[0][direction]"))

		switch q.Get("offset") {
		case "":
			writeJSON(w, map[string]any{
				"records": []any{map[string]any{"id": "a1", "fields": map[string]any{"Slug": "one"}}},
				"offset":  "next",
			})
		case "next":
			writeJSON(w, map[string]any{
				"records": []any{map[string]any{"id": "a2", "fields": map[string]any{"Slug": "two"}}},
			})
		default:
			t.Errorf("unexpected offset %q", q.Get("offset"))
		}
	})

	got, err := s.Query(context.Background(), record.TableArticles, record.Query{
		View:   "T1 Articles",
		Filter: record.Eq{Field: record.FieldPublished, Value: true},
		Sort:   []record.Sort{{Field: "Publish Date", Direction: record.Desc}},
	})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "a1", got[0].ID)
	assert.Equal(t, "two", got[1].String("Slug"))
	assert.Equal(t, int32(2), calls.Load())
}

func TestQuery_MaxRecordsStopsPaging(t *testing.T) {
	var calls atomic.Int32
	s := newStore(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "2", r.URL.Query().Get("maxRecords"))
		assert.Equal(t, "2", r.URL.Query().Get("pageSize"))
		writeJSON(w, map[string]any{
			"records": []any{
				map[string]any{"id": "a1", "fields": map[string]any{}},
				map[string]any{"id": "a2", "fields": map[string]any{}},
			},
			"offset": "more",
		})
	})

	got, err := s.Query(context.Background(), record.TableArticles, record.Query{MaxRecords: 2})
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Equal(t, int32(1), calls.Load())
}

func TestQuery_PermissionDenied(t *testing.T) {
	s := newStore(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})
	_, err := s.Query(context.Background(), record.TableCategories, record.Query{})
	assert.True(t, record.IsPermission(err))
}

func TestQuery_UnprocessableIsQueryError(t *testing.T) {
	s := newStore(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"error":"INVALID_FILTER_BY_FORMULA"}`))
	})
	_, err := s.Query(context.Background(), record.TableArticles, record.Query{})
	var qe *record.QueryError
	require.ErrorAs(t, err, &qe)
	assert.Equal(t, http.StatusUnprocessableEntity, qe.Status)
	assert.Contains(t, qe.Error(), "INVALID_FILTER_BY_FORMULA")
}

func TestQuery_RetriesTransientFailures(t *testing.T) {
	var calls atomic.Int32
	s := newStore(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		writeJSON(w, map[string]any{"records": []any{}})
	})

	got, err := s.Query(context.Background(), record.TableArticles, record.Query{})
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
	assert.Equal(t, int32(3), calls.Load())
}

func TestQuery_GivesUpAfterRetries(t *testing.T) {
	s := newStore(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	_, err := s.Query(context.Background(), record.TableArticles, record.Query{})
	var qe *record.QueryError
	require.ErrorAs(t, err, &qe)
	assert.Equal(t, http.StatusServiceUnavailable, qe.Status)
}

func TestNew_RequiresCredentials(t *testing.T) {
	_, err := New(Config{BaseID: "app"})
	assert.Error(t, err)
}
