package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matthewbaird/ksqlplan/internal/metastore"
)

func newTestServer(t *testing.T, store *metastore.SQLiteStore) (*Server, *httptest.Server) {
	t.Helper()
	s := New(Config{Catalog: metastore.Sample(), Store: store, Registry: prometheus.NewRegistry()})
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	s.Start(ctx)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return s, ts
}

func do(t *testing.T, method, url, body string) (*http.Response, string) {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(b)
}

func TestHealthz(t *testing.T) {
	_, ts := newTestServer(t, nil)
	resp, body := do(t, http.MethodGet, ts.URL+"/healthz", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"ok","streams":2}`, body)
}

func TestExplain(t *testing.T) {
	_, ts := newTestServer(t, nil)
	resp, body := do(t, http.MethodPost, ts.URL+"/v1/explain",
		`{"sql":"SELECT t1.col1, t2.col1, col4, t2.col2 INTO out FROM s1 t1 LEFT JOIN s2 t2 ON t1.col1 = t2.col1 WHERE t1.col1 > 10 AND t2.col4 = 10.8"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var out struct {
		Explain string `json:"explain"`
		Plan    struct {
			Kind     string `json:"kind"`
			KeyField string `json:"key_field"`
			Sources  []struct {
				Kind    string `json:"kind"`
				Sources []struct {
					Kind      string `json:"kind"`
					Predicate string `json:"predicate"`
				} `json:"sources"`
			} `json:"sources"`
		} `json:"plan"`
	}
	require.NoError(t, json.Unmarshal([]byte(body), &out))
	assert.Equal(t, "OUTPUT", out.Plan.Kind)
	assert.Equal(t, "t1.col1", out.Plan.KeyField)
	require.Len(t, out.Plan.Sources, 1)
	assert.Equal(t, "PROJECT", out.Plan.Sources[0].Kind)
	require.Len(t, out.Plan.Sources[0].Sources, 1)
	assert.Equal(t, "FILTER", out.Plan.Sources[0].Sources[0].Kind)
	assert.Equal(t, "((T1.COL1 > 10) AND (T2.COL4 = 10.8))", out.Plan.Sources[0].Sources[0].Predicate)
	assert.Contains(t, out.Explain, "JOIN LEFT_OUTER ON (T1.COL1 = T2.COL1)")
}

func TestExplain_Errors(t *testing.T) {
	_, ts := newTestServer(t, nil)
	tests := []struct {
		name   string
		body   string
		status int
		code   string
	}{
		{"bad json", `{`, http.StatusBadRequest, "INVALID_BODY"},
		{"empty", `{"sql":" "}`, http.StatusBadRequest, "EMPTY_STATEMENT"},
		{"syntax", `{"sql":"SELECT FROM"}`, http.StatusBadRequest, "PARSE_ERROR"},
		{"ambiguous", `{"sql":"SELECT col1 INTO out FROM s1 t1 JOIN s2 t2 ON t1.col1 = t2.col1"}`, http.StatusUnprocessableEntity, "AmbiguousColumnError"},
		{"no sink", `{"sql":"SELECT col0 FROM s1"}`, http.StatusUnprocessableEntity, "MissingSinkError"},
		{"unknown stream", `{"sql":"SELECT col0 INTO out FROM s9"}`, http.StatusUnprocessableEntity, "UnknownSourceError"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := do(t, http.MethodPost, ts.URL+"/v1/explain", tt.body)
			assert.Equal(t, tt.status, resp.StatusCode, body)
			var e errorResponse
			require.NoError(t, json.Unmarshal([]byte(body), &e))
			assert.Equal(t, tt.code, e.Code)
			assert.NotEmpty(t, e.Error)
		})
	}
}

func TestStreams(t *testing.T) {
	_, ts := newTestServer(t, nil)

	resp, body := do(t, http.MethodGet, ts.URL+"/v1/streams", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var list struct {
		Streams []metastore.Stream `json:"streams"`
	}
	require.NoError(t, json.Unmarshal([]byte(body), &list))
	require.Len(t, list.Streams, 2)
	assert.Equal(t, "s1", list.Streams[0].Name)
	assert.Equal(t, "test2", list.Streams[1].Topic)

	resp, body = do(t, http.MethodGet, ts.URL+"/v1/streams/S2", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `"key":"col0"`)

	resp, _ = do(t, http.MethodGet, ts.URL+"/v1/streams/nope", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestPutAndDeleteStream(t *testing.T) {
	ctx := context.Background()
	store, err := metastore.OpenSQLite(ctx, "file::memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	require.NoError(t, store.Migrate(ctx))

	s, ts := newTestServer(t, store)

	resp, body := do(t, http.MethodPut, ts.URL+"/v1/streams/orders",
		`{"columns":[{"name":"id","type":"BIGINT"},{"name":"amount","type":"DOUBLE"}],"key":"id","format":"avro"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	assert.Contains(t, body, `"topic":"orders"`)
	assert.Contains(t, body, `"format":"AVRO"`)

	require.NotNil(t, s.cfg.Catalog.Stream("orders"))
	saved, err := store.Load(ctx)
	require.NoError(t, err)
	require.Len(t, saved, 1)
	assert.Equal(t, "orders", saved[0].Name)

	resp, body = do(t, http.MethodPost, ts.URL+"/v1/explain", `{"sql":"SELECT id, amount * 2 AS doubled INTO big FROM orders WHERE amount > 10"}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode, body)

	resp, body = do(t, http.MethodPut, ts.URL+"/v1/streams/bad", `{"columns":[]}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body, "VALIDATION_ERROR")

	resp, _ = do(t, http.MethodDelete, ts.URL+"/v1/streams/orders", "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Nil(t, s.cfg.Catalog.Stream("orders"))
	saved, err = store.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, saved)

	resp, _ = do(t, http.MethodDelete, ts.URL+"/v1/streams/orders", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestMetrics(t *testing.T) {
	s, ts := newTestServer(t, nil)

	do(t, http.MethodPost, ts.URL+"/v1/explain", `{"sql":"SELECT col0 INTO out FROM s1"}`)
	do(t, http.MethodPost, ts.URL+"/v1/explain", `{"sql":"SELECT col0 FROM s1"}`)
	s.bus.Stop()

	resp, body := do(t, http.MethodGet, ts.URL+"/metrics", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `ksqlplan_statements_planned_total{result="ok"} 1`)
	assert.Contains(t, body, `ksqlplan_statements_planned_total{result="error"} 1`)
	assert.Contains(t, body, `ksqlplan_plan_errors_total{kind="MissingSinkError"} 1`)
}

func TestRESTSessionRoute(t *testing.T) {
	_, ts := newTestServer(t, nil)
	resp, body := do(t, http.MethodPost, ts.URL+"/api/repl/session", "")
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Contains(t, body, `"id"`)
}
