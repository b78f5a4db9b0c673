package repl

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matthewbaird/ksqlplan/internal/metastore"
	"github.com/matthewbaird/ksqlplan/internal/repl/session"
)

func newRouter() (chi.Router, *session.Manager) {
	r := chi.NewRouter()
	sessions := session.NewManager(time.Hour, time.Hour)
	RegisterRoutes(r, metastore.Sample(), sessions, nil, nil)
	return r, sessions
}

func TestSessionRoutes(t *testing.T) {
	r, sessions := newRouter()

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/repl/session", nil))
	require.Equal(t, http.StatusCreated, rec.Code)
	var snap session.Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	require.NotNil(t, sessions.Get(snap.ID))
	assert.Equal(t, []string{}, snap.History)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/repl/session/"+snap.ID, nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), snap.ID)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/repl/session/"+snap.ID, nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Nil(t, sessions.Get(snap.ID))

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/repl/session/"+snap.ID, nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"session not found","code":"not_found"}`, rec.Body.String())
}

func TestWebSocketRouteRejectsPlainHTTP(t *testing.T) {
	r, _ := newRouter()
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/repl/ws", nil))
	assert.Equal(t, http.StatusUpgradeRequired, rec.Code)
}
