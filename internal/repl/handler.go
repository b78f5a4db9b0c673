// Package repl provides the WebSocket-based REPL for planning statements
// interactively.
package repl

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-kit/log"

	"github.com/matthewbaird/ksqlplan/internal/event"
	"github.com/matthewbaird/ksqlplan/internal/metastore"
	"github.com/matthewbaird/ksqlplan/internal/repl/session"
	"github.com/matthewbaird/ksqlplan/internal/repl/wire"
)

// RegisterRoutes registers REPL HTTP and WebSocket routes on the given router.
func RegisterRoutes(r chi.Router, catalog metastore.Reader, sessions *session.Manager, recorder *event.Recorder, logger log.Logger) {
	wsHandler := wire.NewHandler(sessions, catalog, recorder, logger)

	r.Route("/api/repl", func(r chi.Router) {
		r.Get("/ws", wsHandler.ServeHTTP)

		// Session create endpoint (REST alternative to WebSocket)
		r.Post("/session", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusCreated, sessions.Create().Snapshot())
		})

		r.Get("/session/{id}", func(w http.ResponseWriter, r *http.Request) {
			sess := sessions.Get(chi.URLParam(r, "id"))
			if sess == nil {
				writeJSON(w, http.StatusNotFound, map[string]string{"error": "session not found", "code": "not_found"})
				return
			}
			writeJSON(w, http.StatusOK, sess.Snapshot())
		})

		r.Delete("/session/{id}", func(w http.ResponseWriter, r *http.Request) {
			sessions.Remove(chi.URLParam(r, "id"))
			w.WriteHeader(http.StatusNoContent)
		})
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
