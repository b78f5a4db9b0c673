package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/matthewbaird/ksqlplan/internal/event"
	"github.com/matthewbaird/ksqlplan/internal/metastore"
	"github.com/matthewbaird/ksqlplan/internal/plan"
	"github.com/matthewbaird/ksqlplan/internal/planner"
)

type explainRequest struct {
	SQL string `json:"sql"`
}

type explainResponse struct {
	Explain string    `json:"explain"`
	Plan    plan.View `json:"plan"`
}

// explain plans one SELECT statement and returns the plan as text and as
// a tree.
func (s *Server) explain(w http.ResponseWriter, r *http.Request) {
	var req explainRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "INVALID_BODY", "invalid request body: "+err.Error())
		return
	}
	if strings.TrimSpace(req.SQL) == "" {
		s.writeError(w, http.StatusBadRequest, "EMPTY_STATEMENT", "sql is required")
		return
	}

	start := time.Now()
	root, err := planner.PlanStatement(s.cfg.Catalog, req.SQL)
	s.recorder.Record(r.Context(), "", req.SQL, start, root, err)
	if err != nil {
		s.planErrorToHTTP(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, explainResponse{Explain: plan.Explain(root), Plan: plan.ToView(root)})
}

func (s *Server) listStreams(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{"streams": s.cfg.Catalog.AllStreams()})
}

func (s *Server) getStream(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	st := s.cfg.Catalog.Stream(name)
	if st == nil {
		s.writeError(w, http.StatusNotFound, "NOT_FOUND", "stream '"+name+"' does not exist")
		return
	}
	s.writeJSON(w, http.StatusOK, st)
}

// putStream registers or replaces a stream. The path names the stream.
func (s *Server) putStream(w http.ResponseWriter, r *http.Request) {
	var st metastore.Stream
	if err := decodeJSON(r, &st); err != nil {
		s.writeError(w, http.StatusBadRequest, "INVALID_BODY", "invalid stream: "+err.Error())
		return
	}
	st.Name = chi.URLParam(r, "name")
	if err := st.Validate(); err != nil {
		s.writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}
	if err := s.cfg.Catalog.Register(&st); err != nil {
		s.writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}
	if s.cfg.Store != nil {
		if err := s.cfg.Store.Save(r.Context(), &st); err != nil {
			s.planErrorToHTTP(w, err)
			return
		}
	}
	s.catalogChanged(r, "api")
	s.writeJSON(w, http.StatusOK, &st)
}

func (s *Server) deleteStream(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if !s.cfg.Catalog.Remove(name) {
		s.writeError(w, http.StatusNotFound, "NOT_FOUND", "stream '"+name+"' does not exist")
		return
	}
	if s.cfg.Store != nil {
		if _, err := s.cfg.Store.Delete(r.Context(), name); err != nil {
			s.planErrorToHTTP(w, err)
			return
		}
	}
	s.catalogChanged(r, "api")
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) catalogChanged(r *http.Request, source string) {
	s.bus.Publish(r.Context(), event.NewCatalogChanged(event.CatalogChangedPayload{
		Source:  source,
		Streams: s.cfg.Catalog.StreamNames(),
	}))
}
