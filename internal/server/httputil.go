package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"github.com/matthewbaird/ksqlplan/internal/ksql"
	"github.com/matthewbaird/ksqlplan/internal/planerr"
)

// writeJSON marshals v as JSON and writes it with the given status code.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		level.Warn(s.logger).Log("msg", "encoding response", "err", err)
	}
}

// writeError writes a structured JSON error response.
func (s *Server) writeError(w http.ResponseWriter, status int, code, message string) {
	s.writeJSON(w, status, errorResponse{Error: message, Code: code})
}

type errorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code"`
	Subject string `json:"subject,omitempty"`
	Line    int    `json:"line,omitempty"`
	Col     int    `json:"col,omitempty"`
}

// decodeJSON decodes the request body into v.
func decodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

// planErrorToHTTP maps parse errors to 400 and planning errors to 422,
// with the planner error kind as the code.
func (s *Server) planErrorToHTTP(w http.ResponseWriter, err error) {
	var pe *ksql.ParseError
	if errors.As(err, &pe) {
		msg := pe.Message
		if pe.Suggestion != "" {
			msg += " (" + pe.Suggestion + ")"
		}
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: msg, Code: "PARSE_ERROR", Line: pe.Line, Col: pe.Col})
		return
	}
	var plErr *planerr.Error
	if errors.As(err, &plErr) {
		s.writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: plErr.Message, Code: plErr.Kind.String(), Subject: plErr.Subject})
		return
	}
	level.Error(s.logger).Log("msg", "internal error", "err", err)
	s.writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
}

// requestLogger logs one line per request.
func requestLogger(logger log.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			level.Debug(logger).Log(
				"msg", "request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}
