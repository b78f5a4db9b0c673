package wire

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"github.com/matthewbaird/ksqlplan/internal/analyzer"
	"github.com/matthewbaird/ksqlplan/internal/event"
	"github.com/matthewbaird/ksqlplan/internal/ksql"
	"github.com/matthewbaird/ksqlplan/internal/metastore"
	"github.com/matthewbaird/ksqlplan/internal/plan"
	"github.com/matthewbaird/ksqlplan/internal/planerr"
	"github.com/matthewbaird/ksqlplan/internal/planner"
	"github.com/matthewbaird/ksqlplan/internal/repl/autocomplete"
	"github.com/matthewbaird/ksqlplan/internal/repl/meta"
	"github.com/matthewbaird/ksqlplan/internal/repl/session"
)

// Handler manages WebSocket connections for the REPL.
type Handler struct {
	sessions     *session.Manager
	analyzer     *analyzer.Analyzer
	planner      *planner.LogicalPlanner
	recorder     *event.Recorder
	autocomplete *autocomplete.Engine
	meta         *meta.Handler
	logger       log.Logger
}

// NewHandler creates a WebSocket handler with all dependencies.
func NewHandler(
	sessions *session.Manager,
	catalog metastore.Reader,
	recorder *event.Recorder,
	logger log.Logger,
) *Handler {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	if recorder == nil {
		recorder = event.NewRecorder(nil)
	}
	return &Handler{
		sessions:     sessions,
		analyzer:     analyzer.New(catalog),
		planner:      planner.New(),
		recorder:     recorder,
		autocomplete: autocomplete.New(catalog),
		meta:         meta.New(catalog),
		logger:       log.With(logger, "component", "repl"),
	}
}

// ServeHTTP upgrades to WebSocket and runs the message loop. A client may
// resume a session by passing its ID in the "session" query parameter.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		level.Warn(h.logger).Log("msg", "websocket accept failed", "err", err)
		return
	}
	defer conn.CloseNow()

	sess := h.sessions.Get(r.URL.Query().Get("session"))
	if sess == nil {
		sess = h.sessions.Create()
	}
	ctx := r.Context()

	h.send(ctx, conn, ServerMessage{
		Type: "session",
		Data: SessionData{SessionID: sess.ID},
	})

	for {
		var msg ClientMessage
		err := wsjson.Read(ctx, conn, &msg)
		if err != nil {
			if status := websocket.CloseStatus(err); status != -1 {
				level.Debug(h.logger).Log("msg", "connection closed", "session", sess.ID, "status", status)
			}
			return
		}
		sess.Touch()

		switch msg.Type {
		case "execute":
			h.handleExecute(ctx, conn, sess, msg)
		case "autocomplete":
			h.handleAutocomplete(ctx, conn, msg)
		case "ping":
			h.send(ctx, conn, ServerMessage{Type: "pong", RequestID: msg.ID})
		default:
			h.sendError(ctx, conn, msg.ID, ErrorData{Code: "unknown_type", Message: fmt.Sprintf("unknown message type: %s", msg.Type)})
		}
	}
}

func (h *Handler) handleExecute(ctx context.Context, conn *websocket.Conn, sess *session.Session, msg ClientMessage) {
	start := time.Now()

	var data ExecuteData
	if err := json.Unmarshal(msg.Data, &data); err != nil {
		h.sendError(ctx, conn, msg.ID, ErrorData{Code: "invalid_data", Message: "invalid execute data"})
		return
	}
	if strings.TrimSpace(data.SQL) == "" {
		h.sendError(ctx, conn, msg.ID, ErrorData{Code: "empty_query", Message: "empty statement"})
		return
	}

	sess.AddHistory(data.SQL)

	stmts, err := ksql.ParseStatements(data.SQL)
	if err != nil {
		sess.CountResult(false)
		h.recorder.Record(ctx, sess.ID, data.SQL, start, nil, err)
		h.sendError(ctx, conn, msg.ID, errorData(err))
		return
	}
	if len(stmts) == 0 {
		h.sendError(ctx, conn, msg.ID, ErrorData{Code: "empty_query", Message: "no statements found"})
		return
	}

	for _, stmt := range stmts {
		switch s := stmt.(type) {
		case *ksql.MetaCmdStmt:
			result, err := h.meta.Execute(sess, s.Command, s.Args)
			if err != nil {
				h.sendError(ctx, conn, msg.ID, ErrorData{Code: "meta_error", Message: err.Error()})
				return
			}
			h.send(ctx, conn, ServerMessage{Type: "meta", RequestID: msg.ID, Data: result})

		case *ksql.SelectStmt:
			root, err := h.plan(s)
			sess.CountResult(err == nil)
			h.recorder.Record(ctx, sess.ID, data.SQL, start, root, err)
			if err != nil {
				h.sendError(ctx, conn, msg.ID, errorData(err))
				return
			}
			h.send(ctx, conn, ServerMessage{
				Type:      "plan",
				RequestID: msg.ID,
				Data:      PlanData{Explain: plan.Explain(root), Plan: plan.ToView(root)},
			})
		}
	}

	h.send(ctx, conn, ServerMessage{
		Type:      "done",
		RequestID: msg.ID,
		Data:      DoneData{Statements: len(stmts), Elapsed: time.Since(start).String()},
	})
}

func (h *Handler) plan(stmt *ksql.SelectStmt) (plan.Node, error) {
	a, err := h.analyzer.Analyze(stmt)
	if err != nil {
		return nil, err
	}
	return h.planner.Plan(a)
}

func (h *Handler) handleAutocomplete(ctx context.Context, conn *websocket.Conn, msg ClientMessage) {
	var data AutocompleteData
	if err := json.Unmarshal(msg.Data, &data); err != nil {
		h.sendError(ctx, conn, msg.ID, ErrorData{Code: "invalid_data", Message: "invalid autocomplete data"})
		return
	}

	items := h.autocomplete.Complete(data.SQL, data.Cursor)
	h.send(ctx, conn, ServerMessage{
		Type:      "completions",
		RequestID: msg.ID,
		Data:      CompletionsData{Items: items},
	})
}

// errorData maps parse and planning errors to their wire form.
func errorData(err error) ErrorData {
	var pe *ksql.ParseError
	if errors.As(err, &pe) {
		msg := pe.Message
		if pe.Suggestion != "" {
			msg += " (" + pe.Suggestion + ")"
		}
		return ErrorData{Code: "parse_error", Message: msg, Line: pe.Line, Col: pe.Col}
	}
	var plErr *planerr.Error
	if errors.As(err, &plErr) {
		return ErrorData{Code: plErr.Kind.String(), Message: plErr.Message, Subject: plErr.Subject}
	}
	return ErrorData{Code: "plan_error", Message: err.Error()}
}

func (h *Handler) send(ctx context.Context, conn *websocket.Conn, msg ServerMessage) {
	if err := wsjson.Write(ctx, conn, msg); err != nil {
		level.Warn(h.logger).Log("msg", "write failed", "type", msg.Type, "err", err)
	}
}

func (h *Handler) sendError(ctx context.Context, conn *websocket.Conn, requestID string, data ErrorData) {
	h.send(ctx, conn, ServerMessage{
		Type:      "error",
		RequestID: requestID,
		Data:      data,
	})
}
