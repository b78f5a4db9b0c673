// Package wire defines the WebSocket protocol for the REPL.
package wire

import (
	"encoding/json"

	"github.com/matthewbaird/ksqlplan/internal/plan"
	"github.com/matthewbaird/ksqlplan/internal/repl/autocomplete"
)

// ── Client → Server messages ────────────────────────────────────────────────

// ClientMessage is the envelope for all client-to-server WebSocket messages.
type ClientMessage struct {
	Type string          `json:"type"` // "execute", "autocomplete", "ping"
	ID   string          `json:"id"`   // Client-assigned request ID
	Data json.RawMessage `json:"data,omitempty"`
}

// ExecuteData is the payload for "execute" messages.
type ExecuteData struct {
	SQL string `json:"sql"`
}

// AutocompleteData is the payload for "autocomplete" messages.
type AutocompleteData struct {
	SQL    string `json:"sql"`
	Cursor int    `json:"cursor"`
}

// ── Server → Client messages ────────────────────────────────────────────────

// ServerMessage is the envelope for all server-to-client WebSocket messages.
type ServerMessage struct {
	Type      string `json:"type"`                 // "session", "plan", "meta", "done", "error", "completions", "pong"
	RequestID string `json:"request_id,omitempty"` // Echoes client ID
	Data      any    `json:"data,omitempty"`
}

// PlanData carries the plan of one statement.
type PlanData struct {
	Explain string    `json:"explain"`
	Plan    plan.View `json:"plan"`
}

// DoneData signals that every statement of a request was handled.
type DoneData struct {
	Statements int    `json:"statements"`
	Elapsed    string `json:"elapsed"`
}

// ErrorData carries an error. Code is the planner error kind, "parse_error"
// or a protocol error code.
type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Subject string `json:"subject,omitempty"`
	Line    int    `json:"line,omitempty"`
	Col     int    `json:"col,omitempty"`
}

// CompletionsData carries autocomplete suggestions.
type CompletionsData struct {
	Items []autocomplete.CompletionItem `json:"items"`
}

// SessionData carries session information.
type SessionData struct {
	SessionID string `json:"session_id"`
}
