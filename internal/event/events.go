// Package event defines the events emitted while statements are planned.
// Events are published to the in-process event bus for downstream consumers
// such as logging and metrics.
package event

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/matthewbaird/ksqlplan/internal/planerr"
)

// Event types.
const (
	StatementPlanned  = "statement_planned"
	StatementRejected = "statement_rejected"
	CatalogChanged    = "catalog_changed"
)

// PlanEvent carries the canonical shape of every planner event.
type PlanEvent struct {
	ID         string
	EventType  string
	OccurredAt time.Time
	SessionID  string // empty outside the REPL
	Statement  string
	Summary    string
	ErrorKind  string // planerr kind name for rejected statements
	Duration   time.Duration
	Payload    json.RawMessage
}

func newID() string { return uuid.New().String() }

func mustJSON(v any) json.RawMessage {
	b, _ := json.Marshal(v)
	return b
}

// StatementPlannedPayload describes a successful plan.
type StatementPlannedPayload struct {
	Sink    string   `json:"sink"`
	Sources []string `json:"sources"`
	Nodes   int      `json:"nodes"`
	Columns []string `json:"columns"`
}

func NewStatementPlanned(sessionID, stmt string, d time.Duration, p StatementPlannedPayload) PlanEvent {
	return PlanEvent{
		ID:         newID(),
		EventType:  StatementPlanned,
		OccurredAt: time.Now(),
		SessionID:  sessionID,
		Statement:  stmt,
		Summary:    fmt.Sprintf("planned %d nodes into %s", p.Nodes, p.Sink),
		Duration:   d,
		Payload:    mustJSON(p),
	}
}

// StatementRejectedPayload carries the error of a failed statement.
type StatementRejectedPayload struct {
	Error   string `json:"error"`
	Subject string `json:"subject,omitempty"`
}

// NewStatementRejected records err. Errors that are not planner errors,
// parse errors included, are reported with kind "ParseError".
func NewStatementRejected(sessionID, stmt string, d time.Duration, err error) PlanEvent {
	kind := "ParseError"
	p := StatementRejectedPayload{Error: err.Error()}
	var pe *planerr.Error
	if errors.As(err, &pe) {
		kind = pe.Kind.String()
		p.Subject = pe.Subject
	}
	return PlanEvent{
		ID:         newID(),
		EventType:  StatementRejected,
		OccurredAt: time.Now(),
		SessionID:  sessionID,
		Statement:  stmt,
		Summary:    fmt.Sprintf("rejected with %s", kind),
		ErrorKind:  kind,
		Duration:   d,
		Payload:    mustJSON(p),
	}
}

// CatalogChangedPayload lists the streams known after a catalog change.
type CatalogChangedPayload struct {
	Source  string   `json:"source"`
	Streams []string `json:"streams"`
}

func NewCatalogChanged(p CatalogChangedPayload) PlanEvent {
	return PlanEvent{
		ID:         newID(),
		EventType:  CatalogChanged,
		OccurredAt: time.Now(),
		Summary:    fmt.Sprintf("catalog loaded from %s with %d streams", p.Source, len(p.Streams)),
		Payload:    mustJSON(p),
	}
}
