// Package meta handles REPL meta-commands (:help, :clear, :env, :history,
// :streams, :describe).
package meta

import (
	"fmt"
	"strings"

	"github.com/matthewbaird/ksqlplan/internal/expr"
	"github.com/matthewbaird/ksqlplan/internal/ksql"
	"github.com/matthewbaird/ksqlplan/internal/metastore"
	"github.com/matthewbaird/ksqlplan/internal/repl/session"
)

// Handler dispatches meta-commands.
type Handler struct {
	catalog metastore.Reader
}

// New creates a meta-command handler.
func New(catalog metastore.Reader) *Handler {
	return &Handler{catalog: catalog}
}

// Result is the output of a meta-command execution.
type Result struct {
	Output string `json:"output"`
	Clear  bool   `json:"clear,omitempty"` // Signal frontend to clear screen
}

// Execute runs a meta-command and returns the result.
func (h *Handler) Execute(sess *session.Session, command string, args []string) (*Result, error) {
	switch strings.ToLower(command) {
	case "help":
		return h.help(args)
	case "clear":
		return &Result{Clear: true}, nil
	case "env":
		return h.env(sess)
	case "history":
		return h.history(sess, args)
	case "streams":
		return h.streams()
	case "describe":
		return h.describe(args)
	default:
		return nil, fmt.Errorf("unknown meta-command ':%s'. Type :help for available commands", command)
	}
}

func (h *Handler) help(args []string) (*Result, error) {
	if len(args) > 0 {
		return h.helpTopic(args[0])
	}

	help := `Streaming SQL planner

Statements:
  SELECT <items> INTO <sink> FROM <stream> [[AS] <alias>]
    [[INNER | LEFT | RIGHT | FULL [OUTER]] JOIN <stream> [[AS] <alias>] ON <a> = <b>]...
    [WHERE <predicate>]
    [GROUP BY <expr>, ...]

Each statement is planned and its logical plan printed, root first.

Operators: =, <>, !=, >, <, >=, <=, +, -, *, /, %, LIKE
Logic: AND, OR, NOT

Meta-commands:
  :help [topic]       Show help (topics: select, join, where, group, functions)
  :clear              Clear the screen
  :env                Show session info
  :history [clear]    Show or clear statement history
  :streams            List registered streams
  :describe <stream>  Show a stream's columns

Examples:
  SELECT col0, col2, col3 INTO out FROM s1 WHERE col0 > 100;
  SELECT t1.col1, t2.col4 INTO out FROM s1 t1 LEFT JOIN s2 t2 ON t1.col1 = t2.col1;
  SELECT col1, COUNT(*) INTO counts FROM s1 GROUP BY col1;`

	return &Result{Output: help}, nil
}

func (h *Handler) helpTopic(topic string) (*Result, error) {
	switch strings.ToLower(topic) {
	case "select":
		return &Result{Output: "SELECT <expr> [AS <alias>], ... | * | <alias>.*\n\nUnaliased computed items are named KSQL_COL_<position>."}, nil
	case "join":
		return &Result{Output: "[INNER | LEFT [OUTER] | RIGHT [OUTER] | FULL [OUTER]] JOIN <stream> [<alias>] ON <left column> = <right column>\n\nThe condition must compare one column of each side. INNER and LEFT joins are keyed by the left join column."}, nil
	case "where":
		return &Result{Output: "WHERE <predicate>\n\nThe predicate must be boolean. LIKE uses SQL wildcards: % = any characters, _ = single character."}, nil
	case "group":
		return &Result{Output: "GROUP BY <expr>, ...\n\nEvery selected column must be grouped or used inside an aggregate function."}, nil
	case "functions":
		var b strings.Builder
		for _, name := range expr.FunctionNames() {
			kind := "scalar"
			if expr.IsAggregate(name) {
				kind = "aggregate"
			}
			fmt.Fprintf(&b, "  %-18s %s\n", name, kind)
		}
		return &Result{Output: "Functions:\n" + b.String()}, nil
	default:
		return &Result{Output: fmt.Sprintf("No help available for '%s'", topic)}, nil
	}
}

func (h *Handler) env(sess *session.Session) (*Result, error) {
	snap := sess.Snapshot()
	out := fmt.Sprintf("Session: %s\nCreated: %s\nLast active: %s\nHistory entries: %d\nPlanned: %d\nRejected: %d\nStreams: %d",
		snap.ID,
		snap.CreatedAt.Format("2006-01-02 15:04:05"),
		snap.LastActiveAt.Format("2006-01-02 15:04:05"),
		len(snap.History), snap.Planned, snap.Rejected,
		len(h.catalog.StreamNames()))
	return &Result{Output: out}, nil
}

func (h *Handler) history(sess *session.Session, args []string) (*Result, error) {
	if len(args) > 0 && strings.EqualFold(args[0], "clear") {
		sess.ClearHistory()
		return &Result{Output: "(history cleared)"}, nil
	}
	entries := sess.History()
	if len(entries) == 0 {
		return &Result{Output: "(no history)"}, nil
	}

	var b strings.Builder
	for i, entry := range entries {
		fmt.Fprintf(&b, "%3d  %s\n", i+1, entry)
	}
	return &Result{Output: b.String()}, nil
}

func (h *Handler) streams() (*Result, error) {
	names := h.catalog.StreamNames()
	if len(names) == 0 {
		return &Result{Output: "(no streams)"}, nil
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Streams (%d):\n", len(names))
	for _, name := range names {
		s := h.catalog.Stream(name)
		if s == nil {
			continue
		}
		fmt.Fprintf(&b, "  %-20s topic=%s format=%s\n", s.Name, s.Topic, s.Format)
	}
	return &Result{Output: b.String()}, nil
}

func (h *Handler) describe(args []string) (*Result, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("usage: :describe <stream>")
	}
	s := h.catalog.Stream(args[0])
	if s == nil {
		msg := fmt.Sprintf("unknown stream '%s'", args[0])
		if hint := ksql.SuggestFrom(strings.ToLower(args[0]), h.catalog.StreamNames(), 2); hint != "" {
			msg += " (" + hint + ")"
		}
		return nil, fmt.Errorf("%s", msg)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Stream: %s\nTopic: %s\nFormat: %s\n", s.Name, s.Topic, s.Format)
	if s.Key != "" {
		fmt.Fprintf(&b, "Key: %s\n", s.Key)
	}
	fmt.Fprintf(&b, "\nColumns:\n")
	for _, c := range s.Columns {
		key := ""
		if strings.EqualFold(c.Name, s.Key) {
			key = " (key)"
		}
		fmt.Fprintf(&b, "  %-30s %s%s\n", c.Name, c.Type, key)
	}
	return &Result{Output: b.String()}, nil
}
