// Package plan defines the logical plan node hierarchy.
//
// A plan is a tree of immutable nodes. Every node exposes its output schema,
// its key field (the column the output stream is partitioned by, or nil)
// and its child nodes. Each constructor validates its inputs and computes
// the schema and key field once; nothing is recomputed or mutated later.
//
// The set of node types is closed: Node can only be implemented in this
// package, and consumers dispatch with exhaustive type switches.
package plan

import (
	"github.com/matthewbaird/ksqlplan/internal/schema"
)

// Kind identifies a node type.
type Kind int

const (
	KindSource Kind = iota + 1
	KindJoin
	KindFilter
	KindProject
	KindAggregate
	KindOutput
)

func (k Kind) String() string {
	switch k {
	case KindSource:
		return "SOURCE"
	case KindJoin:
		return "JOIN"
	case KindFilter:
		return "FILTER"
	case KindProject:
		return "PROJECT"
	case KindAggregate:
		return "AGGREGATE"
	case KindOutput:
		return "OUTPUT"
	default:
		return "UNKNOWN"
	}
}

// MarshalText encodes the kind name.
func (k Kind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// Node is a logical plan node: *Source, *Join, *Filter, *Project,
// *Aggregate or *Output.
type Node interface {
	Kind() Kind
	// Schema returns the node's output schema.
	Schema() schema.Schema
	// KeyField returns a copy of the key field, or nil if the output has no
	// known key.
	KeyField() *schema.Field
	// Sources returns the child nodes in order. The slice is a copy.
	Sources() []Node

	planNode()
}

// header holds the state shared by every node.
type header struct {
	schema schema.Schema
	key    *schema.Field
}

func (h *header) Schema() schema.Schema { return h.schema }

func (h *header) KeyField() *schema.Field {
	if h.key == nil {
		return nil
	}
	k := *h.key
	return &k
}

func (h *header) planNode() {}

func keyOf(f schema.Field) *schema.Field { return &f }

// Walk visits n and its descendants depth-first, parents before children.
// Returning false from fn stops the descent below that node.
func Walk(n Node, fn func(Node) bool) {
	if n == nil || !fn(n) {
		return
	}
	for _, c := range n.Sources() {
		Walk(c, fn)
	}
}

// Leaves returns the Source nodes of the tree in left-to-right order.
func Leaves(n Node) []*Source {
	var out []*Source
	Walk(n, func(x Node) bool {
		if s, ok := x.(*Source); ok {
			out = append(out, s)
		}
		return true
	})
	return out
}
