package plan

import (
	"github.com/matthewbaird/ksqlplan/internal/expr"
)

// Filter passes through the rows of its input that satisfy a BOOLEAN
// predicate. Schema and key field are the input's.
type Filter struct {
	header
	child     Node
	predicate expr.Expr
}

// NewFilter wraps child with predicate, which must be a BOOLEAN expression
// over the child schema.
func NewFilter(child Node, predicate expr.Expr) (*Filter, error) {
	if err := expr.CheckPredicate(predicate, child.Schema()); err != nil {
		return nil, err
	}
	return &Filter{
		header:    header{schema: child.Schema(), key: child.KeyField()},
		child:     child,
		predicate: predicate,
	}, nil
}

func (n *Filter) Kind() Kind      { return KindFilter }
func (n *Filter) Sources() []Node { return []Node{n.child} }

// Predicate returns the filter condition. Its String form is the canonical
// predicate text.
func (n *Filter) Predicate() expr.Expr { return n.predicate }
