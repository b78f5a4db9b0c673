package plan

import (
	"strings"

	"github.com/matthewbaird/ksqlplan/internal/expr"
	"github.com/matthewbaird/ksqlplan/internal/planerr"
	"github.com/matthewbaird/ksqlplan/internal/schema"
)

// Project computes one output column per select item.
//
// The input key carries forward when some select item is a bare reference
// to the key column: the key becomes that item's output field (under its
// alias, if any). Otherwise the key was projected away and the output has
// none.
type Project struct {
	header
	child Node
	items []expr.SelectItem
}

// NewProject wraps child with the select list items. Wildcards are expanded
// against the child schema.
func NewProject(child Node, items []expr.SelectItem) (*Project, error) {
	expanded, err := ExpandWildcards(items, child.Schema())
	if err != nil {
		return nil, err
	}
	for _, item := range expanded {
		if expr.ContainsAggregate(item.Expr) {
			return nil, planerr.Newf(planerr.UngroupedColumn, item.Expr.String(),
				"aggregate %s requires a GROUP BY clause", item.Expr)
		}
	}

	s, err := DeriveSchema(expanded, child.Schema())
	if err != nil {
		return nil, err
	}

	n := &Project{
		header: header{schema: s},
		child:  child,
		items:  expanded,
	}
	n.key = carryKey(child, expanded, s)
	return n, nil
}

// carryKey returns the output field of the first item that is a bare
// reference to child's key column, or nil.
func carryKey(child Node, items []expr.SelectItem, out schema.Schema) *schema.Field {
	k := child.KeyField()
	if k == nil {
		return nil
	}
	for i, item := range items {
		col, ok := item.Expr.(*expr.Column)
		if !ok {
			continue
		}
		f, _, err := child.Schema().Lookup(col.Qualifier, col.Name)
		if err == nil && f.SameColumn(*k) {
			return keyOf(out.Field(i))
		}
	}
	return nil
}

func (n *Project) Kind() Kind      { return KindProject }
func (n *Project) Sources() []Node { return []Node{n.child} }

// Items returns the select list after wildcard expansion.
func (n *Project) Items() []expr.SelectItem {
	out := make([]expr.SelectItem, len(n.items))
	copy(out, n.items)
	return out
}

func equalFold(a, b string) bool { return strings.EqualFold(a, b) }
