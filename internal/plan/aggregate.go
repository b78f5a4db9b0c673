package plan

import (
	"strconv"

	"github.com/matthewbaird/ksqlplan/internal/expr"
	"github.com/matthewbaird/ksqlplan/internal/planerr"
	"github.com/matthewbaird/ksqlplan/internal/schema"
)

// Aggregate groups its input and computes aggregate functions per group.
//
// The output schema is the group-by columns in declared order followed by
// one column per select item that calls an aggregate function. The key
// field is the first group-by expression when it is a bare reference to the
// input key column.
type Aggregate struct {
	header
	child      Node
	groupBy    []expr.Expr
	aggregates []expr.SelectItem
}

// NewAggregate wraps child with a grouping over groupBy. Every select item
// must either call an aggregate function or be one of the group-by
// expressions; items of the second kind name group-by columns.
func NewAggregate(child Node, groupBy []expr.Expr, items []expr.SelectItem) (*Aggregate, error) {
	in := child.Schema()

	for _, g := range groupBy {
		if expr.ContainsAggregate(g) {
			return nil, planerr.Newf(planerr.TypeMismatch, g.String(),
				"aggregate functions are not allowed in GROUP BY: %s", g)
		}
		if _, err := expr.TypeOf(g, in); err != nil {
			return nil, err
		}
	}

	fields := make([]schema.Field, 0, len(groupBy)+len(items))
	for i, g := range groupBy {
		f, err := groupField(i, g, items, in)
		if err != nil {
			return nil, err
		}
		fields = append(fields, f)
	}

	var aggregates []expr.SelectItem
	for i, item := range items {
		if item.All {
			return nil, planerr.Newf(planerr.UngroupedColumn, item.String(),
				"%s cannot be selected in a grouped query", item)
		}
		if !expr.ContainsAggregate(item.Expr) {
			if !isGroupExpr(item.Expr, groupBy) {
				return nil, ungrouped(item.Expr)
			}
			continue
		}
		if err := checkGrouped(item.Expr, groupBy); err != nil {
			return nil, err
		}
		t, err := expr.TypeOf(item.Expr, in)
		if err != nil {
			return nil, err
		}
		name := item.Alias
		if name == "" {
			name = SynthesizedName(i)
		}
		fields = append(fields, schema.Field{Name: name, Type: t})
		aggregates = append(aggregates, item)
	}

	s, err := schema.New(fields...)
	if err != nil {
		return nil, err
	}

	n := &Aggregate{
		header:     header{schema: s},
		child:      child,
		groupBy:    append([]expr.Expr(nil), groupBy...),
		aggregates: aggregates,
	}
	if k := child.KeyField(); k != nil && len(groupBy) > 0 {
		if col, ok := groupBy[0].(*expr.Column); ok {
			if f, _, err := in.Lookup(col.Qualifier, col.Name); err == nil && f.SameColumn(*k) {
				n.key = keyOf(s.Field(0))
			}
		}
	}
	return n, nil
}

// groupField names the output column of group-by expression i: an alias
// given to it in the select list wins, then the input column for a bare
// reference, then a generated name.
func groupField(i int, g expr.Expr, items []expr.SelectItem, in schema.Schema) (schema.Field, error) {
	t, err := expr.TypeOf(g, in)
	if err != nil {
		return schema.Field{}, err
	}
	for _, item := range items {
		if !item.All && item.Alias != "" && expr.Equal(item.Expr, g) {
			return schema.Field{Name: item.Alias, Type: t}, nil
		}
	}
	if col, ok := g.(*expr.Column); ok {
		f, _, err := in.Lookup(col.Qualifier, col.Name)
		return f, err
	}
	return schema.Field{Name: "KSQL_GROUP_" + strconv.Itoa(i), Type: t}, nil
}

func isGroupExpr(e expr.Expr, groupBy []expr.Expr) bool {
	for _, g := range groupBy {
		if expr.Equal(e, g) {
			return true
		}
	}
	return false
}

// checkGrouped verifies that every column used outside an aggregate call
// is covered by a group-by expression.
func checkGrouped(e expr.Expr, groupBy []expr.Expr) error {
	var err error
	expr.Walk(e, func(n expr.Expr) bool {
		if err != nil || isGroupExpr(n, groupBy) {
			return false
		}
		switch x := n.(type) {
		case *expr.Call:
			if expr.IsAggregate(x.Name) {
				return false
			}
		case *expr.Column:
			err = ungrouped(x)
			return false
		}
		return true
	})
	return err
}

func ungrouped(e expr.Expr) error {
	return planerr.Newf(planerr.UngroupedColumn, e.String(),
		"%s must appear in GROUP BY or be used in an aggregate function", e)
}

func (n *Aggregate) Kind() Kind      { return KindAggregate }
func (n *Aggregate) Sources() []Node { return []Node{n.child} }

// GroupBy returns the grouping expressions.
func (n *Aggregate) GroupBy() []expr.Expr {
	return append([]expr.Expr(nil), n.groupBy...)
}

// Aggregates returns the select items that compute aggregate columns, in
// output order.
func (n *Aggregate) Aggregates() []expr.SelectItem {
	return append([]expr.SelectItem(nil), n.aggregates...)
}
