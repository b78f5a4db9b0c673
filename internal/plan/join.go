package plan

import (
	"errors"

	"github.com/matthewbaird/ksqlplan/internal/analyzer"
	"github.com/matthewbaird/ksqlplan/internal/expr"
	"github.com/matthewbaird/ksqlplan/internal/planerr"
	"github.com/matthewbaird/ksqlplan/internal/schema"
)

// JoinType is the join variant.
type JoinType = analyzer.JoinType

// Join combines two inputs on a single-column equality. The output schema
// is the left schema followed by the right schema.
//
// For INNER and LEFT_OUTER joins the output is keyed by the left join
// column. When an input is not already keyed by its join column it has to
// be re-keyed first, which Repartition reports. RIGHT_OUTER and FULL_OUTER
// joins may emit rows with no left-side value, so their key is unknown.
type Join struct {
	header
	joinType    JoinType
	left, right Node
	leftKey     *expr.Column
	rightKey    *expr.Column
	repartition bool
}

// NewJoin joins left and right on leftKey = rightKey. The condition sides
// may be given in either order; they are matched to the input whose schema
// resolves them.
func NewJoin(jt JoinType, left, right Node, leftKey, rightKey expr.Expr) (*Join, error) {
	lc, lok := leftKey.(*expr.Column)
	rc, rok := rightKey.(*expr.Column)
	if !lok || !rok {
		return nil, planerr.Newf(planerr.UnsupportedJoinCondition, conditionText(leftKey, rightKey),
			"join condition %s must compare two column references", conditionText(leftKey, rightKey))
	}

	lf, rf, err := resolveJoinColumns(lc, rc, left.Schema(), right.Schema())
	if errors.Is(err, errSwapped) {
		lc, rc = rc, lc
		lf, rf, err = resolveJoinColumns(lc, rc, left.Schema(), right.Schema())
	}
	if err != nil {
		return nil, err
	}
	if !schema.Compatible(lf.Type, rf.Type) {
		return nil, planerr.Newf(planerr.TypeMismatch, conditionText(lc, rc),
			"cannot join %s (%s) with %s (%s)", lc, lf.Type, rc, rf.Type)
	}

	s, err := schema.Concat(left.Schema(), right.Schema())
	if err != nil {
		return nil, err
	}

	n := &Join{
		header:   header{schema: s},
		joinType: jt,
		left:     left,
		right:    right,
		leftKey:  expr.NewColumn(lf.Qualifier, lf.Name),
		rightKey: expr.NewColumn(rf.Qualifier, rf.Name),
	}
	n.repartition = !keyedBy(left, lf) || !keyedBy(right, rf)
	switch jt {
	case analyzer.JoinInner, analyzer.JoinLeft:
		n.key = keyOf(lf)
	}
	return n, nil
}

func keyedBy(n Node, f schema.Field) bool {
	k := n.KeyField()
	return k != nil && k.SameColumn(f)
}

var errSwapped = errors.New("join condition sides are swapped")

// resolveJoinColumns resolves lc against the left schema and rc against the
// right one. It returns errSwapped when the reverse assignment resolves.
func resolveJoinColumns(lc, rc *expr.Column, left, right schema.Schema) (schema.Field, schema.Field, error) {
	lf, _, lerr := left.Lookup(lc.Qualifier, lc.Name)
	rf, _, rerr := right.Lookup(rc.Qualifier, rc.Name)
	if lerr == nil && rerr == nil {
		return lf, rf, nil
	}
	for _, err := range []error{lerr, rerr} {
		if errors.Is(err, planerr.ErrAmbiguousColumn) {
			return schema.Field{}, schema.Field{}, err
		}
	}
	if _, _, err := left.Lookup(rc.Qualifier, rc.Name); err == nil {
		if _, _, err := right.Lookup(lc.Qualifier, lc.Name); err == nil {
			return schema.Field{}, schema.Field{}, errSwapped
		}
	}
	return schema.Field{}, schema.Field{}, planerr.Newf(planerr.UnsupportedJoinCondition, conditionText(lc, rc),
		"join condition %s must reference one column from each side", conditionText(lc, rc))
}

func conditionText(l, r expr.Expr) string {
	return expr.Eq(l, r).String()
}

func (n *Join) Kind() Kind      { return KindJoin }
func (n *Join) Sources() []Node { return []Node{n.left, n.right} }

// Type returns the join variant.
func (n *Join) Type() JoinType { return n.joinType }

// Left returns the left input.
func (n *Join) Left() Node { return n.left }

// Right returns the right input.
func (n *Join) Right() Node { return n.right }

// LeftKey returns the left join column, qualified as in the left schema.
func (n *Join) LeftKey() *expr.Column { return n.leftKey }

// RightKey returns the right join column, qualified as in the right schema.
func (n *Join) RightKey() *expr.Column { return n.rightKey }

// Condition returns the normalized join condition.
func (n *Join) Condition() expr.Expr { return expr.Eq(n.leftKey, n.rightKey) }

// Repartition reports whether either input is not already keyed by its
// join column.
func (n *Join) Repartition() bool { return n.repartition }
