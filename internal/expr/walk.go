package expr

import "strings"

// Equal reports whether a and b are structurally equal. Identifier and
// function names compare case-insensitively, and negating a numeric literal
// equals the negative literal.
func Equal(a, b Expr) bool {
	a, b = foldNeg(a), foldNeg(b)
	switch x := a.(type) {
	case *Column:
		y, ok := b.(*Column)
		return ok && strings.EqualFold(x.Qualifier, y.Qualifier) && strings.EqualFold(x.Name, y.Name)
	case *Literal:
		y, ok := b.(*Literal)
		return ok && x.Type == y.Type && x.Value == y.Value
	case *Binary:
		y, ok := b.(*Binary)
		return ok && x.Op == y.Op && Equal(x.Left, y.Left) && Equal(x.Right, y.Right)
	case *Unary:
		y, ok := b.(*Unary)
		return ok && x.Op == y.Op && Equal(x.Operand, y.Operand)
	case *Call:
		y, ok := b.(*Call)
		if !ok || !strings.EqualFold(x.Name, y.Name) || x.Star != y.Star || len(x.Args) != len(y.Args) {
			return false
		}
		for i := range x.Args {
			if !Equal(x.Args[i], y.Args[i]) {
				return false
			}
		}
		return true
	case nil:
		return b == nil
	default:
		return false
	}
}

// foldNeg treats -<literal> as the negative literal it renders as.
func foldNeg(e Expr) Expr {
	if u, ok := e.(*Unary); ok {
		if lit, ok := u.folded(); ok {
			return lit
		}
	}
	return e
}

// Walk calls fn for e and its descendants in pre-order. Returning false
// from fn skips the node's children.
func Walk(e Expr, fn func(Expr) bool) {
	if e == nil || !fn(e) {
		return
	}
	switch x := e.(type) {
	case *Binary:
		Walk(x.Left, fn)
		Walk(x.Right, fn)
	case *Unary:
		Walk(x.Operand, fn)
	case *Call:
		for _, a := range x.Args {
			Walk(a, fn)
		}
	}
}

// Rewrite rebuilds e bottom-up, replacing every node with fn's result.
// Nodes for which fn returns the argument unchanged are kept.
func Rewrite(e Expr, fn func(Expr) (Expr, error)) (Expr, error) {
	switch x := e.(type) {
	case *Binary:
		l, err := Rewrite(x.Left, fn)
		if err != nil {
			return nil, err
		}
		r, err := Rewrite(x.Right, fn)
		if err != nil {
			return nil, err
		}
		return fn(NewBinary(x.Op, l, r))
	case *Unary:
		o, err := Rewrite(x.Operand, fn)
		if err != nil {
			return nil, err
		}
		return fn(NewUnary(x.Op, o))
	case *Call:
		if x.Star {
			return fn(x)
		}
		args := make([]Expr, len(x.Args))
		for i, a := range x.Args {
			na, err := Rewrite(a, fn)
			if err != nil {
				return nil, err
			}
			args[i] = na
		}
		return fn(&Call{Name: x.Name, Args: args})
	default:
		return fn(e)
	}
}

// ContainsAggregate reports whether e calls an aggregate function.
func ContainsAggregate(e Expr) bool {
	found := false
	Walk(e, func(n Expr) bool {
		if c, ok := n.(*Call); ok && IsAggregate(c.Name) {
			found = true
		}
		return !found
	})
	return found
}

// SelectItem is one entry of a select list. Either Expr is set, or All marks
// a wildcard ("*", or "q.*" when Qualifier is set).
type SelectItem struct {
	Expr      Expr
	Alias     string
	All       bool
	Qualifier string
}

// String renders the item as it would appear in a select list.
func (s SelectItem) String() string {
	if s.All {
		if s.Qualifier != "" {
			return QuoteIdent(s.Qualifier) + ".*"
		}
		return "*"
	}
	if s.Alias != "" {
		return s.Expr.String() + " AS " + QuoteIdent(s.Alias)
	}
	return s.Expr.String()
}
