package expr

import (
	"github.com/matthewbaird/ksqlplan/internal/planerr"
	"github.com/matthewbaird/ksqlplan/internal/schema"
)

// TypeOf infers the type of e over the input schema s. Column references
// are resolved through s, so resolution failures surface as
// UnresolvedColumn / AmbiguousColumn errors; operand mismatches surface as
// TypeMismatch. Comparisons accept any pair of typeable operands.
func TypeOf(e Expr, s schema.Schema) (schema.ValueType, error) {
	switch x := e.(type) {
	case *Column:
		f, _, err := s.Lookup(x.Qualifier, x.Name)
		if err != nil {
			return schema.Unknown, err
		}
		return f.Type, nil

	case *Literal:
		return x.Type, nil

	case *Unary:
		t, err := TypeOf(x.Operand, s)
		if err != nil {
			return schema.Unknown, err
		}
		switch x.Op {
		case OpNot:
			if t != schema.Boolean && t != schema.Null {
				return schema.Unknown, mismatch(x, "NOT requires a BOOLEAN operand, got %s", t)
			}
			return schema.Boolean, nil
		default:
			if !t.Numeric() && t != schema.Null {
				return schema.Unknown, mismatch(x, "unary minus requires a numeric operand, got %s", t)
			}
			return t, nil
		}

	case *Binary:
		return typeOfBinary(x, s)

	case *Call:
		return typeOfCall(x, s)

	default:
		return schema.Unknown, planerr.Newf(planerr.TypeMismatch, "", "unsupported expression %T", e)
	}
}

func typeOfBinary(b *Binary, s schema.Schema) (schema.ValueType, error) {
	lt, err := TypeOf(b.Left, s)
	if err != nil {
		return schema.Unknown, err
	}
	rt, err := TypeOf(b.Right, s)
	if err != nil {
		return schema.Unknown, err
	}

	switch {
	case b.Op.Arithmetic():
		if (!lt.Numeric() && lt != schema.Null) || (!rt.Numeric() && rt != schema.Null) {
			return schema.Unknown, mismatch(b, "operator %s requires numeric operands, got %s and %s", b.Op, lt, rt)
		}
		return schema.Widen(lt, rt), nil

	case b.Op == OpLike:
		if !isString(lt) || !isString(rt) {
			return schema.Unknown, mismatch(b, "LIKE requires STRING operands, got %s and %s", lt, rt)
		}
		return schema.Boolean, nil

	case b.Op.Comparison():
		return schema.Boolean, nil

	default: // AND, OR
		if (lt != schema.Boolean && lt != schema.Null) || (rt != schema.Boolean && rt != schema.Null) {
			return schema.Unknown, mismatch(b, "operator %s requires BOOLEAN operands, got %s and %s", b.Op, lt, rt)
		}
		return schema.Boolean, nil
	}
}

func typeOfCall(c *Call, s schema.Schema) (schema.ValueType, error) {
	fn, ok := LookupFunction(c.Name)
	if !ok {
		return schema.Unknown, planerr.Newf(planerr.UnknownFunction, c.String(), "unknown function '%s'", c.Name)
	}
	if c.Star {
		if fn.Name != "COUNT" {
			return schema.Unknown, mismatch(c, "only COUNT accepts '*'")
		}
		return schema.Bigint, nil
	}
	if len(c.Args) < fn.MinArgs || (fn.MaxArgs >= 0 && len(c.Args) > fn.MaxArgs) {
		return schema.Unknown, mismatch(c, "wrong number of arguments to %s: %d", fn.Name, len(c.Args))
	}

	args := make([]schema.ValueType, len(c.Args))
	for i, a := range c.Args {
		if fn.Aggregate && ContainsAggregate(a) {
			return schema.Unknown, mismatch(c, "aggregate function calls cannot be nested")
		}
		t, err := TypeOf(a, s)
		if err != nil {
			return schema.Unknown, err
		}
		args[i] = t
	}
	t, err := fn.Returns(args)
	if err != nil {
		return schema.Unknown, mismatch(c, "%s: %v", fn.Name, err)
	}
	return t, nil
}

func mismatch(e Expr, format string, args ...any) *planerr.Error {
	return planerr.Newf(planerr.TypeMismatch, e.String(), format, args...)
}

// CheckPredicate verifies that e is a BOOLEAN expression over s.
func CheckPredicate(e Expr, s schema.Schema) error {
	t, err := TypeOf(e, s)
	if err != nil {
		return err
	}
	if t != schema.Boolean {
		return mismatch(e, "predicate %s must be BOOLEAN, got %s", e, t)
	}
	return nil
}
