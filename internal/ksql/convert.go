package ksql

import (
	"fmt"

	"github.com/matthewbaird/ksqlplan/internal/expr"
)

// ToExpr converts an AST expression into the planner's expression model.
// Column references are kept as written.
func ToExpr(e Expr) (expr.Expr, error) {
	switch x := e.(type) {
	case *ColumnRef:
		return expr.NewColumn(x.Qualifier, x.Name), nil

	case *Literal:
		switch v := x.Value.(type) {
		case int64:
			return expr.NewInt(v), nil
		case float64:
			return expr.NewDouble(v), nil
		case string:
			return expr.NewString(v), nil
		case bool:
			return expr.NewBool(v), nil
		default:
			return expr.NewNull(), nil
		}

	case *BinaryExpr:
		left, err := ToExpr(x.Left)
		if err != nil {
			return nil, err
		}
		right, err := ToExpr(x.Right)
		if err != nil {
			return nil, err
		}
		return expr.NewBinary(x.Op, left, right), nil

	case *UnaryExpr:
		operand, err := ToExpr(x.Operand)
		if err != nil {
			return nil, err
		}
		if _, lit := x.Operand.(*Literal); lit && x.Op == expr.OpNeg {
			// -5 converts to the literal -5.
			if neg, ok := expr.Negate(operand.(*expr.Literal)); ok {
				return neg, nil
			}
		}
		return expr.NewUnary(x.Op, operand), nil

	case *CallExpr:
		if x.Star {
			return &expr.Call{Name: x.UpperName(), Star: true}, nil
		}
		args := make([]expr.Expr, len(x.Args))
		for i, a := range x.Args {
			arg, err := ToExpr(a)
			if err != nil {
				return nil, err
			}
			args[i] = arg
		}
		return expr.NewCall(x.UpperName(), args...), nil

	default:
		return nil, fmt.Errorf("unsupported expression node %T", e)
	}
}
