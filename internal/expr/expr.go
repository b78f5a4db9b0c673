// Package expr implements the expression model used by predicates, select
// items and join conditions, together with its canonical text rendering.
//
// Expressions are immutable trees over a closed set of variants: *Column,
// *Literal, *Binary, *Unary and *Call. String returns the canonical form:
// every binary node is fully parenthesized, identifiers are upper-cased and
// numeric literals keep their natural form, so
//
//	t1.col1 > 10 AND t2.col4 = 10.8
//
// renders as ((T1.COL1 > 10) AND (T2.COL4 = 10.8)).
package expr

import (
	"math"
	"strconv"
	"strings"
	"unicode"

	"github.com/matthewbaird/ksqlplan/internal/schema"
)

// Expr is implemented by every expression node.
type Expr interface {
	// String returns the canonical rendering of the expression.
	String() string
	exprNode()
}

// ── Column reference ────────────────────────────────────────────────────────

// Column references a field by optional qualifier and name.
type Column struct {
	Qualifier string
	Name      string
}

// NewColumn creates a column reference.
func NewColumn(qualifier, name string) *Column {
	return &Column{Qualifier: qualifier, Name: name}
}

func (c *Column) String() string {
	if c.Qualifier == "" {
		return QuoteIdent(c.Name)
	}
	return QuoteIdent(c.Qualifier) + "." + QuoteIdent(c.Name)
}

// reserved holds the keywords of the statement language. A column or source
// named after one of them must be quoted to parse back as an identifier.
var reserved = map[string]bool{
	"select": true, "into": true, "from": true, "as": true, "where": true,
	"group": true, "by": true, "join": true, "inner": true, "left": true,
	"right": true, "full": true, "outer": true, "on": true, "and": true,
	"or": true, "not": true, "like": true, "true": true, "false": true,
	"null": true,
}

// IsReserved reports whether name is a keyword. Case-insensitive.
func IsReserved(name string) bool {
	return reserved[strings.ToLower(name)]
}

// QuoteIdent renders an identifier in canonical form: upper-cased, and
// wrapped in double quotes when it is a keyword or is not a plain
// letter/digit/underscore word. Embedded quotes are doubled.
func QuoteIdent(name string) string {
	up := strings.ToUpper(name)
	if plainIdent(name) && !IsReserved(name) {
		return up
	}
	return `"` + strings.ReplaceAll(up, `"`, `""`) + `"`
}

func plainIdent(name string) bool {
	if name == "" {
		return false
	}
	for i, r := range name {
		switch {
		case r == '_' || unicode.IsLetter(r):
		case i > 0 && unicode.IsDigit(r):
		default:
			return false
		}
	}
	return true
}

// Matches reports whether the reference names field f. An unqualified
// reference matches on name alone.
func (c *Column) Matches(f schema.Field) bool {
	if !strings.EqualFold(c.Name, f.Name) {
		return false
	}
	return c.Qualifier == "" || strings.EqualFold(c.Qualifier, f.Qualifier)
}

func (c *Column) exprNode() {}

// ── Literal ─────────────────────────────────────────────────────────────────

// Literal is a constant. Value holds int64, float64, string, bool or nil
// according to Type.
type Literal struct {
	Type  schema.ValueType
	Value any
}

// NewInt creates an integer literal, typed INTEGER when it fits in 32 bits
// and BIGINT otherwise.
func NewInt(v int64) *Literal {
	if v >= math.MinInt32 && v <= math.MaxInt32 {
		return &Literal{Type: schema.Integer, Value: v}
	}
	return &Literal{Type: schema.Bigint, Value: v}
}

// NewDouble creates a DOUBLE literal.
func NewDouble(v float64) *Literal { return &Literal{Type: schema.Double, Value: v} }

// NewString creates a STRING literal.
func NewString(v string) *Literal { return &Literal{Type: schema.String, Value: v} }

// NewBool creates a BOOLEAN literal.
func NewBool(v bool) *Literal { return &Literal{Type: schema.Boolean, Value: v} }

// NewNull creates the NULL literal.
func NewNull() *Literal { return &Literal{Type: schema.Null} }

func (l *Literal) String() string {
	switch v := l.Value.(type) {
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return formatDouble(v)
	case string:
		return "'" + strings.ReplaceAll(v, "'", "''") + "'"
	case bool:
		return strconv.FormatBool(v)
	default:
		return "null"
	}
}

// formatDouble renders v in its shortest form, always with a decimal point
// so that the text parses back as a DOUBLE.
func formatDouble(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.ContainsAny(s, ".eEnN") {
		s += ".0"
	}
	return s
}

func (l *Literal) exprNode() {}

// ── Binary operation ────────────────────────────────────────────────────────

// BinaryOp enumerates binary operators.
type BinaryOp int

const (
	OpAdd BinaryOp = iota
	OpSub
	OpMul
	OpDiv
	OpMod
	OpEQ
	OpNEQ
	OpLT
	OpLTE
	OpGT
	OpGTE
	OpLike
	OpAnd
	OpOr
)

// String returns the operator symbol used in canonical text.
func (op BinaryOp) String() string {
	switch op {
	case OpAdd:
		return "+"
	case OpSub:
		return "-"
	case OpMul:
		return "*"
	case OpDiv:
		return "/"
	case OpMod:
		return "%"
	case OpEQ:
		return "="
	case OpNEQ:
		return "<>"
	case OpLT:
		return "<"
	case OpLTE:
		return "<="
	case OpGT:
		return ">"
	case OpGTE:
		return ">="
	case OpLike:
		return "LIKE"
	case OpAnd:
		return "AND"
	case OpOr:
		return "OR"
	default:
		return "?"
	}
}

// Arithmetic returns true for +, -, *, / and %.
func (op BinaryOp) Arithmetic() bool { return op <= OpMod }

// Comparison returns true for =, <>, <, <=, >, >= and LIKE.
func (op BinaryOp) Comparison() bool { return op >= OpEQ && op <= OpLike }

// Logical returns true for AND and OR.
func (op BinaryOp) Logical() bool { return op == OpAnd || op == OpOr }

// Binary applies an operator to two operands.
type Binary struct {
	Op    BinaryOp
	Left  Expr
	Right Expr
}

// NewBinary creates a binary operation.
func NewBinary(op BinaryOp, left, right Expr) *Binary {
	return &Binary{Op: op, Left: left, Right: right}
}

// And is shorthand for NewBinary(OpAnd, left, right).
func And(left, right Expr) *Binary { return NewBinary(OpAnd, left, right) }

// Eq is shorthand for NewBinary(OpEQ, left, right).
func Eq(left, right Expr) *Binary { return NewBinary(OpEQ, left, right) }

func (b *Binary) String() string {
	return "(" + b.Left.String() + " " + b.Op.String() + " " + b.Right.String() + ")"
}

func (b *Binary) exprNode() {}

// ── Unary operation ─────────────────────────────────────────────────────────

// UnaryOp enumerates unary operators.
type UnaryOp int

const (
	OpNot UnaryOp = iota
	OpNeg
)

// String returns the operator symbol.
func (op UnaryOp) String() string {
	switch op {
	case OpNot:
		return "NOT"
	case OpNeg:
		return "-"
	default:
		return "?"
	}
}

// Unary applies an operator to one operand.
type Unary struct {
	Op      UnaryOp
	Operand Expr
}

// NewUnary creates a unary operation.
func NewUnary(op UnaryOp, operand Expr) *Unary {
	return &Unary{Op: op, Operand: operand}
}

func (u *Unary) String() string {
	if lit, ok := u.folded(); ok {
		return lit.String()
	}
	inner := u.Operand.String()
	if u.Op == OpNot {
		return "(NOT " + inner + ")"
	}
	if strings.HasPrefix(inner, "-") {
		// "--" would start a comment.
		return "(- " + inner + ")"
	}
	return "(-" + inner + ")"
}

// folded returns the literal equivalent of negating a non-negative numeric
// literal, which is how such a negation renders and parses back.
func (u *Unary) folded() (*Literal, bool) {
	lit, ok := u.Operand.(*Literal)
	if !ok || u.Op != OpNeg {
		return nil, false
	}
	switch v := lit.Value.(type) {
	case int64:
		if v >= 0 {
			return Negate(lit)
		}
	case float64:
		if !math.Signbit(v) {
			return Negate(lit)
		}
	}
	return nil, false
}

func (u *Unary) exprNode() {}

// Negate returns the numeric literal -l, typed as NewInt or NewDouble would
// type it. It reports false for non-numeric literals.
func Negate(l *Literal) (*Literal, bool) {
	switch v := l.Value.(type) {
	case int64:
		return NewInt(-v), true
	case float64:
		return NewDouble(-v), true
	default:
		return nil, false
	}
}

// ── Function call ───────────────────────────────────────────────────────────

// Call invokes a scalar or aggregate function. Star marks COUNT(*).
type Call struct {
	Name string
	Args []Expr
	Star bool
}

// NewCall creates a function call. The argument slice is copied.
func NewCall(name string, args ...Expr) *Call {
	cp := make([]Expr, len(args))
	copy(cp, args)
	return &Call{Name: name, Args: cp}
}

// NewCountStar creates COUNT(*).
func NewCountStar() *Call {
	return &Call{Name: "COUNT", Star: true}
}

func (c *Call) String() string {
	name := strings.ToUpper(c.Name)
	if c.Star {
		return name + "(*)"
	}
	args := make([]string, len(c.Args))
	for i, a := range c.Args {
		args[i] = a.String()
	}
	return name + "(" + strings.Join(args, ", ") + ")"
}

func (c *Call) exprNode() {}
