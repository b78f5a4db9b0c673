package ksql

import (
	"strings"

	"github.com/matthewbaird/ksqlplan/internal/expr"
)

// Node is the interface implemented by all AST nodes.
type Node interface {
	nodeType() string
	Pos() int // byte offset in source
}

// Statement is the interface for top-level statements.
type Statement interface {
	Node
	stmtNode()
}

// ── Top-level statements ────────────────────────────────────────────────────

// SelectStmt represents a SELECT statement.
type SelectStmt struct {
	TokenPos int
	Items    []SelectItem
	Into     *IntoClause
	From     []*FromItem // first item has no Join; the rest each carry one
	Where    Expr
	GroupBy  []Expr
}

func (s *SelectStmt) nodeType() string { return "SelectStmt" }
func (s *SelectStmt) Pos() int         { return s.TokenPos }
func (s *SelectStmt) stmtNode()        {}

// MetaCmdStmt represents: :<command> [args...]
type MetaCmdStmt struct {
	TokenPos int
	Command  string   // e.g. "help", "streams", "describe"
	Args     []string // remaining tokens as raw strings
}

func (s *MetaCmdStmt) nodeType() string { return "MetaCmdStmt" }
func (s *MetaCmdStmt) Pos() int         { return s.TokenPos }
func (s *MetaCmdStmt) stmtNode()        {}

// ── Clauses ─────────────────────────────────────────────────────────────────

// SelectItem is one select-list entry: "*", "q.*", or an expression with an
// optional alias.
type SelectItem struct {
	TokenPos  int
	Star      bool
	Qualifier string // for "q.*"
	Expr      Expr
	Alias     string
}

// IntoClause names the sink stream.
type IntoClause struct {
	TokenPos int
	Name     string
}

// FromItem is a stream reference in the FROM clause.
type FromItem struct {
	TokenPos int
	Stream   string
	Alias    string
	Join     *JoinClause // nil for the first item
}

// JoinClause joins a FromItem to everything before it.
type JoinClause struct {
	TokenPos int
	Type     JoinType
	On       Expr
}

// JoinType enumerates the supported join variants.
type JoinType int

const (
	JoinInner JoinType = iota
	JoinLeft
	JoinRight
	JoinFull
)

// String returns the join type name used in plans: INNER, LEFT_OUTER,
// RIGHT_OUTER or FULL_OUTER.
func (j JoinType) String() string {
	switch j {
	case JoinLeft:
		return "LEFT_OUTER"
	case JoinRight:
		return "RIGHT_OUTER"
	case JoinFull:
		return "FULL_OUTER"
	default:
		return "INNER"
	}
}

// MarshalText encodes the join type name.
func (j JoinType) MarshalText() ([]byte, error) { return []byte(j.String()), nil }

// ── Expressions ─────────────────────────────────────────────────────────────

// Expr is the interface for expression nodes.
type Expr interface {
	Node
	exprNode()
}

// ColumnRef is a possibly qualified column name.
type ColumnRef struct {
	TokenPos  int
	Qualifier string
	Name      string
}

func (e *ColumnRef) nodeType() string { return "ColumnRef" }
func (e *ColumnRef) Pos() int         { return e.TokenPos }
func (e *ColumnRef) exprNode()        {}

// String renders the reference as written.
func (e *ColumnRef) String() string {
	if e.Qualifier != "" {
		return e.Qualifier + "." + e.Name
	}
	return e.Name
}

// Literal is a constant; Kind is TokenString, TokenInt, TokenFloat,
// TokenBool or TokenNull. Value holds the decoded int64, float64, string,
// bool or nil.
type Literal struct {
	TokenPos int
	Kind     TokenType
	Raw      string
	Value    any
}

func (e *Literal) nodeType() string { return "Literal" }
func (e *Literal) Pos() int         { return e.TokenPos }
func (e *Literal) exprNode()        {}

// BinaryExpr is a binary operation.
type BinaryExpr struct {
	TokenPos int
	Op       expr.BinaryOp
	Left     Expr
	Right    Expr
}

func (e *BinaryExpr) nodeType() string { return "BinaryExpr" }
func (e *BinaryExpr) Pos() int         { return e.TokenPos }
func (e *BinaryExpr) exprNode()        {}

// UnaryExpr is NOT or unary minus.
type UnaryExpr struct {
	TokenPos int
	Op       expr.UnaryOp
	Operand  Expr
}

func (e *UnaryExpr) nodeType() string { return "UnaryExpr" }
func (e *UnaryExpr) Pos() int         { return e.TokenPos }
func (e *UnaryExpr) exprNode()        {}

// CallExpr is a function call; Star marks f(*).
type CallExpr struct {
	TokenPos int
	Name     string
	Args     []Expr
	Star     bool
}

func (e *CallExpr) nodeType() string { return "CallExpr" }
func (e *CallExpr) Pos() int         { return e.TokenPos }
func (e *CallExpr) exprNode()        {}

// UpperName returns the function name in upper case.
func (e *CallExpr) UpperName() string { return strings.ToUpper(e.Name) }
