package expr

import (
	"errors"
	"testing"

	"github.com/matthewbaird/ksqlplan/internal/planerr"
	"github.com/matthewbaird/ksqlplan/internal/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func joinSchema(t *testing.T) schema.Schema {
	t.Helper()
	s, err := schema.New(
		schema.Field{Qualifier: "t1", Name: "col0", Type: schema.Bigint},
		schema.Field{Qualifier: "t1", Name: "col1", Type: schema.String},
		schema.Field{Qualifier: "t2", Name: "col1", Type: schema.String},
		schema.Field{Qualifier: "t2", Name: "col4", Type: schema.Double},
	)
	require.NoError(t, err)
	return s
}

func TestCanonicalText(t *testing.T) {
	tests := []struct {
		name string
		e    Expr
		want string
	}{
		{
			name: "conjunction",
			e: And(
				NewBinary(OpGT, NewColumn("t1", "col1"), NewInt(10)),
				Eq(NewColumn("t2", "col4"), NewDouble(10.8)),
			),
			want: "((T1.COL1 > 10) AND (T2.COL4 = 10.8))",
		},
		{name: "unqualified column", e: NewBinary(OpGT, NewColumn("", "col0"), NewInt(100)), want: "(COL0 > 100)"},
		{name: "whole double", e: NewDouble(1), want: "1.0"},
		{name: "bigint", e: NewInt(5000000000), want: "5000000000"},
		{name: "string with quote", e: NewString("it's"), want: "'it''s'"},
		{name: "not", e: NewUnary(OpNot, NewBool(true)), want: "(NOT true)"},
		{name: "negate column", e: NewUnary(OpNeg, NewColumn("", "x")), want: "(-X)"},
		{name: "negate negative", e: NewUnary(OpNeg, NewInt(-3)), want: "(- -3)"},
		{name: "negative literal", e: NewBinary(OpGT, NewColumn("", "col0"), NewInt(-5)), want: "(COL0 > -5)"},
		{name: "negate literal", e: NewUnary(OpNeg, NewDouble(1.5)), want: "-1.5"},
		{name: "spaced column", e: NewColumn("", "my col"), want: `"MY COL"`},
		{name: "keyword column", e: NewColumn("t", "select"), want: `T."SELECT"`},
		{name: "quote in column", e: NewColumn("", `a"b`), want: `"A""B"`},
		{name: "leading digit", e: NewColumn("", "1st"), want: `"1ST"`},
		{name: "quoted alias", e: NewColumn("my src", "col0"), want: `"MY SRC".COL0`},
		{name: "not equal", e: NewBinary(OpNEQ, NewColumn("", "a"), NewNull()), want: "(A <> null)"},
		{name: "count star", e: NewCountStar(), want: "COUNT(*)"},
		{name: "call", e: NewCall("concat", NewColumn("", "a"), NewString("b")), want: "CONCAT(A, 'b')"},
		{
			name: "nested arithmetic",
			e:    NewBinary(OpMul, NewBinary(OpAdd, NewColumn("", "a"), NewInt(1)), NewInt(2)),
			want: "((A + 1) * 2)",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.e.String())
		})
	}
}

func TestNewInt_TypeByRange(t *testing.T) {
	assert.Equal(t, schema.Integer, NewInt(10).Type)
	assert.Equal(t, schema.Bigint, NewInt(1<<40).Type)
}

func TestNewCall_CopiesArgs(t *testing.T) {
	args := []Expr{NewColumn("", "a")}
	c := NewCall("ucase", args...)
	args[0] = NewColumn("", "b")
	assert.Equal(t, "UCASE(A)", c.String())
}

func TestEqual(t *testing.T) {
	a := And(NewColumn("t1", "col1"), NewBool(true))
	b := And(NewColumn("T1", "COL1"), NewBool(true))
	assert.True(t, Equal(a, b))
	assert.False(t, Equal(a, And(NewColumn("t2", "col1"), NewBool(true))))
	assert.False(t, Equal(NewInt(1), NewDouble(1)))
	assert.True(t, Equal(nil, nil))
	assert.False(t, Equal(a, nil))
}

func TestRewrite_QualifiesColumns(t *testing.T) {
	e := NewBinary(OpAdd, NewColumn("", "a"), NewCall("abs", NewColumn("", "b")))
	out, err := Rewrite(e, func(x Expr) (Expr, error) {
		if c, ok := x.(*Column); ok {
			return NewColumn("s", c.Name), nil
		}
		return x, nil
	})
	require.NoError(t, err)
	assert.Equal(t, "(S.A + ABS(S.B))", out.String())
	assert.Equal(t, "(A + ABS(B))", e.String(), "input must not be mutated")
}

func TestEqual_NegatedLiteral(t *testing.T) {
	assert.True(t, Equal(NewUnary(OpNeg, NewInt(5)), NewInt(-5)))
	assert.True(t, Equal(NewDouble(-1.5), NewUnary(OpNeg, NewDouble(1.5))))
	assert.False(t, Equal(NewUnary(OpNeg, NewInt(-3)), NewInt(3)))
	assert.False(t, Equal(NewUnary(OpNeg, NewColumn("", "x")), NewColumn("", "x")))
}

func TestQuoteIdent(t *testing.T) {
	assert.Equal(t, "COL_1", QuoteIdent("col_1"))
	assert.Equal(t, `"FROM"`, QuoteIdent("from"))
	assert.Equal(t, `"NULL"`, QuoteIdent("Null"))
	assert.Equal(t, `"A-B"`, QuoteIdent("a-b"))
	assert.True(t, IsReserved("Join"))
	assert.False(t, IsReserved("stream"))
}

func TestContainsAggregate(t *testing.T) {
	assert.True(t, ContainsAggregate(NewBinary(OpAdd, NewCall("sum", NewColumn("", "a")), NewInt(1))))
	assert.True(t, ContainsAggregate(NewCountStar()))
	assert.False(t, ContainsAggregate(NewCall("ucase", NewColumn("", "a"))))
}

func TestTypeOf(t *testing.T) {
	s := joinSchema(t)

	tests := []struct {
		name string
		e    Expr
		want schema.ValueType
	}{
		{"column", NewColumn("", "col4"), schema.Double},
		{"widen", NewBinary(OpAdd, NewColumn("t1", "col0"), NewColumn("", "col4")), schema.Double},
		{"compare", NewBinary(OpGT, NewColumn("t1", "col0"), NewInt(10)), schema.Boolean},
		{"like", NewBinary(OpLike, NewColumn("t1", "col1"), NewString("a%")), schema.Boolean},
		{"count star", NewCountStar(), schema.Bigint},
		{"sum", NewCall("SUM", NewColumn("", "col4")), schema.Double},
		{"len", NewCall("len", NewColumn("t2", "col1")), schema.Integer},
		{"null compare", Eq(NewColumn("t1", "col1"), NewNull()), schema.Boolean},
		{"string equals number", Eq(NewColumn("t1", "col1"), NewInt(1)), schema.Boolean},
		{"string ordered against number", NewBinary(OpGT, NewColumn("t1", "col1"), NewInt(10)), schema.Boolean},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := TypeOf(tt.e, s)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTypeOf_Errors(t *testing.T) {
	s := joinSchema(t)

	tests := []struct {
		name string
		e    Expr
		want error
	}{
		{"ambiguous", NewColumn("", "col1"), planerr.ErrAmbiguousColumn},
		{"unresolved", NewColumn("t1", "col4"), planerr.ErrUnresolvedColumn},
		{"string plus number", NewBinary(OpAdd, NewColumn("t1", "col1"), NewInt(1)), planerr.ErrTypeMismatch},
		{"unresolved inside comparison", NewBinary(OpGT, NewColumn("t1", "col4"), NewInt(10)), planerr.ErrUnresolvedColumn},
		{"and over numbers", And(NewInt(1), NewInt(2)), planerr.ErrTypeMismatch},
		{"not over string", NewUnary(OpNot, NewString("x")), planerr.ErrTypeMismatch},
		{"unknown function", NewCall("frobnicate", NewInt(1)), planerr.ErrUnknownFunction},
		{"arity", NewCall("abs"), planerr.ErrTypeMismatch},
		{"nested aggregate", NewCall("sum", NewCall("count", NewColumn("", "col4"))), planerr.ErrTypeMismatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := TypeOf(tt.e, s)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}

func TestCheckPredicate(t *testing.T) {
	s := joinSchema(t)
	assert.NoError(t, CheckPredicate(NewBinary(OpGT, NewColumn("", "col4"), NewDouble(1.5)), s))

	err := CheckPredicate(NewColumn("", "col4"), s)
	assert.True(t, errors.Is(err, planerr.ErrTypeMismatch))
}

func TestSelectItemString(t *testing.T) {
	assert.Equal(t, "*", SelectItem{All: true}.String())
	assert.Equal(t, "T1.*", SelectItem{All: true, Qualifier: "t1"}.String())
	assert.Equal(t, "(A + 1) AS X", SelectItem{Expr: NewBinary(OpAdd, NewColumn("", "a"), NewInt(1)), Alias: "x"}.String())
}
