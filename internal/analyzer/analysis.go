// Package analyzer resolves a parsed SELECT statement against the catalog
// and produces the Analysis consumed by the logical planner.
package analyzer

import (
	"github.com/matthewbaird/ksqlplan/internal/expr"
	"github.com/matthewbaird/ksqlplan/internal/ksql"
	"github.com/matthewbaird/ksqlplan/internal/metastore"
)

// JoinType is the join variant of a join descriptor.
type JoinType = ksql.JoinType

const (
	JoinInner = ksql.JoinInner
	JoinLeft  = ksql.JoinLeft
	JoinRight = ksql.JoinRight
	JoinFull  = ksql.JoinFull
)

// Analysis is the resolved form of one statement. The planner treats it as
// read-only.
type Analysis struct {
	Select  []expr.SelectItem
	From    []Source
	Where   expr.Expr   // nil if absent
	GroupBy []expr.Expr // empty if the statement is not grouped
	Into    *Sink       // nil if the statement names no sink
}

// Grouped reports whether the statement has a GROUP BY clause.
func (a *Analysis) Grouped() bool { return len(a.GroupBy) > 0 }

// Source is one resolved FROM entry. Every source except the first carries
// the join descriptor connecting it to the sources before it.
type Source struct {
	Alias  string            // qualifier for the source's columns; "" for none
	Stream *metastore.Stream // nil if unresolved
	Join   *Join
}

// Name returns the alias, or the stream name when there is none.
func (s Source) Name() string {
	if s.Alias != "" {
		return s.Alias
	}
	if s.Stream != nil {
		return s.Stream.Name
	}
	return ""
}

// Join is a join descriptor: the join type and both sides of the equality
// condition, in the order they were written.
type Join struct {
	Type  JoinType
	Left  expr.Expr
	Right expr.Expr
}

// Sink names the stream the statement writes to.
type Sink struct {
	Name   string
	Topic  string
	Format string
}
