// Package planner builds logical plans from analyzed statements.
package planner

import (
	"fmt"

	"github.com/matthewbaird/ksqlplan/internal/analyzer"
	"github.com/matthewbaird/ksqlplan/internal/ksql"
	"github.com/matthewbaird/ksqlplan/internal/metastore"
	"github.com/matthewbaird/ksqlplan/internal/plan"
	"github.com/matthewbaird/ksqlplan/internal/planerr"
)

// LogicalPlanner turns an Analysis into a plan tree:
//
//	Output -> Project | Aggregate -> [Filter ->] Source | Join(...)
//
// It keeps no state between calls and is safe for concurrent use.
type LogicalPlanner struct{}

// New creates a logical planner.
func New() *LogicalPlanner {
	return &LogicalPlanner{}
}

// Plan builds the plan for a. Planning stops at the first failure; no
// partial plan is returned.
func (p *LogicalPlanner) Plan(a *analyzer.Analysis) (plan.Node, error) {
	if a == nil {
		return nil, planerr.New(planerr.UnknownSource, "", "no analyzed statement to plan")
	}
	if len(a.From) == 0 {
		return nil, planerr.New(planerr.UnknownSource, "", "statement reads from no source")
	}

	// 1. One Source per FROM entry, in declared order.
	sources := make([]*plan.Source, len(a.From))
	for i, src := range a.From {
		n, err := plan.NewSource(src)
		if err != nil {
			return nil, err
		}
		sources[i] = n
	}

	// 2. Fold additional sources into joins, left to right.
	current, err := p.buildJoins(a.From, sources)
	if err != nil {
		return nil, err
	}

	// 3. WHERE
	if a.Where != nil {
		if current, err = plan.NewFilter(current, a.Where); err != nil {
			return nil, err
		}
	}

	// 4. GROUP BY or plain projection.
	if a.Grouped() {
		current, err = plan.NewAggregate(current, a.GroupBy, a.Select)
	} else {
		current, err = plan.NewProject(current, a.Select)
	}
	if err != nil {
		return nil, err
	}

	// 5. INTO
	out, err := plan.NewOutput(current, a.Into)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (p *LogicalPlanner) buildJoins(from []analyzer.Source, sources []*plan.Source) (plan.Node, error) {
	if from[0].Join != nil {
		return nil, planerr.Newf(planerr.UnconnectedSource, from[0].Name(),
			"first source '%s' cannot carry a join condition", from[0].Name())
	}

	var current plan.Node = sources[0]
	for i := 1; i < len(from); i++ {
		j := from[i].Join
		if j == nil {
			return nil, planerr.Newf(planerr.UnconnectedSource, from[i].Name(),
				"source '%s' is not connected to the sources before it by a join condition", from[i].Name())
		}
		join, err := plan.NewJoin(j.Type, current, sources[i], j.Left, j.Right)
		if err != nil {
			return nil, err
		}
		current = join
	}
	return current, nil
}

// PlanStatement parses, analyzes and plans one SELECT statement against
// catalog.
func PlanStatement(catalog metastore.Reader, sql string) (plan.Node, error) {
	stmt, err := ksql.ParseSelect(sql)
	if err != nil {
		return nil, fmt.Errorf("parsing statement: %w", err)
	}
	a, err := analyzer.New(catalog).Analyze(stmt)
	if err != nil {
		return nil, err
	}
	return New().Plan(a)
}
