package analyzer

import (
	"strings"

	"github.com/matthewbaird/ksqlplan/internal/expr"
	"github.com/matthewbaird/ksqlplan/internal/ksql"
	"github.com/matthewbaird/ksqlplan/internal/metastore"
	"github.com/matthewbaird/ksqlplan/internal/planerr"
)

// Analyzer resolves statements against a catalog. It holds no per-statement
// state and is safe for concurrent use.
type Analyzer struct {
	catalog metastore.Reader
}

// New creates an analyzer reading streams from catalog.
func New(catalog metastore.Reader) *Analyzer {
	return &Analyzer{catalog: catalog}
}

// Analyze resolves stmt. Every column reference in the result names an
// existing column of one of the statement's sources and carries that
// source's qualifier.
func (a *Analyzer) Analyze(stmt *ksql.SelectStmt) (*Analysis, error) {
	out := &Analysis{}

	sources, err := a.resolveSources(stmt.From)
	if err != nil {
		return nil, err
	}

	// Join conditions see the sources up to and including their own.
	for i, item := range stmt.From {
		src := sources[i]
		if item.Join != nil {
			join, err := resolveJoin(item.Join, sources[:i+1])
			if err != nil {
				return nil, err
			}
			src.Join = join
		}
		out.From = append(out.From, src)
	}

	for _, item := range stmt.Items {
		si, err := resolveSelectItem(item, sources)
		if err != nil {
			return nil, err
		}
		out.Select = append(out.Select, si)
	}

	if stmt.Where != nil {
		if out.Where, err = resolveExpr(stmt.Where, sources); err != nil {
			return nil, err
		}
	}

	for _, g := range stmt.GroupBy {
		e, err := resolveExpr(g, sources)
		if err != nil {
			return nil, err
		}
		out.GroupBy = append(out.GroupBy, e)
	}

	if stmt.Into != nil {
		out.Into = &Sink{
			Name:   stmt.Into.Name,
			Topic:  stmt.Into.Name,
			Format: sources[0].Stream.Format,
		}
	}
	return out, nil
}

func (a *Analyzer) resolveSources(from []*ksql.FromItem) ([]Source, error) {
	sources := make([]Source, 0, len(from))
	seen := make(map[string]bool, len(from))
	for _, item := range from {
		st := a.catalog.Stream(item.Stream)
		if st == nil {
			msg := "stream '" + item.Stream + "' does not exist"
			if s := ksql.SuggestFrom(strings.ToLower(item.Stream), a.catalog.StreamNames(), 2); s != "" {
				msg += " (" + s + ")"
			}
			return nil, planerr.New(planerr.UnknownSource, strings.ToUpper(item.Stream), msg)
		}

		alias := item.Alias
		if alias == "" && len(from) > 1 {
			// Joined sources need distinct qualifiers; default to the stream name.
			alias = item.Stream
		}
		key := strings.ToLower(alias)
		if alias != "" && seen[key] {
			return nil, planerr.Newf(planerr.DuplicateQualifiedField, strings.ToUpper(alias),
				"source name '%s' is used more than once; add an alias", alias)
		}
		seen[key] = true
		sources = append(sources, Source{Alias: alias, Stream: st})
	}
	return sources, nil
}

func resolveJoin(jc *ksql.JoinClause, scope []Source) (*Join, error) {
	on, err := resolveExpr(jc.On, scope)
	if err != nil {
		return nil, err
	}
	eq, ok := on.(*expr.Binary)
	if !ok || eq.Op != expr.OpEQ {
		return nil, planerr.Newf(planerr.UnsupportedJoinCondition, on.String(),
			"join condition %s must be an equality between one column of each side", on)
	}
	return &Join{Type: jc.Type, Left: eq.Left, Right: eq.Right}, nil
}

func resolveSelectItem(item ksql.SelectItem, scope []Source) (expr.SelectItem, error) {
	if item.Star {
		if item.Qualifier == "" {
			return expr.SelectItem{All: true}, nil
		}
		for _, s := range scope {
			if strings.EqualFold(s.Alias, item.Qualifier) {
				return expr.SelectItem{All: true, Qualifier: s.Alias}, nil
			}
		}
		return expr.SelectItem{}, planerr.Newf(planerr.UnresolvedColumn, strings.ToUpper(item.Qualifier)+".*",
			"'%s.*' does not name a source", item.Qualifier)
	}
	e, err := resolveExpr(item.Expr, scope)
	if err != nil {
		return expr.SelectItem{}, err
	}
	return expr.SelectItem{Expr: e, Alias: item.Alias}, nil
}

func resolveExpr(e ksql.Expr, scope []Source) (expr.Expr, error) {
	raw, err := ksql.ToExpr(e)
	if err != nil {
		return nil, err
	}
	return expr.Rewrite(raw, func(x expr.Expr) (expr.Expr, error) {
		if c, ok := x.(*expr.Column); ok {
			return resolveColumn(c, scope)
		}
		return x, nil
	})
}

// resolveColumn finds the one source declaring c and returns the column
// qualified with that source's alias.
func resolveColumn(c *expr.Column, scope []Source) (expr.Expr, error) {
	subject := c.String()
	ref := c.Name
	if c.Qualifier != "" {
		ref = c.Qualifier + "." + c.Name
	}

	if c.Qualifier != "" {
		for _, s := range scope {
			if !strings.EqualFold(s.Alias, c.Qualifier) {
				continue
			}
			col, ok := s.Stream.Column(c.Name)
			if !ok {
				return nil, planerr.Newf(planerr.UnresolvedColumn, subject,
					"column '%s' cannot be resolved: '%s' has no column '%s'", ref, s.Stream.Name, c.Name)
			}
			return expr.NewColumn(s.Alias, col.Name), nil
		}
		return nil, planerr.Newf(planerr.UnresolvedColumn, subject,
			"column '%s' cannot be resolved: unknown source '%s'", ref, c.Qualifier)
	}

	var (
		found *expr.Column
		from  string
	)
	for _, s := range scope {
		col, ok := s.Stream.Column(c.Name)
		if !ok {
			continue
		}
		if found != nil {
			return nil, planerr.Newf(planerr.AmbiguousColumn, subject,
				"column '%s' is ambiguous: it exists in '%s' and '%s'", ref, from, s.Name())
		}
		found = expr.NewColumn(s.Alias, col.Name)
		from = s.Name()
	}
	if found == nil {
		return nil, planerr.Newf(planerr.UnresolvedColumn, subject, "column '%s' cannot be resolved", ref)
	}
	return found, nil
}
