package plan

import (
	"fmt"
	"strconv"

	"github.com/matthewbaird/ksqlplan/internal/expr"
	"github.com/matthewbaird/ksqlplan/internal/planerr"
	"github.com/matthewbaird/ksqlplan/internal/schema"
)

// SynthesizedName returns the generated output name of the unaliased
// computed select item at position i.
func SynthesizedName(i int) string {
	return "KSQL_COL_" + strconv.Itoa(i)
}

// DeriveSchema computes the output schema of a select list over input.
//
// A bare column reference copies the input field, qualifier included. An
// aliased column keeps its type under the alias, unqualified. Any other
// expression yields an unqualified field named by its alias, or by
// SynthesizedName, typed by inference. Wildcards must have been expanded
// with ExpandWildcards first.
func DeriveSchema(items []expr.SelectItem, input schema.Schema) (schema.Schema, error) {
	fields := make([]schema.Field, 0, len(items))
	for i, item := range items {
		f, err := deriveField(i, item, input)
		if err != nil {
			return schema.Schema{}, err
		}
		fields = append(fields, f)
	}
	return schema.New(fields...)
}

func deriveField(i int, item expr.SelectItem, input schema.Schema) (schema.Field, error) {
	if item.All {
		return schema.Field{}, fmt.Errorf("select item %d: wildcard %s was not expanded", i, item)
	}
	if col, ok := item.Expr.(*expr.Column); ok {
		f, _, err := input.Lookup(col.Qualifier, col.Name)
		if err != nil {
			return schema.Field{}, err
		}
		if item.Alias != "" {
			return schema.Field{Name: item.Alias, Type: f.Type}, nil
		}
		return f, nil
	}

	t, err := expr.TypeOf(item.Expr, input)
	if err != nil {
		return schema.Field{}, err
	}
	name := item.Alias
	if name == "" {
		name = SynthesizedName(i)
	}
	return schema.Field{Name: name, Type: t}, nil
}

// ExpandWildcards replaces "*" with one column reference per input field
// and "q.*" with one per field qualified by q, in schema order.
func ExpandWildcards(items []expr.SelectItem, input schema.Schema) ([]expr.SelectItem, error) {
	out := make([]expr.SelectItem, 0, len(items))
	for _, item := range items {
		if !item.All {
			out = append(out, item)
			continue
		}
		matched := false
		for _, f := range input.Fields() {
			if item.Qualifier != "" && !equalFold(f.Qualifier, item.Qualifier) {
				continue
			}
			matched = true
			out = append(out, expr.SelectItem{Expr: expr.NewColumn(f.Qualifier, f.Name)})
		}
		if !matched {
			return nil, planerr.Newf(planerr.UnresolvedColumn, item.String(),
				"wildcard %s matches no input column", item)
		}
	}
	return out, nil
}
