package plan

import (
	"fmt"
	"strings"

	"github.com/matthewbaird/ksqlplan/internal/expr"
)

// Describe returns a one-line description of n, without its children.
func Describe(n Node) string {
	switch x := n.(type) {
	case *Source:
		name := strings.ToUpper(x.stream)
		if x.alias != "" && !strings.EqualFold(x.alias, x.stream) {
			name += " AS " + strings.ToUpper(x.alias)
		}
		return fmt.Sprintf("SOURCE %s (topic: %s, format: %s)", name, x.topic, x.format)
	case *Join:
		s := fmt.Sprintf("JOIN %s ON %s", x.joinType, x.Condition())
		if x.repartition {
			s += " (repartition)"
		}
		return s
	case *Filter:
		return "FILTER " + x.predicate.String()
	case *Project:
		return "PROJECT " + joinItems(x.items)
	case *Aggregate:
		groups := make([]string, len(x.groupBy))
		for i, g := range x.groupBy {
			groups[i] = g.String()
		}
		return "AGGREGATE GROUP BY " + strings.Join(groups, ", ") + " COMPUTE " + joinItems(x.aggregates)
	case *Output:
		return fmt.Sprintf("OUTPUT %s (topic: %s, format: %s)", strings.ToUpper(x.name), x.topic, x.format)
	default:
		panic(fmt.Sprintf("plan: unknown node type %T", n))
	}
}

func joinItems(items []expr.SelectItem) string {
	parts := make([]string, len(items))
	for i, it := range items {
		parts[i] = it.String()
	}
	return strings.Join(parts, ", ")
}

// Explain renders the plan as an indented tree, one node per line, each
// followed by its key field and schema:
//
//	> OUTPUT OUT (topic: out, format: JSON) | key: COL0 | schema: [COL0 BIGINT, ...]
//	  > PROJECT COL0, COL2, COL3 | key: COL0 | schema: [...]
func Explain(n Node) string {
	var b strings.Builder
	explain(&b, n, 0)
	return b.String()
}

func explain(b *strings.Builder, n Node, depth int) {
	b.WriteString(strings.Repeat("  ", depth))
	b.WriteString("> ")
	b.WriteString(Describe(n))
	b.WriteString(" | key: ")
	if k := n.KeyField(); k != nil {
		b.WriteString(k.DisplayName())
	} else {
		b.WriteString("none")
	}
	b.WriteString(" | schema: ")
	b.WriteString(n.Schema().String())
	b.WriteByte('\n')
	for _, c := range n.Sources() {
		explain(b, c, depth+1)
	}
}
