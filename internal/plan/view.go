package plan

import (
	"fmt"

	"github.com/matthewbaird/ksqlplan/internal/schema"
)

// View is a JSON-serializable snapshot of a plan tree. Two plans are
// structurally equal when their views are equal.
type View struct {
	Kind        Kind           `json:"kind"`
	Stream      string         `json:"stream,omitempty"`
	Alias       string         `json:"alias,omitempty"`
	Topic       string         `json:"topic,omitempty"`
	Format      string         `json:"format,omitempty"`
	JoinType    string         `json:"join_type,omitempty"`
	Condition   string         `json:"condition,omitempty"`
	Repartition bool           `json:"repartition,omitempty"`
	Predicate   string         `json:"predicate,omitempty"`
	Items       []string       `json:"items,omitempty"`
	GroupBy     []string       `json:"group_by,omitempty"`
	Schema      []schema.Field `json:"schema"`
	KeyField    string         `json:"key_field,omitempty"`
	Sources     []View         `json:"sources,omitempty"`
}

// ToView converts a plan tree into its View.
func ToView(n Node) View {
	v := View{
		Kind:   n.Kind(),
		Schema: n.Schema().Fields(),
	}
	if k := n.KeyField(); k != nil {
		v.KeyField = k.QualifiedName()
	}

	switch x := n.(type) {
	case *Source:
		v.Stream = x.stream
		v.Alias = x.alias
		v.Topic = x.topic
		v.Format = x.format
	case *Join:
		v.JoinType = x.joinType.String()
		v.Condition = x.Condition().String()
		v.Repartition = x.repartition
	case *Filter:
		v.Predicate = x.predicate.String()
	case *Project:
		for _, it := range x.items {
			v.Items = append(v.Items, it.String())
		}
	case *Aggregate:
		for _, g := range x.groupBy {
			v.GroupBy = append(v.GroupBy, g.String())
		}
		for _, it := range x.aggregates {
			v.Items = append(v.Items, it.String())
		}
	case *Output:
		v.Stream = x.name
		v.Topic = x.topic
		v.Format = x.format
	default:
		panic(fmt.Sprintf("plan: unknown node type %T", n))
	}

	for _, c := range n.Sources() {
		v.Sources = append(v.Sources, ToView(c))
	}
	return v
}
