package plan

import (
	"github.com/matthewbaird/ksqlplan/internal/analyzer"
	"github.com/matthewbaird/ksqlplan/internal/planerr"
	"github.com/matthewbaird/ksqlplan/internal/schema"
)

// Source reads one stream. Its schema is the stream's columns qualified by
// the source alias (unqualified when there is none) and its key field is
// the stream's key column, qualified the same way.
type Source struct {
	header
	stream string
	alias  string
	topic  string
	format string
}

// NewSource creates the leaf node for a resolved FROM entry.
func NewSource(src analyzer.Source) (*Source, error) {
	st := src.Stream
	if st == nil {
		return nil, planerr.Newf(planerr.UnknownSource, src.Alias, "source '%s' is not resolved to a stream", src.Alias)
	}

	s, err := schema.New(st.Columns...)
	if err != nil {
		return nil, err
	}
	s = s.Qualify(src.Alias)

	n := &Source{
		header: header{schema: s},
		stream: st.Name,
		alias:  src.Alias,
		topic:  st.Topic,
		format: st.Format,
	}
	if k, ok := st.KeyColumn(); ok {
		n.key = keyOf(schema.Field{Qualifier: src.Alias, Name: k.Name, Type: k.Type})
	}
	return n, nil
}

func (n *Source) Kind() Kind      { return KindSource }
func (n *Source) Sources() []Node { return nil }

// Stream returns the name of the stream read.
func (n *Source) Stream() string { return n.stream }

// Alias returns the qualifier of the source's columns.
func (n *Source) Alias() string { return n.alias }

// Topic returns the topic backing the stream.
func (n *Source) Topic() string { return n.topic }

// Format returns the stream's value format.
func (n *Source) Format() string { return n.format }
