package plan

import (
	"github.com/matthewbaird/ksqlplan/internal/analyzer"
	"github.com/matthewbaird/ksqlplan/internal/planerr"
)

// Output is the root of a plan: it names the stream the result is written
// to. Schema and key field are the input's.
type Output struct {
	header
	child  Node
	name   string
	topic  string
	format string
}

// NewOutput wraps child with the sink. A nil sink fails with
// MissingSinkError. Topic defaults to the sink name and format to the
// format of the first source.
func NewOutput(child Node, sink *analyzer.Sink) (*Output, error) {
	if sink == nil || sink.Name == "" {
		return nil, planerr.New(planerr.MissingSink, "", "statement has no INTO clause naming an output stream")
	}
	topic := sink.Topic
	if topic == "" {
		topic = sink.Name
	}
	format := sink.Format
	if leaves := Leaves(child); format == "" && len(leaves) > 0 {
		format = leaves[0].Format()
	}
	return &Output{
		header: header{schema: child.Schema(), key: child.KeyField()},
		child:  child,
		name:   sink.Name,
		topic:  topic,
		format: format,
	}, nil
}

func (n *Output) Kind() Kind      { return KindOutput }
func (n *Output) Sources() []Node { return []Node{n.child} }

// Name returns the sink stream name.
func (n *Output) Name() string { return n.name }

// Topic returns the sink topic.
func (n *Output) Topic() string { return n.topic }

// Format returns the sink value format.
func (n *Output) Format() string { return n.format }
