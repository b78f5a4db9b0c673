package event

import (
	"context"
	"time"

	"github.com/matthewbaird/ksqlplan/internal/plan"
)

// Publisher sends planner events to downstream consumers.
type Publisher interface {
	Publish(ctx context.Context, evt PlanEvent)
}

// Recorder turns the outcome of one planning call into a PlanEvent and
// publishes it. A Recorder with no publisher discards events.
type Recorder struct {
	bus Publisher
	now func() time.Time
}

// NewRecorder creates a Recorder publishing to bus, which may be nil.
func NewRecorder(bus Publisher) *Recorder {
	return &Recorder{bus: bus, now: time.Now}
}

// Record publishes StatementPlanned when err is nil and StatementRejected
// otherwise. start is when planning began.
func (r *Recorder) Record(ctx context.Context, sessionID, stmt string, start time.Time, root plan.Node, err error) PlanEvent {
	d := r.now().Sub(start)
	var evt PlanEvent
	if err != nil {
		evt = NewStatementRejected(sessionID, stmt, d, err)
	} else {
		evt = NewStatementPlanned(sessionID, stmt, d, summarize(root))
	}
	if r.bus != nil {
		r.bus.Publish(ctx, evt)
	}
	return evt
}

func summarize(root plan.Node) StatementPlannedPayload {
	p := StatementPlannedPayload{Columns: root.Schema().Names()}
	if out, ok := root.(*plan.Output); ok {
		p.Sink = out.Name()
	}
	plan.Walk(root, func(plan.Node) bool {
		p.Nodes++
		return true
	})
	for _, src := range plan.Leaves(root) {
		p.Sources = append(p.Sources, src.Stream())
	}
	return p
}
