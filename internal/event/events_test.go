package event

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/matthewbaird/ksqlplan/internal/metastore"
	"github.com/matthewbaird/ksqlplan/internal/planner"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capture struct {
	mu     sync.Mutex
	events []PlanEvent
}

func (c *capture) Publish(_ context.Context, evt PlanEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, evt)
}

func TestRecorder_Planned(t *testing.T) {
	sql := "SELECT t1.col1, t2.col4 INTO out FROM s1 t1 LEFT JOIN s2 t2 ON t1.col1 = t2.col1"
	root, err := planner.PlanStatement(metastore.Sample(), sql)
	require.NoError(t, err)

	bus := &capture{}
	r := NewRecorder(bus)
	start := time.Now()
	r.now = func() time.Time { return start.Add(5 * time.Millisecond) }

	evt := r.Record(context.Background(), "sess", sql, start, root, nil)
	require.Len(t, bus.events, 1)
	assert.Equal(t, evt, bus.events[0])

	assert.Equal(t, StatementPlanned, evt.EventType)
	assert.Equal(t, "sess", evt.SessionID)
	assert.Equal(t, 5*time.Millisecond, evt.Duration)
	_, err = uuid.Parse(evt.ID)
	assert.NoError(t, err)

	var p StatementPlannedPayload
	require.NoError(t, json.Unmarshal(evt.Payload, &p))
	assert.Equal(t, StatementPlannedPayload{Sink: "out", Sources: []string{"s1", "s2"}, Nodes: 5, Columns: []string{"t1.col1", "t2.col4"}}, p)
	assert.Equal(t, "planned 5 nodes into out", evt.Summary)
}

func TestRecorder_Rejected(t *testing.T) {
	sql := "SELECT col1 INTO out FROM s1 t1 JOIN s2 t2 ON t1.col1 = t2.col1"
	_, err := planner.PlanStatement(metastore.Sample(), sql)
	require.Error(t, err)

	bus := &capture{}
	evt := NewRecorder(bus).Record(context.Background(), "", sql, time.Now(), nil, err)

	assert.Equal(t, StatementRejected, evt.EventType)
	assert.Equal(t, "AmbiguousColumnError", evt.ErrorKind)
	var p StatementRejectedPayload
	require.NoError(t, json.Unmarshal(evt.Payload, &p))
	assert.Equal(t, "COL1", p.Subject)
	assert.Equal(t, err.Error(), p.Error)
}

func TestRecorder_ParseErrorAndNoBus(t *testing.T) {
	evt := NewRecorder(nil).Record(context.Background(), "", "SELEC", time.Now(), nil, errors.New("boom"))
	assert.Equal(t, "ParseError", evt.ErrorKind)
	assert.Equal(t, "rejected with ParseError", evt.Summary)
}

func TestNewCatalogChanged(t *testing.T) {
	evt := NewCatalogChanged(CatalogChangedPayload{Source: "sample", Streams: []string{"s1", "s2"}})
	assert.Equal(t, CatalogChanged, evt.EventType)
	assert.Equal(t, "catalog loaded from sample with 2 streams", evt.Summary)
	assert.JSONEq(t, `{"source":"sample","streams":["s1","s2"]}`, string(evt.Payload))
}
