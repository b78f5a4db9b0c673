package eventbus

import (
	"context"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"github.com/matthewbaird/ksqlplan/internal/event"
)

// LogConsumer logs every planner event. Rejections log at warn level.
type LogConsumer struct {
	logger log.Logger
}

func NewLogConsumer(logger log.Logger) *LogConsumer {
	return &LogConsumer{logger: logger}
}

func (c *LogConsumer) HandleEvent(_ context.Context, evt event.PlanEvent) error {
	kv := []any{
		"msg", evt.Summary,
		"event", evt.EventType,
		"id", evt.ID,
		"duration", evt.Duration,
	}
	if evt.SessionID != "" {
		kv = append(kv, "session", evt.SessionID)
	}
	if evt.Statement != "" {
		kv = append(kv, "statement", evt.Statement)
	}
	if evt.EventType == event.StatementRejected {
		kv = append(kv, "kind", evt.ErrorKind)
		return level.Warn(c.logger).Log(kv...)
	}
	return level.Info(c.logger).Log(kv...)
}
