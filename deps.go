package connsdk

import (
	"context"
	"time"
)

// ValueSink receives polled point values from the runner. The host wires it
// to whatever consumes device state (API layer, RPC surface, message broker).
type ValueSink interface {
	PublishValue(ctx context.Context, v PointValue) error
}

// Dependencies are host-provided collaborators handed to a family's Init.
type Dependencies struct {
	Sink   ValueSink
	Logger Logger
	Clock  Clock
}

type Logger interface {
	Debug(msg string, kv ...any)
	Info(msg string, kv ...any)
	Warn(msg string, kv ...any)
	Error(msg string, kv ...any)
}

type Clock interface {
	Now() time.Time
}
