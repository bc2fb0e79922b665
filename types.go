package connsdk

import (
	"encoding/json"
	"time"
)

// Connection status constants reported by the runner.
const (
	ConnectionStatusOnline     = "online"
	ConnectionStatusOffline    = "offline"
	ConnectionStatusConnecting = "connecting"
	ConnectionStatusError      = "error"
)

// ConnectionArtifact is the result of a successful family Init: the ready
// driver instance plus the polling policy the host applies to it.
// One artifact is created per successful init and owned by the host until
// the connection is replaced or torn down.
type ConnectionArtifact struct {
	// Driver is the established device connection.
	Driver Connection

	// MaxRetryCount is the number of consecutive request failures after
	// which the host calls Reconnect. 0 disables automatic reconnection.
	MaxRetryCount int

	// UpdateInterval is the fixed polling interval.
	UpdateInterval time.Duration

	// Timeout bounds a single RequestProcess call. A call exceeding it is
	// abandoned and recorded as a failure.
	Timeout time.Duration

	// Stats is the connection-level statistics index. InitTargets registers
	// per-point handles into it.
	Stats *ConnectionStats
}

// InitedTarget is one bound, runnable point produced by InitTargets. It
// lives for the connection's runtime lifetime.
type InitedTarget struct {
	// Name identifies the point toward the host and external services.
	Name string

	// Request is the bound request used to poll this point.
	Request DeviceStateRequest

	// Result carries whatever family-specific information external services
	// need when the point's value is propagated (units, data type, ...).
	Result any

	// DefaultStatus, when non-nil, is the value shown for the point before
	// its first successful poll.
	DefaultStatus json.RawMessage

	// AutoRefresh marks the point for scheduled polling; on-demand points
	// are only serviced through external requests.
	AutoRefresh bool

	// Stats is the shared per-point statistics handle, nil if the family
	// did not opt in. The same instance is indexed in the connection's
	// ConnectionStats.
	Stats *TargetStats
}

// ConnectionTargets is the full set of points bound to one connection.
type ConnectionTargets []InitedTarget

// AutoRefreshed returns the points polled on a schedule, in stable order.
func (ts ConnectionTargets) AutoRefreshed() ConnectionTargets {
	out := make(ConnectionTargets, 0, len(ts))
	for _, t := range ts {
		if t.AutoRefresh {
			out = append(out, t)
		}
	}
	return out
}

// OnDemand returns the points serviced only through external requests.
func (ts ConnectionTargets) OnDemand() ConnectionTargets {
	out := make(ConnectionTargets, 0, len(ts))
	for _, t := range ts {
		if !t.AutoRefresh {
			out = append(out, t)
		}
	}
	return out
}

// PointValue is what the runner hands to the host's ValueSink after a
// successful poll (or for a point's default status at startup).
type PointValue struct {
	Name   string
	Value  json.RawMessage
	Result any
	At     time.Time
}
