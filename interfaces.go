package connsdk

import (
	"context"
	"encoding/json"
)

// ConnectionConfig carries the immutable parameters a device family needs to
// reach its hardware (serial port, baud rate, endpoint address, ...).
// Configs are data only: the host builds one from persisted configuration,
// hands it to the family's Init, and replaces it wholesale via UpdateConfig.
type ConnectionConfig interface {
	// Family returns the device-family name this config belongs to.
	Family() string
}

// Target is one raw, unprocessed point definition. A device may expose many
// points (e.g. one Modbus register per function). Targets are consumed by
// Connection.InitTargets, which converts them into executable requests.
//
// Each family defines a closed set of concrete target types; CloneTarget is
// the explicit per-type duplication operation.
type Target interface {
	CloneTarget() Target
}

// DeviceStateRequest is a concrete, executable request against the device.
// Created by InitTargets, optionally rewritten by Preprocess, consumed by
// RequestProcess.
type DeviceStateRequest interface {
	CloneRequest() DeviceStateRequest
}

// DeviceStateResponse is the hardware reply produced by RequestProcess and
// refined by Postprocess.
type DeviceStateResponse interface {
	CloneResponse() DeviceStateResponse

	// ToValue converts the response into the generic value format the host
	// serializes outward. It is the sole bridge from the family's typed
	// response to the external API surface.
	ToValue() json.RawMessage
}

// Connection is the lifecycle protocol a device family implements to plug
// into the host's polling scheduler.
//
// The host drives one Connection from a single goroutine: RequestProcess
// calls for a given connection are never concurrent with each other. That
// goroutine is the mutual-exclusion boundary for device access.
//
// Establishing the connection is not part of this interface: a family
// registers an Init constructor (see Family) that returns a
// ConnectionArtifact wrapping the ready Connection.
//
// Operations taking a context.Context may suspend awaiting I/O;
// InitTargets, Preprocess and Postprocess must not block.
type Connection interface {
	// Names lists the device-type names this family serves. The host checks
	// every configured device type of a connection against this list before
	// selecting the family; all types on one physical connection must belong
	// to a single family.
	Names() []string

	// InitTargets converts raw points into executable requests and flags
	// each one for auto-refresh or on-demand servicing. It never fails as a
	// whole: a point that cannot be converted is logged and dropped, and
	// points not returned are silently ignored by the host.
	//
	// If persistent statistics are desired for a point, register a new
	// TargetStats on stats and keep the returned handle on the InitedTarget.
	InitTargets(stats *ConnectionStats, targets []Target) ConnectionTargets

	// Preprocess runs synchronously before an external request is
	// dispatched, after the host has validated it. newStatus, when present,
	// is the new state the request should apply. The default is identity
	// (see BaseConnection).
	Preprocess(req DeviceStateRequest, newStatus *string) (DeviceStateRequest, error)

	// RequestProcess performs the actual device exchange. It is bounded by
	// the artifact's Timeout; an overrun call is abandoned by the host and
	// recorded as a failure, and the driver must keep subsequent calls safe
	// after an abandoned in-flight call.
	//
	// The returned bool is honor-wait: true tells the host to observe the
	// normal inter-request interval, false to proceed immediately to the
	// next operation.
	RequestProcess(ctx context.Context, req DeviceStateRequest) (DeviceStateResponse, bool, error)

	// Postprocess runs synchronously after a response returns, before the
	// host stores or propagates it. Used for request-specific result
	// conversion (e.g. raw register words into a typed value). The default
	// is identity (see BaseConnection).
	Postprocess(req DeviceStateRequest, resp DeviceStateResponse) (DeviceStateResponse, error)

	// Reconnect is invoked when consecutive failures reach the artifact's
	// MaxRetryCount. It must restore the connection to a usable state or
	// fail; a failed reconnect leaves the connection failed until the next
	// threshold trigger.
	Reconnect(ctx context.Context) error

	// UpdateConfig replaces the live connection's parameters without
	// tearing down point bindings. On error the connection keeps operating
	// under its prior configuration.
	UpdateConfig(ctx context.Context, cfg ConnectionConfig) error
}

// BaseConnection supplies the optional lifecycle operations with their
// default identity behavior. Families embed it and override what they need.
type BaseConnection struct{}

func (BaseConnection) Preprocess(req DeviceStateRequest, newStatus *string) (DeviceStateRequest, error) {
	return req, nil
}

func (BaseConnection) Postprocess(req DeviceStateRequest, resp DeviceStateResponse) (DeviceStateResponse, error) {
	return resp, nil
}
