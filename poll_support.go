package connsdk

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// ExternalRequest is a request submitted from outside the polling loop
// (API, RPC, subscription handlers). It targets a bound point by name.
type ExternalRequest struct {
	// Name of the point, as returned by InitTargets.
	Name string

	// Request optionally overrides the point's bound request. When nil the
	// bound request is used. The runner always dispatches a clone, never
	// the bound instance itself.
	Request DeviceStateRequest

	// NewStatus, when present, is handed to Preprocess as the state the
	// request should apply.
	NewStatus *string

	// CorrelationID ties the result back to the caller; assigned
	// automatically when empty.
	CorrelationID string
}

// ExternalResult is delivered on the channel returned by Submit.
type ExternalResult struct {
	CorrelationID string
	Response      DeviceStateResponse
	Err           error
}

// RunnerStatus is a live snapshot of one connection's polling state.
type RunnerStatus struct {
	IsRunning           bool      `json:"is_running"`
	ConnectionStatus    string    `json:"connection_status"`
	LastCycleTime       time.Time `json:"last_cycle_time,omitempty"`
	LastSuccessTime     time.Time `json:"last_success_time,omitempty"`
	LastErrorTime       time.Time `json:"last_error_time,omitempty"`
	LastError           string    `json:"last_error,omitempty"`
	ConsecutiveFailures int       `json:"consecutive_failures"`
	Reconnects          int64     `json:"reconnects"`
}

// RunnerOptions contains configuration for the connection runner.
type RunnerOptions struct {
	// Logger for cycle events.
	Logger Logger

	// Clock used for latency measurement; defaults to the system clock.
	Clock Clock

	// Sink receives polled values; defaults to a no-op sink.
	Sink ValueSink

	// QueueSize bounds the external request queue (default 16).
	QueueSize int

	// OnSuccess callback after a point is polled successfully.
	OnSuccess func(name string)

	// OnError callback after a polling failure.
	OnError func(name string, err error)

	// OnReconnect callback after a reconnect attempt; err is nil when the
	// attempt succeeded.
	OnReconnect func(err error)
}

type pendingRequest struct {
	req      ExternalRequest
	target   *InitedTarget
	resultCh chan ExternalResult
}

type reconfigRequest struct {
	cfg  ConnectionConfig
	done chan error
}

// ConnectionRunner drives one connection's lifecycle: a single goroutine
// services external requests first-arrived-first-served ahead of a stable
// auto-refresh rotation, records outcomes into the per-point statistics, and
// reconnects after the configured failure threshold.
//
// Because one goroutine owns the whole lifecycle, RequestProcess calls for
// this connection are never concurrent with each other. A cycle the runner
// cannot service within the interval (overload, clock skew) is skipped
// entirely: the ticker coalesces missed ticks and nothing is recorded.
type ConnectionRunner struct {
	art     *ConnectionArtifact
	targets ConnectionTargets
	auto    []*InitedTarget
	byName  map[string]*InitedTarget
	opts    RunnerOptions

	mu                  sync.RWMutex
	running             atomic.Bool
	connStatus          string
	lastCycleTime       time.Time
	lastSuccessTime     time.Time
	lastErrorTime       time.Time
	lastError           error
	consecutiveFailures int
	reconnects          int64
	rotation            int

	external chan pendingRequest
	reconfig chan reconfigRequest
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// NewConnectionRunner creates a runner for an initialized connection and its
// bound points. Points not present in targets are unknown to the runner:
// they are never polled and never queryable.
func NewConnectionRunner(art *ConnectionArtifact, targets ConnectionTargets, opts RunnerOptions) *ConnectionRunner {
	if opts.Logger == nil {
		opts.Logger = NewStdLogger()
	}
	if opts.Clock == nil {
		opts.Clock = NewSystemClock()
	}
	if opts.Sink == nil {
		opts.Sink = NewNoopSink()
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 16
	}
	if art.UpdateInterval <= 0 {
		art.UpdateInterval = 5 * time.Second
	}
	if art.Timeout <= 0 {
		art.Timeout = art.UpdateInterval
	}

	r := &ConnectionRunner{
		art:        art,
		targets:    targets,
		byName:     make(map[string]*InitedTarget, len(targets)),
		opts:       opts,
		connStatus: ConnectionStatusConnecting,
		external:   make(chan pendingRequest, opts.QueueSize),
		reconfig:   make(chan reconfigRequest),
		stopCh:     make(chan struct{}),
	}
	for i := range r.targets {
		t := &r.targets[i]
		r.byName[t.Name] = t
		if t.AutoRefresh {
			r.auto = append(r.auto, t)
		}
	}
	return r
}

// Start begins the polling loop. Points carrying a default status are
// published to the sink first, so external consumers see a value before the
// first poll completes.
func (r *ConnectionRunner) Start(ctx context.Context) {
	if r.running.Swap(true) {
		return // Already running
	}

	r.publishDefaults(ctx)

	r.mu.Lock()
	r.stopCh = make(chan struct{})
	r.mu.Unlock()
	r.wg.Add(1)
	go r.loop(ctx)
}

// Stop stops the polling loop and waits for the in-flight cycle to settle.
// Requests still queued when the loop exits are replied to with
// ErrRunnerStopped, so every Submit channel keeps its one-result promise.
func (r *ConnectionRunner) Stop() {
	if !r.running.Swap(false) {
		return // Not running
	}
	close(r.stopChan())
	r.wg.Wait()

	for {
		select {
		case p := <-r.external:
			r.reply(p, ExternalResult{CorrelationID: p.req.CorrelationID, Err: ErrRunnerStopped})
			continue
		default:
		}
		break
	}

	r.mu.Lock()
	r.connStatus = ConnectionStatusOffline
	r.mu.Unlock()
}

// stopChan returns the current stop channel. Start replaces the channel on
// restart, so concurrent readers must go through here.
func (r *ConnectionRunner) stopChan() chan struct{} {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.stopCh
}

// IsRunning returns true while the polling loop is active.
func (r *ConnectionRunner) IsRunning() bool {
	return r.running.Load()
}

// ConsecutiveFailures returns the current consecutive failure count.
func (r *ConnectionRunner) ConsecutiveFailures() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.consecutiveFailures
}

// LastError returns the most recent polling error.
func (r *ConnectionRunner) LastError() error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lastError
}

// Status returns a snapshot of the runner state.
func (r *ConnectionRunner) Status() RunnerStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()

	status := RunnerStatus{
		IsRunning:           r.running.Load(),
		ConnectionStatus:    r.connStatus,
		LastCycleTime:       r.lastCycleTime,
		LastSuccessTime:     r.lastSuccessTime,
		LastErrorTime:       r.lastErrorTime,
		ConsecutiveFailures: r.consecutiveFailures,
		Reconnects:          r.reconnects,
	}
	if r.lastError != nil {
		status.LastError = r.lastError.Error()
	}
	return status
}

// Submit queues an external request. Requests are serviced in arrival order,
// ahead of auto-refresh polling. The returned channel delivers exactly one
// ExternalResult.
func (r *ConnectionRunner) Submit(ctx context.Context, req ExternalRequest) (<-chan ExternalResult, error) {
	if !r.running.Load() {
		return nil, ErrRunnerStopped
	}
	t, ok := r.byName[req.Name]
	if !ok {
		return nil, ErrNoTarget
	}
	if req.CorrelationID == "" {
		req.CorrelationID = uuid.New().String()
	}

	p := pendingRequest{
		req:      req,
		target:   t,
		resultCh: make(chan ExternalResult, 1),
	}
	select {
	case r.external <- p:
		return p.resultCh, nil
	default:
		return nil, ErrQueueFull
	}
}

// UpdateConfig hands a new configuration to the polling goroutine, which
// applies it between cycles via the driver's UpdateConfig. On error the
// connection keeps operating under its prior configuration and the error is
// returned to the caller.
func (r *ConnectionRunner) UpdateConfig(ctx context.Context, cfg ConnectionConfig) error {
	if !r.running.Load() {
		return ErrRunnerStopped
	}
	rc := reconfigRequest{cfg: cfg, done: make(chan error, 1)}
	select {
	case r.reconfig <- rc:
	case <-r.stopChan():
		return ErrRunnerStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-rc.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *ConnectionRunner) publishDefaults(ctx context.Context) {
	for i := range r.targets {
		t := &r.targets[i]
		if t.DefaultStatus == nil {
			continue
		}
		v := PointValue{
			Name:   t.Name,
			Value:  t.DefaultStatus,
			Result: t.Result,
			At:     r.opts.Clock.Now(),
		}
		if err := r.opts.Sink.PublishValue(ctx, v); err != nil {
			r.opts.Logger.Warn("publish default status failed", "point", t.Name, "err", err)
		}
	}
}

func (r *ConnectionRunner) loop(ctx context.Context) {
	defer r.wg.Done()

	// Initial cycle, then fixed-interval ticks.
	r.runCycleChain(ctx)

	ticker := time.NewTicker(r.art.UpdateInterval)
	defer ticker.Stop()

	for {
		select {
		case rc := <-r.reconfig:
			r.applyReconfig(ctx, rc)
		case <-ticker.C:
			r.runCycleChain(ctx)
		case <-r.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

// runCycleChain services one cycle, continuing immediately while the driver
// waives the inter-request wait (honor-wait false).
func (r *ConnectionRunner) runCycleChain(ctx context.Context) {
	for r.cycle(ctx) {
		select {
		case <-r.stopCh:
			return
		case <-ctx.Done():
			return
		default:
		}
	}
}

// cycle services one operation: the oldest pending external request if any,
// otherwise the next auto-refresh point in rotation. The return value is
// true when the next operation should proceed without waiting for the tick.
func (r *ConnectionRunner) cycle(ctx context.Context) bool {
	r.mu.Lock()
	r.lastCycleTime = r.opts.Clock.Now()
	r.mu.Unlock()

	select {
	case p := <-r.external:
		return r.serviceExternal(ctx, p)
	default:
	}

	t := r.nextAutoTarget()
	if t == nil {
		return false
	}
	return r.serviceTarget(ctx, t, t.Request.CloneRequest(), nil)
}

func (r *ConnectionRunner) nextAutoTarget() *InitedTarget {
	if len(r.auto) == 0 {
		return nil
	}
	r.mu.Lock()
	t := r.auto[r.rotation%len(r.auto)]
	r.rotation++
	r.mu.Unlock()
	return t
}

func (r *ConnectionRunner) serviceExternal(ctx context.Context, p pendingRequest) bool {
	req := p.req.Request
	if req == nil {
		req = p.target.Request
	}

	pre, err := r.art.Driver.Preprocess(req.CloneRequest(), p.req.NewStatus)
	if err != nil {
		// The device was never contacted: the cycle is dropped without
		// touching the failure counters or the retry threshold.
		r.opts.Logger.Warn("preprocess failed", "point", p.target.Name, "err", err)
		r.reply(p, ExternalResult{CorrelationID: p.req.CorrelationID, Err: err})
		return false
	}
	return r.serviceTarget(ctx, p.target, pre, &p)
}

func (r *ConnectionRunner) serviceTarget(ctx context.Context, t *InitedTarget, req DeviceStateRequest, p *pendingRequest) bool {
	start := r.opts.Clock.Now()
	resp, honorWait, err := r.dispatch(ctx, req)
	latency := r.opts.Clock.Now().Sub(start).Milliseconds()

	if err != nil {
		r.recordFailure(t, err)
		if p != nil {
			r.reply(*p, ExternalResult{CorrelationID: p.req.CorrelationID, Err: err})
		}
		r.maybeReconnect(ctx)
		return false
	}

	post, err := r.art.Driver.Postprocess(req, resp)
	if err != nil {
		// The device answered; the conversion failed. Dropped for this
		// cycle only, not counted as a polling failure.
		r.opts.Logger.Warn("postprocess failed", "point", t.Name, "err", err)
		if p != nil {
			r.reply(*p, ExternalResult{CorrelationID: p.req.CorrelationID, Err: err})
		}
		return !honorWait
	}

	r.recordSuccess(t, latency)

	v := PointValue{
		Name:   t.Name,
		Value:  post.ToValue(),
		Result: t.Result,
		At:     r.opts.Clock.Now(),
	}
	if err := r.opts.Sink.PublishValue(ctx, v); err != nil {
		r.opts.Logger.Warn("publish value failed", "point", t.Name, "err", err)
	}

	if p != nil {
		r.reply(*p, ExternalResult{CorrelationID: p.req.CorrelationID, Response: post})
	}
	return !honorWait
}

// dispatch runs one RequestProcess call bounded by the artifact's Timeout.
// On expiry the call is abandoned: the result of the still-running goroutine
// is discarded, and the driver must keep subsequent calls safe while the
// abandoned I/O drains.
func (r *ConnectionRunner) dispatch(ctx context.Context, req DeviceStateRequest) (DeviceStateResponse, bool, error) {
	callCtx, cancel := context.WithTimeout(ctx, r.art.Timeout)
	defer cancel()

	type outcome struct {
		resp      DeviceStateResponse
		honorWait bool
		err       error
	}
	ch := make(chan outcome, 1)
	go func() {
		resp, honorWait, err := r.art.Driver.RequestProcess(callCtx, req)
		ch <- outcome{resp: resp, honorWait: honorWait, err: err}
	}()

	select {
	case o := <-ch:
		return o.resp, o.honorWait, o.err
	case <-callCtx.Done():
		if ctx.Err() != nil {
			return nil, true, ctx.Err()
		}
		return nil, true, ErrRequestTimeout
	}
}

func (r *ConnectionRunner) recordSuccess(t *InitedTarget, latencyMs int64) {
	if t.Stats != nil {
		t.Stats.RecordSuccess(latencyMs)
	}

	r.mu.Lock()
	r.lastError = nil
	r.lastSuccessTime = r.opts.Clock.Now()
	r.consecutiveFailures = 0
	r.connStatus = ConnectionStatusOnline
	r.mu.Unlock()

	if r.opts.OnSuccess != nil {
		r.opts.OnSuccess(t.Name)
	}
}

func (r *ConnectionRunner) recordFailure(t *InitedTarget, err error) {
	if t.Stats != nil {
		t.Stats.RecordFailure()
	}

	r.mu.Lock()
	r.lastError = err
	r.lastErrorTime = r.opts.Clock.Now()
	r.consecutiveFailures++
	r.connStatus = ConnectionStatusError
	failures := r.consecutiveFailures
	r.mu.Unlock()

	r.opts.Logger.Error("poll failed", "point", t.Name, "err", err, "consecutive_failures", failures)

	if r.opts.OnError != nil {
		r.opts.OnError(t.Name, err)
	}
}

// maybeReconnect calls the driver's Reconnect once when the consecutive
// failure count reaches the threshold. The counter resets after the attempt
// whether it succeeded or not: a failed reconnect leaves the connection
// failed until the next threshold trigger. MaxRetryCount 0 disables
// automatic reconnection entirely.
func (r *ConnectionRunner) maybeReconnect(ctx context.Context) {
	if r.art.MaxRetryCount <= 0 {
		return
	}

	r.mu.Lock()
	if r.consecutiveFailures < r.art.MaxRetryCount {
		r.mu.Unlock()
		return
	}
	r.consecutiveFailures = 0
	r.reconnects++
	r.connStatus = ConnectionStatusConnecting
	r.mu.Unlock()

	err := r.art.Driver.Reconnect(ctx)
	if err != nil {
		r.opts.Logger.Error("reconnect failed", "err", err)
		r.mu.Lock()
		r.connStatus = ConnectionStatusError
		r.mu.Unlock()
	} else {
		r.opts.Logger.Info("reconnected")
		r.mu.Lock()
		r.connStatus = ConnectionStatusOnline
		r.mu.Unlock()
	}

	if r.opts.OnReconnect != nil {
		r.opts.OnReconnect(err)
	}
}

func (r *ConnectionRunner) applyReconfig(ctx context.Context, rc reconfigRequest) {
	err := r.art.Driver.UpdateConfig(ctx, rc.cfg)
	if err != nil {
		r.opts.Logger.Error("update config failed, keeping prior configuration", "err", err)
	} else {
		r.opts.Logger.Info("configuration updated")
	}
	rc.done <- err
}

func (r *ConnectionRunner) reply(p pendingRequest, res ExternalResult) {
	if p.resultCh == nil {
		return
	}
	select {
	case p.resultCh <- res:
	default:
	}
}
