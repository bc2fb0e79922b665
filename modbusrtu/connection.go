package modbusrtu

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/goburrow/modbus"

	connsdk "github.com/NotrixInc/nx-conn-sdk"
)

// Connection drives all Modbus RTU devices sharing one serial bus.
type Connection struct {
	connsdk.BaseConnection

	logger connsdk.Logger

	// mu guards the handler and client. The host serializes normal calls,
	// but an abandoned in-flight RequestProcess may still be touching the
	// serial line when the next call arrives.
	mu      sync.Mutex
	cfg     Config
	handler *modbus.RTUClientHandler
	client  modbus.Client
}

// newConnection builds the connection shell; the caller attaches the opened
// handler and client. A host handing empty Dependencies still gets a working
// logger.
func newConnection(cfg Config, logger connsdk.Logger) *Connection {
	if logger == nil {
		logger = connsdk.NewStdLogger()
	}
	return &Connection{logger: logger, cfg: cfg}
}

func newHandler(cfg Config) (*modbus.RTUClientHandler, error) {
	h := modbus.NewRTUClientHandler(cfg.Device)
	h.BaudRate = cfg.BaudRate
	h.DataBits = cfg.DataBits
	h.Parity = cfg.Parity
	h.StopBits = cfg.StopBits
	h.Timeout = cfg.timeout()
	if err := h.Connect(); err != nil {
		return nil, fmt.Errorf("modbusrtu: open %s: %w", cfg.Device, err)
	}
	return h, nil
}

func (c *Connection) Names() []string { return Names }

// InitTargets binds typed points into runnable requests. Points of a foreign
// type or failing validation are logged and dropped.
func (c *Connection) InitTargets(stats *connsdk.ConnectionStats, targets []connsdk.Target) connsdk.ConnectionTargets {
	out := make(connsdk.ConnectionTargets, 0, len(targets))
	for _, raw := range targets {
		p, ok := raw.(*Point)
		if !ok {
			c.logger.Warn("dropping non-modbus target", "type", fmt.Sprintf("%T", raw))
			continue
		}
		if err := p.validate(); err != nil {
			c.logger.Warn("dropping invalid point", "point", p.Name, "err", err)
			continue
		}

		var ts *connsdk.TargetStats
		if stats != nil {
			ts = stats.RegisterTarget(strconv.Itoa(int(p.SlaveID)))
		}
		out = append(out, connsdk.InitedTarget{
			Name: p.Name,
			Request: &Request{
				SlaveID:      p.SlaveID,
				FunctionCode: p.FunctionCode,
				Address:      p.Address,
				Quantity:     wordCount(p.DataType),
				DataType:     p.DataType,
			},
			Result: Result{
				DeviceType: p.DeviceType,
				DataType:   p.DataType,
				Unit:       p.Unit,
			},
			DefaultStatus: p.DefaultStatus,
			AutoRefresh:   p.AutoRefresh,
			Stats:         ts,
		})
	}
	return out
}

// Preprocess rewrites a read request into a single-register write when the
// external request carries a new status.
func (c *Connection) Preprocess(req connsdk.DeviceStateRequest, newStatus *string) (connsdk.DeviceStateRequest, error) {
	if newStatus == nil {
		return req, nil
	}
	r, ok := req.(*Request)
	if !ok {
		return nil, fmt.Errorf("modbusrtu: unexpected request type %T", req)
	}
	word, err := encodeStatus(*newStatus, r.DataType)
	if err != nil {
		return nil, fmt.Errorf("modbusrtu: %w", err)
	}
	wr := r.CloneRequest().(*Request)
	wr.FunctionCode = fcWriteSingleRegister
	wr.Quantity = 1
	wr.WriteValue = &word
	return wr, nil
}

// RequestProcess executes one register exchange. Reads honor the polling
// interval; writes do not, so a follow-up read can confirm promptly.
func (c *Connection) RequestProcess(ctx context.Context, req connsdk.DeviceStateRequest) (connsdk.DeviceStateResponse, bool, error) {
	r, ok := req.(*Request)
	if !ok {
		return nil, true, fmt.Errorf("modbusrtu: unexpected request type %T", req)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.handler.SlaveId = r.SlaveID
	switch r.FunctionCode {
	case fcReadHoldingRegisters:
		raw, err := c.client.ReadHoldingRegisters(r.Address, r.Quantity)
		if err != nil {
			return nil, true, fmt.Errorf("modbusrtu: read holding %d/%d: %w", r.SlaveID, r.Address, err)
		}
		return &Response{RawWords: bytesToWords(raw)}, true, nil
	case fcReadInputRegisters:
		raw, err := c.client.ReadInputRegisters(r.Address, r.Quantity)
		if err != nil {
			return nil, true, fmt.Errorf("modbusrtu: read input %d/%d: %w", r.SlaveID, r.Address, err)
		}
		return &Response{RawWords: bytesToWords(raw)}, true, nil
	case fcWriteSingleRegister:
		if r.WriteValue == nil {
			return nil, true, fmt.Errorf("modbusrtu: write request without value")
		}
		raw, err := c.client.WriteSingleRegister(r.Address, *r.WriteValue)
		if err != nil {
			return nil, true, fmt.Errorf("modbusrtu: write %d/%d: %w", r.SlaveID, r.Address, err)
		}
		return &Response{RawWords: bytesToWords(raw)}, false, nil
	default:
		return nil, true, fmt.Errorf("modbusrtu: unsupported function code %d", r.FunctionCode)
	}
}

// Postprocess decodes the raw register words into the point's typed value.
func (c *Connection) Postprocess(req connsdk.DeviceStateRequest, resp connsdk.DeviceStateResponse) (connsdk.DeviceStateResponse, error) {
	r, ok := req.(*Request)
	if !ok {
		return nil, fmt.Errorf("modbusrtu: unexpected request type %T", req)
	}
	in, ok := resp.(*Response)
	if !ok {
		return nil, fmt.Errorf("modbusrtu: unexpected response type %T", resp)
	}
	value, err := decodeWords(in.RawWords, r.DataType)
	if err != nil {
		return nil, fmt.Errorf("modbusrtu: decode %d/%d: %w", r.SlaveID, r.Address, err)
	}
	out := in.CloneResponse().(*Response)
	out.Processed = value
	return out, nil
}

// Reconnect reopens the serial line under the current configuration.
func (c *Connection) Reconnect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.handler != nil {
		if err := c.handler.Close(); err != nil {
			c.logger.Debug("close before reconnect", "err", err)
		}
	}
	h, err := newHandler(c.cfg)
	if err != nil {
		return err
	}
	c.handler = h
	c.client = modbus.NewClient(h)
	return nil
}

// UpdateConfig swaps the serial parameters live. The new line is opened
// first; on failure the connection keeps its prior handler.
func (c *Connection) UpdateConfig(ctx context.Context, cfg connsdk.ConnectionConfig) error {
	next, ok := cfg.(Config)
	if !ok {
		return fmt.Errorf("modbusrtu: unexpected config type %T", cfg)
	}
	next = next.withDefaults()
	if err := next.validate(); err != nil {
		return err
	}

	h, err := newHandler(next)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.handler != nil {
		if err := c.handler.Close(); err != nil {
			c.logger.Debug("close on reconfigure", "err", err)
		}
	}
	c.cfg = next
	c.handler = h
	c.client = modbus.NewClient(h)
	return nil
}
