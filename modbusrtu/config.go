// Package modbusrtu is the reference device family for the connection SDK:
// register-oriented Modbus RTU devices on a shared serial bus.
package modbusrtu

import (
	"fmt"
	"time"

	connsdk "github.com/NotrixInc/nx-conn-sdk"
)

// FamilyName is the primary device-type name of this family.
const FamilyName = "modbus_rtu"

// Names lists every device-type name the family serves. All devices on one
// serial bus must carry one of these types.
var Names = []string{FamilyName, "modbus_rtu_meter", "modbus_rtu_sensor"}

// Config is the serial-line configuration for one Modbus RTU bus.
type Config struct {
	// Device is the serial device path, e.g. "/dev/ttyUSB0".
	Device string `json:"device" yaml:"device"`

	BaudRate int    `json:"baud_rate" yaml:"baud_rate"`
	DataBits int    `json:"data_bits" yaml:"data_bits"`
	Parity   string `json:"parity" yaml:"parity"` // "N", "E" or "O"
	StopBits int    `json:"stop_bits" yaml:"stop_bits"`

	// TimeoutMs bounds a single register exchange.
	TimeoutMs int `json:"timeout_ms" yaml:"timeout_ms"`

	// IntervalMs is the polling interval the host applies.
	IntervalMs int `json:"interval_ms" yaml:"interval_ms"`

	// MaxRetryCount is the consecutive-failure threshold for automatic
	// reconnection; 0 disables it.
	MaxRetryCount int `json:"max_retry_count" yaml:"max_retry_count"`

	// PortNote is optional operator information surfaced in statistics.
	PortNote string `json:"port_note" yaml:"port_note"`
}

func (Config) Family() string { return FamilyName }

func (c Config) withDefaults() Config {
	if c.BaudRate == 0 {
		c.BaudRate = 9600
	}
	if c.DataBits == 0 {
		c.DataBits = 8
	}
	if c.Parity == "" {
		c.Parity = "N"
	}
	if c.StopBits == 0 {
		c.StopBits = 1
	}
	if c.TimeoutMs <= 0 {
		c.TimeoutMs = 1000
	}
	if c.IntervalMs <= 0 {
		c.IntervalMs = 1000
	}
	return c
}

func (c Config) validate() error {
	if c.Device == "" {
		return fmt.Errorf("modbusrtu: device is required")
	}
	switch c.Parity {
	case "N", "E", "O":
	default:
		return fmt.Errorf("modbusrtu: invalid parity %q", c.Parity)
	}
	return nil
}

func (c Config) timeout() time.Duration { return time.Duration(c.TimeoutMs) * time.Millisecond }

// NewConfig decodes raw connection parameters into a Config.
func NewConfig(raw connsdk.JSONConfig) (connsdk.ConnectionConfig, error) {
	var c Config
	if err := raw.Decode(&c); err != nil {
		return nil, fmt.Errorf("modbusrtu: decode config: %w", err)
	}
	c = c.withDefaults()
	if err := c.validate(); err != nil {
		return nil, err
	}
	return c, nil
}
