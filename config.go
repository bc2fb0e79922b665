package connsdk

import (
	"encoding/json"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// JSONConfig is an opaque JSON blob carrying raw family-specific parameters.
// A family's NewConfig decodes it into its strongly typed ConnectionConfig.
type JSONConfig struct {
	raw json.RawMessage
}

func NewJSONConfig(raw []byte) JSONConfig { return JSONConfig{raw: raw} }

func (c JSONConfig) Raw() []byte { return c.raw }

func (c JSONConfig) Decode(v any) error {
	if len(c.raw) == 0 {
		return fmt.Errorf("empty config")
	}
	return json.Unmarshal(c.raw, v)
}

// GatewayConfig is the persisted gateway definition: one entry per physical
// connection, each with its raw family parameters and point definitions.
type GatewayConfig struct {
	Connections []ConnectionDef `yaml:"connections"`
}

// ConnectionDef describes one physical connection. Params is the raw
// family-specific parameter block, passed through JSONConfig to the family
// selected by DeviceTypes.
type ConnectionDef struct {
	ID          string         `yaml:"id"`
	DeviceTypes []string       `yaml:"device_types"`
	Params      map[string]any `yaml:"params"`
	Points      []PointDef     `yaml:"points"`
}

// PointDef describes one point on a connection. Params holds the raw
// family-specific point fields; the family's NewTarget converts them into a
// typed Target.
type PointDef struct {
	Name       string         `yaml:"name"`
	DeviceType string         `yaml:"device_type"`
	Params     map[string]any `yaml:"params"`
}

// LoadGatewayConfig reads and parses a YAML gateway definition file.
func LoadGatewayConfig(path string) (*GatewayConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read gateway config: %w", err)
	}
	return ParseGatewayConfig(data)
}

// ParseGatewayConfig parses a YAML gateway definition.
func ParseGatewayConfig(data []byte) (*GatewayConfig, error) {
	var cfg GatewayConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse gateway config: %w", err)
	}
	seen := make(map[string]bool, len(cfg.Connections))
	for i, conn := range cfg.Connections {
		if conn.ID == "" {
			return nil, fmt.Errorf("connection %d: id is required", i)
		}
		if seen[conn.ID] {
			return nil, fmt.Errorf("connection %q: duplicate id", conn.ID)
		}
		seen[conn.ID] = true
		if len(conn.DeviceTypes) == 0 {
			return nil, fmt.Errorf("connection %q: at least one device type is required", conn.ID)
		}
	}
	return &cfg, nil
}

// Config bridges the raw YAML parameter block into the JSONConfig a family
// decodes.
func (d ConnectionDef) Config() JSONConfig {
	return rawParams(d.Params)
}

// Config bridges the raw YAML point parameters into the JSONConfig a
// family's NewTarget decodes.
func (d PointDef) Config() JSONConfig {
	return rawParams(d.Params)
}

func rawParams(params map[string]any) JSONConfig {
	if len(params) == 0 {
		return NewJSONConfig([]byte("{}"))
	}
	b, err := json.Marshal(params)
	if err != nil {
		// YAML mappings decode to JSON-marshalable values; non-marshalable
		// params only arise from hand-built configs.
		return NewJSONConfig([]byte("{}"))
	}
	return NewJSONConfig(b)
}
