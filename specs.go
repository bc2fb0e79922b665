package connsdk

import (
	"encoding/json"
	"fmt"
)

// Standard filename of a family's descriptor inside its package directory.
const FamilySpecFileName = "family.json"

// FamilySpec describes a device family to humans and tooling.
//
// This file is intended for humans + tooling/UX. Keep it forward-compatible:
// - Prefer adding fields over changing existing meanings.
// - Use SchemaVersion for evolution.
type FamilySpec struct {
	SchemaVersion int `json:"schema_version"`

	// Family is the primary device-type name; Names lists every device-type
	// name the family serves (must include Family).
	Family string   `json:"family"`
	Names  []string `json:"names,omitempty"`

	Version     string `json:"version,omitempty"`
	Description string `json:"description,omitempty"`

	// DataTypes the family's points can decode to.
	DataTypes []string `json:"data_types,omitempty"`

	// Optional feature flags/tooling hints, e.g. "write", "auto_refresh".
	Supports map[string]bool `json:"supports,omitempty"`

	// Free-form extension point.
	Meta map[string]any `json:"meta,omitempty"`
}

// Validate checks the fields tooling relies on. The runtime registry is the
// authority on names; the descriptor is informational only.
func (s FamilySpec) Validate() error {
	if s.SchemaVersion < 1 {
		return fmt.Errorf("family spec: schema_version must be >= 1")
	}
	if s.Family == "" {
		return fmt.Errorf("family spec: family is required")
	}
	for _, n := range s.Names {
		if n == s.Family {
			return nil
		}
	}
	return fmt.Errorf("family spec %q: names must include the family name", s.Family)
}

// ParseFamilySpec decodes and validates a family descriptor.
func ParseFamilySpec(data []byte) (FamilySpec, error) {
	var s FamilySpec
	if err := json.Unmarshal(data, &s); err != nil {
		return FamilySpec{}, fmt.Errorf("parse family spec: %w", err)
	}
	if err := s.Validate(); err != nil {
		return FamilySpec{}, err
	}
	return s, nil
}
