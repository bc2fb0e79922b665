package modbusrtu

import (
	"context"
	"fmt"
	"time"

	"github.com/goburrow/modbus"

	connsdk "github.com/NotrixInc/nx-conn-sdk"
)

// Init opens the serial bus and returns the artifact the host polls with.
func Init(ctx context.Context, deps connsdk.Dependencies, cfg connsdk.ConnectionConfig) (*connsdk.ConnectionArtifact, error) {
	c, ok := cfg.(Config)
	if !ok {
		return nil, fmt.Errorf("modbusrtu: unexpected config type %T", cfg)
	}

	h, err := newHandler(c)
	if err != nil {
		return nil, err
	}
	conn := newConnection(c, deps.Logger)
	conn.handler = h
	conn.client = modbus.NewClient(h)

	return &connsdk.ConnectionArtifact{
		Driver:         conn,
		MaxRetryCount:  c.MaxRetryCount,
		UpdateInterval: time.Duration(c.IntervalMs) * time.Millisecond,
		Timeout:        c.timeout(),
		Stats:          connsdk.NewConnectionStats(c.Device, c.PortNote),
	}, nil
}

// Spec is the family descriptor for tooling and UX.
func Spec() connsdk.FamilySpec {
	return connsdk.FamilySpec{
		SchemaVersion: 1,
		Family:        FamilyName,
		Names:         Names,
		Description:   "Register-oriented Modbus RTU devices on a shared serial bus",
		DataTypes: []string{
			string(TypeUint16), string(TypeInt16),
			string(TypeUint32), string(TypeInt32),
			string(TypeFloat32), string(TypeBool),
		},
		Supports: map[string]bool{
			"write":        true,
			"auto_refresh": true,
			"reconnect":    true,
		},
	}
}

// Register adds the family to the default registry. Hosts call this once at
// startup for every compiled-in family.
func Register() error {
	return connsdk.RegisterFamily(connsdk.Family{
		Names:     Names,
		NewConfig: NewConfig,
		NewTarget: NewTarget,
		Init:      Init,
	})
}
