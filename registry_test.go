package connsdk

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testFamily(names ...string) Family {
	return Family{
		Names: names,
		Init: func(ctx context.Context, deps Dependencies, cfg ConnectionConfig) (*ConnectionArtifact, error) {
			return &ConnectionArtifact{}, nil
		},
	}
}

func TestRegistryRegisterAndLookup(t *testing.T) {
	r := NewFamilyRegistry()
	require.NoError(t, r.Register(testFamily("modbus_rtu", "modbus_rtu_meter")))

	f, ok := r.Lookup("modbus_rtu_meter")
	require.True(t, ok)
	assert.Equal(t, []string{"modbus_rtu", "modbus_rtu_meter"}, f.Names)

	_, ok = r.Lookup("bacnet")
	assert.False(t, ok)

	assert.Equal(t, []string{"modbus_rtu", "modbus_rtu_meter"}, r.Names())
}

func TestRegistryRejectsInvalidFamilies(t *testing.T) {
	r := NewFamilyRegistry()
	assert.Error(t, r.Register(Family{}), "no names")
	assert.Error(t, r.Register(Family{Names: []string{"x"}}), "no Init")
}

func TestRegistryConflict(t *testing.T) {
	r := NewFamilyRegistry()
	require.NoError(t, r.Register(testFamily("modbus_rtu")))

	err := r.Register(testFamily("modbus_rtu", "other"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrFamilyConflict)

	// The conflicting registration must not have claimed its other names.
	_, ok := r.Lookup("other")
	assert.False(t, ok)
}

func TestRegistryMatch(t *testing.T) {
	r := NewFamilyRegistry()
	require.NoError(t, r.Register(testFamily("modbus_rtu", "modbus_rtu_meter")))
	require.NoError(t, r.Register(testFamily("bacnet")))

	f, err := r.Match([]string{"modbus_rtu", "modbus_rtu_meter"})
	require.NoError(t, err)
	assert.Equal(t, []string{"modbus_rtu", "modbus_rtu_meter"}, f.Names)

	_, err = r.Match([]string{"modbus_rtu", "bacnet"})
	assert.Error(t, err, "device types spanning families must be rejected")

	_, err = r.Match([]string{"modbus_rtu", "unknown"})
	assert.ErrorIs(t, err, ErrUnknownFamily)

	_, err = r.Match(nil)
	assert.Error(t, err)
}
