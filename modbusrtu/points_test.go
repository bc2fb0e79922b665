package modbusrtu

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	connsdk "github.com/NotrixInc/nx-conn-sdk"
)

func TestDecodeWords(t *testing.T) {
	tests := []struct {
		name  string
		words []uint16
		dt    DataType
		want  string
	}{
		{"uint16", []uint16{7}, TypeUint16, "7"},
		{"uint16 max", []uint16{0xFFFF}, TypeUint16, "65535"},
		{"int16 negative", []uint16{0xFFFE}, TypeInt16, "-2"},
		{"bool off", []uint16{0}, TypeBool, "false"},
		{"bool on", []uint16{1}, TypeBool, "true"},
		{"bool nonzero", []uint16{0x55}, TypeBool, "true"},
		{"uint32", []uint16{0x0001, 0x0000}, TypeUint32, "65536"},
		{"int32 negative", []uint16{0xFFFF, 0xFFFE}, TypeInt32, "-2"},
		{"float32", []uint16{0x3FC0, 0x0000}, TypeFloat32, "1.5"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := decodeWords(tc.words, tc.dt)
			require.NoError(t, err)
			assert.JSONEq(t, tc.want, string(got))
		})
	}
}

func TestDecodeWordsErrors(t *testing.T) {
	_, err := decodeWords([]uint16{1}, TypeUint32)
	assert.ErrorContains(t, err, "needs 2 words")

	_, err = decodeWords(nil, TypeUint16)
	assert.ErrorContains(t, err, "needs 1 words")

	_, err = decodeWords([]uint16{1}, DataType("string"))
	assert.ErrorContains(t, err, "unknown data type")
}

func TestEncodeStatus(t *testing.T) {
	for _, s := range []string{"on", "true", "1", "ON", " On "} {
		v, err := encodeStatus(s, TypeBool)
		require.NoError(t, err, s)
		assert.Equal(t, uint16(1), v, s)
	}
	for _, s := range []string{"off", "false", "0"} {
		v, err := encodeStatus(s, TypeBool)
		require.NoError(t, err, s)
		assert.Equal(t, uint16(0), v, s)
	}
	_, err := encodeStatus("maybe", TypeBool)
	assert.Error(t, err)

	v, err := encodeStatus("1234", TypeUint16)
	require.NoError(t, err)
	assert.Equal(t, uint16(1234), v)
	_, err = encodeStatus("70000", TypeUint16)
	assert.Error(t, err)

	v, err = encodeStatus("-2", TypeInt16)
	require.NoError(t, err)
	assert.Equal(t, uint16(0xFFFE), v)

	_, err = encodeStatus("1.5", TypeFloat32)
	assert.ErrorContains(t, err, "read-only")
	_, err = encodeStatus("1", TypeUint32)
	assert.ErrorContains(t, err, "read-only")
}

func TestBytesToWords(t *testing.T) {
	assert.Equal(t, []uint16{0x1234, 0xABCD}, bytesToWords([]byte{0x12, 0x34, 0xAB, 0xCD}))
	assert.Empty(t, bytesToWords(nil))
	// Trailing odd byte is dropped.
	assert.Equal(t, []uint16{0x1234}, bytesToWords([]byte{0x12, 0x34, 0x56}))
}

func TestCloneIndependence(t *testing.T) {
	p := &Point{
		Name:          "meter1.voltage",
		DataType:      TypeUint16,
		FunctionCode:  fcReadHoldingRegisters,
		DefaultStatus: json.RawMessage(`"unknown"`),
	}
	pc := p.CloneTarget().(*Point)
	pc.DefaultStatus[1] = 'X'
	assert.Equal(t, json.RawMessage(`"unknown"`), p.DefaultStatus)

	w := uint16(42)
	r := &Request{SlaveID: 3, WriteValue: &w}
	rc := r.CloneRequest().(*Request)
	*rc.WriteValue = 99
	assert.Equal(t, uint16(42), *r.WriteValue)

	resp := &Response{RawWords: []uint16{1, 2}, Processed: json.RawMessage(`3`)}
	respc := resp.CloneResponse().(*Response)
	respc.RawWords[0] = 9
	respc.Processed[0] = '4'
	assert.Equal(t, []uint16{1, 2}, resp.RawWords)
	assert.Equal(t, json.RawMessage(`3`), resp.Processed)
}

func TestResponseToValue(t *testing.T) {
	r := &Response{RawWords: []uint16{1, 2}}
	assert.JSONEq(t, "[1,2]", string(r.ToValue()))

	r.Processed = json.RawMessage(`1.5`)
	assert.JSONEq(t, "1.5", string(r.ToValue()))
}

func TestNewTarget(t *testing.T) {
	def := connsdk.PointDef{
		Name:       "meter1.voltage",
		DeviceType: "modbus_rtu_meter",
		Params: map[string]any{
			"slave_id":      3,
			"function_code": 4,
			"address":       100,
			"data_type":     "uint16",
			"auto_refresh":  true,
			"unit":          "V",
		},
	}
	target, err := NewTarget(def)
	require.NoError(t, err)

	p, ok := target.(*Point)
	require.True(t, ok)
	assert.Equal(t, "meter1.voltage", p.Name)
	assert.Equal(t, "modbus_rtu_meter", p.DeviceType)
	assert.Equal(t, uint8(3), p.SlaveID)
	assert.Equal(t, uint8(4), p.FunctionCode)
	assert.Equal(t, uint16(100), p.Address)
	assert.Equal(t, TypeUint16, p.DataType)
	assert.True(t, p.AutoRefresh)
	assert.Equal(t, "V", p.Unit)
}

func TestNewTargetValidation(t *testing.T) {
	_, err := NewTarget(connsdk.PointDef{Name: "p", Params: map[string]any{
		"function_code": 3, "data_type": "string",
	}})
	assert.ErrorContains(t, err, "unknown data type")

	_, err = NewTarget(connsdk.PointDef{Name: "p", Params: map[string]any{
		"function_code": 6, "data_type": "uint16",
	}})
	assert.ErrorContains(t, err, "unsupported function code")

	_, err = NewTarget(connsdk.PointDef{Params: map[string]any{
		"function_code": 3, "data_type": "uint16",
	}})
	assert.ErrorContains(t, err, "name is required")
}

func TestNewConfig(t *testing.T) {
	cfg, err := NewConfig(connsdk.NewJSONConfig([]byte(`{"device":"/dev/ttyUSB0"}`)))
	require.NoError(t, err)

	c, ok := cfg.(Config)
	require.True(t, ok)
	assert.Equal(t, FamilyName, c.Family())
	assert.Equal(t, "/dev/ttyUSB0", c.Device)
	assert.Equal(t, 9600, c.BaudRate)
	assert.Equal(t, 8, c.DataBits)
	assert.Equal(t, "N", c.Parity)
	assert.Equal(t, 1, c.StopBits)
	assert.Equal(t, 1000, c.TimeoutMs)
	assert.Equal(t, 1000, c.IntervalMs)
}

func TestNewConfigValidation(t *testing.T) {
	_, err := NewConfig(connsdk.NewJSONConfig([]byte(`{}`)))
	assert.ErrorContains(t, err, "device is required")

	_, err = NewConfig(connsdk.NewJSONConfig([]byte(`{"device":"/dev/ttyUSB0","parity":"X"}`)))
	assert.ErrorContains(t, err, "invalid parity")

	_, err = NewConfig(connsdk.NewJSONConfig(nil))
	assert.Error(t, err)
}
