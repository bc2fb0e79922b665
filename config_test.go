package connsdk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleGatewayYAML = `
connections:
  - id: bus-a
    device_types: [modbus_rtu, modbus_rtu_meter]
    params:
      device: /dev/ttyUSB0
      baud_rate: 19200
    points:
      - name: meter1.voltage
        device_type: modbus_rtu_meter
        params:
          slave_id: 3
          function_code: 4
          address: 100
          data_type: uint16
  - id: bus-b
    device_types: [modbus_rtu]
    params:
      device: /dev/ttyUSB1
`

func TestParseGatewayConfig(t *testing.T) {
	cfg, err := ParseGatewayConfig([]byte(sampleGatewayYAML))
	require.NoError(t, err)
	require.Len(t, cfg.Connections, 2)

	conn := cfg.Connections[0]
	assert.Equal(t, "bus-a", conn.ID)
	assert.Equal(t, []string{"modbus_rtu", "modbus_rtu_meter"}, conn.DeviceTypes)
	require.Len(t, conn.Points, 1)
	assert.Equal(t, "meter1.voltage", conn.Points[0].Name)
	assert.Equal(t, "modbus_rtu_meter", conn.Points[0].DeviceType)
}

func TestParseGatewayConfigValidation(t *testing.T) {
	_, err := ParseGatewayConfig([]byte("connections:\n  - device_types: [x]\n"))
	assert.ErrorContains(t, err, "id is required")

	_, err = ParseGatewayConfig([]byte(`
connections:
  - id: dup
    device_types: [x]
  - id: dup
    device_types: [y]
`))
	assert.ErrorContains(t, err, "duplicate id")

	_, err = ParseGatewayConfig([]byte("connections:\n  - id: a\n"))
	assert.ErrorContains(t, err, "device type")

	_, err = ParseGatewayConfig([]byte("connections: ["))
	assert.Error(t, err)
}

func TestConnectionDefConfigBridgesToJSON(t *testing.T) {
	cfg, err := ParseGatewayConfig([]byte(sampleGatewayYAML))
	require.NoError(t, err)

	var params struct {
		Device   string `json:"device"`
		BaudRate int    `json:"baud_rate"`
	}
	require.NoError(t, cfg.Connections[0].Config().Decode(&params))
	assert.Equal(t, "/dev/ttyUSB0", params.Device)
	assert.Equal(t, 19200, params.BaudRate)

	var point struct {
		SlaveID      uint8  `json:"slave_id"`
		FunctionCode uint8  `json:"function_code"`
		Address      uint16 `json:"address"`
		DataType     string `json:"data_type"`
	}
	require.NoError(t, cfg.Connections[0].Points[0].Config().Decode(&point))
	assert.Equal(t, uint8(3), point.SlaveID)
	assert.Equal(t, uint8(4), point.FunctionCode)
	assert.Equal(t, uint16(100), point.Address)
	assert.Equal(t, "uint16", point.DataType)
}

func TestJSONConfig(t *testing.T) {
	c := NewJSONConfig([]byte(`{"device":"/dev/ttyUSB0"}`))
	assert.Equal(t, []byte(`{"device":"/dev/ttyUSB0"}`), c.Raw())

	var v map[string]string
	require.NoError(t, c.Decode(&v))
	assert.Equal(t, "/dev/ttyUSB0", v["device"])

	assert.Error(t, JSONConfig{}.Decode(&v), "empty config must not decode")

	// Empty params still yield a decodable object.
	var empty struct{}
	assert.NoError(t, ConnectionDef{}.Config().Decode(&empty))
}
