package modbusrtu

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	connsdk "github.com/NotrixInc/nx-conn-sdk"
)

// DataType selects how raw register words decode into a value.
type DataType string

const (
	TypeUint16  DataType = "uint16"
	TypeInt16   DataType = "int16"
	TypeUint32  DataType = "uint32"
	TypeInt32   DataType = "int32"
	TypeFloat32 DataType = "float32"
	TypeBool    DataType = "bool"
)

// Modbus function codes the family uses.
const (
	fcReadHoldingRegisters = 3
	fcReadInputRegisters   = 4
	fcWriteSingleRegister  = 6
)

// wordCount returns how many 16-bit registers the data type occupies, or 0
// for an unknown type.
func wordCount(dt DataType) uint16 {
	switch dt {
	case TypeUint16, TypeInt16, TypeBool:
		return 1
	case TypeUint32, TypeInt32, TypeFloat32:
		return 2
	default:
		return 0
	}
}

// Point is one raw register-backed point definition.
type Point struct {
	Name          string          `json:"name" yaml:"name"`
	DeviceType    string          `json:"device_type" yaml:"device_type"`
	SlaveID       uint8           `json:"slave_id" yaml:"slave_id"`
	FunctionCode  uint8           `json:"function_code" yaml:"function_code"`
	Address       uint16          `json:"address" yaml:"address"`
	DataType      DataType        `json:"data_type" yaml:"data_type"`
	Unit          string          `json:"unit" yaml:"unit"`
	AutoRefresh   bool            `json:"auto_refresh" yaml:"auto_refresh"`
	DefaultStatus json.RawMessage `json:"default_status" yaml:"default_status"`
}

func (p *Point) CloneTarget() connsdk.Target {
	cp := *p
	if p.DefaultStatus != nil {
		cp.DefaultStatus = append(json.RawMessage(nil), p.DefaultStatus...)
	}
	return &cp
}

func (p *Point) validate() error {
	if p.Name == "" {
		return fmt.Errorf("point name is required")
	}
	if wordCount(p.DataType) == 0 {
		return fmt.Errorf("point %q: unknown data type %q", p.Name, p.DataType)
	}
	switch p.FunctionCode {
	case fcReadHoldingRegisters, fcReadInputRegisters:
	default:
		return fmt.Errorf("point %q: unsupported function code %d", p.Name, p.FunctionCode)
	}
	return nil
}

// NewTarget converts one raw point definition into a typed Point.
func NewTarget(def connsdk.PointDef) (connsdk.Target, error) {
	var p Point
	if err := def.Config().Decode(&p); err != nil {
		return nil, fmt.Errorf("modbusrtu: decode point %q: %w", def.Name, err)
	}
	if def.Name != "" {
		p.Name = def.Name
	}
	if def.DeviceType != "" {
		p.DeviceType = def.DeviceType
	}
	if err := p.validate(); err != nil {
		return nil, fmt.Errorf("modbusrtu: %w", err)
	}
	return &p, nil
}

// Request is one executable register exchange.
type Request struct {
	SlaveID      uint8
	FunctionCode uint8
	Address      uint16
	Quantity     uint16
	DataType     DataType

	// WriteValue is set by Preprocess when the request applies a new
	// status instead of reading.
	WriteValue *uint16
}

func (r *Request) CloneRequest() connsdk.DeviceStateRequest {
	cp := *r
	if r.WriteValue != nil {
		v := *r.WriteValue
		cp.WriteValue = &v
	}
	return &cp
}

// Result carries the point information external services need when a value
// is propagated.
type Result struct {
	DeviceType string   `json:"device_type"`
	DataType   DataType `json:"data_type"`
	Unit       string   `json:"unit,omitempty"`
}

// Response is the reply to one register exchange: the raw words plus the
// value Postprocess decoded from them.
type Response struct {
	RawWords  []uint16
	Processed json.RawMessage
}

func (r *Response) CloneResponse() connsdk.DeviceStateResponse {
	cp := *r
	if r.RawWords != nil {
		cp.RawWords = append([]uint16(nil), r.RawWords...)
	}
	if r.Processed != nil {
		cp.Processed = append(json.RawMessage(nil), r.Processed...)
	}
	return &cp
}

// ToValue returns the processed value; before Postprocess ran it falls back
// to the raw words.
func (r *Response) ToValue() json.RawMessage {
	if r.Processed != nil {
		return r.Processed
	}
	b, err := json.Marshal(r.RawWords)
	if err != nil {
		return json.RawMessage("null")
	}
	return b
}

// bytesToWords unpacks a big-endian Modbus payload into register words.
func bytesToWords(raw []byte) []uint16 {
	words := make([]uint16, 0, len(raw)/2)
	for i := 0; i+1 < len(raw); i += 2 {
		words = append(words, binary.BigEndian.Uint16(raw[i:i+2]))
	}
	return words
}

// decodeWords converts raw register words into the typed JSON value.
func decodeWords(words []uint16, dt DataType) (json.RawMessage, error) {
	need := wordCount(dt)
	if need == 0 {
		return nil, fmt.Errorf("unknown data type %q", dt)
	}
	if len(words) < int(need) {
		return nil, fmt.Errorf("data type %q needs %d words, got %d", dt, need, len(words))
	}

	var v any
	switch dt {
	case TypeUint16:
		v = words[0]
	case TypeInt16:
		v = int16(words[0])
	case TypeBool:
		v = words[0] != 0
	case TypeUint32:
		v = uint32(words[0])<<16 | uint32(words[1])
	case TypeInt32:
		v = int32(uint32(words[0])<<16 | uint32(words[1]))
	case TypeFloat32:
		v = math.Float32frombits(uint32(words[0])<<16 | uint32(words[1]))
	}

	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return b, nil
}

// encodeStatus converts a requested status string into the register word a
// write applies. 32-bit types are read-only for this family.
func encodeStatus(status string, dt DataType) (uint16, error) {
	switch dt {
	case TypeBool:
		switch strings.ToLower(strings.TrimSpace(status)) {
		case "on", "true", "1":
			return 1, nil
		case "off", "false", "0":
			return 0, nil
		}
		return 0, fmt.Errorf("invalid boolean status %q", status)
	case TypeUint16:
		v, err := strconv.ParseUint(strings.TrimSpace(status), 10, 16)
		if err != nil {
			return 0, fmt.Errorf("invalid uint16 status %q", status)
		}
		return uint16(v), nil
	case TypeInt16:
		v, err := strconv.ParseInt(strings.TrimSpace(status), 10, 16)
		if err != nil {
			return 0, fmt.Errorf("invalid int16 status %q", status)
		}
		return uint16(int16(v)), nil
	default:
		return 0, fmt.Errorf("data type %q is read-only", dt)
	}
}
