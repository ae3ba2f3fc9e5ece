// internal/model/register.go
package model

import "fmt"

// RegisterKind represents the Modbus register space a value is read from
type RegisterKind string

const (
	RegisterKindHolding RegisterKind = "holding"
	RegisterKindInput   RegisterKind = "input"
)

// Valid reports whether the register kind is one of the known spaces
func (k RegisterKind) Valid() bool {
	return k == RegisterKindHolding || k == RegisterKindInput
}

// DataType represents the wire encoding of a register value
type DataType string

const (
	DataTypeInt16   DataType = "int16"
	DataTypeUint16  DataType = "uint16"
	DataTypeInt32   DataType = "int32"
	DataTypeUint32  DataType = "uint32"
	DataTypeFloat32 DataType = "float32"
	DataTypeFloat64 DataType = "float64"
)

// WordCount returns how many 16-bit words the data type occupies
func (d DataType) WordCount() (int, error) {
	switch d {
	case DataTypeInt16, DataTypeUint16:
		return 1, nil
	case DataTypeInt32, DataTypeUint32, DataTypeFloat32:
		return 2, nil
	case DataTypeFloat64:
		return 4, nil
	default:
		return 0, fmt.Errorf("unknown data type %q", string(d))
	}
}

// Valid reports whether the data type is a member of the closed set
func (d DataType) Valid() bool {
	_, err := d.WordCount()
	return err == nil
}

// Special unit values that switch a register into non-numeric decoding
const (
	UnitEnum   = "enum"
	UnitBitmap = "bitmap"
)

// SentinelUnavailable is the raw word a device reports when a register
// carries no data (0x8000). Readings with this raw value are excluded
// from samples entirely.
const SentinelUnavailable uint16 = 0x8000

// RegisterDescriptor represents one named register within a device model
type RegisterDescriptor struct {
	Name         string         `yaml:"name"`
	Address      uint16         `yaml:"address"`
	RegisterType RegisterKind   `yaml:"register_type"`
	DataType     DataType       `yaml:"data_type"`
	Scale        float64        `yaml:"scale"`
	Unit         string         `yaml:"unit"`
	Description  string         `yaml:"description"`
	EnumValues   map[int]string `yaml:"enum_values"`
	BitmapFields map[int]string `yaml:"bitmap_fields"`
}

// IsEnum reports whether the register decodes to an enum label
func (r *RegisterDescriptor) IsEnum() bool {
	return r.Unit == UnitEnum
}

// IsBitmap reports whether the register expands into boolean bit fields
func (r *RegisterDescriptor) IsBitmap() bool {
	return r.Unit == UnitBitmap
}
