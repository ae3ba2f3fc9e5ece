// internal/protocol/decode.go
package protocol

import (
	"errors"
	"fmt"
	"math"

	"heatpump-collector/internal/model"
)

// ErrDecode indicates a word count or layout mismatch while decoding
var ErrDecode = errors.New("protocol: decode error")

// Decode converts exactly the required number of 16-bit words into a
// numeric value. Multi-word values are reassembled big-endian, high word
// first. The scale factor is not applied here.
func Decode(dataType model.DataType, words []uint16) (float64, error) {
	expected, err := dataType.WordCount()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if len(words) != expected {
		return 0, fmt.Errorf("%w: %s requires %d words, got %d",
			ErrDecode, dataType, expected, len(words))
	}

	switch dataType {
	case model.DataTypeInt16:
		return float64(int16(words[0])), nil
	case model.DataTypeUint16:
		return float64(words[0]), nil
	case model.DataTypeInt32:
		return float64(int32(join32(words))), nil
	case model.DataTypeUint32:
		return float64(join32(words)), nil
	case model.DataTypeFloat32:
		return float64(math.Float32frombits(join32(words))), nil
	case model.DataTypeFloat64:
		return math.Float64frombits(join64(words)), nil
	default:
		return 0, fmt.Errorf("%w: unknown data type %q", ErrDecode, dataType)
	}
}

// DecodeScaled decodes the words and multiplies by the register scale
func DecodeScaled(dataType model.DataType, words []uint16, scale float64) (float64, error) {
	value, err := Decode(dataType, words)
	if err != nil {
		return 0, err
	}
	return value * scale, nil
}

// EnumLabel maps a raw enum value to its configured label, falling back to
// "Unknown(<raw>)" when the value is not in the map
func EnumLabel(raw uint16, values map[int]string) string {
	if label, ok := values[int(raw)]; ok {
		return label
	}
	return fmt.Sprintf("Unknown(%d)", raw)
}

// ExpandBitmap converts a raw register value into one boolean per
// configured bit index
func ExpandBitmap(raw uint16, fields map[int]string) map[string]bool {
	out := make(map[string]bool, len(fields))
	for bit, name := range fields {
		out[name] = (raw>>uint(bit))&1 == 1
	}
	return out
}

func join32(w []uint16) uint32 {
	return uint32(w[0])<<16 | uint32(w[1])
}

func join64(w []uint16) uint64 {
	return uint64(w[0])<<48 | uint64(w[1])<<32 | uint64(w[2])<<16 | uint64(w[3])
}

// EncodeWords splits a 64-bit pattern into n big-endian words, high word
// first. Used by tests and the register scanner's display helpers.
func EncodeWords(bits uint64, n int) []uint16 {
	out := make([]uint16, n)
	for i := 0; i < n; i++ {
		shift := uint(16 * (n - 1 - i))
		out[i] = uint16(bits >> shift)
	}
	return out
}
