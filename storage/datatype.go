// Package storage implements the quantized vector storage layer: the codecs
// that convert between full-precision float32 vectors and their stored byte
// representation, and the flat store holding the encoded vectors of an index.
package storage

import "fmt"

// DataType identifies the stored representation of vector components.
//
// The numeric values are part of the serialized file format and must not be
// changed.
type DataType uint8

const (
	// DataTypeFloat8 stores each component as a signed byte scaled by 1/127.
	DataTypeFloat8 DataType = 1 << 4
	// DataTypeFloat32 stores each component as an IEEE-754 float32.
	DataTypeFloat32 DataType = 1 << 5
	// DataTypeE4M3 stores each component as an 8-bit E4M3 float.
	DataTypeE4M3 DataType = 1 << 6
)

func (t DataType) String() string {
	switch t {
	case DataTypeFloat8:
		return "Float8"
	case DataTypeFloat32:
		return "Float32"
	case DataTypeE4M3:
		return "E4M3"
	default:
		return fmt.Sprintf("Unknown(%d)", uint8(t))
	}
}

// Valid reports whether t is a known data type.
func (t DataType) Valid() bool {
	return t == DataTypeFloat8 || t == DataTypeFloat32 || t == DataTypeE4M3
}

// ErrUnsupportedDataType indicates an unknown storage data type tag.
type ErrUnsupportedDataType struct {
	DataType DataType
}

func (e *ErrUnsupportedDataType) Error() string {
	return fmt.Sprintf("unsupported storage data type: %d", uint8(e.DataType))
}
