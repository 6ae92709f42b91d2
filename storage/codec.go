package storage

import (
	"encoding/binary"
	"math"

	"github.com/canbakiskan/voyager-node/internal/e4m3"
)

// Codec converts between a full-precision vector and its stored byte form.
// Encode and Decode are inverses up to the codec's quantization error;
// the float32 codec is exact.
type Codec interface {
	// DataType returns the data type tag recorded in index metadata.
	DataType() DataType

	// BytesPerDimension returns the stored size of one component.
	BytesPerDimension() int

	// Encode writes the stored form of v into dst.
	// len(dst) must be len(v)*BytesPerDimension().
	Encode(dst []byte, v []float32)

	// Decode reconstructs components from b into dst.
	// len(b) must be len(dst)*BytesPerDimension().
	Decode(dst []float32, b []byte)
}

// NewCodec returns the codec for the given data type.
func NewCodec(t DataType) (Codec, error) {
	switch t {
	case DataTypeFloat32:
		return float32Codec{}, nil
	case DataTypeFloat8:
		return float8Codec{}, nil
	case DataTypeE4M3:
		return e4m3Codec{}, nil
	default:
		return nil, &ErrUnsupportedDataType{DataType: t}
	}
}

// float32Codec is the identity codec.
type float32Codec struct{}

func (float32Codec) DataType() DataType { return DataTypeFloat32 }
func (float32Codec) BytesPerDimension() int { return 4 }

func (float32Codec) Encode(dst []byte, v []float32) {
	for i, f := range v {
		binary.LittleEndian.PutUint32(dst[i*4:], math.Float32bits(f))
	}
}

func (float32Codec) Decode(dst []float32, b []byte) {
	for i := range dst {
		dst[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
}

// float8Ratio is the fixed linear quantization step: stored byte k decodes
// to k/127, so the representable range is [-1, 1] (clamped on encode).
const float8Ratio = 127

// float8Codec stores components as ratio-scaled signed bytes.
type float8Codec struct{}

func (float8Codec) DataType() DataType { return DataTypeFloat8 }
func (float8Codec) BytesPerDimension() int { return 1 }

func (float8Codec) Encode(dst []byte, v []float32) {
	for i, f := range v {
		scaled := math.Round(float64(f) * float8Ratio)
		if scaled > 127 {
			scaled = 127
		} else if scaled < -127 {
			scaled = -127
		}
		dst[i] = byte(int8(scaled))
	}
}

func (float8Codec) Decode(dst []float32, b []byte) {
	for i := range dst {
		dst[i] = float32(int8(b[i])) / float8Ratio
	}
}

// e4m3Codec stores components as 8-bit E4M3 floats.
type e4m3Codec struct{}

func (e4m3Codec) DataType() DataType { return DataTypeE4M3 }
func (e4m3Codec) BytesPerDimension() int { return 1 }

func (e4m3Codec) Encode(dst []byte, v []float32) {
	for i, f := range v {
		dst[i] = byte(e4m3.FromFloat32(f))
	}
}

func (e4m3Codec) Decode(dst []float32, b []byte) {
	for i := range dst {
		dst[i] = e4m3.ToFloat32(e4m3.Bits(b[i]))
	}
}
