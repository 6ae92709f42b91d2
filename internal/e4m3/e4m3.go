// Package e4m3 implements the 8-bit E4M3 floating-point encoding.
//
// This package is internal: it exists to support E4M3 as a storage format
// while keeping execution in float32.
package e4m3

import (
	"math"
)

// Bits is the raw E4M3 bit-pattern.
//
// Layout:
//
//	sign: 1 bit
//	exp:  4 bits (bias 7)
//	frac: 3 bits
//
// Unlike IEEE-754 mini-floats, E4M3 has no infinities; the all-ones
// exponent with all-ones fraction encodes NaN, and exponent 15 with any
// other fraction is a regular normal value. Largest finite value is 448.
type Bits uint8

const (
	signMask Bits = 0x80
	expMask  Bits = 0x78
	fracMask Bits = 0x07

	// NaN is the canonical quiet NaN pattern (positive sign).
	NaN Bits = 0x7F

	// MaxValue is the largest finite value representable in E4M3.
	MaxValue float32 = 448

	// minSubnormal is 2^-9, the smallest positive subnormal (frac=1, exp=0).
	minSubnormal = 1.0 / 512.0
)

// ToFloat32 converts an E4M3 bit-pattern to float32.
func ToFloat32(b Bits) float32 {
	sign := float32(1)
	if b&signMask != 0 {
		sign = -1
	}
	exp := int32(b&expMask) >> 3
	frac := int32(b & fracMask)

	if exp == 0 {
		// Subnormal: no implicit leading 1, exponent is -6.
		return sign * float32(frac) * minSubnormal
	}
	if exp == 15 && frac == 7 {
		return float32(math.NaN())
	}
	// Normalized: 2^(exp-7) * (1 + frac/8)
	return sign * float32(math.Ldexp(float64(8+frac), int(exp)-7-3))
}

// FromFloat32 converts a float32 value into an E4M3 bit-pattern.
//
// Rounding mode: round-to-nearest, ties-to-even. Values beyond the finite
// range saturate to ±448 rather than producing NaN.
func FromFloat32(f float32) Bits {
	bits := math.Float32bits(f)
	sign := Bits(bits>>24) & signMask

	if f != f {
		return sign | NaN
	}

	abs := math.Abs(float64(f))
	if abs >= float64(MaxValue) {
		// Saturate: exp=15, frac=6 -> 448.
		return sign | 0x7E
	}

	// Express abs as u * 2^(e-9) with u in [0,16), so the significand can be
	// rounded to an integer and a rounding carry bumps the exponent cleanly.
	u := abs / float64(minSubnormal)
	e := int32(0)
	for u >= 16 {
		u /= 2
		e++
	}

	frac := int32(roundHalfEven(u))
	if frac >= 16 {
		frac = 8
		e++
	}

	var expField int32
	if frac >= 8 {
		// Normal: strip the implicit leading 1.
		expField = e + 1
		frac -= 8
	} else {
		// Subnormal (e is necessarily 0 here).
		expField = 0
	}
	if expField > 15 || (expField == 15 && frac >= 7) {
		// Out of range or colliding with the NaN pattern; saturate to 448.
		return sign | 0x7E
	}

	return sign | Bits(expField<<3) | Bits(frac)
}

// roundHalfEven rounds to the nearest integer, ties to even.
func roundHalfEven(x float64) float64 {
	floor := math.Floor(x)
	diff := x - floor
	switch {
	case diff > 0.5:
		return floor + 1
	case diff < 0.5:
		return floor
	case math.Mod(floor, 2) == 0:
		return floor
	default:
		return floor + 1
	}
}
