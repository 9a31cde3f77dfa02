// Package quant converts animation positions and rotations to and from
// the 16 bit fixed point codes stored in SKB1 files.
package quant

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
)

const MaxCode = math.MaxInt16

// rotations are stored without per file scale, components are in [-1,1]
const RotationScale = 1.0 / MaxCode

var ErrOutOfRange = errors.New("quantized value out of int16 range")

// Quantize rounds value/scale to the nearest integer (half away from zero).
// Zero scale always gives zero code.
func Quantize(value, scale float32) (int16, error) {
	if scale == 0 {
		return 0, nil
	}
	r := math.Round(float64(value) / float64(scale))
	if math.IsNaN(r) || r > math.MaxInt16 || r < math.MinInt16 {
		return 0, errors.Wrapf(ErrOutOfRange, "value %v scale %v", value, scale)
	}
	return int16(r), nil
}

func Dequantize(code int16, scale float32) float32 {
	return float32(code) * scale
}

func ScaleFromMax(maxAbs mgl32.Vec3) mgl32.Vec3 {
	return maxAbs.Mul(1.0 / MaxCode)
}

func QuantizePosition(v mgl32.Vec3, scale mgl32.Vec3) (codes [3]int16, err error) {
	for i := range codes {
		if codes[i], err = Quantize(v[i], scale[i]); err != nil {
			return codes, errors.Wrapf(err, "position axis %d", i)
		}
	}
	return codes, nil
}

func DequantizePosition(codes [3]int16, scale mgl32.Vec3) (v mgl32.Vec3) {
	for i, c := range codes {
		v[i] = Dequantize(c, scale[i])
	}
	return v
}

// QuantizeRotation returns codes in file order: i, j, k, w.
func QuantizeRotation(q mgl32.Quat) (codes [4]int16, err error) {
	components := [4]float32{q.V[0], q.V[1], q.V[2], q.W}
	for i, c := range components {
		r := math.Round(float64(c) * MaxCode)
		if math.IsNaN(r) || r > math.MaxInt16 || r < math.MinInt16 {
			return codes, errors.Wrapf(ErrOutOfRange, "rotation component %d value %v", i, c)
		}
		codes[i] = int16(r)
	}
	return codes, nil
}

// DequantizeRotation does not renormalize the result.
func DequantizeRotation(codes [4]int16) mgl32.Quat {
	return mgl32.Quat{
		W: float32(codes[3]) / MaxCode,
		V: mgl32.Vec3{
			float32(codes[0]) / MaxCode,
			float32(codes[1]) / MaxCode,
			float32(codes[2]) / MaxCode,
		},
	}
}
