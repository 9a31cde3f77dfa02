// Package anm reads and writes SKB1 skeletal animation files.
//
// A file holds a list of keyframes shared between bones and frames, a time
// table, and an offset table with one row per frame referencing a keyframe
// for every bone. Positions are quantized with a per file scale, rotations
// with fixed 1/32767 scale.
package anm

import (
	"encoding/binary"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
)

const MAGIC = "SKB1"

const (
	HEADER_SIZE   = 0x1c
	KEYFRAME_SIZE = 0x10
)

var (
	ErrInvalidMagic = errors.New("invalid anim file magic")
	ErrTruncated    = errors.New("truncated anim file")
	ErrLayout       = errors.New("inconsistent anim layout")
	ErrIndexRange   = errors.New("anim index out of range")
)

type Keyframe struct {
	TimeId   uint16
	Position mgl32.Vec3
	Rotation mgl32.Quat
}

type Anm struct {
	Flags     uint32
	Scale     mgl32.Vec3 // filled by Decode, Encode derives its own
	Keyframes []Keyframe
	Times     []float32
	Offsets   [][]uint16

	// byte order the file was decoded from
	ByteOrder binary.ByteOrder `json:"-"`
}

// on disk keyframe layout
type rawKeyframe struct {
	TimeId   uint16
	Rotation [4]int16 // i, j, k, w
	Position [3]int16
}

func (a *Anm) BoneCount() int {
	if len(a.Offsets) == 0 {
		return 0
	}
	return len(a.Offsets[0])
}

// FrameCount is the time table length, one more than the offset rows count.
func (a *Anm) FrameCount() int {
	return len(a.Times)
}

// Duration is the end of range time in seconds.
func (a *Anm) Duration() float32 {
	if len(a.Times) == 0 {
		return 0
	}
	return a.Times[len(a.Times)-1]
}

// DeriveScale returns the per axis maximum absolute position divided by 32767.
func (a *Anm) DeriveScale() mgl32.Vec3 {
	var maxAbs mgl32.Vec3
	for i := range a.Keyframes {
		for axis, v := range a.Keyframes[i].Position {
			if v < 0 {
				v = -v
			}
			if v > maxAbs[axis] {
				maxAbs[axis] = v
			}
		}
	}
	return maxAbs.Mul(1.0 / 32767.0)
}

// Validate checks that every offset references a keyframe and every
// keyframe references a time table entry.
func (a *Anm) Validate() error {
	for i := range a.Keyframes {
		if int(a.Keyframes[i].TimeId) >= len(a.Times) {
			return errors.Wrapf(ErrIndexRange, "keyframe %d time id %d >= %d",
				i, a.Keyframes[i].TimeId, len(a.Times))
		}
	}
	boneCount := a.BoneCount()
	for iRow, row := range a.Offsets {
		if len(row) != boneCount {
			return errors.Wrapf(ErrLayout, "offsets row %d has %d bones, expected %d", iRow, len(row), boneCount)
		}
		for iBone, kf := range row {
			if int(kf) >= len(a.Keyframes) {
				return errors.Wrapf(ErrIndexRange, "offsets row %d bone %d keyframe %d >= %d",
					iRow, iBone, kf, len(a.Keyframes))
			}
		}
	}
	return nil
}

func reversedMagic() string {
	b := []byte(MAGIC)
	for i, j := 0, len(b)-1; i < j; i, j = i+1, j-1 {
		b[i], b[j] = b[j], b[i]
	}
	return string(b)
}
