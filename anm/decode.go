package anm

import (
	"encoding/binary"

	"github.com/pkg/errors"

	"github.com/mogaika/bfbb_anm/quant"
	"github.com/mogaika/bfbb_anm/utils"
)

// Decode parses a whole file. Byte order is detected from the magic.
func Decode(data []byte) (*Anm, error) {
	bs := utils.NewBufStack("anm", data)

	magic := bs.Read(4)
	if magic == nil {
		return nil, errors.Wrapf(ErrTruncated, "magic: %v", bs.Err())
	}
	switch string(magic) {
	case MAGIC:
		bs.SetByteOrder(binary.LittleEndian)
	case reversedMagic():
		bs.SetByteOrder(binary.BigEndian)
	default:
		return nil, errors.Wrapf(ErrInvalidMagic, "got %q", utils.DumpToOneLineString(magic))
	}

	a := &Anm{ByteOrder: bs.ByteOrder()}
	a.Flags = bs.ReadU32()
	boneCount := int(bs.ReadU16())
	frameCount := int(bs.ReadU16())
	keyframeCount := int(bs.ReadU32())
	for i := range a.Scale {
		a.Scale[i] = bs.ReadF()
	}
	if err := bs.Err(); err != nil {
		return nil, errors.Wrapf(ErrTruncated, "header: %v", err)
	}

	if !bs.Need(keyframeCount * KEYFRAME_SIZE) {
		return nil, errors.Wrapf(ErrTruncated, "%d keyframes: %v", keyframeCount, bs.Err())
	}
	a.Keyframes = make([]Keyframe, keyframeCount)
	for i := range a.Keyframes {
		var raw rawKeyframe
		raw.TimeId = bs.ReadU16()
		bs.ReadI16Array(raw.Rotation[:])
		bs.ReadI16Array(raw.Position[:])

		a.Keyframes[i] = Keyframe{
			TimeId:   raw.TimeId,
			Rotation: quant.DequantizeRotation(raw.Rotation),
			Position: quant.DequantizePosition(raw.Position, a.Scale),
		}
	}

	if !bs.Need(frameCount * 4) {
		return nil, errors.Wrapf(ErrTruncated, "%d times: %v", frameCount, bs.Err())
	}
	a.Times = make([]float32, frameCount)
	bs.ReadFArray(a.Times)

	rowsCount := frameCount - 1
	if rowsCount < 0 {
		rowsCount = 0
	}
	if !bs.Need(rowsCount * boneCount * 2) {
		return nil, errors.Wrapf(ErrTruncated, "%dx%d offsets: %v", rowsCount, boneCount, bs.Err())
	}
	a.Offsets = make([][]uint16, rowsCount)
	for i := range a.Offsets {
		a.Offsets[i] = make([]uint16, boneCount)
		bs.ReadU16Array(a.Offsets[i])
	}

	if err := bs.Err(); err != nil {
		return nil, errors.Wrapf(ErrTruncated, "%v", err)
	}
	return a, nil
}
