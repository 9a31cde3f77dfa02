package anm

import (
	"bytes"
	"encoding/binary"
	"io"
	"math"

	"github.com/pkg/errors"

	"github.com/mogaika/bfbb_anm/config"
	"github.com/mogaika/bfbb_anm/quant"
)

func Encode(a *Anm, order binary.ByteOrder) ([]byte, error) {
	var buf bytes.Buffer
	if err := a.Produce(&buf, order); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (a *Anm) checkLayout() error {
	boneCount := a.BoneCount()
	if boneCount > math.MaxUint16 {
		return errors.Wrapf(ErrLayout, "bones count %d does not fit uint16", boneCount)
	}
	if len(a.Times) > math.MaxUint16 {
		return errors.Wrapf(ErrLayout, "times count %d does not fit uint16", len(a.Times))
	}
	if uint64(len(a.Keyframes)) > math.MaxUint32 {
		return errors.Wrapf(ErrLayout, "keyframes count %d does not fit uint32", len(a.Keyframes))
	}
	expectedRows := len(a.Times) - 1
	if expectedRows < 0 {
		expectedRows = 0
	}
	if len(a.Offsets) != expectedRows {
		return errors.Wrapf(ErrLayout, "%d offsets rows for %d times, expected %d", len(a.Offsets), len(a.Times), expectedRows)
	}
	for i, row := range a.Offsets {
		if len(row) != boneCount {
			return errors.Wrapf(ErrLayout, "offsets row %d has %d bones, expected %d", i, len(row), boneCount)
		}
	}
	return nil
}

// Produce writes file padded to 4 bytes using config padding filler.
// Scale is derived from keyframes, a.Scale is ignored.
// Nil order selects configured default.
func (a *Anm) Produce(w io.Writer, order binary.ByteOrder) error {
	if order == nil {
		order = config.GetByteOrder()
	}
	if err := a.checkLayout(); err != nil {
		return err
	}

	scale := a.DeriveScale()
	raws := make([]rawKeyframe, len(a.Keyframes))
	for i := range a.Keyframes {
		kf := &a.Keyframes[i]
		raw := &raws[i]
		raw.TimeId = kf.TimeId

		var err error
		if raw.Rotation, err = quant.QuantizeRotation(kf.Rotation); err != nil {
			return errors.Wrapf(err, "keyframe %d", i)
		}
		if raw.Position, err = quant.QuantizePosition(kf.Position, scale); err != nil {
			return errors.Wrapf(err, "keyframe %d", i)
		}
	}

	var buf bytes.Buffer
	if order == binary.BigEndian {
		buf.WriteString(reversedMagic())
	} else {
		buf.WriteString(MAGIC)
	}

	binary.Write(&buf, order, a.Flags)
	binary.Write(&buf, order, uint16(a.BoneCount()))
	binary.Write(&buf, order, uint16(len(a.Times)))
	binary.Write(&buf, order, uint32(len(a.Keyframes)))
	binary.Write(&buf, order, [3]float32(scale))
	binary.Write(&buf, order, raws)
	binary.Write(&buf, order, a.Times)
	for _, row := range a.Offsets {
		binary.Write(&buf, order, row)
	}

	if pad := buf.Len() % 4; pad != 0 {
		filler := config.GetPaddingFiller()
		for i := pad; i < 4; i++ {
			buf.WriteByte(filler)
		}
	}

	_, err := w.Write(buf.Bytes())
	return err
}
