package anm_test

import (
	"bytes"
	"encoding/binary"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"

	"github.com/mogaika/bfbb_anm/anm"
	"github.com/mogaika/bfbb_anm/config"
	"github.com/mogaika/bfbb_anm/quant"
)

func testAnm() *anm.Anm {
	rot := mgl32.QuatRotate(0.7, mgl32.Vec3{0, 1, 0})
	return &anm.Anm{
		Flags: 0x11,
		Keyframes: []anm.Keyframe{
			{TimeId: 0, Position: mgl32.Vec3{1, -2, 0.5}, Rotation: mgl32.QuatIdent()},
			{TimeId: 0, Position: mgl32.Vec3{0, 0, 0}, Rotation: rot},
			{TimeId: 1, Position: mgl32.Vec3{-3, 2, 0.25}, Rotation: rot.Scale(-1)},
			{TimeId: 2, Position: mgl32.Vec3{0.5, 0.1, -0.5}, Rotation: mgl32.QuatRotate(-1.2, mgl32.Vec3{1, 0, 0})},
		},
		Times: []float32{0, 1.0 / 30, 2.0 / 30, 3.0 / 30},
		Offsets: [][]uint16{
			{0, 1},
			{2, 1},
			{2, 3},
		},
	}
}

func near(a, b, eps float32) bool {
	return math.Abs(float64(a-b)) <= float64(eps)
}

func compareAnm(t *testing.T, expected, got *anm.Anm) {
	t.Helper()
	if got.Flags != expected.Flags {
		t.Errorf("flags=0x%x; expected 0x%x", got.Flags, expected.Flags)
	}
	if len(got.Times) != len(expected.Times) {
		t.Fatalf("times count=%d; expected %d", len(got.Times), len(expected.Times))
	}
	for i := range expected.Times {
		if got.Times[i] != expected.Times[i] {
			t.Errorf("time %d=%v; expected %v", i, got.Times[i], expected.Times[i])
		}
	}
	if len(got.Offsets) != len(expected.Offsets) {
		t.Fatalf("offsets rows=%d; expected %d", len(got.Offsets), len(expected.Offsets))
	}
	for i := range expected.Offsets {
		if !equalRow(got.Offsets[i], expected.Offsets[i]) {
			t.Errorf("offsets row %d=%v; expected %v", i, got.Offsets[i], expected.Offsets[i])
		}
	}
	if len(got.Keyframes) != len(expected.Keyframes) {
		t.Fatalf("keyframes count=%d; expected %d", len(got.Keyframes), len(expected.Keyframes))
	}
	scale := expected.DeriveScale()
	for i := range expected.Keyframes {
		e, g := expected.Keyframes[i], got.Keyframes[i]
		if g.TimeId != e.TimeId {
			t.Errorf("keyframe %d time id=%d; expected %d", i, g.TimeId, e.TimeId)
		}
		for axis := 0; axis < 3; axis++ {
			if !near(g.Position[axis], e.Position[axis], scale[axis]/2+1e-6) {
				t.Errorf("keyframe %d position[%d]=%v; expected %v", i, axis, g.Position[axis], e.Position[axis])
			}
		}
		if !near(g.Rotation.W, e.Rotation.W, quant.RotationScale) {
			t.Errorf("keyframe %d rotation w=%v; expected %v", i, g.Rotation.W, e.Rotation.W)
		}
		for c := 0; c < 3; c++ {
			if !near(g.Rotation.V[c], e.Rotation.V[c], quant.RotationScale) {
				t.Errorf("keyframe %d rotation v[%d]=%v; expected %v", i, c, g.Rotation.V[c], e.Rotation.V[c])
			}
		}
	}
}

func equalRow(a, b []uint16) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestRoundTrip(t *testing.T) {
	for _, order := range []binary.ByteOrder{binary.LittleEndian, binary.BigEndian} {
		src := testAnm()
		data, err := anm.Encode(src, order)
		if err != nil {
			t.Fatalf("%v: encode: %v", order, err)
		}
		got, err := anm.Decode(data)
		if err != nil {
			t.Fatalf("%v: decode: %v", order, err)
		}
		if got.ByteOrder != order {
			t.Errorf("decoded byte order %v; expected %v", got.ByteOrder, order)
		}
		if got.Scale != src.DeriveScale() {
			t.Errorf("decoded scale %v; expected %v", got.Scale, src.DeriveScale())
		}
		compareAnm(t, src, got)
	}
}

func TestMagicDetection(t *testing.T) {
	data, err := anm.Encode(testAnm(), binary.LittleEndian)
	if err != nil {
		t.Fatal(err)
	}
	if string(data[:4]) != "SKB1" {
		t.Errorf("little endian magic %q; expected SKB1", data[:4])
	}

	data, err = anm.Encode(testAnm(), binary.BigEndian)
	if err != nil {
		t.Fatal(err)
	}
	if string(data[:4]) != "1BKS" {
		t.Errorf("big endian magic %q; expected 1BKS", data[:4])
	}

	for _, magic := range []string{"SKB2", "1SKB", "\x00\x00\x00\x00", "BKS1"} {
		bad := append([]byte(magic), data[4:]...)
		a, err := anm.Decode(bad)
		if !errors.Is(err, anm.ErrInvalidMagic) {
			t.Errorf("Decode(magic %q) error=%v; expected ErrInvalidMagic", magic, err)
		}
		if a != nil {
			t.Errorf("Decode(magic %q) returned partial result", magic)
		}
	}
}

func TestTruncated(t *testing.T) {
	data, err := anm.Encode(testAnm(), binary.LittleEndian)
	if err != nil {
		t.Fatal(err)
	}
	// padding is not read, every shorter cut must fail
	unpadded := anm.HEADER_SIZE + 4*anm.KEYFRAME_SIZE + 4*4 + 3*2*2
	if len(data) < unpadded {
		t.Fatalf("encoded size %d < %d", len(data), unpadded)
	}
	for cut := 0; cut < unpadded; cut++ {
		a, err := anm.Decode(data[:cut])
		if !errors.Is(err, anm.ErrTruncated) {
			t.Errorf("Decode(%d bytes) error=%v; expected ErrTruncated", cut, err)
		}
		if a != nil {
			t.Errorf("Decode(%d bytes) returned partial result", cut)
		}
	}
	if _, err := anm.Decode(data[:unpadded]); err != nil {
		t.Errorf("Decode without padding: %v", err)
	}
}

func TestHugeCountsTruncated(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteString(anm.MAGIC)
	binary.Write(&buf, binary.LittleEndian, uint32(0))
	binary.Write(&buf, binary.LittleEndian, uint16(1))
	binary.Write(&buf, binary.LittleEndian, uint16(2))
	binary.Write(&buf, binary.LittleEndian, uint32(0xffffffff))
	binary.Write(&buf, binary.LittleEndian, [3]float32{})
	if _, err := anm.Decode(buf.Bytes()); !errors.Is(err, anm.ErrTruncated) {
		t.Errorf("huge keyframe count error=%v; expected ErrTruncated", err)
	}
}

func TestPadding(t *testing.T) {
	defer config.SetPaddingFiller(config.PaddingLegacy)

	for bones := 0; bones < 6; bones++ {
		a := &anm.Anm{
			Keyframes: []anm.Keyframe{{Rotation: mgl32.QuatIdent()}},
			Times:     []float32{0, 1.0 / 30},
			Offsets:   [][]uint16{make([]uint16, bones)},
		}
		for _, filler := range []byte{config.PaddingLegacy, config.PaddingZero} {
			config.SetPaddingFiller(filler)
			data, err := anm.Encode(a, binary.LittleEndian)
			if err != nil {
				t.Fatal(err)
			}
			if len(data)%4 != 0 {
				t.Errorf("bones %d: encoded length %d not aligned", bones, len(data))
			}
			unpadded := anm.HEADER_SIZE + anm.KEYFRAME_SIZE + 2*4 + bones*2
			for i := unpadded; i < len(data); i++ {
				if data[i] != filler {
					t.Errorf("bones %d: padding byte %d=0x%x; expected 0x%x", bones, i, data[i], filler)
				}
			}
		}
	}
}

func TestEncodeDefaultOrder(t *testing.T) {
	defer config.SetByteOrder(binary.LittleEndian)

	for _, test := range []struct {
		order binary.ByteOrder
		magic string
	}{
		{binary.LittleEndian, "SKB1"},
		{binary.BigEndian, "1BKS"},
	} {
		config.SetByteOrder(test.order)
		data, err := anm.Encode(testAnm(), nil)
		if err != nil {
			t.Fatal(err)
		}
		if string(data[:4]) != test.magic {
			t.Errorf("magic %q; expected %q", data[:4], test.magic)
		}
	}
}

func TestByteLayout(t *testing.T) {
	a := &anm.Anm{
		Flags:     7,
		Keyframes: []anm.Keyframe{{TimeId: 0, Position: mgl32.Vec3{2, 0, -4}, Rotation: mgl32.QuatIdent()}},
		Times:     []float32{0, 0.5},
		Offsets:   [][]uint16{{0}},
	}

	var expected bytes.Buffer
	be := binary.BigEndian
	expected.WriteString("1BKS")
	binary.Write(&expected, be, uint32(7))
	binary.Write(&expected, be, uint16(1))
	binary.Write(&expected, be, uint16(2))
	binary.Write(&expected, be, uint32(1))
	binary.Write(&expected, be, [3]float32{2.0 / 32767.0, 0, 4.0 / 32767.0})
	binary.Write(&expected, be, uint16(0))
	binary.Write(&expected, be, [4]int16{0, 0, 0, 32767})
	binary.Write(&expected, be, [3]int16{32767, 0, -32767})
	binary.Write(&expected, be, []float32{0, 0.5})
	binary.Write(&expected, be, []uint16{0})
	expected.WriteString("HH")

	data, err := anm.Encode(a, be)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(data, expected.Bytes()) {
		t.Errorf("encoded\n%x\nexpected\n%x", data, expected.Bytes())
	}
}

func TestEncodeLayoutErrors(t *testing.T) {
	ragged := testAnm()
	ragged.Offsets[1] = []uint16{0}
	if _, err := anm.Encode(ragged, binary.LittleEndian); !errors.Is(err, anm.ErrLayout) {
		t.Errorf("ragged rows error=%v; expected ErrLayout", err)
	}

	missingRow := testAnm()
	missingRow.Offsets = missingRow.Offsets[:2]
	if _, err := anm.Encode(missingRow, binary.LittleEndian); !errors.Is(err, anm.ErrLayout) {
		t.Errorf("missing row error=%v; expected ErrLayout", err)
	}

	badRot := testAnm()
	badRot.Keyframes[0].Rotation = mgl32.Quat{W: 1.5}
	if _, err := anm.Encode(badRot, binary.LittleEndian); !errors.Is(err, quant.ErrOutOfRange) {
		t.Errorf("bad rotation error=%v; expected ErrOutOfRange", err)
	}
}

func TestEmpty(t *testing.T) {
	data, err := anm.Encode(&anm.Anm{}, binary.LittleEndian)
	if err != nil {
		t.Fatal(err)
	}
	if len(data) != anm.HEADER_SIZE {
		t.Errorf("empty file size %d; expected %d", len(data), anm.HEADER_SIZE)
	}
	a, err := anm.Decode(data)
	if err != nil {
		t.Fatal(err)
	}
	if len(a.Offsets) != 0 || len(a.Times) != 0 || len(a.Keyframes) != 0 {
		t.Errorf("decoded empty file %+v", a)
	}
}

func TestValidate(t *testing.T) {
	if err := testAnm().Validate(); err != nil {
		t.Errorf("Validate(): %v", err)
	}

	badOffset := testAnm()
	badOffset.Offsets[2][1] = 4
	if err := badOffset.Validate(); !errors.Is(err, anm.ErrIndexRange) {
		t.Errorf("bad offset error=%v; expected ErrIndexRange", err)
	}

	badTime := testAnm()
	badTime.Keyframes[3].TimeId = 4
	if err := badTime.Validate(); !errors.Is(err, anm.ErrIndexRange) {
		t.Errorf("bad time id error=%v; expected ErrIndexRange", err)
	}
}

func TestHelpers(t *testing.T) {
	a := testAnm()
	if a.BoneCount() != 2 {
		t.Errorf("BoneCount()=%d; expected 2", a.BoneCount())
	}
	if a.FrameCount() != 4 {
		t.Errorf("FrameCount()=%d; expected 4", a.FrameCount())
	}
	if a.Duration() != 3.0/30 {
		t.Errorf("Duration()=%v; expected %v", a.Duration(), 3.0/30)
	}
	scale := a.DeriveScale()
	expected := mgl32.Vec3{3.0 / 32767, 2.0 / 32767, 0.5 / 32767}
	for i := range scale {
		if !near(scale[i], expected[i], 1e-9) {
			t.Errorf("DeriveScale()[%d]=%v; expected %v", i, scale[i], expected[i])
		}
	}
}
