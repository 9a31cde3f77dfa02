package track

import (
	"bytes"
	"encoding/binary"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"

	"github.com/mogaika/bfbb_anm/anm"
	"github.com/mogaika/bfbb_anm/utils"
)

func TestResolveContinuity(t *testing.T) {
	prev := mgl32.QuatRotate(0.2, mgl32.Vec3{0, 1, 0})
	near := mgl32.QuatRotate(0.3, mgl32.Vec3{0, 1, 0})
	flipped := near.Scale(-1)

	if q := ResolveContinuity(nil, flipped); q != flipped {
		t.Errorf("without previous rotation got %v; expected %v unchanged", q, flipped)
	}
	if q := ResolveContinuity(&prev, near); q != near {
		t.Errorf("close rotation got %v; expected %v", q, near)
	}
	if q := ResolveContinuity(&prev, flipped); q != near {
		t.Errorf("flipped rotation got %v; expected %v", q, near)
	}

	// property: the chosen sign never has bigger angle than the other one
	for i := 0; i < 32; i++ {
		a := float32(i) * 0.4
		q := mgl32.QuatRotate(a, mgl32.Vec3{1, 1, 0}.Normalize())
		if i%3 == 0 {
			q = q.Scale(-1)
		}
		r := ResolveContinuity(&prev, q)
		other := r.Scale(-1)
		if utils.QuatAngle(r, prev) > utils.QuatAngle(other, prev) {
			t.Errorf("angle %v: picked %v farther than %v", a, r, other)
		}
	}
}

func TestReconstructContinuity(t *testing.T) {
	q0 := mgl32.QuatRotate(0.1, mgl32.Vec3{0, 0, 1})
	q1 := mgl32.QuatRotate(0.2, mgl32.Vec3{0, 0, 1}).Scale(-1)
	q2 := mgl32.QuatRotate(0.3, mgl32.Vec3{0, 0, 1})
	a := &anm.Anm{
		Keyframes: []anm.Keyframe{
			{TimeId: 0, Rotation: q0},
			{TimeId: 1, Rotation: q1},
			{TimeId: 2, Rotation: q2},
		},
		Times:   []float32{0, 0.5, 1, 1.5},
		Offsets: [][]uint16{{0}, {1}, {2}},
	}

	var trace bytes.Buffer
	res, err := Reconstruct(a, 1, 30, utils.NewLogger(&trace))
	if err != nil {
		t.Fatal(err)
	}
	if res.Mismatch != nil {
		t.Errorf("unexpected mismatch %v", res.Mismatch)
	}
	samples := res.Bones[0]
	if len(samples) != 3 {
		t.Fatalf("samples=%d; expected 3", len(samples))
	}
	if samples[1].Rotation != q1.Scale(-1) {
		t.Errorf("sample 1 rotation %v; expected flipped %v", samples[1].Rotation, q1.Scale(-1))
	}
	// continuity is checked against emitted rotation, q2 stays as is
	if samples[2].Rotation != q2 {
		t.Errorf("sample 2 rotation %v; expected %v", samples[2].Rotation, q2)
	}
	if samples[2].Frame != 30 || samples[2].Time != 1 {
		t.Errorf("sample 2 frame %v time %v; expected 30 and 1", samples[2].Frame, samples[2].Time)
	}
	if !bytes.Contains(trace.Bytes(), []byte("flipped")) {
		t.Errorf("trace does not mention flip: %q", trace.String())
	}
}

func TestReconstructSkipsConsumed(t *testing.T) {
	id := mgl32.QuatIdent()
	frames := [][]Transform{
		{tr(0, 0, 0, id), tr(1, 1, 1, id)},
		{tr(0, 0, 0, id), tr(2, 1, 1, id)},
		{tr(0, 0, 0, id), tr(2, 1, 1, id)},
		{tr(3, 0, 0, id), tr(2, 1, 1, id)},
	}
	a, err := Build(frames, 0, 30, 0)
	if err != nil {
		t.Fatal(err)
	}
	res, err := Reconstruct(a, 2, 30, nil)
	if err != nil {
		t.Fatal(err)
	}
	if n := len(res.Bones[0]); n != 2 {
		t.Errorf("bone 0 samples=%d; expected 2", n)
	}
	if n := len(res.Bones[1]); n != 2 {
		t.Errorf("bone 1 samples=%d; expected 2", n)
	}
	if f := res.Bones[0][1].Frame; f != 3 {
		t.Errorf("bone 0 second sample frame=%v; expected 3", f)
	}
	if f := res.LastFrame(); f != 3 {
		t.Errorf("LastFrame()=%v; expected 3", f)
	}
}

func TestReconstructBoneCountMismatch(t *testing.T) {
	id := mgl32.QuatIdent()
	frames := [][]Transform{
		{tr(0, 0, 0, id), tr(1, 0, 0, id)},
		{tr(0, 1, 0, id), tr(1, 0, 0, id)},
		{tr(0, 1, 0, id), tr(1, 1, 0, id)},
	}
	a, err := Build(frames, 0, 30, 0)
	if err != nil {
		t.Fatal(err)
	}

	res, err := Reconstruct(a, 3, 30, nil)
	if err != nil {
		t.Fatalf("mismatch must not fail: %v", err)
	}
	if len(res.Bones) != 2 {
		t.Errorf("bones=%d; expected 2", len(res.Bones))
	}
	if res.Mismatch == nil || res.Mismatch.File != 2 || res.Mismatch.Target != 3 {
		t.Errorf("mismatch=%v; expected file 2 target 3", res.Mismatch)
	}

	res, err = Reconstruct(a, 1, 30, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Bones) != 1 || res.Mismatch == nil {
		t.Errorf("bones=%d mismatch=%v; expected 1 bone and mismatch", len(res.Bones), res.Mismatch)
	}

	res, err = Reconstruct(a, -1, 30, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Bones) != 2 || res.Mismatch != nil {
		t.Errorf("bones=%d mismatch=%v; expected 2 bones without mismatch", len(res.Bones), res.Mismatch)
	}
}

func TestReconstructIndexRange(t *testing.T) {
	a := &anm.Anm{
		Keyframes: []anm.Keyframe{{Rotation: mgl32.QuatIdent()}},
		Times:     []float32{0, 1},
		Offsets:   [][]uint16{{1}},
	}
	if _, err := Reconstruct(a, 1, 30, nil); !errors.Is(err, anm.ErrIndexRange) {
		t.Errorf("error=%v; expected ErrIndexRange", err)
	}
}

func TestEncodeDecodeReconstruct(t *testing.T) {
	frames := make([][]Transform, 20)
	for i := range frames {
		angle := float32(i) * 0.35
		frames[i] = []Transform{
			tr(float32(i)*0.1, 0, -1, mgl32.QuatRotate(angle, mgl32.Vec3{0, 1, 0})),
			tr(0, 2, 0, mgl32.QuatIdent()),
		}
	}
	a, err := Build(frames, 5, 30, 0)
	if err != nil {
		t.Fatal(err)
	}
	data, err := anm.Encode(a, binary.LittleEndian)
	if err != nil {
		t.Fatal(err)
	}
	decoded, err := anm.Decode(data)
	if err != nil {
		t.Fatal(err)
	}
	res, err := Reconstruct(decoded, 2, 30, nil)
	if err != nil {
		t.Fatal(err)
	}

	if len(res.Bones[0]) != 20 || len(res.Bones[1]) != 1 {
		t.Fatalf("samples %d/%d; expected 20/1", len(res.Bones[0]), len(res.Bones[1]))
	}
	for i, s := range res.Bones[0] {
		if math.Abs(float64(s.Frame-float32(i))) > 1e-3 {
			t.Errorf("sample %d frame %v", i, s.Frame)
		}
		if i > 0 {
			prev := res.Bones[0][i-1].Rotation
			if utils.QuatAngle(prev, s.Rotation) > math.Pi {
				t.Errorf("sample %d: discontinuous rotation %v -> %v", i, prev, s.Rotation)
			}
		}
		expected := frames[i][0].Position
		if math.Abs(float64(s.Position[0]-expected[0])) > float64(decoded.Scale[0]) {
			t.Errorf("sample %d position %v; expected %v", i, s.Position, expected)
		}
	}
}
