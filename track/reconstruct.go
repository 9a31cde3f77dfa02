package track

import (
	"fmt"
	"log"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/mogaika/bfbb_anm/anm"
	"github.com/mogaika/bfbb_anm/utils"
)

type Sample struct {
	Frame    float32 // time multiplied by fps
	Time     float32
	Position mgl32.Vec3
	Rotation mgl32.Quat
}

// BoneCountMismatch is reported when target skeleton and file disagree.
// Reconstruction still happens for the smaller count.
type BoneCountMismatch struct {
	File   int
	Target int
}

func (m *BoneCountMismatch) Error() string {
	return fmt.Sprintf("Bones number mismatch: file has %d, target has %d", m.File, m.Target)
}

type Result struct {
	Flags    uint32
	Times    []float32
	Bones    [][]Sample
	Mismatch *BoneCountMismatch
}

// LastFrame returns the biggest emitted frame value.
func (r *Result) LastFrame() float32 {
	var last float32
	for _, samples := range r.Bones {
		for _, s := range samples {
			if s.Frame > last {
				last = s.Frame
			}
		}
	}
	return last
}

// ResolveContinuity returns q or -q, whichever is angularly closer to prev.
func ResolveContinuity(prev *mgl32.Quat, q mgl32.Quat) mgl32.Quat {
	if prev == nil {
		return q
	}
	neg := utils.QuatNeg(q)
	if utils.QuatAngle(q, *prev) > utils.QuatAngle(neg, *prev) {
		return neg
	}
	return q
}

type boneScan struct {
	consumed map[uint16]struct{}
	prevRot  *mgl32.Quat
}

// Reconstruct walks offset rows and emits one sample per newly referenced
// keyframe of every bone. targetBones < 0 uses bones count of file.
func Reconstruct(a *anm.Anm, targetBones int, fps float32, _l *utils.Logger) (*Result, error) {
	if err := a.Validate(); err != nil {
		return nil, err
	}

	fileBones := a.BoneCount()
	bonesCount := fileBones
	res := &Result{Flags: a.Flags, Times: a.Times}

	if targetBones >= 0 && targetBones != fileBones {
		res.Mismatch = &BoneCountMismatch{File: fileBones, Target: targetBones}
		log.Printf("Warning: %v", res.Mismatch)
		if targetBones < bonesCount {
			bonesCount = targetBones
		}
	}

	res.Bones = make([][]Sample, bonesCount)
	scans := make([]boneScan, bonesCount)
	for i := range scans {
		scans[i].consumed = make(map[uint16]struct{})
	}

	for iRow, row := range a.Offsets {
		for iBone := 0; iBone < bonesCount; iBone++ {
			kfId := row[iBone]
			scan := &scans[iBone]
			if _, ok := scan.consumed[kfId]; ok {
				continue
			}
			scan.consumed[kfId] = struct{}{}

			kf := &a.Keyframes[kfId]
			rot := ResolveContinuity(scan.prevRot, kf.Rotation)
			if rot != kf.Rotation {
				_l.Printf("row %d bone %d keyframe %d: rotation sign flipped", iRow, iBone, kfId)
			}
			scan.prevRot = &rot

			t := a.Times[kf.TimeId]
			res.Bones[iBone] = append(res.Bones[iBone], Sample{
				Frame:    t * fps,
				Time:     t,
				Position: kf.Position,
				Rotation: rot,
			})
		}
	}

	_l.Printf("reconstructed %d bones from %d rows, %d keyframes", bonesCount, len(a.Offsets), len(a.Keyframes))
	return res, nil
}
