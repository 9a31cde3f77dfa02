// Package track converts between dense per frame bone poses and the
// deduplicated keyframe layout of anm files.
package track

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"

	"github.com/mogaika/bfbb_anm/anm"
)

// Transform is a bone transform local to its parent rest pose.
type Transform struct {
	Position mgl32.Vec3
	Rotation mgl32.Quat
}

// Build deduplicates poses into keyframes. frames[i] holds the transform of
// every bone at frame firstFrame+i.
// A bone gets a new keyframe on the first frame and on every frame where its
// position or rotation differs exactly from the previous frame.
func Build(frames [][]Transform, firstFrame int, fps float32, flags uint32) (*anm.Anm, error) {
	if len(frames) == 0 {
		return nil, errors.New("No frames to build animation from")
	}
	if fps <= 0 {
		return nil, errors.Errorf("Invalid fps %v", fps)
	}
	// one extra time entry closes the range
	if len(frames)+1 > math.MaxUint16 {
		return nil, errors.Wrapf(anm.ErrLayout, "too many frames %d", len(frames))
	}

	bonesCount := len(frames[0])
	for iFrame, pose := range frames {
		if len(pose) != bonesCount {
			return nil, errors.Wrapf(anm.ErrLayout, "frame %d has %d bones, expected %d",
				firstFrame+iFrame, len(pose), bonesCount)
		}
	}

	a := &anm.Anm{
		Flags:     flags,
		Keyframes: make([]anm.Keyframe, 0, bonesCount),
		Times:     make([]float32, len(frames)+1),
		Offsets:   make([][]uint16, len(frames)),
	}

	for iFrame := range frames {
		a.Times[iFrame] = float32(iFrame) / fps
		a.Offsets[iFrame] = make([]uint16, bonesCount)
	}
	lastFrame := firstFrame + len(frames) - 1
	a.Times[len(frames)] = float32(lastFrame-firstFrame+1) / fps

	for iBone := 0; iBone < bonesCount; iBone++ {
		var last *Transform
		for iFrame := range frames {
			tr := &frames[iFrame][iBone]
			if last == nil || *tr != *last {
				if len(a.Keyframes) > math.MaxUint16 {
					return nil, errors.Wrapf(anm.ErrLayout,
						"keyframes count exceeds offset index range at bone %d frame %d", iBone, firstFrame+iFrame)
				}
				a.Keyframes = append(a.Keyframes, anm.Keyframe{
					TimeId:   uint16(iFrame),
					Position: tr.Position,
					Rotation: tr.Rotation,
				})
			}
			last = tr
			a.Offsets[iFrame][iBone] = uint16(len(a.Keyframes) - 1)
		}
	}

	return a, nil
}
