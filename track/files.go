package track

import (
	"io"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

type Bone struct {
	Name   string `yaml:"name"`
	Parent int    `yaml:"parent"` // -1 for root bones
}

// Skeleton is the bone list of target armature in declaration order.
type Skeleton struct {
	Bones []Bone `yaml:"bones"`
}

func LoadSkeleton(r io.Reader) (*Skeleton, error) {
	var s Skeleton
	if err := yaml.NewDecoder(r).Decode(&s); err != nil {
		return nil, errors.Wrapf(err, "Failed to unmarshal skeleton")
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate checks that parent links are in range and form a forest.
func (s *Skeleton) Validate() error {
	for i, b := range s.Bones {
		if b.Parent < -1 || b.Parent >= len(s.Bones) || b.Parent == i {
			return errors.Errorf("Bone %d %q has invalid parent %d", i, b.Name, b.Parent)
		}
	}
	for i, b := range s.Bones {
		// any chain longer than bones count has a loop
		steps := 0
		for p := b.Parent; p >= 0; p = s.Bones[p].Parent {
			if steps++; steps > len(s.Bones) {
				return errors.Errorf("Bone %d %q has parent loop", i, b.Name)
			}
		}
	}
	return nil
}

type PoseSample struct {
	Position [3]float32 `yaml:"position,flow"`
	Rotation [4]float32 `yaml:"rotation,flow"` // w, x, y, z
}

// PoseSequence is the file form of sampled bone transforms.
type PoseSequence struct {
	FirstFrame int            `yaml:"first_frame"`
	FPS        float32        `yaml:"fps"`
	Flags      uint32         `yaml:"flags"`
	Frames     [][]PoseSample `yaml:"frames"`
}

func LoadPoses(r io.Reader) (*PoseSequence, error) {
	var ps PoseSequence
	if err := yaml.NewDecoder(r).Decode(&ps); err != nil {
		return nil, errors.Wrapf(err, "Failed to unmarshal poses")
	}
	return &ps, nil
}

func (ps *PoseSequence) Transforms() [][]Transform {
	frames := make([][]Transform, len(ps.Frames))
	for iFrame, pose := range ps.Frames {
		frames[iFrame] = make([]Transform, len(pose))
		for iBone, s := range pose {
			frames[iFrame][iBone] = Transform{
				Position: s.Position,
				Rotation: mgl32.Quat{W: s.Rotation[0], V: mgl32.Vec3{s.Rotation[1], s.Rotation[2], s.Rotation[3]}},
			}
		}
	}
	return frames
}
