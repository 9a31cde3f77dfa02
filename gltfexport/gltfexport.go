// Package gltfexport writes reconstructed animation tracks as glTF documents
// with one node per bone and a linear animation channel per bone attribute.
package gltfexport

import (
	"fmt"
	"io"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"

	"github.com/mogaika/bfbb_anm/track"
)

type Exported struct {
	Doc       *gltf.Document
	BoneNodes []uint32
}

func NewDocument() *gltf.Document {
	return gltf.NewDocument()
}

// Export adds skeleton nodes and an animation named name to a new document.
// Without skeleton flat bones named bone_N are created for every track.
func Export(res *track.Result, skel *track.Skeleton, name string) (*Exported, error) {
	doc := NewDocument()
	exp := &Exported{Doc: doc}

	bones := make([]track.Bone, len(res.Bones))
	for i := range bones {
		bones[i] = track.Bone{Name: fmt.Sprintf("bone_%d", i), Parent: -1}
	}
	if skel != nil {
		if len(skel.Bones) < len(res.Bones) {
			return nil, errors.Errorf("Skeleton has %d bones, tracks %d", len(skel.Bones), len(res.Bones))
		}
		if err := skel.Validate(); err != nil {
			return nil, err
		}
		bones = skel.Bones
	}

	exp.BoneNodes = make([]uint32, len(bones))
	for i, b := range bones {
		exp.BoneNodes[i] = uint32(len(doc.Nodes))
		doc.Nodes = append(doc.Nodes, &gltf.Node{Name: b.Name})
	}
	for i, b := range bones {
		if b.Parent < 0 {
			doc.Scenes[0].Nodes = append(doc.Scenes[0].Nodes, exp.BoneNodes[i])
		} else {
			parent := doc.Nodes[exp.BoneNodes[b.Parent]]
			parent.Children = append(parent.Children, exp.BoneNodes[i])
		}
	}

	anim := &gltf.Animation{Name: name}
	for iBone, samples := range res.Bones {
		if len(samples) == 0 {
			continue
		}

		times := make([]float32, len(samples))
		positions := make([][3]float32, len(samples))
		rotations := make([][4]float32, len(samples))
		for i, s := range samples {
			times[i] = s.Time
			positions[i] = s.Position
			rotations[i] = rotationOutput(s.Rotation)
		}

		input := modeler.WriteAccessor(doc, gltf.TargetNone, times)
		setMinMax(doc.Accessors[input], times)
		addChannel(anim, exp.BoneNodes[iBone], gltf.TRSTranslation, input,
			modeler.WriteAccessor(doc, gltf.TargetNone, positions))
		addChannel(anim, exp.BoneNodes[iBone], gltf.TRSRotation, input,
			modeler.WriteAccessor(doc, gltf.TargetNone, rotations))
	}
	if len(anim.Channels) != 0 {
		doc.Animations = append(doc.Animations, anim)
	}

	return exp, nil
}

// rotationOutput returns x, y, z, w of unit q. Decoded rotations are not
// renormalized but gltf requires unit quaternions.
func rotationOutput(q mgl32.Quat) [4]float32 {
	q = q.Normalize()
	return [4]float32{q.V[0], q.V[1], q.V[2], q.W}
}

// setMinMax fills bounds required on animation sampler input accessors.
func setMinMax(acc *gltf.Accessor, times []float32) {
	min, max := times[0], times[0]
	for _, t := range times[1:] {
		if t < min {
			min = t
		}
		if t > max {
			max = t
		}
	}
	acc.Min = []float32{min}
	acc.Max = []float32{max}
}

func addChannel(anim *gltf.Animation, node uint32, path gltf.TRSProperty, input, output uint32) {
	anim.Channels = append(anim.Channels, &gltf.Channel{
		Sampler: gltf.Index(uint32(len(anim.Samplers))),
		Target: gltf.ChannelTarget{
			Node: gltf.Index(node),
			Path: path,
		},
	})
	anim.Samplers = append(anim.Samplers, &gltf.AnimationSampler{
		Input:         gltf.Index(input),
		Output:        gltf.Index(output),
		Interpolation: gltf.InterpolationLinear,
	})
}

func ExportBinary(w io.Writer, doc *gltf.Document) error {
	encoder := gltf.NewEncoder(w)
	encoder.AsBinary = true
	if err := encoder.Encode(doc); err != nil {
		return errors.Wrapf(err, "Failed to encode gltf")
	}
	return nil
}
