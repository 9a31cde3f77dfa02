package anm

import (
	"encoding/binary"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/mogaika/bfbb_anm/config"
)

type yamlKeyframe struct {
	Time     uint16     `yaml:"time"`
	Position [3]float32 `yaml:"position,flow"`
	Rotation [4]float32 `yaml:"rotation,flow"` // w, x, y, z
}

type yamlAnm struct {
	Endian    string         `yaml:"endian,omitempty"`
	Flags     uint32         `yaml:"flags"`
	Times     []float32      `yaml:"times,flow"`
	Keyframes []yamlKeyframe `yaml:"keyframes"`
	Offsets   [][]uint16     `yaml:"offsets,flow"`
}

func (a *Anm) MarshalYAML() (interface{}, error) {
	y := &yamlAnm{
		Flags:     a.Flags,
		Times:     a.Times,
		Keyframes: make([]yamlKeyframe, len(a.Keyframes)),
		Offsets:   a.Offsets,
	}
	if a.ByteOrder != nil {
		y.Endian = config.ByteOrderName(a.ByteOrder)
	}
	for i, kf := range a.Keyframes {
		y.Keyframes[i] = yamlKeyframe{
			Time:     kf.TimeId,
			Position: kf.Position,
			Rotation: [4]float32{kf.Rotation.W, kf.Rotation.V[0], kf.Rotation.V[1], kf.Rotation.V[2]},
		}
	}
	return y, nil
}

func (a *Anm) UnmarshalYAML(value *yaml.Node) error {
	var y yamlAnm
	if err := value.Decode(&y); err != nil {
		return errors.Wrapf(err, "Failed to decode anim yaml")
	}

	*a = Anm{
		Flags:     y.Flags,
		Times:     y.Times,
		Keyframes: make([]Keyframe, len(y.Keyframes)),
		Offsets:   y.Offsets,
	}
	if y.Endian != "" {
		o, err := config.ParseByteOrder(y.Endian)
		if err != nil {
			return err
		}
		a.ByteOrder = o
	}
	for i, kf := range y.Keyframes {
		a.Keyframes[i] = Keyframe{
			TimeId:   kf.Time,
			Position: kf.Position,
			Rotation: mgl32.Quat{W: kf.Rotation[0], V: mgl32.Vec3{kf.Rotation[1], kf.Rotation[2], kf.Rotation[3]}},
		}
	}
	a.Scale = a.DeriveScale()
	return nil
}

// OrderOr returns decoded byte order or def when unknown.
func (a *Anm) OrderOr(def binary.ByteOrder) binary.ByteOrder {
	if a.ByteOrder != nil {
		return a.ByteOrder
	}
	return def
}
