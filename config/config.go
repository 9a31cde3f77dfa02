package config

import (
	"encoding/binary"
	"io"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const (
	// filler of legacy exporter, keeps output byte exact
	PaddingLegacy byte = 'H'
	PaddingZero   byte = 0
)

const DefaultFPS float32 = 30.0

var fps = DefaultFPS
var byteOrder binary.ByteOrder = binary.LittleEndian
var paddingFiller = PaddingLegacy
var flags uint32

func GetFPS() float32 {
	return fps
}

func SetFPS(v float32) error {
	if v <= 0 {
		return errors.Errorf("Invalid fps %v", v)
	}
	fps = v
	return nil
}

func GetByteOrder() binary.ByteOrder {
	return byteOrder
}

func SetByteOrder(o binary.ByteOrder) {
	byteOrder = o
}

func GetPaddingFiller() byte {
	return paddingFiller
}

func SetPaddingFiller(b byte) {
	paddingFiller = b
}

func GetFlags() uint32 {
	return flags
}

func SetFlags(f uint32) {
	flags = f
}

// File is the yaml form of the settings above. Empty fields keep current values.
type File struct {
	FPS     float32 `yaml:"fps"`
	Endian  string  `yaml:"endian"`
	Padding string  `yaml:"padding"`
	Flags   *uint32 `yaml:"flags"`
}

func Load(r io.Reader) error {
	var f File
	if err := yaml.NewDecoder(r).Decode(&f); err != nil && err != io.EOF {
		return errors.Wrapf(err, "Failed to unmarshal config")
	}
	return f.Apply()
}

func (f *File) Apply() error {
	if f.FPS != 0 {
		if err := SetFPS(f.FPS); err != nil {
			return err
		}
	}
	if f.Endian != "" {
		o, err := ParseByteOrder(f.Endian)
		if err != nil {
			return err
		}
		SetByteOrder(o)
	}
	switch f.Padding {
	case "":
	case "legacy":
		SetPaddingFiller(PaddingLegacy)
	case "zero":
		SetPaddingFiller(PaddingZero)
	default:
		return errors.Errorf("Unknown padding mode %q", f.Padding)
	}
	if f.Flags != nil {
		SetFlags(*f.Flags)
	}
	return nil
}

func ParseByteOrder(s string) (binary.ByteOrder, error) {
	switch s {
	case "<", "le", "little":
		return binary.LittleEndian, nil
	case ">", "be", "big":
		return binary.BigEndian, nil
	}
	return nil, errors.Errorf("Unknown byte order %q", s)
}

func ByteOrderName(o binary.ByteOrder) string {
	if o == binary.BigEndian {
		return "big"
	}
	return "little"
}
