package main

import (
	"bytes"
	"flag"
	"fmt"
	"io/ioutil"
	"log"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/mogaika/bfbb_anm/anm"
	"github.com/mogaika/bfbb_anm/config"
	"github.com/mogaika/bfbb_anm/gltfexport"
	"github.com/mogaika/bfbb_anm/store"
	"github.com/mogaika/bfbb_anm/track"
	"github.com/mogaika/bfbb_anm/utils"
)

type options struct {
	in, out  string
	endian   string
	fps      float64
	bones    int
	skeleton string
	db, name string
	verbose  bool
}

func readInput(path string) ([]byte, error) {
	if path == "" || path == "-" {
		return ioutil.ReadAll(os.Stdin)
	}
	return ioutil.ReadFile(path)
}

func writeOutput(path string, data []byte) error {
	if path == "" || path == "-" {
		_, err := os.Stdout.Write(data)
		return err
	}
	return ioutil.WriteFile(path, data, 0666)
}

func decodeInput(o *options) (*anm.Anm, error) {
	data, err := readInput(o.in)
	if err != nil {
		return nil, err
	}
	return anm.Decode(data)
}

func loadSkeleton(path string) (*track.Skeleton, error) {
	if path == "" {
		return nil, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return track.LoadSkeleton(f)
}

func modeDump(o *options) error {
	a, err := decodeInput(o)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	utils.Fdump(&buf, a)
	fmt.Fprintf(&buf, "duration: %v\n", a.Duration())
	return writeOutput(o.out, buf.Bytes())
}

func modeToYaml(o *options) error {
	a, err := decodeInput(o)
	if err != nil {
		return err
	}
	data, err := yaml.Marshal(a)
	if err != nil {
		return errors.Wrapf(err, "Failed to marshal yaml")
	}
	return writeOutput(o.out, data)
}

func modeFromYaml(o *options) error {
	data, err := readInput(o.in)
	if err != nil {
		return err
	}
	var a anm.Anm
	if err := yaml.Unmarshal(data, &a); err != nil {
		return errors.Wrapf(err, "Failed to unmarshal yaml")
	}
	order := a.OrderOr(config.GetByteOrder())
	if o.endian != "" {
		if order, err = config.ParseByteOrder(o.endian); err != nil {
			return err
		}
	}
	if data, err = anm.Encode(&a, order); err != nil {
		return err
	}
	return writeOutput(o.out, data)
}

func modeBuild(o *options) error {
	data, err := readInput(o.in)
	if err != nil {
		return err
	}
	ps, err := track.LoadPoses(bytes.NewReader(data))
	if err != nil {
		return err
	}
	fps := ps.FPS
	if o.fps > 0 {
		fps = float32(o.fps)
	}
	if fps <= 0 {
		fps = config.GetFPS()
	}
	flags := ps.Flags
	if flags == 0 {
		flags = config.GetFlags()
	}
	a, err := track.Build(ps.Transforms(), ps.FirstFrame, fps, flags)
	if err != nil {
		return err
	}
	order := config.GetByteOrder()
	if o.endian != "" {
		if order, err = config.ParseByteOrder(o.endian); err != nil {
			return err
		}
	}
	log.Printf("built %d keyframes for %d bones over %d frames", len(a.Keyframes), a.BoneCount(), len(ps.Frames))
	if data, err = anm.Encode(a, order); err != nil {
		return err
	}
	return writeOutput(o.out, data)
}

func modeGltf(o *options) error {
	a, err := decodeInput(o)
	if err != nil {
		return err
	}
	skel, err := loadSkeleton(o.skeleton)
	if err != nil {
		return err
	}
	bones := o.bones
	if skel != nil {
		bones = len(skel.Bones)
	}
	fps := config.GetFPS()
	if o.fps > 0 {
		fps = float32(o.fps)
	}

	var l *utils.Logger
	if o.verbose {
		l = utils.NewLogger(os.Stderr)
	}
	res, err := track.Reconstruct(a, bones, fps, l)
	if err != nil {
		return err
	}
	exp, err := gltfexport.Export(res, skel, o.name)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := gltfexport.ExportBinary(&buf, exp.Doc); err != nil {
		return err
	}
	return writeOutput(o.out, buf.Bytes())
}

func openStore(o *options) (*store.Store, error) {
	if o.db == "" {
		return nil, errors.New("-db required")
	}
	if o.name == "" {
		return nil, errors.New("-name required")
	}
	return store.Open(o.db)
}

func modePack(o *options) error {
	data, err := readInput(o.in)
	if err != nil {
		return err
	}
	st, err := openStore(o)
	if err != nil {
		return err
	}
	defer st.Close()
	return st.PutRaw(o.name, data)
}

func modeUnpack(o *options) error {
	st, err := openStore(o)
	if err != nil {
		return err
	}
	defer st.Close()
	data, err := st.GetRaw(o.name)
	if err != nil {
		return err
	}
	return writeOutput(o.out, data)
}

var modes = map[string]func(*options) error{
	"dump":     modeDump,
	"toyaml":   modeToYaml,
	"fromyaml": modeFromYaml,
	"build":    modeBuild,
	"gltf":     modeGltf,
	"pack":     modePack,
	"unpack":   modeUnpack,
}

func loadConfig(path string) error {
	if path == "" {
		return nil
	}
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return config.Load(f)
}

func main() {
	var o options
	var mode, cfgpath string
	flag.StringVar(&mode, "mode", "dump", "One of: dump, toyaml, fromyaml, build, gltf, pack, unpack")
	flag.StringVar(&o.in, "in", "-", "Input file, - for stdin")
	flag.StringVar(&o.out, "out", "-", "Output file, - for stdout")
	flag.StringVar(&o.endian, "endian", "", "Output byte order: le or be")
	flag.Float64Var(&o.fps, "fps", 0, "Frames per second override")
	flag.IntVar(&o.bones, "bones", -1, "Target bones count for gltf mode, -1 to use file count")
	flag.StringVar(&o.skeleton, "skeleton", "", "Skeleton yaml for gltf mode")
	flag.StringVar(&o.db, "db", "", "Animations resource file for pack and unpack modes")
	flag.StringVar(&o.name, "name", "anm", "Animation name")
	flag.StringVar(&cfgpath, "config", "", "Path to yaml config with codec defaults")
	flag.BoolVar(&o.verbose, "v", false, "Verbose reconstruction log")
	flag.Parse()

	f, ok := modes[mode]
	if !ok {
		flag.PrintDefaults()
		os.Exit(2)
	}
	if err := loadConfig(cfgpath); err != nil {
		log.Fatal(err)
	}
	if err := f(&o); err != nil {
		log.Fatalf("%s: %v", mode, err)
	}
}
