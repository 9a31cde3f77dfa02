package web

import (
	"bytes"
	"fmt"
	"log"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/mogaika/bfbb_anm/anm"
	"github.com/mogaika/bfbb_anm/config"
	"github.com/mogaika/bfbb_anm/gltfexport"
	"github.com/mogaika/bfbb_anm/store"
	"github.com/mogaika/bfbb_anm/track"
	"github.com/mogaika/bfbb_anm/webutils"
)

func (s *Server) writeStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, store.ErrNotFound) {
		webutils.WriteErrorCode(w, http.StatusNotFound, err)
	} else {
		webutils.WriteError(w, err)
	}
}

func (s *Server) HandlerList(w http.ResponseWriter, r *http.Request) {
	if names, err := s.Store.List(); err != nil {
		s.writeStoreError(w, err)
	} else {
		webutils.WriteJson(w, names)
	}
}

func (s *Server) HandlerJson(w http.ResponseWriter, r *http.Request) {
	a, err := s.Store.Get(mux.Vars(r)["name"])
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	webutils.WriteJson(w, a)
}

func (s *Server) HandlerDelete(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	if err := s.Store.Delete(name); err != nil {
		s.writeStoreError(w, err)
		return
	}
	s.Status.Info("Deleted %q", name)
	webutils.WriteJson(w, map[string]string{"deleted": name})
}

func (s *Server) HandlerDump(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	data, err := s.Store.GetRaw(name)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	webutils.WriteBytesFile(w, data, name+".anm")
}

func (s *Server) HandlerYaml(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	a, err := s.Store.Get(name)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}

	var buffer bytes.Buffer
	enc := yaml.NewEncoder(&buffer)
	enc.SetIndent(2)
	if err := enc.Encode(a); err != nil {
		webutils.WriteErrorCode(w, http.StatusInternalServerError, errors.Wrapf(err, "Failed to marshal yaml"))
		return
	}
	if err := enc.Close(); err != nil {
		webutils.WriteErrorCode(w, http.StatusInternalServerError, errors.Wrapf(err, "Failed to close yaml encoder"))
		return
	}
	webutils.WriteFile(w, &buffer, name+".yaml")
}

func (s *Server) reconstruct(r *http.Request) (*track.Result, error) {
	fps, err := webutils.QueryFloat(r, "fps", config.GetFPS())
	if err != nil {
		return nil, err
	}
	if fps <= 0 {
		return nil, errors.Errorf("Invalid fps %v", fps)
	}
	bones, err := webutils.QueryInt(r, "bones", -1)
	if err != nil {
		return nil, err
	}

	a, err := s.Store.Get(mux.Vars(r)["name"])
	if err != nil {
		return nil, err
	}
	res, err := track.Reconstruct(a, bones, fps, nil)
	if err != nil {
		return nil, err
	}
	if res.Mismatch != nil {
		s.Status.Error("%q: %v", mux.Vars(r)["name"], res.Mismatch)
	}
	return res, nil
}

func (s *Server) HandlerTracks(w http.ResponseWriter, r *http.Request) {
	res, err := s.reconstruct(r)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	type jTracks struct {
		*track.Result
		Mismatch  string `json:",omitempty"`
		LastFrame float32
	}
	out := &jTracks{Result: res, LastFrame: res.LastFrame()}
	if res.Mismatch != nil {
		out.Mismatch = res.Mismatch.Error()
	}
	webutils.WriteJson(w, out)
}

func (s *Server) HandlerGltf(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	res, err := s.reconstruct(r)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	exp, err := gltfexport.Export(res, nil, name)
	if err != nil {
		webutils.WriteErrorCode(w, http.StatusInternalServerError, err)
		return
	}

	var buffer bytes.Buffer
	if err := gltfexport.ExportBinary(&buffer, exp.Doc); err != nil {
		webutils.WriteErrorCode(w, http.StatusInternalServerError, err)
		return
	}
	webutils.WriteFile(w, &buffer, name+".glb")
}

// HandlerUpload accepts binary files as is. With format=yaml the text form is
// encoded in endian query order, or its own endian field, or configured default.
func (s *Server) HandlerUpload(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	if name == "" {
		name = s.names.RandomName()
	}

	data, err := webutils.ReadFormFile(r, "data")
	if err != nil {
		webutils.WriteError(w, err)
		return
	}

	switch format := r.URL.Query().Get("format"); format {
	case "", "anm":
	case "yaml":
		var a anm.Anm
		if err := yaml.Unmarshal(data, &a); err != nil {
			webutils.WriteError(w, errors.Wrapf(err, "Failed to unmarshal yaml"))
			return
		}
		order := a.OrderOr(config.GetByteOrder())
		if e := r.URL.Query().Get("endian"); e != "" {
			if order, err = config.ParseByteOrder(e); err != nil {
				webutils.WriteError(w, err)
				return
			}
		}
		if data, err = anm.Encode(&a, order); err != nil {
			webutils.WriteError(w, errors.Wrapf(err, "Failed to encode"))
			return
		}
	default:
		webutils.WriteError(w, fmt.Errorf("Unknown format %q", format))
		return
	}

	if err := s.Store.PutRaw(name, data); err != nil {
		s.Status.Error("Upload of %q failed: %v", name, err)
		webutils.WriteError(w, err)
		return
	}

	log.Printf("[web] uploaded %q", name)
	s.Status.Info("Uploaded %q (%d bytes)", name, len(data))
	webutils.WriteJson(w, map[string]interface{}{"name": name, "size": len(data)})
}
