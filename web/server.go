package web

import (
	"log"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/mogaika/bfbb_anm/status"
	"github.com/mogaika/bfbb_anm/store"
	"github.com/mogaika/bfbb_anm/utils"
)

type Server struct {
	Store  *store.Store
	Status *status.Broadcaster
	names  *utils.RandomNameGenerator
}

func NewServer(s *store.Store) *Server {
	return &Server{
		Store:  s,
		Status: status.NewBroadcaster(),
		names:  utils.NewRandomNameGenerator(time.Now().UnixNano(), s.Has),
	}
}

func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/json/anm", s.HandlerList).Methods("GET")
	r.HandleFunc("/json/anm/{name}", s.HandlerJson).Methods("GET")
	r.HandleFunc("/json/anm/{name}", s.HandlerDelete).Methods("DELETE")
	r.HandleFunc("/json/anm/{name}/tracks", s.HandlerTracks).Methods("GET")
	r.HandleFunc("/dump/anm/{name}", s.HandlerDump).Methods("GET")
	r.HandleFunc("/yaml/anm/{name}", s.HandlerYaml).Methods("GET")
	r.HandleFunc("/gltf/anm/{name}", s.HandlerGltf).Methods("GET")
	r.HandleFunc("/upload/anm", s.HandlerUpload).Methods("POST")
	r.HandleFunc("/upload/anm/{name}", s.HandlerUpload).Methods("POST")
	r.Handle("/ws/status", s.Status)
	return r
}

func StartServer(addr string, st *store.Store) error {
	s := NewServer(st)

	h := handlers.RecoveryHandler(handlers.PrintRecoveryStack(true))(s.Router())
	h = handlers.LoggingHandler(os.Stdout, h)

	log.Printf("[web] Starting server %v", addr)

	return http.ListenAndServe(addr, h)
}
