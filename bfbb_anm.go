package main

import (
	"flag"
	"log"
	"os"

	"github.com/mogaika/bfbb_anm/config"
	"github.com/mogaika/bfbb_anm/store"
	"github.com/mogaika/bfbb_anm/web"
)

func main() {
	var addr, dbpath, cfgpath string
	flag.StringVar(&addr, "i", ":8000", "Address of server")
	flag.StringVar(&dbpath, "db", "anm.res", "Path to animations resource file")
	flag.StringVar(&cfgpath, "config", "", "Path to yaml config with codec defaults")
	flag.Parse()

	if cfgpath != "" {
		f, err := os.Open(cfgpath)
		if err != nil {
			log.Fatal(err)
		}
		err = config.Load(f)
		f.Close()
		if err != nil {
			log.Fatal(err)
		}
	}

	st, err := store.Open(dbpath)
	if err != nil {
		log.Fatal(err)
	}
	defer st.Close()

	if err := web.StartServer(addr, st); err != nil {
		log.Fatal(err)
	}
}
