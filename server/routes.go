package server

import (
	"encoding/json"
	"expvar"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof" // for pprof server
	"path/filepath"

	"github.com/facebookgo/httpdown"
	"github.com/julienschmidt/httprouter"

	"github.com/preservio/bagit/store"
)

// RESTServer holds the configuration for a bag REST API server.
//
// Set all the public fields and then call Run. Run will listen on the given
// port and handle requests. At the moment there is no maximum simultaneous
// request limit. Do not change any fields after calling Run.
//
// There are two levels of configuration. It should be enough to only set
// BagPath. The other fields are exposed to allow more customization.
type RESTServer struct {
	// Port number to listen on. defaults to 14000
	PortNumber string
	PProfPort  string

	// BagPath is the directory holding the bags this server manages.
	// Each bag is a subdirectory of it. Run will panic if BagPath is
	// empty.
	BagPath string

	// Pass in a dial command to use a MySQL server to store the
	// validation history. Otherwise a lightweight internal database is
	// used, and placed inside the BagPath directory. (To keep the
	// history entirely in memory, set Validation to NewQlDB("memory")
	// instead; the tests do that.)
	// e.g. "user:password@tcp(localhost:5555)/dbname" or just "/dbname"
	// if everything else can be the default. Can also use domain sockets:
	// "user@unix(/path/to/socket)/dbname"
	MySQL string

	// Validation records the outcome of every validation run. If nil,
	// one is created according to MySQL above.
	Validation ValidationDB

	// Archives receives packaged bag archives. If nil, the package
	// route returns an error.
	Archives store.Store

	server httpdown.Server
}

// Run initializes and starts all the goroutines used by the server. It then
// blocks listening for and handling http requests.
func (s *RESTServer) Run() error {
	if s.BagPath == "" {
		panic("BagPath is empty")
	}
	if s.PortNumber == "" {
		s.PortNumber = "14000"
	}
	log.Println("==========")
	log.Printf("bagpath = %s", s.BagPath)
	log.Printf("mysql = %s", s.MySQL)

	if s.Validation == nil {
		if s.MySQL != "" {
			db, err := NewMysqlDB(s.MySQL)
			if err != nil {
				panic("no ValidationDB")
			}
			s.Validation = db
		} else {
			db := NewQlDB(filepath.Join(s.BagPath, "validation.ql"))
			if db == nil {
				panic("no ValidationDB")
			}
			s.Validation = db
		}
	}

	// for pprof
	if s.PProfPort != "" {
		log.Println("Starting PProf on port", s.PProfPort)
		go func() {
			log.Println(http.ListenAndServe(":"+s.PProfPort, nil))
		}()
	}
	log.Println("Listening on", s.PortNumber)

	var err error
	h := httpdown.HTTP{}
	s.server, err = h.ListenAndServe(&http.Server{
		Addr:    ":" + s.PortNumber,
		Handler: s.addRoutes(),
	})
	if err != nil {
		log.Println(err)
		return err
	}
	return s.server.Wait()
}

// Stop will stop the server and return when all the server goroutines have
// exited and the socket closed.
func (s *RESTServer) Stop() error {
	return s.server.Stop()
}

func (s *RESTServer) addRoutes() http.Handler {
	var routes = []struct {
		method  string
		route   string
		handler httprouter.Handle
	}{
		{"GET", "/bag", s.ListBagsHandler},
		{"GET", "/bag/:id", s.BagInfoHandler},
		{"POST", "/bag/:id", s.CreateBagHandler},
		{"POST", "/bag/:id/update", s.UpdateBagHandler},
		{"GET", "/bag/:id/file/*path", s.FileHandler},
		{"PUT", "/bag/:id/file/*path", s.UploadFileHandler},
		{"GET", "/bag/:id/validate", s.ValidateBagHandler},
		{"POST", "/bag/:id/fetch", s.FetchBagHandler},
		{"POST", "/bag/:id/package", s.PackageBagHandler},
		{"GET", "/bag/:id/history", s.HistoryHandler},

		// other
		{"GET", "/", WelcomeHandler},
		{"GET", "/debug/vars", VarHandler}, // standard route for expvars data
	}

	r := httprouter.New()
	for _, route := range routes {
		r.Handle(route.method,
			route.route,
			logWrapper(route.handler))
	}
	return r
}

// General route handlers and convinence functions

// WelcomeHandler identifies the server.
func WelcomeHandler(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	fmt.Fprintf(w, "BagIt Server\n")
}

// VarHandler adapts the expvar default handler to the httprouter three parameter handler.
func VarHandler(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	// this code is taken from the stdlib expvar package.
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	fmt.Fprintf(w, "{\n")
	first := true
	expvar.Do(func(kv expvar.KeyValue) {
		if !first {
			fmt.Fprintf(w, ",\n")
		}
		first = false
		fmt.Fprintf(w, "%q: %s", kv.Key, kv.Value)
	})
	fmt.Fprintf(w, "\n}\n")
}

// NotImplementedHandler will return a 501 not implemented error.
func NotImplementedHandler(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	w.WriteHeader(http.StatusNotImplemented)
	fmt.Fprintf(w, "Not Implemented\n")
}

func writeJSON(w http.ResponseWriter, val interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	json.NewEncoder(w).Encode(val)
}

// logWrapper takes a handler and returns a handler which does the same thing,
// after first logging the request URL.
func logWrapper(handler httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		log.Println(r.Method, r.URL)
		handler(w, r, ps)
	}
}
