package server

import (
	"fmt"
	"io"
	"io/ioutil"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/julienschmidt/httprouter"

	"github.com/preservio/bagit/archive"
	"github.com/preservio/bagit/bagit"
)

// bagDir resolves a bag id into a path under BagPath. Returns an error for
// ids which would escape the base directory.
func (s *RESTServer) bagDir(id string) (string, error) {
	if id == "" || id == "." || strings.ContainsAny(id, `/\`) || strings.Contains(id, "..") {
		return "", fmt.Errorf("bad bag id %s", id)
	}
	return filepath.Join(s.BagPath, id), nil
}

func (s *RESTServer) openBag(w http.ResponseWriter, id string) *bagit.Bag {
	path, err := s.bagDir(id)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprintln(w, err.Error())
		return nil
	}
	if _, err := os.Stat(path); err != nil {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprintln(w, "Not Found")
		return nil
	}
	bag, err := bagit.Open(path)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprintln(w, err.Error())
		return nil
	}
	return bag
}

// ListBagsHandler handles GET /bag and returns the ids of every bag under
// BagPath as a JSON list.
func (s *RESTServer) ListBagsHandler(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	entries, err := ioutil.ReadDir(s.BagPath)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprintln(w, err.Error())
		return
	}
	ids := []string{}
	for _, e := range entries {
		if e.IsDir() {
			ids = append(ids, e.Name())
		}
	}
	writeJSON(w, ids)
}

// CreateBagHandler handles POST /bag/:id and creates a new empty bag. The
// query parameter extended=false makes a minimal bag without tag files.
func (s *RESTServer) CreateBagHandler(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id := ps.ByName("id")
	path, err := s.bagDir(id)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprintln(w, err.Error())
		return
	}
	if _, err := os.Stat(path); err == nil {
		w.WriteHeader(http.StatusConflict)
		fmt.Fprintf(w, "bag %s already exists\n", id)
		return
	}
	extended := true
	if v := r.FormValue("extended"); v != "" {
		extended, _ = strconv.ParseBool(v)
	}
	bag, err := bagit.Create(path, extended)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprintln(w, err.Error())
		return
	}
	w.WriteHeader(http.StatusCreated)
	writeJSON(w, bagInfo(id, bag))
}

// BagInfoHandler handles GET /bag/:id and returns a JSON summary of the bag.
func (s *RESTServer) BagInfoHandler(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id := ps.ByName("id")
	bag := s.openBag(w, id)
	if bag == nil {
		return
	}
	writeJSON(w, bagInfo(id, bag))
}

type bagInfoResult struct {
	ID        string            `json:"id"`
	Version   string            `json:"version"`
	Encoding  string            `json:"encoding"`
	Algorithm string            `json:"algorithm"`
	Extended  bool              `json:"extended"`
	Tags      map[string]string `json:"tags,omitempty"`
	Payload   bagit.Manifest    `json:"payload"`
	Problems  []bagit.BagError  `json:"problems,omitempty"`
}

func bagInfo(id string, bag *bagit.Bag) bagInfoResult {
	result := bagInfoResult{
		ID:        id,
		Version:   bag.Version(),
		Encoding:  bag.Encoding(),
		Algorithm: bag.HashEncoding().String(),
		Extended:  bag.Extended(),
		Payload:   bag.Payload(),
		Problems:  bag.Errors(),
	}
	info := bag.Info()
	if info.Len() > 0 {
		result.Tags = make(map[string]string)
		for _, key := range info.Keys() {
			v, _ := info.Get(key)
			result.Tags[key] = v
		}
	}
	return result
}

// UpdateBagHandler handles POST /bag/:id/update. It rebuilds the manifests
// and tag files of the bag from the payload on disk.
func (s *RESTServer) UpdateBagHandler(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id := ps.ByName("id")
	bag := s.openBag(w, id)
	if bag == nil {
		return
	}
	if err := bag.Update(); err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprintln(w, err.Error())
		return
	}
	writeJSON(w, bagInfo(id, bag))
}

// payloadPath resolves the *path route parameter into a path relative to the
// payload directory. Returns an empty string for paths which would escape it.
func payloadPath(ps httprouter.Params) string {
	p := strings.TrimPrefix(ps.ByName("path"), "/")
	if p == "" || strings.Contains(p, "..") {
		return ""
	}
	return p
}

// FileHandler handles GET /bag/:id/file/*path and returns the named payload
// file.
func (s *RESTServer) FileHandler(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id := ps.ByName("id")
	bag := s.openBag(w, id)
	if bag == nil {
		return
	}
	relpath := payloadPath(ps)
	if relpath == "" {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprintln(w, "bad file path")
		return
	}
	fname := filepath.Join(bag.Root(), "data", filepath.FromSlash(relpath))
	in, err := os.Open(fname)
	if err != nil {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprintln(w, "Not Found")
		return
	}
	defer in.Close()
	io.Copy(w, in)
}

// UploadFileHandler handles PUT /bag/:id/file/*path and stores the request
// body as a payload file. The manifests are not rebuilt until the update
// route is called.
func (s *RESTServer) UploadFileHandler(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id := ps.ByName("id")
	bag := s.openBag(w, id)
	if bag == nil {
		return
	}
	relpath := payloadPath(ps)
	if relpath == "" {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprintln(w, "bad file path")
		return
	}
	if err := bag.CreateFile(r.Body, relpath); err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprintln(w, err.Error())
		return
	}
	w.WriteHeader(http.StatusCreated)
}

type validateResult struct {
	ID       string           `json:"id"`
	Status   string           `json:"status"`
	Problems []bagit.BagError `json:"problems,omitempty"`
}

// ValidateBagHandler handles GET /bag/:id/validate. The outcome of each run
// is recorded in the validation database.
func (s *RESTServer) ValidateBagHandler(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id := ps.ByName("id")
	bag := s.openBag(w, id)
	if bag == nil {
		return
	}
	problems, err := bag.Validate()
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprintln(w, err.Error())
		return
	}
	result := validateResult{ID: id, Status: "ok", Problems: problems}
	if len(problems) > 0 {
		result.Status = "error"
	}
	if s.Validation != nil {
		notes := ""
		for _, p := range problems {
			if notes != "" {
				notes += "; "
			}
			notes += p.Error()
		}
		if err := s.Validation.Record(id, result.Status, notes); err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			fmt.Fprintln(w, err.Error())
			return
		}
	}
	writeJSON(w, result)
}

// FetchBagHandler handles POST /bag/:id/fetch and downloads everything the
// bag's fetch list names. The query parameter workers sets the number of
// parallel downloads.
func (s *RESTServer) FetchBagHandler(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id := ps.ByName("id")
	bag := s.openBag(w, id)
	if bag == nil {
		return
	}
	workers := 1
	if v := r.FormValue("workers"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprintln(w, "bad workers value")
			return
		}
		workers = n
	}
	if err := bag.FetchParallel(workers); err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprintln(w, err.Error())
		return
	}
	writeJSON(w, bagInfo(id, bag))
}

// PackageBagHandler handles POST /bag/:id/package?format=zip|tgz. The bag is
// serialized into the archive store under the key "<id>.<ext>".
func (s *RESTServer) PackageBagHandler(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id := ps.ByName("id")
	if s.Archives == nil {
		w.WriteHeader(http.StatusNotImplemented)
		fmt.Fprintln(w, "no archive store configured")
		return
	}
	format := archive.Zip
	if v := r.FormValue("format"); v != "" {
		var err error
		format, err = archive.ParseFormat(v)
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprintln(w, err.Error())
			return
		}
	}
	bag := s.openBag(w, id)
	if bag == nil {
		return
	}
	key, err := bag.PackageTo(s.Archives, id, format)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprintln(w, err.Error())
		return
	}
	w.WriteHeader(http.StatusCreated)
	writeJSON(w, map[string]string{"id": id, "archive": key})
}

// HistoryHandler handles GET /bag/:id/history and returns the recorded
// validation runs for the bag, most recent first.
func (s *RESTServer) HistoryHandler(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id := ps.ByName("id")
	if s.Validation == nil {
		w.WriteHeader(http.StatusNotImplemented)
		fmt.Fprintln(w, "no validation database configured")
		return
	}
	runs, err := s.Validation.History(id)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprintln(w, err.Error())
		return
	}
	writeJSON(w, runs)
}
