package store

import (
	"errors"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	raven "github.com/getsentry/raven-go"
)

// FileSystem implements a file system based store. The keys are used as file
// names inside the root directory, so keys should not contain a forward
// slash character '/'. If you want the archives to have a specific file
// extension, add it to your key.
//
// New files are first written to a scratch subdirectory and are moved into
// place when closed, so a reader never sees a partially written archive.
type FileSystem struct {
	root string
}

const (
	// the subdir to store files while they are being written to.
	scratchdir = "scratch"
)

var (
	// make sure it implements the Store interface
	_ Store = &FileSystem{}

	// ErrKeyExists indicates an attempt to create a key which already exists
	ErrKeyExists = errors.New("Key already exists")

	// ErrKeyContainsSlash means the key provided contains a forward slash '/'
	ErrKeyContainsSlash = errors.New("Key contains forward slash")
)

// NewFileSystem creates a new FileSystem store based at the given root path.
func NewFileSystem(root string) *FileSystem {
	return &FileSystem{root: root}
}

// List returns a channel listing all the keys in this store.
func (s *FileSystem) List() <-chan string {
	c := make(chan string)
	go func() {
		defer close(c)
		f, err := os.Open(s.root)
		if err != nil {
			log.Println(err)
			raven.CaptureError(err, nil)
			return
		}
		defer f.Close()
		for {
			entries, err := f.Readdir(1000)
			if err == io.EOF {
				return
			} else if err != nil {
				// we have no other way of passing this error back
				log.Println(err)
				raven.CaptureError(err, nil)
				return
			}
			for _, e := range entries {
				if e.IsDir() {
					continue
				}
				c <- e.Name()
			}
		}
	}()
	return c
}

// ListPrefix returns a list of all the keys beginning with the given prefix.
func (s *FileSystem) ListPrefix(prefix string) ([]string, error) {
	glob := filepath.Join(s.root, prefix+"*")
	matches, err := filepath.Glob(glob)
	if err != nil {
		return nil, err
	}
	var result []string
	for _, m := range matches {
		fi, err := os.Stat(m)
		if err != nil || fi.IsDir() {
			// skip the scratch directory, among others
			continue
		}
		result = append(result, filepath.Base(m))
	}
	return result, nil
}

// Open returns a reader for the given key along with its size.
func (s *FileSystem) Open(key string) (ReadAtCloser, int64, error) {
	if strings.Contains(key, "/") {
		return nil, 0, ErrKeyContainsSlash
	}
	f, err := os.Open(filepath.Join(s.root, key))
	if err != nil {
		return nil, 0, err
	}
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, 0, err
	}
	return f, fi.Size(), nil
}

// Create makes a new item with the given key, and returns a writer to save
// data into it.
func (s *FileSystem) Create(key string) (io.WriteCloser, error) {
	if strings.Contains(key, "/") {
		return nil, ErrKeyContainsSlash
	}
	target := filepath.Join(s.root, key)
	_, err := os.Stat(target)
	if !os.IsNotExist(err) {
		return nil, ErrKeyExists
	}
	// set up the scratch location we temporarily save the file to
	dir := filepath.Join(s.root, scratchdir)
	if err := os.MkdirAll(dir, 0775); err != nil {
		return nil, err
	}
	temp := filepath.Join(dir, key)
	// pass the O_EXCL flag explicitly to prevent overwriting
	// already existing files
	w, err := os.OpenFile(temp, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0666)
	if err != nil {
		return nil, err
	}
	return &moveCloser{WriteCloser: w, source: temp, target: target}, nil
}

// track the file so when it is closed, we can move it into the correct place
type moveCloser struct {
	io.WriteCloser
	source string
	target string
}

func (w *moveCloser) Close() error {
	err := w.WriteCloser.Close()
	if err != nil {
		return err
	}
	_, err = os.Stat(w.target)
	if !os.IsNotExist(err) {
		return ErrKeyExists
	}
	return os.Rename(w.source, w.target)
}

// Delete the given key from the store. It is not an error if the key doesn't
// exist.
func (s *FileSystem) Delete(key string) error {
	if strings.Contains(key, "/") {
		return ErrKeyContainsSlash
	}
	err := os.Remove(filepath.Join(s.root, key))
	// don't report a missing file as an error
	if err != nil && os.IsNotExist(err) {
		err = nil
	}
	return err
}
