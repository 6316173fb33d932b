// Package store provides a simple, goroutine safe key-value interface where
// values are streams instead of opaque byte arrays. It is used as the place
// packaged bag archives are kept: the keys are archive file names, and the
// values are the serialized bags themselves.
//
// Probably the most important implementation is the FileSystem. The Memory
// store is useful for testing, and the S3 store keeps archives in an S3
// bucket.
package store

import (
	"io"
)

// ReadAtCloser combines the io.ReaderAt and io.Closer interfaces.
type ReadAtCloser interface {
	io.ReaderAt
	io.Closer
}

// Store defines the basic stream based key-value store.
// Items are immutable once stored, but they may be deleted and then replaced
// with a new value.
//
// Since the FileSystem store uses the key as a file name, keys should not
// contain forbidden filesystem characters, such as '/'.
//
// Open() returns a ReadAtCloser instead of a ReadCloser so the result can be
// handed directly to a zip reader.
type Store interface {
	ROStore
	Create(key string) (io.WriteCloser, error)
	Delete(key string) error
}

// ROStore is the read-only pieces of a Store. It allows one to list contents,
// and to retrieve data.
type ROStore interface {
	List() <-chan string
	ListPrefix(prefix string) ([]string, error)
	Open(key string) (ReadAtCloser, int64, error)
}

// NewReader converts a ReaderAt into an io.Reader. It is here as a utility
// to help work with the ReadAtCloser returned by Open.
func NewReader(r io.ReaderAt) io.Reader {
	return &reader{r: r}
}

type reader struct {
	r   io.ReaderAt
	off int64
}

func (r *reader) Read(p []byte) (n int, err error) {
	n, err = r.r.ReadAt(p, r.off)
	r.off += int64(n)
	if err == io.EOF && n > 0 {
		// reading less than a full buffer is not an error for
		// an io.Reader
		err = nil
	}
	return
}
