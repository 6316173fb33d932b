package bagit

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// AddFile copies the local file src into the payload directory under dest,
// which is relative to the payload directory. Parent directories are
// created as needed. The manifests are not touched until the next Update.
func (b *Bag) AddFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return errors.Wrap(err, "add file")
	}
	defer in.Close()
	return b.CreateFile(in, dest)
}

// CreateFile writes the contents of r into the payload directory under
// dest, which is relative to the payload directory.
func (b *Bag) CreateFile(r io.Reader, dest string) error {
	dest = strings.TrimPrefix(filepath.ToSlash(dest), payloadDir+"/")
	target := filepath.Join(b.root, payloadDir, filepath.FromSlash(dest))
	if err := os.MkdirAll(filepath.Dir(target), 0775); err != nil {
		return errors.Wrap(err, "create file")
	}
	out, err := os.Create(target)
	if err != nil {
		return errors.Wrap(err, "create file")
	}
	_, err = io.Copy(out, r)
	if err2 := out.Close(); err == nil {
		err = err2
	}
	return errors.Wrap(err, "create file")
}
