package bagit

import (
	"os"
	"strings"

	"github.com/pkg/errors"

	"github.com/preservio/bagit/archive"
	"github.com/preservio/bagit/store"
)

// Package serializes the bag into an archive at dest using the given
// format. The format's extension is appended to dest unless it is already
// there, compared case-insensitively, and the final path is returned. The
// bag's directory name is kept as the single top-level entry inside the
// archive, so opening the archive later reconstructs the same root name.
func (b *Bag) Package(dest string, f archive.Format) (string, error) {
	dest = ensureExtension(dest, f)
	out, err := os.Create(dest)
	if err != nil {
		return "", errors.Wrap(err, "package")
	}
	err = archive.Create(f, b.root, out)
	if err2 := out.Close(); err == nil {
		err = err2
	}
	if err != nil {
		os.Remove(dest)
		return "", err
	}
	return dest, nil
}

// PackageTo serializes the bag into the given store under key, with the
// format's extension appended to the key if missing. The final key is
// returned.
func (b *Bag) PackageTo(s store.Store, key string, f archive.Format) (string, error) {
	key = ensureExtension(key, f)
	out, err := s.Create(key)
	if err != nil {
		return "", errors.Wrap(err, "package")
	}
	err = archive.Create(f, b.root, out)
	if err2 := out.Close(); err == nil {
		err = err2
	}
	if err != nil {
		s.Delete(key)
		return "", err
	}
	return key, nil
}

func ensureExtension(name string, f archive.Format) string {
	ext := f.Extension()
	if strings.HasSuffix(strings.ToLower(name), ext) {
		return name
	}
	return name + ext
}
