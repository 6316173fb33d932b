// Package archive serializes a directory tree to a zip or gzipped tar
// archive and extracts such archives back to disk. It is the compression
// codec the bag packager delegates to.
//
// Zip entries are stored without compression, the same as the zip bundles
// the rest of the preservation tooling writes. Tar archives are compressed
// with gzip.
package archive

import (
	"archive/tar"
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/pkg/errors"
)

// Format selects the serialization used for an archive.
type Format int

const (
	// Zip is a standard zip file with stored (uncompressed) entries.
	Zip Format = iota
	// TGZ is a gzip-compressed tar file.
	TGZ
)

// ErrUnknownFormat is returned when a format name or file suffix is not
// one of the supported archive types.
var ErrUnknownFormat = errors.New("unknown archive format")

// ParseFormat turns a format name, "zip" or "tgz", into a Format.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(name) {
	case "zip":
		return Zip, nil
	case "tgz":
		return TGZ, nil
	}
	return 0, errors.Wrap(ErrUnknownFormat, name)
}

// Extension returns the file suffix conventionally used for this format,
// including the leading dot.
func (f Format) Extension() string {
	if f == TGZ {
		return ".tgz"
	}
	return ".zip"
}

func (f Format) String() string {
	if f == TGZ {
		return "tgz"
	}
	return "zip"
}

// IsArchive returns true if the path names a file we know how to extract,
// judged by its suffix. The comparison is case-insensitive.
func IsArchive(path string) bool {
	lower := strings.ToLower(path)
	return strings.HasSuffix(lower, ".zip") ||
		strings.HasSuffix(lower, ".tar.gz") ||
		strings.HasSuffix(lower, ".tgz")
}

// Create serializes the directory srcdir into w using the given format.
// Entries inside the archive are prefixed with the base name of srcdir, so
// extracting reproduces the directory under its original name.
func Create(f Format, srcdir string, w io.Writer) error {
	switch f {
	case Zip:
		return createZip(srcdir, w)
	case TGZ:
		return createTgz(srcdir, w)
	}
	return ErrUnknownFormat
}

func createZip(srcdir string, w io.Writer) error {
	z := zip.NewWriter(w)
	err := walkfiles(srcdir, func(relpath, abspath string, info os.FileInfo) error {
		header := zip.FileHeader{
			Name:   relpath,
			Method: zip.Store,
		}
		header.SetModTime(info.ModTime())
		if info.IsDir() {
			// a trailing slash marks a directory entry. empty
			// directories would otherwise vanish on extraction.
			header.Name += "/"
			_, err := z.CreateHeader(&header)
			return err
		}
		out, err := z.CreateHeader(&header)
		if err != nil {
			return err
		}
		return copyfile(out, abspath)
	})
	if err != nil {
		z.Close()
		return err
	}
	return z.Close()
}

func createTgz(srcdir string, w io.Writer) error {
	gz := gzip.NewWriter(w)
	tw := tar.NewWriter(gz)
	err := walkfiles(srcdir, func(relpath, abspath string, info os.FileInfo) error {
		header, err := tar.FileInfoHeader(info, "")
		if err != nil {
			return err
		}
		header.Name = relpath
		if info.IsDir() {
			header.Name += "/"
			return tw.WriteHeader(header)
		}
		if err := tw.WriteHeader(header); err != nil {
			return err
		}
		return copyfile(tw, abspath)
	})
	if err == nil {
		err = tw.Close()
	} else {
		tw.Close()
	}
	if err2 := gz.Close(); err == nil {
		err = err2
	}
	return err
}

// walkfiles calls fn for every file and directory under srcdir, except
// srcdir itself. The relpath given to fn is forward-slash separated and
// begins with the base name of srcdir.
func walkfiles(srcdir string, fn func(relpath, abspath string, info os.FileInfo) error) error {
	prefix := filepath.Base(filepath.Clean(srcdir))
	return filepath.Walk(srcdir, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(srcdir, p)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		return fn(prefix+"/"+filepath.ToSlash(rel), p, info)
	})
}

func copyfile(w io.Writer, path string) error {
	in, err := os.Open(path)
	if err != nil {
		return err
	}
	_, err = io.Copy(w, in)
	in.Close()
	return err
}

// Extract unpacks the archive at path into destdir, and returns the name of
// the single top-level directory inside the archive. The format is chosen by
// the file suffix.
func Extract(path, destdir string) (string, error) {
	lower := strings.ToLower(path)
	switch {
	case strings.HasSuffix(lower, ".zip"):
		return extractZip(path, destdir)
	case strings.HasSuffix(lower, ".tar.gz"), strings.HasSuffix(lower, ".tgz"):
		return extractTgz(path, destdir)
	}
	return "", errors.Wrap(ErrUnknownFormat, path)
}

func extractZip(path, destdir string) (string, error) {
	z, err := zip.OpenReader(path)
	if err != nil {
		return "", err
	}
	defer z.Close()
	var root string
	for _, f := range z.File {
		if f.FileInfo().IsDir() {
			root, err = makeDirEntry(destdir, f.Name, root)
			if err != nil {
				return "", err
			}
			continue
		}
		root, err = writeEntry(destdir, f.Name, root, func(w io.Writer) error {
			rc, err := f.Open()
			if err != nil {
				return err
			}
			_, err = io.Copy(w, rc)
			rc.Close()
			return err
		})
		if err != nil {
			return "", err
		}
	}
	return root, nil
}

func extractTgz(path, destdir string) (string, error) {
	in, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer in.Close()
	gz, err := gzip.NewReader(in)
	if err != nil {
		return "", err
	}
	defer gz.Close()
	tr := tar.NewReader(gz)
	var root string
	for {
		header, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}
		if header.Typeflag == tar.TypeDir {
			root, err = makeDirEntry(destdir, header.Name, root)
			if err != nil {
				return "", err
			}
			continue
		}
		if header.Typeflag != tar.TypeReg {
			continue
		}
		root, err = writeEntry(destdir, header.Name, root, func(w io.Writer) error {
			_, err := io.Copy(w, tr)
			return err
		})
		if err != nil {
			return "", err
		}
	}
	return root, nil
}

// entryName cleans an archive entry name, rejecting names which would
// escape the destination, and tracks the top-level directory name.
func entryName(name, root string) (string, string, error) {
	clean := filepath.Clean(filepath.FromSlash(name))
	if strings.HasPrefix(clean, "..") || filepath.IsAbs(clean) {
		return "", root, errors.Errorf("archive entry %s escapes destination", name)
	}
	parts := strings.SplitN(filepath.ToSlash(clean), "/", 2)
	if len(parts) == 2 && root == "" {
		root = parts[0]
	}
	return clean, root, nil
}

// makeDirEntry materializes a directory entry under destdir.
func makeDirEntry(destdir, name, root string) (string, error) {
	clean, root, err := entryName(name, root)
	if err != nil {
		return root, err
	}
	return root, os.MkdirAll(filepath.Join(destdir, clean), 0775)
}

// writeEntry saves one archive entry under destdir.
func writeEntry(destdir, name, root string, copy func(io.Writer) error) (string, error) {
	clean, root, err := entryName(name, root)
	if err != nil {
		return root, err
	}
	target := filepath.Join(destdir, clean)
	if err := os.MkdirAll(filepath.Dir(target), 0775); err != nil {
		return root, err
	}
	out, err := os.Create(target)
	if err != nil {
		return root, err
	}
	err = copy(out)
	if err2 := out.Close(); err == nil {
		err = err2
	}
	return root, err
}
