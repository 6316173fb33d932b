package bagit

import (
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"

	"github.com/preservio/bagit/transcode"
)

// Update restores the invariant that the manifest files describe exactly
// what is in the payload directory. It sanitizes payload file names,
// recomputes every payload checksum, and rewrites the manifest and, for
// extended bags, the fetch list, bag-info, and tag manifest files. Stale
// manifest files from a previous algorithm are removed.
//
// Unlike Validate, which collects problems and continues, any error here
// fails the operation immediately. Update is idempotent: a second call with
// no intervening change rewrites the same bytes.
func (b *Bag) Update() error {
	// remove manifests for both algorithms. a previous SetHashEncoding
	// may have left files for the old one.
	for _, algo := range []Algorithm{SHA1, MD5} {
		for _, istag := range []bool{false, true} {
			err := os.Remove(b.manifestPath(algo, istag))
			if err != nil && !os.IsNotExist(err) {
				return errors.Wrap(err, "update")
			}
		}
	}

	if err := b.sanitizePayload(); err != nil {
		return err
	}

	if err := b.writePayloadManifest(); err != nil {
		return err
	}

	if !b.extended {
		return nil
	}
	if err := b.writeTagFiles(); err != nil {
		return err
	}
	return b.writeTagManifest()
}

// sanitizePayload renames every payload file whose name needs cleaning.
// Files whose names sanitize to nothing have no safe name and are deleted.
func (b *Bag) sanitizePayload() error {
	type rename struct{ from, to string }
	var renames []rename
	var removals []string

	datadir := filepath.Join(b.root, payloadDir)
	err := filepath.Walk(datadir, func(p string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return err
		}
		clean := SanitizeFileName(info.Name())
		switch {
		case clean == "":
			removals = append(removals, p)
		case clean != info.Name():
			renames = append(renames, rename{p, filepath.Join(filepath.Dir(p), clean)})
		}
		return nil
	})
	if err != nil {
		return errors.Wrap(err, "sanitize")
	}
	for _, p := range removals {
		if err := os.Remove(p); err != nil {
			return errors.Wrap(err, "sanitize")
		}
	}
	for _, r := range renames {
		if err := os.Rename(r.from, r.to); err != nil {
			return errors.Wrap(err, "sanitize")
		}
	}
	return nil
}

// writePayloadManifest rebuilds the payload manifest from the files on disk
// and writes it sorted.
func (b *Bag) writePayloadManifest() error {
	files, err := b.listPayload()
	if err != nil {
		return errors.Wrap(err, "update")
	}
	manifest := make(Manifest, len(files))
	for _, rel := range files {
		sum, err := b.checksumFile(filepath.Join(b.root, filepath.FromSlash(rel)))
		if err != nil {
			return err
		}
		manifest[rel] = sum
	}
	b.manifest = manifest

	f, err := os.Create(b.manifestPath(b.algo, false))
	if err != nil {
		return errors.Wrap(err, "update")
	}
	err = b.manifest.Encode(f)
	if err2 := f.Close(); err == nil {
		err = err2
	}
	return err
}

// writeTagFiles rewrites fetch.txt and bag-info.txt from the in-memory
// state, in the bag's declared encoding. The standard payload tags are
// refreshed first.
func (b *Bag) writeTagFiles() error {
	var size int64
	for rel := range b.manifest {
		fi, err := os.Stat(filepath.Join(b.root, filepath.FromSlash(rel)))
		if err != nil {
			return errors.Wrap(err, "update")
		}
		size += fi.Size()
	}
	info := b.Info()
	info.Set("Payload-Oxum", fmt.Sprintf("%d.%d", size, len(b.manifest)))
	info.Set("Bagging-Date", time.Now().Format("2006-01-02"))
	info.Set("Bag-Size", humansize(size))

	if err := b.writeTranscoded(fetchFile, func(f *os.File) error {
		return EncodeFetchList(b.fetch, f)
	}); err != nil {
		return err
	}
	return b.writeTranscoded(bagInfoFile, func(f *os.File) error {
		return info.Encode(f)
	})
}

// writeTagManifest checksums the four fixed tag files, the declaration,
// bag-info, fetch list, and the payload manifest just written, and writes
// the tag manifest sorted. The tag manifest itself is never listed.
func (b *Bag) writeTagManifest() error {
	manifest := make(Manifest)
	names := []string{
		declarationFile,
		bagInfoFile,
		fetchFile,
		"manifest-" + b.algo.String() + ".txt",
	}
	for _, name := range names {
		p := filepath.Join(b.root, name)
		if _, err := os.Stat(p); os.IsNotExist(err) {
			continue
		}
		sum, err := b.checksumFile(p)
		if err != nil {
			return err
		}
		manifest[name] = sum
	}
	b.tagManifest = manifest

	f, err := os.Create(b.manifestPath(b.algo, true))
	if err != nil {
		return errors.Wrap(err, "update")
	}
	err = b.tagManifest.Encode(f)
	if err2 := f.Close(); err == nil {
		err = err2
	}
	return err
}

// writeTranscoded writes one tag file through an encoder callback, and then
// converts it to the declared encoding if that is not UTF-8.
func (b *Bag) writeTranscoded(name string, encode func(*os.File) error) error {
	p := filepath.Join(b.root, name)
	f, err := os.Create(p)
	if err != nil {
		return errors.Wrap(err, "update")
	}
	err = encode(f)
	if err2 := f.Close(); err == nil {
		err = err2
	}
	if err != nil {
		return err
	}
	if b.encoding == defaultEncoding {
		return nil
	}
	raw, err := ioutil.ReadFile(p)
	if err != nil {
		return errors.Wrap(err, "update")
	}
	out, err := transcode.Encode(raw, b.encoding)
	if err != nil {
		return err
	}
	return ioutil.WriteFile(p, out, 0666)
}

// Metric constants for humansize. Lowercased so as to be unexported.
const (
	kb int64 = 1000
	mb       = 1000 * kb
	gb       = 1000 * mb
	tb       = 1000 * gb
)

func humansize(size int64) string {
	var units string
	switch {
	case size < kb:
		units = "Bytes"
	case size < mb:
		size /= kb
		units = "KB"
	case size < gb:
		size /= mb
		units = "MB"
	case size < tb:
		size /= gb
		units = "GB"
	default:
		size /= tb
		units = "TB"
	}
	return fmt.Sprintf("%d %s", size, units)
}
