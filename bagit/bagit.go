// Package bagit implements enough of the BagIt specification to create,
// read, update, verify, and package the bags used for preservation transfer.
// A bag is a directory with a "data" payload subdirectory, a bag declaration
// file, one or more checksum manifests, and optional tag files. Bags may
// also be serialized to zip or gzipped tar archives.
//
// It supports SHA1 and MD5 checksums for the manifest files, the fetch.txt
// deferred-download list, and the bag-info.txt metadata file. Holey bags are
// filled in with Fetch, which downloads whatever fetch.txt entries are not
// on disk yet.
//
// Reading a bag does not verify any checksums. Call Validate to compare the
// payload directory against the manifest. Checksums are recomputed, and the
// manifest files rewritten, by Update.
//
// The BagIt spec can be found at https://tools.ietf.org/html/draft-kunze-bagit-11.
package bagit

import (
	"crypto/md5"
	"crypto/sha1"
	"fmt"
	"hash"
	"net/http"
	"strings"
)

// default declaration values for new bags
const (
	defaultVersionMajor = 0
	defaultVersionMinor = 96
	defaultEncoding     = "UTF-8"
)

// names of the well known files inside a bag
const (
	declarationFile = "bagit.txt"
	payloadDir      = "data"
	fetchFile       = "fetch.txt"
	bagInfoFile     = "bag-info.txt"
)

// An Algorithm identifies the checksum algorithm used by a bag's manifest
// files. The zero value is SHA1.
type Algorithm int

const (
	// SHA1 produces 40 character hex digests.
	SHA1 Algorithm = iota
	// MD5 produces 32 character hex digests.
	MD5
)

// ErrBadAlgorithm is returned when a checksum algorithm other than sha1 or
// md5 is requested.
var ErrBadAlgorithm = fmt.Errorf("unsupported checksum algorithm")

// ParseAlgorithm turns an algorithm name, "sha1" or "md5", into an
// Algorithm.
func ParseAlgorithm(name string) (Algorithm, error) {
	switch strings.ToLower(name) {
	case "sha1":
		return SHA1, nil
	case "md5":
		return MD5, nil
	}
	return 0, ErrBadAlgorithm
}

func (a Algorithm) String() string {
	if a == MD5 {
		return "md5"
	}
	return "sha1"
}

// HexLength returns the width of this algorithm's digest in hex characters.
// Manifest lines are split at this fixed width.
func (a Algorithm) HexLength() int {
	if a == MD5 {
		return 32
	}
	return 40
}

// New returns a fresh hash state for this algorithm.
func (a Algorithm) New() hash.Hash {
	if a == MD5 {
		return md5.New()
	}
	return sha1.New()
}

// A BagError records a single problem found with a bag. Path is the file the
// problem is about, or a label such as "fetch" when no single file applies.
type BagError struct {
	Path    string
	Message string
}

func (e BagError) Error() string {
	return e.Path + ": " + e.Message
}

// Bag holds the in-memory state of a single bag: where it is on disk, its
// declared version and tag file encoding, the active checksum algorithm,
// the decoded manifests and tag files, and the list of problems found so
// far. All mutation happens through the lifecycle methods; a Bag is not safe
// for concurrent use.
type Bag struct {
	root string // absolute path to the bag directory

	versionMajor int
	versionMinor int
	encoding     string // tag file character encoding, an IANA name

	algo     Algorithm
	extended bool // maintain tagmanifest/fetch/bag-info files

	manifest    Manifest     // payload manifest
	tagManifest Manifest     // tag manifest
	fetch       []FetchEntry // decoded fetch.txt
	info        *TagFields   // decoded bag-info.txt

	errlist []BagError

	client *http.Client // used by Fetch. lazily created.
}

// Root returns the path to the bag's directory on disk.
func (b *Bag) Root() string { return b.root }

// Version returns the declared BagIt version, e.g. "0.96".
func (b *Bag) Version() string {
	return fmt.Sprintf("%d.%d", b.versionMajor, b.versionMinor)
}

// Encoding returns the declared tag file character encoding.
func (b *Bag) Encoding() string { return b.encoding }

// Extended returns whether the optional tag files are maintained for this
// bag.
func (b *Bag) Extended() bool { return b.extended }

// HashEncoding returns the active checksum algorithm.
func (b *Bag) HashEncoding() Algorithm { return b.algo }

// SetHashEncoding switches the active checksum algorithm. The manifest
// files on disk are not touched until the next Update, which removes the
// files of the previous algorithm.
func (b *Bag) SetHashEncoding(a Algorithm) {
	b.algo = a
}

// Errors returns the problems recorded on this bag so far. Validate
// replaces the list; Open and Fetch append to it.
func (b *Bag) Errors() []BagError {
	return b.errlist
}

// IsValid reports whether the last Validate call found no problems.
func (b *Bag) IsValid() bool {
	return len(b.errlist) == 0
}

// Info returns the bag's descriptive metadata, the contents of
// bag-info.txt.
func (b *Bag) Info() *TagFields {
	if b.info == nil {
		b.info = NewTagFields()
	}
	return b.info
}

// Payload returns a copy of the payload manifest.
func (b *Bag) Payload() Manifest {
	result := make(Manifest, len(b.manifest))
	for k, v := range b.manifest {
		result[k] = v
	}
	return result
}

// FetchEntries returns the current fetch list.
func (b *Bag) FetchEntries() []FetchEntry {
	return b.fetch
}

// AddFetchEntry appends an entry to the in-memory fetch list. Pass a
// negative size if the length is unknown. The fetch.txt file is rewritten
// on the next Update.
func (b *Bag) AddFetchEntry(url string, size int64, dest string) {
	b.fetch = append(b.fetch, FetchEntry{URL: url, Length: size, Path: dest})
}
