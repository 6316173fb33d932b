package bagit

import (
	"bytes"
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"regexp"

	"github.com/preservio/bagit/archive"
	"github.com/preservio/bagit/transcode"
)

var (
	rxVersion  = regexp.MustCompile(`BagIt-Version: (\d+)\.(\d+)`)
	rxEncoding = regexp.MustCompile(`Tag-File-Character-Encoding: (.*)`)
)

func newBag(root string) *Bag {
	return &Bag{
		root:         root,
		versionMajor: defaultVersionMajor,
		versionMinor: defaultVersionMinor,
		encoding:     defaultEncoding,
		algo:         SHA1,
		manifest:     make(Manifest),
		tagManifest:  make(Manifest),
		info:         NewTagFields(),
		client:       fetchClient,
	}
}

// Open reads the bag at path into memory. If path names a serialized bag, a
// file ending in .zip, .tar.gz, or .tgz, it is first extracted into a fresh
// temporary directory, and the directory embedded in the archive becomes
// the bag root.
//
// Open is deliberately forgiving. A bag with a missing or unparseable
// declaration, or missing optional tag files, is still returned; the
// problems are recorded on the bag's error list for the caller to inspect.
// Only structural failures, such as an unreadable archive, return an error.
func Open(path string) (*Bag, error) {
	root := path
	if fi, err := os.Stat(path); err == nil && !fi.IsDir() && archive.IsArchive(path) {
		tmp, err := ioutil.TempDir("", "bagit-")
		if err != nil {
			return nil, err
		}
		inner, err := archive.Extract(path, tmp)
		if err != nil {
			return nil, err
		}
		if inner == "" {
			return nil, fmt.Errorf("archive %s has no top-level directory", path)
		}
		root = filepath.Join(tmp, inner)
	}

	b := newBag(root)
	b.readDeclaration()
	b.readManifests()
	b.readTagFiles()
	return b, nil
}

// Create makes a new bag at path, which must not exist yet. The payload
// directory, a declaration with the default version and encoding, and an
// empty payload manifest are written. If extended is true the optional
// tag manifest, fetch list, and bag-info files are created as well.
func Create(path string, extended bool) (*Bag, error) {
	if _, err := os.Stat(path); err == nil {
		return nil, fmt.Errorf("bag %s already exists", path)
	}
	if err := os.MkdirAll(filepath.Join(path, payloadDir), 0775); err != nil {
		return nil, err
	}
	b := newBag(path)
	b.extended = extended
	if err := b.writeDeclaration(); err != nil {
		return nil, err
	}
	if err := touch(b.manifestPath(b.algo, false)); err != nil {
		return nil, err
	}
	if extended {
		for _, name := range []string{b.manifestPath(b.algo, true),
			filepath.Join(path, fetchFile),
			filepath.Join(path, bagInfoFile)} {
			if err := touch(name); err != nil {
				return nil, err
			}
		}
	}
	return b, nil
}

func touch(path string) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE, 0666)
	if err != nil {
		return err
	}
	return f.Close()
}

// manifestPath returns the path of the manifest file for the given
// algorithm, or of the tag manifest if istag is set.
func (b *Bag) manifestPath(a Algorithm, istag bool) string {
	prefix := "manifest-"
	if istag {
		prefix = "tagmanifest-"
	}
	return filepath.Join(b.root, prefix+a.String()+".txt")
}

func (b *Bag) writeDeclaration() error {
	content := fmt.Sprintf("BagIt-Version: %d.%d\nTag-File-Character-Encoding: %s\n",
		b.versionMajor, b.versionMinor, b.encoding)
	return ioutil.WriteFile(filepath.Join(b.root, declarationFile), []byte(content), 0666)
}

// readDeclaration parses bagit.txt. A missing or unparseable declaration is
// recorded as a bag error, and the defaults stay in effect.
func (b *Bag) readDeclaration() {
	raw, err := ioutil.ReadFile(filepath.Join(b.root, declarationFile))
	if err != nil {
		b.errlist = append(b.errlist, BagError{declarationFile, "Unable to read file."})
		return
	}
	m := rxVersion.FindSubmatch(raw)
	if m == nil {
		b.errlist = append(b.errlist, BagError{declarationFile, "Unable to parse BagIt-Version."})
	} else {
		// the pattern guarantees digits
		fmt.Sscanf(string(m[1]), "%d", &b.versionMajor)
		fmt.Sscanf(string(m[2]), "%d", &b.versionMinor)
	}
	m = rxEncoding.FindSubmatch(raw)
	if m == nil {
		b.errlist = append(b.errlist, BagError{declarationFile, "Unable to parse Tag-File-Character-Encoding."})
	} else {
		b.encoding = string(bytes.TrimSpace(m[1]))
	}
}

// readManifests loads the payload manifest and tag manifest, if present,
// adopting the algorithm of whichever payload manifest file exists.
func (b *Bag) readManifests() {
	for _, algo := range []Algorithm{SHA1, MD5} {
		f, err := os.Open(b.manifestPath(algo, false))
		if err != nil {
			continue
		}
		b.algo = algo
		b.manifest, err = ReadManifest(f, algo.HexLength())
		f.Close()
		if err != nil {
			b.errlist = append(b.errlist, BagError{b.manifestPath(algo, false), err.Error()})
		}
		break
	}
	for _, algo := range []Algorithm{b.algo, SHA1, MD5} {
		f, err := os.Open(b.manifestPath(algo, true))
		if err != nil {
			continue
		}
		b.extended = true
		b.tagManifest, err = ReadManifest(f, algo.HexLength())
		f.Close()
		if err != nil {
			b.errlist = append(b.errlist, BagError{b.manifestPath(algo, true), err.Error()})
		}
		break
	}
}

// readTagFiles loads fetch.txt and bag-info.txt. Either being absent is not
// an error; a present but malformed file is recorded.
func (b *Bag) readTagFiles() {
	raw, err := b.readTranscoded(fetchFile)
	if err == nil && raw != nil {
		b.extended = true
		b.fetch, err = ReadFetchList(bytes.NewReader(raw))
		if err != nil {
			b.errlist = append(b.errlist, BagError{fetchFile, err.Error()})
		}
	}

	raw, err = b.readTranscoded(bagInfoFile)
	if err == nil && raw != nil {
		b.extended = true
		b.info, err = ReadTags(bytes.NewReader(raw))
		if err != nil {
			b.info = NewTagFields()
			b.errlist = append(b.errlist, BagError{bagInfoFile, err.Error()})
		}
	}
}

// readTranscoded reads the named tag file and converts it from the bag's
// declared encoding to UTF-8. A missing file returns nil content and nil
// error. Transcoding problems are recorded on the bag.
func (b *Bag) readTranscoded(name string) ([]byte, error) {
	raw, err := ioutil.ReadFile(filepath.Join(b.root, name))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		b.errlist = append(b.errlist, BagError{name, "Unable to read file."})
		return nil, err
	}
	out, err := transcode.Decode(raw, b.encoding)
	if err != nil {
		b.errlist = append(b.errlist, BagError{name, err.Error()})
		return nil, err
	}
	return out, nil
}
