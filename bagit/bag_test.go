package bagit

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/preservio/bagit/archive"
)

func newTestBag(t *testing.T, extended bool) *Bag {
	t.Helper()
	dir, err := ioutil.TempDir("", "test-bag-")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })
	b, err := Create(filepath.Join(dir, "b1"), extended)
	if err != nil {
		t.Fatal(err)
	}
	return b
}

func TestCreateLayout(t *testing.T) {
	b := newTestBag(t, true)
	for _, name := range []string{
		"bagit.txt", "data", "manifest-sha1.txt",
		"tagmanifest-sha1.txt", "fetch.txt", "bag-info.txt",
	} {
		if !exists(filepath.Join(b.Root(), name)) {
			t.Errorf("missing %s", name)
		}
	}
	raw, err := ioutil.ReadFile(filepath.Join(b.Root(), "bagit.txt"))
	if err != nil {
		t.Fatal(err)
	}
	expected := "BagIt-Version: 0.96\nTag-File-Character-Encoding: UTF-8\n"
	if string(raw) != expected {
		t.Errorf("got %q, expected %q", raw, expected)
	}
	if b.Version() != "0.96" {
		t.Errorf("got version %s, expected 0.96", b.Version())
	}
}

func TestUpdateAndValidate(t *testing.T) {
	b := newTestBag(t, true)
	err := b.CreateFile(strings.NewReader("hello"), "file.txt")
	if err != nil {
		t.Fatal(err)
	}
	if err := b.Update(); err != nil {
		t.Fatal(err)
	}

	raw, err := ioutil.ReadFile(filepath.Join(b.Root(), "manifest-sha1.txt"))
	if err != nil {
		t.Fatal(err)
	}
	expected := "aaf4c61ddcc5e8a2dabede0f3b482cd9aea9434d data/file.txt\n"
	if string(raw) != expected {
		t.Errorf("got %q, expected %q", raw, expected)
	}

	errs, err := b.Validate()
	if err != nil {
		t.Fatal(err)
	}
	if len(errs) != 0 {
		t.Errorf("got validation errors %v, expected none", errs)
	}
	if !b.IsValid() {
		t.Errorf("IsValid false after clean validate")
	}
}

func TestUpdateIdempotent(t *testing.T) {
	b := newTestBag(t, true)
	b.CreateFile(strings.NewReader("hello"), "file.txt")
	b.CreateFile(strings.NewReader("there"), "sub/other.txt")
	if err := b.Update(); err != nil {
		t.Fatal(err)
	}
	first := readAll(t, b.Root(), "manifest-sha1.txt", "tagmanifest-sha1.txt")
	if err := b.Update(); err != nil {
		t.Fatal(err)
	}
	second := readAll(t, b.Root(), "manifest-sha1.txt", "tagmanifest-sha1.txt")
	for name := range first {
		if first[name] != second[name] {
			t.Errorf("%s changed between updates:\n%q\n%q", name, first[name], second[name])
		}
	}
}

func readAll(t *testing.T, root string, names ...string) map[string]string {
	t.Helper()
	result := make(map[string]string)
	for _, name := range names {
		raw, err := ioutil.ReadFile(filepath.Join(root, name))
		if err != nil {
			t.Fatal(err)
		}
		result[name] = string(raw)
	}
	return result
}

func TestSwitchAlgorithm(t *testing.T) {
	b := newTestBag(t, false)
	b.CreateFile(strings.NewReader("hello"), "file.txt")
	b.SetHashEncoding(MD5)
	if err := b.Update(); err != nil {
		t.Fatal(err)
	}
	if exists(filepath.Join(b.Root(), "manifest-sha1.txt")) {
		t.Errorf("stale manifest-sha1.txt still present")
	}
	raw, err := ioutil.ReadFile(filepath.Join(b.Root(), "manifest-md5.txt"))
	if err != nil {
		t.Fatal(err)
	}
	expected := "5d41402abc4b2a76b9719d911017c592 data/file.txt\n"
	if string(raw) != expected {
		t.Errorf("got %q, expected %q", raw, expected)
	}
}

func TestValidateTamper(t *testing.T) {
	b := newTestBag(t, false)
	b.CreateFile(strings.NewReader("hello"), "file.txt")
	b.CreateFile(strings.NewReader("fine"), "ok.txt")
	if err := b.Update(); err != nil {
		t.Fatal(err)
	}
	// alter the payload behind the manifest's back
	tampered := filepath.Join(b.Root(), "data", "file.txt")
	if err := ioutil.WriteFile(tampered, []byte("HELLO"), 0666); err != nil {
		t.Fatal(err)
	}
	errs, err := b.Validate()
	if err != nil {
		t.Fatal(err)
	}
	if len(errs) != 1 {
		t.Fatalf("got %v, expected one error", errs)
	}
	if errs[0].Path != "data/file.txt" || errs[0].Message != "Checksum mismatch." {
		t.Errorf("got %v, expected checksum mismatch for data/file.txt", errs[0])
	}
}

func TestValidateTamperMD5(t *testing.T) {
	b := newTestBag(t, false)
	b.CreateFile(strings.NewReader("hello"), "file.txt")
	b.SetHashEncoding(MD5)
	if err := b.Update(); err != nil {
		t.Fatal(err)
	}
	errs, err := b.Validate()
	if err != nil {
		t.Fatal(err)
	}
	if len(errs) != 0 {
		t.Fatalf("got %v, expected a valid bag", errs)
	}
	tampered := filepath.Join(b.Root(), "data", "file.txt")
	if err := ioutil.WriteFile(tampered, []byte("HELLO"), 0666); err != nil {
		t.Fatal(err)
	}
	errs, err = b.Validate()
	if err != nil {
		t.Fatal(err)
	}
	if len(errs) != 1 || errs[0].Message != "Checksum mismatch." {
		t.Errorf("got %v, expected one checksum mismatch", errs)
	}
}

func TestValidateMissingFromManifest(t *testing.T) {
	b := newTestBag(t, false)
	b.CreateFile(strings.NewReader("hello"), "file.txt")
	if err := b.Update(); err != nil {
		t.Fatal(err)
	}
	// simulate manifest drift while the file stays on disk
	delete(b.manifest, "data/file.txt")
	errs, err := b.Validate()
	if err != nil {
		t.Fatal(err)
	}
	if len(errs) != 1 || errs[0].Message != "File missing from manifest." {
		t.Errorf("got %v, expected file missing from manifest", errs)
	}
}

func TestValidateMissingPieces(t *testing.T) {
	b := newTestBag(t, false)
	if err := b.Update(); err != nil {
		t.Fatal(err)
	}
	os.Remove(filepath.Join(b.Root(), "manifest-sha1.txt"))
	errs, err := b.Validate()
	if err != nil {
		t.Fatal(err)
	}
	var sawUnable bool
	for _, e := range errs {
		if e.Message == "Unable to verify manifest." {
			sawUnable = true
		}
	}
	if !sawUnable {
		t.Errorf("got %v, expected unable to verify manifest", errs)
	}
}

func TestHiddenFilesExcluded(t *testing.T) {
	b := newTestBag(t, false)
	b.CreateFile(strings.NewReader("hello"), "file.txt")
	b.CreateFile(strings.NewReader("secret"), ".hidden")
	b.CreateFile(strings.NewReader("secret"), ".git/config")
	if err := b.Update(); err != nil {
		t.Fatal(err)
	}
	if len(b.Payload()) != 1 {
		t.Errorf("got manifest %v, expected only data/file.txt", b.Payload())
	}
}

func TestUpdateSanitizesNames(t *testing.T) {
	b := newTestBag(t, false)
	b.CreateFile(strings.NewReader("hello"), "My  File.txt")
	// nothing safe is left of this name after cleaning; the file goes away
	b.CreateFile(strings.NewReader("x"), ".?.")
	if err := b.Update(); err != nil {
		t.Fatal(err)
	}
	m := b.Payload()
	if _, ok := m["data/My_File.txt"]; !ok {
		t.Errorf("got manifest %v, expected data/My_File.txt", m)
	}
	if len(m) != 1 {
		t.Errorf("got manifest %v, expected one entry", m)
	}
	if exists(filepath.Join(b.Root(), "data", "My  File.txt")) {
		t.Errorf("unsanitized file still on disk")
	}
	if exists(filepath.Join(b.Root(), "data", ".?.")) {
		t.Errorf("unsafe name still on disk")
	}
}

func TestOpenRoundtrip(t *testing.T) {
	b := newTestBag(t, true)
	b.CreateFile(strings.NewReader("hello"), "file.txt")
	b.Info().Set("Contact-Name", "Nobody")
	b.AddFetchEntry("http://example.com/x", -1, "data/x")
	if err := b.Update(); err != nil {
		t.Fatal(err)
	}

	b2, err := Open(b.Root())
	if err != nil {
		t.Fatal(err)
	}
	if len(b2.Errors()) != 0 {
		t.Fatalf("open recorded errors %v", b2.Errors())
	}
	if b2.Version() != "0.96" || b2.Encoding() != "UTF-8" {
		t.Errorf("got %s %s, expected 0.96 UTF-8", b2.Version(), b2.Encoding())
	}
	if b2.HashEncoding() != SHA1 {
		t.Errorf("got algorithm %s, expected sha1", b2.HashEncoding())
	}
	if v, _ := b2.Info().Get("contact-name"); v != "Nobody" {
		t.Errorf("got contact name %q, expected Nobody", v)
	}
	entries := b2.FetchEntries()
	if len(entries) != 1 || entries[0].Path != "data/x" {
		t.Errorf("got fetch entries %v", entries)
	}
	errs, err := b2.Validate()
	if err != nil {
		t.Fatal(err)
	}
	if len(errs) != 0 {
		t.Errorf("reopened bag not valid: %v", errs)
	}
}

func TestOpenMissingDeclaration(t *testing.T) {
	dir, err := ioutil.TempDir("", "test-bag-")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)
	// an almost empty directory still opens, with errors recorded
	b, err := Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(b.Errors()) == 0 {
		t.Errorf("expected errors recorded for missing declaration")
	}
}

func TestPackageAndReopen(t *testing.T) {
	for _, format := range []archive.Format{archive.Zip, archive.TGZ} {
		b := newTestBag(t, true)
		b.CreateFile(strings.NewReader("hello"), "file.txt")
		if err := b.Update(); err != nil {
			t.Fatal(err)
		}
		dest := filepath.Join(filepath.Dir(b.Root()), "serialized")
		apath, err := b.Package(dest, format)
		if err != nil {
			t.Fatalf("%s: %s", format, err.Error())
		}
		if !strings.HasSuffix(apath, format.Extension()) {
			t.Errorf("%s: package path %s missing extension", format, apath)
		}

		b2, err := Open(apath)
		if err != nil {
			t.Fatalf("%s: %s", format, err.Error())
		}
		defer os.RemoveAll(filepath.Dir(b2.Root()))
		// the embedded top-level name is the original root name
		if filepath.Base(b2.Root()) != "b1" {
			t.Errorf("%s: got root %s, expected b1", format, filepath.Base(b2.Root()))
		}
		errs, err := b2.Validate()
		if err != nil {
			t.Fatal(err)
		}
		if len(errs) != 0 {
			t.Errorf("%s: unpacked bag not valid: %v", format, errs)
		}
	}
}

func TestPackageEmptyPayload(t *testing.T) {
	// a bag with no payload files still has a data directory, and it
	// must come back from an archive
	for _, format := range []archive.Format{archive.Zip, archive.TGZ} {
		b := newTestBag(t, true)
		if err := b.Update(); err != nil {
			t.Fatal(err)
		}
		dest := filepath.Join(filepath.Dir(b.Root()), "empty-bag")
		apath, err := b.Package(dest, format)
		if err != nil {
			t.Fatalf("%s: %s", format, err.Error())
		}
		b2, err := Open(apath)
		if err != nil {
			t.Fatalf("%s: %s", format, err.Error())
		}
		defer os.RemoveAll(filepath.Dir(b2.Root()))
		if !isDir(filepath.Join(b2.Root(), "data")) {
			t.Errorf("%s: payload directory lost in packaging", format)
		}
		errs, err := b2.Validate()
		if err != nil {
			t.Fatal(err)
		}
		if len(errs) != 0 {
			t.Errorf("%s: unpacked bag not valid: %v", format, errs)
		}
	}
}

func TestPackageExtensionNotDoubled(t *testing.T) {
	b := newTestBag(t, false)
	b.CreateFile(strings.NewReader("x"), "f")
	if err := b.Update(); err != nil {
		t.Fatal(err)
	}
	dest := filepath.Join(filepath.Dir(b.Root()), "already.ZIP")
	apath, err := b.Package(dest, archive.Zip)
	if err != nil {
		t.Fatal(err)
	}
	if apath != dest {
		t.Errorf("got %s, expected %s", apath, dest)
	}
}
