package archive

import (
	"bytes"
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"
)

func TestIsArchive(t *testing.T) {
	var table = []struct {
		input  string
		output bool
	}{
		{"bag.zip", true},
		{"bag.ZIP", true},
		{"bag.tar.gz", true},
		{"bag.tgz", true},
		{"bag.Tar.Gz", true},
		{"bag", false},
		{"bag.tar", false},
		{"bag.gz", false},
	}
	for _, tab := range table {
		if IsArchive(tab.input) != tab.output {
			t.Errorf("IsArchive(%s) != %v", tab.input, tab.output)
		}
	}
}

func TestParseFormat(t *testing.T) {
	if f, err := ParseFormat("zip"); err != nil || f != Zip {
		t.Errorf("parse zip: %v %v", f, err)
	}
	if f, err := ParseFormat("TGZ"); err != nil || f != TGZ {
		t.Errorf("parse TGZ: %v %v", f, err)
	}
	if _, err := ParseFormat("rar"); err == nil {
		t.Errorf("parse rar did not error")
	}
}

func TestRoundtrip(t *testing.T) {
	for _, format := range []Format{Zip, TGZ} {
		src, err := ioutil.TempDir("", "test-archive-src-")
		if err != nil {
			t.Fatal(err)
		}
		defer os.RemoveAll(src)
		bagdir := filepath.Join(src, "my-bag")
		os.MkdirAll(filepath.Join(bagdir, "data", "sub"), 0775)
		os.MkdirAll(filepath.Join(bagdir, "data", "empty"), 0775)
		writefile(t, filepath.Join(bagdir, "bagit.txt"), "BagIt-Version: 0.96\n")
		writefile(t, filepath.Join(bagdir, "data", "hello.txt"), "hello")
		writefile(t, filepath.Join(bagdir, "data", "sub", "deep.txt"), "deep")

		buf := new(bytes.Buffer)
		err = Create(format, bagdir, buf)
		if err != nil {
			t.Fatalf("%s: %s", format, err.Error())
		}

		dest, err := ioutil.TempDir("", "test-archive-dest-")
		if err != nil {
			t.Fatal(err)
		}
		defer os.RemoveAll(dest)
		apath := filepath.Join(dest, "my-bag"+format.Extension())
		if err := ioutil.WriteFile(apath, buf.Bytes(), 0666); err != nil {
			t.Fatal(err)
		}

		root, err := Extract(apath, dest)
		if err != nil {
			t.Fatalf("%s: %s", format, err.Error())
		}
		if root != "my-bag" {
			t.Errorf("%s: got root %s, expected my-bag", format, root)
		}
		for name, content := range map[string]string{
			"bagit.txt":         "BagIt-Version: 0.96\n",
			"data/hello.txt":    "hello",
			"data/sub/deep.txt": "deep",
		} {
			b, err := ioutil.ReadFile(filepath.Join(dest, "my-bag", filepath.FromSlash(name)))
			if err != nil {
				t.Errorf("%s: %s", format, err.Error())
				continue
			}
			if string(b) != content {
				t.Errorf("%s: %s: got %q, expected %q", format, name, b, content)
			}
		}
		// empty directories survive the roundtrip
		fi, err := os.Stat(filepath.Join(dest, "my-bag", "data", "empty"))
		if err != nil || !fi.IsDir() {
			t.Errorf("%s: empty directory lost in roundtrip", format)
		}
	}
}

func writefile(t *testing.T, path, content string) {
	t.Helper()
	if err := ioutil.WriteFile(path, []byte(content), 0666); err != nil {
		t.Fatal(err)
	}
}
