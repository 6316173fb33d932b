package bagit

import (
	"bytes"
	"strings"
	"testing"
)

func TestReadFetchList(t *testing.T) {
	const input = "http://example.com/a 5 data/a\n" +
		"not a fetch line\n" +
		"http://example.com/b - data/b\n" +
		"http://example.com/c 12 data/sub/c\n"
	entries, err := ReadFetchList(strings.NewReader(input))
	if err != nil {
		t.Fatal(err)
	}
	expected := []FetchEntry{
		{"http://example.com/a", 5, "data/a"},
		{"http://example.com/b", -1, "data/b"},
		{"http://example.com/c", 12, "data/sub/c"},
	}
	if len(entries) != len(expected) {
		t.Fatalf("got %v, expected %v", entries, expected)
	}
	for i := range expected {
		if entries[i] != expected[i] {
			t.Errorf("entry %d: got %v, expected %v", i, entries[i], expected[i])
		}
	}
}

func TestEncodeFetchList(t *testing.T) {
	entries := []FetchEntry{
		{"http://example.com/z", 7, "data/z"},
		{"http://example.com/a", -1, "data/a"},
	}
	buf := new(bytes.Buffer)
	if err := EncodeFetchList(entries, buf); err != nil {
		t.Fatal(err)
	}
	// insertion order is preserved, unlike manifests
	expected := "http://example.com/z 7 data/z\nhttp://example.com/a - data/a\n"
	if buf.String() != expected {
		t.Errorf("got %q, expected %q", buf.String(), expected)
	}
}
