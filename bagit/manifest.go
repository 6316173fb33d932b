package bagit

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strings"
)

// A Manifest maps a file path, relative to the bag root and forward-slash
// separated, to the hex digest recorded for that file. If a path repeats in
// the source file the last entry wins.
type Manifest map[string]string

// ReadManifest decodes manifest lines from r. Each line holds a fixed-width
// hash field of hashlen characters followed by the path. Lines that are too
// short, or whose path is empty after trimming, are dropped. Hand-edited
// manifests do not need to be sorted to parse.
func ReadManifest(r io.Reader, hashlen int) (Manifest, error) {
	result := make(Manifest)
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		if len(line) <= hashlen {
			continue
		}
		hash := line[:hashlen]
		path := strings.TrimSpace(line[hashlen:])
		if path == "" {
			continue
		}
		result[path] = hash
	}
	return result, scanner.Err()
}

// Encode writes the manifest to w, one "<hash> <path>" line per entry,
// sorted by path. Sorting on write keeps rewrites of a manifest stable.
func (m Manifest) Encode(w io.Writer) error {
	paths := make([]string, 0, len(m))
	for p := range m {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	for _, p := range paths {
		_, err := fmt.Fprintf(w, "%s %s\n", m[p], p)
		if err != nil {
			return err
		}
	}
	return nil
}
