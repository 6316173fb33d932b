package bagit

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// A FetchEntry names a file which belongs in the bag but has not been
// materialized yet. Length is the expected size in bytes, or negative if
// unknown. Path is the destination, relative to the bag root.
type FetchEntry struct {
	URL    string
	Length int64
	Path   string
}

// ReadFetchList decodes the three column fetch.txt format from r. Lines
// that do not have exactly three whitespace separated fields are dropped,
// the same leniency the manifest decoder has. Entry order is preserved, and
// duplicate destinations are allowed.
func ReadFetchList(r io.Reader) ([]FetchEntry, error) {
	var result []FetchEntry
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) != 3 {
			continue
		}
		length := int64(-1)
		if fields[1] != "-" {
			n, err := strconv.ParseInt(fields[1], 10, 64)
			if err == nil {
				length = n
			}
		}
		result = append(result, FetchEntry{
			URL:    fields[0],
			Length: length,
			Path:   fields[2],
		})
	}
	return result, scanner.Err()
}

// EncodeFetchList writes the entries to w in order, one per line. Unknown
// lengths are written as a dash.
func EncodeFetchList(entries []FetchEntry, w io.Writer) error {
	for _, e := range entries {
		length := "-"
		if e.Length >= 0 {
			length = strconv.FormatInt(e.Length, 10)
		}
		_, err := fmt.Fprintf(w, "%s %s %s\n", e.URL, length, e.Path)
		if err != nil {
			return err
		}
	}
	return nil
}
