package bagit

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrMalformedTagFile is returned when a tag file begins with a
// continuation line, so there is no tag for it to continue.
var ErrMalformedTagFile = errors.New("continuation line without a preceding tag")

// TagFields holds the "Key: value" metadata of a tag file, such as
// bag-info.txt. Lookup is case-insensitive, and the original spelling of
// each key is kept in insertion order so the file round-trips with one line
// per distinct key.
type TagFields struct {
	keys   []string          // original-case keys, in insertion order
	values map[string]string // canonical (lowercased) key to value
}

// NewTagFields returns an empty set of tag fields.
func NewTagFields() *TagFields {
	return &TagFields{values: make(map[string]string)}
}

// Get returns the value for the given key. The lookup does not depend on
// the case of key.
func (t *TagFields) Get(key string) (string, bool) {
	v, ok := t.values[strings.ToLower(key)]
	return v, ok
}

// Set stores value under key, replacing any value stored under a
// case-variant of key. The spelling of the first Set is the one used when
// the fields are encoded.
func (t *TagFields) Set(key, value string) {
	canon := strings.ToLower(key)
	if _, ok := t.values[canon]; !ok {
		t.keys = append(t.keys, key)
	}
	t.values[canon] = value
}

// Keys returns the keys in insertion order, with their original spelling.
func (t *TagFields) Keys() []string {
	return append([]string(nil), t.keys...)
}

// Len returns the number of distinct keys.
func (t *TagFields) Len() int {
	return len(t.keys)
}

// ReadTags decodes the tag file format from r. A line starting with a space
// or tab continues the previous tag's value, joined with a single space.
// Other lines split once on the first colon into key and value; lines with
// no colon, and blank lines, are skipped. A continuation with no tag before
// it is malformed input.
func ReadTags(r io.Reader) (*TagFields, error) {
	result := NewTagFields()
	var lastkey string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		if line[0] == ' ' || line[0] == '\t' {
			if lastkey == "" {
				return nil, ErrMalformedTagFile
			}
			prev, _ := result.Get(lastkey)
			result.Set(lastkey, prev+" "+strings.TrimSpace(line))
			continue
		}
		i := strings.Index(line, ":")
		if i < 0 {
			continue
		}
		key := line[:i]
		value := strings.TrimSpace(line[i+1:])
		result.Set(key, value)
		lastkey = key
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// Encode writes the fields to w, one "Key: value" line per distinct key, in
// insertion order. Continuation lines are not reconstructed; a value is
// written on a single line.
func (t *TagFields) Encode(w io.Writer) error {
	for _, key := range t.keys {
		v := t.values[strings.ToLower(key)]
		_, err := fmt.Fprintf(w, "%s: %s\n", key, v)
		if err != nil {
			return err
		}
	}
	return nil
}
