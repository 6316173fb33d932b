// Package transcode converts tag file content between a bag's declared
// character encoding and UTF-8. Encodings are looked up by their IANA name,
// which is the form the Tag-File-Character-Encoding field uses.
package transcode

import (
	"github.com/pkg/errors"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/ianaindex"
)

// lookup resolves an IANA encoding name. Names the index does not carry a
// table for (including UTF-8 itself) transcode as the identity.
func lookup(name string) (encoding.Encoding, error) {
	enc, err := ianaindex.IANA.Encoding(name)
	if err != nil {
		return nil, errors.Wrapf(err, "unknown encoding %s", name)
	}
	if enc == nil {
		enc = encoding.Nop
	}
	return enc, nil
}

// Decode converts b from the named encoding into UTF-8.
func Decode(b []byte, from string) ([]byte, error) {
	enc, err := lookup(from)
	if err != nil {
		return nil, err
	}
	out, err := enc.NewDecoder().Bytes(b)
	return out, errors.Wrapf(err, "decoding from %s", from)
}

// Encode converts the UTF-8 bytes b into the named encoding.
func Encode(b []byte, to string) ([]byte, error) {
	enc, err := lookup(to)
	if err != nil {
		return nil, err
	}
	out, err := enc.NewEncoder().Bytes(b)
	return out, errors.Wrapf(err, "encoding to %s", to)
}
