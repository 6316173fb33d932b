package util

import (
	"bytes"
	"crypto/md5"
	"crypto/sha1"
	"hash"
	"io"
)

// VerifyStreamHash checksums the given io.Reader and compares the checksum
// against the provided sha1 and md5 checksums. It returns true if everything
// matches, and false otherwise. Pass in an empty slice to not verify a given
// checksum type. For example, to only verify the SHA1 hash of the reader,
// pass in []byte{} for the md5 parameter.
// The reader is not closed when finished.
func VerifyStreamHash(r io.Reader, sha1, md5 []byte) (bool, error) {
	if len(sha1) == 0 && len(md5) == 0 {
		return true, nil
	}
	hw := NewHashWriterPlain()
	_, err := io.Copy(hw, r)
	var result = true
	if len(sha1) > 0 {
		_, ok := hw.CheckSHA1(sha1)
		result = result && ok
	}
	if len(md5) > 0 {
		_, ok := hw.CheckMD5(md5)
		result = result && ok
	}
	return result, err
}

// An HashWriter calculates the SHA1 and MD5 hashes of the bytes written
// to it.
type HashWriter struct {
	io.Writer // our io.MultiWriter
	sha1      hash.Hash
	md5       hash.Hash
}

// NewHashWriterPlain returns a HashWriter that does not wrap an output
// stream. It will just compute the checksums of the data written to it.
func NewHashWriterPlain() *HashWriter {
	hw := &HashWriter{
		sha1: sha1.New(),
		md5:  md5.New(),
	}
	hw.Writer = io.MultiWriter(hw.sha1, hw.md5)
	return hw
}

// CheckSHA1 returns the SHA1 hash for this writer, and compares it for
// equality with the goal hash passed in. Returns true if goal matches the
// SHA1 hash, false otherwise. If the goal is empty then it is treated as
// matching, and true is returned.
func (hw *HashWriter) CheckSHA1(goal []byte) ([]byte, bool) {
	computed := hw.sha1.Sum(nil)
	ok := len(goal) == 0 || bytes.Compare(goal, computed) == 0
	return computed, ok
}

// CheckMD5 returns the MD5 hash for this writer, and compares it for
// equality with the goal hash passed in. Returns true if goal matches the
// MD5 hash, false otherwise. If the goal is empty then it is treated as
// matching, and true is returned.
func (hw *HashWriter) CheckMD5(goal []byte) ([]byte, bool) {
	computed := hw.md5.Sum(nil)
	ok := len(goal) == 0 || bytes.Compare(goal, computed) == 0
	return computed, ok
}
