package bagit

import (
	"encoding/hex"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/preservio/bagit/util"
)

// checksumFile computes the hex digest of the file at path using the bag's
// active algorithm.
func (b *Bag) checksumFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", errors.Wrap(err, "checksum")
	}
	defer f.Close()
	hw := util.NewHashWriterPlain()
	_, err = io.Copy(hw, f)
	if err != nil {
		return "", errors.Wrap(err, "checksum")
	}
	var digest []byte
	switch b.algo {
	case MD5:
		digest, _ = hw.CheckMD5(nil)
	default:
		digest, _ = hw.CheckSHA1(nil)
	}
	return hex.EncodeToString(digest), nil
}

// listPayload walks the payload directory and returns the paths of every
// non-hidden file, relative to the bag root and forward-slash separated, so
// each begins with "data/". Hidden files and directories, those with a dot
// prefix, are skipped entirely.
func (b *Bag) listPayload() ([]string, error) {
	var result []string
	datadir := filepath.Join(b.root, payloadDir)
	err := filepath.Walk(datadir, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		hidden := strings.HasPrefix(info.Name(), ".") && p != datadir
		if info.IsDir() {
			if hidden {
				return filepath.SkipDir
			}
			return nil
		}
		if hidden {
			return nil
		}
		rel, err := filepath.Rel(b.root, p)
		if err != nil {
			return err
		}
		result = append(result, filepath.ToSlash(rel))
		return nil
	})
	return result, err
}
