package bagit

import (
	"encoding/hex"
	"os"
	"path/filepath"

	"github.com/preservio/bagit/util"
)

// Validate compares the bag's on-disk state against the in-memory payload
// manifest. It reads files but never changes them; the only mutation is
// replacing the bag's error list with the fresh result, which is also
// returned. An empty result means the bag is valid.
//
// Every payload file found on disk must appear in the manifest with a
// matching checksum. Manifest entries whose file is missing from disk are
// not flagged by this pass; that asymmetry is long-standing behavior which
// other tools depend on.
func (b *Bag) Validate() ([]BagError, error) {
	var errs []BagError

	declOK := exists(filepath.Join(b.root, declarationFile))
	if !declOK {
		errs = append(errs, BagError{declarationFile, "Required file missing."})
	}
	dataOK := isDir(filepath.Join(b.root, payloadDir))
	if !dataOK {
		errs = append(errs, BagError{payloadDir, "Payload directory missing."})
	}
	manifestName := "manifest-" + b.algo.String() + ".txt"
	manifestOK := exists(b.manifestPath(b.algo, false))
	if !manifestOK {
		errs = append(errs, BagError{manifestName, "Required file missing."})
	}

	if !dataOK || !manifestOK {
		errs = append(errs, BagError{manifestName, "Unable to verify manifest."})
		b.errlist = errs
		return errs, nil
	}

	files, err := b.listPayload()
	if err != nil {
		return nil, err
	}
	for _, rel := range files {
		recorded, ok := b.manifest[rel]
		if !ok {
			errs = append(errs, BagError{rel, "File missing from manifest."})
			continue
		}
		ok, err := b.verifyFile(filepath.Join(b.root, filepath.FromSlash(rel)), recorded)
		if err != nil {
			return nil, err
		}
		if !ok {
			errs = append(errs, BagError{rel, "Checksum mismatch."})
		}
	}

	b.errlist = errs
	return errs, nil
}

// verifyFile streams the file and compares its digest against the recorded
// hex string for the bag's active algorithm. An undecodable recording is a
// mismatch, never a pass.
func (b *Bag) verifyFile(path string, recorded string) (bool, error) {
	goal, err := hex.DecodeString(recorded)
	if err != nil || len(goal) == 0 {
		return false, nil
	}
	var sha1goal, md5goal []byte
	if b.algo == MD5 {
		md5goal = goal
	} else {
		sha1goal = goal
	}
	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	ok, err := util.VerifyStreamHash(f, sha1goal, md5goal)
	f.Close()
	return ok, err
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func isDir(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && fi.IsDir()
}
