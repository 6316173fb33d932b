package bagit

import (
	"math/rand"
	"regexp"
	"strings"
)

var (
	rxWhitespace = regexp.MustCompile(`\s+`)
	rxBadChars   = regexp.MustCompile(`[~^@!#%&*/:'?"<>|]`)
	rxReserved   = regexp.MustCompile(`(?i)^(CON|PRN|AUX|NUL|COM[1-9]|LPT[1-9])$`)
)

// SanitizeFileName cleans name into one safe to write on the target
// filesystem. Runs of whitespace collapse to a single underscore, shell and
// filesystem special characters and the substring ".." are removed, and
// names matching a reserved device name are lowercased and given a random
// suffix to step around the reservation.
//
// An empty result means the name had nothing safe left in it; the caller
// should delete the source file rather than write to an ambiguous path.
// A name reducing to "." is treated the same way. Apart from the random
// suffix, sanitizing is idempotent.
func SanitizeFileName(name string) string {
	name = rxWhitespace.ReplaceAllString(name, "_")
	name = rxBadChars.ReplaceAllString(name, "")
	// character removal can bring dots together, so strip ".." until
	// none remain
	for strings.Contains(name, "..") {
		name = strings.Replace(name, "..", "", -1)
	}
	if name == "." {
		return ""
	}
	if rxReserved.MatchString(name) {
		name = strings.ToLower(name) + "_" + randomName(12)
	}
	return name
}

// randomName returns n random lowercase letters.
func randomName(n int) string {
	const letters = "abcdefghijklmnopqrstuvwxyz"
	b := make([]byte, n)
	for i := range b {
		b[i] = letters[rand.Intn(len(letters))]
	}
	return string(b)
}
