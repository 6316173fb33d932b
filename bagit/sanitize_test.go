package bagit

import (
	"regexp"
	"testing"
)

func TestSanitizeFileName(t *testing.T) {
	var table = []struct {
		input  string
		output string
	}{
		{"My  File.txt", "My_File.txt"},
		{"hello.txt", "hello.txt"},
		{"a b\tc.txt", "a_b_c.txt"},
		{"evil..name.txt", "evilname.txt"},
		{"what?.txt", "what.txt"},
		{"a/b:c|d.txt", "abcd.txt"},
		{"odd~^@!#%&*chars", "oddchars"},
		{"..", ""},
		// character removal may regenerate dot pairs; they must not
		// survive, and a bare dot is no name at all
		{".?.", ""},
		{".", ""},
		{"....", ""},
		{"..?..", ""},
		{"a.?.b", "ab"},
	}
	for _, tab := range table {
		out := SanitizeFileName(tab.input)
		if out != tab.output {
			t.Errorf("SanitizeFileName(%q) = %q, expected %q", tab.input, out, tab.output)
		}
	}
}

func TestSanitizeReserved(t *testing.T) {
	rx := regexp.MustCompile(`^con_[a-z]{12}$`)
	out := SanitizeFileName("CON")
	if !rx.MatchString(out) {
		t.Errorf("SanitizeFileName(CON) = %q, expected con_ plus 12 lowercase letters", out)
	}
	for _, name := range []string{"prn", "Lpt9", "com1", "AUX", "nul"} {
		out := SanitizeFileName(name)
		if len(out) != len(name)+13 {
			t.Errorf("SanitizeFileName(%q) = %q, reserved name not suffixed", name, out)
		}
	}
	// COM0 and LPT0 are not reserved
	if out := SanitizeFileName("COM0"); out != "COM0" {
		t.Errorf("SanitizeFileName(COM0) = %q, expected COM0", out)
	}
}

func TestSanitizeIdempotent(t *testing.T) {
	var inputs = []string{
		"My  File.txt", "hello.txt", "evil..name.txt", "CON", "lpt5",
		"what?.txt", "a b c", "c..on", ".?.", "a.?.b", "....",
	}
	for _, input := range inputs {
		once := SanitizeFileName(input)
		twice := SanitizeFileName(once)
		if once != twice {
			t.Errorf("sanitize not idempotent for %q: %q != %q", input, once, twice)
		}
	}
}
