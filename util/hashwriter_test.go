package util

import (
	"encoding/hex"
	"strings"
	"testing"
)

func TestHashWriter(t *testing.T) {
	const input = "hello1 hello2 hello3 hello4 hello5abcdefghijklmnopqrstuvwxyz0123456789"
	goalSHA1, _ := hex.DecodeString("721254fee21f4b228a945fabb758b445c634c1c0")
	goalMD5, _ := hex.DecodeString("0101fc798d94a730b0f0bf1bd2cc1959")
	hw := NewHashWriterPlain()
	hw.Write([]byte(input))
	h, ok := hw.CheckSHA1(goalSHA1)
	if !ok {
		t.Fatalf("Got %v, expected %v\n", h, goalSHA1)
	}
	h, ok = hw.CheckMD5(goalMD5)
	if !ok {
		t.Fatalf("Got %v, expected %v\n", h, goalMD5)
	}
	// empty goals match anything
	if _, ok = hw.CheckSHA1(nil); !ok {
		t.Errorf("empty sha1 goal did not match")
	}
}

func TestVerifyStreamHash(t *testing.T) {
	// sha1("hello")
	goalSHA1, _ := hex.DecodeString("aaf4c61ddcc5e8a2dabede0f3b482cd9aea9434d")
	ok, err := VerifyStreamHash(strings.NewReader("hello"), goalSHA1, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Errorf("sha1 of hello did not verify")
	}
	ok, _ = VerifyStreamHash(strings.NewReader("hello!"), goalSHA1, nil)
	if ok {
		t.Errorf("altered stream verified")
	}
	// md5("hello")
	goalMD5, _ := hex.DecodeString("5d41402abc4b2a76b9719d911017c592")
	ok, _ = VerifyStreamHash(strings.NewReader("hello"), nil, goalMD5)
	if !ok {
		t.Errorf("md5 of hello did not verify")
	}
	// empty goals always verify
	ok, _ = VerifyStreamHash(strings.NewReader("anything"), nil, nil)
	if !ok {
		t.Errorf("empty goals did not verify")
	}
}
