package utils

import "testing"

func TestSanitizeHeaderFilename(t *testing.T) {
	cases := map[string]string{
		"":                     "download",
		"  ":                   "download",
		"plain.txt":            "plain.txt",
		"evil\r\nname.txt":     "evilname.txt",
		`quo"ted.txt`:          "quoted.txt",
		"  padded.bin  ":       "padded.bin",
		"line\nbreak\rmix.bin": "linebreakmix.bin",
	}
	for in, want := range cases {
		if got := SanitizeHeaderFilename(in); got != want {
			t.Fatalf("%q: expect %q, got %q", in, want, got)
		}
	}
}

func TestBuildCacheKey(t *testing.T) {
	got := BuildCacheKey("asset:list", uint64(7), uint64(0), 1, 50)
	if got != "asset:list:7:0:1:50" {
		t.Fatalf("unexpected key %s", got)
	}
}
