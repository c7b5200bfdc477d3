package hashing

import (
	"os"
	"path/filepath"
	"testing"
)

// TestParse tests algorithm name validation and normalization.
func TestParse(t *testing.T) {
	tests := []struct {
		in      string
		want    Algorithm
		wantErr bool
	}{
		{"md5", MD5, false},
		{"SHA256", SHA256, false},
		{" sha1 ", SHA1, false},
		{"xxh64", XXH64, false},
		{"none", None, false},
		{"", Default, false},
		{"crc32", "", true},
	}

	for _, tt := range tests {
		got, err := Parse(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("Parse(%q): expected error", tt.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("Parse(%q): %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("Parse(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

// TestEnabled verifies None and the empty algorithm disable hashing.
func TestEnabled(t *testing.T) {
	if None.Enabled() {
		t.Error("none must not be enabled")
	}
	if Algorithm("").Enabled() {
		t.Error("empty algorithm must not be enabled")
	}
	if !MD5.Enabled() {
		t.Error("md5 must be enabled")
	}
}

// TestHashFileKnownDigests checks each algorithm against independently
// computed digests of the same input.
func TestHashFileKnownDigests(t *testing.T) {
	path := filepath.Join(t.TempDir(), "input.txt")
	if err := os.WriteFile(path, []byte("hello world"), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		algorithm Algorithm
		want      string
	}{
		{MD5, "5eb63bbbe01eeed093cb22bb8f5acdc3"},
		{SHA1, "2aae6c35c94fcfb415dbe95f408b9ce91ee846ed"},
		{SHA256, "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9"},
		{XXH64, "45ab6734b21e6968"},
	}

	for _, tt := range tests {
		got, err := HashFile(path, tt.algorithm)
		if err != nil {
			t.Errorf("%s: %v", tt.algorithm, err)
			continue
		}
		if got != tt.want {
			t.Errorf("%s = %s, want %s", tt.algorithm, got, tt.want)
		}
	}
}

// TestHashFileSameContentSameDigest verifies identical content yields
// identical fingerprints regardless of path.
func TestHashFileSameContentSameDigest(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.txt")
	b := filepath.Join(dir, "b.txt")
	for _, p := range []string{a, b} {
		if err := os.WriteFile(p, []byte("same bytes"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	ha, err := HashFile(a, SHA256)
	if err != nil {
		t.Fatal(err)
	}
	hb, err := HashFile(b, SHA256)
	if err != nil {
		t.Fatal(err)
	}
	if ha != hb {
		t.Errorf("digests differ for identical content: %s vs %s", ha, hb)
	}
}

// TestHashFileErrors covers the missing-file and disabled-algorithm paths.
func TestHashFileErrors(t *testing.T) {
	if _, err := HashFile(filepath.Join(t.TempDir(), "missing"), MD5); err == nil {
		t.Error("expected error for missing file")
	}
	if _, err := HashFile("irrelevant", None); err == nil {
		t.Error("expected error when hashing is disabled")
	}
}
