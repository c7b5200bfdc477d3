package sniff

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, name string, content []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// TestIsBinaryText verifies plain text is classified as text regardless
// of extension.
func TestIsBinaryText(t *testing.T) {
	path := writeFile(t, "notes.dat", []byte("just some plain prose\nwith two lines\n"))
	if IsBinary(path) {
		t.Error("plain text classified as binary")
	}
}

// TestIsBinaryNullBytes verifies content with embedded NULs is binary.
func TestIsBinaryNullBytes(t *testing.T) {
	path := writeFile(t, "blob.txt", []byte{0x00, 0x01, 0x02, 0xff, 0xfe, 0x00, 0x7f})
	if !IsBinary(path) {
		t.Error("NUL-laden content classified as text")
	}
}

// TestIsBinaryPNGHeader verifies a PNG magic header is binary even when
// the rest of the file is text-like.
func TestIsBinaryPNGHeader(t *testing.T) {
	content := append([]byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}, []byte("IHDR")...)
	path := writeFile(t, "image.png", content)
	if !IsBinary(path) {
		t.Error("PNG content classified as text")
	}
}

// TestIsBinaryStructuredText verifies text-rooted MIME types (JSON, XML)
// resolve to text through the parent chain.
func TestIsBinaryStructuredText(t *testing.T) {
	tests := map[string][]byte{
		"data.json": []byte(`{"key": "value", "nested": {"n": 1}}`),
		"data.xml":  []byte(`<?xml version="1.0"?><root><item/></root>`),
	}
	for name, content := range tests {
		path := writeFile(t, name, content)
		if IsBinary(path) {
			t.Errorf("%s classified as binary", name)
		}
	}
}

// TestIsBinaryMissingFile verifies a stat/sniff failure falls back to
// the NUL heuristic, which reports text for an unreadable file.
func TestIsBinaryMissingFile(t *testing.T) {
	if IsBinary(filepath.Join(t.TempDir(), "missing")) {
		t.Error("unreadable file should fall back to text classification")
	}
}

// TestDecodeTextUTF8 verifies the detection path on valid UTF-8 input.
func TestDecodeTextUTF8(t *testing.T) {
	text, charset, err := DecodeText([]byte("héllo wörld 日本語"), "")
	if err != nil {
		t.Fatal(err)
	}
	if charset != "utf-8" {
		t.Errorf("charset = %q, want utf-8", charset)
	}
	if text != "héllo wörld 日本語" {
		t.Errorf("text = %q", text)
	}
}

// TestDecodeTextInvalidUTF8 verifies invalid byte sequences are replaced
// rather than failing the decode.
func TestDecodeTextInvalidUTF8(t *testing.T) {
	text, charset, err := DecodeText([]byte{'a', 0xff, 'b'}, "utf-8")
	if err != nil {
		t.Fatal(err)
	}
	if charset != "utf-8" {
		t.Errorf("charset = %q, want utf-8", charset)
	}
	if !strings.Contains(text, "�") {
		t.Errorf("expected replacement character in %q", text)
	}
	if !strings.HasPrefix(text, "a") || !strings.HasSuffix(text, "b") {
		t.Errorf("valid bytes around the invalid sequence must survive: %q", text)
	}
}

// TestDecodeTextForcedCharset verifies an explicit charset is honored.
func TestDecodeTextForcedCharset(t *testing.T) {
	// "café" in ISO-8859-1: é is a single 0xe9 byte.
	raw := []byte{'c', 'a', 'f', 0xe9}
	text, charset, err := DecodeText(raw, "ISO-8859-1")
	if err != nil {
		t.Fatal(err)
	}
	if charset != "iso-8859-1" {
		t.Errorf("charset = %q, want iso-8859-1", charset)
	}
	if text != "café" {
		t.Errorf("text = %q, want café", text)
	}
}

// TestDecodeTextUnknownCharset verifies an unsupported charset name
// degrades to UTF-8 instead of failing.
func TestDecodeTextUnknownCharset(t *testing.T) {
	text, charset, err := DecodeText([]byte("plain"), "no-such-charset")
	if err != nil {
		t.Fatal(err)
	}
	if charset != "utf-8" {
		t.Errorf("charset = %q, want utf-8 fallback", charset)
	}
	if text != "plain" {
		t.Errorf("text = %q", text)
	}
}

// TestDecodeTextEmpty verifies empty input decodes to empty UTF-8 text.
func TestDecodeTextEmpty(t *testing.T) {
	text, charset, err := DecodeText(nil, "")
	if err != nil {
		t.Fatal(err)
	}
	if text != "" || charset != "utf-8" {
		t.Errorf("got (%q, %q), want empty utf-8", text, charset)
	}
}
