// Package sniff classifies file content as text or binary and handles
// charset detection and decoding for text files. Classification reads a
// bounded prefix only, never the whole file.
package sniff

import (
	"bytes"
	"io"
	"os"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/saintfish/chardet"
	"golang.org/x/text/encoding/ianaindex"

	"github.com/scandog/scandog/internal/logger"
)

// sniffLen bounds how much of a file the classifier reads.
const sniffLen = 8 * 1024

func init() {
	// Bound the sniff window; mimetype otherwise picks its own limit.
	mimetype.SetLimit(sniffLen)
}

// IsBinary reports whether the file's content is binary, judged by
// content-type sniffing over the leading bytes. When sniffing fails it
// falls back to a null-byte heuristic over the same prefix.
func IsBinary(path string) bool {
	mtype, err := mimetype.DetectFile(path)
	if err != nil {
		logger.Debugf("content sniffing failed for %s: %v", path, err)
		return hasNullByte(path)
	}
	for m := mtype; m != nil; m = m.Parent() {
		if strings.HasPrefix(m.String(), "text/") {
			return false
		}
	}
	return true
}

// hasNullByte is the fallback heuristic: any NUL in the leading bytes
// marks the file as binary.
func hasNullByte(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		logger.Warnf("binary fallback check failed for %s: %v", path, err)
		return false
	}
	defer func() { _ = f.Close() }()

	buf := make([]byte, sniffLen)
	n, err := io.ReadFull(f, buf)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return false
	}
	return bytes.IndexByte(buf[:n], 0) >= 0
}

// DecodeText decodes raw bytes into a string. A non-empty name selects
// the charset; otherwise the charset is detected statistically. Unknown
// or undetectable charsets fall back to UTF-8 with replacement of invalid
// sequences. The charset actually used is returned alongside the text.
func DecodeText(raw []byte, name string) (text string, charset string, err error) {
	if name == "" {
		name = detectCharset(raw)
	}

	normalized := strings.ToLower(strings.TrimSpace(name))
	if normalized == "" || normalized == "utf-8" || normalized == "utf8" || normalized == "ascii" || normalized == "us-ascii" {
		return strings.ToValidUTF8(string(raw), "�"), "utf-8", nil
	}

	enc, encErr := ianaindex.IANA.Encoding(name)
	if encErr != nil || enc == nil {
		logger.Debugf("unsupported charset %q, decoding as utf-8", name)
		return strings.ToValidUTF8(string(raw), "�"), "utf-8", nil
	}

	decoded, err := enc.NewDecoder().Bytes(raw)
	if err != nil {
		return "", name, err
	}
	return string(decoded), normalized, nil
}

// detectCharset runs statistical charset detection, defaulting to UTF-8
// when nothing can be determined.
func detectCharset(raw []byte) string {
	if len(raw) == 0 {
		return "utf-8"
	}
	result, err := chardet.NewTextDetector().DetectBest(raw)
	if err != nil || result == nil || result.Charset == "" {
		return "utf-8"
	}
	return result.Charset
}
