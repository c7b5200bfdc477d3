// Package hashing computes content fingerprints using a fixed set of
// digest algorithms.
package hashing

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// Algorithm names one of the supported digest algorithms. None disables
// hashing (and with it the fingerprint cache).
type Algorithm string

const (
	MD5    Algorithm = "md5"
	SHA1   Algorithm = "sha1"
	SHA256 Algorithm = "sha256"
	SHA512 Algorithm = "sha512"
	XXH64  Algorithm = "xxh64"
	None   Algorithm = "none"
)

// Default is the algorithm used when none is configured.
const Default = MD5

// blockSize is the read buffer size for streamed hashing.
const blockSize = 64 * 1024

// Parse validates a user-supplied algorithm name.
func Parse(s string) (Algorithm, error) {
	switch a := Algorithm(strings.ToLower(strings.TrimSpace(s))); a {
	case MD5, SHA1, SHA256, SHA512, XXH64, None:
		return a, nil
	case "":
		return Default, nil
	default:
		return "", fmt.Errorf("unknown hash algorithm %q (md5, sha1, sha256, sha512, xxh64, none)", s)
	}
}

// Enabled reports whether a selects an actual digest.
func (a Algorithm) Enabled() bool { return a != None && a != "" }

func (a Algorithm) newHasher() (hash.Hash, error) {
	switch a {
	case MD5:
		return md5.New(), nil
	case SHA1:
		return sha1.New(), nil
	case SHA256:
		return sha256.New(), nil
	case SHA512:
		return sha512.New(), nil
	case XXH64:
		return xxhash.New(), nil
	}
	return nil, fmt.Errorf("hashing disabled or unknown algorithm %q", a)
}

// HashFile streams the file through the selected digest and returns the
// hex-encoded sum.
func HashFile(path string, a Algorithm) (string, error) {
	h, err := a.newHasher()
	if err != nil {
		return "", err
	}

	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer func() { _ = f.Close() }()

	buf := make([]byte, blockSize)
	if _, err := io.CopyBuffer(h, f, buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
