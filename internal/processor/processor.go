// Package processor turns one candidate file path into a FileRecord:
// cache-hit or recompute, bounded content read, hash, metadata. Every
// failure is recovered locally into an error record; nothing escapes the
// Process boundary.
package processor

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/scandog/scandog/internal/cache"
	"github.com/scandog/scandog/internal/hashing"
	"github.com/scandog/scandog/internal/logger"
	"github.com/scandog/scandog/internal/record"
	"github.com/scandog/scandog/internal/sniff"
)

// Processor holds the per-run configuration shared by all workers. It is
// immutable once the pipeline starts; Process is safe for concurrent use.
type Processor struct {
	Cache           *cache.Store // nil disables the fingerprint cache
	MaxSize         int64
	IncludeBinary   bool
	ImageExtensions map[string]struct{}
	Encoding        string // "" selects charset detection
	Algorithm       hashing.Algorithm
}

// Process stats, classifies, reads and fingerprints one file.
//
// A valid cache hit (matching size, mtime and algorithm) returns the
// cached record verbatim and short-circuits hashing, classification and
// reading. Oversized and binary/image files come back as excluded
// records without their content ever being read.
func (p *Processor) Process(path string) (string, *record.FileRecord) {
	name := filepath.Base(path)

	info, err := os.Stat(path)
	if err != nil {
		logger.Warnf("stat failed for %s: %v", path, err)
		return name, errorRecord(err)
	}

	size := info.Size()
	mtime := mtimeSeconds(info)

	if size > p.MaxSize {
		logger.Debugf("file too large: %s (%d bytes)", path, size)
		return name, &record.FileRecord{Type: record.TypeExcluded, Reason: record.ReasonSize}
	}

	useCache := p.Cache != nil && p.Algorithm.Enabled()

	if useCache {
		entry, err := p.Cache.Get(path)
		switch {
		case errors.Is(err, cache.ErrUnavailable):
			return name, errorRecord(err)
		case err != nil:
			logger.Warnf("cache lookup failed for %s: %v", path, err)
		case entry.Valid(size, mtime, string(p.Algorithm)):
			logger.Debugf("cache hit for %s", path)
			return name, entry.Metadata
		}
	}

	var hash string
	if p.Algorithm.Enabled() {
		// Hashing failure degrades to an empty hash, not a dead file.
		if h, err := hashing.HashFile(path, p.Algorithm); err != nil {
			logger.Warnf("could not hash %s: %v", path, err)
		} else {
			hash = h
		}
	}

	binary := sniff.IsBinary(path)
	_, isImage := p.ImageExtensions[strings.ToLower(filepath.Ext(path))]
	if (binary || isImage) && !p.IncludeBinary {
		logger.Debugf("excluding binary or image file: %s", path)
		return name, &record.FileRecord{Type: record.TypeExcluded, Reason: record.ReasonBinaryOrImage}
	}

	rec, err := p.readContent(path, binary)
	if err != nil {
		logger.Warnf("could not read %s: %v", path, err)
		return name, errorRecord(err)
	}

	rec.Size = &size
	rec.Created = ctimeSeconds(info)
	rec.Modified = mtime
	rec.Permissions = fmt.Sprintf("0o%o", info.Mode().Perm())
	rec.Hash = hash

	if useCache && hash != "" {
		if err := p.Cache.Set(path, hash, string(p.Algorithm), rec, size, mtime); err != nil {
			logger.Warnf("cache update failed for %s: %v", path, err)
			return name, errorRecord(err)
		}
	}

	return name, rec
}

// readContent reads at most MaxSize bytes and builds the content variant:
// base64 transport encoding for binary files, charset-decoded text
// otherwise.
func (p *Processor) readContent(path string, binary bool) (*record.FileRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	raw, err := io.ReadAll(io.LimitReader(f, p.MaxSize))
	if err != nil {
		return nil, err
	}

	if binary {
		content := base64.StdEncoding.EncodeToString(raw)
		return &record.FileRecord{
			Type:    record.TypeBinary,
			Content: &content,
		}, nil
	}

	text, charset, err := sniff.DecodeText(raw, p.Encoding)
	if err != nil {
		return nil, fmt.Errorf("decode as %s: %w", charset, err)
	}
	return &record.FileRecord{
		Type:     record.TypeText,
		Content:  &text,
		Encoding: charset,
	}, nil
}

func errorRecord(err error) *record.FileRecord {
	return &record.FileRecord{Type: record.TypeError, Error: err.Error()}
}

// mtimeSeconds is the fractional-seconds modification time used as part
// of the cache staleness key. It must round-trip exactly through the
// store's REAL column, which float64 does.
func mtimeSeconds(info os.FileInfo) float64 {
	return float64(info.ModTime().UnixNano()) / 1e9
}

// ctimeSeconds reports inode change time where the platform exposes it,
// falling back to the modification time.
func ctimeSeconds(info os.FileInfo) float64 {
	if st, ok := info.Sys().(*syscall.Stat_t); ok {
		return float64(st.Ctim.Sec) + float64(st.Ctim.Nsec)/1e9
	}
	return mtimeSeconds(info)
}
