package processor

import (
	"encoding/base64"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/scandog/scandog/internal/cache"
	"github.com/scandog/scandog/internal/hashing"
	"github.com/scandog/scandog/internal/record"
)

func newProcessor(t *testing.T, withCache bool) *Processor {
	t.Helper()
	p := &Processor{
		MaxSize:         1 << 20,
		ImageExtensions: map[string]struct{}{".png": {}, ".jpg": {}},
		Algorithm:       hashing.MD5,
	}
	if withCache {
		store, err := cache.Open(filepath.Join(t.TempDir(), "cache.db"), 2)
		require.NoError(t, err)
		t.Cleanup(func() { _ = store.Close() })
		p.Cache = store
	}
	return p
}

func writeFile(t *testing.T, dir, name string, content []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, content, 0o644))
	return path
}

// TestProcessTextFile verifies the full metadata contract for a plain
// text file.
func TestProcessTextFile(t *testing.T) {
	p := newProcessor(t, false)
	path := writeFile(t, t.TempDir(), "notes.txt", []byte("hello world\n"))

	name, rec := p.Process(path)
	require.Equal(t, "notes.txt", name)
	require.NotNil(t, rec)
	require.Equal(t, record.TypeText, rec.Type)
	require.NotNil(t, rec.Content)
	require.Equal(t, "hello world\n", *rec.Content)
	require.Equal(t, "utf-8", rec.Encoding)
	require.NotNil(t, rec.Size)
	require.Equal(t, int64(12), *rec.Size)
	require.Equal(t, "0o644", rec.Permissions)
	require.NotEmpty(t, rec.Hash)
	require.NotZero(t, rec.Modified)
	require.NotZero(t, rec.Created)
}

// TestProcessMissingFile verifies a stat failure becomes an error
// record, not a panic or an absent entry.
func TestProcessMissingFile(t *testing.T) {
	p := newProcessor(t, false)

	name, rec := p.Process(filepath.Join(t.TempDir(), "gone.txt"))
	require.Equal(t, "gone.txt", name)
	require.NotNil(t, rec)
	require.Equal(t, record.TypeError, rec.Type)
	require.NotEmpty(t, rec.Error)
}

// TestProcessOversizedFile verifies the size ceiling produces an
// excluded record without reading any content.
func TestProcessOversizedFile(t *testing.T) {
	p := newProcessor(t, false)
	p.MaxSize = 10
	path := writeFile(t, t.TempDir(), "big.txt", []byte("this is more than ten bytes"))

	_, rec := p.Process(path)
	require.Equal(t, record.TypeExcluded, rec.Type)
	require.Equal(t, record.ReasonSize, rec.Reason)
	require.Nil(t, rec.Content)
	require.Nil(t, rec.Size)
	require.Empty(t, rec.Hash)
}

// TestProcessBinaryExcluded verifies binary content is excluded by
// default and carried as base64 when inclusion is enabled.
func TestProcessBinaryExcluded(t *testing.T) {
	dir := t.TempDir()
	raw := []byte{0x00, 0x01, 0x02, 0xff, 0xfe, 0x00}
	path := writeFile(t, dir, "blob.bin", raw)

	p := newProcessor(t, false)
	_, rec := p.Process(path)
	require.Equal(t, record.TypeExcluded, rec.Type)
	require.Equal(t, record.ReasonBinaryOrImage, rec.Reason)

	p.IncludeBinary = true
	_, rec = p.Process(path)
	require.Equal(t, record.TypeBinary, rec.Type)
	require.NotNil(t, rec.Content)
	require.Equal(t, base64.StdEncoding.EncodeToString(raw), *rec.Content)
	require.NotEmpty(t, rec.Hash)
}

// TestProcessImageExtension verifies image extensions are excluded even
// when the content itself sniffs as text.
func TestProcessImageExtension(t *testing.T) {
	p := newProcessor(t, false)
	path := writeFile(t, t.TempDir(), "vector.PNG", []byte("not really an image"))

	_, rec := p.Process(path)
	require.Equal(t, record.TypeExcluded, rec.Type)
	require.Equal(t, record.ReasonBinaryOrImage, rec.Reason)
}

// TestProcessCacheHit proves the cache short-circuits processing: the
// content is changed on disk, but size and mtime are restored, so the
// second Process must return the originally cached content.
func TestProcessCacheHit(t *testing.T) {
	p := newProcessor(t, true)
	dir := t.TempDir()
	path := writeFile(t, dir, "file.txt", []byte("original"))

	info, err := os.Stat(path)
	require.NoError(t, err)
	mtime := info.ModTime()

	_, first := p.Process(path)
	require.Equal(t, record.TypeText, first.Type)
	require.Equal(t, "original", *first.Content)

	// Same length, same mtime: the fingerprint tuple is unchanged.
	require.NoError(t, os.WriteFile(path, []byte("MODIFIED"), 0o644))
	require.NoError(t, os.Chtimes(path, mtime, mtime))

	_, second := p.Process(path)
	require.Equal(t, record.TypeText, second.Type)
	require.NotNil(t, second.Content)
	require.Equal(t, "original", *second.Content, "cache hit must serve the stored record verbatim")
	require.Equal(t, first.Hash, second.Hash)
}

// TestProcessMtimeInvalidatesCache verifies a changed mtime forces
// recomputation.
func TestProcessMtimeInvalidatesCache(t *testing.T) {
	p := newProcessor(t, true)
	dir := t.TempDir()
	path := writeFile(t, dir, "file.txt", []byte("original"))

	_, first := p.Process(path)
	require.Equal(t, "original", *first.Content)

	require.NoError(t, os.WriteFile(path, []byte("MODIFIED"), 0o644))
	future := time.Now().Add(2 * time.Second)
	require.NoError(t, os.Chtimes(path, future, future))

	_, second := p.Process(path)
	require.Equal(t, "MODIFIED", *second.Content, "stale entry must be recomputed")
	require.NotEqual(t, first.Hash, second.Hash)
}

// TestProcessSizeInvalidatesCache verifies a changed size forces
// recomputation even with a restored mtime.
func TestProcessSizeInvalidatesCache(t *testing.T) {
	p := newProcessor(t, true)
	dir := t.TempDir()
	path := writeFile(t, dir, "file.txt", []byte("short"))

	info, err := os.Stat(path)
	require.NoError(t, err)
	mtime := info.ModTime()

	p.Process(path)

	require.NoError(t, os.WriteFile(path, []byte("much longer content"), 0o644))
	require.NoError(t, os.Chtimes(path, mtime, mtime))

	_, rec := p.Process(path)
	require.Equal(t, "much longer content", *rec.Content)
}

// TestProcessHashingDisabled verifies the none algorithm skips both
// fingerprinting and the cache while still reading content.
func TestProcessHashingDisabled(t *testing.T) {
	p := newProcessor(t, true)
	p.Algorithm = hashing.None
	path := writeFile(t, t.TempDir(), "file.txt", []byte("content"))

	_, rec := p.Process(path)
	require.Equal(t, record.TypeText, rec.Type)
	require.Empty(t, rec.Hash)

	entry, err := p.Cache.Get(path)
	require.NoError(t, err)
	require.Nil(t, entry, "disabled hashing must bypass the cache entirely")
}

// TestProcessContentTruncatedAtMaxSize verifies content reads are
// bounded even when classification lets the file through.
func TestProcessContentTruncatedAtMaxSize(t *testing.T) {
	p := newProcessor(t, false)
	p.MaxSize = 5
	path := writeFile(t, t.TempDir(), "file.txt", []byte("12345"))

	_, rec := p.Process(path)
	require.Equal(t, record.TypeText, rec.Type)
	require.Equal(t, "12345", *rec.Content)
	require.Equal(t, int64(5), *rec.Size)
}

// TestProcessEmptyFile verifies a zero-byte file still carries explicit
// (empty) content and an explicit zero size rather than dropping the
// fields.
func TestProcessEmptyFile(t *testing.T) {
	p := newProcessor(t, false)
	p.IncludeBinary = true
	path := writeFile(t, t.TempDir(), "empty.txt", nil)

	_, rec := p.Process(path)
	require.NotEqual(t, record.TypeExcluded, rec.Type)
	require.NotEqual(t, record.TypeError, rec.Type)
	require.NotNil(t, rec.Content)
	require.Empty(t, *rec.Content)
	require.NotNil(t, rec.Size)
	require.Zero(t, *rec.Size)
}
