// Package cache is the persistent fingerprint cache: a single SQLite
// table keyed by canonicalized absolute path, reached through a bounded
// pool of exclusive handles. An entry is valid for reuse only while the
// file's size, mtime and hash algorithm all match what was recorded.
package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/scandog/scandog/internal/logger"
	"github.com/scandog/scandog/internal/record"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS cache (
	path      TEXT PRIMARY KEY,
	hash      TEXT,
	algorithm TEXT,
	metadata  TEXT,
	size      INTEGER,
	mtime     REAL
);
CREATE INDEX IF NOT EXISTS idx_cache_algorithm ON cache(algorithm);
`

// vacuumThreshold is the sweep size past which the store is compacted.
const vacuumThreshold = 10

// Entry is one fingerprint row: the (size, mtime, hash, algorithm) tuple
// plus the serialized FileRecord snapshot taken when the file was last
// processed.
type Entry struct {
	Path      string
	Hash      string
	Algorithm string
	Metadata  *record.FileRecord
	Size      int64
	Mtime     float64
}

// Valid reports whether the entry may be reused for a file currently
// observed with the given size and mtime, fingerprinted with algorithm.
// Any mismatch forces recomputation.
func (e *Entry) Valid(size int64, mtime float64, algorithm string) bool {
	return e != nil && e.Size == size && e.Mtime == mtime && e.Algorithm == algorithm
}

// Store exposes get/set/sweep over the cache table. Concurrent callers
// may operate on different paths simultaneously; a single path's upsert
// is atomic and there is no inter-path ordering.
type Store struct {
	pool *Pool
}

// Open creates the store and its handle pool. Fatal errors here (store
// unreachable, schema rejected) abort the run before traversal begins.
func Open(path string, poolSize int) (*Store, error) {
	pool, err := OpenPool(path, poolSize)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

// Close drains and closes the handle pool. Must run on every exit path.
func (s *Store) Close() error {
	return s.pool.Close()
}

// Canonical normalizes a path to the form used as the cache key.
func Canonical(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return filepath.Clean(path)
	}
	return abs
}

// Get returns the entry for path, or nil when absent. A row whose
// metadata snapshot no longer parses is deleted and reported as a miss
// rather than surfacing a decode error. ErrUnavailable is returned when
// no handle could be acquired.
func (s *Store) Get(path string) (*Entry, error) {
	key := Canonical(path)

	h, err := s.pool.Acquire()
	if err != nil {
		return nil, err
	}
	defer s.pool.Release(h)

	ctx := context.Background()
	var (
		hash      sql.NullString
		algorithm sql.NullString
		metadata  string
		size      int64
		mtime     float64
	)
	row := h.conn.QueryRowContext(ctx,
		`SELECT hash, algorithm, metadata, size, mtime FROM cache WHERE path = ?`, key)
	switch err := row.Scan(&hash, &algorithm, &metadata, &size, &mtime); {
	case errors.Is(err, sql.ErrNoRows):
		return nil, nil
	case err != nil:
		return nil, fmt.Errorf("cache get %s: %w", key, err)
	}

	var rec record.FileRecord
	if err := json.Unmarshal([]byte(metadata), &rec); err != nil {
		// Corrupt metadata invalidates the whole row, hash included.
		logger.Warnf("cache: dropping corrupt entry for %s: %v", key, err)
		if _, derr := h.conn.ExecContext(ctx, `DELETE FROM cache WHERE path = ?`, key); derr != nil {
			logger.Errorf("cache: delete corrupt entry for %s: %v", key, derr)
		}
		return nil, nil
	}

	return &Entry{
		Path:      key,
		Hash:      hash.String,
		Algorithm: algorithm.String,
		Metadata:  &rec,
		Size:      size,
		Mtime:     mtime,
	}, nil
}

// Set upserts the entry for path. The table holds at most one row per
// path; rows are replaced, never appended.
func (s *Store) Set(path, hash, algorithm string, meta *record.FileRecord, size int64, mtime float64) error {
	key := Canonical(path)

	blob, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("cache set %s: encode metadata: %w", key, err)
	}

	h, err := s.pool.Acquire()
	if err != nil {
		return err
	}
	defer s.pool.Release(h)

	_, err = h.conn.ExecContext(context.Background(),
		`INSERT INTO cache (path, hash, algorithm, metadata, size, mtime)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(path) DO UPDATE SET
			hash      = excluded.hash,
			algorithm = excluded.algorithm,
			metadata  = excluded.metadata,
			size      = excluded.size,
			mtime     = excluded.mtime`,
		key, hash, algorithm, string(blob), size, mtime)
	if err != nil {
		return fmt.Errorf("cache set %s: %w", key, err)
	}
	return nil
}

// Sweep removes entries whose path is not in the currently-observed set
// and returns how many were removed. Large sweeps compact the store.
func (s *Store) Sweep(current map[string]struct{}) (int, error) {
	h, err := s.pool.Acquire()
	if err != nil {
		return 0, err
	}
	defer s.pool.Release(h)

	ctx := context.Background()
	rows, err := h.conn.QueryContext(ctx, `SELECT path FROM cache`)
	if err != nil {
		return 0, fmt.Errorf("cache sweep: list paths: %w", err)
	}

	var stale []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			_ = rows.Close()
			return 0, fmt.Errorf("cache sweep: scan path: %w", err)
		}
		if _, ok := current[p]; !ok {
			stale = append(stale, p)
		}
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return 0, fmt.Errorf("cache sweep: %w", err)
	}
	_ = rows.Close()

	if len(stale) == 0 {
		return 0, nil
	}

	tx, err := h.conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("cache sweep: begin: %w", err)
	}
	for _, p := range stale {
		if _, err := tx.ExecContext(ctx, `DELETE FROM cache WHERE path = ?`, p); err != nil {
			_ = tx.Rollback()
			return 0, fmt.Errorf("cache sweep: delete %s: %w", p, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("cache sweep: commit: %w", err)
	}

	if len(stale) >= vacuumThreshold {
		if _, err := h.conn.ExecContext(ctx, `VACUUM`); err != nil {
			logger.Warnf("cache sweep: vacuum: %v", err)
		}
	}

	logger.Debugf("cache sweep removed %d stale entries", len(stale))
	return len(stale), nil
}
