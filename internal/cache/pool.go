package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/scandog/scandog/internal/logger"
)

// ErrUnavailable is returned when no database handle could be acquired
// within the pool's timeout. Callers see it as a loud failure, never as a
// silent cache miss.
var ErrUnavailable = errors.New("cache: no database handle available")

const (
	// DefaultPoolSize is the number of exclusive handles kept open when
	// the caller does not configure one.
	DefaultPoolSize = 5

	acquireTimeout = 10 * time.Second
	probeTimeout   = 2 * time.Second
)

// Handle is one exclusive database connection. A handle is owned by a
// single caller between Acquire and Release; it is never shared.
type Handle struct {
	conn *sql.Conn
}

// probe runs a trivial liveness check. The backing store may have failed
// since the handle was last used, so validity is re-checked on every
// acquisition.
func (h *Handle) probe() error {
	ctx, cancel := context.WithTimeout(context.Background(), probeTimeout)
	defer cancel()

	var one int
	return h.conn.QueryRowContext(ctx, "SELECT 1").Scan(&one)
}

// Pool hands out exclusive SQLite connections with a bounded wait.
// It is constructed once before traversal begins and closed once at
// process exit, including on interrupted runs.
type Pool struct {
	db      *sql.DB
	free    chan *Handle
	size    int
	timeout time.Duration
}

// OpenPool opens (creating if needed) the cache database at path and
// fills the pool with size exclusive connections. The schema is applied
// before any handle is handed out.
func OpenPool(path string, size int) (*Pool, error) {
	if size <= 0 {
		size = DefaultPoolSize
	}

	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", url.PathEscape(path))
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open cache store: %w", err)
	}
	db.SetMaxOpenConns(size)

	if _, err := db.Exec(schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init cache schema: %w", err)
	}

	p := &Pool{
		db:      db,
		free:    make(chan *Handle, size),
		size:    size,
		timeout: acquireTimeout,
	}

	for i := 0; i < size; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), acquireTimeout)
		conn, err := db.Conn(ctx)
		cancel()
		if err != nil {
			_ = p.Close()
			return nil, fmt.Errorf("open cache handle: %w", err)
		}
		p.free <- &Handle{conn: conn}
	}

	logger.Debugf("cache handle pool initialized with %d connections", size)
	return p, nil
}

// Acquire blocks until a handle is free or the timeout elapses, in which
// case it returns ErrUnavailable. An unhealthy handle is replaced with a
// fresh connection rather than reused.
func (p *Pool) Acquire() (*Handle, error) {
	var h *Handle
	select {
	case h = <-p.free:
	case <-time.After(p.timeout):
		return nil, ErrUnavailable
	}

	if err := h.probe(); err != nil {
		logger.Warnf("cache handle unhealthy, replacing: %v", err)
		replacement, rerr := p.replace(h)
		if rerr != nil {
			// Keep the pool at full size; the next Acquire retries
			// the replacement.
			p.free <- h
			return nil, rerr
		}
		h = replacement
	}
	return h, nil
}

// Release returns a handle to the pool. Every successful Acquire must be
// paired with exactly one Release.
func (p *Pool) Release(h *Handle) {
	p.free <- h
}

func (p *Pool) replace(h *Handle) (*Handle, error) {
	_ = h.conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	conn, err := p.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("replace cache handle: %w", err)
	}
	return &Handle{conn: conn}, nil
}

// Close drains the pool, closing every handle it can collect within the
// timeout, then closes the store itself.
func (p *Pool) Close() error {
	var firstErr error

	deadline := time.After(p.timeout)
drain:
	for i := 0; i < p.size; i++ {
		select {
		case h := <-p.free:
			if err := h.conn.Close(); err != nil && !errors.Is(err, sql.ErrConnDone) && firstErr == nil {
				firstErr = err
			}
		case <-deadline:
			logger.Warnf("cache pool close: %d handle(s) still checked out", p.size-i)
			break drain
		}
	}

	if err := p.db.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}
