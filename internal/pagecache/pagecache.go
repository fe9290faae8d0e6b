// Package pagecache stores fetched source pages in SQLite so repeated builds
// do not hit the network.
//
// Build modes:
//   - Default (CGO_ENABLED=0): pure Go modernc.org/sqlite
//   - CGO mode (CGO_ENABLED=1 -tags cgo_sqlite): mattn/go-sqlite3
//
// Bodies are stored xz-compressed.
package pagecache

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/ulikunitz/xz"

	"github.com/FocuswithJustin/PsalmSlides/core/errors"
)

const schema = `CREATE TABLE IF NOT EXISTS pages (
	url        TEXT PRIMARY KEY,
	fetched_at INTEGER NOT NULL,
	body       BLOB NOT NULL
)`

// Injectable for tests.
var (
	timeNow     = time.Now
	xzNewWriter = xz.NewWriter
	xzNewReader = xz.NewReader
)

// DriverType returns "cgo" for mattn/go-sqlite3, "purego" for modernc.org/sqlite.
func DriverType() string {
	return driverType
}

// Cache is a SQLite-backed page cache. It is safe for concurrent use.
type Cache struct {
	db   *sql.DB
	path string
}

// Open opens or creates the cache database at path.
func Open(path string) (*Cache, error) {
	if path == "" {
		return nil, errors.NewValidation("path", "cache path must not be empty")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, errors.NewIO("mkdir", dir, err)
		}
	}

	db, err := sql.Open(driverName, path)
	if err != nil {
		return nil, errors.NewIO("open", path, err)
	}
	// SQLite serializes writers; a single connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, errors.NewIO("create schema", path, err)
	}
	return &Cache{db: db, path: path}, nil
}

// Path returns the database file path.
func (c *Cache) Path() string {
	return c.path
}

// Close closes the database.
func (c *Cache) Close() error {
	return c.db.Close()
}

// Get returns the cached body for url. A maxAge of zero accepts entries of
// any age. ok is false when no fresh entry exists.
func (c *Cache) Get(ctx context.Context, url string, maxAge time.Duration) (body []byte, ok bool, err error) {
	var fetchedAt int64
	var compressed []byte
	row := c.db.QueryRowContext(ctx, `SELECT fetched_at, body FROM pages WHERE url = ?`, url)
	if err := row.Scan(&fetchedAt, &compressed); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, errors.NewIO("read", c.path, err)
	}

	if maxAge > 0 && timeNow().Sub(time.Unix(fetchedAt, 0)) > maxAge {
		return nil, false, nil
	}

	body, err = decompress(compressed)
	if err != nil {
		return nil, false, errors.Wrapf(err, "cached page %s", url)
	}
	return body, true, nil
}

// Put stores body for url, replacing any previous entry.
func (c *Cache) Put(ctx context.Context, url string, body []byte) error {
	compressed, err := compress(body)
	if err != nil {
		return errors.Wrapf(err, "compress page %s", url)
	}
	_, err = c.db.ExecContext(ctx,
		`INSERT INTO pages (url, fetched_at, body) VALUES (?, ?, ?)
		 ON CONFLICT(url) DO UPDATE SET fetched_at = excluded.fetched_at, body = excluded.body`,
		url, timeNow().Unix(), compressed)
	if err != nil {
		return errors.NewIO("write", c.path, err)
	}
	return nil
}

// Purge removes every entry and returns how many were deleted.
func (c *Cache) Purge(ctx context.Context) (int64, error) {
	res, err := c.db.ExecContext(ctx, `DELETE FROM pages`)
	if err != nil {
		return 0, errors.NewIO("purge", c.path, err)
	}
	return res.RowsAffected()
}

// Stats summarizes the cache contents.
type Stats struct {
	Entries         int64
	CompressedBytes int64
}

// Stats returns the number of entries and their total compressed size.
func (c *Cache) Stats(ctx context.Context) (Stats, error) {
	var s Stats
	row := c.db.QueryRowContext(ctx, `SELECT COUNT(*), COALESCE(SUM(LENGTH(body)), 0) FROM pages`)
	if err := row.Scan(&s.Entries, &s.CompressedBytes); err != nil {
		return Stats{}, errors.NewIO("stats", c.path, err)
	}
	return s, nil
}

func compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := xzNewWriter(&buf)
	if err != nil {
		return nil, fmt.Errorf("failed to create xz writer: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		w.Close()
		return nil, fmt.Errorf("failed to compress: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish xz stream: %w", err)
	}
	return buf.Bytes(), nil
}

func decompress(data []byte) ([]byte, error) {
	r, err := xzNewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create xz reader: %w", err)
	}
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress: %w", err)
	}
	return out, nil
}
