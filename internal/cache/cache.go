// Package cache provides a local SQLite-backed action cache for pex builds.
// Entries are keyed by target label plus the SHA-256 digest of the
// serialized manifest: because closure merging is deterministic, an
// identical manifest means an identical archive, so a hit skips the
// packaging tool invocation entirely.
package cache

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"os"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver.
)

// schema contains the DDL executed on first open. Using IF NOT EXISTS makes
// it safe to run on every startup.
const schema = `
CREATE TABLE IF NOT EXISTS builds (
    label         TEXT NOT NULL,
    manifest_sha  TEXT NOT NULL,
    archive_path  TEXT NOT NULL,
    built_at      TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    PRIMARY KEY (label, manifest_sha)
);
`

// Cache is a SQLite-backed action cache. A nil *Cache is a valid no-op
// cache: lookups miss and records are dropped.
type Cache struct {
	db *sql.DB
}

// Open opens (or creates) the cache database at dbPath, enables WAL mode
// and a busy timeout, and creates the schema if missing.
func Open(ctx context.Context, dbPath string) (*Cache, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("cache: open database: %w", err)
	}

	// SQLite supports a single writer; one connection avoids SQLITE_BUSY
	// contention between pooled connections.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("cache: enable WAL mode: %w", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("cache: set busy timeout: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("cache: create schema: %w", err)
	}

	return &Cache{db: db}, nil
}

// Close releases the database handle. Safe on a nil Cache.
func (c *Cache) Close() error {
	if c == nil {
		return nil
	}
	return c.db.Close()
}

// Digest returns the hex SHA-256 of a serialized manifest.
func Digest(manifestText string) string {
	sum := sha256.Sum256([]byte(manifestText))
	return hex.EncodeToString(sum[:])
}

// Lookup returns the archive path recorded for (label, manifestSHA) if the
// archive still exists on disk. A stale row whose archive was removed is a
// miss.
func (c *Cache) Lookup(ctx context.Context, label, manifestSHA string) (string, bool, error) {
	if c == nil {
		return "", false, nil
	}
	var archive string
	err := c.db.QueryRowContext(ctx,
		"SELECT archive_path FROM builds WHERE label = ? AND manifest_sha = ?",
		label, manifestSHA).Scan(&archive)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("cache: lookup %q: %w", label, err)
	}
	if _, err := os.Stat(archive); err != nil {
		return "", false, nil
	}
	return archive, true, nil
}

// Record upserts the archive produced for (label, manifestSHA).
func (c *Cache) Record(ctx context.Context, label, manifestSHA, archivePath string) error {
	if c == nil {
		return nil
	}
	const q = `
		INSERT INTO builds (label, manifest_sha, archive_path, built_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(label, manifest_sha) DO UPDATE
		SET archive_path = excluded.archive_path, built_at = CURRENT_TIMESTAMP`
	if _, err := c.db.ExecContext(ctx, q, label, manifestSHA, archivePath); err != nil {
		return fmt.Errorf("cache: record %q: %w", label, err)
	}
	return nil
}

// Evict removes all rows for a label, forcing the next build to repack.
func (c *Cache) Evict(ctx context.Context, label string) error {
	if c == nil {
		return nil
	}
	if _, err := c.db.ExecContext(ctx, "DELETE FROM builds WHERE label = ?", label); err != nil {
		return fmt.Errorf("cache: evict %q: %w", label, err)
	}
	return nil
}
