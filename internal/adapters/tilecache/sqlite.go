// Package tilecache provides the SQLite-backed rendered-tile cache.
package tilecache

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	_ "github.com/mattn/go-sqlite3" // sqlite driver
)

// Config holds tile cache configuration.
type Config struct {
	Path string        // Database file, or ":memory:"
	TTL  time.Duration // Default entry lifetime when Set is called with 0
}

// SQLiteCache implements output.TileCache on a single SQLite file. The
// layout mirrors an MBTiles tiles table with a cache key and an expiry
// column added.
type SQLiteCache struct {
	db  *sql.DB
	ttl time.Duration
}

const schema = `
CREATE TABLE IF NOT EXISTS tiles (
	cache_key   TEXT    NOT NULL,
	zoom_level  INTEGER NOT NULL,
	tile_column INTEGER NOT NULL,
	tile_row    INTEGER NOT NULL,
	tile_data   BLOB    NOT NULL,
	expires_at  INTEGER NOT NULL,
	PRIMARY KEY (cache_key, zoom_level, tile_column, tile_row)
);
CREATE INDEX IF NOT EXISTS idx_tiles_expires ON tiles (expires_at);
`

// New opens (or creates) the cache database.
func New(cfg Config) (*SQLiteCache, error) {
	if cfg.TTL == 0 {
		cfg.TTL = time.Hour
	}

	db, err := sql.Open("sqlite3", cfg.Path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening tile cache: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating tile cache schema: %w", err)
	}

	return &SQLiteCache{db: db, ttl: cfg.TTL}, nil
}

// Get returns a cached tile if it is present and not expired.
func (c *SQLiteCache) Get(ctx context.Context, key string, z, x, y int) ([]byte, bool, error) {
	var data []byte
	var expires int64

	err := c.db.QueryRowContext(ctx,
		`SELECT tile_data, expires_at FROM tiles
		 WHERE cache_key = ? AND zoom_level = ? AND tile_column = ? AND tile_row = ?`,
		key, z, x, y,
	).Scan(&data, &expires)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	if time.Now().Unix() >= expires {
		return nil, false, nil
	}
	return data, true, nil
}

// Set stores a rendered tile. A zero ttl uses the cache default.
func (c *SQLiteCache) Set(ctx context.Context, key string, z, x, y int, data []byte, ttl time.Duration) error {
	if ttl == 0 {
		ttl = c.ttl
	}

	_, err := c.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO tiles
		 (cache_key, zoom_level, tile_column, tile_row, tile_data, expires_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		key, z, x, y, data, time.Now().Add(ttl).Unix(),
	)
	return err
}

// Prune removes expired tiles and returns how many were dropped.
func (c *SQLiteCache) Prune(ctx context.Context) (int64, error) {
	res, err := c.db.ExecContext(ctx, `DELETE FROM tiles WHERE expires_at < ?`, time.Now().Unix())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Close closes the database.
func (c *SQLiteCache) Close() error {
	return c.db.Close()
}

// Key builds a stable cache key from the request parts that affect the
// rendered tile (item id, asset list, expression, render options).
func Key(parts ...string) string {
	return fmt.Sprintf("%016x", xxhash.Sum64String(strings.Join(parts, "|")))
}
