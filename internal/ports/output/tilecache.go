package output

import (
	"context"
	"time"
)

// TileCache defines the secondary port for caching rendered tiles.
type TileCache interface {
	// Get returns a cached tile and whether it was present and fresh.
	Get(ctx context.Context, key string, z, x, y int) ([]byte, bool, error)

	// Set stores a rendered tile with a time-to-live.
	Set(ctx context.Context, key string, z, x, y int, data []byte, ttl time.Duration) error

	// Prune removes expired tiles and returns how many were dropped.
	Prune(ctx context.Context) (int64, error)

	// Close releases the cache's resources.
	Close() error
}
