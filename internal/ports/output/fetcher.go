// Package output defines the secondary/driven ports of the application.
package output

import (
	"context"

	"github.com/developmentseed/stac-tiler/internal/domain"
)

// ItemFetcher defines the secondary port for retrieving STAC item
// documents. A location may be a local filesystem path, an http(s) or
// ftp URL, or an object-store reference (s3://bucket/key,
// az://container/blob).
// Implementations are expected to cache by the exact location string for
// the lifetime of the process and to be safe for concurrent use.
type ItemFetcher interface {
	// Fetch retrieves and parses the item at the given location.
	Fetch(ctx context.Context, location string) (*domain.Item, error)
}

// ItemInvalidator is optionally implemented by fetchers that cache, so
// callers can drop stale entries (e.g. after a local file change).
type ItemInvalidator interface {
	// Invalidate removes a location from the fetch cache.
	Invalidate(location string)
}
