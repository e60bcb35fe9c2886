package output

import (
	"context"

	"github.com/developmentseed/stac-tiler/internal/domain"
)

// ReadOptions carries per-call parameters to a single-raster read.
// Extra is an opaque pass-through map forwarded verbatim to the
// underlying reader; this module never inspects it.
type ReadOptions struct {
	TileSize   int               // Output tile size in pixels (tile operation)
	MaxSize    int               // Maximum output dimension (part/preview)
	Expression string            // Per-asset band-math expression, applied by the reader
	Extra      map[string]string // Forwarded untouched
}

// RasterReader is a scoped single-raster reader. One instance reads
// exactly one raster location and must be closed when the read is done;
// Close releases all underlying resources on success and failure alike.
type RasterReader interface {
	// Tile reads one map tile addressed by the reader's tiling scheme.
	Tile(ctx context.Context, x, y, z int, opts ReadOptions) (*domain.ImageData, error)

	// Part reads a spatial window given as a WGS84 bounding box.
	Part(ctx context.Context, bbox domain.Bounds, opts ReadOptions) (*domain.ImageData, error)

	// Preview reads a downsampled overview of the whole raster.
	Preview(ctx context.Context, opts ReadOptions) (*domain.ImageData, error)

	// Point samples the raster at a WGS84 coordinate, one value per band.
	Point(ctx context.Context, lon, lat float64, opts ReadOptions) ([]float64, error)

	// Stats computes per-band statistics between two percentile bounds.
	Stats(ctx context.Context, pmin, pmax float64, opts ReadOptions) (map[string]domain.BandStats, error)

	// Info returns the raster's structural description.
	Info(ctx context.Context) (*domain.RasterInfo, error)

	// Metadata returns info plus statistics.
	Metadata(ctx context.Context, pmin, pmax float64, opts ReadOptions) (*domain.RasterMetadata, error)

	// Close releases the reader's resources.
	Close() error
}

// RasterOpener constructs a RasterReader for one raster location.
type RasterOpener interface {
	Open(ctx context.Context, href string, tms domain.TileMatrixSet) (RasterReader, error)
}
