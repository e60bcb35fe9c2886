package application

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/developmentseed/stac-tiler/internal/domain"
	"github.com/developmentseed/stac-tiler/internal/ports/output"
)

// ReaderConfig holds construction-time options for a Reader.
type ReaderConfig struct {
	Item *domain.Item // Pre-parsed item document; skips the fetch when set

	TMS              *domain.TileMatrixSet // nil: WebMercatorQuad
	MinZoom, MaxZoom *int                  // nil: the scheme's own bounds

	Include       []string // Accept only these asset names
	Exclude       []string // Reject these asset names
	IncludeTypes  []string // Accept only these media types; nil: DefaultAssetTypes
	ExcludeTypes  []string // Reject these media types
	AllAssetTypes bool     // Disable the default media-type filter entirely

	Concurrency int                     // Fan-out bound; 0: MAX_THREADS env or NumCPU*5
	Evaluator   output.Evaluator        // Required for catalog-level expressions
	Metrics     output.MetricsCollector // nil: NoOpMetrics
	Logger      *slog.Logger            // nil: slog.Default()
}

// ReadRequest carries per-operation parameters. Expression-derived asset
// names override explicit Assets when both are given.
type ReadRequest struct {
	Assets          []string          // Explicit asset names
	Expression      string            // Catalog-level band-math expression
	AssetExpression string            // Per-asset expression, forwarded to each raster read
	TileSize        int               // Tile size in pixels; 0: reader default (256)
	MaxSize         int               // Max output dimension for part/preview
	Extra           map[string]string // Opaque pass-through options
}

// Reader resolves one STAC item into a unified multi-asset raster
// reader. It is created by Open, serves operations while open, and is
// finished with Close; the item and eligible asset list are immutable
// after Open and safe for concurrent operation calls.
type Reader struct {
	item        *domain.Item
	assets      []string
	eligible    map[string]struct{}
	tms         domain.TileMatrixSet
	minZoom     int
	maxZoom     int
	opener      output.RasterOpener
	eval        output.Evaluator
	metrics     output.MetricsCollector
	logger      *slog.Logger
	concurrency int
	closed      atomic.Bool
}

// Open fetches (or adopts) the item document, computes the eligible
// asset list, and returns a ready Reader. The caller must Close it.
func Open(ctx context.Context, location string, fetcher output.ItemFetcher, opener output.RasterOpener, cfg ReaderConfig) (*Reader, error) {
	item := cfg.Item
	if item == nil {
		if fetcher == nil {
			return nil, fmt.Errorf("no fetcher configured and no item supplied")
		}
		fetched, err := fetcher.Fetch(ctx, location)
		if err != nil {
			return nil, err
		}
		item = fetched
	}
	if item.Assets == nil {
		return nil, fmt.Errorf("%w: missing assets", domain.ErrInvalidItem)
	}
	if item.BBox == (domain.Bounds{}) {
		return nil, fmt.Errorf("%w: missing bbox", domain.ErrInvalidItem)
	}

	tms := domain.WebMercatorQuad
	if cfg.TMS != nil {
		tms = *cfg.TMS
	}
	minZoom, maxZoom := tms.MinZoom, tms.MaxZoom
	if cfg.MinZoom != nil {
		minZoom = *cfg.MinZoom
	}
	if cfg.MaxZoom != nil {
		maxZoom = *cfg.MaxZoom
	}

	filters := AssetFilters{
		Include:      toSet(cfg.Include),
		Exclude:      toSet(cfg.Exclude),
		ExcludeTypes: toSet(cfg.ExcludeTypes),
	}
	switch {
	case cfg.AllAssetTypes:
		// no media-type constraint
	case cfg.IncludeTypes != nil:
		filters.IncludeTypes = toSet(cfg.IncludeTypes)
	default:
		filters.IncludeTypes = DefaultAssetTypes
	}

	assets := SelectAssets(item, filters)

	metrics := cfg.Metrics
	if metrics == nil {
		metrics = &output.NoOpMetrics{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := &Reader{
		item:        item,
		assets:      assets,
		eligible:    toSet(assets),
		tms:         tms,
		minZoom:     minZoom,
		maxZoom:     maxZoom,
		opener:      opener,
		eval:        cfg.Evaluator,
		metrics:     metrics,
		logger:      logger,
		concurrency: cfg.Concurrency,
	}
	return r, nil
}

// Close marks the reader closed. The item and selector output are
// dropped with the reader itself; no other resources are held.
func (r *Reader) Close() error {
	r.closed.Store(true)
	return nil
}

// Assets returns the eligible asset names in catalog order.
func (r *Reader) Assets() []string { return r.assets }

// Bounds returns the item's WGS84 bounding box.
func (r *Reader) Bounds() domain.Bounds { return r.item.BBox }

// Item returns the underlying item document.
func (r *Reader) Item() *domain.Item { return r.item }

// MinZoom returns the reader's minimum zoom level.
func (r *Reader) MinZoom() int { return r.minZoom }

// MaxZoom returns the reader's maximum zoom level.
func (r *Reader) MaxZoom() int { return r.maxZoom }

// TMS returns the reader's tiling scheme.
func (r *Reader) TMS() domain.TileMatrixSet { return r.tms }

// Center returns the bbox midpoint plus the minimum zoom.
func (r *Reader) Center() (lon, lat float64, zoom int) {
	lon, lat = r.item.BBox.Center()
	return lon, lat, r.minZoom
}

// resolve validates the requested asset names (explicit or
// expression-derived) against the eligible list and returns them with
// their hrefs, both in request order.
func (r *Reader) resolve(req ReadRequest) (names, hrefs []string, err error) {
	if r.closed.Load() {
		return nil, nil, domain.ErrReaderClosed
	}

	names = req.Assets
	if req.Expression != "" {
		names = ParseExpression(req.Expression, r.assets)
	}
	if len(names) == 0 {
		return nil, nil, domain.ErrNoAssets
	}

	hrefs = make([]string, len(names))
	for i, name := range names {
		if _, ok := r.eligible[name]; !ok {
			return nil, nil, &domain.UnknownAssetError{Name: name}
		}
		href, _ := r.item.Href(name)
		hrefs[i] = href
	}
	return names, hrefs, nil
}

// readEach opens one raster reader per href on a fresh bounded pool and
// collects the results in href order. The reader is closed inside the
// worker on every path.
func readEach[T any](ctx context.Context, r *Reader, operation string, hrefs []string, read func(ctx context.Context, rd output.RasterReader) (T, error)) ([]T, error) {
	r.metrics.ObserveFanoutSize(operation, len(hrefs))

	return fanOut(ctx, hrefs, r.concurrency, func(ctx context.Context, href string) (T, error) {
		var zero T
		start := time.Now()

		rd, err := r.opener.Open(ctx, href, r.tms)
		if err != nil {
			r.metrics.IncAssetReads(operation, false)
			return zero, &domain.ReadError{Href: href, Operation: operation, Err: err}
		}
		defer func() {
			if cerr := rd.Close(); cerr != nil {
				r.logger.Warn("closing raster reader", "href", href, "error", cerr)
			}
		}()

		out, err := read(ctx, rd)
		r.metrics.IncAssetReads(operation, err == nil)
		r.metrics.ObserveAssetReadDuration(operation, time.Since(start))
		if err != nil {
			return zero, &domain.ReadError{Href: href, Operation: operation, Err: err}
		}
		return out, nil
	})
}

func (r *Reader) readOptions(req ReadRequest) output.ReadOptions {
	return output.ReadOptions{
		TileSize:   req.TileSize,
		MaxSize:    req.MaxSize,
		Expression: req.AssetExpression,
		Extra:      req.Extra,
	}
}

// mergeImage stacks the per-asset reads and applies the catalog-level
// expression when one was requested.
func (r *Reader) mergeImage(names []string, parts []*domain.ImageData, expression string) (*domain.ImageData, error) {
	merged, err := stack(parts)
	if err != nil {
		return nil, err
	}
	if expression == "" {
		return merged, nil
	}
	if r.eval == nil {
		return nil, fmt.Errorf("no expression evaluator configured")
	}
	return applyExpression(r.eval, expression, names, merged)
}

// Tile reads one map tile from every resolved asset and merges the
// results.
func (r *Reader) Tile(ctx context.Context, x, y, z int, req ReadRequest) (*domain.ImageData, error) {
	names, hrefs, err := r.resolve(req)
	if err != nil {
		return nil, err
	}

	opts := r.readOptions(req)
	parts, err := readEach(ctx, r, "tile", hrefs, func(ctx context.Context, rd output.RasterReader) (*domain.ImageData, error) {
		return rd.Tile(ctx, x, y, z, opts)
	})
	if err != nil {
		return nil, err
	}
	return r.mergeImage(names, parts, req.Expression)
}

// Part reads a spatial window from every resolved asset and merges the
// results.
func (r *Reader) Part(ctx context.Context, bbox domain.Bounds, req ReadRequest) (*domain.ImageData, error) {
	names, hrefs, err := r.resolve(req)
	if err != nil {
		return nil, err
	}

	opts := r.readOptions(req)
	parts, err := readEach(ctx, r, "part", hrefs, func(ctx context.Context, rd output.RasterReader) (*domain.ImageData, error) {
		return rd.Part(ctx, bbox, opts)
	})
	if err != nil {
		return nil, err
	}
	return r.mergeImage(names, parts, req.Expression)
}

// Preview reads a downsampled overview from every resolved asset and
// merges the results.
func (r *Reader) Preview(ctx context.Context, req ReadRequest) (*domain.ImageData, error) {
	names, hrefs, err := r.resolve(req)
	if err != nil {
		return nil, err
	}

	opts := r.readOptions(req)
	parts, err := readEach(ctx, r, "preview", hrefs, func(ctx context.Context, rd output.RasterReader) (*domain.ImageData, error) {
		return rd.Preview(ctx, opts)
	})
	if err != nil {
		return nil, err
	}
	return r.mergeImage(names, parts, req.Expression)
}

// Point samples every resolved asset at a coordinate. Without an
// expression the result holds one value list per asset, in asset order;
// with an expression, one value list per expression block.
func (r *Reader) Point(ctx context.Context, lon, lat float64, req ReadRequest) ([][]float64, error) {
	names, hrefs, err := r.resolve(req)
	if err != nil {
		return nil, err
	}

	opts := r.readOptions(req)
	values, err := readEach(ctx, r, "point", hrefs, func(ctx context.Context, rd output.RasterReader) ([]float64, error) {
		return rd.Point(ctx, lon, lat, opts)
	})
	if err != nil {
		return nil, err
	}

	if req.Expression == "" {
		return values, nil
	}
	if r.eval == nil {
		return nil, fmt.Errorf("no expression evaluator configured")
	}
	return applyPointExpression(r.eval, req.Expression, names, values)
}

// Stats returns per-asset statistics keyed by asset name. No merge math
// applies.
func (r *Reader) Stats(ctx context.Context, pmin, pmax float64, req ReadRequest) (map[string]map[string]domain.BandStats, error) {
	names, hrefs, err := r.resolve(req)
	if err != nil {
		return nil, err
	}

	opts := r.readOptions(req)
	results, err := readEach(ctx, r, "stats", hrefs, func(ctx context.Context, rd output.RasterReader) (map[string]domain.BandStats, error) {
		return rd.Stats(ctx, pmin, pmax, opts)
	})
	if err != nil {
		return nil, err
	}

	out := make(map[string]map[string]domain.BandStats, len(names))
	for i, name := range names {
		out[name] = results[i]
	}
	return out, nil
}

// Info returns per-asset raster descriptions keyed by asset name.
func (r *Reader) Info(ctx context.Context, req ReadRequest) (map[string]*domain.RasterInfo, error) {
	names, hrefs, err := r.resolve(req)
	if err != nil {
		return nil, err
	}

	results, err := readEach(ctx, r, "info", hrefs, func(ctx context.Context, rd output.RasterReader) (*domain.RasterInfo, error) {
		return rd.Info(ctx)
	})
	if err != nil {
		return nil, err
	}

	out := make(map[string]*domain.RasterInfo, len(names))
	for i, name := range names {
		out[name] = results[i]
	}
	return out, nil
}

// Metadata returns per-asset info plus statistics keyed by asset name.
func (r *Reader) Metadata(ctx context.Context, pmin, pmax float64, req ReadRequest) (map[string]*domain.RasterMetadata, error) {
	names, hrefs, err := r.resolve(req)
	if err != nil {
		return nil, err
	}

	opts := r.readOptions(req)
	results, err := readEach(ctx, r, "metadata", hrefs, func(ctx context.Context, rd output.RasterReader) (*domain.RasterMetadata, error) {
		return rd.Metadata(ctx, pmin, pmax, opts)
	})
	if err != nil {
		return nil, err
	}

	out := make(map[string]*domain.RasterMetadata, len(names))
	for i, name := range names {
		out[name] = results[i]
	}
	return out, nil
}

func toSet(names []string) map[string]struct{} {
	if names == nil {
		return nil
	}
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		set[n] = struct{}{}
	}
	return set
}
