// Package raster provides the raster backend adapter. Pixel access is
// delegated to a single-raster tiler sidecar (a dynamic tiling service
// exposing per-COG endpoints) that returns numeric arrays as JSON.
package raster

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/developmentseed/stac-tiler/internal/domain"
	"github.com/developmentseed/stac-tiler/internal/ports/output"
)

// Config holds raster backend configuration.
type Config struct {
	Endpoint string        // Base URL of the sidecar, e.g. http://localhost:8080
	Timeout  time.Duration // Per-request timeout
}

// RemoteOpener implements output.RasterOpener against a tiler sidecar.
type RemoteOpener struct {
	endpoint string
	client   *http.Client
}

// NewRemoteOpener creates a new sidecar-backed opener.
func NewRemoteOpener(cfg Config) *RemoteOpener {
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}

	return &RemoteOpener{
		endpoint: cfg.Endpoint,
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// Open returns a reader scoped to one raster href. The sidecar is
// stateless, so Open never touches the network and Close is a no-op.
func (o *RemoteOpener) Open(_ context.Context, href string, tms domain.TileMatrixSet) (output.RasterReader, error) {
	if href == "" {
		return nil, fmt.Errorf("%w: empty raster href", domain.ErrInvalidInput)
	}
	return &remoteReader{
		endpoint: o.endpoint,
		client:   o.client,
		href:     href,
		tms:      tms,
	}, nil
}

type remoteReader struct {
	endpoint string
	client   *http.Client
	href     string
	tms      domain.TileMatrixSet
}

// imagePayload is the sidecar's numeric image representation.
type imagePayload struct {
	Bands  [][]float64 `json:"bands"`
	Width  int         `json:"width"`
	Height int         `json:"height"`
	Mask   []uint8     `json:"mask"`
}

func (p *imagePayload) toDomain() *domain.ImageData {
	return &domain.ImageData{
		Bands:  p.Bands,
		Width:  p.Width,
		Height: p.Height,
		Mask:   p.Mask,
	}
}

func (r *remoteReader) Tile(ctx context.Context, x, y, z int, opts output.ReadOptions) (*domain.ImageData, error) {
	path := fmt.Sprintf("/tiles/%s/%d/%d/%d", r.tms.ID, z, x, y)

	q := r.query(opts)
	if opts.TileSize > 0 {
		q.Set("tilesize", strconv.Itoa(opts.TileSize))
	}

	var payload imagePayload
	if err := r.get(ctx, path, q, &payload); err != nil {
		return nil, err
	}
	return payload.toDomain(), nil
}

func (r *remoteReader) Part(ctx context.Context, bbox domain.Bounds, opts output.ReadOptions) (*domain.ImageData, error) {
	path := fmt.Sprintf("/bbox/%g,%g,%g,%g", bbox.West(), bbox.South(), bbox.East(), bbox.North())

	q := r.query(opts)
	if opts.MaxSize > 0 {
		q.Set("max_size", strconv.Itoa(opts.MaxSize))
	}

	var payload imagePayload
	if err := r.get(ctx, path, q, &payload); err != nil {
		return nil, err
	}
	return payload.toDomain(), nil
}

func (r *remoteReader) Preview(ctx context.Context, opts output.ReadOptions) (*domain.ImageData, error) {
	q := r.query(opts)
	if opts.MaxSize > 0 {
		q.Set("max_size", strconv.Itoa(opts.MaxSize))
	}

	var payload imagePayload
	if err := r.get(ctx, "/preview", q, &payload); err != nil {
		return nil, err
	}
	return payload.toDomain(), nil
}

func (r *remoteReader) Point(ctx context.Context, lon, lat float64, opts output.ReadOptions) ([]float64, error) {
	path := fmt.Sprintf("/point/%g,%g", lon, lat)

	var payload struct {
		Values []float64 `json:"values"`
	}
	if err := r.get(ctx, path, r.query(opts), &payload); err != nil {
		return nil, err
	}
	return payload.Values, nil
}

func (r *remoteReader) Stats(ctx context.Context, pmin, pmax float64, opts output.ReadOptions) (map[string]domain.BandStats, error) {
	q := r.query(opts)
	q.Set("pmin", strconv.FormatFloat(pmin, 'g', -1, 64))
	q.Set("pmax", strconv.FormatFloat(pmax, 'g', -1, 64))

	var payload map[string]domain.BandStats
	if err := r.get(ctx, "/statistics", q, &payload); err != nil {
		return nil, err
	}
	return payload, nil
}

func (r *remoteReader) Info(ctx context.Context) (*domain.RasterInfo, error) {
	var payload domain.RasterInfo
	if err := r.get(ctx, "/info", r.query(output.ReadOptions{}), &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

func (r *remoteReader) Metadata(ctx context.Context, pmin, pmax float64, opts output.ReadOptions) (*domain.RasterMetadata, error) {
	q := r.query(opts)
	q.Set("pmin", strconv.FormatFloat(pmin, 'g', -1, 64))
	q.Set("pmax", strconv.FormatFloat(pmax, 'g', -1, 64))

	var payload domain.RasterMetadata
	if err := r.get(ctx, "/metadata", q, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

func (r *remoteReader) Close() error { return nil }

// query builds the parameter set shared by every endpoint.
func (r *remoteReader) query(opts output.ReadOptions) url.Values {
	q := url.Values{}
	q.Set("url", r.href)
	if opts.Expression != "" {
		q.Set("expression", opts.Expression)
	}
	for k, v := range opts.Extra {
		q.Set(k, v)
	}
	return q
}

func (r *remoteReader) get(ctx context.Context, path string, q url.Values, out any) error {
	u := r.endpoint + path + "?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("raster backend: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %s", domain.ErrNotFound, r.href)
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("raster backend returned %d: %s", resp.StatusCode, body)
	}

	return json.NewDecoder(resp.Body).Decode(out)
}
