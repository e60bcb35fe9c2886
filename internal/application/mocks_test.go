package application

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/developmentseed/stac-tiler/internal/domain"
	"github.com/developmentseed/stac-tiler/internal/ports/output"
)

// mockFetcher implements output.ItemFetcher and output.ItemInvalidator
// for testing.
type mockFetcher struct {
	items       map[string]*domain.Item
	err         error
	mu          sync.Mutex
	fetches     int
	invalidated []string
}

func (m *mockFetcher) Fetch(_ context.Context, location string) (*domain.Item, error) {
	m.mu.Lock()
	m.fetches++
	m.mu.Unlock()

	if m.err != nil {
		return nil, m.err
	}
	if item, ok := m.items[location]; ok {
		return item, nil
	}
	return nil, &domain.FetchError{Location: location, Err: domain.ErrNotFound}
}

func (m *mockFetcher) Invalidate(location string) {
	m.mu.Lock()
	m.invalidated = append(m.invalidated, location)
	m.mu.Unlock()
}

// mockRasterReader implements output.RasterReader for testing.
type mockRasterReader struct {
	href    string
	image   *domain.ImageData
	point   []float64
	stats   map[string]domain.BandStats
	info    *domain.RasterInfo
	readErr error

	mu     sync.Mutex
	closed bool
}

func (m *mockRasterReader) Tile(_ context.Context, _, _, _ int, _ output.ReadOptions) (*domain.ImageData, error) {
	if m.readErr != nil {
		return nil, m.readErr
	}
	return m.image, nil
}

func (m *mockRasterReader) Part(_ context.Context, _ domain.Bounds, _ output.ReadOptions) (*domain.ImageData, error) {
	if m.readErr != nil {
		return nil, m.readErr
	}
	return m.image, nil
}

func (m *mockRasterReader) Preview(_ context.Context, _ output.ReadOptions) (*domain.ImageData, error) {
	if m.readErr != nil {
		return nil, m.readErr
	}
	return m.image, nil
}

func (m *mockRasterReader) Point(_ context.Context, _, _ float64, _ output.ReadOptions) ([]float64, error) {
	if m.readErr != nil {
		return nil, m.readErr
	}
	return m.point, nil
}

func (m *mockRasterReader) Stats(_ context.Context, _, _ float64, _ output.ReadOptions) (map[string]domain.BandStats, error) {
	if m.readErr != nil {
		return nil, m.readErr
	}
	return m.stats, nil
}

func (m *mockRasterReader) Info(_ context.Context) (*domain.RasterInfo, error) {
	if m.readErr != nil {
		return nil, m.readErr
	}
	return m.info, nil
}

func (m *mockRasterReader) Metadata(_ context.Context, _, _ float64, _ output.ReadOptions) (*domain.RasterMetadata, error) {
	if m.readErr != nil {
		return nil, m.readErr
	}
	return &domain.RasterMetadata{RasterInfo: *m.info, Statistics: m.stats}, nil
}

func (m *mockRasterReader) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return nil
}

func (m *mockRasterReader) isClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// mockOpener implements output.RasterOpener for testing. Readers are
// keyed by href; unknown hrefs get a single-band 2x2 image.
type mockOpener struct {
	readers map[string]*mockRasterReader
	openErr map[string]error

	mu     sync.Mutex
	opened []*mockRasterReader
}

func (m *mockOpener) Open(_ context.Context, href string, _ domain.TileMatrixSet) (output.RasterReader, error) {
	if err, ok := m.openErr[href]; ok {
		return nil, err
	}

	rd, ok := m.readers[href]
	if !ok {
		rd = &mockRasterReader{
			href:  href,
			image: makeImage(1, 2, 2, 1.0),
			point: []float64{1.0},
		}
	}

	m.mu.Lock()
	m.opened = append(m.opened, rd)
	m.mu.Unlock()
	return rd, nil
}

func (m *mockOpener) openedReaders() []*mockRasterReader {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*mockRasterReader(nil), m.opened...)
}

// mockEvaluator implements output.Evaluator. It ignores the block text
// and sums the input vectors, which is enough to observe shapes and
// wiring in tests.
type mockEvaluator struct {
	err error
}

func (m *mockEvaluator) Evaluate(_ string, vars map[string][]float64, n int) ([]float64, error) {
	if m.err != nil {
		return nil, m.err
	}
	out := make([]float64, n)
	for _, vec := range vars {
		for i := 0; i < n; i++ {
			switch len(vec) {
			case 1:
				out[i] += vec[0]
			default:
				out[i] += vec[i]
			}
		}
	}
	return out, nil
}

// makeImage builds a width x height image with the given number of
// bands, every sample set to fill and the full mask valid.
func makeImage(bands, width, height int, fill float64) *domain.ImageData {
	img := &domain.ImageData{
		Bands:  make([][]float64, bands),
		Width:  width,
		Height: height,
		Mask:   make([]uint8, width*height),
	}
	for b := range img.Bands {
		img.Bands[b] = make([]float64, width*height)
		for i := range img.Bands[b] {
			img.Bands[b][i] = fill
		}
	}
	for i := range img.Mask {
		img.Mask[i] = domain.MaskValid
	}
	return img
}

// mustItem parses an item document or fails the test.
func mustItem(t *testing.T, doc string) *domain.Item {
	t.Helper()
	item, err := domain.ParseItem([]byte(doc))
	if err != nil {
		t.Fatalf("ParseItem failed: %v", err)
	}
	return item
}

// testItemDoc builds a minimal item document with the given asset names
// in order, all typed as cloud optimized GeoTIFFs.
func testItemDoc(assets ...string) string {
	doc := `{"type":"Feature","stac_version":"1.0.0","id":"test-item","bbox":[-10,40,10,50],"properties":{"datetime":"2020-01-01T00:00:00Z"},"assets":{`
	for i, name := range assets {
		if i > 0 {
			doc += ","
		}
		doc += fmt.Sprintf(`%q:{"href":"https://example.com/%s.tif","type":"image/tiff; application=geotiff; profile=cloud-optimized"}`, name, name)
	}
	return doc + `}}`
}
