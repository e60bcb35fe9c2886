package domain

// TileMatrixSet describes the tiling scheme used to address (x, y, z)
// tile requests. Tile math itself belongs to the raster reader; this
// type only names the scheme and carries its zoom bounds.
type TileMatrixSet struct {
	ID      string // Scheme identifier, e.g. "WebMercatorQuad"
	MinZoom int
	MaxZoom int
}

// WebMercatorQuad is the default global web-mercator tiling scheme.
var WebMercatorQuad = TileMatrixSet{ID: "WebMercatorQuad", MinZoom: 0, MaxZoom: 24}

// ImageData is a stacked pixel array plus a validity mask. Bands are
// band-major; each band is a row-major Width*Height slice. The mask has
// one entry per pixel: MaskValid or MaskInvalid.
type ImageData struct {
	Bands  [][]float64
	Width  int
	Height int
	Mask   []uint8
}

// Mask encoding.
const (
	MaskValid   uint8 = 255
	MaskInvalid uint8 = 0
)

// BandCount returns the number of bands.
func (d *ImageData) BandCount() int { return len(d.Bands) }

// BandStats holds per-band raster statistics.
type BandStats struct {
	Percentiles [2]float64  `json:"pc"` // Values at the requested pmin/pmax percentiles
	Min         float64     `json:"min"`
	Max         float64     `json:"max"`
	Mean        float64     `json:"mean"`
	StdDev      float64     `json:"std"`
	Histogram   [][]float64 `json:"histogram,omitempty"`
}

// RasterInfo describes a single raster file.
type RasterInfo struct {
	Bounds      Bounds   `json:"bounds"`
	MinZoom     int      `json:"minzoom"`
	MaxZoom     int      `json:"maxzoom"`
	BandCount   int      `json:"band_count"`
	DataType    string   `json:"dtype"`
	ColorInterp []string `json:"colorinterp,omitempty"`
	NoData      *float64 `json:"nodata,omitempty"`
	Overviews   []int    `json:"overviews,omitempty"`
}

// RasterMetadata is info plus statistics, as returned by the raster
// reader's metadata operation.
type RasterMetadata struct {
	RasterInfo
	Statistics map[string]BandStats `json:"statistics"`
}
