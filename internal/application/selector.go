// Package application contains the application services.
package application

import "github.com/developmentseed/stac-tiler/internal/domain"

// DefaultAssetTypes is the set of raster-like media types iterated by
// default. Auxiliary assets (thumbnails, XML sidecars) fall outside it
// and are skipped unless the caller overrides the filter; they stay
// resolvable by explicit name only if they survive the filters.
var DefaultAssetTypes = toSet([]string{
	"image/tiff; application=geotiff",
	"image/tiff; application=geotiff; profile=cloud-optimized",
	"image/vnd.stac.geotiff; cloud-optimized=true",
	"image/tiff",
	"image/x.geotiff",
	"image/jp2",
	"application/x-hdf5",
	"application/x-hdf",
})

// AssetFilters narrows the item's asset map down to the eligible list.
// Nil sets mean "no constraint"; IncludeTypes defaults to
// DefaultAssetTypes when left nil by the reader's construction path.
type AssetFilters struct {
	Include      map[string]struct{} // Accept only these names
	Exclude      map[string]struct{} // Reject these names
	IncludeTypes map[string]struct{} // Accept only these media types
	ExcludeTypes map[string]struct{} // Reject these media types
}

// SelectAssets returns the eligible asset names in the item's catalog
// order. Each asset is tested against the reject conditions in
// sequence; the first match wins. An empty result is valid.
func SelectAssets(item *domain.Item, f AssetFilters) []string {
	var names []string
	for _, name := range item.AssetNames() {
		asset := item.Assets[name]

		if f.Exclude != nil {
			if _, ok := f.Exclude[name]; ok {
				continue
			}
		}
		if f.ExcludeTypes != nil {
			if _, ok := f.ExcludeTypes[asset.Type]; ok {
				continue
			}
		}
		if f.IncludeTypes != nil {
			if _, ok := f.IncludeTypes[asset.Type]; !ok {
				continue
			}
		}
		if f.Include != nil {
			if _, ok := f.Include[name]; !ok {
				continue
			}
		}

		names = append(names, name)
	}
	return names
}
