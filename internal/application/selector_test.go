package application

import (
	"reflect"
	"testing"
)

func TestSelectAssetsCatalogOrder(t *testing.T) {
	item := mustItem(t, testItemDoc("B04", "B01", "B03", "B02"))

	got := SelectAssets(item, AssetFilters{IncludeTypes: DefaultAssetTypes})
	want := []string{"B04", "B01", "B03", "B02"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("SelectAssets = %v, want %v", got, want)
	}
}

func TestSelectAssetsDefaultTypesSkipAuxiliary(t *testing.T) {
	doc := `{"type":"Feature","stac_version":"1.0.0","id":"test","bbox":[-10,40,10,50],"properties":{},"assets":{
		"thumbnail":{"href":"https://example.com/thumb.png","type":"image/png"},
		"B01":{"href":"https://example.com/B01.tif","type":"image/tiff; application=geotiff; profile=cloud-optimized"},
		"metadata":{"href":"https://example.com/meta.xml","type":"application/xml"},
		"B02":{"href":"https://example.com/B02.jp2","type":"image/jp2"}
	}}`
	item := mustItem(t, doc)

	got := SelectAssets(item, AssetFilters{IncludeTypes: DefaultAssetTypes})
	want := []string{"B01", "B02"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("SelectAssets = %v, want %v", got, want)
	}
}

func TestSelectAssetsFilters(t *testing.T) {
	item := mustItem(t, testItemDoc("B01", "B02", "B03", "B04"))

	tests := []struct {
		name    string
		filters AssetFilters
		want    []string
	}{
		{
			name:    "include subset keeps catalog order",
			filters: AssetFilters{Include: toSet([]string{"B03", "B01"})},
			want:    []string{"B01", "B03"},
		},
		{
			name:    "exclude wins over include",
			filters: AssetFilters{Include: toSet([]string{"B01", "B02"}), Exclude: toSet([]string{"B01"})},
			want:    []string{"B02"},
		},
		{
			name:    "exclude types rejects everything here",
			filters: AssetFilters{ExcludeTypes: toSet([]string{"image/tiff; application=geotiff; profile=cloud-optimized"})},
			want:    nil,
		},
		{
			name:    "no filters is permissive",
			filters: AssetFilters{},
			want:    []string{"B01", "B02", "B03", "B04"},
		},
		{
			name:    "include naming a filtered-out asset yields empty",
			filters: AssetFilters{Include: toSet([]string{"nope"})},
			want:    nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SelectAssets(item, tt.filters)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("SelectAssets = %v, want %v", got, tt.want)
			}
		})
	}
}
