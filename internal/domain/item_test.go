package domain

import (
	"errors"
	"testing"
)

const itemJSON = `{
  "type": "Feature",
  "stac_version": "1.0.0",
  "id": "S2A_tile_20170729_19UDP_0",
  "bbox": [23.293255, 31.505183, 24.296462, 32.519867],
  "properties": {"datetime": "2017-07-29T00:00:00Z"},
  "assets": {
    "thumbnail": {"href": "https://example.com/thumb.png", "type": "image/png"},
    "B01": {"href": "https://example.com/B01.tif", "type": "image/tiff"},
    "B02": {"href": "https://example.com/B02.tif", "type": "image/tiff"},
    "metadata": {"href": "https://example.com/md.xml", "type": "application/xml"}
  }
}`

func TestParseItem(t *testing.T) {
	item, err := ParseItem([]byte(itemJSON))
	if err != nil {
		t.Fatalf("ParseItem failed: %v", err)
	}

	if item.ID != "S2A_tile_20170729_19UDP_0" {
		t.Errorf("ID = %q", item.ID)
	}
	if item.BBox.West() != 23.293255 || item.BBox.North() != 32.519867 {
		t.Errorf("BBox = %v", item.BBox)
	}
	if len(item.Assets) != 4 {
		t.Errorf("len(Assets) = %d, want 4", len(item.Assets))
	}

	href, ok := item.Href("B01")
	if !ok || href != "https://example.com/B01.tif" {
		t.Errorf("Href(B01) = %q, %v", href, ok)
	}
	if _, ok := item.Href("B99"); ok {
		t.Error("Href(B99) should not be found")
	}
}

func TestParseItemPreservesAssetOrder(t *testing.T) {
	item, err := ParseItem([]byte(itemJSON))
	if err != nil {
		t.Fatalf("ParseItem failed: %v", err)
	}

	want := []string{"thumbnail", "B01", "B02", "metadata"}
	got := item.AssetNames()
	if len(got) != len(want) {
		t.Fatalf("AssetNames() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("AssetNames()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestParseItemMissingFields(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"missing assets", `{"id": "x", "bbox": [0, 0, 1, 1]}`},
		{"missing bbox", `{"id": "x", "assets": {"B01": {"href": "a", "type": "image/tiff"}}}`},
		{"malformed json", `{"id": `},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseItem([]byte(tt.doc))
			if !errors.Is(err, ErrInvalidItem) {
				t.Errorf("ParseItem error = %v, want ErrInvalidItem", err)
			}
		})
	}
}

func TestBoundsCenter(t *testing.T) {
	b := Bounds{10, 20, 30, 40}
	lon, lat := b.Center()
	if lon != 20 || lat != 30 {
		t.Errorf("Center() = (%v, %v), want (20, 30)", lon, lat)
	}
}
