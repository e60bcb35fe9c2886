// Package domain contains the core types of the STAC tiler.
package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Bounds is a WGS84 bounding box: west, south, east, north.
type Bounds [4]float64

// West returns the western edge.
func (b Bounds) West() float64 { return b[0] }

// South returns the southern edge.
func (b Bounds) South() float64 { return b[1] }

// East returns the eastern edge.
func (b Bounds) East() float64 { return b[2] }

// North returns the northern edge.
func (b Bounds) North() float64 { return b[3] }

// Center returns the midpoint of the box.
func (b Bounds) Center() (lon, lat float64) {
	return (b[0] + b[2]) / 2, (b[1] + b[3]) / 2
}

// Asset is one raster file reference within a STAC item.
type Asset struct {
	Href  string `json:"href"`            // Resolvable location (path, URL, s3://, az://)
	Type  string `json:"type"`            // Declared media type
	Title string `json:"title,omitempty"` // Display title
}

// Item is a STAC item: a shared spatial extent plus a set of named
// raster assets. The assets map in the source JSON is an ordered
// object; that order is preserved in AssetNames and is the catalog
// order asset selection must respect.
type Item struct {
	ID          string           `json:"id"`
	Collection  string           `json:"collection,omitempty"`
	StacVersion string           `json:"stac_version,omitempty"`
	BBox        Bounds           `json:"bbox"`
	Properties  json.RawMessage  `json:"properties,omitempty"`
	Assets      map[string]Asset `json:"assets"`

	assetNames []string
}

// AssetNames returns asset names in the item's original catalog order.
func (i *Item) AssetNames() []string {
	return i.assetNames
}

// Href returns the storage location of a named asset.
func (i *Item) Href(name string) (string, bool) {
	a, ok := i.Assets[name]
	if !ok {
		return "", false
	}
	return a.Href, true
}

// ParseItem decodes a STAC item document and validates that the fields
// the reader depends on are present.
func ParseItem(doc []byte) (*Item, error) {
	var item Item
	if err := json.Unmarshal(doc, &item); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidItem, err)
	}

	if item.Assets == nil {
		return nil, fmt.Errorf("%w: missing assets", ErrInvalidItem)
	}
	if item.BBox == (Bounds{}) {
		return nil, fmt.Errorf("%w: missing bbox", ErrInvalidItem)
	}

	names, err := assetOrder(doc)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidItem, err)
	}
	item.assetNames = names

	return &item, nil
}

// assetOrder extracts the keys of the top-level "assets" object in
// document order. encoding/json maps lose ordering, so the object is
// re-walked with a token decoder.
func assetOrder(doc []byte) ([]string, error) {
	dec := json.NewDecoder(bytes.NewReader(doc))

	// Scan the top-level object for the "assets" key.
	if _, err := dec.Token(); err != nil { // opening {
		return nil, err
	}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, _ := keyTok.(string)
		if key != "assets" {
			// Skip this key's value entirely.
			var skip json.RawMessage
			if err := dec.Decode(&skip); err != nil {
				return nil, err
			}
			continue
		}

		if _, err := dec.Token(); err != nil { // assets opening {
			return nil, err
		}
		var names []string
		for dec.More() {
			nameTok, err := dec.Token()
			if err != nil {
				return nil, err
			}
			name, _ := nameTok.(string)
			names = append(names, name)

			var skip json.RawMessage
			if err := dec.Decode(&skip); err != nil {
				return nil, err
			}
		}
		return names, nil
	}

	return nil, fmt.Errorf("assets object not found")
}
