package application

import (
	"fmt"
	"math"

	"github.com/developmentseed/stac-tiler/internal/domain"
	"github.com/developmentseed/stac-tiler/internal/ports/output"
)

// stack concatenates per-asset pixel arrays along the band axis in
// input order and combines their masks with a logical AND. Every part
// must share the same spatial dimensions.
func stack(parts []*domain.ImageData) (*domain.ImageData, error) {
	if len(parts) == 0 {
		return nil, fmt.Errorf("nothing to merge")
	}

	w, h := parts[0].Width, parts[0].Height
	merged := &domain.ImageData{Width: w, Height: h}

	for _, p := range parts {
		if p.Width != w || p.Height != h {
			return nil, fmt.Errorf("asset dimensions %dx%d do not match %dx%d", p.Width, p.Height, w, h)
		}
		merged.Bands = append(merged.Bands, p.Bands...)
	}

	merged.Mask = make([]uint8, w*h)
	for i := range merged.Mask {
		merged.Mask[i] = domain.MaskValid
	}
	for _, p := range parts {
		for i, m := range p.Mask {
			if m == domain.MaskInvalid {
				merged.Mask[i] = domain.MaskInvalid
			}
		}
	}

	return merged, nil
}

// applyExpression replaces the raw band stack with one output band per
// comma-separated expression block. Bands are bound to the requested
// asset names positionally: names[i] refers to stacked band i. The mask
// is the stack's mask, untouched by the expression.
func applyExpression(eval output.Evaluator, expression string, names []string, stacked *domain.ImageData) (*domain.ImageData, error) {
	n := stacked.Width * stacked.Height
	vars := bindBands(names, stacked.Bands)

	var bands [][]float64
	for _, block := range splitBlocks(expression) {
		out, err := eval.Evaluate(block, vars, n)
		if err != nil {
			return nil, fmt.Errorf("evaluating %q: %w", block, err)
		}
		bands = append(bands, finite(out))
	}

	return &domain.ImageData{
		Bands:  bands,
		Width:  stacked.Width,
		Height: stacked.Height,
		Mask:   stacked.Mask,
	}, nil
}

// applyPointExpression is the point variant: each name is bound to its
// own asset's value list rather than to a band of a 2-D stack.
func applyPointExpression(eval output.Evaluator, expression string, names []string, values [][]float64) ([][]float64, error) {
	n := 0
	for _, v := range values {
		if len(v) > n {
			n = len(v)
		}
	}
	vars := bindBands(names, values)

	var out [][]float64
	for _, block := range splitBlocks(expression) {
		res, err := eval.Evaluate(block, vars, n)
		if err != nil {
			return nil, fmt.Errorf("evaluating %q: %w", block, err)
		}
		out = append(out, finite(res))
	}
	return out, nil
}

// bindBands zips names with vectors positionally; excess vectors stay
// unbound, mirroring the reference behavior when an asset contributes
// more than one band.
func bindBands(names []string, vectors [][]float64) map[string][]float64 {
	vars := make(map[string][]float64, len(names))
	for i, name := range names {
		if i >= len(vectors) {
			break
		}
		vars[name] = vectors[i]
	}
	return vars
}

// finite replaces NaN and infinities with zero, in place.
func finite(v []float64) []float64 {
	for i, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			v[i] = 0
		}
	}
	return v
}
