// Package render turns merged pixel arrays into images.
package render

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"math"

	"github.com/montanaflynn/stats"

	"github.com/developmentseed/stac-tiler/internal/domain"
)

// Options controls the float-to-byte conversion.
type Options struct {
	// Rescale maps [min, max] to [0, 255]. When Min == Max the range is
	// derived from the data with a percentile stretch.
	Rescale [2]float64

	// PMin and PMax are the stretch percentiles; zero values default to
	// 2 and 98.
	PMin, PMax float64
}

// PNG encodes a merged image as PNG. One band renders as grayscale,
// three as RGB; the mask becomes the alpha channel either way.
func PNG(img *domain.ImageData, opts Options) ([]byte, error) {
	if img.BandCount() != 1 && img.BandCount() != 3 {
		return nil, fmt.Errorf("%w: cannot render %d bands as PNG", domain.ErrUnsupported, img.BandCount())
	}
	if len(img.Mask) != img.Width*img.Height {
		return nil, fmt.Errorf("%w: mask length %d does not match %dx%d", domain.ErrInvalidInput, len(img.Mask), img.Width, img.Height)
	}

	out := image.NewNRGBA(image.Rect(0, 0, img.Width, img.Height))

	scaled := make([][]uint8, img.BandCount())
	for b, band := range img.Bands {
		lo, hi, err := rescaleRange(band, img.Mask, opts)
		if err != nil {
			return nil, err
		}
		scaled[b] = scaleBand(band, lo, hi)
	}

	for i := 0; i < img.Width*img.Height; i++ {
		o := i * 4
		if img.BandCount() == 1 {
			v := scaled[0][i]
			out.Pix[o], out.Pix[o+1], out.Pix[o+2] = v, v, v
		} else {
			out.Pix[o], out.Pix[o+1], out.Pix[o+2] = scaled[0][i], scaled[1][i], scaled[2][i]
		}
		out.Pix[o+3] = img.Mask[i]
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, out); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// rescaleRange returns the stretch bounds for one band: the explicit
// range when configured, otherwise percentiles of the valid pixels.
func rescaleRange(band []float64, mask []uint8, opts Options) (lo, hi float64, err error) {
	if opts.Rescale[0] != opts.Rescale[1] {
		return opts.Rescale[0], opts.Rescale[1], nil
	}

	pmin, pmax := opts.PMin, opts.PMax
	if pmin == 0 && pmax == 0 {
		pmin, pmax = 2, 98
	}

	valid := make([]float64, 0, len(band))
	for i, v := range band {
		if mask[i] == domain.MaskInvalid || math.IsNaN(v) {
			continue
		}
		valid = append(valid, v)
	}
	if len(valid) == 0 {
		return 0, 1, nil
	}

	lo, err = stats.Percentile(valid, pmin)
	if err != nil {
		return 0, 0, err
	}
	hi, err = stats.Percentile(valid, pmax)
	if err != nil {
		return 0, 0, err
	}
	if lo == hi {
		hi = lo + 1
	}
	return lo, hi, nil
}

func scaleBand(band []float64, lo, hi float64) []uint8 {
	out := make([]uint8, len(band))
	span := hi - lo
	for i, v := range band {
		switch {
		case math.IsNaN(v), v <= lo:
			out[i] = 0
		case v >= hi:
			out[i] = 255
		default:
			out[i] = uint8((v - lo) / span * 255)
		}
	}
	return out
}
