package render

import (
	"bytes"
	"errors"
	"image/png"
	"testing"

	"github.com/developmentseed/stac-tiler/internal/domain"
)

func grayImage(w, h int, values []float64) *domain.ImageData {
	img := &domain.ImageData{
		Bands:  [][]float64{values},
		Width:  w,
		Height: h,
		Mask:   make([]uint8, w*h),
	}
	for i := range img.Mask {
		img.Mask[i] = domain.MaskValid
	}
	return img
}

func TestPNGGrayscale(t *testing.T) {
	img := grayImage(2, 2, []float64{0, 100, 200, 300})

	data, err := PNG(img, Options{Rescale: [2]float64{0, 300}})
	if err != nil {
		t.Fatalf("PNG failed: %v", err)
	}

	decoded, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decoding output: %v", err)
	}
	if decoded.Bounds().Dx() != 2 || decoded.Bounds().Dy() != 2 {
		t.Errorf("bounds = %v, want 2x2", decoded.Bounds())
	}

	// Top-left pixel is the range minimum, bottom-right the maximum.
	_, _, _, a := decoded.At(0, 0).RGBA()
	if a == 0 {
		t.Error("valid pixel should be opaque")
	}
	r, _, _, _ := decoded.At(1, 1).RGBA()
	if r>>8 != 255 {
		t.Errorf("max pixel = %d, want 255", r>>8)
	}
}

func TestPNGMaskBecomesAlpha(t *testing.T) {
	img := grayImage(2, 1, []float64{10, 20})
	img.Mask[1] = domain.MaskInvalid

	data, err := PNG(img, Options{Rescale: [2]float64{0, 100}})
	if err != nil {
		t.Fatalf("PNG failed: %v", err)
	}

	decoded, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decoding output: %v", err)
	}
	_, _, _, a := decoded.At(1, 0).RGBA()
	if a != 0 {
		t.Errorf("masked pixel alpha = %d, want 0", a)
	}
}

func TestPNGRGB(t *testing.T) {
	img := &domain.ImageData{
		Bands: [][]float64{
			{255, 0},
			{0, 255},
			{0, 0},
		},
		Width:  2,
		Height: 1,
		Mask:   []uint8{domain.MaskValid, domain.MaskValid},
	}

	data, err := PNG(img, Options{Rescale: [2]float64{0, 255}})
	if err != nil {
		t.Fatalf("PNG failed: %v", err)
	}

	decoded, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decoding output: %v", err)
	}
	r, g, _, _ := decoded.At(0, 0).RGBA()
	if r>>8 != 255 || g>>8 != 0 {
		t.Errorf("pixel(0,0) = r%d g%d, want r255 g0", r>>8, g>>8)
	}
}

func TestPNGUnsupportedBandCount(t *testing.T) {
	img := &domain.ImageData{
		Bands:  [][]float64{{1}, {2}},
		Width:  1,
		Height: 1,
		Mask:   []uint8{domain.MaskValid},
	}

	_, err := PNG(img, Options{})
	if !errors.Is(err, domain.ErrUnsupported) {
		t.Errorf("err = %v, want ErrUnsupported", err)
	}
}

func TestPNGAutoStretch(t *testing.T) {
	values := make([]float64, 100)
	for i := range values {
		values[i] = float64(i)
	}
	img := grayImage(10, 10, values)

	// No explicit rescale: percentiles drive the stretch.
	data, err := PNG(img, Options{})
	if err != nil {
		t.Fatalf("PNG failed: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("empty output")
	}
}
