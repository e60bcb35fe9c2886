package domain

import (
	"errors"
	"testing"
)

func TestUnknownAssetError(t *testing.T) {
	err := &UnknownAssetError{Name: "B1"}

	got := err.Error()
	if got != "B1 is not a valid asset name" {
		t.Errorf("Error() = %q", got)
	}

	if !errors.Is(err, ErrInvalidInput) {
		t.Error("UnknownAssetError should unwrap to ErrInvalidInput")
	}
}

func TestFetchError(t *testing.T) {
	inner := errors.New("connection refused")
	err := &FetchError{Location: "s3://bucket/item.json", Err: inner}

	if err.Error() == "" {
		t.Error("Error() should not return empty string")
	}
	if !errors.Is(err, inner) {
		t.Error("Unwrap should return the underlying error")
	}
}

func TestReadError(t *testing.T) {
	tests := []struct {
		name string
		err  *ReadError
	}{
		{
			name: "tile read",
			err: &ReadError{
				Href:      "https://example.com/B01.tif",
				Operation: "tile",
				Err:       errors.New("out of bounds"),
			},
		},
		{
			name: "point read",
			err: &ReadError{
				Href:      "https://example.com/B02.tif",
				Operation: "point",
				Err:       errors.New("io error"),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Error() == "" {
				t.Error("Error() should not return empty string")
			}
			if !errors.Is(tt.err, tt.err.Err) {
				t.Error("Unwrap should return the underlying error")
			}
		})
	}
}

func TestSentinelErrors(t *testing.T) {
	if !errors.Is(ErrNoAssets, ErrInvalidInput) {
		t.Error("ErrNoAssets should wrap ErrInvalidInput")
	}
	if !errors.Is(ErrReaderClosed, ErrUnavailable) {
		t.Error("ErrReaderClosed should wrap ErrUnavailable")
	}
	if !errors.Is(ErrItemNotFound, ErrNotFound) {
		t.Error("ErrItemNotFound should wrap ErrNotFound")
	}
	if !errors.Is(ErrInvalidItem, ErrInvalidInput) {
		t.Error("ErrInvalidItem should wrap ErrInvalidInput")
	}
}

func TestConfigError(t *testing.T) {
	err := &ConfigError{Field: "raster.endpoint", Message: "endpoint is required"}
	if err.Error() == "" {
		t.Error("Error() should not return empty string")
	}
	if !errors.Is(err, ErrInvalidInput) {
		t.Error("ConfigError should unwrap to ErrInvalidInput")
	}
}
