package barcode

import (
	"context"
	"errors"
	"fmt"
	"image"
	"strings"
)

// Format represents a barcode symbology.
type Format int

const (
	FormatUnknown Format = iota
	FormatQR
	FormatDataMatrix
)

func (f Format) String() string {
	switch f {
	case FormatQR:
		return "qr"
	case FormatDataMatrix:
		return "datamatrix"
	default:
		return "unknown"
	}
}

// ParseFormat maps a configuration value to a Format.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "qr", "qrcode":
		return FormatQR, nil
	case "datamatrix", "data_matrix", "dm":
		return FormatDataMatrix, nil
	default:
		return FormatUnknown, fmt.Errorf("unsupported barcode format %q", s)
	}
}

// ErrNotFound is returned by backends when no symbol could be read.
var ErrNotFound = errors.New("no barcode found")

// Options controls backend decoding behavior.
type Options struct {
	// Formats constrains the set of symbologies to search.
	Formats []Format

	// TryHarder enables more exhaustive search (slower but more robust).
	TryHarder bool

	// ROI optionally restricts decoding to a sub-rectangle of the image.
	// If zero-sized or out of bounds, backends ignore it.
	ROI image.Rectangle
}

// Point is an integer point in image coordinates.
type Point struct {
	X int
	Y int
}

// Result represents a decoded barcode.
type Result struct {
	Type   Format
	Value  string
	Points []Point          // Finder pattern or corner points if available
	BBox   image.Rectangle // Bounding box derived from Points
}

// Backend is a pluggable barcode decoder implementation.
type Backend interface {
	Decode(ctx context.Context, img image.Image, opts Options) ([]Result, error)
}

// NewBackend returns the default gozxing backend.
func NewBackend() Backend { return &gozxingBackend{} }
