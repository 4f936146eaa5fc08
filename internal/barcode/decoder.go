package barcode

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"log/slog"

	"github.com/disintegration/imaging"

	"github.com/MeKo-Tech/omrscan/internal/utils"
)

// ErrInvalidInput is returned for a nil image or a crop outside the page.
var ErrInvalidInput = errors.New("invalid barcode input")

// Decoder reads the identity symbol from a rectangle of a page.
type Decoder struct {
	backend Backend
	format  Format
	// QuietZone is the white padding in pixels added around the crop.
	QuietZone int
	// Upscale is the factor of the second attempt; values below 2 disable it.
	Upscale int
}

// NewDecoder returns a decoder for format using the default backend.
func NewDecoder(format Format) *Decoder {
	return NewDecoderWithBackend(NewBackend(), format)
}

// NewDecoderWithBackend returns a decoder for format using backend.
func NewDecoderWithBackend(backend Backend, format Format) *Decoder {
	return &Decoder{backend: backend, format: format, QuietZone: 8, Upscale: 2}
}

// Format returns the symbology the decoder searches for.
func (d *Decoder) Format() Format { return d.format }

// Decode returns the text of the symbol inside rect of img, or "" when no
// symbol could be read.
func (d *Decoder) Decode(ctx context.Context, img image.Image, rect image.Rectangle) (string, error) {
	if img == nil {
		return "", fmt.Errorf("%w: nil image", ErrInvalidInput)
	}
	if rect.Intersect(img.Bounds()).Empty() {
		return "", fmt.Errorf("%w: rectangle %v outside page %v", ErrInvalidInput, rect, img.Bounds())
	}

	crop := pad(utils.CropImageRect(img, rect), d.QuietZone)
	attempts := []image.Image{crop}
	if d.Upscale >= 2 {
		b := crop.Bounds()
		attempts = append(attempts, imaging.Resize(crop, b.Dx()*d.Upscale, b.Dy()*d.Upscale, imaging.NearestNeighbor))
	}

	opts := Options{Formats: []Format{d.format}}
	for i, a := range attempts {
		opts.TryHarder = i > 0
		results, err := d.backend.Decode(ctx, a, opts)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		if err != nil {
			slog.Debug("Barcode attempt failed", "attempt", i+1, "format", d.format.String(), "error", err)
			continue
		}
		if len(results) > 0 {
			return results[0].Value, nil
		}
	}
	slog.Debug("Barcode not decoded", "format", d.format.String(), "rect", rect.String())
	return "", nil
}

func pad(img image.Image, margin int) image.Image {
	if margin <= 0 {
		return img
	}
	b := img.Bounds()
	canvas := imaging.New(b.Dx()+2*margin, b.Dy()+2*margin, color.White)
	return imaging.Paste(canvas, img, image.Pt(margin, margin))
}
