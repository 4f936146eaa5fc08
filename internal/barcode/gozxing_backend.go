package barcode

import (
	"context"
	"fmt"
	"image"

	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/datamatrix"
	"github.com/makiuchi-d/gozxing/qrcode"

	"github.com/MeKo-Tech/omrscan/internal/utils"
)

type gozxingBackend struct{}

func (b *gozxingBackend) Decode(ctx context.Context, img image.Image, opts Options) ([]Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !opts.ROI.Empty() && !opts.ROI.Intersect(img.Bounds()).Empty() {
		img = utils.CropImageRect(img, opts.ROI)
	}

	bitmap, err := gozxing.NewBinaryBitmapFromImage(img)
	if err != nil {
		return nil, fmt.Errorf("create binary bitmap: %w", err)
	}

	hints := make(map[gozxing.DecodeHintType]interface{})
	if opts.TryHarder {
		hints[gozxing.DecodeHintType_TRY_HARDER] = true
	}

	formats := opts.Formats
	if len(formats) == 0 {
		formats = []Format{FormatDataMatrix, FormatQR}
	}

	var lastErr error
	for _, f := range formats {
		reader, ok := readerFor(f)
		if !ok {
			continue
		}
		r, err := reader.Decode(bitmap, hints)
		if err != nil {
			lastErr = err
			continue
		}
		points := make([]Point, 0, len(r.GetResultPoints()))
		for _, p := range r.GetResultPoints() {
			points = append(points, Point{X: int(p.GetX()), Y: int(p.GetY())})
		}
		return []Result{{
			Type:   mapFormatFromZXing(r.GetBarcodeFormat()),
			Value:  r.GetText(),
			Points: points,
			BBox:   rectFromPoints(points),
		}}, nil
	}
	if lastErr != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotFound, lastErr)
	}
	return nil, ErrNotFound
}

func readerFor(f Format) (gozxing.Reader, bool) {
	switch f {
	case FormatQR:
		return qrcode.NewQRCodeReader(), true
	case FormatDataMatrix:
		return datamatrix.NewDataMatrixReader(), true
	default:
		return nil, false
	}
}

func mapFormatFromZXing(bf gozxing.BarcodeFormat) Format {
	switch bf {
	case gozxing.BarcodeFormat_QR_CODE:
		return FormatQR
	case gozxing.BarcodeFormat_DATA_MATRIX:
		return FormatDataMatrix
	default:
		return FormatUnknown
	}
}

func rectFromPoints(pts []Point) image.Rectangle {
	if len(pts) == 0 {
		return image.Rectangle{}
	}
	minX, minY := pts[0].X, pts[0].Y
	maxX, maxY := pts[0].X, pts[0].Y
	for _, p := range pts[1:] {
		minX = min(minX, p.X)
		minY = min(minY, p.Y)
		maxX = max(maxX, p.X)
		maxY = max(maxY, p.Y)
	}
	return image.Rect(minX, minY, maxX+1, maxY+1)
}
