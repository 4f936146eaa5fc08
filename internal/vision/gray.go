// Package vision holds the raster primitives the scanner is built on:
// gray conversion, smoothing, global thresholding and hierarchical contour
// extraction over binary masks.
package vision

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	"github.com/disintegration/imaging"
)

// DefaultSmoothSigma approximates a 5x5 Gaussian kernel.
const DefaultSmoothSigma = 1.1

// ToGray converts img to an 8-bit gray image whose origin is (0,0).
func ToGray(img image.Image) *image.Gray {
	b := img.Bounds()
	if g, ok := img.(*image.Gray); ok && b.Min == (image.Point{}) {
		return g
	}
	dst := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst
}

// Smooth blurs gray with a Gaussian of the given sigma. A non-positive
// sigma returns a copy.
func Smooth(gray *image.Gray, sigma float64) *image.Gray {
	if sigma <= 0 {
		dst := image.NewGray(gray.Bounds())
		copy(dst.Pix, gray.Pix)
		return dst
	}
	return ToGray(imaging.Blur(gray, sigma))
}

// MeanInDisc returns the mean gray value of the pixels within radius of
// center. Pixels outside the image are ignored; an empty sample reads as
// white.
func MeanInDisc(gray *image.Gray, center image.Point, radius int) float64 {
	if radius < 0 {
		return 255
	}
	bounds := gray.Bounds()
	r2 := radius * radius
	var sum, n int
	for dy := -radius; dy <= radius; dy++ {
		for dx := -radius; dx <= radius; dx++ {
			if dx*dx+dy*dy > r2 {
				continue
			}
			p := image.Pt(center.X+dx, center.Y+dy)
			if !p.In(bounds) {
				continue
			}
			sum += int(gray.GrayAt(p.X, p.Y).Y)
			n++
		}
	}
	if n == 0 {
		return 255
	}
	return float64(sum) / float64(n)
}

// Bilinear samples gray at a fractional position. Samples falling outside
// the image return fill.
func Bilinear(gray *image.Gray, x, y float64, fill uint8) uint8 {
	b := gray.Bounds()
	if x < float64(b.Min.X) || y < float64(b.Min.Y) || x > float64(b.Max.X-1) || y > float64(b.Max.Y-1) {
		return fill
	}
	x0 := int(math.Floor(x))
	y0 := int(math.Floor(y))
	x1 := min(x0+1, b.Max.X-1)
	y1 := min(y0+1, b.Max.Y-1)
	fx := x - float64(x0)
	fy := y - float64(y0)

	p00 := float64(gray.GrayAt(x0, y0).Y)
	p10 := float64(gray.GrayAt(x1, y0).Y)
	p01 := float64(gray.GrayAt(x0, y1).Y)
	p11 := float64(gray.GrayAt(x1, y1).Y)

	top := p00*(1-fx) + p10*fx
	bot := p01*(1-fx) + p11*fx
	v := top*(1-fy) + bot*fy
	return uint8(math.Max(0, math.Min(255, math.Round(v))))
}

// White returns a w x h gray image filled with white.
func White(w, h int) *image.Gray {
	g := image.NewGray(image.Rect(0, 0, w, h))
	draw.Draw(g, g.Bounds(), image.NewUniform(color.Gray{Y: 255}), image.Point{}, draw.Src)
	return g
}
