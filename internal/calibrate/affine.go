package calibrate

import (
	"image"
	"log/slog"
	"math"

	"github.com/MeKo-Tech/omrscan/internal/utils"
	"github.com/MeKo-Tech/omrscan/internal/vision"
)

// Affine maps (x, y) to (A·x + B·y + C, D·x + E·y + F).
type Affine [6]float64

// Identity is the identity map.
func Identity() Affine { return Affine{1, 0, 0, 0, 1, 0} }

// Apply maps p.
func (a Affine) Apply(p utils.Point) utils.Point {
	return utils.Point{
		X: a[0]*p.X + a[1]*p.Y + a[2],
		Y: a[3]*p.X + a[4]*p.Y + a[5],
	}
}

// Invert returns the inverse map; ok is false for singular maps.
func (a Affine) Invert() (Affine, bool) {
	det := a[0]*a[4] - a[1]*a[3]
	if math.Abs(det) < 1e-12 {
		return Affine{}, false
	}
	ia := a[4] / det
	ib := -a[1] / det
	id := -a[3] / det
	ie := a[0] / det
	return Affine{
		ia, ib, -(ia*a[2] + ib*a[5]),
		id, ie, -(id*a[2] + ie*a[5]),
	}, true
}

// subsets are the marker triples each affine estimate is fitted on, as
// indices into Markers.Points: (HL,HR,FL), (HL,HR,FR), (HL,FL,FR), (FR,HR,FL).
var subsets = [4][3]int{{0, 1, 2}, {0, 1, 3}, {0, 2, 3}, {3, 1, 2}}

// FitTransform estimates the map from observed page markers onto the
// canonical markers as the element-wise mean of four three-point affine
// fits. Degenerate triples are skipped; with none left the identity is
// returned.
func FitTransform(observed, canonical Markers) Affine {
	src := observed.Points()
	dst := canonical.Points()
	var sum Affine
	n := 0
	for _, s := range subsets {
		m, ok := affineFrom3(
			[3]utils.Point{src[s[0]], src[s[1]], src[s[2]]},
			[3]utils.Point{dst[s[0]], dst[s[1]], dst[s[2]]},
		)
		if !ok {
			continue
		}
		for i := range m {
			sum[i] += m[i]
		}
		n++
	}
	if n == 0 {
		slog.Warn("All marker triples are degenerate, page is not aligned")
		return Identity()
	}
	for i := range sum {
		sum[i] /= float64(n)
	}
	return sum
}

// affineFrom3 solves the exact affine map p[i] -> q[i].
func affineFrom3(p, q [3]utils.Point) (Affine, bool) {
	var m [3][3]float64
	for i := range 3 {
		m[i] = [3]float64{p[i].X, p[i].Y, 1}
	}
	// collinear sources make the system singular
	area := (p[1].X-p[0].X)*(p[2].Y-p[0].Y) - (p[1].Y-p[0].Y)*(p[2].X-p[0].X)
	span := math.Max(utils.Distance(p[0], p[1]), math.Max(utils.Distance(p[0], p[2]), utils.Distance(p[1], p[2])))
	if span == 0 || math.Abs(area) < 1e-9*span*span {
		return Affine{}, false
	}
	xs, ok := solve3(m, [3]float64{q[0].X, q[1].X, q[2].X})
	if !ok {
		return Affine{}, false
	}
	ys, ok := solve3(m, [3]float64{q[0].Y, q[1].Y, q[2].Y})
	if !ok {
		return Affine{}, false
	}
	return Affine{xs[0], xs[1], xs[2], ys[0], ys[1], ys[2]}, true
}

// solve3 runs Gauss-Jordan elimination with partial pivoting.
func solve3(a [3][3]float64, b [3]float64) ([3]float64, bool) {
	for col := range 3 {
		pivot := col
		for r := col + 1; r < 3; r++ {
			if math.Abs(a[r][col]) > math.Abs(a[pivot][col]) {
				pivot = r
			}
		}
		if a[pivot][col] == 0 {
			return [3]float64{}, false
		}
		a[col], a[pivot] = a[pivot], a[col]
		b[col], b[pivot] = b[pivot], b[col]

		div := a[col][col]
		for c := col; c < 3; c++ {
			a[col][c] /= div
		}
		b[col] /= div

		for r := range 3 {
			if r == col || a[r][col] == 0 {
				continue
			}
			f := a[r][col]
			for c := col; c < 3; c++ {
				a[r][c] -= f * a[col][c]
			}
			b[r] -= f * b[col]
		}
	}
	return b, true
}

// Warp renders gray through the forward map a into a w x h image, sampling
// the source bilinearly at the inverse-mapped position of every output
// pixel. Pixels mapped from outside the source are white.
func Warp(gray *image.Gray, a Affine, w, h int) *image.Gray {
	inv, ok := a.Invert()
	if !ok {
		slog.Warn("Singular alignment map, using identity")
		inv = Identity()
	}
	dst := image.NewGray(image.Rect(0, 0, w, h))
	for y := range h {
		row := dst.Pix[y*dst.Stride:]
		fy := float64(y)
		for x := range w {
			fx := float64(x)
			sx := inv[0]*fx + inv[1]*fy + inv[2]
			sy := inv[3]*fx + inv[4]*fy + inv[5]
			row[x] = vision.Bilinear(gray, sx, sy, 255)
		}
	}
	return dst
}

// Align locates the markers of gray and warps it onto the canonical frame
// of size w x h described by canonical.
func Align(gray *image.Gray, canonical Markers, w, h int, p Params) (*image.Gray, Markers, Affine) {
	observed := LocateMarkers(gray, p)
	m := FitTransform(observed, canonical)
	return Warp(gray, m, w, h), observed, m
}
