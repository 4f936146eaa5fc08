// Package calibrate locates the two printed reference rules of a sheet and
// maps a scanned page onto the canonical frame of the blank form.
package calibrate

import (
	"fmt"
	"image"
	"log/slog"

	"github.com/MeKo-Tech/omrscan/internal/utils"
	"github.com/MeKo-Tech/omrscan/internal/vision"
)

// Params tunes marker detection.
type Params struct {
	// SmoothSigma is the Gaussian sigma applied before thresholding.
	SmoothSigma float64
	// MinWidthRatio is the minimum rule width relative to the page width.
	MinWidthRatio float64
	// MaxHeightRatio is the maximum rule height relative to the page width.
	MaxHeightRatio float64
}

// DefaultParams returns the detection parameters used for printed forms.
func DefaultParams() Params {
	return Params{
		SmoothSigma:    vision.DefaultSmoothSigma,
		MinWidthRatio:  0.5,
		MaxHeightRatio: 0.1,
	}
}

// Rule is a horizontal reference rule given by its two upper corners.
type Rule struct {
	Left  utils.Point
	Right utils.Point
}

// Markers are the head and foot rules of a page.
type Markers struct {
	Head Rule
	Foot Rule
	// Rules is the number of rule-shaped contours found.
	Rules int
}

func (m Markers) String() string {
	return fmt.Sprintf("head (%.2f,%.2f)-(%.2f,%.2f) foot (%.2f,%.2f)-(%.2f,%.2f)",
		m.Head.Left.X, m.Head.Left.Y, m.Head.Right.X, m.Head.Right.Y,
		m.Foot.Left.X, m.Foot.Left.Y, m.Foot.Right.X, m.Foot.Right.Y)
}

// Points returns head-left, head-right, foot-left, foot-right.
func (m Markers) Points() [4]utils.Point {
	return [4]utils.Point{m.Head.Left, m.Head.Right, m.Foot.Left, m.Foot.Right}
}

// EdgeMarkers are the fallback markers of a w x h page: its top and bottom
// edges.
func EdgeMarkers(w, h int) Markers {
	return Markers{
		Head: Rule{Left: utils.Point{X: 0, Y: 0}, Right: utils.Point{X: float64(w), Y: 0}},
		Foot: Rule{Left: utils.Point{X: 0, Y: float64(h)}, Right: utils.Point{X: float64(w), Y: float64(h)}},
	}
}

// LocateMarkers finds the head (topmost) and foot (bottommost) rules of the
// page. A page without rules yields EdgeMarkers, never an error.
func LocateMarkers(gray *image.Gray, p Params) Markers {
	b := gray.Bounds()
	w, h := b.Dx(), b.Dy()
	mask, _ := vision.BinarizeOtsu(vision.Smooth(gray, p.SmoothSigma))
	set := vision.FindContours(mask)

	var rules []Rule
	for _, i := range set.Top() {
		c := &set.Contours[i]
		if !isRule(c.Bounds, w, p) {
			continue
		}
		rules = append(rules, upperCorners(utils.MinimumAreaRectangle(c.Points)))
	}

	m := EdgeMarkers(w, h)
	// extrema start at the opposite edges so the first rule always wins
	headY, footY := float64(h), 0.0
	for _, r := range rules {
		if r.Left.X > r.Right.X {
			r.Left, r.Right = r.Right, r.Left
		}
		if r.Left.Y <= headY {
			m.Head = r
			headY = r.Left.Y
		}
		if r.Left.Y >= footY {
			m.Foot = r
			footY = r.Left.Y
		}
	}
	m.Rules = len(rules)
	if m.Rules == 0 {
		slog.Warn("No reference rules found, using page edges", "width", w, "height", h)
	} else {
		slog.Debug("Markers located", "rules", m.Rules, "markers", m.String())
	}
	return m
}

func isRule(r image.Rectangle, pageWidth int, p Params) bool {
	return float64(r.Dx()) > p.MinWidthRatio*float64(pageWidth) &&
		float64(r.Dy()) < p.MaxHeightRatio*float64(pageWidth)
}

// upperCorners picks the upper-left (min x+y) and upper-right (max x-y)
// corners of a rectangle.
func upperCorners(rect []utils.Point) Rule {
	if len(rect) == 0 {
		return Rule{}
	}
	ul, ur := rect[0], rect[0]
	for _, p := range rect[1:] {
		if p.X+p.Y < ul.X+ul.Y {
			ul = p
		}
		if p.X-p.Y > ur.X-ur.Y {
			ur = p
		}
	}
	return Rule{Left: ul, Right: ur}
}
