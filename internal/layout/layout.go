// Package layout derives the canonical pixel geometry of a form: where every
// bubble lies on the blank reference rendering and which blob sizes count as
// marks.
package layout

import (
	"errors"
	"fmt"
	"image"
	"log/slog"
	"math"

	"github.com/MeKo-Tech/omrscan/internal/calibrate"
	"github.com/MeKo-Tech/omrscan/internal/labels"
	"github.com/MeKo-Tech/omrscan/internal/utils"
)

// BarcodeSizeMM is the printed side of the identity barcode.
const BarcodeSizeMM = 25.4 / 1.8

// Params holds the ratios the layout is derived with.
type Params struct {
	// AnchorOffset shifts label positions by this fraction of the bubble
	// size to reach the bubble centre.
	AnchorOffset   float64
	MinAreaRatio   float64
	MaxAreaRatio   float64
	MinRadiusRatio float64
	MaxRadiusRatio float64
	// BarcodeOffsetMM separates the barcode from the head rule's right end.
	BarcodeOffsetMM float64
	BarcodeSizeMM   float64
	// BarcodeMargin enlarges the barcode crop.
	BarcodeMargin float64
}

// DefaultParams returns the ratios of the printed forms.
func DefaultParams() Params {
	return Params{
		AnchorOffset:    0.72,
		MinAreaRatio:    1.0,
		MaxAreaRatio:    2.2,
		MinRadiusRatio:  0.8,
		MaxRadiusRatio:  1.8,
		BarcodeOffsetMM: 1.0,
		BarcodeSizeMM:   BarcodeSizeMM,
		BarcodeMargin:   1.02,
	}
}

// Validate checks the ratio ordering.
func (p Params) Validate() error {
	if p.MinAreaRatio <= 0 || p.MaxAreaRatio <= p.MinAreaRatio {
		return fmt.Errorf("area ratios must satisfy 0 < min < max, got %g and %g", p.MinAreaRatio, p.MaxAreaRatio)
	}
	if p.MinRadiusRatio <= 0 || p.MaxRadiusRatio <= p.MinRadiusRatio {
		return fmt.Errorf("radius ratios must satisfy 0 < min < max, got %g and %g", p.MinRadiusRatio, p.MaxRadiusRatio)
	}
	if p.BarcodeSizeMM <= 0 || p.BarcodeMargin <= 0 {
		return errors.New("barcode size and margin must be positive")
	}
	return nil
}

// Label is a bubble placed on the canonical page.
type Label struct {
	Group  string
	Key    string
	Index  int
	Value  string
	Center utils.Point
}

// Field describes the logical fields of a group.
type Field struct {
	Base  int
	Count int
}

// Layout is the immutable per-session geometry.
type Layout struct {
	Width  int
	Height int
	ScaleX float64
	ScaleY float64

	Labels []Label
	Fields map[string]Field

	BubbleRadius float64
	MinArea      float64
	MaxArea      float64
	MinRadius    float64
	MaxRadius    float64

	Barcode image.Rectangle
	Markers calibrate.Markers
	// BandTop and BandBottom bound the answer area vertically.
	BandTop    float64
	BandBottom float64
}

// New places every label of db on a canonical page of w x h pixels whose
// reference rules are markers.
func New(db *labels.Database, w, h int, markers calibrate.Markers, p Params) (*Layout, error) {
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("invalid reference size %dx%d", w, h)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	head := db.Head
	l := &Layout{
		Width:   w,
		Height:  h,
		ScaleX:  float64(w) / head.PaperWidth,
		ScaleY:  float64(h) / head.PaperHeight,
		Fields:  make(map[string]Field, len(db.Groups)),
		Markers: markers,
	}
	for _, g := range db.Groups {
		l.Fields[g.Name] = Field{Base: g.Base, Count: g.Count}
		for _, e := range g.Entries {
			l.Labels = append(l.Labels, Label{
				Group: g.Name,
				Key:   e.Key,
				Index: e.Index,
				Value: e.Value,
				Center: utils.Point{
					X: (e.X - head.BubbleWidth*p.AnchorOffset) * l.ScaleX,
					Y: (head.PaperHeight - e.Y - head.BubbleHeight*p.AnchorOffset) * l.ScaleY,
				},
			})
		}
	}

	r := math.Max(head.BubbleWidth*l.ScaleX, head.BubbleHeight*l.ScaleY) / 2
	l.BubbleRadius = r
	l.MinArea = math.Pi * math.Pow(p.MinAreaRatio*r, 2)
	l.MaxArea = math.Pi * math.Pow(p.MaxAreaRatio*r, 2)
	l.MinRadius = p.MinRadiusRatio * r
	l.MaxRadius = p.MaxRadiusRatio * r

	hr := markers.Head.Right
	lr := image.Pt(
		int(math.Round(hr.X+p.BarcodeOffsetMM*l.ScaleX)),
		int(math.Round(hr.Y-p.BarcodeOffsetMM*l.ScaleY)),
	)
	size := image.Pt(
		int(math.Round(p.BarcodeSizeMM*l.ScaleX*p.BarcodeMargin)),
		int(math.Round(p.BarcodeSizeMM*l.ScaleY*p.BarcodeMargin)),
	)
	l.Barcode = image.Rectangle{Min: lr.Sub(size), Max: lr}

	l.BandTop = markers.Head.Left.Y
	l.BandBottom = markers.Foot.Left.Y

	slog.Debug("Layout derived",
		"labels", len(l.Labels),
		"scale_x", l.ScaleX, "scale_y", l.ScaleY,
		"radius", l.BubbleRadius,
		"min_area", l.MinArea, "max_area", l.MaxArea,
		"min_radius", l.MinRadius, "max_radius", l.MaxRadius,
		"barcode", l.Barcode.String())
	return l, nil
}

// FromReference locates the reference rules on the blank form rendering and
// derives the layout from them.
func FromReference(db *labels.Database, reference *image.Gray, p Params, cp calibrate.Params) (*Layout, error) {
	b := reference.Bounds()
	m := calibrate.LocateMarkers(reference, cp)
	return New(db, b.Dx(), b.Dy(), m, p)
}

// InBand reports whether y lies strictly inside the answer band.
func (l *Layout) InBand(y float64) bool {
	return y > l.BandTop && y < l.BandBottom
}

// Nearest returns the index of the label closest to p and its distance. Ties
// resolve to the first label in document order. It returns -1 when the
// layout has no labels.
func (l *Layout) Nearest(p utils.Point) (int, float64) {
	best, bestD := -1, math.Inf(1)
	for i := range l.Labels {
		if d := utils.Distance(p, l.Labels[i].Center); d < bestD {
			best, bestD = i, d
		}
	}
	return best, bestD
}

// Field returns the field description of group; ok is false when the form
// has no such group.
func (l *Layout) Field(group string) (Field, bool) {
	f, ok := l.Fields[group]
	return f, ok
}

// ToMM converts a pixel length along x into millimetres.
func (l *Layout) ToMM(px float64) float64 {
	if l.ScaleX == 0 {
		return 0
	}
	return px / l.ScaleX
}
