package marks

import (
	"image"
	"math"

	"github.com/MeKo-Tech/omrscan/internal/layout"
	"github.com/MeKo-Tech/omrscan/internal/utils"
	"github.com/MeKo-Tech/omrscan/internal/vision"
)

// Candidates is the outcome of intensity sampling: the mean gray of every
// label and the labels dark enough to count as filled, in label order.
type Candidates struct {
	Means  []float64
	Labels []int
}

// Contains reports whether label i is a candidate.
func (c Candidates) Contains(i int) bool {
	for _, l := range c.Labels {
		if l == i {
			return true
		}
	}
	return false
}

// SampleCandidates averages the gray level inside a disc around every
// canonical bubble centre.
func SampleCandidates(gray *image.Gray, l *layout.Layout, p Params) Candidates {
	radius := int(math.Round(p.WindowRatio * l.BubbleRadius))
	c := Candidates{Means: make([]float64, len(l.Labels))}
	for i, lb := range l.Labels {
		m := vision.MeanInDisc(gray, utils.RoundPoint(lb.Center), radius)
		c.Means[i] = m
		if m < p.FillThreshold {
			c.Labels = append(c.Labels, i)
		}
	}
	return c
}

// Blob is a dark region shaped like a filled bubble.
type Blob struct {
	Center    utils.Point
	Radius    float64
	Area      float64
	Perimeter float64
	Fill      float64
	Bounds    image.Rectangle
}

// ExtractBlobs binarizes the smoothed page and keeps the ink regions whose
// corrected area, circularity and darkness fit a filled bubble.
func ExtractBlobs(smoothed *image.Gray, l *layout.Layout, p Params) []Blob {
	mask, _ := vision.BinarizeOtsu(smoothed)
	set := vision.FindContours(mask)

	var blobs []Blob
	for i := range set.Contours {
		c := &set.Contours[i]
		if c.Hole {
			continue
		}
		area := set.CorrectedArea(i)
		if area <= l.MinArea || area >= l.MaxArea {
			continue
		}
		per := c.Perimeter()
		if per*per >= p.Isoperimetric*math.Pi*area {
			continue
		}
		fill := set.MeanInside(smoothed, i)
		if fill >= p.ContourFillThreshold {
			continue
		}
		circle := c.EnclosingCircle()
		blobs = append(blobs, Blob{
			Center:    circle.Center,
			Radius:    circle.Radius,
			Area:      area,
			Perimeter: per,
			Fill:      fill,
			Bounds:    c.Bounds,
		})
	}
	return blobs
}

// Detection bundles both passes and their reconciliation for one page.
type Detection struct {
	Candidates Candidates
	Blobs      []Blob
	Reconciliation
}

// Detect runs intensity sampling on the aligned page, blob extraction on
// its smoothed copy and reconciles the two.
func Detect(aligned *image.Gray, l *layout.Layout, p Params) Detection {
	cands := SampleCandidates(aligned, l, p)
	blobs := ExtractBlobs(vision.Smooth(aligned, p.SmoothSigma), l, p)
	return Detection{
		Candidates:     cands,
		Blobs:          blobs,
		Reconciliation: Reconcile(cands, blobs, l, p),
	}
}
