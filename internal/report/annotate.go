package report

import (
	"image"
	"math"

	"github.com/MeKo-Tech/omrscan/internal/layout"
	"github.com/MeKo-Tech/omrscan/internal/marks"
	"github.com/MeKo-Tech/omrscan/internal/utils"
)

const (
	// markerHalfSide is the half side of the squares drawn on reference corners.
	markerHalfSide = 2
	// circleRatio and labelRatio scale the bubble radius for blob and label
	// circles.
	circleRatio = 1.2
	labelRatio  = 2.0
)

// Scan is everything drawn on the annotated rendering of one page.
type Scan struct {
	Aligned   *image.Gray
	Detection marks.Detection
	// Decoded tells whether the identity symbol was read.
	Decoded bool
}

// Annotate draws the barcode area, the reference corners and every
// reconciliation decision over the aligned page. With debug set it also
// outlines the sampling window of every bubble.
func Annotate(s Scan, l *layout.Layout, pal Palette, debug bool) *image.RGBA {
	dst := utils.ToRGBA(s.Aligned)

	if s.Decoded {
		utils.DrawRect(dst, l.Barcode, pal.Decoded, 2)
	} else {
		utils.DrawRect(dst, l.Barcode, pal.Failed, 3)
	}

	for _, p := range l.Markers.Points() {
		c := utils.RoundPoint(p)
		sq := image.Rect(c.X-markerHalfSide, c.Y-markerHalfSide, c.X+markerHalfSide+1, c.Y+markerHalfSide+1)
		utils.DrawRect(dst, sq, pal.Marker, 1)
	}

	window := int(math.Round(circleRatio * l.BubbleRadius))
	if debug {
		for i, lb := range l.Labels {
			c := utils.RoundPoint(lb.Center)
			sq := image.Rect(c.X-window, c.Y-window, c.X+window, c.Y+window)
			if s.Detection.Candidates.Contains(i) {
				utils.DrawRect(dst, sq, pal.Candidate, 2)
			} else {
				utils.DrawRect(dst, sq, pal.Blank, 2)
			}
		}
	}

	labelRadius := int(math.Round(labelRatio * l.BubbleRadius))
	var unfilled, fallback []int
	for _, d := range s.Detection.Decisions {
		if d.Class == marks.ClassFallback {
			fallback = append(fallback, d.Label)
			continue
		}
		b := s.Detection.Blobs[d.Blob]
		at := utils.RoundPoint(b.Center)
		blobRadius := int(math.Round(b.Radius))
		switch d.Class {
		case marks.ClassOK, marks.ClassIgnored:
			utils.DrawCircle(dst, at, window, pal.Class(d.Class), 3)
		case marks.ClassTooBig:
			utils.DrawCircle(dst, at, blobRadius, pal.TooBig, 3)
		case marks.ClassTooSmall:
			utils.DrawCircle(dst, at, blobRadius+3, pal.TooSmall, 3)
		case marks.ClassUnfilled:
			utils.DrawCircle(dst, at, window, pal.Unfilled, 3)
			unfilled = append(unfilled, d.Label)
		}
	}
	for _, li := range unfilled {
		utils.DrawCircle(dst, utils.RoundPoint(l.Labels[li].Center), labelRadius, pal.UnfilledLabel, 4)
	}
	for _, li := range fallback {
		at := utils.RoundPoint(l.Labels[li].Center)
		utils.DrawCircle(dst, at, window, pal.Fallback, 3)
		utils.DrawCircle(dst, at, labelRadius, pal.FallbackLabel, 3)
	}
	return dst
}
