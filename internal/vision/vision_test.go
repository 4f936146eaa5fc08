package vision

import (
	"image"
	"image/color"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fillRect(g *image.Gray, r image.Rectangle, v uint8) {
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			g.SetGray(x, y, color.Gray{Y: v})
		}
	}
}

func fillDisc(g *image.Gray, cx, cy, r int, v uint8) {
	for y := cy - r; y <= cy+r; y++ {
		for x := cx - r; x <= cx+r; x++ {
			if (x-cx)*(x-cx)+(y-cy)*(y-cy) <= r*r {
				g.SetGray(x, y, color.Gray{Y: v})
			}
		}
	}
}

// ringSheet draws a 20x20 square ring of width 2 at (5,5) with a 4x4 island
// in the middle on a 30x30 white page.
func ringSheet() *image.Gray {
	g := White(30, 30)
	fillRect(g, image.Rect(5, 5, 25, 25), 0)
	fillRect(g, image.Rect(7, 7, 23, 23), 255)
	fillRect(g, image.Rect(13, 13, 17, 17), 0)
	return g
}

func TestToGray(t *testing.T) {
	src := image.NewRGBA(image.Rect(10, 10, 14, 12))
	src.Set(11, 11, color.RGBA{R: 255, G: 255, B: 255, A: 255})
	g := ToGray(src)
	assert.Equal(t, image.Rect(0, 0, 4, 2), g.Bounds())
	assert.Equal(t, uint8(255), g.GrayAt(1, 1).Y)
	assert.Equal(t, uint8(0), g.GrayAt(0, 0).Y)

	same := image.NewGray(image.Rect(0, 0, 3, 3))
	assert.Same(t, same, ToGray(same))
}

func TestSmooth(t *testing.T) {
	g := White(20, 20)
	fillRect(g, image.Rect(0, 0, 10, 20), 0)

	s := Smooth(g, DefaultSmoothSigma)
	require.Equal(t, g.Bounds(), s.Bounds())
	edge := s.GrayAt(10, 10).Y
	assert.Greater(t, edge, uint8(0))
	assert.Less(t, edge, uint8(255))
	assert.Equal(t, uint8(0), s.GrayAt(2, 10).Y)

	c := Smooth(g, 0)
	assert.Equal(t, g.Pix, c.Pix)
	assert.NotSame(t, g, c)
}

func TestOtsuThreshold(t *testing.T) {
	g := White(40, 10)
	fillRect(g, image.Rect(0, 0, 20, 10), 20)
	fillRect(g, image.Rect(20, 0, 40, 10), 220)

	th := OtsuThreshold(g)
	assert.GreaterOrEqual(t, th, uint8(20))
	assert.Less(t, th, uint8(220))

	mask, used := BinarizeOtsu(g)
	assert.Equal(t, th, used)
	assert.True(t, mask.At(5, 5))
	assert.False(t, mask.At(30, 5))
	assert.False(t, mask.At(-1, 5))
}

func TestMeanInDisc(t *testing.T) {
	g := White(40, 40)
	fillDisc(g, 20, 20, 6, 0)
	assert.InDelta(t, 0, MeanInDisc(g, image.Pt(20, 20), 5), 1e-9)
	assert.InDelta(t, 255, MeanInDisc(g, image.Pt(5, 5), 3), 1e-9)
	assert.InDelta(t, 255, MeanInDisc(g, image.Pt(-50, -50), 3), 1e-9)
}

func TestBilinear(t *testing.T) {
	g := image.NewGray(image.Rect(0, 0, 2, 1))
	g.SetGray(0, 0, color.Gray{Y: 0})
	g.SetGray(1, 0, color.Gray{Y: 200})
	assert.Equal(t, uint8(100), Bilinear(g, 0.5, 0, 255))
	assert.Equal(t, uint8(255), Bilinear(g, 3, 0, 255))
	assert.Equal(t, uint8(200), Bilinear(g, 1, 0, 255))
}

func TestFindContours_FilledSquare(t *testing.T) {
	g := White(30, 30)
	fillRect(g, image.Rect(5, 5, 15, 15), 0)
	set := FindContours(Binarize(g, 128))

	require.Len(t, set.Contours, 1)
	c := set.Contours[0]
	assert.False(t, c.Hole)
	assert.Equal(t, -1, c.Parent)
	assert.Equal(t, image.Rect(5, 5, 15, 15), c.Bounds)
	assert.Equal(t, 100, c.Pixels)
	assert.Len(t, c.Points, 4)
	assert.InDelta(t, 81, c.Area(), 1e-9)
	assert.InDelta(t, 36, c.Perimeter(), 1e-9)
	assert.Equal(t, []int{0}, set.Top())
}

func TestFindContours_Hierarchy(t *testing.T) {
	g := ringSheet()
	set := FindContours(Binarize(g, 128))

	require.Len(t, set.Contours, 3)
	outer, hole, island := set.Contours[0], set.Contours[1], set.Contours[2]

	assert.False(t, outer.Hole)
	assert.True(t, hole.Hole)
	assert.False(t, island.Hole)
	assert.Equal(t, -1, outer.Parent)
	assert.Equal(t, 0, hole.Parent)
	assert.Equal(t, 1, island.Parent)
	assert.Equal(t, []int{1}, outer.Children)
	assert.Equal(t, []int{2}, hole.Children)

	assert.InDelta(t, 361, outer.Area(), 1e-9)
	assert.InDelta(t, 225, hole.Area(), 1e-9)
	assert.Equal(t, 400, set.FilledArea(0))
	assert.Equal(t, 256, set.FilledArea(1))
	assert.Equal(t, 16, set.FilledArea(2))
	assert.InDelta(t, 144, set.CorrectedArea(0), 1e-9)
	assert.InDelta(t, 240, set.CorrectedArea(1), 1e-9)

	assert.True(t, set.Encloses(0, image.Pt(14, 14)))
	assert.True(t, set.Encloses(0, image.Pt(8, 8)))
	assert.True(t, set.Encloses(1, image.Pt(14, 14)))
	assert.False(t, set.Encloses(2, image.Pt(8, 8)))
	assert.False(t, set.Encloses(0, image.Pt(2, 2)))
	assert.False(t, set.Encloses(0, image.Pt(100, 2)))

	// 144 ring + 16 island pixels are ink, 240 hole pixels are white
	assert.InDelta(t, 240.0*255/400, set.MeanInside(g, 0), 1e-9)
	assert.InDelta(t, 0, set.MeanInside(g, 2), 1e-9)
}

func TestFindContours_Disc(t *testing.T) {
	g := White(60, 60)
	fillDisc(g, 30, 30, 10, 0)
	set := FindContours(Binarize(g, 128))

	require.Len(t, set.Contours, 1)
	c := set.Contours[0]
	circle := c.EnclosingCircle()
	assert.InDelta(t, 30, circle.Center.X, 0.5)
	assert.InDelta(t, 30, circle.Center.Y, 0.5)
	assert.InDelta(t, 10, circle.Radius, 0.5)
	assert.InDelta(t, math.Pi*100, c.Area(), math.Pi*100*0.15)

	p := c.Perimeter()
	assert.Less(t, p*p, 28*math.Pi*c.Area())
}

func TestFindContours_OrderAndEdges(t *testing.T) {
	g := White(30, 30)
	g.SetGray(20, 3, color.Gray{Y: 0})        // isolated pixel
	fillRect(g, image.Rect(0, 10, 4, 14), 0) // touches the left border
	fillRect(g, image.Rect(10, 20, 16, 21), 0)

	set := FindContours(Binarize(g, 128))
	require.Len(t, set.Contours, 3)

	assert.Equal(t, image.Rect(20, 3, 21, 4), set.Contours[0].Bounds)
	assert.Len(t, set.Contours[0].Points, 1)
	assert.Zero(t, set.Contours[0].Area())

	assert.Equal(t, image.Rect(0, 10, 4, 14), set.Contours[1].Bounds)
	assert.Equal(t, -1, set.Contours[1].Parent)

	line := set.Contours[2]
	assert.Equal(t, 6, line.Pixels)
	assert.Zero(t, line.Area())
	assert.InDelta(t, 10, line.Perimeter(), 1e-9)
}

func TestFindContours_Empty(t *testing.T) {
	set := FindContours(Binarize(White(10, 10), 128))
	assert.Empty(t, set.Contours)
	assert.Empty(t, set.Top())
}
