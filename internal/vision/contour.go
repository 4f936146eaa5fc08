package vision

import (
	"image"
	"sort"

	"github.com/MeKo-Tech/omrscan/internal/utils"
)

// Contour is one border of a ContourSet. Outer borders enclose a foreground
// component, hole borders enclose a background region inside one.
type Contour struct {
	Points   []utils.Point
	Hole     bool
	Parent   int
	Children []int
	Bounds   image.Rectangle
	Pixels   int
}

// Area is the polygon area enclosed by the border.
func (c *Contour) Area() float64 { return utils.PolygonArea(c.Points) }

// Perimeter is the length of the closed border.
func (c *Contour) Perimeter() float64 { return utils.Perimeter(c.Points) }

// EnclosingCircle returns the minimal circle enclosing the border.
func (c *Contour) EnclosingCircle() utils.Circle { return utils.MinEnclosingCircle(c.Points) }

// ContourSet is the full border hierarchy of a mask. Foreground components
// are 8-connected, background regions 4-connected.
type ContourSet struct {
	Contours []Contour

	width  int
	height int
	owner  []int32 // contour index per pixel; -1 is the outer background
}

// Top returns the indices of the outermost contours.
func (s *ContourSet) Top() []int {
	var out []int
	for i := range s.Contours {
		if s.Contours[i].Parent < 0 {
			out = append(out, i)
		}
	}
	return out
}

// FilledArea is the number of pixels enclosed by contour i: its own region
// plus everything nested inside it.
func (s *ContourSet) FilledArea(i int) int {
	n := s.Contours[i].Pixels
	for _, ch := range s.Contours[i].Children {
		n += s.FilledArea(ch)
	}
	return n
}

// CorrectedArea is the filled area of contour i minus the filled areas of
// its direct children, so a ring measures as its ink rather than its
// outline.
func (s *ContourSet) CorrectedArea(i int) float64 {
	a := s.FilledArea(i)
	for _, ch := range s.Contours[i].Children {
		a -= s.FilledArea(ch)
	}
	return float64(a)
}

// Encloses reports whether pixel p lies inside contour i, including the
// regions of its descendants.
func (s *ContourSet) Encloses(i int, p image.Point) bool {
	if p.X < 0 || p.Y < 0 || p.X >= s.width || p.Y >= s.height {
		return false
	}
	c := int(s.owner[p.Y*s.width+p.X])
	for c >= 0 {
		if c == i {
			return true
		}
		c = s.Contours[c].Parent
	}
	return false
}

// MeanInside is the mean gray value over every pixel enclosed by contour i.
func (s *ContourSet) MeanInside(gray *image.Gray, i int) float64 {
	r := s.Contours[i].Bounds
	var sum, n int
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			if !s.Encloses(i, image.Pt(x, y)) {
				continue
			}
			sum += int(gray.GrayAt(x, y).Y)
			n++
		}
	}
	if n == 0 {
		return 255
	}
	return float64(sum) / float64(n)
}

type region struct {
	seed   int
	hole   bool
	label  int32
	bounds image.Rectangle
	pixels int
	border bool
}

// FindContours extracts every outer and hole border of mask with its
// parent/child relations. Contours are ordered by the raster position of
// their first pixel.
func FindContours(mask *Mask) *ContourSet {
	w, h := mask.Width, mask.Height
	ink, inkRegions := labelRegions(mask, w, h, true)
	bg, bgRegions := labelRegions(mask, w, h, false)

	// outer background regions touch the image border and carry no contour
	regions := make([]*region, 0, len(inkRegions)+len(bgRegions))
	regions = append(regions, inkRegions...)
	for _, r := range bgRegions {
		if !r.border {
			r.hole = true
			regions = append(regions, r)
		}
	}
	sort.Slice(regions, func(a, b int) bool { return regions[a].seed < regions[b].seed })

	set := &ContourSet{width: w, height: h, owner: make([]int32, w*h)}
	inkIndex := make([]int, len(inkRegions)+1)
	holeIndex := make([]int, len(bgRegions)+1)
	for i := range holeIndex {
		holeIndex[i] = -1
	}
	for i, r := range regions {
		if r.hole {
			holeIndex[r.label] = i
		} else {
			inkIndex[r.label] = i
		}
	}

	set.Contours = make([]Contour, len(regions))
	for i, r := range regions {
		labels := ink
		if r.hole {
			labels = bg
		}
		sx, sy := r.seed%w, r.seed/w
		set.Contours[i] = Contour{
			Points: traceBorder(labels, w, h, r.label, sx, sy, r.bounds),
			Hole:   r.hole,
			Parent: -1,
			Bounds: r.bounds,
			Pixels: r.pixels,
		}
		// the left neighbour of a region's first pixel belongs to whatever
		// directly surrounds it
		if sx == 0 {
			continue
		}
		left := r.seed - 1
		if r.hole {
			set.Contours[i].Parent = inkIndex[ink[left]]
		} else {
			set.Contours[i].Parent = holeIndex[bg[left]]
		}
	}
	for i := range set.Contours {
		if p := set.Contours[i].Parent; p >= 0 {
			set.Contours[p].Children = append(set.Contours[p].Children, i)
		}
	}

	for idx := range set.owner {
		if mask.Pix[idx] {
			set.owner[idx] = int32(inkIndex[ink[idx]])
		} else {
			set.owner[idx] = int32(holeIndex[bg[idx]])
		}
	}
	return set
}

var (
	conn4dx = []int{1, -1, 0, 0}
	conn4dy = []int{0, 0, 1, -1}
	conn8dx = []int{1, -1, 0, 0, 1, 1, -1, -1}
	conn8dy = []int{0, 0, 1, -1, 1, -1, 1, -1}
)

// labelRegions labels the connected regions whose mask value equals fg with
// a breadth-first flood fill: 8-connected for ink, 4-connected for background.
func labelRegions(mask *Mask, w, h int, fg bool) ([]int32, []*region) {
	labels := make([]int32, w*h)
	dx, dy := conn4dx, conn4dy
	if fg {
		dx, dy = conn8dx, conn8dy
	}
	var regions []*region
	queue := make([]int, 0, 256)
	next := int32(1)

	for start := range labels {
		if mask.Pix[start] != fg || labels[start] != 0 {
			continue
		}
		r := &region{seed: start, label: next}
		sx, sy := start%w, start/w
		minX, minY, maxX, maxY := sx, sy, sx, sy
		labels[start] = next
		queue = append(queue[:0], start)
		for len(queue) > 0 {
			cur := queue[0]
			queue = queue[1:]
			x, y := cur%w, cur/w
			r.pixels++
			if x < minX {
				minX = x
			}
			if x > maxX {
				maxX = x
			}
			if y < minY {
				minY = y
			}
			if y > maxY {
				maxY = y
			}
			if x == 0 || y == 0 || x == w-1 || y == h-1 {
				r.border = true
			}
			for k := range dx {
				nx, ny := x+dx[k], y+dy[k]
				if nx < 0 || ny < 0 || nx >= w || ny >= h {
					continue
				}
				ni := ny*w + nx
				if mask.Pix[ni] == fg && labels[ni] == 0 {
					labels[ni] = next
					queue = append(queue, ni)
				}
			}
		}
		r.bounds = image.Rect(minX, minY, maxX+1, maxY+1)
		regions = append(regions, r)
		next++
	}
	return labels, regions
}
