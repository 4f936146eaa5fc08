package utils

import (
	"math"
	"sort"
)

// PolygonArea returns the unsigned area of a closed polygon (shoelace formula).
func PolygonArea(pts []Point) float64 {
	if len(pts) < 3 {
		return 0
	}
	var s float64
	for i := range pts {
		a := pts[i]
		b := pts[(i+1)%len(pts)]
		s += a.X*b.Y - b.X*a.Y
	}
	return math.Abs(s) / 2
}

// Perimeter returns the length of the closed polyline through pts.
func Perimeter(pts []Point) float64 {
	if len(pts) < 2 {
		return 0
	}
	var l float64
	for i := range pts {
		l += Distance(pts[i], pts[(i+1)%len(pts)])
	}
	return l
}

// Circle is a center and radius pair.
type Circle struct {
	Center Point
	Radius float64
}

func (c Circle) contains(p Point) bool {
	return Distance(c.Center, p) <= c.Radius+1e-7
}

// MinEnclosingCircle returns the smallest circle containing all points.
// Only hull vertices can lie on the circle, so the incremental construction
// runs over the convex hull.
func MinEnclosingCircle(pts []Point) Circle {
	hull := ConvexHull(pts)
	switch len(hull) {
	case 0:
		return Circle{}
	case 1:
		return Circle{Center: hull[0]}
	}
	c := Circle{Center: hull[0]}
	for i := 1; i < len(hull); i++ {
		if c.contains(hull[i]) {
			continue
		}
		c = circleFrom2(hull[0], hull[i])
		for j := 1; j < i; j++ {
			if c.contains(hull[j]) {
				continue
			}
			c = circleFrom2(hull[i], hull[j])
			for k := range j {
				if c.contains(hull[k]) {
					continue
				}
				c = circleFrom3(hull[i], hull[j], hull[k])
			}
		}
	}
	return c
}

func circleFrom2(a, b Point) Circle {
	center := Point{X: (a.X + b.X) / 2, Y: (a.Y + b.Y) / 2}
	return Circle{Center: center, Radius: Distance(a, b) / 2}
}

func circleFrom3(a, b, c Point) Circle {
	bx, by := b.X-a.X, b.Y-a.Y
	cx, cy := c.X-a.X, c.Y-a.Y
	d := 2 * (bx*cy - by*cx)
	if d == 0 {
		// collinear: widest pair
		best := circleFrom2(a, b)
		for _, cand := range []Circle{circleFrom2(a, c), circleFrom2(b, c)} {
			if cand.Radius > best.Radius {
				best = cand
			}
		}
		return best
	}
	b2 := bx*bx + by*by
	c2 := cx*cx + cy*cy
	ux := (cy*b2 - by*c2) / d
	uy := (bx*c2 - cx*b2) / d
	center := Point{X: a.X + ux, Y: a.Y + uy}
	return Circle{Center: center, Radius: math.Hypot(ux, uy)}
}

// ConvexHull computes the convex hull of a set of points using the
// monotone chain algorithm. Returns the hull in CCW order without
// duplicating the first point at the end.
func ConvexHull(pts []Point) []Point {
	n := len(pts)
	if n <= 1 {
		return append([]Point(nil), pts...)
	}
	// Copy and sort by X then Y
	p := make([]Point, n)
	copy(p, pts)
	sortPoints(p)
	// Remove duplicates
	p = removeDuplicatePoints(p)
	n = len(p)
	if n <= 1 {
		return append([]Point(nil), p...)
	}
	lower := buildLowerHull(p)
	upper := buildUpperHull(p)
	// Concatenate lower and upper to get full hull, excluding last point of each (duplicate)
	hull := make([]Point, 0, len(lower)+len(upper)-2)
	hull = append(hull, lower[:len(lower)-1]...)
	hull = append(hull, upper[:len(upper)-1]...)
	return hull
}

func removeDuplicatePoints(p []Point) []Point {
	q := p[:0]
	var last Point
	hasLast := false
	for _, pt := range p {
		if !hasLast || pt.X != last.X || pt.Y != last.Y {
			q = append(q, pt)
			last = pt
			hasLast = true
		}
	}
	return q
}

func buildLowerHull(p []Point) []Point {
	lower := make([]Point, 0, len(p))
	for _, pt := range p {
		for len(lower) >= 2 && cross(lower[len(lower)-2], lower[len(lower)-1], pt) <= 0 {
			lower = lower[:len(lower)-1]
		}
		lower = append(lower, pt)
	}
	return lower
}

func buildUpperHull(p []Point) []Point {
	upper := make([]Point, 0, len(p))
	for i := len(p) - 1; i >= 0; i-- {
		pt := p[i]
		for len(upper) >= 2 && cross(upper[len(upper)-2], upper[len(upper)-1], pt) <= 0 {
			upper = upper[:len(upper)-1]
		}
		upper = append(upper, pt)
	}
	return upper
}

func sortPoints(p []Point) {
	sort.Slice(p, func(i, j int) bool {
		if p[i].X != p[j].X {
			return p[i].X < p[j].X
		}
		return p[i].Y < p[j].Y
	})
}

func cross(o, a, b Point) float64 {
	return (a.X-o.X)*(b.Y-o.Y) - (a.Y-o.Y)*(b.X-o.X)
}

// MinimumAreaRectangle computes the minimum-area enclosing rectangle using a
// rotating calipers approach over the convex hull. Returns 4 points in CCW order.
// Falls back to axis-aligned bounding box for degenerate cases.
func MinimumAreaRectangle(pts []Point) []Point {
	if len(pts) == 0 {
		return nil
	}
	hull := ConvexHull(pts)
	if len(hull) == 0 {
		return nil
	}
	if len(hull) == 1 {
		return rectangleForSinglePoint(hull[0])
	}
	if len(hull) == 2 {
		return rectangleForTwoPoints(hull[0], hull[1])
	}
	return findMinimumAreaRectangle(hull)
}

func rectangleForSinglePoint(p Point) []Point {
	return []Point{{p.X, p.Y}, {p.X + 1, p.Y}, {p.X + 1, p.Y + 1}, {p.X, p.Y + 1}}
}

func rectangleForTwoPoints(a, b Point) []Point {
	// Create a thin rectangle around the segment
	return []Point{a, b, {b.X, b.Y + 1}, {a.X, a.Y + 1}}
}

func findMinimumAreaRectangle(hull []Point) []Point {
	bestArea := math.Inf(1)
	var bestU, bestV Point
	var bestMinS, bestMaxS, bestMinT, bestMaxT float64
	// For each edge as orientation
	for i := range hull {
		a := hull[i]
		b := hull[(i+1)%len(hull)]
		dx := b.X - a.X
		dy := b.Y - a.Y
		L := math.Hypot(dx, dy)
		if L == 0 {
			continue
		}
		ux, uy := dx/L, dy/L
		vx, vy := -uy, ux // perpendicular
		// Project all points
		minS, maxS := math.Inf(1), math.Inf(-1)
		minT, maxT := math.Inf(1), math.Inf(-1)
		for _, p := range hull {
			s := p.X*ux + p.Y*uy
			t := p.X*vx + p.Y*vy
			if s < minS {
				minS = s
			}
			if s > maxS {
				maxS = s
			}
			if t < minT {
				minT = t
			}
			if t > maxT {
				maxT = t
			}
		}
		area := (maxS - minS) * (maxT - minT)
		if area < bestArea {
			bestArea = area
			bestU = Point{ux, uy}
			bestV = Point{vx, vy}
			bestMinS, bestMaxS, bestMinT, bestMaxT = minS, maxS, minT, maxT
		}
	}
	// Reconstruct rectangle corners c0..c3 in world coordinates
	c0 := Point{X: bestU.X*bestMinS + bestV.X*bestMinT, Y: bestU.Y*bestMinS + bestV.Y*bestMinT}
	c1 := Point{X: bestU.X*bestMaxS + bestV.X*bestMinT, Y: bestU.Y*bestMaxS + bestV.Y*bestMinT}
	c2 := Point{X: bestU.X*bestMaxS + bestV.X*bestMaxT, Y: bestU.Y*bestMaxS + bestV.Y*bestMaxT}
	c3 := Point{X: bestU.X*bestMinS + bestV.X*bestMaxT, Y: bestU.Y*bestMinS + bestV.Y*bestMaxT}
	return []Point{c0, c1, c2, c3}
}
