package vision

import (
	"image"

	"github.com/MeKo-Tech/omrscan/internal/utils"
)

// 8-neighbourhood in clockwise screen order: E, SE, S, SW, W, NW, N, NE.
var (
	ringDX = [8]int{1, 1, 0, -1, -1, -1, 0, 1}
	ringDY = [8]int{0, 1, 1, 1, 0, -1, -1, -1}
)

func ringIndex(dx, dy int) int {
	for i := range 8 {
		if ringDX[i] == dx && ringDY[i] == dy {
			return i
		}
	}
	return 4
}

// traceBorder follows the border of the region carrying label with
// Moore-neighbour tracing, starting at its first raster pixel (sx, sy) whose
// west neighbour is outside the region. Runs of collinear points are
// collapsed so only the corners remain.
func traceBorder(labels []int32, w, h int, label int32, sx, sy int, bounds image.Rectangle) []utils.Point {
	in := func(x, y int) bool {
		if x < 0 || y < 0 || x >= w || y >= h {
			return false
		}
		return labels[y*w+x] == label
	}

	path := []image.Point{{X: sx, Y: sy}}
	cx, cy := sx, sy
	back := 4 // west
	var first image.Point
	started := false
	limit := 4*bounds.Dx()*bounds.Dy() + 16

	for range limit {
		found := false
		var nx, ny, nback int
		for k := 1; k <= 8; k++ {
			i := (back + k) % 8
			tx, ty := cx+ringDX[i], cy+ringDY[i]
			if !in(tx, ty) {
				continue
			}
			// the previously examined neighbour becomes the new backtrack
			j := (back + k - 1) % 8
			px, py := cx+ringDX[j], cy+ringDY[j]
			nx, ny, nback = tx, ty, ringIndex(px-tx, py-ty)
			found = true
			break
		}
		if !found {
			break // isolated pixel
		}
		if cx == sx && cy == sy && started && nx == first.X && ny == first.Y {
			break
		}
		if !started {
			first = image.Pt(nx, ny)
			started = true
		}
		cx, cy, back = nx, ny, nback
		path = append(path, image.Pt(cx, cy))
	}
	if n := len(path); n > 1 && path[n-1] == path[0] {
		path = path[:n-1]
	}
	return simplifyChain(path)
}

// simplifyChain keeps only the points where the chain changes direction.
func simplifyChain(path []image.Point) []utils.Point {
	n := len(path)
	if n < 3 {
		out := make([]utils.Point, n)
		for i, p := range path {
			out[i] = utils.Point{X: float64(p.X), Y: float64(p.Y)}
		}
		return out
	}
	out := make([]utils.Point, 0, n/2+1)
	for i, p := range path {
		prev := path[(i-1+n)%n]
		next := path[(i+1)%n]
		if p.X-prev.X == next.X-p.X && p.Y-prev.Y == next.Y-p.Y {
			continue
		}
		out = append(out, utils.Point{X: float64(p.X), Y: float64(p.Y)})
	}
	if len(out) == 0 {
		out = append(out, utils.Point{X: float64(path[0].X), Y: float64(path[0].Y)})
	}
	return out
}
