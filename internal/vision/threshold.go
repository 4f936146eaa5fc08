package vision

import "image"

// Mask is a binary image; true marks foreground (ink).
type Mask struct {
	Width  int
	Height int
	Pix    []bool
}

// At reports whether (x, y) is foreground. Out-of-range reads are background.
func (m *Mask) At(x, y int) bool {
	if x < 0 || y < 0 || x >= m.Width || y >= m.Height {
		return false
	}
	return m.Pix[y*m.Width+x]
}

// Histogram returns the 256-bin gray histogram of img.
func Histogram(gray *image.Gray) [256]int {
	var hist [256]int
	b := gray.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := gray.Pix[(y-b.Min.Y)*gray.Stride:]
		for x := 0; x < b.Dx(); x++ {
			hist[row[x]]++
		}
	}
	return hist
}

// OtsuThreshold selects the global threshold that maximises the between-class
// variance of the histogram. Pixels <= the result form the dark class.
func OtsuThreshold(gray *image.Gray) uint8 {
	hist := Histogram(gray)
	total := 0
	var sumAll float64
	for i, c := range hist {
		total += c
		sumAll += float64(i * c)
	}
	if total == 0 {
		return 0
	}

	var sumB float64
	wB := 0
	best := 0
	var maxVar float64
	for t := range 256 {
		wB += hist[t]
		if wB == 0 {
			continue
		}
		wF := total - wB
		if wF == 0 {
			break
		}
		sumB += float64(t * hist[t])
		mB := sumB / float64(wB)
		mF := (sumAll - sumB) / float64(wF)
		between := float64(wB) * float64(wF) * (mB - mF) * (mB - mF)
		if between > maxVar {
			maxVar = between
			best = t
		}
	}
	return uint8(best)
}

// Binarize marks every pixel <= t as foreground.
func Binarize(gray *image.Gray, t uint8) *Mask {
	b := gray.Bounds()
	m := &Mask{Width: b.Dx(), Height: b.Dy(), Pix: make([]bool, b.Dx()*b.Dy())}
	for y := range m.Height {
		row := gray.Pix[y*gray.Stride:]
		for x := range m.Width {
			if row[x] <= t {
				m.Pix[y*m.Width+x] = true
			}
		}
	}
	return m
}

// BinarizeOtsu binarizes gray with its Otsu threshold and returns the mask
// together with the threshold used.
func BinarizeOtsu(gray *image.Gray) (*Mask, uint8) {
	t := OtsuThreshold(gray)
	return Binarize(gray, t), t
}
