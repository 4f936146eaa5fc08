package report

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"time"

	"github.com/disintegration/imaging"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/MeKo-Tech/omrscan/internal/layout"
	"github.com/MeKo-Tech/omrscan/internal/utils"
)

// ProgramName heads the title page and the document metadata.
const ProgramName = "OMaRScan"

// BannerLines returns the title page banner: program name, then host and
// time of the run.
func BannerLines(host string, at time.Time) []string {
	return []string{ProgramName, fmt.Sprintf("[@%s - %s]", host, at.Format("Mon 2006-01-02, 15:04:05"))}
}

// TitlePage circles every canonical bubble on the reference rendering and
// writes the banner lines centred near the top.
func TitlePage(reference *image.Gray, l *layout.Layout, pal Palette, banner []string) *image.RGBA {
	dst := utils.ToRGBA(reference)
	r := int(math.Round(l.BubbleRadius))
	for _, lb := range l.Labels {
		utils.DrawCircle(dst, utils.RoundPoint(lb.Center), r, pal.Bubble, 2)
	}

	b := dst.Bounds()
	size := max(1, int(math.Round(float64(b.Dy())/50)))
	y := 2 * size
	var out image.Image = dst
	for _, line := range banner {
		y += size
		text := renderText(line, pal.Banner, size)
		x := (b.Dx() - text.Bounds().Dx()) / 2
		out = imaging.Overlay(out, text, image.Pt(x, y), 1.0)
	}
	return utils.ToRGBA(out)
}

// renderText draws s with the built-in bitmap face and scales it to about
// height pixels.
func renderText(s string, col color.Color, height int) *image.NRGBA {
	face := basicfont.Face7x13
	d := &font.Drawer{Src: image.NewUniform(col), Face: face}
	w := d.MeasureString(s).Ceil()
	canvas := image.NewNRGBA(image.Rect(0, 0, max(w, 1), face.Height))
	d.Dst = canvas
	d.Dot = fixed.P(0, face.Ascent)
	d.DrawString(s)

	k := max(1, int(math.Round(float64(height)/float64(face.Height))))
	if k == 1 {
		return canvas
	}
	return imaging.Resize(canvas, canvas.Bounds().Dx()*k, canvas.Bounds().Dy()*k, imaging.NearestNeighbor)
}
