// Package testutil renders synthetic bubble sheets and their label database
// for tests.
package testutil

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/qrcode"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/MeKo-Tech/omrscan/internal/labels"
)

// Synthetic A4 form rendered at Scale pixels per millimetre.
const (
	Scale       = 4.0
	PaperWidth  = 210.0
	PaperHeight = 297.0
	BubbleMM    = 4.0
	PageWidth   = 840
	PageHeight  = 1188

	UIDDigits = 6
	Questions = 10
	Options   = "ABCDE"

	// RingRadius is the printed bubble outline radius in pixels.
	RingRadius = 8
	// MarkRadius is the radius of a pen mark in pixels.
	MarkRadius = 10

	anchor = 0.72
)

// Printed reference rules in pixels.
var (
	HeadRule = image.Rect(60, 160, 780, 164)
	FootRule = image.Rect(60, 1080, 780, 1084)
	// QROrigin is the upper-left corner of the identity code.
	QROrigin = image.Pt(731, 104)
)

// UIDCenter is the pixel centre of value v of UID digit d (1-based).
func UIDCenter(d, v int) image.Point {
	return image.Pt(120+(d-1)*30, 220+v*24)
}

// AnswerCenter is the pixel centre of option k (0-based) of question q
// (1-based).
func AnswerCenter(q, k int) image.Point {
	return image.Pt(120+k*30, 500+(q-1)*30)
}

// toMM converts a canonical pixel centre to a label position in mm with the
// origin at the bottom-left corner.
func toMM(p image.Point) (float64, float64) {
	x := float64(p.X)/Scale + BubbleMM*anchor
	y := PaperHeight - BubbleMM*anchor - float64(p.Y)/Scale
	return x, y
}

// Form returns the label database of the synthetic sheet.
func Form() *labels.Database {
	db := &labels.Database{Head: labels.Head{
		PaperWidth:   PaperWidth,
		PaperHeight:  PaperHeight,
		BubbleWidth:  BubbleMM,
		BubbleHeight: BubbleMM,
	}}

	uid := &labels.Group{Name: labels.UIDGroup, Base: 1, Count: UIDDigits}
	for d := 1; d <= UIDDigits; d++ {
		for v := range 10 {
			x, y := toMM(UIDCenter(d, v))
			uid.Entries = append(uid.Entries, labels.Entry{
				Key: fmt.Sprintf("%d:%d", d, v), Index: d, Value: fmt.Sprint(v), X: x, Y: y,
			})
		}
	}
	ans := &labels.Group{Name: labels.AnswerGroup, Base: 1, Count: Questions}
	for q := 1; q <= Questions; q++ {
		for k, opt := range Options {
			x, y := toMM(AnswerCenter(q, k))
			ans.Entries = append(ans.Entries, labels.Entry{
				Key: fmt.Sprintf("%d:%c", q, opt), Index: q, Value: string(opt), X: x, Y: y,
			})
		}
	}
	db.Groups = []*labels.Group{uid, ans}
	return db
}

// WriteForm writes the synthetic label database as legacy XML into dir.
func WriteForm(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "form.xml")
	f, err := os.Create(path) //nolint:gosec // G304: test output path
	require.NoError(t, err)
	require.NoError(t, Form().WriteXML(f))
	require.NoError(t, f.Close())
	return path
}

// Mark names one bubble to fill.
type Mark struct {
	Group string
	Key   string
}

// Sheet describes a filled-in page.
type Sheet struct {
	// UID holds one digit per position; '-' leaves the position blank.
	UID string
	// Answers holds one option letter per question; '0' or '-' leaves it
	// blank.
	Answers string
	// Extra fills additional bubbles, e.g. a second option.
	Extra []Mark
	// Code is encoded as a QR symbol in the barcode area.
	Code string
	// Stray draws mark-sized blobs at arbitrary pixel positions.
	Stray []image.Point
	// Offset translates the whole page content.
	Offset image.Point
	// Rotate turns the page counter-clockwise by degrees around its centre,
	// keeping the page size.
	Rotate float64
}

// Reference renders the blank form.
func Reference() *image.Gray {
	return Render(Sheet{})
}

// Render draws the sheet on a white page.
func Render(s Sheet) *image.Gray {
	g := image.NewGray(image.Rect(0, 0, PageWidth, PageHeight))
	for i := range g.Pix {
		g.Pix[i] = 255
	}
	off := s.Offset

	fillRect(g, HeadRule.Add(off), 0)
	fillRect(g, FootRule.Add(off), 0)
	drawText(g, "OMR TEST FORM", image.Pt(60, 60).Add(off))

	for d := 1; d <= UIDDigits; d++ {
		for v := range 10 {
			ring(g, UIDCenter(d, v).Add(off), RingRadius)
		}
	}
	for q := 1; q <= Questions; q++ {
		for k := range Options {
			ring(g, AnswerCenter(q, k).Add(off), RingRadius)
		}
	}

	for d, c := range s.UID {
		if c >= '0' && c <= '9' {
			disc(g, UIDCenter(d+1, int(c-'0')).Add(off), MarkRadius)
		}
	}
	for q, c := range s.Answers {
		for k, opt := range Options {
			if c == opt {
				disc(g, AnswerCenter(q+1, k).Add(off), MarkRadius)
			}
		}
	}
	for _, m := range s.Extra {
		if p, ok := Center(m.Group, m.Key); ok {
			disc(g, p.Add(off), MarkRadius)
		}
	}
	for _, p := range s.Stray {
		disc(g, p.Add(off), MarkRadius)
	}
	if s.Code != "" {
		drawQR(g, s.Code, QROrigin.Add(off))
	}
	if s.Rotate != 0 {
		return rotate(g, s.Rotate)
	}
	return g
}

func rotate(g *image.Gray, deg float64) *image.Gray {
	turned := imaging.CropCenter(imaging.Rotate(g, deg, color.White), PageWidth, PageHeight)
	out := image.NewGray(image.Rect(0, 0, PageWidth, PageHeight))
	draw.Draw(out, out.Bounds(), turned, turned.Bounds().Min, draw.Src)
	return out
}

// Center returns the pixel centre of the bubble group/key.
func Center(group, key string) (image.Point, bool) {
	idx, val, err := labels.SplitKey(key)
	if err != nil {
		return image.Point{}, false
	}
	switch group {
	case labels.UIDGroup:
		if len(val) == 1 && val[0] >= '0' && val[0] <= '9' {
			return UIDCenter(idx, int(val[0]-'0')), true
		}
	case labels.AnswerGroup:
		for k, opt := range Options {
			if val == string(opt) {
				return AnswerCenter(idx, k), true
			}
		}
	}
	return image.Point{}, false
}

func fillRect(g *image.Gray, r image.Rectangle, v uint8) {
	r = r.Intersect(g.Bounds())
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			g.SetGray(x, y, color.Gray{Y: v})
		}
	}
}

// ring draws a two-pixel outline centred on radius r.
func ring(g *image.Gray, c image.Point, r int) {
	lo, hi := (r-1)*(r-1), (r+1)*(r+1)
	for dy := -r - 1; dy <= r+1; dy++ {
		for dx := -r - 1; dx <= r+1; dx++ {
			d := dx*dx + dy*dy
			if d >= lo && d <= hi {
				p := c.Add(image.Pt(dx, dy))
				if p.In(g.Bounds()) {
					g.SetGray(p.X, p.Y, color.Gray{})
				}
			}
		}
	}
}

func disc(g *image.Gray, c image.Point, r int) {
	for dy := -r; dy <= r; dy++ {
		for dx := -r; dx <= r; dx++ {
			if dx*dx+dy*dy <= r*r {
				p := c.Add(image.Pt(dx, dy))
				if p.In(g.Bounds()) {
					g.SetGray(p.X, p.Y, color.Gray{})
				}
			}
		}
	}
}

func drawText(g *image.Gray, text string, at image.Point) {
	d := &font.Drawer{
		Dst:  g,
		Src:  image.Black,
		Face: basicfont.Face7x13,
		Dot:  fixed.P(at.X, at.Y),
	}
	d.DrawString(text)
}

// drawQR renders code as a QR symbol with two-pixel modules.
func drawQR(g *image.Gray, code string, at image.Point) {
	hints := map[gozxing.EncodeHintType]interface{}{gozxing.EncodeHintType_MARGIN: 1}
	bm, err := qrcode.NewQRCodeWriter().Encode(code, gozxing.BarcodeFormat_QR_CODE, 46, 46, hints)
	if err != nil {
		panic(fmt.Sprintf("encode QR %q: %v", code, err))
	}
	for y := range bm.GetHeight() {
		for x := range bm.GetWidth() {
			if bm.Get(x, y) {
				p := at.Add(image.Pt(x, y))
				if p.In(g.Bounds()) {
					g.SetGray(p.X, p.Y, color.Gray{})
				}
			}
		}
	}
}
