package layout

import (
	"image"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/omrscan/internal/calibrate"
	"github.com/MeKo-Tech/omrscan/internal/testutil"
	"github.com/MeKo-Tech/omrscan/internal/utils"
)

func testLayout(t *testing.T) *Layout {
	t.Helper()
	l, err := FromReference(testutil.Form(), testutil.Reference(), DefaultParams(), calibrate.DefaultParams())
	require.NoError(t, err)
	return l
}

func TestFromReference_Geometry(t *testing.T) {
	l := testLayout(t)

	assert.Equal(t, testutil.PageWidth, l.Width)
	assert.Equal(t, testutil.PageHeight, l.Height)
	assert.InDelta(t, testutil.Scale, l.ScaleX, 1e-9)
	assert.InDelta(t, testutil.Scale, l.ScaleY, 1e-9)
	assert.InDelta(t, 8.0, l.BubbleRadius, 1e-9)
	assert.InDelta(t, math.Pi*64, l.MinArea, 1e-6)
	assert.InDelta(t, math.Pi*math.Pow(2.2*8, 2), l.MaxArea, 1e-6)
	assert.InDelta(t, 6.4, l.MinRadius, 1e-9)
	assert.InDelta(t, 14.4, l.MaxRadius, 1e-9)

	require.Len(t, l.Labels, testutil.UIDDigits*10+testutil.Questions*len(testutil.Options))
	first := l.Labels[0]
	assert.Equal(t, "UID", first.Group)
	assert.Equal(t, "1:0", first.Key)
	c := testutil.UIDCenter(1, 0)
	assert.InDelta(t, float64(c.X), first.Center.X, 1e-6)
	assert.InDelta(t, float64(c.Y), first.Center.Y, 1e-6)

	f, ok := l.Field("ans")
	require.True(t, ok)
	assert.Equal(t, Field{Base: 1, Count: testutil.Questions}, f)
	_, ok = l.Field("nope")
	assert.False(t, ok)
}

func TestFromReference_BandAndBarcode(t *testing.T) {
	l := testLayout(t)

	assert.InDelta(t, float64(testutil.HeadRule.Min.Y), l.BandTop, 2)
	assert.InDelta(t, float64(testutil.FootRule.Min.Y), l.BandBottom, 2)

	// 1mm right of and above the head rule's right end, about 58px square
	assert.InDelta(t, 783, l.Barcode.Max.X, 2)
	assert.InDelta(t, 156, l.Barcode.Max.Y, 2)
	assert.Equal(t, 58, l.Barcode.Dx())
	assert.Equal(t, 58, l.Barcode.Dy())
	assert.True(t, image.Pt(760, 130).In(l.Barcode))
}

func TestInBand(t *testing.T) {
	l := &Layout{BandTop: 100, BandBottom: 200}
	assert.False(t, l.InBand(100))
	assert.True(t, l.InBand(100.5))
	assert.True(t, l.InBand(199))
	assert.False(t, l.InBand(200))
	assert.False(t, l.InBand(20))
}

func TestNearest(t *testing.T) {
	l := &Layout{Labels: []Label{
		{Key: "a", Center: utils.Point{X: 0, Y: 0}},
		{Key: "b", Center: utils.Point{X: 10, Y: 0}},
		{Key: "c", Center: utils.Point{X: 20, Y: 0}},
	}}

	i, d := l.Nearest(utils.Point{X: 12, Y: 0})
	assert.Equal(t, 1, i)
	assert.InDelta(t, 2, d, 1e-9)

	// equidistant resolves to the first label
	i, _ = l.Nearest(utils.Point{X: 5, Y: 0})
	assert.Equal(t, 0, i)

	i, d = (&Layout{}).Nearest(utils.Point{})
	assert.Equal(t, -1, i)
	assert.True(t, math.IsInf(d, 1))
}

func TestToMM(t *testing.T) {
	assert.InDelta(t, 2.5, (&Layout{ScaleX: 4}).ToMM(10), 1e-9)
	assert.Zero(t, (&Layout{}).ToMM(10))
}

func TestParamsValidate(t *testing.T) {
	require.NoError(t, DefaultParams().Validate())

	tests := []struct {
		name   string
		mutate func(*Params)
	}{
		{"area order", func(p *Params) { p.MaxAreaRatio = p.MinAreaRatio }},
		{"area zero", func(p *Params) { p.MinAreaRatio = 0 }},
		{"radius order", func(p *Params) { p.MinRadiusRatio = 2 }},
		{"barcode size", func(p *Params) { p.BarcodeSizeMM = 0 }},
		{"barcode margin", func(p *Params) { p.BarcodeMargin = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultParams()
			tt.mutate(&p)
			assert.Error(t, p.Validate())
		})
	}
}

func TestNew_InvalidSize(t *testing.T) {
	_, err := New(testutil.Form(), 0, 10, calibrate.EdgeMarkers(10, 10), DefaultParams())
	assert.Error(t, err)
}
