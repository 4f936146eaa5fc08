package marks

import (
	"image"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/omrscan/internal/calibrate"
	"github.com/MeKo-Tech/omrscan/internal/layout"
	"github.com/MeKo-Tech/omrscan/internal/testutil"
	"github.com/MeKo-Tech/omrscan/internal/vision"
)

func sheetLayout(t *testing.T) *layout.Layout {
	t.Helper()
	l, err := layout.FromReference(testutil.Form(), testutil.Reference(), layout.DefaultParams(), calibrate.DefaultParams())
	require.NoError(t, err)
	return l
}

func markKeys(marks []Mark) []string {
	var keys []string
	for _, m := range marks {
		keys = append(keys, m.Group+"/"+m.Key)
	}
	sort.Strings(keys)
	return keys
}

func TestSampleCandidates(t *testing.T) {
	l := sheetLayout(t)
	page := testutil.Render(testutil.Sheet{UID: "9-----", Answers: "00C"})

	c := SampleCandidates(page, l, DefaultParams())
	require.Len(t, c.Means, len(l.Labels))
	require.Len(t, c.Labels, 2)
	assert.Equal(t, "9", l.Labels[c.Labels[0]].Value)
	assert.Equal(t, "3:C", l.Labels[c.Labels[1]].Key)
	assert.True(t, c.Contains(c.Labels[1]))
	assert.False(t, c.Contains(0))
	// a printed outline alone stays well above the threshold
	assert.Greater(t, c.Means[0], 160.0)
}

func TestExtractBlobs(t *testing.T) {
	l := sheetLayout(t)
	page := testutil.Render(testutil.Sheet{Answers: "AB"})

	var blobs []Blob
	for _, b := range ExtractBlobs(vision.Smooth(page, vision.DefaultSmoothSigma), l, DefaultParams()) {
		if l.InBand(b.Center.Y) {
			blobs = append(blobs, b)
		}
	}
	require.Len(t, blobs, 2)
	for _, b := range blobs {
		assert.Greater(t, b.Radius, l.MinRadius)
		assert.Less(t, b.Radius, l.MaxRadius)
		assert.Less(t, b.Fill, 140.0)
		assert.Greater(t, b.Area, l.MinArea)
	}
	centers := []image.Point{testutil.AnswerCenter(1, 0), testutil.AnswerCenter(2, 1)}
	for i, b := range blobs {
		assert.InDelta(t, float64(centers[i].X), b.Center.X, 1.5)
		assert.InDelta(t, float64(centers[i].Y), b.Center.Y, 1.5)
	}
}

func TestDetect(t *testing.T) {
	l := sheetLayout(t)
	page := testutil.Render(testutil.Sheet{
		UID:     "31-5",
		Answers: "A0E",
		Stray:   []image.Point{{X: 600, Y: 700}, {X: 400, Y: 80}},
	})

	d := Detect(page, l, DefaultParams())
	assert.Equal(t, []string{"UID/1:3", "UID/2:1", "UID/4:5", "ans/1:A", "ans/3:E"}, markKeys(d.Marks))
	for _, m := range d.Marks {
		assert.Equal(t, ClassOK, m.Class)
	}
	assert.Equal(t, 1, d.Count(ClassIgnored))
	assert.GreaterOrEqual(t, d.OutOfBand, 1)
	assert.Zero(t, d.Count(ClassFallback))
}

func TestDetect_BlankPage(t *testing.T) {
	l := sheetLayout(t)
	d := Detect(testutil.Reference(), l, DefaultParams())
	assert.Empty(t, d.Marks)
	assert.Empty(t, d.Candidates.Labels)
	assert.Empty(t, d.Decisions)
}
