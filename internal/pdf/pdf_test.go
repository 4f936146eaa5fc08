package pdf

import (
	"context"
	"errors"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/omrscan/internal/report"
	"github.com/MeKo-Tech/omrscan/internal/utils"
)

func grayPage(w, h int, v uint8) *image.Gray {
	g := image.NewGray(image.Rect(0, 0, w, h))
	for i := range g.Pix {
		g.Pix[i] = v
	}
	return g
}

// writeScanPDF writes a PDF with one embedded image per page.
func writeScanPDF(t *testing.T, dir, name string, pages ...image.Image) string {
	t.Helper()
	doc := report.NewDocument(report.DefaultMetadata(), report.DefaultDPI, time.Now())
	for _, p := range pages {
		require.NoError(t, doc.AddPage(p))
	}
	path := filepath.Join(dir, name)
	require.NoError(t, doc.Save(path))
	return path
}

func TestPageCount(t *testing.T) {
	dir := t.TempDir()
	path := writeScanPDF(t, dir, "scans.pdf", grayPage(40, 60, 200), grayPage(40, 60, 100))

	n, err := PageCount(path)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	img := filepath.Join(dir, "single.png")
	require.NoError(t, utils.SavePNG(img, grayPage(10, 10, 255)))
	total, err := CountPages([]string{path, img, path})
	require.NoError(t, err)
	assert.Equal(t, 5, total)

	_, err = CountPages([]string{filepath.Join(dir, "missing.pdf")})
	assert.Error(t, err)
}

func TestExtractPageImages(t *testing.T) {
	dir := t.TempDir()
	path := writeScanPDF(t, dir, "scans.pdf", grayPage(40, 60, 200), grayPage(50, 30, 100))
	out := t.TempDir()

	pages, err := ExtractPageImages(path, out, "omr-marks-scans")
	require.NoError(t, err)
	require.Len(t, pages, 2)
	assert.Equal(t, filepath.Join(out, "omr-marks-scans-001.png"), pages[0])

	img, err := utils.LoadImage(pages[1])
	require.NoError(t, err)
	assert.Equal(t, 50, img.Bounds().Dx())
	assert.Equal(t, 30, img.Bounds().Dy())

	first, err := Embedded{}.Rasterize(context.Background(), path, t.TempDir(), "ref", true)
	require.NoError(t, err)
	assert.Len(t, first, 1)
}

func TestParsePageFromFilename(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		want    int
		wantErr bool
	}{
		{"png", "scans_1_Im0.png", 1, false},
		{"jpg", "scans_12_Im3.jpg", 12, false},
		{"other base", "other_1_Im0.png", 0, true},
		{"no id", "scans_1.png", 0, true},
		{"not a number", "scans_x_Im0.png", 0, true},
		{"zero", "scans_0_Im0.png", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parsePageFromFilename(tt.file, "scans")
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGhostscriptArgs(t *testing.T) {
	g := &Ghostscript{DPI: 150}
	args := g.args("in.pdf", "/tmp/x", "reference", true)
	assert.Contains(t, args, "-r150")
	assert.Contains(t, args, "-sDEVICE=pnggray")
	assert.Contains(t, args, "-dLastPage=1")
	assert.Equal(t, "-sOutputFile="+filepath.Join("/tmp/x", "reference-%03d.png"), args[len(args)-2])
	assert.Equal(t, "in.pdf", args[len(args)-1])

	all := (&Ghostscript{}).args("in.pdf", "/tmp/x", "p", false)
	assert.Contains(t, all, "-r200")
	assert.NotContains(t, all, "-dLastPage=1")
}

func fakeTool(t *testing.T, script string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts required")
	}
	path := filepath.Join(t.TempDir(), "fake-gs")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+script), 0o700))
	return path
}

func TestGhostscript_Rasterize(t *testing.T) {
	src := filepath.Join(t.TempDir(), "page.png")
	require.NoError(t, utils.SavePNG(src, grayPage(20, 20, 0)))
	tool := fakeTool(t, `for a in "$@"; do
  case "$a" in -sOutputFile=*) out="${a#-sOutputFile=}";; esac
done
cp "`+src+`" "$(printf "$out" 2)"
cp "`+src+`" "$(printf "$out" 1)"
`)

	out := t.TempDir()
	pages, err := (&Ghostscript{Command: tool}).Rasterize(context.Background(), "in.pdf", out, "omr-marks-in", false)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(out, "omr-marks-in-001.png"),
		filepath.Join(out, "omr-marks-in-002.png"),
	}, pages)

	ref, err := RenderReference(context.Background(), &Ghostscript{Command: tool}, "form.pdf", t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, 20, ref.Bounds().Dx())
}

func TestGhostscript_RasterizeIgnoresLongerPrefix(t *testing.T) {
	src := filepath.Join(t.TempDir(), "page.png")
	require.NoError(t, utils.SavePNG(src, grayPage(20, 20, 0)))
	tool := fakeTool(t, `for a in "$@"; do
  case "$a" in -sOutputFile=*) out="${a#-sOutputFile=}";; esac
done
cp "`+src+`" "$(printf "$out" 1)"
`)

	out := t.TempDir()
	other := filepath.Join(out, "scan-2-001.png")
	require.NoError(t, utils.SavePNG(other, grayPage(20, 20, 0)))

	pages, err := (&Ghostscript{Command: tool}).Rasterize(context.Background(), "scan.pdf", out, "scan", false)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(out, "scan-001.png")}, pages)
}

func TestGhostscript_Failure(t *testing.T) {
	tool := fakeTool(t, "echo 'Error: /undefinedfilename' >&2\nexit 3\n")

	_, err := (&Ghostscript{Command: tool}).Rasterize(context.Background(), "in.pdf", t.TempDir(), "p", false)
	var toolErr *ExternalToolError
	require.True(t, errors.As(err, &toolErr))
	assert.Equal(t, 3, toolErr.ExitCode)
	assert.Contains(t, toolErr.Output, "undefinedfilename")
	assert.Contains(t, err.Error(), "exit status 3")
}

func TestGhostscript_Missing(t *testing.T) {
	_, err := (&Ghostscript{Command: filepath.Join(t.TempDir(), "no-such-gs")}).Rasterize(context.Background(), "in.pdf", t.TempDir(), "p", false)
	var toolErr *ExternalToolError
	require.ErrorAs(t, err, &toolErr)
	assert.Equal(t, -1, toolErr.ExitCode)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestNewRasterizer(t *testing.T) {
	r, err := NewRasterizer("", "", 200)
	require.NoError(t, err)
	assert.IsType(t, &Ghostscript{}, r)

	r, err = NewRasterizer("embedded", "", 0)
	require.NoError(t, err)
	assert.IsType(t, Embedded{}, r)

	_, err = NewRasterizer("magick", "", 0)
	assert.Error(t, err)
}

func TestAutoLevel(t *testing.T) {
	g := image.NewGray(image.Rect(0, 0, 3, 1))
	g.Pix = []uint8{50, 100, 150}
	out := AutoLevel(g)
	assert.Equal(t, []uint8{0, 128, 255}, out.Pix)

	flat := AutoLevel(grayPage(2, 2, 77))
	assert.Equal(t, []uint8{77, 77, 77, 77}, flat.Pix)
}

func TestEnhanceContrast(t *testing.T) {
	g := image.NewGray(image.Rect(0, 0, 4, 1))
	g.Pix = []uint8{60, 100, 140, 180}
	out := EnhanceContrast(g)
	require.Len(t, out.Pix, 4)
	assert.Less(t, out.Pix[0], uint8(10))
	assert.Greater(t, out.Pix[3], uint8(245))
	// the curve stays monotonic
	for i := 1; i < len(out.Pix); i++ {
		assert.GreaterOrEqual(t, out.Pix[i], out.Pix[i-1])
	}
	assert.Equal(t, color.Gray{Y: out.Pix[1]}, out.GrayAt(1, 0))
}

func TestEnhanceFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "p.png")
	require.NoError(t, utils.SavePNG(path, grayPage(4, 4, 90)))
	require.NoError(t, EnhanceFile(path))
	_, err := os.Stat(path)
	require.NoError(t, err)
}
