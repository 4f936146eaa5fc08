package cmd

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/omrscan/internal/labels"
	"github.com/MeKo-Tech/omrscan/internal/testutil"
)

type scanFixture struct {
	dir       string
	form      string
	reference string
}

func newScanFixture(t *testing.T) scanFixture {
	t.Helper()
	isolate(t)
	dir := t.TempDir()
	ref := filepath.Join(dir, "blank.png")
	testutil.SaveImage(t, testutil.Reference(), ref)
	return scanFixture{dir: dir, form: testutil.WriteForm(t, dir), reference: ref}
}

func (f scanFixture) sheet(t *testing.T, name string, s testutil.Sheet) string {
	t.Helper()
	path := filepath.Join(f.dir, name)
	testutil.SaveImage(t, testutil.Render(s), path)
	return path
}

func TestScanCommand(t *testing.T) {
	f := newScanFixture(t)
	a := f.sheet(t, "a.png", testutil.Sheet{Code: "EXAM-A", UID: "123456", Answers: "ABCDE"})
	b := f.sheet(t, "b.png", testutil.Sheet{Code: "EXAM-C"})
	report := filepath.Join(f.dir, "report.pdf")
	status := filepath.Join(f.dir, "status.txt")
	metrics := filepath.Join(f.dir, "omrscan.prom")

	out, _, err := executeCommand(t, "scan", f.form, a, b,
		"--reference", f.reference,
		"--report", report,
		"--status", status,
		"--metrics-file", metrics,
		"--barcode", "qr",
		"--temp-dir", t.TempDir(),
	)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"EXAM-A:\t:123456:ABCDE00000:",
		"EXAM-C:\t:------:0000000000:",
	}, strings.Split(strings.TrimSpace(out), "\n"))

	require.FileExists(t, report)

	data, err := os.ReadFile(status)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	assert.Equal(t, "ETA:?? sec (2 pages)", lines[0])
	assert.Contains(t, lines[len(lines)-1], "now writing OMR report")

	data, err = os.ReadFile(metrics)
	require.NoError(t, err)
	assert.Contains(t, string(data), "omrscan_pages_processed_total 2")
}

func TestScanCommand_NoReport(t *testing.T) {
	f := newScanFixture(t)
	a := f.sheet(t, "a.png", testutil.Sheet{Code: "X1", Answers: "C"})

	out, _, err := executeCommand(t, "scan", f.form, a,
		"--reference", f.reference,
		"--report", "-",
		"--status", "none",
		"--barcode", "qr",
		"--temp-dir", t.TempDir(),
	)
	require.NoError(t, err)
	assert.Equal(t, "X1:\t:------:C000000000:\n", out)

	_, statErr := os.Stat(filepath.Join(f.dir, defaultReportPath))
	assert.True(t, os.IsNotExist(statErr))
}

func TestScanCommand_Capacity(t *testing.T) {
	f := newScanFixture(t)
	a := f.sheet(t, "a.png", testutil.Sheet{})
	b := f.sheet(t, "b.png", testutil.Sheet{})

	out, errOut, err := executeCommand(t, "scan", f.form, a, b,
		"--reference", f.reference,
		"--report", "-",
		"--max-pages", "1",
		"--temp-dir", t.TempDir(),
	)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "too many pages: 2 > 1")
	assert.Empty(t, out)
	assert.Contains(t, errOut, "FAIL: too many pages: 2 > 1")

	// the ceiling is checked before the reference is loaded
	_, errOut, err = executeCommand(t, "scan", f.form, a, b,
		"--reference", filepath.Join(f.dir, "absent.png"),
		"--report", "-",
		"--max-pages", "1",
		"--temp-dir", t.TempDir(),
	)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "too many pages: 2 > 1")
	assert.NotContains(t, errOut, "load reference")
}

func TestScanCommand_PageFailurePrintsNothing(t *testing.T) {
	f := newScanFixture(t)
	a := f.sheet(t, "a.png", testutil.Sheet{Code: "EXAM-A", Answers: "A"})
	broken := filepath.Join(f.dir, "broken.png")
	require.NoError(t, os.WriteFile(broken, []byte("not a png"), 0o600))
	metrics := filepath.Join(f.dir, "omrscan.prom")

	out, errOut, err := executeCommand(t, "scan", f.form, a, broken,
		"--reference", f.reference,
		"--report", "-",
		"--barcode", "qr",
		"--metrics-file", metrics,
		"--temp-dir", t.TempDir(),
	)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "page 2")
	assert.Empty(t, out)
	assert.Contains(t, errOut, "FAIL: page 2")

	data, err := os.ReadFile(metrics) //nolint:gosec // G304: test path
	require.NoError(t, err)
	assert.Contains(t, string(data), "omrscan_pages_processed_total 1")
}

func TestScanCommand_Errors(t *testing.T) {
	f := newScanFixture(t)
	a := f.sheet(t, "a.png", testutil.Sheet{})

	_, _, err := executeCommand(t, "scan", f.form)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "requires at least 2 arg(s)")

	_, _, err = executeCommand(t, "scan", f.form, a, "--reference", f.reference, "--barcode", "aztec")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid barcode format")

	_, _, err = executeCommand(t, "scan", f.form, a, "--reference", f.reference, "--undersized", "maybe")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "undersized_policy")

	_, _, err = executeCommand(t, "scan", f.form, a,
		"--reference", filepath.Join(f.dir, "absent.png"), "--temp-dir", t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load reference")

	_, _, err = executeCommand(t, "scan", f.form, a, "--reference", f.reference,
		"--status", filepath.Join(f.dir, "missing", "status.txt"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "open status file")
}

func TestLayoutCommand(t *testing.T) {
	f := newScanFixture(t)
	overview := filepath.Join(f.dir, "overview.png")
	export := filepath.Join(f.dir, "form.yaml")

	out, _, err := executeCommand(t, "layout", f.form,
		"--reference", f.reference,
		"--overview", overview,
		"--export", export,
	)
	require.NoError(t, err)
	assert.Contains(t, out, "page:\t840x1188 px (4.000 x 4.000 px/mm)")
	assert.Contains(t, out, "labels:\t110")
	assert.Contains(t, out, "group UID:\t1..6 (6 fields, 60 bubbles)")
	assert.Contains(t, out, "group ans:\t1..10 (10 fields, 50 bubbles)")
	assert.Contains(t, out, "radius:\t8.00 px (2.00 mm)")
	assert.Contains(t, out, "(2 rules)")

	want, err := labels.Load(f.form)
	require.NoError(t, err)
	got, err := labels.Load(export)
	require.NoError(t, err)
	assert.Equal(t, want.Labels(), got.Labels())

	img := testutil.LoadImage(t, overview)
	assert.Equal(t, testutil.PageWidth, img.Bounds().Dx())
	assert.Equal(t, testutil.PageHeight, img.Bounds().Dy())
}

func TestOpenStatus(t *testing.T) {
	var stderr strings.Builder
	w, done, err := openStatus("", &stderr)
	require.NoError(t, err)
	assert.Same(t, &stderr, w)
	done()

	w, done, err = openStatus(statusNone, &stderr)
	require.NoError(t, err)
	assert.Nil(t, w)
	done()

	path := filepath.Join(t.TempDir(), "s.txt")
	w, done, err = openStatus(path, &stderr)
	require.NoError(t, err)
	_, err = w.Write([]byte("ETA:?? sec (1 pages)\n"))
	require.NoError(t, err)
	done()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "ETA:?? sec (1 pages)\n", string(data))
}
