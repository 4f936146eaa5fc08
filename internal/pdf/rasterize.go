package pdf

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/MeKo-Tech/omrscan/internal/utils"
	"github.com/MeKo-Tech/omrscan/internal/vision"
)

// Rasterizer names.
const (
	RasterizerGhostscript = "ghostscript"
	RasterizerEmbedded    = "embedded"
)

// DefaultGhostscript is the Ghostscript executable looked up on PATH.
const DefaultGhostscript = "gs"

// ExternalToolError reports a helper program that could not be run or
// exited unsuccessfully.
type ExternalToolError struct {
	Tool     string
	Args     []string
	ExitCode int
	Output   string
	Err      error
}

func (e *ExternalToolError) Error() string {
	out := strings.TrimSpace(e.Output)
	if out != "" {
		return fmt.Sprintf("%s failed (exit status %d): %v: %s", e.Tool, e.ExitCode, e.Err, out)
	}
	return fmt.Sprintf("%s failed (exit status %d): %v", e.Tool, e.ExitCode, e.Err)
}

func (e *ExternalToolError) Unwrap() error { return e.Err }

// Rasterizer renders the pages of a PDF to grayscale PNG files.
type Rasterizer interface {
	// Rasterize writes the pages of path into outDir as <prefix>-NNN.png and
	// returns them in page order. With firstOnly only page one is rendered.
	Rasterize(ctx context.Context, path, outDir, prefix string, firstOnly bool) ([]string, error)
}

// NewRasterizer returns the rasterizer called name.
func NewRasterizer(name, ghostscript string, dpi int) (Rasterizer, error) {
	switch strings.ToLower(name) {
	case "", RasterizerGhostscript:
		return &Ghostscript{Command: ghostscript, DPI: dpi}, nil
	case RasterizerEmbedded:
		return Embedded{}, nil
	default:
		return nil, fmt.Errorf("unknown rasterizer %q", name)
	}
}

// Ghostscript renders pages with the gs pnggray device.
type Ghostscript struct {
	Command string
	DPI     int
}

func (g *Ghostscript) args(path, outDir, prefix string, firstOnly bool) []string {
	dpi := g.DPI
	if dpi <= 0 {
		dpi = 200
	}
	args := []string{
		"-dSAFER", "-dBATCH", "-dNOPAUSE",
		"-r" + strconv.Itoa(dpi),
		"-sDEVICE=pnggray",
		"-sPAPERSIZE=a4",
	}
	if firstOnly {
		args = append(args, "-dLastPage=1")
	}
	return append(args,
		"-dTextAlphaBits=1", "-dGraphicsAlphaBits=1",
		"-sOutputFile="+filepath.Join(outDir, prefix+"-%03d.png"),
		path,
	)
}

func (g *Ghostscript) Rasterize(ctx context.Context, path, outDir, prefix string, firstOnly bool) ([]string, error) {
	tool := g.Command
	if tool == "" {
		tool = DefaultGhostscript
	}
	args := g.args(path, outDir, prefix, firstOnly)
	slog.Debug("Running rasterizer", "tool", tool, "args", strings.Join(args, " "))

	cmd := exec.CommandContext(ctx, tool, args...) //nolint:gosec // G204: configured rasterizer command
	output, err := cmd.CombinedOutput()
	if err != nil {
		code := -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			code = exitErr.ExitCode()
		}
		return nil, &ExternalToolError{Tool: tool, Args: args, ExitCode: code, Output: string(output), Err: err}
	}

	pages, err := filepath.Glob(filepath.Join(outDir, prefix+"-[0-9][0-9][0-9].png"))
	if err != nil {
		return nil, fmt.Errorf("list rasterized pages: %w", err)
	}
	sort.Strings(pages)
	return pages, nil
}

// Embedded extracts the scan images stored in the PDF instead of rendering
// it. It suits PDFs produced by document scanners, one image per page.
type Embedded struct{}

func (Embedded) Rasterize(_ context.Context, path, outDir, prefix string, firstOnly bool) ([]string, error) {
	pages, err := ExtractPageImages(path, outDir, prefix)
	if err != nil {
		return nil, err
	}
	if firstOnly && len(pages) > 1 {
		pages = pages[:1]
	}
	return pages, nil
}

// RenderReference returns the first page of the form PDF at path as a
// grayscale image.
func RenderReference(ctx context.Context, r Rasterizer, path, workDir string) (*image.Gray, error) {
	pages, err := r.Rasterize(ctx, path, workDir, "reference", true)
	if err != nil {
		return nil, err
	}
	if len(pages) == 0 {
		return nil, fmt.Errorf("no page rendered from %s", path)
	}
	img, err := utils.LoadImage(pages[0])
	if err != nil {
		return nil, err
	}
	return vision.ToGray(img), nil
}
