// Package pipeline runs scan sessions: it expands the inputs into pages,
// processes them strictly in order and writes the records and the
// diagnostic report.
package pipeline

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/MeKo-Tech/omrscan/internal/barcode"
	"github.com/MeKo-Tech/omrscan/internal/labels"
	"github.com/MeKo-Tech/omrscan/internal/layout"
	"github.com/MeKo-Tech/omrscan/internal/pdf"
	"github.com/MeKo-Tech/omrscan/internal/results"
	"github.com/MeKo-Tech/omrscan/internal/utils"
	"github.com/MeKo-Tech/omrscan/internal/vision"
)

// PagePrefix starts the names of rasterized input pages.
const PagePrefix = "omr-marks-"

// Session owns the per-form state of a scan run: label database, canonical
// layout, temp directory and the results gathered so far.
type Session struct {
	cfg           Config
	db            *labels.Database
	formPath      string
	referencePath string
	layout        *layout.Layout
	reference     *image.Gray
	decoder       *barcode.Decoder
	rasterizer    pdf.Rasterizer
	progress      ProgressCallback
	metrics       *Metrics
	now           func() time.Time

	tempDir     string
	pages       []Page
	diagnostics []string
}

// ReferencePath returns the default reference rendering of a form: the PDF
// next to the label database.
func ReferencePath(formPath string) string {
	return strings.TrimSuffix(formPath, filepath.Ext(formPath)) + ".pdf"
}

// NewSession loads the label database at formPath and prepares the
// rasterizer. The reference (an image, or the first page of a PDF; empty
// means ReferencePath) is rendered lazily by Prepare, so an oversized batch
// is rejected before any page is rendered.
func NewSession(cfg Config, formPath, referencePath string) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	db, err := labels.Load(formPath)
	if err != nil {
		return nil, err
	}
	rasterizer, err := pdf.NewRasterizer(cfg.Rasterizer, cfg.Ghostscript, cfg.DPI)
	if err != nil {
		return nil, err
	}
	if referencePath == "" {
		referencePath = ReferencePath(formPath)
	}

	s := &Session{
		cfg:           cfg,
		db:            db,
		formPath:      formPath,
		referencePath: referencePath,
		decoder:       barcode.NewDecoder(cfg.BarcodeFormat),
		rasterizer:    rasterizer,
		metrics:       NewMetrics(),
		now:           time.Now,
	}
	s.progress = s.buildProgress()
	return s, nil
}

// Prepare creates the session directory, renders the reference and derives
// the canonical layout. It runs once; later calls return the first result.
func (s *Session) Prepare(ctx context.Context) error {
	if s.layout != nil {
		return nil
	}
	if s.tempDir == "" {
		tempDir, err := os.MkdirTemp(s.cfg.TempDir, "omrscan-*")
		if err != nil {
			return fmt.Errorf("failed to create session directory: %w", err)
		}
		s.tempDir = tempDir
	}

	ref, err := s.loadReference(ctx, s.referencePath)
	if err != nil {
		return err
	}
	l, err := layout.FromReference(s.db, ref, s.cfg.Layout, s.cfg.Calibrate)
	if err != nil {
		return fmt.Errorf("derive layout: %w", err)
	}
	if l.Markers.Rules < 2 {
		slog.Warn("Reference rules not found, using page edges", "reference", s.referencePath, "rules", l.Markers.Rules)
	}
	s.reference = ref
	s.layout = l

	slog.Info("Scan session ready",
		"form", s.formPath,
		"reference", s.referencePath,
		"labels", len(l.Labels),
		"radius", l.BubbleRadius,
		"temp_dir", s.tempDir)
	return nil
}

func (s *Session) buildProgress() ProgressCallback {
	multi := NewMultiProgressCallback()
	if s.cfg.Status != nil {
		multi.Add(NewStatusProgress(s.cfg.Status))
	}
	if s.cfg.Progress != nil {
		multi.Add(s.cfg.Progress)
	}
	multi.Add(NewLogProgressCallback(context.Background(), slog.Default(), slog.LevelDebug))
	return multi
}

func (s *Session) loadReference(ctx context.Context, path string) (*image.Gray, error) {
	if utils.IsPDF(path) {
		ref, err := pdf.RenderReference(ctx, s.rasterizer, path, s.tempDir)
		if err != nil {
			return nil, fmt.Errorf("render reference %s: %w", path, err)
		}
		return ref, nil
	}
	img, err := utils.LoadImage(path)
	if err != nil {
		return nil, fmt.Errorf("load reference %s: %w", path, err)
	}
	return vision.ToGray(img), nil
}

// Layout returns the canonical layout of the session, nil before Prepare.
func (s *Session) Layout() *layout.Layout { return s.layout }

// Database returns the label database of the session.
func (s *Session) Database() *labels.Database { return s.db }

// Reference returns the reference rendering.
func (s *Session) Reference() *image.Gray { return s.reference }

// TempDir returns the session directory.
func (s *Session) TempDir() string { return s.tempDir }

// Metrics returns the session metrics.
func (s *Session) Metrics() *Metrics { return s.metrics }

// Pages returns the pages processed so far, in order.
func (s *Session) Pages() []Page { return s.pages }

// Records returns the result records gathered so far, in page order.
func (s *Session) Records() []results.Record {
	out := make([]results.Record, len(s.pages))
	for i, p := range s.pages {
		out[i] = p.Record
	}
	return out
}

// Close removes the session directory unless debugging or keep_temp is set.
func (s *Session) Close() error {
	if s.tempDir == "" {
		return nil
	}
	if s.cfg.Debug || s.cfg.KeepTemp {
		slog.Info("Keeping session directory", "temp_dir", s.tempDir)
		return nil
	}
	err := os.RemoveAll(s.tempDir)
	s.tempDir = ""
	return err
}

// Run processes every page of inputs and, when reportPath is not empty,
// writes the diagnostic report. It fails before any setup when the inputs
// hold more than MaxPages pages. A failing page aborts the batch and no
// records are returned.
func (s *Session) Run(ctx context.Context, inputs []string, reportPath string) ([]results.Record, error) {
	total, err := pdf.CountPages(inputs)
	if err != nil {
		s.progress.OnError(err)
		return nil, err
	}
	s.progress.OnStart(total)
	if total > s.cfg.MaxPages {
		capErr := &CapacityError{Pages: total, Limit: s.cfg.MaxPages}
		s.progress.OnError(capErr)
		return nil, capErr
	}
	if err := s.Prepare(ctx); err != nil {
		s.progress.OnError(err)
		return nil, err
	}

	todo, err := s.expand(ctx, inputs, total)
	if err != nil {
		s.progress.OnError(err)
		return nil, err
	}
	s.progress.OnNote("extraction finished")

	for i, path := range todo {
		if _, err := s.ProcessPage(ctx, path); err != nil {
			pageErr := &PageError{Index: i + 1, Source: path, Err: err}
			s.progress.OnError(pageErr)
			return nil, pageErr
		}
		s.progress.OnProgress(i+1, len(todo))
	}
	s.progress.OnComplete()

	if reportPath != "" {
		if err := s.WriteReport(reportPath); err != nil {
			return nil, err
		}
	}
	return s.Records(), nil
}

// pagePrefix names the rasterized pages of the i-th input. The input
// position keeps inputs sharing a basename apart.
func pagePrefix(i int, input string) string {
	base := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
	return fmt.Sprintf("%s%03d-%s", PagePrefix, i+1, base)
}

// expand turns the inputs into page image paths: PDFs are rasterized into
// the session directory, images are used in place.
func (s *Session) expand(ctx context.Context, inputs []string, total int) ([]string, error) {
	var todo []string
	for i, in := range inputs {
		if !utils.IsPDF(in) {
			todo = append(todo, in)
			s.progress.OnNote(fmt.Sprintf("extracted %d/%d", len(todo), total))
			continue
		}
		pages, err := s.rasterizer.Rasterize(ctx, in, s.tempDir, pagePrefix(i, in), false)
		if err != nil {
			return nil, fmt.Errorf("rasterize %s: %w", in, err)
		}
		if s.cfg.EnhanceContrast {
			for _, p := range pages {
				slog.Debug("Enhancing page contrast", "page", p)
				if err := pdf.EnhanceFile(p); err != nil {
					return nil, fmt.Errorf("enhance %s: %w", p, err)
				}
			}
		}
		todo = append(todo, pages...)
		s.progress.OnNote(fmt.Sprintf("extracted %d/%d", len(todo), total))
	}
	return todo, nil
}
