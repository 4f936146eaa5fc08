package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/MeKo-Tech/omrscan/internal/calibrate"
	"github.com/MeKo-Tech/omrscan/internal/layout"
	"github.com/MeKo-Tech/omrscan/internal/marks"
	"github.com/MeKo-Tech/omrscan/internal/report"
	"github.com/MeKo-Tech/omrscan/internal/results"
	"github.com/MeKo-Tech/omrscan/internal/utils"
	"github.com/MeKo-Tech/omrscan/internal/vision"
)

// Page is the outcome of one scanned page.
type Page struct {
	Index  int
	Source string
	// Markers are the reference rules found on the scan before alignment.
	Markers   calibrate.Markers
	Transform calibrate.Affine
	Code      string
	Detection marks.Detection
	Record    results.Record
	// Diagnostic is the annotated page image in the session directory.
	Diagnostic string
	Duration   time.Duration
}

// ProcessPage aligns the page image at path, reads its identity symbol and
// marks, and records the result and its annotated rendering.
func (s *Session) ProcessPage(ctx context.Context, path string) (Page, error) {
	if err := s.Prepare(ctx); err != nil {
		return Page{}, err
	}
	start := s.now()
	img, err := utils.LoadImage(path)
	if err != nil {
		return Page{}, err
	}
	gray := vision.ToGray(img)

	l := s.layout
	aligned, observed, affine := calibrate.Align(gray, l.Markers, l.Width, l.Height, s.cfg.Calibrate)

	code, err := s.decoder.Decode(ctx, aligned, l.Barcode)
	if err != nil {
		return Page{}, fmt.Errorf("decode barcode: %w", err)
	}
	if code == "" {
		s.metrics.DecodeFailures.Inc()
		slog.Warn("Barcode not decoded", "page", path)
	}

	det := marks.Detect(aligned, l, s.cfg.Marks)
	if s.cfg.Debug {
		logDecisions(path, det, l.Labels)
	}
	rec := results.Assemble(code, det.Marks, l)

	diag := report.Annotate(report.Scan{Aligned: aligned, Detection: det, Decoded: code != ""}, l, s.cfg.Palette, s.cfg.Debug)
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	diagPath := filepath.Join(s.tempDir, fmt.Sprintf("omr-%04d-%s.png", len(s.pages)+1, base))
	if err := utils.SavePNG(diagPath, diag); err != nil {
		return Page{}, fmt.Errorf("save annotated page: %w", err)
	}

	page := Page{
		Index:      len(s.pages) + 1,
		Source:     path,
		Markers:    observed,
		Transform:  affine,
		Code:       code,
		Detection:  det,
		Record:     rec,
		Diagnostic: diagPath,
		Duration:   s.now().Sub(start),
	}
	s.pages = append(s.pages, page)
	s.diagnostics = append(s.diagnostics, diagPath)

	s.metrics.Pages.Inc()
	s.metrics.observeDetection(det)
	s.metrics.PageDuration.Observe(page.Duration.Seconds())

	slog.Info("Page processed",
		"page", path,
		"code", code,
		"uid", rec.UID,
		"answers", rec.Answers,
		"rules", observed.Rules,
		"marks", len(det.Marks),
		"fallback", det.Count(marks.ClassFallback),
		"duration_ms", page.Duration.Milliseconds())
	return page, nil
}

func logDecisions(path string, det marks.Detection, lbls []layout.Label) {
	for _, d := range det.Decisions {
		attrs := []any{"page", path, "class", d.Class.String(), "distance", d.Distance}
		if d.Label >= 0 {
			attrs = append(attrs, "label", lbls[d.Label].Group+"/"+lbls[d.Label].Key)
		}
		if d.Blob >= 0 {
			b := det.Blobs[d.Blob]
			attrs = append(attrs, "radius", b.Radius, "area", b.Area, "fill", b.Fill)
		}
		slog.Debug("Reconciliation decision", attrs...)
	}
}

// WriteReport writes the title page followed by the annotated pages in
// processing order to path.
func (s *Session) WriteReport(path string) error {
	if s.layout == nil {
		return errors.New("session not prepared")
	}
	now := s.now()
	doc := report.NewDocument(s.cfg.Metadata, float64(s.cfg.DPI), now)

	title := report.TitlePage(s.reference, s.layout, s.cfg.Palette, report.BannerLines(s.host(), now))
	if err := doc.AddPage(title); err != nil {
		return fmt.Errorf("add title page: %w", err)
	}
	for _, p := range s.diagnostics {
		img, err := utils.LoadImage(p)
		if err != nil {
			return fmt.Errorf("load annotated page: %w", err)
		}
		if err := doc.AddPage(img); err != nil {
			return fmt.Errorf("add page %s: %w", p, err)
		}
	}
	if err := doc.Save(path); err != nil {
		return err
	}
	slog.Info("Report written", "path", path, "pages", doc.Pages())
	return nil
}

func (s *Session) host() string {
	if s.cfg.Host != "" {
		return s.cfg.Host
	}
	h, err := os.Hostname()
	if err != nil {
		return "localhost"
	}
	return h
}
