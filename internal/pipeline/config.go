package pipeline

import (
	"errors"
	"fmt"
	"io"

	"github.com/MeKo-Tech/omrscan/internal/barcode"
	"github.com/MeKo-Tech/omrscan/internal/calibrate"
	"github.com/MeKo-Tech/omrscan/internal/layout"
	"github.com/MeKo-Tech/omrscan/internal/marks"
	"github.com/MeKo-Tech/omrscan/internal/pdf"
	"github.com/MeKo-Tech/omrscan/internal/report"
)

// DefaultMaxPages is the capacity ceiling of one session.
const DefaultMaxPages = 999

// Config holds the configuration of a scan session and its components.
type Config struct {
	Layout    layout.Params
	Marks     marks.Params
	Calibrate calibrate.Params

	BarcodeFormat barcode.Format

	// MaxPages aborts a session whose inputs hold more pages.
	MaxPages int

	// Rasterizer selects how PDF pages become images: "ghostscript" or
	// "embedded".
	Rasterizer      string
	Ghostscript     string
	DPI             int
	EnhanceContrast bool

	// TempDir is the parent of the session directory; empty means the
	// system default.
	TempDir string
	// KeepTemp leaves the session directory in place on Close.
	KeepTemp bool
	// Debug logs every reconciliation decision, outlines sampling windows
	// on the annotated pages and implies KeepTemp.
	Debug bool

	Palette  report.Palette
	Metadata report.Metadata
	// Host is printed on the title page.
	Host string

	// Status receives the status channel; nil disables it.
	Status io.Writer
	// Progress receives progress callbacks in addition to Status.
	Progress ProgressCallback
}

// DefaultConfig returns a default session config with component defaults.
func DefaultConfig() Config {
	return Config{
		Layout:        layout.DefaultParams(),
		Marks:         marks.DefaultParams(),
		Calibrate:     calibrate.DefaultParams(),
		BarcodeFormat: barcode.FormatDataMatrix,
		MaxPages:      DefaultMaxPages,
		Rasterizer:    pdf.RasterizerGhostscript,
		Ghostscript:   pdf.DefaultGhostscript,
		DPI:           int(report.DefaultDPI),
		Palette:       report.DefaultPalette(),
		Metadata:      report.DefaultMetadata(),
	}
}

// Validate checks the session configuration.
func (c Config) Validate() error {
	if c.MaxPages <= 0 {
		return fmt.Errorf("max pages must be positive, got %d", c.MaxPages)
	}
	if c.DPI <= 0 {
		return fmt.Errorf("dpi must be positive, got %d", c.DPI)
	}
	if c.BarcodeFormat == barcode.FormatUnknown {
		return errors.New("barcode format is required")
	}
	if err := c.Layout.Validate(); err != nil {
		return fmt.Errorf("layout: %w", err)
	}
	if err := c.Marks.Validate(); err != nil {
		return fmt.Errorf("marks: %w", err)
	}
	return nil
}

// Builder constructs a session Config with fluent configuration.
type Builder struct {
	cfg Config
}

// NewBuilder creates a new config builder with defaults.
func NewBuilder() *Builder { return &Builder{cfg: DefaultConfig()} }

// WithMaxPages sets the capacity ceiling.
func (b *Builder) WithMaxPages(n int) *Builder {
	b.cfg.MaxPages = n
	return b
}

// WithBarcodeFormat selects the identity symbology.
func (b *Builder) WithBarcodeFormat(f barcode.Format) *Builder {
	b.cfg.BarcodeFormat = f
	return b
}

// WithRasterizer selects the PDF rasterizer.
func (b *Builder) WithRasterizer(name string) *Builder {
	if name != "" {
		b.cfg.Rasterizer = name
	}
	return b
}

// WithTempDir sets the parent directory of session files.
func (b *Builder) WithTempDir(dir string) *Builder {
	b.cfg.TempDir = dir
	return b
}

// WithDebug enables debug renderings and keeps the session directory.
func (b *Builder) WithDebug(debug bool) *Builder {
	b.cfg.Debug = debug
	return b
}

// WithStatus sets the status channel writer.
func (b *Builder) WithStatus(w io.Writer) *Builder {
	b.cfg.Status = w
	return b
}

// WithHost sets the host name printed on the title page.
func (b *Builder) WithHost(host string) *Builder {
	b.cfg.Host = host
	return b
}

// WithUndersizedPolicy sets how marks at or below the minimum radius count.
func (b *Builder) WithUndersizedPolicy(p marks.UndersizedPolicy) *Builder {
	b.cfg.Marks.Undersized = p
	return b
}

// Config returns the built configuration.
func (b *Builder) Config() Config { return b.cfg }
