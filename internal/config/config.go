package config

import (
	"fmt"
	"slices"
	"strings"

	"github.com/MeKo-Tech/omrscan/internal/barcode"
	"github.com/MeKo-Tech/omrscan/internal/calibrate"
	"github.com/MeKo-Tech/omrscan/internal/layout"
	"github.com/MeKo-Tech/omrscan/internal/marks"
	"github.com/MeKo-Tech/omrscan/internal/pdf"
	"github.com/MeKo-Tech/omrscan/internal/pipeline"
	"github.com/MeKo-Tech/omrscan/internal/report"
)

// DefaultConfig returns a configuration with the component defaults.
func DefaultConfig() Config {
	p := pipeline.DefaultConfig()
	meta := report.DefaultMetadata()
	return Config{
		LogLevel:  "info",
		Scan:      fromMarksParams(p.Marks),
		Layout:    fromLayoutParams(p.Layout),
		Calibrate: fromCalibrateParams(p.Calibrate),
		Barcode:   BarcodeConfig{Format: p.BarcodeFormat.String()},
		Batch: BatchConfig{
			MaxPages:    p.MaxPages,
			Rasterizer:  p.Rasterizer,
			Ghostscript: p.Ghostscript,
			DPI:         p.DPI,
		},
		Report: ReportConfig{
			Title:   meta.Title,
			Author:  meta.Author,
			Subject: meta.Subject,
			Palette: map[string]string{},
		},
	}
}

func fromMarksParams(p marks.Params) ScanConfig {
	return ScanConfig{
		FillThreshold:        p.FillThreshold,
		ContourFillThreshold: p.ContourFillThreshold,
		Isoperimetric:        p.Isoperimetric,
		WindowRatio:          p.WindowRatio,
		MatchRatio:           p.MatchRatio,
		SmoothSigma:          p.SmoothSigma,
		UndersizedPolicy:     p.Undersized.String(),
	}
}

func fromLayoutParams(p layout.Params) LayoutConfig {
	return LayoutConfig{
		AnchorOffset:    p.AnchorOffset,
		MinAreaRatio:    p.MinAreaRatio,
		MaxAreaRatio:    p.MaxAreaRatio,
		MinRadiusRatio:  p.MinRadiusRatio,
		MaxRadiusRatio:  p.MaxRadiusRatio,
		BarcodeOffsetMM: p.BarcodeOffsetMM,
		BarcodeSizeMM:   p.BarcodeSizeMM,
		BarcodeMargin:   p.BarcodeMargin,
	}
}

func fromCalibrateParams(p calibrate.Params) CalibrateConfig {
	return CalibrateConfig{
		SmoothSigma:    p.SmoothSigma,
		MinWidthRatio:  p.MinWidthRatio,
		MaxHeightRatio: p.MaxHeightRatio,
	}
}

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	validLogLevels := []string{"debug", "info", "warn", "error"}
	if !slices.Contains(validLogLevels, c.LogLevel) {
		return fmt.Errorf("invalid log level: %s (must be one of: %s)", c.LogLevel, strings.Join(validLogLevels, ", "))
	}

	validRasterizers := []string{pdf.RasterizerGhostscript, pdf.RasterizerEmbedded}
	if !slices.Contains(validRasterizers, c.Batch.Rasterizer) {
		return fmt.Errorf("invalid rasterizer: %s (must be one of: %s)", c.Batch.Rasterizer, strings.Join(validRasterizers, ", "))
	}
	if c.Batch.MaxPages <= 0 {
		return fmt.Errorf("invalid batch max pages: %d (must be positive)", c.Batch.MaxPages)
	}
	if c.Batch.DPI <= 0 {
		return fmt.Errorf("invalid batch dpi: %d (must be positive)", c.Batch.DPI)
	}

	if _, err := barcode.ParseFormat(c.Barcode.Format); err != nil {
		return fmt.Errorf("invalid barcode format: %w", err)
	}
	if _, err := marks.ParseUndersizedPolicy(c.Scan.UndersizedPolicy); err != nil {
		return fmt.Errorf("invalid scan.undersized_policy: %w", err)
	}
	if _, err := report.DefaultPalette().WithOverrides(c.Report.Palette); err != nil {
		return fmt.Errorf("invalid report palette: %w", err)
	}

	if err := c.toMarksParams().Validate(); err != nil {
		return fmt.Errorf("invalid scan thresholds: %w", err)
	}
	if err := c.toLayoutParams().Validate(); err != nil {
		return fmt.Errorf("invalid layout ratios: %w", err)
	}
	if err := validateRatio(c.Calibrate.MinWidthRatio, "calibrate.min_width_ratio"); err != nil {
		return err
	}
	return validateRatio(c.Calibrate.MaxHeightRatio, "calibrate.max_height_ratio")
}

// ToPipelineConfig converts the config to the session configuration.
func (c *Config) ToPipelineConfig() (pipeline.Config, error) {
	format, err := barcode.ParseFormat(c.Barcode.Format)
	if err != nil {
		return pipeline.Config{}, err
	}
	pal, err := report.DefaultPalette().WithOverrides(c.Report.Palette)
	if err != nil {
		return pipeline.Config{}, err
	}
	mp := c.toMarksParams()
	if mp.Undersized, err = marks.ParseUndersizedPolicy(c.Scan.UndersizedPolicy); err != nil {
		return pipeline.Config{}, err
	}

	cfg := pipeline.DefaultConfig()
	cfg.Layout = c.toLayoutParams()
	cfg.Marks = mp
	cfg.Calibrate = c.toCalibrateParams()
	cfg.BarcodeFormat = format
	cfg.MaxPages = c.Batch.MaxPages
	cfg.Rasterizer = c.Batch.Rasterizer
	if c.Batch.Ghostscript != "" {
		cfg.Ghostscript = c.Batch.Ghostscript
	}
	cfg.DPI = c.Batch.DPI
	cfg.EnhanceContrast = c.Batch.EnhanceContrast
	cfg.TempDir = c.Batch.TempDir
	cfg.KeepTemp = c.Batch.KeepTemp
	cfg.Debug = c.Debug
	cfg.Palette = pal
	if c.Report.Title != "" {
		cfg.Metadata.Title = c.Report.Title
	}
	if c.Report.Author != "" {
		cfg.Metadata.Author = c.Report.Author
	}
	if c.Report.Subject != "" {
		cfg.Metadata.Subject = c.Report.Subject
	}
	return cfg, nil
}

// toMarksParams converts to marks.Params; the undersized policy is parsed
// separately.
func (c *Config) toMarksParams() marks.Params {
	p := marks.DefaultParams()
	p.FillThreshold = c.Scan.FillThreshold
	p.ContourFillThreshold = c.Scan.ContourFillThreshold
	p.Isoperimetric = c.Scan.Isoperimetric
	p.WindowRatio = c.Scan.WindowRatio
	p.MatchRatio = c.Scan.MatchRatio
	if c.Scan.SmoothSigma > 0 {
		p.SmoothSigma = c.Scan.SmoothSigma
	}
	return p
}

func (c *Config) toLayoutParams() layout.Params {
	return layout.Params{
		AnchorOffset:    c.Layout.AnchorOffset,
		MinAreaRatio:    c.Layout.MinAreaRatio,
		MaxAreaRatio:    c.Layout.MaxAreaRatio,
		MinRadiusRatio:  c.Layout.MinRadiusRatio,
		MaxRadiusRatio:  c.Layout.MaxRadiusRatio,
		BarcodeOffsetMM: c.Layout.BarcodeOffsetMM,
		BarcodeSizeMM:   c.Layout.BarcodeSizeMM,
		BarcodeMargin:   c.Layout.BarcodeMargin,
	}
}

func (c *Config) toCalibrateParams() calibrate.Params {
	p := calibrate.DefaultParams()
	if c.Calibrate.SmoothSigma > 0 {
		p.SmoothSigma = c.Calibrate.SmoothSigma
	}
	p.MinWidthRatio = c.Calibrate.MinWidthRatio
	p.MaxHeightRatio = c.Calibrate.MaxHeightRatio
	return p
}

// validateRatio validates that a value is in (0, 1].
func validateRatio(value float64, name string) error {
	if value <= 0.0 || value > 1.0 {
		return fmt.Errorf("invalid %s: %.2f (must be in (0, 1])", name, value)
	}
	return nil
}
