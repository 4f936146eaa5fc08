package config

import (
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/omrscan/internal/barcode"
	"github.com/MeKo-Tech/omrscan/internal/marks"
	"github.com/MeKo-Tech/omrscan/internal/pdf"
	"github.com/MeKo-Tech/omrscan/internal/pipeline"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "info", cfg.LogLevel)
	assert.False(t, cfg.Debug)
	assert.Equal(t, "datamatrix", cfg.Barcode.Format)
	assert.Equal(t, "keep", cfg.Scan.UndersizedPolicy)
	assert.InDelta(t, 150.0, cfg.Scan.FillThreshold, 1e-9)
	assert.InDelta(t, 1.3, cfg.Scan.MatchRatio, 1e-9)
	assert.InDelta(t, 0.72, cfg.Layout.AnchorOffset, 1e-9)
	assert.Equal(t, pipeline.DefaultMaxPages, cfg.Batch.MaxPages)
	assert.Equal(t, pdf.RasterizerGhostscript, cfg.Batch.Rasterizer)
	assert.Equal(t, 200, cfg.Batch.DPI)
	assert.Empty(t, cfg.Report.Palette)
	require.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults", func(*Config) {}, ""},
		{"log level", func(c *Config) { c.LogLevel = "trace" }, "invalid log level"},
		{"rasterizer", func(c *Config) { c.Batch.Rasterizer = "poppler" }, "invalid rasterizer"},
		{"max pages", func(c *Config) { c.Batch.MaxPages = 0 }, "invalid batch max pages"},
		{"dpi", func(c *Config) { c.Batch.DPI = -1 }, "invalid batch dpi"},
		{"barcode format", func(c *Config) { c.Barcode.Format = "aztec" }, "invalid barcode format"},
		{"qr format", func(c *Config) { c.Barcode.Format = "qr" }, ""},
		{"undersized policy", func(c *Config) { c.Scan.UndersizedPolicy = "maybe" }, "undersized_policy"},
		{"reject policy", func(c *Config) { c.Scan.UndersizedPolicy = "reject" }, ""},
		{"palette slot", func(c *Config) { c.Report.Palette = map[string]string{"nope": "#ffffff"} }, "invalid report palette"},
		{"palette colour", func(c *Config) { c.Report.Palette = map[string]string{"ok": "green"} }, "invalid report palette"},
		{"fill threshold", func(c *Config) { c.Scan.FillThreshold = 300 }, "invalid scan thresholds"},
		{"area ratios", func(c *Config) { c.Layout.MaxAreaRatio = 0.5 }, "invalid layout ratios"},
		{"width ratio", func(c *Config) { c.Calibrate.MinWidthRatio = 1.5 }, "calibrate.min_width_ratio"},
		{"height ratio", func(c *Config) { c.Calibrate.MaxHeightRatio = 0 }, "calibrate.max_height_ratio"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestToPipelineConfig_Defaults(t *testing.T) {
	cfg := DefaultConfig()
	pc, err := cfg.ToPipelineConfig()
	require.NoError(t, err)

	want := pipeline.DefaultConfig()
	assert.Equal(t, want.Layout, pc.Layout)
	assert.Equal(t, want.Marks, pc.Marks)
	assert.Equal(t, want.Calibrate, pc.Calibrate)
	assert.Equal(t, want.BarcodeFormat, pc.BarcodeFormat)
	assert.Equal(t, want.Palette, pc.Palette)
	assert.Equal(t, want.Metadata, pc.Metadata)
	require.NoError(t, pc.Validate())
}

func TestToPipelineConfig_Overrides(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Debug = true
	cfg.Barcode.Format = "qr"
	cfg.Scan.UndersizedPolicy = "reject"
	cfg.Scan.FillThreshold = 120
	cfg.Layout.AnchorOffset = 0.5
	cfg.Calibrate.MinWidthRatio = 0.4
	cfg.Batch.MaxPages = 10
	cfg.Batch.Rasterizer = pdf.RasterizerEmbedded
	cfg.Batch.Ghostscript = "/opt/gs/bin/gs"
	cfg.Batch.DPI = 300
	cfg.Batch.EnhanceContrast = true
	cfg.Batch.TempDir = "/var/tmp"
	cfg.Batch.KeepTemp = true
	cfg.Report.Title = "Exam 7"
	cfg.Report.Palette = map[string]string{"ok": "#0000ff"}

	pc, err := cfg.ToPipelineConfig()
	require.NoError(t, err)

	assert.True(t, pc.Debug)
	assert.Equal(t, barcode.FormatQR, pc.BarcodeFormat)
	assert.Equal(t, marks.UndersizedReject, pc.Marks.Undersized)
	assert.InDelta(t, 120.0, pc.Marks.FillThreshold, 1e-9)
	assert.InDelta(t, 0.5, pc.Layout.AnchorOffset, 1e-9)
	assert.InDelta(t, 0.4, pc.Calibrate.MinWidthRatio, 1e-9)
	assert.Equal(t, 10, pc.MaxPages)
	assert.Equal(t, pdf.RasterizerEmbedded, pc.Rasterizer)
	assert.Equal(t, "/opt/gs/bin/gs", pc.Ghostscript)
	assert.Equal(t, 300, pc.DPI)
	assert.True(t, pc.EnhanceContrast)
	assert.Equal(t, "/var/tmp", pc.TempDir)
	assert.True(t, pc.KeepTemp)
	assert.Equal(t, "Exam 7", pc.Metadata.Title)
	assert.Equal(t, color.RGBA{B: 255, A: 255}, pc.Palette.OK)
}

func TestToPipelineConfig_Errors(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Barcode.Format = "pdf417"
	_, err := cfg.ToPipelineConfig()
	require.Error(t, err)

	cfg = DefaultConfig()
	cfg.Scan.UndersizedPolicy = "drop"
	_, err = cfg.ToPipelineConfig()
	require.Error(t, err)

	cfg = DefaultConfig()
	cfg.Report.Palette = map[string]string{"banner": "#zzz"}
	_, err = cfg.ToPipelineConfig()
	require.Error(t, err)
}

func TestValidateRatio(t *testing.T) {
	assert.NoError(t, validateRatio(1.0, "x"))
	assert.NoError(t, validateRatio(0.01, "x"))
	assert.Error(t, validateRatio(0, "x"))
	assert.Error(t, validateRatio(1.01, "x"))
}
