//nolint:lll
package config

// Config represents the complete configuration of the omrscan application.
// It is loaded from configuration files, environment variables and
// command-line flags.
type Config struct {
	// Global settings
	LogLevel string `mapstructure:"log_level" yaml:"log_level" json:"log_level"`
	Verbose  bool   `mapstructure:"verbose" yaml:"verbose" json:"verbose"`
	Debug    bool   `mapstructure:"debug" yaml:"debug" json:"debug"`

	// Mark detection thresholds
	Scan ScanConfig `mapstructure:"scan" yaml:"scan" json:"scan"`

	// Canonical layout ratios
	Layout LayoutConfig `mapstructure:"layout" yaml:"layout" json:"layout"`

	// Reference rule detection
	Calibrate CalibrateConfig `mapstructure:"calibrate" yaml:"calibrate" json:"calibrate"`

	Barcode BarcodeConfig `mapstructure:"barcode" yaml:"barcode" json:"barcode"`

	// Batch processing configuration
	Batch BatchConfig `mapstructure:"batch" yaml:"batch" json:"batch"`

	// Diagnostic report
	Report ReportConfig `mapstructure:"report" yaml:"report" json:"report"`

	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics" json:"metrics"`
}

// ScanConfig contains the mark detection thresholds.
type ScanConfig struct {
	FillThreshold        float64 `mapstructure:"fill_threshold" yaml:"fill_threshold" json:"fill_threshold"`
	ContourFillThreshold float64 `mapstructure:"contour_fill_threshold" yaml:"contour_fill_threshold" json:"contour_fill_threshold"`
	Isoperimetric        float64 `mapstructure:"isoperimetric" yaml:"isoperimetric" json:"isoperimetric"`
	WindowRatio          float64 `mapstructure:"window_ratio" yaml:"window_ratio" json:"window_ratio"`
	MatchRatio           float64 `mapstructure:"match_ratio" yaml:"match_ratio" json:"match_ratio"`
	SmoothSigma          float64 `mapstructure:"smooth_sigma" yaml:"smooth_sigma" json:"smooth_sigma"`
	// UndersizedPolicy is "keep" or "reject".
	UndersizedPolicy string `mapstructure:"undersized_policy" yaml:"undersized_policy" json:"undersized_policy"`
}

// LayoutConfig contains the ratios deriving pixel thresholds from the
// bubble radius.
type LayoutConfig struct {
	AnchorOffset    float64 `mapstructure:"anchor_offset" yaml:"anchor_offset" json:"anchor_offset"`
	MinAreaRatio    float64 `mapstructure:"min_area_ratio" yaml:"min_area_ratio" json:"min_area_ratio"`
	MaxAreaRatio    float64 `mapstructure:"max_area_ratio" yaml:"max_area_ratio" json:"max_area_ratio"`
	MinRadiusRatio  float64 `mapstructure:"min_radius_ratio" yaml:"min_radius_ratio" json:"min_radius_ratio"`
	MaxRadiusRatio  float64 `mapstructure:"max_radius_ratio" yaml:"max_radius_ratio" json:"max_radius_ratio"`
	BarcodeOffsetMM float64 `mapstructure:"barcode_offset_mm" yaml:"barcode_offset_mm" json:"barcode_offset_mm"`
	BarcodeSizeMM   float64 `mapstructure:"barcode_size_mm" yaml:"barcode_size_mm" json:"barcode_size_mm"`
	BarcodeMargin   float64 `mapstructure:"barcode_margin" yaml:"barcode_margin" json:"barcode_margin"`
}

// CalibrateConfig contains the reference rule detection settings.
type CalibrateConfig struct {
	SmoothSigma    float64 `mapstructure:"smooth_sigma" yaml:"smooth_sigma" json:"smooth_sigma"`
	MinWidthRatio  float64 `mapstructure:"min_width_ratio" yaml:"min_width_ratio" json:"min_width_ratio"`
	MaxHeightRatio float64 `mapstructure:"max_height_ratio" yaml:"max_height_ratio" json:"max_height_ratio"`
}

// BarcodeConfig selects the identity symbology.
type BarcodeConfig struct {
	Format string `mapstructure:"format" yaml:"format" json:"format"`
}

// BatchConfig contains batch processing settings.
type BatchConfig struct {
	MaxPages        int    `mapstructure:"max_pages" yaml:"max_pages" json:"max_pages"`
	Rasterizer      string `mapstructure:"rasterizer" yaml:"rasterizer" json:"rasterizer"`
	Ghostscript     string `mapstructure:"ghostscript" yaml:"ghostscript" json:"ghostscript"`
	DPI             int    `mapstructure:"dpi" yaml:"dpi" json:"dpi"`
	EnhanceContrast bool   `mapstructure:"enhance_contrast" yaml:"enhance_contrast" json:"enhance_contrast"`
	TempDir         string `mapstructure:"temp_dir" yaml:"temp_dir" json:"temp_dir"`
	KeepTemp        bool   `mapstructure:"keep_temp" yaml:"keep_temp" json:"keep_temp"`
}

// ReportConfig contains diagnostic report settings.
type ReportConfig struct {
	Title   string `mapstructure:"title" yaml:"title" json:"title"`
	Author  string `mapstructure:"author" yaml:"author" json:"author"`
	Subject string `mapstructure:"subject" yaml:"subject" json:"subject"`
	// Palette overrides diagnostic colours by slot name with hex values.
	Palette map[string]string `mapstructure:"palette" yaml:"palette" json:"palette"`
}

// MetricsConfig contains the metrics export settings.
type MetricsConfig struct {
	// File receives the session metrics in text exposition format.
	File string `mapstructure:"file" yaml:"file" json:"file"`
}
