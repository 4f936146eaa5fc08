package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

const (
	// ConfigFileName is the base name for configuration files (without extension).
	ConfigFileName = "omrscan"

	// EnvPrefix is the prefix for environment variables.
	EnvPrefix = "OMRSCAN"
)

// Loader handles loading configuration from various sources.
type Loader struct {
	v *viper.Viper
}

// NewLoader creates a loader on the global viper instance, so flags bound
// by the root command take part in resolution.
func NewLoader() *Loader {
	return &Loader{v: viper.GetViper()}
}

// NewLoaderWithViper creates a loader on its own viper instance.
func NewLoaderWithViper(v *viper.Viper) *Loader {
	return &Loader{v: v}
}

// Load loads configuration from the search paths, environment variables
// and defaults, and validates it.
func (l *Loader) Load() (*Config, error) {
	return l.load("", true)
}

// LoadWithoutValidation is Load without validation.
func (l *Loader) LoadWithoutValidation() (*Config, error) {
	return l.load("", false)
}

// LoadWithFile loads configuration from a specific file path. An empty path
// searches the standard locations.
func (l *Loader) LoadWithFile(configFile string) (*Config, error) {
	return l.load(configFile, true)
}

// LoadWithFileWithoutValidation is LoadWithFile without validation.
func (l *Loader) LoadWithFileWithoutValidation(configFile string) (*Config, error) {
	return l.load(configFile, false)
}

func (l *Loader) load(configFile string, validate bool) (*Config, error) {
	if configFile != "" {
		if _, err := os.Stat(configFile); os.IsNotExist(err) {
			return nil, fmt.Errorf("config file does not exist: %s", configFile)
		}
		l.v.SetConfigFile(configFile)
	} else {
		l.v.SetConfigName(ConfigFileName)
		l.v.SetConfigType("yaml")
		l.addConfigPaths()
	}

	l.setupEnvironmentVariables()
	l.setDefaults()

	if err := l.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := l.v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if validate {
		if err := config.Validate(); err != nil {
			return nil, fmt.Errorf("configuration validation failed: %w", err)
		}
	}
	return &config, nil
}

// Get returns a value from the configuration.
func (l *Loader) Get(key string) interface{} {
	return l.v.Get(key)
}

// Set sets a value in the configuration.
func (l *Loader) Set(key string, value interface{}) {
	l.v.Set(key, value)
}

// GetConfigFileUsed returns the path of the config file used.
func (l *Loader) GetConfigFileUsed() string {
	return l.v.ConfigFileUsed()
}

// GetViper returns the underlying viper instance.
func (l *Loader) GetViper() *viper.Viper {
	return l.v
}

// addConfigPaths adds the standard configuration search paths.
func (l *Loader) addConfigPaths() {
	for _, p := range GetConfigSearchPaths() {
		l.v.AddConfigPath(p)
	}
}

// setupEnvironmentVariables maps scan.fill_threshold to
// OMRSCAN_SCAN_FILL_THRESHOLD.
func (l *Loader) setupEnvironmentVariables() {
	l.v.SetEnvPrefix(EnvPrefix)
	l.v.AutomaticEnv()
	l.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
}

// setDefaults sets default values for all configuration options.
func (l *Loader) setDefaults() {
	d := DefaultConfig()

	l.v.SetDefault("log_level", d.LogLevel)
	l.v.SetDefault("verbose", d.Verbose)
	l.v.SetDefault("debug", d.Debug)

	l.v.SetDefault("scan.fill_threshold", d.Scan.FillThreshold)
	l.v.SetDefault("scan.contour_fill_threshold", d.Scan.ContourFillThreshold)
	l.v.SetDefault("scan.isoperimetric", d.Scan.Isoperimetric)
	l.v.SetDefault("scan.window_ratio", d.Scan.WindowRatio)
	l.v.SetDefault("scan.match_ratio", d.Scan.MatchRatio)
	l.v.SetDefault("scan.smooth_sigma", d.Scan.SmoothSigma)
	l.v.SetDefault("scan.undersized_policy", d.Scan.UndersizedPolicy)

	l.v.SetDefault("layout.anchor_offset", d.Layout.AnchorOffset)
	l.v.SetDefault("layout.min_area_ratio", d.Layout.MinAreaRatio)
	l.v.SetDefault("layout.max_area_ratio", d.Layout.MaxAreaRatio)
	l.v.SetDefault("layout.min_radius_ratio", d.Layout.MinRadiusRatio)
	l.v.SetDefault("layout.max_radius_ratio", d.Layout.MaxRadiusRatio)
	l.v.SetDefault("layout.barcode_offset_mm", d.Layout.BarcodeOffsetMM)
	l.v.SetDefault("layout.barcode_size_mm", d.Layout.BarcodeSizeMM)
	l.v.SetDefault("layout.barcode_margin", d.Layout.BarcodeMargin)

	l.v.SetDefault("calibrate.smooth_sigma", d.Calibrate.SmoothSigma)
	l.v.SetDefault("calibrate.min_width_ratio", d.Calibrate.MinWidthRatio)
	l.v.SetDefault("calibrate.max_height_ratio", d.Calibrate.MaxHeightRatio)

	l.v.SetDefault("barcode.format", d.Barcode.Format)

	l.v.SetDefault("batch.max_pages", d.Batch.MaxPages)
	l.v.SetDefault("batch.rasterizer", d.Batch.Rasterizer)
	l.v.SetDefault("batch.ghostscript", d.Batch.Ghostscript)
	l.v.SetDefault("batch.dpi", d.Batch.DPI)
	l.v.SetDefault("batch.enhance_contrast", d.Batch.EnhanceContrast)
	l.v.SetDefault("batch.temp_dir", d.Batch.TempDir)
	l.v.SetDefault("batch.keep_temp", d.Batch.KeepTemp)

	l.v.SetDefault("report.title", d.Report.Title)
	l.v.SetDefault("report.author", d.Report.Author)
	l.v.SetDefault("report.subject", d.Report.Subject)
	l.v.SetDefault("report.palette", d.Report.Palette)

	l.v.SetDefault("metrics.file", d.Metrics.File)
}

// GetResolvedConfig returns the current resolved configuration for debugging.
func (l *Loader) GetResolvedConfig() map[string]interface{} {
	return l.v.AllSettings()
}

// WriteConfigToFile writes the current configuration to a file.
func (l *Loader) WriteConfigToFile(filename string) error {
	return l.v.WriteConfigAs(filename)
}

// GenerateDefaultConfigFile writes the defaults to filename, omrscan.yaml
// when empty.
func GenerateDefaultConfigFile(filename string) error {
	loader := NewLoaderWithViper(viper.New())
	loader.setDefaults()

	if filename == "" {
		filename = ConfigFileName + ".yaml"
	}
	return loader.WriteConfigToFile(filename)
}

// GetConfigSearchPaths returns the paths where configuration files are searched.
func GetConfigSearchPaths() []string {
	paths := []string{"."}

	home, homeErr := os.UserHomeDir()
	if homeErr == nil {
		paths = append(paths, home)
	}

	if configDir, exists := os.LookupEnv("XDG_CONFIG_HOME"); exists {
		paths = append(paths, filepath.Join(configDir, ConfigFileName))
	} else if homeErr == nil {
		paths = append(paths, filepath.Join(home, ".config", ConfigFileName))
	}

	return append(paths, "/etc/"+ConfigFileName)
}

// PrintConfigInfo prints information about configuration loading.
func (l *Loader) PrintConfigInfo(w io.Writer) {
	fmt.Fprintf(w, "Configuration file used: %s\n", l.GetConfigFileUsed())
	fmt.Fprintf(w, "Configuration search paths: %v\n", GetConfigSearchPaths())
	fmt.Fprintf(w, "Environment prefix: %s\n", EnvPrefix)
}
