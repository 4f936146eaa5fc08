package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/MeKo-Tech/omrscan/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// flagKeys maps command-line flags to configuration keys. A flag only takes
// part in resolution on the commands that define it.
var flagKeys = map[string]string{
	"log-level":    "log_level",
	"verbose":      "verbose",
	"debug":        "debug",
	"barcode":      "barcode.format",
	"undersized":   "scan.undersized_policy",
	"max-pages":    "batch.max_pages",
	"rasterizer":   "batch.rasterizer",
	"ghostscript":  "batch.ghostscript",
	"dpi":          "batch.dpi",
	"enhance":      "batch.enhance_contrast",
	"temp-dir":     "batch.temp_dir",
	"keep-temp":    "batch.keep_temp",
	"metrics-file": "metrics.file",
}

// app carries the resolved configuration of one command invocation.
type app struct {
	cfgFile string
	loader  *config.Loader
	cfg     *config.Config
}

// NewRootCommand builds the omrscan command tree.
func NewRootCommand() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "omrscan",
		Short: "Optical mark recognition for printed bubble sheets",
		Long: `omrscan reads scanned multiple-choice answer sheets and reports, per page,
the identity code, the student identifier and the chosen answers.

A form is described by its label database (legacy XML or YAML) and a blank
reference rendering. Scans may be PDFs or PNG/JPEG/BMP images. A diagnostic
PDF shows every page with the detected marks circled.

Examples:
  omrscan scan exam.xml scans.pdf > results.txt
  omrscan scan exam.xml page1.png page2.png --report check.pdf
  omrscan layout exam.xml --overview bubbles.png
  omrscan config init`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.load(cmd)
		},
	}

	root.PersistentFlags().StringVar(&a.cfgFile, "config", "",
		"config file (default is search in ., $HOME, $XDG_CONFIG_HOME/omrscan, /etc/omrscan)")
	root.PersistentFlags().BoolP("verbose", "v", false, "verbose output (equivalent to --log-level=debug)")
	root.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	root.PersistentFlags().Bool("debug", false, "log every mark decision and keep the session directory")

	root.AddCommand(
		newScanCommand(a),
		newLayoutCommand(a),
		newConfigCommand(a),
		newVersionCommand(),
	)
	return root
}

// GetRootCommand returns a fresh root command for testing purposes.
// This allows tests to execute commands without calling os.Exit().
func GetRootCommand() *cobra.Command {
	return NewRootCommand()
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := NewRootCommand().ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

// load resolves the configuration from file, environment and the flags of
// cmd, and installs the JSON logger on the command's error stream.
func (a *app) load(cmd *cobra.Command) error {
	v := viper.New()
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if key, ok := flagKeys[f.Name]; ok {
			_ = v.BindPFlag(key, f)
		}
	})

	a.loader = config.NewLoaderWithViper(v)
	cfg, err := a.loader.LoadWithFileWithoutValidation(a.cfgFile)
	if err != nil {
		return fmt.Errorf("error loading configuration: %w", err)
	}
	a.cfg = cfg

	setupLogging(cmd.ErrOrStderr(), cfg)
	if used := a.loader.GetConfigFileUsed(); used != "" {
		slog.Debug("Configuration loaded", "file", used)
	}
	return nil
}

func setupLogging(w io.Writer, cfg *config.Config) {
	logger := slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: logLevel(cfg),
	}))
	slog.SetDefault(logger)
}

func logLevel(cfg *config.Config) slog.Level {
	if cfg.Verbose {
		return slog.LevelDebug
	}
	switch cfg.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
