package cmd

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/MeKo-Tech/omrscan/internal/pipeline"
	"github.com/spf13/cobra"
)

const (
	defaultReportPath = "omr-output.pdf"
	statusStderr      = "stderr"
	statusNone        = "none"
)

func newScanCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan FORM INPUT...",
		Short: "Read marked bubble sheets",
		Long: `Read every page of the given scans against the form's label database and
print one record per page:

  <identity code>:<TAB>:<UID>:<answers>:

Unmarked answers read 0, unmarked UID digits read -, and fields with more
than one mark read *. Progress lines (ETA or FAIL) go to the status stream.

Examples:
  omrscan scan exam.xml scans.pdf
  omrscan scan exam.yaml a.png b.png --reference blank.png --report -
  omrscan scan exam.xml scans.pdf --rasterizer embedded --barcode qr`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runScan(cmd, args[0], args[1:])
		},
	}

	f := cmd.Flags()
	f.StringP("reference", "r", "", "blank form rendering, PDF or image (default: FORM with .pdf extension)")
	f.StringP("report", "o", defaultReportPath, "diagnostic PDF output, - to skip")
	f.String("status", statusStderr, "status stream: stderr, none or a file path")
	f.String("metrics-file", "", "write session metrics in text exposition format")
	f.Int("max-pages", pipeline.DefaultMaxPages, "abort when the inputs hold more pages")
	f.String("rasterizer", "ghostscript", "PDF rasterizer (ghostscript, embedded)")
	f.String("ghostscript", "gs", "Ghostscript executable")
	f.Int("dpi", 200, "rasterization resolution")
	f.Bool("enhance", false, "stretch the contrast of rasterized pages")
	f.String("temp-dir", "", "parent directory of the session directory")
	f.Bool("keep-temp", false, "keep the session directory")
	f.String("barcode", "datamatrix", "identity symbology (datamatrix, qr)")
	f.String("undersized", "keep", "undersized marks policy (keep, reject)")
	return cmd
}

func (a *app) runScan(cmd *cobra.Command, form string, inputs []string) error {
	if err := a.cfg.Validate(); err != nil {
		return err
	}
	pcfg, err := a.cfg.ToPipelineConfig()
	if err != nil {
		return err
	}

	statusArg, _ := cmd.Flags().GetString("status")
	status, closeStatus, err := openStatus(statusArg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer closeStatus()
	pcfg.Status = status

	reference, _ := cmd.Flags().GetString("reference")
	reportPath, _ := cmd.Flags().GetString("report")
	if reportPath == "-" {
		reportPath = ""
	}

	session, err := pipeline.NewSession(pcfg, form, reference)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := session.Close(); cerr != nil {
			slog.Warn("Failed to remove session directory", "dir", session.TempDir(), "error", cerr)
		}
	}()

	records, runErr := session.Run(cmd.Context(), inputs, reportPath)
	if path := a.cfg.Metrics.File; path != "" {
		if err := session.Metrics().WriteToTextfile(path); err != nil {
			runErr = errors.Join(runErr, fmt.Errorf("write metrics: %w", err))
		}
	}
	// a failed batch prints nothing, not a truncated record set
	if runErr != nil {
		return runErr
	}

	out := cmd.OutOrStdout()
	for _, r := range records {
		if _, err := fmt.Fprintln(out, r.String()); err != nil {
			return fmt.Errorf("failed to write to stdout: %w", err)
		}
	}

	slog.Info("Scan finished", "pages", len(records), "report", reportPath)
	return nil
}

// openStatus resolves the status stream argument.
func openStatus(arg string, stderr io.Writer) (io.Writer, func(), error) {
	switch arg {
	case "", statusStderr:
		return stderr, func() {}, nil
	case statusNone:
		return nil, func() {}, nil
	}
	f, err := os.Create(arg) //nolint:gosec // G304: user-provided status path
	if err != nil {
		return nil, nil, fmt.Errorf("open status file: %w", err)
	}
	return f, func() { _ = f.Close() }, nil
}
