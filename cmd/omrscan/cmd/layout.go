package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/MeKo-Tech/omrscan/internal/pipeline"
	"github.com/MeKo-Tech/omrscan/internal/report"
	"github.com/MeKo-Tech/omrscan/internal/utils"
	"github.com/spf13/cobra"
)

func newLayoutCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "layout FORM",
		Short: "Show the canonical layout derived from a form",
		Long: `Derive the canonical layout of a form from its label database and blank
reference rendering, and print the bubble geometry and the thresholds that
follow from it in pixels and millimetres.

Examples:
  omrscan layout exam.xml
  omrscan layout exam.yaml --reference blank.png --overview bubbles.png
  omrscan layout exam.xml --export exam.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runLayout(cmd, args[0])
		},
	}

	cmd.Flags().StringP("reference", "r", "", "blank form rendering, PDF or image (default: FORM with .pdf extension)")
	cmd.Flags().String("overview", "", "write the reference with every bubble circled to this PNG")
	cmd.Flags().String("export", "", "write the label database to this file, .yaml/.yml for YAML, XML otherwise")
	cmd.Flags().String("rasterizer", "ghostscript", "PDF rasterizer (ghostscript, embedded)")
	cmd.Flags().String("ghostscript", "gs", "Ghostscript executable")
	return cmd
}

func (a *app) runLayout(cmd *cobra.Command, form string) error {
	if err := a.cfg.Validate(); err != nil {
		return err
	}
	pcfg, err := a.cfg.ToPipelineConfig()
	if err != nil {
		return err
	}

	reference, _ := cmd.Flags().GetString("reference")
	session, err := pipeline.NewSession(pcfg, form, reference)
	if err != nil {
		return err
	}
	defer func() { _ = session.Close() }()
	if err := session.Prepare(cmd.Context()); err != nil {
		return err
	}

	if err := printLayout(cmd.OutOrStdout(), session); err != nil {
		return fmt.Errorf("failed to write to stdout: %w", err)
	}

	if export, _ := cmd.Flags().GetString("export"); export != "" {
		if err := session.Database().Save(export); err != nil {
			return err
		}
		slog.Info("Label database exported", "path", export)
	}

	overview, _ := cmd.Flags().GetString("overview")
	if overview == "" {
		return nil
	}
	host, _ := os.Hostname()
	img := report.TitlePage(session.Reference(), session.Layout(), pcfg.Palette,
		report.BannerLines(host, time.Now()))
	return utils.SavePNG(overview, img)
}

func printLayout(w io.Writer, s *pipeline.Session) error {
	l := s.Layout()
	lines := []string{
		fmt.Sprintf("page:\t%dx%d px (%.3f x %.3f px/mm)", l.Width, l.Height, l.ScaleX, l.ScaleY),
		fmt.Sprintf("labels:\t%d", len(l.Labels)),
	}
	for _, g := range s.Database().Groups {
		f, ok := l.Field(g.Name)
		if !ok {
			continue
		}
		lines = append(lines, fmt.Sprintf("group %s:\t%d..%d (%d fields, %d bubbles)",
			g.Name, f.Base, f.Base+f.Count-1, f.Count, len(g.Entries)))
	}
	lines = append(lines,
		fmt.Sprintf("radius:\t%.2f px (%.2f mm)", l.BubbleRadius, l.ToMM(l.BubbleRadius)),
		fmt.Sprintf("mark radius:\t%.2f..%.2f px (%.2f..%.2f mm)",
			l.MinRadius, l.MaxRadius, l.ToMM(l.MinRadius), l.ToMM(l.MaxRadius)),
		fmt.Sprintf("mark area:\t%.1f..%.1f px²", l.MinArea, l.MaxArea),
		fmt.Sprintf("band:\t%.1f..%.1f px", l.BandTop, l.BandBottom),
		fmt.Sprintf("barcode:\t%v", l.Barcode),
		fmt.Sprintf("markers:\t%s (%d rules)", l.Markers, l.Markers.Rules),
	)
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}
