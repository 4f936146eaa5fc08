package cmd

import (
	"fmt"

	"github.com/MeKo-Tech/omrscan/internal/config"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newConfigCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or create the configuration",
	}

	initCmd := &cobra.Command{
		Use:   "init [FILE]",
		Short: "Write the default configuration (default omrscan.yaml)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.ConfigFileName + ".yaml"
			if len(args) == 1 {
				path = args[0]
			}
			if err := config.GenerateDefaultConfigFile(path); err != nil {
				return fmt.Errorf("write default config: %w", err)
			}
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "Wrote default configuration to %s\n", path)
			return err
		},
	}

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Print the resolved configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			a.loader.PrintConfigInfo(out)
			if err := a.cfg.Validate(); err != nil {
				_, _ = fmt.Fprintf(out, "Validation: %v\n", err)
			}
			data, err := yaml.Marshal(a.cfg)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(out, "---\n%s", data)
			return err
		},
	}

	cmd.AddCommand(initCmd, showCmd)
	return cmd
}
