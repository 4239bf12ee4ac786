package cmd

import (
	"github.com/spf13/cobra"
)

// Version is injected at build time via -ldflags
var Version = "dev"

// NewRootCommand creates and returns the root cobra command
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vigilore",
		Short: "Structured compliance interviews for mining site audits",
		Long: `Vigilore conducts structured compliance interviews against regulatory
frameworks (DRC Mining Code, ISO 14001, ISO 45001, VPSHR), validates the
auditor's answers, follows up on critical gaps, and exports weighted
compliance scores for the downstream comparison pipeline.`,
		Version: Version,
		// Silence usage on errors to avoid duplicate help text
		SilenceUsage: true,
	}

	// Add subcommands
	cmd.AddCommand(NewRunCommand())
	cmd.AddCommand(NewFrameworksCommand())
	cmd.AddCommand(NewExportCommand())

	return cmd
}
