package cmd

import (
	"fmt"
	"strings"

	"research_assistant/pkg/core/period"

	"github.com/spf13/cobra"
)

var quartersCmd = &cobra.Command{
	Use:   "quarters",
	Short: "List the quarters offered for selection",
	RunE: func(cmd *cobra.Command, _ []string) error {
		quarters := period.Span(settings.Quarters.FirstYear, settings.Quarters.LastYear)
		fmt.Fprintln(cmd.OutOrStdout(), strings.Join(quarters, "\n"))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(quartersCmd)
}
