package cmd

import (
	"fmt"
	"os"

	"research_assistant/pkg/core/period"

	"github.com/spf13/cobra"
)

var (
	reportStart  string
	reportEnd    string
	reportFormat string
	reportOut    string
	reportUpload bool
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Generate a sectioned research report for a quarter range",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := logger.WithContext(cmd.Context())

		tr, err := period.NewTimeRange(reportStart, reportEnd)
		if err != nil {
			return err
		}

		a, err := buildApp(ctx, settings)
		if err != nil {
			return err
		}
		defer a.Close()

		report, err := a.reports.Build(ctx, tr)
		if err != nil {
			return err
		}

		body, ext, contentType := report.Markdown(), "md", "text/markdown; charset=utf-8"
		if reportFormat == "html" {
			if body, err = report.HTML(); err != nil {
				return err
			}
			ext, contentType = "html", "text/html; charset=utf-8"
		}

		if reportOut == "" || reportOut == "-" {
			fmt.Fprint(cmd.OutOrStdout(), body)
		} else if err := os.WriteFile(reportOut, []byte(body), 0o644); err != nil {
			return fmt.Errorf("writing report: %w", err)
		}

		if reportUpload {
			if a.archive == nil {
				return fmt.Errorf("--upload needs archive.bucket to be set")
			}
			loc, err := a.archive.Put(ctx, a.archive.Key(report.Subject, tr.String(), ext), []byte(body), contentType)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.ErrOrStderr(), "archived to", loc)
		}
		return nil
	},
}

func init() {
	reportCmd.Flags().StringVar(&reportStart, "start", "2023q1", "first quarter of the range")
	reportCmd.Flags().StringVar(&reportEnd, "end", "2023q4", "last quarter of the range")
	reportCmd.Flags().StringVarP(&reportFormat, "format", "f", "markdown", "output format (markdown, html)")
	reportCmd.Flags().StringVarP(&reportOut, "output", "o", "-", "output file, - for stdout")
	reportCmd.Flags().BoolVar(&reportUpload, "upload", false, "also upload the report to the configured S3 archive")
	rootCmd.AddCommand(reportCmd)
}
