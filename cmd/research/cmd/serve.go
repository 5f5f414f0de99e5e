package cmd

import (
	"research_assistant/pkg/core/period"
	"research_assistant/pkg/server"

	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := logger.WithContext(cmd.Context())

		a, err := buildApp(ctx, settings)
		if err != nil {
			return err
		}
		defer a.Close()

		api := server.NewWebAPI(logger, server.Config{
			Addr:            settings.Server.Addr(),
			ShutdownTimeout: settings.Server.ShutdownTimeout,
			RequestTimeout:  settings.Server.RequestTimeout,
			AllowedOrigins:  settings.Server.AllowedOrigins,
			Dependencies: server.Dependencies{
				Router:   a.orchestrator,
				Reports:  a.reports,
				Agents:   a.agents,
				Archive:  a.archive,
				Subject:  settings.Subject,
				Quarters: period.Span(settings.Quarters.FirstYear, settings.Quarters.LastYear),
			},
		})
		return api.Start()
	},
}

func init() {
	serveCmd.Flags().Int("port", 8000, "listen port")
	_ = v.BindPFlag("server.port", serveCmd.Flags().Lookup("port"))
	rootCmd.AddCommand(serveCmd)
}
