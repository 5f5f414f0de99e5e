package cmd

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"research_assistant/pkg/core/period"
	"research_assistant/pkg/core/research"

	"github.com/spf13/cobra"
)

var (
	askAgents []string
	askStart  string
	askEnd    string
	askJSON   bool
)

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Route one question through the evidence agents",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := logger.WithContext(cmd.Context())

		kinds, err := research.ParseProviderKinds(askAgents)
		if err != nil {
			return err
		}
		tr, err := period.NewTimeRange(askStart, askEnd)
		if err != nil {
			return err
		}

		a, err := buildApp(ctx, settings)
		if err != nil {
			return err
		}
		defer a.Close()

		state, err := a.orchestrator.Route(ctx, research.AgentRequest{
			Query:     strings.Join(args, " "),
			Providers: kinds,
			TimeRange: tr,
		})
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if askJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(state)
		}
		for _, r := range state.Results {
			status := "ok"
			switch {
			case r.Failed:
				status = "failed: " + r.ErrorMessage
			case r.Empty:
				status = "no evidence"
			}
			fmt.Fprintf(out, "- %s (%s, %s)\n", r.Provider, status, r.Duration.Round(time.Millisecond))
		}
		fmt.Fprintf(out, "\n%s\n", state.Synthesis)
		return nil
	},
}

func init() {
	askCmd.Flags().StringSliceVarP(&askAgents, "agents", "a", []string{"all"}, "agents to consult (document, metrics, web, all)")
	askCmd.Flags().StringVar(&askStart, "start", "2023q1", "first quarter of the range")
	askCmd.Flags().StringVar(&askEnd, "end", "2023q4", "last quarter of the range")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "print the full orchestration state as JSON")
	rootCmd.AddCommand(askCmd)
}
