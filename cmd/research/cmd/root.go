package cmd

import (
	"fmt"
	"os"

	"research_assistant/pkg/core/config"
	"research_assistant/pkg/core/logging"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	cfgFile  string
	envFile  string
	v        = config.New()
	settings config.Settings
	logger   zerolog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "research",
	Short: "Quarterly financial research assistant",
	Long: `research answers questions about a company's quarterly performance by
routing them through document, metrics and web evidence agents and merging
their answers into one response or a sectioned report.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		return initConfig()
	},
}

func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	return err
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default: ./config.yaml or ./config/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env",
		"dotenv file loaded before reading the environment")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "console", "log format (console, json)")
	rootCmd.PersistentFlags().String("subject", "NVIDIA", "company the research is about")
	rootCmd.PersistentFlags().Bool("parallel", false, "run evidence agents concurrently")

	_ = v.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = v.BindPFlag("log.format", rootCmd.PersistentFlags().Lookup("log-format"))
	_ = v.BindPFlag("subject", rootCmd.PersistentFlags().Lookup("subject"))
	_ = v.BindPFlag("orchestrator.parallel", rootCmd.PersistentFlags().Lookup("parallel"))
}

func initConfig() error {
	config.LoadDotEnv(envFile)

	s, err := config.Load(v, cfgFile)
	if err != nil {
		return err
	}
	settings = s
	logger = logging.New(s.Log.Level, s.Log.Format, os.Stderr)
	return nil
}
