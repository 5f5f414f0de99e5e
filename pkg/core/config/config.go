// Package config loads runtime settings from a .env file, an optional
// config.yaml and RESEARCH_* environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"research_assistant/pkg/core/metricstore"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Settings struct {
	Subject      string                      `mapstructure:"subject"`
	Server       ServerSettings              `mapstructure:"server"`
	Log          LogSettings                 `mapstructure:"log"`
	Orchestrator OrchestratorSettings        `mapstructure:"orchestrator"`
	ModelsConfig string                      `mapstructure:"models_config"`
	PromptsDir   string                      `mapstructure:"prompts_dir"`
	Database     DatabaseSettings            `mapstructure:"database"`
	DocIndex     DocIndexSettings            `mapstructure:"docindex"`
	Metrics      MetricsSettings             `mapstructure:"metrics"`
	Snowflake    metricstore.SnowflakeConfig `mapstructure:"snowflake"`
	Search       SearchSettings              `mapstructure:"search"`
	Archive      ArchiveSettings             `mapstructure:"archive"`
	Quarters     QuarterSettings             `mapstructure:"quarters"`
}

type ServerSettings struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
}

// Addr is the listen address.
func (s ServerSettings) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type LogSettings struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type OrchestratorSettings struct {
	ProviderTimeout  time.Duration `mapstructure:"provider_timeout"`
	SynthesisTimeout time.Duration `mapstructure:"synthesis_timeout"`
	Parallel         bool          `mapstructure:"parallel"`
}

type DatabaseSettings struct {
	URL string `mapstructure:"url"`
}

type DocIndexSettings struct {
	// LocalDir serves reports from disk when no database is configured.
	LocalDir       string `mapstructure:"local_dir"`
	Table          string `mapstructure:"table"`
	EmbeddingModel string `mapstructure:"embedding_model"`
	GeminiAPIKey   string `mapstructure:"gemini_api_key"`
}

type MetricsSettings struct {
	// Backend is "snowflake" or "postgres".
	Backend string `mapstructure:"backend"`
	Table   string `mapstructure:"table"`
}

type SearchSettings struct {
	SerpAPIKey string `mapstructure:"serpapi_key"`
	// DuckDuckGo is used when SerpAPI is unset or fails.
	DuckDuckGo bool `mapstructure:"duckduckgo"`
}

type ArchiveSettings struct {
	Bucket  string `mapstructure:"bucket"`
	Prefix  string `mapstructure:"prefix"`
	Region  string `mapstructure:"region"`
	Profile string `mapstructure:"profile"`
}

type QuarterSettings struct {
	FirstYear int `mapstructure:"first_year"`
	LastYear  int `mapstructure:"last_year"`
}

var defaults = map[string]any{
	"subject":                        "NVIDIA",
	"server.host":                    "0.0.0.0",
	"server.port":                    8000,
	"server.shutdown_timeout":        "10s",
	"server.request_timeout":         "5m",
	"server.allowed_origins":         []string{"*"},
	"log.level":                      "info",
	"log.format":                     "console",
	"orchestrator.provider_timeout":  "60s",
	"orchestrator.synthesis_timeout": "60s",
	"orchestrator.parallel":          false,
	"models_config":                  "config/models.yaml",
	"prompts_dir":                    "",
	"database.url":                   "",
	"docindex.local_dir":             "",
	"docindex.table":                 "report_chunks",
	"docindex.embedding_model":       "text-embedding-004",
	"docindex.gemini_api_key":        "",
	"metrics.backend":                "snowflake",
	"metrics.table":                  metricstore.DefaultTable,
	"snowflake.account":              "",
	"snowflake.user":                 "",
	"snowflake.password":             "",
	"snowflake.database":             "",
	"snowflake.schema":               "",
	"snowflake.warehouse":            "",
	"snowflake.role":                 "",
	"search.serpapi_key":             "",
	"search.duckduckgo":              true,
	"archive.bucket":                 "",
	"archive.prefix":                 "reports/",
	"archive.region":                 "",
	"archive.profile":                "",
	"quarters.first_year":            2020,
	"quarters.last_year":             2024,
}

// Conventional variable names accepted next to the RESEARCH_ prefixed ones.
var aliases = map[string][]string{
	"database.url":            {"DATABASE_URL"},
	"docindex.gemini_api_key": {"GEMINI_API_KEY", "GOOGLE_API_KEY"},
	"search.serpapi_key":      {"SERPAPI_API_KEY"},
	"snowflake.account":       {"SNOWFLAKE_ACCOUNT"},
	"snowflake.user":          {"SNOWFLAKE_USER"},
	"snowflake.password":      {"SNOWFLAKE_PASSWORD"},
	"snowflake.database":      {"SNOWFLAKE_DATABASE"},
	"snowflake.schema":        {"SNOWFLAKE_SCHEMA"},
	"snowflake.warehouse":     {"SNOWFLAKE_WAREHOUSE"},
	"snowflake.role":          {"SNOWFLAKE_ROLE"},
	"archive.bucket":          {"AWS_BUCKET_NAME"},
	"archive.region":          {"AWS_REGION"},
}

// LoadDotEnv loads .env files into the environment; a missing file is fine.
func LoadDotEnv(files ...string) {
	_ = godotenv.Load(files...)
}

// New returns a viper instance with defaults and environment bindings.
func New() *viper.Viper {
	v := viper.New()
	for key, val := range defaults {
		v.SetDefault(key, val)
	}
	v.SetEnvPrefix("RESEARCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, names := range aliases {
		envs := append([]string{"RESEARCH_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))}, names...)
		_ = v.BindEnv(append([]string{key}, envs...)...)
	}
	return v
}

// Load reads cfgFile (or config.yaml in . and ./config when empty) into v
// and decodes the settings.
func Load(v *viper.Viper, cfgFile string) (Settings, error) {
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("config")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Settings{}, fmt.Errorf("reading config: %w", err)
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return Settings{}, fmt.Errorf("decoding config: %w", err)
	}
	if s.Quarters.LastYear < s.Quarters.FirstYear {
		return Settings{}, fmt.Errorf("quarters.last_year %d is before first_year %d", s.Quarters.LastYear, s.Quarters.FirstYear)
	}
	return s, nil
}
