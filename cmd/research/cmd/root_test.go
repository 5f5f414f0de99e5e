package cmd

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"research_assistant/pkg/core/config"
	"research_assistant/pkg/core/period"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Chdir(t.TempDir())

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(append(args, "--env-file", filepath.Join(t.TempDir(), "missing.env")))
	defer rootCmd.SetArgs(nil)

	err := rootCmd.Execute()
	return out.String(), err
}

func TestQuartersCommand(t *testing.T) {
	t.Setenv("RESEARCH_QUARTERS_FIRST_YEAR", "2023")
	t.Setenv("RESEARCH_QUARTERS_LAST_YEAR", "2023")

	out, err := run(t, "quarters")
	require.NoError(t, err)
	assert.Equal(t, []string{"2023q1", "2023q2", "2023q3", "2023q4"}, strings.Fields(out))
	assert.Equal(t, 2023, settings.Quarters.FirstYear)
}

func TestAskCommand_RejectsInvertedRange(t *testing.T) {
	_, err := run(t, "ask", "How did margins change?", "--start", "2024q1", "--end", "2023q1")
	assert.ErrorIs(t, err, period.ErrInvalidRange)
}

func TestAskCommand_RejectsUnknownAgent(t *testing.T) {
	_, err := run(t, "ask", "q", "--agents", "oracle")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "oracle")
}

func TestNewSearcher(t *testing.T) {
	assert.Nil(t, newSearcher(settingsSearch("", false)))
	assert.NotNil(t, newSearcher(settingsSearch("", true)))
	assert.NotNil(t, newSearcher(settingsSearch("key", false)))
}

func TestNewArchive(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("AWS_CONFIG_FILE", filepath.Join(dir, "config"))
	t.Setenv("AWS_SHARED_CREDENTIALS_FILE", filepath.Join(dir, "credentials"))
	t.Setenv("AWS_PROFILE", "")
	ctx := context.Background()

	arc, err := newArchive(ctx, config.ArchiveSettings{})
	require.NoError(t, err)
	assert.Nil(t, arc)

	arc, err = newArchive(ctx, config.ArchiveSettings{Bucket: "reports", Region: "us-west-2"})
	require.NoError(t, err)
	assert.NotNil(t, arc)

	arc, err = newArchive(ctx, config.ArchiveSettings{Bucket: "reports", Profile: "no-such-profile"})
	assert.Error(t, err)
	assert.Nil(t, arc)
}

func settingsSearch(key string, ddg bool) config.SearchSettings {
	return config.SearchSettings{SerpAPIKey: key, DuckDuckGo: ddg}
}
