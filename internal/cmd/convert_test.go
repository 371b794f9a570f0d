package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadConfigFlagsWinOverFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(
		"time_start: 1.5\ntime_end: 3\nprocess_filter: [chrome]\n"), 0644))

	configPath = path
	defer func() { configPath = "" }()

	require.NoError(t, rootCmd.Flags().Set("time-end", "9"))

	config, err := loadConfig(rootCmd)
	require.NoError(t, err)

	require.Equal(t, 1.5, config.TimeStart)
	require.Equal(t, 9.0, config.TimeEnd)
	require.Equal(t, []string{"chrome"}, config.ProcessFilter)
}

func TestLoadConfigMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("{not yaml"), 0644))

	configPath = path
	defer func() { configPath = "" }()

	_, err := loadConfig(rootCmd)
	require.Error(t, err)
}
