package app

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/idr/idrstat/pkg/errors"
)

func isolateConfig(t *testing.T) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	for _, key := range []string{"IDRSTAT_ROOT", "IDRSTAT_FORMAT", "IDRSTAT_CATALOG_DRIVER", "IDRSTAT_CATALOG_DSN", "IDRSTAT_SEARCH_OUTPUT", "LOG_LEVEL"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	isolateConfig(t)

	config, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, ".", config.Root)
	assert.Equal(t, "table", config.Format)
	assert.Equal(t, "postgres", config.CatalogDriver)
	assert.Equal(t, "no_matches.txt", config.SearchOutput)
	assert.Equal(t, "auto", config.LogFormat)
	assert.Empty(t, config.CatalogDSN)
	assert.Empty(t, config.LogLevel)
}

func TestLoadConfig_Environment(t *testing.T) {
	isolateConfig(t)
	t.Setenv("IDRSTAT_CATALOG_DSN", "postgres://omero@db/omero")
	t.Setenv("IDRSTAT_SEARCH_OUTPUT", "s3://idr-reports/no_matches.txt")
	t.Setenv("LOG_LEVEL", "debug")

	config, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, "postgres://omero@db/omero", config.CatalogDSN)
	assert.Equal(t, "s3://idr-reports/no_matches.txt", config.SearchOutput)
	assert.Equal(t, "debug", config.EnvLogLevel)
	assert.Empty(t, config.LogLevel)
}

func TestLoadConfig_File(t *testing.T) {
	isolateConfig(t)
	path := filepath.Join(t.TempDir(), "idrstat.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`root: /uod/idr/filesets
format: yaml
catalog:
  driver: sqlite
  dsn: /tmp/catalog.db
s3:
  region: eu-west-2
  path_style: true
`), 0o644))

	config, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "/uod/idr/filesets", config.Root)
	assert.Equal(t, "yaml", config.Format)
	assert.Equal(t, "sqlite", config.CatalogDriver)
	assert.Equal(t, "/tmp/catalog.db", config.CatalogDSN)
	assert.Equal(t, "eu-west-2", config.S3Region)
	assert.True(t, config.S3PathStyle)
	assert.Equal(t, path, config.ConfigFile)
}

func TestLoadConfig_MissingExplicitFile(t *testing.T) {
	isolateConfig(t)

	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	var cfgErr *errors.ConfigError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestUpdateFromFlags(t *testing.T) {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.Bool("verbose", false, "")
	flags.Bool("quiet", false, "")
	flags.Bool("no-color", false, "")
	for _, name := range []string{"format", "log-level", "root", "catalog-driver", "catalog-dsn", "metrics-file", "report"} {
		flags.String(name, "", "")
	}
	require.NoError(t, flags.Parse([]string{"--verbose", "--root", "/data", "--report", "out.txt"}))

	config := &Config{Root: ".", Format: "json", SearchOutput: "no_matches.txt"}
	require.NoError(t, config.UpdateFromFlags(flags))

	assert.True(t, config.Verbose)
	assert.Equal(t, "/data", config.Root)
	assert.Equal(t, "out.txt", config.SearchOutput)
	// Unset flags leave loaded values alone.
	assert.Equal(t, "json", config.Format)
}
