package app

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/idr/idrstat/pkg/constants"
	"github.com/idr/idrstat/pkg/errors"
)

// Config holds the application configuration loaded from config files,
// environment variables, .env files and flags.
type Config struct {
	// Global flags
	Verbose bool
	Quiet   bool
	NoColor bool
	Format  string

	// Config file
	ConfigFile string

	// Study tree
	Root string

	// Catalog connection
	CatalogDriver string
	CatalogDSN    string

	// Reports
	SearchOutput string
	MetricsFile  string

	// S3 report sink
	S3Region    string
	S3Endpoint  string
	S3PathStyle bool

	// Logging configuration. LogLevel is set by --log-level only;
	// EnvLogLevel comes from LOG_LEVEL.
	LogLevel    string
	EnvLogLevel string
	LogFormat   string
	LogOutput   string
}

// LoadConfig loads configuration from all sources in order of precedence:
// 1. Command-line flags (applied later by UpdateFromFlags)
// 2. IDRSTAT_* environment variables
// 3. .env files
// 4. Config file (configFile, or ~/.idrstat.yaml, or ./.idrstat.yaml)
// 5. Defaults
func LoadConfig(configFile string) (*Config, error) {
	// Load .env files first (before Viper env binding)
	loadEnvFiles()

	v := viper.New()
	v.SetEnvPrefix(constants.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
		v.AddConfigPath(".")
		v.SetConfigType("yaml")
		v.SetConfigName(constants.DefaultConfigName)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		// An explicit config file must exist; the default one is optional.
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, errors.NewConfigError("config", "read "+configFileName(v, configFile), err)
		}
	}

	config := &Config{
		Verbose: v.GetBool("verbose"),
		Quiet:   v.GetBool("quiet"),
		NoColor: v.GetBool("no_color"),
		Format:  v.GetString("format"),

		ConfigFile: v.ConfigFileUsed(),

		Root: v.GetString("root"),

		CatalogDriver: v.GetString("catalog.driver"),
		CatalogDSN:    v.GetString("catalog.dsn"),

		SearchOutput: v.GetString("search.output"),
		MetricsFile:  v.GetString("metrics.file"),

		S3Region:    v.GetString("s3.region"),
		S3Endpoint:  v.GetString("s3.endpoint"),
		S3PathStyle: v.GetBool("s3.path_style"),

		EnvLogLevel: os.Getenv("LOG_LEVEL"),
		LogFormat:   getEnvOrDefault("LOG_FORMAT", "auto"),
		LogOutput:   getEnvOrDefault("LOG_OUTPUT", "stderr"),
	}

	return config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("root", constants.DefaultRoot)
	v.SetDefault("format", "table")
	v.SetDefault("catalog.driver", constants.DriverPostgres)
	v.SetDefault("search.output", constants.DefaultNoMatchesFile)
}

// UpdateFromFlags copies the flags the user set explicitly, so they take
// precedence over config file and env vars.
func (c *Config) UpdateFromFlags(flags *pflag.FlagSet) error {
	bools := map[string]*bool{
		"verbose":  &c.Verbose,
		"quiet":    &c.Quiet,
		"no-color": &c.NoColor,
	}
	for name, dst := range bools {
		if !flags.Changed(name) {
			continue
		}
		v, err := flags.GetBool(name)
		if err != nil {
			return err
		}
		*dst = v
	}

	strs := map[string]*string{
		"format":         &c.Format,
		"log-level":      &c.LogLevel,
		"root":           &c.Root,
		"catalog-driver": &c.CatalogDriver,
		"catalog-dsn":    &c.CatalogDSN,
		"metrics-file":   &c.MetricsFile,
		"report":         &c.SearchOutput,
	}
	for name, dst := range strs {
		if !flags.Changed(name) {
			continue
		}
		v, err := flags.GetString(name)
		if err != nil {
			return err
		}
		*dst = v
	}
	return nil
}

// loadEnvFiles loads environment variables from .env files.
// .env.local overrides .env
func loadEnvFiles() {
	for _, envFile := range []string{".env.local", ".env"} {
		_ = godotenv.Load(envFile)
	}
}

func configFileName(v *viper.Viper, configFile string) string {
	if configFile != "" {
		return configFile
	}
	return v.ConfigFileUsed()
}

// getEnvOrDefault returns the environment variable value or the default if not set.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
