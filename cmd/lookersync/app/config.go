package app

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/agentstation/lookersync/internal/credentials"
	"github.com/agentstation/lookersync/pkg/constants"
	"github.com/agentstation/lookersync/pkg/errors"
)

// Credential sources selectable with --credentials.
const (
	CredentialsFile = "file"
	CredentialsEnv  = "env"
)

// EnvPrefix prefixes every lookersync setting read from the environment,
// e.g. LOOKERSYNC_METADATA_LOOK_ID.
const EnvPrefix = "LOOKERSYNC"

// Config holds the application configuration loaded from flags, environment
// variables, .env files and the config file.
type Config struct {
	// Global flags
	Verbose bool
	Quiet   bool
	NoColor bool
	Format  string

	// ConfigFile holds the instance credentials and optional settings
	ConfigFile string
	// Credentials selects the credentials source: file or env
	Credentials string

	// Sync settings
	LookID      int64
	HTTPTimeout time.Duration

	// Logging configuration
	LogLevel    string // --log-level flag
	EnvLogLevel string // LOG_LEVEL environment variable
	LogFormat   string
	LogOutput   string
}

// LoadConfig loads configuration from all sources in order of precedence:
// 1. Command-line flags (handled by cobra)
// 2. Environment variables
// 3. .env files
// 4. Config file (config.yml)
// 5. Defaults
func LoadConfig() (*Config, error) {
	// Load .env files first (before Viper env binding)
	loadEnvFiles()

	v := newViper()
	config := &Config{
		ConfigFile:  v.GetString("config"),
		Credentials: v.GetString("credentials"),
		EnvLogLevel: os.Getenv("LOG_LEVEL"),
		LogFormat:   getEnvOrDefault("LOG_FORMAT", "auto"),
		LogOutput:   getEnvOrDefault("LOG_OUTPUT", "stderr"),
	}
	if err := config.loadSettings(); err != nil {
		return nil, err
	}
	return config, nil
}

// newViper returns a viper instance bound to the environment with defaults.
func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	v.SetDefault("config", credentials.DefaultFile)
	v.SetDefault("credentials", CredentialsFile)
	v.SetDefault("metadata_look_id", constants.MetadataLookID)
	v.SetDefault("http_timeout", constants.DefaultHTTPTimeout)
	return v
}

// loadSettings reads the sync settings from the environment and, when it
// exists, the config file. The credentials under "hosts" are read
// separately by the file credentials provider.
func (c *Config) loadSettings() error {
	v := newViper()
	if c.ConfigFile != "" {
		if _, err := os.Stat(c.ConfigFile); err == nil {
			v.SetConfigFile(c.ConfigFile)
			v.SetConfigType("yaml")
			if err := v.ReadInConfig(); err != nil {
				return errors.NewConfigError("config", "cannot read "+c.ConfigFile, errors.WrapParse("yaml", c.ConfigFile, err))
			}
		}
	}

	c.LookID = v.GetInt64("metadata_look_id")
	c.HTTPTimeout = v.GetDuration("http_timeout")
	if c.LookID <= 0 {
		return errors.NewConfigError("config", "metadata_look_id must be positive", errors.NewValidationError("metadata_look_id", c.LookID, "must be positive"))
	}
	if c.HTTPTimeout <= 0 {
		c.HTTPTimeout = constants.DefaultHTTPTimeout
	}
	return nil
}

// UpdateFromFlags updates config values from parsed command flags so flag
// values take precedence over config file and env vars.
func (c *Config) UpdateFromFlags(verbose, quiet, noColor bool, format, logLevel, configFile, creds string) error {
	c.Verbose = verbose
	c.Quiet = quiet
	c.NoColor = noColor
	if format != "" {
		c.Format = format
	}
	if logLevel != "" {
		c.LogLevel = logLevel
	}
	if creds != "" {
		c.Credentials = creds
	}
	if configFile != "" && configFile != c.ConfigFile {
		c.ConfigFile = configFile
		return c.loadSettings()
	}
	return nil
}

// loadEnvFiles loads environment variables from .env files.
func loadEnvFiles() {
	// .env.local values do not override .env; godotenv never overwrites
	for _, envFile := range []string{".env", ".env.local"} {
		_ = godotenv.Load(envFile)
	}
}

// getEnvOrDefault returns the environment variable value or the default if not set.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
