// Package config handles the XDG configuration directory, config.yaml, and
// environment overrides.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	// AppName is the application directory name.
	AppName = "taskman"

	// ConfigFile is the optional settings filename inside the config dir.
	ConfigFile = "config.yaml"

	// OAuthClientFile is the OAuth client credentials filename (google backend).
	OAuthClientFile = "oauth_client.json"

	// TokenFile is the stored OAuth token filename (google backend).
	TokenFile = "token.json"

	// EnvPrefix prefixes every environment override, e.g. TASKMAN_BASE_URL.
	EnvPrefix = "TASKMAN"

	// DefaultBaseURL is the deployed task backend.
	DefaultBaseURL = "https://task-management-backend-six-sigma.vercel.app/"

	// DefaultTimeout bounds a single backend request.
	DefaultTimeout = 10 * time.Second
)

// Backend names.
const (
	BackendREST   = "rest"
	BackendGoogle = "google"
)

// Output formats.
const (
	OutputText = "text"
	OutputJSON = "json"
	OutputYAML = "yaml"
)

// Config holds configuration paths and settings.
type Config struct {
	// Dir is the configuration directory path.
	Dir string `yaml:"-" mapstructure:"-"`

	// Debug enables debug logging.
	Debug bool `yaml:"-" mapstructure:"-"`

	// Quiet suppresses informational output.
	Quiet bool `yaml:"-" mapstructure:"-"`

	// Backend selects the task service implementation.
	Backend string `yaml:"backend" mapstructure:"backend"`

	// BaseURL is the root of the task REST API.
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`

	// Token is an optional bearer token for the REST API.
	Token string `yaml:"token,omitempty" mapstructure:"token"`

	// Timeout bounds each backend request. Zero disables the deadline.
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`

	// Output is the default output format for task listings.
	Output string `yaml:"output" mapstructure:"output"`
}

// New creates a new Config with defaults and the default or specified config
// directory. If configDir is empty, uses XDG_CONFIG_HOME/taskman or
// $HOME/.config/taskman.
func New(configDir string) (*Config, error) {
	dir := configDir
	if dir == "" {
		dir = DefaultConfigDir()
	}
	return &Config{
		Dir:     dir,
		Backend: BackendREST,
		BaseURL: DefaultBaseURL,
		Timeout: DefaultTimeout,
		Output:  OutputText,
	}, nil
}

// Load builds a Config from defaults, an optional .env file in the working
// directory, config.yaml in the config directory, and TASKMAN_* environment
// variables, in increasing order of precedence.
func Load(configDir string) (*Config, error) {
	cfg, err := New(configDir)
	if err != nil {
		return nil, err
	}

	// A missing .env is normal.
	_ = godotenv.Load()

	v := viper.New()
	v.SetDefault("backend", cfg.Backend)
	v.SetDefault("base_url", cfg.BaseURL)
	v.SetDefault("token", "")
	v.SetDefault("timeout", cfg.Timeout)
	v.SetDefault("output", cfg.Output)

	v.SetEnvPrefix(EnvPrefix)
	for _, key := range []string{"backend", "base_url", "token", "timeout", "output"} {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	if _, err := os.Stat(cfg.Path()); err == nil {
		v.SetConfigFile(cfg.Path())
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("invalid %s: %w", ConfigFile, err)
		}
	}

	cfg.Backend = v.GetString("backend")
	cfg.BaseURL = v.GetString("base_url")
	cfg.Token = v.GetString("token")
	cfg.Timeout = v.GetDuration("timeout")
	cfg.Output = v.GetString("output")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the backend, base URL, timeout, and output settings.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendREST, BackendGoogle:
	default:
		return fmt.Errorf("unknown backend: %s", c.Backend)
	}

	if c.Backend == BackendREST {
		u, err := url.Parse(c.BaseURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("invalid base url: %s", c.BaseURL)
		}
	}

	if c.Timeout < 0 {
		return errors.New("timeout must not be negative")
	}

	return ValidateOutput(c.Output)
}

// ValidateOutput checks an output format name.
func ValidateOutput(format string) error {
	switch format {
	case OutputText, OutputJSON, OutputYAML:
		return nil
	default:
		return fmt.Errorf("unknown output format: %s", format)
	}
}

// DefaultConfigDir returns the default configuration directory.
// Uses XDG_CONFIG_HOME if set, otherwise $HOME/.config.
func DefaultConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, AppName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return AppName
	}
	return filepath.Join(home, ".config", AppName)
}

// Path returns the path to config.yaml.
func (c *Config) Path() string {
	return filepath.Join(c.Dir, ConfigFile)
}

// OAuthClientPath returns the path to the OAuth client credentials file.
func (c *Config) OAuthClientPath() string {
	return filepath.Join(c.Dir, OAuthClientFile)
}

// TokenPath returns the path to the stored OAuth token file.
func (c *Config) TokenPath() string {
	return filepath.Join(c.Dir, TokenFile)
}

// EnsureDir creates the config directory if it doesn't exist.
// Directory is created with mode 0700.
func (c *Config) EnsureDir() error {
	return os.MkdirAll(c.Dir, 0700)
}

// HasOAuthClient checks if the OAuth client credentials file exists.
func (c *Config) HasOAuthClient() bool {
	_, err := os.Stat(c.OAuthClientPath())
	return err == nil
}

// HasToken checks if the token file exists.
func (c *Config) HasToken() bool {
	_, err := os.Stat(c.TokenPath())
	return err == nil
}

// RemoveToken deletes the token file.
func (c *Config) RemoveToken() error {
	return os.Remove(c.TokenPath())
}
