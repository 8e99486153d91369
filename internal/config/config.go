package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/charliek/logan/internal/constants"
	"github.com/charliek/logan/internal/domain"
	"github.com/charliek/logan/internal/logger"
)

// Format is the encoding of a config file
type Format string

const (
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// FormatFor picks the format from the file extension. Anything that is not
// .toml is read as YAML.
func FormatFor(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		return FormatTOML
	}
	return FormatYAML
}

// Config represents the top-level logan configuration
type Config struct {
	API       APIConfig         `yaml:"api" toml:"api" envPrefix:"API_"`
	EnvFile   string            `yaml:"env_file" toml:"env_file"`
	Discovery DiscoveryConfig   `yaml:"discovery" toml:"discovery" envPrefix:"DISCOVERY_"`
	Docker    DockerConfig      `yaml:"docker" toml:"docker" envPrefix:"DOCKER_"`
	Owners    map[string]string `yaml:"owners" toml:"owners"`
	Window    WindowConfig      `yaml:"window" toml:"window" envPrefix:"WINDOW_"`
	Search    SearchConfig      `yaml:"search" toml:"search" envPrefix:"SEARCH_"`
	Logging   logger.Config     `yaml:"logging" toml:"logging"`

	// Path is the file the configuration was loaded from, if any
	Path string `yaml:"-" toml:"-"`
}

// APIConfig defines the HTTP API configuration
type APIConfig struct {
	Port int    `yaml:"port" toml:"port" env:"PORT"`
	Host string `yaml:"host" toml:"host" env:"HOST"`
}

// Address returns host:port for the listener
func (c APIConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// DiscoveryConfig defines where log files are looked for
type DiscoveryConfig struct {
	Roots          []string `yaml:"roots" toml:"roots" env:"ROOTS" envSeparator:","`
	Extensions     []string `yaml:"extensions" toml:"extensions" env:"EXTENSIONS" envSeparator:","`
	Suffix         string   `yaml:"suffix" toml:"suffix" env:"SUFFIX"`
	Workers        int      `yaml:"workers" toml:"workers" env:"WORKERS"`
	Watch          bool     `yaml:"watch" toml:"watch" env:"WATCH"`
	WatchDebounce  string   `yaml:"watch_debounce" toml:"watch_debounce" env:"WATCH_DEBOUNCE"`
	RescanInterval string   `yaml:"rescan_interval" toml:"rescan_interval" env:"RESCAN_INTERVAL"`
}

// DockerConfig defines how container names are resolved
type DockerConfig struct {
	Enabled *bool  `yaml:"enabled,omitempty" toml:"enabled,omitempty"` // nil = enabled, LOGAN_DOCKER_ENABLED
	Socket  string `yaml:"socket" toml:"socket" env:"SOCKET"`
	Timeout string `yaml:"timeout" toml:"timeout" env:"TIMEOUT"`
}

// WindowConfig defines head and tail limits
type WindowConfig struct {
	DefaultLines int `yaml:"default_lines" toml:"default_lines" env:"DEFAULT_LINES"`
	MaxLines     int `yaml:"max_lines" toml:"max_lines" env:"MAX_LINES"`
}

// SearchConfig defines search defaults and limits
type SearchConfig struct {
	Before           *int    `yaml:"before,omitempty" toml:"before,omitempty"` // LOGAN_SEARCH_BEFORE
	After            *int    `yaml:"after,omitempty" toml:"after,omitempty"`   // LOGAN_SEARCH_AFTER
	MaxContext       int     `yaml:"max_context" toml:"max_context" env:"MAX_CONTEXT"`
	Workers          int     `yaml:"workers" toml:"workers" env:"WORKERS"`
	FileTimeout      string  `yaml:"file_timeout" toml:"file_timeout" env:"FILE_TIMEOUT"`
	MaxPatternLength int     `yaml:"max_pattern_length" toml:"max_pattern_length" env:"MAX_PATTERN_LENGTH"`
	RateLimit        float64 `yaml:"rate_limit" toml:"rate_limit" env:"RATE_LIMIT"` // requests per second, 0 disables
	RateBurst        int     `yaml:"rate_burst" toml:"rate_burst" env:"RATE_BURST"`
}

// Load reads and parses a configuration file, then applies the env file
// and LOGAN_ environment overrides.
func Load(path string) (*Config, error) {
	// First check if file exists
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", domain.ErrConfigNotFound, path)
		}
		return nil, fmt.Errorf("checking config file: %w", err)
	}

	// Check file permissions for security
	if err := CheckFilePermissions(path); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	return build(data, FormatFor(path), path, environMap(os.Environ()))
}

// LoadFromEnv builds a configuration from defaults and the environment
// only, for running without a config file.
func LoadFromEnv() (*Config, error) {
	return build(nil, FormatYAML, "", environMap(os.Environ()))
}

// Parse parses configuration bytes without consulting the environment
func Parse(data []byte, format Format) (*Config, error) {
	return build(data, format, "", nil)
}

func build(data []byte, format Format, path string, environ map[string]string) (*Config, error) {
	config := &Config{}
	if err := decode(data, format, config); err != nil {
		return nil, err
	}
	config.Path = path

	if environ != nil {
		if err := applyEnv(config, environ); err != nil {
			return nil, err
		}
	}

	applyDefaults(config)

	if err := Validate(config); err != nil {
		return nil, err
	}

	return config, nil
}

func decode(data []byte, format Format, config *Config) error {
	if len(data) == 0 {
		return nil
	}
	switch format {
	case FormatTOML:
		if err := toml.Unmarshal(data, config); err != nil {
			return fmt.Errorf("%w: parsing toml: %w", domain.ErrInvalidConfig, err)
		}
	default:
		if err := yaml.Unmarshal(data, config); err != nil {
			return fmt.Errorf("%w: parsing yaml: %w", domain.ErrInvalidConfig, err)
		}
	}
	return nil
}

// applyEnv overlays LOGAN_ variables. Variables from env_file have lower
// priority than the process environment.
func applyEnv(config *Config, environ map[string]string) error {
	if config.EnvFile != "" {
		fileEnv, err := LoadEnvFile(resolvePath(config.EnvFile, filepath.Dir(config.Path)))
		if err != nil {
			return fmt.Errorf("loading env file: %w", err)
		}
		environ = MergeEnv(fileEnv, environ)
	}

	opts := env.Options{
		Prefix:      constants.EnvPrefix,
		Environment: environ,
	}

	// env descends into non-nil pointers as if they were nested structs, so
	// the optional fields are detached while it runs and overlaid afterwards.
	before, after, enabled := config.Search.Before, config.Search.After, config.Docker.Enabled
	config.Search.Before, config.Search.After, config.Docker.Enabled = nil, nil, nil
	err := env.ParseWithOptions(config, opts)
	config.Search.Before, config.Search.After, config.Docker.Enabled = before, after, enabled
	if err != nil {
		return fmt.Errorf("%w: environment: %w", domain.ErrInvalidConfig, err)
	}

	var optional optionalEnv
	if err := env.ParseWithOptions(&optional, opts); err != nil {
		return fmt.Errorf("%w: environment: %w", domain.ErrInvalidConfig, err)
	}
	return optional.apply(config)
}

// optionalEnv holds the overrides for fields where unset and zero differ
type optionalEnv struct {
	SearchBefore  string `env:"SEARCH_BEFORE"`
	SearchAfter   string `env:"SEARCH_AFTER"`
	DockerEnabled string `env:"DOCKER_ENABLED"`
}

func (o optionalEnv) apply(config *Config) error {
	if o.SearchBefore != "" {
		n, err := strconv.Atoi(o.SearchBefore)
		if err != nil {
			return fmt.Errorf("%w: %sSEARCH_BEFORE: %w", domain.ErrInvalidConfig, constants.EnvPrefix, err)
		}
		config.Search.Before = &n
	}
	if o.SearchAfter != "" {
		n, err := strconv.Atoi(o.SearchAfter)
		if err != nil {
			return fmt.Errorf("%w: %sSEARCH_AFTER: %w", domain.ErrInvalidConfig, constants.EnvPrefix, err)
		}
		config.Search.After = &n
	}
	if o.DockerEnabled != "" {
		b, err := strconv.ParseBool(o.DockerEnabled)
		if err != nil {
			return fmt.Errorf("%w: %sDOCKER_ENABLED: %w", domain.ErrInvalidConfig, constants.EnvPrefix, err)
		}
		config.Docker.Enabled = &b
	}
	return nil
}

func applyDefaults(config *Config) {
	if config.API.Port == 0 {
		config.API.Port = constants.DefaultAPIPort
	}
	if config.API.Host == "" {
		config.API.Host = constants.DefaultAPIHost
	}

	if len(config.Discovery.Extensions) == 0 {
		config.Discovery.Extensions = []string{constants.DefaultExtension}
	}
	if config.Discovery.Suffix == "" {
		config.Discovery.Suffix = constants.DefaultOwnerSuffix
	}
	if config.Discovery.Workers == 0 {
		config.Discovery.Workers = constants.DefaultWorkers
	}
	if config.Discovery.WatchDebounce == "" {
		config.Discovery.WatchDebounce = constants.DefaultWatchDebounce.String()
	}

	if config.Docker.Socket == "" {
		config.Docker.Socket = constants.DefaultDockerSocket
	}
	if config.Docker.Timeout == "" {
		config.Docker.Timeout = constants.DefaultDockerTimeout.String()
	}

	if config.Window.MaxLines == 0 {
		config.Window.MaxLines = constants.MaxWindowLines
	}
	if config.Window.DefaultLines == 0 {
		config.Window.DefaultLines = min(constants.DefaultWindowLines, config.Window.MaxLines)
	}

	if config.Search.Before == nil {
		config.Search.Before = intPtr(constants.DefaultBeforeContext)
	}
	if config.Search.After == nil {
		config.Search.After = intPtr(constants.DefaultAfterContext)
	}
	if config.Search.MaxContext == 0 {
		config.Search.MaxContext = constants.MaxContextLines
	}
	if config.Search.Workers == 0 {
		config.Search.Workers = constants.DefaultWorkers
	}
	if config.Search.FileTimeout == "" {
		config.Search.FileTimeout = constants.DefaultFileScanTimeout.String()
	}
	if config.Search.MaxPatternLength == 0 {
		config.Search.MaxPatternLength = constants.MaxPatternLength
	}
	if config.Search.RateBurst == 0 {
		config.Search.RateBurst = constants.DefaultSearchRateBurst
	}

	if config.Logging.Level == "" {
		config.Logging.Level = "info"
	}
}

func intPtr(n int) *int {
	return &n
}

// DockerEnabled reports whether container names are looked up via Docker
func (c *Config) DockerEnabled() bool {
	return c.Docker.Enabled == nil || *c.Docker.Enabled
}

// DockerTimeout returns the parsed docker lookup timeout
func (c *Config) DockerTimeout() time.Duration {
	return parseDurationOr(c.Docker.Timeout, constants.DefaultDockerTimeout)
}

// WatchDebounce returns the parsed watcher debounce
func (c *Config) WatchDebounce() time.Duration {
	return parseDurationOr(c.Discovery.WatchDebounce, constants.DefaultWatchDebounce)
}

// RescanInterval returns the periodic rescan interval, 0 when disabled
func (c *Config) RescanInterval() time.Duration {
	return parseDurationOr(c.Discovery.RescanInterval, 0)
}

// FileTimeout returns the per-file search deadline, 0 when disabled
func (c *Config) FileTimeout() time.Duration {
	return parseDurationOr(c.Search.FileTimeout, constants.DefaultFileScanTimeout)
}

// BeforeContext returns the default number of lines before a match
func (c *Config) BeforeContext() int {
	if c.Search.Before == nil {
		return constants.DefaultBeforeContext
	}
	return *c.Search.Before
}

// AfterContext returns the default number of lines after a match
func (c *Config) AfterContext() int {
	if c.Search.After == nil {
		return constants.DefaultAfterContext
	}
	return *c.Search.After
}

// parseDurationOr parses s, returning fallback when s is empty or invalid.
// Validate reports invalid durations before this is reached.
func parseDurationOr(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}
