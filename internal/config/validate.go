package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/charliek/logan/internal/domain"
	"github.com/charliek/logan/internal/logger"
)

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks the configuration for errors
func Validate(config *Config) error {
	var errs []string

	// Validate API config
	if config.API.Port < 0 || config.API.Port > 65535 {
		errs = append(errs, fmt.Sprintf("api.port: must be between 0 and 65535, got %d", config.API.Port))
	}

	// Validate discovery
	if len(config.Discovery.Roots) == 0 {
		errs = append(errs, "discovery.roots: at least one root directory must be defined")
	}
	for i, root := range config.Discovery.Roots {
		if strings.TrimSpace(root) == "" {
			errs = append(errs, fmt.Sprintf("discovery.roots[%d]: must not be empty", i))
		}
	}
	for i, ext := range config.Discovery.Extensions {
		if err := ValidateExtension(ext); err != nil {
			errs = append(errs, fmt.Sprintf("discovery.extensions[%d]: %v", i, err))
		}
	}
	if config.Discovery.Workers < 0 {
		errs = append(errs, "discovery.workers: must be non-negative")
	}
	errs = appendDurationErr(errs, "discovery.watch_debounce", config.Discovery.WatchDebounce)
	errs = appendDurationErr(errs, "discovery.rescan_interval", config.Discovery.RescanInterval)
	errs = appendDurationErr(errs, "docker.timeout", config.Docker.Timeout)

	// Validate owners
	for id, name := range config.Owners {
		if id == "" {
			errs = append(errs, "owners: owner id cannot be empty")
		}
		if name == "" {
			errs = append(errs, fmt.Sprintf("owners.%s: display name is required", id))
		}
	}

	// Validate window
	if config.Window.DefaultLines < 0 {
		errs = append(errs, "window.default_lines: must be positive")
	}
	if config.Window.MaxLines < 0 {
		errs = append(errs, "window.max_lines: must be positive")
	}
	if config.Window.MaxLines > 0 && config.Window.DefaultLines > config.Window.MaxLines {
		errs = append(errs, fmt.Sprintf("window.default_lines: must not exceed max_lines (%d)", config.Window.MaxLines))
	}

	// Validate search
	if config.Search.MaxContext < 0 {
		errs = append(errs, "search.max_context: must be non-negative")
	}
	errs = appendContextErr(errs, "search.before", config.Search.Before, config.Search.MaxContext)
	errs = appendContextErr(errs, "search.after", config.Search.After, config.Search.MaxContext)
	if config.Search.Workers < 0 {
		errs = append(errs, "search.workers: must be non-negative")
	}
	if config.Search.MaxPatternLength < 0 {
		errs = append(errs, "search.max_pattern_length: must be non-negative")
	}
	if config.Search.RateLimit < 0 {
		errs = append(errs, "search.rate_limit: must be non-negative")
	}
	if config.Search.RateBurst < 0 {
		errs = append(errs, "search.rate_burst: must be non-negative")
	}
	errs = appendDurationErr(errs, "search.file_timeout", config.Search.FileTimeout)

	// Validate logging
	if config.Logging.Level != "" {
		if _, err := logger.ParseLevel(config.Logging.Level); err != nil {
			errs = append(errs, fmt.Sprintf("logging.level: %v", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %s", domain.ErrInvalidConfig, strings.Join(errs, "; "))
	}

	return nil
}

func appendContextErr(errs []string, field string, value *int, maxContext int) []string {
	if value == nil {
		return errs
	}
	if *value < 0 || (maxContext > 0 && *value > maxContext) {
		return append(errs, fmt.Sprintf("%s: must be between 0 and %d, got %d", field, maxContext, *value))
	}
	return errs
}

func appendDurationErr(errs []string, field, value string) []string {
	if value == "" {
		return errs
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return append(errs, fmt.Sprintf("%s: invalid duration %q", field, value))
	}
	if d < 0 {
		return append(errs, fmt.Sprintf("%s: must be non-negative", field))
	}
	return errs
}

// ValidateExtension checks if a discovery extension is valid
func ValidateExtension(ext string) error {
	if ext == "" {
		return &ValidationError{Field: "extension", Message: "extension cannot be empty"}
	}
	if strings.ContainsAny(ext, " \t\n/\\*?[]{}") {
		return &ValidationError{Field: "extension", Message: "extension cannot contain whitespace, path separators or glob characters"}
	}
	return nil
}
