// Package constants provides shared configuration values used across the logan application.
package constants

import "time"

// Configuration file defaults
const (
	// DefaultConfigFile is the default configuration filename
	DefaultConfigFile = "logan.yaml"

	// DefaultAPIHost is the default host for the API server
	DefaultAPIHost = "127.0.0.1"

	// DefaultAPIPort is the default port for the API server
	DefaultAPIPort = 5580

	// DefaultAPIAddress is the default API address for client connections
	DefaultAPIAddress = "http://127.0.0.1:5580"

	// EnvPrefix prefixes every environment override
	EnvPrefix = "LOGAN_"
)

// Discovery defaults
const (
	// DefaultOwnerSuffix is the container-log naming convention marker
	DefaultOwnerSuffix = "-json.log"

	// DefaultExtension is matched when no extensions are configured
	DefaultExtension = "log"

	// DefaultDockerSocket is the Docker Engine API socket
	DefaultDockerSocket = "/var/run/docker.sock"

	// DefaultDockerTimeout bounds a single container lookup
	DefaultDockerTimeout = 5 * time.Second

	// DefaultWorkers is the worker pool size for discovery and search
	DefaultWorkers = 4

	// DefaultWatchDebounce coalesces bursts of filesystem events
	DefaultWatchDebounce = 2 * time.Second
)

// Timeout and duration defaults
const (
	// DefaultRequestTimeout is the default timeout for API requests
	DefaultRequestTimeout = 30 * time.Second

	// DefaultShutdownTimeout is the default timeout for graceful shutdown
	DefaultShutdownTimeout = 10 * time.Second

	// DefaultFileScanTimeout bounds the search of a single file
	DefaultFileScanTimeout = 30 * time.Second
)

// Window and search configuration
const (
	// DefaultWindowLines is the default number of lines for head and tail
	DefaultWindowLines = 200

	// MaxWindowLines is the maximum number of lines that can be requested
	// to prevent memory exhaustion
	MaxWindowLines = 10000

	// DefaultBeforeContext is the default number of lines shown before a match
	DefaultBeforeContext = 2

	// DefaultAfterContext is the default number of lines shown after a match
	DefaultAfterContext = 2

	// MaxContextLines caps before and after context sizes
	MaxContextLines = 100

	// MaxPatternLength is the maximum allowed length for search expressions
	MaxPatternLength = 256

	// DefaultSearchRateBurst is the burst allowed when search rate limiting is on
	DefaultSearchRateBurst = 5
)

// Buffer sizes
const (
	// ScannerBufferSize is the initial buffer size for log line scanning
	ScannerBufferSize = 64 * 1024 // 64KB

	// ScannerMaxBufferSize is the maximum buffer size for log line scanning
	ScannerMaxBufferSize = 1024 * 1024 // 1MB

	// FollowBuffer is the channel size for followed lines
	FollowBuffer = 100
)
