package domain

import "errors"

// Domain errors
var (
	ErrUnknownOwner          = errors.New("refusing to process unknown file")
	ErrInvalidExpression     = errors.New("invalid search expression")
	ErrInvalidWindow         = errors.New("invalid window size")
	ErrInvalidContext        = errors.New("invalid context size")
	ErrUnresolvableOwner     = errors.New("owner cannot be resolved")
	ErrEmptyOrUnreadableFile = errors.New("file is empty or unreadable")
	ErrFileAccess            = errors.New("file access failed")
	ErrRateLimited           = errors.New("too many requests")
	ErrConfigNotFound        = errors.New("config file not found")
	ErrInvalidConfig         = errors.New("invalid configuration")
)

// Error codes for API responses
const (
	ErrCodeUnknownOwner      = "UNKNOWN_OWNER"
	ErrCodeInvalidExpression = "INVALID_EXPRESSION"
	ErrCodeInvalidWindow     = "INVALID_WINDOW"
	ErrCodeInvalidContext    = "INVALID_CONTEXT"
	ErrCodeFileAccess        = "FILE_ACCESS"
	ErrCodeRateLimited       = "RATE_LIMITED"

	// API-only codes without a sentinel error
	ErrCodeStreamingNotSupported = "STREAMING_NOT_SUPPORTED"
	ErrCodeTimeout               = "TIMEOUT"
	ErrCodeInvalidRequest        = "INVALID_REQUEST"
	ErrCodeInternal              = "INTERNAL_ERROR"
)

// ErrorCode returns the API error code for a domain error
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrUnknownOwner):
		return ErrCodeUnknownOwner
	case errors.Is(err, ErrInvalidExpression):
		return ErrCodeInvalidExpression
	case errors.Is(err, ErrInvalidWindow):
		return ErrCodeInvalidWindow
	case errors.Is(err, ErrInvalidContext):
		return ErrCodeInvalidContext
	case errors.Is(err, ErrFileAccess):
		return ErrCodeFileAccess
	case errors.Is(err, ErrRateLimited):
		return ErrCodeRateLimited
	default:
		return ErrCodeInternal
	}
}
