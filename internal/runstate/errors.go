package runstate

import "errors"

var (
	// ErrStateNotFound is returned when no state file exists
	ErrStateNotFound = errors.New("state file not found")
	// ErrAlreadyRunning is returned when another logan serves from the same directory
	ErrAlreadyRunning = errors.New("logan is already running")
	// ErrNotRunning is returned when the state file belongs to a process that has exited
	ErrNotRunning = errors.New("logan is not running")
	// ErrPIDFileLocked is returned when the PID file is locked by another process
	ErrPIDFileLocked = errors.New("PID file is locked by another process")
)
