// Package runstate records where a running logan server listens, so client
// commands started from the same directory can find it.
package runstate

import (
	"encoding/json"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

const (
	// DirName is the name of the directory storing runtime state
	DirName = ".logan"
	// StateFileName is the name of the state file
	StateFileName = "logan.state"
	// PIDFileName is the name of the PID file
	PIDFileName = "logan.pid"
)

// State holds the runtime state of a running logan server. The server
// writes it once after it starts listening; clients only read it.
type State struct {
	PID        int       `json:"pid"`
	Host       string    `json:"host"`
	Port       int       `json:"port"`
	StartedAt  time.Time `json:"started_at"`
	ConfigFile string    `json:"config_file,omitempty"`
	Roots      []string  `json:"roots"`
}

// Address returns the base URL clients should use. Wildcard listen
// addresses are reached over loopback.
func (s *State) Address() string {
	host := s.Host
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "127.0.0.1"
	}
	return "http://" + net.JoinHostPort(host, strconv.Itoa(s.Port))
}

// Write stores the state below dir. The file is replaced atomically so a
// reader never sees a partial document.
func (s *State) Write(dir string) error {
	if s.PID <= 0 {
		return fmt.Errorf("invalid PID: %d", s.PID)
	}
	if s.Port < 1 || s.Port > 65535 {
		return fmt.Errorf("invalid port: %d", s.Port)
	}
	if s.Host == "" {
		return fmt.Errorf("host cannot be empty")
	}

	if err := EnsureDir(dir); err != nil {
		return err
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling state: %w", err)
	}

	tmp, err := os.CreateTemp(Dir(dir), StateFileName+".*")
	if err != nil {
		return fmt.Errorf("creating state file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing state file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("syncing state file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing state file: %w", err)
	}

	if err := os.Rename(tmp.Name(), StatePath(dir)); err != nil {
		return fmt.Errorf("replacing state file: %w", err)
	}
	return nil
}

// Load reads the state file below dir
func Load(dir string) (*State, error) {
	data, err := os.ReadFile(StatePath(dir))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrStateNotFound
		}
		return nil, fmt.Errorf("reading state file: %w", err)
	}

	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("unmarshaling state: %w", err)
	}

	return &state, nil
}

// Running returns the state of the server serving from dir. A state file
// left behind by a server that has exited yields ErrNotRunning.
func Running(dir string) (*State, error) {
	state, err := Load(dir)
	if err != nil {
		return nil, err
	}
	if !IsLocked(PIDPath(dir)) {
		return nil, ErrNotRunning
	}
	return state, nil
}

// Remove deletes the state file below dir
func Remove(dir string) error {
	if err := os.Remove(StatePath(dir)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing state file: %w", err)
	}
	return nil
}

// Dir returns the path to the .logan directory in the given directory.
// If dir is empty, uses the current working directory.
func Dir(dir string) string {
	if dir == "" {
		var err error
		dir, err = os.Getwd()
		if err != nil {
			// Fall back to relative path rather than creating at root
			return DirName
		}
	}
	return filepath.Join(dir, DirName)
}

// StatePath returns the full path to the state file
func StatePath(dir string) string {
	return filepath.Join(Dir(dir), StateFileName)
}

// PIDPath returns the full path to the PID file
func PIDPath(dir string) string {
	return filepath.Join(Dir(dir), PIDFileName)
}

// EnsureDir creates the .logan directory if it doesn't exist
func EnsureDir(dir string) error {
	if err := os.MkdirAll(Dir(dir), 0700); err != nil {
		return fmt.Errorf("creating state directory: %w", err)
	}
	return nil
}
