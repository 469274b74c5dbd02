// Package daemon tracks a background `bugless serve` process through a
// PID file.
package daemon

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"
)

// ErrRunning is returned by Acquire when a live process owns the file.
var ErrRunning = errors.New("already running")

// PIDFile manages a PID file for daemon process tracking.
type PIDFile struct {
	Path string
}

// NewPIDFile creates a PIDFile manager for the given path.
func NewPIDFile(path string) *PIDFile {
	return &PIDFile{Path: path}
}

// Write writes the current process's PID to the file.
func (p *PIDFile) Write() error {
	return p.WritePID(os.Getpid())
}

// WritePID writes pid to the file, creating its directory if needed.
func (p *PIDFile) WritePID(pid int) error {
	if err := os.MkdirAll(filepath.Dir(p.Path), 0o755); err != nil {
		return fmt.Errorf("create PID directory: %w", err)
	}
	return os.WriteFile(p.Path, []byte(strconv.Itoa(pid)+"\n"), 0o644)
}

// Read reads the PID from the file.
func (p *PIDFile) Read() (int, error) {
	data, err := os.ReadFile(p.Path)
	if err != nil {
		return 0, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("invalid PID file content: %w", err)
	}
	return pid, nil
}

// Remove deletes the PID file.
func (p *PIDFile) Remove() error {
	return os.Remove(p.Path)
}

// IsRunning returns the recorded pid and whether that process is alive.
// A missing or unreadable file counts as not running.
func (p *PIDFile) IsRunning() (int, bool) {
	pid, err := p.Read()
	if err != nil {
		return 0, false
	}
	return pid, alive(pid)
}

// Signal sends sig to the recorded process.
func (p *PIDFile) Signal(sig syscall.Signal) error {
	pid, err := p.Read()
	if err != nil {
		return fmt.Errorf("read PID file: %w", err)
	}
	return sendSignal(pid, sig)
}

// Acquire claims the file for pid. A file left behind by a dead process
// is replaced; a live owner other than pid yields ErrRunning.
func (p *PIDFile) Acquire(pid int) error {
	if owner, running := p.IsRunning(); running && owner != pid {
		return fmt.Errorf("%w (pid %d)", ErrRunning, owner)
	}
	if err := p.Remove(); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove stale PID file: %w", err)
	}
	return p.WritePID(pid)
}

// Release removes the file if it still names pid.
func (p *PIDFile) Release(pid int) error {
	owner, err := p.Read()
	if err != nil || owner != pid {
		return nil
	}
	return p.Remove()
}

// WaitExit polls until the recorded process is gone or timeout passes.
// It reports whether the process exited.
func (p *PIDFile) WaitExit(timeout, interval time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for {
		if _, running := p.IsRunning(); !running {
			return true
		}
		if time.Now().After(deadline) {
			return false
		}
		time.Sleep(interval)
	}
}
