// Package pidfile records the running instance so `ainex stop` can signal it.
package pidfile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
)

// ErrNotRunning is returned by Signal when no live instance is recorded.
var ErrNotRunning = errors.New("pidfile: no running instance")

// DefaultPath returns the pidfile location inside dir.
func DefaultPath(dir string) string {
	return filepath.Join(dir, "ainex.pid")
}

// Write records the current process id at path.
func Write(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create pid dir: %w", err)
	}
	return os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())+"\n"), 0o644)
}

// Remove deletes the pidfile if it still names this process.
func Remove(path string) error {
	pid, err := Read(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	if pid != os.Getpid() {
		return nil
	}
	return os.Remove(path)
}

// Read returns the pid recorded at path.
func Read(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("pidfile: parse %s: %w", path, err)
	}
	return pid, nil
}

// Signal sends sig to the recorded process. A stale pidfile is removed and
// reported as ErrNotRunning.
func Signal(path string, sig syscall.Signal) (int, error) {
	pid, err := Read(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, ErrNotRunning
		}
		return 0, err
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return pid, err
	}
	if err := proc.Signal(sig); err != nil {
		if errors.Is(err, os.ErrProcessDone) || errors.Is(err, syscall.ESRCH) {
			os.Remove(path)
			return pid, ErrNotRunning
		}
		return pid, fmt.Errorf("signal %d: %w", pid, err)
	}
	return pid, nil
}
