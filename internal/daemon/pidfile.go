package daemon

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
)

// WritePIDFile atomically writes the daemon's process id to path.
//
// The file is created with 0600 permissions via a temp-file-and-rename so a
// crash mid-write never leaves a corrupt PID file behind.
func WritePIDFile(path string, pid int) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create PID file directory: %w", err)
	}

	// Temp file must live in the same directory for the rename to be atomic.
	tempFile, err := os.CreateTemp(dir, ".forge.pid.tmp.*")
	if err != nil {
		return fmt.Errorf("failed to create temp PID file: %w", err)
	}
	tempPath := tempFile.Name()

	if _, err := fmt.Fprintf(tempFile, "%d\n", pid); err != nil {
		tempFile.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to write PID to temp file: %w", err)
	}

	if err := tempFile.Chmod(0600); err != nil {
		tempFile.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to set PID file permissions: %w", err)
	}

	if err := tempFile.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to close temp PID file: %w", err)
	}

	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to rename PID file: %w", err)
	}

	return nil
}

// ReadPIDFile reads the process id from path. A missing file is not an
// error; it returns pid 0, meaning no daemon is running.
func ReadPIDFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read PID file: %w", err)
	}

	pidStr := strings.TrimSpace(string(data))
	pid, err := strconv.Atoi(pidStr)
	if err != nil {
		return 0, fmt.Errorf("invalid PID in file %q: %w", path, err)
	}
	if pid <= 0 {
		return 0, fmt.Errorf("invalid PID value %d in file %q", pid, path)
	}

	return pid, nil
}

// RemovePIDFile deletes the PID file. Removing a file that is already gone
// is not an error.
func RemovePIDFile(path string) error {
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to remove PID file: %w", err)
	}
	return nil
}

// CheckPIDFile reports whether a daemon is running according to the PID file.
//
// It returns running=false with a non-zero pid when the file is stale: the
// recorded process no longer exists.
func CheckPIDFile(path string) (running bool, pid int, err error) {
	pid, err = ReadPIDFile(path)
	if err != nil {
		return false, 0, err
	}
	if pid == 0 {
		return false, 0, nil
	}

	// kill(pid, 0) sends no signal but reports whether the process exists.
	err = syscall.Kill(pid, 0)
	switch {
	case err == nil:
		return true, pid, nil
	case err == syscall.ESRCH:
		return false, pid, nil
	case err == syscall.EPERM:
		// Process exists but is owned by another user.
		return true, pid, nil
	default:
		return false, pid, fmt.Errorf("failed to check process %d: %w", pid, err)
	}
}
