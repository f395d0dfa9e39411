package daemon

import (
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/desertthunder/spondex/internal/shared"
)

// stopPollInterval is how often Stop re-checks whether the daemon
// process exited.
const stopPollInterval = 100 * time.Millisecond

// WritePidFile records the current process id. The daemon calls this on
// startup and removes the file on exit.
func WritePidFile(path string) error {
	if err := os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())+"\n"), 0o644); err != nil {
		return fmt.Errorf("failed to write pid file: %w", err)
	}
	return nil
}

// RemovePidFile deletes the pid file, ignoring an already-missing one.
func RemovePidFile(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove pid file: %w", err)
	}
	return nil
}

// ReadPid parses the pid file. A missing file means no daemon.
func ReadPid(path string) (int, error) {
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return 0, shared.ErrDaemonNotRunning
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read pid file: %w", err)
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(raw)))
	if err != nil || pid <= 0 {
		return 0, fmt.Errorf("%w: malformed pid file %s", shared.ErrDaemonNotRunning, path)
	}
	return pid, nil
}

// processAlive probes a pid with signal 0.
func processAlive(pid int) bool {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return proc.Signal(syscall.Signal(0)) == nil
}

// RunningPid returns the live daemon's pid, cleaning up a stale pid file
// left by a crashed process.
func RunningPid(pidPath string) (int, error) {
	pid, err := ReadPid(pidPath)
	if err != nil {
		return 0, err
	}
	if !processAlive(pid) {
		_ = RemovePidFile(pidPath)
		return 0, shared.ErrDaemonNotRunning
	}
	return pid, nil
}

// Spawn starts a detached daemon process running `daemon run` and
// returns its pid. The child writes its own pid file once it is up.
func Spawn(pidPath, logPath string) (int, error) {
	if pid, err := RunningPid(pidPath); err == nil {
		return pid, fmt.Errorf("%w: pid %d", shared.ErrDaemonAlreadyRunning, pid)
	}

	exe, err := os.Executable()
	if err != nil {
		return 0, fmt.Errorf("failed to resolve executable: %w", err)
	}

	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return 0, fmt.Errorf("failed to open daemon log: %w", err)
	}
	defer logFile.Close()

	cmd := exec.Command(exe, "daemon", "run")
	cmd.Stdout = logFile
	cmd.Stderr = logFile
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}

	if err := cmd.Start(); err != nil {
		return 0, fmt.Errorf("failed to start daemon process: %w", err)
	}
	pid := cmd.Process.Pid
	if err := cmd.Process.Release(); err != nil {
		return pid, fmt.Errorf("failed to detach daemon process: %w", err)
	}
	return pid, nil
}

// Terminate sends SIGTERM to the daemon and waits up to grace plus a
// small margin for it to exit, escalating to SIGKILL.
func Terminate(pidPath string, grace time.Duration) error {
	pid, err := RunningPid(pidPath)
	if err != nil {
		return err
	}

	proc, err := os.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("failed to find daemon process: %w", err)
	}
	if err := proc.Signal(syscall.SIGTERM); err != nil {
		return fmt.Errorf("failed to signal daemon: %w", err)
	}

	deadline := time.Now().Add(grace + 2*time.Second)
	for time.Now().Before(deadline) {
		if !processAlive(pid) {
			_ = RemovePidFile(pidPath)
			return nil
		}
		time.Sleep(stopPollInterval)
	}

	if err := proc.Signal(syscall.SIGKILL); err != nil {
		return fmt.Errorf("daemon did not exit and SIGKILL failed: %w", err)
	}
	_ = RemovePidFile(pidPath)
	return nil
}
