package daemon

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/desertthunder/spondex/internal/shared"
)

func TestLifecycle(t *testing.T) {
	t.Run("shutdown request cancels the context with its reason", func(t *testing.T) {
		l := NewLifecycle(context.Background(), time.Second)
		defer l.Close()

		l.RequestShutdown("rpc shutdown")

		select {
		case <-l.Context().Done():
		case <-time.After(time.Second):
			t.Fatal("context not cancelled")
		}
		if got := l.Wait(); got != "rpc shutdown" {
			t.Errorf("expected rpc reason, got %q", got)
		}
	})

	t.Run("first shutdown reason wins", func(t *testing.T) {
		l := NewLifecycle(context.Background(), time.Second)
		defer l.Close()

		l.RequestShutdown("first")
		l.RequestShutdown("second")

		if got := l.Wait(); got != "first" {
			t.Errorf("expected first reason kept, got %q", got)
		}
	})

	t.Run("parent cancellation reads as a signal shutdown", func(t *testing.T) {
		parent, cancel := context.WithCancel(context.Background())
		l := NewLifecycle(parent, time.Second)
		defer l.Close()

		cancel()
		if got := l.Wait(); got != "signal" {
			t.Errorf("expected signal reason, got %q", got)
		}
	})

	t.Run("grace period is carried", func(t *testing.T) {
		l := NewLifecycle(context.Background(), 30*time.Second)
		defer l.Close()
		if l.GracePeriod() != 30*time.Second {
			t.Errorf("unexpected grace period %v", l.GracePeriod())
		}
	})
}

func TestPidFile(t *testing.T) {
	t.Run("write and read round trip", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "daemon.pid")
		if err := WritePidFile(path); err != nil {
			t.Fatalf("write failed: %v", err)
		}

		pid, err := ReadPid(path)
		if err != nil {
			t.Fatalf("read failed: %v", err)
		}
		if pid != os.Getpid() {
			t.Errorf("expected pid %d, got %d", os.Getpid(), pid)
		}
	})

	t.Run("missing pid file means not running", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "daemon.pid")
		if _, err := ReadPid(path); !errors.Is(err, shared.ErrDaemonNotRunning) {
			t.Errorf("expected ErrDaemonNotRunning, got %v", err)
		}
	})

	t.Run("malformed pid file means not running", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "daemon.pid")
		if err := os.WriteFile(path, []byte("not-a-pid\n"), 0o644); err != nil {
			t.Fatal(err)
		}
		if _, err := ReadPid(path); !errors.Is(err, shared.ErrDaemonNotRunning) {
			t.Errorf("expected ErrDaemonNotRunning, got %v", err)
		}
	})

	t.Run("stale pid file is cleaned up", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "daemon.pid")
		// pids roll over long before this value on Linux
		if err := os.WriteFile(path, []byte("4194399\n"), 0o644); err != nil {
			t.Fatal(err)
		}

		if _, err := RunningPid(path); !errors.Is(err, shared.ErrDaemonNotRunning) {
			t.Errorf("expected ErrDaemonNotRunning, got %v", err)
		}
		if _, err := os.Stat(path); !os.IsNotExist(err) {
			t.Error("expected stale pid file removed")
		}
	})

	t.Run("running pid finds the current process", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "daemon.pid")
		if err := WritePidFile(path); err != nil {
			t.Fatal(err)
		}

		pid, err := RunningPid(path)
		if err != nil {
			t.Fatalf("running pid failed: %v", err)
		}
		if pid != os.Getpid() {
			t.Errorf("expected pid %d, got %d", os.Getpid(), pid)
		}
	})
}
