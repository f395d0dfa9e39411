// package shared defines helpers used across the daemon: logging, ids, paths.
package shared

import (
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
)

const (
	baseDirName = ".spondex"
	configFile  = "config.toml"
	pidFile     = "daemon.pid"
	socketFile  = "daemon.sock"
	logDirName  = "logs"
	daemonLog   = "daemon.log"
	databaseFil = "spondex.db"
)

// NewLogger creates a new [log.Logger] instance with the specified [io.Writer], with timestamps and caller reporting enabled.
//
// The writer defaults to [os.Stderr]
func NewLogger(w io.Writer) *log.Logger {
	if w == nil {
		w = os.Stderr
	}
	opts := log.Options{ReportTimestamp: true, ReportCaller: true}
	return log.NewWithOptions(w, opts)
}

// WithLogger creates a child [log.Logger] with the specified key-value pairs added to all log entries.
func WithLogger(l *log.Logger, kv ...any) *log.Logger {
	return l.With(kv...)
}

// SetLogLevel sets the [log.Level] for the given [log.Logger].
func SetLogLevel(l *log.Logger, ll log.Level) {
	l.SetLevel(ll)
}

// GenerateID generates a new v4 [uuid.UUID] as a string
func GenerateID() string {
	return uuid.New().String()
}

// BaseDir returns the directory holding all spondex runtime files (~/.spondex).
func BaseDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return baseDirName
	}
	return filepath.Join(home, baseDirName)
}

// ConfigPath returns the path of the TOML configuration file.
func ConfigPath() string { return filepath.Join(BaseDir(), configFile) }

// PidPath returns the path of the daemon pid file.
func PidPath() string { return filepath.Join(BaseDir(), pidFile) }

// SocketPath returns the path of the daemon control socket.
func SocketPath() string { return filepath.Join(BaseDir(), socketFile) }

// LogDir returns the directory for daemon log files.
func LogDir() string { return filepath.Join(BaseDir(), logDirName) }

// DaemonLogPath returns the path of the daemon log file.
func DaemonLogPath() string { return filepath.Join(LogDir(), daemonLog) }

// DatabasePath returns the default SQLite database path.
func DatabasePath() string { return filepath.Join(BaseDir(), databaseFil) }

// EnsureDirs creates the base and log directories with owner-only permissions.
func EnsureDirs() error {
	if err := os.MkdirAll(BaseDir(), 0o700); err != nil {
		return err
	}
	return os.MkdirAll(LogDir(), 0o700)
}
