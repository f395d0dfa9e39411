package shared

import "fmt"

var (
	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")

	// Authentication errors
	ErrAuthFailed = fmt.Errorf("authentication failed")

	// Sync and daemon errors
	ErrSyncInProgress       = fmt.Errorf("sync already in progress")
	ErrDaemonNotRunning     = fmt.Errorf("daemon is not running")
	ErrDaemonAlreadyRunning = fmt.Errorf("daemon already running")

	// Storage errors
	ErrNotFound      = fmt.Errorf("record not found")
	ErrStoreConflict = fmt.Errorf("conflicting store record")

	// Input validation errors
	ErrInvalidInput = fmt.Errorf("invalid input")
)
