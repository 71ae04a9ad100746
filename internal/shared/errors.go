package shared

import "fmt"

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig = fmt.Errorf("configuration not found")
	ErrInvalidConfig = fmt.Errorf("invalid configuration")

	// Daemon connectivity errors
	ErrDaemonUnavailable = fmt.Errorf("sync daemon unavailable")
	ErrRequestFailed     = fmt.Errorf("daemon request failed")
	ErrStreamClosed      = fmt.Errorf("event stream closed")
	ErrTimeout           = fmt.Errorf("operation timed out")

	// Persistence errors
	ErrRunNotFound = fmt.Errorf("run not found")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
	ErrInvalidFlag     = fmt.Errorf("invalid flag value")
)
