package store

import (
	"errors"
	"fmt"
)

var (
	// ErrRecordsCorrupt indicates the records document could not be parsed.
	ErrRecordsCorrupt = errors.New("store records are corrupt")
	// ErrNotInstalled indicates an operation named a plugin the store does not hold.
	ErrNotInstalled = errors.New("plugin is not installed")
)

// ApplyError reports the plugin whose transfer stopped an apply. Plugins
// committed before the failure keep their records.
type ApplyError struct {
	Name string
	Op   string
	Err  error
}

func (e *ApplyError) Error() string {
	return fmt.Sprintf("failed to %s %s: %v", e.Op, e.Name, e.Err)
}

func (e *ApplyError) Unwrap() error {
	return e.Err
}

// IsApplyError returns true if err is an ApplyError.
func IsApplyError(err error) bool {
	var e *ApplyError
	return errors.As(err, &e)
}
