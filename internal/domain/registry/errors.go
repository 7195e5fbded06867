package registry

import (
	"errors"
	"fmt"
)

// Sentinel errors for programmatic error handling.
var (
	// ErrIndexCorrupt indicates the index document could not be decoded.
	ErrIndexCorrupt = errors.New("registry index is corrupt")
	// ErrPluginNotFound indicates the plugin name is not in the index.
	ErrPluginNotFound = errors.New("plugin not found in registry")
	// ErrVersionNotInstallable indicates a version is unknown or lacks artifacts.
	ErrVersionNotInstallable = errors.New("version not installable")
)

// InvalidEntryError reports an index entry that breaks an index invariant.
type InvalidEntryError struct {
	Name   string
	Reason string
}

func (e *InvalidEntryError) Error() string {
	return fmt.Sprintf("invalid registry entry %q: %s", e.Name, e.Reason)
}

// Is lets errors.Is match ErrIndexCorrupt.
func (e *InvalidEntryError) Is(target error) bool {
	return target == ErrIndexCorrupt
}

// IndexInconsistencyError reports an indexed version whose artifacts or
// checksum are missing on disk. It is surfaced as a warning; the version is
// excluded from candidates.
type IndexInconsistencyError struct {
	Name    string
	Version string
	Reason  string
}

func (e *IndexInconsistencyError) Error() string {
	return fmt.Sprintf("registry lists %s@%s but %s", e.Name, e.Version, e.Reason)
}

// IsIndexInconsistencyError returns true if err is an index inconsistency.
func IsIndexInconsistencyError(err error) bool {
	var inconsistency *IndexInconsistencyError
	return errors.As(err, &inconsistency)
}
