package transfer

import (
	"errors"
	"fmt"

	"github.com/felixgeelhaar/afm/internal/domain/integrity"
	"github.com/felixgeelhaar/afm/internal/domain/plugin"
	"github.com/felixgeelhaar/afm/internal/domain/version"
)

// Sentinel errors for programmatic error handling.
var (
	// ErrNameMismatch indicates the requested name differs from the manifest.
	ErrNameMismatch = errors.New("plugin name does not match manifest")
	// ErrVersionMismatch indicates the version override differs from the manifest.
	ErrVersionMismatch = errors.New("version override does not match manifest")
	// ErrNotPublished indicates a fetch of a version with no artifacts or sidecar.
	ErrNotPublished = errors.New("version is not published")
	// ErrEmptyArtifactSet indicates nothing is left to publish after filtering.
	ErrEmptyArtifactSet = errors.New("artifact set is empty")
)

// IntegrityError reports a checksum mismatch. The destination is untouched.
type IntegrityError struct {
	Name     string
	Version  version.Version
	Expected integrity.Integrity
	Actual   integrity.Integrity
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("integrity check failed for %s: expected %s, got %s",
		plugin.Key(e.Name, e.Version), e.Expected, e.Actual)
}

// IsIntegrityError returns true if err is a checksum mismatch.
func IsIntegrityError(err error) bool {
	var integrityErr *IntegrityError
	return errors.As(err, &integrityErr)
}

// VersionCollisionError reports an attempt to republish a version with
// different content. Published versions are immutable.
type VersionCollisionError struct {
	Name      string
	Version   version.Version
	Published integrity.Integrity
	Candidate integrity.Integrity
}

func (e *VersionCollisionError) Error() string {
	return fmt.Sprintf("%s is already published with checksum %s; refusing to replace it with %s",
		plugin.Key(e.Name, e.Version), e.Published, e.Candidate)
}

// IsVersionCollisionError returns true if err is a republish collision.
func IsVersionCollisionError(err error) bool {
	var collisionErr *VersionCollisionError
	return errors.As(err, &collisionErr)
}
