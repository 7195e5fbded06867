package plugin

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for programmatic error handling.
var (
	// ErrEmptyPluginName indicates a plugin name was empty.
	ErrEmptyPluginName = errors.New("plugin name cannot be empty")
	// ErrEmptyManifest indicates a manifest document had no content.
	ErrEmptyManifest = errors.New("manifest data is empty")
	// ErrManifestNotFound indicates no manifest file exists in a plugin directory.
	ErrManifestNotFound = errors.New("no manifest.json, plugin.yaml or plugin.toml found")
	// ErrUnknownFormat indicates an unsupported manifest encoding.
	ErrUnknownFormat = errors.New("unknown manifest format")
)

// InvalidManifestError lists every problem found in one manifest. Name is
// empty when the manifest did not declare a usable one.
type InvalidManifestError struct {
	Name     string
	Problems []string
}

func (e *InvalidManifestError) Error() string {
	subject := "manifest"
	if e.Name != "" {
		subject = fmt.Sprintf("manifest for %q", e.Name)
	}
	return fmt.Sprintf("invalid %s: %s", subject, strings.Join(e.Problems, "; "))
}

func (e *InvalidManifestError) addf(format string, args ...any) {
	e.Problems = append(e.Problems, fmt.Sprintf(format, args...))
}

// orNil returns e when it holds problems.
func (e *InvalidManifestError) orNil() error {
	if len(e.Problems) == 0 {
		return nil
	}
	return e
}

// ManifestParseError reports a malformed manifest and the file it came from.
type ManifestParseError struct {
	Path string
	Err  error
}

func (e *ManifestParseError) Error() string {
	return fmt.Sprintf("malformed manifest %s: %v", e.Path, e.Err)
}

func (e *ManifestParseError) Unwrap() error {
	return e.Err
}

// IsManifestParseError returns true if err is a manifest parse error.
func IsManifestParseError(err error) bool {
	var parseErr *ManifestParseError
	return errors.As(err, &parseErr)
}

// IsInvalidManifestError returns true if err reports manifest problems.
func IsInvalidManifestError(err error) bool {
	var invalid *InvalidManifestError
	return errors.As(err, &invalid)
}
