package plugin

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

const (
	// maxManifestSize limits manifest file size to prevent memory exhaustion (256KB).
	maxManifestSize int64 = 256 * 1024
)

// Loader turns on-disk plugin directories into Manifest values.
type Loader struct{}

// NewLoader creates a new manifest loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Find returns the path and format of the first manifest file present in dir.
func (l *Loader) Find(dir string) (string, Format, error) {
	for _, f := range ManifestFiles {
		path := filepath.Join(dir, f.Name)
		info, err := os.Stat(path)
		if err == nil && info.Mode().IsRegular() {
			return path, f.Format, nil
		}
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return "", "", fmt.Errorf("failed to stat %s: %w", path, err)
		}
	}
	return "", "", fmt.Errorf("%w in %s", ErrManifestNotFound, dir)
}

// Load reads the manifest of the plugin directory dir.
// Malformed manifests are reported as *ManifestParseError.
func (l *Loader) Load(dir string) (*Manifest, error) {
	path, format, err := l.Find(dir)
	if err != nil {
		return nil, err
	}
	return l.LoadFile(path, format)
}

// LoadFile reads and parses a single manifest file.
func (l *Loader) LoadFile(path string, format Format) (*Manifest, error) {
	data, err := readLimited(path)
	if err != nil {
		return nil, &ManifestParseError{Path: path, Err: err}
	}

	m, err := Parse(data, format)
	if err != nil {
		return nil, &ManifestParseError{Path: path, Err: err}
	}
	return m, nil
}

func readLimited(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	data, err := io.ReadAll(io.LimitReader(f, maxManifestSize+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > maxManifestSize {
		return nil, fmt.Errorf("manifest exceeds %d bytes", maxManifestSize)
	}
	return data, nil
}
