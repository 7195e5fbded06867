// Package lockfile provides adapters for lockfile persistence.
package lockfile

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"

	"gopkg.in/yaml.v3"

	"github.com/felixgeelhaar/afm/internal/domain/lock"
	"github.com/felixgeelhaar/afm/internal/ports"
)

// DefaultFileName is the lockfile name used next to the install directory.
const DefaultFileName = "plugins.lock"

const header = "# This file is generated. Do not edit it by hand.\n"

// Marshal encodes a lockfile deterministically: requests and plugins sorted
// by name, fields in fixed order, two-space indentation.
func Marshal(l *lock.Lockfile) ([]byte, error) {
	dto := lock.LockfileToDTO(l)

	var buf bytes.Buffer
	buf.WriteString(header)
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&dto); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Unmarshal decodes a lockfile document. Unknown fields are rejected.
func Unmarshal(data []byte) (*lock.Lockfile, error) {
	var dto lock.LockfileDTO
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&dto); err != nil {
		return nil, fmt.Errorf("%w: %w", lock.ErrLockfileCorrupt, err)
	}

	l, err := lock.LockfileFromDTO(dto)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", lock.ErrLockfileCorrupt, err)
	}
	return l, nil
}

// YAMLRepository implements lock.Repository using YAML files.
type YAMLRepository struct {
	fs ports.FileSystem
}

// NewYAMLRepository creates a new YAML-based lockfile repository.
func NewYAMLRepository(fs ports.FileSystem) *YAMLRepository {
	return &YAMLRepository{fs: fs}
}

// Load reads a lockfile from the given path.
func (r *YAMLRepository) Load(_ context.Context, path string) (*lock.Lockfile, error) {
	data, err := r.fs.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, lock.ErrLockfileNotFound
		}
		return nil, fmt.Errorf("failed to read lockfile: %w", err)
	}
	return Unmarshal(data)
}

// Save writes a lockfile to the given path.
func (r *YAMLRepository) Save(_ context.Context, path string, lockfile *lock.Lockfile) error {
	data, err := Marshal(lockfile)
	if err != nil {
		return fmt.Errorf("%w: %w", lock.ErrSaveFailed, err)
	}

	if err := r.fs.WriteFileAtomic(path, data, 0o644); err != nil {
		return fmt.Errorf("%w: %w", lock.ErrSaveFailed, err)
	}
	return nil
}

// Exists returns true if a lockfile exists at the given path.
func (r *YAMLRepository) Exists(_ context.Context, path string) bool {
	return r.fs.Exists(path)
}

// Ensure YAMLRepository implements lock.Repository.
var _ lock.Repository = (*YAMLRepository)(nil)
