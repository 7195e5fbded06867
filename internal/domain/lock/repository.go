package lock

import (
	"context"
	"fmt"
	"sort"

	"github.com/felixgeelhaar/afm/internal/domain/integrity"
	"github.com/felixgeelhaar/afm/internal/domain/plugin"
	"github.com/felixgeelhaar/afm/internal/domain/version"
)

// Repository is the port for lockfile persistence.
// Implementations handle the actual file I/O and serialization.
type Repository interface {
	// Load reads a lockfile from the given path.
	// Returns ErrLockfileNotFound if the file doesn't exist.
	// Returns ErrLockfileCorrupt if the file exists but is invalid.
	Load(ctx context.Context, path string) (*Lockfile, error)

	// Save writes a lockfile to the given path, replacing it atomically.
	Save(ctx context.Context, path string, lockfile *Lockfile) error

	// Exists returns true if a lockfile exists at the given path.
	Exists(ctx context.Context, path string) bool
}

// LockfileDTO is the persisted shape of a lockfile. Field order is fixed and
// plugins are keyed by name, so encoders that sort map keys produce
// byte-identical output for equal lockfiles.
type LockfileDTO struct {
	Version  int                  `yaml:"version"`
	Requests []RequestDTO         `yaml:"requests"`
	Plugins  map[string]PluginDTO `yaml:"plugins"`
}

// RequestDTO is one entry of the request set.
type RequestDTO struct {
	Name       string `yaml:"name"`
	Constraint string `yaml:"constraint"`
}

// PluginDTO is one locked plugin.
type PluginDTO struct {
	Version  string `yaml:"version"`
	Checksum string `yaml:"checksum"` // "algorithm:hash" format
}

// LockfileToDTO converts a Lockfile to its serializable DTO representation.
func LockfileToDTO(l *Lockfile) LockfileDTO {
	dto := LockfileDTO{
		Version:  l.Format(),
		Requests: make([]RequestDTO, 0, len(l.requests)),
		Plugins:  make(map[string]PluginDTO, len(l.entries)),
	}
	for _, name := range l.RequestNames() {
		dto.Requests = append(dto.Requests, RequestDTO{
			Name:       name,
			Constraint: l.requests[name].String(),
		})
	}
	for _, e := range l.Entries() {
		dto.Plugins[e.Name] = PluginDTO{
			Version:  e.Version.String(),
			Checksum: e.Checksum.String(),
		}
	}
	return dto
}

// LockfileFromDTO converts a DTO to a Lockfile domain object.
// Returns an error if any field is invalid.
func LockfileFromDTO(dto LockfileDTO) (*Lockfile, error) {
	if dto.Version != FormatVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedFormat, dto.Version)
	}

	l := &Lockfile{
		format:   dto.Version,
		requests: make(map[string]version.Constraint, len(dto.Requests)),
		entries:  make(map[string]Entry, len(dto.Plugins)),
	}

	for _, r := range dto.Requests {
		if err := plugin.ValidateName(r.Name); err != nil {
			return nil, fmt.Errorf("request: %w", err)
		}
		if _, dup := l.requests[r.Name]; dup {
			return nil, fmt.Errorf("duplicate request %q", r.Name)
		}
		c, err := version.ParseConstraint(r.Constraint)
		if err != nil {
			return nil, fmt.Errorf("request %q: %w", r.Name, err)
		}
		l.requests[r.Name] = c
	}

	names := make([]string, 0, len(dto.Plugins))
	for name := range dto.Plugins {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		p := dto.Plugins[name]
		if err := plugin.ValidateName(name); err != nil {
			return nil, fmt.Errorf("plugin: %w", err)
		}
		v, err := version.Parse(p.Version)
		if err != nil {
			return nil, fmt.Errorf("plugin %q: %w", name, err)
		}
		sum, err := integrity.Parse(p.Checksum)
		if err != nil {
			return nil, fmt.Errorf("plugin %q: %w", name, err)
		}
		l.entries[name] = Entry{Name: name, Version: v, Checksum: sum}
	}

	return l, nil
}
