// Package transfer copies plugin artifact sets between a local directory and
// a file registry. Every copy is staged, re-hashed and committed with a
// single rename, so readers observe either the old or the new artifact set.
package transfer

import (
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/afm/internal/domain/integrity"
	"github.com/felixgeelhaar/afm/internal/domain/plugin"
	"github.com/felixgeelhaar/afm/internal/domain/registry"
	"github.com/felixgeelhaar/afm/internal/domain/version"
	"github.com/felixgeelhaar/afm/internal/ports"
)

// Name prefixes of transient directories. Both live next to their final
// location so the closing rename stays on one file system.
const (
	StagingPrefix = ".staging-"
	TrashPrefix   = ".trash-"
)

// IsTransient reports whether a directory entry name is a staging or trash
// directory left behind by an abandoned operation.
func IsTransient(name string) bool {
	return strings.HasPrefix(name, StagingPrefix) || strings.HasPrefix(name, TrashPrefix)
}

// PhaseHook observes fetch lifecycle transitions.
type PhaseHook func(name string, v version.Version, phase Phase)

// Transfer publishes to and fetches from one file registry.
type Transfer struct {
	registry  *registry.FileRegistry
	fs        ports.FileSystem
	loader    *plugin.Loader
	algorithm string
	ignore    *Ignore
	hook      PhaseHook
}

// Option configures a Transfer.
type Option func(*Transfer) error

// WithAlgorithm sets the checksum algorithm used when publishing.
func WithAlgorithm(algorithm string) Option {
	return func(t *Transfer) error {
		if _, err := integrity.NewHash(algorithm); err != nil {
			return err
		}
		t.algorithm = algorithm
		return nil
	}
}

// WithIgnore adds publish ignore patterns on top of DefaultIgnore.
func WithIgnore(patterns ...string) Option {
	return func(t *Transfer) error {
		ig, err := CompileIgnore(append(t.ignore.Patterns(), patterns...))
		if err != nil {
			return err
		}
		t.ignore = ig
		return nil
	}
}

// WithPhaseHook registers an observer of fetch phases.
func WithPhaseHook(hook PhaseHook) Option {
	return func(t *Transfer) error {
		t.hook = hook
		return nil
	}
}

// New creates a Transfer over reg, using the registry's file system.
func New(reg *registry.FileRegistry, opts ...Option) (*Transfer, error) {
	ig, err := CompileIgnore(DefaultIgnore)
	if err != nil {
		return nil, err
	}
	t := &Transfer{
		registry:  reg,
		fs:        reg.FileSystem(),
		loader:    plugin.NewLoader(),
		algorithm: integrity.DefaultAlgorithm,
		ignore:    ig,
	}
	for _, opt := range opts {
		if err := opt(t); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// Registry returns the registry this transfer operates on.
func (t *Transfer) Registry() *registry.FileRegistry {
	return t.registry
}

// Algorithm returns the publish checksum algorithm.
func (t *Transfer) Algorithm() string {
	return t.algorithm
}

// siblingPath returns a unique transient path next to target.
func siblingPath(target, prefix string) string {
	return filepath.Join(filepath.Dir(target), prefix+filepath.Base(target)+"-"+uuid.NewString())
}

// copyTree copies the listed files from src into dest.
func (t *Transfer) copyTree(src, dest string, files []string) error {
	if err := t.fs.MkdirAll(dest, 0o755); err != nil {
		return err
	}
	for _, rel := range files {
		target := filepath.Join(dest, filepath.FromSlash(rel))
		if err := t.fs.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return err
		}
		if err := t.fs.CopyFile(filepath.Join(src, filepath.FromSlash(rel)), target); err != nil {
			return err
		}
	}
	return nil
}

// swapIn renames staged over target. An existing target is moved aside
// first and restored if the final rename fails.
func (t *Transfer) swapIn(staged, target string) error {
	if !t.fs.Exists(target) {
		if err := t.fs.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return err
		}
		return t.fs.Rename(staged, target)
	}

	trash := siblingPath(target, TrashPrefix)
	if err := t.fs.Rename(target, trash); err != nil {
		return err
	}
	if err := t.fs.Rename(staged, target); err != nil {
		_ = t.fs.Rename(trash, target)
		return err
	}
	_ = t.fs.RemoveAll(trash)
	return nil
}

// Sweep removes staging and trash directories directly under dir and
// returns the removed paths. A missing dir is not an error.
func Sweep(fs ports.FileSystem, dir string) ([]string, error) {
	if !fs.IsDir(dir) {
		return nil, nil
	}
	entries, err := fs.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var removed []string
	for _, e := range entries {
		if !IsTransient(e.Name()) {
			continue
		}
		path := filepath.Join(dir, e.Name())
		if err := fs.RemoveAll(path); err != nil {
			return removed, err
		}
		removed = append(removed, path)
	}
	return removed, nil
}
