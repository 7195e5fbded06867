// Package app wires the registry, solver, transfer, store and lockfile
// layers into the afm use cases.
package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/felixgeelhaar/afm/internal/adapters/filesystem"
	lockadapter "github.com/felixgeelhaar/afm/internal/adapters/lockfile"
	"github.com/felixgeelhaar/afm/internal/config"
	"github.com/felixgeelhaar/afm/internal/domain/lock"
	"github.com/felixgeelhaar/afm/internal/domain/plugin"
	"github.com/felixgeelhaar/afm/internal/domain/registry"
	"github.com/felixgeelhaar/afm/internal/domain/solver"
	"github.com/felixgeelhaar/afm/internal/domain/store"
	"github.com/felixgeelhaar/afm/internal/domain/transfer"
	"github.com/felixgeelhaar/afm/internal/domain/version"
	"github.com/felixgeelhaar/afm/internal/ports"
)

var (
	// ErrNotInstalled indicates the named plugin is not in the local store.
	ErrNotInstalled = store.ErrNotInstalled
	// ErrNotRequested indicates the named plugin is installed only as a dependency.
	ErrNotRequested = errors.New("plugin was not requested directly")
	// ErrPinWithoutName indicates a version pin was given without a plugin name.
	ErrPinWithoutName = errors.New("a version pin needs a plugin name")
)

// Manager runs afm operations against one registry, plugin directory and
// lockfile.
type Manager struct {
	cfg      config.Config
	channel  version.Channel
	fs       ports.FileSystem
	registry *registry.FileRegistry
	transfer *transfer.Transfer
	store    *store.Store
	lockRepo lock.Repository
	hook     transfer.PhaseHook
}

// Option configures a Manager.
type Option func(*Manager)

// WithFileSystem replaces the real file system.
func WithFileSystem(fs ports.FileSystem) Option {
	return func(m *Manager) {
		m.fs = fs
	}
}

// WithLockRepository replaces the YAML lockfile repository.
func WithLockRepository(repo lock.Repository) Option {
	return func(m *Manager) {
		m.lockRepo = repo
	}
}

// WithPhaseHook observes fetch phases.
func WithPhaseHook(hook transfer.PhaseHook) Option {
	return func(m *Manager) {
		m.hook = hook
	}
}

// New creates a Manager from validated configuration.
func New(cfg config.Config, opts ...Option) (*Manager, error) {
	channel, err := version.ParseChannel(cfg.Channel)
	if err != nil {
		return nil, err
	}

	m := &Manager{cfg: cfg, channel: channel}
	for _, opt := range opts {
		opt(m)
	}
	if m.fs == nil {
		m.fs = filesystem.NewRealFileSystem()
	}
	if m.lockRepo == nil {
		m.lockRepo = lockadapter.NewYAMLRepository(m.fs)
	}

	m.registry = registry.NewFileRegistry(cfg.RegistryDir, m.fs)

	topts := []transfer.Option{
		transfer.WithAlgorithm(cfg.ChecksumAlgorithm),
		transfer.WithIgnore(cfg.Ignore...),
	}
	if m.hook != nil {
		topts = append(topts, transfer.WithPhaseHook(m.hook))
	}
	m.transfer, err = transfer.New(m.registry, topts...)
	if err != nil {
		return nil, fmt.Errorf("failed to configure transfer: %w", err)
	}

	m.store, err = store.Open(m.fs, m.transfer, cfg.PluginDir, cfg.RecordsPath(), store.WithConcurrency(cfg.Concurrency))
	if err != nil {
		return nil, err
	}
	return m, nil
}

// Config returns the configuration the manager was built with.
func (m *Manager) Config() config.Config {
	return m.cfg
}

// Store returns the local plugin store.
func (m *Manager) Store() *store.Store {
	return m.store
}

// Registry returns the file registry.
func (m *Manager) Registry() *registry.FileRegistry {
	return m.registry
}

// ParseRequest parses "name" or "name@constraint".
func ParseRequest(spec string) (solver.Request, error) {
	name, expr, _ := strings.Cut(strings.TrimSpace(spec), "@")
	if err := plugin.ValidateName(name); err != nil {
		return solver.Request{}, err
	}
	c, err := version.ParseConstraint(expr)
	if err != nil {
		return solver.Request{}, err
	}
	return solver.Request{Name: name, Constraint: c}, nil
}

// ParseRequests parses every spec.
func ParseRequests(specs []string) ([]solver.Request, error) {
	out := make([]solver.Request, 0, len(specs))
	for _, spec := range specs {
		r, err := ParseRequest(spec)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

// loadLock returns the current lockfile, or nil when there is none.
func (m *Manager) loadLock(ctx context.Context) (*lock.Lockfile, error) {
	lf, err := m.lockRepo.Load(ctx, m.cfg.LockfilePath())
	if errors.Is(err, lock.ErrLockfileNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return lf, nil
}

// requests returns the request set recorded in the lockfile.
func (m *Manager) requests(ctx context.Context) (map[string]version.Constraint, *lock.Lockfile, error) {
	lf, err := m.loadLock(ctx)
	if err != nil {
		return nil, nil, err
	}
	if lf == nil {
		return make(map[string]version.Constraint), nil, nil
	}
	return lf.Requests(), lf, nil
}

// requestsOrInstalled is requests, with every installed plugin standing in
// as a request when there is no lockfile.
func (m *Manager) requestsOrInstalled(ctx context.Context) (map[string]version.Constraint, error) {
	requests, lf, err := m.requests(ctx)
	if err != nil || lf != nil {
		return requests, err
	}
	for _, r := range m.store.Records() {
		requests[r.Name] = version.Any()
	}
	return requests, nil
}
