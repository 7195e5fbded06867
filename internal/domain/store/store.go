// Package store tracks which plugin versions are materialized in the local
// plugin directory and moves that directory from one resolved plan to the
// next through the transfer layer.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"sync"

	"github.com/felixgeelhaar/afm/internal/domain/integrity"
	"github.com/felixgeelhaar/afm/internal/domain/plugin"
	"github.com/felixgeelhaar/afm/internal/domain/version"
	"github.com/felixgeelhaar/afm/internal/ports"
)

// RecordsFileName is the default name of the records document.
const RecordsFileName = "registry.json"

// DefaultConcurrency bounds parallel fetches when no option is given.
const DefaultConcurrency = 4

// Record is one installed plugin.
type Record struct {
	Name     string
	Version  version.Version
	Checksum integrity.Integrity
}

// Key returns "name@version".
func (r Record) Key() string {
	return plugin.Key(r.Name, r.Version)
}

// Fetcher materializes and removes plugin directories.
// *transfer.Transfer implements it.
type Fetcher interface {
	FetchExpect(ctx context.Context, name string, v version.Version, dest string, expected integrity.Integrity) (integrity.Integrity, error)
	Remove(ctx context.Context, dir string) error
}

// Store owns the installed record set.
type Store struct {
	fs          ports.FileSystem
	fetcher     Fetcher
	pluginDir   string
	recordsPath string
	concurrency int

	mu      sync.RWMutex
	records map[string]Record
}

// Option configures a Store.
type Option func(*Store)

// WithConcurrency sets how many plugins are fetched in parallel.
func WithConcurrency(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// Open loads the records at recordsPath. A missing document is an empty store.
func Open(fsys ports.FileSystem, fetcher Fetcher, pluginDir, recordsPath string, opts ...Option) (*Store, error) {
	s := &Store{
		fs:          fsys,
		fetcher:     fetcher,
		pluginDir:   pluginDir,
		recordsPath: recordsPath,
		concurrency: DefaultConcurrency,
		records:     make(map[string]Record),
	}
	for _, opt := range opts {
		opt(s)
	}

	data, err := fsys.ReadFile(recordsPath)
	if errors.Is(err, fs.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read store records: %w", err)
	}
	records, err := decodeRecords(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrRecordsCorrupt, recordsPath, err)
	}
	s.records = records
	return s, nil
}

// PluginDir returns the directory plugins are installed into.
func (s *Store) PluginDir() string {
	return s.pluginDir
}

// PluginPath returns the install directory of name.
func (s *Store) PluginPath(name string) string {
	return filepath.Join(s.pluginDir, name)
}

// Current returns a copy of the installed records keyed by name.
func (s *Store) Current() map[string]Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]Record, len(s.records))
	for name, r := range s.records {
		out[name] = r
	}
	return out
}

// Records returns the installed records sorted by name.
func (s *Store) Records() []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Record, 0, len(s.records))
	for _, r := range s.records {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Get returns the record for name.
func (s *Store) Get(name string) (Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.records[name]
	return r, ok
}

// commit records r after its directory has been confirmed on disk. The
// document is rewritten before the in-memory set changes.
func (s *Store) commit(r Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.cloneLocked()
	next[r.Name] = r
	if err := s.saveLocked(next); err != nil {
		return err
	}
	s.records = next
	return nil
}

// forget drops the record for name after its directory is gone.
func (s *Store) forget(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[name]; !ok {
		return nil
	}
	next := s.cloneLocked()
	delete(next, name)
	if err := s.saveLocked(next); err != nil {
		return err
	}
	s.records = next
	return nil
}

func (s *Store) cloneLocked() map[string]Record {
	next := make(map[string]Record, len(s.records)+1)
	for name, r := range s.records {
		next[name] = r
	}
	return next
}

func (s *Store) saveLocked(records map[string]Record) error {
	data, err := encodeRecords(records)
	if err != nil {
		return err
	}
	if err := s.fs.WriteFileAtomic(s.recordsPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write store records: %w", err)
	}
	return nil
}

// recordDTO is the on-disk form of a record, keyed by plugin name.
type recordDTO struct {
	Version  string `json:"version"`
	Checksum string `json:"checksum"`
}

func encodeRecords(records map[string]Record) ([]byte, error) {
	doc := make(map[string]recordDTO, len(records))
	for name, r := range records {
		doc[name] = recordDTO{Version: r.Version.String(), Checksum: r.Checksum.String()}
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

func decodeRecords(data []byte) (map[string]Record, error) {
	var doc map[string]recordDTO
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}

	records := make(map[string]Record, len(doc))
	for name, dto := range doc {
		if err := plugin.ValidateName(name); err != nil {
			return nil, err
		}
		v, err := version.Parse(dto.Version)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		sum, err := integrity.Parse(dto.Checksum)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		records[name] = Record{Name: name, Version: v, Checksum: sum}
	}
	return records, nil
}
