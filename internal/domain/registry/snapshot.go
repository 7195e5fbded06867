package registry

import (
	"fmt"

	"github.com/felixgeelhaar/afm/internal/domain/integrity"
	"github.com/felixgeelhaar/afm/internal/domain/plugin"
	"github.com/felixgeelhaar/afm/internal/domain/version"
)

type artifact struct {
	checksum    integrity.Integrity
	manifest    *plugin.Manifest
	manifestErr error
}

// Snapshot is an immutable view of the installable versions in a registry,
// loaded once per resolution.
type Snapshot struct {
	index     *Index
	artifacts map[string]map[string]*artifact
	warnings  []*IndexInconsistencyError
}

func newSnapshot(idx *Index) *Snapshot {
	return &Snapshot{
		index:     idx,
		artifacts: make(map[string]map[string]*artifact),
	}
}

func (s *Snapshot) add(name string, v version.Version, art *artifact) {
	versions, ok := s.artifacts[name]
	if !ok {
		versions = make(map[string]*artifact)
		s.artifacts[name] = versions
	}
	versions[v.String()] = art
}

func (s *Snapshot) lookup(name string, v version.Version) (*artifact, bool) {
	art, ok := s.artifacts[name][v.String()]
	return art, ok
}

// Names returns the indexed plugin names in sorted order.
func (s *Snapshot) Names() []string {
	return s.index.Names()
}

// Entry returns the raw index entry for name.
func (s *Snapshot) Entry(name string) (Entry, bool) {
	return s.index.Entry(name)
}

// ListVersions returns the installable versions of name, highest first.
func (s *Snapshot) ListVersions(name string) []version.Version {
	all := s.index.Versions(name)
	out := make([]version.Version, 0, len(all))
	for _, v := range all {
		if s.Has(name, v) {
			out = append(out, v)
		}
	}
	return out
}

// Has reports whether name@v is listed and installable.
func (s *Snapshot) Has(name string, v version.Version) bool {
	_, ok := s.lookup(name, v)
	return ok
}

// Latest returns the latest installable version of name on channel ch.
// An explicit channel pointer wins when it is installable and admitted by
// the channel; otherwise the highest admitted version is used.
func (s *Snapshot) Latest(name string, ch version.Channel) (version.Version, bool) {
	e, ok := s.index.entries[name]
	if !ok {
		return version.Version{}, false
	}

	if pointer := e.Channels[ch.String()]; pointer != "" {
		if v, err := version.Parse(pointer); err == nil && ch.Admits(v) && s.Has(name, v) {
			return v, true
		}
	}

	return version.Max(ch.Filter(s.ListVersions(name)))
}

// Checksum returns the published checksum of name@v.
func (s *Snapshot) Checksum(name string, v version.Version) (integrity.Integrity, bool) {
	art, ok := s.lookup(name, v)
	if !ok {
		return integrity.Integrity{}, false
	}
	return art.checksum, true
}

// Manifest returns the manifest of name@v. A malformed manifest is returned
// as *plugin.ManifestParseError.
func (s *Snapshot) Manifest(name string, v version.Version) (*plugin.Manifest, error) {
	art, ok := s.lookup(name, v)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrVersionNotInstallable, plugin.Key(name, v))
	}
	if art.manifestErr != nil {
		return nil, art.manifestErr
	}
	return art.manifest, nil
}

// Warnings returns the versions excluded while loading the snapshot.
func (s *Snapshot) Warnings() []*IndexInconsistencyError {
	out := make([]*IndexInconsistencyError, len(s.warnings))
	copy(out, s.warnings)
	return out
}
