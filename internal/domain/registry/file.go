package registry

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/felixgeelhaar/afm/internal/domain/integrity"
	"github.com/felixgeelhaar/afm/internal/domain/plugin"
	"github.com/felixgeelhaar/afm/internal/domain/version"
	"github.com/felixgeelhaar/afm/internal/ports"
)

// Registry layout names.
const (
	IndexFile         = "index.json"
	PluginsDir        = "plugins"
	ChecksumExtension = ".checksum"
)

// FileRegistry is a passive, file-addressable plugin registry:
//
//	<root>/index.json
//	<root>/plugins/<name>/<version>/...        artifact set
//	<root>/plugins/<name>/<version>.checksum  checksum sidecar
type FileRegistry struct {
	root   string
	fs     ports.FileSystem
	loader *plugin.Loader
}

// NewFileRegistry creates a registry rooted at root.
func NewFileRegistry(root string, fs ports.FileSystem) *FileRegistry {
	return &FileRegistry{
		root:   root,
		fs:     fs,
		loader: plugin.NewLoader(),
	}
}

// Root returns the registry root directory.
func (r *FileRegistry) Root() string {
	return r.root
}

// FileSystem returns the file system the registry operates on.
func (r *FileRegistry) FileSystem() ports.FileSystem {
	return r.fs
}

// IndexPath returns the path of the index document.
func (r *FileRegistry) IndexPath() string {
	return filepath.Join(r.root, IndexFile)
}

// PluginDir returns the directory holding all versions of name.
func (r *FileRegistry) PluginDir(name string) string {
	return filepath.Join(r.root, PluginsDir, name)
}

// VersionDir returns the artifact directory of name@v.
func (r *FileRegistry) VersionDir(name string, v version.Version) string {
	return filepath.Join(r.PluginDir(name), v.String())
}

// ChecksumPath returns the sidecar path of name@v.
func (r *FileRegistry) ChecksumPath(name string, v version.Version) string {
	return r.VersionDir(name, v) + ChecksumExtension
}

// LoadIndex reads the index document. A missing index is an empty index.
func (r *FileRegistry) LoadIndex() (*Index, error) {
	data, err := r.fs.ReadFile(r.IndexPath())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return NewIndex(), nil
		}
		return nil, fmt.Errorf("failed to read registry index: %w", err)
	}
	return ParseIndex(data)
}

// SaveIndex replaces the index document in a single atomic write.
func (r *FileRegistry) SaveIndex(idx *Index) error {
	if err := idx.Validate(); err != nil {
		return err
	}
	data, err := idx.Marshal()
	if err != nil {
		return fmt.Errorf("failed to encode registry index: %w", err)
	}
	if err := r.fs.WriteFileAtomic(r.IndexPath(), data, 0o644); err != nil {
		return fmt.Errorf("failed to write registry index: %w", err)
	}
	return nil
}

// ReadChecksum reads the checksum sidecar of name@v.
func (r *FileRegistry) ReadChecksum(name string, v version.Version) (integrity.Integrity, error) {
	data, err := r.fs.ReadFile(r.ChecksumPath(name, v))
	if err != nil {
		return integrity.Integrity{}, err
	}
	return integrity.Parse(strings.TrimSpace(string(data)))
}

// WriteChecksum writes the checksum sidecar of name@v atomically.
func (r *FileRegistry) WriteChecksum(name string, v version.Version, sum integrity.Integrity) error {
	return r.fs.WriteFileAtomic(r.ChecksumPath(name, v), []byte(sum.String()+"\n"), 0o644)
}

// Open loads the index, every checksum sidecar and every manifest into an
// immutable snapshot. Listed versions without artifacts or sidecar are
// excluded and reported as warnings.
func (r *FileRegistry) Open(ctx context.Context) (*Snapshot, error) {
	idx, err := r.LoadIndex()
	if err != nil {
		return nil, err
	}

	log := ports.Log(ctx)
	snap := newSnapshot(idx)

	for _, name := range idx.Names() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for _, v := range idx.Versions(name) {
			art, warning := r.loadArtifact(name, v)
			if warning != nil {
				snap.warnings = append(snap.warnings, warning)
				log.Warn(ctx, "excluding registry version",
					ports.F("plugin", name),
					ports.F("version", v.String()),
					ports.F("reason", warning.Reason))
				continue
			}
			snap.add(name, v, art)
		}
	}

	log.Debug(ctx, "opened registry snapshot",
		ports.F("root", r.root),
		ports.F("plugins", len(idx.Names())),
		ports.F("warnings", len(snap.warnings)))
	return snap, nil
}

func (r *FileRegistry) loadArtifact(name string, v version.Version) (*artifact, *IndexInconsistencyError) {
	dir := r.VersionDir(name, v)
	if !r.fs.IsDir(dir) {
		return nil, &IndexInconsistencyError{Name: name, Version: v.String(), Reason: "its artifact directory is missing"}
	}

	sum, err := r.ReadChecksum(name, v)
	if err != nil {
		return nil, &IndexInconsistencyError{Name: name, Version: v.String(), Reason: "its checksum sidecar is missing or unreadable"}
	}

	art := &artifact{checksum: sum}
	m, err := r.loader.Load(dir)
	switch {
	case err != nil:
		art.manifestErr = err
	case m.Name != name || !m.Version.Equal(v):
		art.manifestErr = &plugin.ManifestParseError{
			Path: dir,
			Err:  fmt.Errorf("manifest declares %s but is stored as %s", m.Key(), plugin.Key(name, v)),
		}
	default:
		art.manifest = m
	}
	return art, nil
}
