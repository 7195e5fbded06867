package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/afm/internal/adapters/filesystem"
	"github.com/felixgeelhaar/afm/internal/domain/integrity"
	"github.com/felixgeelhaar/afm/internal/domain/registry"
	"github.com/felixgeelhaar/afm/internal/domain/version"
)

// RegistryBuilder lays out a file registry on disk for tests. It writes the
// same layout a publish produces, without going through the publish path.
type RegistryBuilder struct {
	t   testing.TB
	reg *registry.FileRegistry
}

// NewRegistryBuilder creates a builder over an empty registry in a temp dir.
func NewRegistryBuilder(t testing.TB) *RegistryBuilder {
	t.Helper()
	return &RegistryBuilder{
		t:   t,
		reg: registry.NewFileRegistry(t.TempDir(), filesystem.NewRealFileSystem()),
	}
}

// Registry returns the registry being built.
func (b *RegistryBuilder) Registry() *registry.FileRegistry {
	return b.reg
}

// Root returns the registry root directory.
func (b *RegistryBuilder) Root() string {
	return b.reg.Root()
}

// WithPlugin publishes name@ver with the given dependencies and a default
// artifact file.
func (b *RegistryBuilder) WithPlugin(name, ver string, deps map[string]string) *RegistryBuilder {
	b.t.Helper()
	b.Publish(PluginSource{Name: name, Version: ver, Dependencies: deps})
	return b
}

// Publish writes src as a published version and returns its checksum.
func (b *RegistryBuilder) Publish(src PluginSource) integrity.Integrity {
	b.t.Helper()

	v := version.MustParse(src.Version)
	dir := b.reg.VersionDir(src.Name, v)
	WritePluginDir(b.t, dir, src)

	sum, _, err := integrity.Tree(integrity.DefaultAlgorithm, dir, nil)
	require.NoError(b.t, err)
	require.NoError(b.t, b.reg.WriteChecksum(src.Name, v, sum))

	idx, err := b.reg.LoadIndex()
	require.NoError(b.t, err)
	idx.AddVersion(src.Name, v)
	require.NoError(b.t, b.reg.SaveIndex(idx))
	return sum
}

// WithChannel points a channel of name at ver.
func (b *RegistryBuilder) WithChannel(name string, ch version.Channel, ver string) *RegistryBuilder {
	b.t.Helper()

	idx, err := b.reg.LoadIndex()
	require.NoError(b.t, err)
	require.NoError(b.t, idx.SetChannel(name, ch, version.MustParse(ver)))
	require.NoError(b.t, b.reg.SaveIndex(idx))
	return b
}

// Tamper rewrites one artifact file of name@ver without updating the
// checksum sidecar.
func (b *RegistryBuilder) Tamper(name, ver, rel, content string) *RegistryBuilder {
	b.t.Helper()
	WriteTempFile(b.t, b.reg.VersionDir(name, version.MustParse(ver)), rel, content)
	return b
}

// DropArtifacts removes the artifact directory of name@ver but keeps it
// listed in the index.
func (b *RegistryBuilder) DropArtifacts(name, ver string) *RegistryBuilder {
	b.t.Helper()
	require.NoError(b.t, os.RemoveAll(b.reg.VersionDir(name, version.MustParse(ver))))
	return b
}

// DropChecksum removes the checksum sidecar of name@ver.
func (b *RegistryBuilder) DropChecksum(name, ver string) *RegistryBuilder {
	b.t.Helper()
	require.NoError(b.t, os.Remove(b.reg.ChecksumPath(name, version.MustParse(ver))))
	return b
}

// ArtifactPath returns the path of one artifact file of name@ver.
func (b *RegistryBuilder) ArtifactPath(name, ver, rel string) string {
	return filepath.Join(b.reg.VersionDir(name, version.MustParse(ver)), filepath.FromSlash(rel))
}
