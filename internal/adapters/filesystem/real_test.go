package filesystem

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRealFileSystem_WriteFileAtomic(t *testing.T) {
	t.Parallel()

	fs := NewRealFileSystem()
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "index.json")

	require.NoError(t, fs.WriteFileAtomic(path, []byte("one"), 0o644))
	require.NoError(t, fs.WriteFileAtomic(path, []byte("two"), 0o644))

	data, err := fs.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "two", string(data))

	entries, err := fs.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files may be left behind")
}

func TestRealFileSystem_CopyFile(t *testing.T) {
	t.Parallel()

	fs := NewRealFileSystem()
	dir := t.TempDir()
	src := filepath.Join(dir, "tool.sh")
	require.NoError(t, os.WriteFile(src, []byte("#!/bin/sh\n"), 0o755))

	dest := filepath.Join(dir, "out", "bin", "tool.sh")
	require.NoError(t, fs.CopyFile(src, dest))

	data, err := fs.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "#!/bin/sh\n", string(data))

	info, err := os.Stat(dest)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o755), info.Mode().Perm())
}

func TestRealFileSystem_DirectoryOps(t *testing.T) {
	t.Parallel()

	fs := NewRealFileSystem()
	dir := t.TempDir()
	staged := filepath.Join(dir, ".staging-a")
	final := filepath.Join(dir, "a")

	require.NoError(t, fs.MkdirAll(filepath.Join(staged, "sub"), 0o755))
	assert.True(t, fs.IsDir(staged))
	assert.False(t, fs.Exists(final))

	require.NoError(t, fs.Rename(staged, final))
	assert.False(t, fs.Exists(staged))
	assert.True(t, fs.IsDir(filepath.Join(final, "sub")))

	require.NoError(t, fs.RemoveAll(final))
	assert.False(t, fs.Exists(final))
	assert.NoError(t, fs.RemoveAll(final), "removing a missing path is not an error")
}
