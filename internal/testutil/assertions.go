package testutil

import (
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/afm/internal/domain/integrity"
)

// AssertFileExists asserts that a regular file exists at path.
func AssertFileExists(t testing.TB, path string) {
	t.Helper()
	assert.FileExists(t, path)
}

// AssertDirExists asserts that a directory exists at path.
func AssertDirExists(t testing.TB, path string) {
	t.Helper()
	assert.DirExists(t, path)
}

// AssertNotExists asserts that neither a file nor a directory exists at path.
func AssertNotExists(t testing.TB, path string) {
	t.Helper()

	_, err := os.Lstat(path)
	assert.True(t, os.IsNotExist(err), "expected path to not exist: %s", path)
}

// AssertFileContains asserts that the file at path contains expected.
func AssertFileContains(t testing.TB, path, expected string, msgAndArgs ...any) {
	t.Helper()

	content, err := os.ReadFile(path)
	if !assert.NoError(t, err, "failed to read file: %s", path) {
		return
	}
	assert.Contains(t, string(content), expected, msgAndArgs...)
}

// AssertNoHiddenEntries asserts that dir holds no dot-prefixed entries, the
// naming used for staging, trash and temp files.
func AssertNoHiddenEntries(t testing.TB, dir string) {
	t.Helper()

	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return
	}
	require.NoError(t, err)
	for _, e := range entries {
		assert.False(t, strings.HasPrefix(e.Name(), "."), "leftover entry %q in %s", e.Name(), dir)
	}
}

// AssertTreeChecksum asserts that the artifact tree at dir hashes to want.
func AssertTreeChecksum(t testing.TB, want integrity.Integrity, dir string) {
	t.Helper()

	got, _, err := integrity.Tree(want.Algorithm(), dir, nil)
	require.NoError(t, err)
	assert.True(t, want.Equal(got), "tree %s hashes to %s, want %s", dir, got, want)
}
