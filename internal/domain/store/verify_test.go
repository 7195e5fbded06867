package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/afm/internal/testutil"
)

func TestVerify(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.b.WithPlugin("auth", "1.0.0", nil).
		WithPlugin("http", "0.3.1", nil).
		WithPlugin("weather", "1.0.0", nil)
	s := f.open(t)
	ctx := context.Background()

	_, err := s.Apply(ctx, f.plan(t, "auth@1.0.0", "http@0.3.1", "weather@1.0.0"))
	require.NoError(t, err)

	issues, err := s.Verify(ctx)
	require.NoError(t, err)
	assert.Empty(t, issues)

	testutil.WriteTempFile(t, s.PluginPath("auth"), "injected.py", "x")
	require.NoError(t, os.RemoveAll(s.PluginPath("http")))
	testutil.WriteTempDir(t, f.pluginDir, "stray")
	testutil.WriteTempDir(t, f.pluginDir, ".staging-weather-1")

	issues, err = s.Verify(ctx)
	require.NoError(t, err)
	require.Len(t, issues, 3)

	assert.Equal(t, "auth", issues[0].Name)
	assert.Equal(t, IssueModified, issues[0].Kind)
	assert.False(t, issues[0].Actual.IsZero())
	assert.Contains(t, issues[0].String(), "expected sha256:")

	assert.Equal(t, "http", issues[1].Name)
	assert.Equal(t, IssueMissing, issues[1].Kind)
	assert.Equal(t, "http: missing", issues[1].String())

	assert.Equal(t, "stray", issues[2].Name)
	assert.Equal(t, IssueUntracked, issues[2].Kind)
}

func TestVerify_NoPluginDir(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	issues, err := f.open(t).Verify(context.Background())
	require.NoError(t, err)
	assert.Empty(t, issues)
}

func TestVerify_CancelledContext(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.b.WithPlugin("weather", "1.0.0", nil)
	s := f.open(t)
	_, err := s.Apply(context.Background(), f.plan(t, "weather@1.0.0"))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = s.Verify(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCleanup(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.b.WithPlugin("weather", "1.0.0", nil)
	s := f.open(t)
	ctx := context.Background()
	_, err := s.Apply(ctx, f.plan(t, "weather@1.0.0"))
	require.NoError(t, err)

	testutil.WriteTempFile(t, f.pluginDir, ".staging-weather-abc/plugin.py", "half")
	testutil.WriteTempDir(t, f.pluginDir, ".trash-http-def")

	removed, err := s.Cleanup(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{
		filepath.Join(f.pluginDir, ".staging-weather-abc"),
		filepath.Join(f.pluginDir, ".trash-http-def"),
	}, removed)
	testutil.AssertNoHiddenEntries(t, f.pluginDir)
	testutil.AssertDirExists(t, s.PluginPath("weather"))
}
