// Package testutil provides test helpers and utilities for afm tests.
package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/afm/internal/domain/plugin"
)

// WriteTempFile writes content to a file in the specified directory,
// creating parent directories as needed.
func WriteTempFile(t testing.TB, dir, filename, content string) string {
	t.Helper()

	path := filepath.Join(dir, filepath.FromSlash(filename))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	err := os.WriteFile(path, []byte(content), 0o644)
	require.NoError(t, err, "failed to write temp file: %s", filename)

	return path
}

// WriteTempDir creates a subdirectory in the temp directory.
func WriteTempDir(t testing.TB, dir, dirname string) string {
	t.Helper()

	path := filepath.Join(dir, dirname)
	err := os.MkdirAll(path, 0o755)
	require.NoError(t, err, "failed to create temp subdirectory: %s", dirname)

	return path
}

// PluginSource describes a plugin source directory to write.
type PluginSource struct {
	Name         string
	Version      string
	Description  string
	Dependencies map[string]string
	// Files maps slash-separated relative paths to content. A default
	// plugin.py is written when empty.
	Files map[string]string
	// Format selects the manifest file; JSON when empty.
	Format plugin.Format
}

// WritePluginDir writes src into dir (which need not exist) and returns dir.
func WritePluginDir(t testing.TB, dir string, src PluginSource) string {
	t.Helper()

	format := src.Format
	if format == "" {
		format = plugin.FormatJSON
	}

	doc := &plugin.Document{
		Name:         src.Name,
		Version:      src.Version,
		Description:  src.Description,
		Dependencies: src.Dependencies,
	}
	data, err := plugin.Marshal(doc, format)
	require.NoError(t, err)
	WriteTempFile(t, dir, manifestFileFor(format), string(data))

	files := src.Files
	if len(files) == 0 {
		files = map[string]string{"plugin.py": "# " + src.Name + " " + src.Version + "\n"}
	}
	for rel, content := range files {
		WriteTempFile(t, dir, rel, content)
	}
	return dir
}

func manifestFileFor(format plugin.Format) string {
	switch format {
	case plugin.FormatYAML:
		return "plugin.yaml"
	case plugin.FormatTOML:
		return "plugin.toml"
	default:
		return "manifest.json"
	}
}
