package ports

import (
	"os"
	"path/filepath"
	"strings"
)

// FileSystem provides the file operations the registry, transfer and store
// layers rely on. Rename is the only atomic primitive; callers build
// all-or-nothing semantics on top of it.
type FileSystem interface {
	ReadFile(path string) ([]byte, error)
	// WriteFileAtomic writes data to a sibling temp file and renames it over path.
	WriteFileAtomic(path string, data []byte, perm os.FileMode) error
	Exists(path string) bool
	IsDir(path string) bool
	ReadDir(path string) ([]os.DirEntry, error)
	MkdirAll(path string, perm os.FileMode) error
	Rename(oldPath, newPath string) error
	RemoveAll(path string) error
	// CopyFile copies src to dest, preserving the permission bits.
	CopyFile(src, dest string) error
}

// ExpandPath expands environment variables and a leading ~ so config values
// like "$XDG_DATA_HOME/afm" or "~/.afm/plugins" resolve to real directories.
// "~user" forms are left alone.
func ExpandPath(path string) string {
	path = os.ExpandEnv(path)
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}
