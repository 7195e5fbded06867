package integrity

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
)

// ErrSymlink is returned when an artifact set contains a symbolic link.
var ErrSymlink = errors.New("symbolic links are not allowed in artifact sets")

// Filter decides whether a relative slash path belongs to the artifact set.
// A nil Filter includes every regular file.
type Filter func(rel string, isDir bool) bool

// Files returns the sorted relative slash paths of the regular files under dir
// that pass the filter. Excluded directories are not descended into.
func Files(dir string, filter Filter) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == dir {
			return nil
		}

		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		if d.Type()&fs.ModeSymlink != 0 {
			return fmt.Errorf("%w: %s", ErrSymlink, rel)
		}
		if filter != nil && !filter(rel, d.IsDir()) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Type().IsRegular() {
			files = append(files, rel)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(files)
	return files, nil
}

// Tree computes the checksum of an artifact set. Each file contributes its
// relative path, its size and its bytes, separated by NUL, in sorted path
// order, so the digest depends only on content and layout.
func Tree(algorithm, dir string, filter Filter) (Integrity, []string, error) {
	files, err := Files(dir, filter)
	if err != nil {
		return Integrity{}, nil, err
	}

	h, err := NewHash(algorithm)
	if err != nil {
		return Integrity{}, nil, err
	}

	for _, rel := range files {
		if err := hashFile(h, dir, rel); err != nil {
			return Integrity{}, nil, err
		}
	}

	return FromHash(algorithm, h), files, nil
}

// VerifyTree re-hashes dir and compares it to expected.
func VerifyTree(expected Integrity, dir string) (Integrity, bool, error) {
	actual, _, err := Tree(expected.Algorithm(), dir, nil)
	if err != nil {
		return Integrity{}, false, err
	}
	return actual, expected.Equal(actual), nil
}

func hashFile(w io.Writer, dir, rel string) error {
	f, err := os.Open(filepath.Join(dir, filepath.FromSlash(rel)))
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", rel, err)
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", rel, err)
	}

	header := rel + "\x00" + strconv.FormatInt(info.Size(), 10) + "\x00"
	if _, err := io.WriteString(w, header); err != nil {
		return err
	}
	if _, err := io.Copy(w, f); err != nil {
		return fmt.Errorf("failed to read %s: %w", rel, err)
	}
	return nil
}
