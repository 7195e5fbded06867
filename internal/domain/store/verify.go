package store

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/felixgeelhaar/afm/internal/domain/integrity"
	"github.com/felixgeelhaar/afm/internal/domain/transfer"
	"github.com/felixgeelhaar/afm/internal/ports"
)

// IssueKind classifies a verification finding.
type IssueKind string

const (
	// IssueMissing means a recorded plugin has no directory.
	IssueMissing IssueKind = "missing"
	// IssueModified means a plugin directory no longer hashes to its record.
	IssueModified IssueKind = "modified"
	// IssueUntracked means a directory exists without a record.
	IssueUntracked IssueKind = "untracked"
)

// Issue is one discrepancy between the records and the plugin directory.
type Issue struct {
	Name     string
	Kind     IssueKind
	Expected integrity.Integrity
	Actual   integrity.Integrity
	Err      error
}

func (i Issue) String() string {
	switch i.Kind {
	case IssueModified:
		if i.Err != nil {
			return fmt.Sprintf("%s: %s: %v", i.Name, i.Kind, i.Err)
		}
		return fmt.Sprintf("%s: %s (expected %s, got %s)", i.Name, i.Kind, i.Expected, i.Actual)
	default:
		return fmt.Sprintf("%s: %s", i.Name, i.Kind)
	}
}

// Verify re-hashes every installed plugin against its record and reports
// directories nobody recorded. Transient directories are ignored; Cleanup
// handles them.
func (s *Store) Verify(ctx context.Context) ([]Issue, error) {
	var issues []Issue
	for _, r := range s.Records() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		dir := s.PluginPath(r.Name)
		if !s.fs.IsDir(dir) {
			issues = append(issues, Issue{Name: r.Name, Kind: IssueMissing, Expected: r.Checksum})
			continue
		}
		actual, ok, err := integrity.VerifyTree(r.Checksum, dir)
		if err != nil {
			if errors.Is(err, integrity.ErrUnsupportedAlgorithm) {
				return nil, err
			}
			issues = append(issues, Issue{Name: r.Name, Kind: IssueModified, Expected: r.Checksum, Err: err})
			continue
		}
		if !ok {
			issues = append(issues, Issue{Name: r.Name, Kind: IssueModified, Expected: r.Checksum, Actual: actual})
		}
	}

	if s.fs.IsDir(s.pluginDir) {
		entries, err := s.fs.ReadDir(s.pluginDir)
		if err != nil {
			return nil, fmt.Errorf("failed to list plugin directory: %w", err)
		}
		for _, e := range entries {
			if !e.IsDir() || transfer.IsTransient(e.Name()) {
				continue
			}
			if _, ok := s.Get(e.Name()); !ok {
				issues = append(issues, Issue{Name: e.Name(), Kind: IssueUntracked})
			}
		}
	}

	sort.SliceStable(issues, func(i, j int) bool { return issues[i].Name < issues[j].Name })
	if len(issues) > 0 {
		ports.Log(ctx).Warn(ctx, "store verification found issues", ports.F("count", len(issues)))
	}
	return issues, nil
}

// Cleanup removes staging and trash directories abandoned in the plugin
// directory and returns their paths.
func (s *Store) Cleanup(ctx context.Context) ([]string, error) {
	removed, err := transfer.Sweep(s.fs, s.pluginDir)
	for _, path := range removed {
		ports.Log(ctx).Info(ctx, "removed abandoned directory", ports.F("path", path))
	}
	return removed, err
}
