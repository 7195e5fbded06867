package transfer

import (
	"context"
	"fmt"

	"github.com/felixgeelhaar/afm/internal/domain/integrity"
	"github.com/felixgeelhaar/afm/internal/domain/version"
	"github.com/felixgeelhaar/afm/internal/ports"
)

// PublishResult describes a publish.
type PublishResult struct {
	Name     string
	Version  version.Version
	Checksum integrity.Integrity
	Files    []string
	// Unchanged is set when an identical artifact set was already published.
	Unchanged bool
}

// Publish copies the artifact set in src into the registry. An empty name
// or zero version means "as declared by the manifest"; otherwise they must
// match it.
//
// Artifacts are staged and renamed into place, then the checksum sidecar is
// written, and the index is updated last, so a reader never sees an index
// entry without artifacts. Republishing identical content is a no-op;
// republishing different content fails with *VersionCollisionError.
func (t *Transfer) Publish(ctx context.Context, src, name string, v version.Version) (*PublishResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	log := ports.Log(ctx)

	m, err := t.loader.Load(src)
	if err != nil {
		return nil, err
	}
	if name != "" && name != m.Name {
		return nil, fmt.Errorf("%w: requested %q, manifest declares %q", ErrNameMismatch, name, m.Name)
	}
	if !v.IsZero() && !v.Equal(m.Version) {
		return nil, fmt.Errorf("%w: requested %s, manifest declares %s", ErrVersionMismatch, v, m.Version)
	}
	name, v = m.Name, m.Version

	sum, files, err := integrity.Tree(t.algorithm, src, t.ignore.Filter())
	if err != nil {
		return nil, fmt.Errorf("failed to hash %s: %w", src, err)
	}
	if len(files) == 0 {
		return nil, ErrEmptyArtifactSet
	}
	result := &PublishResult{Name: name, Version: v, Checksum: sum, Files: files}

	idx, err := t.registry.LoadIndex()
	if err != nil {
		return nil, err
	}

	dest := t.registry.VersionDir(name, v)
	if idx.Contains(name, v) && t.fs.IsDir(dest) {
		existing, _, err := integrity.Tree(sum.Algorithm(), dest, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to hash published %s: %w", m.Key(), err)
		}
		if !existing.Equal(sum) {
			return nil, &VersionCollisionError{Name: name, Version: v, Published: existing, Candidate: sum}
		}
		published, err := t.registry.ReadChecksum(name, v)
		if err == nil {
			_, err = verifySidecar(published, dest)
		}
		if err == nil {
			log.Info(ctx, "version already published", ports.F("plugin", m.Key()))
			result.Checksum = published
			result.Unchanged = true
			return result, nil
		}
		// Identical content with a lost or stale sidecar; rewrite it below.
	} else if err := t.stage(src, dest, files, sum); err != nil {
		return nil, err
	}

	if err := t.registry.WriteChecksum(name, v, sum); err != nil {
		return nil, fmt.Errorf("failed to write checksum sidecar: %w", err)
	}

	idx.AddVersion(name, v)
	if err := t.registry.SaveIndex(idx); err != nil {
		return nil, err
	}

	log.Info(ctx, "published plugin",
		ports.F("plugin", m.Key()),
		ports.F("checksum", sum.String()),
		ports.F("files", len(files)))
	return result, nil
}

// stage copies files into a staging directory next to dest, verifies the
// copy and renames it over dest.
func (t *Transfer) stage(src, dest string, files []string, sum integrity.Integrity) error {
	staging := siblingPath(dest, StagingPrefix)
	cleanup := func() { _ = t.fs.RemoveAll(staging) }

	if err := t.copyTree(src, staging, files); err != nil {
		cleanup()
		return fmt.Errorf("failed to stage artifacts: %w", err)
	}

	staged, _, err := integrity.Tree(sum.Algorithm(), staging, nil)
	if err != nil {
		cleanup()
		return fmt.Errorf("failed to hash staged artifacts: %w", err)
	}
	if !staged.Equal(sum) {
		cleanup()
		return fmt.Errorf("artifacts changed while publishing: expected %s, got %s", sum, staged)
	}

	if err := t.swapIn(staging, dest); err != nil {
		cleanup()
		return fmt.Errorf("failed to commit artifacts: %w", err)
	}
	return nil
}

// verifySidecar checks that dir still hashes to the published checksum.
func verifySidecar(published integrity.Integrity, dir string) (integrity.Integrity, error) {
	actual, ok, err := integrity.VerifyTree(published, dir)
	if err != nil {
		return integrity.Integrity{}, err
	}
	if !ok {
		return actual, fmt.Errorf("sidecar %s does not match artifacts (%s)", published, actual)
	}
	return actual, nil
}
