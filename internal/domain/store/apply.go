package store

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/felixgeelhaar/afm/internal/domain/plan"
	"github.com/felixgeelhaar/afm/internal/ports"
)

// Apply moves the installed set to target and returns the diff it acted on.
//
// Added and updated plugins are fetched concurrently, at most one transfer
// per name. Each record is written only after that plugin's directory is
// confirmed on disk, so a failed apply leaves the records behind the disk,
// never ahead of it. The first failure stops new fetches; fetches already
// running finish and are recorded. Removals run only when every fetch
// succeeded.
func (s *Store) Apply(ctx context.Context, target *plan.Plan) (Diff, error) {
	d := s.Diff(target)
	log := ports.Log(ctx)
	if d.IsEmpty() {
		log.Debug(ctx, "store up to date", ports.F("plugins", len(d.Unchanged)))
		return d, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for _, list := range [][]Change{d.Added, d.Updated} {
		for _, c := range list {
			g.Go(func() error {
				return s.install(gctx, c)
			})
		}
	}
	if err := g.Wait(); err != nil {
		return d, err
	}

	for _, c := range d.Removed {
		if err := s.fetcher.Remove(ctx, s.PluginPath(c.Name)); err != nil {
			return d, &ApplyError{Name: c.Name, Op: "remove", Err: err}
		}
		if err := s.forget(c.Name); err != nil {
			return d, &ApplyError{Name: c.Name, Op: "remove", Err: err}
		}
		log.Info(ctx, "removed plugin", ports.F("plugin", c.Name), ports.F("version", c.From.String()))
	}
	return d, nil
}

func (s *Store) install(ctx context.Context, c Change) error {
	dest := s.PluginPath(c.Name)
	sum, err := s.fetcher.FetchExpect(ctx, c.Name, c.To, dest, c.Checksum)
	if err != nil {
		return &ApplyError{Name: c.Name, Op: "install", Err: err}
	}
	if !s.fs.IsDir(dest) {
		return &ApplyError{Name: c.Name, Op: "install", Err: errMissingAfterCommit(dest)}
	}
	if err := s.commit(Record{Name: c.Name, Version: c.To, Checksum: sum}); err != nil {
		return &ApplyError{Name: c.Name, Op: "install", Err: err}
	}

	fields := []ports.Field{ports.F("plugin", c.Name), ports.F("version", c.To.String())}
	if !c.From.IsZero() {
		fields = append(fields, ports.F("from", c.From.String()))
	}
	ports.Log(ctx).Info(ctx, "installed plugin", fields...)
	return nil
}

func errMissingAfterCommit(dest string) error {
	return fmt.Errorf("%s missing after commit", dest)
}
