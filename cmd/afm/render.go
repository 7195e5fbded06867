package main

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/felixgeelhaar/afm/internal/app"
	"github.com/felixgeelhaar/afm/internal/domain/lock"
	"github.com/felixgeelhaar/afm/internal/domain/registry"
	"github.com/felixgeelhaar/afm/internal/domain/solver"
	"github.com/felixgeelhaar/afm/internal/domain/store"
	"github.com/felixgeelhaar/afm/internal/domain/transfer"
)

func renderConflict(w io.Writer, err *solver.ConflictError) {
	_, _ = fmt.Fprintf(w, "%s dependency conflict\n\n", errorStyle.Render("Error:"))
	for _, c := range err.Report.Conflicts {
		_, _ = fmt.Fprintf(w, "  no version of %s satisfies all requirements:\n", c.Plugin)
		for _, req := range c.Requirements {
			_, _ = fmt.Fprintf(w, "    %s\n", req)
		}
		available := make([]string, len(c.Available))
		for i, v := range c.Available {
			available[i] = v.String()
		}
		if len(available) == 0 {
			available = []string{"none"}
		}
		_, _ = fmt.Fprintf(w, "    %s\n", mutedStyle.Render("available: "+strings.Join(available, ", ")))
	}
	_, _ = fmt.Fprintln(w)
	_, _ = fmt.Fprintln(w, mutedStyle.Render("Nothing was installed. Relax a request or publish a compatible version."))
}

func renderStale(w io.Writer, err *lock.StaleLockError) {
	_, _ = fmt.Fprintf(w, "%s lockfile is stale\n\n", errorStyle.Render("Error:"))
	for _, e := range err.Edges {
		_, _ = fmt.Fprintf(w, "  %s\n", e)
	}
	_, _ = fmt.Fprintln(w)
	_, _ = fmt.Fprintln(w, mutedStyle.Render("Run 'afm lock' or 'afm install' to re-resolve."))
}

func renderWarnings(w io.Writer, warnings []*registry.IndexInconsistencyError) {
	for _, warn := range warnings {
		_, _ = fmt.Fprintf(w, "%s %s\n", warningStyle.Render("warning:"), warn)
	}
}

func renderChange(c store.Change) string {
	switch {
	case c.From.IsZero():
		return addStyle.Render(c.String())
	case c.To.IsZero():
		return removeStyle.Render(c.String())
	default:
		return updateStyle.Render(c.String())
	}
}

// renderResult prints the changes a run made and where the lockfile went.
func renderResult(w io.Writer, res *app.Result, lockfilePath string) {
	renderWarnings(w, res.Warnings)
	for _, cycle := range res.Cycles {
		_, _ = fmt.Fprintf(w, "%s dependency cycle %s\n", warningStyle.Render("note:"), strings.Join(cycle, " -> "))
	}

	if res.Diff.IsEmpty() {
		_, _ = fmt.Fprintln(w, "Already up to date.")
	} else {
		for _, list := range [][]store.Change{res.Diff.Added, res.Diff.Updated, res.Diff.Removed} {
			for _, c := range list {
				_, _ = fmt.Fprintln(w, renderChange(c))
			}
		}
	}

	if res.Lockfile != nil && lockfilePath != "" {
		_, _ = fmt.Fprintln(w, mutedStyle.Render(fmt.Sprintf("%d plugin(s) locked in %s", res.Lockfile.Len(), lockfilePath)))
	}
}

func renderPublish(w io.Writer, res *transfer.PublishResult) {
	if res.Unchanged {
		_, _ = fmt.Fprintf(w, "%s@%s is already published\n", res.Name, res.Version)
		return
	}
	_, _ = fmt.Fprintf(w, "%s %s@%s (%d files)\n", addStyle.Render("published"), res.Name, res.Version, len(res.Files))
	_, _ = fmt.Fprintln(w, mutedStyle.Render(res.Checksum.String()))
}

func renderInstalled(w io.Writer, rows []app.Installed) error {
	if len(rows) == 0 {
		_, _ = fmt.Fprintln(w, "No plugins installed.")
		_, _ = fmt.Fprintln(w)
		_, _ = fmt.Fprintln(w, "Install plugins using:")
		_, _ = fmt.Fprintln(w, "  afm install <name>[@constraint]")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "NAME\tVERSION\tLOCKED\tREQUESTED")
	_, _ = fmt.Fprintln(tw, "────\t───────\t──────\t─────────")
	for _, r := range rows {
		locked := "-"
		if !r.Locked.IsZero() {
			locked = r.Locked.String()
		}
		requested := "(dependency)"
		if r.Direct {
			requested = r.Requested.String()
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.Name, r.Version, locked, requested)
	}
	return tw.Flush()
}

func renderRemote(w io.Writer, rows []app.RemotePlugin) error {
	if len(rows) == 0 {
		_, _ = fmt.Fprintln(w, "The registry is empty.")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "NAME\tLATEST\tCHANNELS\tVERSIONS")
	_, _ = fmt.Fprintln(tw, "────\t──────\t────────\t────────")
	for _, r := range rows {
		channels := make([]string, 0, len(r.Channels))
		for ch, v := range r.Channels {
			channels = append(channels, ch+"="+v)
		}
		sort.Strings(channels)
		if len(channels) == 0 {
			channels = []string{"-"}
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%d\n", r.Name, r.Latest, strings.Join(channels, " "), len(r.Versions))
	}
	return tw.Flush()
}

func renderVerify(w io.Writer, report *app.VerifyReport) {
	renderWarnings(w, report.Warnings)

	_, _ = fmt.Fprintln(w, heading("lockfile"))
	switch {
	case report.LockMissing:
		_, _ = fmt.Fprintln(w, mutedStyle.Render("  no lockfile"))
	case report.Stale != nil:
		for _, e := range report.Stale.Edges {
			_, _ = fmt.Fprintf(w, "  %s\n", removeStyle.Render(e.String()))
		}
	default:
		_, _ = fmt.Fprintln(w, addStyle.Render("  consistent with the registry"))
	}

	_, _ = fmt.Fprintln(w, heading("plugins"))
	if len(report.Issues) == 0 {
		_, _ = fmt.Fprintln(w, addStyle.Render("  every plugin matches its checksum"))
		return
	}
	for _, issue := range report.Issues {
		_, _ = fmt.Fprintf(w, "  %s\n", removeStyle.Render(issue.String()))
	}
}
