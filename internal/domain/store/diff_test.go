package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/afm/internal/domain/integrity"
	"github.com/felixgeelhaar/afm/internal/domain/plan"
	"github.com/felixgeelhaar/afm/internal/domain/version"
)

func sumOf(t *testing.T, s string) integrity.Integrity {
	t.Helper()
	sum, err := integrity.FromData(integrity.AlgorithmSHA256, []byte(s))
	require.NoError(t, err)
	return sum
}

func record(t *testing.T, name, ver, content string) Record {
	t.Helper()
	return Record{Name: name, Version: version.MustParse(ver), Checksum: sumOf(t, content)}
}

func planWith(t *testing.T, records ...Record) *plan.Plan {
	t.Helper()
	p := plan.New()
	for _, r := range records {
		require.NoError(t, p.Add(plan.Entry{Name: r.Name, Version: r.Version, Checksum: r.Checksum}))
	}
	return p
}

func names(changes []Change) []string {
	out := make([]string, 0, len(changes))
	for _, c := range changes {
		out = append(out, c.Name)
	}
	return out
}

func TestCompute(t *testing.T) {
	t.Parallel()

	current := map[string]Record{
		"cache":   record(t, "cache", "1.0.0", "cache"),
		"http":    record(t, "http", "1.0.0", "http"),
		"log":     record(t, "log", "0.2.0", "log"),
		"weather": record(t, "weather", "2.0.0", "weather"),
	}
	target := planWith(t,
		record(t, "auth", "0.1.0", "auth"),
		record(t, "http", "1.0.0", "http"),
		record(t, "log", "0.3.0", "log3"),
		record(t, "weather", "2.0.0", "republished"),
	)

	d := Compute(current, target)

	assert.Equal(t, []string{"auth"}, names(d.Added))
	assert.Equal(t, []string{"log", "weather"}, names(d.Updated))
	assert.Equal(t, []string{"cache"}, names(d.Removed))
	assert.Equal(t, []string{"http"}, names(d.Unchanged))
	assert.False(t, d.IsEmpty())

	assert.True(t, d.Added[0].From.IsZero())
	assert.Equal(t, "0.2.0", d.Updated[0].From.String())
	assert.Equal(t, "0.3.0", d.Updated[0].To.String())
	assert.True(t, d.Removed[0].To.IsZero())
	assert.True(t, d.Updated[1].Checksum.Equal(sumOf(t, "republished")))
}

func TestCompute_Empty(t *testing.T) {
	t.Parallel()

	r := record(t, "http", "1.0.0", "http")
	d := Compute(map[string]Record{"http": r}, planWith(t, r))
	assert.True(t, d.IsEmpty())
	assert.Len(t, d.Unchanged, 1)
	assert.Empty(t, d.String())

	d = Compute(nil, plan.New())
	assert.True(t, d.IsEmpty())
}

func TestDiff_String(t *testing.T) {
	t.Parallel()

	d := Diff{
		Added:   []Change{{Name: "auth", To: version.MustParse("0.1.0")}},
		Updated: []Change{{Name: "log", From: version.MustParse("0.2.0"), To: version.MustParse("0.3.0")}, {Name: "weather", From: version.MustParse("2.0.0"), To: version.MustParse("2.0.0")}},
		Removed: []Change{{Name: "cache", From: version.MustParse("1.0.0")}},
	}
	assert.Equal(t, "+ auth@0.1.0\n~ log 0.2.0 -> 0.3.0\n~ weather@2.0.0\n- cache@1.0.0\n", d.String())
}
