package lock

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/afm/internal/domain/integrity"
	"github.com/felixgeelhaar/afm/internal/domain/plan"
	"github.com/felixgeelhaar/afm/internal/domain/plugin"
	"github.com/felixgeelhaar/afm/internal/domain/version"
)

// fakeIndex is an in-memory Index and ManifestSource.
type fakeIndex struct {
	manifests map[string]*plugin.Manifest
	sums      map[string]integrity.Integrity
	broken    map[string]error
}

func newFakeIndex() *fakeIndex {
	return &fakeIndex{
		manifests: make(map[string]*plugin.Manifest),
		sums:      make(map[string]integrity.Integrity),
		broken:    make(map[string]error),
	}
}

func (f *fakeIndex) publish(t *testing.T, name, ver string, deps map[string]string) {
	t.Helper()

	m := &plugin.Manifest{
		Name:         name,
		Version:      version.MustParse(ver),
		Dependencies: make(map[string]version.Constraint),
	}
	for dep, expr := range deps {
		m.Dependencies[dep] = version.MustParseConstraint(expr)
	}
	sum, err := integrity.FromData(integrity.AlgorithmSHA256, []byte(m.Key()))
	require.NoError(t, err)

	f.manifests[m.Key()] = m
	f.sums[m.Key()] = sum
}

func (f *fakeIndex) Has(name string, v version.Version) bool {
	_, ok := f.manifests[plugin.Key(name, v)]
	return ok
}

func (f *fakeIndex) Checksum(name string, v version.Version) (integrity.Integrity, bool) {
	sum, ok := f.sums[plugin.Key(name, v)]
	return sum, ok
}

func (f *fakeIndex) Manifest(name string, v version.Version) (*plugin.Manifest, error) {
	key := plugin.Key(name, v)
	if err, ok := f.broken[key]; ok {
		return nil, err
	}
	return f.manifests[key], nil
}

// planOf builds a plan from the fake index for the given name@version keys.
func (f *fakeIndex) planOf(t *testing.T, keys ...string) *plan.Plan {
	t.Helper()

	p := plan.New()
	for _, key := range keys {
		m, ok := f.manifests[key]
		require.True(t, ok, key)
		require.NoError(t, p.Add(plan.Entry{
			Name:         m.Name,
			Version:      m.Version,
			Checksum:     f.sums[key],
			Dependencies: m.Dependencies,
		}))
	}
	return p
}

func fixture(t *testing.T) (*fakeIndex, *Lockfile) {
	t.Helper()

	idx := newFakeIndex()
	idx.publish(t, "app", "1.2.0", map[string]string{"http": "^1.0.0", "log": ">=0.1.0"})
	idx.publish(t, "http", "1.4.0", map[string]string{"log": "^0.2.0"})
	idx.publish(t, "log", "0.2.3", nil)

	requests := map[string]version.Constraint{"app": version.MustParseConstraint("^1.0.0")}
	return idx, FromPlan(requests, idx.planOf(t, "app@1.2.0", "http@1.4.0", "log@0.2.3"))
}

func TestFromPlan(t *testing.T) {
	t.Parallel()

	_, l := fixture(t)

	assert.Equal(t, FormatVersion, l.Format())
	assert.Equal(t, 3, l.Len())
	assert.Equal(t, []string{"app", "http", "log"}, l.Names())
	assert.Equal(t, []string{"app"}, l.RequestNames())

	e, ok := l.Get("http")
	require.True(t, ok)
	assert.Equal(t, "1.4.0", e.Version.String())
	assert.False(t, e.Checksum.IsZero())

	_, ok = l.Get("missing")
	assert.False(t, ok)
}

func TestLockfile_RequestsIsCopy(t *testing.T) {
	t.Parallel()

	_, l := fixture(t)
	reqs := l.Requests()
	delete(reqs, "app")

	assert.Equal(t, []string{"app"}, l.RequestNames())
}

func TestLockfile_Plan(t *testing.T) {
	t.Parallel()

	idx, l := fixture(t)

	p, err := l.Plan(func(e Entry) map[string]version.Constraint {
		m, err := idx.Manifest(e.Name, e.Version)
		require.NoError(t, err)
		return m.Dependencies
	})
	require.NoError(t, err)

	assert.True(t, p.Equal(idx.planOf(t, "app@1.2.0", "http@1.4.0", "log@0.2.3")))
	assert.Empty(t, p.Unsatisfied())

	order, _ := p.Order()
	assert.Equal(t, []string{"log", "http", "app"}, order)
}

func TestLockfile_DTORoundTrip(t *testing.T) {
	t.Parallel()

	_, l := fixture(t)

	dto := LockfileToDTO(l)
	assert.Equal(t, FormatVersion, dto.Version)
	assert.Equal(t, []RequestDTO{{Name: "app", Constraint: "^1.0.0"}}, dto.Requests)
	assert.Equal(t, "0.2.3", dto.Plugins["log"].Version)

	back, err := LockfileFromDTO(dto)
	require.NoError(t, err)
	assert.True(t, l.Equal(back))
}

func TestLockfileFromDTO_Errors(t *testing.T) {
	t.Parallel()

	sum, err := integrity.FromData(integrity.AlgorithmSHA256, []byte("x"))
	require.NoError(t, err)
	good := PluginDTO{Version: "1.0.0", Checksum: sum.String()}

	tests := []struct {
		name    string
		dto     LockfileDTO
		wantErr error
	}{
		{
			name:    "unsupported format",
			dto:     LockfileDTO{Version: 2},
			wantErr: ErrUnsupportedFormat,
		},
		{
			name: "bad constraint",
			dto: LockfileDTO{
				Version:  FormatVersion,
				Requests: []RequestDTO{{Name: "a", Constraint: "=>1"}},
			},
			wantErr: version.ErrConstraintSyntax,
		},
		{
			name: "empty request name",
			dto: LockfileDTO{
				Version:  FormatVersion,
				Requests: []RequestDTO{{Name: "", Constraint: "any"}},
			},
			wantErr: plugin.ErrEmptyPluginName,
		},
		{
			name: "bad checksum",
			dto: LockfileDTO{
				Version: FormatVersion,
				Plugins: map[string]PluginDTO{"a": {Version: "1.0.0", Checksum: "nope"}},
			},
			wantErr: integrity.ErrInvalidHash,
		},
		{
			name: "bad version",
			dto: LockfileDTO{
				Version: FormatVersion,
				Plugins: map[string]PluginDTO{"a": {Version: "one", Checksum: good.Checksum}},
			},
		},
		{
			name: "duplicate request",
			dto: LockfileDTO{
				Version:  FormatVersion,
				Requests: []RequestDTO{{Name: "a", Constraint: "any"}, {Name: "a", Constraint: "^1.0.0"}},
				Plugins:  map[string]PluginDTO{"a": good},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := LockfileFromDTO(tt.dto)
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestValidate_FreshLockfile(t *testing.T) {
	t.Parallel()

	idx, l := fixture(t)
	assert.NoError(t, Validate(l, idx, idx))
}

func TestValidate_BrokenEdges(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(t *testing.T, idx *fakeIndex) *Lockfile
		want   BrokenEdge
	}{
		{
			name: "version unpublished",
			mutate: func(t *testing.T, idx *fakeIndex) *Lockfile {
				_, l := fixture(t)
				delete(idx.manifests, "log@0.2.3")
				return l
			},
			want: BrokenEdge{To: "log", Version: version.MustParse("0.2.3"), Reason: ReasonNotPublished},
		},
		{
			name: "checksum changed",
			mutate: func(t *testing.T, idx *fakeIndex) *Lockfile {
				_, l := fixture(t)
				sum, err := integrity.FromData(integrity.AlgorithmSHA256, []byte("tampered"))
				require.NoError(t, err)
				idx.sums["http@1.4.0"] = sum
				return l
			},
			want: BrokenEdge{To: "http", Version: version.MustParse("1.4.0"), Reason: ReasonChecksumChanged},
		},
		{
			name: "dependency not locked",
			mutate: func(t *testing.T, idx *fakeIndex) *Lockfile {
				reqs := map[string]version.Constraint{"http": version.Any()}
				return FromPlan(reqs, idx.planOf(t, "http@1.4.0"))
			},
			want: BrokenEdge{
				From:       "http@1.4.0",
				To:         "log",
				Constraint: version.MustParseConstraint("^0.2.0"),
				Reason:     ReasonNotLocked,
			},
		},
		{
			name: "dependency violated",
			mutate: func(t *testing.T, idx *fakeIndex) *Lockfile {
				idx.publish(t, "log", "0.3.0", nil)
				reqs := map[string]version.Constraint{"http": version.Any()}
				return FromPlan(reqs, idx.planOf(t, "http@1.4.0", "log@0.3.0"))
			},
			want: BrokenEdge{
				From:       "http@1.4.0",
				To:         "log",
				Constraint: version.MustParseConstraint("^0.2.0"),
				Version:    version.MustParse("0.3.0"),
				Reason:     ReasonUnsatisfied,
			},
		},
		{
			name: "request violated",
			mutate: func(t *testing.T, idx *fakeIndex) *Lockfile {
				reqs := map[string]version.Constraint{"log": version.MustParseConstraint(">=1.0.0")}
				return FromPlan(reqs, idx.planOf(t, "log@0.2.3"))
			},
			want: BrokenEdge{
				To:         "log",
				Constraint: version.MustParseConstraint(">=1.0.0"),
				Version:    version.MustParse("0.2.3"),
				Reason:     ReasonUnsatisfied,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			idx, _ := fixture(t)
			l := tt.mutate(t, idx)

			err := Validate(l, idx, idx)
			require.Error(t, err)
			assert.True(t, IsStaleLockError(err))

			var stale *StaleLockError
			require.ErrorAs(t, err, &stale)
			require.Len(t, stale.Edges, 1)

			got := stale.Edges[0]
			assert.Equal(t, tt.want.From, got.From)
			assert.Equal(t, tt.want.To, got.To)
			assert.Equal(t, tt.want.Reason, got.Reason)
			assert.Equal(t, tt.want.Constraint.String(), got.Constraint.String())
			assert.True(t, tt.want.Version.Equal(got.Version))
			assert.Contains(t, err.Error(), tt.want.Reason)
		})
	}
}

func TestValidate_ManifestErrorIsReturned(t *testing.T) {
	t.Parallel()

	idx, l := fixture(t)
	boom := errors.New("boom")
	idx.broken["http@1.4.0"] = boom

	err := Validate(l, idx, idx)
	assert.ErrorIs(t, err, boom)
	assert.False(t, IsStaleLockError(err))
}

func TestBrokenEdge_String(t *testing.T) {
	t.Parallel()

	edge := BrokenEdge{
		From:       "a@1.2.0",
		To:         "b",
		Constraint: version.MustParseConstraint("^2.0.0"),
		Version:    version.MustParse("1.5.0"),
		Reason:     ReasonUnsatisfied,
	}
	assert.Equal(t, "a@1.2.0 -> b ^2.0.0 (locked b@1.5.0): "+ReasonUnsatisfied, edge.String())

	gone := BrokenEdge{To: "b", Version: version.MustParse("1.5.0"), Reason: ReasonNotPublished}
	assert.Equal(t, "b@1.5.0: "+ReasonNotPublished, gone.String())
}
