// Package version provides semantic versions, release channels and the
// dependency constraint language used by plugin manifests.
package version

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/mod/semver"
)

// Version errors.
var (
	ErrEmptyVersion   = errors.New("version cannot be empty")
	ErrInvalidVersion = errors.New("invalid semantic version")
)

// strictPattern requires all three numeric fields. golang.org/x/mod/semver
// accepts shorthand like "v1.2", which manifests must not use.
var strictPattern = regexp.MustCompile(`^(0|[1-9]\d*)\.(0|[1-9]\d*)\.(0|[1-9]\d*)(-[0-9A-Za-z-]+(\.[0-9A-Za-z-]+)*)?(\+[0-9A-Za-z-]+(\.[0-9A-Za-z-]+)*)?$`)

// Version is a semantic version (major.minor.patch with an optional
// pre-release tag). It is an immutable value object; the zero value is
// invalid and reports IsZero.
type Version struct {
	raw string
}

// Parse parses a semantic version string such as "1.2.3" or "2.0.0-beta.1".
// A leading "v" is rejected.
func Parse(s string) (Version, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Version{}, ErrEmptyVersion
	}
	if !strictPattern.MatchString(s) || !semver.IsValid("v"+s) {
		return Version{}, fmt.Errorf("%w: %q", ErrInvalidVersion, s)
	}
	return Version{raw: s}, nil
}

// MustParse parses a version, panicking on error.
func MustParse(s string) Version {
	v, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return v
}

// String returns the version as written, without a "v" prefix.
func (v Version) String() string {
	return v.raw
}

// IsZero returns true if this is the zero Version.
func (v Version) IsZero() bool {
	return v.raw == ""
}

// Compare returns -1, 0 or +1. Fields compare as integers and a pre-release
// sorts strictly below the release it precedes. Build metadata is ignored.
func (v Version) Compare(other Version) int {
	return semver.Compare("v"+v.raw, "v"+other.raw)
}

// Equal reports whether both versions have equal precedence.
func (v Version) Equal(other Version) bool {
	return v.Compare(other) == 0
}

// Less reports whether v sorts before other.
func (v Version) Less(other Version) bool {
	return v.Compare(other) < 0
}

// Major returns the major field.
func (v Version) Major() int {
	return v.field(0)
}

// Minor returns the minor field.
func (v Version) Minor() int {
	return v.field(1)
}

// Patch returns the patch field.
func (v Version) Patch() int {
	return v.field(2)
}

// Prerelease returns the pre-release tag without the leading "-", or "".
func (v Version) Prerelease() string {
	return strings.TrimPrefix(semver.Prerelease("v"+v.raw), "-")
}

// IsPrerelease reports whether the version carries a pre-release tag.
func (v Version) IsPrerelease() bool {
	return v.Prerelease() != ""
}

// Release returns the version with pre-release and build metadata removed.
func (v Version) Release() Version {
	if v.IsZero() {
		return v
	}
	return Version{raw: fmt.Sprintf("%d.%d.%d", v.Major(), v.Minor(), v.Patch())}
}

func (v Version) field(i int) int {
	core := strings.TrimPrefix(semver.Canonical("v"+v.raw), "v")
	if idx := strings.IndexAny(core, "-+"); idx >= 0 {
		core = core[:idx]
	}
	parts := strings.Split(core, ".")
	if i >= len(parts) {
		return 0
	}
	n, _ := strconv.Atoi(parts[i])
	return n
}

// MarshalText implements encoding.TextMarshaler.
func (v Version) MarshalText() ([]byte, error) {
	return []byte(v.raw), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (v *Version) UnmarshalText(data []byte) error {
	parsed, err := Parse(string(data))
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// Sort sorts versions ascending in place.
func Sort(versions []Version) {
	sort.SliceStable(versions, func(i, j int) bool {
		return versions[i].Less(versions[j])
	})
}

// SortDescending sorts versions highest first in place.
func SortDescending(versions []Version) {
	sort.SliceStable(versions, func(i, j int) bool {
		return versions[j].Less(versions[i])
	})
}

// Max returns the highest version, or false when the slice is empty.
func Max(versions []Version) (Version, bool) {
	if len(versions) == 0 {
		return Version{}, false
	}
	best := versions[0]
	for _, v := range versions[1:] {
		if best.Less(v) {
			best = v
		}
	}
	return best, true
}

// ParseAll parses a list of version strings, failing on the first invalid one.
func ParseAll(raw []string) ([]Version, error) {
	out := make([]Version, 0, len(raw))
	for _, s := range raw {
		v, err := Parse(s)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}
