// Package registry provides the registry index and a read-only snapshot of
// the versions available in a file-based plugin registry.
package registry

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/felixgeelhaar/afm/internal/domain/version"
)

// Entry is the index document entry for one plugin name.
type Entry struct {
	// Versions lists published versions, highest first
	Versions []string `json:"versions"`
	// Latest is the highest stable version, or the highest version when
	// none is stable
	Latest string `json:"latest"`
	// Channels holds explicit latest pointers per release channel
	Channels map[string]string `json:"channels,omitempty"`
}

// Index is the registry index document: plugin name to entry.
// The zero value is not usable; use NewIndex or ParseIndex.
type Index struct {
	entries map[string]*Entry
}

// NewIndex creates a new empty index.
func NewIndex() *Index {
	return &Index{entries: make(map[string]*Entry)}
}

// ParseIndex parses and validates a JSON index document.
func ParseIndex(data []byte) (*Index, error) {
	entries := make(map[string]*Entry)
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIndexCorrupt, err)
	}

	idx := &Index{entries: entries}
	for name, e := range idx.entries {
		if e == nil {
			return nil, fmt.Errorf("%w: entry %q is null", ErrIndexCorrupt, name)
		}
	}
	if err := idx.Validate(); err != nil {
		return nil, err
	}
	return idx, nil
}

// Marshal serializes the index deterministically: names sorted, versions
// sorted highest first.
func (idx *Index) Marshal() ([]byte, error) {
	for _, e := range idx.entries {
		sortDescending(e.Versions)
	}
	data, err := json.MarshalIndent(idx.entries, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// Validate checks that every entry's versions parse, that latest is the
// highest stable version, and that every channel pointer is a member of the
// version set.
func (idx *Index) Validate() error {
	for _, name := range idx.Names() {
		e := idx.entries[name]
		members := make(map[string]bool, len(e.Versions))
		parsed := make([]version.Version, 0, len(e.Versions))
		for _, raw := range e.Versions {
			v, err := version.Parse(raw)
			if err != nil {
				return &InvalidEntryError{Name: name, Reason: err.Error()}
			}
			members[v.String()] = true
			parsed = append(parsed, v)
		}

		if len(e.Versions) == 0 {
			if e.Latest != "" {
				return &InvalidEntryError{Name: name, Reason: "latest set on an entry without versions"}
			}
			continue
		}
		if !members[e.Latest] {
			return &InvalidEntryError{Name: name, Reason: fmt.Sprintf("latest %q is not a published version", e.Latest)}
		}
		if want, _ := latestOf(parsed); e.Latest != want.String() {
			return &InvalidEntryError{Name: name, Reason: fmt.Sprintf("latest %q is not the highest stable version %s", e.Latest, want)}
		}
		for ch, pointer := range e.Channels {
			if _, err := version.ParseChannel(ch); err != nil {
				return &InvalidEntryError{Name: name, Reason: err.Error()}
			}
			if !members[pointer] {
				return &InvalidEntryError{Name: name, Reason: fmt.Sprintf("channel %s points to unpublished version %q", ch, pointer)}
			}
		}
	}
	return nil
}

// Names returns the plugin names in sorted order.
func (idx *Index) Names() []string {
	names := make([]string, 0, len(idx.entries))
	for name := range idx.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Entry returns a copy of the entry for name.
func (idx *Index) Entry(name string) (Entry, bool) {
	e, ok := idx.entries[name]
	if !ok {
		return Entry{}, false
	}
	out := Entry{
		Versions: append([]string(nil), e.Versions...),
		Latest:   e.Latest,
	}
	if len(e.Channels) > 0 {
		out.Channels = make(map[string]string, len(e.Channels))
		for k, v := range e.Channels {
			out.Channels[k] = v
		}
	}
	return out, true
}

// Versions returns the parsed versions listed for name, highest first.
// Entries are validated on parse, so unparseable versions do not occur.
func (idx *Index) Versions(name string) []version.Version {
	e, ok := idx.entries[name]
	if !ok {
		return nil
	}
	out := make([]version.Version, 0, len(e.Versions))
	for _, raw := range e.Versions {
		if v, err := version.Parse(raw); err == nil {
			out = append(out, v)
		}
	}
	version.SortDescending(out)
	return out
}

// Contains reports whether name@v is listed.
func (idx *Index) Contains(name string, v version.Version) bool {
	e, ok := idx.entries[name]
	if !ok {
		return false
	}
	for _, raw := range e.Versions {
		if raw == v.String() {
			return true
		}
	}
	return false
}

// AddVersion lists v under name and recomputes the latest pointer.
// Adding a listed version is a no-op.
// It reports whether the index changed.
func (idx *Index) AddVersion(name string, v version.Version) bool {
	e, ok := idx.entries[name]
	if !ok {
		e = &Entry{}
		idx.entries[name] = e
	}
	if idx.Contains(name, v) {
		return false
	}

	e.Versions = append(e.Versions, v.String())
	sortDescending(e.Versions)
	if latest, ok := latestOf(idx.Versions(name)); ok {
		e.Latest = latest.String()
	}
	return true
}

// latestOf returns the highest stable version, falling back to the highest
// pre-release when nothing stable is listed.
func latestOf(versions []version.Version) (version.Version, bool) {
	if v, ok := version.Max(version.ChannelStable.Filter(versions)); ok {
		return v, true
	}
	return version.Max(versions)
}

// SetChannel designates v as the latest version of name on channel ch.
func (idx *Index) SetChannel(name string, ch version.Channel, v version.Version) error {
	if !idx.Contains(name, v) {
		return &InvalidEntryError{Name: name, Reason: fmt.Sprintf("cannot point channel %s to unpublished version %s", ch, v)}
	}
	e := idx.entries[name]
	if e.Channels == nil {
		e.Channels = make(map[string]string)
	}
	e.Channels[ch.String()] = v.String()
	return nil
}

// sortDescending orders raw version strings highest first. Unparseable
// strings sort last in lexical order.
func sortDescending(raw []string) {
	sort.SliceStable(raw, func(i, j int) bool {
		a, errA := version.Parse(raw[i])
		b, errB := version.Parse(raw[j])
		switch {
		case errA != nil && errB != nil:
			return raw[i] < raw[j]
		case errA != nil:
			return false
		case errB != nil:
			return true
		default:
			return a.Compare(b) > 0
		}
	})
}
