// Package plugin provides the plugin manifest model and its loader.
package plugin

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/felixgeelhaar/afm/internal/domain/version"
)

// maxNameLength is the maximum allowed length for plugin names.
const maxNameLength = 64

// namePattern validates plugin names: alphanumerics, dots, underscores and
// hyphens, starting with an alphanumeric.
var namePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// Manifest describes one published version of a plugin.
// A manifest is immutable once published under its (name, version) pair.
type Manifest struct {
	// Name is the plugin identifier
	Name string
	// Version is the semantic version of this artifact set
	Version version.Version
	// Description is a brief description of the plugin
	Description string
	// Author is the plugin author
	Author string
	// Dependencies maps plugin names to version constraints
	Dependencies map[string]version.Constraint
}

// Key returns the "name@version" identity of the manifest.
func (m *Manifest) Key() string {
	return Key(m.Name, m.Version)
}

// Key formats a plugin identity as "name@version".
func Key(name string, v version.Version) string {
	return name + "@" + v.String()
}

// DependencyNames returns the dependency names in sorted order.
func (m *Manifest) DependencyNames() []string {
	names := make([]string, 0, len(m.Dependencies))
	for name := range m.Dependencies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Validate checks manifest invariants.
func (m *Manifest) Validate() error {
	errs := &InvalidManifestError{Name: m.Name}

	if err := ValidateName(m.Name); err != nil {
		errs.Name = ""
		errs.addf("%v", err)
	}
	if m.Version.IsZero() {
		errs.addf("version is required")
	}
	for _, dep := range m.DependencyNames() {
		if err := ValidateName(dep); err != nil {
			errs.addf("dependency %v", err)
		}
	}
	return errs.orNil()
}

// ValidateName checks a plugin name.
func ValidateName(name string) error {
	if name == "" {
		return ErrEmptyPluginName
	}
	if len(name) > maxNameLength {
		return fmt.Errorf("name must be %d characters or less, got %d", maxNameLength, len(name))
	}
	if !namePattern.MatchString(name) || strings.Contains(name, "..") {
		return fmt.Errorf("name %q must contain only letters, digits, '.', '_' or '-'", name)
	}
	return nil
}

// FromDocument converts a decoded manifest document into a Manifest.
// Constraint syntax errors are returned as *version.ConstraintSyntaxError.
func FromDocument(doc *Document) (*Manifest, error) {
	if doc == nil {
		return nil, ErrEmptyManifest
	}

	m := &Manifest{
		Name:         strings.TrimSpace(doc.Name),
		Description:  doc.Description,
		Author:       doc.Author,
		Dependencies: make(map[string]version.Constraint, len(doc.Dependencies)),
	}
	errs := &InvalidManifestError{Name: m.Name}

	if doc.Version == "" {
		errs.addf("version is required")
	} else {
		v, err := version.Parse(doc.Version)
		if err != nil {
			errs.addf("%v", err)
		}
		m.Version = v
	}

	names := make([]string, 0, len(doc.Dependencies))
	for name := range doc.Dependencies {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		c, err := version.ParseConstraint(doc.Dependencies[name])
		if err != nil {
			return nil, fmt.Errorf("dependency %q: %w", name, err)
		}
		m.Dependencies[name] = c
	}

	if err := errs.orNil(); err != nil {
		return nil, err
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// ToDocument converts the manifest back into its document form.
func (m *Manifest) ToDocument() *Document {
	doc := &Document{
		Name:        m.Name,
		Version:     m.Version.String(),
		Description: m.Description,
		Author:      m.Author,
	}
	if len(m.Dependencies) > 0 {
		doc.Dependencies = make(map[string]string, len(m.Dependencies))
		for name, c := range m.Dependencies {
			doc.Dependencies[name] = c.String()
		}
	}
	return doc
}
