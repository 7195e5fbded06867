package plugin

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Format identifies a manifest encoding.
type Format string

// Supported manifest encodings.
const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// ManifestFile names a manifest file and its encoding.
type ManifestFile struct {
	Name   string
	Format Format
}

// ManifestFiles lists the recognised manifest files in lookup order.
var ManifestFiles = []ManifestFile{
	{Name: "manifest.json", Format: FormatJSON},
	{Name: "plugin.yaml", Format: FormatYAML},
	{Name: "plugin.yml", Format: FormatYAML},
	{Name: "plugin.toml", Format: FormatTOML},
}

// IsManifestFile reports whether a relative path names a top-level manifest.
func IsManifestFile(rel string) bool {
	for _, f := range ManifestFiles {
		if rel == f.Name {
			return true
		}
	}
	return false
}

// FormatFromPath infers the format from a file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".toml":
		return FormatTOML, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnknownFormat, path)
	}
}

// Document is the on-disk manifest shape. Unknown fields are ignored so
// newer manifests remain readable.
type Document struct {
	Name         string            `json:"name" yaml:"name" toml:"name" jsonschema:"minLength=1,description=Plugin identifier"`
	Version      string            `json:"version" yaml:"version" toml:"version" jsonschema:"minLength=1,description=Semantic version (major.minor.patch[-prerelease])"`
	Description  string            `json:"description,omitempty" yaml:"description,omitempty" toml:"description,omitempty" jsonschema:"description=Short description"`
	Author       string            `json:"author,omitempty" yaml:"author,omitempty" toml:"author,omitempty" jsonschema:"description=Plugin author"`
	Dependencies map[string]string `json:"dependencies,omitempty" yaml:"dependencies,omitempty" toml:"dependencies,omitempty" jsonschema:"description=Plugin name to version constraint"`
}

// ParseDocument validates data against the manifest schema and decodes it.
func ParseDocument(data []byte, format Format) (*Document, error) {
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, ErrEmptyManifest
	}

	generic, err := decodeGeneric(data, format)
	if err != nil {
		return nil, err
	}
	if err := validateValue(generic); err != nil {
		return nil, err
	}

	var doc Document
	switch format {
	case FormatJSON:
		err = json.Unmarshal(data, &doc)
	case FormatYAML:
		err = yaml.Unmarshal(data, &doc)
	case FormatTOML:
		err = toml.Unmarshal(data, &doc)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownFormat, format)
	}
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %w", format, err)
	}
	return &doc, nil
}

// Parse decodes, schema-validates and converts a manifest.
func Parse(data []byte, format Format) (*Manifest, error) {
	doc, err := ParseDocument(data, format)
	if err != nil {
		return nil, err
	}
	return FromDocument(doc)
}

// Marshal encodes a manifest document in the given format.
func Marshal(doc *Document, format Format) ([]byte, error) {
	switch format {
	case FormatJSON:
		data, err := json.MarshalIndent(doc, "", "  ")
		if err != nil {
			return nil, err
		}
		return append(data, '\n'), nil
	case FormatYAML:
		return yaml.Marshal(doc)
	case FormatTOML:
		return toml.Marshal(doc)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownFormat, format)
	}
}

// decodeGeneric decodes data into JSON-compatible values for schema validation.
func decodeGeneric(data []byte, format Format) (any, error) {
	var v any
	switch format {
	case FormatJSON:
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, fmt.Errorf("invalid JSON: %w", err)
		}
	case FormatYAML:
		if err := yaml.Unmarshal(data, &v); err != nil {
			return nil, fmt.Errorf("invalid YAML: %w", err)
		}
	case FormatTOML:
		var m map[string]any
		if err := toml.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("invalid TOML: %w", err)
		}
		v = m
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownFormat, format)
	}
	return convertToJSONTypes(v), nil
}
