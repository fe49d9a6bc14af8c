package catalog

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed default_catalog.yaml
var defaultCatalog []byte

// Format is the encoding of a catalog source.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// Decode reads an ordered list of entries.
func Decode(r io.Reader, format Format) ([]Entry, error) {
	var entries []Entry
	switch format {
	case FormatYAML:
		dec := yaml.NewDecoder(r)
		dec.KnownFields(true)
		if err := dec.Decode(&entries); err != nil && err != io.EOF {
			return nil, fmt.Errorf("failed to decode yaml catalog: %w", err)
		}
	case FormatJSON:
		dec := json.NewDecoder(r)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&entries); err != nil {
			return nil, fmt.Errorf("failed to decode json catalog: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported catalog format %q", format)
	}
	return entries, nil
}

// LoadFile reads and validates a catalog file; the format follows the extension.
func LoadFile(path string, th Thresholds) (*Catalog, error) {
	format, err := formatFor(path)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog %s: %w", path, err)
	}
	defer f.Close()

	entries, err := Decode(f, format)
	if err != nil {
		return nil, err
	}
	return Load(entries, th)
}

// Default loads the catalog embedded in the binary.
func Default(th Thresholds) (*Catalog, error) {
	entries, err := Decode(bytes.NewReader(defaultCatalog), FormatYAML)
	if err != nil {
		return nil, err
	}
	return Load(entries, th)
}

func formatFor(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("unsupported catalog file extension %q", filepath.Ext(path))
	}
}
