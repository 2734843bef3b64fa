package lib

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Manifest indexes the headers written by one run
type Manifest struct {
	InputDir  string          `json:"input_dir" toml:"input_dir" yaml:"input_dir"`
	OutputDir string          `json:"output_dir" toml:"output_dir" yaml:"output_dir"`
	Headers   []ManifestEntry `json:"headers" toml:"headers" yaml:"headers"`
}

// ManifestEntry describes a single generated header
type ManifestEntry struct {
	Source    string `json:"source" toml:"source" yaml:"source"`
	Header    string `json:"header" toml:"header" yaml:"header"`
	Namespace string `json:"namespace" toml:"namespace" yaml:"namespace"`
	Symbol    string `json:"symbol" toml:"symbol" yaml:"symbol"`
}

// Manifest formats
const (
	FormatJSON = "json"
	FormatTOML = "toml"
	FormatYAML = "yaml"
)

// NewManifest lists the headers the report says were written
func NewManifest(plan *Plan, report *Report) *Manifest {
	m := &Manifest{
		InputDir:  filepath.ToSlash(plan.InputDir),
		OutputDir: filepath.ToSlash(plan.OutputDir),
		Headers:   []ManifestEntry{},
	}
	if report == nil {
		return m
	}
	for _, e := range report.Written {
		header, err := filepath.Rel(plan.OutputDir, e.Header)
		if err != nil {
			header = e.Header
		}
		m.Headers = append(m.Headers, ManifestEntry{
			Source:    e.Rel,
			Header:    filepath.ToSlash(header),
			Namespace: e.Namespace,
			Symbol:    e.Name + "_str",
		})
	}
	return m
}

// FormatFor picks the manifest format from a file name's extension
func FormatFor(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".toml":
		return FormatTOML
	case ".yaml", ".yml":
		return FormatYAML
	}
	return FormatJSON
}

// EncodeManifest writes the manifest to output in the given format
func EncodeManifest(output io.Writer, m *Manifest, format string) error {
	switch format {
	case FormatTOML:
		return toml.NewEncoder(output).Encode(m)
	case FormatYAML:
		encoder := yaml.NewEncoder(output)
		encoder.SetIndent(2)
		if err := encoder.Encode(m); err != nil {
			return err
		}
		return encoder.Close()
	case FormatJSON, "":
		encoder := json.NewEncoder(output)
		encoder.SetIndent("", "  ")
		return encoder.Encode(m)
	}
	return fmt.Errorf("unsupported manifest format %q", format)
}

// WriteManifest encodes the manifest into filename, creating its directory
func WriteManifest(filename string, m *Manifest) error {
	var buf bytes.Buffer
	if err := EncodeManifest(&buf, m, FormatFor(filename)); err != nil {
		return fmt.Errorf("failed to encode manifest: %w", err)
	}

	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	if err := os.WriteFile(filename, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write manifest %s: %w", filename, err)
	}
	return nil
}
