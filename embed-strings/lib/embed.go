package lib

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
)

// Job describes the embedding of one file
type Job struct {
	Source        string // file to read, also printed as provenance
	Target        string // output path before the suffix is appended
	NamespaceHint string // sanitized with NamespaceOf
	NameHint      string // sanitized with IdentifierOf
}

// Embedder reads text files and writes them out as C++ headers
type Embedder struct {
	Suffix   string // appended to Job.Target, DefaultSuffix when empty
	Encoding string // charset of the input files, UTF-8 when empty
}

// NewEmbedder creates an Embedder with the default suffix and encoding
func NewEmbedder() *Embedder {
	return &Embedder{Suffix: DefaultSuffix}
}

// Embed writes the header for a single file using the default settings
func Embed(inputPath, outputPath, namespaceHint, nameHint string) error {
	_, err := NewEmbedder().Embed(Job{
		Source:        inputPath,
		Target:        outputPath,
		NamespaceHint: namespaceHint,
		NameHint:      nameHint,
	})
	return err
}

// HeaderPath returns the path the header for target is written to
func (e *Embedder) HeaderPath(target string) string {
	suffix := e.Suffix
	if suffix == "" {
		suffix = DefaultSuffix
	}
	return target + suffix
}

// Render reads and decodes the job's source and builds its header
func (e *Embedder) Render(job Job) (Header, error) {
	data, err := os.ReadFile(job.Source)
	if err != nil {
		return Header{}, fmt.Errorf("failed to read %s: %w", job.Source, err)
	}

	contents, err := Decode(data, e.Encoding)
	if err != nil {
		return Header{}, fmt.Errorf("failed to decode %s: %w", job.Source, err)
	}

	return Header{
		Source:    job.Source,
		Namespace: NamespaceOf(job.NamespaceHint),
		Name:      IdentifierOf(job.NameHint),
		Contents:  contents,
	}, nil
}

// Embed renders the job and writes the header, replacing any existing file.
// It returns the path of the written header.
func (e *Embedder) Embed(job Job) (string, error) {
	header, err := e.Render(job)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if _, err := header.WriteTo(&buf); err != nil {
		return "", fmt.Errorf("failed to render %s: %w", job.Source, err)
	}

	path := e.HeaderPath(job.Target)
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return "", fmt.Errorf("failed to write file %s: %w", path, err)
	}

	return path, nil
}
