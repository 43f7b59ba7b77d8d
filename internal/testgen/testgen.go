// Package testgen provides utilities for generating book files (EPUB, FB2,
// DOCX, PDF) with configurable metadata for parser, import and upload tests.
package testgen

import (
	"os"
	"path/filepath"
	"testing"
)

// EPUBOptions configures the generated EPUB file.
type EPUBOptions struct {
	Title         string
	Subtitle      string
	Authors       []string
	Series        string
	SeriesNumber  *float64
	Description   string
	Publisher     string
	ISBN          string
	Date          string
	Subjects      []string
	HasCover      bool
	CoverMimeType string // "image/jpeg" or "image/png", defaults to "image/png"
	// EPUB3Collection writes the series as belongs-to-collection instead of
	// calibre meta tags.
	EPUB3Collection bool
	// NoContainer leaves out META-INF/container.xml.
	NoContainer bool
}

// FB2Options configures the generated FictionBook file.
type FB2Options struct {
	Title          string
	Authors        [][3]string // first, middle, last
	Genres         []string
	Annotation     string
	Lang           string
	SequenceName   string
	SequenceNumber string
	Publisher      string
	ISBN           string
	Year           string
	HasCover       bool
}

// DOCXOptions configures the generated Word document.
type DOCXOptions struct {
	Title       string
	Creator     string
	Description string
	Keywords    string
	Created     string
	Pages       int
}

// PDFOptions configures the information dictionary of the generated PDF.
// CreationDate uses the PDF form, e.g. "D:19690301000000".
type PDFOptions struct {
	Title        string
	Author       string
	Subject      string
	Keywords     string
	CreationDate string
	Pages        int
}

// TempDir creates a temporary directory for testing and registers cleanup.
// The directory is automatically removed when the test completes.
func TempDir(t *testing.T, pattern string) string {
	t.Helper()
	dir, err := os.MkdirTemp("", pattern)
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	t.Cleanup(func() {
		os.RemoveAll(dir)
	})
	return dir
}

// TempLibraryDir creates a temporary library directory for testing.
func TempLibraryDir(t *testing.T) string {
	t.Helper()
	return TempDir(t, "testgen-library-*")
}

// WriteFile creates a file with the given content in the specified directory.
// Returns the full path to the created file.
func WriteFile(t *testing.T, dir, name string, content []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, content, 0600); err != nil {
		t.Fatalf("failed to write file %s: %v", path, err)
	}
	return path
}

// FileExists checks if a file exists at the given path.
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// ReadFile reads and returns the contents of a file.
func ReadFile(t *testing.T, path string) []byte {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read file %s: %v", path, err)
	}
	return data
}

// FloatPtr is a helper to create a pointer to a float64.
func FloatPtr(f float64) *float64 {
	return &f
}
