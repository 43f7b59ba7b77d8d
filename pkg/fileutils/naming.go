package fileutils

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/shelfwatch/shelfwatch/pkg/cleanup"
)

// CoverBaseName is the file name, without extension, every book cover is
// stored under inside its book directory.
const CoverBaseName = "cover"

// LibraryNameOptions contains the data used to name an imported file.
type LibraryNameOptions struct {
	AuthorNames  []string
	Title        string
	SeriesNumber *float64
}

// BookDir returns the directory holding a book's files and cover.
func BookDir(libraryPath string, bookID int) string {
	return filepath.Join(libraryPath, strconv.Itoa(bookID))
}

// GenerateLibraryFileName creates a standardized filename:
// "[Author] Title #Volume.ext". Missing parts are skipped; an empty result
// becomes "Unknown".
func GenerateLibraryFileName(opts LibraryNameOptions, ext string) string {
	var parts []string

	if len(opts.AuthorNames) > 0 && strings.TrimSpace(opts.AuthorNames[0]) != "" {
		parts = append(parts, fmt.Sprintf("[%s]", cleanup.SanitizeFilename(opts.AuthorNames[0])))
	}
	if strings.TrimSpace(opts.Title) != "" {
		parts = append(parts, cleanup.SanitizeFilename(opts.Title))
	}
	if opts.SeriesNumber != nil {
		parts = append(parts, "#"+cleanup.FormatVolume(*opts.SeriesNumber))
	}

	name := strings.Join(parts, " ")
	if name == "" {
		name = "Unknown"
	}

	ext = strings.ToLower(ext)
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return name + ext
}

// StoredFileName sanitizes an uploaded file's original name and lower-cases
// its extension.
func StoredFileName(original string) string {
	original = filepath.Base(original)
	ext := strings.ToLower(filepath.Ext(original))
	return cleanup.SanitizeFilename(strings.TrimSuffix(original, filepath.Ext(original))) + ext
}
