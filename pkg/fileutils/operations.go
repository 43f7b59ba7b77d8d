package fileutils

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// StoredFile describes a file written into the library.
type StoredFile struct {
	Path      string
	SizeBytes int64
	SHA256    string
}

// StoreFile copies src into dir under name, picking a unique name when one is
// taken. The content is hashed while it is written. Partial files are removed
// on failure.
func StoreFile(src io.Reader, dir, name string) (*StoredFile, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.WithStack(err)
	}

	tmp, err := os.CreateTemp(dir, ".upload-*")
	if err != nil {
		return nil, errors.WithStack(err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	hash := sha256.New()
	size, err := io.Copy(io.MultiWriter(tmp, hash), src)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return nil, errors.WithStack(err)
	}

	dst := generateUniqueFilepath(filepath.Join(dir, name))
	if err := os.Rename(tmpPath, dst); err != nil {
		return nil, errors.WithStack(err)
	}

	return &StoredFile{
		Path:      dst,
		SizeBytes: size,
		SHA256:    hex.EncodeToString(hash.Sum(nil)),
	}, nil
}

// CopyIntoLibrary copies the file at src into dir under name. The source is
// left in place.
func CopyIntoLibrary(src, dir, name string) (*StoredFile, error) {
	f, err := os.Open(src)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	defer f.Close()

	return StoreFile(f, dir, name)
}

// HashFile returns the hex sha256 of the file at path.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", errors.WithStack(err)
	}
	defer f.Close()

	hash := sha256.New()
	if _, err := io.Copy(hash, f); err != nil {
		return "", errors.WithStack(err)
	}
	return hex.EncodeToString(hash.Sum(nil)), nil
}

// WriteCover saves cover data as cover<ext> in dir, replacing an older cover
// with a different extension. An existing cover is kept unless overwrite is
// set, so a cover the user placed by hand survives re-parsing.
func WriteCover(dir string, data []byte, ext string, overwrite bool) (string, error) {
	if len(data) == 0 || ext == "" {
		return "", nil
	}
	if existing := CoverExistsWithBaseName(dir, CoverBaseName); existing != "" {
		if !overwrite {
			return existing, nil
		}
		if err := os.Remove(existing); err != nil && !os.IsNotExist(err) {
			return "", errors.WithStack(err)
		}
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", errors.WithStack(err)
	}
	path := filepath.Join(dir, CoverBaseName+ext)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", errors.WithStack(err)
	}
	return path, nil
}

// RemoveBookDir deletes a book directory. Only paths inside libraryPath are
// removed.
func RemoveBookDir(libraryPath, dir string) error {
	rel, err := filepath.Rel(libraryPath, dir)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return errors.Errorf("refusing to remove %s outside of %s", dir, libraryPath)
	}
	return errors.WithStack(os.RemoveAll(dir))
}

// generateUniqueFilepath creates a unique filepath by appending a number if needed.
func generateUniqueFilepath(path string) string {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return path
	}

	dir := filepath.Dir(path)
	ext := filepath.Ext(path)
	base := filepath.Base(path)
	nameWithoutExt := base[:len(base)-len(ext)]

	for i := 1; i < 1000; i++ {
		newName := fmt.Sprintf("%s (%d)%s", nameWithoutExt, i, ext)
		newPath := filepath.Join(dir, newName)
		if _, err := os.Stat(newPath); os.IsNotExist(err) {
			return newPath
		}
	}

	// Fallback - this should rarely happen
	return path
}

// CoverImageExtensions contains all supported image extensions for cover files.
var CoverImageExtensions = []string{".jpg", ".jpeg", ".png", ".webp", ".gif", ".bmp"}

// CoverExistsWithBaseName checks if any cover file exists with the given base name,
// regardless of image extension. This lets a user-provided cover.png win over
// an extracted cover.jpg.
//
// Returns the path to the existing cover file if found, or empty string if no cover exists.
func CoverExistsWithBaseName(dir, baseName string) string {
	for _, ext := range CoverImageExtensions {
		coverPath := filepath.Join(dir, baseName+ext)
		if _, err := os.Stat(coverPath); err == nil {
			return coverPath
		}
	}
	return ""
}
