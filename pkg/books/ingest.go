package books

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/shelfwatch/shelfwatch/pkg/csvimport"
	"github.com/shelfwatch/shelfwatch/pkg/errcodes"
	"github.com/shelfwatch/shelfwatch/pkg/fileutils"
	"github.com/shelfwatch/shelfwatch/pkg/locations"
	"github.com/shelfwatch/shelfwatch/pkg/mediafile"
	"github.com/shelfwatch/shelfwatch/pkg/models"
	"github.com/shelfwatch/shelfwatch/pkg/parsers"
	"github.com/uptrace/bun"
)

// Ingester brings book files and spreadsheets into the library. Files are
// stored under <library>/<book id>/ with the cover extracted next to them.
type Ingester struct {
	books       *Service
	locations   *locations.Service
	parsers     *parsers.Registry
	libraryPath string
}

func NewIngester(db *bun.DB, registry *parsers.Registry, libraryPath string) *Ingester {
	return &Ingester{
		books:       NewService(db),
		locations:   locations.NewService(db),
		parsers:     registry,
		libraryPath: libraryPath,
	}
}

type IngestResult struct {
	Book    *models.Book     `json:"book"`
	File    *models.FileInfo `json:"file"`
	Created bool             `json:"created"`
	// Filled lists the book fields the file's metadata filled in.
	Filled []string `json:"filled"`
}

// Supports reports whether path is a book file the ingester can parse.
func (in *Ingester) Supports(path string) bool {
	return in.parsers.IsSupported(path)
}

// AddFile stores an uploaded file as part of an existing book and fills the
// book's empty fields from it.
func (in *Ingester) AddFile(ctx context.Context, bookID int, src io.Reader, originalName string) (*IngestResult, error) {
	if _, err := in.books.RetrieveBook(ctx, RetrieveBookOptions{ID: &bookID}); err != nil {
		return nil, err
	}
	ext := in.parsers.Extension(originalName)
	if _, err := in.parsers.ForExtension(ext); err != nil {
		return nil, err
	}

	dir := fileutils.BookDir(in.libraryPath, bookID)
	stored, err := fileutils.StoreFile(src, dir, fileutils.StoredFileName(originalName))
	if err != nil {
		return nil, err
	}

	exists, err := in.books.FileExists(ctx, stored.SHA256)
	if err != nil {
		os.Remove(stored.Path)
		return nil, err
	}
	if exists {
		os.Remove(stored.Path)
		return nil, errcodes.Conflict(fmt.Sprintf("%q is already in the library.", filepath.Base(originalName)))
	}

	md, err := in.parsers.Parse(ctx, stored.Path)
	if err != nil {
		os.Remove(stored.Path)
		return nil, err
	}

	result, err := in.attach(ctx, bookID, stored, filepath.Base(originalName), ext, md)
	if err != nil {
		os.Remove(stored.Path)
		return nil, err
	}
	return result, nil
}

// ImportFile copies the file at path into the library. A book with the
// same title and primary author, or the same ISBN-13, receives the file;
// otherwise a new book is created from the file's metadata. A file whose
// content is already stored is rejected with a conflict.
func (in *Ingester) ImportFile(ctx context.Context, path string) (*IngestResult, error) {
	ext := in.parsers.Extension(path)
	if _, err := in.parsers.ForExtension(ext); err != nil {
		return nil, err
	}

	sum, err := fileutils.HashFile(path)
	if err != nil {
		return nil, err
	}
	exists, err := in.books.FileExists(ctx, sum)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, errcodes.Conflict(fmt.Sprintf("%q is already in the library.", filepath.Base(path)))
	}

	md, err := in.parsers.Parse(ctx, path)
	if err != nil {
		return nil, err
	}

	book, created, err := in.findOrCreateBook(ctx, md)
	if err != nil {
		return nil, err
	}

	name := fileutils.GenerateLibraryFileName(fileutils.LibraryNameOptions{
		AuthorNames:  md.Authors,
		Title:        md.Title,
		SeriesNumber: md.SeriesNumber,
	}, ext)
	stored, err := fileutils.CopyIntoLibrary(path, fileutils.BookDir(in.libraryPath, book.ID), name)
	if err != nil {
		in.discard(ctx, book, created)
		return nil, err
	}

	result, err := in.attach(ctx, book.ID, stored, filepath.Base(path), ext, md)
	if err != nil {
		os.Remove(stored.Path)
		in.discard(ctx, book, created)
		return nil, err
	}
	result.Created = created
	return result, nil
}

// discard deletes a book created for a file that then failed to import.
func (in *Ingester) discard(ctx context.Context, book *models.Book, created bool) {
	if !created {
		return
	}
	if _, err := in.books.DeleteBook(ctx, book.ID); err != nil {
		logger.FromContext(ctx).Err(err).Error("failed to remove book after failed import", logger.Data{"book_id": book.ID})
	}
	_ = fileutils.RemoveBookDir(in.libraryPath, fileutils.BookDir(in.libraryPath, book.ID))
}

func (in *Ingester) findOrCreateBook(ctx context.Context, md *mediafile.ParsedMetadata) (*models.Book, bool, error) {
	if md.ISBN13 != "" {
		isbn := md.ISBN13
		book, err := in.books.RetrieveBook(ctx, RetrieveBookOptions{ISBN13: &isbn})
		if err == nil {
			return book, false, nil
		}
		if !errcodes.IsNotFound(err) {
			return nil, false, err
		}
	}

	dup, err := in.books.DuplicateOf(ctx, md.Title, md.Authors)
	if err != nil {
		return nil, false, err
	}
	if dup != nil {
		return dup, false, nil
	}

	book, opts := BookFromMetadata(md)
	if err := in.books.CreateBook(ctx, book, opts); err != nil {
		return nil, false, err
	}
	return book, true, nil
}

func (in *Ingester) attach(ctx context.Context, bookID int, stored *fileutils.StoredFile, originalName, ext string, md *mediafile.ParsedMetadata) (*IngestResult, error) {
	log := logger.FromContext(ctx)

	now := time.Now()
	file := &models.FileInfo{
		BookID:       bookID,
		Path:         stored.Path,
		OriginalName: originalName,
		Extension:    strings.TrimPrefix(ext, "."),
		MimeType:     md.MimeType,
		SizeBytes:    stored.SizeBytes,
		SHA256:       stored.SHA256,
		ParsedAt:     &now,
	}
	if file.MimeType == "" {
		file.MimeType = "application/octet-stream"
	}
	if err := in.books.CreateFile(ctx, file); err != nil {
		return nil, err
	}

	filled, err := in.books.FillEmptyFields(ctx, bookID, md)
	if err != nil {
		return nil, err
	}

	book, err := in.books.RetrieveBook(ctx, RetrieveBookOptions{ID: &bookID})
	if err != nil {
		return nil, err
	}

	if len(md.CoverData) > 0 {
		coverPath, err := fileutils.WriteCover(filepath.Dir(stored.Path), md.CoverData, md.CoverExtension(), false)
		if err != nil {
			log.Warn("failed to write cover", logger.Data{"book_id": bookID, "error": err.Error()})
		} else if coverPath != "" && (book.CoverPath == nil || *book.CoverPath != coverPath) {
			if err := in.books.SetCoverPath(ctx, bookID, coverPath); err != nil {
				return nil, err
			}
			book.CoverPath = &coverPath
		}
	}

	return &IngestResult{Book: book, File: file, Filled: filled}, nil
}

type CSVImportResult struct {
	Created []int           `json:"created"`
	Skipped []CSVSkippedRow `json:"skipped"`
	Errors  []CSVRowError   `json:"errors"`
}

type CSVSkippedRow struct {
	Line   int    `json:"line"`
	BookID int    `json:"book_id"`
	Reason string `json:"reason"`
}

type CSVRowError struct {
	Line    int    `json:"line"`
	Message string `json:"message"`
}

// ImportCSV creates one book per spreadsheet row. Rows naming a book that is
// already in the library are skipped; bad rows are reported without stopping
// the import.
func (in *Ingester) ImportCSV(ctx context.Context, r io.Reader) (*CSVImportResult, error) {
	parsed, err := csvimport.Parse(r)
	if err != nil {
		return nil, err
	}

	result := &CSVImportResult{
		Created: []int{},
		Skipped: []CSVSkippedRow{},
		Errors:  []CSVRowError{},
	}
	for _, rowErr := range parsed.Errors {
		result.Errors = append(result.Errors, CSVRowError{Line: rowErr.Line, Message: rowErr.Err.Error()})
	}

	for _, row := range parsed.Rows {
		md := row.Metadata

		dup, err := in.books.DuplicateOf(ctx, md.Title, md.Authors)
		if err != nil {
			return nil, err
		}
		if dup != nil {
			result.Skipped = append(result.Skipped, CSVSkippedRow{Line: row.Line, BookID: dup.ID, Reason: "duplicate"})
			continue
		}

		book, opts := BookFromMetadata(md)
		if md.Location != "" {
			location, err := in.locations.FindOrCreateLocation(ctx, md.Location)
			if err != nil {
				return nil, err
			}
			book.LocationID = &location.ID
		}

		err = in.books.CreateBook(ctx, book, opts)
		if errcodes.IsConflict(err) {
			result.Skipped = append(result.Skipped, CSVSkippedRow{Line: row.Line, Reason: errorMessage(err)})
			continue
		}
		if err != nil {
			var e *errcodes.Error
			if errors.As(err, &e) {
				result.Errors = append(result.Errors, CSVRowError{Line: row.Line, Message: e.Message})
				continue
			}
			return nil, err
		}
		result.Created = append(result.Created, book.ID)
	}

	return result, nil
}

func errorMessage(err error) string {
	var e *errcodes.Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}
