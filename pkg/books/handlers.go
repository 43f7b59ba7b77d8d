package books

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/shelfwatch/shelfwatch/pkg/errcodes"
	"github.com/shelfwatch/shelfwatch/pkg/fileutils"
	"github.com/shelfwatch/shelfwatch/pkg/models"
)

type handler struct {
	bookService *Service
	ingester    *Ingester
	libraryPath string
}

func (h *handler) list(c echo.Context) error {
	ctx := c.Request().Context()

	params := ListBooksQuery{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	books, total, err := h.bookService.ListBooksWithTotal(ctx, ListBooksOptions{
		Limit:      &params.Limit,
		Offset:     &params.Offset,
		SeriesID:   params.SeriesID,
		AuthorID:   params.AuthorID,
		CategoryID: params.CategoryID,
		TagID:      params.TagID,
		LocationID: params.LocationID,
		ReadStatus: params.ReadStatus,
		Search:     params.Search,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	resp := struct {
		Books []*models.Book `json:"books"`
		Total int            `json:"total"`
	}{books, total}

	return errors.WithStack(c.JSON(http.StatusOK, resp))
}

func (h *handler) retrieve(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Book")
	}

	book, err := h.bookService.RetrieveBook(ctx, RetrieveBookOptions{ID: &id})
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, book))
}

func (h *handler) create(c echo.Context) error {
	ctx := c.Request().Context()

	params := CreateBookPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	book := &models.Book{
		Title:          params.Title,
		Subtitle:       emptyToNil(params.Subtitle),
		Description:    emptyToNil(params.Description),
		ISBN10:         emptyToNil(params.ISBN10),
		ISBN13:         emptyToNil(params.ISBN13),
		Publisher:      emptyToNil(params.Publisher),
		Language:       emptyToNil(params.Language),
		PageCount:      params.PageCount,
		SeriesNumber:   params.SeriesNumber,
		LocationID:     params.LocationID,
		Rating:         params.Rating,
		ReadStatus:     params.ReadStatus,
		Owned:          params.Owned,
		MetadataSource: models.DataSourceManual,
	}
	if params.ReleaseDate != nil && *params.ReleaseDate != "" {
		t, err := time.Parse("2006-01-02", *params.ReleaseDate)
		if err != nil {
			return errcodes.ValidationError(`"release_date" should be in the format of YYYY-MM-DD`)
		}
		book.ReleaseDate = &t
	}

	opts := CreateBookOptions{
		Authors:    params.Authors,
		Categories: params.Categories,
		Tags:       params.Tags,
	}
	if params.Series != nil {
		opts.Series = *params.Series
	}

	if err := h.bookService.CreateBook(ctx, book, opts); err != nil {
		return errors.WithStack(err)
	}

	book, err := h.bookService.RetrieveBook(ctx, RetrieveBookOptions{ID: &book.ID})
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusCreated, book))
}

func (h *handler) update(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Book")
	}

	params := UpdateBookPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	book, err := h.bookService.RetrieveBook(ctx, RetrieveBookOptions{ID: &id})
	if err != nil {
		return errors.WithStack(err)
	}

	// Keep track of what's been changed.
	opts := UpdateBookOptions{Columns: []string{}}

	if params.Title != nil && *params.Title != book.Title {
		book.Title = *params.Title
		opts.Columns = append(opts.Columns, "title")
	}
	setText := func(column string, dst **string, value *string) {
		if value == nil {
			return
		}
		*dst = emptyToNil(value)
		opts.Columns = append(opts.Columns, column)
	}
	setText("subtitle", &book.Subtitle, params.Subtitle)
	setText("description", &book.Description, params.Description)
	setText("isbn10", &book.ISBN10, params.ISBN10)
	setText("isbn13", &book.ISBN13, params.ISBN13)
	setText("publisher", &book.Publisher, params.Publisher)
	setText("language", &book.Language, params.Language)

	if params.PageCount != nil {
		book.PageCount = params.PageCount
		opts.Columns = append(opts.Columns, "page_count")
	}
	if params.ReleaseDate != nil {
		book.ReleaseDate = nil
		if *params.ReleaseDate != "" {
			t, err := time.Parse("2006-01-02", *params.ReleaseDate)
			if err != nil {
				return errcodes.ValidationError(`"release_date" should be in the format of YYYY-MM-DD`)
			}
			book.ReleaseDate = &t
		}
		opts.Columns = append(opts.Columns, "release_date")
	}
	if params.SeriesNumber != nil {
		book.SeriesNumber = params.SeriesNumber
		opts.Columns = append(opts.Columns, "series_number")
	}
	if params.LocationID != nil {
		// 0 removes the book from its location.
		book.LocationID = params.LocationID
		if *params.LocationID == 0 {
			book.LocationID = nil
		}
		opts.Columns = append(opts.Columns, "location_id")
	}
	if params.Rating != nil {
		book.Rating = params.Rating
		opts.Columns = append(opts.Columns, "rating")
	}
	if params.ReadStatus != nil && *params.ReadStatus != book.ReadStatus {
		book.ReadStatus = *params.ReadStatus
		opts.Columns = append(opts.Columns, "read_status")
	}
	if params.Owned != nil && *params.Owned != book.Owned {
		book.Owned = *params.Owned
		opts.Columns = append(opts.Columns, "owned")
	}
	if params.Series != nil {
		opts.Series = params.Series
	}
	if params.Authors != nil {
		opts.Authors = *params.Authors
	}
	if params.Categories != nil {
		opts.Categories = *params.Categories
	}
	if params.Tags != nil {
		opts.Tags = *params.Tags
	}

	if err := h.bookService.UpdateBook(ctx, book, opts); err != nil {
		return errors.WithStack(err)
	}

	book, err = h.bookService.RetrieveBook(ctx, RetrieveBookOptions{ID: &id})
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, book))
}

func (h *handler) delete(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Book")
	}

	if _, err := h.bookService.DeleteBook(ctx, id); err != nil {
		return errors.WithStack(err)
	}

	dir := fileutils.BookDir(h.libraryPath, id)
	if _, err := os.Stat(dir); err == nil {
		if err := fileutils.RemoveBookDir(h.libraryPath, dir); err != nil {
			logger.FromContext(c.Request().Context()).Err(err).Error("failed to remove book directory", logger.Data{"book_id": id})
		}
	}

	return errors.WithStack(c.NoContent(http.StatusNoContent))
}

func (h *handler) addAuthors(c echo.Context) error {
	return h.setNames(c, h.bookService.AddAuthors)
}

func (h *handler) setTags(c echo.Context) error {
	return h.setNames(c, h.bookService.SetTags)
}

func (h *handler) setCategories(c echo.Context) error {
	return h.setNames(c, h.bookService.SetCategories)
}

func (h *handler) setNames(c echo.Context, apply func(ctx context.Context, bookID int, names []string) error) error {
	ctx := c.Request().Context()
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Book")
	}

	params := NamesPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	if err := apply(ctx, id, params.Names); err != nil {
		return errors.WithStack(err)
	}

	book, err := h.bookService.RetrieveBook(ctx, RetrieveBookOptions{ID: &id})
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, book))
}

func (h *handler) cover(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Book")
	}

	book, err := h.bookService.RetrieveBook(ctx, RetrieveBookOptions{ID: &id})
	if err != nil {
		return errors.WithStack(err)
	}

	coverPath := ""
	if book.CoverPath != nil {
		coverPath = *book.CoverPath
	}
	if coverPath == "" {
		coverPath = fileutils.CoverExistsWithBaseName(fileutils.BookDir(h.libraryPath, id), fileutils.CoverBaseName)
	}
	if coverPath == "" {
		return errcodes.NotFound("Cover")
	}
	if _, err := os.Stat(coverPath); err != nil {
		return errcodes.NotFound("Cover")
	}

	return errors.WithStack(c.File(coverPath))
}

func (h *handler) uploadFile(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Book")
	}

	params := UploadPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}
	header, ok := params.FormFiles["file"]
	if !ok || header == nil {
		return errcodes.ValidationError(`"file" is required`)
	}

	src, err := header.Open()
	if err != nil {
		return errors.WithStack(err)
	}
	defer src.Close()

	result, err := h.ingester.AddFile(ctx, id, src, header.Filename)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusCreated, result))
}

func (h *handler) downloadFile(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("File")
	}

	file, err := h.bookService.RetrieveFile(ctx, RetrieveFileOptions{ID: &id})
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.Attachment(file.Path, file.OriginalName))
}

func (h *handler) importCSV(c echo.Context) error {
	ctx := c.Request().Context()

	params := UploadPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}
	header, ok := params.FormFiles["file"]
	if !ok || header == nil {
		return errcodes.ValidationError(`"file" is required`)
	}
	if !strings.EqualFold(strings.TrimPrefix(filepath.Ext(header.Filename), "."), models.FileTypeCSV) {
		return errcodes.UnsupportedFormat(filepath.Ext(header.Filename))
	}

	src, err := header.Open()
	if err != nil {
		return errors.WithStack(err)
	}
	defer src.Close()

	result, err := h.ingester.ImportCSV(ctx, src)
	if err != nil {
		return errors.WithStack(err)
	}

	logger.FromContext(c.Request().Context()).Info("imported csv", logger.Data{
		"created": len(result.Created),
		"skipped": len(result.Skipped),
		"errors":  len(result.Errors),
	})

	return errors.WithStack(c.JSON(http.StatusOK, result))
}

func emptyToNil(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
