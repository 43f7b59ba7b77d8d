package books

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/shelfwatch/shelfwatch/internal/testgen"
	"github.com/shelfwatch/shelfwatch/pkg/categories"
	"github.com/shelfwatch/shelfwatch/pkg/errcodes"
	"github.com/shelfwatch/shelfwatch/pkg/mediafile"
	"github.com/shelfwatch/shelfwatch/pkg/migrations"
	"github.com/shelfwatch/shelfwatch/pkg/models"
	"github.com/shelfwatch/shelfwatch/pkg/parsers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

func setupTestDB(t *testing.T) *bun.DB {
	t.Helper()

	sqldb, err := sql.Open(sqliteshim.ShimName, ":memory:")
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())
	_, err = db.Exec("PRAGMA foreign_keys = ON")
	require.NoError(t, err)

	_, err = migrations.BringUpToDate(context.Background(), db)
	require.NoError(t, err)

	t.Cleanup(func() {
		db.Close()
	})

	return db
}

func createBook(t *testing.T, svc *Service, title string, opts CreateBookOptions) *models.Book {
	t.Helper()
	book := &models.Book{Title: title}
	require.NoError(t, svc.CreateBook(context.Background(), book, opts))
	return book
}

func httpCode(err error) int {
	var e *errcodes.Error
	if errors.As(err, &e) {
		return e.HTTPCode
	}
	return 0
}

func bookIDs(books []*models.Book) []int {
	ids := make([]int, 0, len(books))
	for _, b := range books {
		ids = append(ids, b.ID)
	}
	return ids
}

func TestCreateBook_Defaults(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)
	ctx := context.Background()
	svc := NewService(db)

	book := createBook(t, svc, "  The Hobbit ", CreateBookOptions{
		Authors: []string{"J.R.R. Tolkien"},
		Series:  "Middle-earth",
		Tags:    []string{"classic", "Classic"},
	})

	assert.Equal(t, "The Hobbit", book.Title)
	assert.Equal(t, "Hobbit, The", book.SortTitle)
	assert.Equal(t, models.ReadStatusUnread, book.ReadStatus)
	assert.Equal(t, models.DataSourceManual, book.MetadataSource)

	got, err := svc.RetrieveBook(ctx, RetrieveBookOptions{ID: &book.ID})
	require.NoError(t, err)
	assert.Equal(t, []string{"J.R.R. Tolkien"}, got.AuthorNames())
	require.NotNil(t, got.Series)
	assert.Equal(t, "Middle-earth", got.Series.Name)
	assert.Len(t, got.TagNames(), 1)
}

func TestCreateBook_EmptyTitle(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)

	err := NewService(db).CreateBook(context.Background(), &models.Book{Title: "   "}, CreateBookOptions{})
	require.Error(t, err)
	assert.Equal(t, 422, httpCode(err))
}

func TestCreateBook_Duplicate(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)
	ctx := context.Background()
	svc := NewService(db)

	createBook(t, svc, "Dune", CreateBookOptions{Authors: []string{"Frank Herbert"}})

	err := svc.CreateBook(ctx, &models.Book{Title: "DUNE"}, CreateBookOptions{Authors: []string{"frank herbert"}})
	require.Error(t, err)
	assert.True(t, errcodes.IsConflict(err))

	// Same title by someone else is a different book.
	other := &models.Book{Title: "Dune"}
	require.NoError(t, svc.CreateBook(ctx, other, CreateBookOptions{Authors: []string{"Brian Herbert"}}))

	dup, err := svc.DuplicateOf(ctx, "dune", []string{"Frank Herbert"})
	require.NoError(t, err)
	require.NotNil(t, dup)
	assert.NotEqual(t, other.ID, dup.ID)

	dup, err = svc.DuplicateOf(ctx, "Dune", nil)
	require.NoError(t, err)
	assert.Nil(t, dup)
}

func TestCreateBook_ISBN(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)
	ctx := context.Background()
	svc := NewService(db)

	isbn := "978-0-316-12908-4"
	book := &models.Book{Title: "Leviathan Wakes", ISBN13: &isbn}
	require.NoError(t, svc.CreateBook(ctx, book, CreateBookOptions{}))
	require.NotNil(t, book.ISBN13)
	assert.Equal(t, "9780316129084", *book.ISBN13)

	again := "9780316129084"
	err := svc.CreateBook(ctx, &models.Book{Title: "Another Title", ISBN13: &again}, CreateBookOptions{})
	assert.True(t, errcodes.IsConflict(err))

	bad := "9780316129085"
	err = svc.CreateBook(ctx, &models.Book{Title: "Bad ISBN", ISBN13: &bad}, CreateBookOptions{})
	require.Error(t, err)
	assert.Equal(t, 422, httpCode(err))

	found, err := svc.RetrieveBook(ctx, RetrieveBookOptions{ISBN13: &again})
	require.NoError(t, err)
	assert.Equal(t, book.ID, found.ID)
}

func TestRetrieveBook_NotFound(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)

	id := 999
	_, err := NewService(db).RetrieveBook(context.Background(), RetrieveBookOptions{ID: &id})
	assert.True(t, errcodes.IsNotFound(err))
}

func TestListBooks_Filters(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)
	ctx := context.Background()
	svc := NewService(db)

	fantasy := createBook(t, svc, "The Hobbit", CreateBookOptions{
		Authors:    []string{"J.R.R. Tolkien"},
		Categories: []string{"Fantasy"},
	})
	fiction := createBook(t, svc, "Beloved", CreateBookOptions{
		Authors:    []string{"Toni Morrison"},
		Categories: []string{"Fiction"},
	})
	poetry := createBook(t, svc, "Ariel", CreateBookOptions{
		Authors:    []string{"Sylvia Plath"},
		Categories: []string{"Poetry"},
		Tags:       []string{"favourite"},
	})

	categoryService := categories.NewService(db)
	parent, err := categoryService.FindOrCreateCategory(ctx, "Fiction")
	require.NoError(t, err)
	child, err := categoryService.FindOrCreateCategory(ctx, "Fantasy")
	require.NoError(t, err)
	_, err = db.NewUpdate().
		Model((*models.Category)(nil)).
		Set("parent_id = ?", parent.ID).
		Where("id = ?", child.ID).
		Exec(ctx)
	require.NoError(t, err)

	t.Run("all sorted by sort title", func(t *testing.T) {
		books, total, err := svc.ListBooksWithTotal(ctx, ListBooksOptions{})
		require.NoError(t, err)
		assert.Equal(t, 3, total)
		assert.Equal(t, []int{poetry.ID, fiction.ID, fantasy.ID}, bookIDs(books))
	})

	t.Run("parent category includes children", func(t *testing.T) {
		books, err := svc.ListBooks(ctx, ListBooksOptions{CategoryID: &parent.ID})
		require.NoError(t, err)
		assert.ElementsMatch(t, []int{fantasy.ID, fiction.ID}, bookIDs(books))
	})

	t.Run("child category", func(t *testing.T) {
		books, err := svc.ListBooks(ctx, ListBooksOptions{CategoryID: &child.ID})
		require.NoError(t, err)
		assert.Equal(t, []int{fantasy.ID}, bookIDs(books))
	})

	t.Run("tag", func(t *testing.T) {
		got, err := svc.RetrieveBook(ctx, RetrieveBookOptions{ID: &poetry.ID})
		require.NoError(t, err)
		require.Len(t, got.Tags, 1)
		books, err := svc.ListBooks(ctx, ListBooksOptions{TagID: &got.Tags[0].TagID})
		require.NoError(t, err)
		assert.Equal(t, []int{poetry.ID}, bookIDs(books))
	})

	t.Run("search", func(t *testing.T) {
		q := "morr"
		books, err := svc.ListBooks(ctx, ListBooksOptions{Search: &q})
		require.NoError(t, err)
		assert.Equal(t, []int{fiction.ID}, bookIDs(books))
	})

	t.Run("read status with pagination", func(t *testing.T) {
		status := models.ReadStatusUnread
		limit, offset := 2, 2
		books, total, err := svc.ListBooksWithTotal(ctx, ListBooksOptions{ReadStatus: &status, Limit: &limit, Offset: &offset})
		require.NoError(t, err)
		assert.Equal(t, 3, total)
		assert.Equal(t, []int{fantasy.ID}, bookIDs(books))
	})
}

func TestUpdateBook(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)
	ctx := context.Background()
	svc := NewService(db)

	book := createBook(t, svc, "A Game of Thrones", CreateBookOptions{Authors: []string{"George R.R. Martin"}})

	book.Title = "The Game of Thrones"
	series := "A Song of Ice and Fire"
	require.NoError(t, svc.UpdateBook(ctx, book, UpdateBookOptions{
		Columns: []string{"title"},
		Series:  &series,
		Tags:    []string{"epic"},
	}))

	got, err := svc.RetrieveBook(ctx, RetrieveBookOptions{ID: &book.ID})
	require.NoError(t, err)
	assert.Equal(t, "Game of Thrones, The", got.SortTitle)
	require.NotNil(t, got.Series)
	assert.Equal(t, series, got.Series.Name)
	assert.Equal(t, []string{"epic"}, got.TagNames())
	assert.Equal(t, []string{"George R.R. Martin"}, got.AuthorNames())

	detach := ""
	require.NoError(t, svc.UpdateBook(ctx, got, UpdateBookOptions{Series: &detach}))
	got, err = svc.RetrieveBook(ctx, RetrieveBookOptions{ID: &book.ID})
	require.NoError(t, err)
	assert.Nil(t, got.SeriesID)

	q := "game"
	books, err := svc.ListBooks(ctx, ListBooksOptions{Search: &q})
	require.NoError(t, err)
	assert.Len(t, books, 1)
}

func TestUpdateBook_NotFound(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)

	err := NewService(db).UpdateBook(context.Background(), &models.Book{ID: 999, Title: "Ghost"}, UpdateBookOptions{Columns: []string{"title"}})
	assert.True(t, errcodes.IsNotFound(err))
}

func TestDeleteBook(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)
	ctx := context.Background()
	svc := NewService(db)

	book := createBook(t, svc, "Kindred", CreateBookOptions{Authors: []string{"Octavia E. Butler"}})

	deleted, err := svc.DeleteBook(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, book.ID, deleted.ID)

	_, err = svc.RetrieveBook(ctx, RetrieveBookOptions{ID: &book.ID})
	assert.True(t, errcodes.IsNotFound(err))

	q := "kindred"
	books, err := svc.ListBooks(ctx, ListBooksOptions{Search: &q})
	require.NoError(t, err)
	assert.Empty(t, books)

	_, err = svc.DeleteBook(ctx, book.ID)
	assert.True(t, errcodes.IsNotFound(err))
}

func TestAddAuthors(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)
	ctx := context.Background()
	svc := NewService(db)

	book := createBook(t, svc, "Good Omens", CreateBookOptions{Authors: []string{"Terry Pratchett"}})

	require.NoError(t, svc.AddAuthors(ctx, book.ID, []string{"Neil Gaiman", "Terry Pratchett", " "}))

	got, err := svc.RetrieveBook(ctx, RetrieveBookOptions{ID: &book.ID})
	require.NoError(t, err)
	assert.Equal(t, []string{"Terry Pratchett", "Neil Gaiman"}, got.AuthorNames())

	err = svc.AddAuthors(ctx, 999, []string{"Nobody"})
	assert.True(t, errcodes.IsNotFound(err))
}

func TestSetCategories(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)
	ctx := context.Background()
	svc := NewService(db)

	book := createBook(t, svc, "Solaris", CreateBookOptions{Categories: []string{"Fiction"}})

	require.NoError(t, svc.SetCategories(ctx, book.ID, []string{"Science Fiction", "Classics"}))
	got, err := svc.RetrieveBook(ctx, RetrieveBookOptions{ID: &book.ID})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"Science Fiction", "Classics"}, got.CategoryNames())

	require.NoError(t, svc.SetCategories(ctx, book.ID, nil))
	got, err = svc.RetrieveBook(ctx, RetrieveBookOptions{ID: &book.ID})
	require.NoError(t, err)
	assert.Empty(t, got.CategoryNames())
}

func TestFillEmptyFields(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)
	ctx := context.Background()
	svc := NewService(db)

	description := "Kept as is."
	book := &models.Book{Title: "Piranesi", Description: &description, MetadataSource: models.DataSourceFilepath}
	require.NoError(t, svc.CreateBook(ctx, book, CreateBookOptions{}))

	pages := 272
	filled, err := svc.FillEmptyFields(ctx, book.ID, &mediafile.ParsedMetadata{
		Title:       "Ignored",
		Description: "Replacement",
		Publisher:   "Bloomsbury",
		Authors:     []string{"Susanna Clarke"},
		PageCount:   &pages,
		DataSource:  models.DataSourceOpenLibrary,
	})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"publisher", "page_count", "authors"}, filled)

	got, err := svc.RetrieveBook(ctx, RetrieveBookOptions{ID: &book.ID})
	require.NoError(t, err)
	assert.Equal(t, "Piranesi", got.Title)
	assert.Equal(t, description, *got.Description)
	assert.Equal(t, "Bloomsbury", *got.Publisher)
	assert.Equal(t, 272, *got.PageCount)
	assert.Equal(t, []string{"Susanna Clarke"}, got.AuthorNames())
	assert.Equal(t, models.DataSourceOpenLibrary, got.MetadataSource)

	// Nothing left to fill.
	filled, err = svc.FillEmptyFields(ctx, book.ID, &mediafile.ParsedMetadata{Publisher: "Other"})
	require.NoError(t, err)
	assert.Empty(t, filled)
}

func TestFillEmptyFields_KeepsHigherRankedSource(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)
	ctx := context.Background()
	svc := NewService(db)

	manual := createBook(t, svc, "The Dispossessed", CreateBookOptions{})
	require.Equal(t, models.DataSourceManual, manual.MetadataSource)

	for _, source := range []string{models.DataSourceFilepath, models.DataSourceAmazon, models.DataSourceOllama} {
		filled, err := svc.FillEmptyFields(ctx, manual.ID, &mediafile.ParsedMetadata{
			Publisher:   "Harper & Row",
			Language:    "en",
			Description: "An ambiguous utopia. (" + source + ")",
			DataSource:  source,
		})
		require.NoError(t, err)
		if source == models.DataSourceFilepath {
			assert.NotEmpty(t, filled)
		}
	}
	got, err := svc.RetrieveBook(ctx, RetrieveBookOptions{ID: &manual.ID})
	require.NoError(t, err)
	assert.Equal(t, "Harper & Row", *got.Publisher)
	assert.Equal(t, models.DataSourceManual, got.MetadataSource)

	// A weaker source never downgrades a stronger one.
	parsed := &models.Book{Title: "Always Coming Home", MetadataSource: models.DataSourceFile}
	require.NoError(t, svc.CreateBook(ctx, parsed, CreateBookOptions{}))
	filled, err := svc.FillEmptyFields(ctx, parsed.ID, &mediafile.ParsedMetadata{Publisher: "Harper & Row", DataSource: models.DataSourceOllama})
	require.NoError(t, err)
	assert.Equal(t, []string{"publisher"}, filled)
	got, err = svc.RetrieveBook(ctx, RetrieveBookOptions{ID: &parsed.ID})
	require.NoError(t, err)
	assert.Equal(t, models.DataSourceFile, got.MetadataSource)
}

func TestFillEmptyFields_ISBNOwnedElsewhere(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)
	ctx := context.Background()
	svc := NewService(db)

	isbn := "9780316129084"
	require.NoError(t, svc.CreateBook(ctx, &models.Book{Title: "Leviathan Wakes", ISBN13: &isbn}, CreateBookOptions{}))
	other := createBook(t, svc, "Caliban's War", CreateBookOptions{})

	filled, err := svc.FillEmptyFields(ctx, other.ID, &mediafile.ParsedMetadata{ISBN13: isbn})
	require.NoError(t, err)
	assert.Empty(t, filled)
}

func TestBookFromMetadata(t *testing.T) {
	t.Parallel()

	book, opts := BookFromMetadata(&mediafile.ParsedMetadata{
		Title:        "Guards! Guards!",
		Subtitle:     " ",
		Authors:      []string{"Terry Pratchett"},
		Series:       "Discworld",
		SeriesNumber: testgen.FloatPtr(8),
		ISBN13:       "9780552134637",
		ReadStatus:   models.ReadStatusRead,
		DataSource:   models.DataSourceCSV,
	})

	assert.Equal(t, "Guards! Guards!", book.Title)
	assert.Nil(t, book.Subtitle)
	assert.Equal(t, "9780552134637", *book.ISBN13)
	assert.Equal(t, 8.0, *book.SeriesNumber)
	assert.Equal(t, models.ReadStatusRead, book.ReadStatus)
	assert.Equal(t, models.DataSourceCSV, book.MetadataSource)
	assert.Equal(t, "Discworld", opts.Series)
	assert.Equal(t, []string{"Terry Pratchett"}, opts.Authors)
}

func newTestIngester(t *testing.T, db *bun.DB) (*Ingester, string) {
	t.Helper()
	libraryDir := testgen.TempLibraryDir(t)
	return NewIngester(db, parsers.Default(), libraryDir), libraryDir
}

func TestIngester_ImportFile(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)
	ctx := context.Background()
	ingester, libraryDir := newTestIngester(t, db)

	importDir := testgen.TempDir(t, "import-*")
	path := testgen.GenerateEPUB(t, importDir, "leviathan.epub", testgen.EPUBOptions{
		Title:        "Leviathan Wakes",
		Authors:      []string{"James S. A. Corey"},
		Series:       "The Expanse",
		SeriesNumber: testgen.FloatPtr(1),
		HasCover:     true,
	})

	result, err := ingester.ImportFile(ctx, path)
	require.NoError(t, err)
	assert.True(t, result.Created)
	assert.Equal(t, "Leviathan Wakes", result.Book.Title)
	assert.Equal(t, []string{"James S. A. Corey"}, result.Book.AuthorNames())
	require.NotNil(t, result.Book.Series)
	assert.Equal(t, "The Expanse", result.Book.Series.Name)

	assert.Equal(t, models.FileTypeEPUB, result.File.Extension)
	assert.Equal(t, "leviathan.epub", result.File.OriginalName)
	assert.Equal(t, filepath.Join(libraryDir, "1", "[James S. A. Corey] Leviathan Wakes #1.epub"), result.File.Path)
	assert.True(t, testgen.FileExists(result.File.Path))
	assert.Len(t, result.File.SHA256, 64)

	require.NotNil(t, result.Book.CoverPath)
	assert.True(t, testgen.FileExists(*result.Book.CoverPath))
	assert.True(t, strings.HasPrefix(filepath.Base(*result.Book.CoverPath), "cover."))

	// The source file is copied, not moved.
	assert.True(t, testgen.FileExists(path))

	_, err = ingester.ImportFile(ctx, path)
	assert.True(t, errcodes.IsConflict(err))
}

func TestIngester_ImportFile_AttachesToExistingBook(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)
	ctx := context.Background()
	ingester, _ := newTestIngester(t, db)

	existing := createBook(t, ingester.books, "Leviathan Wakes", CreateBookOptions{Authors: []string{"James S. A. Corey"}})

	importDir := testgen.TempDir(t, "import-*")
	path := testgen.GenerateEPUB(t, importDir, "leviathan.epub", testgen.EPUBOptions{
		Title:       "Leviathan Wakes",
		Authors:     []string{"James S. A. Corey"},
		Description: "Humanity has colonized the solar system.",
	})

	result, err := ingester.ImportFile(ctx, path)
	require.NoError(t, err)
	assert.False(t, result.Created)
	assert.Equal(t, existing.ID, result.Book.ID)
	assert.Contains(t, result.Filled, "description")
	assert.Len(t, result.Book.Files, 1)

	books, err := ingester.books.ListBooks(ctx, ListBooksOptions{})
	require.NoError(t, err)
	assert.Len(t, books, 1)
}

func TestIngester_ImportFile_Unsupported(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)
	ingester, _ := newTestIngester(t, db)

	path := testgen.WriteFile(t, testgen.TempDir(t, "import-*"), "book.mobi", []byte("not really"))
	_, err := ingester.ImportFile(context.Background(), path)
	require.Error(t, err)
	assert.Equal(t, 415, httpCode(err))

	books, err := ingester.books.ListBooks(context.Background(), ListBooksOptions{})
	require.NoError(t, err)
	assert.Empty(t, books)
}

func TestIngester_AddFile(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)
	ctx := context.Background()
	ingester, libraryDir := newTestIngester(t, db)

	book := createBook(t, ingester.books, "Dune", CreateBookOptions{})

	path := testgen.GenerateEPUB(t, testgen.TempDir(t, "upload-*"), "dune.epub", testgen.EPUBOptions{
		Title:     "Dune",
		Authors:   []string{"Frank Herbert"},
		Publisher: "Chilton Books",
		Subjects:  []string{"Science Fiction"},
	})
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	result, err := ingester.AddFile(ctx, book.ID, f, "Dune.EPUB")
	require.NoError(t, err)
	assert.False(t, result.Created)
	assert.ElementsMatch(t, []string{"publisher", "language", "authors", "categories"}, result.Filled)
	assert.Equal(t, []string{"Frank Herbert"}, result.Book.AuthorNames())
	assert.Equal(t, filepath.Join(libraryDir, "1"), filepath.Dir(result.File.Path))
	assert.Equal(t, ".epub", filepath.Ext(result.File.Path))

	// Uploading the same content again is rejected and leaves nothing behind.
	f2, err := os.Open(path)
	require.NoError(t, err)
	defer f2.Close()
	_, err = ingester.AddFile(ctx, book.ID, f2, "copy.epub")
	assert.True(t, errcodes.IsConflict(err))
	entries, err := os.ReadDir(filepath.Join(libraryDir, "1"))
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	_, err = ingester.AddFile(ctx, 999, strings.NewReader("x"), "x.epub")
	assert.True(t, errcodes.IsNotFound(err))
}

func TestIngester_ImportCSV(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)
	ctx := context.Background()
	ingester, _ := newTestIngester(t, db)

	dune := createBook(t, ingester.books, "Dune", CreateBookOptions{Authors: []string{"Frank Herbert"}})

	input := strings.Join([]string{
		"title,author,series,series_number,location,read_status",
		"The Colour of Magic,Terry Pratchett,Discworld,1,Shelf A,read",
		",Nobody,,,,",
		"dune,Frank Herbert,,,,",
	}, "\n")

	result, err := ingester.ImportCSV(ctx, strings.NewReader(input))
	require.NoError(t, err)

	require.Len(t, result.Created, 1)
	require.Len(t, result.Skipped, 1)
	assert.Equal(t, 4, result.Skipped[0].Line)
	assert.Equal(t, dune.ID, result.Skipped[0].BookID)
	assert.Equal(t, "duplicate", result.Skipped[0].Reason)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, 3, result.Errors[0].Line)

	book, err := ingester.books.RetrieveBook(ctx, RetrieveBookOptions{ID: &result.Created[0]})
	require.NoError(t, err)
	assert.Equal(t, "The Colour of Magic", book.Title)
	assert.Equal(t, models.ReadStatusRead, book.ReadStatus)
	assert.Equal(t, models.DataSourceCSV, book.MetadataSource)
	require.NotNil(t, book.Location)
	assert.Equal(t, "Shelf A", book.Location.Name)
	require.NotNil(t, book.Series)
	assert.Equal(t, "Discworld", book.Series.Name)
	assert.Equal(t, 1.0, *book.SeriesNumber)
}
