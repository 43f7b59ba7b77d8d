package authors

import (
	"context"
	"database/sql"
	"testing"

	"github.com/shelfwatch/shelfwatch/pkg/errcodes"
	"github.com/shelfwatch/shelfwatch/pkg/migrations"
	"github.com/shelfwatch/shelfwatch/pkg/models"
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
	// Each connection to :memory: is its own database.
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

func insertBook(t *testing.T, db *bun.DB, title string, authorIDs ...int) *models.Book {
	t.Helper()
	ctx := context.Background()

	book := &models.Book{Title: title, SortTitle: title, MetadataSource: models.DataSourceManual}
	_, err := db.NewInsert().Model(book).Returning("*").Exec(ctx)
	require.NoError(t, err)

	for i, id := range authorIDs {
		_, err := db.NewInsert().Model(&models.BookAuthor{BookID: book.ID, AuthorID: id, SortOrder: i + 1}).Exec(ctx)
		require.NoError(t, err)
	}
	return book
}

func TestCreateAuthor(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)
	svc := NewService(db)
	ctx := context.Background()

	author := &models.Author{Name: "  Octavia E. Butler "}
	require.NoError(t, svc.CreateAuthor(ctx, author))

	assert.NotZero(t, author.ID)
	assert.Equal(t, "Octavia E. Butler", author.Name)
	assert.Equal(t, "Butler, Octavia E.", author.SortName)
	assert.False(t, author.CreatedAt.IsZero())
}

func TestCreateAuthor_KeepsExplicitSortName(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)
	svc := NewService(db)

	author := &models.Author{Name: "Plato", SortName: "Plato (philosopher)"}
	require.NoError(t, svc.CreateAuthor(context.Background(), author))
	assert.Equal(t, "Plato (philosopher)", author.SortName)
}

func TestCreateAuthor_EmptyName(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)
	svc := NewService(db)

	err := svc.CreateAuthor(context.Background(), &models.Author{Name: "   "})
	require.Error(t, err)
	assert.Equal(t, errcodes.ValidationError("Author name cannot be empty."), err)
}

func TestCreateAuthor_DuplicateIgnoresCase(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)
	svc := NewService(db)
	ctx := context.Background()

	require.NoError(t, svc.CreateAuthor(ctx, &models.Author{Name: "Iain M. Banks"}))

	err := svc.CreateAuthor(ctx, &models.Author{Name: "iain m. banks"})
	require.Error(t, err)
	assert.True(t, errcodes.IsConflict(err))
}

func TestRetrieveAuthor(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)
	svc := NewService(db)
	ctx := context.Background()

	author := &models.Author{Name: "Becky Chambers"}
	require.NoError(t, svc.CreateAuthor(ctx, author))
	insertBook(t, db, "The Long Way to a Small, Angry Planet", author.ID)
	insertBook(t, db, "A Closed and Common Orbit", author.ID)

	t.Run("by id", func(t *testing.T) {
		t.Parallel()
		got, err := svc.RetrieveAuthor(ctx, RetrieveAuthorOptions{ID: &author.ID})
		require.NoError(t, err)
		assert.Equal(t, "Becky Chambers", got.Name)
		assert.Equal(t, 2, got.BookCount)
	})

	t.Run("by name", func(t *testing.T) {
		t.Parallel()
		name := "BECKY CHAMBERS"
		got, err := svc.RetrieveAuthor(ctx, RetrieveAuthorOptions{Name: &name})
		require.NoError(t, err)
		assert.Equal(t, author.ID, got.ID)
	})

	t.Run("missing", func(t *testing.T) {
		t.Parallel()
		id := 9999
		_, err := svc.RetrieveAuthor(ctx, RetrieveAuthorOptions{ID: &id})
		assert.True(t, errcodes.IsNotFound(err))
	})
}

func TestFindOrCreateAuthor(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)
	svc := NewService(db)
	ctx := context.Background()

	first, err := svc.FindOrCreateAuthor(ctx, "N. K. Jemisin")
	require.NoError(t, err)

	second, err := svc.FindOrCreateAuthor(ctx, "n. k. jemisin ")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	count, err := db.NewSelect().Model((*models.Author)(nil)).Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	_, err = svc.FindOrCreateAuthor(ctx, "")
	assert.Error(t, err)
}

func TestListAuthorsWithTotal(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)
	svc := NewService(db)
	ctx := context.Background()

	for _, name := range []string{"Terry Pratchett", "Neil Gaiman", "Robin Hobb", "Terry Brooks"} {
		require.NoError(t, svc.CreateAuthor(ctx, &models.Author{Name: name}))
	}

	authors, total, err := svc.ListAuthorsWithTotal(ctx, ListAuthorsOptions{})
	require.NoError(t, err)
	assert.Equal(t, 4, total)
	names := []string{}
	for _, a := range authors {
		names = append(names, a.Name)
	}
	// Ordered by sort name: Brooks, Gaiman, Hobb, Pratchett.
	assert.Equal(t, []string{"Terry Brooks", "Neil Gaiman", "Robin Hobb", "Terry Pratchett"}, names)

	search := "terry"
	limit := 1
	authors, total, err = svc.ListAuthorsWithTotal(ctx, ListAuthorsOptions{Search: &search, Limit: &limit})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, authors, 1)
	assert.Equal(t, "Terry Brooks", authors[0].Name)
}

func TestUpdateAuthor_RenameConflict(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)
	svc := NewService(db)
	ctx := context.Background()

	a := &models.Author{Name: "Brandon Sanderson"}
	b := &models.Author{Name: "Brandon Sandersen"}
	require.NoError(t, svc.CreateAuthor(ctx, a))
	require.NoError(t, svc.CreateAuthor(ctx, b))

	b.Name = "brandon sanderson"
	err := svc.UpdateAuthor(ctx, b, UpdateAuthorOptions{Columns: []string{"name"}})
	assert.True(t, errcodes.IsConflict(err))

	// Renaming to a different case of its own name is allowed.
	a.Name = "BRANDON SANDERSON"
	require.NoError(t, svc.UpdateAuthor(ctx, a, UpdateAuthorOptions{Columns: []string{"name"}}))
}

func TestDeleteAuthor(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)
	svc := NewService(db)
	ctx := context.Background()

	author := &models.Author{Name: "Ann Leckie"}
	require.NoError(t, svc.CreateAuthor(ctx, author))
	book := insertBook(t, db, "Ancillary Justice", author.ID)

	require.NoError(t, svc.DeleteAuthor(ctx, author.ID))

	links, err := db.NewSelect().Model((*models.BookAuthor)(nil)).Where("book_id = ?", book.ID).Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, links)

	err = svc.DeleteAuthor(ctx, author.ID)
	assert.True(t, errcodes.IsNotFound(err))
}

func TestGetBooks(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)
	svc := NewService(db)
	ctx := context.Background()

	a := &models.Author{Name: "Martha Wells"}
	b := &models.Author{Name: "Someone Else"}
	require.NoError(t, svc.CreateAuthor(ctx, a))
	require.NoError(t, svc.CreateAuthor(ctx, b))
	insertBook(t, db, "Rogue Protocol", a.ID)
	insertBook(t, db, "All Systems Red", a.ID, b.ID)
	insertBook(t, db, "Unrelated", b.ID)

	books, err := svc.GetBooks(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, books, 2)
	assert.Equal(t, "All Systems Red", books[0].Title)
	assert.Equal(t, "Rogue Protocol", books[1].Title)
}
