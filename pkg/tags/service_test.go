package tags

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

func insertBookWithTags(t *testing.T, db *bun.DB, title string, tagIDs ...int) *models.Book {
	t.Helper()
	ctx := context.Background()

	book := &models.Book{Title: title, SortTitle: title, MetadataSource: models.DataSourceManual}
	_, err := db.NewInsert().Model(book).Returning("*").Exec(ctx)
	require.NoError(t, err)

	for _, id := range tagIDs {
		_, err := db.NewInsert().Model(&models.BookTag{BookID: book.ID, TagID: id}).Exec(ctx)
		require.NoError(t, err)
	}
	return book
}

func tagIDsForBook(t *testing.T, db *bun.DB, bookID int) []int {
	t.Helper()
	var ids []int
	err := db.NewSelect().
		Model((*models.BookTag)(nil)).
		Column("tag_id").
		Where("book_id = ?", bookID).
		Order("tag_id ASC").
		Scan(context.Background(), &ids)
	require.NoError(t, err)
	return ids
}

func TestCreateTag_Conflict(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)
	svc := NewService(db)
	ctx := context.Background()

	require.NoError(t, svc.CreateTag(ctx, &models.Tag{Name: "Space Opera"}))

	err := svc.CreateTag(ctx, &models.Tag{Name: "space opera"})
	assert.True(t, errcodes.IsConflict(err))

	err = svc.CreateTag(ctx, &models.Tag{Name: " "})
	assert.Equal(t, errcodes.ValidationError("Tag name cannot be empty."), err)
}

func TestFindOrCreateTag(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)
	svc := NewService(db)
	ctx := context.Background()

	a, err := svc.FindOrCreateTag(ctx, "cozy")
	require.NoError(t, err)
	b, err := svc.FindOrCreateTag(ctx, "  Cozy ")
	require.NoError(t, err)
	assert.Equal(t, a.ID, b.ID)
	assert.Equal(t, "cozy", b.Name)
}

func TestListTagsWithTotal_PrefixSearch(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)
	svc := NewService(db)
	ctx := context.Background()

	for _, name := range []string{"fantasy", "Fae", "science fiction", "100%_done"} {
		require.NoError(t, svc.CreateTag(ctx, &models.Tag{Name: name}))
	}

	tests := []struct {
		search   string
		expected []string
	}{
		{"fa", []string{"Fae", "fantasy"}},
		{"sci", []string{"science fiction"}},
		{"100%", []string{"100%_done"}},
		{"fiction", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.search, func(t *testing.T) {
			search := tt.search
			tags, total, err := svc.ListTagsWithTotal(ctx, ListTagsOptions{Search: &search})
			require.NoError(t, err)
			names := []string{}
			for _, tag := range tags {
				names = append(names, tag.Name)
			}
			assert.Equal(t, tt.expected, names)
			assert.Equal(t, len(tt.expected), total)
		})
	}
}

func TestMergeTags(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)
	svc := NewService(db)
	ctx := context.Background()

	target := &models.Tag{Name: "sci-fi"}
	source := &models.Tag{Name: "scifi"}
	require.NoError(t, svc.CreateTag(ctx, target))
	require.NoError(t, svc.CreateTag(ctx, source))

	both := insertBookWithTags(t, db, "Dune", target.ID, source.ID)
	onlySource := insertBookWithTags(t, db, "Hyperion", source.ID)

	require.NoError(t, svc.MergeTags(ctx, target.ID, source.ID))

	assert.Equal(t, []int{target.ID}, tagIDsForBook(t, db, both.ID))
	assert.Equal(t, []int{target.ID}, tagIDsForBook(t, db, onlySource.ID))

	_, err := svc.RetrieveTag(ctx, RetrieveTagOptions{ID: &source.ID})
	assert.True(t, errcodes.IsNotFound(err))

	got, err := svc.RetrieveTag(ctx, RetrieveTagOptions{ID: &target.ID})
	require.NoError(t, err)
	assert.Equal(t, 2, got.BookCount)
}

func TestMergeTags_Invalid(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)
	svc := NewService(db)
	ctx := context.Background()

	tag := &models.Tag{Name: "horror"}
	require.NoError(t, svc.CreateTag(ctx, tag))

	err := svc.MergeTags(ctx, tag.ID, tag.ID)
	require.Error(t, err)

	err = svc.MergeTags(ctx, tag.ID, 999)
	assert.True(t, errcodes.IsNotFound(err))
}

func TestDeleteTag(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)
	svc := NewService(db)
	ctx := context.Background()

	tag := &models.Tag{Name: "dnf"}
	require.NoError(t, svc.CreateTag(ctx, tag))
	book := insertBookWithTags(t, db, "Some Book", tag.ID)

	require.NoError(t, svc.DeleteTag(ctx, tag.ID))
	assert.Empty(t, tagIDsForBook(t, db, book.ID))

	assert.True(t, errcodes.IsNotFound(svc.DeleteTag(ctx, tag.ID)))
}

func TestCleanupOrphanedTags(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)
	svc := NewService(db)
	ctx := context.Background()

	used := &models.Tag{Name: "used"}
	require.NoError(t, svc.CreateTag(ctx, used))
	require.NoError(t, svc.CreateTag(ctx, &models.Tag{Name: "unused"}))
	insertBookWithTags(t, db, "Book", used.ID)

	n, err := svc.CleanupOrphanedTags(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	tags, err := svc.ListTags(ctx, ListTagsOptions{})
	require.NoError(t, err)
	require.Len(t, tags, 1)
	assert.Equal(t, "used", tags[0].Name)
}
