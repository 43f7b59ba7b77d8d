package epub

import (
	"testing"

	"github.com/shelfwatch/shelfwatch/internal/testgen"
	"github.com/shelfwatch/shelfwatch/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	path := testgen.GenerateEPUB(t, dir, "book.epub", testgen.EPUBOptions{
		Title:        "Leviathan Wakes",
		Authors:      []string{"James S. A. Corey"},
		Series:       "The Expanse",
		SeriesNumber: testgen.FloatPtr(1),
		Description:  "<p>Humanity has colonized the solar system.</p>",
		Publisher:    "Orbit",
		ISBN:         "978-0-316-12908-4",
		Date:         "2011-06-15",
		Subjects:     []string{"Science Fiction"},
		HasCover:     true,
	})

	md, err := Parse(path)
	require.NoError(t, err)

	assert.Equal(t, "Leviathan Wakes", md.Title)
	assert.Equal(t, []string{"James S. A. Corey"}, md.Authors)
	assert.Equal(t, "The Expanse", md.Series)
	require.NotNil(t, md.SeriesNumber)
	assert.InDelta(t, 1.0, *md.SeriesNumber, 0.0001)
	assert.Equal(t, "Humanity has colonized the solar system.", md.Description)
	assert.Equal(t, "Orbit", md.Publisher)
	assert.Equal(t, "en", md.Language)
	assert.Equal(t, "9780316129084", md.ISBN13)
	assert.Equal(t, []string{"Science Fiction"}, md.Categories)
	assert.Equal(t, models.DataSourceFile, md.DataSource)
	assert.Equal(t, "image/png", md.CoverMimeType)
	assert.NotEmpty(t, md.CoverData)
}

func TestParse_EPUB3CollectionWithoutContainer(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	path := testgen.GenerateEPUB(t, dir, "book.epub", testgen.EPUBOptions{
		Title:           "Caliban's War",
		Series:          "The Expanse",
		SeriesNumber:    testgen.FloatPtr(2),
		HasCover:        true,
		CoverMimeType:   "image/jpeg",
		EPUB3Collection: true,
		NoContainer:     true,
	})

	md, err := Parse(path)
	require.NoError(t, err)

	assert.Equal(t, "Caliban's War", md.Title)
	assert.Empty(t, md.Authors)
	assert.Equal(t, "The Expanse", md.Series)
	require.NotNil(t, md.SeriesNumber)
	assert.InDelta(t, 2.0, *md.SeriesNumber, 0.0001)
	assert.Equal(t, "image/jpeg", md.CoverMimeType)
	assert.NotEmpty(t, md.CoverData)
}

func TestParse_NotAZip(t *testing.T) {
	t.Parallel()
	path := testgen.WriteFile(t, t.TempDir(), "broken.epub", []byte("not a zip"))

	_, err := Parse(path)
	assert.Error(t, err)
}
