package parsers

import (
	"context"
	"net/http"
	"testing"

	"github.com/shelfwatch/shelfwatch/internal/testgen"
	"github.com/shelfwatch/shelfwatch/pkg/errcodes"
	"github.com/shelfwatch/shelfwatch/pkg/mediafile"
	"github.com/shelfwatch/shelfwatch/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_ForExtension(t *testing.T) {
	t.Parallel()

	r := Default()
	for _, ext := range []string{".epub", "EPUB", "pdf", ".FB2", "fb2.zip", ".docx", "doc", "txt"} {
		p, err := r.ForExtension(ext)
		require.NoError(t, err, ext)
		assert.NotNil(t, p, ext)
	}

	_, err := r.ForExtension(".mobi")
	require.Error(t, err)
	var e *errcodes.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, http.StatusUnsupportedMediaType, e.HTTPCode)

	assert.Equal(t, []string{".doc", ".docx", ".epub", ".fb2", ".fb2.zip", ".pdf", ".txt"}, r.Supported())
}

func TestRegistry_Extension(t *testing.T) {
	t.Parallel()

	r := Default()
	assert.Equal(t, ".fb2.zip", r.Extension("/books/Equal Rites.FB2.ZIP"))
	assert.Equal(t, ".epub", r.Extension("dune.Epub"))
	assert.Equal(t, ".zip", r.Extension("archive.zip"))
	assert.Equal(t, ".mobi", r.Extension("dune.mobi"))
	assert.True(t, r.IsSupported("a.pdf"))
	assert.False(t, r.IsSupported("a.mobi"))
}

func TestRegistry_Parse_EPUB(t *testing.T) {
	t.Parallel()

	dir := testgen.TempDir(t, "parsers-*")
	path := testgen.GenerateEPUB(t, dir, "whatever.epub", testgen.EPUBOptions{
		Title:   "Leviathan Wakes",
		Authors: []string{"James S. A. Corey"},
	})

	md, err := Default().Parse(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "Leviathan Wakes", md.Title)
	assert.Equal(t, []string{"James S. A. Corey"}, md.Authors)
	assert.Equal(t, models.DataSourceFile, md.DataSource)
	assert.Equal(t, models.DataSourceFile, md.SourceForField("title"))
	assert.Contains(t, md.MimeType, "zip")
}

func TestRegistry_Parse_FilenameFallback(t *testing.T) {
	t.Parallel()

	dir := testgen.TempDir(t, "parsers-*")
	path := testgen.WriteFile(t, dir, "[Terry Pratchett] Guards! Guards! (Discworld #8).txt",
		[]byte("It was a dark and stormy night.\n"))

	md, err := Default().Parse(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "Guards! Guards!", md.Title)
	assert.Equal(t, []string{"Terry Pratchett"}, md.Authors)
	assert.Equal(t, "Discworld", md.Series)
	require.NotNil(t, md.SeriesNumber)
	assert.InDelta(t, 8.0, *md.SeriesNumber, 0.001)
	assert.Equal(t, models.DataSourceFilepath, md.SourceForField("title"))
	assert.Equal(t, models.DataSourceFilepath, md.SourceForField("series"))
	assert.Equal(t, "text/plain", md.MimeType)
}

func TestRegistry_Parse_MIMEMismatch(t *testing.T) {
	t.Parallel()

	dir := testgen.TempDir(t, "parsers-*")
	path := testgen.WriteFile(t, dir, "fake.pdf", []byte("this is plain text, not a PDF\n"))

	_, err := Default().Parse(context.Background(), path)
	require.Error(t, err)
	var e *errcodes.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, http.StatusUnprocessableEntity, e.HTTPCode)
	assert.Contains(t, e.Message, "does not match")
}

func TestRegistry_Parse_Unsupported(t *testing.T) {
	t.Parallel()

	dir := testgen.TempDir(t, "parsers-*")
	path := testgen.WriteFile(t, dir, "book.mobi", []byte("BOOKMOBI"))

	_, err := Default().Parse(context.Background(), path)
	require.Error(t, err)
	var e *errcodes.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, http.StatusUnsupportedMediaType, e.HTTPCode)
}

func TestRegistry_Register(t *testing.T) {
	t.Parallel()

	dir := testgen.TempDir(t, "parsers-*")
	path := testgen.WriteFile(t, dir, "Ursula K. Le Guin - The Dispossessed.xyz", []byte{0x00, 0x01, 0x02})

	called := 0
	r := NewRegistry(Func{
		Exts: []string{"XYZ"},
		Fn: func(string) (*mediafile.ParsedMetadata, error) {
			called++
			return nil, nil
		},
	})

	md, err := r.Parse(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, 1, called)
	assert.Equal(t, "The Dispossessed", md.Title)
	assert.Equal(t, []string{"Ursula K. Le Guin"}, md.Authors)
	assert.Equal(t, models.DataSourceFile, md.DataSource)
}

func TestRegistry_Parse_Canceled(t *testing.T) {
	t.Parallel()

	dir := testgen.TempDir(t, "parsers-*")
	path := testgen.WriteFile(t, dir, "notes.txt", []byte("hello\n"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Default().Parse(ctx, path)
	assert.ErrorIs(t, err, context.Canceled)
}
