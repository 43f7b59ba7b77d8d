package cleanup

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanTitle(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input    string
		expected string
	}{
		{"The Hobbit [Retail] (epub)", "The Hobbit"},
		{"Dune (40th Anniversary Edition)", "Dune"},
		{"Neuromancer - 2nd Edition", "Neuromancer"},
		{"Snow Crash (z-lib.org)", "Snow Crash"},
		{"Hyperion (1)", "Hyperion"},
		{"Hyperion - Copy", "Hyperion"},
		{"DUNE MESSIAH", "Dune Messiah"},
		{"NASA", "NASA"},
		{"“Quoted” Title", `"Quoted" Title`},
		{`"Whole Title"`, "Whole Title"},
		{"  Too   many    spaces ", "Too many spaces"},
		{"Dr. Jekyll and Mr. Hyde", "Dr. Jekyll and Mr. Hyde"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, CleanTitle(tt.input))
		})
	}
}

func TestSplitSubtitle(t *testing.T) {
	t.Parallel()

	main, sub := SplitSubtitle("Sapiens: A Brief History of Humankind")
	assert.Equal(t, "Sapiens", main)
	assert.Equal(t, "A Brief History of Humankind", sub)

	main, sub = SplitSubtitle("Dune")
	assert.Equal(t, "Dune", main)
	assert.Empty(t, sub)
}

func TestParseFilename(t *testing.T) {
	t.Parallel()

	vol := func(v float64) *float64 { return &v }

	tests := []struct {
		path     string
		expected ParsedFilename
	}{
		{
			path:     "/books/Brandon_Sanderson_-_The_Way_of_Kings.epub",
			expected: ParsedFilename{Title: "The Way of Kings", Authors: []string{"Brandon Sanderson"}},
		},
		{
			path:     "The Way of Kings - Brandon Sanderson.epub",
			expected: ParsedFilename{Title: "The Way of Kings", Authors: []string{"Brandon Sanderson"}},
		},
		{
			path:     "[Terry Pratchett] Guards! Guards! (Discworld #8).epub",
			expected: ParsedFilename{Title: "Guards! Guards!", Authors: []string{"Terry Pratchett"}, Series: "Discworld", Volume: vol(8)},
		},
		{
			path:     "Discworld 03 - Equal Rites.fb2.zip",
			expected: ParsedFilename{Title: "Equal Rites", Series: "Discworld", Volume: vol(3)},
		},
		{
			path:     "Mistborn_Book_2_v2.pdf",
			expected: ParsedFilename{Title: "Mistborn Book 2", Series: "Mistborn", Volume: vol(2)},
		},
		{
			path:     "Dune (1).epub",
			expected: ParsedFilename{Title: "Dune"},
		},
		{
			path:     "Dune - Messiah.txt",
			expected: ParsedFilename{Title: "Dune - Messiah"},
		},
		{
			path:     "01 - Prologue.docx",
			expected: ParsedFilename{Title: "Prologue"},
		},
		{
			path:     "The.Left.Hand.of.Darkness.(1969).pdf",
			expected: ParsedFilename{Title: "The Left Hand of Darkness"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			t.Parallel()
			got := ParseFilename(tt.path)
			assert.Equal(t, tt.expected.Title, got.Title)
			assert.Equal(t, tt.expected.Authors, got.Authors)
			assert.Equal(t, tt.expected.Series, got.Series)
			if tt.expected.Volume == nil {
				assert.Nil(t, got.Volume)
			} else {
				require.NotNil(t, got.Volume)
				assert.InDelta(t, *tt.expected.Volume, *got.Volume, 0.0001)
			}
		})
	}
}

func TestSanitizeFilename(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "What If Serious Answers", SanitizeFilename(`What If?: Serious Answers`))
	assert.Equal(t, "untitled", SanitizeFilename(`/\:*`))
	assert.Equal(t, "name", SanitizeFilename(" name. "))
}
