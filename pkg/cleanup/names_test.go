package cleanup

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSortTitle(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input    string
		expected string
	}{
		{"The Hobbit", "Hobbit, The"},
		{"A Tale of Two Cities", "Tale of Two Cities, A"},
		{"An American Tragedy", "American Tragedy, An"},
		{"the hobbit", "hobbit, the"},
		{"Lord of the Rings", "Lord of the Rings"},
		{"Theodore Rex", "Theodore Rex"},
		{"Anathem", "Anathem"},
		{"The", "The"},
		{"The ", "The"},
		{"   ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, SortTitle(tt.input))
		})
	}
}

func TestSortName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input    string
		expected string
	}{
		{"Stephen King", "King, Stephen"},
		{"Martin Luther King Jr.", "King, Martin Luther, Jr."},
		{"Robert Downey, Jr.", "Downey, Robert, Jr."},
		{"John Smith III", "Smith, John, III"},
		{"Jane Doe PhD", "Doe, Jane"},
		{"John Doe MD PhD", "Doe, John"},
		{"Dr. Sarah Connor", "Connor, Sarah"},
		{"Prof. Jane Doe MD PhD", "Doe, Jane"},
		{"Ludwig van Beethoven", "Beethoven, Ludwig van"},
		{"Johannes van der Waals", "Waals, Johannes van der"},
		{"J.R.R. Tolkien", "Tolkien, J.R.R."},
		{"Tolkien, J.R.R.", "Tolkien, J.R.R."},
		{"  Cher  ", "Cher"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, SortName(tt.input))
		})
	}
}

func TestSplitAuthors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{"single", "Frank Herbert", []string{"Frank Herbert"}},
		{"and", "Frank Herbert and Kevin J. Anderson", []string{"Frank Herbert", "Kevin J. Anderson"}},
		{"ampersand", "Terry Pratchett & Neil Gaiman", []string{"Terry Pratchett", "Neil Gaiman"}},
		{"semicolons", "Ann Leckie; Martha Wells;", []string{"Ann Leckie", "Martha Wells"}},
		{"commas", "Stephen King, Peter Straub", []string{"Stephen King", "Peter Straub"}},
		{"inverted", "Tolkien, J.R.R.", []string{"J.R.R. Tolkien"}},
		{"inverted list", "King, Stephen; Straub, Peter", []string{"Stephen King", "Peter Straub"}},
		{"suffix after comma", "Robert Downey, Jr.", []string{"Robert Downey Jr."}},
		{"role", "Brandon Sanderson (Author)", []string{"Brandon Sanderson"}},
		{"duplicates", "Ann Leckie & ann leckie", []string{"Ann Leckie"}},
		{"anderson is not a separator", "Poul Anderson", []string{"Poul Anderson"}},
		{"empty", "  ", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, SplitAuthors(tt.input))
		})
	}
}
