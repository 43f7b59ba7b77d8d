package matching

import (
	"testing"
	"time"

	"github.com/shelfwatch/shelfwatch/pkg/models"
	"github.com/shelfwatch/shelfwatch/pkg/scrapers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input    string
		expected string
	}{
		{"The Lord of the Rings: The Fellowship", "lord of the rings the fellowship"},
		{"Ender’s Game", "enders game"},
		{"Les Misérables", "les miserables"},
		{"Pride & Prejudice", "pride and prejudice"},
		{"  A   Wrinkle in Time ", "wrinkle in time"},
		{"The", "the"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, Normalize(tt.input))
		})
	}
}

func TestTitleSimilarity(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 1.0, TitleSimilarity("The Hobbit", "hobbit"))
	assert.Equal(t, 1.0, TitleSimilarity("Les Misérables", "Les Miserables"))
	assert.Equal(t, 0.9, TitleSimilarity("Dune: Deluxe Edition", "Dune"))
	assert.Equal(t, 0.9, TitleSimilarity("Dune", "Dune: Deluxe Edition"))
	assert.Equal(t, 0.0, TitleSimilarity("Dune", ""))

	near := TitleSimilarity("Dune", "Dune Messiah")
	assert.Greater(t, near, 0.5)
	assert.Less(t, near, 0.9)

	typo := TitleSimilarity("The Way of Kings", "The Way of Kigns")
	assert.Greater(t, typo, 0.85)

	assert.Less(t, TitleSimilarity("Dune", "Neuromancer"), 0.7)
}

func TestAuthorSimilarity(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 1.0, AuthorSimilarity([]string{"Tolkien, J.R.R."}, []string{"J. R. R. Tolkien"}))
	assert.Equal(t, 1.0, AuthorSimilarity([]string{"Someone Else", "Frank Herbert"}, []string{"frank herbert"}))
	assert.GreaterOrEqual(t, AuthorSimilarity([]string{"John Tolkien"}, []string{"J. Tolkien"}), 0.9)
	assert.Equal(t, 0.0, AuthorSimilarity(nil, []string{"Frank Herbert"}))
	assert.Equal(t, 0.0, AuthorSimilarity([]string{"Frank Herbert"}, nil))
	assert.Less(t, AuthorSimilarity([]string{"Frank Herbert"}, []string{"Ursula K. Le Guin"}), 0.7)
}

func fullCandidate() scrapers.Candidate {
	pages := 412
	released := time.Date(1965, 8, 1, 0, 0, 0, 0, time.UTC)
	return scrapers.Candidate{
		Title:       "Dune",
		Authors:     []string{"Frank Herbert"},
		ISBN13:      "9780441172719",
		Description: "A desert planet.",
		CoverURL:    "https://covers.example.com/dune.jpg",
		Publisher:   "Chilton",
		ReleaseDate: &released,
		PageCount:   &pages,
		Series:      "Dune",
		Language:    "en",
		ExternalID:  "OL1",
		Source:      models.LocationTypeOpenLibrary,
	}
}

func TestCompleteness(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 1.0, Completeness(fullCandidate()), 0.0001)
	assert.InDelta(t, 0.4, Completeness(scrapers.Candidate{Title: "Dune", Authors: []string{"Frank Herbert"}}), 0.0001)
	assert.InDelta(t, 0.0, Completeness(scrapers.Candidate{Title: "   "}), 0.0001)

	zero := 0
	assert.InDelta(t, 0.2, Completeness(scrapers.Candidate{Title: "Dune", PageCount: &zero}), 0.0001)
}

func TestScore(t *testing.T) {
	t.Parallel()

	t.Run("isbn match is exact", func(t *testing.T) {
		t.Parallel()
		c := scrapers.Candidate{Title: "Something Else", ISBN13: "9780441172719"}
		assert.Equal(t, 1.0, Score(scrapers.Query{Title: "Dune", ISBN: "978-0-441-17271-9"}, c))
	})

	t.Run("title only query uses neutral author weight", func(t *testing.T) {
		t.Parallel()
		c := scrapers.Candidate{Title: "Dune"}
		assert.InDelta(t, 0.6+0.125+0.03, Score(scrapers.Query{Title: "Dune"}, c), 0.0001)
	})

	t.Run("perfect match", func(t *testing.T) {
		t.Parallel()
		q := scrapers.Query{Title: "Dune", Authors: []string{"Herbert, Frank"}}
		assert.InDelta(t, 1.0, Score(q, fullCandidate()), 0.0001)
	})

	t.Run("wrong author lowers score", func(t *testing.T) {
		t.Parallel()
		q := scrapers.Query{Title: "Dune", Authors: []string{"Someone Else Entirely"}}
		assert.Less(t, Score(q, fullCandidate()), 0.95)
	})
}

func TestRank(t *testing.T) {
	t.Parallel()

	q := scrapers.Query{Title: "Dune", Authors: []string{"Frank Herbert"}}

	later := fullCandidate()
	later.ExternalID = "later"
	d := time.Date(2005, 1, 1, 0, 0, 0, 0, time.UTC)
	later.ReleaseDate = &d

	earlier := fullCandidate()
	earlier.ExternalID = "earlier"

	amazon := fullCandidate()
	amazon.ExternalID = "a-amazon"
	amazon.Source = models.LocationTypeAmazon

	sameB := fullCandidate()
	sameB.ExternalID = "OL2"

	weak := scrapers.Candidate{Title: "Dune Messiah", ExternalID: "weak", Source: models.LocationTypeOpenLibrary}

	ranked := Rank(q, []scrapers.Candidate{weak, later, amazon, sameB, earlier})
	require.Len(t, ranked, 5)

	ids := make([]string, len(ranked))
	for i, r := range ranked {
		ids[i] = r.Candidate.ExternalID
	}
	// Same date as each other: OL-sourced before Amazon, then external ID.
	assert.Equal(t, []string{"OL2", "earlier", "a-amazon", "later", "weak"}, ids)
	assert.Greater(t, ranked[0].Score, ranked[4].Score)
}

func TestRank_ExactISBNTieBreaks(t *testing.T) {
	t.Parallel()

	q := scrapers.Query{Title: "Dune", ISBN: "9780441172719"}

	t.Run("more complete first", func(t *testing.T) {
		t.Parallel()
		sparse := scrapers.Candidate{Title: "Dune", ISBN13: "9780441172719", ExternalID: "a-sparse", Source: models.LocationTypeOpenLibrary}
		full := fullCandidate()
		full.ExternalID = "z-full"

		ranked := Rank(q, []scrapers.Candidate{sparse, full})
		require.Len(t, ranked, 2)
		assert.Equal(t, 1.0, ranked[0].Score)
		assert.Equal(t, 1.0, ranked[1].Score)
		assert.Equal(t, "z-full", ranked[0].Candidate.ExternalID)
		assert.Greater(t, ranked[0].Completeness, ranked[1].Completeness)
	})

	t.Run("shorter title first", func(t *testing.T) {
		t.Parallel()
		long := fullCandidate()
		long.Title = "Dune: Deluxe Edition"
		long.ExternalID = "a-long"
		short := fullCandidate()
		short.ExternalID = "z-short"

		ranked := Rank(q, []scrapers.Candidate{long, short})
		require.Len(t, ranked, 2)
		assert.Equal(t, ranked[0].Completeness, ranked[1].Completeness)
		assert.Equal(t, "z-short", ranked[0].Candidate.ExternalID)
	})
}

func TestBest(t *testing.T) {
	t.Parallel()

	q := scrapers.Query{Title: "Dune", Authors: []string{"Frank Herbert"}}

	best, ok := Best(q, []scrapers.Candidate{{Title: "Neuromancer", ExternalID: "x"}, fullCandidate()}, DefaultThreshold)
	require.True(t, ok)
	assert.Equal(t, "OL1", best.Candidate.ExternalID)

	_, ok = Best(q, []scrapers.Candidate{{Title: "Neuromancer", ExternalID: "x"}}, DefaultThreshold)
	assert.False(t, ok)

	_, ok = Best(q, nil, DefaultThreshold)
	assert.False(t, ok)
}

func TestTitleSimilarity_NonASCII(t *testing.T) {
	t.Parallel()

	// One substituted letter costs the same whatever the script.
	assert.InDelta(t, TitleSimilarity("flower", "floxer"), TitleSimilarity("цветок", "цвеюок"), 1e-9)
	assert.Equal(t, 1.0, TitleSimilarity("Мастер и Маргарита", "мастер и маргарита"))
	assert.GreaterOrEqual(t, AuthorSimilarity([]string{"Л. Толстой"}, []string{"Лев Толстой"}), 0.9)
}

func TestSameSeries(t *testing.T) {
	t.Parallel()

	assert.True(t, SameSeries("The Expanse", "Expanse"))
	assert.True(t, SameSeries("Stormlight Archive", "The Stormlight Archive"))
	assert.False(t, SameSeries("Discworld", "Dune"))
}
