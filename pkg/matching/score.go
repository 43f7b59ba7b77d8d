package matching

import (
	"sort"
	"strings"

	"github.com/shelfwatch/shelfwatch/pkg/identifiers"
	"github.com/shelfwatch/shelfwatch/pkg/scrapers"
)

const (
	titleWeight        = 0.6
	authorWeight       = 0.25
	completenessWeight = 0.15

	// neutralAuthorScore is used when the query names no author, so a
	// title-only query is neither rewarded nor punished.
	neutralAuthorScore = 0.5

	// DefaultThreshold is the minimum score for a metadata lookup match.
	DefaultThreshold = 0.6
	// SeriesThreshold is the minimum series-name similarity for a watchlist
	// result to count as part of the watched series.
	SeriesThreshold = 0.8
)

// Completeness returns the weighted fraction of metadata fields present on c.
func Completeness(c scrapers.Candidate) float64 {
	total := 0.0
	add := func(present bool, weight float64) {
		if present {
			total += weight
		}
	}
	add(strings.TrimSpace(c.Title) != "", 0.2)
	add(len(c.Authors) > 0, 0.2)
	add(c.ISBN13 != "" || c.ISBN10 != "", 0.15)
	add(strings.TrimSpace(c.Description) != "", 0.1)
	add(c.CoverURL != "", 0.1)
	add(c.Publisher != "", 0.05)
	add(c.ReleaseDate != nil, 0.05)
	add(c.PageCount != nil && *c.PageCount > 0, 0.05)
	add(c.Series != "", 0.05)
	add(c.Language != "", 0.05)
	return clamp(total)
}

// Score rates how well c answers q. A candidate carrying the query's ISBN is
// an exact match and scores 1.0.
func Score(q scrapers.Query, c scrapers.Candidate) float64 {
	if isbn := identifiers.NormalizeISBN(q.ISBN); isbn != "" && c.HasISBN(isbn) {
		return 1
	}
	author := neutralAuthorScore
	if len(q.Authors) > 0 {
		author = AuthorSimilarity(q.Authors, c.Authors)
	}
	return clamp(titleWeight*TitleSimilarity(q.Title, c.Title) +
		authorWeight*author +
		completenessWeight*Completeness(c))
}

// Ranked is a candidate with its computed scores.
type Ranked struct {
	Candidate    scrapers.Candidate `json:"candidate"`
	Score        float64            `json:"score"`
	Completeness float64            `json:"completeness"`
}

// Rank scores every candidate and orders them best first. Ties on score are
// broken by completeness (higher first), release date (earlier first, unknown
// last), title length (shorter first), source priority, and finally external
// ID, so the order is fully deterministic.
func Rank(q scrapers.Query, candidates []scrapers.Candidate) []Ranked {
	ranked := make([]Ranked, len(candidates))
	for i, c := range candidates {
		ranked[i] = Ranked{Candidate: c, Score: Score(q, c), Completeness: Completeness(c)}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return less(ranked[i], ranked[j])
	})
	return ranked
}

func less(a, b Ranked) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	if a.Completeness != b.Completeness {
		return a.Completeness > b.Completeness
	}
	ad, bd := a.Candidate.ReleaseDate, b.Candidate.ReleaseDate
	switch {
	case ad != nil && bd == nil:
		return true
	case ad == nil && bd != nil:
		return false
	case ad != nil && bd != nil && !ad.Equal(*bd):
		return ad.Before(*bd)
	}
	if la, lb := len([]rune(a.Candidate.Title)), len([]rune(b.Candidate.Title)); la != lb {
		return la < lb
	}
	if pa, pb := scrapers.Priority(a.Candidate.Source), scrapers.Priority(b.Candidate.Source); pa != pb {
		return pa < pb
	}
	return a.Candidate.ExternalID < b.Candidate.ExternalID
}

// Best returns the top-ranked candidate scoring at least threshold.
func Best(q scrapers.Query, candidates []scrapers.Candidate, threshold float64) (*Ranked, bool) {
	ranked := Rank(q, candidates)
	if len(ranked) == 0 || ranked[0].Score < threshold {
		return nil, false
	}
	return &ranked[0], true
}

// SameSeries reports whether two series names refer to the same series.
func SameSeries(a, b string) bool {
	return TitleSimilarity(a, b) >= SeriesThreshold
}
