package search

type GlobalSearchQuery struct {
	Query string `query:"q" json:"q" validate:"required,min=1,max=100"`
}

type GlobalSearchResponse struct {
	Books   []BookSearchResult   `json:"books"`
	Series  []SeriesSearchResult `json:"series"`
	Authors []AuthorSearchResult `json:"authors"`
}

type BookSearchResult struct {
	ID         int     `bun:"id" json:"id"`
	Title      string  `bun:"title" json:"title"`
	Subtitle   *string `bun:"subtitle" json:"subtitle"`
	Authors    string  `bun:"authors" json:"authors,omitempty"`
	SeriesName string  `bun:"series_name" json:"series_name,omitempty"`
}

type SeriesSearchResult struct {
	ID        int    `bun:"id" json:"id"`
	Name      string `bun:"name" json:"name"`
	BookCount int    `bun:"book_count" json:"book_count"`
}

type AuthorSearchResult struct {
	ID       int    `bun:"id" json:"id"`
	Name     string `bun:"name" json:"name"`
	SortName string `bun:"sort_name" json:"sort_name"`
}
