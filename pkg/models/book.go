package models

import (
	"time"

	"github.com/uptrace/bun"
)

const (
	ReadStatusUnread  = "unread"
	ReadStatusReading = "reading"
	ReadStatusRead    = "read"
)

type Book struct {
	bun.BaseModel `bun:"table:books,alias:b"`

	ID             int             `bun:",pk,nullzero" json:"id"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
	Title          string          `bun:",nullzero" json:"title"`
	SortTitle      string          `bun:",nullzero" json:"sort_title"`
	Subtitle       *string         `json:"subtitle,omitempty"`
	Description    *string         `json:"description,omitempty"`
	ISBN10         *string         `bun:"isbn10" json:"isbn10,omitempty"`
	ISBN13         *string         `bun:"isbn13" json:"isbn13,omitempty"`
	Publisher      *string         `json:"publisher,omitempty"`
	Language       *string         `json:"language,omitempty"`
	PageCount      *int            `json:"page_count,omitempty"`
	ReleaseDate    *time.Time      `json:"release_date,omitempty"`
	SeriesID       *int            `json:"series_id,omitempty"`
	Series         *Series         `bun:"rel:belongs-to,join:series_id=id" json:"series,omitempty"`
	SeriesNumber   *float64        `json:"series_number,omitempty"`
	LocationID     *int            `json:"location_id,omitempty"`
	Location       *Location       `bun:"rel:belongs-to,join:location_id=id" json:"location,omitempty"`
	CoverPath      *string         `json:"cover_path,omitempty"`
	Rating         *int            `json:"rating,omitempty"`
	ReadStatus     string          `bun:",nullzero,default:'unread'" json:"read_status"`
	Owned          bool            `json:"owned"`
	MetadataSource string          `bun:",nullzero" json:"metadata_source"`
	Authors        []*BookAuthor   `bun:"rel:has-many,join:id=book_id" json:"authors,omitempty"`
	Categories     []*BookCategory `bun:"rel:has-many,join:id=book_id" json:"categories,omitempty"`
	Tags           []*BookTag      `bun:"rel:has-many,join:id=book_id" json:"tags,omitempty"`
	Files          []*FileInfo     `bun:"rel:has-many,join:id=book_id" json:"files,omitempty"`
}

// AuthorNames returns the display names of the loaded authors in their stored order.
func (b *Book) AuthorNames() []string {
	names := make([]string, 0, len(b.Authors))
	for _, a := range b.Authors {
		if a.Author != nil {
			names = append(names, a.Author.Name)
		}
	}
	return names
}

// PrimaryAuthor returns the first author's name, or an empty string.
func (b *Book) PrimaryAuthor() string {
	names := b.AuthorNames()
	if len(names) == 0 {
		return ""
	}
	return names[0]
}

func (b *Book) CategoryNames() []string {
	names := make([]string, 0, len(b.Categories))
	for _, c := range b.Categories {
		if c.Category != nil {
			names = append(names, c.Category.Name)
		}
	}
	return names
}

func (b *Book) TagNames() []string {
	names := make([]string, 0, len(b.Tags))
	for _, t := range b.Tags {
		if t.Tag != nil {
			names = append(names, t.Tag.Name)
		}
	}
	return names
}
