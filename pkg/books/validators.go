package books

import "mime/multipart"

type ListBooksQuery struct {
	Limit      int     `query:"limit" json:"limit,omitempty" default:"24" validate:"min=1,max=50"`
	Offset     int     `query:"offset" json:"offset,omitempty" validate:"min=0"`
	SeriesID   *int    `query:"series_id" json:"series_id,omitempty" validate:"omitempty,min=1"`
	AuthorID   *int    `query:"author_id" json:"author_id,omitempty" validate:"omitempty,min=1"`
	CategoryID *int    `query:"category_id" json:"category_id,omitempty" validate:"omitempty,min=1"`
	TagID      *int    `query:"tag_id" json:"tag_id,omitempty" validate:"omitempty,min=1"`
	LocationID *int    `query:"location_id" json:"location_id,omitempty" validate:"omitempty,min=1"`
	ReadStatus *string `query:"read_status" json:"read_status,omitempty" validate:"omitempty,oneof=unread reading read"`
	Search     *string `query:"search" json:"search,omitempty" validate:"omitempty,max=100"`
}

type CreateBookPayload struct {
	Title        string   `json:"title" mod:"trim" validate:"required,max=500"`
	Subtitle     *string  `json:"subtitle,omitempty" mod:"trim" validate:"omitempty,max=500"`
	Description  *string  `json:"description,omitempty" validate:"omitempty,max=20000"`
	ISBN10       *string  `json:"isbn10,omitempty" mod:"trim" validate:"omitempty,isbn"`
	ISBN13       *string  `json:"isbn13,omitempty" mod:"trim" validate:"omitempty,isbn"`
	Publisher    *string  `json:"publisher,omitempty" mod:"trim" validate:"omitempty,max=200"`
	Language     *string  `json:"language,omitempty" mod:"trim" validate:"omitempty,lang"`
	PageCount    *int     `json:"page_count,omitempty" validate:"omitempty,min=1,max=100000"`
	ReleaseDate  *string  `json:"release_date,omitempty" validate:"omitempty,date"`
	Series       *string  `json:"series,omitempty" mod:"trim" validate:"omitempty,max=200"`
	SeriesNumber *float64 `json:"series_number,omitempty" validate:"omitempty,min=0"`
	LocationID   *int     `json:"location_id,omitempty" validate:"omitempty,min=1"`
	Rating       *int     `json:"rating,omitempty" validate:"omitempty,min=0,max=5"`
	ReadStatus   string   `json:"read_status,omitempty" validate:"omitempty,oneof=unread reading read"`
	Owned        bool     `json:"owned,omitempty"`
	Authors      []string `json:"authors,omitempty" validate:"omitempty,max=50,dive,max=200"`
	Categories   []string `json:"categories,omitempty" validate:"omitempty,max=50,dive,max=100"`
	Tags         []string `json:"tags,omitempty" validate:"omitempty,max=100,dive,max=100"`
}

// UpdateBookPayload carries only the fields to change. An empty string
// clears an optional text field; an empty series detaches the book.
type UpdateBookPayload struct {
	Title        *string   `json:"title,omitempty" mod:"trim" validate:"omitempty,min=1,max=500"`
	Subtitle     *string   `json:"subtitle,omitempty" mod:"trim" validate:"omitempty,max=500"`
	Description  *string   `json:"description,omitempty" validate:"omitempty,max=20000"`
	ISBN10       *string   `json:"isbn10,omitempty" mod:"trim" validate:"omitempty,isbn"`
	ISBN13       *string   `json:"isbn13,omitempty" mod:"trim" validate:"omitempty,isbn"`
	Publisher    *string   `json:"publisher,omitempty" mod:"trim" validate:"omitempty,max=200"`
	Language     *string   `json:"language,omitempty" mod:"trim" validate:"omitempty,lang"`
	PageCount    *int      `json:"page_count,omitempty" validate:"omitempty,min=1,max=100000"`
	ReleaseDate  *string   `json:"release_date,omitempty" validate:"omitempty,date"`
	Series       *string   `json:"series,omitempty" mod:"trim" validate:"omitempty,max=200"`
	SeriesNumber *float64  `json:"series_number,omitempty" validate:"omitempty,min=0"`
	LocationID   *int      `json:"location_id,omitempty" validate:"omitempty,min=0"`
	Rating       *int      `json:"rating,omitempty" validate:"omitempty,min=0,max=5"`
	ReadStatus   *string   `json:"read_status,omitempty" validate:"omitempty,oneof=unread reading read"`
	Owned        *bool     `json:"owned,omitempty"`
	Authors      *[]string `json:"authors,omitempty" validate:"omitempty,max=50,dive,max=200"`
	Categories   *[]string `json:"categories,omitempty" validate:"omitempty,max=50,dive,max=100"`
	Tags         *[]string `json:"tags,omitempty" validate:"omitempty,max=100,dive,max=100"`
}

type NamesPayload struct {
	Names []string `json:"names" validate:"max=100,dive,max=200"`
}

// UploadPayload is bound from multipart forms; the binder fills FormFiles
// with the first file of each form field.
type UploadPayload struct {
	FormFiles map[string]*multipart.FileHeader `form:"-" json:"-"`
}
