package models

import (
	"time"

	"github.com/uptrace/bun"
)

type Author struct {
	bun.BaseModel `bun:"table:authors,alias:a"`

	ID        int       `bun:",pk,nullzero" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Name      string    `bun:",nullzero" json:"name"`
	SortName  string    `bun:",nullzero" json:"sort_name"`
	Bio       *string   `json:"bio,omitempty"`
	BookCount int       `bun:",scanonly" json:"book_count"`
}

type BookAuthor struct {
	bun.BaseModel `bun:"table:book_authors,alias:ba"`

	ID        int     `bun:",pk,nullzero" json:"id"`
	BookID    int     `bun:",nullzero" json:"book_id"`
	AuthorID  int     `bun:",nullzero" json:"author_id"`
	Author    *Author `bun:"rel:belongs-to,join:author_id=id" json:"author,omitempty"`
	SortOrder int     `json:"sort_order"`
}
