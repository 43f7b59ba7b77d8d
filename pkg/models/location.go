package models

import (
	"time"

	"github.com/uptrace/bun"
)

// LocationType says where a book lives. The online types double as the key used to pick a scraper.
type LocationType string

const (
	LocationTypePhysical    LocationType = "physical"
	LocationTypeDigital     LocationType = "digital"
	LocationTypeAmazon      LocationType = "amazon"
	LocationTypeKindle      LocationType = "kindle"
	LocationTypeOpenLibrary LocationType = "openlibrary"
)

// Scrapable reports whether an external source exists for this location type.
func (t LocationType) Scrapable() bool {
	switch t {
	case LocationTypeAmazon, LocationTypeKindle, LocationTypeOpenLibrary:
		return true
	}
	return false
}

type Location struct {
	bun.BaseModel `bun:"table:locations,alias:l"`

	ID          int          `bun:",pk,nullzero" json:"id"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
	Name        string       `bun:",nullzero" json:"name"`
	Type        LocationType `bun:",nullzero" json:"type"`
	Description *string      `json:"description,omitempty"`
	BookCount   int          `bun:",scanonly" json:"book_count"`
}
