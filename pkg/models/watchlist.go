package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Watchlist follows a series on one external source and records volumes that show up there.
type Watchlist struct {
	bun.BaseModel `bun:"table:watchlists,alias:w"`

	ID              int                `bun:",pk,nullzero" json:"id"`
	CreatedAt       time.Time          `json:"created_at"`
	UpdatedAt       time.Time          `json:"updated_at"`
	UserID          int                `bun:",nullzero" json:"user_id"`
	SeriesName      string             `bun:",nullzero" json:"series_name"`
	AuthorName      *string            `json:"author_name,omitempty"`
	Source          LocationType       `bun:",nullzero" json:"source"`
	LastKnownVolume float64            `json:"last_known_volume"`
	Active          bool               `json:"active"`
	LastCheckedAt   *time.Time         `json:"last_checked_at,omitempty"`
	Results         []*WatchlistResult `bun:"rel:has-many,join:id=watchlist_id" json:"results,omitempty"`
}

type WatchlistResult struct {
	bun.BaseModel `bun:"table:watchlist_results,alias:wr"`

	ID           int        `bun:",pk,nullzero" json:"id"`
	CreatedAt    time.Time  `json:"created_at"`
	WatchlistID  int        `bun:",nullzero" json:"watchlist_id"`
	Title        string     `bun:",nullzero" json:"title"`
	VolumeNumber *float64   `json:"volume_number,omitempty"`
	URL          *string    `bun:"url" json:"url,omitempty"`
	ExternalID   string     `bun:",nullzero" json:"external_id"`
	Score        float64    `json:"score"`
	ReleaseDate  *time.Time `json:"release_date,omitempty"`
	Seen         bool       `json:"seen"`
}
