package models

import (
	"time"

	"github.com/uptrace/bun"
)

const (
	NotificationTypeWatchlistNewVolume = "watchlist_new_volume"
	NotificationTypeImportComplete     = "import_complete"
	NotificationTypeEnrichmentComplete = "enrichment_complete"
	NotificationTypeJobFailed          = "job_failed"
)

type Notification struct {
	bun.BaseModel `bun:"table:notifications,alias:n"`

	ID        int        `bun:",pk,nullzero" json:"id"`
	CreatedAt time.Time  `json:"created_at"`
	UserID    int        `bun:",nullzero" json:"user_id"`
	Type      string     `bun:",nullzero" json:"type"`
	Title     string     `bun:",nullzero" json:"title"`
	Message   string     `bun:",nullzero" json:"message"`
	Link      *string    `json:"link,omitempty"`
	ReadAt    *time.Time `json:"read_at,omitempty"`
}
