package watchlists

import "github.com/shelfwatch/shelfwatch/pkg/models"

type ListWatchlistsQuery struct {
	Limit  int                  `query:"limit" json:"limit,omitempty" default:"24" validate:"min=1,max=100"`
	Offset int                  `query:"offset" json:"offset,omitempty" validate:"min=0"`
	Active *bool                `query:"active" json:"active,omitempty"`
	Source *models.LocationType `query:"source" json:"source,omitempty" validate:"omitempty,oneof=amazon kindle openlibrary"`
}

type CreateWatchlistPayload struct {
	SeriesName      string              `json:"series_name" mod:"trim" validate:"required,max=300"`
	AuthorName      *string             `json:"author_name,omitempty" mod:"trim" validate:"omitempty,max=300"`
	Source          models.LocationType `json:"source" validate:"required,oneof=amazon kindle openlibrary"`
	LastKnownVolume float64             `json:"last_known_volume" validate:"min=0"`
	Active          *bool               `json:"active,omitempty"`
}

type UpdateWatchlistPayload struct {
	SeriesName      *string              `json:"series_name,omitempty" mod:"trim" validate:"omitempty,min=1,max=300"`
	AuthorName      *string              `json:"author_name,omitempty" mod:"trim" validate:"omitempty,max=300"`
	Source          *models.LocationType `json:"source,omitempty" validate:"omitempty,oneof=amazon kindle openlibrary"`
	LastKnownVolume *float64             `json:"last_known_volume,omitempty" validate:"omitempty,min=0"`
	Active          *bool                `json:"active,omitempty"`
}

type ListResultsQuery struct {
	Limit      int  `query:"limit" json:"limit,omitempty" default:"24" validate:"min=1,max=100"`
	Offset     int  `query:"offset" json:"offset,omitempty" validate:"min=0"`
	UnseenOnly bool `query:"unseen_only" json:"unseen_only,omitempty"`
}

// MarkSeenPayload marks every unseen result when ResultIDs is empty.
type MarkSeenPayload struct {
	ResultIDs []int `json:"result_ids,omitempty"`
}
