package locations

import "github.com/shelfwatch/shelfwatch/pkg/models"

type ListLocationsQuery struct {
	Limit  int                  `query:"limit" json:"limit,omitempty" default:"24" validate:"min=1,max=50"`
	Offset int                  `query:"offset" json:"offset,omitempty" validate:"min=0"`
	Search *string              `query:"search" json:"search,omitempty" validate:"omitempty,max=100"`
	Type   *models.LocationType `query:"type" json:"type,omitempty" validate:"omitempty,oneof=physical digital amazon kindle openlibrary"`
}

type CreateLocationPayload struct {
	Name        string              `json:"name" mod:"trim" validate:"required,max=200"`
	Type        models.LocationType `json:"type" validate:"required,oneof=physical digital amazon kindle openlibrary"`
	Description *string             `json:"description,omitempty" validate:"omitempty,max=2000"`
}

type UpdateLocationPayload struct {
	Name        *string              `json:"name,omitempty" mod:"trim" validate:"omitempty,min=1,max=200"`
	Type        *models.LocationType `json:"type,omitempty" validate:"omitempty,oneof=physical digital amazon kindle openlibrary"`
	Description *string              `json:"description,omitempty" validate:"omitempty,max=2000"`
}
