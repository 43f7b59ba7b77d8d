package series

type ListSeriesQuery struct {
	Limit  int     `query:"limit" json:"limit,omitempty" default:"24" validate:"min=1,max=50"`
	Offset int     `query:"offset" json:"offset,omitempty" validate:"min=0"`
	Search *string `query:"search" json:"search,omitempty" validate:"omitempty,max=100"`
}

type CreateSeriesPayload struct {
	Name         string  `json:"name" mod:"trim" validate:"required,max=300"`
	Description  *string `json:"description,omitempty" validate:"omitempty,max=2000"`
	TotalVolumes *int    `json:"total_volumes,omitempty" validate:"omitempty,min=1,max=1000"`
}

type UpdateSeriesPayload struct {
	Name         *string `json:"name,omitempty" mod:"trim" validate:"omitempty,min=1,max=300"`
	Description  *string `json:"description,omitempty" validate:"omitempty,max=2000"`
	TotalVolumes *int    `json:"total_volumes,omitempty" validate:"omitempty,min=1,max=1000"`
}

type MergeSeriesPayload struct {
	SourceID int `json:"source_id" validate:"required,min=1"`
}
