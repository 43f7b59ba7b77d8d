package categories

type ListCategoriesQuery struct {
	Limit    int     `query:"limit" json:"limit,omitempty" default:"24" validate:"min=1,max=50"`
	Offset   int     `query:"offset" json:"offset,omitempty" validate:"min=0"`
	Search   *string `query:"search" json:"search,omitempty" validate:"omitempty,max=100"`
	ParentID *int    `query:"parent_id" json:"parent_id,omitempty" validate:"omitempty,min=1"`
	TopLevel bool    `query:"top_level" json:"top_level,omitempty"`
}

type CreateCategoryPayload struct {
	Name     string `json:"name" mod:"trim" validate:"required,max=100"`
	ParentID *int   `json:"parent_id,omitempty" validate:"omitempty,min=1"`
}

type UpdateCategoryPayload struct {
	Name *string `json:"name,omitempty" mod:"trim" validate:"omitempty,min=1,max=100"`
	// ParentID 0 moves the category to the top level.
	ParentID *int `json:"parent_id,omitempty" validate:"omitempty,min=0"`
}
