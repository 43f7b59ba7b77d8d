package authors

type ListAuthorsQuery struct {
	Limit  int     `query:"limit" json:"limit,omitempty" default:"24" validate:"min=1,max=50"`
	Offset int     `query:"offset" json:"offset,omitempty" validate:"min=0"`
	Search *string `query:"search" json:"search,omitempty" validate:"omitempty,max=100"`
}

type CreateAuthorPayload struct {
	Name     string  `json:"name" mod:"trim" validate:"required,max=200"`
	SortName string  `json:"sort_name,omitempty" mod:"trim" validate:"omitempty,max=200"`
	Bio      *string `json:"bio,omitempty" validate:"omitempty,max=10000"`
}

type UpdateAuthorPayload struct {
	Name     *string `json:"name,omitempty" mod:"trim" validate:"omitempty,min=1,max=200"`
	SortName *string `json:"sort_name,omitempty" mod:"trim" validate:"omitempty,min=1,max=200"`
	Bio      *string `json:"bio,omitempty" validate:"omitempty,max=10000"`
}
