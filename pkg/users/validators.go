package users

type CreateUserPayload struct {
	Username string `json:"username" mod:"trim" validate:"required,min=3,max=50"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	IsAdmin  bool   `json:"is_admin"`
}

type UpdateUserPayload struct {
	Username *string `json:"username,omitempty" mod:"trim" validate:"omitempty,min=3,max=50"`
	IsAdmin  *bool   `json:"is_admin,omitempty"`
}

// ResetPasswordPayload needs CurrentPassword when users change their own
// password.
type ResetPasswordPayload struct {
	CurrentPassword *string `json:"current_password,omitempty"`
	NewPassword     string  `json:"new_password" validate:"required,min=8,max=72"`
}

type ListUsersQuery struct {
	Limit  int `query:"limit" json:"limit,omitempty" default:"24" validate:"min=1,max=100"`
	Offset int `query:"offset" json:"offset,omitempty" validate:"min=0"`
}
