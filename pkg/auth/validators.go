package auth

type LoginPayload struct {
	Username string `json:"username" mod:"trim" validate:"required,min=3,max=50"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

type SetupPayload struct {
	Username string `json:"username" mod:"trim" validate:"required,min=3,max=50"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

type StatusResponse struct {
	NeedsSetup bool `json:"needs_setup"`
}

type MeResponse struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
	IsAdmin  bool   `json:"is_admin"`
}

// LoginResponse carries the token for API clients that use the
// Authorization header instead of the cookie.
type LoginResponse struct {
	Token string     `json:"token"`
	User  MeResponse `json:"user"`
}
