package auth

import (
	"github.com/labstack/echo/v4"
	"github.com/uptrace/bun"
)

// RegisterRoutes registers the auth routes and returns the middleware the
// rest of the API is guarded with.
func RegisterRoutes(e *echo.Echo, db *bun.DB, jwtSecret string) *Middleware {
	authService := NewService(db, jwtSecret)
	authMiddleware := NewMiddleware(authService)

	h := &handler{
		authService: authService,
	}

	g := e.Group("/auth")
	g.POST("/login", h.login)
	g.POST("/logout", h.logout)
	g.GET("/status", h.status)
	g.POST("/setup", h.setup)
	g.GET("/me", h.me, authMiddleware.Authenticate)

	return authMiddleware
}
