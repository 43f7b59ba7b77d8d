package users

import (
	"github.com/labstack/echo/v4"
	"github.com/shelfwatch/shelfwatch/pkg/auth"
	"github.com/uptrace/bun"
)

// RegisterRoutesWithGroup registers user routes on a group that already runs
// Authenticate.
func RegisterRoutesWithGroup(g *echo.Group, db *bun.DB, authMiddleware *auth.Middleware) {
	h := &handler{
		userService: NewService(db),
	}

	g.GET("", h.list, authMiddleware.RequireAdmin)
	g.POST("", h.create, authMiddleware.RequireAdmin)
	g.GET("/:id", h.retrieve)
	g.PATCH("/:id", h.update, authMiddleware.RequireAdmin)
	g.DELETE("/:id", h.delete, authMiddleware.RequireAdmin)

	// Users can change their own password; admins can change anyone's.
	g.POST("/:id/reset-password", h.resetPassword)
}
