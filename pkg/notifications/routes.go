package notifications

import (
	"github.com/labstack/echo/v4"
	"github.com/uptrace/bun"
)

// RegisterRoutesWithGroup registers notification routes on a group that
// already runs Authenticate. Every route is scoped to the current user.
func RegisterRoutesWithGroup(g *echo.Group, db *bun.DB) {
	h := &handler{
		notificationService: NewService(db),
	}

	g.GET("", h.list)
	g.GET("/unread-count", h.unreadCount)
	g.POST("/read-all", h.markAllRead)
	g.POST("/:id/read", h.markRead)
	g.DELETE("/:id", h.delete)
}
