package locations

import (
	"github.com/labstack/echo/v4"
	"github.com/uptrace/bun"
)

// RegisterRoutesWithGroup registers location routes on a pre-configured group.
func RegisterRoutesWithGroup(g *echo.Group, db *bun.DB) {
	h := &handler{
		locationService: NewService(db),
	}

	g.GET("", h.list)
	g.POST("", h.create)
	g.GET("/:id", h.retrieve)
	g.GET("/:id/books", h.books)
	g.PATCH("/:id", h.update)
	g.DELETE("/:id", h.deleteLocation)
}
