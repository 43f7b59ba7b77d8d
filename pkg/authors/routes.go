package authors

import (
	"github.com/labstack/echo/v4"
	"github.com/shelfwatch/shelfwatch/pkg/search"
	"github.com/uptrace/bun"
)

// RegisterRoutesWithGroup registers author routes on a pre-configured group.
func RegisterRoutesWithGroup(g *echo.Group, db *bun.DB) {
	h := &handler{
		authorService: NewService(db),
		searchService: search.NewService(db),
	}

	g.GET("", h.list)
	g.POST("", h.create)
	g.GET("/:id", h.retrieve)
	g.PATCH("/:id", h.update)
	g.DELETE("/:id", h.delete)
	g.GET("/:id/books", h.books)
}
