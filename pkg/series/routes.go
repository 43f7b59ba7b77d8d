package series

import (
	"github.com/labstack/echo/v4"
	"github.com/shelfwatch/shelfwatch/pkg/search"
	"github.com/uptrace/bun"
)

// RegisterRoutesWithGroup registers series routes on a pre-configured group.
func RegisterRoutesWithGroup(g *echo.Group, db *bun.DB) {
	h := &handler{
		seriesService: NewService(db),
		searchService: search.NewService(db),
	}

	g.GET("", h.list)
	g.POST("", h.create)
	g.GET("/:id", h.retrieve)
	g.GET("/:id/books", h.books)
	g.GET("/:id/missing", h.missing)
	g.PATCH("/:id", h.update)
	g.DELETE("/:id", h.deleteSeries)
	g.POST("/:id/merge", h.merge)
}
