package watchlists

import (
	"github.com/labstack/echo/v4"
	"github.com/shelfwatch/shelfwatch/pkg/scrapers"
	"github.com/uptrace/bun"
)

// RegisterRoutesWithGroup registers watchlist routes on a group that already
// runs Authenticate. Users only ever see their own watchlists.
func RegisterRoutesWithGroup(g *echo.Group, db *bun.DB, registry *scrapers.Registry) {
	h := &handler{
		watchlistService: NewService(db, registry),
	}

	g.GET("", h.list)
	g.POST("", h.create)
	g.GET("/:id", h.retrieve)
	g.PATCH("/:id", h.update)
	g.DELETE("/:id", h.delete)
	g.POST("/:id/check", h.check)
	g.GET("/:id/results", h.results)
	g.POST("/:id/results/seen", h.markSeen)
}
