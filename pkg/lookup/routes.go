package lookup

import (
	"github.com/labstack/echo/v4"
	"github.com/shelfwatch/shelfwatch/pkg/scrapers"
	"github.com/uptrace/bun"
)

// RegisterRoutesWithGroup adds the lookup routes to the books group.
func RegisterRoutesWithGroup(g *echo.Group, db *bun.DB, registry *scrapers.Registry) {
	h := &handler{
		lookupService: NewService(db, registry),
	}

	g.POST("/:id/lookup", h.lookup)
	g.GET("/:id/lookup/candidates", h.candidates)
}
