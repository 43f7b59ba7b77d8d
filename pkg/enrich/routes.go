package enrich

import (
	"github.com/labstack/echo/v4"
	"github.com/uptrace/bun"
)

// RegisterRoutesWithGroup adds the enrich route to the books group.
func RegisterRoutesWithGroup(g *echo.Group, db *bun.DB, generator Generator) {
	h := &handler{
		enrichService: NewService(db, generator),
	}

	g.POST("/:id/enrich", h.enrich)
}
