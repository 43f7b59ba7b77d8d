package jobs

import (
	"github.com/labstack/echo/v4"
	"github.com/shelfwatch/shelfwatch/pkg/books"
	"github.com/shelfwatch/shelfwatch/pkg/watchlists"
	"github.com/uptrace/bun"
)

// RegisterRoutesWithGroup registers job routes on a group that already runs
// Authenticate.
func RegisterRoutesWithGroup(g *echo.Group, db *bun.DB) {
	h := &handler{
		jobService:       NewService(db),
		bookService:      books.NewService(db),
		watchlistService: watchlists.NewService(db, nil),
	}

	g.GET("", h.list)
	g.GET("/:id", h.retrieve)
	g.POST("", h.create)
}
