package books

import (
	"github.com/labstack/echo/v4"
	"github.com/shelfwatch/shelfwatch/pkg/parsers"
	"github.com/uptrace/bun"
)

// RegisterRoutesWithGroup registers book routes on a pre-configured group.
func RegisterRoutesWithGroup(g *echo.Group, db *bun.DB, registry *parsers.Registry, libraryPath string) {
	h := &handler{
		bookService: NewService(db),
		ingester:    NewIngester(db, registry, libraryPath),
		libraryPath: libraryPath,
	}

	g.GET("", h.list)
	g.POST("", h.create)
	g.POST("/import", h.importCSV)
	g.GET("/files/:id/download", h.downloadFile)
	g.GET("/:id", h.retrieve)
	g.PATCH("/:id", h.update)
	g.DELETE("/:id", h.delete)
	g.POST("/:id/authors", h.addAuthors)
	g.PUT("/:id/tags", h.setTags)
	g.PUT("/:id/categories", h.setCategories)
	g.GET("/:id/cover", h.cover)
	g.POST("/:id/files", h.uploadFile)
}
