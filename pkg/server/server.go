package server

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robinjoseph08/golib/echo/v4/health"
	"github.com/robinjoseph08/golib/echo/v4/middleware/logger"
	"github.com/robinjoseph08/golib/echo/v4/middleware/recovery"
	"github.com/shelfwatch/shelfwatch/pkg/auth"
	"github.com/shelfwatch/shelfwatch/pkg/authors"
	"github.com/shelfwatch/shelfwatch/pkg/binder"
	"github.com/shelfwatch/shelfwatch/pkg/books"
	"github.com/shelfwatch/shelfwatch/pkg/categories"
	"github.com/shelfwatch/shelfwatch/pkg/config"
	"github.com/shelfwatch/shelfwatch/pkg/enrich"
	"github.com/shelfwatch/shelfwatch/pkg/errcodes"
	"github.com/shelfwatch/shelfwatch/pkg/joblogs"
	"github.com/shelfwatch/shelfwatch/pkg/jobs"
	"github.com/shelfwatch/shelfwatch/pkg/locations"
	"github.com/shelfwatch/shelfwatch/pkg/lookup"
	"github.com/shelfwatch/shelfwatch/pkg/notifications"
	"github.com/shelfwatch/shelfwatch/pkg/parsers"
	"github.com/shelfwatch/shelfwatch/pkg/scrapers"
	"github.com/shelfwatch/shelfwatch/pkg/search"
	"github.com/shelfwatch/shelfwatch/pkg/series"
	"github.com/shelfwatch/shelfwatch/pkg/tags"
	"github.com/shelfwatch/shelfwatch/pkg/testutils"
	"github.com/shelfwatch/shelfwatch/pkg/users"
	"github.com/shelfwatch/shelfwatch/pkg/watchlists"
	"github.com/uptrace/bun"
)

type Options struct {
	Scrapers *scrapers.Registry
	Parsers  *parsers.Registry
	// Generator must be left nil, not a typed nil, when Ollama is off.
	Generator enrich.Generator
}

func New(cfg *config.Config, db *bun.DB, opts Options) (*http.Server, error) {
	e := echo.New()

	b, err := binder.New()
	if err != nil {
		return nil, errors.WithStack(err)
	}
	e.Binder = b

	e.Use(logger.Middleware())
	e.Use(recovery.Middleware())
	e.Use(middleware.CORS())

	health.RegisterRoutes(e)

	if cfg.MetricsEnabled {
		e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	}

	authMiddleware := auth.RegisterRoutes(e, db, cfg.JWTSecret)
	registerProtectedRoutes(e, db, cfg, opts, authMiddleware)

	// Reset and seed endpoints for end-to-end tests.
	if os.Getenv("ENVIRONMENT") == "test" {
		testutils.RegisterRoutes(e, db)
	}

	echo.NotFoundHandler = notFoundHandler
	e.HTTPErrorHandler = errcodes.NewHandler().Handle

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.ServerHost, cfg.ServerPort),
		Handler:           e,
		ReadHeaderTimeout: 3 * time.Second,
	}

	return srv, nil
}

// registerProtectedRoutes registers every route that needs a signed-in user.
func registerProtectedRoutes(e *echo.Echo, db *bun.DB, cfg *config.Config, opts Options, authMiddleware *auth.Middleware) {
	// Books routes, plus lookup and enrichment which hang off /books/:id.
	booksGroup := e.Group("/books", authMiddleware.Authenticate)
	books.RegisterRoutesWithGroup(booksGroup, db, opts.Parsers, cfg.LibraryPath)
	lookup.RegisterRoutesWithGroup(booksGroup, db, opts.Scrapers)
	enrich.RegisterRoutesWithGroup(booksGroup, db, opts.Generator)

	authors.RegisterRoutesWithGroup(e.Group("/authors", authMiddleware.Authenticate), db)
	series.RegisterRoutesWithGroup(e.Group("/series", authMiddleware.Authenticate), db)
	categories.RegisterRoutesWithGroup(e.Group("/categories", authMiddleware.Authenticate), db)
	tags.RegisterRoutesWithGroup(e.Group("/tags", authMiddleware.Authenticate), db)
	locations.RegisterRoutesWithGroup(e.Group("/locations", authMiddleware.Authenticate), db)
	search.RegisterRoutesWithGroup(e.Group("/search", authMiddleware.Authenticate), db)

	users.RegisterRoutesWithGroup(e.Group("/users", authMiddleware.Authenticate), db, authMiddleware)
	notifications.RegisterRoutesWithGroup(e.Group("/notifications", authMiddleware.Authenticate), db)
	watchlists.RegisterRoutesWithGroup(e.Group("/watchlists", authMiddleware.Authenticate), db, opts.Scrapers)

	jobsGroup := e.Group("/jobs", authMiddleware.Authenticate)
	jobs.RegisterRoutesWithGroup(jobsGroup, db)
	joblogs.RegisterRoutes(jobsGroup, db)

	// Config is admin only since it shows paths and upstream URLs.
	config.RegisterRoutesWithGroup(e.Group("/config", authMiddleware.Authenticate, authMiddleware.RequireAdmin), cfg)
}

func notFoundHandler(c echo.Context) error {
	c.SetPath("/:path")
	return errcodes.NotFound("Page")
}
