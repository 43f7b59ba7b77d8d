package testutils

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/shelfwatch/shelfwatch/pkg/auth"
	"github.com/shelfwatch/shelfwatch/pkg/books"
	"github.com/shelfwatch/shelfwatch/pkg/models"
	"github.com/uptrace/bun"
)

type handler struct {
	db *bun.DB
}

type createUserRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
	IsAdmin  *bool  `json:"is_admin"`
}

type createBookRequest struct {
	Title        string   `json:"title" validate:"required"`
	Authors      []string `json:"authors"`
	Series       string   `json:"series"`
	SeriesNumber *float64 `json:"series_number"`
	ISBN13       *string  `json:"isbn13"`
}

// createUser creates a test user, an admin unless is_admin is false.
// POST /test/users.
func (h *handler) createUser(c echo.Context) error {
	ctx := c.Request().Context()

	var req createUserRequest
	if err := c.Bind(&req); err != nil {
		return errors.WithStack(err)
	}

	hashedPassword, err := auth.HashPassword(req.Password)
	if err != nil {
		return errors.Wrap(err, "failed to hash password")
	}

	user := &models.User{
		Username:     req.Username,
		PasswordHash: hashedPassword,
		IsAdmin:      req.IsAdmin == nil || *req.IsAdmin,
	}
	if _, err := h.db.NewInsert().Model(user).Returning("*").Exec(ctx); err != nil {
		return errors.Wrap(err, "failed to create user")
	}

	return errors.WithStack(c.JSON(http.StatusCreated, user))
}

// deleteAllUsers removes every user, and with them their notifications and
// watchlists.
// DELETE /test/users.
func (h *handler) deleteAllUsers(c echo.Context) error {
	ctx := c.Request().Context()

	if _, err := h.db.NewDelete().Model((*models.User)(nil)).Where("1 = 1").Exec(ctx); err != nil {
		return errors.Wrap(err, "failed to delete users")
	}

	return errors.WithStack(c.NoContent(http.StatusNoContent))
}

// createBook inserts a manual book without touching the library directory.
// POST /test/books.
func (h *handler) createBook(c echo.Context) error {
	ctx := c.Request().Context()

	var req createBookRequest
	if err := c.Bind(&req); err != nil {
		return errors.WithStack(err)
	}

	book := &models.Book{
		Title:        req.Title,
		SeriesNumber: req.SeriesNumber,
		ISBN13:       req.ISBN13,
	}
	svc := books.NewService(h.db)
	err := svc.CreateBook(ctx, book, books.CreateBookOptions{
		Authors: req.Authors,
		Series:  req.Series,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusCreated, book))
}

// deleteAllData empties the library tables in dependency order. Users are
// left alone.
// DELETE /test/data.
func (h *handler) deleteAllData(c echo.Context) error {
	ctx := c.Request().Context()

	tables := []string{
		"watchlist_results",
		"watchlists",
		"notifications",
		"job_logs",
		"jobs",
		"files",
		"book_tags",
		"book_categories",
		"book_authors",
		"books_fts",
		"books",
		"tags",
		"categories",
		"authors",
		"series",
		"locations",
	}
	for _, table := range tables {
		if _, err := h.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return errors.Wrapf(err, "failed to empty %s", table)
		}
	}

	return errors.WithStack(c.NoContent(http.StatusNoContent))
}
