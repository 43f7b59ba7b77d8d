package lookup

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/shelfwatch/shelfwatch/pkg/books"
	"github.com/shelfwatch/shelfwatch/pkg/errcodes"
	"github.com/shelfwatch/shelfwatch/pkg/matching"
)

type handler struct {
	lookupService *Service
}

// lookup fills the book's empty fields from the best external match.
func (h *handler) lookup(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Book")
	}

	result, err := h.lookupService.LookupBook(c.Request().Context(), id)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, result))
}

// candidates previews the ranked external matches without changing the book.
func (h *handler) candidates(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Book")
	}

	book, err := h.lookupService.bookService.RetrieveBook(ctx, books.RetrieveBookOptions{ID: &id})
	if err != nil {
		return errors.WithStack(err)
	}

	ranked, err := h.lookupService.Candidates(ctx, QueryForBook(book))
	if err != nil {
		return errors.WithStack(err)
	}
	if ranked == nil {
		ranked = []matching.Ranked{}
	}

	resp := struct {
		Candidates []matching.Ranked `json:"candidates"`
		Threshold  float64           `json:"threshold"`
	}{ranked, h.lookupService.threshold}

	return errors.WithStack(c.JSON(http.StatusOK, resp))
}
