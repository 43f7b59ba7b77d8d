package enrich

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/shelfwatch/shelfwatch/pkg/auth"
	"github.com/shelfwatch/shelfwatch/pkg/errcodes"
)

type handler struct {
	enrichService *Service
}

func (h *handler) enrich(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Book")
	}
	userID, _ := auth.GetUserIDFromContext(c)

	result, err := h.enrichService.EnrichBook(c.Request().Context(), id, userID)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, result))
}
