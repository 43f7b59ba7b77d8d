package locations

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/shelfwatch/shelfwatch/pkg/errcodes"
	"github.com/shelfwatch/shelfwatch/pkg/models"
)

type handler struct {
	locationService *Service
}

func (h *handler) retrieve(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Location")
	}

	location, err := h.locationService.RetrieveLocation(ctx, RetrieveLocationOptions{ID: &id})
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, location))
}

func (h *handler) list(c echo.Context) error {
	ctx := c.Request().Context()

	params := ListLocationsQuery{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	locations, total, err := h.locationService.ListLocationsWithTotal(ctx, ListLocationsOptions{
		Limit:  &params.Limit,
		Offset: &params.Offset,
		Search: params.Search,
		Type:   params.Type,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	resp := struct {
		Locations []*models.Location `json:"locations"`
		Total     int                `json:"total"`
	}{locations, total}

	return errors.WithStack(c.JSON(http.StatusOK, resp))
}

func (h *handler) create(c echo.Context) error {
	ctx := c.Request().Context()

	params := CreateLocationPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	location := &models.Location{
		Name:        params.Name,
		Type:        params.Type,
		Description: params.Description,
	}
	if err := h.locationService.CreateLocation(ctx, location); err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusCreated, location))
}

func (h *handler) update(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Location")
	}

	params := UpdateLocationPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	location, err := h.locationService.RetrieveLocation(ctx, RetrieveLocationOptions{ID: &id})
	if err != nil {
		return errors.WithStack(err)
	}

	opts := UpdateLocationOptions{Columns: []string{}}
	if params.Name != nil && *params.Name != location.Name {
		location.Name = *params.Name
		opts.Columns = append(opts.Columns, "name")
	}
	if params.Type != nil && *params.Type != location.Type {
		location.Type = *params.Type
		opts.Columns = append(opts.Columns, "type")
	}
	if params.Description != nil {
		location.Description = params.Description
		opts.Columns = append(opts.Columns, "description")
	}

	if err := h.locationService.UpdateLocation(ctx, location, opts); err != nil {
		return errors.WithStack(err)
	}

	location, err = h.locationService.RetrieveLocation(ctx, RetrieveLocationOptions{ID: &id})
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, location))
}

func (h *handler) books(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Location")
	}

	if _, err := h.locationService.RetrieveLocation(ctx, RetrieveLocationOptions{ID: &id}); err != nil {
		return errors.WithStack(err)
	}

	books, err := h.locationService.GetBooks(ctx, id)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, books))
}

func (h *handler) deleteLocation(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Location")
	}

	if err := h.locationService.DeleteLocation(ctx, id); err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.NoContent(http.StatusNoContent))
}
