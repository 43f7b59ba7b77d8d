package series

import (
	"context"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/shelfwatch/shelfwatch/pkg/errcodes"
	"github.com/shelfwatch/shelfwatch/pkg/models"
	"github.com/shelfwatch/shelfwatch/pkg/search"
)

type handler struct {
	seriesService *Service
	searchService *search.Service
}

func (h *handler) retrieve(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Series")
	}

	series, err := h.seriesService.RetrieveSeries(ctx, RetrieveSeriesOptions{
		ID: &id,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, series))
}

func (h *handler) list(c echo.Context) error {
	ctx := c.Request().Context()

	params := ListSeriesQuery{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	series, total, err := h.seriesService.ListSeriesWithTotal(ctx, ListSeriesOptions{
		Limit:  &params.Limit,
		Offset: &params.Offset,
		Search: params.Search,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	resp := struct {
		Series []*models.Series `json:"series"`
		Total  int              `json:"total"`
	}{series, total}

	return errors.WithStack(c.JSON(http.StatusOK, resp))
}

func (h *handler) create(c echo.Context) error {
	ctx := c.Request().Context()

	params := CreateSeriesPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	series := &models.Series{
		Name:         params.Name,
		Description:  params.Description,
		TotalVolumes: params.TotalVolumes,
	}
	if err := h.seriesService.CreateSeries(ctx, series); err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusCreated, series))
}

func (h *handler) update(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Series")
	}

	params := UpdateSeriesPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	series, err := h.seriesService.RetrieveSeries(ctx, RetrieveSeriesOptions{
		ID: &id,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	opts := UpdateSeriesOptions{Columns: []string{}}
	renamed := false

	if params.Name != nil && *params.Name != series.Name {
		series.Name = *params.Name
		opts.Columns = append(opts.Columns, "name")
		renamed = true
	}
	if params.Description != nil {
		series.Description = params.Description
		opts.Columns = append(opts.Columns, "description")
	}
	if params.TotalVolumes != nil {
		series.TotalVolumes = params.TotalVolumes
		opts.Columns = append(opts.Columns, "total_volumes")
	}

	if err := h.seriesService.UpdateSeries(ctx, series, opts); err != nil {
		return errors.WithStack(err)
	}

	if renamed {
		h.reindexBooks(ctx, id)
	}

	series, err = h.seriesService.RetrieveSeries(ctx, RetrieveSeriesOptions{ID: &id})
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, series))
}

func (h *handler) books(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Series")
	}

	if _, err := h.seriesService.RetrieveSeries(ctx, RetrieveSeriesOptions{ID: &id}); err != nil {
		return errors.WithStack(err)
	}

	books, err := h.seriesService.ListBooks(ctx, id)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, books))
}

func (h *handler) missing(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Series")
	}

	volumes, err := h.seriesService.MissingVolumes(ctx, id)
	if err != nil {
		return errors.WithStack(err)
	}

	resp := struct {
		SeriesID int   `json:"series_id"`
		Missing  []int `json:"missing"`
	}{id, volumes}

	return errors.WithStack(c.JSON(http.StatusOK, resp))
}

func (h *handler) merge(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Series")
	}

	params := MergeSeriesPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	if err := h.seriesService.MergeSeries(ctx, id, params.SourceID); err != nil {
		return errors.WithStack(err)
	}

	h.reindexBooks(ctx, id)

	return errors.WithStack(c.NoContent(http.StatusNoContent))
}

func (h *handler) deleteSeries(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Series")
	}

	books, err := h.seriesService.ListBooks(ctx, id)
	if err != nil {
		return errors.WithStack(err)
	}

	if err := h.seriesService.DeleteSeries(ctx, id); err != nil {
		return errors.WithStack(err)
	}

	ids := make([]int, 0, len(books))
	for _, b := range books {
		ids = append(ids, b.ID)
	}
	if err := h.searchService.ReindexBooks(ctx, ids); err != nil {
		logger.FromContext(ctx).Err(err).Error("failed to reindex books after series delete", logger.Data{"series_id": id})
	}

	return errors.WithStack(c.NoContent(http.StatusNoContent))
}

// reindexBooks refreshes the search rows of every book in the series. The
// series name is part of each row.
func (h *handler) reindexBooks(ctx context.Context, seriesID int) {
	log := logger.FromContext(ctx)

	books, err := h.seriesService.ListBooks(ctx, seriesID)
	if err != nil {
		log.Err(err).Error("failed to load series books for reindex")
		return
	}
	ids := make([]int, 0, len(books))
	for _, b := range books {
		ids = append(ids, b.ID)
	}
	if err := h.searchService.ReindexBooks(ctx, ids); err != nil {
		log.Err(err).Error("failed to reindex series books", logger.Data{"series_id": seriesID})
	}
}
