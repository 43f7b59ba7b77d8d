package watchlists

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/shelfwatch/shelfwatch/pkg/auth"
	"github.com/shelfwatch/shelfwatch/pkg/errcodes"
	"github.com/shelfwatch/shelfwatch/pkg/models"
)

type handler struct {
	watchlistService *Service
}

// owned loads the watchlist named by :id when it belongs to the current user.
func (h *handler) owned(c echo.Context) (*models.Watchlist, error) {
	userID, ok := auth.GetUserIDFromContext(c)
	if !ok {
		return nil, errcodes.Unauthorized()
	}
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return nil, errcodes.NotFound("Watchlist")
	}
	return h.watchlistService.RetrieveWatchlist(c.Request().Context(), RetrieveWatchlistOptions{
		ID:     &id,
		UserID: &userID,
	})
}

func (h *handler) list(c echo.Context) error {
	ctx := c.Request().Context()
	userID, ok := auth.GetUserIDFromContext(c)
	if !ok {
		return errcodes.Unauthorized()
	}

	params := ListWatchlistsQuery{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	watchlists, total, err := h.watchlistService.ListWatchlistsWithTotal(ctx, ListWatchlistsOptions{
		Limit:  &params.Limit,
		Offset: &params.Offset,
		UserID: &userID,
		Active: params.Active,
		Source: params.Source,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	resp := struct {
		Watchlists []*models.Watchlist `json:"watchlists"`
		Total      int                 `json:"total"`
	}{watchlists, total}

	return errors.WithStack(c.JSON(http.StatusOK, resp))
}

func (h *handler) create(c echo.Context) error {
	ctx := c.Request().Context()
	userID, ok := auth.GetUserIDFromContext(c)
	if !ok {
		return errcodes.Unauthorized()
	}

	params := CreateWatchlistPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	watchlist := &models.Watchlist{
		UserID:          userID,
		SeriesName:      params.SeriesName,
		AuthorName:      params.AuthorName,
		Source:          params.Source,
		LastKnownVolume: params.LastKnownVolume,
		Active:          params.Active == nil || *params.Active,
	}
	if err := h.watchlistService.CreateWatchlist(ctx, watchlist); err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusCreated, watchlist))
}

func (h *handler) retrieve(c echo.Context) error {
	watchlist, err := h.owned(c)
	if err != nil {
		return errors.WithStack(err)
	}
	return errors.WithStack(c.JSON(http.StatusOK, watchlist))
}

func (h *handler) update(c echo.Context) error {
	ctx := c.Request().Context()

	params := UpdateWatchlistPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	watchlist, err := h.owned(c)
	if err != nil {
		return errors.WithStack(err)
	}

	opts := UpdateWatchlistOptions{Columns: []string{}}
	if params.SeriesName != nil && *params.SeriesName != watchlist.SeriesName {
		watchlist.SeriesName = *params.SeriesName
		opts.Columns = append(opts.Columns, "series_name")
	}
	if params.AuthorName != nil {
		if *params.AuthorName == "" {
			watchlist.AuthorName = nil
		} else {
			watchlist.AuthorName = params.AuthorName
		}
		opts.Columns = append(opts.Columns, "author_name")
	}
	if params.Source != nil && *params.Source != watchlist.Source {
		watchlist.Source = *params.Source
		opts.Columns = append(opts.Columns, "source")
	}
	if params.LastKnownVolume != nil && *params.LastKnownVolume != watchlist.LastKnownVolume {
		watchlist.LastKnownVolume = *params.LastKnownVolume
		opts.Columns = append(opts.Columns, "last_known_volume")
	}
	if params.Active != nil && *params.Active != watchlist.Active {
		watchlist.Active = *params.Active
		opts.Columns = append(opts.Columns, "active")
	}

	if err := h.watchlistService.UpdateWatchlist(ctx, watchlist, opts); err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, watchlist))
}

func (h *handler) delete(c echo.Context) error {
	watchlist, err := h.owned(c)
	if err != nil {
		return errors.WithStack(err)
	}
	if err := h.watchlistService.DeleteWatchlist(c.Request().Context(), watchlist.ID, &watchlist.UserID); err != nil {
		return errors.WithStack(err)
	}
	return errors.WithStack(c.NoContent(http.StatusNoContent))
}

func (h *handler) check(c echo.Context) error {
	watchlist, err := h.owned(c)
	if err != nil {
		return errors.WithStack(err)
	}

	result, err := h.watchlistService.Check(c.Request().Context(), watchlist.ID)
	if err != nil {
		return errors.WithStack(err)
	}
	if result.NewResults == nil {
		result.NewResults = []*models.WatchlistResult{}
	}

	return errors.WithStack(c.JSON(http.StatusOK, result))
}

func (h *handler) results(c echo.Context) error {
	ctx := c.Request().Context()

	params := ListResultsQuery{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	watchlist, err := h.owned(c)
	if err != nil {
		return errors.WithStack(err)
	}

	results, total, err := h.watchlistService.ListResults(ctx, watchlist.ID, ListResultsOptions{
		Limit:      &params.Limit,
		Offset:     &params.Offset,
		UnseenOnly: params.UnseenOnly,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	resp := struct {
		Results []*models.WatchlistResult `json:"results"`
		Total   int                       `json:"total"`
	}{results, total}

	return errors.WithStack(c.JSON(http.StatusOK, resp))
}

func (h *handler) markSeen(c echo.Context) error {
	ctx := c.Request().Context()

	params := MarkSeenPayload{}
	if c.Request().ContentLength != 0 {
		if err := c.Bind(&params); err != nil {
			return errors.WithStack(err)
		}
	}

	watchlist, err := h.owned(c)
	if err != nil {
		return errors.WithStack(err)
	}

	updated, err := h.watchlistService.MarkResultsSeen(ctx, watchlist.ID, params.ResultIDs)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, map[string]int{"updated": updated}))
}
