package jobs

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/segmentio/encoding/json"
	"github.com/shelfwatch/shelfwatch/pkg/auth"
	"github.com/shelfwatch/shelfwatch/pkg/books"
	"github.com/shelfwatch/shelfwatch/pkg/errcodes"
	"github.com/shelfwatch/shelfwatch/pkg/models"
	"github.com/shelfwatch/shelfwatch/pkg/watchlists"
)

type handler struct {
	jobService       *Service
	bookService      *books.Service
	watchlistService *watchlists.Service
}

// scope returns the user ID that job queries are limited to. Admins see
// every job.
func scope(c echo.Context) (*int, error) {
	user := auth.CurrentUser(c)
	if user == nil {
		return nil, errcodes.Unauthorized()
	}
	if user.IsAdmin {
		return nil, nil
	}
	return &user.ID, nil
}

func (h *handler) create(c echo.Context) error {
	ctx := c.Request().Context()

	// Bind params.
	params := CreateJobPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	user := auth.CurrentUser(c)
	if user == nil {
		return errcodes.Unauthorized()
	}

	job := &models.Job{
		Type:   params.Type,
		Status: models.JobStatusPending,
		UserID: &user.ID,
	}
	if params.Data != nil {
		raw, err := json.Marshal(params.Data)
		if err != nil {
			return errors.WithStack(err)
		}
		job.Data = string(raw)
	}
	if err := job.UnmarshalData(); err != nil {
		return errcodes.ValidationError("Job data does not match the job type.")
	}
	// Store the normalized form.
	job.Data = ""

	switch data := job.DataParsed.(type) {
	case *models.JobEnrichData:
		if data.BookID <= 0 {
			return errcodes.ValidationError("Enrich jobs need a book_id.")
		}
		if _, err := h.bookService.RetrieveBook(ctx, books.RetrieveBookOptions{ID: &data.BookID}); err != nil {
			return errors.WithStack(err)
		}
	case *models.JobImportData:
		if !user.IsAdmin {
			return errcodes.Forbidden("Starting an import")
		}
		if err := h.requireIdle(c, models.JobTypeImport, "An import is already running or pending."); err != nil {
			return err
		}
	case *models.JobWatchlistCheckData:
		if data.WatchlistID != nil {
			opts := watchlists.RetrieveWatchlistOptions{ID: data.WatchlistID}
			if !user.IsAdmin {
				opts.UserID = &user.ID
			}
			if _, err := h.watchlistService.RetrieveWatchlist(ctx, opts); err != nil {
				return errors.WithStack(err)
			}
			break
		}
		if !user.IsAdmin {
			return errcodes.Forbidden("Checking every watchlist")
		}
		if err := h.requireIdle(c, models.JobTypeWatchlistCheck, "A watchlist check is already running or pending."); err != nil {
			return err
		}
	}

	err := h.jobService.CreateJob(ctx, job)
	if err != nil {
		return errors.WithStack(err)
	}

	job, err = h.jobService.RetrieveJob(ctx, RetrieveJobOptions{
		ID: &job.ID,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	logger.FromContext(c.Request().Context()).Info("job queued", logger.Data{"job_id": job.ID, "type": job.Type})

	return errors.WithStack(c.JSON(http.StatusCreated, job))
}

func (h *handler) requireIdle(c echo.Context, jobType, message string) error {
	active, err := h.jobService.HasActiveJobByType(c.Request().Context(), jobType)
	if err != nil {
		return errors.WithStack(err)
	}
	if active {
		return errcodes.Conflict(message)
	}
	return nil
}

func (h *handler) retrieve(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Job")
	}

	userID, err := scope(c)
	if err != nil {
		return err
	}

	job, err := h.jobService.RetrieveJob(ctx, RetrieveJobOptions{
		ID:     &id,
		UserID: userID,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, job))
}

func (h *handler) list(c echo.Context) error {
	ctx := c.Request().Context()

	// Bind params.
	params := ListJobsQuery{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	userID, err := scope(c)
	if err != nil {
		return err
	}

	jobs, total, err := h.jobService.ListJobsWithTotal(ctx, ListJobsOptions{
		Limit:    &params.Limit,
		Offset:   &params.Offset,
		Statuses: params.Status,
		Type:     params.Type,
		UserID:   userID,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	resp := struct {
		Jobs  []*models.Job `json:"jobs"`
		Total int           `json:"total"`
	}{jobs, total}

	return errors.WithStack(c.JSON(http.StatusOK, resp))
}
