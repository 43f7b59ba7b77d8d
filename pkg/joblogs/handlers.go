package joblogs

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/shelfwatch/shelfwatch/pkg/auth"
	"github.com/shelfwatch/shelfwatch/pkg/errcodes"
	"github.com/shelfwatch/shelfwatch/pkg/jobs"
	"github.com/shelfwatch/shelfwatch/pkg/models"
)

type handler struct {
	jobLogService *Service
	jobService    *jobs.Service
}

func (h *handler) listLogs(c echo.Context) error {
	ctx := c.Request().Context()

	jobID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Job")
	}

	user := auth.CurrentUser(c)
	if user == nil {
		return errcodes.Unauthorized()
	}
	opts := jobs.RetrieveJobOptions{ID: &jobID}
	if !user.IsAdmin {
		opts.UserID = &user.ID
	}
	job, err := h.jobService.RetrieveJob(ctx, opts)
	if err != nil {
		return errors.WithStack(err)
	}

	params := ListJobLogsQuery{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	logs, err := h.jobLogService.ListJobLogs(ctx, ListJobLogsOptions{
		JobID:   jobID,
		AfterID: params.AfterID,
		Levels:  params.Level,
		Source:  params.Source,
		Search:  params.Search,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	resp := struct {
		Logs []*models.JobLog `json:"logs"`
		Job  *models.Job      `json:"job"`
	}{logs, job}

	return errors.WithStack(c.JSON(http.StatusOK, resp))
}
