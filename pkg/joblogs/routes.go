package joblogs

import (
	"github.com/labstack/echo/v4"
	"github.com/shelfwatch/shelfwatch/pkg/jobs"
	"github.com/uptrace/bun"
)

// RegisterRoutes adds GET /:id/logs to the jobs group.
func RegisterRoutes(jobsGroup *echo.Group, db *bun.DB) {
	h := &handler{
		jobLogService: NewService(db),
		jobService:    jobs.NewService(db),
	}

	jobsGroup.GET("/:id/logs", h.listLogs)
}
