package config

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/shelfwatch/shelfwatch/pkg/version"
)

type handler struct {
	configService *Service
}

func (h *handler) retrieve(c echo.Context) error {
	settings := h.configService.RetrieveSettings(version.Version)
	return errors.WithStack(c.JSON(http.StatusOK, settings))
}
