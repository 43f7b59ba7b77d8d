package config

import (
	"github.com/labstack/echo/v4"
)

// RegisterRoutesWithGroup registers config routes. The caller is expected to have applied
// authentication and admin checks to the group.
func RegisterRoutesWithGroup(g *echo.Group, cfg *Config) {
	configService := NewService(cfg)
	h := &handler{configService: configService}

	g.GET("", h.retrieve)
}
