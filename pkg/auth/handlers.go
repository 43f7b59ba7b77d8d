package auth

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/shelfwatch/shelfwatch/pkg/errcodes"
	"github.com/shelfwatch/shelfwatch/pkg/models"
)

const (
	// CookieName is the name of the session cookie.
	CookieName = "shelfwatch_session"
	// CookieMaxAge is how long the cookie is valid.
	CookieMaxAge = 7 * 24 * time.Hour // 7 days
)

type handler struct {
	authService *Service
}

func buildLoginResponse(user *models.User, token string) LoginResponse {
	return LoginResponse{
		Token: token,
		User:  buildMeResponse(user),
	}
}

func buildMeResponse(user *models.User) MeResponse {
	return MeResponse{
		ID:       user.ID,
		Username: user.Username,
		IsAdmin:  user.IsAdmin,
	}
}

func (h *handler) login(c echo.Context) error {
	ctx := c.Request().Context()

	params := LoginPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	user, err := h.authService.Authenticate(ctx, params.Username, params.Password)
	if err != nil {
		return errors.WithStack(err)
	}

	token, err := h.authService.GenerateToken(user)
	if err != nil {
		return errors.WithStack(err)
	}

	setSessionCookie(c, token, int(CookieMaxAge.Seconds()))

	return errors.WithStack(c.JSON(http.StatusOK, buildLoginResponse(user, token)))
}

func (h *handler) logout(c echo.Context) error {
	// MaxAge -1 clears the cookie.
	setSessionCookie(c, "", -1)
	return errors.WithStack(c.NoContent(http.StatusNoContent))
}

// me returns the authenticated user; it runs behind Authenticate.
func (h *handler) me(c echo.Context) error {
	user := CurrentUser(c)
	if user == nil {
		return errcodes.Unauthorized()
	}
	return errors.WithStack(c.JSON(http.StatusOK, buildMeResponse(user)))
}

// status returns whether the app needs initial setup.
func (h *handler) status(c echo.Context) error {
	ctx := c.Request().Context()

	count, err := h.authService.CountUsers(ctx)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, StatusResponse{
		NeedsSetup: count == 0,
	}))
}

// setup creates the first admin user and logs them in.
func (h *handler) setup(c echo.Context) error {
	ctx := c.Request().Context()

	params := SetupPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	user, err := h.authService.CreateFirstAdmin(ctx, params.Username, params.Password)
	if err != nil {
		return errors.WithStack(err)
	}

	token, err := h.authService.GenerateToken(user)
	if err != nil {
		return errors.WithStack(err)
	}

	setSessionCookie(c, token, int(CookieMaxAge.Seconds()))

	return errors.WithStack(c.JSON(http.StatusCreated, buildLoginResponse(user, token)))
}

func setSessionCookie(c echo.Context, value string, maxAge int) {
	c.SetCookie(&http.Cookie{
		Name:     CookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   c.Request().TLS != nil || c.Request().Header.Get("X-Forwarded-Proto") == "https",
		SameSite: http.SameSiteLaxMode,
	})
}
