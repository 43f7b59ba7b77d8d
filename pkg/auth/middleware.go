package auth

import (
	"context"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/shelfwatch/shelfwatch/pkg/errcodes"
	"github.com/shelfwatch/shelfwatch/pkg/models"
)

type contextKey string

const ContextKeyUser contextKey = "user"

// Middleware provides authentication middleware.
type Middleware struct {
	authService *Service
}

// NewMiddleware creates a new auth middleware.
func NewMiddleware(authService *Service) *Middleware {
	return &Middleware{
		authService: authService,
	}
}

// Authenticate accepts a JWT from the "Authorization: Bearer" header or the
// session cookie, verifies the user still exists and stores it on both the
// echo context and the request context. Otherwise it returns 401.
func (m *Middleware) Authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		user, err := m.userFromRequest(c)
		if err != nil {
			return err
		}
		setUser(c, user)
		return next(c)
	}
}

// AuthenticateOptional stores the user when a valid token is present but
// never rejects the request.
func (m *Middleware) AuthenticateOptional(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if user, err := m.userFromRequest(c); err == nil {
			setUser(c, user)
		}
		return next(c)
	}
}

// RequireAdmin must be used after Authenticate.
func (m *Middleware) RequireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		user := CurrentUser(c)
		if user == nil {
			return errcodes.Unauthorized()
		}
		if !user.IsAdmin {
			return errcodes.Forbidden("This action")
		}
		return next(c)
	}
}

func (m *Middleware) userFromRequest(c echo.Context) (*models.User, error) {
	token := bearerToken(c)
	if token == "" {
		if cookie, err := c.Cookie(CookieName); err == nil {
			token = cookie.Value
		}
	}
	if token == "" {
		return nil, errcodes.Unauthorized()
	}

	claims, err := m.authService.ValidateToken(token)
	if err != nil {
		return nil, errcodes.Unauthorized()
	}

	id, err := claims.UserID()
	if err != nil {
		return nil, errcodes.Unauthorized()
	}
	user, err := m.authService.GetUserByID(c.Request().Context(), id)
	if err != nil {
		return nil, errcodes.Unauthorized()
	}
	return user, nil
}

func bearerToken(c echo.Context) string {
	header := c.Request().Header.Get(echo.HeaderAuthorization)
	if len(header) > 7 && strings.EqualFold(header[:7], "bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return ""
}

func setUser(c echo.Context, user *models.User) {
	c.Set("user_id", user.ID)
	c.Set("user", user)
	req := c.Request()
	c.SetRequest(req.WithContext(context.WithValue(req.Context(), ContextKeyUser, user)))
}

// CurrentUser returns the user stored by Authenticate, or nil.
func CurrentUser(c echo.Context) *models.User {
	user, _ := c.Get("user").(*models.User)
	return user
}

// GetUserFromContext retrieves the user from a request context.
func GetUserFromContext(ctx context.Context) *models.User {
	user, _ := ctx.Value(ContextKeyUser).(*models.User)
	return user
}

// GetUserIDFromContext retrieves the user ID from the Echo context.
func GetUserIDFromContext(c echo.Context) (int, bool) {
	userID, ok := c.Get("user_id").(int)
	return userID, ok
}
