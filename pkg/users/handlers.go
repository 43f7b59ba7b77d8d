package users

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/shelfwatch/shelfwatch/pkg/auth"
	"github.com/shelfwatch/shelfwatch/pkg/errcodes"
	"github.com/shelfwatch/shelfwatch/pkg/models"
)

type handler struct {
	userService *Service
}

func (h *handler) create(c echo.Context) error {
	ctx := c.Request().Context()

	params := CreateUserPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	user, err := h.userService.CreateUser(ctx, CreateUserOptions(params))
	if err != nil {
		return errors.WithStack(err)
	}

	logger.FromContext(c.Request().Context()).Info("user created", logger.Data{"user_id": user.ID, "is_admin": user.IsAdmin})

	return errors.WithStack(c.JSON(http.StatusCreated, user))
}

// retrieve is open to admins and to users looking at themselves.
func (h *handler) retrieve(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("User")
	}
	if current := auth.CurrentUser(c); current == nil || (!current.IsAdmin && current.ID != id) {
		return errcodes.NotFound("User")
	}

	user, err := h.userService.RetrieveUser(ctx, RetrieveUserOptions{ID: &id})
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, user))
}

func (h *handler) list(c echo.Context) error {
	ctx := c.Request().Context()

	params := ListUsersQuery{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	users, total, err := h.userService.ListUsersWithTotal(ctx, ListUsersOptions{
		Limit:  &params.Limit,
		Offset: &params.Offset,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	resp := struct {
		Users []*models.User `json:"users"`
		Total int            `json:"total"`
	}{users, total}

	return errors.WithStack(c.JSON(http.StatusOK, resp))
}

func (h *handler) update(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("User")
	}

	params := UpdateUserPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	user, err := h.userService.RetrieveUser(ctx, RetrieveUserOptions{ID: &id})
	if err != nil {
		return errors.WithStack(err)
	}

	// Keep track of what's been changed.
	opts := UpdateUserOptions{Columns: []string{}}

	if params.Username != nil && *params.Username != user.Username {
		user.Username = *params.Username
		opts.Columns = append(opts.Columns, "username")
	}
	if params.IsAdmin != nil && *params.IsAdmin != user.IsAdmin {
		user.IsAdmin = *params.IsAdmin
		opts.Columns = append(opts.Columns, "is_admin")
	}

	if err := h.userService.UpdateUser(ctx, user, opts); err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, user))
}

func (h *handler) resetPassword(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("User")
	}

	params := ResetPasswordPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	current := auth.CurrentUser(c)
	if current == nil {
		return errcodes.Unauthorized()
	}

	if current.ID == id {
		if params.CurrentPassword == nil || *params.CurrentPassword == "" {
			return errcodes.ValidationError("Current password is required when changing your own password.")
		}
		valid, err := h.userService.VerifyPassword(ctx, id, *params.CurrentPassword)
		if err != nil {
			return errors.WithStack(err)
		}
		if !valid {
			return errcodes.ValidationError("Current password is incorrect.")
		}
	} else if !current.IsAdmin {
		return errcodes.Forbidden("Changing another user's password")
	}

	if err := h.userService.ResetPassword(ctx, id, params.NewPassword); err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.NoContent(http.StatusNoContent))
}

func (h *handler) delete(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("User")
	}

	if current := auth.CurrentUser(c); current != nil && current.ID == id {
		return errcodes.ValidationError("You cannot delete your own account.")
	}

	if err := h.userService.DeleteUser(ctx, id); err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.NoContent(http.StatusNoContent))
}
