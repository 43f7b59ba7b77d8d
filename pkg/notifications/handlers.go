package notifications

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
	notificationService *Service
}

func currentUserID(c echo.Context) (int, error) {
	userID, ok := auth.GetUserIDFromContext(c)
	if !ok {
		return 0, errcodes.Unauthorized()
	}
	return userID, nil
}

func (h *handler) list(c echo.Context) error {
	ctx := c.Request().Context()
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}

	params := ListNotificationsQuery{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	notifications, total, err := h.notificationService.ListNotificationsWithTotal(ctx, ListNotificationsOptions{
		Limit:      &params.Limit,
		Offset:     &params.Offset,
		UserID:     userID,
		UnreadOnly: params.UnreadOnly,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	unread, err := h.notificationService.UnreadCount(ctx, userID)
	if err != nil {
		return errors.WithStack(err)
	}

	resp := struct {
		Notifications []*models.Notification `json:"notifications"`
		Total         int                    `json:"total"`
		Unread        int                    `json:"unread"`
	}{notifications, total, unread}

	return errors.WithStack(c.JSON(http.StatusOK, resp))
}

func (h *handler) unreadCount(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	count, err := h.notificationService.UnreadCount(c.Request().Context(), userID)
	if err != nil {
		return errors.WithStack(err)
	}
	return errors.WithStack(c.JSON(http.StatusOK, map[string]int{"unread": count}))
}

func (h *handler) markRead(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Notification")
	}

	n, err := h.notificationService.MarkRead(c.Request().Context(), id, userID)
	if err != nil {
		return errors.WithStack(err)
	}
	return errors.WithStack(c.JSON(http.StatusOK, n))
}

func (h *handler) markAllRead(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	count, err := h.notificationService.MarkAllRead(c.Request().Context(), userID)
	if err != nil {
		return errors.WithStack(err)
	}
	return errors.WithStack(c.JSON(http.StatusOK, map[string]int{"updated": count}))
}

func (h *handler) delete(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Notification")
	}

	if err := h.notificationService.DeleteNotification(c.Request().Context(), id, userID); err != nil {
		return errors.WithStack(err)
	}
	return errors.WithStack(c.NoContent(http.StatusNoContent))
}
