package errcodes

import (
	"context"
	"fmt"
	"net/http"

	"github.com/iancoleman/strcase"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	echologger "github.com/robinjoseph08/golib/echo/v4/middleware/logger"
	"github.com/robinjoseph08/golib/errutils"
	"github.com/robinjoseph08/golib/logger"
)

type ErrorBody struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"status_code"`
}

// Response is the JSON envelope every failed request gets.
type Response struct {
	Error ErrorBody `json:"error"`
}

type Handler struct{}

func NewHandler() *Handler {
	return &Handler{}
}

// Handle is an Echo error handler. *Error and *echo.HTTPError keep their
// status; anything else is a 500 with a generic message.
func (h *Handler) Handle(err error, c echo.Context) {
	log := echologger.FromEchoContext(c)

	if errutils.IsIgnorableErr(err) || errors.Is(err, context.Canceled) {
		log.Err(err).Warn("client went away")
		return
	}
	if c.Response().Committed {
		log.Err(err).Warn("error after the response was sent")
		return
	}

	resp := ToResponse(err)
	switch code := resp.Error.StatusCode; {
	case code == http.StatusInternalServerError:
		log.Err(err).Error("server error")
	case code >= http.StatusInternalServerError:
		log.Err(err).Warn("upstream error", logger.Data{"code": resp.Error.Code})
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(resp.Error.StatusCode)
	} else {
		err = c.JSON(resp.Error.StatusCode, resp)
	}
	if err != nil {
		log.Err(errors.WithStack(err)).Error("error handler json error")
	}
}

func ToResponse(err error) Response {
	body := ErrorBody{StatusCode: http.StatusInternalServerError}

	var e *Error
	var he *echo.HTTPError
	switch {
	case errors.As(err, &e):
		body = ErrorBody{Code: e.Code, Message: e.Message, StatusCode: e.HTTPCode}
	case errors.As(err, &he):
		body.StatusCode = he.Code
		body.Message = fmt.Sprint(he.Message)
		body.Code = strcase.ToSnake(body.Message)
	}

	if body.StatusCode == http.StatusInternalServerError && body.Message == "" {
		body.Code = "internal_server_error"
		body.Message = "Internal Server Error"
	}
	return Response{Error: body}
}
