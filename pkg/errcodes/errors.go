package errcodes

import (
	"fmt"
	"net/http"

	"github.com/pkg/errors"
)

type Error struct {
	HTTPCode int
	Message  string
	Code     string
}

func (err *Error) Error() string {
	return err.Message
}

func (err *Error) As(target interface{}) bool {
	te, ok := target.(*Error)
	if !ok {
		return false
	}
	te.HTTPCode = err.HTTPCode
	te.Message = err.Message
	te.Code = err.Code
	return true
}

func (err *Error) Is(target error) bool {
	te, ok := target.(*Error)
	if !ok {
		return false
	}
	return te.HTTPCode == err.HTTPCode &&
		te.Message == err.Message &&
		te.Code == err.Code
}

// Forbidden returns a 403 error with a message indicating the action is
// forbidden.
func Forbidden(action string) error {
	return &Error{
		http.StatusForbidden,
		action + " is not allowed.",
		"forbidden",
	}
}

// NotFound returns a 404 error with a message indicating the given resource.
func NotFound(resource string) error {
	return &Error{
		http.StatusNotFound,
		resource + " not found.",
		"not_found",
	}
}

func UnsupportedMediaType() error {
	return &Error{
		http.StatusUnsupportedMediaType,
		"Unsupported Media Type",
		"unsupported_media_type",
	}
}

func UnknownParameter(param string) error {
	return &Error{
		http.StatusUnprocessableEntity,
		fmt.Sprintf("Unknown Parameter %q", param),
		"unknown_parameter",
	}
}

func ValidationTypeError(msg string) error {
	return &Error{
		http.StatusUnprocessableEntity,
		msg,
		"validation_type_error",
	}
}

func ValidationError(msg string) error {
	return &Error{
		http.StatusUnprocessableEntity,
		msg,
		"validation_error",
	}
}

func MalformedPayload() error {
	return &Error{
		http.StatusBadRequest,
		"Malformed Payload",
		"malformed_payload",
	}
}

// Conflict returns a 409 error for an entity that already exists.
func Conflict(msg string) error {
	return &Error{
		http.StatusConflict,
		msg,
		"conflict",
	}
}

func Unauthorized() error {
	return &Error{
		http.StatusUnauthorized,
		"Authentication required.",
		"unauthorized",
	}
}

func InvalidCredentials() error {
	return &Error{
		http.StatusUnauthorized,
		"Invalid username or password.",
		"invalid_credentials",
	}
}

// UnsupportedFormat returns a 415 error naming the file extension no parser handles.
func UnsupportedFormat(ext string) error {
	if ext == "" {
		ext = "(none)"
	}
	return &Error{
		http.StatusUnsupportedMediaType,
		fmt.Sprintf("Unsupported file format %q.", ext),
		"unsupported_format",
	}
}

// Unavailable returns a 503 error for a feature that is disabled or a dependency that is down.
func Unavailable(msg string) error {
	return &Error{
		http.StatusServiceUnavailable,
		msg,
		"unavailable",
	}
}

// UpstreamError returns a 502 error for a failing external metadata source.
func UpstreamError(source string) error {
	return &Error{
		http.StatusBadGateway,
		source + " request failed.",
		"upstream_error",
	}
}

// IsNotFound reports whether err is any errcodes 404.
func IsNotFound(err error) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.HTTPCode == http.StatusNotFound
}

// IsConflict reports whether err is any errcodes 409.
func IsConflict(err error) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.HTTPCode == http.StatusConflict
}

func EmptyRequestBody() error {
	return &Error{
		http.StatusBadRequest,
		"Request body can't be empty.",
		"empty_request_body",
	}
}
