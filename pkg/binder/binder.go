// Package binder decodes request payloads, normalizes them with mold, fills
// defaults, and validates them, turning every failure into an errcodes error.
package binder

import (
	"encoding/json"
	"net/http"
	"net/url"
	"reflect"
	"regexp"
	"strings"

	"github.com/creasty/defaults"
	"github.com/go-playground/mold/v4"
	"github.com/go-playground/mold/v4/modifiers"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/schema"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/echo/v4/middleware/logger"
	"github.com/shelfwatch/shelfwatch/pkg/errcodes"
)

const (
	// Book uploads go through multipart; JSON bodies never need to be large.
	maxJSONBodyBytes = 1 << 20

	// Handlers set these on the echo context to relax the defaults.
	AllowEmptyBodyKey     = "allow_empty_body"
	AllowUnknownFieldsKey = "allow_unknown_fields"
)

var unknownFieldRE = regexp.MustCompile(`^json: unknown field "(.*)"$`)

// Binder implements echo.Binder.
type Binder struct {
	query    *schema.Decoder
	form     *schema.Decoder
	conform  *mold.Transformer
	validate *validator.Validate
}

func New() (*Binder, error) {
	b := &Binder{
		query:    schema.NewDecoder(),
		form:     schema.NewDecoder(),
		conform:  modifiers.New(),
		validate: validator.New(),
	}
	b.query.SetAliasTag("query")
	b.form.SetAliasTag("form")

	// Report JSON names in validation messages.
	b.validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	custom := map[string]validator.Func{
		date:   dateValidator,
		urlTag: urlValidator,
		isbn:   isbnValidator,
		lang:   languageValidator,
	}
	for tag, fn := range custom {
		if err := b.validate.RegisterValidation(tag, fn); err != nil {
			return nil, errors.Wrapf(err, "registering %q validator", tag)
		}
	}

	return b, nil
}

// Bind decodes the body (or the query string when there is no body), then
// trims, defaults, and validates i.
func (b *Binder) Bind(i interface{}, c echo.Context) error {
	req := c.Request()

	var err error
	switch {
	case req.ContentLength != 0:
		err = b.bindBody(i, c)
	case req.Method == http.MethodGet || req.Method == http.MethodDelete || req.Method == http.MethodHead:
		err = decode(b.query, i, c.QueryParams())
	case !flag(c, AllowEmptyBodyKey):
		err = errcodes.EmptyRequestBody()
	}
	if err != nil {
		return err
	}

	if err := b.conform.Struct(req.Context(), i); err != nil {
		return errors.WithStack(err)
	}
	if err := defaults.Set(i); err != nil {
		return errors.WithStack(err)
	}
	if err := b.validate.Struct(i); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return errcodes.ValidationError(formatValidationError(verrs[0]))
		}
		return errors.WithStack(err)
	}
	return nil
}

func (b *Binder) bindBody(i interface{}, c echo.Context) error {
	ctype := c.Request().Header.Get(echo.HeaderContentType)
	switch {
	case strings.HasPrefix(ctype, echo.MIMEApplicationJSON):
		return bindJSON(i, c)
	case strings.HasPrefix(ctype, echo.MIMEMultipartForm):
		if err := b.bindForm(i, c); err != nil {
			return err
		}
		return bindFiles(i, c)
	case strings.HasPrefix(ctype, echo.MIMEApplicationForm):
		return b.bindForm(i, c)
	}
	return errcodes.UnsupportedMediaType()
}

func bindJSON(i interface{}, c echo.Context) error {
	req := c.Request()
	defer req.Body.Close()

	dec := json.NewDecoder(http.MaxBytesReader(c.Response(), req.Body, maxJSONBodyBytes))
	if !flag(c, AllowUnknownFieldsKey) {
		dec.DisallowUnknownFields()
	}
	err := dec.Decode(i)
	if err == nil {
		return nil
	}

	if m := unknownFieldRE.FindStringSubmatch(err.Error()); m != nil {
		return errcodes.UnknownParameter(m[1])
	}
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return errcodes.ValidationTypeError(formatUnmarshalTypeError(typeErr))
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return errcodes.ValidationError("Request body is too large.")
	}
	logger.FromEchoContext(c).Err(err).Warn("undecodable json body")
	return errcodes.MalformedPayload()
}

func (b *Binder) bindForm(i interface{}, c echo.Context) error {
	params, err := c.FormParams()
	if err != nil {
		return errcodes.MalformedPayload()
	}
	return decode(b.form, i, params)
}

// bindFiles puts the first file of every multipart field into a
// map[string]*multipart.FileHeader field named FormFiles, when i has one.
func bindFiles(i interface{}, c echo.Context) error {
	form, err := c.MultipartForm()
	if err != nil {
		return errors.WithStack(err)
	}
	field := reflect.ValueOf(i).Elem().FieldByName("FormFiles")
	if !field.IsValid() || !field.CanSet() || len(form.File) == 0 {
		return nil
	}
	files := reflect.MakeMap(field.Type())
	for name, headers := range form.File {
		if len(headers) > 0 {
			files.SetMapIndex(reflect.ValueOf(name), reflect.ValueOf(headers[0]))
		}
	}
	field.Set(files)
	return nil
}

func decode(dec *schema.Decoder, i interface{}, values url.Values) error {
	err := dec.Decode(i, values)
	if err == nil {
		return nil
	}
	var multi schema.MultiError
	if !errors.As(err, &multi) {
		return errors.WithStack(err)
	}
	// Report one problem at a time, like the validator does.
	for _, e := range multi {
		var conv schema.ConversionError
		if errors.As(e, &conv) {
			return errcodes.ValidationTypeError(formatSchemaConversionError(conv))
		}
		var unknown schema.UnknownKeyError
		if errors.As(e, &unknown) {
			return errcodes.UnknownParameter(unknown.Key)
		}
		return errors.WithStack(e)
	}
	return errors.WithStack(err)
}

func flag(c echo.Context, key string) bool {
	v, _ := c.Get(key).(bool)
	return v
}
