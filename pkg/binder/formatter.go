package binder

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/schema"
	"github.com/segmentio/encoding/json"
)

// Validation tags with a dedicated message.
const (
	date     = "date"
	gt       = "gt"
	isbn     = "isbn"
	lang     = "lang"
	mx       = "max"
	mn       = "min"
	oneof    = "oneof"
	required = "required"
	urlTag   = "url"
)

func formatUnmarshalTypeError(err *json.UnmarshalTypeError) string {
	return fmt.Sprintf("%q should be of type %s", strings.Trim(err.Field, "."), err.Type)
}

func formatSchemaConversionError(err schema.ConversionError) string {
	return fmt.Sprintf("%q should be of type %s", err.Key, err.Type)
}

func formatValidationError(err validator.FieldError) string {
	field := err.Field()

	switch err.Tag() {
	case required:
		return fmt.Sprintf("%q is required", field)
	case mx:
		return boundMessage(field, "less", err)
	case mn:
		return boundMessage(field, "greater", err)
	case gt:
		return fmt.Sprintf("%q must be greater than %s", field, err.Param())
	case oneof:
		quoted := strings.Fields(err.Param())
		for i, p := range quoted {
			quoted[i] = fmt.Sprintf("%q", p)
		}
		return fmt.Sprintf("%q must be one of the following: %s", field, strings.Join(quoted, ", "))
	case date:
		return fmt.Sprintf("%q should be in the format of YYYY-MM-DD", field)
	case isbn:
		return fmt.Sprintf("%q is not a valid ISBN", field)
	case lang:
		return fmt.Sprintf("%q is not a valid language code", field)
	case urlTag:
		return fmt.Sprintf("%q must be an http or https URL", field)
	}
	return fmt.Sprintf("%q is invalid", field)
}

// boundMessage words min/max failures: numbers compare by value, strings
// and slices by length.
func boundMessage(field, direction string, err validator.FieldError) string {
	param := err.Param()

	var unit string
	//exhaustive:ignore
	switch err.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return fmt.Sprintf("%q must be %s than or equal to %s", field, direction, param)
	case reflect.Slice, reflect.Array, reflect.Map:
		unit = "element"
	default:
		unit = "character"
	}
	if param != "1" {
		unit += "s"
	}
	return fmt.Sprintf("%q length must be %s than or equal to %s %s", field, direction, param, unit)
}
