package binder

import (
	"net/url"
	"regexp"

	"github.com/go-playground/validator/v10"
	"github.com/shelfwatch/shelfwatch/pkg/identifiers"
)

var (
	dateRE     = regexp.MustCompile(`^\d{4}-(0[0-9]|1[0-2])-(0[0-9]|1[0-9]|2[0-9]|3[0-1])$`)
	languageRE = regexp.MustCompile(`^[a-zA-Z]{2,3}(-[a-zA-Z0-9]{2,8})*$`)
)

// dateValidator ensures the value matches the format YYYY-MM-DD or the empty
// string. The empty string is allowed so the validator can be used to clear
// out values; add `ne=` to the validate tag when the value is required.
func dateValidator(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true
	}
	return dateRE.MatchString(value)
}

// urlValidator accepts absolute http(s) URLs or the empty string.
func urlValidator(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true
	}
	u, err := url.Parse(value)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// isbnValidator accepts a checksummed ISBN-10 or ISBN-13 with optional
// hyphens and spaces, or the empty string.
func isbnValidator(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true
	}
	_, t := identifiers.ParseISBN(value)
	return t != identifiers.TypeUnknown
}

// languageValidator accepts BCP 47-ish tags such as "en", "eng" or "pt-BR".
func languageValidator(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true
	}
	return languageRE.MatchString(value)
}
