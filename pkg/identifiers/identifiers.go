package identifiers

import (
	"regexp"
	"strings"
	"unicode"
)

// Type is the kind of a book identifier.
type Type string

const (
	TypeISBN10      Type = "isbn_10"
	TypeISBN13      Type = "isbn_13"
	TypeASIN        Type = "asin"
	TypeUUID        Type = "uuid"
	TypeOpenLibrary Type = "openlibrary"
	TypeUnknown     Type = ""
)

var (
	uuidRE        = regexp.MustCompile(`^(?i:urn:uuid:)?[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)
	asinRE        = regexp.MustCompile(`^B0[A-Z0-9]{8}$`)
	openLibraryRE = regexp.MustCompile(`^OL[0-9]+[AMW]$`)
)

// schemes maps the identifier schemes found in OPF and FB2 files to a type.
// A nil entry means the value decides between ISBN-10 and ISBN-13.
var schemes = map[string]func(string) Type{
	"ISBN":        isbnType,
	"ASIN":        func(string) Type { return TypeASIN },
	"MOBI-ASIN":   func(string) Type { return TypeASIN },
	"AMAZON":      func(string) Type { return TypeASIN },
	"UUID":        func(string) Type { return TypeUUID },
	"OPENLIBRARY": func(string) Type { return TypeOpenLibrary },
}

// DetectType classifies value. A known scheme wins; an unknown non-empty
// scheme gives TypeUnknown; otherwise the value's shape decides.
func DetectType(value, scheme string) Type {
	value = strings.TrimSpace(value)
	scheme = strings.ToUpper(strings.TrimSpace(scheme))
	if scheme != "" {
		if fn, ok := schemes[scheme]; ok {
			return fn(value)
		}
		return TypeUnknown
	}

	if t := isbnType(value); t != TypeUnknown {
		return t
	}
	upper := strings.ToUpper(value)
	switch {
	case uuidRE.MatchString(value):
		return TypeUUID
	case asinRE.MatchString(upper):
		return TypeASIN
	case openLibraryRE.MatchString(upper):
		return TypeOpenLibrary
	}
	return TypeUnknown
}

func isbnType(value string) Type {
	_, t := ParseISBN(value)
	return t
}

// NormalizeISBN drops an "ISBN" prefix and everything that is not a digit or
// an X. It does not check the checksum.
func NormalizeISBN(value string) string {
	value = strings.ToUpper(strings.TrimSpace(value))
	value = strings.TrimPrefix(value, "ISBN")
	value = strings.TrimPrefix(value, "-13")
	value = strings.TrimPrefix(value, "-10")
	value = strings.TrimLeft(value, ": ")

	var b strings.Builder
	for _, r := range value {
		if unicode.IsDigit(r) || r == 'X' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ParseISBN normalizes value and returns it together with its type when the
// checksum holds. Anything else returns ("", TypeUnknown).
func ParseISBN(value string) (string, Type) {
	n := NormalizeISBN(value)
	switch {
	case ValidateISBN13(n):
		return n, TypeISBN13
	case ValidateISBN10(n):
		return n, TypeISBN10
	}
	return "", TypeUnknown
}

// ValidateISBN10 checks the mod 11 checksum. X is only allowed last.
func ValidateISBN10(isbn string) bool {
	if len(isbn) != 10 {
		return false
	}
	check, ok := isbn10CheckDigit(isbn[:9])
	return ok && strings.EqualFold(isbn[9:], string(check))
}

// ValidateISBN13 checks the alternating 1/3 weighted checksum.
func ValidateISBN13(isbn string) bool {
	if len(isbn) != 13 {
		return false
	}
	check, ok := isbn13CheckDigit(isbn[:12])
	return ok && isbn[12] == check
}

// ToISBN13 converts a valid ISBN-10 to its 978-prefixed ISBN-13. A valid
// ISBN-13 is returned as is.
func ToISBN13(isbn string) (string, bool) {
	n, t := ParseISBN(isbn)
	switch t {
	case TypeISBN13:
		return n, true
	case TypeISBN10:
		body := "978" + n[:9]
		check, _ := isbn13CheckDigit(body)
		return body + string(check), true
	}
	return "", false
}

// ToISBN10 converts a 978-prefixed ISBN-13 back to ISBN-10. 979 numbers have
// no ISBN-10 form.
func ToISBN10(isbn string) (string, bool) {
	n, t := ParseISBN(isbn)
	switch t {
	case TypeISBN10:
		return n, true
	case TypeISBN13:
		if !strings.HasPrefix(n, "978") {
			return "", false
		}
		body := n[3:12]
		check, _ := isbn10CheckDigit(body)
		return body + string(check), true
	}
	return "", false
}

// Equivalents lists every valid form of isbn, ISBN-13 first.
func Equivalents(isbn string) []string {
	out := make([]string, 0, 2)
	if v, ok := ToISBN13(isbn); ok {
		out = append(out, v)
	}
	if v, ok := ToISBN10(isbn); ok {
		out = append(out, v)
	}
	return out
}

// IsASIN reports whether value looks like an Amazon product ID. Books sold
// in print often use their ISBN-10 as ASIN, which also counts.
func IsASIN(value string) bool {
	value = strings.ToUpper(strings.TrimSpace(value))
	return asinRE.MatchString(value) || ValidateISBN10(value)
}

func isbn10CheckDigit(body string) (byte, bool) {
	if len(body) != 9 {
		return 0, false
	}
	sum := 0
	for i := 0; i < 9; i++ {
		if body[i] < '0' || body[i] > '9' {
			return 0, false
		}
		sum += int(body[i]-'0') * (10 - i)
	}
	switch r := (11 - sum%11) % 11; r {
	case 10:
		return 'X', true
	default:
		return byte('0' + r), true
	}
}

func isbn13CheckDigit(body string) (byte, bool) {
	if len(body) != 12 {
		return 0, false
	}
	sum := 0
	for i := 0; i < 12; i++ {
		if body[i] < '0' || body[i] > '9' {
			return 0, false
		}
		d := int(body[i] - '0')
		if i%2 == 1 {
			d *= 3
		}
		sum += d
	}
	return byte('0' + (10-sum%10)%10), true
}
