// Package pdf reads the document information dictionary of PDF files.
package pdf

import (
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pkg/errors"
	"github.com/shelfwatch/shelfwatch/pkg/cleanup"
	"github.com/shelfwatch/shelfwatch/pkg/mediafile"
	"github.com/shelfwatch/shelfwatch/pkg/models"
)

func init() {
	// pdfcpu otherwise creates a configuration directory on first use.
	api.DisableConfigDir()
}

// Info is the subset of the information dictionary that carries book
// metadata.
type Info struct {
	Title        string
	Author       string
	Subject      string
	Keywords     string
	CreationDate string
	PageCount    int
}

// Parse reads the PDF at path. Titles that are missing or are just a file
// name are left empty for the filename heuristics to fill.
func Parse(path string) (*mediafile.ParsedMetadata, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	defer f.Close()

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	ctx, err := api.ReadContext(f, conf)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read pdf")
	}
	if err := api.ValidateContext(ctx); err != nil {
		return nil, errors.Wrap(err, "failed to validate pdf")
	}

	xref := ctx.XRefTable
	return FromInfo(Info{
		Title:        xref.Title,
		Author:       xref.Author,
		Subject:      xref.Subject,
		Keywords:     xref.Keywords,
		CreationDate: xref.CreationDate,
		PageCount:    xref.PageCount,
	}), nil
}

// producerTitleRE matches titles that word processors fill in from the
// source file name, e.g. "Microsoft Word - draft.docx".
var producerTitleRE = regexp.MustCompile(`(?i)^(?:microsoft word - .*|untitled(?:-\d+)?|.*\.(?:docx?|pdf|indd|tex|odt|rtf))$`)

func FromInfo(info Info) *mediafile.ParsedMetadata {
	md := &mediafile.ParsedMetadata{
		Authors:     cleanup.SplitAuthors(info.Author),
		Description: strings.TrimSpace(info.Subject),
		ReleaseDate: parseDate(info.CreationDate),
		DataSource:  models.DataSourceFile,
	}

	if title := strings.TrimSpace(info.Title); title != "" && !producerTitleRE.MatchString(title) {
		md.Title = cleanup.CleanTitle(title)
	}
	if info.PageCount > 0 {
		pages := info.PageCount
		md.PageCount = &pages
	}
	for _, kw := range strings.FieldsFunc(info.Keywords, func(r rune) bool { return r == ',' || r == ';' }) {
		if kw = strings.TrimSpace(kw); kw != "" {
			md.Tags = append(md.Tags, kw)
		}
	}

	return md
}

// parseDate reads a PDF date string, "D:YYYYMMDDHHmmSS" followed by an
// optional offset. Missing trailing components default to their minimum.
func parseDate(s string) *time.Time {
	s = strings.TrimPrefix(strings.TrimSpace(s), "D:")
	digits := 0
	for digits < len(s) && digits < 14 && s[digits] >= '0' && s[digits] <= '9' {
		digits++
	}
	layouts := map[int]string{4: "2006", 6: "200601", 8: "20060102", 12: "200601021504", 14: "20060102150405"}
	layout, ok := layouts[digits]
	if !ok || (digits < len(s) && s[digits] == '-') {
		return mediafile.ParseDate(s)
	}
	t, err := time.Parse(layout, s[:digits])
	if err != nil || t.Year() < 1 {
		return nil
	}
	return &t
}
