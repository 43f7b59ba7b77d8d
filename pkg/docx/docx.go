// Package docx reads the document properties of Office Open XML word
// processing files.
package docx

import (
	"archive/zip"
	"encoding/xml"
	"io"
	"strings"

	"github.com/pkg/errors"
	"github.com/shelfwatch/shelfwatch/pkg/cleanup"
	"github.com/shelfwatch/shelfwatch/pkg/mediafile"
	"github.com/shelfwatch/shelfwatch/pkg/models"
)

type coreProperties struct {
	Title       string `xml:"title"`
	Subject     string `xml:"subject"`
	Creator     string `xml:"creator"`
	Description string `xml:"description"`
	Keywords    string `xml:"keywords"`
	Language    string `xml:"language"`
	Created     string `xml:"created"`
}

type appProperties struct {
	Pages   int    `xml:"Pages"`
	Company string `xml:"Company"`
}

// Parse reads docProps/core.xml and docProps/app.xml from the document at
// path. A document without properties yields empty metadata, not an error.
func Parse(path string) (*mediafile.ParsedMetadata, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	defer zr.Close()

	core := coreProperties{}
	app := appProperties{}
	for _, f := range zr.File {
		switch f.Name {
		case "docProps/core.xml":
			if err := decodeEntry(f, &core); err != nil {
				return nil, err
			}
		case "docProps/app.xml":
			if err := decodeEntry(f, &app); err != nil {
				return nil, err
			}
		}
	}

	md := &mediafile.ParsedMetadata{
		Title:       cleanup.CleanTitle(strings.TrimSpace(core.Title)),
		Authors:     cleanup.SplitAuthors(core.Creator),
		Description: strings.TrimSpace(core.Description),
		Language:    strings.TrimSpace(core.Language),
		ReleaseDate: mediafile.ParseDate(core.Created),
		DataSource:  models.DataSourceFile,
	}
	if md.Description == "" {
		md.Description = strings.TrimSpace(core.Subject)
	}
	for _, kw := range strings.FieldsFunc(core.Keywords, func(r rune) bool { return r == ',' || r == ';' }) {
		if kw = strings.TrimSpace(kw); kw != "" {
			md.Tags = append(md.Tags, kw)
		}
	}
	if app.Pages > 0 {
		pages := app.Pages
		md.PageCount = &pages
	}

	return md, nil
}

func decodeEntry(f *zip.File, v interface{}) error {
	r, err := f.Open()
	if err != nil {
		return errors.WithStack(err)
	}
	defer r.Close()
	if err := xml.NewDecoder(io.LimitReader(r, 1<<20)).Decode(v); err != nil {
		return errors.Wrapf(err, "failed to decode %s", f.Name)
	}
	return nil
}
