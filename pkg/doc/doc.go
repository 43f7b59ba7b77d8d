// Package doc reads the SummaryInformation property set of legacy Word
// (OLE2 compound) documents.
package doc

import (
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/richardlehane/mscfb"
	"github.com/richardlehane/msoleps"
	"github.com/richardlehane/msoleps/types"
	"github.com/shelfwatch/shelfwatch/pkg/cleanup"
	"github.com/shelfwatch/shelfwatch/pkg/mediafile"
	"github.com/shelfwatch/shelfwatch/pkg/models"
)

const summaryInformation = "\x05SummaryInformation"

// Parse is best effort: a readable file whose property set is missing or
// damaged yields empty metadata rather than an error.
func Parse(path string) (*mediafile.ParsedMetadata, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	defer f.Close()

	// A damaged property set leaves props nil.
	props, _ := readSummary(f)
	return FromProperties(props), nil
}

func readSummary(f *os.File) (props map[string]string, err error) {
	// msoleps panics on some malformed property sets.
	defer func() {
		if r := recover(); r != nil {
			props, err = nil, errors.Errorf("malformed property set: %v", r)
		}
	}()

	doc, err := mscfb.New(f)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	props = map[string]string{}
	reader := msoleps.New()
	for entry, err := doc.Next(); err == nil; entry, err = doc.Next() {
		if entry.Name != summaryInformation || !msoleps.IsMSOLEPS(entry.Initial) {
			continue
		}
		if err := reader.Reset(doc); err != nil {
			return nil, errors.WithStack(err)
		}
		for _, p := range reader.Property {
			if p == nil || p.T == nil || p.Name == "" {
				continue
			}
			props[p.Name] = propertyValue(p.T)
		}
		break
	}
	return props, nil
}

func propertyValue(t types.Type) string {
	if ft, ok := t.(types.FileTime); ok {
		if ft.Time().Unix() <= 0 {
			return ""
		}
		return ft.Time().UTC().Format("2006-01-02T15:04:05Z07:00")
	}
	return strings.TrimSpace(strings.Trim(t.String(), "\x00"))
}

// FromProperties maps SummaryInformation properties onto metadata.
func FromProperties(props map[string]string) *mediafile.ParsedMetadata {
	md := &mediafile.ParsedMetadata{DataSource: models.DataSourceFile}
	if props == nil {
		return md
	}

	md.Title = cleanup.CleanTitle(props["Title"])
	md.Authors = cleanup.SplitAuthors(props["Author"])
	md.Description = strings.TrimSpace(props["Comments"])
	if md.Description == "" {
		md.Description = strings.TrimSpace(props["Subject"])
	}
	md.ReleaseDate = mediafile.ParseDate(props["CreateTime"])
	for _, kw := range strings.FieldsFunc(props["Keywords"], func(r rune) bool { return r == ',' || r == ';' }) {
		if kw = strings.TrimSpace(kw); kw != "" {
			md.Tags = append(md.Tags, kw)
		}
	}
	if n, err := strconv.Atoi(props["PageCount"]); err == nil && n > 0 {
		md.PageCount = &n
	}
	return md
}
