// Package fb2 reads FictionBook 2 documents, plain or zipped.
package fb2

import (
	"archive/zip"
	"bytes"
	"encoding/base64"
	"encoding/xml"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/shelfwatch/shelfwatch/pkg/htmlutil"
	"github.com/shelfwatch/shelfwatch/pkg/mediafile"
	"github.com/shelfwatch/shelfwatch/pkg/models"
	"golang.org/x/net/html/charset"
)

// maxDocumentSize caps how much of a document is read; FB2 embeds images as
// base64 so files run large.
const maxDocumentSize = 64 << 20

type author struct {
	FirstName  string `xml:"first-name"`
	MiddleName string `xml:"middle-name"`
	LastName   string `xml:"last-name"`
	Nickname   string `xml:"nickname"`
}

func (a author) name() string {
	parts := []string{}
	for _, p := range []string{a.FirstName, a.MiddleName, a.LastName} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) == 0 {
		return strings.TrimSpace(a.Nickname)
	}
	return strings.Join(parts, " ")
}

type document struct {
	XMLName     xml.Name `xml:"FictionBook"`
	Description struct {
		TitleInfo struct {
			Genres     []string `xml:"genre"`
			Authors    []author `xml:"author"`
			BookTitle  string   `xml:"book-title"`
			Annotation struct {
				Inner string `xml:",innerxml"`
			} `xml:"annotation"`
			Keywords  string `xml:"keywords"`
			Date      string `xml:"date"`
			Lang      string `xml:"lang"`
			Coverpage struct {
				Images []struct {
					Href string `xml:"href,attr"`
				} `xml:"image"`
			} `xml:"coverpage"`
			Sequences []struct {
				Name   string `xml:"name,attr"`
				Number string `xml:"number,attr"`
			} `xml:"sequence"`
		} `xml:"title-info"`
		PublishInfo struct {
			Publisher string `xml:"publisher"`
			Year      string `xml:"year"`
			ISBN      string `xml:"isbn"`
		} `xml:"publish-info"`
	} `xml:"description"`
	Binaries []struct {
		ID          string `xml:"id,attr"`
		ContentType string `xml:"content-type,attr"`
		Data        string `xml:",chardata"`
	} `xml:"binary"`
}

// Parse reads the FB2 document at path. A ".zip" path is opened as an
// archive and its first .fb2 entry is parsed.
func Parse(path string) (*mediafile.ParsedMetadata, error) {
	var r io.Reader
	if strings.HasSuffix(strings.ToLower(path), ".zip") {
		zr, err := zip.OpenReader(path)
		if err != nil {
			return nil, errors.WithStack(err)
		}
		defer zr.Close()

		var entry *zip.File
		for _, f := range zr.File {
			if strings.HasSuffix(strings.ToLower(f.Name), ".fb2") {
				entry = f
				break
			}
		}
		if entry == nil {
			return nil, errors.New("no fb2 document in archive")
		}
		rc, err := entry.Open()
		if err != nil {
			return nil, errors.WithStack(err)
		}
		defer rc.Close()
		r = rc
	} else {
		f, err := os.Open(path)
		if err != nil {
			return nil, errors.WithStack(err)
		}
		defer f.Close()
		r = f
	}

	return ParseDocument(io.LimitReader(r, maxDocumentSize))
}

// ParseDocument reads a FictionBook document. Non-UTF-8 documents are
// decoded using their XML declaration's encoding.
func ParseDocument(r io.Reader) (*mediafile.ParsedMetadata, error) {
	doc := &document{}
	decoder := xml.NewDecoder(r)
	decoder.CharsetReader = charset.NewReaderLabel
	decoder.Strict = false
	if err := decoder.Decode(doc); err != nil {
		return nil, errors.Wrap(err, "failed to decode fb2")
	}

	ti := doc.Description.TitleInfo
	pi := doc.Description.PublishInfo

	md := &mediafile.ParsedMetadata{
		Title:       strings.TrimSpace(ti.BookTitle),
		Description: htmlutil.StripTags(ti.Annotation.Inner),
		Language:    strings.TrimSpace(ti.Lang),
		Publisher:   strings.TrimSpace(pi.Publisher),
		DataSource:  models.DataSourceFile,
	}

	for _, a := range ti.Authors {
		if name := a.name(); name != "" {
			md.Authors = append(md.Authors, name)
		}
	}

	seen := map[string]bool{}
	for _, g := range ti.Genres {
		name := GenreName(g)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		md.Categories = append(md.Categories, name)
	}

	for _, kw := range strings.Split(ti.Keywords, ",") {
		if kw = strings.TrimSpace(kw); kw != "" {
			md.Tags = append(md.Tags, kw)
		}
	}

	if len(ti.Sequences) > 0 {
		seq := ti.Sequences[0]
		md.Series = strings.TrimSpace(seq.Name)
		if n, err := strconv.ParseFloat(strings.TrimSpace(seq.Number), 64); err == nil && n > 0 {
			md.SeriesNumber = &n
		}
	}

	if pi.ISBN != "" {
		md.AddIdentifier(pi.ISBN, "ISBN")
	}

	md.ReleaseDate = mediafile.ParseDate(pi.Year)
	if md.ReleaseDate == nil {
		md.ReleaseDate = mediafile.ParseDate(ti.Date)
	}

	if len(ti.Coverpage.Images) > 0 {
		id := strings.TrimPrefix(ti.Coverpage.Images[0].Href, "#")
		for _, b := range doc.Binaries {
			if b.ID != id {
				continue
			}
			data, err := decodeBinary(b.Data)
			if err == nil && len(data) > 0 {
				md.CoverData = data
				md.CoverMimeType = b.ContentType
			}
			break
		}
	}

	return md, nil
}

func decodeBinary(s string) ([]byte, error) {
	clean := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\n', '\r', '\t':
			return -1
		}
		return r
	}, s)
	data, err := base64.StdEncoding.DecodeString(clean)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return bytes.Clone(data), nil
}
