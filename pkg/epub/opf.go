package epub

import (
	"encoding/xml"
	"io"
	"path"
	"slices"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/shelfwatch/shelfwatch/pkg/htmlutil"
	"github.com/shelfwatch/shelfwatch/pkg/mediafile"
	"github.com/shelfwatch/shelfwatch/pkg/models"
)

// OPF is the metadata read from an EPUB package document.
type OPF struct {
	Title         string
	Subtitle      string
	Authors       []string
	Description   string
	Publisher     string
	Language      string
	Date          string
	Subjects      []string
	Identifiers   []Identifier
	Series        string
	SeriesNumber  *float64
	CoverFilepath string
	CoverMimeType string
}

type Identifier struct {
	Value  string
	Scheme string
}

type Package struct {
	XMLName  xml.Name `xml:"package"`
	Version  string   `xml:"version,attr"`
	Metadata struct {
		Title []struct {
			Text string `xml:",chardata"`
			ID   string `xml:"id,attr"`
		} `xml:"title"`
		Creator []struct {
			Text   string `xml:",chardata"`
			ID     string `xml:"id,attr"`
			Role   string `xml:"role,attr"`
			FileAs string `xml:"file-as,attr"`
		} `xml:"creator"`
		Description string   `xml:"description"`
		Subject     []string `xml:"subject"`
		Publisher   string   `xml:"publisher"`
		Identifier  []struct {
			Text   string `xml:",chardata"`
			ID     string `xml:"id,attr"`
			Scheme string `xml:"scheme,attr"`
		} `xml:"identifier"`
		Date     string `xml:"date"`
		Language string `xml:"language"`
		Meta     []struct {
			Text     string `xml:",chardata"`
			ID       string `xml:"id,attr"`
			Name     string `xml:"name,attr"`
			Content  string `xml:"content,attr"`
			Refines  string `xml:"refines,attr"`
			Property string `xml:"property,attr"`
		} `xml:"meta"`
	} `xml:"metadata"`
	Manifest struct {
		Item []struct {
			ID         string `xml:"id,attr"`
			Href       string `xml:"href,attr"`
			MediaType  string `xml:"media-type,attr"`
			Properties string `xml:"properties,attr"`
		} `xml:"item"`
	} `xml:"manifest"`
}

// ParseOPF reads a package document. filename is the document's path inside
// the archive, used to resolve the cover path.
func ParseOPF(filename string, r io.Reader) (*OPF, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	pkg := &Package{}
	err = xml.Unmarshal(b, pkg)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	// Determine the base path because all files are referenced from the location of the OPF file. If basePath is `.`,
	// that means it's at the root of the EPUB and should not be included. But if it's something else, we need to tack
	// on a `/` since we'll be adding it as a prefix to all file paths.
	basePath := path.Dir(filename)
	if basePath == "." {
		basePath = ""
	} else {
		basePath += "/"
	}

	// Parse out metadata into a more lookup-friendly structure.
	metaProperties := map[string]map[string]string{}
	metaContent := map[string]string{}
	collectionIDs := []string{}
	collections := map[string]string{}
	for _, m := range pkg.Metadata.Meta {
		switch {
		case m.Refines != "":
			key := strings.TrimPrefix(m.Refines, "#")
			if _, ok := metaProperties[key]; !ok {
				metaProperties[key] = map[string]string{}
			}
			metaProperties[key][m.Property] = strings.TrimSpace(m.Text)
		case m.Property == "belongs-to-collection":
			collectionIDs = append(collectionIDs, m.ID)
			collections[m.ID] = strings.TrimSpace(m.Text)
		case m.Content != "":
			metaContent[m.Name] = strings.TrimSpace(m.Content)
		}
	}

	opf := &OPF{
		Description: htmlutil.StripTags(pkg.Metadata.Description),
		Publisher:   strings.TrimSpace(pkg.Metadata.Publisher),
		Language:    strings.TrimSpace(pkg.Metadata.Language),
		Date:        strings.TrimSpace(pkg.Metadata.Date),
	}

	// The main title is the one refined as title-type "main", else the
	// first. A title refined as "subtitle" or with id "subtitle" is the
	// subtitle.
	for _, t := range pkg.Metadata.Title {
		text := strings.TrimSpace(t.Text)
		titleType := ""
		if t.ID != "" && metaProperties[t.ID] != nil {
			titleType = metaProperties[t.ID]["title-type"]
		}
		switch {
		case titleType == "main":
			opf.Title = text
		case titleType == "subtitle" || t.ID == "subtitle":
			opf.Subtitle = text
		}
	}
	if opf.Title == "" {
		for _, t := range pkg.Metadata.Title {
			text := strings.TrimSpace(t.Text)
			if text != "" && text != opf.Subtitle {
				opf.Title = text
				break
			}
		}
	}

	for _, creator := range pkg.Metadata.Creator {
		role := creator.Role
		if role == "" && creator.ID != "" && metaProperties[creator.ID] != nil {
			role = metaProperties[creator.ID]["role"]
		}
		name := strings.TrimSpace(creator.Text)
		if name != "" && (role == "" || role == "aut") {
			opf.Authors = append(opf.Authors, name)
		}
	}

	for _, subject := range pkg.Metadata.Subject {
		if subject = strings.TrimSpace(subject); subject != "" {
			opf.Subjects = append(opf.Subjects, subject)
		}
	}

	for _, id := range pkg.Metadata.Identifier {
		if v := strings.TrimSpace(id.Text); v != "" {
			opf.Identifiers = append(opf.Identifiers, Identifier{Value: v, Scheme: id.Scheme})
		}
	}

	// Cover: EPUB2 meta name="cover", then EPUB3 properties="cover-image".
	for _, item := range pkg.Manifest.Item {
		if metaContent["cover"] != "" && item.ID == metaContent["cover"] {
			opf.CoverFilepath = basePath + item.Href
			opf.CoverMimeType = item.MediaType
			break
		}
	}
	if opf.CoverFilepath == "" {
		for _, item := range pkg.Manifest.Item {
			if slices.Contains(strings.Fields(item.Properties), "cover-image") {
				opf.CoverFilepath = basePath + item.Href
				opf.CoverMimeType = item.MediaType
				break
			}
		}
	}

	// Series: calibre meta tags, then an EPUB3 collection of type series (or
	// of no stated type).
	opf.Series = metaContent["calibre:series"]
	if seriesIndexStr := metaContent["calibre:series_index"]; seriesIndexStr != "" {
		if num, err := strconv.ParseFloat(seriesIndexStr, 64); err == nil {
			opf.SeriesNumber = &num
		}
	}
	if opf.Series == "" {
		for _, id := range collectionIDs {
			props := metaProperties[id]
			if t := props["collection-type"]; t != "" && t != "series" {
				continue
			}
			opf.Series = collections[id]
			if num, err := strconv.ParseFloat(props["group-position"], 64); err == nil {
				opf.SeriesNumber = &num
			}
			break
		}
	}

	return opf, nil
}

// Metadata converts the package document into the common DTO. Cover data
// is filled in by the caller.
func (opf *OPF) Metadata() *mediafile.ParsedMetadata {
	md := &mediafile.ParsedMetadata{
		Title:         opf.Title,
		Subtitle:      opf.Subtitle,
		Authors:       opf.Authors,
		Series:        opf.Series,
		SeriesNumber:  opf.SeriesNumber,
		Categories:    opf.Subjects,
		Description:   opf.Description,
		Publisher:     opf.Publisher,
		Language:      opf.Language,
		ReleaseDate:   mediafile.ParseDate(opf.Date),
		CoverMimeType: opf.CoverMimeType,
		DataSource:    models.DataSourceFile,
	}
	for _, id := range opf.Identifiers {
		md.AddIdentifier(id.Value, id.Scheme)
	}
	return md
}
