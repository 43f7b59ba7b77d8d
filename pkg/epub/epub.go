// Package epub reads book metadata and the cover image out of EPUB files.
package epub

import (
	"archive/zip"
	"encoding/xml"
	"io"
	"net/url"
	"path"
	"strings"

	"github.com/pkg/errors"
	"github.com/shelfwatch/shelfwatch/pkg/mediafile"
)

// maxCoverSize caps how much of a cover entry is read into memory.
const maxCoverSize = 20 << 20

type container struct {
	Rootfiles []struct {
		FullPath  string `xml:"full-path,attr"`
		MediaType string `xml:"media-type,attr"`
	} `xml:"rootfiles>rootfile"`
}

// Parse reads the EPUB at path. The package document is found through
// META-INF/container.xml, falling back to the first .opf entry.
func Parse(filename string) (*mediafile.ParsedMetadata, error) {
	zr, err := zip.OpenReader(filename)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	defer zr.Close()

	files := make(map[string]*zip.File, len(zr.File))
	for _, f := range zr.File {
		files[f.Name] = f
	}

	opfPath := rootfilePath(files)
	if opfPath == "" {
		for _, f := range zr.File {
			if strings.EqualFold(path.Ext(f.Name), ".opf") {
				opfPath = f.Name
				break
			}
		}
	}
	opfFile, ok := files[opfPath]
	if !ok {
		return nil, errors.New("no opf file found")
	}

	r, err := opfFile.Open()
	if err != nil {
		return nil, errors.WithStack(err)
	}
	opf, err := ParseOPF(opfFile.Name, r)
	r.Close()
	if err != nil {
		return nil, err
	}

	md := opf.Metadata()

	if opf.CoverFilepath != "" {
		// Hrefs may be percent-encoded or contain "../" segments.
		coverPath := path.Clean(unescape(opf.CoverFilepath))
		if f, ok := files[coverPath]; ok {
			data, err := readEntry(f, maxCoverSize)
			if err != nil {
				return nil, err
			}
			md.CoverData = data
		}
	}

	return md, nil
}

func rootfilePath(files map[string]*zip.File) string {
	f, ok := files["META-INF/container.xml"]
	if !ok {
		return ""
	}
	data, err := readEntry(f, 1<<20)
	if err != nil {
		return ""
	}
	c := container{}
	if err := xml.Unmarshal(data, &c); err != nil {
		return ""
	}
	for _, rf := range c.Rootfiles {
		if rf.MediaType == "" || rf.MediaType == "application/oebps-package+xml" {
			return rf.FullPath
		}
	}
	return ""
}

func readEntry(f *zip.File, limit int64) ([]byte, error) {
	r, err := f.Open()
	if err != nil {
		return nil, errors.WithStack(err)
	}
	defer r.Close()
	data, err := io.ReadAll(io.LimitReader(r, limit))
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return data, nil
}

func unescape(s string) string {
	if u, err := url.PathUnescape(s); err == nil {
		return u
	}
	return s
}
