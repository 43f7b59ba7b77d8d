package parsers

import (
	"github.com/shelfwatch/shelfwatch/pkg/doc"
	"github.com/shelfwatch/shelfwatch/pkg/docx"
	"github.com/shelfwatch/shelfwatch/pkg/epub"
	"github.com/shelfwatch/shelfwatch/pkg/fb2"
	"github.com/shelfwatch/shelfwatch/pkg/pdf"
	"github.com/shelfwatch/shelfwatch/pkg/txt"
)

const (
	mimeZIP = "application/zip"
	mimeXML = "text/xml"
)

// Default returns a registry holding every built-in format.
func Default() *Registry {
	return NewRegistry(
		Func{
			Exts:  []string{".epub"},
			MIMEs: map[string][]string{".epub": {"application/epub+zip", mimeZIP}},
			Fn:    epub.Parse,
		},
		Func{
			Exts:  []string{".pdf"},
			MIMEs: map[string][]string{".pdf": {"application/pdf"}},
			Fn:    pdf.Parse,
		},
		Func{
			Exts: []string{".fb2", ".fb2.zip"},
			MIMEs: map[string][]string{
				".fb2":     {mimeXML, "application/xml", "application/x-fictionbook+xml"},
				".fb2.zip": {mimeZIP},
			},
			Fn: fb2.Parse,
		},
		Func{
			Exts:  []string{".docx"},
			MIMEs: map[string][]string{".docx": {"application/vnd.openxmlformats-officedocument.wordprocessingml.document", mimeZIP}},
			Fn:    docx.Parse,
		},
		Func{
			Exts:  []string{".doc"},
			MIMEs: map[string][]string{".doc": {"application/msword", "application/x-ole-storage"}},
			Fn:    doc.Parse,
		},
		Func{
			Exts:  []string{".txt"},
			MIMEs: map[string][]string{".txt": {"text/plain"}},
			Fn:    txt.Parse,
		},
	)
}
