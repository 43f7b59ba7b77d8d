package testgen

import (
	"archive/zip"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

// GenerateDOCX writes a minimal Word document carrying core and app
// properties.
func GenerateDOCX(t *testing.T, dir, filename string, opts DOCXOptions) string {
	t.Helper()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	contentTypes := `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
  <Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>
  <Default Extension="xml" ContentType="application/xml"/>
  <Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>
</Types>`
	files := []struct {
		name string
		body string
	}{
		{"[Content_Types].xml", contentTypes},
		{"_rels/.rels", `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
  <Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/>
</Relationships>`},
		{"word/document.xml", `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body><w:p><w:r><w:t>Text.</w:t></w:r></w:p></w:body></w:document>`},
		{"docProps/core.xml", generateCoreXML(opts)},
		{"docProps/app.xml", fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Properties xmlns="http://schemas.openxmlformats.org/officeDocument/2006/extended-properties"><Application>Microsoft Office Word</Application><Pages>%d</Pages></Properties>`, opts.Pages)},
	}
	for _, f := range files {
		if err := writeZipFile(zw, f.name, []byte(f.body)); err != nil {
			t.Fatalf("failed to write %s: %v", f.name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("failed to close DOCX zip: %v", err)
	}

	path := filepath.Join(dir, filename)
	if err := os.WriteFile(path, buf.Bytes(), 0600); err != nil {
		t.Fatalf("failed to write DOCX file: %v", err)
	}
	return path
}

func generateCoreXML(opts DOCXOptions) string {
	var buf bytes.Buffer
	buf.WriteString(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<cp:coreProperties xmlns:cp="http://schemas.openxmlformats.org/package/2006/metadata/core-properties" xmlns:dc="http://purl.org/dc/elements/1.1/" xmlns:dcterms="http://purl.org/dc/terms/" xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance">`)
	if opts.Title != "" {
		buf.WriteString(fmt.Sprintf("<dc:title>%s</dc:title>", escapeXML(opts.Title)))
	}
	if opts.Creator != "" {
		buf.WriteString(fmt.Sprintf("<dc:creator>%s</dc:creator>", escapeXML(opts.Creator)))
	}
	if opts.Description != "" {
		buf.WriteString(fmt.Sprintf("<dc:description>%s</dc:description>", escapeXML(opts.Description)))
	}
	if opts.Keywords != "" {
		buf.WriteString(fmt.Sprintf("<cp:keywords>%s</cp:keywords>", escapeXML(opts.Keywords)))
	}
	if opts.Created != "" {
		buf.WriteString(fmt.Sprintf(`<dcterms:created xsi:type="dcterms:W3CDTF">%s</dcterms:created>`, escapeXML(opts.Created)))
	}
	buf.WriteString("</cp:coreProperties>")
	return buf.String()
}
