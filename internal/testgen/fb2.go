package testgen

import (
	"archive/zip"
	"bytes"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

// GenerateFB2 writes a FictionBook 2 document at dir/filename. A filename
// ending in ".fb2.zip" produces the zipped variant.
func GenerateFB2(t *testing.T, dir, filename string, opts FB2Options) string {
	t.Helper()

	doc := generateFB2Document(t, opts)
	path := filepath.Join(dir, filename)

	if filepath.Ext(filename) != ".zip" {
		if err := os.WriteFile(path, doc, 0600); err != nil {
			t.Fatalf("failed to write FB2 file: %v", err)
		}
		return path
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	inner := filename[:len(filename)-len(".zip")]
	if err := writeZipFile(zw, inner, doc); err != nil {
		t.Fatalf("failed to write FB2 zip entry: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("failed to close FB2 zip: %v", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0600); err != nil {
		t.Fatalf("failed to write FB2 zip: %v", err)
	}
	return path
}

func generateFB2Document(t *testing.T, opts FB2Options) []byte {
	t.Helper()

	var buf bytes.Buffer
	buf.WriteString(`<?xml version="1.0" encoding="UTF-8"?>
<FictionBook xmlns="http://www.gribuser.ru/xml/fictionbook/2.0" xmlns:l="http://www.w3.org/1999/xlink">
  <description>
    <title-info>
`)
	for _, g := range opts.Genres {
		buf.WriteString(fmt.Sprintf("      <genre>%s</genre>\n", escapeXML(g)))
	}
	for _, a := range opts.Authors {
		buf.WriteString("      <author>")
		if a[0] != "" {
			buf.WriteString(fmt.Sprintf("<first-name>%s</first-name>", escapeXML(a[0])))
		}
		if a[1] != "" {
			buf.WriteString(fmt.Sprintf("<middle-name>%s</middle-name>", escapeXML(a[1])))
		}
		if a[2] != "" {
			buf.WriteString(fmt.Sprintf("<last-name>%s</last-name>", escapeXML(a[2])))
		}
		buf.WriteString("</author>\n")
	}
	if opts.Title != "" {
		buf.WriteString(fmt.Sprintf("      <book-title>%s</book-title>\n", escapeXML(opts.Title)))
	}
	if opts.Annotation != "" {
		buf.WriteString(fmt.Sprintf("      <annotation><p>%s</p></annotation>\n", escapeXML(opts.Annotation)))
	}
	if opts.HasCover {
		buf.WriteString(`      <coverpage><image l:href="#cover.png"/></coverpage>` + "\n")
	}
	if opts.Lang != "" {
		buf.WriteString(fmt.Sprintf("      <lang>%s</lang>\n", escapeXML(opts.Lang)))
	}
	if opts.SequenceName != "" {
		buf.WriteString(fmt.Sprintf("      <sequence name=\"%s\" number=\"%s\"/>\n", escapeXML(opts.SequenceName), escapeXML(opts.SequenceNumber)))
	}
	buf.WriteString("    </title-info>\n")
	if opts.Publisher != "" || opts.ISBN != "" || opts.Year != "" {
		buf.WriteString("    <publish-info>\n")
		if opts.Publisher != "" {
			buf.WriteString(fmt.Sprintf("      <publisher>%s</publisher>\n", escapeXML(opts.Publisher)))
		}
		if opts.Year != "" {
			buf.WriteString(fmt.Sprintf("      <year>%s</year>\n", escapeXML(opts.Year)))
		}
		if opts.ISBN != "" {
			buf.WriteString(fmt.Sprintf("      <isbn>%s</isbn>\n", escapeXML(opts.ISBN)))
		}
		buf.WriteString("    </publish-info>\n")
	}
	buf.WriteString("  </description>\n  <body><section><p>Text.</p></section></body>\n")
	if opts.HasCover {
		data := base64.StdEncoding.EncodeToString(generateImage(t, "image/png"))
		buf.WriteString(fmt.Sprintf("  <binary id=\"cover.png\" content-type=\"image/png\">%s</binary>\n", data))
	}
	buf.WriteString("</FictionBook>\n")
	return buf.Bytes()
}
